// Package smtp delivers digests over SMTP.
package smtp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/ports"
)

// DefaultPort is the SMTP port used when none is configured.
const DefaultPort = 25

// DefaultTimeout bounds connecting and sending one digest.
const DefaultTimeout = 30 * time.Second

// Config holds SMTP connection settings.
type Config struct {
	Host      string
	Port      int
	EnableSSL bool
	Username  string
	Password  string
	Timeout   time.Duration
}

// Sender implements ports.DigestSender. Each Send opens its own
// connection and closes it before returning.
type Sender struct {
	config Config
	logger ports.Logger
}

// NewSender creates an SMTP sender. Zero port and timeout take defaults.
func NewSender(config Config, logger ports.Logger) *Sender {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	return &Sender{config: config, logger: logger}
}

// Send delivers msg as an HTML email.
func (s *Sender) Send(ctx context.Context, msg domain.Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s:%d: %w", s.config.Host, s.config.Port, err)
	}

	s.logger.Debug("digest email sent",
		ports.String("host", s.config.Host),
		ports.Strings("to", msg.To),
	)
	return nil
}

func (s *Sender) buildMessage(msg domain.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address %q: %w", msg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("to addresses: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	return m, nil
}

func (s *Sender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(s.config.Timeout),
	}
	if s.config.EnableSSL {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}
	return opts
}

// NormalizeRecipients splits a recipient list separated by commas or
// semicolons, dropping blanks.
func NormalizeRecipients(to string) []string {
	fields := strings.FieldsFunc(to, func(r rune) bool {
		return r == ',' || r == ';'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
