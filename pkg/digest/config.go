package digest

import (
	"fmt"
	"time"

	"github.com/bft-labs/digestmail/internal/adapters/smtp"
	"github.com/bft-labs/digestmail/internal/domain"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host      string
	Port      int
	EnableSSL bool
	Username  string
	Password  string
	Timeout   time.Duration
}

// Config configures a Service.
type Config struct {
	From string
	To   []string

	// Subject overrides AppTitle as the email subject
	Subject string

	// BatchTime is measured from the first event of a burst. Negative disables delivery.
	BatchTime time.Duration

	// BatchSizeLimit caps events per digest. Default: 50
	BatchSizeLimit int

	SMTP SMTPConfig

	// WebhookURL, when set, replaces SMTP delivery with a JSON POST
	WebhookURL   string
	WebhookToken string

	// BodyTemplate is Handlebars source; empty selects the built-in template
	BodyTemplate string

	AppTitle     string
	InstanceName string
	ServerURIs   []string
}

// SetDefaults fills unset optional fields.
func (c *Config) SetDefaults() {
	if c.BatchSizeLimit <= 0 {
		c.BatchSizeLimit = domain.DefaultBatchSizeLimit
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = smtp.DefaultPort
	}
	if c.SMTP.Timeout <= 0 {
		c.SMTP.Timeout = smtp.DefaultTimeout
	}
}

// Validate reports missing required settings.
func (c Config) Validate() error {
	if c.From == "" {
		return fmt.Errorf("%w: from address is required", domain.ErrInvalidConfig)
	}
	if len(c.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", domain.ErrInvalidConfig)
	}
	if c.SMTP.Host == "" && c.WebhookURL == "" {
		return fmt.Errorf("%w: smtp host or webhook url is required", domain.ErrInvalidConfig)
	}
	return nil
}
