// Package cliconfig loads digestmail settings from flags, environment
// variables and a TOML file, in that order of precedence.
package cliconfig

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/digestmail/internal/domain"
)

// Defaults for settings that are optional.
const (
	DefaultBatchTimeSeconds = 60
	DefaultSMTPPort         = 25
	DefaultSMTPTimeout      = 30 * time.Second
	DefaultListenAddr       = ":5341"
	DefaultWatchPattern     = "*.clef"
	DefaultAppTitle         = "digestmail"
	DefaultLogLevel         = "info"
)

// Config holds CLI configuration for digestmail.
type Config struct {
	From    string
	To      string
	Subject string

	// BatchTimeSeconds is the delay after the first event of a burst; negative disables sending.
	BatchTimeSeconds int
	BatchSizeLimit   int

	SMTPHost     string
	SMTPPort     int
	EnableSSL    bool
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration

	WebhookURL   string
	WebhookToken string

	BodyTemplate     string
	BodyTemplateFile string

	AppTitle     string
	InstanceName string
	ServerURI    string

	ListenAddr   string
	WatchDir     string
	WatchPattern string
	StateDir     string

	LogLevel  string
	LogPretty bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	host, _ := os.Hostname()
	return Config{
		BatchTimeSeconds: DefaultBatchTimeSeconds,
		BatchSizeLimit:   domain.DefaultBatchSizeLimit,
		SMTPPort:         DefaultSMTPPort,
		SMTPTimeout:      DefaultSMTPTimeout,
		AppTitle:         DefaultAppTitle,
		InstanceName:     host,
		ListenAddr:       DefaultListenAddr,
		WatchPattern:     DefaultWatchPattern,
		LogLevel:         DefaultLogLevel,
	}
}

// BatchTime returns the batch delay as a duration.
func (c Config) BatchTime() time.Duration {
	return time.Duration(c.BatchTimeSeconds) * time.Second
}

// Recipients returns the To list split on commas and semicolons.
func (c Config) Recipients() []string {
	var out []string
	for _, f := range strings.FieldsFunc(c.To, func(r rune) bool { return r == ',' || r == ';' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.SMTPPassword != "" {
		c.SMTPPassword = "*****"
	}
	if c.WebhookToken != "" {
		c.WebhookToken = "*****"
	}
	return c
}

// Validate checks the configuration for errors and sets derived defaults.
// It reads BodyTemplateFile into BodyTemplate when set.
func (c *Config) Validate() error {
	if c.From == "" {
		return invalid("from address is required")
	}
	if _, err := mail.ParseAddress(c.From); err != nil {
		return invalid("from address %q: %v", c.From, err)
	}

	rcpts := c.Recipients()
	if len(rcpts) == 0 {
		return invalid("at least one to address is required")
	}
	for _, r := range rcpts {
		if _, err := mail.ParseAddress(r); err != nil {
			return invalid("to address %q: %v", r, err)
		}
	}

	if c.SMTPHost == "" && c.WebhookURL == "" {
		return invalid("smtp-host or webhook-url is required")
	}
	if c.SMTPPort <= 0 {
		c.SMTPPort = DefaultSMTPPort
	}
	if c.SMTPTimeout <= 0 {
		c.SMTPTimeout = DefaultSMTPTimeout
	}
	if c.BatchSizeLimit <= 0 {
		c.BatchSizeLimit = domain.DefaultBatchSizeLimit
	}

	if c.BodyTemplateFile != "" {
		b, err := os.ReadFile(c.BodyTemplateFile)
		if err != nil {
			return invalid("body template file: %v", err)
		}
		c.BodyTemplate = string(b)
	}

	if c.WatchPattern == "" {
		c.WatchPattern = DefaultWatchPattern
	}
	if _, err := filepath.Match(c.WatchPattern, ""); err != nil {
		return invalid("watch pattern %q: %v", c.WatchPattern, err)
	}
	if c.WatchDir != "" && c.StateDir == "" {
		c.StateDir = c.WatchDir
	}

	c.ServerURI = strings.TrimSuffix(c.ServerURI, "/")
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int from an optional value, allowing zero and negatives.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
