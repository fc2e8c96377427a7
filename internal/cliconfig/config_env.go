package cliconfig

import (
	env "github.com/caarlos0/env/v10"
)

// EnvPrefix prefixes every environment variable digestmail reads.
const EnvPrefix = "DIGESTMAIL_"

// EnvConfig holds raw environment values. Values stay strings so an unset
// variable can be told apart from a zero value.
type EnvConfig struct {
	From             string `env:"FROM"`
	To               string `env:"TO"`
	Subject          string `env:"SUBJECT"`
	BatchTimeSeconds string `env:"BATCH_TIME_SECONDS"`
	BatchSizeLimit   string `env:"BATCH_SIZE_LIMIT"`
	SMTPHost         string `env:"SMTP_HOST"`
	SMTPPort         string `env:"SMTP_PORT"`
	EnableSSL        string `env:"ENABLE_SSL"`
	SMTPUsername     string `env:"SMTP_USERNAME"`
	SMTPPassword     string `env:"SMTP_PASSWORD"`
	SMTPTimeout      string `env:"SMTP_TIMEOUT"`
	WebhookURL       string `env:"WEBHOOK_URL"`
	WebhookToken     string `env:"WEBHOOK_TOKEN"`
	BodyTemplate     string `env:"BODY_TEMPLATE"`
	BodyTemplateFile string `env:"BODY_TEMPLATE_FILE"`
	AppTitle         string `env:"APP_TITLE"`
	InstanceName     string `env:"INSTANCE_NAME"`
	ServerURI        string `env:"SERVER_URI"`
	ListenAddr       string `env:"LISTEN_ADDR"`
	WatchDir         string `env:"WATCH_DIR"`
	WatchPattern     string `env:"WATCH_PATTERN"`
	StateDir         string `env:"STATE_DIR"`
	LogLevel         string `env:"LOG_LEVEL"`
	LogPretty        string `env:"LOG_PRETTY"`
}

// LoadEnvConfig reads DIGESTMAIL_* variables from the environment.
func LoadEnvConfig() (EnvConfig, error) {
	var ec EnvConfig
	err := env.ParseWithOptions(&ec, env.Options{Prefix: EnvPrefix})
	return ec, err
}

// ApplyEnvConfig reads DIGESTMAIL_* variables and applies them to cfg.
// Environment values override the file but not explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	ec, err := LoadEnvConfig()
	if err != nil {
		return err
	}

	s := newConfigSetter(changed)

	s.setString("from", ec.From, &cfg.From)
	s.setString("to", ec.To, &cfg.To)
	s.setString("subject", ec.Subject, &cfg.Subject)
	if err := s.setIntFromString("batch-time", ec.BatchTimeSeconds, &cfg.BatchTimeSeconds); err != nil {
		return err
	}
	if err := s.setIntFromString("batch-size-limit", ec.BatchSizeLimit, &cfg.BatchSizeLimit); err != nil {
		return err
	}

	s.setString("smtp-host", ec.SMTPHost, &cfg.SMTPHost)
	if err := s.setIntFromString("smtp-port", ec.SMTPPort, &cfg.SMTPPort); err != nil {
		return err
	}
	s.setBoolFromString("enable-ssl", ec.EnableSSL, &cfg.EnableSSL)
	s.setString("smtp-username", ec.SMTPUsername, &cfg.SMTPUsername)
	s.setString("smtp-password", ec.SMTPPassword, &cfg.SMTPPassword)
	if err := s.setDuration("smtp-timeout", ec.SMTPTimeout, &cfg.SMTPTimeout); err != nil {
		return err
	}

	s.setString("webhook-url", ec.WebhookURL, &cfg.WebhookURL)
	s.setString("webhook-token", ec.WebhookToken, &cfg.WebhookToken)
	s.setString("body-template", ec.BodyTemplate, &cfg.BodyTemplate)
	s.setString("body-template-file", ec.BodyTemplateFile, &cfg.BodyTemplateFile)

	s.setString("app-title", ec.AppTitle, &cfg.AppTitle)
	s.setString("instance-name", ec.InstanceName, &cfg.InstanceName)
	s.setString("server-uri", ec.ServerURI, &cfg.ServerURI)

	s.setString("listen-addr", ec.ListenAddr, &cfg.ListenAddr)
	s.setString("watch-dir", ec.WatchDir, &cfg.WatchDir)
	s.setString("watch-pattern", ec.WatchPattern, &cfg.WatchPattern)
	s.setString("state-dir", ec.StateDir, &cfg.StateDir)

	s.setString("log-level", ec.LogLevel, &cfg.LogLevel)
	s.setBoolFromString("log-pretty", ec.LogPretty, &cfg.LogPretty)

	return nil
}
