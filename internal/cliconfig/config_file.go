package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations and pointers
// for values whose zero is meaningful.
type FileConfig struct {
	From             string `toml:"from"`
	To               string `toml:"to"`
	Subject          string `toml:"subject"`
	BatchTimeSeconds *int   `toml:"batch_time_seconds"`
	BatchSizeLimit   *int   `toml:"batch_size_limit"`
	SMTPHost         string `toml:"smtp_host"`
	SMTPPort         *int   `toml:"smtp_port"`
	EnableSSL        *bool  `toml:"enable_ssl"`
	SMTPUsername     string `toml:"smtp_username"`
	SMTPPassword     string `toml:"smtp_password"`
	SMTPTimeout      string `toml:"smtp_timeout"`
	WebhookURL       string `toml:"webhook_url"`
	WebhookToken     string `toml:"webhook_token"`
	BodyTemplate     string `toml:"body_template"`
	BodyTemplateFile string `toml:"body_template_file"`
	AppTitle         string `toml:"app_title"`
	InstanceName     string `toml:"instance_name"`
	ServerURI        string `toml:"server_uri"`
	ListenAddr       string `toml:"listen_addr"`
	WatchDir         string `toml:"watch_dir"`
	WatchPattern     string `toml:"watch_pattern"`
	StateDir         string `toml:"state_dir"`
	LogLevel         string `toml:"log_level"`
	LogPretty        *bool  `toml:"log_pretty"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.digestmail/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".digestmail", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("from", fc.From, &cfg.From)
	s.setString("to", fc.To, &cfg.To)
	s.setString("subject", fc.Subject, &cfg.Subject)
	s.setIntPtr("batch-time", fc.BatchTimeSeconds, &cfg.BatchTimeSeconds)
	s.setIntPtr("batch-size-limit", fc.BatchSizeLimit, &cfg.BatchSizeLimit)

	s.setString("smtp-host", fc.SMTPHost, &cfg.SMTPHost)
	s.setIntPtr("smtp-port", fc.SMTPPort, &cfg.SMTPPort)
	s.setBool("enable-ssl", fc.EnableSSL, &cfg.EnableSSL)
	s.setString("smtp-username", fc.SMTPUsername, &cfg.SMTPUsername)
	s.setString("smtp-password", fc.SMTPPassword, &cfg.SMTPPassword)
	if err := s.setDuration("smtp-timeout", fc.SMTPTimeout, &cfg.SMTPTimeout); err != nil {
		return err
	}

	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("webhook-token", fc.WebhookToken, &cfg.WebhookToken)

	s.setString("body-template", fc.BodyTemplate, &cfg.BodyTemplate)
	s.setString("body-template-file", fc.BodyTemplateFile, &cfg.BodyTemplateFile)

	s.setString("app-title", fc.AppTitle, &cfg.AppTitle)
	s.setString("instance-name", fc.InstanceName, &cfg.InstanceName)
	s.setString("server-uri", fc.ServerURI, &cfg.ServerURI)

	s.setString("listen-addr", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("watch-dir", fc.WatchDir, &cfg.WatchDir)
	s.setString("watch-pattern", fc.WatchPattern, &cfg.WatchPattern)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("log-pretty", fc.LogPretty, &cfg.LogPretty)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
