// Package digestmail runs the digest mailer as a standalone process:
// configured sources feed events into a digest.Service until the context
// is cancelled, then everything still buffered is delivered.
//
// Example usage:
//
//	cfg := digestmail.DefaultConfig()
//	cfg.From = "seq@example.com"
//	cfg.To = "ops@example.com"
//	cfg.SMTPHost = "mail.example.com"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := digestmail.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Embedders that need finer control should use pkg/digest directly.
package digestmail

import (
	"context"
	"fmt"

	"github.com/bft-labs/digestmail/internal/cliconfig"
	"github.com/bft-labs/digestmail/pkg/digest"
	"github.com/bft-labs/digestmail/pkg/log"
	"github.com/bft-labs/digestmail/plugins/filetail"
	"github.com/bft-labs/digestmail/plugins/httpingest"
	"github.com/bft-labs/digestmail/plugins/templatewatch"
)

// Config holds the process configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with default values. From, To and either
// SMTPHost or WebhookURL must be set before Run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Run starts the service with every source cfg enables and blocks until
// ctx is cancelled. cfg must already be validated.
func Run(ctx context.Context, cfg Config) error {
	zl := cliconfig.Logger(cfg)
	zl.Info().Interface("config", cfg.Redacted()).Msg("configuration")

	svc, err := digest.New(ServiceConfig(cfg), Options(cfg, log.NewZerologAdapterWithLogger(zl))...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	<-ctx.Done()
	zl.Info().Int("pending", svc.Pending()).Msg("stopping, delivering pending events")

	if err := svc.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// Options returns the service options for the sources cfg enables.
// Metrics are always on; they are served by the ingest server.
func Options(cfg Config, logger digest.Logger) []digest.Option {
	opts := []digest.Option{
		digest.WithLogger(logger),
		digest.WithMetrics(nil),
	}
	if cfg.ListenAddr != "" {
		opts = append(opts, httpingest.WithHTTPIngest(httpingest.Config{Addr: cfg.ListenAddr}))
	}
	if cfg.WatchDir != "" {
		opts = append(opts, filetail.WithFileTail(filetail.Config{
			Dir:      cfg.WatchDir,
			Pattern:  cfg.WatchPattern,
			StateDir: cfg.StateDir,
		}))
	}
	if cfg.BodyTemplateFile != "" {
		opts = append(opts, templatewatch.WithTemplateWatch(templatewatch.Config{Path: cfg.BodyTemplateFile}))
	}
	return opts
}

// ServiceConfig converts process configuration to library configuration.
func ServiceConfig(cfg Config) digest.Config {
	var uris []string
	if cfg.ServerURI != "" {
		uris = []string{cfg.ServerURI}
	}
	return digest.Config{
		From:           cfg.From,
		To:             cfg.Recipients(),
		Subject:        cfg.Subject,
		BatchTime:      cfg.BatchTime(),
		BatchSizeLimit: cfg.BatchSizeLimit,
		SMTP: digest.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			EnableSSL: cfg.EnableSSL,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			Timeout:   cfg.SMTPTimeout,
		},
		WebhookURL:   cfg.WebhookURL,
		WebhookToken: cfg.WebhookToken,
		BodyTemplate: cfg.BodyTemplate,
		AppTitle:     cfg.AppTitle,
		InstanceName: cfg.InstanceName,
		ServerURIs:   uris,
	}
}
