package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/digestmail"
	"github.com/bft-labs/digestmail/internal/cliconfig"
)

const longHelp = `Collect structured log events and mail them out as batched digests.

The first event of a burst starts the batch timer; when it fires every
buffered event is rendered through a Handlebars template and delivered,
at most batch-size-limit events per email. Events arrive over HTTP as
newline-delimited CLEF, or are tailed from *.clef files in watch-dir.

Settings come from $HOME/.digestmail/config.toml, then DIGESTMAIL_*
environment variables (a .env file in the working directory is loaded
first), then flags.`

var exampleUsage = strings.TrimSpace(`
  digestmail --from seq@example.com --to ops@example.com --smtp-host mail.example.com
  digestmail --config /etc/digestmail.toml --watch-dir /var/log/app
  digestmail render --body-template-file body.hbs events.clef > preview.html
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "digestmail",
		Short:         "Batch structured log events into digest emails",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.digestmail/config.toml)")
	registerFlags(root.Flags(), &cfg)
	root.AddCommand(newRenderCommand())

	if err := root.Execute(); err != nil {
		l := cliconfig.Logger(cfg)
		l.Error().Err(err).Msg("digestmail")
		os.Exit(1)
	}
}

func registerFlags(f *pflag.FlagSet, cfg *cliconfig.Config) {
	f.StringVar(&cfg.From, "from", cfg.From, "sender address")
	f.StringVar(&cfg.To, "to", cfg.To, "recipient addresses, separated by commas or semicolons")
	f.StringVar(&cfg.Subject, "subject", cfg.Subject, "email subject (defaults to app-title, truncated to 130 characters)")

	f.IntVar(&cfg.BatchTimeSeconds, "batch-time", cfg.BatchTimeSeconds, "seconds from the first event of a burst until delivery; negative disables delivery")
	f.IntVar(&cfg.BatchSizeLimit, "batch-size-limit", cfg.BatchSizeLimit, "maximum events per email")

	f.StringVar(&cfg.SMTPHost, "smtp-host", cfg.SMTPHost, "SMTP server host")
	f.IntVar(&cfg.SMTPPort, "smtp-port", cfg.SMTPPort, "SMTP server port")
	f.BoolVar(&cfg.EnableSSL, "enable-ssl", cfg.EnableSSL, "require TLS on the SMTP connection")
	f.StringVar(&cfg.SMTPUsername, "smtp-username", cfg.SMTPUsername, "SMTP username; enables PLAIN auth")
	f.StringVar(&cfg.SMTPPassword, "smtp-password", cfg.SMTPPassword, "SMTP password")
	f.DurationVar(&cfg.SMTPTimeout, "smtp-timeout", cfg.SMTPTimeout, "SMTP and webhook request timeout")

	f.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "POST digests as JSON to this URL instead of SMTP")
	f.StringVar(&cfg.WebhookToken, "webhook-token", cfg.WebhookToken, "bearer token for webhook-url")

	f.StringVar(&cfg.BodyTemplate, "body-template", cfg.BodyTemplate, "Handlebars body template source")
	f.StringVar(&cfg.BodyTemplateFile, "body-template-file", cfg.BodyTemplateFile, "read the body template from this file and reload it on change")

	f.StringVar(&cfg.AppTitle, "app-title", cfg.AppTitle, "application title shown in digests")
	f.StringVar(&cfg.InstanceName, "instance-name", cfg.InstanceName, "instance name shown in digests")
	f.StringVar(&cfg.ServerURI, "server-uri", cfg.ServerURI, "link shown in digests")

	f.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "ingest API listen address; empty disables it")
	f.StringVar(&cfg.WatchDir, "watch-dir", cfg.WatchDir, "directory of CLEF files to tail (optional)")
	f.StringVar(&cfg.WatchPattern, "watch-pattern", cfg.WatchPattern, "file name pattern within watch-dir")
	f.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for offsets.json (defaults to watch-dir)")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "human-readable console logs")
}

// loadConfig applies the config file, then the environment, then flags,
// and validates the result.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(cfg cliconfig.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return digestmail.Run(ctx, cfg)
}
