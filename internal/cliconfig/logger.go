package cliconfig

import (
	"github.com/rs/zerolog"

	"github.com/bft-labs/digestmail/pkg/log"
)

// Logger builds the process logger from the log settings in cfg.
func Logger(cfg Config) zerolog.Logger {
	return log.NewZerolog(log.Options{
		Level:    cfg.LogLevel,
		Pretty:   cfg.LogPretty,
		Service:  "digestmail",
		Instance: cfg.InstanceName,
	})
}
