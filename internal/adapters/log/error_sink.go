// Package log provides logger-backed adapters for application ports.
package log

import "github.com/bft-labs/digestmail/internal/ports"

// ErrorSink implements ports.ErrorSink by logging at error level.
type ErrorSink struct {
	logger ports.Logger
}

// NewErrorSink creates an error sink writing to logger.
func NewErrorSink(logger ports.Logger) *ErrorSink {
	return &ErrorSink{logger: logger}
}

// ReportError logs err with msg.
func (s *ErrorSink) ReportError(err error, msg string) {
	s.logger.Error(msg, ports.Err(err))
}
