package log

import (
	"errors"
	"testing"

	"github.com/bft-labs/digestmail/internal/ports"
)

type captureLogger struct {
	msg    string
	fields []ports.Field
}

func (c *captureLogger) Debug(msg string, fields ...ports.Field) {}
func (c *captureLogger) Info(msg string, fields ...ports.Field)  {}
func (c *captureLogger) Warn(msg string, fields ...ports.Field)  {}
func (c *captureLogger) Error(msg string, fields ...ports.Field) {
	c.msg = msg
	c.fields = fields
}

func TestErrorSink_ReportError(t *testing.T) {
	logger := &captureLogger{}
	sink := NewErrorSink(logger)

	err := errors.New("connection refused")
	sink.ReportError(err, "could not send digest email")

	if logger.msg != "could not send digest email" {
		t.Errorf("msg = %q", logger.msg)
	}
	if len(logger.fields) != 1 || logger.fields[0].Value != err {
		t.Errorf("fields = %+v, want error field", logger.fields)
	}
}
