package ports

import (
	"context"

	"github.com/bft-labs/digestmail/internal/domain"
)

// DigestSender transmits one rendered digest to its recipients.
// Implementations own the connection settings and open a fresh
// connection per call.
type DigestSender interface {
	// Send delivers msg. Returns nil on success; failures are reported
	// synchronously and are not retried by the caller.
	Send(ctx context.Context, msg domain.Message) error
}

// Renderer turns a payload into the HTML body of a digest.
type Renderer interface {
	Render(payload domain.Payload) (string, error)
}

// ErrorSink receives failures that must not propagate to the caller,
// such as a failed flush cycle.
type ErrorSink interface {
	ReportError(err error, msg string)
}
