package domain

import "errors"

// Domain errors represent error conditions in the digestmail domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("digestmail: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("digestmail: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("digestmail: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("digestmail: invalid configuration")

	// ErrInvalidEvent is returned when an inbound event cannot be decoded.
	ErrInvalidEvent = errors.New("digestmail: invalid event")
)
