package digest

import (
	"context"
	"net/http"
	"time"

	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/ports"
	"github.com/bft-labs/digestmail/pkg/log"
)

// Event is one occurrence to be included in a digest.
type Event = domain.Event

// Level is an event severity.
type Level = domain.Level

// Event severities.
const (
	LevelVerbose     = domain.LevelVerbose
	LevelDebug       = domain.LevelDebug
	LevelInformation = domain.LevelInformation
	LevelWarning     = domain.LevelWarning
	LevelError       = domain.LevelError
	LevelFatal       = domain.LevelFatal
)

// Message is one rendered digest handed to a Sender.
type Message = domain.Message

// Sender delivers one digest. A returned error abandons the rest of the
// flush cycle; it is not retried.
type Sender = ports.DigestSender

// ErrorSink receives flush failures.
type ErrorSink = ports.ErrorSink

// EventSink accepts events from a plugin.
type EventSink = ports.EventSink

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// Errors returned by the service.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// State represents the lifecycle state of a Service.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Plugin is an optional component started with the service, typically an
// event source.
type Plugin interface {
	// Name identifies the plugin. It labels the events it enqueues.
	Name() string

	// Initialize starts the plugin. It must not block.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin. After it returns the plugin must not
	// enqueue further events.
	Shutdown(ctx context.Context) error
}

// BasePlugin provides no-op Initialize and Shutdown for embedding.
type BasePlugin struct{}

// Initialize does nothing.
func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(ctx context.Context) error { return nil }

// TemplateReloader replaces the digest body template at runtime.
type TemplateReloader interface {
	ReloadTemplate(source string) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	Logger Logger

	// Sink enqueues events into the digest scheduler
	Sink EventSink

	// Templates swaps the body template
	Templates TemplateReloader

	// MetricsHandler serves Prometheus metrics; nil when metrics are disabled
	MetricsHandler http.Handler
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DigestSentEvent is emitted after each delivered digest.
type DigestSentEvent struct {
	Events   int
	Duration time.Duration
}

// FlushErrorEvent is emitted when a flush cycle is abandoned.
type FlushErrorEvent struct {
	Error     error
	Sent      int
	Discarded int
}

// EventDroppedEvent is emitted when an event is refused.
type EventDroppedEvent struct {
	Reason string
}

// EventHandler receives notifications from a Service. Methods are called
// synchronously from the flushing goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnDigestSent(DigestSentEvent)
	OnFlushError(FlushErrorEvent)
	OnEventDropped(EventDroppedEvent)
}

// BaseEventHandler provides no-op implementations for embedding.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnDigestSent(DigestSentEvent)     {}
func (BaseEventHandler) OnFlushError(FlushErrorEvent)     {}
func (BaseEventHandler) OnEventDropped(EventDroppedEvent) {}
