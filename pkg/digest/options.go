package digest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures optional behavior of a Service.
type Option func(*options)

type options struct {
	logger          Logger
	sender          Sender
	errorSink       ErrorSink
	eventHandler    EventHandler
	plugins         []Plugin
	metrics         bool
	registry        *prometheus.Registry
	shutdownTimeout time.Duration
}

// WithLogger sets a custom logger. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSender replaces the SMTP or webhook transport.
func WithSender(sender Sender) Option {
	return func(o *options) {
		o.sender = sender
	}
}

// WithErrorSink receives flush failures. If not provided, they are logged.
func WithErrorSink(sink ErrorSink) Option {
	return func(o *options) {
		o.errorSink = sink
	}
}

// WithEventHandler sets a handler for service events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics enables Prometheus metrics on reg, or on a private registry
// when reg is nil.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.metrics = true
		o.registry = reg
	}
}

// WithShutdownTimeout bounds Stop. Default: 30 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}
