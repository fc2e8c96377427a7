package digest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	httpAdapter "github.com/bft-labs/digestmail/internal/adapters/http"
	logAdapter "github.com/bft-labs/digestmail/internal/adapters/log"
	"github.com/bft-labs/digestmail/internal/adapters/smtp"
	"github.com/bft-labs/digestmail/internal/app"
	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/metrics"
	"github.com/bft-labs/digestmail/internal/ports"
	"github.com/bft-labs/digestmail/internal/render"
	"github.com/bft-labs/digestmail/pkg/log"
)

// SourceAPI labels events passed to Service.Enqueue directly.
const SourceAPI = "api"

// DropReasonNotStarted is reported for events enqueued before the first Start.
const DropReasonNotStarted = "not_started"

// Service batches events into digest emails. Use New to create one, then
// Start to begin accepting events.
type Service struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	templates *render.Current
	sender    Sender
	errSink   ErrorSink
	logger    ports.Logger
	metrics   *metrics.Metrics
	emitter   *emitterFanout

	scheduler atomic.Pointer[app.Scheduler]

	mu          sync.Mutex
	initialized []Plugin
}

// New creates a Service in StateStopped. It compiles the body template and
// returns an error wrapping ErrInvalidConfig if configuration is invalid.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{shutdownTimeout: app.ShutdownTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	var logger ports.Logger = log.NewNoopLogger()
	if o.logger != nil {
		logger = o.logger
	}

	tpl, err := render.Compile(cfg.BodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	var m *metrics.Metrics
	if o.metrics {
		m = metrics.New(o.registry)
	}

	sender := o.sender
	if sender == nil {
		sender = newSender(cfg, logger)
	}

	var errSink ErrorSink = logAdapter.NewErrorSink(logger)
	if o.errorSink != nil {
		errSink = o.errorSink
	}

	emitter := &emitterFanout{handler: o.eventHandler, metrics: m}

	return &Service{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		templates: render.NewCurrent(tpl),
		sender:    sender,
		errSink:   errSink,
		logger:    logger,
		metrics:   m,
		emitter:   emitter,
	}, nil
}

func newSender(cfg Config, logger ports.Logger) Sender {
	if cfg.WebhookURL != "" {
		client := &http.Client{Timeout: cfg.SMTP.Timeout}
		return httpAdapter.NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken, client, logger)
	}
	return smtp.NewSender(smtp.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		EnableSSL: cfg.SMTP.EnableSSL,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		Timeout:   cfg.SMTP.Timeout,
	}, logger)
}

// Start creates a fresh scheduler and initializes plugins in registration
// order. If a plugin fails, the ones already initialized are shut down and
// the service moves to StateCrashed.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)

	sched := app.NewScheduler(app.SchedulerConfig{
		BatchTime:      s.config.BatchTime,
		BatchSizeLimit: s.config.BatchSizeLimit,
		From:           s.config.From,
		To:             s.config.To,
		Subject:        s.config.Subject,
		App:            domain.AppInfo{Title: s.config.AppTitle},
		Host:           domain.HostInfo{InstanceName: s.config.InstanceName, ListenURIs: s.config.ServerURIs},
	}, s.templates, s.sender, s.errSink, s.logger, s.emitter)
	s.scheduler.Store(sched)

	var initialized []Plugin
	for _, p := range s.opts.plugins {
		if err := p.Initialize(runCtx, s.pluginConfig(p)); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			s.shutdownPlugins(context.Background(), initialized)
			sched.Shutdown(context.Background())
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		initialized = append(initialized, p)
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
	s.initialized = initialized

	return s.lifecycle.TransitionTo(app.StateRunning, "started")
}

func (s *Service) pluginConfig(p Plugin) PluginConfig {
	name := p.Name()
	return PluginConfig{
		Logger: s.logger,
		Sink: ports.EventSinkFunc(func(evt domain.Event) {
			s.enqueue(name, evt)
		}),
		Templates:      s,
		MetricsHandler: s.MetricsHandler(),
	}
}

// Stop shuts plugins down in reverse order so no new events arrive, then
// delivers everything still buffered. The whole sequence is bounded by the
// shutdown timeout; on expiry Stop returns ErrShutdownTimeout and the
// service moves to StateCrashed.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	plugins := s.initialized
	s.initialized = nil
	s.lifecycle.Cancel()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
	defer cancel()

	sched := s.scheduler.Load()
	s.lifecycle.Go(func() {
		s.shutdownPlugins(ctx, plugins)
		sched.Shutdown(ctx)
	})

	if err := s.lifecycle.WaitWithTimeout(s.opts.shutdownTimeout); err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	return s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
}

func (s *Service) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

// Enqueue adds an event to the current batch. It never blocks on delivery.
// Events enqueued while stopped are dropped.
func (s *Service) Enqueue(evt Event) {
	s.enqueue(SourceAPI, evt)
}

func (s *Service) enqueue(source string, evt Event) {
	if s.metrics != nil {
		s.metrics.ObserveReceived(source)
	}
	sched := s.scheduler.Load()
	if sched == nil {
		s.emitter.OnEventDropped(DropReasonNotStarted)
		return
	}
	sched.Enqueue(evt)
}

// Flush delivers the current batch now instead of waiting for the batch timer.
func (s *Service) Flush(ctx context.Context) {
	if sched := s.scheduler.Load(); sched != nil {
		sched.Flush(ctx)
	}
}

// ReloadTemplate compiles source and uses it for subsequent digests. An
// empty source restores the built-in template. On error the active
// template is kept.
func (s *Service) ReloadTemplate(source string) error {
	tpl, err := render.Compile(source)
	if err != nil {
		return err
	}
	s.templates.Swap(tpl)
	s.logger.Info("body template reloaded", ports.Int("bytes", len(source)))
	return nil
}

// MetricsHandler serves Prometheus metrics, or returns nil when metrics
// are disabled.
func (s *Service) MetricsHandler() http.Handler {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Handler()
}

// Status returns the current lifecycle state.
func (s *Service) Status() State {
	return convertState(s.lifecycle.State())
}

// Pending returns the number of buffered events.
func (s *Service) Pending() int {
	if sched := s.scheduler.Load(); sched != nil {
		return sched.Pending()
	}
	return 0
}

// emitterFanout forwards scheduler and lifecycle events to metrics and the
// user's EventHandler.
type emitterFanout struct {
	handler EventHandler
	metrics *metrics.Metrics
}

func (e *emitterFanout) OnStateChange(previous, current app.State, reason string) {
	if e.metrics != nil {
		e.metrics.OnStateChange(previous, current, reason)
	}
	if e.handler != nil {
		e.handler.OnStateChange(StateChangeEvent{
			Previous: convertState(previous),
			Current:  convertState(current),
			Reason:   reason,
		})
	}
}

func (e *emitterFanout) OnDigestSent(events int, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.OnDigestSent(events, duration)
	}
	if e.handler != nil {
		e.handler.OnDigestSent(DigestSentEvent{Events: events, Duration: duration})
	}
}

func (e *emitterFanout) OnFlushError(err error, sent, discarded int) {
	if e.metrics != nil {
		e.metrics.OnFlushError(err, sent, discarded)
	}
	if e.handler != nil {
		e.handler.OnFlushError(FlushErrorEvent{Error: err, Sent: sent, Discarded: discarded})
	}
}

func (e *emitterFanout) OnEventDropped(reason string) {
	if e.metrics != nil {
		e.metrics.OnEventDropped(reason)
	}
	if e.handler != nil {
		e.handler.OnEventDropped(EventDroppedEvent{Reason: reason})
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
