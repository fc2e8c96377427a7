// Package httpingest serves the CLEF ingest API, a health check and,
// when metrics are enabled, the Prometheus endpoint.
package httpingest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	httpAdapter "github.com/bft-labs/digestmail/internal/adapters/http"
	"github.com/bft-labs/digestmail/internal/ports"
	"github.com/bft-labs/digestmail/pkg/digest"
)

// DefaultAddr is the listen address used when Config.Addr is empty.
const DefaultAddr = ":5341"

// Config holds configuration options for the ingest server.
type Config struct {
	// Addr is the TCP listen address.
	// Default: ":5341"
	Addr string

	// ReadHeaderTimeout bounds how long a client may take to send headers.
	// Default: 10 seconds
	ReadHeaderTimeout time.Duration
}

// Plugin runs the ingest HTTP server.
type Plugin struct {
	cfg Config

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
	logger   ports.Logger
}

// New creates a new ingest server plugin.
func New(cfg Config) *Plugin {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	return &Plugin{cfg: cfg}
}

// Name returns the plugin identifier. It labels events received over HTTP.
func (p *Plugin) Name() string {
	return "http"
}

// Initialize binds the listener, so a busy port fails Start, and serves in
// the background.
func (p *Plugin) Initialize(ctx context.Context, cfg digest.PluginConfig) error {
	ln, err := net.Listen("tcp", p.cfg.Addr)
	if err != nil {
		return err
	}

	ingest := httpAdapter.NewIngestHandler(cfg.Sink, cfg.Logger)
	srv := &http.Server{
		Handler:           httpAdapter.NewRouter(ingest, cfg.MetricsHandler),
		ReadHeaderTimeout: p.cfg.ReadHeaderTimeout,
	}
	done := make(chan struct{})

	p.mu.Lock()
	p.server = srv
	p.listener = ln
	p.done = done
	p.logger = cfg.Logger
	p.mu.Unlock()

	cfg.Logger.Info("ingest server listening", ports.String("addr", ln.Addr().String()))

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Logger.Error("ingest server stopped", ports.Err(err))
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones. Events
// they enqueue still reach the final flush.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv, done := p.server, p.done
	p.server = nil
	p.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	return err
}

// Addr returns the bound address, or "" before Initialize.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

var _ digest.Plugin = (*Plugin)(nil)
