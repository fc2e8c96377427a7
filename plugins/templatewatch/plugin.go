// Package templatewatch reloads the digest body template when its file
// changes on disk.
package templatewatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/digestmail/pkg/digest"
)

// DefaultDebounceDelay coalesces the burst of events editors produce on save.
const DefaultDebounceDelay = 100 * time.Millisecond

// Config holds configuration options for the template watcher plugin.
type Config struct {
	// Path is the template file to watch. Empty disables the plugin.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// Plugin watches a template file and swaps the active template on change.
// A template that fails to compile is logged and the previous one stays
// active.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration

	logger   digest.Logger
	reloader digest.TemplateReloader
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	closed   bool
}

// New creates a new template watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "templatewatch"
}

// Initialize starts watching the template's directory. Watching the
// directory rather than the file survives editors that save by rename.
func (p *Plugin) Initialize(ctx context.Context, cfg digest.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.reloader = cfg.Templates
	p.closed = false
	p.mu.Unlock()

	if p.path == "" || p.reloader == nil {
		p.logger.Warn("template watcher disabled: no template file configured")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("template watcher initialized", digest.LogField{Key: "path", Value: p.path})

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("template watcher error", digest.LogField{Key: "error", Value: err.Error()})
		}
	}
}

func (p *Plugin) debounceReload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, p.reload)
}

func (p *Plugin) reload() {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Error("could not read body template",
			digest.LogField{Key: "path", Value: p.path},
			digest.LogField{Key: "error", Value: err.Error()})
		return
	}
	if err := p.reloader.ReloadTemplate(string(data)); err != nil {
		p.logger.Error("body template rejected, keeping previous",
			digest.LogField{Key: "path", Value: p.path},
			digest.LogField{Key: "error", Value: err.Error()})
	}
}

var _ digest.Plugin = (*Plugin)(nil)
