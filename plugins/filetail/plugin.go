// Package filetail reads CLEF events appended to files in a directory.
// Read offsets are persisted so a restart resumes after the last complete
// line instead of replaying the whole file.
package filetail

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/digestmail/internal/adapters/fs"
	"github.com/bft-labs/digestmail/internal/clef"
	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/ports"
	"github.com/bft-labs/digestmail/pkg/digest"
)

// Defaults applied by New.
const (
	DefaultPattern      = "*.clef"
	DefaultPollInterval = 2 * time.Second
)

// Config holds configuration options for the file tail plugin.
type Config struct {
	// Dir is the directory to watch.
	Dir string

	// Pattern selects files by base name, as in filepath.Match.
	// Default: "*.clef"
	Pattern string

	// StateDir holds offsets.json.
	// Default: Dir
	StateDir string

	// PollInterval rescans every file in case a notification was missed.
	// Default: 2 seconds
	PollInterval time.Duration
}

// Plugin tails matching files and enqueues each complete line as an event.
type Plugin struct {
	cfg Config

	mu     sync.Mutex
	repo   ports.StateRepository
	state  domain.TailState
	logger ports.Logger
	sink   ports.EventSink
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new file tail plugin.
func New(cfg Config) *Plugin {
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if cfg.StateDir == "" {
		cfg.StateDir = cfg.Dir
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Plugin{cfg: cfg}
}

// Name returns the plugin identifier. It labels events read from files.
func (p *Plugin) Name() string {
	return "file"
}

// Initialize loads saved offsets, starts watching Dir and reads whatever
// was appended while the service was down.
func (p *Plugin) Initialize(ctx context.Context, cfg digest.PluginConfig) error {
	if _, err := filepath.Match(p.cfg.Pattern, ""); err != nil {
		return err
	}
	dir, err := filepath.Abs(p.cfg.Dir)
	if err != nil {
		return err
	}
	p.cfg.Dir = dir

	repo := fs.NewStateFileRepository(p.cfg.StateDir)
	state, err := repo.Load(ctx)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(p.cfg.Dir); err != nil {
		watcher.Close()
		return err
	}

	p.mu.Lock()
	p.repo = repo
	p.state = state
	p.logger = cfg.Logger
	p.sink = cfg.Sink
	p.mu.Unlock()

	tailCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("file tail initialized",
		ports.String("dir", p.cfg.Dir),
		ports.String("pattern", p.cfg.Pattern),
		ports.Int("tracked_files", len(state.Offsets)))

	p.wg.Add(1)
	go p.tailLoop(tailCtx, watcher)

	return nil
}

// Shutdown stops tailing. Lines already read have been enqueued and their
// offsets saved.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) tailLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	p.scan(ctx)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !p.matches(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				p.readFile(ctx, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				p.forget(ctx, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("file tail watcher error", ports.Err(err))

		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

func (p *Plugin) matches(path string) bool {
	ok, _ := filepath.Match(p.cfg.Pattern, filepath.Base(path))
	return ok
}

func (p *Plugin) scan(ctx context.Context) {
	paths, err := filepath.Glob(filepath.Join(p.cfg.Dir, p.cfg.Pattern))
	if err != nil {
		p.logger.Error("file tail scan failed", ports.Err(err))
		return
	}
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		p.readFile(ctx, path)
	}
}

// readFile enqueues every complete line after the saved offset. A trailing
// line without a newline is left for the next read.
func (p *Plugin) readFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("could not open tailed file", ports.String("file", path), ports.Err(err))
		}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return
	}

	p.mu.Lock()
	start := p.state.Offset(path)
	p.mu.Unlock()

	if info.Size() < start {
		p.logger.Info("tailed file truncated, reading from start",
			ports.String("file", path),
			ports.Int64("saved_offset", start))
		start = 0
	}
	if info.Size() == start {
		return
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		p.logger.Warn("could not seek tailed file", ports.String("file", path), ports.Err(err))
		return
	}

	offset := start
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			// io.EOF with a partial line: wait for the rest.
			break
		}
		offset += int64(len(line))
		p.handleLine(path, line)
	}

	if offset == start {
		return
	}

	p.mu.Lock()
	p.state.SetOffset(path, offset)
	state := p.snapshotLocked()
	p.mu.Unlock()

	if err := p.repo.Save(ctx, state); err != nil {
		p.logger.Error("could not save tail offsets", ports.Err(err))
	}
}

func (p *Plugin) handleLine(path string, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	if len(line) > clef.MaxLineSize {
		p.logger.Warn("skipping oversized line", ports.String("file", path), ports.Int("bytes", len(line)))
		return
	}
	evt, err := clef.Decode(line)
	if err != nil {
		p.logger.Warn("skipping invalid line", ports.String("file", path), ports.Err(err))
		return
	}
	p.sink.Enqueue(evt)
}

func (p *Plugin) forget(ctx context.Context, path string) {
	p.mu.Lock()
	if _, ok := p.state.Offsets[path]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.state.Offsets, path)
	state := p.snapshotLocked()
	p.mu.Unlock()

	if err := p.repo.Save(ctx, state); err != nil {
		p.logger.Error("could not save tail offsets", ports.Err(err))
	}
}

func (p *Plugin) snapshotLocked() domain.TailState {
	offsets := make(map[string]int64, len(p.state.Offsets))
	for k, v := range p.state.Offsets {
		offsets[k] = v
	}
	return domain.TailState{Offsets: offsets, UpdatedAt: p.state.UpdatedAt}
}

// Offset returns the saved read position for path.
func (p *Plugin) Offset(path string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Offset(path)
}

var _ digest.Plugin = (*Plugin)(nil)
