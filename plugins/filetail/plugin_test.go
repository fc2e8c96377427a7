package filetail

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/digestmail/internal/adapters/fs"
	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/pkg/digest"
	"github.com/bft-labs/digestmail/pkg/log"
)

type collectingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *collectingSink) Enqueue(evt domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *collectingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.RenderedMessage
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func line(msg string) string {
	return `{"@t":"2024-03-01T12:00:00Z","@m":"` + msg + `"}` + "\n"
}

func appendTo(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		t.Fatal(err)
	}
}

func start(t *testing.T, cfg Config, sink *collectingSink) *Plugin {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	p := New(cfg)
	err := p.Initialize(context.Background(), digest.PluginConfig{
		Logger: log.NewNoopLogger(),
		Sink:   sink,
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestPlugin_ReadsExistingAndAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.clef")
	appendTo(t, path, line("one")+line("two"))

	sink := &collectingSink{}
	start(t, Config{Dir: dir}, sink)
	waitFor(t, func() bool { return len(sink.Messages()) == 2 })

	appendTo(t, path, line("three"))
	waitFor(t, func() bool { return len(sink.Messages()) == 3 })

	got := sink.Messages()
	if got[0] != "one" || got[2] != "three" {
		t.Errorf("messages = %v", got)
	}
}

func TestPlugin_WaitsForCompleteLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.clef")
	full := line("partial")
	appendTo(t, path, full[:10])

	sink := &collectingSink{}
	p := start(t, Config{Dir: dir}, sink)
	time.Sleep(100 * time.Millisecond)
	if n := len(sink.Messages()); n != 0 {
		t.Fatalf("enqueued %d events from a partial line", n)
	}
	if off := p.Offset(path); off != 0 {
		t.Errorf("Offset() = %d before a complete line", off)
	}

	appendTo(t, path, full[10:])
	waitFor(t, func() bool { return len(sink.Messages()) == 1 })
	waitFor(t, func() bool { return p.Offset(path) == int64(len(full)) })
}

func TestPlugin_SkipsInvalidLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.clef")
	appendTo(t, path, line("before")+"not json\n\n"+line("after"))

	sink := &collectingSink{}
	start(t, Config{Dir: dir}, sink)
	waitFor(t, func() bool { return len(sink.Messages()) == 2 })

	if got := sink.Messages(); got[0] != "before" || got[1] != "after" {
		t.Errorf("messages = %v", got)
	}
}

func TestPlugin_ResumesFromSavedOffset(t *testing.T) {
	dir := t.TempDir()
	stateDir := t.TempDir()
	path := filepath.Join(dir, "app.clef")
	appendTo(t, path, line("old"))

	first := &collectingSink{}
	p := start(t, Config{Dir: dir, StateDir: stateDir}, first)
	waitFor(t, func() bool { return len(first.Messages()) == 1 })
	_ = p.Shutdown(context.Background())

	state, err := fs.NewStateFileRepository(stateDir).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state.Offset(path) != int64(len(line("old"))) {
		t.Fatalf("saved offset = %d", state.Offset(path))
	}

	appendTo(t, path, line("new"))

	second := &collectingSink{}
	start(t, Config{Dir: dir, StateDir: stateDir}, second)
	waitFor(t, func() bool { return len(second.Messages()) == 1 })
	time.Sleep(50 * time.Millisecond)

	if got := second.Messages(); len(got) != 1 || got[0] != "new" {
		t.Errorf("messages after restart = %v", got)
	}
}

func TestPlugin_TruncationRestartsFromBeginning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.clef")
	appendTo(t, path, line("first")+line("second"))

	sink := &collectingSink{}
	start(t, Config{Dir: dir}, sink)
	waitFor(t, func() bool { return len(sink.Messages()) == 2 })

	if err := os.WriteFile(path, []byte(line("x")), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(sink.Messages()) == 3 })

	if got := sink.Messages(); got[2] != "x" {
		t.Errorf("messages = %v", got)
	}
}

func TestPlugin_IgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	appendTo(t, filepath.Join(dir, "app.log"), line("ignored"))

	sink := &collectingSink{}
	start(t, Config{Dir: dir}, sink)
	time.Sleep(100 * time.Millisecond)

	if got := sink.Messages(); len(got) != 0 {
		t.Errorf("messages = %v", got)
	}
}

func TestPlugin_InitializeErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing dir", Config{Dir: filepath.Join(t.TempDir(), "absent")}},
		{"bad pattern", Config{Dir: t.TempDir(), Pattern: "["}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			err := p.Initialize(context.Background(), digest.PluginConfig{
				Logger: log.NewNoopLogger(),
				Sink:   &collectingSink{},
			})
			if err == nil {
				t.Error("Initialize() error = nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{Dir: "/logs"})
	if p.cfg.Pattern != DefaultPattern || p.cfg.StateDir != "/logs" || p.cfg.PollInterval != DefaultPollInterval {
		t.Errorf("cfg = %+v", p.cfg)
	}
	if p.Name() != "file" {
		t.Errorf("Name() = %q", p.Name())
	}
}
