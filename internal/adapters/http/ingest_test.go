package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/pkg/log"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Enqueue(evt domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestRouter(sink *recordingSink) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})
	return NewRouter(NewIngestHandler(sink, log.NewNoopLogger()), metrics)
}

func TestIngest_Accepted(t *testing.T) {
	sink := &recordingSink{}
	srv := httptest.NewServer(newTestRouter(sink))
	defer srv.Close()

	body := `{"@t":"2024-03-01T12:00:00Z","@mt":"one","@l":"Error"}
{"@t":"2024-03-01T12:00:01Z","@mt":"two"}
`
	resp, err := http.Post(srv.URL+IngestPath, "application/vnd.serilog.clef", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var got struct {
		Accepted int `json:"accepted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Accepted != 2 || sink.Len() != 2 {
		t.Errorf("accepted = %d, enqueued = %d, want 2", got.Accepted, sink.Len())
	}
	if sink.events[0].Level != domain.LevelError {
		t.Errorf("first event level = %v", sink.events[0].Level)
	}
}

func TestIngest_BadLineEnqueuesNothing(t *testing.T) {
	sink := &recordingSink{}
	srv := httptest.NewServer(newTestRouter(sink))
	defer srv.Close()

	body := "{\"@t\":\"2024-03-01T12:00:00Z\"}\nnot json\n"
	resp, err := http.Post(srv.URL+IngestPath, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var got map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if !strings.Contains(got["error"], "line 2") {
		t.Errorf("error = %q, want line number", got["error"])
	}
	if sink.Len() != 0 {
		t.Errorf("enqueued %d events from a rejected request", sink.Len())
	}
}

func TestIngest_TooLarge(t *testing.T) {
	sink := &recordingSink{}
	h := NewIngestHandler(sink, log.NewNoopLogger())
	h.maxBody = 64

	req := httptest.NewRequest(http.MethodPost, IngestPath, strings.NewReader(strings.Repeat(`{"@t":"2024-03-01T12:00:00Z"}`+"\n", 10)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if sink.Len() != 0 {
		t.Errorf("enqueued %d events", sink.Len())
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router := newTestRouter(&recordingSink{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, IngestPath, http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRouter_NoMetricsHandler(t *testing.T) {
	router := NewRouter(NewIngestHandler(&recordingSink{}, log.NewNoopLogger()), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
