// Package http exposes the event ingest API and delivers digests to
// HTTP webhooks.
package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/bft-labs/digestmail/internal/clef"
	"github.com/bft-labs/digestmail/internal/ports"
)

// MaxIngestBodySize is the largest request body accepted by the ingest endpoint.
const MaxIngestBodySize = 10 << 20

// IngestPath is the route that accepts newline-delimited CLEF events.
const IngestPath = "/api/events/raw"

// IngestHandler decodes CLEF request bodies and enqueues the events.
type IngestHandler struct {
	sink    ports.EventSink
	logger  ports.Logger
	maxBody int64
}

// NewIngestHandler creates an ingest handler.
func NewIngestHandler(sink ports.EventSink, logger ports.Logger) *IngestHandler {
	return &IngestHandler{
		sink:    sink,
		logger:  logger,
		maxBody: MaxIngestBodySize,
	}
}

// ServeHTTP decodes every line before enqueuing any, so a request with a
// bad line enqueues nothing.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	events, err := clef.DecodeAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "payload too large"})
			return
		}
		h.logger.Warn("rejected ingest request", ports.Err(err))
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	for _, evt := range events {
		h.sink.Enqueue(evt)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"accepted": len(events)})
}

// NewRouter mounts the ingest endpoint, a health check and, when
// metricsHandler is non-nil, the metrics endpoint.
func NewRouter(ingest http.Handler, metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post(IngestPath, ingest.ServeHTTP)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
