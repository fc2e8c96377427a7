package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bft-labs/digestmail/internal/app"
)

func TestMetrics_DigestEmitter(t *testing.T) {
	m := New(nil)

	m.OnDigestSent(50, 120*time.Millisecond)
	m.OnDigestSent(7, 30*time.Millisecond)
	m.OnFlushError(errors.New("refused"), 0, 13)
	m.OnEventDropped(app.DropReasonShutdown)
	m.OnEventDropped(app.DropReasonShutdown)
	m.ObserveReceived("http")

	if got := testutil.ToFloat64(m.DigestsSent); got != 2 {
		t.Errorf("digests_sent_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DigestEvents); got != 57 {
		t.Errorf("digest_events_total = %v, want 57", got)
	}
	if got := testutil.ToFloat64(m.FlushErrors); got != 1 {
		t.Errorf("flush_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EventsDiscarded); got != 13 {
		t.Errorf("events_discarded_total = %v, want 13", got)
	}
	if got := testutil.ToFloat64(m.EventsDropped.WithLabelValues(app.DropReasonShutdown)); got != 2 {
		t.Errorf("events_dropped_total{shutdown} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EventsReceived.WithLabelValues("http")); got != 1 {
		t.Errorf("events_received_total{http} = %v, want 1", got)
	}
}

func TestMetrics_StateGauge(t *testing.T) {
	m := New(nil)
	m.OnStateChange(app.StateStarting, app.StateRunning, "started")

	if got := testutil.ToFloat64(m.State); got != float64(app.StateRunning) {
		t.Errorf("state = %v, want %d", got, app.StateRunning)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.OnDigestSent(1, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"digestmail_digests_sent_total 1",
		"digestmail_digest_send_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("exposition missing %q", name)
		}
	}
}

func TestNew_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveReceived("file")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "digestmail_events_received_total" {
			found = true
		}
	}
	if !found {
		t.Error("collectors not registered on the supplied registry")
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Registering twice on the default registry would panic.
	a, b := New(nil), New(nil)
	a.OnDigestSent(1, 0)
	if got := testutil.ToFloat64(b.DigestsSent); got != 0 {
		t.Errorf("second instance saw %v digests", got)
	}
}
