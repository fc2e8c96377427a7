package clef

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/bft-labs/digestmail/internal/domain"
)

func TestDecode_ReservedFields(t *testing.T) {
	line := `{"@t":"2024-03-01T12:30:00.5+02:00","@mt":"Disk {Drive} at {Pct}%","@l":"Warning","@x":"boom\n  at main","@i":"0x1529","Drive":"C:","Pct":93}`

	evt, err := Decode([]byte(line))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	wantUTC := time.Date(2024, 3, 1, 10, 30, 0, 500_000_000, time.UTC)
	if !evt.Timestamp.Equal(wantUTC) || evt.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v", evt.Timestamp, wantUTC)
	}
	if _, offset := evt.LocalTimestamp.Zone(); offset != 2*3600 {
		t.Errorf("LocalTimestamp offset = %d, want 7200", offset)
	}
	if evt.Level != domain.LevelWarning {
		t.Errorf("Level = %v, want Warning", evt.Level)
	}
	if evt.Exception != "boom\n  at main" {
		t.Errorf("Exception = %q", evt.Exception)
	}
	if evt.EventType != 0x1529 {
		t.Errorf("EventType = %#x, want 0x1529", evt.EventType)
	}
	if evt.RenderedMessage != `Disk "C:" at 93%` {
		t.Errorf("RenderedMessage = %q", evt.RenderedMessage)
	}
	if evt.ID == "" {
		t.Error("ID not assigned")
	}
	if got := evt.Properties["Pct"]; got != json.Number("93") {
		t.Errorf("Properties[Pct] = %#v, want json.Number(93)", got)
	}
	if len(evt.Properties) != 2 {
		t.Errorf("Properties = %v, want 2 entries", evt.Properties)
	}
}

func TestDecode_Defaults(t *testing.T) {
	evt, err := Decode([]byte(`{"@t":"2024-03-01T12:00:00Z","@m":"Ready {now}"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if evt.Level != domain.LevelInformation {
		t.Errorf("Level = %v, want Information", evt.Level)
	}
	if evt.Properties != nil {
		t.Errorf("Properties = %v, want nil", evt.Properties)
	}
	if evt.RenderedMessage != "Ready {now}" {
		t.Errorf("RenderedMessage = %q", evt.RenderedMessage)
	}
	if evt.MessageTemplate != "Ready {{now}}" {
		t.Errorf("MessageTemplate = %q", evt.MessageTemplate)
	}
}

func TestDecode_EscapedAndIgnoredFields(t *testing.T) {
	evt, err := Decode([]byte(`{"@t":"2024-03-01T12:00:00Z","@mt":"x","@@t":"user value","@r":["a"],"@sp":"span"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := evt.Properties["@t"]; got != "user value" {
		t.Errorf("Properties[@t] = %v", got)
	}
	if len(evt.Properties) != 1 {
		t.Errorf("Properties = %v, want only @t", evt.Properties)
	}
}

func TestDecode_EventType(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want uint32
	}{
		{"numeric", `,"@i":5417`, 5417},
		{"hex string", `,"@i":"0000ABCD"`, 0xABCD},
		{"prefixed hex", `,"@i":"0xff"`, 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode([]byte(`{"@t":"2024-03-01T12:00:00Z","@mt":"x"` + tt.id + `}`))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if evt.EventType != tt.want {
				t.Errorf("EventType = %#x, want %#x", evt.EventType, tt.want)
			}
		})
	}
}

func TestDecode_EventTypeFromTemplateIsStable(t *testing.T) {
	a, _ := Decode([]byte(`{"@t":"2024-03-01T12:00:00Z","@mt":"User {Id} logged in","Id":1}`))
	b, _ := Decode([]byte(`{"@t":"2024-03-02T12:00:00Z","@mt":"User {Id} logged in","Id":2}`))
	c, _ := Decode([]byte(`{"@t":"2024-03-02T12:00:00Z","@mt":"User {Id} logged out","Id":2}`))

	if a.EventType != b.EventType {
		t.Errorf("same template produced %#x and %#x", a.EventType, b.EventType)
	}
	if a.EventType == c.EventType {
		t.Error("different templates produced the same event type")
	}
	if a.ID == b.ID {
		t.Error("events share an ID")
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `hello`},
		{"array", `[1,2]`},
		{"null", `null`},
		{"missing timestamp", `{"@mt":"x"}`},
		{"bad timestamp", `{"@t":"yesterday"}`},
		{"numeric timestamp", `{"@t":12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			if !errors.Is(err, domain.ErrInvalidEvent) {
				t.Errorf("Decode() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestDecodeAll(t *testing.T) {
	input := strings.Join([]string{
		`{"@t":"2024-03-01T12:00:00Z","@mt":"one"}`,
		``,
		`  {"@t":"2024-03-01T12:00:01Z","@mt":"two","@l":"err"}  `,
	}, "\n")

	events, err := DecodeAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].RenderedMessage != "two" || events[1].Level != domain.LevelError {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestDecodeAll_ReportsLine(t *testing.T) {
	input := "{\"@t\":\"2024-03-01T12:00:00Z\"}\n\n{broken\n"

	events, err := DecodeAll(strings.NewReader(input))
	if events != nil {
		t.Errorf("events = %v, want nil on error", events)
	}

	var lineErr *LineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("error = %v, want *LineError", err)
	}
	if lineErr.Line != 3 {
		t.Errorf("Line = %d, want 3", lineErr.Line)
	}
	if !errors.Is(err, domain.ErrInvalidEvent) {
		t.Error("LineError does not unwrap to ErrInvalidEvent")
	}
}

func TestRenderTemplate(t *testing.T) {
	props := map[string]any{
		"Name":  "alice",
		"Count": json.Number("3"),
		"Ok":    true,
		"Tags":  []any{"a", "b"},
		"Nil":   nil,
	}

	tests := []struct {
		template string
		want     string
	}{
		{"Hello {Name}", `Hello "alice"`},
		{"Hello {Name:l}", "Hello alice"},
		{"{Count} items, ok={Ok}", "3 items, ok=true"},
		{"{@Tags} {$Name}", `["a","b"] "alice"`},
		{"{Count,5:000}", "3"},
		{"{Missing} stays", "{Missing} stays"},
		{"{{literal}} {Nil}", "{literal} null"},
		{"unterminated {Name", "unterminated {Name"},
		{"{}", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			if got := RenderTemplate(tt.template, props); got != tt.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestEscapeTemplate_RoundTrips(t *testing.T) {
	s := "map {a} to }b{"
	if got := RenderTemplate(EscapeTemplate(s), nil); got != s {
		t.Errorf("RenderTemplate(EscapeTemplate(%q)) = %q", s, got)
	}
}
