package render

import (
	"strings"
	"testing"
	"time"

	"github.com/aymerick/raymond"
	"github.com/google/uuid"

	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/payload"
)

func someEvent(extra map[string]any) domain.Event {
	props := map[string]any{"Who": "world", "Number": 42}
	for k, v := range extra {
		props[k] = v
	}
	ts := time.Now().UTC()
	return domain.Event{
		ID:              "event-" + uuid.NewString(),
		Timestamp:       ts,
		LocalTimestamp:  ts,
		Level:           domain.LevelFatal,
		MessageTemplate: "Hello, {Who}",
		RenderedMessage: "Hello, world",
		Properties:      props,
		EventType:       5417,
	}
}

func someHost() domain.HostInfo {
	return domain.HostInfo{InstanceName: uuid.NewString(), ListenURIs: []string{"https://" + uuid.NewString()}}
}

func someApp() domain.AppInfo {
	return domain.AppInfo{Title: uuid.NewString()}
}

func format(t *testing.T, source string, events ...domain.Event) string {
	t.Helper()
	tpl, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	out, err := tpl.Render(payload.Build(events, someApp(), someHost(), uuid.NewString()))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out
}

func TestBuiltInPropertiesAreRenderedInTemplates(t *testing.T) {
	data := someEvent(nil)
	got := format(t, "{{$Events.[0].$Level}}", data)
	if got != data.Level.String() {
		t.Errorf("got %q, want %q", got, data.Level.String())
	}
}

func TestPayloadPropertiesAreRenderedInTemplates(t *testing.T) {
	data := someEvent(map[string]any{"What": 10})
	got := format(t, "See {{$Events.[0].What}}", data)
	if got != "See 10" {
		t.Errorf("got %q, want %q", got, "See 10")
	}
}

func TestPayloadPropertiesAreReachableThroughPropertiesMap(t *testing.T) {
	data := someEvent(map[string]any{"What": 10})
	got := format(t, "{{#each $Events}}{{$Properties.What}}/{{What}}{{/each}}", data)
	if got != "10/10" {
		t.Errorf("got %q, want %q", got, "10/10")
	}
}

func TestNoPropertiesAreRequiredOnASourceEvent(t *testing.T) {
	data := someEvent(nil)
	data.Properties = nil
	got := format(t, "No properties", data)
	if got != "No properties" {
		t.Errorf("got %q", got)
	}
}

func TestNilAndEmptyPropertiesRenderIdentically(t *testing.T) {
	const source = "{{#each $Events}}[{{#each $Properties}}{{@key}}{{/each}}]{{$Message}}{{/each}}"

	withNil := someEvent(nil)
	withNil.Properties = nil
	withEmpty := withNil
	withEmpty.Properties = map[string]any{}

	tpl, err := Compile(source)
	if err != nil {
		t.Fatal(err)
	}
	app, host := someApp(), someHost()
	a, err := tpl.Render(payload.Build([]domain.Event{withNil}, app, host, "s"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := tpl.Render(payload.Build([]domain.Event{withEmpty}, app, host, "s"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("nil properties rendered %q, empty rendered %q", a, b)
	}
}

func TestTopLevelFieldsAreRendered(t *testing.T) {
	tpl, err := Compile("{{$AppTitle}}|{{$Subject}}|{{$Instance}}|{{$ServerUri}}")
	if err != nil {
		t.Fatal(err)
	}
	host := domain.HostInfo{InstanceName: "seq-01", ListenURIs: []string{"https://seq.example.com"}}
	got, err := tpl.Render(payload.Build(nil, domain.AppInfo{Title: "Digest"}, host, "Errors"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "Digest|Errors|seq-01|https://seq.example.com" {
		t.Errorf("got %q", got)
	}
}

func TestPrettyHelper(t *testing.T) {
	data := someEvent(map[string]any{
		"Nested": map[string]any{"b": 2, "a": []any{1, "x"}},
		"Empty":  nil,
	})
	got := format(t, "{{pretty $Events.[0].Nested}}|{{pretty $Events.[0].Empty}}|{{pretty $Events.[0].Who}}", data)
	want := raymond.Escape(`{"a":[1,"x"],"b":2}`) + "|null|world"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPretty(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"text", "text"},
		{int64(5), "5"},
		{true, "true"},
		{[]any{int64(1), "two"}, `[1,"two"]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		if got := Pretty(tt.in); got != tt.want {
			t.Errorf("Pretty(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	if _, err := Compile("{{pretty 1}}"); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
}

func TestCompile_DefaultTemplate(t *testing.T) {
	ev := someEvent(nil)
	ev.Exception = "System.InvalidOperationException: <boom>"
	out := format(t, "", ev)

	for _, want := range []string{"Hello, world", "Fatal", "0x00001529", "Who", "world", "&lt;boom&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("default template output missing %q", want)
		}
	}
	if !strings.HasPrefix(DefaultBodyTemplate(), "<!DOCTYPE html>") {
		t.Error("default template not embedded")
	}
}

func TestCompile_InvalidTemplate(t *testing.T) {
	if _, err := Compile("{{#each $Events}}unterminated"); err == nil {
		t.Fatal("expected error for unterminated block")
	}
}
