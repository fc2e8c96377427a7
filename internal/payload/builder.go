// Package payload converts batches of events into the nested structure a
// digest template traverses.
//
// Every value in a payload is one of string, bool, int64, uint64, float64,
// nil, []any or map[string]any, regardless of what the event source put in
// an event's properties.
package payload

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bft-labs/digestmail/internal/domain"
)

// MaxSubjectLength is the maximum number of characters in a digest subject.
const MaxSubjectLength = 130

// Subject returns the configured subject, or the app title when the
// configured subject is blank, truncated to MaxSubjectLength characters.
func Subject(configured, appTitle string) string {
	s := configured
	if strings.TrimSpace(s) == "" {
		s = appTitle
	}
	return truncate(s, MaxSubjectLength)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Build returns the payload for one batch of events.
func Build(events []domain.Event, app domain.AppInfo, host domain.HostInfo, subject string) domain.Payload {
	items := make([]any, len(events))
	for i, e := range events {
		items[i] = Event(e)
	}

	var serverURI any
	if u := host.PrimaryURI(); u != "" {
		serverURI = u
	}

	return domain.Payload{
		domain.KeyEvents:    items,
		domain.KeyAppTitle:  app.Title,
		domain.KeySubject:   subject,
		domain.KeyInstance:  host.InstanceName,
		domain.KeyServerURI: serverURI,
	}
}

// Event returns the per-event sub-payload. Custom properties are available
// under $Properties and are also promoted to the top level of the returned
// map, overwriting reserved keys of the same name.
func Event(e domain.Event) map[string]any {
	props := convertMap(reflect.ValueOf(e.Properties))

	local := e.LocalTimestamp
	if local.IsZero() {
		local = e.Timestamp.Local()
	}

	var exception any
	if e.Exception != "" {
		exception = e.Exception
	}

	out := map[string]any{
		domain.KeyID:              e.ID,
		domain.KeyUtcTimestamp:    formatTime(e.Timestamp.UTC()),
		domain.KeyLocalTimestamp:  formatTime(local),
		domain.KeyLevel:           e.Level.String(),
		domain.KeyMessageTemplate: e.MessageTemplate,
		domain.KeyMessage:         e.RenderedMessage,
		domain.KeyException:       exception,
		domain.KeyProperties:      props,
		domain.KeyEventType:       FormatEventType(e.EventType),
	}

	for k, v := range props {
		out[k] = v
	}
	return out
}

// FormatEventType renders an event type as 0x followed by eight upper-case hex digits.
func FormatEventType(t uint32) string {
	return fmt.Sprintf("0x%08X", t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// number matches decoded JSON numbers from both encoding/json and go-json.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

// Convert maps an arbitrary property value onto the payload value set.
func Convert(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int64, uint64, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return formatTime(x)
	case time.Duration:
		return x.String()
	case number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return fmt.Sprint(x)
	case map[string]any:
		return convertMap(reflect.ValueOf(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Convert(item)
		}
		return out
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Convert(rv.Elem().Interface())
	case reflect.Map:
		return convertMap(rv)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Convert(rv.Index(i).Interface())
		}
		return out
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return fmt.Sprint(v)
}

// convertMap converts any map into map[string]any. Non-string keys are
// formatted with fmt.Sprint; a nil or invalid map yields an empty map.
func convertMap(rv reflect.Value) map[string]any {
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.IsNil() {
		return map[string]any{}
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		var key string
		if k.Kind() == reflect.String {
			key = k.String()
		} else {
			key = fmt.Sprint(k.Interface())
		}
		out[key] = Convert(iter.Value().Interface())
	}
	return out
}
