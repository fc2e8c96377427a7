// Package clef decodes events in Compact Log Event Format: one JSON object
// per line, with reserved fields prefixed by '@'.
package clef

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bft-labs/digestmail/internal/domain"
)

// Reserved field names.
const (
	FieldTimestamp       = "@t"
	FieldMessageTemplate = "@mt"
	FieldMessage         = "@m"
	FieldLevel           = "@l"
	FieldException       = "@x"
	FieldEventID         = "@i"
	FieldRenderings      = "@r"
)

// MaxLineSize is the longest line DecodeAll accepts.
const MaxLineSize = 1 << 20

// LineError reports a line that could not be decoded.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Decode parses a single CLEF line.
func Decode(line []byte) (domain.Event, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	if raw == nil {
		return domain.Event{}, fmt.Errorf("%w: not an object", domain.ErrInvalidEvent)
	}

	ts, ok := raw[FieldTimestamp].(string)
	if !ok {
		return domain.Event{}, fmt.Errorf("%w: missing %s", domain.ErrInvalidEvent, FieldTimestamp)
	}
	local, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, FieldTimestamp, err)
	}

	evt := domain.Event{
		ID:              uuid.NewString(),
		Timestamp:       local.UTC(),
		LocalTimestamp:  local,
		Level:           domain.LevelInformation,
		MessageTemplate: stringField(raw, FieldMessageTemplate),
		RenderedMessage: stringField(raw, FieldMessage),
		Exception:       stringField(raw, FieldException),
	}

	if l := stringField(raw, FieldLevel); l != "" {
		if level, ok := domain.ParseLevel(l); ok {
			evt.Level = level
		}
	}

	props := make(map[string]any)
	for k, v := range raw {
		switch {
		case strings.HasPrefix(k, "@@"):
			props[k[1:]] = v
		case strings.HasPrefix(k, "@"):
		default:
			props[k] = v
		}
	}
	if len(props) > 0 {
		evt.Properties = props
	}

	if evt.MessageTemplate == "" && evt.RenderedMessage != "" {
		evt.MessageTemplate = EscapeTemplate(evt.RenderedMessage)
	}
	if evt.RenderedMessage == "" && evt.MessageTemplate != "" {
		evt.RenderedMessage = RenderTemplate(evt.MessageTemplate, props)
	}

	evt.EventType = eventType(raw[FieldEventID], evt.MessageTemplate)
	return evt, nil
}

// eventType reads @i as a number or hex string, falling back to a hash of
// the message template.
func eventType(v any, template string) uint32 {
	switch id := v.(type) {
	case json.Number:
		if n, err := strconv.ParseUint(id.String(), 10, 32); err == nil {
			return uint32(n)
		}
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X")
		if n, err := strconv.ParseUint(s, 16, 32); err == nil {
			return uint32(n)
		}
		return uint32(xxhash.Sum64String(id))
	}
	return uint32(xxhash.Sum64String(template))
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// DecodeAll parses newline-delimited CLEF from r. Blank lines are skipped.
// Either every event is returned or none, with a *LineError for the first
// bad line.
func DecodeAll(r io.Reader) ([]domain.Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	var events []domain.Event
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		evt, err := Decode(b)
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		events = append(events, evt)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &LineError{Line: line + 1, Err: fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)}
		}
		return nil, err
	}
	return events, nil
}
