package clef

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// RenderTemplate substitutes {Name} holes in a message template with
// property values. Strings are quoted unless the hole carries the :l
// format. Holes naming missing properties are kept verbatim, and {{ and }}
// produce literal braces.
func RenderTemplate(template string, props map[string]any) string {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				b.WriteString(template[i:])
				return b.String()
			}
			hole := template[i : i+end+1]
			b.WriteString(renderHole(hole, props))
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// EscapeTemplate turns literal text into a template that renders to itself.
func EscapeTemplate(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

func renderHole(hole string, props map[string]any) string {
	body := hole[1 : len(hole)-1]
	name, format := body, ""
	if i := strings.IndexAny(body, ",:"); i >= 0 {
		name = body[:i]
		if j := strings.IndexByte(body, ':'); j >= 0 {
			format = body[j+1:]
		}
	}
	name = strings.TrimLeft(name, "@$")
	if name == "" {
		return hole
	}

	v, ok := props[name]
	if !ok {
		return hole
	}
	return formatValue(v, format == "l")
}

func formatValue(v any, literal bool) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		if literal {
			return x
		}
		return `"` + x + `"`
	case json.Number:
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
