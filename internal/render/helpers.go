package render

import (
	"fmt"

	"github.com/aymerick/raymond"
	json "github.com/goccy/go-json"
)

// prettyHelper writes maps and sequences as JSON and everything else as
// plain text. Output is HTML-escaped since digests are HTML documents.
func prettyHelper(value any) raymond.SafeString {
	return raymond.SafeString(raymond.Escape(Pretty(value)))
}

// Pretty formats a payload value the way the pretty helper does, without escaping.
func Pretty(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
