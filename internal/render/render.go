// Package render compiles digest body templates and renders payloads with them.
//
// Templates use Handlebars syntax. Payload keys carry a leading $, so the
// level of the first event in a batch is written {{$Events.[0].$Level}} and
// a custom property is reachable both as {{$Properties.Name}} and {{Name}}
// inside an {{#each $Events}} block.
//
// The pretty helper is registered process-wide by Init. Raymond keeps its
// helpers in a global table and panics on duplicate registration, so Init is
// guarded and may be called any number of times.
package render

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/aymerick/raymond"

	"github.com/bft-labs/digestmail/internal/domain"
)

//go:embed default_body.html
var defaultBodyTemplate string

// DefaultBodyTemplate returns the built-in digest body template.
func DefaultBodyTemplate() string {
	return defaultBodyTemplate
}

var initOnce sync.Once

// Init registers the process-wide template helpers. It is idempotent.
func Init() {
	initOnce.Do(func() {
		raymond.RegisterHelper("pretty", prettyHelper)
	})
}

// Template is a compiled digest body template.
// It is safe for concurrent use.
type Template struct {
	tpl *raymond.Template
}

// Compile parses source, or the default template when source is empty.
func Compile(source string) (*Template, error) {
	Init()

	if source == "" {
		source = defaultBodyTemplate
	}
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return &Template{tpl: tpl}, nil
}

// Render executes the template against payload.
func (t *Template) Render(payload domain.Payload) (string, error) {
	out, err := t.tpl.Exec(map[string]any(payload))
	if err != nil {
		return "", fmt.Errorf("render body template: %w", err)
	}
	return out, nil
}
