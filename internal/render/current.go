package render

import (
	"sync/atomic"

	"github.com/bft-labs/digestmail/internal/domain"
)

// Current holds the active template. Digests rendered after Swap returns
// use the new template; a render already in progress finishes with the old one.
type Current struct {
	tpl atomic.Pointer[Template]
}

// NewCurrent creates a holder for t.
func NewCurrent(t *Template) *Current {
	c := &Current{}
	c.tpl.Store(t)
	return c
}

// Render executes the active template against payload.
func (c *Current) Render(payload domain.Payload) (string, error) {
	return c.tpl.Load().Render(payload)
}

// Swap replaces the active template.
func (c *Current) Swap(t *Template) {
	c.tpl.Store(t)
}
