package ports

import "github.com/bft-labs/digestmail/internal/domain"

// EventSink accepts events from an event source. Enqueue must not block
// on delivery.
type EventSink interface {
	Enqueue(evt domain.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(evt domain.Event)

// Enqueue calls f(evt).
func (f EventSinkFunc) Enqueue(evt domain.Event) { f(evt) }
