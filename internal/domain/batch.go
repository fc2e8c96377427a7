package domain

// DefaultBatchSizeLimit is the number of events per digest when no limit is configured.
const DefaultBatchSizeLimit = 50

// Batch is a size-bounded, ordered slice of drained events rendered as one digest.
type Batch struct {
	// Events are in arrival order
	Events []Event
}

// Size returns the number of events in the batch.
func (b Batch) Size() int {
	return len(b.Events)
}

// Empty returns true if the batch has no events.
func (b Batch) Empty() bool {
	return len(b.Events) == 0
}

// Chunk splits events into consecutive batches of at most limit events,
// preserving order. A limit <= 0 selects DefaultBatchSizeLimit.
// The batches share the backing array of events.
func Chunk(events []Event, limit int) []Batch {
	if limit <= 0 {
		limit = DefaultBatchSizeLimit
	}
	if len(events) == 0 {
		return nil
	}

	batches := make([]Batch, 0, (len(events)+limit-1)/limit)
	for start := 0; start < len(events); start += limit {
		end := start + limit
		if end > len(events) {
			end = len(events)
		}
		batches = append(batches, Batch{Events: events[start:end:end]})
	}
	return batches
}
