package domain

import "time"

// Event is one occurrence delivered by the event source.
// Events are treated as immutable once they have been enqueued.
type Event struct {
	// ID uniquely identifies the event
	ID string

	// Timestamp is the occurrence time in UTC
	Timestamp time.Time

	// LocalTimestamp is the occurrence time in the producer's local zone
	LocalTimestamp time.Time

	// Level is the event severity
	Level Level

	// MessageTemplate is the unrendered message template
	MessageTemplate string

	// RenderedMessage is the message with properties substituted
	RenderedMessage string

	// Exception is the optional error or stack trace text
	Exception string

	// Properties holds named values attached to the event. May be nil.
	Properties map[string]any

	// EventType is an opaque numeric classification tag
	EventType uint32
}

// AppInfo describes the application that owns the digest.
type AppInfo struct {
	// Title is the display name, used as the subject when none is configured
	Title string
}

// HostInfo describes the instance hosting the digest scheduler.
type HostInfo struct {
	// InstanceName identifies the hosting instance
	InstanceName string

	// ListenURIs are the externally reachable addresses, primary first
	ListenURIs []string
}

// PrimaryURI returns the first listen URI, or "" when none are known.
func (h HostInfo) PrimaryURI() string {
	if len(h.ListenURIs) == 0 {
		return ""
	}
	return h.ListenURIs[0]
}
