package domain

// Message is one rendered digest email handed to the transport.
type Message struct {
	From     string
	To       []string
	Subject  string
	HTMLBody string
}

// Payload is the template-traversable structure built fresh for each batch.
// Values are restricted to string, bool, int64, uint64, float64, nil,
// []any and map[string]any so any template engine can walk them.
type Payload map[string]any

// Reserved payload keys.
const (
	KeyEvents    = "$Events"
	KeyAppTitle  = "$AppTitle"
	KeySubject   = "$Subject"
	KeyInstance  = "$Instance"
	KeyServerURI = "$ServerUri"

	KeyID              = "$Id"
	KeyUtcTimestamp    = "$UtcTimestamp"
	KeyLocalTimestamp  = "$LocalTimestamp"
	KeyLevel           = "$Level"
	KeyMessageTemplate = "$MessageTemplate"
	KeyMessage         = "$Message"
	KeyException       = "$Exception"
	KeyProperties      = "$Properties"
	KeyEventType       = "$EventType"
)
