package parcelhub

// Conn is a live client connection as seen by the hub.
//
// Send and Close must never block: implementations enqueue onto an outbound
// queue and signal a writer. Send on a closed connection returns
// ErrConnectionClosed; a full queue returns ErrSendQueueFull.
// Close is idempotent.
type Conn interface {
	// ID returns the opaque connection identifier, unique for the process lifetime.
	ID() string

	// Fingerprint returns the client fingerprint (the browser user-agent string).
	// The empty fingerprint is a valid value.
	Fingerprint() string

	// Send enqueues an event for delivery.
	Send(event Event) error

	// Close asks the transport to flush queued events and terminate the connection.
	Close() error
}

// Event is a named payload delivered to connections.
// It marshals to the wire frame {"event": "<name>", "data": {...}}.
type Event struct {
	Name EventName `json:"event"`
	Data Payload   `json:"data"`
}

// NewEvent pairs a payload with its event name.
func NewEvent(name EventName, data Payload) Event {
	return Event{Name: name, Data: data}
}
