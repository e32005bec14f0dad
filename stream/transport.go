package stream

import (
	"context"
	"net/http"
)

// EventKind discriminates transport events.
type EventKind int

// Transport event kinds, in the order a healthy stream produces them.
const (
	// EventStatus carries the HTTP status of the initial response.
	EventStatus EventKind = iota
	// EventHeaders carries the response headers.
	EventHeaders
	// EventChunk carries one unit of raw payload bytes. Chunk boundaries
	// are unrelated to frame boundaries.
	EventChunk
	// EventError reports a transport-level failure. Terminal.
	EventError
	// EventEnd reports that the far end closed the stream cleanly. Terminal.
	EventEnd
)

// String returns the string representation of EventKind
func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventHeaders:
		return "headers"
	case EventChunk:
		return "chunk"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one transport stimulus delivered to the consumer.
type Event struct {
	Kind   EventKind
	Status int         // EventStatus only
	Header http.Header // EventHeaders only
	Data   []byte      // EventChunk only
	Err    error       // EventError only
}

// Transport establishes streaming connections.
//
// A Transport implementation owns all blocking I/O. The consumer never
// blocks on the connection; it tells the connection when to deliver the
// next unit of data via Pull.
type Transport interface {
	// Open issues the streaming request and returns a live connection.
	// The connection delivers its initial status event unsolicited;
	// every subsequent non-terminal event is delivered only after a
	// Pull. Terminal events (error, end) may be delivered at any time.
	Open(ctx context.Context) (Conn, error)
}

// Conn is an active streaming connection.
type Conn interface {
	// Pull instructs the connection to deliver exactly one more event
	// and nothing further until pulled again. Pull never blocks. The
	// caller guarantees at most one outstanding pull.
	Pull()

	// Events returns the channel on which transport events arrive.
	// The channel is closed after a terminal event.
	Events() <-chan Event

	// Close tears down the connection. Safe to call more than once.
	Close() error
}
