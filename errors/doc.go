// Package errors provides standardized error handling patterns for twittex.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing). On top of the classification it
// defines the terminal error taxonomy of the stream consumer: every way a
// stream can die maps to exactly one sentinel so callers can distinguish a
// rejected connection from a clean end-of-stream from a protocol
// desynchronization with plain errors.Is checks.
//
// # Stream Terminal Errors
//
//   - ErrConnectionRejected: non-2xx status on the initial response
//   - ErrTransport: error surfaced by the underlying connection
//   - ErrStreamEnded: the far end closed the connection cleanly
//   - ErrFrameDecode: the framing protocol desynchronized
//   - ErrPayloadDecode: a complete frame did not parse as JSON
//   - ErrStreamStopped: the consumer was stopped explicitly
//
// All of these are terminal: the consumer has already released its
// connection by the time one surfaces. IsTerminal reports membership.
//
// # Quick Start
//
// Wrap errors with context for debugging:
//
//	if err := session.Sign(req); err != nil {
//	    return errors.Wrap(err, "Client", "Search", "sign request")
//	}
//
// Check classification for retry logic:
//
//	if err := operation(); err != nil && errors.IsTransient(err) {
//	    // retry with pkg/retry
//	}
package errors
