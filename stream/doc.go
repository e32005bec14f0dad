// Package stream implements the firehose stream consumer: it turns a
// never-ending, chunked streaming connection into a sequence of discrete
// JSON messages while obeying a pull-based backpressure protocol.
//
// # Architecture
//
// The consumer is a single-goroutine actor processing a closed set of
// events — demand requests, connection status, headers, raw chunks,
// transport errors, end-of-stream — against exclusively-owned state.
// Three responsibilities live inside the one state machine:
//
//   - Transport gate: issues at most one outstanding pull against the
//     connection, and only when demand or a non-payload event allows it.
//   - Frame decoder: reassembles length-prefixed frames
//     (<decimal-length>CRLF<payload>) across arbitrary chunk boundaries.
//   - Demand ledger: counts outstanding subscriber demand, decremented
//     once per emitted message.
//
// # Backpressure
//
// A slow subscriber withholds demand, the ledger stays at zero, the
// gate stops pulling, the transport stops reading its socket, and TCP
// flow control eventually pressures the sender. Memory is bounded to
// one outstanding chunk plus one partial frame — and, since a single
// read can complete several coalesced frames, the handful of decoded
// messages awaiting demand — regardless of subscriber speed.
//
// # Usage
//
//	transport, _ := stream.NewHTTPTransport(stream.HTTPConfig{
//	    Method:    http.MethodPost,
//	    URL:       "https://stream.twitter.com/1.1/statuses/filter.json",
//	    Params:    url.Values{"track": {"golang"}},
//	    Requester: session,
//	})
//	consumer := stream.New(transport)
//	if err := consumer.Start(ctx); err != nil {
//	    return err
//	}
//	defer consumer.Stop(5 * time.Second)
//
//	consumer.Request(10)
//	for msg := range consumer.Messages() {
//	    handle(msg)
//	}
//	if err := consumer.Err(); !errors.Is(err, errors.ErrStreamEnded) {
//	    return err
//	}
//
// # Failure Model
//
// Every terminal condition — rejected connection, transport error,
// clean end, frame or payload decode failure, explicit stop — releases
// the connection exactly once before surfacing through Err. There is no
// reconnect policy at this layer; that belongs to the caller.
package stream
