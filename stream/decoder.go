package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/almightycouch/twittex/errors"
)

// Message is one decoded JSON document emitted from the stream: an
// arbitrary tree of scalars, sequences, and string-keyed mappings. No
// structure beyond syntactic decoding is imposed.
type Message any

var crlf = []byte("\r\n")

// decoder reassembles length-prefixed frames from an arbitrary sequence
// of raw byte chunks. Each frame on the wire is encoded as
//
//	<decimal-length><CRLF><payload bytes>
//
// where the decimal length is the exact byte count of the payload. An
// empty length field is a keep-alive producing no message.
//
// Chunk boundaries carry no meaning: a single chunk may hold a fraction
// of a frame or several whole frames back to back, so feeding consumes
// the chunk frame by frame and carries any leftover bytes into the next
// length line.
//
// The decoder is owned by the consumer actor and never accessed
// concurrently.
type decoder struct {
	// lengthLine accumulates the bytes of a length line whose CRLF has
	// not arrived yet. Nothing in the transport guarantees the length
	// line arrives in one chunk, so it is buffered rather than assumed
	// whole.
	lengthLine []byte

	// partial holds the bytes of the in-progress frame.
	partial []byte

	// remaining is the number of additional payload bytes required to
	// complete the current frame. Zero means no frame is in progress.
	remaining int
}

// result reports the outcome of feeding one chunk.
type result struct {
	// msgs holds the decoded messages of every frame the chunk
	// completed, in wire order.
	msgs []Message
	// keepAlives counts the zero-length frames the chunk completed.
	keepAlives int
}

// feed processes one raw chunk, completing as many frames as the chunk
// covers. The only unrecoverable framing condition is a length line
// that does not parse; everything else is reassembly bookkeeping.
func (d *decoder) feed(chunk []byte) (result, error) {
	var res result
	data := chunk
	for len(data) > 0 {
		var err error
		if d.remaining > 0 {
			data, err = d.continueFrame(data, &res)
		} else {
			data, err = d.startFrame(data, &res)
		}
		if err != nil {
			return result{}, err
		}
	}
	return res, nil
}

// startFrame consumes the length line at the head of chunk and returns
// the unconsumed tail. A missing CRLF means the line is split across
// chunks: it is buffered and the chunk is exhausted.
func (d *decoder) startFrame(chunk []byte, res *result) ([]byte, error) {
	buf := chunk
	if len(d.lengthLine) > 0 {
		buf = append(d.lengthLine, chunk...)
		d.lengthLine = nil
	}

	idx := bytes.Index(buf, crlf)
	if idx < 0 {
		d.lengthLine = append([]byte(nil), buf...)
		return nil, nil
	}

	line := bytes.TrimSpace(buf[:idx])
	rest := buf[idx+len(crlf):]

	if len(line) == 0 {
		// Keep-alive. The empty length field defaults to zero.
		res.keepAlives++
		return rest, nil
	}

	n, err := strconv.Atoi(string(line))
	if err != nil || n < 0 {
		return nil, errors.WrapFatal(
			fmt.Errorf("bad length field %q: %w", line, errors.ErrFrameDecode),
			"decoder", "startFrame", "parse length")
	}
	if n == 0 {
		res.keepAlives++
		return rest, nil
	}

	d.remaining = n
	return rest, nil
}

// continueFrame consumes up to remaining bytes of the in-progress frame
// and returns the unconsumed tail, which belongs to the next frame.
func (d *decoder) continueFrame(chunk []byte, res *result) ([]byte, error) {
	take := d.remaining
	if take > len(chunk) {
		take = len(chunk)
	}

	d.partial = append(d.partial, chunk[:take]...)
	d.remaining -= take
	if d.remaining > 0 {
		return nil, nil
	}

	msg, err := d.complete()
	if err != nil {
		return nil, err
	}
	res.msgs = append(res.msgs, msg)
	return chunk[take:], nil
}

// complete parses the accumulated frame as one JSON document and resets
// the decoder for the next frame.
func (d *decoder) complete() (Message, error) {
	payload := d.partial
	d.partial = nil
	d.remaining = 0

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		// The assembled byte count was trusted, so a malformed payload
		// means the framing has desynchronized. Terminal.
		return nil, errors.WrapFatal(
			fmt.Errorf("%v: %w", err, errors.ErrPayloadDecode),
			"decoder", "complete", "decode payload")
	}
	return msg, nil
}

// inProgress reports whether a frame is mid-assembly.
func (d *decoder) inProgress() bool {
	return d.remaining > 0 || len(d.lengthLine) > 0
}
