package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almightycouch/twittex/errors"
)

// feedAll feeds chunks in order and collects everything that comes out.
func feedAll(t *testing.T, d *decoder, chunks [][]byte) ([]Message, int, error) {
	t.Helper()
	var msgs []Message
	keepAlives := 0
	for _, chunk := range chunks {
		res, err := d.feed(chunk)
		if err != nil {
			return msgs, keepAlives, err
		}
		msgs = append(msgs, res.msgs...)
		keepAlives += res.keepAlives
	}
	return msgs, keepAlives, nil
}

// splits returns frame split at position i.
func splitAt(frame []byte, i int) [][]byte {
	return [][]byte{frame[:i], frame[i:]}
}

func TestDecoder_SingleChunk(t *testing.T) {
	d := &decoder{}
	res, err := d.feed([]byte("10\r\n{\"id\":1}\n\n"))
	require.NoError(t, err)
	require.Len(t, res.msgs, 1)
	assert.Equal(t, map[string]any{"id": float64(1)}, res.msgs[0])
	assert.False(t, d.inProgress())
}

func TestDecoder_ConcreteTwoChunkScenario(t *testing.T) {
	// Length field 10, payload {"id":1}\n\n delivered as two chunks.
	d := &decoder{}
	msgs, _, err := feedAll(t, d, [][]byte{
		[]byte("10\r\n{\"id\""),
		[]byte(":1}\n\n"),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"id": float64(1)}, msgs[0])
}

func TestDecoder_ChunkBoundaryInvariance(t *testing.T) {
	frame := []byte("10\r\n{\"id\":1}\n\n")
	want := map[string]any{"id": float64(1)}

	// Every possible single split point, including inside the length
	// line and inside the CRLF.
	for i := 1; i < len(frame); i++ {
		t.Run(fmt.Sprintf("split_at_%d", i), func(t *testing.T) {
			d := &decoder{}
			msgs, _, err := feedAll(t, d, splitAt(frame, i))
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Equal(t, want, msgs[0])
		})
	}

	t.Run("one_byte_chunks", func(t *testing.T) {
		d := &decoder{}
		var chunks [][]byte
		for i := range frame {
			chunks = append(chunks, frame[i:i+1])
		}
		msgs, _, err := feedAll(t, d, chunks)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, want, msgs[0])
	})
}

func TestDecoder_SequentialFrames(t *testing.T) {
	d := &decoder{}
	msgs, _, err := feedAll(t, d, [][]byte{
		[]byte("10\r\n{\"id\":1}\n\n"),
		[]byte("10\r\n{\"id\":2}\n\n"),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"id": float64(1)}, msgs[0])
	assert.Equal(t, map[string]any{"id": float64(2)}, msgs[1])
}

func TestDecoder_CoalescedFrames(t *testing.T) {
	// Two back-to-back frames arriving in a single read: the chunk
	// boundary falls after the second frame, not between them.
	d := &decoder{}
	res, err := d.feed([]byte("8\r\n{\"id\":1}8\r\n{\"id\":2}"))
	require.NoError(t, err)
	require.Len(t, res.msgs, 2)
	assert.Equal(t, map[string]any{"id": float64(1)}, res.msgs[0])
	assert.Equal(t, map[string]any{"id": float64(2)}, res.msgs[1])
	assert.False(t, d.inProgress())
}

func TestDecoder_CoalescedBoundaryInvariance(t *testing.T) {
	// Two frames in one byte stream, split at every possible point:
	// the split may land mid-payload of the first frame, between the
	// frames, or inside the second length line, and must never change
	// what is decoded.
	wire := []byte("8\r\n{\"id\":1}8\r\n{\"id\":2}")
	want := []Message{
		map[string]any{"id": float64(1)},
		map[string]any{"id": float64(2)},
	}

	for i := 1; i < len(wire); i++ {
		t.Run(fmt.Sprintf("split_at_%d", i), func(t *testing.T) {
			d := &decoder{}
			msgs, _, err := feedAll(t, d, splitAt(wire, i))
			require.NoError(t, err)
			assert.Equal(t, want, msgs)
			assert.False(t, d.inProgress())
		})
	}
}

func TestDecoder_ChunkOverrunsFrame(t *testing.T) {
	// The tail of a chunk extends past the current frame: the frame
	// completes with its prefix and the rest starts the next frame.
	d := &decoder{}
	res, err := d.feed([]byte("10\r\n{\"id\""))
	require.NoError(t, err)
	require.Empty(t, res.msgs)
	require.True(t, d.inProgress())

	res, err = d.feed([]byte(":1}\n\n10\r\n{\"id\""))
	require.NoError(t, err)
	require.Len(t, res.msgs, 1)
	assert.Equal(t, map[string]any{"id": float64(1)}, res.msgs[0])
	assert.True(t, d.inProgress())

	res, err = d.feed([]byte(":2}\n\n"))
	require.NoError(t, err)
	require.Len(t, res.msgs, 1)
	assert.Equal(t, map[string]any{"id": float64(2)}, res.msgs[0])
	assert.False(t, d.inProgress())
}

func TestDecoder_KeepAlive(t *testing.T) {
	d := &decoder{}
	res, err := d.feed([]byte("\r\n"))
	require.NoError(t, err)
	assert.Empty(t, res.msgs)
	assert.Equal(t, 1, res.keepAlives)
	assert.False(t, d.inProgress())

	// An explicit zero length behaves the same.
	res, err = d.feed([]byte("0\r\n"))
	require.NoError(t, err)
	assert.Empty(t, res.msgs)
	assert.Equal(t, 1, res.keepAlives)
}

func TestDecoder_KeepAliveBetweenFrames(t *testing.T) {
	// A keep-alive riding in the same chunk as a frame.
	d := &decoder{}
	res, err := d.feed([]byte("\r\n8\r\n{\"id\":1}\r\n"))
	require.NoError(t, err)
	require.Len(t, res.msgs, 1)
	assert.Equal(t, map[string]any{"id": float64(1)}, res.msgs[0])
	assert.Equal(t, 2, res.keepAlives)
	assert.False(t, d.inProgress())
}

func TestDecoder_NonObjectPayload(t *testing.T) {
	d := &decoder{}
	res, err := d.feed([]byte("7\r\n[1,2,3]"))
	require.NoError(t, err)
	require.Len(t, res.msgs, 1)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, res.msgs[0])
}

func TestDecoder_BadLengthField(t *testing.T) {
	d := &decoder{}
	_, err := d.feed([]byte("abc\r\n{}"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFrameDecode))
}

func TestDecoder_LyingLengthField(t *testing.T) {
	// The length field claims 5 bytes, cutting the payload short. The
	// truncated frame is not valid JSON, so the desync is caught at
	// payload decode.
	d := &decoder{}
	_, err := d.feed([]byte("5\r\n{\"id\":1}"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPayloadDecode))
	assert.True(t, errors.IsTerminal(err))
}

func TestDecoder_MalformedPayload(t *testing.T) {
	d := &decoder{}
	_, err := d.feed([]byte("5\r\nhello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPayloadDecode))
}

func TestDecoder_LengthLineSplitAcrossChunks(t *testing.T) {
	d := &decoder{}
	msgs, _, err := feedAll(t, d, [][]byte{
		[]byte("1"),
		[]byte("0\r\n{\"id\":1}\n\n"),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"id": float64(1)}, msgs[0])
}
