package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almightycouch/twittex/component"
	"github.com/almightycouch/twittex/stream"
)

// scriptConn delivers one scripted event per pull after an initial status.
type scriptConn struct {
	mu     sync.Mutex
	script []stream.Event
	events chan stream.Event
	closed bool
}

func newScriptConn(script ...stream.Event) *scriptConn {
	c := &scriptConn{
		script: script,
		events: make(chan stream.Event, len(script)+4),
	}
	c.events <- stream.Event{Kind: stream.EventStatus, Status: http.StatusOK}
	return c
}

func (c *scriptConn) Pull() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.script) == 0 {
		return
	}
	ev := c.script[0]
	c.script = c.script[1:]
	c.events <- ev
}

func (c *scriptConn) Events() <-chan stream.Event { return c.events }

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type scriptTransport struct{ conn *scriptConn }

func (t *scriptTransport) Open(_ context.Context) (stream.Conn, error) { return t.conn, nil }

func frameEvent(payload string) stream.Event {
	return stream.Event{
		Kind: stream.EventChunk,
		Data: []byte(fmt.Sprintf("%d\r\n%s", len(payload), payload)),
	}
}

// stubPublisher records published messages, optionally failing some.
type stubPublisher struct {
	mu       sync.Mutex
	data     [][]byte
	failNext int
}

func (p *stubPublisher) Publish(_ context.Context, _ string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext > 0 {
		p.failNext--
		return fmt.Errorf("broker unavailable")
	}
	p.data = append(p.data, data)
	return nil
}

func (p *stubPublisher) published() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.data...)
}

func newBridge(t *testing.T, pub *stubPublisher, script ...stream.Event) *Bridge {
	t.Helper()
	transport := &scriptTransport{conn: newScriptConn(script...)}
	b, err := New(Config{Subject: "tweets.firehose", Window: 5}, transport, pub)
	require.NoError(t, err)
	require.NoError(t, b.Initialize())
	return b
}

func waitDone(t *testing.T, b *Bridge) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge pump did not finish")
	}
}

func TestBridgeRepublishes(t *testing.T) {
	pub := &stubPublisher{}
	b := newBridge(t, pub,
		stream.Event{Kind: stream.EventHeaders, Header: http.Header{}},
		frameEvent(`{"id":1,"text":"one"}`),
		frameEvent(`{"id":2,"text":"two"}`),
		frameEvent(`{"id":3,"text":"three"}`),
		stream.Event{Kind: stream.EventEnd},
	)

	require.NoError(t, b.Start(context.Background()))
	waitDone(t, b)

	published := pub.published()
	require.Len(t, published, 3)

	seen := map[string]bool{}
	for i, raw := range published {
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.NotEmpty(t, env.ID)
		assert.False(t, seen[env.ID], "envelope ids must be unique")
		seen[env.ID] = true
		assert.False(t, env.ReceivedAt.IsZero())

		payload, ok := env.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(i+1), payload["id"])
	}

	// The stream ended terminally, so the bridge reports failed.
	assert.Equal(t, component.StateFailed, b.State())
	assert.False(t, b.Health().Healthy)
}

func TestBridgePublishErrorContinues(t *testing.T) {
	pub := &stubPublisher{failNext: 1}
	b := newBridge(t, pub,
		stream.Event{Kind: stream.EventHeaders, Header: http.Header{}},
		frameEvent(`{"id":1}`),
		frameEvent(`{"id":2}`),
		stream.Event{Kind: stream.EventEnd},
	)

	require.NoError(t, b.Start(context.Background()))
	waitDone(t, b)

	assert.Len(t, pub.published(), 1)
	assert.GreaterOrEqual(t, b.Health().ErrorCount, 1)
}

func TestBridgeStop(t *testing.T) {
	pub := &stubPublisher{}
	// No End event: the stream stays open until the bridge stops it.
	b := newBridge(t, pub,
		stream.Event{Kind: stream.EventHeaders, Header: http.Header{}},
		frameEvent(`{"id":1}`),
	)

	require.NoError(t, b.Start(context.Background()))

	require.Eventually(t, func() bool {
		return len(pub.published()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Stop(2*time.Second))
	waitDone(t, b)
	assert.Equal(t, component.StateStopped, b.State())
}

func TestBridgeDiscoverable(t *testing.T) {
	pub := &stubPublisher{}
	b := newBridge(t, pub, stream.Event{Kind: stream.EventEnd})

	meta := b.Meta()
	assert.Equal(t, "firehose-bridge", meta.Name)
	assert.Equal(t, "bridge", meta.Type)
	assert.Contains(t, meta.Description, "tweets.firehose")

	var _ component.LifecycleComponent = b
}

func TestBridgeLifecycleGuards(t *testing.T) {
	transport := &scriptTransport{conn: newScriptConn()}
	b, err := New(Config{Subject: "s", Window: 1}, transport, &stubPublisher{})
	require.NoError(t, err)

	// Start before Initialize is rejected.
	assert.Error(t, b.Start(context.Background()))

	require.NoError(t, b.Initialize())
	assert.Error(t, b.Initialize())
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{Window: 1}).Validate())
	assert.Error(t, (&Config{Subject: "s"}).Validate())
	assert.Error(t, (&Config{Subject: "s", Window: -1}).Validate())
	assert.NoError(t, (&Config{Subject: "s", Window: 10}).Validate())

	_, err := New(Config{Subject: "s", Window: 1}, nil, &stubPublisher{})
	assert.Error(t, err)

	_, err = New(Config{Subject: "s", Window: 1}, &scriptTransport{conn: newScriptConn()}, nil)
	assert.Error(t, err)
}
