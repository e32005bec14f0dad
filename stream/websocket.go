package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/almightycouch/twittex/auth"
	"github.com/almightycouch/twittex/errors"
)

// WebSocketConfig configures the WebSocket transport.
type WebSocketConfig struct {
	// URL is the ws:// or wss:// streaming endpoint.
	URL string

	// Header carries extra handshake headers.
	Header http.Header

	// Requester signs the handshake request; its Authorization header
	// is carried into the dial. Optional.
	Requester auth.Requester

	// HandshakeTimeout bounds the dial (default 45s).
	HandshakeTimeout time.Duration
}

// WebSocketTransport delivers a length-delimited byte stream over a
// WebSocket connection. Each server message is one chunk; chunk
// boundaries remain unrelated to frame boundaries.
type WebSocketTransport struct {
	cfg WebSocketConfig
}

// NewWebSocketTransport validates the configuration and returns a transport.
func NewWebSocketTransport(cfg WebSocketConfig) (*WebSocketTransport, error) {
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketTransport", "NewWebSocketTransport", "url is required")
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 45 * time.Second
	}
	return &WebSocketTransport{cfg: cfg}, nil
}

// Open dials the endpoint. A successful handshake is reported as a 200
// status event; a rejected handshake reports the server's status code
// so the consumer surfaces ErrConnectionRejected.
func (t *WebSocketTransport) Open(ctx context.Context) (Conn, error) {
	header := http.Header{}
	for k, vs := range t.cfg.Header {
		header[k] = vs
	}
	if t.cfg.Requester != nil {
		// Sign a throwaway request to obtain the Authorization header.
		req, err := http.NewRequest(http.MethodGet, httpURL(t.cfg.URL), nil)
		if err != nil {
			return nil, errors.WrapInvalid(err, "WebSocketTransport", "Open", "build signing request")
		}
		if err := t.cfg.Requester.Sign(req); err != nil {
			return nil, errors.Wrap(err, "WebSocketTransport", "Open", "sign handshake")
		}
		if v := req.Header.Get("Authorization"); v != "" {
			header.Set("Authorization", v)
		}
	}

	dialer := &websocket.Dialer{HandshakeTimeout: t.cfg.HandshakeTimeout}

	connCtx, cancel := context.WithCancel(ctx)
	conn := &wsConn{
		events: make(chan Event, 2),
		pulls:  make(chan struct{}, 1),
		ctx:    connCtx,
		cancel: cancel,
	}

	ws, resp, err := dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		if resp != nil {
			// Handshake rejected: report the status so the consumer
			// closes with ConnectionRejected rather than a raw error.
			go conn.serveRejected(resp.StatusCode)
			return conn, nil
		}
		cancel()
		return nil, errors.WrapTransient(err, "WebSocketTransport", "Open", "dial")
	}

	conn.ws = ws
	var respHeader http.Header
	if resp != nil {
		respHeader = resp.Header
	}
	go conn.serve(respHeader)
	return conn, nil
}

// httpURL rewrites a ws(s) scheme to http(s) for request signing.
func httpURL(u string) string {
	switch {
	case len(u) > 6 && u[:6] == "wss://":
		return "https://" + u[6:]
	case len(u) > 5 && u[:5] == "ws://":
		return "http://" + u[5:]
	default:
		return u
	}
}

// wsConn is one live WebSocket streaming connection.
type wsConn struct {
	ws        *websocket.Conn
	events    chan Event
	pulls     chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Pull requests delivery of exactly one more event. Never blocks.
func (c *wsConn) Pull() {
	select {
	case c.pulls <- struct{}{}:
	default:
	}
}

// Events returns the event delivery channel.
func (c *wsConn) Events() <-chan Event {
	return c.events
}

// Close tears down the connection. Idempotent.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
	return nil
}

// serveRejected reports a failed handshake and finishes.
func (c *wsConn) serveRejected(status int) {
	defer close(c.events)
	c.emit(Event{Kind: EventStatus, Status: status})
}

// serve feeds the event channel: status, then headers and one message
// per pull.
func (c *wsConn) serve(header http.Header) {
	defer close(c.events)

	if !c.emit(Event{Kind: EventStatus, Status: http.StatusOK}) {
		return
	}

	sentHeaders := false
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.pulls:
		}

		if !sentHeaders {
			sentHeaders = true
			if !c.emit(Event{Kind: EventHeaders, Header: header}) {
				return
			}
			continue
		}

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emit(Event{Kind: EventEnd})
			} else {
				c.emit(Event{Kind: EventError, Err: err})
			}
			return
		}
		if !c.emit(Event{Kind: EventChunk, Data: data}) {
			return
		}
	}
}

// emit delivers one event unless the connection is being torn down.
func (c *wsConn) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}
