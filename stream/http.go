package stream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/almightycouch/twittex/auth"
	"github.com/almightycouch/twittex/errors"
)

// HTTPConfig configures the chunked-transfer HTTP transport.
type HTTPConfig struct {
	// Method is the HTTP method, GET by default. Filter streams use
	// POST so long predicate lists fit in the body.
	Method string

	// URL is the streaming endpoint.
	URL string

	// Params are the endpoint parameters (track, follow, ...). The
	// delimited=length parameter is always set so the server emits
	// length-prefixed frames.
	Params url.Values

	// Requester signs the outgoing request. Optional for unauthenticated
	// endpoints.
	Requester auth.Requester

	// Client is the HTTP client to use. The default client has no
	// overall timeout: the response body is read for the lifetime of
	// the stream.
	Client *http.Client

	// ChunkSize bounds a single read from the response body (default 4096).
	ChunkSize int
}

// HTTPTransport opens streaming requests against a chunked-transfer
// HTTP endpoint. The response body is read only when the consumer
// pulls, so TCP flow control eventually pressures the sender when the
// consumer withholds demand.
type HTTPTransport struct {
	cfg HTTPConfig
}

// NewHTTPTransport validates the configuration and returns a transport.
func NewHTTPTransport(cfg HTTPConfig) (*HTTPTransport, error) {
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "HTTPTransport", "NewHTTPTransport", "url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, errors.WrapInvalid(err, "HTTPTransport", "NewHTTPTransport", "parse url")
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{
			// No overall timeout: the body outlives any deadline. The
			// dial and TLS handshake are still bounded.
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	}
	return &HTTPTransport{cfg: cfg}, nil
}

// Open issues the streaming request and returns a connection delivering
// its events. The initial status event arrives unsolicited; headers and
// chunks are delivered one per pull.
func (t *HTTPTransport) Open(ctx context.Context) (Conn, error) {
	params := url.Values{}
	for k, vs := range t.cfg.Params {
		params[k] = vs
	}
	params.Set("delimited", "length")

	reqCtx, cancel := context.WithCancel(ctx)

	var req *http.Request
	var err error
	if t.cfg.Method == http.MethodPost {
		req, err = http.NewRequestWithContext(reqCtx, http.MethodPost, t.cfg.URL,
			strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(reqCtx, t.cfg.Method, t.cfg.URL+"?"+params.Encode(), nil)
	}
	if err != nil {
		cancel()
		return nil, errors.WrapInvalid(err, "HTTPTransport", "Open", "build request")
	}

	if t.cfg.Requester != nil {
		if err := t.cfg.Requester.Sign(req); err != nil {
			cancel()
			return nil, errors.Wrap(err, "HTTPTransport", "Open", "sign request")
		}
	}

	conn := &httpConn{
		events: make(chan Event, 2),
		pulls:  make(chan struct{}, 1),
		ctx:    reqCtx,
		cancel: cancel,
	}
	go conn.serve(t.cfg.Client, req, t.cfg.ChunkSize)
	return conn, nil
}

// httpConn is one live streaming HTTP connection.
type httpConn struct {
	events    chan Event
	pulls     chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

// Pull requests delivery of exactly one more event. Never blocks; the
// consumer guarantees at most one outstanding pull.
func (c *httpConn) Pull() {
	select {
	case c.pulls <- struct{}{}:
	default:
	}
}

// Events returns the event delivery channel.
func (c *httpConn) Events() <-chan Event {
	return c.events
}

// Close aborts the request and releases the connection. Idempotent.
func (c *httpConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.cancel()
	})
	return nil
}

// isClosed reports whether Close has been called.
func (c *httpConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// serve performs the request and feeds the event channel. It is the
// only goroutine touching the response body.
func (c *httpConn) serve(client *http.Client, req *http.Request, chunkSize int) {
	defer close(c.events)

	resp, err := client.Do(req)
	if err != nil {
		if !c.isClosed() {
			c.emit(Event{Kind: EventError, Err: err})
		}
		return
	}
	defer resp.Body.Close()

	c.emit(Event{Kind: EventStatus, Status: resp.StatusCode})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The consumer terminates on this status; nothing left to serve.
		return
	}

	sentHeaders := false
	buf := make([]byte, chunkSize)

	for {
		select {
		case <-req.Context().Done():
			return
		case <-c.pulls:
		}

		if !sentHeaders {
			sentHeaders = true
			if !c.emit(Event{Kind: EventHeaders, Header: resp.Header}) {
				return
			}
			continue
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !c.emit(Event{Kind: EventChunk, Data: data}) {
				return
			}
		}
		if err != nil {
			if c.isClosed() {
				return
			}
			if err == io.EOF {
				c.emit(Event{Kind: EventEnd})
			} else {
				c.emit(Event{Kind: EventError, Err: err})
			}
			return
		}
	}
}

// emit delivers one event unless the connection is being torn down.
func (c *httpConn) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}
