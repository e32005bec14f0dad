package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almightycouch/twittex/errors"
)

type headerRequester struct {
	value string
}

func (r *headerRequester) Sign(req *http.Request) error {
	req.Header.Set("Authorization", r.value)
	return nil
}

func writeFrame(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "%d\r\n%s", len(payload), payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestHTTPTransport_StreamsFrames(t *testing.T) {
	var gotAuth, gotDelimited, gotTrack string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotAuth = r.Header.Get("Authorization")
		gotDelimited = r.Form.Get("delimited")
		gotTrack = r.Form.Get("track")

		w.WriteHeader(http.StatusOK)
		writeFrame(w, `{"id":1}`)
		writeFrame(w, `{"id":2}`)
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(HTTPConfig{
		Method:    http.MethodPost,
		URL:       server.URL,
		Params:    url.Values{"track": {"golang"}},
		Requester: &headerRequester{value: "Bearer test-token"},
	})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(time.Second)

	c.Request(2)
	assert.Equal(t, map[string]any{"id": float64(1)}, recvMessage(t, c))
	assert.Equal(t, map[string]any{"id": float64(2)}, recvMessage(t, c))

	// Handler returned, so the body ends cleanly.
	c.Request(1)
	waitDone(t, c)
	assert.True(t, errors.Is(c.Err(), errors.ErrStreamEnded))

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "length", gotDelimited)
	assert.Equal(t, "golang", gotTrack)
}

func TestHTTPTransport_BackToBackFramesInOneWrite(t *testing.T) {
	// Go's client de-chunks the response body, so a single Read can
	// return bytes spanning a frame boundary. Frames written in one
	// flush must still come out as two messages, not a decode failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "8\r\n{\"id\":1}8\r\n{\"id\":2}")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(time.Second)

	c.Request(2)
	assert.Equal(t, map[string]any{"id": float64(1)}, recvMessage(t, c))
	assert.Equal(t, map[string]any{"id": float64(2)}, recvMessage(t, c))
}

func TestHTTPTransport_GetQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "length", r.URL.Query().Get("delimited"))
		w.WriteHeader(http.StatusOK)
		writeFrame(w, `{"ok":true}`)
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(time.Second)

	msg, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, msg)
}

func TestHTTPTransport_Rejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))

	waitDone(t, c)
	assert.True(t, errors.Is(c.Err(), errors.ErrConnectionRejected))
}

func TestHTTPTransport_StopReleasesConnection(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		writeFrame(w, `{"id":1}`)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	transport, err := NewHTTPTransport(HTTPConfig{URL: server.URL})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))

	c.Request(1)
	recvMessage(t, c)

	require.NoError(t, c.Stop(2*time.Second))
	assert.True(t, errors.Is(c.Err(), errors.ErrStreamStopped))
}

func TestHTTPTransport_ConfigValidation(t *testing.T) {
	_, err := NewHTTPTransport(HTTPConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
