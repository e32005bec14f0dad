// Package rest executes Twitter v1.1 REST API calls.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/almightycouch/twittex/auth"
	"github.com/almightycouch/twittex/errors"
)

// DefaultBaseURL is the production v1.1 API root.
const DefaultBaseURL = "https://api.twitter.com/1.1"

// Client executes Request values against the API with a signing Requester.
type Client struct {
	baseURL   string
	requester auth.Requester
	http      *http.Client
	logger    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates an API client that signs every request with the given
// Requester.
func NewClient(requester auth.Requester, opts ...ClientOption) (*Client, error) {
	if requester == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingCredentials,
			"Client", "NewClient", "a signing requester is required")
	}

	c := &Client{
		baseURL:   DefaultBaseURL,
		requester: requester,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do executes the request and decodes the JSON response into out. Passing a
// nil out discards the response body.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	httpReq, err := c.buildRequest(ctx, r)
	if err != nil {
		return err
	}

	if err := c.requester.Sign(httpReq); err != nil {
		return errors.WrapInvalid(err, "Client", "Do", "sign request")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.WrapTransient(err, "Client", "Do", "execute request")
	}
	defer resp.Body.Close()

	c.logger.Debug("api call completed",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return errors.WrapTransient(err, "Client", "Do", "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(r, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapInvalid(err, "Client", "Do", "decode response body")
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, r Request) (*http.Request, error) {
	if r.Method == "" || r.Path == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData,
			"Client", "buildRequest", "request method and path are required")
	}

	fullURL := c.baseURL + r.Path

	if r.Method == http.MethodPost {
		body := strings.NewReader(r.Query.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, body)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Client", "buildRequest", "build POST request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	if len(r.Query) > 0 {
		fullURL += "?" + r.Query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, fullURL, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "buildRequest", "build request")
	}
	return req, nil
}

// apiError maps an error response to a classified error, decoding the
// {"errors":[{code,message}]} body when present.
func (c *Client) apiError(r Request, status int, body []byte) error {
	detail := fmt.Sprintf("%s %s returned %d", r.Method, r.Path, status)

	var payload struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		detail = fmt.Sprintf("%s: %s (code %d)",
			detail, payload.Errors[0].Message, payload.Errors[0].Code)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return errors.WrapTransient(errors.ErrRateLimited, "Client", "Do", detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.WrapFatal(errors.ErrTokenRejected, "Client", "Do", detail)
	case status >= 500:
		return errors.WrapTransient(errors.ErrAPIRequest, "Client", "Do", detail)
	default:
		return errors.WrapInvalid(errors.ErrAPIRequest, "Client", "Do", detail)
	}
}
