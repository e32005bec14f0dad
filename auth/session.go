// Package auth provides request signing for the Twitter REST and streaming
// APIs.
package auth

import (
	"context"
	"net/http"

	"github.com/almightycouch/twittex/errors"
)

// Requester signs outgoing HTTP requests with whatever credential material
// the session carries. Both REST calls and streaming connections accept a
// Requester, so user-context OAuth1 and app-only OAuth2 are interchangeable.
type Requester interface {
	Sign(req *http.Request) error
}

// Session holds API credentials. Callers own the session value; no token
// state is kept at package level.
type Session struct {
	ConsumerKey    string
	ConsumerSecret string

	// User-context access token. Optional for app-only flows.
	Token       string
	TokenSecret string
}

// OAuth1 returns a user-context signer for this session.
func (s Session) OAuth1() (*OAuth1, error) {
	if err := s.validateConsumer(); err != nil {
		return nil, err
	}
	return NewOAuth1(s.ConsumerKey, s.ConsumerSecret, s.Token, s.TokenSecret)
}

// AppOnly exchanges the consumer credentials for a bearer token and returns
// an application-only signer. The token request is retried on transient
// failures.
func (s Session) AppOnly(ctx context.Context, opts ...OAuth2Option) (*OAuth2, error) {
	if err := s.validateConsumer(); err != nil {
		return nil, err
	}
	o, err := NewOAuth2(s.ConsumerKey, s.ConsumerSecret, opts...)
	if err != nil {
		return nil, err
	}
	if err := o.Authenticate(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (s Session) validateConsumer() error {
	if s.ConsumerKey == "" || s.ConsumerSecret == "" {
		return errors.WrapInvalid(errors.ErrMissingCredentials,
			"Session", "validate", "consumer key and secret are required")
	}
	return nil
}
