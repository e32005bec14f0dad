package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/almightycouch/twittex/errors"
	"github.com/almightycouch/twittex/pkg/retry"
)

const defaultTokenURL = "https://api.twitter.com/oauth2/token"

// OAuth2 signs requests with an application-only bearer token obtained via
// the client credentials grant.
type OAuth2 struct {
	consumerKey    string
	consumerSecret string
	tokenURL       string
	client         *http.Client
	retryConfig    retry.Config

	mu     sync.RWMutex
	bearer string
}

// OAuth2Option configures the app-only signer.
type OAuth2Option func(*OAuth2)

// WithTokenURL overrides the token endpoint, mainly for tests.
func WithTokenURL(u string) OAuth2Option {
	return func(o *OAuth2) { o.tokenURL = u }
}

// WithHTTPClient sets the HTTP client used for the token exchange.
func WithHTTPClient(c *http.Client) OAuth2Option {
	return func(o *OAuth2) { o.client = c }
}

// WithRetryConfig sets the retry policy for token acquisition.
func WithRetryConfig(cfg retry.Config) OAuth2Option {
	return func(o *OAuth2) { o.retryConfig = cfg }
}

// NewOAuth2 creates an app-only signer. Authenticate must be called before
// the signer can sign requests.
func NewOAuth2(consumerKey, consumerSecret string, opts ...OAuth2Option) (*OAuth2, error) {
	if consumerKey == "" || consumerSecret == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingCredentials,
			"OAuth2", "NewOAuth2", "consumer key and secret are required")
	}

	o := &OAuth2{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		tokenURL:       defaultTokenURL,
		client:         &http.Client{Timeout: 30 * time.Second},
		retryConfig:    retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Authenticate performs the client credentials exchange and stores the
// bearer token. Transient transport failures are retried; a rejection by
// the server is not.
func (o *OAuth2) Authenticate(ctx context.Context) error {
	token, err := retry.DoWithResult(ctx, o.retryConfig, func() (string, error) {
		return o.requestToken(ctx)
	})
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.bearer = token
	o.mu.Unlock()
	return nil
}

func (o *OAuth2) requestToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", retry.NonRetryable(
			errors.WrapInvalid(err, "OAuth2", "requestToken", "build token request"))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.SetBasicAuth(percentEncode(o.consumerKey), percentEncode(o.consumerSecret))

	resp, err := o.client.Do(req)
	if err != nil {
		return "", errors.WrapTransient(err, "OAuth2", "requestToken", "token exchange")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.WrapTransient(err, "OAuth2", "requestToken", "read token response")
	}

	if resp.StatusCode != http.StatusOK {
		// Credential rejections never become valid on retry.
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", retry.NonRetryable(errors.WrapFatal(errors.ErrTokenRejected,
				"OAuth2", "requestToken",
				fmt.Sprintf("token endpoint returned %d", resp.StatusCode)))
		}
		return "", errors.WrapTransient(
			fmt.Errorf("token endpoint returned %d", resp.StatusCode),
			"OAuth2", "requestToken", "token exchange")
	}

	var payload struct {
		TokenType   string `json:"token_type"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", retry.NonRetryable(
			errors.WrapInvalid(err, "OAuth2", "requestToken", "decode token response"))
	}
	if !strings.EqualFold(payload.TokenType, "bearer") || payload.AccessToken == "" {
		return "", retry.NonRetryable(errors.WrapFatal(errors.ErrTokenRejected,
			"OAuth2", "requestToken",
			fmt.Sprintf("unexpected token type %q", payload.TokenType)))
	}

	return payload.AccessToken, nil
}

// Sign attaches the bearer token to the request.
func (o *OAuth2) Sign(req *http.Request) error {
	o.mu.RLock()
	bearer := o.bearer
	o.mu.RUnlock()

	if bearer == "" {
		return errors.WrapInvalid(errors.ErrMissingCredentials,
			"OAuth2", "Sign", "no bearer token; call Authenticate first")
	}

	req.Header.Set("Authorization", "Bearer "+bearer)
	return nil
}
