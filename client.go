package twittex

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/almightycouch/twittex/auth"
	"github.com/almightycouch/twittex/errors"
	"github.com/almightycouch/twittex/metric"
	"github.com/almightycouch/twittex/rest"
	"github.com/almightycouch/twittex/stream"
)

// DefaultStreamBaseURL is the production streaming API root.
const DefaultStreamBaseURL = "https://stream.twitter.com/1.1"

// Client is the high-level API client. It signs REST calls and streaming
// connections with the session's user-context credentials.
type Client struct {
	rest      *rest.Client
	requester auth.Requester
	streamURL string
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	restOpts  []rest.ClientOption
	requester auth.Requester
	streamURL string
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
}

// WithRESTBaseURL overrides the REST API root, mainly for tests.
func WithRESTBaseURL(u string) Option {
	return func(c *clientConfig) {
		c.restOpts = append(c.restOpts, rest.WithBaseURL(u))
	}
}

// WithStreamBaseURL overrides the streaming API root.
func WithStreamBaseURL(u string) Option {
	return func(c *clientConfig) { c.streamURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for REST calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *clientConfig) {
		c.restOpts = append(c.restOpts, rest.WithHTTPClient(h))
	}
}

// WithRequester replaces the session-derived signer, for example with an
// app-only OAuth2 signer.
func WithRequester(r auth.Requester) Option {
	return func(c *clientConfig) { c.requester = r }
}

// WithLogger sets the logger used by the client and its consumers.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
		c.restOpts = append(c.restOpts, rest.WithLogger(l))
	}
}

// WithMetrics registers stream consumer metrics with the given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *clientConfig) { c.registry = registry }
}

// NewClient creates a client from the session's credentials.
func NewClient(session auth.Session, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		streamURL: DefaultStreamBaseURL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	requester := cfg.requester
	if requester == nil {
		signer, err := session.OAuth1()
		if err != nil {
			return nil, err
		}
		requester = signer
	}

	restClient, err := rest.NewClient(requester, cfg.restOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		rest:      restClient,
		requester: requester,
		streamURL: cfg.streamURL,
		logger:    cfg.logger,
		registry:  cfg.registry,
	}, nil
}

// Do executes an arbitrary rest.Request, decoding the response into out.
func (c *Client) Do(ctx context.Context, r rest.Request, out any) error {
	return c.rest.Do(ctx, r, out)
}

// Search runs a tweet search.
func (c *Client) Search(ctx context.Context, q string) (*rest.SearchResult, error) {
	var result rest.SearchResult
	if err := c.rest.Do(ctx, rest.SearchTweets(q), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserTimeline returns the most recent tweets of a user.
func (c *Client) UserTimeline(ctx context.Context, screenName string) ([]rest.Tweet, error) {
	var tweets []rest.Tweet
	if err := c.rest.Do(ctx, rest.UserTimeline(screenName), &tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

// HomeTimeline returns the authenticated user's home timeline.
func (c *Client) HomeTimeline(ctx context.Context) ([]rest.Tweet, error) {
	var tweets []rest.Tweet
	if err := c.rest.Do(ctx, rest.HomeTimeline(), &tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

// MentionsTimeline returns tweets mentioning the authenticated user.
func (c *Client) MentionsTimeline(ctx context.Context) ([]rest.Tweet, error) {
	var tweets []rest.Tweet
	if err := c.rest.Do(ctx, rest.MentionsTimeline(), &tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

// ShowStatus returns a single tweet by ID.
func (c *Client) ShowStatus(ctx context.Context, id int64) (*rest.Tweet, error) {
	var tweet rest.Tweet
	if err := c.rest.Do(ctx, rest.ShowStatus(id), &tweet); err != nil {
		return nil, err
	}
	return &tweet, nil
}

// UpdateStatus posts a new tweet and returns it.
func (c *Client) UpdateStatus(ctx context.Context, text string) (*rest.Tweet, error) {
	var tweet rest.Tweet
	if err := c.rest.Do(ctx, rest.UpdateStatus(text), &tweet); err != nil {
		return nil, err
	}
	return &tweet, nil
}

// DestroyStatus deletes a tweet owned by the authenticated user.
func (c *Client) DestroyStatus(ctx context.Context, id int64) (*rest.Tweet, error) {
	var tweet rest.Tweet
	if err := c.rest.Do(ctx, rest.DestroyStatus(id), &tweet); err != nil {
		return nil, err
	}
	return &tweet, nil
}

// Retweet retweets the given tweet.
func (c *Client) Retweet(ctx context.Context, id int64) (*rest.Tweet, error) {
	var tweet rest.Tweet
	if err := c.rest.Do(ctx, rest.Retweet(id), &tweet); err != nil {
		return nil, err
	}
	return &tweet, nil
}

// VerifyCredentials returns the authenticated user.
func (c *Client) VerifyCredentials(ctx context.Context) (*rest.User, error) {
	var user rest.User
	if err := c.rest.Do(ctx, rest.VerifyCredentials(), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ShowUser returns a user profile by screen name.
func (c *Client) ShowUser(ctx context.Context, screenName string) (*rest.User, error) {
	var user rest.User
	if err := c.rest.Do(ctx, rest.ShowUser(screenName), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FollowerIDs returns the IDs of a user's followers.
func (c *Client) FollowerIDs(ctx context.Context, screenName string) (*rest.CursoredIDs, error) {
	var ids rest.CursoredIDs
	if err := c.rest.Do(ctx, rest.FollowerIDs(screenName), &ids); err != nil {
		return nil, err
	}
	return &ids, nil
}

// FriendIDs returns the IDs of accounts a user follows.
func (c *Client) FriendIDs(ctx context.Context, screenName string) (*rest.CursoredIDs, error) {
	var ids rest.CursoredIDs
	if err := c.rest.Do(ctx, rest.FriendIDs(screenName), &ids); err != nil {
		return nil, err
	}
	return &ids, nil
}

// Filter opens a filtered stream consumer tracking the given comma-separated
// keywords. The consumer is not started; the caller owns its lifecycle and
// demand.
func (c *Client) Filter(track string) (*stream.Consumer, error) {
	if track == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData,
			"Client", "Filter", "track keywords are required")
	}
	return c.streamConsumer("/statuses/filter.json", url.Values{"track": {track}})
}

// Sample opens a consumer over the random sample stream.
func (c *Client) Sample() (*stream.Consumer, error) {
	return c.streamConsumer("/statuses/sample.json", url.Values{})
}

func (c *Client) streamConsumer(path string, params url.Values) (*stream.Consumer, error) {
	transport, err := stream.NewHTTPTransport(stream.HTTPConfig{
		Method:    http.MethodPost,
		URL:       c.streamURL + path,
		Params:    params,
		Requester: c.requester,
	})
	if err != nil {
		return nil, err
	}

	opts := []stream.Option{stream.WithLogger(c.logger)}
	if c.registry != nil {
		opts = append(opts, stream.WithMetrics(c.registry, strings.Trim(path, "/")))
	}
	return stream.New(transport, opts...), nil
}
