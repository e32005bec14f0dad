package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Request is the (method, path, query) triple describing one API call.
// Paths are relative to the API base URL. For POST requests the client
// sends the query as an urlencoded form body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

// Param adds a single query parameter and returns the request for chaining.
func (r Request) Param(key, value string) Request {
	q := cloneValues(r.Query)
	q.Set(key, value)
	r.Query = q
	return r
}

// Count sets the number of results to return.
func (r Request) Count(n int) Request {
	return r.Param("count", strconv.Itoa(n))
}

// SinceID restricts results to IDs greater than the given ID.
func (r Request) SinceID(id int64) Request {
	return r.Param("since_id", strconv.FormatInt(id, 10))
}

// MaxID restricts results to IDs less than or equal to the given ID.
func (r Request) MaxID(id int64) Request {
	return r.Param("max_id", strconv.FormatInt(id, 10))
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// SearchTweets builds a tweet search request for the given query string.
func SearchTweets(q string) Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/search/tweets.json",
		Query:  url.Values{"q": {q}},
	}
}

// UserTimeline builds a request for the most recent tweets of a user.
func UserTimeline(screenName string) Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/statuses/user_timeline.json",
		Query:  url.Values{"screen_name": {screenName}},
	}
}

// HomeTimeline builds a request for the authenticated user's home timeline.
func HomeTimeline() Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/statuses/home_timeline.json",
		Query:  url.Values{},
	}
}

// MentionsTimeline builds a request for tweets mentioning the authenticated
// user.
func MentionsTimeline() Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/statuses/mentions_timeline.json",
		Query:  url.Values{},
	}
}

// ShowStatus builds a request for a single tweet by ID.
func ShowStatus(id int64) Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/statuses/show.json",
		Query:  url.Values{"id": {strconv.FormatInt(id, 10)}},
	}
}

// UpdateStatus builds a request that posts a new tweet.
func UpdateStatus(text string) Request {
	return Request{
		Method: http.MethodPost,
		Path:   "/statuses/update.json",
		Query:  url.Values{"status": {text}},
	}
}

// DestroyStatus builds a request that deletes a tweet owned by the
// authenticated user.
func DestroyStatus(id int64) Request {
	return Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/statuses/destroy/%d.json", id),
		Query:  url.Values{},
	}
}

// Retweet builds a request that retweets the given tweet.
func Retweet(id int64) Request {
	return Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/statuses/retweet/%d.json", id),
		Query:  url.Values{},
	}
}

// VerifyCredentials builds a request that returns the authenticated user.
func VerifyCredentials() Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/account/verify_credentials.json",
		Query:  url.Values{},
	}
}

// ShowUser builds a request for a user profile by screen name.
func ShowUser(screenName string) Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/users/show.json",
		Query:  url.Values{"screen_name": {screenName}},
	}
}

// FollowerIDs builds a request for the IDs of a user's followers.
func FollowerIDs(screenName string) Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/followers/ids.json",
		Query:  url.Values{"screen_name": {screenName}},
	}
}

// FriendIDs builds a request for the IDs of accounts a user follows.
func FriendIDs(screenName string) Request {
	return Request{
		Method: http.MethodGet,
		Path:   "/friends/ids.json",
		Query:  url.Values{"screen_name": {screenName}},
	}
}
