package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/almightycouch/twittex/errors"
)

// OAuth1 signs requests with user-context credentials using HMAC-SHA1,
// producing an `Authorization: OAuth ...` header.
type OAuth1 struct {
	consumerKey    string
	consumerSecret string
	token          string
	tokenSecret    string

	// Overridable for deterministic tests.
	nonce func() string
	clock func() time.Time
}

// NewOAuth1 creates a user-context signer. All four credentials are required.
func NewOAuth1(consumerKey, consumerSecret, token, tokenSecret string) (*OAuth1, error) {
	if consumerKey == "" || consumerSecret == "" || token == "" || tokenSecret == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingCredentials,
			"OAuth1", "NewOAuth1", "all of consumer key/secret and token/secret are required")
	}
	return &OAuth1{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		token:          token,
		tokenSecret:    tokenSecret,
		nonce:          newNonce,
		clock:          time.Now,
	}, nil
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sign computes the OAuth1 signature over the request's query and form
// parameters and sets the Authorization header.
func (o *OAuth1) Sign(req *http.Request) error {
	oauthParams := map[string]string{
		"oauth_consumer_key":     o.consumerKey,
		"oauth_nonce":            o.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(o.clock().Unix(), 10),
		"oauth_token":            o.token,
		"oauth_version":          "1.0",
	}

	params, err := collectParams(req, oauthParams)
	if err != nil {
		return errors.WrapInvalid(err, "OAuth1", "Sign", "collect request parameters")
	}

	base := signatureBase(req.Method, req.URL, params)
	key := percentEncode(o.consumerSecret) + "&" + percentEncode(o.tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Authorization", authorizationHeader(oauthParams))
	return nil
}

// collectParams gathers query and urlencoded-form parameters together with
// the oauth protocol parameters, as (key, value) pairs.
func collectParams(req *http.Request, oauthParams map[string]string) ([][2]string, error) {
	var pairs [][2]string

	for k, vs := range req.URL.Query() {
		for _, v := range vs {
			pairs = append(pairs, [2]string{k, v})
		}
	}

	// Read a fresh copy of a urlencoded body so the request stays sendable.
	if req.GetBody != nil && strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		rc, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, err
		}
		for k, vs := range form {
			for _, v := range vs {
				pairs = append(pairs, [2]string{k, v})
			}
		}
	}

	for k, v := range oauthParams {
		pairs = append(pairs, [2]string{k, v})
	}

	return pairs, nil
}

// signatureBase builds the OAuth1 signature base string: the method, the
// normalized URL and the encoded, sorted parameter string.
func signatureBase(method string, u *url.URL, pairs [][2]string) string {
	encoded := make([][2]string, len(pairs))
	for i, p := range pairs {
		encoded[i] = [2]string{percentEncode(p[0]), percentEncode(p[1])}
	}
	sort.Slice(encoded, func(i, j int) bool {
		if encoded[i][0] != encoded[j][0] {
			return encoded[i][0] < encoded[j][0]
		}
		return encoded[i][1] < encoded[j][1]
	})

	parts := make([]string, len(encoded))
	for i, p := range encoded {
		parts[i] = p[0] + "=" + p[1]
	}

	baseURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}

	return strings.ToUpper(method) + "&" +
		percentEncode(baseURL.String()) + "&" +
		percentEncode(strings.Join(parts, "&"))
}

// authorizationHeader renders the OAuth header with sorted, quoted values.
func authorizationHeader(oauthParams map[string]string) string {
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = percentEncode(k) + `="` + percentEncode(oauthParams[k]) + `"`
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// percentEncode implements RFC 3986 encoding: only unreserved characters
// pass through unescaped.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}
