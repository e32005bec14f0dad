package rest

// Tweet is a status object as returned by the v1.1 API. Decoding is
// syntactic only; fields the caller does not need stay at their zero value.
type Tweet struct {
	ID                  int64    `json:"id"`
	IDStr               string   `json:"id_str"`
	CreatedAt           string   `json:"created_at"`
	Text                string   `json:"text"`
	FullText            string   `json:"full_text,omitempty"`
	Source              string   `json:"source"`
	Truncated           bool     `json:"truncated"`
	InReplyToStatusID   int64    `json:"in_reply_to_status_id,omitempty"`
	InReplyToScreenName string   `json:"in_reply_to_screen_name,omitempty"`
	User                *User    `json:"user,omitempty"`
	RetweetedStatus     *Tweet   `json:"retweeted_status,omitempty"`
	QuotedStatus        *Tweet   `json:"quoted_status,omitempty"`
	RetweetCount        int      `json:"retweet_count"`
	FavoriteCount       int      `json:"favorite_count"`
	Favorited           bool     `json:"favorited"`
	Retweeted           bool     `json:"retweeted"`
	Lang                string   `json:"lang"`
	Entities            Entities `json:"entities"`
}

// Entities carries the parsed-out pieces of a tweet body.
type Entities struct {
	Hashtags     []Hashtag     `json:"hashtags"`
	URLs         []URLEntity   `json:"urls"`
	UserMentions []UserMention `json:"user_mentions"`
}

// Hashtag is a single #tag occurrence.
type Hashtag struct {
	Text    string `json:"text"`
	Indices []int  `json:"indices"`
}

// URLEntity is a single URL occurrence.
type URLEntity struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url"`
	Indices     []int  `json:"indices"`
}

// UserMention is a single @mention occurrence.
type UserMention struct {
	ID         int64  `json:"id"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
	Indices    []int  `json:"indices"`
}

// User is a user object as returned by the v1.1 API.
type User struct {
	ID              int64  `json:"id"`
	IDStr           string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	Protected       bool   `json:"protected"`
	Verified        bool   `json:"verified"`
	FollowersCount  int    `json:"followers_count"`
	FriendsCount    int    `json:"friends_count"`
	StatusesCount   int    `json:"statuses_count"`
	FavouritesCount int    `json:"favourites_count"`
	CreatedAt       string `json:"created_at"`
	Lang            string `json:"lang"`
}

// SearchResult is the payload of /search/tweets.json.
type SearchResult struct {
	Statuses       []Tweet        `json:"statuses"`
	SearchMetadata SearchMetadata `json:"search_metadata"`
}

// SearchMetadata describes a search result page and how to fetch the next
// one.
type SearchMetadata struct {
	CompletedIn float64 `json:"completed_in"`
	MaxID       int64   `json:"max_id"`
	SinceID     int64   `json:"since_id"`
	Query       string  `json:"query"`
	Count       int     `json:"count"`
	NextResults string  `json:"next_results"`
	RefreshURL  string  `json:"refresh_url"`
}

// CursoredIDs is the payload of the follower/friend ID endpoints.
type CursoredIDs struct {
	IDs               []int64 `json:"ids"`
	NextCursor        int64   `json:"next_cursor"`
	NextCursorStr     string  `json:"next_cursor_str"`
	PreviousCursor    int64   `json:"previous_cursor"`
	PreviousCursorStr string  `json:"previous_cursor_str"`
}
