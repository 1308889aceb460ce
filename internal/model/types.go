package model

import "strings"

// TrackedAccount is one entry of the accounts file.
type TrackedAccount struct {
	Username   string `json:"username"`
	TwitterURL string `json:"twitter_url"`
}

// ScreenName returns the last path segment of TwitterURL.
func (a TrackedAccount) ScreenName() string {
	u := a.TwitterURL
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

// Post is the normalized record persisted in the daily snapshot.
type Post struct {
	User     PostUser `json:"user"`
	Images   []string `json:"images"`
	Videos   []string `json:"videos"`
	TweetURL string   `json:"tweetUrl"`
	FullText string   `json:"fullText"`
}

// PostUser holds author fields; any of them may be absent upstream.
type PostUser struct {
	ScreenName      *string `json:"screenName,omitempty"`
	Name            *string `json:"name,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
	Description     *string `json:"description,omitempty"`
	FollowersCount  *int64  `json:"followersCount,omitempty"`
	FriendsCount    *int64  `json:"friendsCount,omitempty"`
	Location        *string `json:"location,omitempty"`
}
