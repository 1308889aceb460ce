package model

// RawTweet is one timeline entry as returned by the API client. Every level
// is optional: upstream drops fields without notice.
type RawTweet struct {
	User             *RawUser          `json:"user,omitempty"`
	Raw              *RawResult        `json:"raw,omitempty"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
}

// ReferencedTweet links a post to the post it replies to, quotes or reposts.
type ReferencedTweet struct {
	Type string `json:"type"` // replied_to, quoted, retweeted
	ID   string `json:"id"`
}

type RawUser struct {
	RestID string      `json:"rest_id,omitempty"`
	Legacy *UserLegacy `json:"legacy,omitempty"`
}

type UserLegacy struct {
	ScreenName           *string `json:"screen_name,omitempty"`
	Name                 *string `json:"name,omitempty"`
	ProfileImageURLHTTPS *string `json:"profile_image_url_https,omitempty"`
	Description          *string `json:"description,omitempty"`
	FollowersCount       *int64  `json:"followers_count,omitempty"`
	FriendsCount         *int64  `json:"friends_count,omitempty"`
	Location             *string `json:"location,omitempty"`
}

type RawResult struct {
	Result *TweetResult `json:"result,omitempty"`
}

type TweetResult struct {
	TypeName string       `json:"__typename,omitempty"`
	RestID   string       `json:"rest_id,omitempty"`
	Legacy   *TweetLegacy `json:"legacy,omitempty"`
}

type TweetLegacy struct {
	IDStr                *string           `json:"id_str,omitempty"`
	FullText             *string           `json:"full_text,omitempty"`
	CreatedAt            *string           `json:"created_at,omitempty"`
	IsQuoteStatus        *bool             `json:"is_quote_status,omitempty"`
	InReplyToStatusIDStr *string           `json:"in_reply_to_status_id_str,omitempty"`
	QuotedStatusIDStr    *string           `json:"quoted_status_id_str,omitempty"`
	ExtendedEntities     *ExtendedEntities `json:"extended_entities,omitempty"`
}

type ExtendedEntities struct {
	Media []Media `json:"media,omitempty"`
}

type Media struct {
	Type          string     `json:"type"`
	MediaURLHTTPS string     `json:"media_url_https,omitempty"`
	VideoInfo     *VideoInfo `json:"video_info,omitempty"`
}

type VideoInfo struct {
	Variants []Variant `json:"variants,omitempty"`
}

type Variant struct {
	Bitrate     *int64 `json:"bitrate,omitempty"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// UserLegacy returns the author's legacy block or nil.
func (t RawTweet) UserLegacy() *UserLegacy {
	if t.User == nil {
		return nil
	}
	return t.User.Legacy
}

// TweetLegacy returns the post's legacy block or nil.
func (t RawTweet) TweetLegacy() *TweetLegacy {
	if t.Raw == nil || t.Raw.Result == nil {
		return nil
	}
	return t.Raw.Result.Legacy
}

// MediaItems returns attached media, empty when any level is missing.
func (t RawTweet) MediaItems() []Media {
	l := t.TweetLegacy()
	if l == nil || l.ExtendedEntities == nil {
		return nil
	}
	return l.ExtendedEntities.Media
}
