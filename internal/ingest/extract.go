package ingest

import (
	"fmt"
	"strings"
	"time"

	"xharvest/internal/model"
)

// RepostMarker prefixes the text of plain reposts.
const RepostMarker = "RT @"

// missingSegment fills a tweet URL segment the payload did not carry.
const missingSegment = "undefined"

// DropReason says why a post was discarded; empty means kept.
type DropReason string

const (
	Kept          DropReason = ""
	DropQuote     DropReason = "quote"
	DropRepost    DropReason = "repost"
	DropStale     DropReason = "stale"
	DropReference DropReason = "referenced"
)

// Options controls one fetch pass.
type Options struct {
	Count      int
	CutoffDays int
	Product    string
	Host       string
	Now        time.Time
}

func (o Options) host() string {
	if o.Host == "" {
		return "x.com"
	}
	return o.Host
}

// Extract normalizes one raw post or reports why it was dropped. Missing
// author or id fields never drop a post; they show up as "undefined" in the
// tweet URL.
func Extract(t model.RawTweet, o Options) (model.Post, DropReason) {
	l := t.TweetLegacy()
	if l == nil {
		l = &model.TweetLegacy{}
	}
	if l.IsQuoteStatus != nil && *l.IsQuoteStatus {
		return model.Post{}, DropQuote
	}
	fullText := RepostMarker
	if l.FullText != nil {
		fullText = *l.FullText
	}
	if strings.Contains(fullText, RepostMarker) {
		return model.Post{}, DropRepost
	}
	if l.CreatedAt != nil {
		if created, ok := ParseCreatedAt(*l.CreatedAt); ok && DaysSince(o.Now, created) > o.CutoffDays {
			return model.Post{}, DropStale
		}
	}

	ul := t.UserLegacy()
	if ul == nil {
		ul = &model.UserLegacy{}
	}
	id := missingSegment
	if l.IDStr != nil {
		id = *l.IDStr
	} else if t.Raw != nil && t.Raw.Result != nil && t.Raw.Result.RestID != "" {
		id = t.Raw.Result.RestID
	}
	screenName := missingSegment
	if ul.ScreenName != nil {
		screenName = *ul.ScreenName
	}

	media := t.MediaItems()
	return model.Post{
		User: model.PostUser{
			ScreenName:      ul.ScreenName,
			Name:            ul.Name,
			ProfileImageURL: ul.ProfileImageURLHTTPS,
			Description:     ul.Description,
			FollowersCount:  ul.FollowersCount,
			FriendsCount:    ul.FriendsCount,
			Location:        ul.Location,
		},
		Images:   photoURLs(media),
		Videos:   videoURLs(media),
		TweetURL: fmt.Sprintf("https://%s/%s/status/%s", o.host(), screenName, id),
		FullText: fullText,
	}, Kept
}

var createdAtLayouts = []string{
	time.RubyDate, // Wed Oct 10 20:19:24 +0000 2018
	time.RFC3339,
	time.RFC1123Z,
}

// ParseCreatedAt accepts the API's legacy timestamp and a few ISO forms.
func ParseCreatedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysSince counts whole days from then to now, truncated toward zero.
func DaysSince(now, then time.Time) int {
	return int(now.Sub(then) / (24 * time.Hour))
}

// photoURLs keeps one entry per photo, empty when the URL is missing.
func photoURLs(media []model.Media) []string {
	out := []string{}
	for _, m := range media {
		if m.Type == "photo" {
			out = append(out, m.MediaURLHTTPS)
		}
	}
	return out
}

func videoURLs(media []model.Media) []string {
	out := []string{}
	for _, m := range media {
		if m.Type != "video" && m.Type != "animated_gif" {
			continue
		}
		if u := bestVariant(m.VideoInfo); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// bestVariant picks the highest-bitrate mp4; missing bitrate counts as 0 and
// ties keep the earlier variant.
func bestVariant(v *model.VideoInfo) string {
	if v == nil {
		return ""
	}
	best, bestRate := "", int64(-1)
	for _, vr := range v.Variants {
		if vr.ContentType != "video/mp4" {
			continue
		}
		var rate int64
		if vr.Bitrate != nil {
			rate = *vr.Bitrate
		}
		if rate > bestRate {
			best, bestRate = vr.URL, rate
		}
	}
	return best
}
