package xclient

import (
	"errors"
	"strings"

	"xharvest/internal/model"
)

// Feature switches the web client sends with every timeline query.
var defaultFeatures = map[string]bool{
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"verified_phone_label_enabled":                                            false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                true,
	"tweet_awards_web_tipping_enabled":                                        false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"responsive_web_enhance_cards_enabled":                                    false,
}

type graphqlResponse struct {
	Data struct {
		SearchByRawQuery *struct {
			SearchTimeline struct {
				Timeline timelineBody `json:"timeline"`
			} `json:"search_timeline"`
		} `json:"search_by_raw_query"`
		Home *struct {
			HomeTimelineURT timelineBody `json:"home_timeline_urt"`
		} `json:"home"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"errors"`
}

func (r graphqlResponse) err() error {
	if len(r.Errors) == 0 {
		return errors.New("x graphql: empty data")
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return errors.New("x graphql: " + strings.Join(msgs, "; "))
}

type timelineBody struct {
	Instructions []struct {
		Type    string          `json:"type"`
		Entries []timelineEntry `json:"entries"`
		Entry   *timelineEntry  `json:"entry"`
	} `json:"instructions"`
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		ItemContent *itemContent `json:"itemContent"`
		Items       []struct {
			Item struct {
				ItemContent *itemContent `json:"itemContent"`
			} `json:"item"`
		} `json:"items"`
	} `json:"content"`
}

type itemContent struct {
	ItemType     string `json:"itemType"`
	TweetResults struct {
		Result *gqlTweet `json:"result"`
	} `json:"tweet_results"`
}

type gqlTweet struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Core     *struct {
		UserResults struct {
			Result *gqlUser `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy             *gqlTweetLegacy `json:"legacy"`
	Tweet              *gqlTweet       `json:"tweet"`
	QuotedStatusResult *struct {
		Result *gqlTweet `json:"result"`
	} `json:"quoted_status_result"`
}

type gqlTweetLegacy struct {
	model.TweetLegacy
	RetweetedStatusResult *struct {
		Result *gqlTweet `json:"result"`
	} `json:"retweeted_status_result"`
}

type gqlUser struct {
	RestID string            `json:"rest_id"`
	Legacy *model.UserLegacy `json:"legacy"`
	// Newer payloads move handle and name out of legacy.
	Core *struct {
		ScreenName *string `json:"screen_name"`
		Name       *string `json:"name"`
	} `json:"core"`
	Avatar *struct {
		ImageURL *string `json:"image_url"`
	} `json:"avatar"`
}

func (b timelineBody) tweets() []model.RawTweet {
	var out []model.RawTweet
	add := func(ic *itemContent) {
		if ic == nil || ic.TweetResults.Result == nil {
			return
		}
		out = append(out, ic.TweetResults.Result.toRaw())
	}
	for _, ins := range b.Instructions {
		entries := ins.Entries
		if ins.Entry != nil {
			entries = append(entries, *ins.Entry)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.EntryID, "promoted-") {
				continue
			}
			add(e.Content.ItemContent)
			for _, it := range e.Content.Items {
				add(it.Item.ItemContent)
			}
		}
	}
	return out
}

func (t *gqlTweet) toRaw() model.RawTweet {
	if t.TypeName == "TweetWithVisibilityResults" && t.Tweet != nil {
		t = t.Tweet
	}
	res := &model.TweetResult{TypeName: t.TypeName, RestID: t.RestID}
	raw := model.RawTweet{Raw: &model.RawResult{Result: res}}
	if t.Core != nil && t.Core.UserResults.Result != nil {
		raw.User = t.Core.UserResults.Result.toRaw()
	}
	if t.Legacy == nil {
		return raw
	}
	legacy := t.Legacy.TweetLegacy
	res.Legacy = &legacy
	if id := legacy.InReplyToStatusIDStr; id != nil && *id != "" {
		raw.ReferencedTweets = append(raw.ReferencedTweets, model.ReferencedTweet{Type: "replied_to", ID: *id})
	}
	if id := legacy.QuotedStatusIDStr; id != nil && *id != "" {
		raw.ReferencedTweets = append(raw.ReferencedTweets, model.ReferencedTweet{Type: "quoted", ID: *id})
	} else if t.QuotedStatusResult != nil && t.QuotedStatusResult.Result != nil {
		raw.ReferencedTweets = append(raw.ReferencedTweets, model.ReferencedTweet{Type: "quoted", ID: t.QuotedStatusResult.Result.RestID})
	}
	if rt := t.Legacy.RetweetedStatusResult; rt != nil && rt.Result != nil {
		inner := rt.Result
		if inner.Tweet != nil {
			inner = inner.Tweet
		}
		raw.ReferencedTweets = append(raw.ReferencedTweets, model.ReferencedTweet{Type: "retweeted", ID: inner.RestID})
	}
	return raw
}

func (u *gqlUser) toRaw() *model.RawUser {
	legacy := model.UserLegacy{}
	if u.Legacy != nil {
		legacy = *u.Legacy
	}
	if u.Core != nil {
		if legacy.ScreenName == nil {
			legacy.ScreenName = u.Core.ScreenName
		}
		if legacy.Name == nil {
			legacy.Name = u.Core.Name
		}
	}
	if legacy.ProfileImageURLHTTPS == nil && u.Avatar != nil {
		legacy.ProfileImageURLHTTPS = u.Avatar.ImageURL
	}
	return &model.RawUser{RestID: u.RestID, Legacy: &legacy}
}
