package xclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"xharvest/internal/model"
)

// V1Client serves the same timelines from API v1.1 via OAuth 1.0a. Statuses
// already use the legacy field layout, so they map onto RawTweet directly.
type V1Client struct {
	Base           *HTTPClient
	baseURL        string
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	nowFn          func() time.Time
	nonceFn        func() string
}

func NewV1Client(base *HTTPClient, baseURL, ck, cs, at, as string) *V1Client {
	if baseURL == "" {
		baseURL = "https://api.twitter.com/1.1"
	}
	return &V1Client{
		Base:           base,
		baseURL:        strings.TrimRight(baseURL, "/"),
		ConsumerKey:    ck,
		ConsumerSecret: cs,
		AccessToken:    at,
		AccessSecret:   as,
		nowFn:          time.Now,
		nonceFn:        func() string { return strconv.FormatInt(rand.Int63(), 36) },
	}
}

type v1Status struct {
	model.TweetLegacy
	User *struct {
		IDStr string `json:"id_str"`
		model.UserLegacy
	} `json:"user"`
	RetweetedStatus *struct {
		IDStr string `json:"id_str"`
	} `json:"retweeted_status"`
}

// SearchTimeline maps Latest to result_type=recent and Top to popular.
func (c *V1Client) SearchTimeline(ctx context.Context, p SearchParams) ([]model.RawTweet, error) {
	resultType := "recent"
	if strings.EqualFold(p.Product, "Top") {
		resultType = "popular"
	}
	params := map[string]string{
		"q":           p.RawQuery,
		"count":       strconv.Itoa(clamp(p.Count, 1, 100)),
		"result_type": resultType,
		"tweet_mode":  "extended",
	}
	var raw struct {
		Statuses []v1Status `json:"statuses"`
	}
	if err := c.get(ctx, "/search/tweets.json", params, &raw); err != nil {
		return nil, err
	}
	return mapV1(raw.Statuses), nil
}

// HomeLatestTimeline returns recent tweets from the user's home timeline.
func (c *V1Client) HomeLatestTimeline(ctx context.Context, count int) ([]model.RawTweet, error) {
	params := map[string]string{
		"count":      strconv.Itoa(clamp(count, 5, 200)),
		"tweet_mode": "extended",
	}
	var raw []v1Status
	if err := c.get(ctx, "/statuses/home_timeline.json", params, &raw); err != nil {
		return nil, err
	}
	return mapV1(raw), nil
}

func (c *V1Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	reqURL := c.baseURL + path + "?" + encodeQuery(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	c.oauth1Sign(req, params)
	if err := c.Base.getJSON(ctx, req, out); err != nil {
		return fmt.Errorf("x v1 %s: %w", path, err)
	}
	return nil
}

func mapV1(statuses []v1Status) []model.RawTweet {
	out := make([]model.RawTweet, 0, len(statuses))
	for _, s := range statuses {
		legacy := s.TweetLegacy
		t := model.RawTweet{Raw: &model.RawResult{Result: &model.TweetResult{Legacy: &legacy}}}
		if legacy.IDStr != nil {
			t.Raw.Result.RestID = *legacy.IDStr
		}
		if s.User != nil {
			ul := s.User.UserLegacy
			t.User = &model.RawUser{RestID: s.User.IDStr, Legacy: &ul}
		}
		if id := legacy.InReplyToStatusIDStr; id != nil && *id != "" {
			t.ReferencedTweets = append(t.ReferencedTweets, model.ReferencedTweet{Type: "replied_to", ID: *id})
		}
		if id := legacy.QuotedStatusIDStr; id != nil && *id != "" {
			t.ReferencedTweets = append(t.ReferencedTweets, model.ReferencedTweet{Type: "quoted", ID: *id})
		}
		if s.RetweetedStatus != nil {
			t.ReferencedTweets = append(t.ReferencedTweets, model.ReferencedTweet{Type: "retweeted", ID: s.RetweetedStatus.IDStr})
		}
		out = append(out, t)
	}
	return out
}

func (c *V1Client) oauth1Sign(req *http.Request, queryParams map[string]string) {
	oauth := map[string]string{
		"oauth_consumer_key":     c.ConsumerKey,
		"oauth_nonce":            c.nonceFn(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(c.nowFn().Unix(), 10),
		"oauth_token":            c.AccessToken,
		"oauth_version":          "1.0",
	}
	oauth["oauth_signature"] = c.signature(req.Method, req.URL, oauth, queryParams)
	hdrKeys := make([]string, 0, len(oauth))
	for k := range oauth {
		hdrKeys = append(hdrKeys, k)
	}
	sort.Strings(hdrKeys)
	authParts := make([]string, 0, len(hdrKeys))
	for _, k := range hdrKeys {
		authParts = append(authParts, fmt.Sprintf("%s=\"%s\"", rfc3986(k), rfc3986(oauth[k])))
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(authParts, ", "))
	req.Header.Set("Accept", "application/json")
}

// signature computes the HMAC-SHA1 signature over the sorted union of oauth
// and query parameters.
func (c *V1Client) signature(method string, u *url.URL, oauth, queryParams map[string]string) string {
	all := make(map[string]string, len(oauth)+len(queryParams))
	for k, v := range oauth {
		all[k] = v
	}
	for k, v := range queryParams {
		all[k] = v
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	paramParts := make([]string, 0, len(keys))
	for _, k := range keys {
		paramParts = append(paramParts, rfc3986(k)+"="+rfc3986(all[k]))
	}
	baseURL := u.Scheme + "://" + u.Host + u.Path
	base := method + "&" + rfc3986(baseURL) + "&" + rfc3986(strings.Join(paramParts, "&"))
	signingKey := rfc3986(c.ConsumerSecret) + "&" + rfc3986(c.AccessSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	_, _ = mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func encodeQuery(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, rfc3986(k)+"="+rfc3986(m[k]))
	}
	return strings.Join(parts, "&")
}

// RFC 3986 percent-encoding for OAuth
func rfc3986(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(url.QueryEscape(s), "+", "%20"), "*", "%2A")
}
