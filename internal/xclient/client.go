package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"xharvest/internal/config"
	"xharvest/internal/metrics"
	"xharvest/internal/model"
)

// Timeline is the part of the X API the harvester uses.
type Timeline interface {
	SearchTimeline(ctx context.Context, p SearchParams) ([]model.RawTweet, error)
	HomeLatestTimeline(ctx context.Context, count int) ([]model.RawTweet, error)
}

// SearchParams mirrors the web client's search request.
type SearchParams struct {
	RawQuery string
	Count    int
	Product  string // Latest, Top
}

// Public bearer token shipped with the X web client.
const webBearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// HTTPClient talks to the X web GraphQL API using a logged-in session.
type HTTPClient struct {
	baseURL       string
	bearerToken   string
	authToken     string
	csrfToken     string
	searchQueryID string
	homeQueryID   string
	httpClient    *http.Client
	limiter       *rate.Limiter
	maxAttempts   int
	baseBackoff   time.Duration
}

func NewHTTPClient(creds config.CredentialsConfig, api config.APIConfig) *HTTPClient {
	bearer := creds.BearerToken
	if bearer == "" {
		bearer = webBearerToken
	}
	timeout := api.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:       strings.TrimRight(api.GraphQLBaseURL, "/"),
		bearerToken:   bearer,
		authToken:     creds.AuthToken,
		csrfToken:     creds.CSRFToken,
		searchQueryID: api.SearchQueryID,
		homeQueryID:   api.HomeQueryID,
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       newDefaultLimiter(),
		maxAttempts:   getEnvInt("X_API_MAX_ATTEMPTS", 5),
		baseBackoff:   time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// New picks the session client when cookies are configured and the OAuth1
// v1.1 client otherwise.
func New(cfg config.Config) (Timeline, error) {
	switch {
	case cfg.Credentials.HasSession():
		return NewHTTPClient(cfg.Credentials, cfg.API), nil
	case cfg.Credentials.HasOAuth1():
		base := NewHTTPClient(cfg.Credentials, cfg.API)
		c := cfg.Credentials
		return NewV1Client(base, cfg.API.V1BaseURL, c.ConsumerKey, c.ConsumerSecret, c.AccessToken, c.AccessSecret), nil
	default:
		return nil, errors.New("no X credentials: set X_AUTH_TOKEN and X_CSRF_TOKEN, or the X_CONSUMER_*/X_ACCESS_* keys")
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	if c.authToken != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: c.authToken})
		req.Header.Set("X-Twitter-Auth-Type", "OAuth2Session")
	}
	if c.csrfToken != "" {
		req.AddCookie(&http.Cookie{Name: "ct0", Value: c.csrfToken})
		req.Header.Set("X-Csrf-Token", c.csrfToken)
	}
	req.Header.Set("X-Twitter-Active-User", "yes")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// SearchTimeline runs a raw search query, e.g. "from:golang".
func (c *HTTPClient) SearchTimeline(ctx context.Context, p SearchParams) ([]model.RawTweet, error) {
	product := p.Product
	if product == "" {
		product = "Latest"
	}
	vars := map[string]any{
		"rawQuery":    p.RawQuery,
		"count":       clamp(p.Count, 1, 100),
		"querySource": "typed_query",
		"product":     product,
	}
	var out graphqlResponse
	if err := c.query(ctx, c.searchQueryID, "SearchTimeline", vars, &out); err != nil {
		return nil, err
	}
	if out.Data.SearchByRawQuery == nil {
		return nil, out.err()
	}
	return out.Data.SearchByRawQuery.SearchTimeline.Timeline.tweets(), nil
}

// HomeLatestTimeline returns the chronological home feed.
func (c *HTTPClient) HomeLatestTimeline(ctx context.Context, count int) ([]model.RawTweet, error) {
	vars := map[string]any{
		"count":                  clamp(count, 1, 200),
		"includePromotedContent": false,
		"latestControlAvailable": true,
	}
	var out graphqlResponse
	if err := c.query(ctx, c.homeQueryID, "HomeLatestTimeline", vars, &out); err != nil {
		return nil, err
	}
	if out.Data.Home == nil {
		return nil, out.err()
	}
	return out.Data.Home.HomeTimelineURT.tweets(), nil
}

func (c *HTTPClient) query(ctx context.Context, queryID, operation string, vars map[string]any, out any) error {
	vb, err := json.Marshal(vars)
	if err != nil {
		return err
	}
	fb, _ := json.Marshal(defaultFeatures)
	q := url.Values{}
	q.Set("variables", string(vb))
	q.Set("features", string(fb))
	u := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, url.PathEscape(queryID), operation, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.auth(req)
	return c.getJSON(ctx, req, out)
}

// getJSON waits for the limiter, sends req with retries and decodes the body.
func (c *HTTPClient) getJSON(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("x api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(req.URL.Path)
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode != http.StatusTooManyRequests && (resp.StatusCode < 500 || resp.StatusCode > 599) {
				return resp, nil
			}
			if attempt == c.maxAttempts {
				return resp, nil
			}
			ra := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			wait := backoff
			if ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			// jitter +/-20%
			jitter := time.Duration(float64(wait) * 0.2)
			if jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
