package ingest

import (
	"context"

	"github.com/pkg/errors"

	"xharvest/internal/logging"
	"xharvest/internal/metrics"
	"xharvest/internal/model"
	"xharvest/internal/xclient"
)

// FromAccounts searches recent posts of each tracked account in turn. A
// failing account is logged and skipped; it never aborts the batch.
func FromAccounts(ctx context.Context, client xclient.Timeline, accounts []model.TrackedAccount, o Options) []model.Post {
	logging.Info("fetch_accounts", map[string]any{"accounts": len(accounts)})
	out := []model.Post{}
	for _, a := range accounts {
		if ctx.Err() != nil {
			logging.Warn("fetch_accounts_cancelled", map[string]any{"error": ctx.Err().Error()})
			break
		}
		screenName := a.ScreenName()
		logging.Info("fetch_account", map[string]any{"username": a.Username, "screen_name": screenName})
		tweets, err := client.SearchTimeline(ctx, xclient.SearchParams{
			RawQuery: "from:" + screenName,
			Count:    o.Count,
			Product:  o.Product,
		})
		if err != nil {
			metrics.AccountErrors.Inc()
			logging.Error("fetch_account_error", map[string]any{"username": a.Username, "error": err.Error()})
			continue
		}
		if len(tweets) == 0 {
			logging.Info("fetch_account_empty", map[string]any{"username": a.Username})
			continue
		}
		logging.Info("fetch_account_ok", map[string]any{"username": a.Username, "tweets": len(tweets)})
		metrics.PostsFetched.WithLabelValues("accounts").Add(float64(len(tweets)))
		out = append(out, Filter(tweets, o)...)
	}
	return out
}

// FromHome reads the latest home timeline and keeps only posts that do not
// reference another post. Errors are returned to the caller.
func FromHome(ctx context.Context, client xclient.Timeline, o Options) ([]model.Post, error) {
	logging.Info("fetch_home", map[string]any{"count": o.Count})
	tweets, err := client.HomeLatestTimeline(ctx, o.Count)
	if err != nil {
		return nil, errors.Wrap(err, "fetch home timeline")
	}
	metrics.PostsFetched.WithLabelValues("home").Add(float64(len(tweets)))
	originals := make([]model.RawTweet, 0, len(tweets))
	for _, t := range tweets {
		if len(t.ReferencedTweets) > 0 {
			metrics.IncDropped(string(DropReference))
			continue
		}
		originals = append(originals, t)
	}
	logging.Info("fetch_home_ok", map[string]any{"tweets": len(tweets), "originals": len(originals)})
	return Filter(originals, o), nil
}

// Filter runs Extract over tweets, counting every drop by reason.
func Filter(tweets []model.RawTweet, o Options) []model.Post {
	out := make([]model.Post, 0, len(tweets))
	for _, t := range tweets {
		p, reason := Extract(t, o)
		if reason != Kept {
			metrics.IncDropped(string(reason))
			continue
		}
		out = append(out, p)
	}
	return out
}
