package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xharvest/internal/config"
	"xharvest/internal/model"
	"xharvest/internal/snapshot"
	"xharvest/internal/store/archive"
	"xharvest/internal/xclient"
)

var testNow = time.Date(2025, 3, 9, 12, 0, 0, 0, time.Local)

func ptr[T any](v T) *T { return &v }

func raw(id, sn, text string, quote bool) model.RawTweet {
	return model.RawTweet{
		User: &model.RawUser{Legacy: &model.UserLegacy{ScreenName: ptr(sn), Name: ptr("Name"), Location: ptr("Earth")}},
		Raw: &model.RawResult{Result: &model.TweetResult{RestID: id, Legacy: &model.TweetLegacy{
			IDStr:         ptr(id),
			FullText:      ptr(text),
			CreatedAt:     ptr(testNow.Add(-time.Hour).UTC().Format(time.RubyDate)),
			IsQuoteStatus: ptr(quote),
		}}},
	}
}

type fakeTimeline struct {
	mu       sync.Mutex
	search   []model.RawTweet
	home     []model.RawTweet
	homeErr  error
	searches int
	homes    int
}

func (f *fakeTimeline) SearchTimeline(ctx context.Context, p xclient.SearchParams) ([]model.RawTweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	return f.search, nil
}

func (f *fakeTimeline) HomeLatestTimeline(ctx context.Context, count int) ([]model.RawTweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.homes++
	return f.home, f.homeErr
}

func (f *fakeTimeline) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches + f.homes
}

func newRunner(t *testing.T, client xclient.Timeline, accountsJSON string) *Runner {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Fetch.AccountsPath = filepath.Join(dir, "dev-accounts.json")
	cfg.Output.Dir = filepath.Join(dir, "tweets")
	if accountsJSON != "" {
		require.NoError(t, os.WriteFile(cfg.Fetch.AccountsPath, []byte(accountsJSON), 0o644))
	}
	return &Runner{Client: client, Config: cfg, Now: func() time.Time { return testNow }}
}

func TestRunOnceAccountsKeepsOnlyOriginal(t *testing.T) {
	fake := &fakeTimeline{search: []model.RawTweet{
		raw("3", "gopher", "RT @other: repost", false),
		raw("2", "gopher", "quoting", true),
		raw("1", "gopher", "hello world", false),
	}}
	r := newRunner(t, fake, `[{"username":"Gopher","twitter_url":"https://x.com/gopher"}]`)

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeAccounts, res.Mode)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, filepath.Join(r.Config.Output.Dir, "2025-03-09.json"), res.OutputPath)

	posts, err := snapshot.Load(res.OutputPath)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	p := posts[0]
	assert.Equal(t, "https://x.com/gopher/status/1", p.TweetURL)
	assert.Equal(t, "hello world", p.FullText)
	assert.Equal(t, "gopher", *p.User.ScreenName)
	assert.Equal(t, "Earth", *p.User.Location)
	assert.Nil(t, p.User.Description)
}

func TestRunOnceHomeFiltersReferenced(t *testing.T) {
	reply := raw("20", "bob", "a reply", false)
	reply.ReferencedTweets = []model.ReferencedTweet{{Type: "replied_to", ID: "1"}}
	fake := &fakeTimeline{home: []model.RawTweet{raw("10", "alice", "original", false), reply}}
	r := newRunner(t, fake, "")

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeHome, res.Mode)
	assert.Equal(t, 1, fake.homes)
	assert.Equal(t, 0, fake.searches)

	posts, err := snapshot.Load(res.OutputPath)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "https://x.com/alice/status/10", posts[0].TweetURL)
}

func TestRunOnceHomeErrorIsFatal(t *testing.T) {
	r := newRunner(t, &fakeTimeline{homeErr: errors.New("401")}, "")
	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	_, statErr := os.Stat(snapshot.Path(r.Config.Output.Dir, testNow))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunOnceMalformedAccountsIsFatal(t *testing.T) {
	r := newRunner(t, &fakeTimeline{}, `{"broken"`)
	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
}

func TestRunOnceMergesWithExistingSnapshot(t *testing.T) {
	fake := &fakeTimeline{search: []model.RawTweet{raw("5", "gopher", "edited", false)}}
	r := newRunner(t, fake, `[{"username":"Gopher","twitter_url":"https://x.com/gopher"}]`)
	path := snapshot.Path(r.Config.Output.Dir, testNow)
	sn := "gopher"
	require.NoError(t, snapshot.Write(path, []model.Post{
		{User: model.PostUser{ScreenName: &sn}, Images: []string{}, Videos: []string{}, TweetURL: "https://x.com/gopher/status/5", FullText: "original"},
		{User: model.PostUser{ScreenName: &sn}, Images: []string{}, Videos: []string{}, TweetURL: "https://x.com/gopher/status/9", FullText: "older run"},
	}))

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	posts, err := snapshot.Load(path)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "https://x.com/gopher/status/9", posts[0].TweetURL)
	assert.Equal(t, "edited", posts[1].FullText)

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunOnceRecordsArchive(t *testing.T) {
	db, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer db.Close()

	fake := &fakeTimeline{search: []model.RawTweet{raw("1", "gopher", "hello", false)}}
	r := newRunner(t, fake, `[{"username":"Gopher","twitter_url":"https://x.com/gopher"}]`)
	r.Archive = db

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)

	n, err := db.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	runs, err := db.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, ModeAccounts, runs[0].Mode)
}

type failingArchive struct{}

func (failingArchive) UpsertPosts(context.Context, []model.Post, time.Time) error {
	return errors.New("disk full")
}

func (failingArchive) RecordRun(context.Context, archive.Run) (string, error) {
	return "", errors.New("disk full")
}

func TestRunOnceArchiveFailureIsNotFatal(t *testing.T) {
	fake := &fakeTimeline{search: []model.RawTweet{raw("1", "gopher", "hello", false)}}
	r := newRunner(t, fake, `[{"username":"Gopher","twitter_url":"https://x.com/gopher"}]`)
	r.Archive = failingArchive{}

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Equal(t, 1, res.Written)
}

func TestRunLoopRunsUntilCancelled(t *testing.T) {
	fake := &fakeTimeline{}
	r := newRunner(t, fake, "")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.RunLoop(ctx, 10*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, fake.calls(), 2)
}

func TestRunLoopSkipsQuietHours(t *testing.T) {
	fake := &fakeTimeline{}
	r := newRunner(t, fake, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_ = r.RunLoop(ctx, 10*time.Millisecond, []int{testNow.Hour()})
	assert.Equal(t, 0, fake.calls())
}
