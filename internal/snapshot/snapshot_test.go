package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xharvest/internal/model"
)

func post(screenName, id, text string) model.Post {
	sn := screenName
	return model.Post{
		User:     model.PostUser{ScreenName: &sn},
		Images:   []string{},
		Videos:   []string{},
		TweetURL: "https://x.com/" + screenName + "/status/" + id,
		FullText: text,
	}
}

func urls(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = PostID(p.TweetURL)
	}
	return out
}

func TestMergeLastRecordWins(t *testing.T) {
	existing := []model.Post{post("a", "5", "old"), post("b", "7", "keep")}
	fresh := []model.Post{post("a", "5", "new"), post("c", "6", "fresh")}
	got := Merge(existing, fresh)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"7", "6", "5"}, urls(got))
	assert.Equal(t, "new", got[2].FullText)
}

func TestMergeDuplicatesWithinFresh(t *testing.T) {
	got := Merge(nil, []model.Post{post("a", "1", "first"), post("a", "1", "second")})
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].FullText)
}

func TestMergeSortsDescendingAsStrings(t *testing.T) {
	got := Merge(nil, []model.Post{
		post("a", "1800000000000000001", ""),
		post("a", "1800000000000000003", ""),
		post("a", "1800000000000000002", ""),
	})
	assert.Equal(t, []string{"1800000000000000003", "1800000000000000002", "1800000000000000001"}, urls(got))
}

func TestMergeMixedLengthIDsCompareAsStrings(t *testing.T) {
	got := Merge(nil, []model.Post{post("a", "1000", ""), post("a", "999", ""), post("a", "1001", "")})
	assert.Equal(t, []string{"999", "1001", "1000"}, urls(got))
}

func TestMergeEmpty(t *testing.T) {
	got := Merge(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPathUsesLocalDate(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.Local)
	assert.Equal(t, filepath.Join("tweets", "2025-03-09.json"), Path("tweets", now))
}

func TestLoadMissingFile(t *testing.T) {
	posts, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Nil(t, posts)
}

func TestLoadMalformedFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse snapshot")
}

func TestWriteCreatesDirAndFormats(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tweets", "2025-03-09.json")
	in := post("a", "1", "a <b> & c")
	in.Images = []string{"https://pbs.twimg.com/a.jpg"}
	require.NoError(t, Write(p, []model.Post{in}))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.HasPrefix(s, "[\n  {\n    \"user\": {\n      \"screenName\": \"a\"\n    },"), s)
	assert.Contains(t, s, `"fullText": "a <b> & c"`)
	assert.Contains(t, s, `"videos": []`)
	assert.False(t, strings.HasSuffix(s, "\n"))

	back, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []model.Post{in}, back)
}

func TestWriteEmptySnapshot(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, Write(p, nil))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestRewriteIsIdempotent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "day.json")
	posts := []model.Post{post("a", "2", "x"), post("b", "1", "y")}
	require.NoError(t, Write(p, Merge(nil, posts)))
	first, err := os.ReadFile(p)
	require.NoError(t, err)

	existing, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, Write(p, Merge(existing, posts)))
	second, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadFillsMissingMediaLists(t *testing.T) {
	p := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(p, []byte(`[{"user":{},"tweetUrl":"https://x.com/a/status/1","fullText":"hi","extra":1}]`), 0o644))
	posts, err := Load(p)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.NotNil(t, posts[0].Images)
	assert.NotNil(t, posts[0].Videos)
}
