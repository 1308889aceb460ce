package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenNameFromURL(t *testing.T) {
	assert.Equal(t, "gopher", TrackedAccount{TwitterURL: "https://x.com/gopher"}.ScreenName())
	assert.Equal(t, "", TrackedAccount{TwitterURL: "https://x.com/gopher/"}.ScreenName())
	assert.Equal(t, "plain", TrackedAccount{TwitterURL: "plain"}.ScreenName())
	assert.Equal(t, "", TrackedAccount{}.ScreenName())
}

func TestAccessorsOnEmptyTweet(t *testing.T) {
	var tw RawTweet
	assert.Nil(t, tw.UserLegacy())
	assert.Nil(t, tw.TweetLegacy())
	assert.Empty(t, tw.MediaItems())

	tw.Raw = &RawResult{}
	assert.Nil(t, tw.TweetLegacy())
	tw.Raw.Result = &TweetResult{Legacy: &TweetLegacy{}}
	assert.Empty(t, tw.MediaItems())
}

func TestPostUserOmitsAbsentFields(t *testing.T) {
	name := "Gopher"
	b, err := json.Marshal(PostUser{Name: &name})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Gopher"}`, string(b))
}
