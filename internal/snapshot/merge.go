package snapshot

import (
	"sort"
	"strings"

	"xharvest/internal/model"
)

// Merge deduplicates existing ++ fresh by tweet URL and sorts the result by
// post ID, newest first. The last record for a URL wins; it takes the slot of
// the first record with that URL before sorting.
func Merge(existing, fresh []model.Post) []model.Post {
	index := make(map[string]int, len(existing)+len(fresh))
	out := make([]model.Post, 0, len(existing)+len(fresh))
	for _, batch := range [][]model.Post{existing, fresh} {
		for _, p := range batch {
			if i, ok := index[p.TweetURL]; ok {
				out[i] = p
				continue
			}
			index[p.TweetURL] = len(out)
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return PostID(out[i].TweetURL) > PostID(out[j].TweetURL)
	})
	return out
}

// PostID returns the last path segment of a post URL.
//
// IDs compare as strings: equal-length IDs order numerically, mixed lengths
// do not ("999" sorts above "1000").
func PostID(tweetURL string) string {
	if i := strings.LastIndex(tweetURL, "/"); i >= 0 {
		return tweetURL[i+1:]
	}
	return tweetURL
}
