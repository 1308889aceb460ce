package snapshot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"xharvest/internal/logging"
	"xharvest/internal/model"
)

const dateLayout = "2006-01-02"

// Path names the snapshot file for the local calendar day of now.
func Path(dir string, now time.Time) string {
	return filepath.Join(dir, now.Local().Format(dateLayout)+".json")
}

// Load reads a snapshot. A missing file yields nil and no error.
func Load(path string) ([]model.Post, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read snapshot %s", path)
	}
	var posts []model.Post
	if err := json.Unmarshal(b, &posts); err != nil {
		return nil, errors.Wrapf(err, "parse snapshot %s", path)
	}
	for i := range posts {
		if posts[i].Images == nil {
			posts[i].Images = []string{}
		}
		if posts[i].Videos == nil {
			posts[i].Videos = []string{}
		}
	}
	return posts, nil
}

// Encode renders posts as two-space indented JSON without HTML escaping.
func Encode(posts []model.Post) ([]byte, error) {
	if posts == nil {
		posts = []model.Post{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(posts); err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Write replaces the snapshot at path, creating its directory when needed.
func Write(path string, posts []model.Post) error {
	b, err := Encode(posts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create snapshot dir for %s", path)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write snapshot %s", path)
	}
	logging.Info("snapshot_written", map[string]any{"path": path, "posts": len(posts)})
	return nil
}
