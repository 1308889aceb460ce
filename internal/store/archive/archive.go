package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"

	"xharvest/internal/model"
	"xharvest/internal/snapshot"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB keeps every post ever written to a snapshot plus a log of runs.
type DB struct{ sql *sql.DB }

// Run is one recorded pipeline execution.
type Run struct {
	ID         string
	Started    time.Time
	Finished   time.Time
	Mode       string
	Fetched    int
	Written    int
	OutputPath string
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", path)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, errors.Wrap(err, "configure archive")
	}
	if err := migrateUp(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return &DB{sql: d}, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func migrateUp(d *sql.DB) error {
	driver, err := sqlite.WithInstance(d, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "create sqlite migrate driver")
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "create iofs source")
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "create migrate instance")
	}
	// m.Close would close d as well
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "run archive migrations")
	}
	return nil
}

// UpsertPosts inserts new posts and refreshes payload and last_seen of known
// ones. first_seen never changes after the first insert.
func (d *DB) UpsertPosts(ctx context.Context, posts []model.Post, seen time.Time) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin upsert")
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO posts(tweet_url, post_id, screen_name, payload, first_seen, last_seen)
	VALUES(?,?,?,?,?,?)
	ON CONFLICT(tweet_url) DO UPDATE SET payload=excluded.payload, last_seen=excluded.last_seen`)
	if err != nil {
		return errors.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()
	ts := seen.Unix()
	for _, p := range posts {
		payload, err := json.Marshal(p)
		if err != nil {
			return errors.Wrapf(err, "encode %s", p.TweetURL)
		}
		screenName := ""
		if p.User.ScreenName != nil {
			screenName = *p.User.ScreenName
		}
		if _, err := stmt.ExecContext(ctx, p.TweetURL, snapshot.PostID(p.TweetURL), screenName, string(payload), ts, ts); err != nil {
			return errors.Wrapf(err, "upsert %s", p.TweetURL)
		}
	}
	return errors.Wrap(tx.Commit(), "commit upsert")
}

// CountPosts returns the number of distinct archived posts.
func (d *DB) CountPosts(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, errors.Wrap(err, "count posts")
}

// FirstSeen reports when a post URL was first archived.
func (d *DB) FirstSeen(ctx context.Context, tweetURL string) (time.Time, error) {
	var ts int64
	err := d.sql.QueryRowContext(ctx, `SELECT first_seen FROM posts WHERE tweet_url=?`, tweetURL).Scan(&ts)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "first seen %s", tweetURL)
	}
	return time.Unix(ts, 0).UTC(), nil
}

// RecordRun stores r, assigning a new ID when r.ID is empty.
func (d *DB) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO runs(id, started, finished, mode, fetched, written, output_path) VALUES(?,?,?,?,?,?,?)`,
		r.ID, r.Started.UnixMilli(), r.Finished.UnixMilli(), r.Mode, r.Fetched, r.Written, r.OutputPath)
	if err != nil {
		return "", errors.Wrap(err, "record run")
	}
	return r.ID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (d *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, started, finished, mode, fetched, written, output_path FROM runs ORDER BY started DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Mode, &r.Fetched, &r.Written, &r.OutputPath); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		r.Started = time.UnixMilli(started).UTC()
		r.Finished = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate runs")
}
