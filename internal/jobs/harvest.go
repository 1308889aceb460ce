package jobs

import (
	"context"
	"time"

	"xharvest/internal/config"
	"xharvest/internal/ingest"
	"xharvest/internal/logging"
	"xharvest/internal/metrics"
	"xharvest/internal/model"
	"xharvest/internal/schedule"
	"xharvest/internal/snapshot"
	"xharvest/internal/store/archive"
	"xharvest/internal/xclient"
)

const (
	ModeAccounts = "accounts"
	ModeHome     = "home"
)

// Archiver is the subset of the archive a run writes to.
type Archiver interface {
	UpsertPosts(ctx context.Context, posts []model.Post, seen time.Time) error
	RecordRun(ctx context.Context, r archive.Run) (string, error)
}

// Runner executes the harvest pipeline. Archive is optional.
type Runner struct {
	Client  xclient.Timeline
	Config  config.Config
	Archive Archiver
	Now     func() time.Time
}

// Result summarizes one run.
type Result struct {
	RunID      string
	Mode       string
	Fetched    int
	Written    int
	OutputPath string
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RunOnce loads tracked accounts, fetches and filters their posts (or the
// home timeline when there are none), merges them into today's snapshot and
// writes it back.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	start := r.now()
	defer metrics.ObserveRunDuration(time.Now())
	cfg := r.Config

	accounts, err := config.LoadAccounts(cfg.Fetch.AccountsPath)
	if err != nil {
		return Result{}, err
	}

	res := Result{OutputPath: snapshot.Path(cfg.Output.Dir, start)}
	var posts []model.Post
	if len(accounts) > 0 {
		res.Mode = ModeAccounts
		posts = ingest.FromAccounts(ctx, r.Client, accounts, ingest.Options{
			Count:      cfg.Fetch.PerAccountCount,
			CutoffDays: cfg.Fetch.PerAccountCutoffDays,
			Product:    cfg.Fetch.Product,
			Host:       cfg.Output.Host,
			Now:        start,
		})
	} else {
		res.Mode = ModeHome
		posts, err = ingest.FromHome(ctx, r.Client, ingest.Options{
			Count:      cfg.Fetch.HomeCount,
			CutoffDays: cfg.Fetch.HomeCutoffDays,
			Host:       cfg.Output.Host,
			Now:        start,
		})
		if err != nil {
			return res, err
		}
	}
	res.Fetched = len(posts)

	existing, err := snapshot.Load(res.OutputPath)
	if err != nil {
		return res, err
	}
	merged := snapshot.Merge(existing, posts)
	if err := snapshot.Write(res.OutputPath, merged); err != nil {
		return res, err
	}
	res.Written = len(merged)
	metrics.PostsWritten.Set(float64(res.Written))
	logging.Info("run_complete", map[string]any{
		"mode": res.Mode, "fetched": res.Fetched, "posts": res.Written, "path": res.OutputPath,
	})

	r.archive(ctx, &res, posts, start)
	return res, nil
}

// archive failures are logged and counted only; the snapshot is already on disk.
func (r *Runner) archive(ctx context.Context, res *Result, posts []model.Post, start time.Time) {
	if r.Archive == nil {
		return
	}
	if err := r.Archive.UpsertPosts(ctx, posts, start); err != nil {
		metrics.ArchiveErrors.Inc()
		logging.Warn("archive_posts_error", map[string]any{"error": err.Error()})
	}
	id, err := r.Archive.RecordRun(ctx, archive.Run{
		Started:    start,
		Finished:   r.now(),
		Mode:       res.Mode,
		Fetched:    res.Fetched,
		Written:    res.Written,
		OutputPath: res.OutputPath,
	})
	if err != nil {
		metrics.ArchiveErrors.Inc()
		logging.Warn("archive_run_error", map[string]any{"error": err.Error()})
		return
	}
	res.RunID = id
}

// RunLoop runs RunOnce immediately and then on every interval tick until ctx
// is cancelled. Ticks inside quiet hours are skipped and per-run errors are
// logged without stopping the loop.
func (r *Runner) RunLoop(ctx context.Context, interval time.Duration, quietHours []int) error {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	r.tick(ctx, quietHours)
	for {
		select {
		case <-ctx.Done():
			logging.Info("watch_stop", nil)
			return ctx.Err()
		case <-t.C:
			r.tick(ctx, quietHours)
		}
	}
}

func (r *Runner) tick(ctx context.Context, quietHours []int) {
	now := r.now()
	if next := schedule.NextWindow(now, quietHours); next.After(now) {
		logging.Info("watch_quiet", map[string]any{"resume_at": next.Format(time.RFC3339)})
		return
	}
	if _, err := r.RunOnce(ctx); err != nil {
		metrics.IncCommandError("watch_run")
		logging.Error("watch_run_error", map[string]any{"error": err.Error()})
	}
}
