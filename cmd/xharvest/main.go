package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"

	"xharvest/internal/cmdlog"
	"xharvest/internal/config"
	"xharvest/internal/jobs"
	"xharvest/internal/logging"
	"xharvest/internal/metrics"
	"xharvest/internal/store/archive"
	"xharvest/internal/theme"
	"xharvest/internal/xclient"
)

type globalOptions struct {
	Config   string `short:"c" long:"config" env:"XHARVEST_CONFIG" default:"./xharvest.yaml" description:"Config file (optional)"`
	LogLevel string `long:"log-level" description:"Log level: debug, info, warn, error"`
}

var opts globalOptions

type fetchCommand struct{}

type initCommand struct {
	Path string `long:"path" default:"./xharvest.yaml" description:"Where to write the config"`
}

type watchCommand struct {
	Interval    time.Duration `long:"interval" description:"Time between runs (default from config)"`
	MetricsAddr string        `long:"metrics-addr" description:"Serve /metrics on this address"`
}

type historyCommand struct {
	Limit int `long:"limit" default:"10" description:"Number of runs to show"`
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	mustAdd(parser, "fetch", "Fetch posts into today's snapshot (default)", &fetchCommand{})
	mustAdd(parser, "init", "Write a default config file", &initCommand{})
	mustAdd(parser, "watch", "Fetch repeatedly on an interval", &watchCommand{})
	mustAdd(parser, "history", "Show recent archived runs", &historyCommand{})

	if _, err := parser.Parse(); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
	if parser.Active == nil {
		if err := (&fetchCommand{}).Execute(nil); err != nil {
			os.Exit(1)
		}
	}
}

func mustAdd(p *flags.Parser, name, short string, data any) {
	if _, err := p.AddCommand(name, short, short, data); err != nil {
		panic(err)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return cfg, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	logging.SetLevel(cfg.Log.Level)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newRunner wires the client and, when configured, the archive. The returned
// close func is always safe to call.
func newRunner(cfg config.Config) (*jobs.Runner, func(), error) {
	client, err := xclient.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	r := &jobs.Runner{Client: client, Config: cfg}
	if cfg.Storage.DBPath == "" {
		return r, func() {}, nil
	}
	db, err := archive.Open(cfg.Storage.DBPath)
	if err != nil {
		metrics.ArchiveErrors.Inc()
		logging.Warn("archive_open_error", map[string]any{"path": cfg.Storage.DBPath, "error": err.Error()})
		return r, func() {}, nil
	}
	r.Archive = db
	return r, func() { _ = db.Close() }, nil
}

func (c *fetchCommand) Execute(_ []string) error {
	return cmdlog.Run("fetch", func() error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r, closeFn, err := newRunner(cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		ctx, cancel := signalContext()
		defer cancel()

		res, err := r.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %d tweets to %s\n", res.Written, res.OutputPath)
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logging.Warn("metrics_textfile_error", map[string]any{"error": err.Error()})
		}
		return nil
	})
}

func (c *initCommand) Execute(_ []string) error {
	return cmdlog.Run("init", func() error {
		if err := config.Save(c.Path, config.Default()); err != nil {
			return errors.Wrap(err, "write config")
		}
		abs, _ := filepath.Abs(c.Path)
		theme.PrintBanner()
		fmt.Println("Config written to:", abs)
		return nil
	})
}

func (c *watchCommand) Execute(_ []string) error {
	return cmdlog.Run("watch", func() error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r, closeFn, err := newRunner(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		addr := c.MetricsAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		metrics.StartServer(addr)
		interval := c.Interval
		if interval <= 0 {
			interval = cfg.Watch.Interval
		}
		logging.Info("watch_start", map[string]any{"interval": interval.String(), "quiet_hours": cfg.Watch.QuietHours})

		ctx, cancel := signalContext()
		defer cancel()
		if err := r.RunLoop(ctx, interval, cfg.Watch.QuietHours); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}

func (c *historyCommand) Execute(_ []string) error {
	return cmdlog.Run("history", func() error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.DBPath == "" {
			return errors.New("archive disabled: storage.dbPath is empty")
		}
		db, err := archive.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		runs, err := db.RecentRuns(ctx, c.Limit)
		if err != nil {
			return err
		}
		total, err := db.CountPosts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Archived posts: %d\n", total)
		for _, run := range runs {
			fmt.Printf("%s  %-8s fetched=%-4d written=%-4d took=%s  %s\n",
				run.Started.Local().Format(time.RFC3339), run.Mode, run.Fetched, run.Written,
				run.Finished.Sub(run.Started).Round(time.Millisecond), run.OutputPath)
		}
		return nil
	})
}
