package metrics

import (
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xharvest/internal/logging"
)

var (
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xharvest_command_runs_total",
		Help: "Total command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xharvest_command_errors_total",
		Help: "Total failed command invocations",
	}, []string{"command"})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "xharvest_run_duration_seconds",
		Help:    "Harvest run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	AccountErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xharvest_account_errors_total",
		Help: "Per-account fetch failures",
	})
	PostsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xharvest_posts_fetched_total",
		Help: "Raw posts returned by the API",
	}, []string{"mode"})
	PostsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xharvest_posts_dropped_total",
		Help: "Posts discarded by the filter",
	}, []string{"reason"})
	PostsWritten = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "xharvest_snapshot_posts",
		Help: "Posts in the last written snapshot",
	})
	ArchiveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xharvest_archive_errors_total",
		Help: "Archive write failures",
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xharvest_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(CommandRuns, CommandErrors, RunDuration, AccountErrors,
		PostsFetched, PostsDropped, PostsWritten, ArchiveErrors, APIRetries)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logging.Error("metrics_listen_error", map[string]any{"addr": addr, "error": err.Error()})
		return
	}
	logging.Info("metrics_listen", map[string]any{"addr": ln.Addr().String()})
	go func() {
		if err := http.Serve(ln, mux); err != nil {
			logging.Error("metrics_serve_error", map[string]any{"addr": addr, "error": err.Error()})
		}
	}()
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// format. Empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, prometheus.DefaultGatherer), "write metrics textfile")
}

// ObserveRunDuration records a run duration
func ObserveRunDuration(start time.Time) {
	RunDuration.Observe(time.Since(start).Seconds())
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncDropped(reason string) { PostsDropped.WithLabelValues(reason).Inc() }
