// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	once sync.Once

	// Counters
	RunsStarted        prometheus.Counter
	RunsAborted        prometheus.Counter
	RunsEmpty          prometheus.Counter
	SummaryFallbacks   prometheus.Counter
	RenderFailures     prometheus.Counter
	PublishesSucceeded prometheus.Counter
	PublishesFailed    prometheus.Counter

	// Histograms (seconds)
	FetchDuration     prometheus.Observer
	SummarizeDuration prometheus.Observer
	RenderDuration    prometheus.Observer
	PublishDuration   prometheus.Observer
	RunDuration       prometheus.Observer

	// Gauges
	MessagesFetchedGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		RunsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "digest_runs_started_total", Help: "Number of digest runs started"})
		RunsAborted = promauto.NewCounter(prometheus.CounterOpts{Name: "digest_runs_aborted_total", Help: "Number of digest runs aborted on a hard fetch error"})
		RunsEmpty = promauto.NewCounter(prometheus.CounterOpts{Name: "digest_runs_empty_total", Help: "Number of digest runs that found no messages"})
		SummaryFallbacks = promauto.NewCounter(prometheus.CounterOpts{Name: "digest_summary_fallbacks_total", Help: "Number of runs that published a fixed fallback summary"})
		RenderFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "digest_render_failures_total", Help: "Number of audio render failures (run degraded to text-only)"})
		PublishesSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "digest_publishes_succeeded_total", Help: "Number of successful publishes"})
		PublishesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "digest_publishes_failed_total", Help: "Number of failed publishes"})
		FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "digest_fetch_duration_seconds", Help: "Message fetch duration seconds", Buckets: prometheus.DefBuckets})
		SummarizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "digest_summarize_duration_seconds", Help: "Summarization duration seconds", Buckets: prometheus.DefBuckets})
		RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "digest_render_duration_seconds", Help: "Audio render duration seconds", Buckets: prometheus.DefBuckets})
		PublishDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "digest_publish_duration_seconds", Help: "Publish duration seconds", Buckets: prometheus.DefBuckets})
		RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "digest_run_duration_seconds", Help: "Total run duration seconds", Buckets: prometheus.DefBuckets})
		MessagesFetchedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "digest_messages_fetched", Help: "Messages fetched for the current run"})
	})
}

// Inc increments a counter if metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetMessagesFetched records how many messages the run retrieved.
func SetMessagesFetched(n int) {
	if MessagesFetchedGauge != nil {
		MessagesFetchedGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// PushMetrics pushes the default registry to a Pushgateway when PUSHGATEWAY_URL is set.
// The digest is a one-shot batch job, so there is no long-lived /metrics endpoint to scrape.
func PushMetrics(ctx context.Context) {
	gw := os.Getenv("PUSHGATEWAY_URL")
	if gw == "" {
		return
	}
	if err := push.New(gw, "radio_digest").Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		slog.Warn("metrics push failed", slog.Any("err", err))
		return
	}
	slog.Info("metrics pushed", slog.String("gateway", gw))
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
