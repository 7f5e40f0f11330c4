// Package metrics exposes Prometheus collectors for sync runs and the
// catalog server.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sourceRecordsTotal     *prometheus.CounterVec
	sourceFailuresTotal    *prometheus.CounterVec
	cardChangesTotal       *prometheus.CounterVec
	conflictsTotal         prometheus.Counter
	planItemsTotal         *prometheus.CounterVec
	assetOutcomesTotal     *prometheus.CounterVec
	fetchDurationSeconds   *prometheus.HistogramVec
	fetchBytesTotal        *prometheus.CounterVec
	rateLimitDelaysSeconds *prometheus.HistogramVec
	activeWorkers          prometheus.Gauge
	packagesTotal          *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		sourceRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsync_source_records_total",
				Help: "Records collected from each source adapter.",
			},
			[]string{"source"},
		)

		sourceFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsync_source_failures_total",
				Help: "Source adapter failures, labeled by kind (unavailable, partial).",
			},
			[]string{"source", "kind"},
		)

		cardChangesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsync_card_changes_total",
				Help: "Reconciled cards, labeled by change classification.",
			},
			[]string{"change"},
		)

		conflictsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cardsync_conflicts_total",
				Help: "Field disagreements between equal-priority sources.",
			},
		)

		planItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsync_plan_items_total",
				Help: "Planned work items, labeled by action.",
			},
			[]string{"action"},
		)

		assetOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsync_asset_outcomes_total",
				Help: "Image pipeline outcomes, labeled by status.",
			},
			[]string{"status"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardsync_fetch_duration_seconds",
				Help:    "Histogram of image fetch latencies, labeled by origin.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"origin"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsync_fetch_bytes_total",
				Help: "Bytes fetched, labeled by origin.",
			},
			[]string{"origin"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardsync_rate_limit_delays_seconds",
				Help:    "Histogram of per-origin rate limit waits.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"origin"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cardsync_active_workers",
				Help: "Number of image workers currently processing an item.",
			},
		)

		packagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardsync_packages_total",
				Help: "Archives built, labeled by status.",
			},
			[]string{"status"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// Origin extracts a lowercase hostname from a reference, or "local" for
// references that are not URLs.
func Origin(ref string) string {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return "local"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveSource records what a source adapter returned. kind is empty on
// success.
func ObserveSource(source string, records int, kind string) {
	Init()
	sourceRecordsTotal.WithLabelValues(source).Add(float64(records))
	if kind != "" {
		sourceFailuresTotal.WithLabelValues(source, kind).Inc()
	}
}

// ObserveChange increments the card change counter.
func ObserveChange(change string) {
	Init()
	cardChangesTotal.WithLabelValues(change).Inc()
}

// ObserveConflict increments the conflict counter.
func ObserveConflict() {
	Init()
	conflictsTotal.Inc()
}

// ObservePlanItem increments the plan item counter.
func ObservePlanItem(action string) {
	Init()
	planItemsTotal.WithLabelValues(action).Inc()
}

// ObserveAsset increments the asset outcome counter.
func ObserveAsset(status string) {
	Init()
	assetOutcomesTotal.WithLabelValues(status).Inc()
}

// ObserveFetch records a completed fetch.
func ObserveFetch(origin string, bytes int, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(origin).Observe(duration.Seconds())
	if bytes > 0 {
		fetchBytesTotal.WithLabelValues(origin).Add(float64(bytes))
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(origin string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(origin).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObservePackage increments the archive counter.
func ObservePackage(status string) {
	Init()
	packagesTotal.WithLabelValues(status).Inc()
}
