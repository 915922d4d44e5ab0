// Package metrics exposes Prometheus instrumentation for the polling engine:
// fetch outcomes, fetch latency, and the scheduler's queue depth and database
// size, using a custom registry so tests can assert on isolated metric state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects every metric the scheduler and job runner emit.
//
// A custom registry (rather than prometheus.DefaultRegisterer) keeps tests
// isolated from each other and avoids "duplicate metrics collector
// registration" panics when multiple Registry values are constructed in the
// same process, e.g. once per test.
type Registry struct {
	reg *prometheus.Registry

	// fetchErrorsTotal counts fetch attempts that ended in error, labeled by
	// host and a coarse reason ("transport_error", "http_error", "parse_error").
	fetchErrorsTotal *prometheus.CounterVec

	// itemsNewTotal counts newly-inserted items per feed.
	itemsNewTotal *prometheus.CounterVec

	// fetchDuration tracks wall-clock fetch time, labeled by feed, host, and
	// terminal status ("success", "not_modified", "error"). A summary (not a
	// histogram) so the exposition carries literal p50/p95/p99 quantile lines
	// rather than bucket counts.
	fetchDuration *prometheus.SummaryVec

	// schedulerQueueDepth is the number of jobs currently queued or running.
	schedulerQueueDepth prometheus.Gauge

	// uptimeSeconds is the process uptime, a plain Gauge holding whatever
	// value was last passed to SetUptimeSeconds.
	uptimeSeconds prometheus.Gauge

	// dbSizeBytes is the on-disk size of the SQLite database file.
	dbSizeBytes prometheus.Gauge

	// totalFeeds and totalItems mirror store-wide counts for dashboarding.
	totalFeeds prometheus.Gauge
	totalItems prometheus.Gauge
}

// New creates a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	fetchErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rp_fetch_errors_total",
			Help: "Total fetch attempts that ended in error, by host and reason",
		},
		[]string{"host", "reason"},
	)

	itemsNewTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rp_items_new_total",
			Help: "Total newly-inserted items, by feed id",
		},
		[]string{"feed_id"},
	)

	fetchDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "rp_fetch_duration_seconds",
			Help:       "Fetch duration in seconds, by feed, host, and terminal status",
			Objectives: map[float64]float64{0.5: 0.05, 0.95: 0.01, 0.99: 0.001},
			MaxAge:     prometheus.DefMaxAge,
			AgeBuckets: prometheus.DefAgeBuckets,
		},
		[]string{"feed_id", "host", "status"},
	)

	schedulerQueueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rp_scheduler_queue_depth",
		Help: "Number of fetch jobs currently queued or running",
	})

	uptimeSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rp_uptime_seconds",
		Help: "Seconds since the daemon started",
	})

	dbSizeBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rp_db_size_bytes",
		Help: "Size in bytes of the SQLite database file",
	})

	totalFeeds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rp_total_feeds",
		Help: "Total number of subscribed feeds",
	})

	totalItems := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rp_total_items",
		Help: "Total number of stored items",
	})

	reg.MustRegister(
		fetchErrorsTotal,
		itemsNewTotal,
		fetchDuration,
		schedulerQueueDepth,
		uptimeSeconds,
		dbSizeBytes,
		totalFeeds,
		totalItems,
	)

	return &Registry{
		reg:                 reg,
		fetchErrorsTotal:    fetchErrorsTotal,
		itemsNewTotal:       itemsNewTotal,
		fetchDuration:       fetchDuration,
		schedulerQueueDepth: schedulerQueueDepth,
		uptimeSeconds:       uptimeSeconds,
		dbSizeBytes:         dbSizeBytes,
		totalFeeds:          totalFeeds,
		totalItems:          totalItems,
	}
}

// Registerer exposes the underlying registry for additional collectors (e.g.
// the Go runtime collector) that callers may want to add.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Handler returns an http.Handler that serves this registry's metrics in the
// Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// RecordFetchError increments the fetch error counter for host/reason.
func (r *Registry) RecordFetchError(host, reason string) {
	r.fetchErrorsTotal.WithLabelValues(host, reason).Inc()
}

// RecordNewItems adds n to the new-item counter for feedID.
func (r *Registry) RecordNewItems(feedID string, n int) {
	if n <= 0 {
		return
	}
	r.itemsNewTotal.WithLabelValues(feedID).Add(float64(n))
}

// ObserveFetchDuration records how long a fetch took.
func (r *Registry) ObserveFetchDuration(feedID, host, status string, seconds float64) {
	r.fetchDuration.WithLabelValues(feedID, host, status).Observe(seconds)
}

// SetSchedulerQueueDepth sets the current queue depth gauge.
func (r *Registry) SetSchedulerQueueDepth(n int) {
	r.schedulerQueueDepth.Set(float64(n))
}

// SetUptimeSeconds sets the process uptime gauge.
func (r *Registry) SetUptimeSeconds(seconds float64) {
	r.uptimeSeconds.Set(seconds)
}

// SetDBSizeBytes sets the database file size gauge.
func (r *Registry) SetDBSizeBytes(bytes int64) {
	r.dbSizeBytes.Set(float64(bytes))
}

// SetFeedAndItemCounts sets the store-wide gauges.
func (r *Registry) SetFeedAndItemCounts(feeds, items int64) {
	r.totalFeeds.Set(float64(feeds))
	r.totalItems.Set(float64(items))
}
