package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Purchase metrics
	Purchases        *prometheus.CounterVec
	PurchaseDuration *prometheus.HistogramVec
	PurchaseRetries  prometheus.Counter

	// Catalog metrics
	CatalogReads           *prometheus.CounterVec
	CatalogRefreshes       *prometheus.CounterVec
	CatalogRefreshDuration prometheus.Histogram

	// Upstream metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter

	// Database metrics
	DBConnections prometheus.Gauge
}

// New creates all Prometheus metrics and registers them with reg.
// A nil reg falls back to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Purchases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_purchases_total",
				Help: "Total number of purchase attempts by outcome",
			},
			[]string{"outcome"},
		),
		PurchaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketplace_purchase_duration_seconds",
				Help:    "Duration of purchase operations, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		PurchaseRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_purchase_retries_total",
			Help: "Total number of purchase attempts repeated after a serialization conflict",
		}),

		CatalogReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_catalog_reads_total",
				Help: "Catalog reads by cache state",
			},
			[]string{"state"},
		),
		CatalogRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_catalog_refreshes_total",
				Help: "Catalog refreshes by outcome",
			},
			[]string{"outcome"},
		),
		CatalogRefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketplace_catalog_refresh_duration_seconds",
			Help:    "Duration of catalog refreshes",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_upstream_requests_total",
				Help: "Requests to the price upstream",
			},
			[]string{"tradable", "outcome"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketplace_upstream_request_duration_seconds",
				Help:    "Duration of price upstream requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tradable"},
		),

		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_auth_attempts_total",
				Help: "Authentication attempts by operation and status",
			},
			[]string{"operation", "status"},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),

		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_outbox_published_total",
			Help: "Outbox events published",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_outbox_failures_total",
			Help: "Outbox events that failed to publish",
		}),

		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marketplace_db_connections",
			Help: "Acquired database connections",
		}),
	}
}

// ObservePurchase records a finished purchase.
func (m *Metrics) ObservePurchase(outcome string, duration time.Duration) {
	m.Purchases.WithLabelValues(outcome).Inc()
	m.PurchaseDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncPurchaseRetry records one repeated purchase attempt.
func (m *Metrics) IncPurchaseRetry() {
	m.PurchaseRetries.Inc()
}

// ObserveCatalogRead records the cache state seen by a catalog read.
func (m *Metrics) ObserveCatalogRead(state string) {
	m.CatalogReads.WithLabelValues(state).Inc()
}

// ObserveCatalogRefresh records a finished catalog refresh.
func (m *Metrics) ObserveCatalogRefresh(outcome string, duration time.Duration) {
	m.CatalogRefreshes.WithLabelValues(outcome).Inc()
	m.CatalogRefreshDuration.Observe(duration.Seconds())
}

// ObserveUpstream records one price upstream request.
func (m *Metrics) ObserveUpstream(tradable bool, outcome string, duration time.Duration) {
	label := "false"
	if tradable {
		label = "true"
	}
	m.UpstreamRequests.WithLabelValues(label, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveAuth records an authentication attempt.
func (m *Metrics) ObserveAuth(operation, status string) {
	m.AuthAttempts.WithLabelValues(operation, status).Inc()
}

// ObserveRateLimited records a rejected request.
func (m *Metrics) ObserveRateLimited(path string) {
	m.RateLimitHits.WithLabelValues(path).Inc()
}

// ObserveOutbox records a publish attempt of one outbox event.
func (m *Metrics) ObserveOutbox(err error) {
	if err != nil {
		m.OutboxFailures.Inc()
		return
	}
	m.OutboxPublished.Inc()
}

// SetDBConnections records the number of acquired database connections.
func (m *Metrics) SetDBConnections(n int32) {
	m.DBConnections.Set(float64(n))
}
