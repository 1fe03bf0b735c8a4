// Package metrics exposes pipeline and collector metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
)

// Manager owns the contentflow metrics. A nil *Manager records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	quotaUsed        *prometheus.GaugeVec
	itemFailures     *prometheus.CounterVec
	recordsCollected *prometheus.CounterVec
	stageRuns        *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	rowsLoaded       *prometheus.CounterVec
	qualityScore     *prometheus.GaugeVec
}

// NewManager creates a manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "contentflow",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "api_requests_total",
		Help:      "Platform API requests by HTTP status (0 when no response arrived).",
	}, []string{"platform", "status"})

	m.apiDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "api_request_duration_seconds",
		Help:      "Latency of platform API requests.",
		Buckets:   m.histogramBuckets,
	}, []string{"platform"})

	m.quotaUsed = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "quota_used",
		Help:      "Requests counted against the daily platform quota.",
	}, []string{"platform"})

	m.itemFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "item_failures_total",
		Help:      "Entities that failed to collect while collection continued.",
	}, []string{"platform", "kind"})

	m.recordsCollected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "records_total",
		Help:      "Records collected per platform.",
	}, []string{"platform"})

	m.stageRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "stage_runs_total",
		Help:      "Pipeline stage executions by outcome.",
	}, []string{"stage", "status"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.rowsLoaded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "warehouse",
		Name:      "rows_loaded_total",
		Help:      "Rows inserted into raw warehouse tables.",
	}, []string{"table"})

	m.qualityScore = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "quality",
		Name:      "score",
		Help:      "Latest data quality score per source (0-100).",
	}, []string{"source"})
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observer returns an httpclient observer that records requests of platform.
func (m *Manager) Observer(platform string) httpclient.Observer {
	if m == nil {
		return nil
	}
	return func(_, _ string, status int, elapsed time.Duration) {
		m.apiRequests.WithLabelValues(platform, strconv.Itoa(status)).Inc()
		m.apiDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
	}
}

// SetQuotaUsed records the requests counted against a platform's quota.
func (m *Manager) SetQuotaUsed(platform string, used int) {
	if m == nil {
		return
	}
	m.quotaUsed.WithLabelValues(platform).Set(float64(used))
}

// RecordItemFailure counts an isolated collection failure.
func (m *Manager) RecordItemFailure(platform, kind string) {
	if m == nil {
		return
	}
	m.itemFailures.WithLabelValues(platform, kind).Inc()
}

// RecordCollected counts records collected for platform.
func (m *Manager) RecordCollected(platform string, n int) {
	if m == nil {
		return
	}
	m.recordsCollected.WithLabelValues(platform).Add(float64(n))
}

// RecordStage records one stage execution.
func (m *Manager) RecordStage(stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageRuns.WithLabelValues(stage, status).Inc()
	if elapsed > 0 {
		m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
}

// RecordRowsLoaded counts rows inserted into table.
func (m *Manager) RecordRowsLoaded(table string, n int64) {
	if m == nil {
		return
	}
	m.rowsLoaded.WithLabelValues(table).Add(float64(n))
}

// SetQualityScore records the latest quality score of source.
func (m *Manager) SetQualityScore(source string, score float64) {
	if m == nil {
		return
	}
	m.qualityScore.WithLabelValues(source).Set(score)
}
