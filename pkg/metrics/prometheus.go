package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockcharts"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheLookups *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	buildLatency *prometheus.HistogramVec
	errorsTotal  *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
}

// New registers the recorder on the default registry. Call it once.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg, so tests can use a private
// registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_cache_lookups_total",
				Help:      "History cache lookups by layer and result",
			},
			[]string{"layer", "result"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_fetch_duration_seconds",
				Help:      "Duration of history fetches from the upstream provider",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "result"},
		),
		buildLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chart_build_duration_seconds",
				Help:      "Duration of chart requests including the history fetch",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"range"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chart_errors_total",
				Help:      "Failed chart requests by error kind",
			},
			[]string{"kind"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_close",
				Help:      "Most recent close fetched for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

func (r *Recorder) RecordCacheHit(layer string) {
	r.cacheLookups.WithLabelValues(layer, "hit").Inc()
}

func (r *Recorder) RecordCacheMiss(layer string) {
	r.cacheLookups.WithLabelValues(layer, "miss").Inc()
}

// RecordFetch records one upstream fetch; result is ok, not_found or error.
func (r *Recorder) RecordFetch(provider, result string, seconds float64) {
	r.fetchLatency.WithLabelValues(provider, result).Observe(seconds)
}

// RecordBuild records a successful chart request. Callers pass a known
// selector or "other" to bound label cardinality.
func (r *Recorder) RecordBuild(rangeSelector string, seconds float64) {
	r.buildLatency.WithLabelValues(rangeSelector).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// Nop discards every measurement. Used by the CLI.
type Nop struct{}

func (Nop) RecordCacheHit(string)               {}
func (Nop) RecordCacheMiss(string)              {}
func (Nop) RecordFetch(string, string, float64) {}
func (Nop) RecordBuild(string, float64)         {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLastClose(string, float64)     {}
