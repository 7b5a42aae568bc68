// Package metrics exposes Prometheus instrumentation for the positions service.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtlprog/positions/internal/domain"
)

const namespace = "defi_positions"

// Metrics holds all Prometheus collectors of the service.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	ProviderRequests        *prometheus.CounterVec
	ProviderRequestDuration prometheus.Histogram
	Transforms              prometheus.Counter
	TransformWarnings       prometheus.Counter
	CacheLookups            *prometheus.CounterVec
	PortfolioTotal          *prometheus.GaugeVec
	ProtocolCount           *prometheus.GaugeVec
	SnapshotsSaved          *prometheus.CounterVec
	RefreshRuns             *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	return &Metrics{
		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Positions provider requests by outcome",
		}, []string{"outcome"}),
		ProviderRequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Latency of positions provider requests",
			Buckets:   prometheus.DefBuckets,
		}),
		Transforms: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "runs_total",
			Help:      "Total number of snapshot transforms",
		}),
		TransformWarnings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "warnings_total",
			Help:      "Warnings produced by snapshot transforms",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Portfolio cache lookups by result",
		}, []string{"result"}),
		PortfolioTotal: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "total_value",
			Help:      "Latest portfolio total value in native currency",
		}, []string{"address", "currency"}),
		ProtocolCount: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "protocols",
			Help:      "Number of protocols in the latest portfolio",
		}, []string{"address"}),
		SnapshotsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "saved_total",
			Help:      "Snapshot save attempts by outcome",
		}, []string{"outcome"}),
		RefreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "refresh_runs_total",
			Help:      "Refresh worker runs by outcome",
		}, []string{"outcome"}),
		gatherer: gatherer,
	}
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveProvider records one provider call.
func (m *Metrics) ObserveProvider(start time.Time, err error) {
	if m == nil {
		return
	}
	m.ProviderRequestDuration.Observe(time.Since(start).Seconds())
	m.ProviderRequests.WithLabelValues(outcome(err)).Inc()
}

// ObserveResult records a finished transform for a wallet.
func (m *Metrics) ObserveResult(address string, res domain.Result) {
	if m == nil {
		return
	}
	m.Transforms.Inc()
	m.TransformWarnings.Add(float64(len(res.Warnings)))
	total, _ := domain.SafeParse(res.Totals.Total.Amount).Float64()
	m.PortfolioTotal.WithLabelValues(strings.ToLower(address), res.Currency).Set(total)
	m.ProtocolCount.WithLabelValues(strings.ToLower(address)).Set(float64(len(res.Positions)))
}

// CacheHit records a portfolio cache lookup.
func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// SnapshotSaved records a snapshot save attempt.
func (m *Metrics) SnapshotSaved(err error) {
	if m == nil {
		return
	}
	m.SnapshotsSaved.WithLabelValues(outcome(err)).Inc()
}

// RefreshRun records a refresh worker run.
func (m *Metrics) RefreshRun(err error) {
	if m == nil {
		return
	}
	m.RefreshRuns.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
