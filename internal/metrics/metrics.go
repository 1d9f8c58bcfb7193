package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "onthesis"

// Metrics holds the engine's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	analyses        *prometheus.CounterVec
	analysisSeconds *prometheus.HistogramVec
	saves           *prometheus.CounterVec
	loads           *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses dispatched, by analysis type and status.",
		}, []string{"type", "status"}),
		analysisSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of statistical procedures.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"type"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_saves_total",
			Help:      "Dataset save attempts, by tier and outcome.",
		}, []string{"tier", "outcome"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts, by tier and outcome.",
		}, []string{"tier", "outcome"}),
	}
	for _, c := range []prometheus.Collector{m.analyses, m.analysisSeconds, m.saves, m.loads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveAnalysis records one dispatched analysis.
func (m *Metrics) ObserveAnalysis(analysisType, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(analysisType, status).Inc()
	m.analysisSeconds.WithLabelValues(analysisType).Observe(elapsed.Seconds())
}

// ObserveSave records one save attempt at a tier.
func (m *Metrics) ObserveSave(tier, outcome string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(tier, outcome).Inc()
}

// ObserveLoad records one load attempt at a tier.
func (m *Metrics) ObserveLoad(tier, outcome string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(tier, outcome).Inc()
}

// Counter accessors for tests and diagnostics.
func (m *Metrics) Analyses() *prometheus.CounterVec { return m.analyses }
func (m *Metrics) Saves() *prometheus.CounterVec    { return m.saves }
func (m *Metrics) Loads() *prometheus.CounterVec    { return m.loads }
