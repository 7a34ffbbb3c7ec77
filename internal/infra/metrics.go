package infra

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics collects counters and gauges for a single batch run. Nothing is
// served; the registry is written to a node-exporter textfile at the end.
type RunMetrics struct {
	Registry *prometheus.Registry

	ClassifiedMonths   *prometheus.CounterVec
	OptimizerOutcomes  *prometheus.CounterVec
	BacktestDays       *prometheus.CounterVec
	Rebalances         prometheus.Counter
	PerformanceSummary *prometheus.GaugeVec
}

// NewRunMetrics registers all run metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		Registry: prometheus.NewRegistry(),
		ClassifiedMonths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regimefolio",
			Name:      "classified_months_total",
			Help:      "Months labelled by the regime classifier, by regime.",
		}, []string{"regime"}),
		OptimizerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regimefolio",
			Name:      "optimizer_regimes_total",
			Help:      "Per-regime optimisation outcomes.",
		}, []string{"outcome"}),
		BacktestDays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regimefolio",
			Name:      "backtest_days_total",
			Help:      "Backtest days by event kind.",
		}, []string{"event"}),
		Rebalances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regimefolio",
			Name:      "backtest_rebalances_total",
			Help:      "Regime-driven weight changes.",
		}),
		PerformanceSummary: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "regimefolio",
			Name:      "backtest_performance",
			Help:      "Backtest summary statistics; NaN Sharpe is not exported.",
		}, []string{"metric"}),
	}
	m.Registry.MustRegister(m.ClassifiedMonths, m.OptimizerOutcomes, m.BacktestDays, m.Rebalances, m.PerformanceSummary)
	return m
}

// SetPerformance records a summary statistic, skipping undefined values.
func (m *RunMetrics) SetPerformance(name string, v float64) {
	if m == nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	m.PerformanceSummary.WithLabelValues(name).Set(v)
}

// WriteTextfile writes the registry in text exposition format. An empty
// path is a no-op.
func (m *RunMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
