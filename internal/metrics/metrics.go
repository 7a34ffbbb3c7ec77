// Package metrics summarises a daily return series.
package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/regimefolio/pkg/models"
)

// ErrDegenerateVolatility flags a series whose Sharpe and Sortino ratios
// are undefined: fewer than two observations or zero standard deviation.
var ErrDegenerateVolatility = errors.New("degenerate volatility: ratio undefined")

// PeriodsPerYear is the annualisation factor for daily returns.
const PeriodsPerYear = 252

// ════════════════════════════════════════════════════════════════════
// Performance Metrics
// ════════════════════════════════════════════════════════════════════

// Compute drops undefined days and summarises the rest. A degenerate series
// still yields every other metric; the returned error only flags the NaN
// ratios and is never wrapped around a nil result.
func Compute(returns []float64, defined []bool) (models.PerformanceMetrics, error) {
	vals := make([]float64, 0, len(returns))
	for i, r := range returns {
		if (defined == nil || defined[i]) && !math.IsNaN(r) {
			vals = append(vals, r)
		}
	}

	m := models.PerformanceMetrics{
		Days:         len(vals),
		ExcludedDays: len(returns) - len(vals),
		Sharpe:       math.NaN(),
		Sortino:      math.NaN(),
	}
	if len(vals) == 0 {
		return m, ErrDegenerateVolatility
	}

	m.MeanDaily = stat.Mean(vals, nil)
	if len(vals) > 1 {
		m.StdDaily = stat.StdDev(vals, nil)
	}
	m.CAGR = math.Pow(1+m.MeanDaily, PeriodsPerYear) - 1
	m.Volatility = m.StdDaily * math.Sqrt(PeriodsPerYear)
	m.MaxDrawdown, m.TotalReturn = drawdown(vals)

	if len(vals) < 2 || m.StdDaily == 0 {
		return m, ErrDegenerateVolatility
	}
	m.Sharpe = m.MeanDaily / m.StdDaily * math.Sqrt(PeriodsPerYear)
	m.Sortino = sortino(vals, m.MeanDaily)
	return m, nil
}

// FromDaily is Compute over backtest output.
func FromDaily(days []models.DailyResult) (models.PerformanceMetrics, error) {
	vals := make([]float64, len(days))
	ok := make([]bool, len(days))
	for i, d := range days {
		vals[i], ok[i] = d.Return, d.Defined
	}
	return Compute(vals, ok)
}

// ────────────────────────────────────────────────────────────────────
// Maximum Drawdown
// ────────────────────────────────────────────────────────────────────

// drawdown returns the most negative value of cumulative/peak − 1 and the
// total compounded return. The running peak starts at the first
// cumulative value, not at 1.
func drawdown(vals []float64) (maxDD, total float64) {
	cum := 1.0
	peak := math.Inf(-1)
	for _, r := range vals {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if peak > 0 {
			if dd := cum/peak - 1; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD, cum - 1
}

// ────────────────────────────────────────────────────────────────────
// Sortino Ratio (annualized, downside deviation only)
// ────────────────────────────────────────────────────────────────────

func sortino(vals []float64, mean float64) float64 {
	var downsideSqSum float64
	for _, r := range vals {
		if r < 0 {
			downsideSqSum += r * r
		}
	}
	downsideDev := math.Sqrt(downsideSqSum / float64(len(vals)))
	if downsideDev == 0 {
		return math.NaN()
	}
	return mean / downsideDev * math.Sqrt(PeriodsPerYear)
}
