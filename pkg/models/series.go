package models

import (
	"sort"
	"time"
)

// Observation is a single dated value of a time series.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a named, date-ordered sequence of observations.
type Series struct {
	Name         string        `json:"name"`
	Observations []Observation `json:"observations"`
}

// Sort orders observations by date in place.
func (s *Series) Sort() {
	sort.SliceStable(s.Observations, func(i, j int) bool {
		return s.Observations[i].Date.Before(s.Observations[j].Date)
	})
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Observations) }

// PricePoint is a daily close for one symbol.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// ReturnRow holds per-asset fractional returns for one date. Assets absent
// from Values have no observation for that date.
type ReturnRow struct {
	Date   time.Time         `json:"date"`
	Values map[Asset]float64 `json:"values"`
}

// DailyResult is one step of a backtest. Defined is false on days with no
// resolvable regime; Return is then meaningless.
type DailyResult struct {
	Date      time.Time `json:"date"             yaml:"date"`
	Regime    Regime    `json:"regime,omitempty" yaml:"regime,omitempty"`
	Return    float64   `json:"return"           yaml:"return"`
	Defined   bool      `json:"defined"          yaml:"defined"`
	Rebalance bool      `json:"rebalance"        yaml:"rebalance"`
}

// PerformanceMetrics summarises a daily return series. Sharpe and Sortino
// are NaN when undefined.
type PerformanceMetrics struct {
	Days         int     `json:"days"          yaml:"days"`
	MeanDaily    float64 `json:"mean_daily"    yaml:"mean_daily"`
	StdDaily     float64 `json:"std_daily"     yaml:"std_daily"`
	CAGR         float64 `json:"cagr"          yaml:"cagr"`
	Volatility   float64 `json:"volatility"    yaml:"volatility"`
	Sharpe       float64 `json:"-"             yaml:"-"`
	Sortino      float64 `json:"-"             yaml:"-"`
	MaxDrawdown  float64 `json:"max_drawdown"  yaml:"max_drawdown"`
	TotalReturn  float64 `json:"total_return"  yaml:"total_return"`
	ExcludedDays int     `json:"excluded_days" yaml:"excluded_days"`
}
