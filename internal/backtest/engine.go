// Package backtest replays a regime-driven allocation over daily returns.
// The portfolio holds one weight vector at a time and switches it only
// when the active regime changes.
package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Engine Configuration
// ════════════════════════════════════════════════════════════════════

// Config holds all parameters for a backtest run.
type Config struct {
	CashAPY       float64 // annual yield of the cash sleeve (default: 0.045)
	StablecoinAPY float64 // annual yield of the stablecoin sleeve (default: 0.05)
	TradingDays   int     // periods per year for yield accrual (default: 252)
	DefaultCash   float64 // cash weight assumed when an allocation omits it (default: 0.10)
}

// DefaultConfig returns the defaults used by the original study.
func DefaultConfig() Config {
	return Config{
		CashAPY:       0.045,
		StablecoinAPY: 0.05,
		TradingDays:   252,
		DefaultCash:   0.10,
	}
}

// DailyYield converts an annual yield into a per-trading-day return.
func DailyYield(apy float64, tradingDays int) float64 {
	if tradingDays <= 0 {
		return 0
	}
	return apy / float64(tradingDays)
}

// ════════════════════════════════════════════════════════════════════
// State machine
// ════════════════════════════════════════════════════════════════════

// State is the portfolio carried from one day to the next.
type State struct {
	Active    models.Regime
	Weights   models.Allocation
	HasRegime bool
}

// Event is the transition taken by Step.
type Event int

const (
	EventGap           Event = iota // no regime label for the day
	EventHold                       // same regime as the active one
	EventRebalance                  // new regime with a known allocation
	EventUnknownRegime              // new regime missing from the allocation table
)

func (e Event) String() string {
	switch e {
	case EventGap:
		return "gap"
	case EventHold:
		return "hold"
	case EventRebalance:
		return "rebalance"
	case EventUnknownRegime:
		return "unknown_regime"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Step is the pure transition function. A missing label leaves the state
// untouched. A label equal to the active regime holds. A different label
// replaces the weights wholesale if the table has an allocation for it;
// otherwise the prior weights stay and the active regime is not updated,
// so the next day with the same label is evaluated again.
func Step(s State, label models.Regime, table models.AllocationTable) (State, Event) {
	if !label.Known() {
		return s, EventGap
	}
	if s.HasRegime && label == s.Active {
		return s, EventHold
	}
	alloc, ok := table[label]
	if !ok {
		return s, EventUnknownRegime
	}
	return State{Active: label, Weights: alloc.Clone(), HasRegime: true}, EventRebalance
}

// ForwardFill maps each date to the latest label dated on or before it.
// Dates before the first label map to Unknown.
func ForwardFill(labels []models.LabeledMonth, dates []time.Time) []models.Regime {
	sorted := append([]models.LabeledMonth(nil), labels...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]models.Regime, len(dates))
	for i, d := range dates {
		k := sort.Search(len(sorted), func(j int) bool { return sorted[j].Date.After(d) })
		if k == 0 {
			out[i] = models.Unknown
			continue
		}
		out[i] = sorted[k-1].Regime
	}
	return out
}

// ════════════════════════════════════════════════════════════════════
// Engine
// ════════════════════════════════════════════════════════════════════

// Result is the daily return series and a tally of transitions.
type Result struct {
	Days       []models.DailyResult `json:"days" yaml:"days"`
	Events     map[string]int       `json:"events" yaml:"events"`
	Rebalances int                  `json:"rebalances" yaml:"rebalances"`
	Final      State                `json:"-" yaml:"-"`
}

// Engine folds Step over a daily return table.
type Engine struct {
	cfg Config
}

// NewEngine creates a new backtesting engine with the given config.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TradingDays <= 0 {
		cfg.TradingDays = def.TradingDays
	}
	if cfg.DefaultCash < 0 {
		cfg.DefaultCash = def.DefaultCash
	}
	return &Engine{cfg: cfg}
}

// InitialState is the equal-weight placeholder held until the first
// rebalance: every risky asset in the return table plus cash.
func InitialState(returns []models.ReturnRow) State {
	seen := make(map[models.Asset]bool)
	for _, row := range returns {
		for a := range row.Values {
			if a.IsRisky() {
				seen[a] = true
			}
		}
	}
	assets := []models.Asset{models.Cash}
	for a := range seen {
		assets = append(assets, a)
	}
	models.SortAssets(assets)
	return State{Active: models.Unknown, Weights: models.EqualWeight(assets)}
}

// Run normalises the allocation table, attaches synthetic yields to every
// row, then folds Step over the dates in order.
func (e *Engine) Run(returns []models.ReturnRow, labels []models.LabeledMonth, table models.AllocationTable) (*Result, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("backtest: no return rows")
	}
	norm, err := table.Normalize(e.cfg.DefaultCash)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	rows := make([]models.ReturnRow, len(returns))
	copy(rows, returns)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	dates := make([]time.Time, len(rows))
	for i, r := range rows {
		dates[i] = r.Date
	}
	daily := ForwardFill(labels, dates)

	cash := DailyYield(e.cfg.CashAPY, e.cfg.TradingDays)
	stable := DailyYield(e.cfg.StablecoinAPY, e.cfg.TradingDays)
	logger := log.With().Str("component", "backtest").Logger()

	res := &Result{Days: make([]models.DailyResult, 0, len(rows)), Events: make(map[string]int)}
	state := InitialState(rows)
	for i, row := range rows {
		var ev Event
		state, ev = Step(state, daily[i], norm)
		res.Events[ev.String()]++

		day := models.DailyResult{Date: row.Date, Regime: daily[i]}
		switch ev {
		case EventGap:
			logger.Debug().Str("date", utils.FormatDate(row.Date)).Msg("no regime label, return undefined")
			res.Days = append(res.Days, day)
			continue
		case EventRebalance:
			day.Rebalance = true
			res.Rebalances++
			logger.Debug().Str("date", utils.FormatDate(row.Date)).Str("regime", state.Active.String()).Msg("rebalanced")
		case EventUnknownRegime:
			logger.Warn().Str("date", utils.FormatDate(row.Date)).Str("regime", daily[i].String()).
				Msg("regime has no allocation, keeping previous weights")
		}

		ret, err := portfolioReturn(state.Weights, row.Values, cash, stable)
		if err != nil {
			return nil, fmt.Errorf("backtest %s: %w", utils.FormatDate(row.Date), err)
		}
		day.Return, day.Defined = ret, true
		res.Days = append(res.Days, day)
	}
	res.Final = state
	return res, nil
}

// portfolioReturn is the weighted sum of asset returns. Synthetic sleeves
// earn their daily yield unless the row carries an explicit value. Every
// weighted asset, even at zero weight, must have a return.
func portfolioReturn(weights models.Allocation, values map[models.Asset]float64, cash, stable float64) (float64, error) {
	var total float64
	for _, a := range weights.Assets() {
		r, ok := values[a]
		if !ok {
			switch a {
			case models.Cash:
				r, ok = cash, true
			case models.Stablecoins:
				r, ok = stable, true
			}
		}
		if !ok {
			return 0, fmt.Errorf("no return for %s", a)
		}
		total += weights[a] * r
	}
	return total, nil
}
