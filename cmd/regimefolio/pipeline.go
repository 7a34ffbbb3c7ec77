package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/seenimoa/regimefolio/internal/backtest"
	"github.com/seenimoa/regimefolio/internal/macro"
	"github.com/seenimoa/regimefolio/internal/market"
	perf "github.com/seenimoa/regimefolio/internal/metrics"
	"github.com/seenimoa/regimefolio/internal/optimizer"
	"github.com/seenimoa/regimefolio/internal/providers/fred"
	"github.com/seenimoa/regimefolio/internal/providers/yfinance"
	"github.com/seenimoa/regimefolio/internal/regime"
	"github.com/seenimoa/regimefolio/internal/report"
	"github.com/seenimoa/regimefolio/internal/store"
	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Stages
// ════════════════════════════════════════════════════════════════════

// classify fetches the macro series, labels every month and writes the
// label file.
func classify(ctx context.Context, rep *report.Report) ([]models.LabeledMonth, error) {
	if _, err := reg.Get("fred"); err != nil {
		return nil, fmt.Errorf("classify: FRED is not configured, set fred.api_key or FRED_API_KEY: %w", err)
	}
	s := cfg.FRED.Series
	loader := macro.NewLoader(fred.NewSource(reg, "", ""), macro.Codes{
		Growth:     s.Growth,
		Inflation:  s.Inflation,
		YieldLong:  s.YieldLong,
		YieldShort: s.YieldShort,
		Money:      s.Money,
		Velocity:   s.Velocity,
	}, cfg.Classifier.TrendWindow)

	rows, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	labels := regime.ClassifyRows(rows, cfg.Classifier.MinSignals)
	for _, l := range labels {
		metrics.ClassifiedMonths.WithLabelValues(l.Regime.String()).Inc()
	}
	if err := store.WriteLabels(cfg.Files.Labels, labels); err != nil {
		return nil, err
	}
	log.Info().Str("component", "classify").Int("months", len(labels)).
		Int("classified", len(regime.Classified(labels))).Str("file", cfg.Files.Labels).Msg("labels written")

	suggested, err := cfg.SuggestedAllocations()
	if err != nil {
		return nil, err
	}
	since, err := utils.ParseDate(cfg.Classifier.ReportSince)
	if err != nil {
		return nil, fmt.Errorf("classifier.report_since: %w", err)
	}
	summary := regime.Summarize(labels, since, suggested)
	if summary.Latest == nil {
		log.Warn().Str("component", "classify").Str("since", utils.FormatDate(since)).
			Msg("no classified months since cutoff")
	}
	rep.Classification = report.Classification(rows, summary)
	return labels, nil
}

// fetchReturns downloads daily closes and writes month-end returns.
func fetchReturns(ctx context.Context) error {
	pt, err := loadPrices(ctx)
	if err != nil {
		return fmt.Errorf("fetch-returns: %w", err)
	}
	rows := market.MonthlyReturns(pt)
	if len(rows) == 0 {
		return fmt.Errorf("fetch-returns: price history spans less than two months")
	}
	if err := store.WriteReturns(cfg.Files.Returns, rows, pt.Assets); err != nil {
		return err
	}
	log.Info().Str("component", "market").Int("months", len(rows)).Str("file", cfg.Files.Returns).Msg("returns written")
	return nil
}

// optimize reads returns and labels, solves each regime and writes the
// allocation file. No file is written when every regime fails.
func optimize(rep *report.Report) error {
	returns, _, err := store.ReadReturns(cfg.Files.Returns)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	labels, err := store.ReadLabels(cfg.Files.Labels)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	samples := optimizer.JoinByMonth(returns, labels)
	risky, _ := optimizer.Universe(returns)
	res, err := optimizer.Optimize(samples, risky, optimizer.Config{
		MinCash:         cfg.Optimizer.MinCash,
		RiskFree:        cfg.Optimizer.RiskFree,
		MinObservations: cfg.Optimizer.MinObservations,
		MaxIterations:   cfg.Optimizer.MaxIterations,
	})
	if res != nil {
		for _, o := range res.Outcomes {
			outcome := "ok"
			if !o.OK() {
				outcome = "omitted"
			}
			metrics.OptimizerOutcomes.WithLabelValues(outcome).Inc()
		}
		rep.Optimizer = report.Optimizer(res)
	}
	if err != nil {
		return err
	}

	if err := store.WriteAllocations(cfg.Files.Allocations, res.Table); err != nil {
		return err
	}
	log.Info().Str("component", "optimizer").Int("regimes", len(res.Table)).
		Str("file", cfg.Files.Allocations).Msg("allocations written")
	return nil
}

// runBacktest replays the allocation table over daily prices.
func runBacktest(ctx context.Context, rep *report.Report) error {
	labels, err := store.ReadLabels(cfg.Files.Labels)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	table, err := store.ReadAllocations(cfg.Files.Allocations)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	pt, err := loadPrices(ctx)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	engine := backtest.NewEngine(backtest.Config{
		CashAPY:       cfg.Backtest.CashAPY,
		StablecoinAPY: cfg.Backtest.StablecoinAPY,
		TradingDays:   cfg.Backtest.TradingDays,
		DefaultCash:   cfg.Backtest.DefaultCash,
	})
	res, err := engine.Run(market.DailyReturns(pt), labels, table)
	if err != nil {
		return err
	}
	for ev, n := range res.Events {
		metrics.BacktestDays.WithLabelValues(ev).Add(float64(n))
	}
	metrics.Rebalances.Add(float64(res.Rebalances))

	if err := store.WriteBacktest(cfg.Files.Backtest, res.Days); err != nil {
		return err
	}

	m, err := perf.FromDaily(res.Days)
	if errors.Is(err, perf.ErrDegenerateVolatility) {
		log.Warn().Str("component", "metrics").Int("days", m.Days).Msg("volatility is zero or undefined, Sharpe reported as n/a")
	}
	metrics.SetPerformance("cagr", m.CAGR)
	metrics.SetPerformance("volatility", m.Volatility)
	metrics.SetPerformance("sharpe", m.Sharpe)
	metrics.SetPerformance("max_drawdown", m.MaxDrawdown)

	rep.Backtest = report.Backtest(res, m)
	log.Info().Str("component", "backtest").Int("days", len(res.Days)).Int("rebalances", res.Rebalances).
		Str("file", cfg.Files.Backtest).Msg("backtest written")
	return nil
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func loadPrices(ctx context.Context) (*market.PriceTable, error) {
	symbols, err := cfg.MarketSymbols()
	if err != nil {
		return nil, err
	}
	start, err := utils.ParseDate(cfg.Market.Start)
	if err != nil {
		return nil, fmt.Errorf("market.start: %w", err)
	}
	end, err := utils.ParseDate(cfg.Market.End)
	if err != nil {
		return nil, fmt.Errorf("market.end: %w", err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("market.start %s is not before market.end %s", cfg.Market.Start, cfg.Market.End)
	}
	return market.NewLoader(yfinance.NewSource(reg)).Prices(ctx, symbols, start, end)
}

// applyDateFlags lets --start, --end and --since override the config.
func applyDateFlags(cmd *cobra.Command) error {
	for flag, dst := range map[string]*string{
		"start": &cfg.Market.Start,
		"end":   &cfg.Market.End,
		"since": &cfg.Classifier.ReportSince,
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if _, err := utils.ParseDate(f.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
		*dst = f.Value.String()
	}
	return nil
}

// finish prints the report and writes the metrics textfile.
func finish(rep *report.Report) error {
	if rep != nil {
		if err := report.Render(os.Stdout, rep, format); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
	}
	if err := metrics.WriteTextfile(cfg.Files.MetricsTextfile); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
