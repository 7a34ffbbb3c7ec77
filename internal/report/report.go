// Package report renders the results of a classify, optimize or backtest
// run as plain text, JSON, YAML or a self-contained HTML page.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/regimefolio/internal/backtest"
	"github.com/seenimoa/regimefolio/internal/optimizer"
	"github.com/seenimoa/regimefolio/internal/regime"
	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report Model
// ════════════════════════════════════════════════════════════════════

// Format specifies the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML, FormatHTML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json, yaml or html)", s)
}

// Report collects whichever stages ran. Nil sections are omitted.
type Report struct {
	Title          string                 `json:"title" yaml:"title"`
	RunID          string                 `json:"run_id" yaml:"run_id"`
	GeneratedAt    time.Time              `json:"generated_at" yaml:"generated_at"`
	Classification *ClassificationSection `json:"classification,omitempty" yaml:"classification,omitempty"`
	Optimizer      *OptimizerSection      `json:"optimizer,omitempty" yaml:"optimizer,omitempty"`
	Backtest       *BacktestSection       `json:"backtest,omitempty" yaml:"backtest,omitempty"`
}

// New starts an empty report for a run.
func New(runID string, now time.Time) *Report {
	return &Report{Title: "Regime Allocation Report", RunID: runID, GeneratedAt: now.UTC()}
}

// MonthRow is one line of the classification table.
type MonthRow struct {
	Date           string   `json:"date" yaml:"date"`
	Regime         string   `json:"regime" yaml:"regime"`
	Growth         *float64 `json:"gdp_growth,omitempty" yaml:"gdp_growth,omitempty"`
	Inflation      *float64 `json:"inflation,omitempty" yaml:"inflation,omitempty"`
	YieldCurve     *float64 `json:"yield_curve,omitempty" yaml:"yield_curve,omitempty"`
	MoneyGrowth    *float64 `json:"m2_growth,omitempty" yaml:"m2_growth,omitempty"`
	VelocityChange *float64 `json:"velocity_change,omitempty" yaml:"velocity_change,omitempty"`
}

// ClassificationSection summarises classified months since a cutoff.
type ClassificationSection struct {
	Since       string             `json:"since" yaml:"since"`
	TotalMonths int                `json:"total_months" yaml:"total_months"`
	Months      []MonthRow         `json:"months" yaml:"months"`
	Counts      map[string]int     `json:"counts" yaml:"counts"`
	Latest      string             `json:"latest,omitempty" yaml:"latest,omitempty"`
	LatestDate  string             `json:"latest_date,omitempty" yaml:"latest_date,omitempty"`
	Suggested   map[string]float64 `json:"suggested,omitempty" yaml:"suggested,omitempty"`
}

// RegimeAllocation is one optimizer outcome.
type RegimeAllocation struct {
	Regime       string             `json:"regime" yaml:"regime"`
	Observations int                `json:"observations" yaml:"observations"`
	Weights      map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Sharpe       *float64           `json:"sharpe,omitempty" yaml:"sharpe,omitempty"`
	Status       string             `json:"status" yaml:"status"`
}

// OptimizerSection lists every regime the optimizer attempted.
type OptimizerSection struct {
	Regimes []RegimeAllocation `json:"regimes" yaml:"regimes"`
	Solved  int                `json:"solved" yaml:"solved"`
	Omitted int                `json:"omitted" yaml:"omitted"`
}

// Metrics is the encodable form of models.PerformanceMetrics. Undefined
// ratios are nil.
type Metrics struct {
	CAGR        float64  `json:"cagr" yaml:"cagr"`
	Volatility  float64  `json:"volatility" yaml:"volatility"`
	Sharpe      *float64 `json:"sharpe" yaml:"sharpe"`
	Sortino     *float64 `json:"sortino" yaml:"sortino"`
	MaxDrawdown float64  `json:"max_drawdown" yaml:"max_drawdown"`
	TotalReturn float64  `json:"total_return" yaml:"total_return"`
	MeanDaily   float64  `json:"mean_daily" yaml:"mean_daily"`
	StdDaily    float64  `json:"std_daily" yaml:"std_daily"`
}

// BacktestSection holds the performance of the regime-driven portfolio.
type BacktestSection struct {
	Start        string         `json:"start" yaml:"start"`
	End          string         `json:"end" yaml:"end"`
	Days         int            `json:"days" yaml:"days"`
	ExcludedDays int            `json:"excluded_days" yaml:"excluded_days"`
	Rebalances   int            `json:"rebalances" yaml:"rebalances"`
	Events       map[string]int `json:"events" yaml:"events"`
	Metrics      Metrics        `json:"metrics" yaml:"metrics"`

	curve  []float64
	labels []string
}

// ════════════════════════════════════════════════════════════════════
// Section builders
// ════════════════════════════════════════════════════════════════════

// Classification builds the table of recent months joined with their
// indicator values.
func Classification(rows []models.MacroRow, s regime.Summary) *ClassificationSection {
	byDate := make(map[string]models.MacroRow, len(rows))
	for _, r := range rows {
		byDate[utils.FormatDate(r.Date)] = r
	}

	sec := &ClassificationSection{
		Since:       utils.FormatDate(s.Since),
		TotalMonths: s.TotalMonths,
		Counts:      make(map[string]int, len(s.Counts)),
		Suggested:   weights(s.Suggested),
	}
	for r, n := range s.Counts {
		sec.Counts[r.String()] = n
	}
	for _, l := range s.Recent {
		d := utils.FormatDate(l.Date)
		row := MonthRow{Date: d, Regime: l.Regime.String()}
		if m, ok := byDate[d]; ok {
			row.Growth, row.Inflation, row.YieldCurve = m.Growth, m.Inflation, m.YieldCurve
			row.MoneyGrowth, row.VelocityChange = m.MoneyGrowth, m.VelocityChange
		}
		sec.Months = append(sec.Months, row)
	}
	if s.Latest != nil {
		sec.Latest = s.Latest.Regime.String()
		sec.LatestDate = utils.FormatDate(s.Latest.Date)
	}
	return sec
}

// Optimizer lists outcomes in the order the optimizer attempted them.
func Optimizer(res *optimizer.Result) *OptimizerSection {
	sec := &OptimizerSection{}
	if res == nil {
		return sec
	}
	for _, o := range res.Outcomes {
		ra := RegimeAllocation{Regime: o.Regime.String(), Observations: o.Observations}
		if o.OK() {
			ra.Weights = weights(o.Allocation)
			ra.Sharpe = optional(o.Sharpe)
			ra.Status = "ok"
			sec.Solved++
		} else {
			ra.Status = o.Reason
			sec.Omitted++
		}
		sec.Regimes = append(sec.Regimes, ra)
	}
	return sec
}

// Backtest wraps a backtest result and its metrics.
func Backtest(res *backtest.Result, m models.PerformanceMetrics) *BacktestSection {
	sec := &BacktestSection{
		Days:         m.Days,
		ExcludedDays: m.ExcludedDays,
		Metrics: Metrics{
			CAGR:        m.CAGR,
			Volatility:  m.Volatility,
			Sharpe:      optional(m.Sharpe),
			Sortino:     optional(m.Sortino),
			MaxDrawdown: m.MaxDrawdown,
			TotalReturn: m.TotalReturn,
			MeanDaily:   m.MeanDaily,
			StdDaily:    m.StdDaily,
		},
	}
	if res == nil || len(res.Days) == 0 {
		return sec
	}
	sec.Start = utils.FormatDate(res.Days[0].Date)
	sec.End = utils.FormatDate(res.Days[len(res.Days)-1].Date)
	sec.Rebalances = res.Rebalances
	sec.Events = res.Events

	// Equity curve over defined days only.
	value := 1.0
	for _, d := range res.Days {
		if !d.Defined {
			continue
		}
		value *= 1 + d.Return
		sec.curve = append(sec.curve, value)
		sec.labels = append(sec.labels, d.Date.Format("Jan 2006"))
	}
	return sec
}

func weights(al models.Allocation) map[string]float64 {
	if len(al) == 0 {
		return nil
	}
	out := make(map[string]float64, len(al))
	for a, w := range al {
		out[string(a)] = w
	}
	return out
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func ratio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return utils.FormatRatio(*v)
}

// orderedWeights renders weights in canonical asset order.
func orderedWeights(w map[string]float64) string {
	var parts []string
	seen := make(map[string]bool, len(w))
	for _, a := range models.Assets() {
		if v, ok := w[string(a)]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", a, utils.FormatPct(v)))
			seen[string(a)] = true
		}
	}
	var rest []string
	for k := range w {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, fmt.Sprintf("%s %s", k, utils.FormatPct(w[k])))
	}
	return strings.Join(parts, ", ")
}

// ════════════════════════════════════════════════════════════════════
// Rendering
// ════════════════════════════════════════════════════════════════════

// Render writes the report in the requested format.
func Render(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatText, "":
		_, err := io.WriteString(w, renderTextReport(r))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatHTML:
		html, err := GenerateHTML(r, DefaultChartConfig())
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	}
	return fmt.Errorf("unknown report format %q", f)
}

// GenerateHTML renders the report into a self-contained HTML page with
// inline SVG charts.
func GenerateHTML(r *Report, cfg ChartConfig) (string, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"pct":     utils.FormatPct,
		"ratio":   ratio,
		"opt":     func(v *float64) string { return utils.FormatOptional(v, 4) },
		"weights": orderedWeights,
	}).Parse(ReportTemplate)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	data := htmlData{Report: r}
	if c := r.Classification; c != nil && len(c.Counts) > 0 {
		cc := cfg
		cc.Title = "Months per regime"
		var items []BarItem
		for _, reg := range models.Regimes() {
			if n, ok := c.Counts[reg.String()]; ok {
				items = append(items, BarItem{Label: reg.String(), Value: float64(n), Color: regimeColor(reg)})
			}
		}
		data.CountChart = template.HTML(HorizontalBarChart(items, cc))
		data.TimelineChart = template.HTML(RegimeTimeline(segments(c.Months), cfg))
	}
	if b := r.Backtest; b != nil && len(b.curve) > 1 {
		cc := cfg
		cc.Title = "Growth of 1"
		data.EquityChart = template.HTML(LineChart([]LineChartSeries{{Name: "portfolio", Values: b.curve}}, b.labels, cc))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

type htmlData struct {
	*Report
	CountChart    template.HTML
	TimelineChart template.HTML
	EquityChart   template.HTML
}

// segments collapses consecutive months with the same regime.
func segments(months []MonthRow) []TimelineSegment {
	var out []TimelineSegment
	for _, m := range months {
		if n := len(out); n > 0 && out[n-1].Label == m.Regime {
			out[n-1].Months++
			continue
		}
		r, _ := models.ParseRegime(m.Regime)
		out = append(out, TimelineSegment{Label: m.Regime, Months: 1, Color: regimeColor(r)})
	}
	return out
}

func regimeColor(r models.Regime) string {
	switch r {
	case models.Overheating:
		return "#ef5350"
	case models.Recovery:
		return "#4caf50"
	case models.Stagflation:
		return "#ff9800"
	case models.Contraction:
		return "#2196f3"
	}
	return "#9e9e9e"
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderTextReport(r *Report) string {
	var sb strings.Builder
	line := strings.Repeat("═", 72)
	thinLine := strings.Repeat("─", 72)

	sb.WriteString(line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", r.Title))
	sb.WriteString(fmt.Sprintf("  Run: %s | Generated: %s\n", r.RunID, r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(line + "\n")

	if c := r.Classification; c != nil {
		sb.WriteString(fmt.Sprintf("\n  ■ REGIME CLASSIFICATION SINCE %s\n", c.Since))
		sb.WriteString(fmt.Sprintf("    %-12s %10s %10s %10s %10s %10s  %s\n",
			"date", "gdp", "inflation", "curve", "m2", "velocity", "regime"))
		for _, m := range c.Months {
			sb.WriteString(fmt.Sprintf("    %-12s %10s %10s %10s %10s %10s  %s\n", m.Date,
				utils.FormatOptional(m.Growth, 4), utils.FormatOptional(m.Inflation, 4),
				utils.FormatOptional(m.YieldCurve, 2), utils.FormatOptional(m.MoneyGrowth, 4),
				utils.FormatOptional(m.VelocityChange, 4), m.Regime))
		}
		sb.WriteString("\n  Regime counts:\n")
		for _, reg := range models.Regimes() {
			if n, ok := c.Counts[reg.String()]; ok {
				sb.WriteString(fmt.Sprintf("    %-14s %d\n", reg, n))
			}
		}
		sb.WriteString(fmt.Sprintf("  Classified months (all time): %d\n", c.TotalMonths))
		if c.Latest != "" {
			sb.WriteString(fmt.Sprintf("\n  Latest regime: %s (%s)\n", c.Latest, c.LatestDate))
			if len(c.Suggested) > 0 {
				sb.WriteString(fmt.Sprintf("  Suggested allocation: %s\n", orderedWeights(c.Suggested)))
			}
		} else {
			sb.WriteString("\n  No classified months since cutoff.\n")
		}
		sb.WriteString(thinLine + "\n")
	}

	if o := r.Optimizer; o != nil {
		sb.WriteString(fmt.Sprintf("\n  ■ OPTIMAL ALLOCATIONS (%d solved, %d omitted)\n", o.Solved, o.Omitted))
		for _, ra := range o.Regimes {
			if ra.Status != "ok" {
				sb.WriteString(fmt.Sprintf("    %-14s n=%-4d %s\n", ra.Regime, ra.Observations, ra.Status))
				continue
			}
			sb.WriteString(fmt.Sprintf("    %-14s n=%-4d sharpe %s | %s\n",
				ra.Regime, ra.Observations, ratio(ra.Sharpe), orderedWeights(ra.Weights)))
		}
		sb.WriteString(thinLine + "\n")
	}

	if b := r.Backtest; b != nil {
		sb.WriteString("\n  ■ BACKTEST PERFORMANCE\n")
		if b.Start != "" {
			sb.WriteString(fmt.Sprintf("    Period:         %s to %s\n", b.Start, b.End))
		}
		sb.WriteString(fmt.Sprintf("    Days:           %d (%d excluded)\n", b.Days, b.ExcludedDays))
		sb.WriteString(fmt.Sprintf("    Rebalances:     %d\n", b.Rebalances))
		sb.WriteString(fmt.Sprintf("    CAGR:           %s\n", utils.FormatPct(b.Metrics.CAGR)))
		sb.WriteString(fmt.Sprintf("    Volatility:     %s\n", utils.FormatPct(b.Metrics.Volatility)))
		sb.WriteString(fmt.Sprintf("    Sharpe Ratio:   %s\n", ratio(b.Metrics.Sharpe)))
		sb.WriteString(fmt.Sprintf("    Sortino Ratio:  %s\n", ratio(b.Metrics.Sortino)))
		sb.WriteString(fmt.Sprintf("    Max Drawdown:   %s\n", utils.FormatPct(b.Metrics.MaxDrawdown)))
		sb.WriteString(fmt.Sprintf("    Total Return:   %s\n", utils.FormatPct(b.Metrics.TotalReturn)))
		sb.WriteString(thinLine + "\n")
	}

	return sb.String()
}
