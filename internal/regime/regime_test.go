package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/regimefolio/pkg/models"
)

func f(v float64) *float64 { return &v }

func inputs(g, i, m, v Signal) Inputs {
	return Inputs{Growth: g, Inflation: i, Money: m, Velocity: v, DefinedTrends: 3}
}

// ════════════════════════════════════════════════════════════════════
// Signals
// ════════════════════════════════════════════════════════════════════

func TestAbove(t *testing.T) {
	assert.Equal(t, Up, Above(f(2), f(1)))
	assert.Equal(t, Down, Above(f(1), f(1)))
	assert.Equal(t, Down, Above(f(0), f(1)))
	assert.Equal(t, Unknown, Above(f(1), nil))
	assert.Equal(t, Unknown, Above(nil, f(1)))
}

func TestThreeValuedLogic(t *testing.T) {
	assert.Equal(t, Unknown, Not(Unknown))
	assert.Equal(t, Down, Not(Up))

	assert.Equal(t, Up, And(Up, Up))
	assert.Equal(t, Down, And(Up, Down, Unknown))
	assert.Equal(t, Unknown, And(Up, Unknown))

	assert.Equal(t, Up, Or(Down, Up, Unknown))
	assert.Equal(t, Down, Or(Down, Down))
	assert.Equal(t, Unknown, Or(Down, Unknown))

	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "up", Up.String())
}

// ════════════════════════════════════════════════════════════════════
// Classification
// ════════════════════════════════════════════════════════════════════

func TestClassifyExamples(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want models.Regime
		rule string
	}{
		{"overheating", inputs(Up, Up, Up, Unknown), models.Overheating, "overheating"},
		{"contraction", inputs(Down, Down, Down, Down), models.Contraction, "contraction"},
		{"recovery via velocity", inputs(Up, Down, Down, Up), models.Recovery, "recovery"},
		{"stagflation", inputs(Down, Up, Up, Up), models.Stagflation, "stagflation"},
		{"growth up without liquidity", inputs(Up, Up, Down, Down), models.Recovery, "growth-up"},
		{"growth down, inflation down, liquidity up", inputs(Down, Down, Up, Down), models.Unknown, RuleNoMatch},
		{"fallback overheating", inputs(Unknown, Up, Down, Up), models.Overheating, "fallback-overheating"},
		{"fallback recovery", inputs(Unknown, Down, Up, Down), models.Recovery, "fallback-recovery"},
		{"fallback stagflation", inputs(Unknown, Up, Down, Down), models.Stagflation, "fallback-stagflation"},
		{"fallback no match", inputs(Unknown, Down, Down, Down), models.Unknown, RuleNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.in)
			assert.Equal(t, tt.want, d.Regime)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestClassifyUnknownNeverActsAsDown(t *testing.T) {
	// Contraction needs both liquidity signals known and down.
	d := Classify(Inputs{Growth: Down, Inflation: Down, Money: Down, Velocity: Unknown, DefinedTrends: 2})
	assert.Equal(t, models.Unknown, d.Regime)

	// Recovery needs inflation known and down.
	d = Classify(Inputs{Growth: Up, Inflation: Unknown, Money: Up, Velocity: Up, DefinedTrends: 2})
	assert.Equal(t, "growth-up", d.Rule)

	// Fallback recovery with inflation unknown cannot fire.
	d = Classify(Inputs{Growth: Unknown, Inflation: Unknown, Money: Up, Velocity: Up, DefinedTrends: 2})
	assert.Equal(t, models.Unknown, d.Regime)
}

func TestClassifyValidityGate(t *testing.T) {
	for n := 0; n < MinDefinedTrends; n++ {
		in := inputs(Up, Up, Up, Up)
		in.DefinedTrends = n
		d := Classify(in)
		assert.Equal(t, models.Unknown, d.Regime)
		assert.Equal(t, RuleInsufficientTrends, d.Rule)
	}
}

func TestInputsFromRowGate(t *testing.T) {
	// Growth and inflation trends defined, money and velocity missing: one
	// of the three gated trends is not enough whatever growth says.
	row := models.MacroRow{
		Growth: f(0.02), GrowthTrend: f(0.01),
		Inflation: f(0.03), InflationTrend: f(0.01),
		MoneyGrowth: f(0.05),
	}
	in := InputsFromRow(row)
	assert.Equal(t, 1, in.DefinedTrends)
	assert.Equal(t, Up, in.Growth)
	assert.Equal(t, Unknown, in.Money)
	assert.Equal(t, models.Unknown, Classify(in).Regime)

	row.VelocityChange, row.VelocityTrend = f(0.0), f(-0.01)
	in = InputsFromRow(row)
	assert.Equal(t, 2, in.DefinedTrends)
	assert.Equal(t, models.Overheating, Classify(in).Regime)
}

func TestRuleTablesAreOrdered(t *testing.T) {
	names := func(rs []Rule) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Name
		}
		return out
	}
	assert.Equal(t, []string{"overheating", "recovery", "stagflation", "contraction", "growth-up"}, names(GrowthRules()))
	assert.Equal(t, []string{"fallback-overheating", "fallback-recovery", "fallback-stagflation"}, names(FallbackRules()))
}

// ════════════════════════════════════════════════════════════════════
// Rows and summary
// ════════════════════════════════════════════════════════════════════

func month(y int, m time.Month) time.Time {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

func TestClassifyRowsAndFilters(t *testing.T) {
	rows := []models.MacroRow{
		{Date: month(2019, 12)},
		{Date: month(2020, 1), Growth: f(1), GrowthTrend: f(0), Inflation: f(1), InflationTrend: f(0), MoneyGrowth: f(1), MoneyTrend: f(0)},
		{Date: month(2020, 2), Growth: f(0), GrowthTrend: f(1), Inflation: f(0), InflationTrend: f(1), MoneyGrowth: f(0), MoneyTrend: f(1), VelocityChange: f(0), VelocityTrend: f(1)},
	}
	labels := ClassifyRows(rows, 0)
	require.Len(t, labels, 3)
	assert.Equal(t, models.Unknown, labels[0].Regime)
	assert.Equal(t, models.Overheating, labels[1].Regime)
	assert.Equal(t, models.Contraction, labels[2].Regime)

	classified := Classified(labels)
	assert.Len(t, classified, 2)
	assert.Len(t, Since(classified, month(2020, 2)), 1)

	// Raising the gate to three trends drops January's two-trend row.
	strict := ClassifyRows(rows, 3)
	assert.Equal(t, models.Unknown, strict[1].Regime)
	assert.Equal(t, models.Contraction, strict[2].Regime)
}

func TestSummarize(t *testing.T) {
	labels := []models.LabeledMonth{
		{Date: month(2019, 11), Regime: models.Recovery},
		{Date: month(2020, 1), Regime: models.Overheating},
		{Date: month(2020, 2), Regime: models.Unknown},
		{Date: month(2020, 3), Regime: models.Overheating},
		{Date: month(2020, 4), Regime: models.Contraction},
	}
	table := models.AllocationTable{
		models.Contraction: models.Allocation{models.Commodities: 0.7, models.Cash: 0.3},
	}

	s := Summarize(labels, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), table)
	assert.Equal(t, 4, s.TotalMonths)
	assert.Len(t, s.Recent, 3)
	assert.Equal(t, 2, s.Counts[models.Overheating])
	assert.Equal(t, 1, s.Counts[models.Contraction])
	require.NotNil(t, s.Latest)
	assert.Equal(t, models.Contraction, s.Latest.Regime)
	assert.InDelta(t, 0.7, s.Suggested[models.Commodities], 1e-12)
}

func TestSummarizeNothingRecent(t *testing.T) {
	s := Summarize([]models.LabeledMonth{{Date: month(2010, 1), Regime: models.Recovery}},
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	assert.Nil(t, s.Latest)
	assert.Empty(t, s.Recent)
	assert.Nil(t, s.Suggested)
}
