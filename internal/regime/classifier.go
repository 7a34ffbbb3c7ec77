package regime

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seenimoa/regimefolio/pkg/models"
)

// Inputs are the four directional signals for one month plus the number of
// defined trends among inflation, money growth and velocity.
type Inputs struct {
	Growth        Signal
	Inflation     Signal
	Money         Signal
	Velocity      Signal
	DefinedTrends int
}

// InputsFromRow derives classifier inputs from a macro row.
func InputsFromRow(row models.MacroRow) Inputs {
	in := Inputs{
		Growth:    Above(row.Growth, row.GrowthTrend),
		Inflation: Above(row.Inflation, row.InflationTrend),
		Money:     Above(row.MoneyGrowth, row.MoneyTrend),
		Velocity:  Above(row.VelocityChange, row.VelocityTrend),
	}
	for _, trend := range []*float64{row.InflationTrend, row.MoneyTrend, row.VelocityTrend} {
		if trend != nil {
			in.DefinedTrends++
		}
	}
	return in
}

// Rule is a named predicate; it fires only when the predicate is Up.
type Rule struct {
	Name   string
	Regime models.Regime
	When   func(Inputs) Signal
}

// Decision is the classifier outcome and the rule that produced it.
type Decision struct {
	Regime models.Regime `json:"regime"`
	Rule   string        `json:"rule"`
}

const (
	RuleInsufficientTrends = "insufficient-trends"
	RuleNoMatch            = "no-match"
)

// MinDefinedTrends is the validity gate on inflation, money and velocity trends.
const MinDefinedTrends = 2

func liquidity(in Inputs) Signal { return Or(in.Money, in.Velocity) }

// growthRules apply when the growth signal is known. The final rule makes
// growth-up a Recovery whatever the other signals say.
var growthRules = []Rule{
	{"overheating", models.Overheating, func(in Inputs) Signal {
		return And(in.Growth, in.Inflation, liquidity(in))
	}},
	{"recovery", models.Recovery, func(in Inputs) Signal {
		return And(in.Growth, Not(in.Inflation), liquidity(in))
	}},
	{"stagflation", models.Stagflation, func(in Inputs) Signal {
		return And(Not(in.Growth), in.Inflation)
	}},
	{"contraction", models.Contraction, func(in Inputs) Signal {
		return And(Not(in.Growth), Not(in.Money), Not(in.Velocity))
	}},
	{"growth-up", models.Recovery, func(in Inputs) Signal {
		return in.Growth
	}},
}

// fallbackRules apply when the growth signal is unknown.
var fallbackRules = []Rule{
	{"fallback-overheating", models.Overheating, func(in Inputs) Signal {
		return And(in.Inflation, liquidity(in))
	}},
	{"fallback-recovery", models.Recovery, func(in Inputs) Signal {
		return And(Not(in.Inflation), liquidity(in))
	}},
	{"fallback-stagflation", models.Stagflation, func(in Inputs) Signal {
		return And(in.Inflation, Not(in.Money), Not(in.Velocity))
	}},
}

// GrowthRules returns a copy of the ordered rules used when growth is known.
func GrowthRules() []Rule { return append([]Rule(nil), growthRules...) }

// FallbackRules returns a copy of the ordered rules used when growth is unknown.
func FallbackRules() []Rule { return append([]Rule(nil), fallbackRules...) }

// Classify evaluates the validity gate, then the applicable rule table in
// order. The first rule whose predicate is Up wins; no match is Unknown.
func Classify(in Inputs) Decision {
	return classify(in, MinDefinedTrends)
}

func classify(in Inputs, minTrends int) Decision {
	if in.DefinedTrends < minTrends {
		return Decision{Regime: models.Unknown, Rule: RuleInsufficientTrends}
	}
	rules := fallbackRules
	if in.Growth.Known() {
		rules = growthRules
	}
	for _, r := range rules {
		if r.When(in) == Up {
			return Decision{Regime: r.Regime, Rule: r.Name}
		}
	}
	return Decision{Regime: models.Unknown, Rule: RuleNoMatch}
}

// ClassifyRows labels every row, Unknown included, in input order. A row
// needs at least minTrends defined trends; non-positive means MinDefinedTrends.
func ClassifyRows(rows []models.MacroRow, minTrends int) []models.LabeledMonth {
	if minTrends <= 0 {
		minTrends = MinDefinedTrends
	}
	out := make([]models.LabeledMonth, len(rows))
	for i, row := range rows {
		d := classify(InputsFromRow(row), minTrends)
		out[i] = models.LabeledMonth{Date: row.Date, Regime: d.Regime}
		log.Trace().Str("component", "regime").Time("date", row.Date).
			Str("regime", d.Regime.String()).Str("rule", d.Rule).Msg("classified")
	}
	return out
}

// Classified keeps only months with an assigned regime.
func Classified(labels []models.LabeledMonth) []models.LabeledMonth {
	out := make([]models.LabeledMonth, 0, len(labels))
	for _, l := range labels {
		if l.Regime.Known() {
			out = append(out, l)
		}
	}
	return out
}

// Since keeps labels dated on or after t.
func Since(labels []models.LabeledMonth, t time.Time) []models.LabeledMonth {
	out := make([]models.LabeledMonth, 0, len(labels))
	for _, l := range labels {
		if !l.Date.Before(t) {
			out = append(out, l)
		}
	}
	return out
}
