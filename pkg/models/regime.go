// Package models defines the core data structures shared by the classifier,
// optimizer and backtester.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Regime is a discrete macroeconomic state label.
type Regime string

const (
	Overheating Regime = "Overheating"
	Recovery    Regime = "Recovery"
	Stagflation Regime = "Stagflation"
	Contraction Regime = "Contraction"
	Unknown     Regime = "Unknown"
)

// ErrUnknownRegimeLabel is returned when a label is outside the regime taxonomy.
var ErrUnknownRegimeLabel = errors.New("unknown regime label")

// Regimes lists the assignable regimes in canonical order.
func Regimes() []Regime {
	return []Regime{Overheating, Recovery, Stagflation, Contraction}
}

// ParseRegime converts a label into a Regime. Empty strings and "Unknown"
// map to Unknown; anything outside the taxonomy is an error.
func ParseRegime(s string) (Regime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown, nil
	}
	for _, r := range append(Regimes(), Unknown) {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownRegimeLabel, s)
}

// Known reports whether r is one of the four assignable regimes.
func (r Regime) Known() bool {
	switch r {
	case Overheating, Recovery, Stagflation, Contraction:
		return true
	}
	return false
}

func (r Regime) String() string { return string(r) }

// LabeledMonth is one row of the regime label file.
type LabeledMonth struct {
	Date   time.Time `json:"date"   yaml:"date"`
	Regime Regime    `json:"regime" yaml:"regime"`
}

// MacroRow holds one month of indicator values and their trailing trends.
// Nil pointers mark undefined values.
type MacroRow struct {
	Date           time.Time `json:"date"`
	Growth         *float64  `json:"gdp_growth,omitempty"`
	Inflation      *float64  `json:"inflation,omitempty"`
	YieldCurve     *float64  `json:"yield_curve,omitempty"`
	MoneyGrowth    *float64  `json:"m2_growth,omitempty"`
	VelocityChange *float64  `json:"velocity_change,omitempty"`
	GrowthTrend    *float64  `json:"growth_trend,omitempty"`
	InflationTrend *float64  `json:"inflation_trend,omitempty"`
	YieldTrend     *float64  `json:"yield_trend,omitempty"`
	MoneyTrend     *float64  `json:"m2_trend,omitempty"`
	VelocityTrend  *float64  `json:"velocity_trend,omitempty"`
}
