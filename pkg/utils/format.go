package utils

import (
	"fmt"
	"math"
	"strconv"
)

// FormatPct formats a fraction as a percentage with two decimals (0.1234 → "12.34%").
func FormatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatRatio formats a plain decimal ratio with two decimals, "n/a" when undefined.
func FormatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatFloat renders v with the shortest representation that parses back exactly.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatOptional renders a possibly undefined value with the given precision.
func FormatOptional(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
