package optimizer

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// Sample is one return row tagged with the regime of its calendar month.
type Sample struct {
	Date    time.Time
	Regime  models.Regime
	Returns map[models.Asset]float64
}

// JoinByMonth inner-joins return rows with regime labels on calendar month.
// Months labelled Unknown, and rows whose month has no label, are dropped.
func JoinByMonth(returns []models.ReturnRow, labels []models.LabeledMonth) []Sample {
	byMonth := make(map[string]models.Regime, len(labels))
	for _, l := range labels {
		if l.Regime.Known() {
			byMonth[utils.MonthKey(l.Date)] = l.Regime
		}
	}

	out := make([]Sample, 0, len(returns))
	for _, row := range returns {
		r, ok := byMonth[utils.MonthKey(row.Date)]
		if !ok {
			continue
		}
		out = append(out, Sample{Date: row.Date, Regime: r, Returns: row.Values})
	}
	return out
}

// Universe splits the assets seen in rows into the risky assets, in
// canonical order, and the full list with both synthetic sleeves appended.
// A synthetic sleeve absent from every row is added with a warning; it
// earns nothing in the objective either way.
func Universe(rows []models.ReturnRow) (risky, full []models.Asset) {
	seen := make(map[models.Asset]bool)
	for _, row := range rows {
		for a := range row.Values {
			seen[a] = true
		}
	}
	for _, a := range models.Assets() {
		if a.IsRisky() && seen[a] {
			risky = append(risky, a)
		}
	}
	for _, a := range []models.Asset{models.Stablecoins, models.Cash} {
		if !seen[a] {
			log.Warn().Str("component", "optimizer").Str("asset", string(a)).
				Msg("adding synthetic column with 0% return")
		}
	}
	full = append(append(full, risky...), models.Stablecoins, models.Cash)
	return risky, full
}
