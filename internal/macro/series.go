// Package macro turns raw FRED indicator series into the monthly table the
// regime classifier consumes: month-end resampling, percentage changes,
// the yield-curve spread and trailing trends.
package macro

import (
	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// ResampleMonthEnd returns one observation per calendar month, from the
// month of the first observation to the month of the last, dated at the
// month end. Each value is the latest observation on or before that month
// end, so months without a fresh print carry the previous value forward.
func ResampleMonthEnd(s models.Series) models.Series {
	out := models.Series{Name: s.Name}
	if s.Len() == 0 {
		return out
	}
	s.Sort()

	obs := s.Observations
	last := utils.MonthEnd(obs[len(obs)-1].Date)
	i := 0
	var current float64
	for m := utils.MonthEnd(obs[0].Date); !m.After(last); m = utils.NextMonthEnd(m) {
		for i < len(obs) && !obs[i].Date.After(m) {
			current = obs[i].Value
			i++
		}
		out.Observations = append(out.Observations, models.Observation{Date: m, Value: current})
	}
	return out
}

// PctChange returns s[i]/s[i-1] - 1 dated at s[i]. The first observation
// has no predecessor and is dropped, as is any point following a zero.
func PctChange(s models.Series) models.Series {
	out := models.Series{Name: s.Name}
	for i := 1; i < s.Len(); i++ {
		prev := s.Observations[i-1].Value
		if prev == 0 {
			continue
		}
		out.Observations = append(out.Observations, models.Observation{
			Date:  s.Observations[i].Date,
			Value: s.Observations[i].Value/prev - 1,
		})
	}
	return out
}

// Spread returns a - b on the dates both series share.
func Spread(name string, a, b models.Series) models.Series {
	byDate := make(map[string]float64, b.Len())
	for _, o := range b.Observations {
		byDate[utils.FormatDate(o.Date)] = o.Value
	}
	out := models.Series{Name: name}
	for _, o := range a.Observations {
		if v, ok := byDate[utils.FormatDate(o.Date)]; ok {
			out.Observations = append(out.Observations, models.Observation{Date: o.Date, Value: o.Value - v})
		}
	}
	return out
}

// Rolling returns the trailing mean over window values. A position is
// undefined unless all window values ending there are defined.
func Rolling(values []*float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 {
		return out
	}
	var sum float64
	run := 0 // consecutive defined values ending at i
	for i, v := range values {
		if v == nil {
			run, sum = 0, 0
			continue
		}
		run++
		sum += *v
		if run > window {
			sum -= *values[i-window]
		}
		if run >= window {
			mean := sum / float64(window)
			out[i] = &mean
		}
	}
	return out
}

// column aligns a series onto a month-end timeline by calendar month.
// Months without an observation are nil.
func column(timeline []models.Observation, s models.Series) []*float64 {
	byMonth := make(map[string]float64, s.Len())
	for _, o := range s.Observations {
		byMonth[utils.MonthKey(o.Date)] = o.Value
	}
	out := make([]*float64, len(timeline))
	for i, t := range timeline {
		if v, ok := byMonth[utils.MonthKey(t.Date)]; ok {
			v := v
			out[i] = &v
		}
	}
	return out
}
