package regime

import (
	"time"

	"github.com/seenimoa/regimefolio/pkg/models"
)

// Summary describes the classified months since a cutoff date.
type Summary struct {
	Since       time.Time             `json:"since" yaml:"since"`
	Recent      []models.LabeledMonth `json:"recent" yaml:"recent"`
	Counts      map[models.Regime]int `json:"counts" yaml:"counts"`
	Latest      *models.LabeledMonth  `json:"latest" yaml:"latest"`
	Suggested   models.Allocation     `json:"suggested" yaml:"suggested"`
	TotalMonths int                   `json:"total_months" yaml:"total_months"`
}

// Summarize reports classified months on or after since, the latest of them
// and its suggested allocation from table. Latest is nil when nothing has
// been classified since the cutoff.
func Summarize(labels []models.LabeledMonth, since time.Time, table models.AllocationTable) Summary {
	classified := Classified(labels)
	recent := Since(classified, since)

	s := Summary{
		Since:       since,
		Recent:      recent,
		Counts:      make(map[models.Regime]int),
		TotalMonths: len(classified),
	}
	for _, l := range recent {
		s.Counts[l.Regime]++
	}
	if n := len(recent); n > 0 {
		latest := recent[n-1]
		s.Latest = &latest
		if alloc, ok := table[latest.Regime]; ok {
			s.Suggested = alloc.Clone()
		}
	}
	return s
}
