// Package market loads daily closes for the risky asset classes and turns
// them into aligned daily or monthly return tables.
package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// Source retrieves a daily close series for [start, end).
type Source interface {
	Closes(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error)
}

// PriceTable holds closes for several assets on a shared set of dates.
type PriceTable struct {
	Dates  []time.Time
	Assets []models.Asset
	Closes map[models.Asset][]float64
}

// Len returns the number of dates.
func (pt *PriceTable) Len() int { return len(pt.Dates) }

// Loader fetches close series through a Source.
type Loader struct {
	src Source
}

// NewLoader creates a Loader.
func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Prices fetches every symbol concurrently and aligns them on the dates all
// series share. Any fetch failure or an empty intersection is an error.
func (l *Loader) Prices(ctx context.Context, symbols map[models.Asset]string, start, end time.Time) (*PriceTable, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("market: no symbols")
	}

	var mu sync.Mutex
	series := make(map[models.Asset][]models.PricePoint, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for asset, symbol := range symbols {
		asset, symbol := asset, symbol
		g.Go(func() error {
			points, err := l.src.Closes(gctx, symbol, start, end)
			if err != nil {
				return fmt.Errorf("market %s (%s): %w", asset, symbol, err)
			}
			if len(points) == 0 {
				return fmt.Errorf("market %s (%s): no prices", asset, symbol)
			}
			log.Debug().Str("component", "market").Str("asset", string(asset)).Str("symbol", symbol).
				Int("points", len(points)).Msg("prices loaded")
			mu.Lock()
			series[asset] = points
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pt := Align(series)
	if pt.Len() == 0 {
		return nil, fmt.Errorf("market: price series share no dates between %s and %s",
			utils.FormatDate(start), utils.FormatDate(end))
	}
	return pt, nil
}

// Align keeps only dates present in every series, in ascending order.
// Non-positive closes are treated as missing.
func Align(series map[models.Asset][]models.PricePoint) *PriceTable {
	pt := &PriceTable{Closes: make(map[models.Asset][]float64, len(series))}
	if len(series) == 0 {
		return pt
	}

	byDate := make(map[models.Asset]map[string]float64, len(series))
	counts := make(map[string]int)
	dates := make(map[string]time.Time)
	for asset, points := range series {
		pt.Assets = append(pt.Assets, asset)
		m := make(map[string]float64, len(points))
		for _, p := range points {
			if p.Close <= 0 {
				continue
			}
			key := utils.FormatDate(p.Date)
			if _, dup := m[key]; !dup {
				counts[key]++
			}
			m[key] = p.Close
			dates[key] = utils.Day(p.Date)
		}
		byDate[asset] = m
	}
	models.SortAssets(pt.Assets)

	for key, n := range counts {
		if n == len(series) {
			pt.Dates = append(pt.Dates, dates[key])
		}
	}
	sort.Slice(pt.Dates, func(i, j int) bool { return pt.Dates[i].Before(pt.Dates[j]) })

	for _, asset := range pt.Assets {
		closes := make([]float64, len(pt.Dates))
		for i, d := range pt.Dates {
			closes[i] = byDate[asset][utils.FormatDate(d)]
		}
		pt.Closes[asset] = closes
	}
	return pt
}

// DailyReturns returns the percentage change between consecutive dates.
// The first date has no return and is dropped.
func DailyReturns(pt *PriceTable) []models.ReturnRow {
	if pt.Len() < 2 {
		return nil
	}
	rows := make([]models.ReturnRow, 0, pt.Len()-1)
	for i := 1; i < pt.Len(); i++ {
		row := models.ReturnRow{Date: pt.Dates[i], Values: make(map[models.Asset]float64, len(pt.Assets))}
		for _, a := range pt.Assets {
			c := pt.Closes[a]
			row.Values[a] = c[i]/c[i-1] - 1
		}
		rows = append(rows, row)
	}
	return rows
}

// MonthlyReturns samples the last close of each calendar month and returns
// month-over-month percentage changes dated at the calendar month end.
func MonthlyReturns(pt *PriceTable) []models.ReturnRow {
	var idx []int
	for i := range pt.Dates {
		if i == pt.Len()-1 || !utils.SameMonth(pt.Dates[i], pt.Dates[i+1]) {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return nil
	}

	rows := make([]models.ReturnRow, 0, len(idx)-1)
	for k := 1; k < len(idx); k++ {
		prev, cur := idx[k-1], idx[k]
		row := models.ReturnRow{Date: utils.MonthEnd(pt.Dates[cur]), Values: make(map[models.Asset]float64, len(pt.Assets))}
		for _, a := range pt.Assets {
			c := pt.Closes[a]
			row.Values[a] = c[cur]/c[prev] - 1
		}
		rows = append(rows, row)
	}
	return rows
}
