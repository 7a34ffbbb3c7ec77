package macro

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/regimefolio/pkg/models"
)

// Source retrieves a named indicator series by code.
type Source interface {
	Series(ctx context.Context, code string) (models.Series, error)
}

// Codes names the upstream series for each indicator.
type Codes struct {
	Growth     string
	Inflation  string
	YieldLong  string
	YieldShort string
	Money      string
	Velocity   string
}

// Raw holds the six fetched series before any transformation.
type Raw struct {
	Growth     models.Series
	Inflation  models.Series
	YieldLong  models.Series
	YieldShort models.Series
	Money      models.Series
	Velocity   models.Series
}

// Loader fetches the indicator series and builds monthly macro rows.
type Loader struct {
	src    Source
	codes  Codes
	window int
}

// NewLoader creates a Loader computing trends over window months.
func NewLoader(src Source, codes Codes, window int) *Loader {
	return &Loader{src: src, codes: codes, window: window}
}

// Fetch retrieves all six series concurrently. Any failure aborts the load.
func (l *Loader) Fetch(ctx context.Context) (*Raw, error) {
	raw := &Raw{}
	targets := []struct {
		code string
		dst  *models.Series
	}{
		{l.codes.Growth, &raw.Growth},
		{l.codes.Inflation, &raw.Inflation},
		{l.codes.YieldLong, &raw.YieldLong},
		{l.codes.YieldShort, &raw.YieldShort},
		{l.codes.Money, &raw.Money},
		{l.codes.Velocity, &raw.Velocity},
	}

	for _, t := range targets {
		if t.code == "" {
			return nil, fmt.Errorf("macro: empty series code")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			s, err := l.src.Series(gctx, t.code)
			if err != nil {
				return fmt.Errorf("macro series %s: %w", t.code, err)
			}
			if s.Len() == 0 {
				return fmt.Errorf("macro series %s: no observations", t.code)
			}
			s.Name = t.code
			*t.dst = s
			log.Debug().Str("component", "macro").Str("series", t.code).Int("observations", s.Len()).Msg("series loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

// Load fetches the series and builds the monthly rows.
func (l *Loader) Load(ctx context.Context) ([]models.MacroRow, error) {
	raw, err := l.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return BuildRows(raw, l.window), nil
}

// BuildRows builds the monthly table. The timeline spans every month end
// covered by the inflation series; other indicators are left-joined onto it
// by calendar month.
func BuildRows(raw *Raw, window int) []models.MacroRow {
	inflation := ResampleMonthEnd(raw.Inflation)
	timeline := inflation.Observations

	growth := column(timeline, PctChange(ResampleMonthEnd(raw.Growth)))
	infl := column(timeline, PctChange(inflation))
	curve := column(timeline, Spread("yield_curve", ResampleMonthEnd(raw.YieldLong), ResampleMonthEnd(raw.YieldShort)))
	money := column(timeline, PctChange(ResampleMonthEnd(raw.Money)))
	velocity := column(timeline, PctChange(ResampleMonthEnd(raw.Velocity)))

	growthTrend := Rolling(growth, window)
	inflTrend := Rolling(infl, window)
	curveTrend := Rolling(curve, window)
	moneyTrend := Rolling(money, window)
	velocityTrend := Rolling(velocity, window)

	rows := make([]models.MacroRow, len(timeline))
	for i, t := range timeline {
		rows[i] = models.MacroRow{
			Date:           t.Date,
			Growth:         growth[i],
			Inflation:      infl[i],
			YieldCurve:     curve[i],
			MoneyGrowth:    money[i],
			VelocityChange: velocity[i],
			GrowthTrend:    growthTrend[i],
			InflationTrend: inflTrend[i],
			YieldTrend:     curveTrend[i],
			MoneyTrend:     moneyTrend[i],
			VelocityTrend:  velocityTrend[i],
		}
	}
	return rows
}
