package fred

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/seenimoa/regimefolio/internal/provider"
	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// ErrEmptySeries is returned when FRED answers with no usable observation.
var ErrEmptySeries = errors.New("fred: series has no observations")

type seriesFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newSeriesFetcher(p *Provider) *seriesFetcher {
	return &seriesFetcher{
		BaseFetcher: provider.NewBaseFetcherWithTTL(
			provider.ModelFredSeries,
			"Get FRED time series observations by series ID",
			[]string{provider.ParamSymbol}, // series_id passed as symbol
			[]string{provider.ParamStartDate, provider.ParamEndDate},
			30*time.Minute,
		),
		p: p,
	}
}

func (f *seriesFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	seriesID := params[provider.ParamSymbol]

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return &provider.FetchResult{Data: cached, FetchedAt: time.Now(), Cached: true}, nil
	}

	q := url.Values{"series_id": {seriesID}}
	if sd := params[provider.ParamStartDate]; sd != "" {
		q.Set("observation_start", sd)
	}
	if ed := params[provider.ParamEndDate]; ed != "" {
		q.Set("observation_end", ed)
	}

	var resp fredObservationsResponse
	if err := f.p.getJSON(ctx, "series/observations", q, params[paramAPIKey], &resp); err != nil {
		return nil, fmt.Errorf("fred series %s: %w", seriesID, err)
	}

	series, err := toSeries(seriesID, resp.Observations)
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, series)
	return &provider.FetchResult{Data: series, FetchedAt: time.Now()}, nil
}

// toSeries converts raw observations, skipping the "." placeholder FRED uses
// for missing points.
func toSeries(id string, obs []fredObservation) (models.Series, error) {
	s := models.Series{Name: id, Observations: make([]models.Observation, 0, len(obs))}
	for _, o := range obs {
		if o.Value == "." || o.Value == "" {
			continue
		}
		d, err := utils.ParseDate(o.Date)
		if err != nil {
			return models.Series{}, fmt.Errorf("fred series %s: %w", id, err)
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return models.Series{}, fmt.Errorf("fred series %s: value %q on %s: %w", id, o.Value, o.Date, err)
		}
		s.Observations = append(s.Observations, models.Observation{Date: d, Value: v})
	}
	if s.Len() == 0 {
		return models.Series{}, fmt.Errorf("%w: %s", ErrEmptySeries, id)
	}
	s.Sort()
	return s, nil
}
