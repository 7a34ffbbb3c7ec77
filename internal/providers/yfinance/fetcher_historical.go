package yfinance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/seenimoa/regimefolio/internal/provider"
	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// ErrNoData is returned when Yahoo answers without any usable close.
var ErrNoData = errors.New("yfinance: no price data")

type historicalFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newHistoricalFetcher(p *Provider, model provider.ModelType, desc string) *historicalFetcher {
	return &historicalFetcher{
		BaseFetcher: provider.NewBaseFetcherWithTTL(
			model,
			desc,
			[]string{provider.ParamSymbol, provider.ParamStartDate, provider.ParamEndDate},
			[]string{provider.ParamInterval},
			15*time.Minute,
		),
		p: p,
	}
}

// Fetch returns []models.PricePoint for [start_date, end_date). The end date
// is exclusive, as with the yfinance download API.
func (f *historicalFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	symbol := params[provider.ParamSymbol]

	start, err := utils.ParseDate(params[provider.ParamStartDate])
	if err != nil {
		return nil, fmt.Errorf("yfinance %s: start: %w", symbol, err)
	}
	end, err := utils.ParseDate(params[provider.ParamEndDate])
	if err != nil {
		return nil, fmt.Errorf("yfinance %s: end: %w", symbol, err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("yfinance %s: end %s not after start %s", symbol, utils.FormatDate(end), utils.FormatDate(start))
	}

	interval := params[provider.ParamInterval]
	if interval == "" {
		interval = "1d"
	}

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return &provider.FetchResult{Data: cached, FetchedAt: time.Now(), Cached: true}, nil
	}

	q := url.Values{
		"period1":  {fmt.Sprint(start.Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
		"interval": {interval},
		"events":   {"div,splits"},
	}
	chartURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.p.baseURL, url.PathEscape(symbol), q.Encode())

	var resp yfChartResponse
	if err := f.p.fetchJSON(ctx, chartURL, &resp); err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yfinance chart %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	points := parseCloses(resp.Chart.Result[0])
	if len(points) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	f.CacheSet(cacheKey, points)
	return &provider.FetchResult{Data: points, FetchedAt: time.Now()}, nil
}

// parseCloses picks the adjusted close of each bar, falling back to the raw
// close. Bars with neither are dropped. Timestamps are shifted by the
// exchange's GMT offset before truncation so each bar lands on its local
// trading date.
func parseCloses(result yfChartResult) []models.PricePoint {
	var closes, adj []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		var v *float64
		if i < len(adj) && adj[i] != nil {
			v = adj[i]
		} else if i < len(closes) && closes[i] != nil {
			v = closes[i]
		}
		if v == nil {
			continue
		}
		date := utils.Day(time.Unix(ts+result.Meta.GMTOffset, 0).UTC())
		if n := len(points); n > 0 && points[n-1].Date.Equal(date) {
			points[n-1].Close = *v
			continue
		}
		points = append(points, models.PricePoint{Date: date, Close: *v})
	}
	return points
}
