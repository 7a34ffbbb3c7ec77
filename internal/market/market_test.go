package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/regimefolio/pkg/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pts(pairs ...any) []models.PricePoint {
	var out []models.PricePoint
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.PricePoint{Date: pairs[i].(time.Time), Close: pairs[i+1].(float64)})
	}
	return out
}

type fakeSource struct {
	data map[string][]models.PricePoint
	fail string
}

func (s *fakeSource) Closes(_ context.Context, symbol string, _, _ time.Time) ([]models.PricePoint, error) {
	if symbol == s.fail {
		return nil, errors.New("symbol not found")
	}
	return s.data[symbol], nil
}

func TestAlignIntersectsDates(t *testing.T) {
	pt := Align(map[models.Asset][]models.PricePoint{
		// crypto trades on the weekend; the stock market does not
		models.Crypto: pts(day(2024, 1, 5), 100.0, day(2024, 1, 6), 101.0, day(2024, 1, 8), 102.0),
		models.Stocks: pts(day(2024, 1, 8), 50.0, day(2024, 1, 5), 49.0),
	})

	require.Equal(t, 2, pt.Len())
	assert.Equal(t, []time.Time{day(2024, 1, 5), day(2024, 1, 8)}, pt.Dates)
	assert.Equal(t, []models.Asset{models.Stocks, models.Crypto}, pt.Assets)
	assert.Equal(t, []float64{100, 102}, pt.Closes[models.Crypto])
	assert.Equal(t, []float64{49, 50}, pt.Closes[models.Stocks])
}

func TestAlignDropsNonPositiveCloses(t *testing.T) {
	pt := Align(map[models.Asset][]models.PricePoint{
		models.Stocks: pts(day(2024, 1, 2), 10.0, day(2024, 1, 3), 0.0),
	})
	assert.Equal(t, 1, pt.Len())
}

func TestDailyReturns(t *testing.T) {
	pt := Align(map[models.Asset][]models.PricePoint{
		models.Stocks:      pts(day(2024, 1, 2), 100.0, day(2024, 1, 3), 110.0, day(2024, 1, 4), 99.0),
		models.Commodities: pts(day(2024, 1, 2), 20.0, day(2024, 1, 3), 20.0, day(2024, 1, 4), 21.0),
	})
	rows := DailyReturns(pt)

	require.Len(t, rows, 2)
	assert.Equal(t, day(2024, 1, 3), rows[0].Date)
	assert.InDelta(t, 0.10, rows[0].Values[models.Stocks], 1e-12)
	assert.InDelta(t, 0.0, rows[0].Values[models.Commodities], 1e-12)
	assert.InDelta(t, -0.10, rows[1].Values[models.Stocks], 1e-12)
	assert.InDelta(t, 0.05, rows[1].Values[models.Commodities], 1e-12)
}

func TestDailyReturnsTooShort(t *testing.T) {
	assert.Nil(t, DailyReturns(&PriceTable{Dates: []time.Time{day(2024, 1, 2)}}))
}

func TestMonthlyReturnsUsesLastCloseOfMonth(t *testing.T) {
	pt := Align(map[models.Asset][]models.PricePoint{
		models.Stocks: pts(
			day(2024, 1, 2), 90.0, day(2024, 1, 31), 100.0,
			day(2024, 2, 1), 120.0, day(2024, 2, 28), 110.0,
			day(2024, 3, 28), 121.0,
		),
	})
	rows := MonthlyReturns(pt)

	require.Len(t, rows, 2)
	assert.Equal(t, day(2024, 2, 29), rows[0].Date)
	assert.InDelta(t, 0.10, rows[0].Values[models.Stocks], 1e-12)
	assert.Equal(t, day(2024, 3, 31), rows[1].Date)
	assert.InDelta(t, 0.10, rows[1].Values[models.Stocks], 1e-12)
}

func TestLoaderPrices(t *testing.T) {
	src := &fakeSource{data: map[string][]models.PricePoint{
		"SPY":     pts(day(2024, 1, 2), 1.0, day(2024, 1, 3), 2.0),
		"BTC-USD": pts(day(2024, 1, 1), 1.0, day(2024, 1, 2), 1.0, day(2024, 1, 3), 2.0),
	}}
	pt, err := NewLoader(src).Prices(context.Background(),
		map[models.Asset]string{models.Stocks: "SPY", models.Crypto: "BTC-USD"},
		day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, pt.Len())
}

func TestLoaderPricesSurfacesFailure(t *testing.T) {
	src := &fakeSource{data: map[string][]models.PricePoint{"SPY": pts(day(2024, 1, 2), 1.0)}, fail: "GLD"}
	_, err := NewLoader(src).Prices(context.Background(),
		map[models.Asset]string{models.Stocks: "SPY", models.Commodities: "GLD"},
		day(2024, 1, 1), day(2024, 2, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GLD")
}

func TestLoaderPricesNoOverlap(t *testing.T) {
	src := &fakeSource{data: map[string][]models.PricePoint{
		"SPY": pts(day(2024, 1, 2), 1.0),
		"GLD": pts(day(2024, 1, 3), 1.0),
	}}
	_, err := NewLoader(src).Prices(context.Background(),
		map[models.Asset]string{models.Stocks: "SPY", models.Commodities: "GLD"},
		day(2024, 1, 1), day(2024, 2, 1))
	assert.Error(t, err)
}

func TestLoaderPricesNoSymbols(t *testing.T) {
	_, err := NewLoader(&fakeSource{}).Prices(context.Background(), nil, day(2024, 1, 1), day(2024, 2, 1))
	assert.Error(t, err)
}
