package optimizer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/regimefolio/pkg/models"
)

func monthEnd(y int, m time.Month) time.Time {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

func defaultConfig() Config {
	return Config{MinCash: 0.10, MinObservations: 2, MaxIterations: 5000}
}

func samples(regime models.Regime, rows ...map[models.Asset]float64) []Sample {
	out := make([]Sample, len(rows))
	for i, r := range rows {
		out[i] = Sample{Date: monthEnd(2020, time.Month(i+1)), Regime: regime, Returns: r}
	}
	return out
}

func assertFeasible(t *testing.T, alloc models.Allocation, minCash float64) {
	t.Helper()
	assert.InDelta(t, 1.0, alloc.Sum(), models.WeightTolerance)
	assert.GreaterOrEqual(t, alloc[models.Cash], minCash-models.WeightTolerance)
	for a, w := range alloc {
		assert.GreaterOrEqual(t, w, 0.0, "weight of %s", a)
		assert.LessOrEqual(t, w, 1.0, "weight of %s", a)
	}
}

// ════════════════════════════════════════════════════════════════════
// Join and universe
// ════════════════════════════════════════════════════════════════════

func TestJoinByMonth(t *testing.T) {
	returns := []models.ReturnRow{
		{Date: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), Values: map[models.Asset]float64{models.Stocks: 0.01}},
		{Date: monthEnd(2020, 1), Values: map[models.Asset]float64{models.Stocks: 0.02}},
		{Date: monthEnd(2020, 2), Values: map[models.Asset]float64{models.Stocks: 0.03}},
		{Date: monthEnd(2020, 3), Values: map[models.Asset]float64{models.Stocks: 0.04}},
	}
	labels := []models.LabeledMonth{
		{Date: monthEnd(2020, 1), Regime: models.Recovery},
		{Date: monthEnd(2020, 2), Regime: models.Unknown},
		{Date: monthEnd(2020, 4), Regime: models.Contraction},
	}

	got := JoinByMonth(returns, labels)
	require.Len(t, got, 2)
	assert.Equal(t, models.Recovery, got[0].Regime)
	assert.Equal(t, models.Recovery, got[1].Regime)
	assert.InDelta(t, 0.02, got[1].Returns[models.Stocks], 1e-12)
}

func TestUniverseAppendsSyntheticSleeves(t *testing.T) {
	rows := []models.ReturnRow{
		{Values: map[models.Asset]float64{models.Commodities: 0, models.Stocks: 0}},
		{Values: map[models.Asset]float64{models.Crypto: 0, models.Cash: 0}},
	}
	risky, full := Universe(rows)
	assert.Equal(t, []models.Asset{models.Stocks, models.Crypto, models.Commodities}, risky)
	assert.Equal(t, []models.Asset{models.Stocks, models.Crypto, models.Commodities, models.Stablecoins, models.Cash}, full)
}

// ════════════════════════════════════════════════════════════════════
// Optimisation
// ════════════════════════════════════════════════════════════════════

func TestOptimizeFindsTangencySplit(t *testing.T) {
	// Uncorrelated assets with equal means; variance of Y is 4× that of X,
	// so the tangency portfolio holds X and Y in a 4:1 ratio.
	const a, b = 0.02, 0.04
	rows := samples(models.Recovery,
		map[models.Asset]float64{models.Stocks: 0.01 + a, models.Commodities: 0.01 + b},
		map[models.Asset]float64{models.Stocks: 0.01 - a, models.Commodities: 0.01 + b},
		map[models.Asset]float64{models.Stocks: 0.01 + a, models.Commodities: 0.01 - b},
		map[models.Asset]float64{models.Stocks: 0.01 - a, models.Commodities: 0.01 - b},
	)

	res, err := Optimize(rows, []models.Asset{models.Stocks, models.Commodities}, defaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)

	alloc := res.Table[models.Recovery]
	require.NotNil(t, alloc)
	assertFeasible(t, alloc, 0.10)
	assert.InDelta(t, 4.0, alloc[models.Stocks]/alloc[models.Commodities], 0.1)

	// Sharpe of the 4:1 mix: mean 0.01, variance (16·4a²/3 + 4b²/3)/25.
	want := 0.01 / math.Sqrt((16*4*a*a/3+4*b*b/3)/25)
	assert.InDelta(t, want, res.Outcomes[0].Sharpe, 1e-4)
	assert.True(t, res.Outcomes[0].OK())
}

func TestOptimizeRespectsHigherCashFloor(t *testing.T) {
	rows := samples(models.Overheating,
		map[models.Asset]float64{models.Stocks: 0.03, models.Crypto: -0.10},
		map[models.Asset]float64{models.Stocks: -0.01, models.Crypto: 0.20},
		map[models.Asset]float64{models.Stocks: 0.02, models.Crypto: 0.05},
	)
	cfg := defaultConfig()
	cfg.MinCash = 0.4

	res, err := Optimize(rows, []models.Asset{models.Stocks, models.Crypto}, cfg)
	require.NoError(t, err)
	assertFeasible(t, res.Table[models.Overheating], 0.4)
	assert.Len(t, res.Table[models.Overheating], 4)
}

func TestOptimizeSkipsSmallRegimesAndKeepsOrder(t *testing.T) {
	rows := append(
		samples(models.Stagflation, map[models.Asset]float64{models.Stocks: 0.01}),
		samples(models.Recovery,
			map[models.Asset]float64{models.Stocks: 0.01, models.Crypto: 0.03},
			map[models.Asset]float64{models.Stocks: 0.02, models.Crypto: -0.01},
			map[models.Asset]float64{models.Stocks: -0.01, models.Crypto: 0.02},
		)...,
	)

	res, err := Optimize(rows, []models.Asset{models.Stocks, models.Crypto}, defaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, models.Stagflation, res.Outcomes[0].Regime)
	assert.ErrorIs(t, res.Outcomes[0].Err, ErrTooFewObservations)
	assert.Equal(t, models.Recovery, res.Outcomes[1].Regime)
	assert.Equal(t, []models.Regime{models.Recovery}, res.Table.Regimes())
}

func TestOptimizeZeroVolatilityIsOmitted(t *testing.T) {
	rows := samples(models.Contraction,
		map[models.Asset]float64{models.Stocks: 0.01},
		map[models.Asset]float64{models.Stocks: 0.01},
		map[models.Asset]float64{models.Stocks: 0.01},
	)

	res, err := Optimize(rows, []models.Asset{models.Stocks}, defaultConfig())
	assert.True(t, errors.Is(err, ErrNoAllocations))
	require.NotNil(t, res)
	assert.Empty(t, res.Table)
	assert.ErrorIs(t, res.Outcomes[0].Err, ErrZeroVolatility)
}

func TestOptimizeIterationLimitIsFailure(t *testing.T) {
	rows := samples(models.Recovery,
		map[models.Asset]float64{models.Stocks: 0.03, models.Crypto: -0.10, models.Commodities: 0.01},
		map[models.Asset]float64{models.Stocks: -0.01, models.Crypto: 0.20, models.Commodities: 0.02},
		map[models.Asset]float64{models.Stocks: 0.02, models.Crypto: 0.05, models.Commodities: -0.01},
	)
	cfg := defaultConfig()
	cfg.MaxIterations = 1

	_, err := Optimize(rows, []models.Asset{models.Stocks, models.Crypto, models.Commodities}, cfg)
	assert.ErrorIs(t, err, ErrNoAllocations)
}

func TestOptimizeMissingReturnsCountAsZero(t *testing.T) {
	rows := samples(models.Recovery,
		map[models.Asset]float64{models.Stocks: 0.02},
		map[models.Asset]float64{models.Stocks: -0.01, models.Crypto: 0.04},
		map[models.Asset]float64{models.Stocks: 0.01, models.Crypto: -0.02},
	)
	res, err := Optimize(rows, []models.Asset{models.Stocks, models.Crypto}, defaultConfig())
	require.NoError(t, err)
	assertFeasible(t, res.Table[models.Recovery], 0.10)
}

func TestOptimizeRejectsBadConfig(t *testing.T) {
	_, err := Optimize(nil, nil, defaultConfig())
	assert.Error(t, err)

	cfg := defaultConfig()
	cfg.MinCash = 1
	_, err = Optimize(nil, []models.Asset{models.Stocks}, cfg)
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	w := softmax([]float64{0, 0, 0, 0})
	for _, v := range w {
		assert.InDelta(t, 0.25, v, 1e-15)
	}
	w = softmax([]float64{1000, 0})
	assert.InDelta(t, 1.0, w[0], 1e-12)
}
