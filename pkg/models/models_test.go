package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ════════════════════════════════════════════════════════════════════
// Regime
// ════════════════════════════════════════════════════════════════════

func TestParseRegime(t *testing.T) {
	tests := []struct {
		in   string
		want Regime
		err  bool
	}{
		{"Overheating", Overheating, false},
		{" recovery ", Recovery, false},
		{"STAGFLATION", Stagflation, false},
		{"", Unknown, false},
		{"unknown", Unknown, false},
		{"Boom", Unknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegime(tt.in)
			if tt.err {
				require.ErrorIs(t, err, ErrUnknownRegimeLabel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegimeKnown(t *testing.T) {
	for _, r := range Regimes() {
		assert.True(t, r.Known(), r)
	}
	assert.False(t, Unknown.Known())
	assert.False(t, Regime("Boom").Known())
}

// ════════════════════════════════════════════════════════════════════
// Asset & Allocation
// ════════════════════════════════════════════════════════════════════

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("Stocks")
	require.NoError(t, err)
	assert.Equal(t, Stocks, a)

	a, err = ParseAsset("stable_yield")
	require.NoError(t, err)
	assert.Equal(t, Stablecoins, a)

	_, err = ParseAsset("bonds")
	require.ErrorIs(t, err, ErrUnknownAsset)
}

func TestAssetKinds(t *testing.T) {
	assert.True(t, Cash.IsSynthetic())
	assert.True(t, Stablecoins.IsSynthetic())
	assert.True(t, Crypto.IsRisky())

	assets := []Asset{Cash, Commodities, Stocks, Stablecoins, Crypto}
	SortAssets(assets)
	assert.Equal(t, Assets(), assets)
}

func TestNewAllocation(t *testing.T) {
	al, err := NewAllocation(map[string]float64{"stocks": 0.5, "stable_yield": 0.2, "cash": 0.3})
	require.NoError(t, err)
	assert.Equal(t, Allocation{Stocks: 0.5, Stablecoins: 0.2, Cash: 0.3}, al)

	_, err = NewAllocation(map[string]float64{"gold": 1})
	require.ErrorIs(t, err, ErrUnknownAsset)

	_, err = NewAllocation(map[string]float64{"stocks": -0.1})
	require.ErrorIs(t, err, ErrNegativeWeight)

	_, err = NewAllocation(map[string]float64{"stocks": math.NaN()})
	require.ErrorIs(t, err, ErrNegativeWeight)
}

func TestAllocationNormalize(t *testing.T) {
	al := Allocation{Stocks: 0.6, Crypto: 0.3}
	n, err := al.Normalize(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, n.Sum(), WeightTolerance)
	assert.InDelta(t, 0.6, n[Stocks], 1e-12)
	assert.InDelta(t, 0.1, n[Cash], 1e-12)
	assert.Contains(t, n, Stablecoins)
	assert.Zero(t, n[Stablecoins])

	// Rescaled when the defaults push the total past 1.
	n, err = Allocation{Stocks: 1}.Normalize(0.25)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, n[Stocks], 1e-12)
	assert.InDelta(t, 0.2, n[Cash], 1e-12)

	// The receiver is untouched.
	assert.NotContains(t, al, Cash)

	_, err = Allocation{}.Normalize(0)
	require.ErrorIs(t, err, ErrEmptyAllocation)
	_, err = Allocation{Stocks: -1}.Normalize(0.1)
	require.ErrorIs(t, err, ErrNegativeWeight)
}

func TestAllocationEqualAndEqualWeight(t *testing.T) {
	a := Allocation{Stocks: 0.5, Cash: 0.5}
	b := Allocation{Stocks: 0.5, Cash: 0.5, Crypto: 0}
	assert.True(t, a.Equal(b, 0))
	assert.False(t, a.Equal(Allocation{Stocks: 1}, 1e-9))

	ew := EqualWeight([]Asset{Stocks, Crypto, Commodities, Cash})
	for _, w := range ew {
		assert.Equal(t, 0.25, w)
	}
	assert.Empty(t, EqualWeight(nil))
}

func TestAllocationTable(t *testing.T) {
	table := AllocationTable{
		Contraction: {Commodities: 0.9},
		Overheating: {Stocks: 0.5, Cash: 0.5},
	}
	assert.Equal(t, []Regime{Overheating, Contraction}, table.Regimes())
	assert.Equal(t, []Asset{Stocks, Commodities, Cash}, table.Assets())

	n, err := table.Normalize(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, n[Contraction][Commodities], 1e-12)

	_, err = AllocationTable{Recovery: {}}.Normalize(0)
	require.ErrorIs(t, err, ErrEmptyAllocation)
	assert.Contains(t, err.Error(), "regime Recovery")
}

// ════════════════════════════════════════════════════════════════════
// Series
// ════════════════════════════════════════════════════════════════════

func TestSeriesSort(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Series{Name: "x", Observations: []Observation{
		{Date: d.AddDate(0, 2, 0), Value: 3},
		{Date: d, Value: 1},
		{Date: d.AddDate(0, 1, 0), Value: 2},
	}}
	s.Sort()
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{1, 2, 3}, []float64{s.Observations[0].Value, s.Observations[1].Value, s.Observations[2].Value})
}
