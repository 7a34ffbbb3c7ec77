package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/regimefolio/pkg/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ════════════════════════════════════════════════════════════════════
// Labels
// ════════════════════════════════════════════════════════════════════

func TestLabels_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	in := []models.LabeledMonth{
		{Date: date(2020, 1, 31), Regime: models.Overheating},
		{Date: date(2020, 2, 29), Regime: models.Unknown},
		{Date: date(2020, 3, 31), Regime: models.Contraction},
	}
	require.NoError(t, WriteLabels(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,regime\n2020-01-31,Overheating\n2020-02-29,\n2020-03-31,Contraction\n", string(raw))

	out, err := ReadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadLabels_SortsAndAcceptsNaN(t *testing.T) {
	path := writeFile(t, "labels.csv", "date,regime\n2021-02-28,NaN\n2021-01-31,recovery\n")
	out, err := ReadLabels(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, models.Recovery, out[0].Regime)
	assert.Equal(t, models.Unknown, out[1].Regime)
}

func TestReadLabels_Errors(t *testing.T) {
	_, err := ReadLabels(writeFile(t, "a.csv", "when,regime\n"))
	require.ErrorIs(t, err, ErrBadHeader)

	_, err = ReadLabels(writeFile(t, "b.csv", "date,regime\n2021-01-31,Boom\n"))
	require.ErrorIs(t, err, models.ErrUnknownRegimeLabel)

	_, err = ReadLabels(writeFile(t, "c.csv", ""))
	require.ErrorIs(t, err, ErrBadHeader)

	_, err = ReadLabels(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// ════════════════════════════════════════════════════════════════════
// Returns
// ════════════════════════════════════════════════════════════════════

func TestReturns_RoundTripWithMissingCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.csv")
	assets := []models.Asset{models.Stocks, models.Crypto}
	in := []models.ReturnRow{
		{Date: date(2020, 1, 31), Values: map[models.Asset]float64{models.Stocks: 0.0123}},
		{Date: date(2020, 2, 29), Values: map[models.Asset]float64{models.Stocks: -0.05, models.Crypto: 0.2}},
	}
	require.NoError(t, WriteReturns(path, in, assets))

	out, order, err := ReadReturns(path)
	require.NoError(t, err)
	assert.Equal(t, assets, order)
	assert.Equal(t, in, out)
}

func TestReadReturns_LowercaseDateAndLegacyColumn(t *testing.T) {
	path := writeFile(t, "r.csv", "date,stocks,stable_yield\n2020-01-31,0.01,NaN\n")
	out, order, err := ReadReturns(path)
	require.NoError(t, err)
	assert.Equal(t, []models.Asset{models.Stocks, models.Stablecoins}, order)
	assert.Equal(t, map[models.Asset]float64{models.Stocks: 0.01}, out[0].Values)
}

func TestReadReturns_Errors(t *testing.T) {
	_, _, err := ReadReturns(writeFile(t, "a.csv", "Date,bonds\n"))
	require.ErrorIs(t, err, models.ErrUnknownAsset)

	_, _, err = ReadReturns(writeFile(t, "b.csv", "stocks\n0.1\n"))
	require.ErrorIs(t, err, ErrBadHeader)

	_, _, err = ReadReturns(writeFile(t, "c.csv", "Date,stocks\n2020-01-31,abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2 column stocks")
}

// ════════════════════════════════════════════════════════════════════
// Allocations
// ════════════════════════════════════════════════════════════════════

func TestAllocations_ExactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alloc.csv")
	in := models.AllocationTable{
		models.Recovery: {
			models.Stocks: 0.1 + 0.2, models.Crypto: 1.0 / 3, models.Commodities: 0,
			models.Stablecoins: 0.0000001, models.Cash: 1 - (0.1 + 0.2) - 1.0/3 - 0.0000001,
		},
		models.Overheating: {models.Stocks: 0.5, models.Crypto: 0.4, models.Cash: 0.1},
	}
	require.NoError(t, WriteAllocations(path, in))

	out, err := ReadAllocations(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "regime,stocks,crypto,commodities,stablecoins,cash\nOverheating,")
}

func TestReadAllocations_Errors(t *testing.T) {
	_, err := ReadAllocations(writeFile(t, "a.csv", "regime,stocks\nUnknown,1\n"))
	require.ErrorIs(t, err, models.ErrUnknownRegimeLabel)

	_, err = ReadAllocations(writeFile(t, "b.csv", "regime,gold\nRecovery,1\n"))
	require.ErrorIs(t, err, models.ErrUnknownAsset)

	_, err = ReadAllocations(writeFile(t, "c.csv", "regime,stocks\nRecovery,-0.2\n"))
	require.ErrorIs(t, err, models.ErrNegativeWeight)

	_, err = ReadAllocations(writeFile(t, "d.csv", "name,stocks\n"))
	require.ErrorIs(t, err, ErrBadHeader)
}

// ════════════════════════════════════════════════════════════════════
// Backtest
// ════════════════════════════════════════════════════════════════════

func TestBacktest_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "bt.csv")
	in := []models.DailyResult{
		{Date: date(2024, 1, 2), Regime: models.Unknown},
		{Date: date(2024, 1, 3), Regime: models.Recovery, Return: 0.0042, Defined: true},
	}
	require.NoError(t, WriteBacktest(path, in))

	out, err := ReadBacktest(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}
