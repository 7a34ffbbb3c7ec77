package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/regimefolio/internal/infra"
	"github.com/seenimoa/regimefolio/internal/provider"
	"github.com/seenimoa/regimefolio/pkg/models"
)

const observationsFixture = `{
  "observation_start": "1776-07-04",
  "observation_end": "9999-12-31",
  "units": "lin",
  "count": 4,
  "observations": [
    {"realtime_start": "2024-01-01", "realtime_end": "2024-01-01", "date": "2020-03-01", "value": "102.5"},
    {"realtime_start": "2024-01-01", "realtime_end": "2024-01-01", "date": "2020-01-01", "value": "100.0"},
    {"realtime_start": "2024-01-01", "realtime_end": "2024-01-01", "date": "2020-02-01", "value": "."},
    {"realtime_start": "2024-01-01", "realtime_end": "2024-01-01", "date": "2020-04-01", "value": "-1.25"}
  ]
}`

func testClient() *infra.Client {
	return infra.NewClient(infra.ClientOptions{
		Timeout:         2 * time.Second,
		RequestsPerSec:  1000,
		MaxRetryElapsed: 100 * time.Millisecond,
	})
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := New(testClient(), srv.URL)
	require.NoError(t, p.Init(map[string]string{"api_key": "test-key"}))
	return p
}

func TestProviderInfo(t *testing.T) {
	info := New(testClient(), "").Info()
	assert.Equal(t, "fred", info.Name)
	assert.NotEmpty(t, info.Website)
	require.Len(t, info.Credentials, 1)
	assert.Equal(t, "api_key", info.Credentials[0].Name)
	assert.True(t, info.Credentials[0].Required)
	assert.Equal(t, []provider.ModelType{provider.ModelFredSeries}, info.Models)
}

func TestProviderInitRequiresKey(t *testing.T) {
	assert.Error(t, New(testClient(), "").Init(map[string]string{}))
}

func TestSeriesFetcher(t *testing.T) {
	var gotQuery atomic.Value
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/series/observations", r.URL.Path)
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(observationsFixture))
	})

	res, err := p.Fetcher(provider.ModelFredSeries).Fetch(context.Background(), provider.QueryParams{
		provider.ParamSymbol:    "CPIAUCSL",
		provider.ParamStartDate: "2020-01-01",
	})
	require.NoError(t, err)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, []string{"CPIAUCSL"}, q["series_id"])
	assert.Equal(t, []string{"test-key"}, q["api_key"])
	assert.Equal(t, []string{"json"}, q["file_type"])
	assert.Equal(t, []string{"2020-01-01"}, q["observation_start"])

	series := res.Data.(models.Series)
	assert.Equal(t, "CPIAUCSL", series.Name)
	require.Equal(t, 3, series.Len(), "missing '.' value skipped")
	assert.Equal(t, "2020-01-01", series.Observations[0].Date.Format("2006-01-02"))
	assert.InDelta(t, 100.0, series.Observations[0].Value, 1e-12)
	assert.InDelta(t, 102.5, series.Observations[1].Value, 1e-12)
	assert.InDelta(t, -1.25, series.Observations[2].Value, 1e-12)
}

func TestSeriesFetcherCaches(t *testing.T) {
	var hits int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(observationsFixture))
	})
	f := p.Fetcher(provider.ModelFredSeries)
	params := provider.QueryParams{provider.ParamSymbol: "GS10"}

	_, err := f.Fetch(context.Background(), params)
	require.NoError(t, err)
	res, err := f.Fetch(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSeriesFetcherEmptySeries(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"observations":[{"date":"2020-01-01","value":"."}]}`))
	})

	_, err := p.Fetcher(provider.ModelFredSeries).Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "M2V"})
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestSeriesFetcherSurfacesHTTPErrors(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request. The series does not exist."}`))
	})

	_, err := p.Fetcher(provider.ModelFredSeries).Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "NOPE"})
	var statusErr *infra.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestSeriesFetcherBadValue(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"observations":[{"date":"2020-01-01","value":"abc"}]}`))
	})

	_, err := p.Fetcher(provider.ModelFredSeries).Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "GS3M"})
	assert.Error(t, err)
}

func TestSourceThroughRegistry(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2010-01-01", r.URL.Query().Get("observation_start"))
		assert.Equal(t, "2024-12-31", r.URL.Query().Get("observation_end"))
		_, _ = w.Write([]byte(observationsFixture))
	})
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(p))

	series, err := NewSource(reg, "2010-01-01", "2024-12-31").Series(context.Background(), "M2SL")
	require.NoError(t, err)
	assert.Equal(t, 3, series.Len())
}

func TestSourceWithoutProvider(t *testing.T) {
	_, err := NewSource(provider.NewRegistry(), "", "").Series(context.Background(), "GDPC1")
	var notFound *provider.ErrProviderNotFound
	assert.ErrorAs(t, err, &notFound)
}
