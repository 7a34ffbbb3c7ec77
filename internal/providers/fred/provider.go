// Package fred implements the FRED (Federal Reserve Economic Data) provider.
// Only the series-observations endpoint is used: every macro indicator the
// classifier needs (real GDP, CPI, treasury yields, M2 and its velocity) is a
// plain FRED series.
//
// Requires a free API key from https://fred.stlouisfed.org/docs/api/api_key.html
// Rate limit: 120 requests/minute.
// Docs: https://fred.stlouisfed.org/docs/api/fred/
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/seenimoa/regimefolio/internal/infra"
	"github.com/seenimoa/regimefolio/internal/provider"
)

const (
	providerName   = "fred"
	DefaultBaseURL = "https://api.stlouisfed.org/fred"
	credAPIKey     = "api_key"
	paramAPIKey    = "_fred_api_key"
)

// Provider implements provider.Provider for FRED.
type Provider struct {
	provider.BaseProvider
	client  *infra.Client
	baseURL string
	apiKey  string
}

// New creates a FRED provider that talks to baseURL (DefaultBaseURL when
// empty) through client.
func New(client *infra.Client, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Federal Reserve Economic Data - macro indicator series",
			"https://fred.stlouisfed.org",
			[]provider.ProviderCredential{
				{
					Name:        credAPIKey,
					Description: "FRED API key from fred.stlouisfed.org",
					Required:    true,
					EnvVar:      "FRED_API_KEY",
				},
			},
		),
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	p.RegisterFetcher(newSeriesFetcher(p))
	return p
}

// Init stores the API key.
func (p *Provider) Init(credentials map[string]string) error {
	if err := p.BaseProvider.Init(credentials); err != nil {
		return err
	}
	p.apiKey = credentials[credAPIKey]
	return nil
}

// Ping checks connectivity and the API key against the GDP series metadata.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.client.Get(ctx, p.url("series", url.Values{"series_id": {"GDP"}}, p.apiKey), jsonHeaders()); err != nil {
		return fmt.Errorf("fred ping: %w", err)
	}
	return nil
}

// Fetcher overrides BaseProvider.Fetcher to return a wrapper that
// injects the FRED API key into query params before delegating.
func (p *Provider) Fetcher(model provider.ModelType) provider.Fetcher {
	inner := p.BaseProvider.Fetcher(model)
	if inner == nil {
		return nil
	}
	return &apiKeyInjector{inner: inner, apiKey: p.apiKey}
}

type apiKeyInjector struct {
	inner  provider.Fetcher
	apiKey string
}

func (w *apiKeyInjector) ModelType() provider.ModelType { return w.inner.ModelType() }
func (w *apiKeyInjector) Description() string           { return w.inner.Description() }
func (w *apiKeyInjector) RequiredParams() []string      { return w.inner.RequiredParams() }
func (w *apiKeyInjector) OptionalParams() []string      { return w.inner.OptionalParams() }

func (w *apiKeyInjector) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	enriched := make(provider.QueryParams, len(params)+1)
	for k, v := range params {
		enriched[k] = v
	}
	enriched[paramAPIKey] = w.apiKey
	return w.inner.Fetch(ctx, enriched)
}

// --- Shared helpers ---

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}

// url builds a full FRED API URL with api_key and file_type=json appended.
func (p *Provider) url(endpoint string, q url.Values, apiKey string) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", apiKey)
	q.Set("file_type", "json")
	return p.baseURL + "/" + endpoint + "?" + q.Encode()
}

// getJSON performs a GET request to the FRED API and decodes the JSON body.
func (p *Provider) getJSON(ctx context.Context, endpoint string, q url.Values, apiKey string, dest any) error {
	data, err := p.client.Get(ctx, p.url(endpoint, q, apiKey), jsonHeaders())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse FRED JSON: %w", err)
	}
	return nil
}
