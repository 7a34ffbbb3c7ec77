// Package yfinance implements the Yahoo Finance data provider on top of the
// public v8 chart API. It serves daily closes for equities, ETFs and crypto
// pairs; no API key is required.
package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seenimoa/regimefolio/internal/infra"
	"github.com/seenimoa/regimefolio/internal/provider"
)

const (
	providerName   = "yfinance"
	DefaultBaseURL = "https://query1.finance.yahoo.com"
)

// Provider implements provider.Provider for Yahoo Finance.
type Provider struct {
	provider.BaseProvider
	client  *infra.Client
	baseURL string
}

// New creates a YFinance provider that talks to baseURL (DefaultBaseURL
// when empty) through client.
func New(client *infra.Client, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Yahoo Finance - free global price history",
			"https://finance.yahoo.com",
			nil, // no credentials required
		),
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	p.RegisterFetcher(newHistoricalFetcher(p, provider.ModelEquityHistorical, "Daily equity and ETF closes from Yahoo Finance"))
	p.RegisterFetcher(newHistoricalFetcher(p, provider.ModelCryptoHistorical, "Daily crypto pair closes from Yahoo Finance"))
	return p
}

// Ping checks connectivity to Yahoo Finance.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.client.Get(ctx, p.baseURL+"/v8/finance/chart/SPY?range=1d&interval=1d", jsonHeaders()); err != nil {
		return fmt.Errorf("yfinance ping: %w", err)
	}
	return nil
}

// --- Shared helpers ---

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}

// fetchJSON performs a GET request and decodes the response into dest.
func (p *Provider) fetchJSON(ctx context.Context, url string, dest any) error {
	data, err := p.client.Get(ctx, url, jsonHeaders())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}

// IsCryptoPair reports whether symbol is a Yahoo crypto pair such as BTC-USD.
func IsCryptoPair(symbol string) bool {
	i := strings.LastIndex(symbol, "-")
	if i <= 0 {
		return false
	}
	switch strings.ToUpper(symbol[i+1:]) {
	case "USD", "USDT", "USDC", "EUR", "BTC", "ETH":
		return true
	}
	return false
}
