// Package providers initializes and registers the concrete data providers
// with a provider registry.
package providers

import (
	"github.com/seenimoa/regimefolio/internal/infra"
	"github.com/seenimoa/regimefolio/internal/provider"
	"github.com/seenimoa/regimefolio/internal/providers/fred"
	"github.com/seenimoa/regimefolio/internal/providers/yfinance"
)

// Options carries the endpoint and credential settings for RegisterAllTo.
type Options struct {
	FREDAPIKey  string
	FREDBaseURL string
	YahooURL    string
}

// RegisterAllTo registers all available providers to the given registry.
// FRED is only registered when an API key is configured.
func RegisterAllTo(reg *provider.Registry, client *infra.Client, opts Options) error {
	// --- YFinance (free, no API key) ---
	yf := yfinance.New(client, opts.YahooURL)
	if err := yf.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(yf); err != nil {
		return err
	}

	// --- FRED (requires API key) ---
	if opts.FREDAPIKey != "" {
		fp := fred.New(client, opts.FREDBaseURL)
		if err := fp.Init(map[string]string{"api_key": opts.FREDAPIKey}); err != nil {
			return err
		}
		if err := reg.Register(fp); err != nil {
			return err
		}
	}

	return nil
}
