// Package provider implements the data-provider abstraction layer. It defines
// a Provider interface, a Fetcher interface and a registry that routes data
// requests to the provider serving a given model type.
package provider

import (
	"context"
	"fmt"
	"time"
)

// ProviderCredential describes a required credential for a provider.
type ProviderCredential struct {
	Name        string `json:"name"`        // e.g., "api_key"
	Description string `json:"description"` // e.g., "FRED API key from fred.stlouisfed.org"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // e.g., "FRED_API_KEY"
}

// ProviderInfo holds metadata about a registered provider.
type ProviderInfo struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Website     string               `json:"website"`
	Credentials []ProviderCredential `json:"credentials"`
	Models      []ModelType          `json:"models"`
}

// Provider is the interface that all data providers implement.
type Provider interface {
	// Info returns metadata about this provider.
	Info() ProviderInfo

	// Init stores credentials. Returns an error if a required one is missing.
	Init(credentials map[string]string) error

	// Fetcher returns the fetcher for the given model type, or nil if unsupported.
	Fetcher(model ModelType) Fetcher

	// SupportedModels returns all model types this provider can fetch.
	SupportedModels() []ModelType

	// Ping verifies the provider's connectivity and credentials.
	Ping(ctx context.Context) error
}

// QueryParams is the generic query parameter map passed to fetchers.
//   - "symbol"     : ticker or series id (e.g., "SPY", "CPIAUCSL")
//   - "start_date" : YYYY-MM-DD
//   - "end_date"   : YYYY-MM-DD
//   - "interval"   : bar size (e.g., "1d", "1mo")
//   - "provider"   : override provider name
type QueryParams map[string]string

const (
	ParamSymbol    = "symbol"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamInterval  = "interval"
	ParamProvider  = "provider"
)

// FetchResult wraps a fetcher result with metadata.
type FetchResult struct {
	Provider  string    `json:"provider"`
	Model     ModelType `json:"model"`
	Data      any       `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
	Cached    bool      `json:"cached"`
}

// Fetcher fetches a single standard model type.
type Fetcher interface {
	ModelType() ModelType
	Description() string
	RequiredParams() []string
	OptionalParams() []string

	// Fetch retrieves data for the given query parameters. The data type
	// depends on the model:
	//   - FredSeries       → models.Series
	//   - EquityHistorical → []models.PricePoint
	//   - CryptoHistorical → []models.PricePoint
	Fetch(ctx context.Context, params QueryParams) (*FetchResult, error)
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrModelNotSupported is returned when a provider doesn't support a model type.
type ErrModelNotSupported struct {
	Provider string
	Model    ModelType
}

func (e *ErrModelNotSupported) Error() string {
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.Model)
}

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ErrInvalidCredentials is returned when provider credentials are invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}

// ValidateParams checks that all required parameters are present in params.
func ValidateParams(params QueryParams, required []string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Param: key}
		}
	}
	return nil
}
