package provider

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/regimefolio/internal/infra"
)

// BaseFetcher provides common functionality for fetcher implementations.
// Embed this in concrete fetchers to get response caching.
type BaseFetcher struct {
	model       ModelType
	description string
	required    []string
	optional    []string
	cache       *infra.Cache
}

// NewBaseFetcher creates a base fetcher with a five minute cache.
func NewBaseFetcher(model ModelType, desc string, required, optional []string) BaseFetcher {
	return NewBaseFetcherWithTTL(model, desc, required, optional, 5*time.Minute)
}

// NewBaseFetcherWithTTL creates a base fetcher with a custom cache TTL.
func NewBaseFetcherWithTTL(model ModelType, desc string, required, optional []string, cacheTTL time.Duration) BaseFetcher {
	return BaseFetcher{
		model:       model,
		description: desc,
		required:    required,
		optional:    optional,
		cache:       infra.NewCache(cacheTTL),
	}
}

func (b *BaseFetcher) ModelType() ModelType     { return b.model }
func (b *BaseFetcher) Description() string      { return b.description }
func (b *BaseFetcher) RequiredParams() []string { return b.required }
func (b *BaseFetcher) OptionalParams() []string { return b.optional }

// CacheGet retrieves a value from the fetcher's cache.
func (b *BaseFetcher) CacheGet(key string) (any, bool) {
	return b.cache.Get(key)
}

// CacheSet stores a value in the fetcher's cache.
func (b *BaseFetcher) CacheSet(key string, value any) {
	b.cache.Set(key, value)
}

// CacheKey builds a cache key from model type and query parameters.
// Keys starting with "_" carry secrets and are left out.
func CacheKey(model ModelType, params QueryParams) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamProvider || strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(model))
	for _, k := range keys {
		sb.WriteString(":" + k + "=" + params[k])
	}
	return sb.String()
}

// BaseProvider provides common functionality for provider implementations.
type BaseProvider struct {
	info        ProviderInfo
	fetchers    map[ModelType]Fetcher
	credentials map[string]string
}

// NewBaseProvider creates a base provider.
func NewBaseProvider(name, description, website string, creds []ProviderCredential) BaseProvider {
	return BaseProvider{
		info: ProviderInfo{
			Name:        name,
			Description: description,
			Website:     website,
			Credentials: creds,
		},
		fetchers:    make(map[ModelType]Fetcher),
		credentials: make(map[string]string),
	}
}

func (bp *BaseProvider) Info() ProviderInfo { return bp.info }

func (bp *BaseProvider) Init(credentials map[string]string) error {
	for _, cred := range bp.info.Credentials {
		if cred.Required {
			if val, ok := credentials[cred.Name]; !ok || val == "" {
				return &ErrInvalidCredentials{
					Provider: bp.info.Name,
					Detail:   "missing required credential: " + cred.Name,
				}
			}
		}
	}
	bp.credentials = credentials
	return nil
}

func (bp *BaseProvider) Fetcher(model ModelType) Fetcher {
	return bp.fetchers[model]
}

// SupportedModels returns the registered model types in sorted order.
func (bp *BaseProvider) SupportedModels() []ModelType {
	models := make([]ModelType, 0, len(bp.fetchers))
	for m := range bp.fetchers {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	return models
}

func (bp *BaseProvider) Ping(ctx context.Context) error {
	return nil // Override in concrete providers.
}

// RegisterFetcher adds a fetcher to this provider.
func (bp *BaseProvider) RegisterFetcher(f Fetcher) {
	bp.fetchers[f.ModelType()] = f
	bp.info.Models = bp.SupportedModels()
}

// Credential returns a stored credential value.
func (bp *BaseProvider) Credential(name string) string {
	return bp.credentials[name]
}
