package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry maps provider names to providers and keeps, per model type, the
// providers able to serve it in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	modelIdx  map[ModelType][]string // model → provider names (priority order)
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		modelIdx:  make(map[ModelType][]string),
	}
}

// Register adds an initialised provider. Re-registering a name replaces the
// provider but keeps its priority slot.
func (r *Registry) Register(p Provider) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[info.Name] = p
	for _, model := range p.SupportedModels() {
		if !contains(r.modelIdx[model], info.Name) {
			r.modelIdx[model] = append(r.modelIdx[model], info.Name)
		}
	}
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return p, nil
}

// List returns info about all registered providers, sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// ProvidersFor returns the providers serving model, first = default.
func (r *Registry) ProvidersFor(model ModelType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.modelIdx[model]...)
}

// Fetch routes a request to params["provider"] or the model's default provider.
func (r *Registry) Fetch(ctx context.Context, model ModelType, params QueryParams) (*FetchResult, error) {
	name := params[ParamProvider]

	r.mu.RLock()
	if name == "" && len(r.modelIdx[model]) > 0 {
		name = r.modelIdx[model][0]
	}
	p, ok := r.providers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	fetcher := p.Fetcher(model)
	if fetcher == nil {
		return nil, &ErrModelNotSupported{Provider: name, Model: model}
	}
	if err := ValidateParams(params, fetcher.RequiredParams()); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := fetcher.Fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("provider %q fetch %s: %w", name, model, err)
	}

	result.Provider = name
	result.Model = model
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now()
	}
	log.Debug().Str("component", "provider").Str("provider", name).Str("model", string(model)).
		Str("symbol", params[ParamSymbol]).Bool("cached", result.Cached).Dur("took", time.Since(start)).
		Msg("fetched")
	return result, nil
}

// FetchWithFallback tries the preferred provider, then every other provider
// serving the model in priority order.
func (r *Registry) FetchWithFallback(ctx context.Context, model ModelType, params QueryParams) (*FetchResult, error) {
	result, err := r.Fetch(ctx, model, params)
	if err == nil {
		return result, nil
	}

	tried := params[ParamProvider]
	if tried == "" {
		if names := r.ProvidersFor(model); len(names) > 0 {
			tried = names[0]
		}
	}
	for _, name := range r.ProvidersFor(model) {
		if name == tried {
			continue
		}
		alt := make(QueryParams, len(params)+1)
		for k, v := range params {
			alt[k] = v
		}
		alt[ParamProvider] = name

		log.Warn().Str("component", "provider").Err(err).Str("fallback", name).Msg("provider failed, falling back")
		if result, err = r.Fetch(ctx, model, alt); err == nil {
			return result, nil
		}
	}
	return nil, fmt.Errorf("all providers failed for model %s: %w", model, err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
