package fred

import (
	"context"
	"fmt"

	"github.com/seenimoa/regimefolio/internal/provider"
	"github.com/seenimoa/regimefolio/pkg/models"
)

// Source serves macro series by FRED code through a provider registry, so a
// fallback provider for ModelFredSeries can be swapped in without touching
// the macro pipeline.
type Source struct {
	reg   *provider.Registry
	start string
	end   string
}

// NewSource returns a Source bounded to [start, end] (either may be empty).
func NewSource(reg *provider.Registry, start, end string) *Source {
	return &Source{reg: reg, start: start, end: end}
}

// Series fetches the full observation history of one FRED code.
func (s *Source) Series(ctx context.Context, code string) (models.Series, error) {
	params := provider.QueryParams{provider.ParamSymbol: code}
	if s.start != "" {
		params[provider.ParamStartDate] = s.start
	}
	if s.end != "" {
		params[provider.ParamEndDate] = s.end
	}

	res, err := s.reg.Fetch(ctx, provider.ModelFredSeries, params)
	if err != nil {
		return models.Series{}, err
	}
	series, ok := res.Data.(models.Series)
	if !ok {
		return models.Series{}, fmt.Errorf("fred source: unexpected %T for %s", res.Data, code)
	}
	return series, nil
}
