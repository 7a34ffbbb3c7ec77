package yfinance

import (
	"context"
	"fmt"
	"time"

	"github.com/seenimoa/regimefolio/internal/provider"
	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// Source serves daily closes through a provider registry, routing crypto
// pairs to ModelCryptoHistorical and everything else to ModelEquityHistorical.
type Source struct {
	reg *provider.Registry
}

// NewSource returns a Source backed by reg.
func NewSource(reg *provider.Registry) *Source {
	return &Source{reg: reg}
}

// Closes returns daily closes of symbol for [start, end).
func (s *Source) Closes(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	model := provider.ModelEquityHistorical
	if IsCryptoPair(symbol) {
		model = provider.ModelCryptoHistorical
	}

	res, err := s.reg.FetchWithFallback(ctx, model, provider.QueryParams{
		provider.ParamSymbol:    symbol,
		provider.ParamStartDate: utils.FormatDate(start),
		provider.ParamEndDate:   utils.FormatDate(end),
	})
	if err != nil {
		return nil, err
	}
	points, ok := res.Data.([]models.PricePoint)
	if !ok {
		return nil, fmt.Errorf("yfinance source: unexpected %T for %s", res.Data, symbol)
	}
	return points, nil
}
