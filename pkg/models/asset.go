package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Asset identifies an asset class in the allocation universe.
type Asset string

const (
	Stocks      Asset = "stocks"
	Crypto      Asset = "crypto"
	Commodities Asset = "commodities"
	Stablecoins Asset = "stablecoins"
	Cash        Asset = "cash"
)

var (
	ErrUnknownAsset    = errors.New("unknown asset")
	ErrNegativeWeight  = errors.New("negative weight")
	ErrEmptyAllocation = errors.New("allocation weights sum to zero")
)

// WeightTolerance is the absolute tolerance used when checking that weights sum to 1.
const WeightTolerance = 1e-9

// Assets lists the closed asset universe in canonical order: risky assets
// first, then the synthetic sleeves.
func Assets() []Asset {
	return []Asset{Stocks, Crypto, Commodities, Stablecoins, Cash}
}

// ParseAsset converts a column or config key into an Asset. The legacy
// "stable_yield" key maps to Stablecoins.
func ParseAsset(s string) (Asset, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "stable_yield" {
		return Stablecoins, nil
	}
	for _, a := range Assets() {
		if key == string(a) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAsset, s)
}

// IsSynthetic reports whether the asset earns a constant assumed yield
// instead of a market-derived return.
func (a Asset) IsSynthetic() bool {
	return a == Stablecoins || a == Cash
}

// IsRisky reports whether the asset enters the Sharpe objective.
func (a Asset) IsRisky() bool {
	return !a.IsSynthetic()
}

func (a Asset) rank() int {
	for i, x := range Assets() {
		if x == a {
			return i
		}
	}
	return len(Assets())
}

// SortAssets orders assets canonically in place.
func SortAssets(assets []Asset) {
	sort.Slice(assets, func(i, j int) bool { return assets[i].rank() < assets[j].rank() })
}

// Allocation maps assets to portfolio weights.
type Allocation map[Asset]float64

// NewAllocation validates raw string-keyed weights. Unknown keys and
// negative weights fail immediately.
func NewAllocation(raw map[string]float64) (Allocation, error) {
	alloc := make(Allocation, len(raw))
	for k, w := range raw {
		a, err := ParseAsset(k)
		if err != nil {
			return nil, err
		}
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: %s=%g", ErrNegativeWeight, a, w)
		}
		alloc[a] += w
	}
	return alloc, nil
}

// Assets returns the allocation's assets in canonical order.
func (al Allocation) Assets() []Asset {
	out := make([]Asset, 0, len(al))
	for a := range al {
		out = append(out, a)
	}
	SortAssets(out)
	return out
}

// Sum returns the total weight.
func (al Allocation) Sum() float64 {
	total := 0.0
	for _, a := range al.Assets() {
		total += al[a]
	}
	return total
}

// Clone returns an independent copy.
func (al Allocation) Clone() Allocation {
	out := make(Allocation, len(al))
	for a, w := range al {
		out[a] = w
	}
	return out
}

// Normalize fills a missing stablecoin weight with 0 and a missing cash
// weight with defaultCash, then rescales so the weights sum to 1.
func (al Allocation) Normalize(defaultCash float64) (Allocation, error) {
	out := al.Clone()
	if _, ok := out[Stablecoins]; !ok {
		out[Stablecoins] = 0
	}
	if _, ok := out[Cash]; !ok {
		out[Cash] = defaultCash
	}
	for a, w := range out {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: %s=%g", ErrNegativeWeight, a, w)
		}
	}
	total := out.Sum()
	if total <= 0 || math.IsInf(total, 0) {
		return nil, ErrEmptyAllocation
	}
	for a := range out {
		out[a] /= total
	}
	return out, nil
}

// Equal reports whether both allocations hold the same weights within tol.
// A missing asset counts as weight 0.
func (al Allocation) Equal(other Allocation, tol float64) bool {
	for _, a := range Assets() {
		if math.Abs(al[a]-other[a]) > tol {
			return false
		}
	}
	return true
}

// EqualWeight spreads the full budget evenly over assets.
func EqualWeight(assets []Asset) Allocation {
	out := make(Allocation, len(assets))
	if len(assets) == 0 {
		return out
	}
	w := 1.0 / float64(len(assets))
	for _, a := range assets {
		out[a] = w
	}
	return out
}

// AllocationTable maps regimes to their target weights.
type AllocationTable map[Regime]Allocation

// Regimes returns the table's regimes in canonical order.
func (t AllocationTable) Regimes() []Regime {
	out := make([]Regime, 0, len(t))
	for _, r := range Regimes() {
		if _, ok := t[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Assets returns the union of assets across all rows, canonically ordered.
func (t AllocationTable) Assets() []Asset {
	seen := make(map[Asset]bool)
	var out []Asset
	for _, al := range t {
		for a := range al {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	SortAssets(out)
	return out
}

// Normalize applies Allocation.Normalize to every row.
func (t AllocationTable) Normalize(defaultCash float64) (AllocationTable, error) {
	out := make(AllocationTable, len(t))
	for r, al := range t {
		n, err := al.Normalize(defaultCash)
		if err != nil {
			return nil, fmt.Errorf("regime %s: %w", r, err)
		}
		out[r] = n
	}
	return out, nil
}
