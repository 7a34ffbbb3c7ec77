// Package optimizer finds, for each regime, the allocation maximising the
// ex-post Sharpe ratio of the risky sleeve subject to full investment and a
// minimum cash weight.
package optimizer

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/regimefolio/pkg/models"
)

var (
	// ErrNoAllocations means no regime could be optimised.
	ErrNoAllocations = errors.New("optimizer: no regime produced an allocation")
	// ErrNotConverged means the solver stopped before reaching an optimum.
	ErrNotConverged = errors.New("optimizer: solver did not converge")
	// ErrZeroVolatility means the risky sleeve has no variance at the start point.
	ErrZeroVolatility = errors.New("optimizer: risky portfolio volatility is zero")
	// ErrTooFewObservations means a regime has fewer rows than required.
	ErrTooFewObservations = errors.New("optimizer: not enough observations")
)

// Config controls the solver.
type Config struct {
	MinCash         float64
	RiskFree        float64
	MinObservations int
	MaxIterations   int
}

// Outcome records what happened to one regime.
type Outcome struct {
	Regime       models.Regime     `json:"regime" yaml:"regime"`
	Observations int               `json:"observations" yaml:"observations"`
	Allocation   models.Allocation `json:"allocation,omitempty" yaml:"allocation,omitempty"`
	Sharpe       float64           `json:"sharpe" yaml:"sharpe"`
	Iterations   int               `json:"iterations" yaml:"iterations"`
	Err          error             `json:"-" yaml:"-"`
	Reason       string            `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// OK reports whether the regime produced an allocation.
func (o Outcome) OK() bool { return o.Err == nil }

// Result is the allocation table plus every per-regime outcome in the order
// regimes first appear in the samples.
type Result struct {
	Table    models.AllocationTable `json:"table" yaml:"table"`
	Outcomes []Outcome              `json:"outcomes" yaml:"outcomes"`
}

// Optimize solves every regime present in samples. Regimes that fail are
// logged and omitted; ErrNoAllocations is returned when none succeed.
func Optimize(samples []Sample, risky []models.Asset, cfg Config) (*Result, error) {
	if len(risky) == 0 {
		return nil, fmt.Errorf("optimizer: no risky assets")
	}
	if cfg.MinCash < 0 || cfg.MinCash >= 1 {
		return nil, fmt.Errorf("optimizer: min cash %v outside [0, 1)", cfg.MinCash)
	}

	var order []models.Regime
	groups := make(map[models.Regime][]Sample)
	for _, s := range samples {
		if _, ok := groups[s.Regime]; !ok {
			order = append(order, s.Regime)
		}
		groups[s.Regime] = append(groups[s.Regime], s)
	}

	res := &Result{Table: make(models.AllocationTable)}
	for _, regime := range order {
		rows := groups[regime]
		logger := log.With().Str("component", "optimizer").Str("regime", regime.String()).Int("observations", len(rows)).Logger()

		out := Outcome{Regime: regime, Observations: len(rows)}
		if len(rows) < cfg.MinObservations || len(rows) < 2 {
			out.Err = ErrTooFewObservations
			out.Reason = "skipped: not enough data"
			logger.Warn().Msg("skipping regime: not enough data")
			res.Outcomes = append(res.Outcomes, out)
			continue
		}

		alloc, sharpe, iters, err := solve(matrix(rows, risky), risky, cfg)
		out.Iterations = iters
		if err != nil {
			out.Err = err
			out.Reason = err.Error()
			logger.Warn().Err(err).Msg("optimization failed")
			res.Outcomes = append(res.Outcomes, out)
			continue
		}
		out.Allocation, out.Sharpe = alloc, sharpe
		res.Table[regime] = alloc
		res.Outcomes = append(res.Outcomes, out)
		logger.Info().Float64("sharpe", sharpe).Int("iterations", iters).Msg("optimization succeeded")
	}

	if len(res.Table) == 0 {
		return res, ErrNoAllocations
	}
	return res, nil
}

// matrix lays rows out as observations × risky assets. Missing returns are 0.
func matrix(rows []Sample, risky []models.Asset) *mat.Dense {
	m := mat.NewDense(len(rows), len(risky), nil)
	for i, r := range rows {
		for j, a := range risky {
			m.Set(i, j, r.Returns[a])
		}
	}
	return m
}

// solve maximises the risky-sleeve Sharpe ratio. Weights are parametrised
// as w = (1-minCash)·softmax(z) with minCash added to cash, so every point
// visited satisfies the bounds and both constraints. The search starts from
// z = 0, the equal-weight allocation.
func solve(data *mat.Dense, risky []models.Asset, cfg Config) (models.Allocation, float64, int, error) {
	_, n := data.Dims()
	means := make([]float64, n)
	for j := 0; j < n; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	mu := mat.NewVecDense(n, means)

	dim := n + 2 // risky, stablecoins, cash
	weights := func(z []float64) []float64 {
		w := softmax(z)
		for i := range w {
			w[i] *= 1 - cfg.MinCash
		}
		w[dim-1] += cfg.MinCash
		return w
	}
	sharpe := func(w []float64) float64 {
		wr := mat.NewVecDense(n, w[:n])
		vol := math.Sqrt(mat.Inner(wr, &cov, wr))
		if vol == 0 || math.IsNaN(vol) {
			return math.NaN()
		}
		return (mat.Dot(wr, mu) - cfg.RiskFree) / vol
	}

	z0 := make([]float64, dim)
	if math.IsNaN(sharpe(weights(z0))) {
		return nil, 0, 0, ErrZeroVolatility
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			s := sharpe(weights(z))
			if math.IsNaN(s) {
				return math.Inf(1)
			}
			return -s
		},
	}
	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIterations,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-12, Relative: 1e-10, Iterations: 200},
	}
	result, err := optimize.Minimize(problem, z0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	if result.Status.Early() || math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, 0, result.MajorIterations, fmt.Errorf("%w: %s", ErrNotConverged, result.Status)
	}

	w := weights(result.X)
	alloc := make(models.Allocation, dim)
	for i, a := range risky {
		alloc[a] = w[i]
	}
	alloc[models.Stablecoins] = w[n]
	alloc[models.Cash] = w[n+1]
	return alloc, -result.F, result.MajorIterations, nil
}

// softmax maps z onto the probability simplex.
func softmax(z []float64) []float64 {
	out := make([]float64, len(z))
	maxZ := math.Inf(-1)
	for _, v := range z {
		maxZ = math.Max(maxZ, v)
	}
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
