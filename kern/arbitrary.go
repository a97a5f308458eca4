package kern

import (
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/bmanubay/gptools/utils"
)

// CovFunc is a raw covariance function over one pair of coordinate rows
// and the current hyperparameter values.
type CovFunc func(xi, xj, params []float64) float64

// defaultStep balances truncation against roundoff for the low
// derivative orders the kernels request.
const defaultStep = 1e-4

// ArbitraryConfig configures an ArbitraryKernel on top of the common
// kernel Config.
type ArbitraryConfig struct {
	Config

	// Workers bounds the number of concurrent differentiation tasks per
	// Evaluate call. Zero means serial evaluation.
	Workers int

	// Step is the finite-difference step size. Zero selects the default.
	Step float64
}

// ArbitraryKernel wraps a raw covariance function, computing requested
// derivatives by nested central differences over the joint coordinates
// of each pair. It is far slower than a kernel with hand-coded
// derivatives and is meant for prototyping covariance functions.
type ArbitraryKernel struct {
	*Hyper
	covFunc CovFunc
	workers int
	step    float64
}

// NewArbitraryKernel builds a kernel around covFunc with numParams
// hyperparameters. The parameter count is explicit, never inferred from
// the function.
func NewArbitraryKernel(numDim, numParams int, covFunc CovFunc, cfg *ArbitraryConfig) (*ArbitraryKernel, error) {
	if covFunc == nil {
		return nil, fmt.Errorf("%w: covariance function must be non-nil", ErrArgument)
	}
	var kcfg *Config
	workers := 0
	step := defaultStep
	if cfg != nil {
		kcfg = &cfg.Config
		if cfg.Workers < 0 {
			return nil, fmt.Errorf("%w: workers must be non-negative", ErrArgument)
		}
		workers = cfg.Workers
		if cfg.Step < 0 {
			return nil, fmt.Errorf("%w: step must be non-negative", ErrArgument)
		}
		if cfg.Step != 0 {
			step = cfg.Step
		}
	}
	h, err := NewHyper(numDim, numParams, kcfg)
	if err != nil {
		return nil, err
	}
	return &ArbitraryKernel{Hyper: h, covFunc: covFunc, workers: workers, step: step}, nil
}

func (k *ArbitraryKernel) Evaluate(Xi, Xj *mat.Dense, ni, nj [][]int, hyperDeriv int, symmetric bool) (*mat.VecDense, error) {
	if hyperDeriv != NoHyperDeriv {
		return nil, fmt.Errorf("%w: hyperparameter derivatives", ErrNotImplemented)
	}
	m, err := k.checkEvalArgs(Xi, Xj, ni, nj)
	if err != nil {
		return nil, err
	}
	n := k.numDim

	// Snapshot the hyperparameters so pooled tasks share an immutable
	// view.
	params := slices.Clone(k.params)

	// The raw function is differentiated over the 2*numDim joint
	// coordinates of a pair, so concatenate coordinates and orders.
	nCat := make([][]int, m)
	xCat := make([][]float64, m)
	for i := 0; i < m; i++ {
		row := make([]int, 0, 2*n)
		row = append(row, ni[i]...)
		row = append(row, nj[i]...)
		nCat[i] = row

		x := make([]float64, 2*n)
		mat.Row(x[:n], i, Xi)
		mat.Row(x[n:], i, Xj)
		xCat[i] = x
	}

	out := mat.NewVecDense(m, nil)
	for _, state := range utils.UniqueRows(nCat) {
		idxs := rowIndices(nCat, state)
		if allZero(state) {
			for _, i := range idxs {
				out.SetVec(i, k.covFunc(xCat[i][:n], xCat[i][n:], params))
			}
			continue
		}

		vals := make([]float64, len(idxs))
		task := func(pos int) error {
			v := k.mixedPartial(xCat[idxs[pos]], state, params)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("kern: numerical differentiation diverged for pair %d", idxs[pos])
			}
			vals[pos] = v
			return nil
		}
		if k.workers > 0 && len(idxs) > 1 {
			var g errgroup.Group
			g.SetLimit(k.workers)
			for pos := range idxs {
				pos := pos
				g.Go(func() error { return task(pos) })
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
		} else {
			for pos := range idxs {
				if err := task(pos); err != nil {
					return nil, err
				}
			}
		}
		// Results land by input index, not completion order.
		for pos, i := range idxs {
			out.SetVec(i, vals[pos])
		}
	}
	return out, nil
}

// mixedPartial evaluates the mixed partial derivative of the raw
// covariance at the joint coordinate row x, to the per-coordinate orders
// in n, with the hyperparameters held at params.
func (k *ArbitraryKernel) mixedPartial(x []float64, n []int, params []float64) float64 {
	dim := k.numDim
	f := func(z []float64) float64 {
		v := k.covFunc(z[:dim], z[dim:], params)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// Tolerate a removable singularity at the evaluation point
			// by nudging it off the singular locus. The offsets differ
			// per coordinate so difference-based covariances move too.
			zs := slices.Clone(z)
			for i := range zs {
				zs[i] += k.step / 16 * float64(i+1)
			}
			v = k.covFunc(zs[:dim], zs[dim:], params)
		}
		return v
	}
	return nestedDeriv(f, slices.Clone(x), n, k.step)
}

// nestedDeriv peels off one order of differentiation at a time,
// delegating each single-variable step to a central difference.
func nestedDeriv(f func([]float64) float64, x []float64, orders []int, step float64) float64 {
	d := -1
	for i, o := range orders {
		if o > 0 {
			d = i
			break
		}
	}
	if d < 0 {
		return f(x)
	}
	rest := slices.Clone(orders)
	rest[d]--
	g := func(v float64) float64 {
		xs := slices.Clone(x)
		xs[d] = v
		return nestedDeriv(f, xs, rest, step)
	}
	return fd.Derivative(g, x[d], &fd.Settings{Formula: fd.Central, Step: step})
}

func allZero(row []int) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}
