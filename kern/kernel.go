package kern

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// NoHyperDeriv is passed as the hyperDeriv argument of Evaluate when no
// hyperparameter derivative is requested.
const NoHyperDeriv = -1

// Bound is an inclusive lower/upper pair for one hyperparameter.
type Bound struct {
	Lower, Upper float64
}

// Prior returns the prior density, or log-density when the matching
// IsLog entry is true, of one hyperparameter value.
type Prior func(p float64) float64

// Potential is an extra log-density term over the full parameter vector,
// summed into the log-posterior by the regression layer.
type Potential func(params []float64) float64

// Kernel is the covariance-kernel contract consumed by the regression
// and optimization layer.
//
// Evaluate returns the covariances between the M rows of Xi and the M
// rows of Xj, differentiated to the per-point, per-dimension orders in
// ni and nj. hyperDeriv selects a hyperparameter index to differentiate
// with respect to, or NoHyperDeriv; symmetric tells the kernel the pairs
// come from a symmetric matrix.
type Kernel interface {
	Evaluate(Xi, Xj *mat.Dense, ni, nj [][]int, hyperDeriv int, symmetric bool) (*mat.VecDense, error)

	NumDim() int
	NumParams() int
	Params() []float64
	FixedParams() []bool
	ParamBounds() []Bound
	Hyperpriors() []Prior
	IsLog() []bool
	Potentials() []Potential

	SetHyperparams(newParams []float64) error
	FreeParams() []float64
	FreeParamBounds() []Bound
}

// Config carries the optional arguments shared by every kernel
// constructor. A nil Config selects all defaults: initial parameters set
// to one, no fixed parameters, bounds (0, MaxFloat64), uniform
// log-density hyperpriors over the bounds, no potentials.
type Config struct {
	InitialParams []float64
	FixedParams   []bool
	ParamBounds   []Bound
	EnforceBounds bool
	Hyperpriors   []Prior
	IsLog         []bool
	Potentials    []Potential
}

// Hyper holds the hyperparameter state shared by every kernel variant:
// the parameter vector, the fixed/free mask, bounds, priors and
// potentials. It satisfies Kernel, but its Evaluate always fails with
// ErrNotImplemented; only concrete variants can be evaluated.
type Hyper struct {
	numDim        int
	numParams     int
	enforceBounds bool
	params        []float64
	fixedParams   []bool
	paramBounds   []Bound
	hyperpriors   []Prior
	isLog         []bool
	potentials    []Potential
}

// NewHyper validates and assembles the hyperparameter state for a kernel
// over numDim input dimensions with numParams hyperparameters.
func NewHyper(numDim, numParams int, cfg *Config) (*Hyper, error) {
	if numDim < 1 {
		return nil, fmt.Errorf("kern: num dim must be a positive integer, got %d", numDim)
	}
	if numParams < 0 {
		return nil, fmt.Errorf("kern: num params must be non-negative, got %d", numParams)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	params := cfg.InitialParams
	if params == nil {
		// Fixing parameters only makes sense with explicit values.
		if cfg.FixedParams != nil {
			return nil, fmt.Errorf("%w: must pass explicit parameter values if fixing parameters", ErrArgument)
		}
		params = make([]float64, numParams)
		for i := range params {
			params[i] = 1
		}
	} else {
		if len(params) != numParams {
			return nil, fmt.Errorf("kern: initial params must have length %d, got %d", numParams, len(params))
		}
		params = slices.Clone(params)
	}

	fixed := cfg.FixedParams
	if fixed == nil {
		fixed = make([]bool, numParams)
	} else {
		if len(fixed) != numParams {
			return nil, fmt.Errorf("kern: fixed params must have length %d, got %d", numParams, len(fixed))
		}
		fixed = slices.Clone(fixed)
	}

	bounds := cfg.ParamBounds
	if bounds == nil {
		bounds = make([]Bound, numParams)
		for i := range bounds {
			bounds[i] = Bound{Lower: 0, Upper: math.MaxFloat64}
		}
	} else {
		if len(bounds) != numParams {
			return nil, fmt.Errorf("kern: param bounds must have length %d, got %d", numParams, len(bounds))
		}
		bounds = slices.Clone(bounds)
	}

	priors := cfg.Hyperpriors
	if priors == nil {
		priors = make([]Prior, numParams)
		for i := range priors {
			priors[i] = UniformPrior(bounds[i])
		}
	} else {
		if len(priors) != numParams {
			return nil, fmt.Errorf("kern: hyperpriors must have length %d, got %d", numParams, len(priors))
		}
		priors = slices.Clone(priors)
	}

	isLog := cfg.IsLog
	if isLog == nil {
		isLog = make([]bool, numParams)
		for i := range isLog {
			isLog[i] = true
		}
	} else {
		if len(isLog) != numParams {
			return nil, fmt.Errorf("kern: is log must have length %d, got %d", numParams, len(isLog))
		}
		isLog = slices.Clone(isLog)
	}

	return &Hyper{
		numDim:        numDim,
		numParams:     numParams,
		enforceBounds: cfg.EnforceBounds,
		params:        params,
		fixedParams:   fixed,
		paramBounds:   bounds,
		hyperpriors:   priors,
		isLog:         isLog,
		potentials:    slices.Clone(cfg.Potentials),
	}, nil
}

// Evaluate on the bare container is a stub defining the calling
// fingerprint only.
func (h *Hyper) Evaluate(Xi, Xj *mat.Dense, ni, nj [][]int, hyperDeriv int, symmetric bool) (*mat.VecDense, error) {
	return nil, fmt.Errorf("%w: Evaluate is only available on concrete kernels", ErrNotImplemented)
}

func (h *Hyper) NumDim() int { return h.numDim }

func (h *Hyper) NumParams() int { return h.numParams }

func (h *Hyper) Params() []float64 { return h.params }

func (h *Hyper) FixedParams() []bool { return h.fixedParams }

func (h *Hyper) ParamBounds() []Bound { return h.paramBounds }

func (h *Hyper) Hyperpriors() []Prior { return h.hyperpriors }

func (h *Hyper) IsLog() []bool { return h.isLog }

func (h *Hyper) Potentials() []Potential { return h.potentials }

// SetHyperparams writes newParams into the free slots of the parameter
// vector, in declaration order. With bound enforcement enabled, values
// outside a bound are clamped to it instead of rejected.
func (h *Hyper) SetHyperparams(newParams []float64) error {
	free := h.freeIndices()
	if len(newParams) != len(free) {
		return fmt.Errorf("kern: new params must have length %d, got %d", len(free), len(newParams))
	}
	for i, idx := range free {
		v := newParams[i]
		if h.enforceBounds {
			b := h.paramBounds[idx]
			if v < b.Lower {
				v = b.Lower
			} else if v > b.Upper {
				v = b.Upper
			}
		}
		h.params[idx] = v
	}
	return nil
}

// FreeParams returns the values of the non-fixed hyperparameters, in
// declaration order.
func (h *Hyper) FreeParams() []float64 {
	free := h.freeIndices()
	out := make([]float64, len(free))
	for i, idx := range free {
		out[i] = h.params[idx]
	}
	return out
}

// FreeParamBounds returns the bounds of the non-fixed hyperparameters,
// in declaration order.
func (h *Hyper) FreeParamBounds() []Bound {
	free := h.freeIndices()
	out := make([]Bound, len(free))
	for i, idx := range free {
		out[i] = h.paramBounds[idx]
	}
	return out
}

func (h *Hyper) freeIndices() []int {
	idxs := make([]int, 0, h.numParams)
	for i, fixed := range h.fixedParams {
		if !fixed {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// lengthScales returns the per-dimension length scales, by convention
// the last numDim entries of the parameter vector.
func (h *Hyper) lengthScales() []float64 {
	return h.params[len(h.params)-h.numDim:]
}

// r2l2 computes the anisotropic squared distance
//
//	y = sum_d (tau_d / l_d)^2
//
// for each row of tau.
func (h *Hyper) r2l2(tau *mat.Dense) []float64 {
	m, n := tau.Dims()
	l := h.lengthScales()
	y := make([]float64, m)
	for i := 0; i < m; i++ {
		for d := 0; d < n; d++ {
			r := tau.At(i, d) / l[d]
			y[i] += r * r
		}
	}
	return y
}

// checkEvalArgs validates the Evaluate argument shapes shared by the
// concrete kernels and returns the number of input pairs.
func (h *Hyper) checkEvalArgs(Xi, Xj *mat.Dense, ni, nj [][]int) (int, error) {
	m, n := Xi.Dims()
	if mj, cj := Xj.Dims(); mj != m || cj != n {
		return 0, fmt.Errorf("kern: Xi is %dx%d but Xj is %dx%d", m, n, mj, cj)
	}
	if n != h.numDim {
		return 0, fmt.Errorf("kern: inputs have %d dimensions, kernel has %d", n, h.numDim)
	}
	if len(ni) != m || len(nj) != m {
		return 0, fmt.Errorf("kern: need %d derivative-order rows, got %d and %d", m, len(ni), len(nj))
	}
	for i := 0; i < m; i++ {
		if len(ni[i]) != n || len(nj[i]) != n {
			return 0, fmt.Errorf("kern: derivative-order row %d does not have %d entries", i, n)
		}
		for d := 0; d < n; d++ {
			if ni[i][d] < 0 || nj[i][d] < 0 {
				return 0, fmt.Errorf("kern: negative derivative order at row %d", i)
			}
		}
	}
	return m, nil
}

// rowIndices returns the indices of the rows equal to state.
func rowIndices(rows [][]int, state []int) []int {
	var idxs []int
	for i, row := range rows {
		if slices.Equal(row, state) {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func countFree(fixed []bool) int {
	n := 0
	for _, f := range fixed {
		if !f {
			n++
		}
	}
	return n
}
