package kern

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/bmanubay/gptools/utils"
)

// Primitives are the three pieces a concrete kernel plugs into the
// chain-rule evaluator. The base covariance is a function f(y) of the
// anisotropic squared distance y alone.
type Primitives interface {
	// Cov evaluates f(y) for each entry of y.
	Cov(y []float64) []float64

	// CovDy evaluates the pure derivative d^order f / dy^order for each
	// entry of y.
	CovDy(y []float64, order int) []float64

	// DyDtau evaluates the mixed partial derivative of y with respect
	// to tau over one partition block, given as the multiset of
	// dimension indices to differentiate against. lenScales are the
	// per-dimension length scales.
	DyDtau(tau *mat.Dense, block []int, lenScales []float64) []float64
}

// ChainRule evaluates a covariance kernel and its mixed partial
// derivatives with respect to the input coordinates through the
// multivariate Faa di Bruno formula, summing one term per set partition
// of the derivative pattern. Concrete kernels supply the primitives.
type ChainRule struct {
	*Hyper
	prim Primitives
}

// NewChainRule wraps the hyperparameter state and a primitives value
// into a derivative-capable kernel.
func NewChainRule(h *Hyper, prim Primitives) *ChainRule {
	return &ChainRule{Hyper: h, prim: prim}
}

func (k *ChainRule) Evaluate(Xi, Xj *mat.Dense, ni, nj [][]int, hyperDeriv int, symmetric bool) (*mat.VecDense, error) {
	if hyperDeriv != NoHyperDeriv {
		return nil, fmt.Errorf("%w: hyperparameter derivatives", ErrNotImplemented)
	}
	m, err := k.checkEvalArgs(Xi, Xj, ni, nj)
	if err != nil {
		return nil, err
	}

	var tau mat.Dense
	tau.Sub(Xi, Xj)

	// Combined per-dimension derivative orders, and the total order
	// taken on the second coordinate set.
	nCombined := make([][]int, m)
	njTotal := make([]int, m)
	for i := 0; i < m; i++ {
		row := make([]int, k.numDim)
		for d := 0; d < k.numDim; d++ {
			row[d] = ni[i][d] + nj[i][d]
			njTotal[i] += nj[i][d]
		}
		nCombined[i] = row
	}

	// Group the pairs sharing a combined multi-index so the partition
	// enumeration runs once per distinct index.
	out := mat.NewVecDense(m, nil)
	for _, state := range utils.UniqueRows(nCombined) {
		idxs := rowIndices(nCombined, state)
		vals := k.dkDtau(subRows(&tau, idxs), state)
		for pos, i := range idxs {
			out.SetVec(i, vals[pos])
		}
	}

	// Differentiating tau with respect to the second point's coordinates
	// flips the sign once per order; the first hyperparameter is the
	// shared output scale.
	scale := k.params[0] * k.params[0]
	for i := 0; i < m; i++ {
		v := scale * out.AtVec(i)
		if njTotal[i]%2 == 1 {
			v = -v
		}
		out.SetVec(i, v)
	}
	return out, nil
}

// dkDtau computes d^|n| f / d tau^n at every row of tau, where n is the
// combined derivative multi-index shared by the rows.
func (k *ChainRule) dkDtau(tau *mat.Dense, n []int) []float64 {
	// Expand the multi-index into the derivative pattern: dimension d
	// appears n[d] times, so [2, 1, 0] becomes [0, 0, 1].
	var pattern []int
	for d, order := range n {
		for c := 0; c < order; c++ {
			pattern = append(pattern, d)
		}
	}

	y := k.r2l2(tau)
	if len(pattern) == 0 {
		return k.prim.Cov(y)
	}

	rows, _ := tau.Dims()
	sum := make([]float64, rows)
	for _, partition := range utils.SetPartitions(pattern) {
		// (d^|blocks| f / dy^|blocks|)(y) times the per-block
		// derivatives of y.
		term := k.prim.CovDy(y, len(partition))
		for _, block := range partition {
			dy := k.prim.DyDtau(tau, block, k.lengthScales())
			for i := range term {
				term[i] *= dy[i]
			}
		}
		for i := range sum {
			sum[i] += term[i]
		}
	}
	return sum
}

// subRows copies the selected rows of m into a new matrix.
func subRows(m *mat.Dense, idxs []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idxs), c, nil)
	for pos, i := range idxs {
		out.SetRow(pos, mat.Row(nil, i, m))
	}
	return out
}
