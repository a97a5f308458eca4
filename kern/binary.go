package kern

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// binaryKernel carries the shared bookkeeping of the Sum and Product
// combinators. Its parameter vector, fixed mask, bounds, priors and
// is-log flags are the concatenation of the children's, k1 first; the
// SetHyperparams split below depends on that ordering.
type binaryKernel struct {
	*Hyper
	k1, k2 Kernel
}

func newBinaryKernel(k1, k2 Kernel) (*binaryKernel, error) {
	if k1 == nil || k2 == nil {
		return nil, fmt.Errorf("%w: both operands must be non-nil kernels", ErrArgument)
	}
	if k1.NumDim() != k2.NumDim() {
		return nil, fmt.Errorf("kern: cannot combine kernels with %d and %d dimensions", k1.NumDim(), k2.NumDim())
	}
	h, err := NewHyper(k1.NumDim(), k1.NumParams()+k2.NumParams(), &Config{
		InitialParams: concat(k1.Params(), k2.Params()),
		FixedParams:   concat(k1.FixedParams(), k2.FixedParams()),
		ParamBounds:   concat(k1.ParamBounds(), k2.ParamBounds()),
		Hyperpriors:   concat(k1.Hyperpriors(), k2.Hyperpriors()),
		IsLog:         concat(k1.IsLog(), k2.IsLog()),
	})
	if err != nil {
		return nil, err
	}
	// SetHyperparams splits the incoming vector at k1's free-parameter
	// count, which is only valid if each child's free parameters occupy
	// a contiguous run in concatenation order. Assert it instead of
	// assuming it.
	split := countFree(k1.FixedParams())
	for i, idx := range h.freeIndices() {
		if (i < split) != (idx < k1.NumParams()) {
			return nil, fmt.Errorf("%w: child free parameters are not contiguous in concatenation order", ErrArgument)
		}
	}
	return &binaryKernel{Hyper: h, k1: k1, k2: k2}, nil
}

// SetHyperparams writes the free values into the combined vector, then
// hands each child its segment of the incoming values.
func (k *binaryKernel) SetHyperparams(newParams []float64) error {
	if err := k.Hyper.SetHyperparams(newParams); err != nil {
		return err
	}
	split := countFree(k.k1.FixedParams())
	if err := k.k1.SetHyperparams(newParams[:split]); err != nil {
		return err
	}
	return k.k2.SetHyperparams(newParams[split:])
}

// SumKernel is the elementwise sum of two kernels.
type SumKernel struct {
	*binaryKernel
}

// NewSum combines two kernels of the same dimensionality into their sum.
func NewSum(k1, k2 Kernel) (*SumKernel, error) {
	b, err := newBinaryKernel(k1, k2)
	if err != nil {
		return nil, err
	}
	return &SumKernel{b}, nil
}

func (k *SumKernel) Evaluate(Xi, Xj *mat.Dense, ni, nj [][]int, hyperDeriv int, symmetric bool) (*mat.VecDense, error) {
	if hyperDeriv != NoHyperDeriv {
		return nil, fmt.Errorf("%w: hyperparameter derivatives of a sum kernel", ErrNotImplemented)
	}
	v1, v2, err := k.evaluateChildren(Xi, Xj, ni, nj, symmetric)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(v1.Len(), nil)
	out.AddVec(v1, v2)
	return out, nil
}

// ProductKernel is the elementwise product of two kernels.
type ProductKernel struct {
	*binaryKernel
}

// NewProduct combines two kernels of the same dimensionality into their
// product.
func NewProduct(k1, k2 Kernel) (*ProductKernel, error) {
	b, err := newBinaryKernel(k1, k2)
	if err != nil {
		return nil, err
	}
	return &ProductKernel{b}, nil
}

func (k *ProductKernel) Evaluate(Xi, Xj *mat.Dense, ni, nj [][]int, hyperDeriv int, symmetric bool) (*mat.VecDense, error) {
	if hyperDeriv != NoHyperDeriv {
		return nil, fmt.Errorf("%w: hyperparameter derivatives of a product kernel", ErrNotImplemented)
	}
	v1, v2, err := k.evaluateChildren(Xi, Xj, ni, nj, symmetric)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(v1.Len(), nil)
	out.MulElemVec(v1, v2)
	return out, nil
}

func (k *binaryKernel) evaluateChildren(Xi, Xj *mat.Dense, ni, nj [][]int, symmetric bool) (*mat.VecDense, *mat.VecDense, error) {
	v1, err := k.k1.Evaluate(Xi, Xj, ni, nj, NoHyperDeriv, symmetric)
	if err != nil {
		return nil, nil, err
	}
	v2, err := k.k2.Evaluate(Xi, Xj, ni, nj, NoHyperDeriv, symmetric)
	if err != nil {
		return nil, nil, err
	}
	return v1, v2, nil
}

func concat[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
