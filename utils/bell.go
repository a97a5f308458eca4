package utils

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
)

// IncompleteBellPoly evaluates the incomplete (partial) Bell polynomial
// B_{n,k}(x_1, ..., x_{n-k+1}) for a batch of argument rows. It appears
// in the expansion of Faa di Bruno's formula for higher-order derivatives
// of a composition.
//
// The recurrence is
//
//	B_{n,k} = sum_{m=1}^{n-k+1} x_m C(n-1, m-1) B_{n-m,k-1}
//
// with B_{0,0} = 1 and B_{n,0} = B_{0,k} = 0 for n, k >= 1.
//
// x has one row per evaluation and at least n-k+1 columns; extra columns
// are ignored, which lets the recursion reuse the same matrix without
// re-slicing. Panics if n or k is negative.
func IncompleteBellPoly(n, k int, x mat.Matrix) *mat.VecDense {
	if n < 0 || k < 0 {
		panic("utils: negative Bell polynomial subscript")
	}
	p, _ := x.Dims()
	result := mat.NewVecDense(p, nil)
	switch {
	case n == 0 && k == 0:
		for i := 0; i < p; i++ {
			result.SetVec(i, 1)
		}
	case n == 0 || k == 0:
		// B_{n,0} and B_{0,k} vanish.
	default:
		for m := 1; m <= n-k+1; m++ {
			c := float64(combin.Binomial(n-1, m-1))
			sub := IncompleteBellPoly(n-m, k-1, x)
			for i := 0; i < p; i++ {
				result.SetVec(i, result.AtVec(i)+x.At(i, m-1)*c*sub.AtVec(i))
			}
		}
	}
	return result
}
