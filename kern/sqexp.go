package kern

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SquaredExp is the anisotropic squared-exponential covariance kernel,
// f(y) = exp(-y/2) of the anisotropic squared distance y, scaled by the
// square of the output-scale parameter. Its hyperparameters are the
// output scale followed by one length scale per dimension.
type SquaredExp struct {
	*ChainRule
}

// NewSquaredExp builds a squared-exponential kernel over numDim input
// dimensions. cfg may be nil, giving unit output and length scales.
func NewSquaredExp(numDim int, cfg *Config) (*SquaredExp, error) {
	h, err := NewHyper(numDim, numDim+1, cfg)
	if err != nil {
		return nil, err
	}
	return &SquaredExp{NewChainRule(h, sqExpPrimitives{})}, nil
}

type sqExpPrimitives struct{}

func (sqExpPrimitives) Cov(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = math.Exp(-v / 2)
	}
	return out
}

// CovDy: d^m/dy^m exp(-y/2) = (-1/2)^m exp(-y/2).
func (sqExpPrimitives) CovDy(y []float64, order int) []float64 {
	c := math.Pow(-0.5, float64(order))
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = c * math.Exp(-v/2)
	}
	return out
}

// DyDtau: y is quadratic in tau, so only the first derivative and the
// repeated second derivative in a single dimension survive.
func (sqExpPrimitives) DyDtau(tau *mat.Dense, block []int, lenScales []float64) []float64 {
	rows, _ := tau.Dims()
	out := make([]float64, rows)
	switch {
	case len(block) == 1:
		d := block[0]
		l2 := lenScales[d] * lenScales[d]
		for i := range out {
			out[i] = 2 * tau.At(i, d) / l2
		}
	case len(block) == 2 && block[0] == block[1]:
		d := block[0]
		l2 := lenScales[d] * lenScales[d]
		for i := range out {
			out[i] = 2 / l2
		}
	}
	return out
}
