package kern

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// sqExpValue is the closed-form 1D squared exponential,
// sf^2 exp(-tau^2 / (2 l^2)).
func sqExpValue(sf, l, tau float64) float64 {
	return sf * sf * math.Exp(-tau*tau/(2*l*l))
}

func TestSquaredExpZeroOrders(t *testing.T) {
	sf, l := 2.0, 0.7
	k, err := NewSquaredExp(1, &Config{InitialParams: []float64{sf, l}})
	require.NoError(t, err)

	Xi := mat.NewDense(3, 1, []float64{0, 1, -2})
	Xj := mat.NewDense(3, 1, []float64{0, 0.25, 1})
	ni := zeroOrders(3, 1)
	nj := zeroOrders(3, 1)

	got, err := k.Evaluate(Xi, Xj, ni, nj, NoHyperDeriv, false)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		tau := Xi.At(i, 0) - Xj.At(i, 0)
		assert.InDelta(t, sqExpValue(sf, l, tau), got.AtVec(i), 1e-12)
	}
}

func TestSquaredExpRejectsHyperDeriv(t *testing.T) {
	k, err := NewSquaredExp(1, nil)
	require.NoError(t, err)
	Xi := mat.NewDense(1, 1, []float64{0})
	_, err = k.Evaluate(Xi, Xi, zeroOrders(1, 1), zeroOrders(1, 1), 1, false)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestSquaredExpFirstDerivative(t *testing.T) {
	sf, l := 1.5, 0.8
	k, err := NewSquaredExp(1, &Config{InitialParams: []float64{sf, l}})
	require.NoError(t, err)

	Xi := mat.NewDense(2, 1, []float64{0.9, -0.3})
	Xj := mat.NewDense(2, 1, []float64{0.1, 0.4})

	// d k / d xi = -sf^2 (tau / l^2) exp(-tau^2 / (2 l^2)).
	got, err := k.Evaluate(Xi, Xj, [][]int{{1}, {1}}, zeroOrders(2, 1), NoHyperDeriv, false)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		tau := Xi.At(i, 0) - Xj.At(i, 0)
		want := -sf * sf * tau / (l * l) * math.Exp(-tau*tau/(2*l*l))
		assert.InDelta(t, want, got.AtVec(i), 1e-12)
	}

	// Moving the derivative to the second coordinate set flips the sign.
	gotJ, err := k.Evaluate(Xi, Xj, zeroOrders(2, 1), [][]int{{1}, {1}}, NoHyperDeriv, false)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, -got.AtVec(i), gotJ.AtVec(i), 1e-12)
	}
}

func TestSquaredExpCrossDerivative(t *testing.T) {
	sf, l := 1.0, 1.3
	k, err := NewSquaredExp(1, &Config{InitialParams: []float64{sf, l}})
	require.NoError(t, err)

	Xi := mat.NewDense(2, 1, []float64{0, 0.6})
	Xj := mat.NewDense(2, 1, []float64{0, -0.2})

	// d^2 k / d xi d xj = sf^2 (1/l^2 - tau^2/l^4) exp(-tau^2/(2 l^2)).
	got, err := k.Evaluate(Xi, Xj, [][]int{{1}, {1}}, [][]int{{1}, {1}}, NoHyperDeriv, false)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		tau := Xi.At(i, 0) - Xj.At(i, 0)
		l2 := l * l
		want := sf * sf * (1/l2 - tau*tau/(l2*l2)) * math.Exp(-tau*tau/(2*l2))
		assert.InDelta(t, want, got.AtVec(i), 1e-12)
	}
}

func TestSquaredExpMixedDimensions(t *testing.T) {
	sf, l0, l1 := 2.0, 0.9, 1.4
	k, err := NewSquaredExp(2, &Config{InitialParams: []float64{sf, l0, l1}})
	require.NoError(t, err)

	Xi := mat.NewDense(1, 2, []float64{0.7, -0.5})
	Xj := mat.NewDense(1, 2, []float64{0.2, 0.3})

	// d^2 k / d tau_0 d tau_1 = sf^2 (tau_0 tau_1 / (l_0^2 l_1^2)) f(y).
	got, err := k.Evaluate(Xi, Xj, [][]int{{1, 1}}, [][]int{{0, 0}}, NoHyperDeriv, false)
	require.NoError(t, err)

	t0 := Xi.At(0, 0) - Xj.At(0, 0)
	t1 := Xi.At(0, 1) - Xj.At(0, 1)
	y := t0*t0/(l0*l0) + t1*t1/(l1*l1)
	want := sf * sf * t0 * t1 / (l0 * l0 * l1 * l1) * math.Exp(-y/2)
	assert.InDelta(t, want, got.AtVec(0), 1e-12)
}

func TestSquaredExpSecondDerivativeOneSide(t *testing.T) {
	sf, l := 1.0, 1.0
	k, err := NewSquaredExp(1, &Config{InitialParams: []float64{sf, l}})
	require.NoError(t, err)

	Xi := mat.NewDense(1, 1, []float64{0.4})
	Xj := mat.NewDense(1, 1, []float64{-0.1})

	// d^2 k / d xi^2 = sf^2 (tau^2 - 1) exp(-tau^2/2) for l = 1.
	got, err := k.Evaluate(Xi, Xj, [][]int{{2}}, zeroOrders(1, 1), NoHyperDeriv, false)
	require.NoError(t, err)

	tau := 0.5
	want := (tau*tau - 1) * math.Exp(-tau*tau/2)
	assert.InDelta(t, want, got.AtVec(0), 1e-12)
}

func TestSquaredExpGroupsMixedOrders(t *testing.T) {
	// One call mixing three distinct multi-indices; each row must land
	// back at its own position.
	sf, l := 1.0, 1.0
	k, err := NewSquaredExp(1, &Config{InitialParams: []float64{sf, l}})
	require.NoError(t, err)

	Xi := mat.NewDense(4, 1, []float64{0.5, 0.5, 1.0, 0.2})
	Xj := mat.NewDense(4, 1, []float64{0.0, 0.0, 0.5, 0.1})
	ni := [][]int{{0}, {1}, {0}, {1}}
	nj := [][]int{{0}, {0}, {0}, {1}}

	got, err := k.Evaluate(Xi, Xj, ni, nj, NoHyperDeriv, false)
	require.NoError(t, err)

	f := func(tau float64) float64 { return math.Exp(-tau * tau / 2) }
	assert.InDelta(t, f(0.5), got.AtVec(0), 1e-12)
	assert.InDelta(t, -0.5*f(0.5), got.AtVec(1), 1e-12)
	assert.InDelta(t, f(0.5), got.AtVec(2), 1e-12)
	tau := 0.1
	assert.InDelta(t, (1-tau*tau)*f(tau), got.AtVec(3), 1e-12)
}

func TestChainRuleShapeValidation(t *testing.T) {
	k, err := NewSquaredExp(2, nil)
	require.NoError(t, err)

	Xi := mat.NewDense(1, 1, []float64{0})
	_, err = k.Evaluate(Xi, Xi, [][]int{{0}}, [][]int{{0}}, NoHyperDeriv, false)
	assert.Error(t, err)

	Xi2 := mat.NewDense(1, 2, []float64{0, 0})
	_, err = k.Evaluate(Xi2, Xi2, [][]int{{0, -1}}, [][]int{{0, 0}}, NoHyperDeriv, false)
	assert.Error(t, err)
}
