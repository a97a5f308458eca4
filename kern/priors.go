package kern

import "gonum.org/v1/gonum/stat/distuv"

// UniformPrior returns the uniform log-density over the given bound.
// It is the default hyperprior for every parameter.
func UniformPrior(b Bound) Prior {
	u := distuv.Uniform{Min: b.Lower, Max: b.Upper}
	return u.LogProb
}

// GammaPrior returns the gamma log-density with shape alpha and rate
// beta, a common informative choice for length scales.
func GammaPrior(alpha, beta float64) Prior {
	g := distuv.Gamma{Alpha: alpha, Beta: beta}
	return g.LogProb
}
