package adf

import "math"

// softplus returns log(1+exp(x)) without overflow for large |x|.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// LogSigmoid returns log σ(x).
func LogSigmoid(x float64) float64 { return -softplus(-x) }

// LogOneMinusSigmoid returns log(1-σ(x)).
func LogOneMinusSigmoid(x float64) float64 { return -softplus(x) }

// Sigmoid returns σ(x) = 1/(1+exp(-x)), never exceeding 1.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// LogLikelihood is the Bernoulli log-likelihood of label y under a logistic
// link at linear predictor eta.
func LogLikelihood(eta, y float64) float64 {
	switch y {
	case 1:
		return LogSigmoid(eta)
	case 0:
		return LogOneMinusSigmoid(eta)
	}
	return y*LogSigmoid(eta) + (1-y)*LogOneMinusSigmoid(eta)
}
