package adf

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Bounds is the finite truncation [Lower, Upper] of the integral over the
// linear predictor.
type Bounds struct {
	Lower, Upper float64
}

// Moments are the zeroth, first and second central moments of the tilted
// density over η.
type Moments struct {
	Z    float64 // normalising constant, exp(LogZ)
	LogZ float64
	M    float64 // E[η]
	V    float64 // Var[η]

	// Offset is E[η] - m computed directly, without the cancellation in M - m.
	Offset float64

	// StdOffset and StdVar are the mean and variance of t = (η - m)/s.
	// They stay well scaled however small s is; Offset = s·StdOffset and
	// V = s²·StdVar.
	StdOffset float64
	StdVar    float64

	// Lower and Upper delimit the interval actually integrated.
	Lower, Upper float64
}

// Evaluator computes tilted moments by fixed-rule quadrature.
type Evaluator struct {
	Rule   Rule
	Bounds Bounds
	// Window, when positive, narrows the interval to m ± Window·s inside
	// Bounds so that narrow predictive densities are resolved by the grid.
	Window   float64
	Extended bool
}

// interval returns the integration limits in units of t = (η - m)/s.
func (e Evaluator) interval(m, s float64) (ta, tb float64) {
	ta, tb = (e.Bounds.Lower-m)/s, (e.Bounds.Upper-m)/s
	if e.Window > 0 {
		ta = math.Max(ta, -e.Window)
		tb = math.Min(tb, e.Window)
	}
	return ta, tb
}

func (e Evaluator) integrate(a, b float64, x, f []float64) float64 {
	if e.Extended {
		return e.Rule.IntegrateExtended(a, b, x, f)
	}
	return e.Rule.Integrate(a, b, x, f)
}

// Moments returns Z, M and V for label y under the predictive N(m, s²).
// The integrals are taken over the standardised t = (η - m)/s, where
// Z = ∫ lik(m + s·t) φ(t) dt, and scaled back. Z is resolved first; the
// moments of t are normalised by it.
func (e Evaluator) Moments(m, s, y float64) (Moments, error) {
	fail := func(reason string, v float64) (Moments, error) {
		return Moments{}, &NumericalIntegrationError{Step: -1, PredMean: m, PredStd: s, Value: v, Reason: reason}
	}

	if math.IsNaN(m) || math.IsInf(m, 0) {
		return fail("non-finite predictive mean", math.NaN())
	}
	if !(s > 0) || math.IsInf(s, 0) {
		return fail("predictive standard deviation must be finite and positive", math.NaN())
	}

	ta, tb := e.interval(m, s)
	if math.IsInf(ta, 0) || math.IsInf(tb, 0) {
		return fail("bounds overflow in units of the predictive standard deviation", 0)
	}
	if !(ta < tb) {
		return fail("integration window does not intersect the bounds", 0)
	}

	t := e.Rule.Nodes(ta, tb)
	logw := make([]float64, len(t))
	for i, ti := range t {
		logw[i] = LogLikelihood(m+s*ti, y) + distuv.UnitNormal.LogProb(ti)
	}
	shift := floats.Max(logw)
	if math.IsNaN(shift) || math.IsInf(shift, 0) {
		return fail("log integrand is not finite", shift)
	}

	w := make([]float64, len(t))
	for i := range t {
		w[i] = math.Exp(logw[i] - shift)
	}

	// Zeroth moment.
	I := e.integrate(ta, tb, t, w)
	if math.IsNaN(I) || math.IsInf(I, 0) {
		return fail("normalising integral is not finite", I)
	}
	if I <= 0 {
		return fail("normalising integral is not positive", I)
	}

	// First moment of t.
	f := make([]float64, len(t))
	floats.MulTo(f, t, w)
	mean := e.integrate(ta, tb, t, f) / I

	// Second moment of t, centred on its mean.
	for i := range f {
		d := t[i] - mean
		f[i] = d * d * w[i]
	}
	variance := e.integrate(ta, tb, t, f) / I
	if math.IsNaN(variance) || math.IsInf(variance, 0) || math.IsNaN(mean) {
		return fail("moment integrals are not finite", I)
	}

	// A normalising constant that underflows means the bounds hold no
	// appreciable predictive mass.
	logZ := shift + math.Log(I)
	z := math.Exp(logZ)
	if z == 0 {
		return fail("normalising constant underflows", I)
	}
	offset := s * mean
	return Moments{
		Z:         z,
		LogZ:      logZ,
		M:         m + offset,
		V:         s * s * variance,
		Offset:    offset,
		StdOffset: mean,
		StdVar:    variance,
		Lower:     m + s*ta,
		Upper:     m + s*tb,
	}, nil
}
