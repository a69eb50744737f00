package adf

import (
	"math"

	"github.com/banshee-data/adf/internal/monitoring"
	"gonum.org/v1/gonum/floats"
)

// StepDiagnostics records the scalar quantities behind one update.
type StepDiagnostics struct {
	PredMean float64 // m_pred = φ·μ
	PredVar  float64 // v_pred = Σ φᵢ² τᵢ after diffusion
	Z        float64
	LogZ     float64
	M        float64 // tilted mean of η
	V        float64 // tilted variance of η
	Clamped  int     // coordinates raised to the variance floor
}

// Step absorbs one observation (phi, y) into st and returns the new state.
// st is not modified.
func Step(st State, phi []float64, y float64, opts Options) (State, StepDiagnostics, error) {
	if err := st.Validate(); err != nil {
		return State{}, StepDiagnostics{}, err
	}
	if err := opts.validate(st.Dims()); err != nil {
		return State{}, StepDiagnostics{}, err
	}
	if err := validateRow(phi, y, st.Dims(), -1); err != nil {
		return State{}, StepDiagnostics{}, err
	}
	return step(st, phi, y, opts, opts.evaluator())
}

// step is Step without input validation.
func step(st State, phi []float64, y float64, opts Options, ev Evaluator) (State, StepDiagnostics, error) {
	d := st.Dims()

	// Diffuse. The mean has no drift.
	varPred := make([]float64, d)
	for i := range varPred {
		varPred[i] = st.Variance[i] + opts.noise(i)
	}

	// Project onto the linear predictor. The predictive standard deviation
	// is a scaled norm, so it stays positive for any non-zero row even when
	// vPred underflows.
	mPred := floats.Dot(phi, st.Mean)
	scaled := make([]float64, d)
	var vPred float64
	for i, p := range phi {
		scaled[i] = p * math.Sqrt(varPred[i])
		vPred += p * p * varPred[i]
	}
	sPred := floats.Norm(scaled, 2)
	diag := StepDiagnostics{PredMean: mPred, PredVar: vPred}
	if !(sPred > 0) || math.IsInf(sPred, 0) {
		return State{}, diag, &DegenerateUpdateError{Step: -1, Coord: -1, PredVar: vPred}
	}

	mom, err := ev.Moments(mPred, sPred, y)
	if err != nil {
		return State{}, diag, err
	}
	diag.Z, diag.LogZ, diag.M, diag.V = mom.Z, mom.LogZ, mom.M, mom.V

	next := State{
		Mean:     make([]float64, d),
		Variance: make([]float64, d),
	}
	for i := range phi {
		// Gain per unit of the standardised predictor; |g| ≤ sqrt(varPred[i]).
		g := phi[i] * varPred[i] / sPred
		next.Mean[i] = st.Mean[i] + g*mom.StdOffset
		v := varPred[i] + g*g*(mom.StdVar-1)
		if !finite(v) {
			return State{}, diag, &DegenerateUpdateError{Step: -1, Coord: i, PredVar: vPred, Variance: v}
		}
		if v <= 0 {
			if opts.VariancePolicy != PolicyFloor {
				return State{}, diag, &DegenerateUpdateError{Step: -1, Coord: i, PredVar: vPred, Variance: v}
			}
			monitoring.Logf("adf: variance[%d] = %g clamped to floor %g", i, v, opts.VarianceFloor)
			v = opts.VarianceFloor
			diag.Clamped++
		}
		next.Variance[i] = v
	}
	return next, diag, nil
}
