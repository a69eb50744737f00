package adf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PredictProb returns the posterior predictive P(y=1 | phi) under st,
// ∫ σ(η) N(η; φ·μ, Σ φᵢ² τᵢ) dη. It is the normalising constant of the
// tilted density for y = 1, so it shares the filter's quadrature.
// Process noise is not applied.
func PredictProb(st State, phi []float64, opts Options) (float64, error) {
	if err := st.Validate(); err != nil {
		return 0, err
	}
	if err := opts.validate(st.Dims()); err != nil {
		return 0, err
	}
	if err := validateRow(phi, 1, st.Dims(), -1); err != nil {
		return 0, err
	}
	return predictProb(st, phi, opts.evaluator())
}

func predictProb(st State, phi []float64, ev Evaluator) (float64, error) {
	m := floats.Dot(phi, st.Mean)
	scaled := make([]float64, len(phi))
	for i, p := range phi {
		scaled[i] = p * math.Sqrt(st.Variance[i])
	}
	s := floats.Norm(scaled, 2)
	if s == 0 {
		// Point mass at m.
		return Sigmoid(m), nil
	}
	mom, err := ev.Moments(m, s, 1)
	if err != nil {
		return 0, err
	}
	return math.Min(mom.Z, 1), nil
}

// PredictGrid evaluates PredictProb at every row of grid.
func PredictGrid(st State, grid [][]float64, opts Options) ([]float64, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if err := opts.validate(st.Dims()); err != nil {
		return nil, err
	}
	ev := opts.evaluator()
	out := make([]float64, len(grid))
	for i, phi := range grid {
		if err := validateRow(phi, 1, st.Dims(), i); err != nil {
			return nil, err
		}
		p, err := predictProb(st, phi, ev)
		if err != nil {
			return nil, fmt.Errorf("grid point %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
