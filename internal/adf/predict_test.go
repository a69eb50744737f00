package adf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictProbPrior(t *testing.T) {
	t.Parallel()

	st := NewState(2, 1)
	p, err := PredictProb(st, []float64{1, 0.5}, testOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	// A zero row has no predictive spread.
	p, err = PredictProb(st, []float64{0, 0}, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	// Vanishing but non-zero rows stay at the point-mass limit.
	st.Mean = []float64{3, -2}
	for _, mag := range []float64{1e-80, 1e-160, 1e-300} {
		p, err = PredictProb(st, []float64{mag, mag}, testOptions())
		require.NoError(t, err, "mag=%g", mag)
		assert.InDelta(t, 0.5, p, 1e-12, "mag=%g", mag)
	}
}

func TestPredictProbMatchesBruteForce(t *testing.T) {
	t.Parallel()

	st := State{Mean: []float64{0.4, 1.1}, Variance: []float64{0.3, 0.8}}
	phi := []float64{1, 0.7}
	p, err := PredictProb(st, phi, testOptions())
	require.NoError(t, err)

	m := 0.4 + 0.7*1.1
	s := math.Sqrt(0.3 + 0.49*0.8)
	z, _, _ := bruteMoments(m, s, 1, -20, 20)
	assert.InDelta(t, z, p, 1e-8)

	// The probit approximation σ(m/√(1+πv/8)) is close but not exact.
	approx := Sigmoid(m / math.Sqrt(1+math.Pi*s*s/8))
	assert.InDelta(t, approx, p, 0.02)
	assert.Less(t, p, Sigmoid(m), "uncertainty pulls the prediction toward 1/2")
}

func TestPredictGridAfterScenario(t *testing.T) {
	t.Parallel()

	res, err := Run(scenarioFeatures, scenarioLabels, testOptions())
	require.NoError(t, err)

	grid := make([][]float64, 0, 13)
	for x := -3.0; x <= 3; x += 0.5 {
		grid = append(grid, []float64{1, x})
	}
	probs, err := PredictGrid(res.Final, grid, testOptions())
	require.NoError(t, err)
	require.Len(t, probs, len(grid))

	for i, p := range probs {
		assert.True(t, p > 0 && p < 1, "p[%d] = %g", i, p)
		if i > 0 {
			assert.Greater(t, p, probs[i-1], "prediction should rise with x")
		}
	}
}

func TestPredictErrors(t *testing.T) {
	t.Parallel()

	st := NewState(2, 1)
	_, err := PredictProb(st, []float64{1}, testOptions())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = PredictGrid(st, [][]float64{{1, 0}, {1, math.Inf(1)}}, testOptions())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = PredictProb(State{}, nil, testOptions())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = PredictProb(st, []float64{1, 0}, Options{})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestMarginal(t *testing.T) {
	t.Parallel()

	st := State{Mean: []float64{0.5, -1}, Variance: []float64{4, 0.25}}
	n := st.Marginal(0)
	assert.Equal(t, 0.5, n.Mean())
	assert.InDelta(t, 2, n.StdDev(), 1e-15)
	assert.InDelta(t, 0.5, st.Marginal(1).StdDev(), 1e-15)
	assert.InDelta(t, 0.5, n.CDF(0.5), 1e-15)
}
