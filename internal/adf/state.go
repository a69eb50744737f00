package adf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// State is a diagonal Gaussian over the weights. A State is treated as
// immutable once produced: Step and the driver always allocate new slices.
type State struct {
	Mean     []float64
	Variance []float64
}

// NewState returns the prior: zero mean and priorVariance on every
// coordinate.
func NewState(dims int, priorVariance float64) State {
	st := State{
		Mean:     make([]float64, dims),
		Variance: make([]float64, dims),
	}
	for i := range st.Variance {
		st.Variance[i] = priorVariance
	}
	return st
}

// Dims is the number of weights.
func (s State) Dims() int { return len(s.Mean) }

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		Mean:     append([]float64(nil), s.Mean...),
		Variance: append([]float64(nil), s.Variance...),
	}
}

// Validate checks the state is well formed: equal non-zero lengths, finite
// means and finite strictly positive variances.
func (s State) Validate() error {
	if len(s.Mean) == 0 {
		return &ShapeMismatchError{What: "state dimension", Got: 0, Want: 1}
	}
	if len(s.Variance) != len(s.Mean) {
		return &ShapeMismatchError{What: "variance length", Got: len(s.Variance), Want: len(s.Mean)}
	}
	for i := range s.Mean {
		if !finite(s.Mean[i]) {
			return fmt.Errorf("%w: mean[%d] = %g is not finite", ErrShapeMismatch, i, s.Mean[i])
		}
		if !finite(s.Variance[i]) || s.Variance[i] <= 0 {
			return fmt.Errorf("%w: variance[%d] = %g must be finite and positive", ErrShapeMismatch, i, s.Variance[i])
		}
	}
	return nil
}

// Marginal returns the posterior marginal of weight i.
func (s State) Marginal(i int) distuv.Normal {
	return distuv.Normal{Mu: s.Mean[i], Sigma: math.Sqrt(s.Variance[i])}
}
