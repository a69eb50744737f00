package adf

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrNumericalIntegration = errors.New("numerical integration failed")
	ErrDegenerateUpdate     = errors.New("degenerate update")
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrInvalidOptions       = errors.New("invalid filter options")
)

// NumericalIntegrationError reports a normalising integral that came out
// zero, negative or non-finite, or an integration window that does not
// intersect the bounds.
type NumericalIntegrationError struct {
	Step     int // observation index, -1 outside a run
	PredMean float64
	PredStd  float64
	Value    float64 // shifted integral I, Z = exp(shift)·I
	Reason   string
}

func (e *NumericalIntegrationError) Error() string {
	return fmt.Sprintf("%v at step %d: %s (m=%g s=%g I=%g)",
		ErrNumericalIntegration, e.Step, e.Reason, e.PredMean, e.PredStd, e.Value)
}

func (e *NumericalIntegrationError) Unwrap() error { return ErrNumericalIntegration }

// DegenerateUpdateError reports an update that would leave a non-positive
// or non-finite variance. Coord is -1 when the predictive variance itself
// is zero.
type DegenerateUpdateError struct {
	Step     int
	Coord    int
	PredVar  float64
	Variance float64
}

func (e *DegenerateUpdateError) Error() string {
	if e.Coord < 0 {
		return fmt.Sprintf("%v at step %d: predictive variance %g", ErrDegenerateUpdate, e.Step, e.PredVar)
	}
	return fmt.Sprintf("%v at step %d: variance[%d] = %g (predictive variance %g)",
		ErrDegenerateUpdate, e.Step, e.Coord, e.Variance, e.PredVar)
}

func (e *DegenerateUpdateError) Unwrap() error { return ErrDegenerateUpdate }

// ShapeMismatchError reports inconsistent input dimensions or invalid
// input values, detected before any processing.
type ShapeMismatchError struct {
	What string
	Got  int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: %s: got %d, want %d", ErrShapeMismatch, e.What, e.Got, e.Want)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// setStep stamps the observation index onto step-level errors.
func setStep(err error, step int) {
	var ie *NumericalIntegrationError
	if errors.As(err, &ie) {
		ie.Step = step
	}
	var de *DegenerateUpdateError
	if errors.As(err, &de) {
		de.Step = step
	}
}
