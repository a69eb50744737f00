package adf

import "fmt"

// validateRow checks one observation against a state of dimension dims.
// row is the observation index used in error messages, -1 for a lone Step.
func validateRow(phi []float64, y float64, dims, row int) error {
	if len(phi) != dims {
		return &ShapeMismatchError{What: fmt.Sprintf("feature row %d length", row), Got: len(phi), Want: dims}
	}
	for j, v := range phi {
		if !finite(v) {
			return fmt.Errorf("%w: feature row %d column %d = %g is not finite", ErrShapeMismatch, row, j, v)
		}
	}
	if y != 0 && y != 1 {
		return fmt.Errorf("%w: label %d = %g is not 0 or 1", ErrShapeMismatch, row, y)
	}
	return nil
}

// ValidateInputs checks a whole dataset against the state dimension before
// any processing starts. At least one observation is required.
func ValidateInputs(features [][]float64, labels []float64, dims int) error {
	if len(features) == 0 {
		return &ShapeMismatchError{What: "observation count", Got: 0, Want: 1}
	}
	if len(features) != len(labels) {
		return &ShapeMismatchError{What: "label count", Got: len(labels), Want: len(features)}
	}
	for i, phi := range features {
		if err := validateRow(phi, labels[i], dims, i); err != nil {
			return err
		}
	}
	return nil
}
