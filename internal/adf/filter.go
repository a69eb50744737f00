package adf

import (
	"fmt"

	"github.com/banshee-data/adf/internal/monitoring"
	"gonum.org/v1/gonum/mat"
)

// Filter is an online ADF filter. It owns one live State and the ordered
// history of every State it has produced, starting with the initial one.
// A Filter is not safe for concurrent use.
type Filter struct {
	opts Options
	ev   Evaluator

	initial State
	state   State
	history []State
	diags   []StepDiagnostics
}

// New returns a filter over dims weights starting from the prior
// N(0, opts.PriorVariance·I).
func New(dims int, opts Options) (*Filter, error) {
	if err := opts.validate(dims); err != nil {
		return nil, err
	}
	if !finite(opts.PriorVariance) || opts.PriorVariance <= 0 {
		return nil, fmt.Errorf("%w: prior variance %g must be finite and positive", ErrInvalidOptions, opts.PriorVariance)
	}
	return NewWithState(NewState(dims, opts.PriorVariance), opts)
}

// NewWithState returns a filter starting from init.
func NewWithState(init State, opts Options) (*Filter, error) {
	if err := init.Validate(); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	if err := opts.validate(init.Dims()); err != nil {
		return nil, err
	}
	f := &Filter{
		opts:    opts,
		ev:      opts.evaluator(),
		initial: init.Clone(),
	}
	f.Reset()
	return f, nil
}

// Dims is the number of weights.
func (f *Filter) Dims() int { return f.initial.Dims() }

// Options returns the options the filter was built with.
func (f *Filter) Options() Options { return f.opts }

// State returns a copy of the live state.
func (f *Filter) State() State { return f.state.Clone() }

// Steps is the number of observations absorbed since the last Reset.
func (f *Filter) Steps() int { return len(f.diags) }

// History returns copies of every state since the last Reset, initial
// state first.
func (f *Filter) History() []State {
	out := make([]State, len(f.history))
	for i, st := range f.history {
		out[i] = st.Clone()
	}
	return out
}

// Reset discards all observations and returns to the initial state.
func (f *Filter) Reset() {
	f.state = f.initial.Clone()
	f.history = []State{f.state}
	f.diags = nil
}

// Observe absorbs one observation. On error the filter is left unchanged.
func (f *Filter) Observe(phi []float64, y float64) error {
	idx := len(f.diags)
	if err := validateRow(phi, y, f.Dims(), idx); err != nil {
		return err
	}
	return f.observe(idx, phi, y)
}

func (f *Filter) observe(idx int, phi []float64, y float64) error {
	next, diag, err := step(f.state, phi, y, f.opts, f.ev)
	if err != nil {
		setStep(err, idx)
		return fmt.Errorf("observation %d: %w", idx, err)
	}
	if monitoring.TraceEnabled() {
		monitoring.Tracef("adf: step %d y=%g m=%.6g v=%.6g -> M=%.6g V=%.6g logZ=%.6g",
			idx, y, diag.PredMean, diag.PredVar, diag.M, diag.V, diag.LogZ)
	}
	f.state = next
	f.history = append(f.history, next)
	f.diags = append(f.diags, diag)
	return nil
}

// Run resets the filter and absorbs every row of features in index order.
// Inputs are validated before the first update; an empty dataset is a
// ShapeMismatchError. On any error the filter is
// reset and no partial result is returned.
func (f *Filter) Run(features [][]float64, labels []float64) (*Result, error) {
	if err := ValidateInputs(features, labels, f.Dims()); err != nil {
		return nil, err
	}

	f.Reset()
	monitoring.Logf("adf: run started: %d observations, %d weights, rule=%s bounds=[%g, %g]",
		len(features), f.Dims(), f.opts.Rule.Name(), f.opts.Bounds.Lower, f.opts.Bounds.Upper)

	f.history = make([]State, 1, len(features)+1)
	f.history[0] = f.state
	f.diags = make([]StepDiagnostics, 0, len(features))

	for i, phi := range features {
		if err := f.observe(i, phi, labels[i]); err != nil {
			f.Reset()
			return nil, err
		}
	}

	clamped := 0
	for _, d := range f.diags {
		clamped += d.Clamped
	}
	monitoring.Logf("adf: run finished: %d observations, %d variance clamps", len(features), clamped)

	return f.result(), nil
}

func (f *Filter) result() *Result {
	return &Result{
		Final:       f.State(),
		History:     f.History(),
		Diagnostics: append([]StepDiagnostics(nil), f.diags...),
	}
}

// Run is a convenience for New followed by Filter.Run. The dimension is
// taken from the first row, so an empty dataset is rejected as in Filter.Run.
func Run(features [][]float64, labels []float64, opts Options) (*Result, error) {
	if len(features) == 0 {
		return nil, &ShapeMismatchError{What: "observation count", Got: 0, Want: 1}
	}
	f, err := New(len(features[0]), opts)
	if err != nil {
		return nil, err
	}
	return f.Run(features, labels)
}

// Result is the outcome of a complete run.
type Result struct {
	Final       State
	History     []State // N+1 states, initial first
	Diagnostics []StepDiagnostics
}

// Steps is the number of observations processed.
func (r *Result) Steps() int { return len(r.Diagnostics) }

// Dims is the number of weights.
func (r *Result) Dims() int { return r.Final.Dims() }

// MeanHistory returns the (N+1)×D matrix of posterior means by step.
func (r *Result) MeanHistory() *mat.Dense {
	return r.stack(func(s State) []float64 { return s.Mean })
}

// VarianceHistory returns the (N+1)×D matrix of posterior variances by step.
func (r *Result) VarianceHistory() *mat.Dense {
	return r.stack(func(s State) []float64 { return s.Variance })
}

func (r *Result) stack(field func(State) []float64) *mat.Dense {
	m := mat.NewDense(len(r.History), r.Dims(), nil)
	for i, st := range r.History {
		m.SetRow(i, field(st))
	}
	return m
}
