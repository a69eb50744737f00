package adf

import (
	"fmt"
	"math"

	"github.com/banshee-data/adf/internal/config"
)

// VariancePolicy selects what happens when an update would leave a
// non-positive variance.
type VariancePolicy int

const (
	// PolicyError aborts with a DegenerateUpdateError.
	PolicyError VariancePolicy = iota
	// PolicyFloor clamps the coordinate to Options.VarianceFloor and
	// records the clamp in the step diagnostics.
	PolicyFloor
)

// Options configures the filter. Use DefaultOptions or OptionsFromConfig
// rather than a zero value: a zero Options has no Rule.
type Options struct {
	// ProcessNoise is added to every variance before each update.
	ProcessNoise float64
	// ProcessNoiseVec, when non-nil, is added per coordinate on top of
	// ProcessNoise. Its length must equal the state dimension.
	ProcessNoiseVec []float64

	// PriorVariance is the initial variance of every weight.
	PriorVariance float64

	Bounds            Bounds
	Rule              Rule
	WindowSigmas      float64
	ExtendedPrecision bool

	VariancePolicy VariancePolicy
	VarianceFloor  float64
}

// DefaultOptions returns the defaults of config.DefaultFilterConfig.
func DefaultOptions() Options {
	opts, err := OptionsFromConfig(config.DefaultFilterConfig())
	if err != nil {
		panic(fmt.Sprintf("adf: default options: %v", err))
	}
	return opts
}

// OptionsFromConfig builds Options from a loaded FilterConfig.
func OptionsFromConfig(cfg *config.FilterConfig) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	rule, err := NewRule(cfg.GetQuadratureRule(), cfg.GetQuadratureLevels(), cfg.GetLegendreNodes())
	if err != nil {
		return Options{}, err
	}
	policy := PolicyError
	if cfg.GetVariancePolicy() == config.PolicyFloor {
		policy = PolicyFloor
	}
	return Options{
		ProcessNoise:      cfg.GetProcessNoise(),
		PriorVariance:     cfg.GetPriorVariance(),
		Bounds:            Bounds{Lower: cfg.GetLowerBound(), Upper: cfg.GetUpperBound()},
		Rule:              rule,
		WindowSigmas:      cfg.GetWindowSigmas(),
		ExtendedPrecision: cfg.GetExtendedPrecision(),
		VariancePolicy:    policy,
		VarianceFloor:     cfg.GetVarianceFloor(),
	}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// validate checks the options against a state of dimension dims.
func (o Options) validate(dims int) error {
	if o.Rule == nil {
		return fmt.Errorf("%w: no quadrature rule", ErrInvalidOptions)
	}
	if !finite(o.Bounds.Lower) || !finite(o.Bounds.Upper) || o.Bounds.Lower >= o.Bounds.Upper {
		return fmt.Errorf("%w: bounds [%g, %g] must be finite and ordered", ErrInvalidOptions, o.Bounds.Lower, o.Bounds.Upper)
	}
	if !finite(o.ProcessNoise) || o.ProcessNoise < 0 {
		return fmt.Errorf("%w: process noise %g must be finite and non-negative", ErrInvalidOptions, o.ProcessNoise)
	}
	if o.ProcessNoiseVec != nil {
		if len(o.ProcessNoiseVec) != dims {
			return &ShapeMismatchError{What: "process noise vector length", Got: len(o.ProcessNoiseVec), Want: dims}
		}
		for i, q := range o.ProcessNoiseVec {
			if !finite(q) || q < 0 {
				return fmt.Errorf("%w: process noise[%d] = %g must be finite and non-negative", ErrInvalidOptions, i, q)
			}
		}
	}
	if !finite(o.WindowSigmas) || o.WindowSigmas < 0 {
		return fmt.Errorf("%w: window %g must be finite and non-negative", ErrInvalidOptions, o.WindowSigmas)
	}
	switch o.VariancePolicy {
	case PolicyError:
	case PolicyFloor:
		if !finite(o.VarianceFloor) || o.VarianceFloor <= 0 {
			return fmt.Errorf("%w: variance floor %g must be finite and positive", ErrInvalidOptions, o.VarianceFloor)
		}
	default:
		return fmt.Errorf("%w: unknown variance policy %d", ErrInvalidOptions, o.VariancePolicy)
	}
	return nil
}

func (o Options) evaluator() Evaluator {
	return Evaluator{
		Rule:     o.Rule,
		Bounds:   o.Bounds,
		Window:   o.WindowSigmas,
		Extended: o.ExtendedPrecision,
	}
}

// noise returns the total process noise for coordinate i.
func (o Options) noise(i int) float64 {
	if o.ProcessNoiseVec != nil {
		return o.ProcessNoise + o.ProcessNoiseVec[i]
	}
	return o.ProcessNoise
}
