package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical filter defaults file.
// This is the single source of truth for all default filter values.
const DefaultConfigPath = "config/filter.defaults.json"

// Quadrature rule names accepted by quadrature_rule.
const (
	RuleRomberg   = "romberg"
	RuleSimpson   = "simpson"
	RuleTrapezoid = "trapezoid"
	RuleLegendre  = "legendre"
)

// Variance policies accepted by variance_policy.
const (
	PolicyError = "error"
	PolicyFloor = "floor"
)

// FilterConfig is the root configuration for the ADF filter. Every field is
// optional; the Get* methods supply the default for anything left unset, so
// partial configs are safe.
type FilterConfig struct {
	// Model
	ProcessNoise  *float64 `json:"process_noise,omitempty"`
	PriorVariance *float64 `json:"prior_variance,omitempty"`

	// Integration domain for the linear predictor
	LowerBound   *float64 `json:"lower_bound,omitempty"`
	UpperBound   *float64 `json:"upper_bound,omitempty"`
	WindowSigmas *float64 `json:"window_sigmas,omitempty"` // 0 integrates the full bounds

	// Quadrature
	QuadratureRule    *string `json:"quadrature_rule,omitempty"`
	QuadratureLevels  *int    `json:"quadrature_levels,omitempty"` // 2^k+1 nodes
	LegendreNodes     *int    `json:"legendre_nodes,omitempty"`
	ExtendedPrecision *bool   `json:"extended_precision,omitempty"`

	// Non-positive variance handling
	VariancePolicy *string  `json:"variance_policy,omitempty"`
	VarianceFloor  *float64 `json:"variance_floor,omitempty"`

	// Dataset loading
	AddBias *bool `json:"add_bias,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyFilterConfig returns a FilterConfig with all fields set to nil.
func EmptyFilterConfig() *FilterConfig {
	return &FilterConfig{}
}

// DefaultFilterConfig returns a FilterConfig with every field populated
// from the Get* defaults. It does not read the defaults file.
func DefaultFilterConfig() *FilterConfig {
	c := EmptyFilterConfig()
	return &FilterConfig{
		ProcessNoise:      ptrFloat64(c.GetProcessNoise()),
		PriorVariance:     ptrFloat64(c.GetPriorVariance()),
		LowerBound:        ptrFloat64(c.GetLowerBound()),
		UpperBound:        ptrFloat64(c.GetUpperBound()),
		WindowSigmas:      ptrFloat64(c.GetWindowSigmas()),
		QuadratureRule:    ptrString(c.GetQuadratureRule()),
		QuadratureLevels:  ptrInt(c.GetQuadratureLevels()),
		LegendreNodes:     ptrInt(c.GetLegendreNodes()),
		ExtendedPrecision: ptrBool(c.GetExtendedPrecision()),
		VariancePolicy:    ptrString(c.GetVariancePolicy()),
		VarianceFloor:     ptrFloat64(c.GetVarianceFloor()),
		AddBias:           ptrBool(c.GetAddBias()),
	}
}

// LoadFilterConfig loads a FilterConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadFilterConfig(path string) (*FilterConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFilterConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repo root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *FilterConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadFilterConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *FilterConfig) Validate() error {
	if c.ProcessNoise != nil {
		if v := *c.ProcessNoise; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("process_noise must be finite and non-negative, got %g", v)
		}
	}
	if c.PriorVariance != nil {
		if v := *c.PriorVariance; !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("prior_variance must be finite and positive, got %g", v)
		}
	}

	lo, hi := c.GetLowerBound(), c.GetUpperBound()
	if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
		return fmt.Errorf("integration bounds must be finite, got [%g, %g]", lo, hi)
	}
	if lo >= hi {
		return fmt.Errorf("lower_bound must be below upper_bound, got [%g, %g]", lo, hi)
	}

	if c.WindowSigmas != nil {
		if v := *c.WindowSigmas; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("window_sigmas must be finite and non-negative, got %g", v)
		}
	}

	switch rule := c.GetQuadratureRule(); rule {
	case RuleRomberg, RuleSimpson, RuleTrapezoid, RuleLegendre:
	default:
		return fmt.Errorf("unknown quadrature_rule %q", rule)
	}

	if c.QuadratureLevels != nil {
		if k := *c.QuadratureLevels; k < 2 || k > 20 {
			return fmt.Errorf("quadrature_levels must be between 2 and 20, got %d", k)
		}
	}
	if c.LegendreNodes != nil {
		if n := *c.LegendreNodes; n < 2 {
			return fmt.Errorf("legendre_nodes must be at least 2, got %d", n)
		}
	}

	switch policy := c.GetVariancePolicy(); policy {
	case PolicyError:
	case PolicyFloor:
		if f := c.GetVarianceFloor(); !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("variance_floor must be finite and positive with the floor policy, got %g", f)
		}
	default:
		return fmt.Errorf("unknown variance_policy %q", policy)
	}

	return nil
}

// GetProcessNoise returns the process_noise value or the default.
func (c *FilterConfig) GetProcessNoise() float64 {
	if c.ProcessNoise == nil {
		return 0 // static weights
	}
	return *c.ProcessNoise
}

// GetPriorVariance returns the prior_variance value or the default.
func (c *FilterConfig) GetPriorVariance() float64 {
	if c.PriorVariance == nil {
		return 1.0
	}
	return *c.PriorVariance
}

// GetLowerBound returns the lower_bound value or the default.
func (c *FilterConfig) GetLowerBound() float64 {
	if c.LowerBound == nil {
		return -20
	}
	return *c.LowerBound
}

// GetUpperBound returns the upper_bound value or the default.
func (c *FilterConfig) GetUpperBound() float64 {
	if c.UpperBound == nil {
		return 20
	}
	return *c.UpperBound
}

// GetWindowSigmas returns the window_sigmas value or the default.
func (c *FilterConfig) GetWindowSigmas() float64 {
	if c.WindowSigmas == nil {
		return 12
	}
	return *c.WindowSigmas
}

// GetQuadratureRule returns the quadrature_rule value or the default.
func (c *FilterConfig) GetQuadratureRule() string {
	if c.QuadratureRule == nil || *c.QuadratureRule == "" {
		return RuleRomberg
	}
	return *c.QuadratureRule
}

// GetQuadratureLevels returns the quadrature_levels value or the default.
func (c *FilterConfig) GetQuadratureLevels() int {
	if c.QuadratureLevels == nil {
		return 10 // 1025 nodes
	}
	return *c.QuadratureLevels
}

// GetLegendreNodes returns the legendre_nodes value or the default.
func (c *FilterConfig) GetLegendreNodes() int {
	if c.LegendreNodes == nil {
		return 128
	}
	return *c.LegendreNodes
}

// GetExtendedPrecision returns the extended_precision value or the default.
func (c *FilterConfig) GetExtendedPrecision() bool {
	if c.ExtendedPrecision == nil {
		return false
	}
	return *c.ExtendedPrecision
}

// GetVariancePolicy returns the variance_policy value or the default.
func (c *FilterConfig) GetVariancePolicy() string {
	if c.VariancePolicy == nil || *c.VariancePolicy == "" {
		return PolicyError
	}
	return *c.VariancePolicy
}

// GetVarianceFloor returns the variance_floor value or the default.
func (c *FilterConfig) GetVarianceFloor() float64 {
	if c.VarianceFloor == nil {
		return 1e-12
	}
	return *c.VarianceFloor
}

// GetAddBias returns the add_bias value or the default.
func (c *FilterConfig) GetAddBias() bool {
	if c.AddBias == nil {
		return true
	}
	return *c.AddBias
}
