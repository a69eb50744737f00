package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultFilterConfig(t *testing.T) {
	cfg := DefaultFilterConfig()

	if cfg.ProcessNoise == nil || *cfg.ProcessNoise != 0 {
		t.Errorf("Expected ProcessNoise 0, got %v", cfg.ProcessNoise)
	}
	if cfg.QuadratureRule == nil || *cfg.QuadratureRule != RuleRomberg {
		t.Errorf("Expected QuadratureRule %q, got %v", RuleRomberg, cfg.QuadratureRule)
	}

	if cfg.GetLowerBound() != -20 || cfg.GetUpperBound() != 20 {
		t.Errorf("bounds = [%g, %g], want [-20, 20]", cfg.GetLowerBound(), cfg.GetUpperBound())
	}
	if cfg.GetPriorVariance() != 1 {
		t.Errorf("GetPriorVariance() = %g, want 1", cfg.GetPriorVariance())
	}
	if cfg.GetQuadratureLevels() != 10 {
		t.Errorf("GetQuadratureLevels() = %d, want 10", cfg.GetQuadratureLevels())
	}
	if cfg.GetVariancePolicy() != PolicyError {
		t.Errorf("GetVariancePolicy() = %q, want %q", cfg.GetVariancePolicy(), PolicyError)
	}
	if !cfg.GetAddBias() {
		t.Error("GetAddBias() = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultsFileMatchesGetters(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	builtin := DefaultFilterConfig()

	if fromFile.GetProcessNoise() != builtin.GetProcessNoise() {
		t.Errorf("process_noise: file %g, builtin %g", fromFile.GetProcessNoise(), builtin.GetProcessNoise())
	}
	if fromFile.GetLowerBound() != builtin.GetLowerBound() || fromFile.GetUpperBound() != builtin.GetUpperBound() {
		t.Errorf("bounds differ between defaults file and getters")
	}
	if fromFile.GetQuadratureRule() != builtin.GetQuadratureRule() {
		t.Errorf("quadrature_rule: file %q, builtin %q", fromFile.GetQuadratureRule(), builtin.GetQuadratureRule())
	}
	if fromFile.GetWindowSigmas() != builtin.GetWindowSigmas() {
		t.Errorf("window_sigmas: file %g, builtin %g", fromFile.GetWindowSigmas(), builtin.GetWindowSigmas())
	}
	if fromFile.GetVarianceFloor() != builtin.GetVarianceFloor() {
		t.Errorf("variance_floor: file %g, builtin %g", fromFile.GetVarianceFloor(), builtin.GetVarianceFloor())
	}
}

func TestLoadFilterConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "filter.json")

	testJSON := `{
  "process_noise": 0.01,
  "lower_bound": -30,
  "upper_bound": 30,
  "quadrature_rule": "legendre",
  "legendre_nodes": 64,
  "extended_precision": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadFilterConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetProcessNoise() != 0.01 {
		t.Errorf("GetProcessNoise() = %g, want 0.01", cfg.GetProcessNoise())
	}
	if cfg.GetLowerBound() != -30 || cfg.GetUpperBound() != 30 {
		t.Errorf("bounds = [%g, %g], want [-30, 30]", cfg.GetLowerBound(), cfg.GetUpperBound())
	}
	if cfg.GetQuadratureRule() != RuleLegendre {
		t.Errorf("GetQuadratureRule() = %q, want %q", cfg.GetQuadratureRule(), RuleLegendre)
	}
	if cfg.GetLegendreNodes() != 64 {
		t.Errorf("GetLegendreNodes() = %d, want 64", cfg.GetLegendreNodes())
	}
	if !cfg.GetExtendedPrecision() {
		t.Error("GetExtendedPrecision() = false, want true")
	}
	// Unset fields fall back to defaults.
	if cfg.GetPriorVariance() != 1 {
		t.Errorf("GetPriorVariance() = %g, want default 1", cfg.GetPriorVariance())
	}
}

func TestLoadFilterConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantSub string
	}{
		{"missing file", filepath.Join(tmpDir, "missing.json"), "stat"},
		{"wrong extension", write("filter.yaml", "{}"), ".json extension"},
		{"bad json", write("bad.json", `{"process_noise": "x"`), "parse"},
		{"invalid values", write("invalid.json", `{"lower_bound": 5, "upper_bound": 1}`), "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFilterConfig(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *FilterConfig
		wantErr bool
	}{
		{name: "valid defaults", cfg: DefaultFilterConfig()},
		{name: "empty config is valid", cfg: &FilterConfig{}},
		{name: "negative process noise", cfg: &FilterConfig{ProcessNoise: ptrFloat64(-0.1)}, wantErr: true},
		{name: "NaN process noise", cfg: &FilterConfig{ProcessNoise: ptrFloat64(math.NaN())}, wantErr: true},
		{name: "zero prior variance", cfg: &FilterConfig{PriorVariance: ptrFloat64(0)}, wantErr: true},
		{name: "inverted bounds", cfg: &FilterConfig{LowerBound: ptrFloat64(3), UpperBound: ptrFloat64(-3)}, wantErr: true},
		{name: "equal bounds", cfg: &FilterConfig{LowerBound: ptrFloat64(1), UpperBound: ptrFloat64(1)}, wantErr: true},
		{name: "infinite bound", cfg: &FilterConfig{UpperBound: ptrFloat64(math.Inf(1))}, wantErr: true},
		{name: "negative window", cfg: &FilterConfig{WindowSigmas: ptrFloat64(-1)}, wantErr: true},
		{name: "window disabled", cfg: &FilterConfig{WindowSigmas: ptrFloat64(0)}},
		{name: "unknown rule", cfg: &FilterConfig{QuadratureRule: ptrString("monte-carlo")}, wantErr: true},
		{name: "too few levels", cfg: &FilterConfig{QuadratureLevels: ptrInt(1)}, wantErr: true},
		{name: "too many levels", cfg: &FilterConfig{QuadratureLevels: ptrInt(21)}, wantErr: true},
		{name: "one legendre node", cfg: &FilterConfig{LegendreNodes: ptrInt(1)}, wantErr: true},
		{name: "unknown policy", cfg: &FilterConfig{VariancePolicy: ptrString("ignore")}, wantErr: true},
		{
			name:    "floor policy without positive floor",
			cfg:     &FilterConfig{VariancePolicy: ptrString(PolicyFloor), VarianceFloor: ptrFloat64(0)},
			wantErr: true,
		},
		{
			name: "floor policy with floor",
			cfg:  &FilterConfig{VariancePolicy: ptrString(PolicyFloor), VarianceFloor: ptrFloat64(1e-9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
