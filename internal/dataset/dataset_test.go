package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	input := `# three labelled points
x,y
-1,0

0, 1
1,1
`
	ds, err := LoadCSV(strings.NewReader(input), Options{Header: true, AddBias: true})
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{1, -1}, {1, 0}, {1, 1}}, ds.Features)
	assert.Equal(t, []float64{0, 1, 1}, ds.Labels)
	assert.Equal(t, []string{BiasColumn, "x"}, ds.Columns)
	assert.Equal(t, "y", ds.LabelColumn)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 2, ds.Dims())
}

func TestLoadCSVWithoutHeaderOrBias(t *testing.T) {
	t.Parallel()

	ds, err := LoadCSV(strings.NewReader("0.5,2.5,1\n-0.5,1e-3,0.0\n"), Options{})
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{0.5, 2.5}, {-0.5, 1e-3}}, ds.Features)
	assert.Equal(t, []float64{1, 0}, ds.Labels)
	assert.Equal(t, []string{"x1", "x2"}, ds.Columns)
	assert.Equal(t, "y", ds.LabelColumn)
}

func TestLoadCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		opts    Options
		wantSub string
	}{
		{"empty", "", Options{}, "no observations"},
		{"header only", "a,b,label\n", Options{Header: true}, "no observations"},
		{"label only", "1\n0\n", Options{}, "line 1: need at least one feature"},
		{"ragged row", "1,2,0\n1,1\n", Options{}, "line 2: got 2 fields, want 3"},
		{"non-numeric feature", "1,2,0\n1,abc,1\n", Options{}, `line 2: column 2: "abc" is not a number`},
		{"label not binary", "1,2,0\n3,4,2\n", Options{}, `line 2: label "2" is not 0 or 1`},
		{"fractional label", "1,0.5\n", Options{}, "not 0 or 1"},
		{"non-numeric label", "1,yes\n", Options{}, "label:"},
		{"NaN feature", "NaN,1\n", Options{}, "not finite"},
		{"infinite feature", "1,-Inf,0\n", Options{}, "not finite"},
		{"bad quoting", "1,\"2,0\n", Options{}, "read csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := LoadCSV(strings.NewReader(tt.input), tt.opts)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.Contains(t, err.Error(), tt.wantSub)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "points.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n-1,0\n1,1\n"), 0644))

	ds, err := LoadFile(path, Options{Header: true, AddBias: true})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), Options{})
	assert.ErrorContains(t, err, "open dataset")

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("1,2\n"), 0644))
	_, err = LoadFile(bad, Options{})
	assert.ErrorContains(t, err, bad)
}
