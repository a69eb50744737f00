// Package dataset loads labelled design matrices from CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// BiasColumn is the column name given to the constant column added by
// Options.AddBias.
const BiasColumn = "bias"

// Options controls how a CSV file is read.
type Options struct {
	// Header means the first non-comment record names the columns.
	Header bool
	// AddBias prepends a constant 1 column to every feature row.
	AddBias bool
}

// Dataset is a feature matrix with index-aligned binary labels.
type Dataset struct {
	Features [][]float64
	Labels   []float64
	// Columns names the feature columns, bias first when present.
	Columns []string
	// LabelColumn is the header of the label column, or "y".
	LabelColumn string
}

// Len is the number of observations.
func (d *Dataset) Len() int { return len(d.Labels) }

// Dims is the number of feature columns, bias included.
func (d *Dataset) Dims() int { return len(d.Columns) }

// LoadCSV reads rows of the form x1,...,xk,y. Blank lines and lines
// starting with '#' are skipped. Every row must have the same number of
// fields, every cell must parse as a finite number and every label must be
// 0 or 1; errors name the offending line.
func LoadCSV(r io.Reader, opts Options) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	ds := &Dataset{LabelColumn: "y"}
	width := -1

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if width < 0 {
			width = len(record)
			if width < 2 {
				return nil, fmt.Errorf("line %d: need at least one feature and a label, got %d fields", line, width)
			}
			ds.Columns = columnNames(record, opts)
			if opts.Header {
				ds.LabelColumn = strings.TrimSpace(record[width-1])
				continue
			}
		}
		if len(record) != width {
			return nil, fmt.Errorf("line %d: got %d fields, want %d", line, len(record), width)
		}

		row, label, err := parseRecord(record, opts.AddBias)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Labels) == 0 {
		return nil, errors.New("no observations in input")
	}
	return ds, nil
}

// LoadFile opens path and reads it with LoadCSV.
func LoadFile(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := LoadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

func columnNames(record []string, opts Options) []string {
	var cols []string
	if opts.AddBias {
		cols = append(cols, BiasColumn)
	}
	for i := 0; i < len(record)-1; i++ {
		if opts.Header {
			cols = append(cols, strings.TrimSpace(record[i]))
		} else {
			cols = append(cols, fmt.Sprintf("x%d", i+1))
		}
	}
	return cols
}

func parseRecord(record []string, addBias bool) ([]float64, float64, error) {
	k := len(record) - 1
	row := make([]float64, 0, k+1)
	if addBias {
		row = append(row, 1)
	}
	for i := 0; i < k; i++ {
		v, err := parseCell(record[i])
		if err != nil {
			return nil, 0, fmt.Errorf("column %d: %w", i+1, err)
		}
		row = append(row, v)
	}

	label, err := parseCell(record[k])
	if err != nil {
		return nil, 0, fmt.Errorf("label: %w", err)
	}
	if label != 0 && label != 1 {
		return nil, 0, fmt.Errorf("label %q is not 0 or 1", record[k])
	}
	return row, label, nil
}

func parseCell(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}
