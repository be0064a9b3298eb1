// Package dataset holds the tabular input of the workflow: a frame of named
// categorical feature columns, the numeric target, and the train/test split.
package dataset

import (
	"strings"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Frame is an immutable table of named categorical columns stored row-major.
// Every cell is a category label; numeric-looking features are still treated
// as categories, matching the one-hot preprocessing applied to all columns.
type Frame struct {
	columns []string
	rows    [][]string
}

// NewFrame validates and copies the given header and rows.
func NewFrame(columns []string, rows [][]string) (*Frame, error) {
	if len(columns) == 0 {
		return nil, errors.NewValueError("NewFrame", "frame must have at least one column")
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if strings.TrimSpace(c) == "" {
			return nil, errors.NewValidationError("columns", "column name must not be empty", columns)
		}
		if _, dup := seen[c]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", c)
		}
		seen[c] = struct{}{}
	}

	cp := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, errors.NewDimensionError("NewFrame", len(columns), len(r), 1)
		}
		cp[i] = append([]string(nil), r...)
	}
	return &Frame{columns: append([]string(nil), columns...), rows: cp}, nil
}

// Columns returns a copy of the column names.
func (f *Frame) Columns() []string { return append([]string(nil), f.columns...) }

// NRows returns the number of rows.
func (f *Frame) NRows() int { return len(f.rows) }

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.columns) }

// At returns the cell at row i, column j.
func (f *Frame) At(i, j int) string { return f.rows[i][j] }

// Column returns a copy of column j.
func (f *Frame) Column(j int) []string {
	out := make([]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[j]
	}
	return out
}

// ColumnIndex returns the index of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for j, c := range f.columns {
		if c == name {
			return j
		}
	}
	return -1
}

// SameColumns reports whether both frames have identical column names in the same order.
func (f *Frame) SameColumns(other *Frame) bool {
	if other == nil || len(f.columns) != len(other.columns) {
		return false
	}
	for j := range f.columns {
		if f.columns[j] != other.columns[j] {
			return false
		}
	}
	return true
}

// Take returns a new frame made of the given rows, in order. Indices may repeat.
func (f *Frame) Take(indices []int) *Frame {
	rows := make([][]string, len(indices))
	for k, i := range indices {
		rows[k] = f.rows[i]
	}
	// 行スライスは共有するが、Frame は不変なので問題ない
	return &Frame{columns: f.columns, rows: rows}
}

// WithColumn returns a copy of f with column j replaced by values.
func (f *Frame) WithColumn(j int, values []string) (*Frame, error) {
	if j < 0 || j >= len(f.columns) {
		return nil, errors.NewValueError("WithColumn", "column index out of range")
	}
	if len(values) != len(f.rows) {
		return nil, errors.NewDimensionError("WithColumn", len(f.rows), len(values), 0)
	}
	rows := make([][]string, len(f.rows))
	for i, r := range f.rows {
		row := append([]string(nil), r...)
		row[j] = values[i]
		rows[i] = row
	}
	return &Frame{columns: f.columns, rows: rows}, nil
}
