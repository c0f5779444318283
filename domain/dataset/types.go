package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Measure is the level of measurement of a variable
type Measure string

const (
	MeasureNominal Measure = "nominal"
	MeasureOrdinal Measure = "ordinal"
	MeasureScale   Measure = "scale"
)

// ParseMeasure normalizes a caller supplied measure name
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nominal", "categorical":
		return MeasureNominal, nil
	case "ordinal":
		return MeasureOrdinal, nil
	case "scale", "interval", "ratio", "continuous", "numeric":
		return MeasureScale, nil
	}
	return "", fmt.Errorf("unknown measure %q", s)
}

// IsCategorical reports whether values are treated as category labels
func (m Measure) IsCategorical() bool {
	return m == MeasureNominal || m == MeasureOrdinal
}

// VariableDescriptor describes a column as classified by the caller
type VariableDescriptor struct {
	Name    string  `json:"name" yaml:"name"`
	Measure Measure `json:"measure" yaml:"measure"`
	Label   string  `json:"label,omitempty" yaml:"label,omitempty"`
}

// Row maps column names to raw scalar values (number, string, bool or nil)
type Row map[string]interface{}

// Dataset is an in-memory snapshot of uploaded tabular data
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// New builds a dataset from rows, deriving the column order from first appearance
func New(rows []Row) *Dataset {
	ds := &Dataset{Rows: rows}
	seen := make(map[string]bool)
	for _, row := range rows {
		// keys new to this row are appended in name order
		var fresh []string
		for key := range row {
			if !seen[key] {
				fresh = append(fresh, key)
			}
		}
		sort.Strings(fresh)
		for _, key := range fresh {
			seen[key] = true
			ds.Columns = append(ds.Columns, key)
		}
	}
	return ds
}

// NewWithColumns builds a dataset with an explicit column order
func NewWithColumns(columns []string, rows []Row) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols, Rows: rows}
}

// HasColumn reports whether name is part of the dataset schema
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RowCount returns the number of rows
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// Value returns the raw value of column name in row i
func (d *Dataset) Value(i int, name string) interface{} {
	if i < 0 || i >= len(d.Rows) {
		return nil
	}
	return d.Rows[i][name]
}

// MissingColumns returns the names not present in the schema, in request order
func (d *Dataset) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !d.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Upload is a parsed dataset file together with the measures inferred for its columns
type Upload struct {
	Name      string               `json:"name"`
	Columns   []string             `json:"columns"`
	Rows      []Row                `json:"rows"`
	Variables []VariableDescriptor `json:"variables"`
}

// Dataset returns the upload as a dataset with the file's column order
func (u *Upload) Dataset() *Dataset {
	return NewWithColumns(u.Columns, u.Rows)
}
