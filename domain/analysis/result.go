package analysis

import (
	"math"
	"strings"
)

// Result is everything one analysis produces for rendering
type Result struct {
	TestType TestType `json:"testType"`
	Tables   []*Table `json:"tables"`
	Charts   []*Chart `json:"charts"`
	Summary  string   `json:"summary"`
	Warnings []string `json:"warnings,omitempty"`
	N        int      `json:"n"`
}

// NewResult starts an empty result for testType
func NewResult(testType TestType) *Result {
	return &Result{TestType: testType, Tables: []*Table{}, Charts: []*Chart{}}
}

// AddTable appends a table and returns it for chaining rows
func (r *Result) AddTable(t *Table) *Table {
	r.Tables = append(r.Tables, t)
	return t
}

// AddChart appends a chart
func (r *Result) AddChart(c *Chart) {
	if c != nil {
		r.Charts = append(r.Charts, c)
	}
}

// Warn records a caveat that is appended to the summary
func (r *Result) Warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, sprintf(format, args...))
}

// SetSummary stores the headline sentence followed by any warnings
func (r *Result) SetSummary(headline string) {
	parts := []string{strings.TrimSpace(headline)}
	parts = append(parts, r.Warnings...)
	r.Summary = strings.TrimSpace(strings.Join(parts, " "))
}

// Table returns the first table whose title matches, or nil
func (r *Result) Table(title string) *Table {
	for _, t := range r.Tables {
		if t.Title == title {
			return t
		}
	}
	return nil
}

// TableRow maps header names to cell values
type TableRow map[string]interface{}

// Table is one SPSS style output table
type Table struct {
	Title     string     `json:"title"`
	Headers   []string   `json:"headers"`
	Rows      []TableRow `json:"rows"`
	Footnotes []string   `json:"footnotes,omitempty"`
}

// NewTable creates an empty table with the given headers
func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers, Rows: []TableRow{}}
}

// AddRow appends a row; values are matched to headers positionally
func (t *Table) AddRow(values ...interface{}) *Table {
	row := make(TableRow, len(t.Headers))
	for i, h := range t.Headers {
		if i < len(values) {
			row[h] = Cell(values[i])
		} else {
			row[h] = nil
		}
	}
	t.Rows = append(t.Rows, row)
	return t
}

// Note appends a footnote
func (t *Table) Note(format string, args ...interface{}) *Table {
	t.Footnotes = append(t.Footnotes, sprintf(format, args...))
	return t
}

// Float returns the numeric value stored at row i under header, NaN if absent
func (t *Table) Float(i int, header string) float64 {
	if i < 0 || i >= len(t.Rows) {
		return math.NaN()
	}
	switch v := t.Rows[i][header].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return math.NaN()
}

// Cell normalizes a value for a table: NaN and infinities become nil
func Cell(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return Cell(float64(x))
	case *float64:
		if x == nil {
			return nil
		}
		return Cell(*x)
	}
	return v
}

// ChartType is the rendering hint for a chart
type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartScatter ChartType = "scatter"
)

// Chart is a renderable series
type Chart struct {
	Type   ChartType     `json:"type"`
	Title  string        `json:"title"`
	XLabel string        `json:"xLabel,omitempty"`
	YLabel string        `json:"yLabel,omitempty"`
	Data   []interface{} `json:"data"`
}

// BarPoint is one bar of a bar chart
type BarPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// XYPoint is one point of a line or scatter chart
type XYPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewBarChart builds a bar chart from parallel labels and values
func NewBarChart(title string, labels []string, values []float64) *Chart {
	c := &Chart{Type: ChartBar, Title: title, Data: make([]interface{}, 0, len(labels))}
	for i, l := range labels {
		if i < len(values) && !math.IsNaN(values[i]) {
			c.Data = append(c.Data, BarPoint{Label: l, Value: values[i]})
		}
	}
	return c
}

// NewXYChart builds a line or scatter chart, skipping non-finite points
func NewXYChart(kind ChartType, title string, x, y []float64) *Chart {
	c := &Chart{Type: kind, Title: title, Data: make([]interface{}, 0, len(x))}
	for i := range x {
		if i >= len(y) {
			break
		}
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		c.Data = append(c.Data, XYPoint{X: x[i], Y: y[i]})
	}
	return c
}
