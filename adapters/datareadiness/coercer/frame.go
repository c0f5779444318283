package coercer

import (
	"math"

	"statlab/domain/core"
	"statlab/domain/dataset"
)

// Frame extracts typed columns from a dataset for one test
type Frame struct {
	ds      *dataset.Dataset
	coercer *TypeCoercer
}

// NewFrame wraps ds with the default coercion rules
func NewFrame(ds *dataset.Dataset) *Frame {
	return &Frame{ds: ds, coercer: NewTypeCoercer(DefaultCoercionConfig())}
}

// NewFrameWithCoercer wraps ds with a custom coercer
func NewFrameWithCoercer(ds *dataset.Dataset, c *TypeCoercer) *Frame {
	return &Frame{ds: ds, coercer: c}
}

// Dataset returns the wrapped dataset
func (f *Frame) Dataset() *dataset.Dataset {
	return f.ds
}

// Rows returns the total number of rows before any deletion
func (f *Frame) Rows() int {
	return f.ds.RowCount()
}

// Require fails with InvalidVariableError for the first name that is not a column
func (f *Frame) Require(names ...string) error {
	for _, n := range names {
		if n == "" {
			return core.NewInvalidVariableError(n, "is empty")
		}
	}
	if missing := f.ds.MissingColumns(names...); len(missing) > 0 {
		return core.NewInvalidVariableError(missing[0], "")
	}
	return nil
}

// NumericBlock holds listwise complete numeric columns
type NumericBlock struct {
	Names    []string
	Columns  [][]float64
	RowIndex []int // original row of each retained observation
	Excluded int
}

// N returns the number of complete rows
func (b *NumericBlock) N() int {
	return len(b.RowIndex)
}

// Column returns the values of the named variable
func (b *NumericBlock) Column(name string) []float64 {
	for i, n := range b.Names {
		if n == name {
			return b.Columns[i]
		}
	}
	return nil
}

// Row returns observation i across all columns
func (b *NumericBlock) Row(i int) []float64 {
	out := make([]float64, len(b.Columns))
	for j := range b.Columns {
		out[j] = b.Columns[j][i]
	}
	return out
}

// Numeric extracts scale columns, dropping rows missing any of them
func (f *Frame) Numeric(names ...string) (*NumericBlock, error) {
	if err := f.Require(names...); err != nil {
		return nil, err
	}
	block := &NumericBlock{Names: names, Columns: make([][]float64, len(names))}
	row := make([]float64, len(names))
	for i, r := range f.ds.Rows {
		complete := true
		for j, n := range names {
			v, ok := f.coercer.Numeric(r[n])
			if !ok {
				complete = false
				break
			}
			row[j] = v
		}
		if !complete {
			block.Excluded++
			continue
		}
		for j := range names {
			block.Columns[j] = append(block.Columns[j], row[j])
		}
		block.RowIndex = append(block.RowIndex, i)
	}
	return block, nil
}

// NumericColumn extracts one scale column, dropping missing values
func (f *Frame) NumericColumn(name string) ([]float64, error) {
	block, err := f.Numeric(name)
	if err != nil {
		return nil, err
	}
	return block.Columns[0], nil
}

// NumericWithMissing extracts scale columns keeping every row; missing cells are NaN
func (f *Frame) NumericWithMissing(names ...string) ([][]float64, error) {
	if err := f.Require(names...); err != nil {
		return nil, err
	}
	cols := make([][]float64, len(names))
	for j, n := range names {
		cols[j] = make([]float64, len(f.ds.Rows))
		for i, r := range f.ds.Rows {
			v, ok := f.coercer.Numeric(r[n])
			if !ok {
				v = math.NaN()
			}
			cols[j][i] = v
		}
	}
	return cols, nil
}

// CategoricalColumn holds the non-missing labels of a nominal column
type CategoricalColumn struct {
	Name     string
	Values   []string
	Levels   []string // first appearance order
	Excluded int
}

// Counts returns the frequency of each level, aligned with Levels
func (c *CategoricalColumn) Counts() []int {
	idx := make(map[string]int, len(c.Levels))
	for i, l := range c.Levels {
		idx[l] = i
	}
	counts := make([]int, len(c.Levels))
	for _, v := range c.Values {
		counts[idx[v]]++
	}
	return counts
}

// Categorical extracts one nominal or ordinal column
func (f *Frame) Categorical(name string) (*CategoricalColumn, error) {
	if err := f.Require(name); err != nil {
		return nil, err
	}
	col := &CategoricalColumn{Name: name}
	seen := make(map[string]bool)
	for _, r := range f.ds.Rows {
		v, ok := f.coercer.Category(r[name])
		if !ok {
			col.Excluded++
			continue
		}
		if !seen[v] {
			seen[v] = true
			col.Levels = append(col.Levels, v)
		}
		col.Values = append(col.Values, v)
	}
	return col, nil
}

// Group is the set of scores observed for one category
type Group struct {
	Label  string
	Values []float64
}

// Groups holds a scale variable split by a grouping variable
type Groups struct {
	Dependent string
	Factor    string
	Groups    []Group // first appearance order
	Excluded  int     // rows missing the dependent or the factor
	Pruned    int     // observations in groups dropped by Prune
}

// N returns the total number of observations across groups
func (g *Groups) N() int {
	n := 0
	for _, grp := range g.Groups {
		n += len(grp.Values)
	}
	return n
}

// Labels returns the group labels in order
func (g *Groups) Labels() []string {
	out := make([]string, len(g.Groups))
	for i, grp := range g.Groups {
		out[i] = grp.Label
	}
	return out
}

// Values returns the group samples in order
func (g *Groups) Values() [][]float64 {
	out := make([][]float64, len(g.Groups))
	for i, grp := range g.Groups {
		out[i] = grp.Values
	}
	return out
}

// Prune drops groups with fewer than min observations and returns their labels.
// Their observations count toward Pruned, not Excluded.
func (g *Groups) Prune(min int) []string {
	var dropped []string
	kept := g.Groups[:0]
	for _, grp := range g.Groups {
		if len(grp.Values) < min {
			dropped = append(dropped, grp.Label)
			g.Pruned += len(grp.Values)
			continue
		}
		kept = append(kept, grp)
	}
	g.Groups = kept
	return dropped
}

// Grouped splits a scale variable by the categories of factor, listwise on both
func (f *Frame) Grouped(dependent, factor string) (*Groups, error) {
	if err := f.Require(dependent, factor); err != nil {
		return nil, err
	}
	out := &Groups{Dependent: dependent, Factor: factor}
	index := make(map[string]int)
	for _, r := range f.ds.Rows {
		v, ok := f.coercer.Numeric(r[dependent])
		label, lok := f.coercer.Category(r[factor])
		if !ok || !lok {
			out.Excluded++
			continue
		}
		i, seen := index[label]
		if !seen {
			i = len(out.Groups)
			index[label] = i
			out.Groups = append(out.Groups, Group{Label: label})
		}
		out.Groups[i].Values = append(out.Groups[i].Values, v)
	}
	return out, nil
}

// Observation is one row of a mixed numeric/categorical extraction
type Observation struct {
	Value  float64
	Labels []string
}

// Factorial extracts a scale variable with several categorical factors, listwise
func (f *Frame) Factorial(dependent string, factors ...string) ([]Observation, [][]string, int, error) {
	names := append([]string{dependent}, factors...)
	if err := f.Require(names...); err != nil {
		return nil, nil, 0, err
	}
	levels := make([][]string, len(factors))
	seen := make([]map[string]bool, len(factors))
	for i := range seen {
		seen[i] = make(map[string]bool)
	}
	var obs []Observation
	excluded := 0
	for _, r := range f.ds.Rows {
		v, ok := f.coercer.Numeric(r[dependent])
		if !ok {
			excluded++
			continue
		}
		labels := make([]string, len(factors))
		complete := true
		for j, fac := range factors {
			l, lok := f.coercer.Category(r[fac])
			if !lok {
				complete = false
				break
			}
			labels[j] = l
		}
		if !complete {
			excluded++
			continue
		}
		for j, l := range labels {
			if !seen[j][l] {
				seen[j][l] = true
				levels[j] = append(levels[j], l)
			}
		}
		obs = append(obs, Observation{Value: v, Labels: labels})
	}
	return obs, levels, excluded, nil
}

// CrossTab extracts two categorical columns, listwise on both
func (f *Frame) CrossTab(rowVar, colVar string) (rows, cols *CategoricalColumn, err error) {
	if err := f.Require(rowVar, colVar); err != nil {
		return nil, nil, err
	}
	rows = &CategoricalColumn{Name: rowVar}
	cols = &CategoricalColumn{Name: colVar}
	rowSeen, colSeen := make(map[string]bool), make(map[string]bool)
	for _, r := range f.ds.Rows {
		a, aok := f.coercer.Category(r[rowVar])
		b, bok := f.coercer.Category(r[colVar])
		if !aok || !bok {
			rows.Excluded++
			cols.Excluded++
			continue
		}
		if !rowSeen[a] {
			rowSeen[a] = true
			rows.Levels = append(rows.Levels, a)
		}
		if !colSeen[b] {
			colSeen[b] = true
			cols.Levels = append(cols.Levels, b)
		}
		rows.Values = append(rows.Values, a)
		cols.Values = append(cols.Values, b)
	}
	return rows, cols, nil
}

// MixedRow is a row with a raw categorical outcome and numeric predictors
type MixedRow struct {
	Outcome    string
	Predictors []float64
}

// Outcome extracts a categorical outcome with numeric predictors, listwise
func (f *Frame) Outcome(outcome string, predictors ...string) ([]MixedRow, []string, int, error) {
	names := append([]string{outcome}, predictors...)
	if err := f.Require(names...); err != nil {
		return nil, nil, 0, err
	}
	var rows []MixedRow
	var levels []string
	seen := make(map[string]bool)
	excluded := 0
	for _, r := range f.ds.Rows {
		label, ok := f.coercer.Category(r[outcome])
		if !ok {
			excluded++
			continue
		}
		x := make([]float64, len(predictors))
		complete := true
		for j, p := range predictors {
			v, vok := f.coercer.Numeric(r[p])
			if !vok {
				complete = false
				break
			}
			x[j] = v
		}
		if !complete {
			excluded++
			continue
		}
		if !seen[label] {
			seen[label] = true
			levels = append(levels, label)
		}
		rows = append(rows, MixedRow{Outcome: label, Predictors: x})
	}
	return rows, levels, excluded, nil
}

// RawOutcomeNumeric returns the numeric reading of an outcome label, if any
func (f *Frame) RawOutcomeNumeric(label string) (float64, bool) {
	return f.coercer.tryParseNumeric(label)
}

// EnsureN fails with InsufficientDataError when n is below required
func EnsureN(test string, required, n int) error {
	if n < required {
		return core.NewInsufficientDataError(test, required, n)
	}
	return nil
}

// EnsureGroups fails with InsufficientGroupsError when fewer than required groups remain
func EnsureGroups(test string, required int, g *Groups) error {
	if len(g.Groups) < required {
		return core.NewInsufficientGroupsError(test, required, len(g.Groups))
	}
	return nil
}
