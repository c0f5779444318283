// Package crosstab tests association between two categorical variables.
package crosstab

import (
	"math"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// SparseExpected is the expected count below which a cell is considered sparse
const SparseExpected = 5.0

// Table is a contingency table in first-appearance level order
type Table struct {
	RowLevels []string
	ColLevels []string
	Observed  [][]float64
	Expected  [][]float64
	RowTotals []float64
	ColTotals []float64
	N         float64
}

// Build counts paired labels into a contingency table
func Build(rowLevels, colLevels, rowValues, colValues []string) *Table {
	ri, ci := index(rowLevels), index(colLevels)
	t := &Table{
		RowLevels: rowLevels,
		ColLevels: colLevels,
		Observed:  grid(len(rowLevels), len(colLevels)),
		Expected:  grid(len(rowLevels), len(colLevels)),
		RowTotals: make([]float64, len(rowLevels)),
		ColTotals: make([]float64, len(colLevels)),
	}
	for k := range rowValues {
		i, j := ri[rowValues[k]], ci[colValues[k]]
		t.Observed[i][j]++
		t.RowTotals[i]++
		t.ColTotals[j]++
		t.N++
	}
	for i := range t.Observed {
		for j := range t.Observed[i] {
			t.Expected[i][j] = t.RowTotals[i] * t.ColTotals[j] / t.N
		}
	}
	return t
}

// Result holds the association tests of a contingency table
type Result struct {
	Table           *Table
	ChiSquare       float64
	DF              int
	P               float64
	LikelihoodRatio float64
	LRP             float64
	// Yates corrected statistic, 2x2 tables only
	Continuity  float64
	ContinuityP float64
	FisherP     float64
	Phi         float64
	CramersV    float64
	SparseCells int
	SparseShare float64
}

// Is2x2 reports whether phi and the 2x2 corrections apply
func (r *Result) Is2x2() bool {
	return len(r.Table.RowLevels) == 2 && len(r.Table.ColLevels) == 2
}

// Test computes Pearson and likelihood-ratio chi-square with effect sizes
func Test(t *Table) (*Result, error) {
	rows, cols := len(t.RowLevels), len(t.ColLevels)
	if rows < 2 || cols < 2 {
		return nil, core.NewInsufficientGroupsError("chi-square test", 2, minInt(rows, cols))
	}
	res := &Result{
		Table:       t,
		DF:          (rows - 1) * (cols - 1),
		Continuity:  math.NaN(),
		ContinuityP: math.NaN(),
		FisherP:     math.NaN(),
		Phi:         math.NaN(),
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			o, e := t.Observed[i][j], t.Expected[i][j]
			res.ChiSquare += (o - e) * (o - e) / e
			if o > 0 {
				res.LikelihoodRatio += 2 * o * math.Log(o/e)
			}
			if e < SparseExpected {
				res.SparseCells++
			}
		}
	}
	df := float64(res.DF)
	res.P = distributions.ChiSquareUpperTail(res.ChiSquare, df)
	res.LRP = distributions.ChiSquareUpperTail(res.LikelihoodRatio, df)
	res.SparseShare = float64(res.SparseCells) / float64(rows*cols)

	m := float64(minInt(rows, cols) - 1)
	res.CramersV = math.Sqrt(res.ChiSquare / (t.N * m))

	if res.Is2x2() {
		a, b := t.Observed[0][0], t.Observed[0][1]
		c, d := t.Observed[1][0], t.Observed[1][1]
		res.Phi = (a*d - b*c) / math.Sqrt(t.RowTotals[0]*t.RowTotals[1]*t.ColTotals[0]*t.ColTotals[1])
		diff := math.Max(0, math.Abs(a*d-b*c)-t.N/2)
		res.Continuity = t.N * diff * diff / (t.RowTotals[0] * t.RowTotals[1] * t.ColTotals[0] * t.ColTotals[1])
		res.ContinuityP = distributions.ChiSquareUpperTail(res.Continuity, 1)
		res.FisherP = fisherExact(int(a), int(b), int(c), int(d))
	}
	return res, nil
}

// fisherExact sums the hypergeometric probabilities no larger than the observed one
func fisherExact(a, b, c, d int) float64 {
	r1, c1, n := a+b, a+c, a+b+c+d
	lo := maxInt(0, c1-(n-r1))
	hi := minInt(r1, c1)
	observed := hypergeometric(a, r1, c1, n)
	var p float64
	for x := lo; x <= hi; x++ {
		px := hypergeometric(x, r1, c1, n)
		if px <= observed*(1+1e-7) {
			p += px
		}
	}
	return math.Min(1, p)
}

func hypergeometric(x, r1, c1, n int) float64 {
	return math.Exp(lchoose(r1, x) + lchoose(n-r1, c1-x) - lchoose(n, c1))
}

func lchoose(n, k int) float64 {
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}

func index(levels []string) map[string]int {
	m := make(map[string]int, len(levels))
	for i, l := range levels {
		m[l] = i
	}
	return m
}

func grid(r, c int) [][]float64 {
	g := make([][]float64, r)
	for i := range g {
		g[i] = make([]float64, c)
	}
	return g
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
