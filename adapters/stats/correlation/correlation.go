// Package correlation computes Pearson and Spearman coefficients and matrices.
package correlation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"statlab/adapters/stats/distributions"
	"statlab/adapters/stats/nonparametric"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

// MinPairs is the smallest number of complete pairs a coefficient is computed from
const MinPairs = 3

// Pair is the association between two variables
type Pair struct {
	R     float64
	P     float64
	N     int
	Lower float64
	Upper float64
}

// Coefficient computes r between x and y with the given method ("pearson" or
// "spearman"), its t-transform p-value and Fisher-z interval
func Coefficient(x, y []float64, method string, confidence float64) Pair {
	n := len(x)
	p := Pair{N: n, R: math.NaN(), P: math.NaN(), Lower: math.NaN(), Upper: math.NaN()}
	if n < MinPairs {
		return p
	}
	if method == analysis.MethodSpearman {
		x, _ = nonparametric.Ranks(x)
		y, _ = nonparametric.Ranks(y)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return p
	}
	// rounding can push |r| marginally past 1
	r = math.Max(-1, math.Min(1, r))
	p.R = r
	p.P = distributions.CorrelationPValue(r, n)
	p.Lower, p.Upper = distributions.FisherZInterval(r, n, confidence)
	return p
}

// MatrixResult is a symmetric correlation matrix with pairwise deletion
type MatrixResult struct {
	Names  []string
	Method string
	Pairs  [][]Pair
}

// At returns the pair statistics for variables i and j
func (m *MatrixResult) At(i, j int) Pair {
	return m.Pairs[i][j]
}

// Matrix correlates every pair of columns; NaN marks a missing value and only
// rows complete for the pair are used. Every pair needs at least MinPairs rows.
func Matrix(names []string, columns [][]float64, method string, confidence float64) (*MatrixResult, error) {
	k := len(columns)
	if k < 2 {
		return nil, core.NewInsufficientDataError("correlation (variables)", 2, k)
	}
	m := &MatrixResult{Names: names, Method: method, Pairs: make([][]Pair, k)}
	for i := range m.Pairs {
		m.Pairs[i] = make([]Pair, k)
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			x, y := completePairs(columns[i], columns[j])
			if len(x) < MinPairs {
				return nil, core.NewInsufficientDataError("correlation of "+names[i]+" and "+names[j], MinPairs, len(x))
			}
			var p Pair
			if i == j {
				p = Pair{R: 1, P: math.NaN(), N: len(x), Lower: math.NaN(), Upper: math.NaN()}
			} else {
				p = Coefficient(x, y, method, confidence)
			}
			m.Pairs[i][j] = p
			m.Pairs[j][i] = p
		}
	}
	return m, nil
}

func completePairs(a, b []float64) (x, y []float64) {
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}
