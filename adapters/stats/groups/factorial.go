package groups

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// Cell is one combination of factor levels
type Cell struct {
	A    string
	B    string
	N    int
	Mean float64
	SD   float64
}

// EffectRow is one source of variation in a factorial ANOVA
type EffectRow struct {
	Source       string
	SS           float64
	DF           int
	MS           float64
	F            float64
	P            float64
	PartialEtaSq float64
}

// TwoWayResult is a two-factor ANOVA with Type III sums of squares
type TwoWayResult struct {
	FactorA     string
	FactorB     string
	LevelsA     []string
	LevelsB     []string
	Cells       []Cell
	Model       EffectRow
	Effects     []EffectRow // A, B, A x B
	Error       EffectRow
	Total       EffectRow
	N           int
	RSquared    float64
	Interaction bool
}

// TwoWay fits y ~ A + B + A:B with sum-to-zero coding. Each effect's Type III sum of
// squares is the increase in residual sum of squares when its columns are dropped.
// a and b hold the level of each observation; every cell must be observed.
func TwoWay(factorA, factorB string, y []float64, a, b []string, levelsA, levelsB []string, alpha float64) (*TwoWayResult, error) {
	la, lb := len(levelsA), len(levelsB)
	if la < 2 || lb < 2 {
		return nil, core.NewInsufficientGroupsError("two-way ANOVA", 2, minInt(la, lb))
	}
	n := len(y)
	cells := la * lb
	if n <= cells {
		return nil, core.NewInsufficientDataError("two-way ANOVA", cells+1, n)
	}
	idxA, idxB := levelIndex(levelsA), levelIndex(levelsB)

	r := &TwoWayResult{FactorA: factorA, FactorB: factorB, LevelsA: levelsA, LevelsB: levelsB, N: n}
	cellValues := make([][]float64, cells)
	for i := range y {
		c := idxA[a[i]]*lb + idxB[b[i]]
		cellValues[c] = append(cellValues[c], y[i])
	}
	for i, levelA := range levelsA {
		for j, levelB := range levelsB {
			vals := cellValues[i*lb+j]
			if len(vals) == 0 {
				cell := fmt.Sprintf("two-way ANOVA cell %s = %s, %s = %s", factorA, levelA, factorB, levelB)
				return nil, core.NewInsufficientDataError(cell, 1, 0)
			}
			gs := Describe([]string{""}, [][]float64{vals})[0]
			r.Cells = append(r.Cells, Cell{A: levelA, B: levelB, N: gs.N, Mean: gs.Mean, SD: gs.SD})
		}
	}

	// columns: intercept | A (la-1) | B (lb-1) | AB ((la-1)(lb-1))
	pa, pb := la-1, lb-1
	p := 1 + pa + pb + pa*pb
	x := mat.NewDense(n, p, nil)
	for i := range y {
		ca := effectCode(idxA[a[i]], la)
		cb := effectCode(idxB[b[i]], lb)
		x.Set(i, 0, 1)
		for j, v := range ca {
			x.Set(i, 1+j, v)
		}
		for j, v := range cb {
			x.Set(i, 1+pa+j, v)
		}
		for j, va := range ca {
			for k, vb := range cb {
				x.Set(i, 1+pa+pb+j*pb+k, va*vb)
			}
		}
	}
	all := columnRange(0, p)
	rssFull, err := residualSS(x, y, all)
	if err != nil {
		return nil, err
	}
	dfError := n - p
	msError := rssFull / float64(dfError)

	var mean, sst float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	for _, v := range y {
		sst += (v - mean) * (v - mean)
	}

	sources := []struct {
		name string
		from int
		to   int
	}{
		{factorA, 1, 1 + pa},
		{factorB, 1 + pa, 1 + pa + pb},
		{factorA + " x " + factorB, 1 + pa + pb, p},
	}
	for _, s := range sources {
		keep := without(all, s.from, s.to)
		rss, err := residualSS(x, y, keep)
		if err != nil {
			return nil, err
		}
		r.Effects = append(r.Effects, effectRow(s.name, rss-rssFull, s.to-s.from, rssFull, msError, dfError))
	}
	r.Model = effectRow("Corrected Model", sst-rssFull, p-1, rssFull, msError, dfError)
	r.Error = EffectRow{Source: "Error", SS: rssFull, DF: dfError, MS: msError, F: math.NaN(), P: math.NaN(), PartialEtaSq: math.NaN()}
	r.Total = EffectRow{Source: "Corrected Total", SS: sst, DF: n - 1, MS: math.NaN(), F: math.NaN(), P: math.NaN(), PartialEtaSq: math.NaN()}
	if sst > 0 {
		r.RSquared = 1 - rssFull/sst
	}
	r.Interaction = r.Effects[2].P < alpha
	return r, nil
}

func effectRow(source string, ss float64, df int, sse, mse float64, dfError int) EffectRow {
	if ss < 0 && ss > -1e-9*math.Max(1, sse) {
		ss = 0
	}
	row := EffectRow{Source: source, SS: ss, DF: df, MS: ss / float64(df)}
	if mse > 0 {
		row.F = row.MS / mse
		row.P = distributions.FUpperTail(row.F, float64(df), float64(dfError))
	} else {
		row.F, row.P = math.NaN(), math.NaN()
	}
	if ss+sse > 0 {
		row.PartialEtaSq = ss / (ss + sse)
	} else {
		row.PartialEtaSq = math.NaN()
	}
	return row
}

// effectCode returns the sum-to-zero contrast row of level i among k levels
func effectCode(i, k int) []float64 {
	out := make([]float64, k-1)
	if i == k-1 {
		for j := range out {
			out[j] = -1
		}
		return out
	}
	out[i] = 1
	return out
}

// residualSS fits y on the selected columns of x by QR and returns the residual sum of squares
func residualSS(x *mat.Dense, y []float64, cols []int) (float64, error) {
	n, _ := x.Dims()
	sub := mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		for j, c := range cols {
			sub.Set(i, j, x.At(i, c))
		}
	}
	var qr mat.QR
	qr.Factorize(sub)
	if qr.Cond() > 1e12 {
		return 0, core.NewSingularMatrixError("factorial design matrix is rank deficient")
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yv); err != nil {
		return 0, core.NewSingularMatrixError(err.Error())
	}
	var fitted mat.VecDense
	fitted.MulVec(sub, &beta)
	var rss float64
	for i := 0; i < n; i++ {
		e := y[i] - fitted.AtVec(i)
		rss += e * e
	}
	return rss, nil
}

func levelIndex(levels []string) map[string]int {
	m := make(map[string]int, len(levels))
	for i, l := range levels {
		m[l] = i
	}
	return m
}

func columnRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func without(cols []int, from, to int) []int {
	var out []int
	for _, c := range cols {
		if c < from || c >= to {
			out = append(out, c)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
