package groups

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"statlab/adapters/stats/descriptives"
	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// TRow is one line of a t-test table
type TRow struct {
	T        float64
	DF       float64
	P        float64
	MeanDiff float64
	SEDiff   float64
	Lower    float64
	Upper    float64
}

func newTRow(diff, se, df, confidence float64) TRow {
	r := TRow{MeanDiff: diff, SEDiff: se, DF: df}
	switch {
	case se > 0:
		r.T = diff / se
		r.P = distributions.TwoTailedT(r.T, df)
	case diff == 0:
		r.T, r.P = math.NaN(), math.NaN()
	default:
		r.T, r.P = math.Copysign(math.Inf(1), diff), 0
	}
	crit := distributions.TCritical(confidence, df)
	r.Lower, r.Upper = diff-crit*se, diff+crit*se
	return r
}

// IndependentTResult compares the means of two independent groups
type IndependentTResult struct {
	Groups   [2]GroupStats
	Levene   *LeveneResult
	Pooled   TRow
	Welch    TRow
	UseWelch bool
	CohenD   float64
	HedgesG  float64
}

// Selected returns the row the decision is based on
func (r *IndependentTResult) Selected() TRow {
	if r.UseWelch {
		return r.Welch
	}
	return r.Pooled
}

// IndependentT runs Student's and Welch's t-test; Welch is selected when Levene's
// test rejects equal variances at alpha
func IndependentT(labels [2]string, a, b []float64, confidence, alpha float64) (*IndependentTResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return nil, core.NewInsufficientGroupsError("independent-samples t-test", 2, countAtLeast(2, a, b))
	}
	gs := Describe(labels[:], [][]float64{a, b})
	r := &IndependentTResult{Groups: [2]GroupStats{gs[0], gs[1]}}
	lev, err := Levene([][]float64{a, b})
	if err != nil {
		return nil, err
	}
	r.Levene = lev

	n1, n2 := float64(len(a)), float64(len(b))
	v1, v2 := gs[0].SD*gs[0].SD, gs[1].SD*gs[1].SD
	diff := gs[0].Mean - gs[1].Mean

	dfPooled := n1 + n2 - 2
	sp := math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / dfPooled)
	r.Pooled = newTRow(diff, sp*math.Sqrt(1/n1+1/n2), dfPooled, confidence)

	q1, q2 := v1/n1, v2/n2
	seWelch := math.Sqrt(q1 + q2)
	dfWelch := (q1 + q2) * (q1 + q2) / (q1*q1/(n1-1) + q2*q2/(n2-1))
	if math.IsNaN(dfWelch) {
		dfWelch = dfPooled
	}
	r.Welch = newTRow(diff, seWelch, dfWelch, confidence)

	r.UseWelch = !math.IsNaN(lev.P) && lev.P < alpha
	r.CohenD = distributions.EffectSizeCohenD(gs[0].Mean, gs[1].Mean, gs[0].SD, gs[1].SD, len(a), len(b))
	r.HedgesG = distributions.EffectSizeHedgesG(r.CohenD, len(a)+len(b))
	return r, nil
}

// PairedTResult compares two related measurements row by row
type PairedTResult struct {
	First       GroupStats
	Second      GroupStats
	N           int
	MeanDiff    float64
	SDDiff      float64
	Row         TRow
	CohenDz     float64
	Correlation float64
	CorrP       float64
}

// PairedT runs the paired-samples t-test on complete pairs
func PairedT(labels [2]string, x, y []float64, confidence float64) (*PairedTResult, error) {
	n := len(x)
	if n < 2 {
		return nil, core.NewInsufficientDataError("paired-samples t-test", 2, n)
	}
	d := make([]float64, n)
	for i := range x {
		d[i] = x[i] - y[i]
	}
	gs := Describe(labels[:], [][]float64{x, y})
	mean, sd := descriptives.MeanSD(d)
	r := &PairedTResult{First: gs[0], Second: gs[1], N: n, MeanDiff: mean, SDDiff: sd}
	r.Row = newTRow(mean, sd/math.Sqrt(float64(n)), float64(n-1), confidence)
	if sd > 0 {
		r.CohenDz = mean / sd
	} else {
		r.CohenDz = math.NaN()
	}
	r.Correlation, r.CorrP = math.NaN(), math.NaN()
	if n >= 3 && gs[0].SD > 0 && gs[1].SD > 0 {
		r.Correlation = stat.Correlation(x, y, nil)
		r.CorrP = distributions.CorrelationPValue(r.Correlation, n)
	}
	return r, nil
}

// OneSampleTResult compares a mean with a fixed test value
type OneSampleTResult struct {
	Stats     GroupStats
	TestValue float64
	Row       TRow
	CohenD    float64
}

// OneSampleT tests whether the mean of x differs from testValue
func OneSampleT(label string, x []float64, testValue, confidence float64) (*OneSampleTResult, error) {
	if len(x) < 2 {
		return nil, core.NewInsufficientDataError("one-sample t-test", 2, len(x))
	}
	gs := Describe([]string{label}, [][]float64{x})[0]
	r := &OneSampleTResult{Stats: gs, TestValue: testValue}
	diff := gs.Mean - testValue
	r.Row = newTRow(diff, gs.SE, float64(gs.N-1), confidence)
	if gs.SD > 0 {
		r.CohenD = diff / gs.SD
	} else {
		r.CohenD = math.NaN()
	}
	return r, nil
}

func countAtLeast(min int, samples ...[]float64) int {
	c := 0
	for _, s := range samples {
		if len(s) >= min {
			c++
		}
	}
	return c
}
