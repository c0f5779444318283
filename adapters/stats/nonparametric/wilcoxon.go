package nonparametric

import (
	"math"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// WilcoxonResult is the signed-rank test of paired differences
type WilcoxonResult struct {
	N           int // pairs
	Zeros       int // pairs with zero difference, excluded from ranking
	Positive    int
	Negative    int
	WPlus       float64
	WMinus      float64
	MeanRankPos float64
	MeanRankNeg float64
	Z           float64
	P           float64
	Exact       bool
	R           float64
}

// Wilcoxon runs the signed-rank test on x - y. Zero differences are dropped.
func Wilcoxon(x, y []float64) (*WilcoxonResult, error) {
	res := &WilcoxonResult{N: len(x)}
	var diffs []float64
	for i := range x {
		d := x[i] - y[i]
		if d == 0 {
			res.Zeros++
			continue
		}
		diffs = append(diffs, d)
	}
	n := len(diffs)
	if n == 0 {
		return nil, core.NewInsufficientDataError("Wilcoxon signed-rank test (non-zero differences)", 1, 0)
	}
	abs := make([]float64, n)
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	ranks, ties := Ranks(abs)
	for i, d := range diffs {
		if d > 0 {
			res.WPlus += ranks[i]
			res.Positive++
		} else {
			res.WMinus += ranks[i]
			res.Negative++
		}
	}
	res.MeanRankPos, res.MeanRankNeg = math.NaN(), math.NaN()
	if res.Positive > 0 {
		res.MeanRankPos = res.WPlus / float64(res.Positive)
	}
	if res.Negative > 0 {
		res.MeanRankNeg = res.WMinus / float64(res.Negative)
	}

	nf := float64(n)
	mu := nf * (nf + 1) / 4
	variance := nf*(nf+1)*(2*nf+1)/24 - ties/48
	if variance > 0 {
		res.Z = -math.Max(math.Abs(res.WPlus-mu)-0.5, 0) / math.Sqrt(variance)
		res.R = math.Abs(res.Z) / math.Sqrt(nf)
	} else {
		res.Z, res.R = math.NaN(), math.NaN()
	}

	if n <= distributions.ExactLimit && ties == 0 {
		res.Exact = true
		res.P = distributions.WilcoxonExactPValue(res.WPlus, n)
	} else if variance > 0 {
		res.P = distributions.TwoTailedZ(res.Z)
	} else {
		res.P = math.NaN()
	}
	return res, nil
}
