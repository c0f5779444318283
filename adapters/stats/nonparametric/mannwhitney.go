package nonparametric

import (
	"math"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// RankGroup is the rank summary of one sample
type RankGroup struct {
	Label    string
	N        int
	MeanRank float64
	SumRanks float64
}

// MannWhitneyResult compares two independent samples by ranks
type MannWhitneyResult struct {
	Groups [2]RankGroup
	U      float64
	W      float64
	Z      float64
	P      float64
	Exact  bool
	R      float64
	N      int
}

// MannWhitney runs the Mann-Whitney U test. The exact null distribution is used when
// N <= 20 and there are no ties, the normal approximation with continuity and tie
// correction otherwise.
func MannWhitney(labels [2]string, a, b []float64) (*MannWhitneyResult, error) {
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		avail := 0
		if n1 > 0 || n2 > 0 {
			avail = 1
		}
		return nil, core.NewInsufficientGroupsError("Mann-Whitney U test", 2, avail)
	}
	all := append(append([]float64(nil), a...), b...)
	ranks, ties := Ranks(all)

	var r1, r2 float64
	for i, rk := range ranks {
		if i < n1 {
			r1 += rk
		} else {
			r2 += rk
		}
	}
	n := n1 + n2
	res := &MannWhitneyResult{N: n}
	res.Groups[0] = RankGroup{Label: labels[0], N: n1, SumRanks: r1, MeanRank: r1 / float64(n1)}
	res.Groups[1] = RankGroup{Label: labels[1], N: n2, SumRanks: r2, MeanRank: r2 / float64(n2)}

	u1 := r1 - float64(n1*(n1+1))/2
	u2 := float64(n1*n2) - u1
	res.U = math.Min(u1, u2)
	if u1 <= u2 {
		res.W = r1
	} else {
		res.W = r2
	}

	nf := float64(n)
	mu := float64(n1*n2) / 2
	variance := float64(n1*n2) / 12 * ((nf + 1) - ties/(nf*(nf-1)))
	if variance > 0 {
		res.Z = -math.Max(math.Abs(u1-mu)-0.5, 0) / math.Sqrt(variance)
		res.R = math.Abs(res.Z) / math.Sqrt(nf)
	} else {
		res.Z, res.R = math.NaN(), math.NaN()
	}

	if n <= distributions.ExactLimit && ties == 0 {
		res.Exact = true
		res.P = distributions.MannWhitneyExactPValue(res.U, n1, n2)
	} else if variance > 0 {
		res.P = distributions.TwoTailedZ(res.Z)
	} else {
		res.P = math.NaN()
	}
	return res, nil
}
