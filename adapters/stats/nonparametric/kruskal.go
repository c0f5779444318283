package nonparametric

import (
	"math"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// KruskalWallisResult compares k independent samples by ranks
type KruskalWallisResult struct {
	Groups    []RankGroup
	H         float64
	DF        int
	P         float64
	EpsilonSq float64
	N         int
}

// KruskalWallis computes the tie-corrected H statistic with a chi-square p-value
func KruskalWallis(labels []string, samples [][]float64) (*KruskalWallisResult, error) {
	k := len(samples)
	if k < 2 {
		return nil, core.NewInsufficientGroupsError("Kruskal-Wallis test", 2, k)
	}
	var all []float64
	for _, s := range samples {
		all = append(all, s...)
	}
	n := len(all)
	ranks, ties := Ranks(all)

	res := &KruskalWallisResult{N: n, DF: k - 1}
	nf := float64(n)
	var sum float64
	offset := 0
	for i, s := range samples {
		var r float64
		for j := range s {
			r += ranks[offset+j]
		}
		offset += len(s)
		g := RankGroup{Label: labels[i], N: len(s), SumRanks: r, MeanRank: math.NaN()}
		if len(s) > 0 {
			g.MeanRank = r / float64(len(s))
			sum += r * r / float64(len(s))
		}
		res.Groups = append(res.Groups, g)
	}

	h := 12/(nf*(nf+1))*sum - 3*(nf+1)
	correction := 1 - ties/(nf*nf*nf-nf)
	if correction <= 0 {
		res.H, res.P, res.EpsilonSq = math.NaN(), math.NaN(), math.NaN()
		return res, nil
	}
	res.H = h / correction
	res.P = distributions.ChiSquareUpperTail(res.H, float64(res.DF))
	res.EpsilonSq = res.H / (nf - 1)
	return res, nil
}
