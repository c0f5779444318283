package nonparametric

import (
	"math"

	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// FriedmanResult compares k related measures ranked within each row
type FriedmanResult struct {
	Measures  []RankGroup
	N         int
	ChiSquare float64
	DF        int
	P         float64
	KendallW  float64
}

// Friedman computes the tie-corrected Friedman statistic over complete rows.
// columns[j][i] is measure j of subject i.
func Friedman(labels []string, columns [][]float64) (*FriedmanResult, error) {
	k := len(columns)
	if k < 3 {
		return nil, core.NewInsufficientGroupsError("Friedman test (related measures)", 3, k)
	}
	n := len(columns[0])
	if n < 2 {
		return nil, core.NewInsufficientDataError("Friedman test", 2, n)
	}
	sums := make([]float64, k)
	var ties float64
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		for j := range columns {
			row[j] = columns[j][i]
		}
		ranks, t := Ranks(row)
		ties += t
		for j, r := range ranks {
			sums[j] += r
		}
	}

	res := &FriedmanResult{N: n, DF: k - 1}
	nf, kf := float64(n), float64(k)
	var ss float64
	for j, r := range sums {
		ss += r * r
		res.Measures = append(res.Measures, RankGroup{Label: labels[j], N: n, SumRanks: r, MeanRank: r / nf})
	}
	chi := 12/(nf*kf*(kf+1))*ss - 3*nf*(kf+1)
	correction := 1 - ties/(nf*(kf*kf*kf-kf))
	if correction <= 0 {
		res.ChiSquare, res.P, res.KendallW = math.NaN(), math.NaN(), math.NaN()
		return res, nil
	}
	res.ChiSquare = chi / correction
	res.P = distributions.ChiSquareUpperTail(res.ChiSquare, float64(res.DF))
	res.KendallW = res.ChiSquare / (nf * (kf - 1))
	return res, nil
}
