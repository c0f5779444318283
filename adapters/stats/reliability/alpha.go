// Package reliability computes internal consistency and exploratory factor structure
// of multi-item scales.
package reliability

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"statlab/adapters/stats/descriptives"
	"statlab/domain/core"
)

// ItemStats describes one scale item
type ItemStats struct {
	Name               string
	Mean               float64
	SD                 float64
	N                  int
	CorrectedItemTotal float64
	AlphaIfDeleted     float64
	ScaleMeanIfDeleted float64
	ScaleVarIfDeleted  float64
}

// AlphaResult is Cronbach's alpha for a set of items
type AlphaResult struct {
	Items             []ItemStats
	K                 int
	N                 int
	Alpha             float64
	StandardizedAlpha float64
	MeanInterItemCorr float64
	ScaleMean         float64
	ScaleVariance     float64
	ScaleSD           float64
	ZeroVariance      bool
}

// Alpha computes Cronbach's alpha from the inter-item covariance matrix:
// alpha = k*c / (v + (k-1)*c) with v the mean item variance and c the mean
// inter-item covariance. columns hold complete cases only.
func Alpha(names []string, columns [][]float64) (*AlphaResult, error) {
	k := len(columns)
	if k < 2 {
		return nil, core.NewInsufficientItemsError("reliability analysis", k)
	}
	n := len(columns[0])
	if n < 2 {
		return nil, core.NewInsufficientDataError("reliability analysis", 2, n)
	}
	x := dataMatrix(columns)
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	r := &AlphaResult{K: k, N: n}
	r.Alpha = alphaFromCovariance(&cov, nil)
	r.ZeroVariance = math.IsNaN(r.Alpha)

	var corrSum float64
	var corrPairs int
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			vi, vj := cov.At(i, i), cov.At(j, j)
			if vi > 0 && vj > 0 {
				corrSum += cov.At(i, j) / math.Sqrt(vi*vj)
				corrPairs++
			}
		}
	}
	r.MeanInterItemCorr, r.StandardizedAlpha = math.NaN(), math.NaN()
	if corrPairs > 0 {
		rbar := corrSum / float64(corrPairs)
		r.MeanInterItemCorr = rbar
		r.StandardizedAlpha = float64(k) * rbar / (1 + float64(k-1)*rbar)
	}

	total := make([]float64, n)
	for _, col := range columns {
		for i, v := range col {
			total[i] += v
		}
	}
	ts := descriptives.Describe(total)
	r.ScaleMean, r.ScaleVariance, r.ScaleSD = ts.Mean, ts.Variance, ts.SD

	for j, col := range columns {
		mean, sd := descriptives.MeanSD(col)
		item := ItemStats{Name: names[j], Mean: mean, SD: sd, N: n}
		rest := make([]float64, n)
		for i := range rest {
			rest[i] = total[i] - col[i]
		}
		restStats := descriptives.Describe(rest)
		item.ScaleMeanIfDeleted, item.ScaleVarIfDeleted = restStats.Mean, restStats.Variance
		item.CorrectedItemTotal = math.NaN()
		if sd > 0 && restStats.SD > 0 {
			item.CorrectedItemTotal = stat.Correlation(col, rest, nil)
		}
		item.AlphaIfDeleted = math.NaN()
		if k > 2 {
			item.AlphaIfDeleted = alphaFromCovariance(&cov, map[int]bool{j: true})
		}
		r.Items = append(r.Items, item)
	}
	return r, nil
}

// alphaFromCovariance computes alpha over the items not in skip
func alphaFromCovariance(cov *mat.SymDense, skip map[int]bool) float64 {
	p := cov.SymmetricDim()
	var varSum, covSum float64
	k := 0
	for i := 0; i < p; i++ {
		if skip[i] {
			continue
		}
		k++
		for j := 0; j < p; j++ {
			if skip[j] {
				continue
			}
			if i == j {
				varSum += cov.At(i, i)
			} else {
				covSum += cov.At(i, j)
			}
		}
	}
	if k < 2 {
		return math.NaN()
	}
	kf := float64(k)
	vbar := varSum / kf
	cbar := covSum / (kf * (kf - 1))
	den := vbar + (kf-1)*cbar
	if den <= 0 || varSum == 0 {
		return math.NaN()
	}
	return kf * cbar / den
}

func dataMatrix(columns [][]float64) *mat.Dense {
	n, k := len(columns[0]), len(columns)
	x := mat.NewDense(n, k, nil)
	for j, col := range columns {
		for i, v := range col {
			x.Set(i, j, v)
		}
	}
	return x
}
