package distributions

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	rangePanels      = 24
	rangeNodes       = 16
	rangeBound       = 8.5
	studentPanels    = 24
	studentNodes     = 16
	largeDFThreshold = 25000
)

// normalRangeCDF returns P(R <= w) for the range R of k independent standard normals
func normalRangeCDF(w float64, k int) float64 {
	if w <= 0 {
		return 0
	}
	km1 := float64(k - 1)
	f := func(z float64) float64 {
		d := distuv.UnitNormal.CDF(z) - distuv.UnitNormal.CDF(z-w)
		if d <= 0 {
			return 0
		}
		return distuv.UnitNormal.Prob(z) * math.Pow(d, km1)
	}
	lo, hi := -rangeBound, rangeBound+w
	step := (hi - lo) / rangePanels
	var sum float64
	for i := 0; i < rangePanels; i++ {
		a := lo + float64(i)*step
		sum += quad.Fixed(f, a, a+step, rangeNodes, quad.Legendre{}, 0)
	}
	return clamp01(float64(k) * sum)
}

// StudentizedRangeCDF returns P(Q <= q) for the studentized range of k means with df
// error degrees of freedom. It integrates the normal range distribution over the
// scaled chi distribution of the pooled standard deviation.
func StudentizedRangeCDF(q float64, k int, df float64) float64 {
	switch {
	case math.IsNaN(q) || k < 2 || df <= 0:
		return math.NaN()
	case q <= 0:
		return 0
	case math.IsInf(q, 1):
		return 1
	case math.IsInf(df, 1) || df > largeDFThreshold:
		return normalRangeCDF(q, k)
	}

	// density of S = sqrt(chi2_df / df)
	logNorm := (df/2)*math.Log(df) - lgamma(df/2) - (df/2-1)*math.Ln2
	density := func(s float64) float64 {
		if s <= 0 {
			return 0
		}
		return math.Exp(logNorm + (df-1)*math.Log(s) - df*s*s/2)
	}

	chi := distuv.ChiSquared{K: df}
	lo := math.Sqrt(chi.Quantile(1e-12) / df)
	hi := math.Sqrt(chi.Quantile(1-1e-12) / df)
	if math.IsNaN(lo) || lo < 0 {
		lo = 0
	}
	if math.IsNaN(hi) || math.IsInf(hi, 0) || hi <= lo {
		hi = lo + 10
	}

	f := func(s float64) float64 {
		return density(s) * normalRangeCDF(q*s, k)
	}
	step := (hi - lo) / studentPanels
	var sum float64
	for i := 0; i < studentPanels; i++ {
		a := lo + float64(i)*step
		sum += quad.Fixed(f, a, a+step, studentNodes, quad.Legendre{}, 0)
	}
	return clamp01(sum)
}

// StudentizedRangePValue returns P(Q > q), the Tukey HSD p-value
func StudentizedRangePValue(q float64, k int, df float64) float64 {
	cdf := StudentizedRangeCDF(math.Abs(q), k, df)
	if math.IsNaN(cdf) {
		return cdf
	}
	return clamp01(1 - cdf)
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// StudentizedRangeQuantile returns q such that P(Q <= q) = p, by bisection on the CDF
func StudentizedRangeQuantile(p float64, k int, df float64) float64 {
	if math.IsNaN(p) || p <= 0 || p >= 1 || k < 2 || df <= 0 {
		return math.NaN()
	}
	lo, hi := 0.0, 2.0
	for StudentizedRangeCDF(hi, k, df) < p {
		lo = hi
		hi *= 2
		if hi > 1e4 {
			return math.Inf(1)
		}
	}
	for i := 0; i < 60 && hi-lo > 1e-7; i++ {
		mid := (lo + hi) / 2
		if StudentizedRangeCDF(mid, k, df) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
