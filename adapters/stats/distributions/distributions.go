// Package distributions provides the reference distributions behind every p-value
// and critical value the statistics modules report.
package distributions

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TwoTailedT computes the two-tailed p-value of a t statistic with df degrees of freedom.
// df may be fractional (Welch).
func TwoTailedT(t, df float64) float64 {
	if math.IsNaN(t) || df <= 0 || math.IsNaN(df) {
		return math.NaN()
	}
	if math.IsInf(t, 0) {
		return 0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clamp01(2 * tDist.Survival(math.Abs(t)))
}

// TCritical returns the two-sided critical value for the given confidence level
func TCritical(confidence, df float64) float64 {
	if df <= 0 {
		return math.NaN()
	}
	alpha := 1 - confidence
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1 - alpha/2)
}

// CorrelationPValue computes the two-tailed p-value of r from n pairs via the t transform
func CorrelationPValue(r float64, n int) float64 {
	if n < 3 || math.IsNaN(r) {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	return TwoTailedT(t, df)
}

// FUpperTail computes P(F > f) for the F distribution (ANOVA, regression)
func FUpperTail(f, df1, df2 float64) float64 {
	if math.IsNaN(f) || df1 <= 0 || df2 <= 0 {
		return math.NaN()
	}
	if math.IsInf(f, 1) {
		return 0
	}
	if f <= 0 {
		return 1
	}
	return clamp01(distuv.F{D1: df1, D2: df2}.Survival(f))
}

// ChiSquareUpperTail computes P(X > x) for the chi-square distribution
func ChiSquareUpperTail(x, df float64) float64 {
	if math.IsNaN(x) || df <= 0 {
		return math.NaN()
	}
	if math.IsInf(x, 1) {
		return 0
	}
	if x <= 0 {
		return 1
	}
	return clamp01(distuv.ChiSquared{K: df}.Survival(x))
}

// ChiSquareQuantile returns the p quantile of the chi-square distribution
func ChiSquareQuantile(p, df float64) float64 {
	return distuv.ChiSquared{K: df}.Quantile(p)
}

// NormalCDF computes cumulative distribution function for standard normal
func NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// TwoTailedZ computes the two-tailed p-value of a standard normal deviate
func TwoTailedZ(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}
	return clamp01(2 * distuv.UnitNormal.Survival(math.Abs(z)))
}

// ConfidenceIntervalMean computes confidence interval for population mean
func ConfidenceIntervalMean(mean, sd float64, n int, confidence float64) (lower, upper float64) {
	if n < 2 {
		return math.NaN(), math.NaN()
	}
	margin := TCritical(confidence, float64(n-1)) * sd / math.Sqrt(float64(n))
	return mean - margin, mean + margin
}

// FisherZInterval returns the confidence interval of a correlation via Fisher's z.
// It needs at least 4 pairs; |r| = 1 yields the degenerate interval [r, r].
func FisherZInterval(r float64, n int, confidence float64) (lower, upper float64) {
	if n < 4 || math.IsNaN(r) {
		return math.NaN(), math.NaN()
	}
	if math.Abs(r) >= 1 {
		return r, r
	}
	z := math.Atanh(r)
	se := 1 / math.Sqrt(float64(n-3))
	crit := NormalQuantile(1 - (1-confidence)/2)
	return math.Tanh(z - crit*se), math.Tanh(z + crit*se)
}

// EffectSizeCohenD computes Cohen's d effect size for two groups
func EffectSizeCohenD(mean1, mean2, sd1, sd2 float64, n1, n2 int) float64 {
	if n1+n2 <= 2 {
		return math.NaN()
	}
	pooled := math.Sqrt((float64(n1-1)*sd1*sd1 + float64(n2-1)*sd2*sd2) / float64(n1+n2-2))
	if pooled == 0 {
		return math.NaN()
	}
	return (mean1 - mean2) / pooled
}

// EffectSizeHedgesG computes Hedges' g (bias-corrected Cohen's d)
func EffectSizeHedgesG(cohenD float64, totalN int) float64 {
	if totalN < 3 {
		return cohenD
	}
	return cohenD * (1.0 - 3.0/(4.0*float64(totalN)-9.0))
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
