package groups

import (
	"math"

	"statlab/adapters/stats/distributions"
)

// Comparison is one pairwise post-hoc contrast
type Comparison struct {
	GroupI   string
	GroupJ   string
	MeanDiff float64
	SE       float64
	P        float64
	Lower    float64
	Upper    float64
}

// TukeyHSD runs Tukey-Kramer pairwise comparisons using the within-group mean square
func TukeyHSD(stats []GroupStats, msWithin float64, dfWithin int, confidence float64) []Comparison {
	k := len(stats)
	df := float64(dfWithin)
	qCrit := distributions.StudentizedRangeQuantile(confidence, k, df)
	var out []Comparison
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			c := pairwise(stats[i], stats[j], msWithin)
			if c.SE > 0 {
				q := math.Abs(c.MeanDiff) / (c.SE / math.Sqrt2)
				c.P = distributions.StudentizedRangePValue(q, k, df)
			} else {
				c.P = math.NaN()
			}
			margin := qCrit / math.Sqrt2 * c.SE
			c.Lower, c.Upper = c.MeanDiff-margin, c.MeanDiff+margin
			out = append(out, c)
		}
	}
	return out
}

// Bonferroni runs pairwise t contrasts on the pooled error, adjusting p-values and
// intervals for the number of comparisons
func Bonferroni(stats []GroupStats, msWithin float64, dfWithin int, confidence float64) []Comparison {
	k := len(stats)
	m := float64(k * (k - 1) / 2)
	df := float64(dfWithin)
	crit := distributions.TCritical(1-(1-confidence)/m, df)
	var out []Comparison
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			c := pairwise(stats[i], stats[j], msWithin)
			if c.SE > 0 {
				c.P = math.Min(1, m*distributions.TwoTailedT(c.MeanDiff/c.SE, df))
			} else {
				c.P = math.NaN()
			}
			c.Lower, c.Upper = c.MeanDiff-crit*c.SE, c.MeanDiff+crit*c.SE
			out = append(out, c)
		}
	}
	return out
}

func pairwise(a, b GroupStats, msWithin float64) Comparison {
	return Comparison{
		GroupI:   a.Label,
		GroupJ:   b.Label,
		MeanDiff: a.Mean - b.Mean,
		SE:       math.Sqrt(msWithin * (1/float64(a.N) + 1/float64(b.N))),
	}
}
