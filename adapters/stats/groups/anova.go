// Package groups implements parametric comparisons of group means: t-tests,
// Levene's test, one-way and two-way analysis of variance and post-hoc contrasts.
package groups

import (
	"math"

	"statlab/adapters/stats/descriptives"
	"statlab/adapters/stats/distributions"
	"statlab/domain/core"
)

// GroupStats summarises one group
type GroupStats struct {
	Label string
	N     int
	Mean  float64
	SD    float64
	SE    float64
}

// Describe computes group statistics for labelled samples
func Describe(labels []string, samples [][]float64) []GroupStats {
	out := make([]GroupStats, len(samples))
	for i, s := range samples {
		mean, sd := descriptives.MeanSD(s)
		out[i] = GroupStats{Label: labels[i], N: len(s), Mean: mean, SD: sd, SE: sd / math.Sqrt(float64(len(s)))}
	}
	return out
}

// ANOVAResult is a one-way analysis of variance table
type ANOVAResult struct {
	SSBetween  float64
	SSWithin   float64
	SSTotal    float64
	DFBetween  int
	DFWithin   int
	MSBetween  float64
	MSWithin   float64
	F          float64
	P          float64
	EtaSquared float64
	OmegaSq    float64
	GrandMean  float64
	N          int
}

// OneWay computes the one-way ANOVA of k >= 2 groups
func OneWay(samples [][]float64) (*ANOVAResult, error) {
	k := len(samples)
	if k < 2 {
		return nil, core.NewInsufficientGroupsError("one-way ANOVA", 2, k)
	}
	r := &ANOVAResult{}
	var total float64
	for _, s := range samples {
		for _, v := range s {
			total += v
		}
		r.N += len(s)
	}
	if r.N <= k {
		return nil, core.NewInsufficientDataError("one-way ANOVA", k+1, r.N)
	}
	r.GrandMean = total / float64(r.N)

	for _, s := range samples {
		if len(s) == 0 {
			continue
		}
		var sum float64
		for _, v := range s {
			sum += v
		}
		mean := sum / float64(len(s))
		d := mean - r.GrandMean
		r.SSBetween += float64(len(s)) * d * d
		for _, v := range s {
			e := v - mean
			r.SSWithin += e * e
		}
	}
	r.SSTotal = r.SSBetween + r.SSWithin
	r.DFBetween = k - 1
	r.DFWithin = r.N - k
	r.MSBetween = r.SSBetween / float64(r.DFBetween)
	r.MSWithin = r.SSWithin / float64(r.DFWithin)
	r.F = r.MSBetween / r.MSWithin
	switch {
	case r.MSWithin == 0 && r.MSBetween == 0:
		r.F, r.P = math.NaN(), math.NaN()
	case r.MSWithin == 0:
		r.F, r.P = math.Inf(1), 0
	default:
		r.P = distributions.FUpperTail(r.F, float64(r.DFBetween), float64(r.DFWithin))
	}
	if r.SSTotal > 0 {
		r.EtaSquared = r.SSBetween / r.SSTotal
		r.OmegaSq = (r.SSBetween - float64(r.DFBetween)*r.MSWithin) / (r.SSTotal + r.MSWithin)
	} else {
		r.EtaSquared, r.OmegaSq = math.NaN(), math.NaN()
	}
	return r, nil
}

// LeveneResult is Levene's test for equality of variances
type LeveneResult struct {
	F   float64
	DF1 int
	DF2 int
	P   float64
}

// Levene computes the mean-centred Levene statistic: a one-way ANOVA on absolute
// deviations from each group mean
func Levene(samples [][]float64) (*LeveneResult, error) {
	dev := make([][]float64, len(samples))
	for i, s := range samples {
		mean, _ := descriptives.MeanSD(s)
		dev[i] = make([]float64, len(s))
		for j, v := range s {
			dev[i][j] = math.Abs(v - mean)
		}
	}
	a, err := OneWay(dev)
	if err != nil {
		return nil, err
	}
	return &LeveneResult{F: a.F, DF1: a.DFBetween, DF2: a.DFWithin, P: a.P}, nil
}
