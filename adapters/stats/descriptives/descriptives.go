// Package descriptives computes summary statistics, normality tests and frequency tables.
package descriptives

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the descriptive statistics of one scale variable
type Summary struct {
	N          int
	Mean       float64
	SD         float64
	Variance   float64
	SE         float64
	Min        float64
	Max        float64
	Range      float64
	Median     float64
	IQR        float64
	Skewness   float64
	SESkewness float64
	Kurtosis   float64
	SEKurtosis float64
}

// Describe computes the summary of x. Statistics that need more observations
// than available are NaN.
func Describe(x []float64) Summary {
	s := Summary{
		N:          len(x),
		Mean:       math.NaN(),
		SD:         math.NaN(),
		Variance:   math.NaN(),
		SE:         math.NaN(),
		Min:        math.NaN(),
		Max:        math.NaN(),
		Range:      math.NaN(),
		Median:     math.NaN(),
		IQR:        math.NaN(),
		Skewness:   math.NaN(),
		SESkewness: math.NaN(),
		Kurtosis:   math.NaN(),
		SEKurtosis: math.NaN(),
	}
	if s.N == 0 {
		return s
	}
	data := stats.Float64Data(x)
	s.Mean, _ = stats.Mean(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Median, _ = stats.Median(data)
	s.Range = s.Max - s.Min
	if s.N >= 4 {
		if iqr, err := stats.InterQuartileRange(data); err == nil {
			s.IQR = iqr
		}
	}
	if s.N < 2 {
		return s
	}
	s.Variance, _ = stats.SampleVariance(data)
	s.SD = math.Sqrt(s.Variance)
	s.SE = s.SD / math.Sqrt(float64(s.N))

	n := float64(s.N)
	if s.N >= 3 {
		s.SESkewness = math.Sqrt(6 * n * (n - 1) / ((n - 2) * (n + 1) * (n + 3)))
		if s.SD > 0 {
			s.Skewness = stat.Skew(x, nil)
		}
	}
	if s.N >= 4 {
		s.SEKurtosis = 2 * s.SESkewness * math.Sqrt((n*n-1)/((n-3)*(n+5)))
		if s.SD > 0 {
			s.Kurtosis = stat.ExKurtosis(x, nil)
		}
	}
	return s
}

// MeanSD returns the mean and sample standard deviation of x
func MeanSD(x []float64) (mean, sd float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	mean, _ = stats.Mean(x)
	if len(x) < 2 {
		return mean, math.NaN()
	}
	sd, _ = stats.StandardDeviationSample(x)
	return mean, sd
}
