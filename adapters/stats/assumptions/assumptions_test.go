package assumptions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"statlab/adapters/stats/groups"
	"statlab/adapters/stats/regression"
	"statlab/domain/analysis"
)

func TestNormalityPassesForSymmetricSample(t *testing.T) {
	r := Normality("score", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.05)
	assert.Equal(t, analysis.AssumptionNormality, r.Name)
	assert.True(t, r.Passed)
	assert.InDelta(t, 0.8924, r.Value, 1e-3)
	assert.Contains(t, r.Interpretation, "Shapiro-Wilk")
}

func TestNormalityFailsForSkewedSample(t *testing.T) {
	x := []float64{1, 1, 1, 1, 1, 1, 1, 2, 2, 3, 50, 100}
	r := Normality("income", x, 0.05)
	assert.False(t, r.Passed)
	assert.Less(t, r.Value, 0.05)
	assert.Equal(t, "Consider a non-parametric alternative.", r.Recommendation)
}

func TestNormalityUndefinedForConstantData(t *testing.T) {
	r := Normality("flat", []float64{3, 3, 3, 3, 3}, 0.05)
	assert.True(t, r.Passed)
	assert.True(t, math.IsNaN(r.Value))
}

func TestHomogeneity(t *testing.T) {
	ok := Homogeneity(&groups.LeveneResult{F: 0.5, DF1: 1, DF2: 8, P: 0.5}, 0.05)
	assert.True(t, ok.Passed)

	bad := Homogeneity(&groups.LeveneResult{F: 9, DF1: 1, DF2: 8, P: 0.017}, 0.05)
	assert.False(t, bad.Passed)
	assert.Contains(t, bad.Interpretation, "p = .017")
	assert.Contains(t, bad.Recommendation, "Welch")
}

func TestLinearity(t *testing.T) {
	assert.True(t, Linearity(nil, 0.05).Passed)
	bad := Linearity(&regression.ResetResult{F: 12, DF1: 2, DF2: 20, P: 0.0004}, 0.05)
	assert.False(t, bad.Passed)
	assert.Contains(t, bad.Interpretation, "p < .001")
}

func TestMulticollinearityBands(t *testing.T) {
	assert.True(t, Multicollinearity(1.2).Passed)

	moderate := Multicollinearity(6)
	assert.True(t, moderate.Passed)
	assert.Contains(t, moderate.Interpretation, "Moderate")

	severe := Multicollinearity(math.Inf(1))
	assert.False(t, severe.Passed)
	assert.Equal(t, VIFSevere, severe.Threshold)

	boundary := Multicollinearity(10)
	assert.True(t, boundary.Passed)
	assert.Contains(t, boundary.Interpretation, "Moderate")
	assert.False(t, Multicollinearity(10.01).Passed)

	single := Multicollinearity(math.NaN())
	assert.True(t, single.Passed)
	assert.Contains(t, single.Interpretation, "single predictor")
}
