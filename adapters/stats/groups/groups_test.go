package groups

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/domain/core"
)

func TestIndependentTSeparatedGroups(t *testing.T) {
	r, err := IndependentT([2]string{"a", "b"}, []float64{1, 2, 3, 4, 5}, []float64{6, 7, 8, 9, 10}, 0.95, 0.05)
	require.NoError(t, err)

	assert.InDelta(t, -5.0, r.Pooled.T, 1e-12)
	assert.InDelta(t, 8.0, r.Pooled.DF, 1e-12)
	assert.InDelta(t, 0.00105, r.Pooled.P, 1e-5)
	assert.InDelta(t, 3.162, math.Abs(r.CohenD), 1e-3)
	assert.InDelta(t, -5.0, r.Pooled.MeanDiff, 1e-12)
	assert.False(t, r.UseWelch)
	// equal variances and sizes make both rows coincide
	assert.InDelta(t, r.Pooled.T, r.Welch.T, 1e-12)
	assert.InDelta(t, 8.0, r.Welch.DF, 1e-9)
	assert.Less(t, r.Pooled.Upper, 0.0)
}

func TestIndependentTUsesWelchWhenVariancesDiffer(t *testing.T) {
	a := []float64{10, 10.1, 9.9, 10, 10.05, 9.95, 10, 10.02}
	b := []float64{0, 20, 5, 15, 2, 18, 8, 12}
	r, err := IndependentT([2]string{"a", "b"}, a, b, 0.95, 0.05)
	require.NoError(t, err)

	assert.Less(t, r.Levene.P, 0.05)
	assert.True(t, r.UseWelch)
	assert.Equal(t, r.Welch, r.Selected())
	assert.Less(t, r.Welch.DF, r.Pooled.DF)
}

func TestIndependentTNeedsTwoPerGroup(t *testing.T) {
	_, err := IndependentT([2]string{"a", "b"}, []float64{1}, []float64{2, 3}, 0.95, 0.05)
	assert.True(t, core.IsInsufficientGroupsError(err))
}

func TestPairedT(t *testing.T) {
	r, err := PairedT([2]string{"pre", "post"}, []float64{1, 2, 3, 4, 5}, []float64{2, 4, 3, 5, 7}, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, -1.2, r.MeanDiff, 1e-12)
	assert.InDelta(t, math.Sqrt(0.7), r.SDDiff, 1e-12)
	assert.InDelta(t, -3.2071, r.Row.T, 1e-4)
	assert.InDelta(t, 4.0, r.Row.DF, 0)
	assert.InDelta(t, 0.03268, r.Row.P, 1e-4)
	assert.InDelta(t, -1.2/math.Sqrt(0.7), r.CohenDz, 1e-12)
}

func TestOneSampleT(t *testing.T) {
	r, err := OneSampleT("score", []float64{1, 2, 3, 4, 5}, 2, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, r.Row.T, 1e-12)
	assert.InDelta(t, 1.0, r.Row.MeanDiff, 1e-12)
}

func TestOneWayANOVA(t *testing.T) {
	samples := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	r, err := OneWay(samples)
	require.NoError(t, err)
	assert.InDelta(t, 54.0, r.SSBetween, 1e-9)
	assert.InDelta(t, 6.0, r.SSWithin, 1e-9)
	assert.Equal(t, 2, r.DFBetween)
	assert.Equal(t, 6, r.DFWithin)
	assert.InDelta(t, 27.0, r.F, 1e-9)
	assert.InDelta(t, 0.001, r.P, 1e-5)
	assert.InDelta(t, 0.9, r.EtaSquared, 1e-12)
}

func TestLeveneEqualSpread(t *testing.T) {
	r, err := Levene([][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r.F, 1e-12)
	assert.InDelta(t, 1.0, r.P, 1e-12)
}

func TestPostHoc(t *testing.T) {
	samples := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	r, err := OneWay(samples)
	require.NoError(t, err)
	stats := Describe([]string{"a", "b", "c"}, samples)

	tukey := TukeyHSD(stats, r.MSWithin, r.DFWithin, 0.95)
	require.Len(t, tukey, 3)
	assert.Equal(t, "a", tukey[0].GroupI)
	assert.Equal(t, "b", tukey[0].GroupJ)
	assert.InDelta(t, -3.0, tukey[0].MeanDiff, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), tukey[0].SE, 1e-12)
	assert.InDelta(t, 0.0242, tukey[0].P, 1e-3)
	assert.Less(t, tukey[1].P, tukey[0].P)

	bonf := Bonferroni(stats, r.MSWithin, r.DFWithin, 0.95)
	require.Len(t, bonf, 3)
	assert.InDelta(t, 0.0312, bonf[0].P, 1e-3)
}

func TestTwoWayBalanced(t *testing.T) {
	y := []float64{1, 3, 5, 7, 3, 5, 11, 13}
	a := []string{"a1", "a1", "a1", "a1", "a2", "a2", "a2", "a2"}
	b := []string{"b1", "b1", "b2", "b2", "b1", "b1", "b2", "b2"}
	r, err := TwoWay("A", "B", y, a, b, []string{"a1", "a2"}, []string{"b1", "b2"}, 0.05)
	require.NoError(t, err)

	require.Len(t, r.Effects, 3)
	assert.InDelta(t, 32.0, r.Effects[0].SS, 1e-9)
	assert.InDelta(t, 72.0, r.Effects[1].SS, 1e-9)
	assert.InDelta(t, 8.0, r.Effects[2].SS, 1e-9)
	assert.InDelta(t, 8.0, r.Error.SS, 1e-9)
	assert.Equal(t, 4, r.Error.DF)
	assert.InDelta(t, 16.0, r.Effects[0].F, 1e-9)
	assert.InDelta(t, 0.0161, r.Effects[0].P, 1e-3)
	assert.InDelta(t, 0.8, r.Effects[0].PartialEtaSq, 1e-12)
	assert.False(t, r.Interaction)
	assert.Len(t, r.Cells, 4)
}

func TestTwoWayEmptyCell(t *testing.T) {
	y := []float64{1, 2, 3, 4, 5, 6}
	a := []string{"a1", "a1", "a2", "a2", "a2", "a2"}
	b := []string{"b1", "b1", "b1", "b1", "b2", "b2"}
	_, err := TwoWay("A", "B", y, a, b, []string{"a1", "a2"}, []string{"b1", "b2"}, 0.05)
	assert.True(t, core.IsInsufficientDataError(err))
}
