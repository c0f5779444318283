package correlation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/domain/analysis"
	"statlab/domain/core"
)

func TestPerfectCorrelation(t *testing.T) {
	p := Coefficient([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10}, analysis.MethodPearson, 0.95)
	assert.InDelta(t, 1.0, p.R, 1e-12)
	assert.Less(t, p.P, 0.001)
	assert.InDelta(t, 1.0, p.Lower, 1e-12)
	assert.Equal(t, 5, p.N)
}

func TestPearsonAffineInvariance(t *testing.T) {
	x := []float64{1.2, 2.4, 2.9, 4.1, 5.5, 6.0, 7.3}
	y := []float64{2.0, 1.7, 3.5, 3.9, 6.1, 5.2, 8.0}
	base := Coefficient(x, y, analysis.MethodPearson, 0.95)

	tx := make([]float64, len(x))
	for i, v := range x {
		tx[i] = 3*v + 10
	}
	moved := Coefficient(tx, y, analysis.MethodPearson, 0.95)
	assert.InDelta(t, base.R, moved.R, 1e-12)
	assert.InDelta(t, base.P, moved.P, 1e-12)
}

func TestSpearmanMonotoneInvariance(t *testing.T) {
	x := []float64{0.5, 1.1, 1.9, 2.2, 3.7, 4.4, 5.0}
	y := []float64{1, 3, 2, 5, 4, 7, 6}
	base := Coefficient(x, y, analysis.MethodSpearman, 0.95)

	ex := make([]float64, len(x))
	for i, v := range x {
		ex[i] = math.Exp(v)
	}
	moved := Coefficient(ex, y, analysis.MethodSpearman, 0.95)
	assert.Equal(t, base.R, moved.R)
	// rho = 1 - 6*sum(d^2)/(n(n^2-1)) with sum(d^2) = 6
	assert.InDelta(t, 1-36.0/336.0, base.R, 1e-12)
}

func TestMatrixSymmetricWithUnitDiagonal(t *testing.T) {
	nan := math.NaN()
	cols := [][]float64{
		{1, 2, 3, 4, 5, 6},
		{2, 1, 4, 3, 6, nan},
		{6, 5, 4, 3, 2, 1},
	}
	m, err := Matrix([]string{"a", "b", "c"}, cols, analysis.MethodPearson, 0.95)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, m.At(i, i).R)
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.At(i, j).R, m.At(j, i).R)
		}
	}
	assert.Equal(t, 5, m.At(0, 1).N)
	assert.Equal(t, 6, m.At(0, 2).N)
	assert.InDelta(t, -1.0, m.At(0, 2).R, 1e-12)
}

func TestMatrixNeedsThreePairs(t *testing.T) {
	nan := math.NaN()
	_, err := Matrix([]string{"a", "b"}, [][]float64{{1, 2, nan, 4}, {nan, 2, 3, 5}}, analysis.MethodPearson, 0.95)
	assert.True(t, core.IsInsufficientDataError(err))
}

func TestConstantVariableIsUndefined(t *testing.T) {
	p := Coefficient([]float64{1, 1, 1, 1}, []float64{1, 2, 3, 4}, analysis.MethodPearson, 0.95)
	assert.True(t, math.IsNaN(p.R))
}
