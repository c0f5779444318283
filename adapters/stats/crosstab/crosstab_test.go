package crosstab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/domain/core"
)

// expand turns a count grid into paired label slices
func expand(rows, cols []string, counts [][]int) (a, b []string) {
	for i, r := range rows {
		for j, c := range cols {
			for k := 0; k < counts[i][j]; k++ {
				a = append(a, r)
				b = append(b, c)
			}
		}
	}
	return a, b
}

func TestTwoByTwo(t *testing.T) {
	rows, cols := []string{"treated", "control"}, []string{"improved", "same"}
	a, b := expand(rows, cols, [][]int{{12, 5}, {4, 14}})
	tab := Build(rows, cols, a, b)
	assert.Equal(t, 35.0, tab.N)
	assert.InDelta(t, 17*16/35.0, tab.Expected[0][0], 1e-12)

	res, err := Test(tab)
	require.NoError(t, err)
	assert.True(t, res.Is2x2())
	assert.Equal(t, 1, res.DF)
	assert.InDelta(t, 8.2413, res.ChiSquare, 1e-4)
	assert.InDelta(t, 0.004095, res.P, 1e-5)
	assert.InDelta(t, 8.5963, res.LikelihoodRatio, 1e-4)
	assert.InDelta(t, 6.4076, res.Continuity, 1e-4)
	assert.InDelta(t, 0.01136, res.ContinuityP, 1e-4)
	assert.InDelta(t, 0.006710, res.FisherP, 1e-5)
	assert.InDelta(t, 0.48525, res.Phi, 1e-5)
	assert.InDelta(t, res.Phi, res.CramersV, 1e-12)
	assert.Zero(t, res.SparseCells)
}

func TestTwoByThree(t *testing.T) {
	rows, cols := []string{"a", "b"}, []string{"x", "y", "z"}
	a, b := expand(rows, cols, [][]int{{10, 6, 4}, {3, 9, 8}})
	res, err := Test(Build(rows, cols, a, b))
	require.NoError(t, err)
	assert.False(t, res.Is2x2())
	assert.Equal(t, 2, res.DF)
	assert.InDelta(t, 5.7026, res.ChiSquare, 1e-4)
	assert.InDelta(t, 0.05777, res.P, 1e-4)
	assert.InDelta(t, 5.9398, res.LikelihoodRatio, 1e-4)
	assert.InDelta(t, 0.37758, res.CramersV, 1e-5)
	assert.True(t, res.Phi != res.Phi, "phi is only defined for 2x2")
}

func TestSparseCellsCounted(t *testing.T) {
	rows, cols := []string{"a", "b"}, []string{"x", "y"}
	a, b := expand(rows, cols, [][]int{{3, 1}, {1, 3}})
	res, err := Test(Build(rows, cols, a, b))
	require.NoError(t, err)
	assert.Equal(t, 4, res.SparseCells)
	assert.Equal(t, 1.0, res.SparseShare)
}

func TestSingleLevelRejected(t *testing.T) {
	_, err := Test(Build([]string{"a"}, []string{"x", "y"}, []string{"a", "a"}, []string{"x", "y"}))
	require.Error(t, err)
	assert.True(t, core.IsInsufficientGroupsError(err))
}
