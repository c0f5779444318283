package coercer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/domain/core"
	"statlab/domain/dataset"
)

func TestNumericParsing(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	tests := []struct {
		name string
		raw  interface{}
		want float64
		ok   bool
	}{
		{"float", 3.5, 3.5, true},
		{"int", 7, 7, true},
		{"bool", true, 1, true},
		{"plain string", " 42 ", 42, true},
		{"thousands", "1,234", 1234, true},
		{"thousands with decimals", "1,234.56", 1234.56, true},
		{"european", "1.234,56", 1234.56, true},
		{"comma decimal", "3,5", 3.5, true},
		{"currency", "$12.50", 12.5, true},
		{"parentheses", "(100)", -100, true},
		{"percent", "45%", 45, true},
		{"scientific", "1e3", 1000, true},
		{"empty", "", 0, false},
		{"nil", nil, 0, false},
		{"text", "n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Numeric(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestCategoryNormalization(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	v, ok := c.Category("  Control   group ")
	require.True(t, ok)
	assert.Equal(t, "Control group", v)

	v, ok = c.Category(2.0)
	require.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok = c.Category("   ")
	assert.False(t, ok)
}

func TestAnalyzeTypeDistribution(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	a := c.AnalyzeTypeDistribution([]interface{}{1.0, "2", "3.5", nil, "4"})
	assert.Equal(t, 4, a.ValidCount)
	assert.Equal(t, dataset.MeasureScale, a.RecommendedMeasure)

	a = c.AnalyzeTypeDistribution([]interface{}{"a", "b", "1"})
	assert.Equal(t, dataset.MeasureNominal, a.RecommendedMeasure)
}

func testFrame() *Frame {
	return NewFrame(dataset.NewWithColumns([]string{"group", "score", "age"}, []dataset.Row{
		{"group": "a", "score": 1.0, "age": 30.0},
		{"group": "b", "score": "2", "age": nil},
		{"group": "a", "score": "", "age": 31.0},
		{"group": nil, "score": 4.0, "age": 33.0},
		{"group": "c", "score": 5.0, "age": 34.0},
		{"group": "b", "score": 6.0, "age": 35.0},
	}))
}

func TestNumericListwiseDeletion(t *testing.T) {
	f := testFrame()

	score, err := f.NumericColumn("score")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 4, 5, 6}, score)

	block, err := f.Numeric("score", "age")
	require.NoError(t, err)
	assert.Equal(t, 4, block.N())
	assert.Equal(t, 2, block.Excluded)
	assert.Equal(t, []int{0, 3, 4, 5}, block.RowIndex)
	assert.Equal(t, []float64{30, 33, 34, 35}, block.Column("age"))
}

func TestGroupedFirstAppearanceOrder(t *testing.T) {
	g, err := testFrame().Grouped("score", "group")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, g.Labels())
	assert.Equal(t, 2, g.Excluded)
	assert.Equal(t, 4, g.N())

	dropped := g.Prune(2)
	assert.Equal(t, []string{"a", "c"}, dropped)
	assert.Equal(t, []string{"b"}, g.Labels())
	assert.Equal(t, 4-g.N(), g.Pruned)
	assert.Equal(t, 2, g.Excluded, "pruned groups are not missing values")
	assert.True(t, core.IsInsufficientGroupsError(EnsureGroups("one-way-anova", 2, g)))
}

func TestMissingVariable(t *testing.T) {
	_, err := testFrame().Numeric("score", "height")
	require.Error(t, err)
	assert.True(t, core.IsInvalidVariableError(err))
	assert.Contains(t, err.Error(), "height")
}

func TestCategoricalCounts(t *testing.T) {
	col, err := testFrame().Categorical("group")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, col.Levels)
	assert.Equal(t, []int{2, 2, 1}, col.Counts())
	assert.Equal(t, 1, col.Excluded)
}

func TestNumericWithMissingKeepsRows(t *testing.T) {
	cols, err := testFrame().NumericWithMissing("score", "age")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Len(t, cols[0], 6)
	assert.True(t, math.IsNaN(cols[0][2]))
	assert.True(t, math.IsNaN(cols[1][1]))
	assert.Equal(t, 35.0, cols[1][5])
}
