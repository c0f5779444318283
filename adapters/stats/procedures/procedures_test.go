package procedures

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/adapters/datareadiness/coercer"
	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"
)

func run(t *testing.T, p Procedure, req *analysis.Request) *analysis.Result {
	t.Helper()
	res, err := p.Run(context.Background(), req, coercer.NewFrame(req.Dataset()))
	require.NoError(t, err)
	return res
}

func TestAllProceduresHaveUniqueTypes(t *testing.T) {
	seen := map[analysis.TestType]bool{}
	for _, p := range All() {
		assert.False(t, seen[p.Type()], p.Type())
		seen[p.Type()] = true
	}
	assert.Len(t, seen, 18)
}

func TestDescriptivesPerVariableMissing(t *testing.T) {
	req := &analysis.Request{
		DependentVariables: []string{"a", "b"},
		Data: []dataset.Row{
			{"a": 2.0, "b": 1.0}, {"a": 4.0, "b": nil}, {"a": 4.0, "b": 3.0}, {"a": 4.0, "b": 5.0},
			{"a": 5.0, "b": 7.0}, {"a": 5.0, "b": ""}, {"a": 7.0, "b": 9.0}, {"a": 9.0, "b": 11.0},
		},
	}
	res := run(t, NewDescriptives(), req)
	table := res.Table("Descriptive Statistics")
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 8, table.Rows[0]["N"])
	assert.Equal(t, 6, table.Rows[1]["N"])
	assert.Equal(t, 2, table.Rows[1]["Missing"])
	assert.InDelta(t, 5.0, table.Float(0, "Mean"), 1e-12)
	assert.InDelta(t, 0.818, table.Float(0, "Skewness"), 1e-3)
	assert.Contains(t, res.Summary, "a has a mean of 5.000")
}

func TestFrequenciesSortByCount(t *testing.T) {
	var rows []dataset.Row
	for _, v := range []interface{}{"red", "blue", "blue", "green", "blue", "green", nil} {
		rows = append(rows, dataset.Row{"colour": v})
	}
	req := &analysis.Request{DependentVariables: []string{"colour"}, Data: rows}

	res := run(t, NewFrequencies(), req)
	table := res.Tables[0]
	assert.Equal(t, "red", table.Rows[0]["Category"])
	assert.Equal(t, "Missing", table.Rows[4]["Category"])

	req.Options.SortBy = "count"
	res = run(t, NewFrequencies(), req)
	table = res.Tables[0]
	assert.Equal(t, "blue", table.Rows[0]["Category"])
	assert.Equal(t, "green", table.Rows[1]["Category"])
	assert.InDelta(t, 50.0, table.Float(0, "Valid Percent"), 1e-12)
	assert.Contains(t, res.Summary, `"blue"`)
}

func TestNormalityProducesQQPlot(t *testing.T) {
	var rows []dataset.Row
	for i := 1; i <= 10; i++ {
		rows = append(rows, dataset.Row{"x": float64(i)})
	}
	res := run(t, NewNormality(), &analysis.Request{DependentVariables: []string{"x"}, Data: rows})
	table := res.Table("Tests of Normality")
	assert.InDelta(t, 0.9702, table.Float(0, "Shapiro-Wilk W"), 1e-3)
	assert.Equal(t, "Normal", table.Rows[0]["Decision"])
	require.Len(t, res.Charts, 1)
	assert.Len(t, res.Charts[0].Data, 10)
	first := res.Charts[0].Data[0].(analysis.XYPoint)
	assert.Less(t, first.X, 0.0)
	assert.Equal(t, 1.0, first.Y)
}

func TestPairedTDropsIncompletePairs(t *testing.T) {
	req := &analysis.Request{
		DependentVariables: []string{"pre", "post"},
		Data: []dataset.Row{
			{"pre": 10.0, "post": 12.0}, {"pre": 11.0, "post": 14.0}, {"pre": 9.0, "post": nil},
			{"pre": 12.0, "post": 13.0}, {"pre": 13.0, "post": 17.0},
		},
	}
	res := run(t, NewPairedT(), req)
	assert.Equal(t, 4, res.N)
	require.Len(t, res.Warnings, 1)
	tt := res.Table("Paired Samples Test")
	assert.InDelta(t, -2.5, tt.Float(0, "Mean"), 1e-12)
	assert.InDelta(t, 3.0, tt.Float(0, "df"), 1e-12)
}

func TestWilcoxonRanksTable(t *testing.T) {
	req := &analysis.Request{
		DependentVariables: []string{"a", "b"},
		Data: []dataset.Row{
			{"a": 1.0, "b": 2.0}, {"a": 5.0, "b": 3.0}, {"a": 4.0, "b": 4.0}, {"a": 2.0, "b": 6.0},
		},
	}
	res := run(t, NewWilcoxon(), req)
	ranks := res.Table("Ranks")
	assert.Equal(t, 2, ranks.Rows[0]["N"])
	assert.Equal(t, 1, ranks.Rows[1]["N"])
	assert.Equal(t, 1, ranks.Rows[2]["N"])
	assert.Equal(t, "Exact Sig. (2-tailed)", res.Table("Test Statistics").Rows[3]["Statistic"])
}

func TestFriedmanNeedsThreeMeasures(t *testing.T) {
	req := &analysis.Request{DependentVariables: []string{"a", "b"}, Data: []dataset.Row{{"a": 1.0, "b": 2.0}}}
	_, err := NewFriedman().Run(context.Background(), req, coercer.NewFrame(req.Dataset()))
	assert.True(t, core.IsInvalidVariableError(err))
}

func TestKruskalWallisTables(t *testing.T) {
	var rows []dataset.Row
	for g, vals := range map[string][]float64{"a": {1, 2, 3}, "b": {4, 5, 6}, "c": {7, 8, 9}} {
		for _, v := range vals {
			rows = append(rows, dataset.Row{"g": g, "y": v})
		}
	}
	res := run(t, NewKruskalWallis(), &analysis.Request{DependentVariables: []string{"y"}, GroupingVariable: "g", Data: rows})
	stats := res.Table("Test Statistics")
	assert.InDelta(t, 7.2, stats.Float(0, "Value"), 1e-9)
	assert.Len(t, res.Table("Ranks").Rows, 4)
}

func TestReliabilityTables(t *testing.T) {
	req := &analysis.Request{
		DependentVariables: []string{"q1", "q2", "q3"},
		Data: []dataset.Row{
			{"q1": 1.0, "q2": 2.0, "q3": 1.0}, {"q1": 2.0, "q2": 2.0, "q3": 2.0}, {"q1": 3.0, "q2": 4.0, "q3": 3.0},
			{"q1": 4.0, "q2": 4.0, "q3": 5.0}, {"q1": 5.0, "q2": 5.0, "q3": 5.0},
		},
	}
	res := run(t, NewReliability(), req)
	assert.Greater(t, res.Table("Reliability Statistics").Float(0, "Cronbach's Alpha"), 0.9)
	assert.Len(t, res.Table("Item-Total Statistics").Rows, 3)
	assert.Contains(t, res.Summary, "excellent")
}

func TestLinearRegressionTables(t *testing.T) {
	var rows []dataset.Row
	for i, x := range []float64{1, 2, 3, 4, 5, 6} {
		y := []float64{2.1, 2.9, 3.6, 4.5, 5.2, 5.8}[i]
		rows = append(rows, dataset.Row{"x": x, "y": y})
	}
	res := run(t, NewLinearRegression(), &analysis.Request{
		DependentVariables: []string{"y"}, IndependentVariables: []string{"x"}, Data: rows,
	})
	coef := res.Table("Coefficients")
	require.Len(t, coef.Rows, 2)
	assert.Equal(t, "(Constant)", coef.Rows[0]["Predictor"])
	assert.Nil(t, coef.Rows[0]["Beta"])
	assert.InDelta(t, 1.0, coef.Float(1, "VIF"), 1e-12)
	assert.Greater(t, res.Table("Model Summary").Float(0, "R Square"), 0.99)
	require.Len(t, res.Charts, 1)
	assert.Equal(t, analysis.ChartScatter, res.Charts[0].Type)
}

func TestFactorAnalysisScree(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var rows []dataset.Row
	for i := 0; i < 80; i++ {
		f1, f2 := rng.NormFloat64(), rng.NormFloat64()
		noise := func() float64 { return 0.4 * rng.NormFloat64() }
		rows = append(rows, dataset.Row{
			"a": f1 + noise(), "b": f1 + noise(), "c": f1 + noise(),
			"d": f2 + noise(), "e": f2 + noise(), "f": f2 + noise(),
		})
	}
	req := &analysis.Request{DependentVariables: []string{"a", "b", "c", "d", "e", "f"}, Data: rows}
	res, err := NewFactorAnalysis().Run(context.Background(), req, coercer.NewFrame(req.Dataset()))
	require.NoError(t, err)
	require.Len(t, res.Charts, 1)
	assert.Equal(t, analysis.ChartLine, res.Charts[0].Type)
	assert.Len(t, res.Charts[0].Data, 6)
	require.NotNil(t, res.Table("Rotated Component Matrix"))
	assert.Len(t, res.Table("Rotated Component Matrix").Headers, 3)
}
