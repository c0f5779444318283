package procedures

import (
	"context"
	"fmt"

	"statlab/adapters/datareadiness/coercer"
	"statlab/adapters/stats/crosstab"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

// ChiSquare tests independence of two categorical variables
type ChiSquare struct{ entry }

func NewChiSquare() *ChiSquare {
	return &ChiSquare{entry{
		testType:    analysis.TestChiSquare,
		name:        "Chi-Square Test of Independence",
		description: "Crosstabulation with Pearson and likelihood-ratio chi-square, phi and Cramer's V",
		family:      analysis.FamilyCategorical,
	}}
}

func (p *ChiSquare) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names := req.ReferencedVariables()
	if len(names) < 2 {
		return nil, core.NewInvalidVariableError("dependentVariables", "must name a row and a column variable")
	}
	rowVar, colVar := names[0], names[1]
	rows, cols, err := frame.CrossTab(rowVar, colVar)
	if err != nil {
		return nil, err
	}
	if err := coercer.EnsureN("chi-square test", 2, len(rows.Values)); err != nil {
		return nil, err
	}
	tab := crosstab.Build(rows.Levels, cols.Levels, rows.Values, cols.Values)
	r, err := crosstab.Test(tab)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = int(tab.N)
	warnExcluded(res, rows.Excluded, frame.Rows())
	rl, cl := req.Label(rowVar), req.Label(colVar)

	headers := append([]string{rl + " \\ " + cl}, tab.ColLevels...)
	headers = append(headers, "Total")
	ct := res.AddTable(analysis.NewTable(rl+" * "+cl+" Crosstabulation", headers...))
	var barLabels []string
	var barValues []float64
	for i, level := range tab.RowLevels {
		row := []interface{}{level}
		for j := range tab.ColLevels {
			row = append(row, tab.Observed[i][j])
			barLabels = append(barLabels, level+" / "+tab.ColLevels[j])
			barValues = append(barValues, tab.Observed[i][j])
		}
		ct.AddRow(append(row, tab.RowTotals[i])...)
	}
	total := []interface{}{"Total"}
	for _, c := range tab.ColTotals {
		total = append(total, c)
	}
	ct.AddRow(append(total, tab.N)...)

	et := res.AddTable(analysis.NewTable("Expected Counts", append([]string{rl + " \\ " + cl}, tab.ColLevels...)...))
	for i, level := range tab.RowLevels {
		row := []interface{}{level}
		for j := range tab.ColLevels {
			row = append(row, tab.Expected[i][j])
		}
		et.AddRow(row...)
	}

	tt := res.AddTable(analysis.NewTable("Chi-Square Tests", "Test", "Value", "df", "Asymp. Sig. (2-sided)", "Exact Sig. (2-sided)"))
	tt.AddRow("Pearson Chi-Square", r.ChiSquare, r.DF, r.P, nil)
	if r.Is2x2() {
		tt.AddRow("Continuity Correction", r.Continuity, 1, r.ContinuityP, nil)
	}
	tt.AddRow("Likelihood Ratio", r.LikelihoodRatio, r.DF, r.LRP, nil)
	if r.Is2x2() {
		tt.AddRow("Fisher's Exact Test", nil, nil, nil, r.FisherP)
	}
	tt.AddRow("N of Valid Cases", tab.N, nil, nil, nil)
	tt.Note("%d cells (%.1f%%) have expected count less than 5.", r.SparseCells, 100*r.SparseShare)
	if r.SparseShare > 0.2 {
		res.Warn("%.1f%% of expected counts are below 5; the chi-square approximation may be unreliable.", 100*r.SparseShare)
	}

	st := res.AddTable(analysis.NewTable("Symmetric Measures", "Measure", "Value", "Approx. Sig."))
	if r.Is2x2() {
		st.AddRow("Phi", r.Phi, r.P)
	}
	st.AddRow("Cramer's V", r.CramersV, r.P)

	res.AddChart(analysis.NewBarChart(rl+" by "+cl, barLabels, barValues))

	effect, value := "Cramer's V", r.CramersV
	if r.Is2x2() {
		effect, value = "phi", r.Phi
	}
	res.SetSummary(fmt.Sprintf("The association between %s and %s is %s, chi-square(%d, N = %d) = %s, %s, %s = %s.",
		rl, cl, significance(r.P, req.Options.Significance()), r.DF, int(tab.N), stat(r.ChiSquare), pText(r.P), effect, stat(value)))
	return res, nil
}
