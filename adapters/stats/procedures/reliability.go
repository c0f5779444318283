package procedures

import (
	"context"
	"fmt"
	"strings"

	"statlab/adapters/datareadiness/coercer"
	"statlab/adapters/stats/reliability"
	"statlab/domain/analysis"
)

// Reliability computes Cronbach's alpha for a scale
type Reliability struct{ entry }

func NewReliability() *Reliability {
	return &Reliability{entry{
		testType:    analysis.TestReliability,
		name:        "Reliability Analysis",
		description: "Cronbach's alpha with item-total statistics and alpha if item deleted",
		family:      analysis.FamilyReliability,
	}}
}

func (p *Reliability) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names, err := dependents(req, 1)
	if err != nil {
		return nil, err
	}
	block, err := frame.Numeric(names...)
	if err != nil {
		return nil, err
	}
	r, err := reliability.Alpha(labels(req, names), block.Columns)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, block.Excluded, frame.Rows())
	if r.ZeroVariance {
		res.Warn("Alpha is undefined because the scale total has no variance.")
	}

	res.AddTable(analysis.NewTable("Reliability Statistics", "Cronbach's Alpha", "Alpha Based on Standardized Items", "N of Items", "Mean Inter-Item Correlation")).
		AddRow(r.Alpha, r.StandardizedAlpha, r.K, r.MeanInterItemCorr)
	it := res.AddTable(analysis.NewTable("Item Statistics", "Item", "Mean", "Std. Deviation", "N"))
	for _, item := range r.Items {
		it.AddRow(item.Name, item.Mean, item.SD, item.N)
	}
	tt := res.AddTable(analysis.NewTable("Item-Total Statistics", "Item", "Scale Mean if Item Deleted", "Scale Variance if Item Deleted",
		"Corrected Item-Total Correlation", "Cronbach's Alpha if Item Deleted"))
	itemNames := make([]string, len(r.Items))
	itemTotals := make([]float64, len(r.Items))
	var weak []string
	for i, item := range r.Items {
		tt.AddRow(item.Name, item.ScaleMeanIfDeleted, item.ScaleVarIfDeleted, item.CorrectedItemTotal, item.AlphaIfDeleted)
		itemNames[i], itemTotals[i] = item.Name, item.CorrectedItemTotal
		if item.CorrectedItemTotal < 0.3 {
			weak = append(weak, item.Name)
		}
	}
	if r.K == 2 {
		tt.Note("Alpha if item deleted is undefined for a two-item scale.")
	}
	res.AddTable(analysis.NewTable("Scale Statistics", "Mean", "Variance", "Std. Deviation", "N of Items")).
		AddRow(r.ScaleMean, r.ScaleVariance, r.ScaleSD, r.K)
	res.AddChart(analysis.NewBarChart("Corrected item-total correlations", itemNames, itemTotals))
	if len(weak) > 0 {
		res.Warn("%s correlate weakly with the rest of the scale (r < .30).", strings.Join(weak, ", "))
	}

	res.SetSummary(fmt.Sprintf("Cronbach's alpha for the %d-item scale is %s (%s internal consistency, N = %d).",
		r.K, stat(r.Alpha), consistency(r.Alpha), r.N))
	return res, nil
}

// consistency labels alpha with the George and Mallery bands
func consistency(alpha float64) string {
	switch {
	case alpha != alpha:
		return "undefined"
	case alpha >= 0.9:
		return "excellent"
	case alpha >= 0.8:
		return "good"
	case alpha >= 0.7:
		return "acceptable"
	case alpha >= 0.6:
		return "questionable"
	case alpha >= 0.5:
		return "poor"
	}
	return "unacceptable"
}

// FactorAnalysis runs a principal component extraction with optional varimax rotation
type FactorAnalysis struct{ entry }

func NewFactorAnalysis() *FactorAnalysis {
	return &FactorAnalysis{entry{
		testType:    analysis.TestFactorAnalysis,
		name:        "Exploratory Factor Analysis",
		description: "KMO and Bartlett's test, principal component extraction and varimax rotation",
		family:      analysis.FamilyReliability,
		advanced:    true,
	}}
}

func (p *FactorAnalysis) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names, err := dependents(req, 2)
	if err != nil {
		return nil, err
	}
	block, err := frame.Numeric(names...)
	if err != nil {
		return nil, err
	}
	rotation := reliability.RotationVarimax
	if strings.EqualFold(req.Options.Rotation, reliability.RotationNone) {
		rotation = reliability.RotationNone
	}
	opts := reliability.FactorOptions{
		Factors:       req.Options.Factors,
		Rotation:      rotation,
		MaxIterations: req.Options.Iterations(reliability.DefaultRotationIterations, reliability.MaxRotationIterations),
	}
	display := labels(req, names)
	r, fitErr := reliability.Factor(display, block.Columns, opts)
	if r == nil {
		return nil, fitErr
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, block.Excluded, frame.Rows())
	if fitErr != nil {
		res.Warn("Varimax rotation did not converge in %d iterations; rotated loadings are the last iterate.", r.RotationIterations)
	}
	if r.KMO < 0.5 {
		res.Warn("KMO = %s is below .50; the data are not suitable for factor analysis.", stat(r.KMO))
	}

	kt := res.AddTable(analysis.NewTable("KMO and Bartlett's Test", "Measure", "Value"))
	kt.AddRow("Kaiser-Meyer-Olkin Measure of Sampling Adequacy", r.KMO)
	kt.AddRow("Bartlett's Test Approx. Chi-Square", r.BartlettChiSquare)
	kt.AddRow("Bartlett's Test df", r.BartlettDF)
	kt.AddRow("Bartlett's Test Sig.", r.BartlettP)

	vt := res.AddTable(analysis.NewTable("Total Variance Explained", "Component", "Eigenvalue", "% of Variance", "Cumulative %"))
	p64 := float64(len(r.Eigenvalues))
	var cum float64
	idx := make([]float64, len(r.Eigenvalues))
	for i, ev := range r.Eigenvalues {
		pct := 100 * ev / p64
		cum += pct
		vt.AddRow(i+1, ev, pct, cum)
		idx[i] = float64(i + 1)
	}
	vt.Note("%d component(s) extracted.", r.Factors)

	comm := res.AddTable(analysis.NewTable("Communalities", "Variable", "Initial", "Extraction", "MSA"))
	for i, name := range display {
		comm.AddRow(name, 1.0, r.Communalities[i], r.MSA[i])
	}
	addLoadings(res, "Component Matrix", display, r.Loadings)
	if r.Rotated != nil {
		rt := addLoadings(res, "Rotated Component Matrix", display, r.Rotated)
		rt.Note("Varimax with Kaiser normalization; %d iterations.", r.RotationIterations)
		ss := res.AddTable(analysis.NewTable("Rotation Sums of Squared Loadings", "Component", "Total", "% of Variance"))
		for j, v := range r.RotatedSS {
			ss.AddRow(j+1, v, 100*v/p64)
		}
	}

	scree := analysis.NewXYChart(analysis.ChartLine, "Scree Plot", idx, r.Eigenvalues)
	scree.XLabel, scree.YLabel = "Component", "Eigenvalue"
	res.AddChart(scree)

	var explained float64
	for _, ev := range r.Eigenvalues[:r.Factors] {
		explained += ev
	}
	res.SetSummary(fmt.Sprintf("%d component(s) explain %.1f%% of the variance of %d variables (KMO = %s, Bartlett %s).",
		r.Factors, 100*explained/p64, len(display), stat(r.KMO), pText(r.BartlettP)))
	return res, fitErr
}

func addLoadings(res *analysis.Result, title string, names []string, loadings [][]float64) *analysis.Table {
	m := 0
	if len(loadings) > 0 {
		m = len(loadings[0])
	}
	headers := []string{"Variable"}
	for j := 0; j < m; j++ {
		headers = append(headers, fmt.Sprintf("Component %d", j+1))
	}
	t := res.AddTable(analysis.NewTable(title, headers...))
	for i, name := range names {
		row := []interface{}{name}
		for _, l := range loadings[i] {
			row = append(row, l)
		}
		t.AddRow(row...)
	}
	return t
}
