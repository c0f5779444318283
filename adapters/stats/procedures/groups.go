package procedures

import (
	"context"
	"fmt"
	"math"

	"statlab/adapters/datareadiness/coercer"
	"statlab/adapters/stats/assumptions"
	"statlab/adapters/stats/groups"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

// OneSampleT compares a mean with a fixed value
type OneSampleT struct{ entry }

func NewOneSampleT() *OneSampleT {
	return &OneSampleT{entry{
		testType:    analysis.TestOneSampleT,
		name:        "One-Sample t-Test",
		description: "Tests whether the mean of a scale variable differs from a test value",
		family:      analysis.FamilyGroup,
	}}
}

func (p *OneSampleT) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	name, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	x, err := frame.NumericColumn(name)
	if err != nil {
		return nil, err
	}
	testValue := 0.0
	if req.Options.TestValue != nil {
		testValue = *req.Options.TestValue
	}
	conf := req.Options.Confidence()
	r, err := groups.OneSampleT(req.Label(name), x, testValue, conf)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = r.Stats.N
	warnExcluded(res, frame.Rows()-r.Stats.N, frame.Rows())
	res.AddTable(analysis.NewTable("One-Sample Statistics", "Variable", "N", "Mean", "Std. Deviation", "Std. Error Mean")).
		AddRow(r.Stats.Label, r.Stats.N, r.Stats.Mean, r.Stats.SD, r.Stats.SE)
	res.AddTable(analysis.NewTable(fmt.Sprintf("One-Sample Test (Test Value = %g)", testValue),
		"Variable", "t", "df", "Sig. (2-tailed)", "Mean Difference", ciHeader(conf, "Lower"), ciHeader(conf, "Upper"), "Cohen's d")).
		AddRow(r.Stats.Label, r.Row.T, r.Row.DF, r.Row.P, r.Row.MeanDiff, r.Row.Lower, r.Row.Upper, r.CohenD)
	res.AddChart(analysis.NewBarChart("Mean vs test value", []string{r.Stats.Label, "Test value"}, []float64{r.Stats.Mean, testValue}))

	res.SetSummary(fmt.Sprintf("The mean of %s (M = %s) is %s different from %g, t(%d) = %s, %s, d = %s.",
		r.Stats.Label, stat(r.Stats.Mean), significantly(r.Row.P, req.Options.Significance()), testValue,
		int(r.Row.DF), stat(r.Row.T), pText(r.Row.P), stat(r.CohenD)))
	return res, nil
}

func (p *OneSampleT) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	name, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	return normalityPerVariable(req, frame, []string{name})
}

// IndependentT compares the means of two independent groups
type IndependentT struct{ entry }

func NewIndependentT() *IndependentT {
	return &IndependentT{entry{
		testType:    analysis.TestIndependentT,
		name:        "Independent-Samples t-Test",
		description: "Compares the means of two groups, choosing Student or Welch by Levene's test",
		family:      analysis.FamilyGroup,
	}}
}

func (p *IndependentT) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	res := analysis.NewResult(p.Type())
	g, dep, err := twoGroups(res, req, frame, "independent-samples t-test")
	if err != nil {
		return nil, err
	}
	conf, alpha := req.Options.Confidence(), req.Options.Significance()
	vals := g.Values()
	r, err := groups.IndependentT([2]string{g.Groups[0].Label, g.Groups[1].Label}, vals[0], vals[1], conf, alpha)
	if err != nil {
		return nil, err
	}
	res.N = g.N()

	gt := res.AddTable(analysis.NewTable("Group Statistics", req.Label(g.Factor), "N", "Mean", "Std. Deviation", "Std. Error Mean"))
	for _, s := range r.Groups {
		gt.AddRow(s.Label, s.N, s.Mean, s.SD, s.SE)
	}
	res.AddTable(analysis.NewTable("Levene's Test for Equality of Variances", "F", "df1", "df2", "Sig.")).
		AddRow(r.Levene.F, r.Levene.DF1, r.Levene.DF2, r.Levene.P)
	tt := res.AddTable(analysis.NewTable("Independent Samples Test",
		"Variances", "t", "df", "Sig. (2-tailed)", "Mean Difference", "Std. Error Difference",
		ciHeader(conf, "Lower"), ciHeader(conf, "Upper")))
	tt.AddRow("Equal variances assumed", r.Pooled.T, r.Pooled.DF, r.Pooled.P, r.Pooled.MeanDiff, r.Pooled.SEDiff, r.Pooled.Lower, r.Pooled.Upper)
	tt.AddRow("Equal variances not assumed", r.Welch.T, r.Welch.DF, r.Welch.P, r.Welch.MeanDiff, r.Welch.SEDiff, r.Welch.Lower, r.Welch.Upper)
	if r.UseWelch {
		tt.Note("Levene's test is significant; the Welch row is used.")
	}
	res.AddTable(analysis.NewTable("Effect Sizes", "Measure", "Value")).
		AddRow("Cohen's d", r.CohenD).
		AddRow("Hedges' g", r.HedgesG)

	res.AddChart(analysis.NewBarChart("Mean "+req.Label(dep)+" by "+req.Label(g.Factor),
		[]string{r.Groups[0].Label, r.Groups[1].Label}, []float64{r.Groups[0].Mean, r.Groups[1].Mean}))

	sel := r.Selected()
	variant := "Student's"
	if r.UseWelch {
		variant = "Welch's"
	}
	res.SetSummary(fmt.Sprintf("%s t-test: %s differs %s between %s (M = %s) and %s (M = %s), t(%s) = %s, %s, d = %s.",
		variant, req.Label(dep), significantly(sel.P, alpha),
		r.Groups[0].Label, stat(r.Groups[0].Mean), r.Groups[1].Label, stat(r.Groups[1].Mean),
		formatDF(sel.DF), stat(sel.T), pText(sel.P), stat(r.CohenD)))
	return res, nil
}

func (p *IndependentT) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	return groupAssumptions(req, frame)
}

// twoGroups extracts the dependent variable split into exactly two groups
func twoGroups(res *analysis.Result, req *analysis.Request, frame *coercer.Frame, test string) (*coercer.Groups, string, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return nil, "", err
	}
	fac, err := factor(req)
	if err != nil {
		return nil, "", err
	}
	g, err := grouped(res, frame, dep, fac, test, 2)
	if err != nil {
		return nil, "", err
	}
	if len(g.Groups) > 2 {
		return nil, "", core.NewInvalidVariableError(fac, fmt.Sprintf("must define exactly 2 groups for the %s, found %d", test, len(g.Groups)))
	}
	return g, dep, nil
}

// PairedT compares two related measures
type PairedT struct{ entry }

func NewPairedT() *PairedT {
	return &PairedT{entry{
		testType:    analysis.TestPairedT,
		name:        "Paired-Samples t-Test",
		description: "Compares two related measurements taken on the same rows",
		family:      analysis.FamilyGroup,
	}}
}

func (p *PairedT) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	a, b, err := pair(req)
	if err != nil {
		return nil, err
	}
	block, err := frame.Numeric(a, b)
	if err != nil {
		return nil, err
	}
	conf := req.Options.Confidence()
	r, err := groups.PairedT([2]string{req.Label(a), req.Label(b)}, block.Columns[0], block.Columns[1], conf)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, block.Excluded, frame.Rows())

	st := res.AddTable(analysis.NewTable("Paired Samples Statistics", "Measure", "N", "Mean", "Std. Deviation", "Std. Error Mean"))
	for _, s := range []groups.GroupStats{r.First, r.Second} {
		st.AddRow(s.Label, s.N, s.Mean, s.SD, s.SE)
	}
	pairLabel := r.First.Label + " - " + r.Second.Label
	res.AddTable(analysis.NewTable("Paired Samples Correlations", "Pair", "N", "Correlation", "Sig.")).
		AddRow(pairLabel, r.N, r.Correlation, r.CorrP)
	res.AddTable(analysis.NewTable("Paired Samples Test",
		"Pair", "Mean", "Std. Deviation", "Std. Error Mean", ciHeader(conf, "Lower"), ciHeader(conf, "Upper"),
		"t", "df", "Sig. (2-tailed)", "Cohen's dz")).
		AddRow(pairLabel, r.MeanDiff, r.SDDiff, r.Row.SEDiff, r.Row.Lower, r.Row.Upper, r.Row.T, r.Row.DF, r.Row.P, r.CohenDz)
	res.AddChart(analysis.NewBarChart("Means", []string{r.First.Label, r.Second.Label}, []float64{r.First.Mean, r.Second.Mean}))

	res.SetSummary(fmt.Sprintf("The mean difference between %s and %s (%s) is %s, t(%d) = %s, %s, dz = %s.",
		r.First.Label, r.Second.Label, stat(r.MeanDiff), significance(r.Row.P, req.Options.Significance()),
		int(r.Row.DF), stat(r.Row.T), pText(r.Row.P), stat(r.CohenDz)))
	return res, nil
}

// Assumptions checks normality of the paired differences
func (p *PairedT) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	a, b, err := pair(req)
	if err != nil {
		return nil, err
	}
	block, err := frame.Numeric(a, b)
	if err != nil {
		return nil, err
	}
	d := make([]float64, block.N())
	for i := range d {
		d[i] = block.Columns[0][i] - block.Columns[1][i]
	}
	label := fmt.Sprintf("difference %s - %s", req.Label(a), req.Label(b))
	return []analysis.AssumptionResult{assumptions.Normality(label, d, req.Options.Significance())}, nil
}

// OneWayANOVA compares the means of k groups
type OneWayANOVA struct{ entry }

func NewOneWayANOVA() *OneWayANOVA {
	return &OneWayANOVA{entry{
		testType:    analysis.TestOneWayANOVA,
		name:        "One-Way ANOVA",
		description: "Compares means across groups with Levene's test and Tukey or Bonferroni post-hoc comparisons",
		family:      analysis.FamilyGroup,
	}}
}

func (p *OneWayANOVA) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	fac, err := factor(req)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	g, err := grouped(res, frame, dep, fac, "one-way ANOVA", 2)
	if err != nil {
		return nil, err
	}
	samples := g.Values()
	a, err := groups.OneWay(samples)
	if err != nil {
		return nil, err
	}
	lev, err := groups.Levene(samples)
	if err != nil {
		return nil, err
	}
	res.N = a.N
	conf, alpha := req.Options.Confidence(), req.Options.Significance()

	stats := groups.Describe(g.Labels(), samples)
	dt := res.AddTable(analysis.NewTable("Descriptives", req.Label(fac), "N", "Mean", "Std. Deviation", "Std. Error"))
	means := make([]float64, len(stats))
	for i, s := range stats {
		dt.AddRow(s.Label, s.N, s.Mean, s.SD, s.SE)
		means[i] = s.Mean
	}
	res.AddTable(analysis.NewTable("Test of Homogeneity of Variances", "Levene Statistic", "df1", "df2", "Sig.")).
		AddRow(lev.F, lev.DF1, lev.DF2, lev.P)
	at := res.AddTable(analysis.NewTable("ANOVA", "Source", "Sum of Squares", "df", "Mean Square", "F", "Sig.", "Partial Eta Squared"))
	at.AddRow("Between Groups", a.SSBetween, a.DFBetween, a.MSBetween, a.F, a.P, a.EtaSquared)
	at.AddRow("Within Groups", a.SSWithin, a.DFWithin, a.MSWithin, nil, nil, nil)
	at.AddRow("Total", a.SSTotal, a.N-1, nil, nil, nil, nil)
	at.Note("Omega squared = %s.", stat(a.OmegaSq))

	if !math.IsNaN(lev.P) && lev.P < alpha {
		res.Warn("Levene's test is significant (%s); group variances differ.", pText(lev.P))
	}
	method := req.Options.PostHocMethod()
	if a.P < alpha && len(stats) >= 3 && method != analysis.PostHocNone {
		var comps []groups.Comparison
		title := "Multiple Comparisons (Tukey HSD)"
		if method == analysis.PostHocBonferroni {
			comps = groups.Bonferroni(stats, a.MSWithin, a.DFWithin, conf)
			title = "Multiple Comparisons (Bonferroni)"
		} else {
			comps = groups.TukeyHSD(stats, a.MSWithin, a.DFWithin, conf)
		}
		addComparisons(res, title, comps, conf, alpha)
	}
	res.AddChart(analysis.NewBarChart("Mean "+req.Label(dep)+" by "+req.Label(fac), g.Labels(), means))

	res.SetSummary(fmt.Sprintf("One-way ANOVA: %s differs %s across the %d groups of %s, F(%d, %d) = %s, %s, eta squared = %s.",
		req.Label(dep), significantly(a.P, alpha), len(stats), req.Label(fac),
		a.DFBetween, a.DFWithin, stat(a.F), pText(a.P), stat(a.EtaSquared)))
	return res, nil
}

func (p *OneWayANOVA) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	return groupAssumptions(req, frame)
}

func addComparisons(res *analysis.Result, title string, comps []groups.Comparison, conf, alpha float64) {
	t := res.AddTable(analysis.NewTable(title, "Group I", "Group J", "Mean Difference (I-J)", "Std. Error", "Sig.",
		ciHeader(conf, "Lower"), ciHeader(conf, "Upper")))
	for _, c := range comps {
		t.AddRow(c.GroupI, c.GroupJ, c.MeanDiff, c.SE, c.P, c.Lower, c.Upper)
	}
	t.Note("Mean differences with Sig. < %s are significant.", stat(alpha))
}

// groupAssumptions checks normality per group and homogeneity of variance
func groupAssumptions(req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	fac, err := factor(req)
	if err != nil {
		return nil, err
	}
	g, err := frame.Grouped(dep, fac)
	if err != nil {
		return nil, err
	}
	g.Prune(2)
	if err := coercer.EnsureGroups("assumption checks", 2, g); err != nil {
		return nil, err
	}
	alpha := req.Options.Significance()
	var out []analysis.AssumptionResult
	for _, grp := range g.Groups {
		out = append(out, assumptions.Normality(fmt.Sprintf("%s (%s = %s)", req.Label(dep), req.Label(fac), grp.Label), grp.Values, alpha))
	}
	lev, err := groups.Levene(g.Values())
	if err != nil {
		return nil, err
	}
	return append(out, assumptions.Homogeneity(lev, alpha)), nil
}

// TwoWayANOVA tests two crossed factors and their interaction
type TwoWayANOVA struct{ entry }

func NewTwoWayANOVA() *TwoWayANOVA {
	return &TwoWayANOVA{entry{
		testType:    analysis.TestTwoWayANOVA,
		name:        "Two-Way ANOVA",
		description: "Type III sums of squares for two factors and their interaction, including unbalanced designs",
		family:      analysis.FamilyGroup,
		advanced:    true,
	}}
}

func (p *TwoWayANOVA) factors(req *analysis.Request) (string, string, error) {
	var names []string
	if req.GroupingVariable != "" {
		names = append(names, req.GroupingVariable)
	}
	names = append(names, req.IndependentVariables...)
	if len(names) < 2 {
		return "", "", core.NewInvalidVariableError("independentVariables", "must name two factors")
	}
	return names[0], names[1], nil
}

func (p *TwoWayANOVA) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	fa, fb, err := p.factors(req)
	if err != nil {
		return nil, err
	}
	obs, levels, excluded, err := frame.Factorial(dep, fa, fb)
	if err != nil {
		return nil, err
	}
	y := make([]float64, len(obs))
	a := make([]string, len(obs))
	b := make([]string, len(obs))
	for i, o := range obs {
		y[i], a[i], b[i] = o.Value, o.Labels[0], o.Labels[1]
	}
	alpha := req.Options.Significance()
	r, err := groups.TwoWay(req.Label(fa), req.Label(fb), y, a, b, levels[0], levels[1], alpha)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, excluded, frame.Rows())

	ct := res.AddTable(analysis.NewTable("Descriptive Statistics", r.FactorA, r.FactorB, "N", "Mean", "Std. Deviation"))
	cellLabels := make([]string, len(r.Cells))
	cellMeans := make([]float64, len(r.Cells))
	for i, c := range r.Cells {
		ct.AddRow(c.A, c.B, c.N, c.Mean, c.SD)
		cellLabels[i] = c.A + " / " + c.B
		cellMeans[i] = c.Mean
	}
	et := res.AddTable(analysis.NewTable("Tests of Between-Subjects Effects",
		"Source", "Type III Sum of Squares", "df", "Mean Square", "F", "Sig.", "Partial Eta Squared"))
	et.AddRow("Corrected Model", r.Model.SS, r.Model.DF, r.Model.MS, r.Model.F, r.Model.P, r.Model.PartialEtaSq)
	for _, e := range r.Effects {
		et.AddRow(e.Source, e.SS, e.DF, e.MS, e.F, e.P, e.PartialEtaSq)
	}
	et.AddRow("Error", r.Error.SS, r.Error.DF, r.Error.MS, nil, nil, nil)
	et.AddRow("Corrected Total", r.Total.SS, r.Total.DF, nil, nil, nil, nil)
	et.Note("R squared = %s.", stat(r.RSquared))
	if r.Interaction {
		et.Note("The interaction is significant; interpret main effects with caution.")
		res.Warn("The %s x %s interaction is significant, so main effects must be interpreted with caution.", r.FactorA, r.FactorB)
	}
	res.AddChart(analysis.NewBarChart("Cell means of "+req.Label(dep), cellLabels, cellMeans))

	ea, eb, ab := r.Effects[0], r.Effects[1], r.Effects[2]
	res.SetSummary(fmt.Sprintf("Two-way ANOVA on %s: %s F(%d, %d) = %s, %s; %s F(%d, %d) = %s, %s; interaction F(%d, %d) = %s, %s.",
		req.Label(dep),
		ea.Source, ea.DF, r.Error.DF, stat(ea.F), pText(ea.P),
		eb.Source, eb.DF, r.Error.DF, stat(eb.F), pText(eb.P),
		ab.DF, r.Error.DF, stat(ab.F), pText(ab.P)))
	return res, nil
}

// Assumptions checks normality per cell and homogeneity across cells
func (p *TwoWayANOVA) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	fa, fb, err := p.factors(req)
	if err != nil {
		return nil, err
	}
	obs, _, _, err := frame.Factorial(dep, fa, fb)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var cellNames []string
	var cells [][]float64
	for _, o := range obs {
		key := o.Labels[0] + " / " + o.Labels[1]
		i, ok := index[key]
		if !ok {
			i = len(cells)
			index[key] = i
			cellNames = append(cellNames, key)
			cells = append(cells, nil)
		}
		cells[i] = append(cells[i], o.Value)
	}
	alpha := req.Options.Significance()
	var out []analysis.AssumptionResult
	var usable [][]float64
	for i, c := range cells {
		out = append(out, assumptions.Normality(fmt.Sprintf("%s (%s)", req.Label(dep), cellNames[i]), c, alpha))
		if len(c) >= 2 {
			usable = append(usable, c)
		}
	}
	if len(usable) < 2 {
		return nil, core.NewInsufficientGroupsError("assumption checks", 2, len(usable))
	}
	lev, err := groups.Levene(usable)
	if err != nil {
		return nil, err
	}
	return append(out, assumptions.Homogeneity(lev, alpha)), nil
}

// significantly renders "significantly" or "not significantly"
func significantly(p, alpha float64) string {
	if p < alpha {
		return "significantly"
	}
	return "not significantly"
}

func ciHeader(confidence float64, bound string) string {
	return fmt.Sprintf("%g%% CI %s", math.Round(confidence*1000)/10, bound)
}

// formatDF prints integral degrees of freedom without decimals
func formatDF(df float64) string {
	if df == math.Trunc(df) {
		return fmt.Sprintf("%d", int(df))
	}
	return fmt.Sprintf("%.2f", df)
}
