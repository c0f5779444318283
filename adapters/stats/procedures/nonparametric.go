package procedures

import (
	"context"
	"fmt"

	"statlab/adapters/datareadiness/coercer"
	"statlab/adapters/stats/nonparametric"
	"statlab/domain/analysis"
)

// MannWhitney compares two independent groups by ranks
type MannWhitney struct{ entry }

func NewMannWhitney() *MannWhitney {
	return &MannWhitney{entry{
		testType:    analysis.TestMannWhitney,
		name:        "Mann-Whitney U Test",
		description: "Rank-based comparison of two independent groups",
		family:      analysis.FamilyNonParametric,
	}}
}

func (p *MannWhitney) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	res := analysis.NewResult(p.Type())
	g, dep, err := twoGroups(res, req, frame, "Mann-Whitney U test")
	if err != nil {
		return nil, err
	}
	vals := g.Values()
	r, err := nonparametric.MannWhitney([2]string{g.Groups[0].Label, g.Groups[1].Label}, vals[0], vals[1])
	if err != nil {
		return nil, err
	}
	res.N = r.N
	addRankTable(res, req.Label(g.Factor), r.Groups[:])
	st := res.AddTable(analysis.NewTable("Test Statistics", "Statistic", "Value"))
	st.AddRow("Mann-Whitney U", r.U).
		AddRow("Wilcoxon W", r.W).
		AddRow("Z", r.Z).
		AddRow(pLabel(r.Exact), r.P).
		AddRow("Effect size r", r.R)
	res.AddChart(rankChart("Mean rank of "+req.Label(dep), r.Groups[:]))

	res.SetSummary(fmt.Sprintf("Mann-Whitney U test: %s is %s different between %s (mean rank %s) and %s (mean rank %s), U = %s, Z = %s, %s, r = %s.",
		req.Label(dep), significantly(r.P, req.Options.Significance()),
		r.Groups[0].Label, stat(r.Groups[0].MeanRank), r.Groups[1].Label, stat(r.Groups[1].MeanRank),
		stat(r.U), stat(r.Z), pText(r.P), stat(r.R)))
	return res, nil
}

// Wilcoxon compares two related measures by signed ranks
type Wilcoxon struct{ entry }

func NewWilcoxon() *Wilcoxon {
	return &Wilcoxon{entry{
		testType:    analysis.TestWilcoxon,
		name:        "Wilcoxon Signed-Rank Test",
		description: "Rank-based comparison of two related measurements",
		family:      analysis.FamilyNonParametric,
	}}
}

func (p *Wilcoxon) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	a, b, err := pair(req)
	if err != nil {
		return nil, err
	}
	block, err := frame.Numeric(a, b)
	if err != nil {
		return nil, err
	}
	r, err := nonparametric.Wilcoxon(block.Columns[0], block.Columns[1])
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, block.Excluded, frame.Rows())
	la, lb := req.Label(a), req.Label(b)

	rt := res.AddTable(analysis.NewTable("Ranks", "Ranks", "N", "Mean Rank", "Sum of Ranks"))
	rt.AddRow("Negative Ranks", r.Negative, r.MeanRankNeg, r.WMinus)
	rt.AddRow("Positive Ranks", r.Positive, r.MeanRankPos, r.WPlus)
	rt.AddRow("Ties", r.Zeros, nil, nil)
	rt.AddRow("Total", r.N, nil, nil)
	rt.Note("Differences are %s - %s; ties are excluded from ranking.", la, lb)
	res.AddTable(analysis.NewTable("Test Statistics", "Statistic", "Value")).
		AddRow("W+", r.WPlus).
		AddRow("W-", r.WMinus).
		AddRow("Z", r.Z).
		AddRow(pLabel(r.Exact), r.P).
		AddRow("Effect size r", r.R)
	res.AddChart(analysis.NewBarChart("Signed ranks", []string{"Negative", "Positive", "Ties"},
		[]float64{float64(r.Negative), float64(r.Positive), float64(r.Zeros)}))

	res.SetSummary(fmt.Sprintf("Wilcoxon signed-rank test: the difference between %s and %s is %s, Z = %s, %s, r = %s.",
		la, lb, significance(r.P, req.Options.Significance()), stat(r.Z), pText(r.P), stat(r.R)))
	return res, nil
}

// KruskalWallis compares k independent groups by ranks
type KruskalWallis struct{ entry }

func NewKruskalWallis() *KruskalWallis {
	return &KruskalWallis{entry{
		testType:    analysis.TestKruskalWallis,
		name:        "Kruskal-Wallis H Test",
		description: "Rank-based comparison of three or more independent groups",
		family:      analysis.FamilyNonParametric,
	}}
}

func (p *KruskalWallis) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	fac, err := factor(req)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	g, err := grouped(res, frame, dep, fac, "Kruskal-Wallis test", 2)
	if err != nil {
		return nil, err
	}
	r, err := nonparametric.KruskalWallis(g.Labels(), g.Values())
	if err != nil {
		return nil, err
	}
	res.N = r.N
	addRankTable(res, req.Label(fac), r.Groups)
	res.AddTable(analysis.NewTable("Test Statistics", "Statistic", "Value")).
		AddRow("Kruskal-Wallis H", r.H).
		AddRow("df", r.DF).
		AddRow("Asymp. Sig.", r.P).
		AddRow("Epsilon squared", r.EpsilonSq)
	res.AddChart(rankChart("Mean rank of "+req.Label(dep), r.Groups))

	res.SetSummary(fmt.Sprintf("Kruskal-Wallis test: %s differs %s across the %d groups of %s, H(%d) = %s, %s, epsilon squared = %s.",
		req.Label(dep), significantly(r.P, req.Options.Significance()), len(r.Groups), req.Label(fac),
		r.DF, stat(r.H), pText(r.P), stat(r.EpsilonSq)))
	return res, nil
}

// Friedman compares three or more related measures by within-row ranks
type Friedman struct{ entry }

func NewFriedman() *Friedman {
	return &Friedman{entry{
		testType:    analysis.TestFriedman,
		name:        "Friedman Test",
		description: "Rank-based comparison of three or more related measurements",
		family:      analysis.FamilyNonParametric,
	}}
}

func (p *Friedman) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names, err := dependents(req, 3)
	if err != nil {
		return nil, err
	}
	block, err := frame.Numeric(names...)
	if err != nil {
		return nil, err
	}
	r, err := nonparametric.Friedman(labels(req, names), block.Columns)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, block.Excluded, frame.Rows())

	rt := res.AddTable(analysis.NewTable("Ranks", "Measure", "Mean Rank"))
	for _, m := range r.Measures {
		rt.AddRow(m.Label, m.MeanRank)
	}
	res.AddTable(analysis.NewTable("Test Statistics", "Statistic", "Value")).
		AddRow("N", r.N).
		AddRow("Chi-Square", r.ChiSquare).
		AddRow("df", r.DF).
		AddRow("Asymp. Sig.", r.P).
		AddRow("Kendall's W", r.KendallW)
	res.AddChart(rankChart("Mean ranks", r.Measures))

	res.SetSummary(fmt.Sprintf("Friedman test: the %d measures differ %s, chi-square(%d) = %s, %s, Kendall's W = %s.",
		len(r.Measures), significantly(r.P, req.Options.Significance()), r.DF, stat(r.ChiSquare), pText(r.P), stat(r.KendallW)))
	return res, nil
}

func addRankTable(res *analysis.Result, factorLabel string, groups []nonparametric.RankGroup) {
	t := res.AddTable(analysis.NewTable("Ranks", factorLabel, "N", "Mean Rank", "Sum of Ranks"))
	total := 0
	for _, g := range groups {
		t.AddRow(g.Label, g.N, g.MeanRank, g.SumRanks)
		total += g.N
	}
	t.AddRow("Total", total, nil, nil)
}

func rankChart(title string, groups []nonparametric.RankGroup) *analysis.Chart {
	l := make([]string, len(groups))
	v := make([]float64, len(groups))
	for i, g := range groups {
		l[i], v[i] = g.Label, g.MeanRank
	}
	return analysis.NewBarChart(title, l, v)
}

func pLabel(exact bool) string {
	if exact {
		return "Exact Sig. (2-tailed)"
	}
	return "Asymp. Sig. (2-tailed)"
}
