package procedures

import (
	"context"
	"fmt"
	"sort"

	"statlab/adapters/datareadiness/coercer"
	"statlab/adapters/stats/assumptions"
	"statlab/adapters/stats/descriptives"
	"statlab/adapters/stats/distributions"
	"statlab/domain/analysis"
)

// Descriptives summarizes scale variables
type Descriptives struct{ entry }

func NewDescriptives() *Descriptives {
	return &Descriptives{entry{
		testType:    analysis.TestDescriptives,
		name:        "Descriptive Statistics",
		description: "N, mean, standard deviation, range, median, skewness and kurtosis of scale variables",
		family:      analysis.FamilyDescriptive,
	}}
}

// Run computes each variable over its own non-missing values
func (p *Descriptives) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names, err := dependents(req, 1)
	if err != nil {
		return nil, err
	}
	if err := frame.Require(names...); err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	table := res.AddTable(analysis.NewTable("Descriptive Statistics",
		"Variable", "N", "Missing", "Mean", "Std. Deviation", "Std. Error", "Minimum", "Maximum",
		"Median", "IQR", "Skewness", "SE Skewness", "Kurtosis", "SE Kurtosis"))
	means := make([]float64, len(names))
	var first descriptives.Summary
	for i, name := range names {
		x, err := frame.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		if err := coercer.EnsureN("descriptives of "+name, 1, len(x)); err != nil {
			return nil, err
		}
		s := descriptives.Describe(x)
		if i == 0 {
			first = s
		}
		if s.N > res.N {
			res.N = s.N
		}
		means[i] = s.Mean
		table.AddRow(req.Label(name), s.N, frame.Rows()-s.N, s.Mean, s.SD, s.SE, s.Min, s.Max,
			s.Median, s.IQR, s.Skewness, s.SESkewness, s.Kurtosis, s.SEKurtosis)
	}

	if req.GroupingVariable != "" {
		if err := p.byGroup(res, req, frame, names); err != nil {
			return nil, err
		}
	}

	res.AddChart(analysis.NewBarChart("Means", labels(req, names), means))
	headline := fmt.Sprintf("%s has a mean of %s (SD = %s, N = %d).",
		req.Label(names[0]), stat(first.Mean), stat(first.SD), first.N)
	if len(names) > 1 {
		headline = fmt.Sprintf("Descriptive statistics for %d variables; %s", len(names), headline)
	}
	res.SetSummary(headline)
	return res, nil
}

func (p *Descriptives) byGroup(res *analysis.Result, req *analysis.Request, frame *coercer.Frame, names []string) error {
	table := res.AddTable(analysis.NewTable("Descriptives by "+req.Label(req.GroupingVariable),
		"Variable", "Group", "N", "Mean", "Std. Deviation", "Minimum", "Maximum"))
	for _, name := range names {
		g, err := frame.Grouped(name, req.GroupingVariable)
		if err != nil {
			return err
		}
		for _, grp := range g.Groups {
			s := descriptives.Describe(grp.Values)
			table.AddRow(req.Label(name), grp.Label, s.N, s.Mean, s.SD, s.Min, s.Max)
		}
	}
	return nil
}

// Frequencies tabulates categorical variables
type Frequencies struct{ entry }

func NewFrequencies() *Frequencies {
	return &Frequencies{entry{
		testType:    analysis.TestFrequencies,
		name:        "Frequencies",
		description: "Counts and percentages per category of nominal or ordinal variables",
		family:      analysis.FamilyDescriptive,
	}}
}

func (p *Frequencies) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names, err := dependents(req, 1)
	if err != nil {
		return nil, err
	}
	sortBy := descriptives.SortAppearance
	if req.Options.SortBy == descriptives.SortCount {
		sortBy = descriptives.SortCount
	}
	res := analysis.NewResult(p.Type())
	var headline string
	for i, name := range names {
		col, err := frame.Categorical(name)
		if err != nil {
			return nil, err
		}
		if err := coercer.EnsureN("frequencies of "+name, 1, len(col.Values)); err != nil {
			return nil, err
		}
		ft := descriptives.Frequencies(col.Levels, col.Counts(), col.Excluded, sortBy)
		table := res.AddTable(analysis.NewTable("Frequencies: "+req.Label(name),
			"Category", "Frequency", "Percent", "Valid Percent", "Cumulative Percent"))
		cats := make([]string, len(ft.Rows))
		counts := make([]float64, len(ft.Rows))
		for j, row := range ft.Rows {
			table.AddRow(row.Category, row.Count, row.Percent, row.ValidPercent, row.CumulativePercent)
			cats[j], counts[j] = row.Category, float64(row.Count)
		}
		table.AddRow("Valid Total", ft.Valid, 100*float64(ft.Valid)/float64(ft.Total), 100.0, nil)
		if ft.Missing > 0 {
			table.AddRow("Missing", ft.Missing, 100*float64(ft.Missing)/float64(ft.Total), nil, nil)
		}
		table.AddRow("Total", ft.Total, 100.0, nil, nil)
		res.AddChart(analysis.NewBarChart("Frequencies of "+req.Label(name), cats, counts))
		if ft.Valid > res.N {
			res.N = ft.Valid
		}
		if i == 0 {
			top := mostFrequent(ft)
			headline = fmt.Sprintf("%s has %d categories; the most frequent is %q (%d of %d valid, %.1f%%).",
				req.Label(name), len(ft.Rows), top.Category, top.Count, ft.Valid, top.ValidPercent)
		}
	}
	res.SetSummary(headline)
	return res, nil
}

func mostFrequent(ft descriptives.FrequencyTable) descriptives.FrequencyRow {
	best := ft.Rows[0]
	for _, r := range ft.Rows[1:] {
		if r.Count > best.Count {
			best = r
		}
	}
	return best
}

// Normality tests scale variables for departures from the normal distribution
type Normality struct{ entry }

func NewNormality() *Normality {
	return &Normality{entry{
		testType:    analysis.TestNormality,
		name:        "Tests of Normality",
		description: "Shapiro-Wilk and Kolmogorov-Smirnov (Lilliefors) tests with a normal Q-Q plot",
		family:      analysis.FamilyDescriptive,
	}}
}

func (p *Normality) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names, err := dependents(req, 1)
	if err != nil {
		return nil, err
	}
	alpha := req.Options.Significance()
	res := analysis.NewResult(p.Type())
	table := res.AddTable(analysis.NewTable("Tests of Normality",
		"Variable", "N", "Shapiro-Wilk W", "Shapiro-Wilk Sig.", "Kolmogorov-Smirnov D", "Kolmogorov-Smirnov Sig.",
		"Skewness", "Kurtosis", "Decision"))
	var violated []string
	for i, name := range names {
		x, err := frame.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		if err := coercer.EnsureN("normality test of "+name, 3, len(x)); err != nil {
			return nil, err
		}
		nr := descriptives.CheckNormality(x, alpha)
		s := descriptives.Describe(x)
		decision := "Normal"
		switch {
		case nr.Undefined:
			decision = "Undefined"
		case !nr.Normal:
			decision = "Not normal"
			violated = append(violated, req.Label(name))
		}
		table.AddRow(req.Label(name), nr.N, nr.W, nr.WPValue, nr.D, nr.DPValue, s.Skewness, s.Kurtosis, decision)
		if nr.N > descriptives.ShapiroWilkMaxN {
			table.Note("Shapiro-Wilk is not computed for %s (N > %d); Lilliefors decides.", req.Label(name), descriptives.ShapiroWilkMaxN)
		}
		if i == 0 {
			qx, qy := qqPoints(x)
			qq := analysis.NewXYChart(analysis.ChartScatter, "Normal Q-Q Plot of "+req.Label(name), qx, qy)
			qq.XLabel, qq.YLabel = "Expected normal", "Observed value"
			res.AddChart(qq)
		}
		if len(x) > res.N {
			res.N = len(x)
		}
	}
	table.Note("Lilliefors significance correction. Decisions at alpha = %s.", stat(alpha))

	if len(violated) == 0 {
		res.SetSummary(fmt.Sprintf("No variable departs significantly from normality (alpha = %s).", stat(alpha)))
	} else {
		res.SetSummary(fmt.Sprintf("%s departs significantly from normality (alpha = %s).", joinNames(violated), stat(alpha)))
	}
	return res, nil
}

// Assumptions reports the decisive normality test per variable
func (p *Normality) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	names, err := dependents(req, 1)
	if err != nil {
		return nil, err
	}
	return normalityPerVariable(req, frame, names)
}

func normalityPerVariable(req *analysis.Request, frame *coercer.Frame, names []string) ([]analysis.AssumptionResult, error) {
	out := make([]analysis.AssumptionResult, 0, len(names))
	for _, name := range names {
		x, err := frame.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		out = append(out, assumptions.Normality(req.Label(name), x, req.Options.Significance()))
	}
	return out, nil
}

// qqPoints pairs sorted values with Blom normal scores
func qqPoints(x []float64) (expected, observed []float64) {
	observed = append([]float64(nil), x...)
	sort.Float64s(observed)
	n := float64(len(observed))
	expected = make([]float64, len(observed))
	for i := range observed {
		expected[i] = distributions.NormalQuantile((float64(i+1) - 0.375) / (n + 0.25))
	}
	return expected, observed
}
