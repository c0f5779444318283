package procedures

import (
	"context"
	"fmt"
	"math"

	"statlab/adapters/datareadiness/coercer"
	"statlab/adapters/stats/assumptions"
	"statlab/adapters/stats/correlation"
	"statlab/adapters/stats/regression"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

// Correlation computes a pairwise-deleted correlation matrix
type Correlation struct{ entry }

func NewCorrelation() *Correlation {
	return &Correlation{entry{
		testType:    analysis.TestCorrelation,
		name:        "Bivariate Correlation",
		description: "Pearson or Spearman correlation matrix with p-values and Fisher-z confidence intervals",
		family:      analysis.FamilyCorrelation,
	}}
}

func (p *Correlation) variables(req *analysis.Request) ([]string, error) {
	var names []string
	for _, n := range req.ReferencedVariables() {
		if n != req.GroupingVariable {
			names = append(names, n)
		}
	}
	if len(names) < 2 {
		return nil, core.NewInvalidVariableError("dependentVariables", "must name at least 2 scale variables to correlate")
	}
	return names, nil
}

func (p *Correlation) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	names, err := p.variables(req)
	if err != nil {
		return nil, err
	}
	cols, err := frame.NumericWithMissing(names...)
	if err != nil {
		return nil, err
	}
	method := req.Options.CorrelationMethod()
	conf := req.Options.Confidence()
	m, err := correlation.Matrix(labels(req, names), cols, method, conf)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	coef := "Pearson r"
	title := "Correlations (Pearson)"
	if method == analysis.MethodSpearman {
		coef, title = "Spearman rho", "Correlations (Spearman)"
	}

	headers := append([]string{"Variable"}, m.Names...)
	mt := res.AddTable(analysis.NewTable(title, headers...))
	for i, name := range m.Names {
		row := []interface{}{name}
		for j := range m.Names {
			row = append(row, m.At(i, j).R)
		}
		mt.AddRow(row...)
	}
	mt.Note("Pairwise deletion: each coefficient uses the rows complete for its pair.")

	pt := res.AddTable(analysis.NewTable("Pairwise Statistics", "Variable 1", "Variable 2", coef, "Sig. (2-tailed)", "N",
		ciHeader(conf, "Lower"), ciHeader(conf, "Upper")))
	for i := range m.Names {
		for j := i + 1; j < len(m.Names); j++ {
			c := m.At(i, j)
			pt.AddRow(m.Names[i], m.Names[j], c.R, c.P, c.N, c.Lower, c.Upper)
			if c.N > res.N {
				res.N = c.N
			}
		}
	}

	x, y := pairedComplete(cols[0], cols[1])
	sc := analysis.NewXYChart(analysis.ChartScatter, m.Names[0]+" vs "+m.Names[1], x, y)
	sc.XLabel, sc.YLabel = m.Names[0], m.Names[1]
	res.AddChart(sc)

	first := m.At(0, 1)
	res.SetSummary(fmt.Sprintf("%s and %s are %s correlated (%s = %s, %s, N = %d).",
		m.Names[0], m.Names[1], strength(first.R, first.P, req.Options.Significance()),
		shortCoef(method), stat(first.R), pText(first.P), first.N))
	return res, nil
}

// Assumptions checks the normality of each variable
func (p *Correlation) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	names, err := p.variables(req)
	if err != nil {
		return nil, err
	}
	return normalityPerVariable(req, frame, names)
}

func pairedComplete(a, b []float64) (x, y []float64) {
	for i := range a {
		if !math.IsNaN(a[i]) && !math.IsNaN(b[i]) {
			x = append(x, a[i])
			y = append(y, b[i])
		}
	}
	return x, y
}

func shortCoef(method string) string {
	if method == analysis.MethodSpearman {
		return "rho"
	}
	return "r"
}

// strength describes a coefficient with Cohen's conventions
func strength(r, p, alpha float64) string {
	if math.IsNaN(r) {
		return "not measurably"
	}
	a := math.Abs(r)
	size := "weakly"
	switch {
	case a >= 0.5:
		size = "strongly"
	case a >= 0.3:
		size = "moderately"
	}
	dir := "positively"
	if r < 0 {
		dir = "negatively"
	}
	if p >= alpha {
		return fmt.Sprintf("%s %s but not significantly", size, dir)
	}
	return fmt.Sprintf("%s %s and significantly", size, dir)
}

// LinearRegression fits an OLS model
type LinearRegression struct{ entry }

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{entry{
		testType:    analysis.TestLinearRegression,
		name:        "Linear Regression",
		description: "Ordinary least squares with standardized coefficients, collinearity and residual diagnostics",
		family:      analysis.FamilyRegression,
	}}
}

func (p *LinearRegression) extract(req *analysis.Request, frame *coercer.Frame) (string, []string, *coercer.NumericBlock, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return "", nil, nil, err
	}
	if len(req.IndependentVariables) == 0 {
		return "", nil, nil, core.NewInvalidVariableError("independentVariables", "must name at least one predictor")
	}
	block, err := frame.Numeric(append([]string{dep}, req.IndependentVariables...)...)
	if err != nil {
		return "", nil, nil, err
	}
	return dep, req.IndependentVariables, block, nil
}

func (p *LinearRegression) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	dep, preds, block, err := p.extract(req, frame)
	if err != nil {
		return nil, err
	}
	conf := req.Options.Confidence()
	r, err := regression.OLS(block.Columns[0], labels(req, preds), block.Columns[1:], conf)
	if err != nil {
		return nil, err
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, block.Excluded, frame.Rows())

	res.AddTable(analysis.NewTable("Model Summary", "R", "R Square", "Adjusted R Square", "Std. Error of the Estimate", "Durbin-Watson")).
		AddRow(r.R, r.RSquared, r.AdjRSquared, r.SEEstimate, r.DurbinWatson)
	at := res.AddTable(analysis.NewTable("ANOVA", "Source", "Sum of Squares", "df", "Mean Square", "F", "Sig."))
	at.AddRow("Regression", r.SSRegression, r.DFRegression, r.SSRegression/float64(r.DFRegression), r.F, r.P)
	at.AddRow("Residual", r.SSResidual, r.DFResidual, r.SSResidual/float64(r.DFResidual), nil, nil)
	at.AddRow("Total", r.SSTotal, r.N-1, nil, nil, nil)

	ct := res.AddTable(analysis.NewTable("Coefficients", "Predictor", "B", "Std. Error", "Beta", "t", "Sig.",
		ciHeader(conf, "Lower"), ciHeader(conf, "Upper"), "Tolerance", "VIF"))
	for i, c := range r.Coefficients {
		if i == 0 {
			ct.AddRow("(Constant)", c.B, c.SE, nil, c.T, c.P, c.Lower, c.Upper, nil, nil)
			continue
		}
		ct.AddRow(c.Name, c.B, c.SE, c.Beta, c.T, c.P, c.Lower, c.Upper, c.Tolerance, c.VIF)
		switch {
		case c.VIF > assumptions.VIFSevere:
			res.Warn("%s shows severe multicollinearity (VIF = %s).", c.Name, stat(c.VIF))
		case c.VIF >= assumptions.VIFModerate:
			res.Warn("%s shows moderate multicollinearity (VIF = %s).", c.Name, stat(c.VIF))
		}
	}
	ct.Note("Dependent variable: %s.", req.Label(dep))

	rc := analysis.NewXYChart(analysis.ChartScatter, "Residuals vs Predicted", r.Fitted, r.Residuals)
	rc.XLabel, rc.YLabel = "Predicted value", "Residual"
	res.AddChart(rc)

	res.SetSummary(fmt.Sprintf("The model with %s explains %.1f%% of the variance in %s (R squared = %s, adjusted %s), F(%d, %d) = %s, %s.",
		joinNames(labels(req, preds)), 100*r.RSquared, req.Label(dep), stat(r.RSquared), stat(r.AdjRSquared),
		r.DFRegression, r.DFResidual, stat(r.F), pText(r.P)))
	return res, nil
}

// Assumptions checks residual normality, linearity (RESET) and multicollinearity
func (p *LinearRegression) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	_, preds, block, err := p.extract(req, frame)
	if err != nil {
		return nil, err
	}
	r, err := regression.OLS(block.Columns[0], labels(req, preds), block.Columns[1:], req.Options.Confidence())
	if err != nil {
		return nil, err
	}
	alpha := req.Options.Significance()
	reset, err := regression.Reset(block.Columns[0], block.Columns[1:], r)
	if err != nil {
		reset = nil
	}
	return []analysis.AssumptionResult{
		assumptions.Normality("residuals", r.Residuals, alpha),
		assumptions.Linearity(reset, alpha),
		assumptions.Multicollinearity(r.MaxVIF()),
	}, nil
}

// LogisticRegression fits a binary logit model
type LogisticRegression struct{ entry }

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{entry{
		testType:    analysis.TestLogisticRegression,
		name:        "Binary Logistic Regression",
		description: "Maximum likelihood logit model with odds ratios, classification table and ROC curve",
		family:      analysis.FamilyRegression,
		advanced:    true,
	}}
}

// coded is a binary outcome with numeric predictors
type coded struct {
	y          []float64
	predictors [][]float64
	event      string
	reference  string
	excluded   int
}

func (p *LogisticRegression) extract(req *analysis.Request, frame *coercer.Frame) (*coded, error) {
	dep, err := firstDependent(req)
	if err != nil {
		return nil, err
	}
	preds := req.IndependentVariables
	if len(preds) == 0 {
		return nil, core.NewInvalidVariableError("independentVariables", "must name at least one predictor")
	}
	rows, levels, excluded, err := frame.Outcome(dep, preds...)
	if err != nil {
		return nil, err
	}
	if len(levels) > 2 {
		return nil, core.NewInvalidVariableError(dep, fmt.Sprintf("must be binary, found %d categories", len(levels)))
	}
	if len(levels) < 2 {
		return nil, core.NewInvalidVariableError(dep, "must contain both outcome categories")
	}
	event, reference := eventLevel(frame, levels[0], levels[1])
	c := &coded{event: event, reference: reference, excluded: excluded, predictors: make([][]float64, len(preds))}
	for _, r := range rows {
		v := 0.0
		if r.Outcome == event {
			v = 1
		}
		c.y = append(c.y, v)
		for j, x := range r.Predictors {
			c.predictors[j] = append(c.predictors[j], x)
		}
	}
	return c, nil
}

// eventLevel codes the larger value as the event: numerically when both labels are
// numbers, lexicographically otherwise
func eventLevel(frame *coercer.Frame, a, b string) (event, reference string) {
	na, aok := frame.RawOutcomeNumeric(a)
	nb, bok := frame.RawOutcomeNumeric(b)
	if aok && bok {
		if na > nb {
			return a, b
		}
		return b, a
	}
	if a > b {
		return a, b
	}
	return b, a
}

func (p *LogisticRegression) Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error) {
	c, err := p.extract(req, frame)
	if err != nil {
		return nil, err
	}
	dep := req.DependentVariables[0]
	maxIter := req.Options.Iterations(regression.DefaultMaxIterations, regression.MaxIterationsCeiling)
	conf := req.Options.Confidence()
	r, fitErr := regression.Logistic(c.y, labels(req, req.IndependentVariables), c.predictors, maxIter, conf)
	if r == nil {
		return nil, fitErr
	}
	res := analysis.NewResult(p.Type())
	res.N = r.N
	warnExcluded(res, c.excluded, frame.Rows())
	if fitErr != nil {
		res.Warn("The model did not converge after %d iterations; estimates are unreliable and the outcome may be perfectly separated.", r.Iterations)
	}

	res.AddTable(analysis.NewTable("Dependent Variable Encoding", "Original Value", "Internal Value")).
		AddRow(c.reference, 0).
		AddRow(c.event, 1)
	res.AddTable(analysis.NewTable("Omnibus Tests of Model Coefficients", "Chi-square", "df", "Sig.")).
		AddRow(r.ChiSquare, r.DF, r.P)
	res.AddTable(analysis.NewTable("Model Summary", "-2 Log likelihood", "Cox & Snell R Square", "Nagelkerke R Square", "Iterations", "Converged")).
		AddRow(r.Neg2LL, r.CoxSnell, r.Nagelkerke, r.Iterations, r.Converged)

	cl := r.Classification
	ct := res.AddTable(analysis.NewTable("Classification Table", "Observed", "Predicted "+c.reference, "Predicted "+c.event, "Percentage Correct"))
	ct.AddRow(c.reference, cl.TrueNegative, cl.FalsePositive, cl.Specificity())
	ct.AddRow(c.event, cl.FalseNegative, cl.TruePositive, cl.Sensitivity())
	ct.AddRow("Overall Percentage", nil, nil, cl.Overall())
	ct.Note("The cut value is %s.", stat(regression.ClassificationCutoff))

	vt := res.AddTable(analysis.NewTable("Variables in the Equation", "Predictor", "B", "S.E.", "Wald", "df", "Sig.", "Exp(B)",
		ciHeader(conf, "Lower")+" Exp(B)", ciHeader(conf, "Upper")+" Exp(B)"))
	for i, co := range r.Coefficients {
		name := co.Name
		if i == 0 {
			name = "Constant"
		}
		vt.AddRow(name, co.B, co.SE, co.Wald, co.DF, co.P, co.ExpB, co.ExpLower, co.ExpUpper)
	}
	res.AddTable(analysis.NewTable("Area Under the ROC Curve", "Area")).AddRow(r.ROC.AUC)

	rc := analysis.NewXYChart(analysis.ChartLine, "ROC Curve", r.ROC.FPR, r.ROC.TPR)
	rc.XLabel, rc.YLabel = "1 - Specificity", "Sensitivity"
	res.AddChart(rc)

	res.SetSummary(fmt.Sprintf("The logistic model predicting %s = %s is %s, chi-square(%d) = %s, %s, Nagelkerke R squared = %s, AUC = %s, %.1f%% correctly classified.",
		req.Label(dep), c.event, significance(r.P, req.Options.Significance()), r.DF, stat(r.ChiSquare), pText(r.P),
		stat(r.Nagelkerke), stat(r.ROC.AUC), cl.Overall()))
	return res, fitErr
}

// Assumptions checks multicollinearity among the predictors
func (p *LogisticRegression) Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error) {
	c, err := p.extract(req, frame)
	if err != nil {
		return nil, err
	}
	worst := math.NaN()
	if len(c.predictors) > 1 {
		for _, v := range regression.VarianceInflation(c.predictors) {
			if math.IsNaN(worst) || v > worst {
				worst = v
			}
		}
	}
	return []analysis.AssumptionResult{assumptions.Multicollinearity(worst)}, nil
}
