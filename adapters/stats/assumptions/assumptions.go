// Package assumptions turns diagnostic statistics into pass/fail assumption reports.
package assumptions

import (
	"fmt"
	"math"

	"statlab/adapters/stats/descriptives"
	"statlab/adapters/stats/groups"
	"statlab/adapters/stats/regression"
	"statlab/domain/analysis"
)

const (
	// VIFSevere is exceeded by severely collinear predictors
	VIFSevere = 10.0
	// VIFModerate marks a predictor as moderately collinear
	VIFModerate = 5.0
)

// Normality reports the decisive normality test for one sample
func Normality(label string, x []float64, alpha float64) analysis.AssumptionResult {
	nr := descriptives.CheckNormality(x, alpha)
	res := analysis.AssumptionResult{
		Name:      analysis.AssumptionNormality,
		Threshold: alpha,
		Value:     nr.PValue,
	}
	if nr.Undefined {
		res.Passed = true
		res.Value = math.NaN()
		res.Interpretation = fmt.Sprintf("Normality of %s could not be assessed (n = %d or no variation).", label, nr.N)
		res.Recommendation = "Collect more observations before relying on parametric results."
		return res
	}
	res.Passed = nr.Normal
	stat := "W"
	if nr.Decisive == descriptives.NameLilliefors {
		stat = "D"
	}
	if res.Passed {
		res.Interpretation = fmt.Sprintf("%s: %s test does not reject normality (%s = %s, %s).",
			label, nr.Decisive, stat, analysis.FormatStat(nr.Statistic), analysis.PClause(nr.PValue))
		res.Recommendation = "Parametric tests are appropriate."
		return res
	}
	res.Interpretation = fmt.Sprintf("%s: %s test indicates a departure from normality (%s = %s, %s).",
		label, nr.Decisive, stat, analysis.FormatStat(nr.Statistic), analysis.PClause(nr.PValue))
	if nr.N >= 30 {
		res.Recommendation = "With n >= 30 the test is usually robust; consider a non-parametric alternative if the distribution is strongly skewed."
	} else {
		res.Recommendation = "Consider a non-parametric alternative."
	}
	return res
}

// Homogeneity reports Levene's test for equal variances across groups
func Homogeneity(lev *groups.LeveneResult, alpha float64) analysis.AssumptionResult {
	res := analysis.AssumptionResult{
		Name:      analysis.AssumptionHomogeneity,
		Threshold: alpha,
		Value:     lev.P,
	}
	if math.IsNaN(lev.P) {
		res.Passed = true
		res.Interpretation = "Levene's test is undefined because no group varies."
		res.Recommendation = "Check the grouping variable and the dependent variable for constant values."
		return res
	}
	res.Passed = lev.P >= alpha
	if res.Passed {
		res.Interpretation = fmt.Sprintf("Levene's test is not significant (F(%d, %d) = %s, %s); variances are similar.",
			lev.DF1, lev.DF2, analysis.FormatStat(lev.F), analysis.PClause(lev.P))
		res.Recommendation = "Equal variances can be assumed."
		return res
	}
	res.Interpretation = fmt.Sprintf("Levene's test is significant (F(%d, %d) = %s, %s); variances differ.",
		lev.DF1, lev.DF2, analysis.FormatStat(lev.F), analysis.PClause(lev.P))
	res.Recommendation = "Use Welch's correction or a non-parametric test."
	return res
}

// Linearity reports Ramsey's RESET test; a nil result means the test could not be run
func Linearity(reset *regression.ResetResult, alpha float64) analysis.AssumptionResult {
	res := analysis.AssumptionResult{
		Name:      analysis.AssumptionLinearity,
		Threshold: alpha,
		Value:     math.NaN(),
	}
	if reset == nil || math.IsNaN(reset.P) {
		res.Passed = true
		res.Interpretation = "The RESET test could not be computed; the fit leaves no residual variation to test."
		res.Recommendation = "Inspect a residual plot."
		return res
	}
	res.Value = reset.P
	res.Passed = reset.P >= alpha
	if res.Passed {
		res.Interpretation = fmt.Sprintf("RESET test finds no omitted non-linearity (F(%d, %d) = %s, %s).",
			reset.DF1, reset.DF2, analysis.FormatStat(reset.F), analysis.PClause(reset.P))
		res.Recommendation = "A linear model is adequate."
		return res
	}
	res.Interpretation = fmt.Sprintf("RESET test indicates non-linearity (F(%d, %d) = %s, %s).",
		reset.DF1, reset.DF2, analysis.FormatStat(reset.F), analysis.PClause(reset.P))
	res.Recommendation = "Consider transforming variables or adding polynomial terms."
	return res
}

// Multicollinearity reports the largest variance inflation factor
func Multicollinearity(maxVIF float64) analysis.AssumptionResult {
	res := analysis.AssumptionResult{
		Name:      analysis.AssumptionMulticollinearity,
		Threshold: VIFSevere,
		Value:     maxVIF,
	}
	switch {
	case math.IsNaN(maxVIF):
		res.Passed = true
		res.Interpretation = "Multicollinearity does not apply to a single predictor."
		res.Recommendation = "No action needed."
	case maxVIF > VIFSevere:
		res.Interpretation = fmt.Sprintf("Severe multicollinearity (max VIF = %s).", analysis.FormatStat(maxVIF))
		res.Recommendation = "Remove or combine highly correlated predictors."
	case maxVIF >= VIFModerate:
		res.Passed = true
		res.Interpretation = fmt.Sprintf("Moderate multicollinearity (max VIF = %s).", analysis.FormatStat(maxVIF))
		res.Recommendation = "Interpret individual coefficients with care."
	default:
		res.Passed = true
		res.Interpretation = fmt.Sprintf("No problematic multicollinearity (max VIF = %s).", analysis.FormatStat(maxVIF))
		res.Recommendation = "No action needed."
	}
	return res
}
