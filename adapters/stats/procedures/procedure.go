// Package procedures implements each catalog test: extract typed columns, run the
// numeric module and assemble SPSS style tables and charts.
package procedures

import (
	"context"
	"fmt"
	"strings"

	"statlab/adapters/datareadiness/coercer"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

// Procedure is one registered statistical test
type Procedure interface {
	Type() analysis.TestType
	Name() string
	Description() string
	Family() analysis.Family
	Advanced() bool
	Run(ctx context.Context, req *analysis.Request, frame *coercer.Frame) (*analysis.Result, error)
}

// AssumptionChecker is implemented by procedures whose family has checkable assumptions
type AssumptionChecker interface {
	Assumptions(ctx context.Context, req *analysis.Request, frame *coercer.Frame) ([]analysis.AssumptionResult, error)
}

// entry carries the catalog metadata shared by every procedure
type entry struct {
	testType    analysis.TestType
	name        string
	description string
	family      analysis.Family
	advanced    bool
}

func (e entry) Type() analysis.TestType { return e.testType }
func (e entry) Name() string            { return e.name }
func (e entry) Description() string     { return e.description }
func (e entry) Family() analysis.Family { return e.family }
func (e entry) Advanced() bool          { return e.advanced }

// All returns every procedure in catalog order
func All() []Procedure {
	return []Procedure{
		NewDescriptives(),
		NewFrequencies(),
		NewNormality(),
		NewOneSampleT(),
		NewIndependentT(),
		NewPairedT(),
		NewOneWayANOVA(),
		NewTwoWayANOVA(),
		NewMannWhitney(),
		NewWilcoxon(),
		NewKruskalWallis(),
		NewFriedman(),
		NewCorrelation(),
		NewLinearRegression(),
		NewLogisticRegression(),
		NewReliability(),
		NewFactorAnalysis(),
		NewChiSquare(),
	}
}

// dependents returns the dependent variables, falling back to the independent list
func dependents(req *analysis.Request, min int) ([]string, error) {
	names := req.DependentVariables
	if len(names) == 0 {
		names = req.IndependentVariables
	}
	if len(names) < min {
		return nil, core.NewInvalidVariableError("dependentVariables",
			fmt.Sprintf("must name at least %d column(s), got %d", min, len(names)))
	}
	return names, nil
}

// firstDependent returns the single outcome variable of a test
func firstDependent(req *analysis.Request) (string, error) {
	if len(req.DependentVariables) == 0 || req.DependentVariables[0] == "" {
		return "", core.NewInvalidVariableError("dependentVariables", "must name the outcome column")
	}
	return req.DependentVariables[0], nil
}

// factor returns the grouping variable, falling back to the first independent variable
func factor(req *analysis.Request) (string, error) {
	if req.GroupingVariable != "" {
		return req.GroupingVariable, nil
	}
	if len(req.IndependentVariables) > 0 && req.IndependentVariables[0] != "" {
		return req.IndependentVariables[0], nil
	}
	return "", core.NewInvalidVariableError("groupingVariable", "must name the grouping column")
}

// pair returns the two related measures of a paired test
func pair(req *analysis.Request) (string, string, error) {
	names := append(append([]string(nil), req.DependentVariables...), req.IndependentVariables...)
	if len(names) < 2 {
		return "", "", core.NewInvalidVariableError("dependentVariables", "must name two related measures")
	}
	return names[0], names[1], nil
}

// grouped extracts dependent by factor and drops groups smaller than 2 with a warning
func grouped(res *analysis.Result, frame *coercer.Frame, dependent, factorName, test string, required int) (*coercer.Groups, error) {
	g, err := frame.Grouped(dependent, factorName)
	if err != nil {
		return nil, err
	}
	for _, label := range g.Prune(2) {
		res.Warn("Group %q of %s was excluded because it has fewer than 2 observations.", label, factorName)
	}
	if err := coercer.EnsureGroups(test, required, g); err != nil {
		return nil, err
	}
	warnExcluded(res, g.Excluded, frame.Rows())
	return g, nil
}

// warnExcluded notes listwise deletion when it removed rows
func warnExcluded(res *analysis.Result, excluded, total int) {
	if excluded == 1 {
		res.Warn("1 of %d rows was excluded because of missing values.", total)
	} else if excluded > 1 {
		res.Warn("%d of %d rows were excluded because of missing values.", excluded, total)
	}
}

// significance renders "significant" or "not significant" at alpha
func significance(p, alpha float64) string {
	if p < alpha {
		return "significant"
	}
	return "not significant"
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func labels(req *analysis.Request, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = req.Label(n)
	}
	return out
}

var (
	stat  = analysis.FormatStat
	pText = analysis.PClause
)
