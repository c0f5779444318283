package analysis

import (
	"strings"

	"statlab/domain/dataset"
)

// TestType identifies one entry of the analysis catalog
type TestType string

const (
	TestDescriptives       TestType = "descriptives"
	TestFrequencies        TestType = "frequencies"
	TestNormality          TestType = "normality"
	TestOneSampleT         TestType = "one-sample-t"
	TestIndependentT       TestType = "independent-t"
	TestPairedT            TestType = "paired-t"
	TestOneWayANOVA        TestType = "one-way-anova"
	TestTwoWayANOVA        TestType = "two-way-anova"
	TestMannWhitney        TestType = "mann-whitney"
	TestWilcoxon           TestType = "wilcoxon"
	TestKruskalWallis      TestType = "kruskal-wallis"
	TestFriedman           TestType = "friedman"
	TestCorrelation        TestType = "correlation"
	TestLinearRegression   TestType = "linear-regression"
	TestLogisticRegression TestType = "logistic-regression"
	TestReliability        TestType = "reliability"
	TestFactorAnalysis     TestType = "factor-analysis"
	TestChiSquare          TestType = "chi-square"
)

// ParseTestType normalizes catalog identifiers ("Independent_T" -> "independent-t")
func ParseTestType(s string) TestType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, " ", "-")
	return TestType(s)
}

// Family groups tests that share assumptions
type Family string

const (
	FamilyDescriptive   Family = "descriptive"
	FamilyGroup         Family = "group-comparison"
	FamilyNonParametric Family = "non-parametric"
	FamilyCorrelation   Family = "correlation"
	FamilyRegression    Family = "regression"
	FamilyReliability   Family = "reliability"
	FamilyCategorical   Family = "categorical"
)

// Correlation methods
const (
	MethodPearson  = "pearson"
	MethodSpearman = "spearman"
)

// Post-hoc procedures
const (
	PostHocTukey      = "tukey"
	PostHocBonferroni = "bonferroni"
	PostHocNone       = "none"
)

// Options tunes a single analysis; zero values select the defaults
type Options struct {
	Method          string   `json:"method,omitempty" yaml:"method,omitempty"`
	PostHoc         string   `json:"postHoc,omitempty" yaml:"postHoc,omitempty"`
	ConfidenceLevel float64  `json:"confidenceLevel,omitempty" yaml:"confidenceLevel,omitempty"`
	Alpha           float64  `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	SortBy          string   `json:"sortBy,omitempty" yaml:"sortBy,omitempty"`
	TestValue       *float64 `json:"testValue,omitempty" yaml:"testValue,omitempty"`
	MaxIterations   int      `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	Factors         int      `json:"factors,omitempty" yaml:"factors,omitempty"`
	Rotation        string   `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

// Confidence returns the confidence level for intervals (default .95)
func (o Options) Confidence() float64 {
	if o.ConfidenceLevel <= 0 || o.ConfidenceLevel >= 1 {
		return 0.95
	}
	return o.ConfidenceLevel
}

// Significance returns the alpha used to flag results (default .05)
func (o Options) Significance() float64 {
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return 0.05
	}
	return o.Alpha
}

// Iterations returns the iteration bound for iterative procedures
func (o Options) Iterations(def, ceiling int) int {
	if o.MaxIterations <= 0 {
		return def
	}
	if o.MaxIterations > ceiling {
		return ceiling
	}
	return o.MaxIterations
}

// CorrelationMethod returns pearson unless spearman was requested
func (o Options) CorrelationMethod() string {
	if strings.EqualFold(o.Method, MethodSpearman) {
		return MethodSpearman
	}
	return MethodPearson
}

// PostHocMethod returns the requested post-hoc procedure (default tukey)
func (o Options) PostHocMethod() string {
	switch strings.ToLower(o.PostHoc) {
	case PostHocBonferroni:
		return PostHocBonferroni
	case PostHocNone:
		return PostHocNone
	}
	return PostHocTukey
}

// Capabilities is the explicit plan flag passed by the host
type Capabilities struct {
	Advanced bool `json:"advanced" yaml:"advanced"`
}

// Request is one analysis invocation
type Request struct {
	TestType             TestType                     `json:"testType" yaml:"testType"`
	DependentVariables   []string                     `json:"dependentVariables" yaml:"dependentVariables"`
	IndependentVariables []string                     `json:"independentVariables" yaml:"independentVariables"`
	GroupingVariable     string                       `json:"groupingVariable,omitempty" yaml:"groupingVariable,omitempty"`
	Variables            []dataset.VariableDescriptor `json:"variables,omitempty" yaml:"variables,omitempty"`
	Data                 []dataset.Row                `json:"data" yaml:"-"`
	Columns              []string                     `json:"columns,omitempty" yaml:"-"`
	Options              Options                      `json:"options" yaml:"options"`
	Capabilities         Capabilities                 `json:"capabilities" yaml:"capabilities"`
}

// Dataset wraps the request rows, honouring an explicit column order when given
func (r *Request) Dataset() *dataset.Dataset {
	if len(r.Columns) > 0 {
		return dataset.NewWithColumns(r.Columns, r.Data)
	}
	return dataset.New(r.Data)
}

// Measure returns the caller supplied measure of name, or fallback
func (r *Request) Measure(name string, fallback dataset.Measure) dataset.Measure {
	for _, v := range r.Variables {
		if v.Name == name && v.Measure != "" {
			return v.Measure
		}
	}
	return fallback
}

// Label returns the display label of a variable
func (r *Request) Label(name string) string {
	for _, v := range r.Variables {
		if v.Name == name && v.Label != "" {
			return v.Label
		}
	}
	return name
}

// ReferencedVariables lists every variable name the request uses, without duplicates
func (r *Request) ReferencedVariables() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, n := range r.DependentVariables {
		add(n)
	}
	for _, n := range r.IndependentVariables {
		add(n)
	}
	add(r.GroupingVariable)
	return names
}

// AssumptionResult reports one assumption check
type AssumptionResult struct {
	Name           string  `json:"name"`
	Passed         bool    `json:"passed"`
	Value          float64 `json:"value"`
	Threshold      float64 `json:"threshold"`
	Interpretation string  `json:"interpretation"`
	Recommendation string  `json:"recommendation"`
}

// Assumption names
const (
	AssumptionNormality         = "normality"
	AssumptionHomogeneity       = "homogeneity of variance"
	AssumptionLinearity         = "linearity"
	AssumptionMulticollinearity = "multicollinearity"
)

// CatalogEntry describes a registered test for the UI
type CatalogEntry struct {
	TestType    TestType `json:"testType"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Family      Family   `json:"family"`
	Advanced    bool     `json:"advanced"`
}
