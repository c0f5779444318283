package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"statlab/domain/analysis"
	"statlab/domain/dataset"
)

// requestFlags collects the analysis request from a request file and flags.
// Flags override the file.
type requestFlags struct {
	file       string
	testType   string
	dependent  []string
	predictors []string
	group      string
	measures   []string
	method     string
	postHoc    string
	alpha      float64
	confidence float64
	testValue  float64
	factors    int
	rotation   string
	iterations int
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "request", "r", "", "YAML or JSON request file (data comes from the dataset argument)")
	fs.StringVarP(&f.testType, "test", "t", "", "Test identifier (see the tests command)")
	fs.StringSliceVar(&f.dependent, "dv", nil, "Dependent variables (comma separated)")
	fs.StringSliceVar(&f.predictors, "iv", nil, "Independent variables (comma separated)")
	fs.StringVarP(&f.group, "group", "g", "", "Grouping variable")
	fs.StringSliceVar(&f.measures, "measure", nil, "Override an inferred measure, e.g. --measure rating=ordinal")
	fs.StringVar(&f.method, "method", "", "Correlation method: pearson|spearman")
	fs.StringVar(&f.postHoc, "post-hoc", "", "Post-hoc procedure: tukey|bonferroni|none")
	fs.Float64Var(&f.alpha, "alpha", 0, "Significance level (default .05)")
	fs.Float64Var(&f.confidence, "confidence", 0, "Confidence level for intervals (default .95)")
	fs.Float64Var(&f.testValue, "test-value", 0, "Test value for the one-sample t test")
	fs.IntVar(&f.factors, "factors", 0, "Number of factors to extract")
	fs.StringVar(&f.rotation, "rotation", "", "Factor rotation: varimax|none")
	fs.IntVar(&f.iterations, "max-iterations", 0, "Iteration bound for iterative procedures")
}

// build merges the request file, the flags and the dataset into one request
func (f *requestFlags) build(cmd *cobra.Command, upload *dataset.Upload) (*analysis.Request, error) {
	req := &analysis.Request{}
	if f.file != "" {
		loaded, err := loadRequestFile(f.file)
		if err != nil {
			return nil, err
		}
		req = loaded
	}

	fs := cmd.Flags()
	if f.testType != "" {
		req.TestType = analysis.ParseTestType(f.testType)
	}
	if fs.Changed("dv") {
		req.DependentVariables = f.dependent
	}
	if fs.Changed("iv") {
		req.IndependentVariables = f.predictors
	}
	if f.group != "" {
		req.GroupingVariable = f.group
	}
	if f.method != "" {
		req.Options.Method = f.method
	}
	if f.postHoc != "" {
		req.Options.PostHoc = f.postHoc
	}
	if fs.Changed("alpha") {
		req.Options.Alpha = f.alpha
	}
	if fs.Changed("confidence") {
		req.Options.ConfidenceLevel = f.confidence
	}
	if fs.Changed("test-value") {
		v := f.testValue
		req.Options.TestValue = &v
	}
	if f.factors > 0 {
		req.Options.Factors = f.factors
	}
	if f.rotation != "" {
		req.Options.Rotation = f.rotation
	}
	if f.iterations > 0 {
		req.Options.MaxIterations = f.iterations
	}
	if req.TestType == "" {
		return nil, fmt.Errorf("a test is required (--test or testType in the request file)")
	}

	overrides, err := parseMeasures(f.measures)
	if err != nil {
		return nil, err
	}
	// explicit descriptors first so they win over the inferred ones
	req.Variables = append(append(overrides, req.Variables...), upload.Variables...)
	req.Data = upload.Rows
	req.Columns = upload.Columns
	return req, nil
}

func loadRequestFile(path string) (*analysis.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	var req analysis.Request
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request file %s: %w", path, err)
	}
	if req.TestType != "" {
		req.TestType = analysis.ParseTestType(string(req.TestType))
	}
	return &req, nil
}

func parseMeasures(pairs []string) ([]dataset.VariableDescriptor, error) {
	out := make([]dataset.VariableDescriptor, 0, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --measure %q, expected name=measure", pair)
		}
		m, err := dataset.ParseMeasure(value)
		if err != nil {
			return nil, err
		}
		out = append(out, dataset.VariableDescriptor{Name: strings.TrimSpace(name), Measure: m})
	}
	return out, nil
}
