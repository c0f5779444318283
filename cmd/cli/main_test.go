package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/app"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

const scores = "class,score,rating\na,1,2\na,2,3\na,3,2\na,4,1\na,5,3\nb,6,1\nb,7,2\nb,8,\nb,9,3\nb,10,1\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("PLAN_ADVANCED", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTestsCommand(t *testing.T) {
	out, _, err := execute(t, "tests")
	require.NoError(t, err)
	assert.Contains(t, out, "independent-t")
	assert.Contains(t, out, "advanced plan")

	out, _, err = execute(t, "tests", "--advanced")
	require.NoError(t, err)
	assert.NotContains(t, out, "advanced plan")
}

func TestRunWithFlags(t *testing.T) {
	data := writeFile(t, "scores.csv", scores)

	out, _, err := execute(t, "run", data, "--test", "Independent_T", "--dv", "score", "--group", "class")
	require.NoError(t, err)
	assert.Contains(t, out, "# Independent-Samples t-Test")
	assert.Contains(t, out, "Dataset: scores.csv")
	assert.Contains(t, out, "### Independent Samples Test")
}

func TestRunJSONWithRequestFile(t *testing.T) {
	data := writeFile(t, "scores.csv", scores)
	request := writeFile(t, "request.yaml", "testType: correlation\ndependentVariables: [score, rating]\noptions:\n  method: spearman\n")

	out, _, err := execute(t, "run", data, "-r", request, "--json", "--narrate")
	require.NoError(t, err)

	var outcome app.RunOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, analysis.TestCorrelation, outcome.TestType)
	require.NotNil(t, outcome.Result.Table("Correlations (Spearman)"))
	require.NotNil(t, outcome.Narrative)
	assert.Empty(t, outcome.ID)
}

func TestRunWritesHTMLReport(t *testing.T) {
	data := writeFile(t, "scores.csv", scores)
	htmlPath := filepath.Join(t.TempDir(), "report.html")

	_, _, err := execute(t, "run", data, "-t", "descriptives", "--dv", "score", "--html", htmlPath)
	require.NoError(t, err)
	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<html")
}

func TestRunReportsErrorKind(t *testing.T) {
	data := writeFile(t, "scores.csv", scores)

	_, _, err := execute(t, "run", data, "-t", "descriptives", "--dv", "height")
	require.Error(t, err)
	assert.Contains(t, err.Error(), core.KindInvalidVariable)

	_, _, err = execute(t, "run", data, "--dv", "score")
	assert.ErrorContains(t, err, "a test is required")

	_, _, err = execute(t, "run", data, "-t", "factor-analysis", "--dv", "score,rating")
	assert.ErrorContains(t, err, core.KindCapability)
}

func TestAssumptionsCommand(t *testing.T) {
	data := writeFile(t, "scores.csv", scores)

	out, _, err := execute(t, "assumptions", data, "-t", "independent-t", "--dv", "score", "-g", "class")
	require.NoError(t, err)
	assert.Contains(t, out, "normality")

	out, _, err = execute(t, "assumptions", data, "-t", "frequencies", "--dv", "class")
	require.NoError(t, err)
	assert.Contains(t, out, "no checkable assumptions")
}

func TestDescribeCommand(t *testing.T) {
	data := writeFile(t, "scores.csv", scores)

	out, _, err := execute(t, "describe", data)
	require.NoError(t, err)
	assert.Contains(t, out, "scores.csv: 10 rows, 3 columns")
	assert.Regexp(t, `rating\s+ordinal\s+1`, out)
	assert.Regexp(t, `class\s+nominal\s+0`, out)
}

func TestParseMeasures(t *testing.T) {
	got, err := parseMeasures([]string{"rating=ordinal", " age = scale"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "age", got[1].Name)

	_, err = parseMeasures([]string{"rating"})
	assert.Error(t, err)
	_, err = parseMeasures([]string{"rating=fuzzy"})
	assert.Error(t, err)
}
