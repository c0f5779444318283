package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"statlab/domain/analysis"
)

func sampleResult() *analysis.Result {
	res := analysis.NewResult(analysis.TestIndependentT)
	res.AddTable(analysis.NewTable("Independent Samples Test", "Variances", "t", "df", "Sig. (2-tailed)")).
		AddRow("Equal variances assumed", -5.0, 8.0, 0.001052).
		AddRow("Equal variances not assumed", -5.0, 8.0, math.NaN()).
		Note("Welch | correction")
	res.Warn("Small sample.")
	res.SetSummary("t(8) = -5.000, p = .001.")
	return res
}

func TestResultMarkdown(t *testing.T) {
	md := ResultMarkdown(sampleResult())

	assert.Contains(t, md, "### Independent Samples Test")
	assert.Contains(t, md, "| Variances | t | df | Sig. (2-tailed) |")
	assert.Contains(t, md, "| :--- | ---: | ---: | ---: |")
	assert.Contains(t, md, "| Equal variances assumed | -5 | 8 | 0.001 |")
	assert.Contains(t, md, `*Welch \| correction*`)
	assert.Contains(t, md, "> Small sample.")
}

func TestMarkdownDocument(t *testing.T) {
	doc := Document{
		Title:     "Exam scores",
		Dataset:   "scores_2024.csv",
		RowCount:  10,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Result:    sampleResult(),
		Narrative: "The treatment group scored higher.",
		Assumptions: []analysis.AssumptionResult{
			{Name: analysis.AssumptionNormality, Passed: false, Value: 0.01, Threshold: 0.05,
				Interpretation: "not normal", Recommendation: "Use Mann-Whitney."},
		},
	}
	md := Markdown(doc)

	assert.True(t, strings.HasPrefix(md, "# Exam scores\n"))
	assert.Contains(t, md, `scores\_2024.csv`)
	assert.Contains(t, md, "Run: 2024-03-01T12:00:00Z")
	assert.Contains(t, md, "## Interpretation\n\nThe treatment group scored higher.")
	assert.Contains(t, md, "| normality | violated |")
	assert.Contains(t, md, "- Use Mann-Whitney.")
}

func TestHTML(t *testing.T) {
	out := string(HTML(Document{Title: "Run", Result: sampleResult()}))

	assert.Contains(t, out, "<title>Run</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "Independent Samples Test")
	assert.Contains(t, out, "border-collapse")
}
