package heuristic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/domain/analysis"
	"statlab/ports"
)

func narrate(t *testing.T, summary string, warnings ...string) string {
	t.Helper()
	res := analysis.NewResult(analysis.TestIndependentT)
	res.Warnings = warnings
	res.Summary = summary
	out, err := NewNarrator().Narrate(context.Background(), &analysis.Request{}, res)
	require.NoError(t, err)
	assert.Equal(t, ports.NarrativeHeuristic, out.Source)
	return out.Text
}

func TestNarrateSignificantLargeEffect(t *testing.T) {
	text := narrate(t, "Student's t-test: score differs significantly between a (M = 3.000) and b (M = 8.000), t(8) = -5.000, p = .001, d = -3.162.")

	assert.Contains(t, text, "Student's t-test")
	assert.Contains(t, text, "statistically significant")
	assert.NotContains(t, text, "not statistically significant")
	assert.Contains(t, text, "(d = -3.162) is large")
}

func TestNarrateStrictPValue(t *testing.T) {
	text := narrate(t, "x and y are strongly correlated (r = 1.000, p < .001, N = 5).")

	assert.Contains(t, text, "statistically significant")
	assert.Contains(t, text, "(r = 1.000) is large")
}

func TestNarrateNotSignificant(t *testing.T) {
	text := narrate(t, "One-way ANOVA: score differs not significantly across the 3 groups of g, F(2, 12) = 1.100, p = .364, eta squared = .040.",
		"Groups are unbalanced.", "Levene's test is significant.")

	assert.Contains(t, text, "not statistically significant")
	assert.Contains(t, text, "(eta squared = .040) is small")
	assert.Contains(t, text, "2 caveats were raised")
}

func TestNarrateWithoutStatistics(t *testing.T) {
	text := narrate(t, "score has a mean of 5.500.")
	assert.Equal(t, "score has a mean of 5.500.", text)

	_, err := NewNarrator().Narrate(context.Background(), nil, nil)
	assert.Error(t, err)
}
