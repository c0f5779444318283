package heuristic

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"statlab/domain/analysis"
	"statlab/ports"
)

// Narrator interprets results with fixed rules, no model involved
type Narrator struct{}

// NewNarrator creates a new heuristic narrator
func NewNarrator() *Narrator {
	return &Narrator{}
}

var (
	pPattern      = regexp.MustCompile(`\bp ([=<]) (-?[0-9]*\.[0-9]+)`)
	effectPattern = regexp.MustCompile(`(?:^|[ (,])(d|dz|r|rho|eta squared|epsilon squared|Kendall's W|phi|Cramer's V|R squared) = (-?[0-9]*\.?[0-9]+)`)
)

// effectBands are Cohen style small/medium/large cut-offs per effect size
var effectBands = map[string][3]float64{
	"d":               {0.2, 0.5, 0.8},
	"dz":              {0.2, 0.5, 0.8},
	"r":               {0.1, 0.3, 0.5},
	"rho":             {0.1, 0.3, 0.5},
	"phi":             {0.1, 0.3, 0.5},
	"Cramer's V":      {0.1, 0.3, 0.5},
	"Kendall's W":     {0.1, 0.3, 0.5},
	"eta squared":     {0.01, 0.06, 0.14},
	"epsilon squared": {0.01, 0.06, 0.14},
	"R squared":       {0.02, 0.13, 0.26},
}

// Narrate explains the headline statistic of res in plain language
func (n *Narrator) Narrate(ctx context.Context, req *analysis.Request, res *analysis.Result) (*ports.Narrative, error) {
	if res == nil {
		return nil, fmt.Errorf("no result to narrate")
	}
	alpha := 0.05
	if req != nil {
		alpha = req.Options.Significance()
	}

	var paragraphs []string
	if res.Summary != "" {
		paragraphs = append(paragraphs, res.Summary)
	}
	if s := significanceSentence(res.Summary, alpha); s != "" {
		paragraphs = append(paragraphs, s)
	}
	if s := effectSentence(res.Summary); s != "" {
		paragraphs = append(paragraphs, s)
	}
	switch len(res.Warnings) {
	case 0:
	case 1:
		paragraphs = append(paragraphs, "One caveat was raised; read the result with it in mind.")
	default:
		paragraphs = append(paragraphs, fmt.Sprintf("%d caveats were raised; read the result with them in mind.", len(res.Warnings)))
	}

	return &ports.Narrative{
		Text:   strings.Join(paragraphs, " "),
		Source: ports.NarrativeHeuristic,
	}, nil
}

// headlineP returns the first p-value quoted in the summary; strict is true for "p < x"
func headlineP(summary string) (p float64, strict bool, ok bool) {
	m := pPattern.FindStringSubmatch(summary)
	if m == nil {
		return 0, false, false
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false, false
	}
	return v, m[1] == "<", true
}

func significanceSentence(summary string, alpha float64) string {
	p, strict, ok := headlineP(summary)
	if !ok {
		return ""
	}
	if p < alpha || (strict && p <= alpha) {
		return fmt.Sprintf("With alpha = %s the result is statistically significant, so chance alone is an unlikely explanation for the pattern.", trim(alpha))
	}
	return fmt.Sprintf("With alpha = %s the result is not statistically significant; the data do not provide enough evidence against the null hypothesis.", trim(alpha))
}

func effectSentence(summary string) string {
	m := effectPattern.FindStringSubmatch(summary)
	if m == nil {
		return ""
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return ""
	}
	bands, ok := effectBands[m[1]]
	if !ok {
		return ""
	}
	return fmt.Sprintf("The effect size (%s = %s) is %s by conventional benchmarks.", m[1], m[2], magnitude(math.Abs(v), bands))
}

func magnitude(v float64, bands [3]float64) string {
	switch {
	case v >= bands[2]:
		return "large"
	case v >= bands[1]:
		return "medium"
	case v >= bands[0]:
		return "small"
	default:
		return "negligible"
	}
}

func trim(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return strings.TrimPrefix(s, "0")
}
