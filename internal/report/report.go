// Package report renders analysis results as Markdown and standalone HTML.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"statlab/domain/analysis"
)

// Document is everything that goes into one report
type Document struct {
	Title       string
	Dataset     string
	RowCount    int
	CreatedAt   time.Time
	Result      *analysis.Result
	Narrative   string
	Assumptions []analysis.AssumptionResult
}

const stylesheet = `<style>
body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;max-width:60rem;margin:2rem auto;color:#222}
table{border-collapse:collapse;margin:1rem 0}
th,td{border-top:1px solid #999;border-bottom:1px solid #999;padding:.25rem .75rem;text-align:right}
th:first-child,td:first-child{text-align:left}
em{color:#555}
</style>`

// Markdown renders the document as GitHub flavoured Markdown
func Markdown(doc Document) string {
	var b strings.Builder
	title := doc.Title
	if title == "" && doc.Result != nil {
		title = string(doc.Result.TestType)
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(title))

	var meta []string
	if doc.Dataset != "" {
		meta = append(meta, "Dataset: "+escape(doc.Dataset))
	}
	if doc.RowCount > 0 {
		meta = append(meta, fmt.Sprintf("Rows: %d", doc.RowCount))
	}
	if !doc.CreatedAt.IsZero() {
		meta = append(meta, "Run: "+doc.CreatedAt.UTC().Format(time.RFC3339))
	}
	if len(meta) > 0 {
		b.WriteString("*" + strings.Join(meta, " · ") + "*\n\n")
	}

	if doc.Result != nil && doc.Result.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(escape(doc.Result.Summary) + "\n\n")
	}
	if strings.TrimSpace(doc.Narrative) != "" {
		b.WriteString("## Interpretation\n\n")
		b.WriteString(strings.TrimSpace(doc.Narrative) + "\n\n")
	}
	if len(doc.Assumptions) > 0 {
		b.WriteString("## Assumption Checks\n\n")
		b.WriteString(AssumptionsMarkdown(doc.Assumptions))
	}
	if doc.Result != nil {
		b.WriteString(ResultMarkdown(doc.Result))
	}
	return b.String()
}

// ResultMarkdown renders the tables of a result, three decimals per statistic
func ResultMarkdown(res *analysis.Result) string {
	var b strings.Builder
	for _, t := range res.Tables {
		fmt.Fprintf(&b, "### %s\n\n", escape(t.Title))
		if len(t.Headers) == 0 {
			continue
		}
		headers := make([]string, len(t.Headers))
		aligns := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			headers[i] = escape(h)
			aligns[i] = "---:"
		}
		aligns[0] = ":---"
		b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
		b.WriteString("| " + strings.Join(aligns, " | ") + " |\n")
		for _, row := range t.Rows {
			cells := make([]string, len(t.Headers))
			for i, h := range t.Headers {
				cells[i] = escape(analysis.FormatCell(row[h]))
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
		b.WriteString("\n")
		for _, note := range t.Footnotes {
			b.WriteString("*" + escape(note) + "*\n\n")
		}
	}
	for _, w := range res.Warnings {
		b.WriteString("> " + escape(w) + "\n\n")
	}
	return b.String()
}

// AssumptionsMarkdown renders assumption checks as a table
func AssumptionsMarkdown(checks []analysis.AssumptionResult) string {
	var b strings.Builder
	b.WriteString("| Check | Result | Value | Threshold | Interpretation |\n")
	b.WriteString("| :--- | :--- | ---: | ---: | :--- |\n")
	for _, c := range checks {
		status := "passed"
		if !c.Passed {
			status = "violated"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			escape(c.Name), status, analysis.FormatCell(c.Value), analysis.FormatCell(c.Threshold), escape(c.Interpretation))
	}
	b.WriteString("\n")
	for _, c := range checks {
		if !c.Passed && c.Recommendation != "" {
			b.WriteString("- " + escape(c.Recommendation) + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

// HTML renders the document as a complete HTML page
func HTML(doc Document) []byte {
	md := Markdown(doc)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	title := doc.Title
	if title == "" && doc.Result != nil {
		title = string(doc.Result.TestType)
	}
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
		Head:  []byte(stylesheet),
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

// escape neutralizes the characters that would break a table cell or start markup
func escape(s string) string {
	r := strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "<", "&lt;", ">", "&gt;", "\n", " ")
	return r.Replace(s)
}
