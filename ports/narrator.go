package ports

import (
	"context"

	"statlab/domain/analysis"
	"statlab/domain/core"
)

// Narrative source identifiers
const (
	NarrativeLLM       = "llm"
	NarrativeHeuristic = "heuristic"
)

// Narrative is the plain-language interpretation of one result
type Narrative struct {
	Text   string     `json:"text"`
	Source string     `json:"source"`
	Model  string     `json:"model,omitempty"`
	Usage  *UsageData `json:"usage,omitempty"`

	// PromptHash identifies the prompt for replay; empty for the heuristic narrator
	PromptHash core.Hash `json:"promptHash,omitempty"`
}

// Narrator turns an analysis result into prose. Implementations never
// change the numbers, they only describe them.
type Narrator interface {
	Narrate(ctx context.Context, req *analysis.Request, res *analysis.Result) (*Narrative, error)
}
