package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/internal"
	"statlab/internal/report"
	"statlab/internal/usage"
	"statlab/ports"
)

// Config holds LLM adapter configuration
type Config struct {
	Model               string        // e.g. "gpt-4o-mini"
	APIKey              string        // bearer token for the endpoint
	BaseURL             string        // optional override (default: https://api.openai.com/v1)
	Temperature         float64       // lower is more deterministic
	MaxTokens           int           // max tokens in the response
	Timeout             time.Duration // per request
	FallbackToHeuristic bool          // use the fallback narrator on any error
	PromptsDir          string        // optional directory overriding the embedded prompts
}

// Narrator implements ports.Narrator with a chat completion model
type Narrator struct {
	config   Config
	client   ports.LLMClient
	prompts  *PromptManager
	fallback ports.Narrator
	usage    ports.UsageRecorder
	logger   *internal.Logger
}

// NewNarrator creates a narrator talking to the configured endpoint
func NewNarrator(config Config, fallback ports.Narrator, logger *internal.Logger) (*Narrator, error) {
	client, err := newLLMClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewNarratorWithClient(config, client, fallback, logger), nil
}

// NewNarratorWithClient wires a narrator to an existing client
func NewNarratorWithClient(config Config, client ports.LLMClient, fallback ports.Narrator, logger *internal.Logger) *Narrator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Narrator{
		config:   config,
		client:   client,
		prompts:  NewPromptManager(config.PromptsDir),
		fallback: fallback,
		logger:   logger,
	}
}

// WithUsageRecorder reports the token usage of every completion to r
func (n *Narrator) WithUsageRecorder(r ports.UsageRecorder) *Narrator {
	n.usage = r
	return n
}

// Narrate asks the model to interpret res
func (n *Narrator) Narrate(ctx context.Context, req *analysis.Request, res *analysis.Result) (*ports.Narrative, error) {
	if res == nil {
		return nil, fmt.Errorf("no result to narrate")
	}
	if n.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
	}

	system, prompt, err := n.BuildPrompt(req, res)
	if err != nil {
		return nil, err
	}
	promptHash := core.NewHash([]byte(system + "\n" + prompt))

	resp, err := n.client.ChatCompletion(ctx, n.config.Model, []ports.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}, n.config.MaxTokens)
	if err == nil && resp != nil && n.usage != nil {
		n.usage.RecordUsage(ctx, usage.OperationNarrative, resp.Usage)
	}
	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = fmt.Errorf("empty completion")
	}
	if err != nil {
		if n.config.FallbackToHeuristic && n.fallback != nil {
			n.logger.Warn("[Narrator] model %s failed (%v), using fallback narrator", n.config.Model, err)
			return n.fallback.Narrate(ctx, req, res)
		}
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	n.logger.Debug("[Narrator] %s narrated with %s (prompt %s)", res.TestType, n.config.Model, promptHash.Short())
	return &ports.Narrative{
		Text:       resp.Content,
		Source:     ports.NarrativeLLM,
		Model:      n.config.Model,
		Usage:      resp.Usage,
		PromptHash: promptHash,
	}, nil
}

// BuildPrompt renders the system and user prompts for res
func (n *Narrator) BuildPrompt(req *analysis.Request, res *analysis.Result) (system, user string, err error) {
	alpha := 0.05
	if req != nil {
		alpha = req.Options.Significance()
	}
	system, err = n.prompts.RenderPrompt(PromptNarrativeSystem, map[string]string{
		"ALPHA": strconv.FormatFloat(alpha, 'g', 3, 64),
	})
	if err != nil {
		return "", "", err
	}

	var warnings string
	if len(res.Warnings) > 0 {
		warnings = "Warnings:\n- " + strings.Join(res.Warnings, "\n- ") + "\n"
	}
	user, err = n.prompts.RenderPrompt(PromptNarrativeUser, map[string]string{
		"CONTEXT":  promptContext(req, res),
		"SUMMARY":  res.Summary,
		"TABLES":   report.ResultMarkdown(res),
		"WARNINGS": warnings,
	})
	return system, user, err
}

// promptContext lists the analysis and the variables it used
func promptContext(req *analysis.Request, res *analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis: %s\n", res.TestType)
	if req != nil {
		if len(req.DependentVariables) > 0 {
			fmt.Fprintf(&b, "Dependent variables: %s\n", labels(req, req.DependentVariables))
		}
		if len(req.IndependentVariables) > 0 {
			fmt.Fprintf(&b, "Independent variables: %s\n", labels(req, req.IndependentVariables))
		}
		if req.GroupingVariable != "" {
			fmt.Fprintf(&b, "Grouping variable: %s\n", req.Label(req.GroupingVariable))
		}
		fmt.Fprintf(&b, "Alpha: %.3g\n", req.Options.Significance())
	}
	if res.N > 0 {
		fmt.Fprintf(&b, "Valid cases: %d\n", res.N)
	}
	return b.String()
}

func labels(req *analysis.Request, names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = req.Label(n)
	}
	return strings.Join(out, ", ")
}
