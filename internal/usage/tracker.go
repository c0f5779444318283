package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"statlab/internal"
	"statlab/ports"
)

// Operation types recorded by the narrators
const (
	OperationNarrative = "narrative"
)

// Totals aggregates the usage of one model and operation
type Totals struct {
	Model            string    `json:"model"`
	Operation        string    `json:"operation"`
	Calls            int       `json:"calls"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	LastUsed         time.Time `json:"lastUsed"`
}

// Tracker accumulates LLM token usage for the lifetime of the process.
// It implements ports.UsageRecorder.
type Tracker struct {
	mu     sync.Mutex
	totals map[string]*Totals
	now    func() time.Time
	logger *internal.Logger
}

// NewTracker creates an empty tracker
func NewTracker(logger *internal.Logger) *Tracker {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Tracker{
		totals: make(map[string]*Totals),
		now:    time.Now,
		logger: logger,
	}
}

// RecordUsage adds one completion. Invalid usage is logged and dropped so
// tracking never fails the caller.
func (t *Tracker) RecordUsage(ctx context.Context, operation string, usage *ports.UsageData) {
	if usage == nil {
		t.logger.Debug("[UsageTracker] no usage reported for %s", operation)
		return
	}
	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 || usage.TotalTokens < 0 {
		t.logger.Warn("[UsageTracker] invalid token counts: %+v", *usage)
		return
	}

	total := usage.TotalTokens
	if total == 0 {
		total = usage.PromptTokens + usage.CompletionTokens
	}

	key := usage.Model + "\x00" + operation
	t.mu.Lock()
	defer t.mu.Unlock()
	agg, ok := t.totals[key]
	if !ok {
		agg = &Totals{Model: usage.Model, Operation: operation}
		t.totals[key] = agg
	}
	agg.Calls++
	agg.PromptTokens += usage.PromptTokens
	agg.CompletionTokens += usage.CompletionTokens
	agg.TotalTokens += total
	agg.LastUsed = t.now()
}

// Snapshot returns the totals ordered by model then operation
func (t *Tracker) Snapshot() []Totals {
	t.mu.Lock()
	out := make([]Totals, 0, len(t.totals))
	for _, agg := range t.totals {
		out = append(out, *agg)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// TotalTokens sums every recorded completion
func (t *Tracker) TotalTokens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum := 0
	for _, agg := range t.totals {
		sum += agg.TotalTokens
	}
	return sum
}
