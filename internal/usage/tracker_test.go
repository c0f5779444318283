package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlab/ports"
)

func TestRecordUsageAggregates(t *testing.T) {
	tr := NewTracker(nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }
	ctx := context.Background()

	tr.RecordUsage(ctx, OperationNarrative, &ports.UsageData{Model: "gpt-b", PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120})
	tr.RecordUsage(ctx, OperationNarrative, &ports.UsageData{Model: "gpt-b", PromptTokens: 50, CompletionTokens: 10})
	tr.RecordUsage(ctx, OperationNarrative, &ports.UsageData{Model: "gpt-a", PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10})

	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "gpt-a", snap[0].Model)
	assert.Equal(t, Totals{
		Model: "gpt-b", Operation: OperationNarrative, Calls: 2,
		PromptTokens: 150, CompletionTokens: 30, TotalTokens: 180, LastUsed: fixed,
	}, snap[1])
	assert.Equal(t, 190, tr.TotalTokens())
}

func TestRecordUsageIgnoresInvalid(t *testing.T) {
	tr := NewTracker(nil)
	tr.RecordUsage(context.Background(), OperationNarrative, nil)
	tr.RecordUsage(context.Background(), OperationNarrative, &ports.UsageData{Model: "m", PromptTokens: -1})
	assert.Empty(t, tr.Snapshot())
}

func TestRecordUsageConcurrent(t *testing.T) {
	tr := NewTracker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordUsage(context.Background(), OperationNarrative, &ports.UsageData{Model: "m", TotalTokens: 2})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, tr.TotalTokens())
	assert.Equal(t, 50, tr.Snapshot()[0].Calls)
}
