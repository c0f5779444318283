package ports

import "context"

// UsageData represents raw usage data from LLM provider APIs
type UsageData struct {
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
	Model            string `json:"model"`
}

// ChatMessage is one turn of a chat completion prompt
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse is a completion with its token usage
type LLMResponse struct {
	Content string
	Usage   *UsageData
}

// LLMClient talks to an OpenAI compatible chat completion endpoint
type LLMClient interface {
	ChatCompletion(ctx context.Context, model string, messages []ChatMessage, maxTokens int) (*LLMResponse, error)
}

// UsageRecorder receives the token usage of every completion
type UsageRecorder interface {
	RecordUsage(ctx context.Context, operation string, usage *UsageData)
}
