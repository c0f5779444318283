package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"statlab/ports"
)

const defaultBaseURL = "https://api.openai.com/v1"

// newLLMClient creates an LLM client based on config
func newLLMClient(config Config) (ports.LLMClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing LLM API key")
	}

	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		APIKey:      config.APIKey,
		BaseURL:     baseURL,
		Temperature: config.Temperature,
		HTTPClient:  &http.Client{Timeout: timeout},
	}, nil
}

// OpenAIClient implements ports.LLMClient for OpenAI compatible chat endpoints
type OpenAIClient struct {
	APIKey      string
	BaseURL     string
	Temperature float64
	HTTPClient  *http.Client
}

type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []ports.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// ChatCompletion sends one chat completion request and extracts the first choice
func (c *OpenAIClient) ChatCompletion(ctx context.Context, model string, messages []ports.ChatMessage, maxTokens int) (*ports.LLMResponse, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("missing model")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	raw, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
			return nil, fmt.Errorf("llm http %d: %s", resp.StatusCode, msg.String())
		}
		return nil, fmt.Errorf("llm http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("llm response is not valid JSON")
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return nil, fmt.Errorf("llm response missing choices")
	}

	out := &ports.LLMResponse{Content: strings.TrimSpace(content.String())}
	if usage := gjson.GetBytes(body, "usage"); usage.Exists() {
		out.Usage = &ports.UsageData{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
			Model:            gjson.GetBytes(body, "model").String(),
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
