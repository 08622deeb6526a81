// Package llm provides LLM client interfaces and implementations used to
// enrich dialogue prompts. The state machine never depends on them for
// progression.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paintquote-ai/quote-platform/pkg/metrics"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}

const enrichSystemPrompt = "You help a painting contractor collect quote details. Restate the given question in one short, friendly sentence. Ask for exactly the same information; do not add questions or change what is being asked."

// PromptEnricher rewrites static step prompts through an LLM client. Any
// failure surfaces to the caller, which falls back to the static prompt.
type PromptEnricher struct {
	client Client
}

// NewPromptEnricher wraps a client for prompt enrichment.
func NewPromptEnricher(client Client) *PromptEnricher {
	return &PromptEnricher{client: client}
}

// EnrichPrompt asks the model to restate a step prompt. It is read-only
// with respect to dialogue state.
func (e *PromptEnricher) EnrichPrompt(ctx context.Context, prompt string, context map[string]string) (string, error) {
	start := time.Now()

	var sb strings.Builder
	sb.WriteString(enrichSystemPrompt)
	if len(context) > 0 {
		sb.WriteString("\nKnown context:")
		for k, v := range context {
			fmt.Fprintf(&sb, " %s=%s;", k, v)
		}
	}

	resp, err := e.client.Complete(ctx, &CompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: sb.String()},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 200,
	})
	if err != nil {
		metrics.RecordEnrichment(e.client.Name(), "error", time.Since(start).Seconds())
		return "", err
	}

	metrics.RecordEnrichment(e.client.Name(), "success", time.Since(start).Seconds())
	return strings.TrimSpace(resp.Content), nil
}
