package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/crewkit/crewkit-go/crewkit"
)

// OpenAICaller is an adapter for OpenAI chat models.
//
// Wraps the go-openai SDK behind the Caller interface. The model id is
// supplied per call; the same caller serves every OpenAI model in the
// registry.
//
// Example:
//
//	caller := llm.NewOpenAICaller("sk-...")
//	completion, err := caller.Complete(ctx, "gpt-4o", messages, 0.7, 1024)
type OpenAICaller struct {
	client *openai.Client
}

// NewOpenAICaller creates an OpenAI adapter with the given API key.
func NewOpenAICaller(apiKey string) *OpenAICaller {
	return &OpenAICaller{client: openai.NewClient(apiKey)}
}

// NewOpenAICallerWithBaseURL creates an adapter pointed at an
// OpenAI-compatible endpoint (proxies, local servers).
func NewOpenAICallerWithBaseURL(apiKey, baseURL string) *OpenAICaller {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAICaller{client: openai.NewClientWithConfig(cfg)}
}

// Complete sends one chat completion request and reports text, usage, and
// latency.
func (o *OpenAICaller) Complete(ctx context.Context, modelID string, messages []crewkit.Message, temperature float64, maxTokens int) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       modelID,
		Messages:    convertToOpenAI(messages),
		Temperature: float32(temperature),
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return &Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
		Latency: latency,
	}, nil
}

func convertToOpenAI(messages []crewkit.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
