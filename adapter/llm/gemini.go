package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/crewkit/crewkit-go/crewkit"
)

// GeminiCaller is an adapter for Google Gemini models.
//
// System messages are carried as the model's system instruction; the rest
// of the conversation maps onto Gemini's user/model roles.
type GeminiCaller struct {
	client *genai.Client
}

// NewGeminiCaller creates a Gemini adapter with the given API key.
func NewGeminiCaller(ctx context.Context, apiKey string) (*GeminiCaller, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiCaller{client: client}, nil
}

// Complete sends one generate-content request and reports text, usage, and
// latency.
func (g *GeminiCaller) Complete(ctx context.Context, modelID string, messages []crewkit.Message, temperature float64, maxTokens int) (*Completion, error) {
	model := g.client.GenerativeModel(modelID)

	temp := float32(temperature)
	model.Temperature = &temp
	if maxTokens > 0 {
		capped := int32(maxTokens)
		model.MaxOutputTokens = &capped
	}

	var parts []genai.Part
	for _, m := range messages {
		if m.Role == "system" {
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(m.Content)}}
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	var text string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
		break
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &Completion{Text: text, Usage: usage, Latency: latency}, nil
}

// Close releases the underlying client.
func (g *GeminiCaller) Close() error {
	return g.client.Close()
}
