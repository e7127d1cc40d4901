// Package llm provides the upstream call collaborator.
//
// The engine depends only on the Caller interface: one synchronous
// request/response per call, returning the generated text, the provider's
// reported token usage, and the observed latency. Providers are adapters
// behind this interface; the model id travels with each call because the
// router chooses a model per request.
package llm

import (
	"context"
	"time"

	"github.com/crewkit/crewkit-go/crewkit"
)

// Usage is the provider-reported token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// TotalTokens returns prompt plus completion tokens.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// Completion is the result of one upstream call.
type Completion struct {
	Text    string        `json:"text"`
	Usage   Usage         `json:"usage"`
	Latency time.Duration `json:"latency_ms"`
}

// Caller is the minimal upstream contract the engine needs.
//
// Complete sends the messages to the named model and blocks until the full
// reply is available. No streaming; the only suspension point in the engine
// is this call.
type Caller interface {
	Complete(ctx context.Context, modelID string, messages []crewkit.Message, temperature float64, maxTokens int) (*Completion, error)
}

// Mux routes calls to per-provider callers based on a model-to-provider
// mapping, so one engine can mix models from several providers in a round.
//
// Example:
//
//	mux := llm.NewMux(func(id string) string {
//	    entry, _ := reg.Lookup(id)
//	    return entry.Provider
//	})
//	mux.Register("openai", llm.NewOpenAICaller(openaiKey))
//	mux.Register("anthropic", llm.NewAnthropicCaller(anthropicKey))
type Mux struct {
	providerOf func(modelID string) string
	callers    map[string]Caller
}

// NewMux creates a mux. providerOf maps a model id to a provider name; a
// registry lookup is the usual implementation.
func NewMux(providerOf func(modelID string) string) *Mux {
	return &Mux{
		providerOf: providerOf,
		callers:    make(map[string]Caller),
	}
}

// Register attaches a caller for a provider name.
func (m *Mux) Register(provider string, caller Caller) {
	m.callers[provider] = caller
}

// Complete dispatches to the caller registered for the model's provider.
func (m *Mux) Complete(ctx context.Context, modelID string, messages []crewkit.Message, temperature float64, maxTokens int) (*Completion, error) {
	provider := m.providerOf(modelID)
	caller, ok := m.callers[provider]
	if !ok {
		return nil, &crewkit.UpstreamCallError{
			ModelID: modelID,
			Err:     &crewkit.UnknownModelError{ModelID: modelID},
		}
	}
	return caller.Complete(ctx, modelID, messages, temperature, maxTokens)
}
