// Package crewkit provides the core types shared across the crewkit engine.
//
// The engine routes and batches AI-model calls on behalf of multiple "crew
// member" personas under a hard daily budget. This package defines the
// request/result shapes, the intent and complexity classifications, and the
// error taxonomy; the behavior lives in the registry, estimate, router,
// batch, and ledger packages.
package crewkit

import (
	"time"
)

// Intent classifies what a request is asking the model to do.
//
// The router gives three intents special treatment (REVIEW, DEBUG, REFACTOR);
// the rest fall through to complexity tiering. The estimator sizes expected
// output per intent.
type Intent string

const (
	IntentGeneral  Intent = "GENERAL"
	IntentGenerate Intent = "GENERATE"
	IntentReview   Intent = "REVIEW"
	IntentDebug    Intent = "DEBUG"
	IntentRefactor Intent = "REFACTOR"
	IntentTest     Intent = "TEST"
	IntentExplain  Intent = "EXPLAIN"
)

// Complexity is the LOW/MEDIUM/HIGH tier of a request.
//
// Complexity scales the expected output token budget; it deliberately does
// not escalate the model choice past the balanced tier (quality ceiling is
// fixed, only token budget scales).
type Complexity string

const (
	ComplexityLow    Complexity = "LOW"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHigh   Complexity = "HIGH"
)

// Classification is the output of the intent/complexity classifier
// collaborator.
type Classification struct {
	Intent     Intent     `json:"intent"`
	Complexity Complexity `json:"complexity"`
	Language   string     `json:"language,omitempty"`
}

// Message is one role-tagged message in an upstream conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// PersonaRequest is one logical participant's request in a coordination
// round. UserRequest is identical across all personas of one round; each
// persona answers it from its own role described by SystemPrompt.
//
// Fields:
//   - PersonaID: Stable identifier, used as the delimiter-protocol key
//   - PersonaName: Display name, included in composed prompts
//   - SystemPrompt: The persona's role instructions
//   - UserRequest: The shared question for this round
//   - Intent: Optional pre-classified intent ("" = classify/route by complexity)
//   - Complexity: Request complexity tier
//   - Temperature: Sampling temperature; rounded to 2 decimals for grouping
//   - MaxTokens: Optional per-persona output cap (0 = estimator default)
//   - SelectedCode: Optional code selection included in token estimation
//   - FileContent: Optional file context included in token estimation
type PersonaRequest struct {
	PersonaID    string     `json:"persona_id"`
	PersonaName  string     `json:"persona_name"`
	SystemPrompt string     `json:"system_prompt"`
	UserRequest  string     `json:"user_request"`
	Intent       Intent     `json:"intent,omitempty"`
	Complexity   Complexity `json:"complexity,omitempty"`
	Temperature  float64    `json:"temperature"`
	MaxTokens    int        `json:"max_tokens,omitempty"`
	SelectedCode string     `json:"selected_code,omitempty"`
	FileContent  string     `json:"file_content,omitempty"`
}

// ExecutionKind tags how a persona's result was produced.
type ExecutionKind string

const (
	// ExecutionIndividual means the persona got its own upstream call.
	ExecutionIndividual ExecutionKind = "individual"
	// ExecutionBatched means the persona's answer was split out of a
	// combined multi-persona upstream call.
	ExecutionBatched ExecutionKind = "batched"
)

// PersonaResult is the per-persona outcome of one round. Exactly one exists
// per requested persona per round; the batching and fallback machinery must
// not drop or duplicate a persona.
type PersonaResult struct {
	PersonaID        string        `json:"persona_id"`
	ResponseText     string        `json:"response_text"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	CostUSD          float64       `json:"cost_usd"`
	ModelUsed        string        `json:"model_used"`
	ExecutionKind    ExecutionKind `json:"execution_kind"`
	Latency          time.Duration `json:"latency_ms"`
}

// CostEstimate is a pre-flight estimate for a not-yet-executed request.
//
// Alternatives lists up to three models strictly cheaper than the selected
// one for the same token estimate, sorted by savings descending.
type CostEstimate struct {
	ModelID               string        `json:"model_id"`
	EstimatedInputTokens  int           `json:"estimated_input_tokens"`
	EstimatedOutputTokens int           `json:"estimated_output_tokens"`
	EstimatedCostUSD      float64       `json:"estimated_cost_usd"`
	Alternatives          []Alternative `json:"alternatives,omitempty"`
	WithinBudget          bool          `json:"within_budget"`
	RejectionReason       string        `json:"rejection_reason,omitempty"`
}

// Alternative is a cheaper model candidate for the same token estimate.
type Alternative struct {
	ModelID    string  `json:"model_id"`
	CostUSD    float64 `json:"cost_usd"`
	SavingsUSD float64 `json:"savings_usd"`
}
