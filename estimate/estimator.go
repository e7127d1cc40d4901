// Package estimate provides pre-flight token and cost estimation.
//
// Token counts are heuristic (character-ratio based, no real tokenizer) and
// intentionally cheap: the estimator exists to pre-flight budget checks and
// rank alternatives, not to bill. After each actual call the estimator
// records estimate-vs-actual accuracy per model; the rolling accuracy feeds
// a reported confidence number only and never re-calibrates the heuristic.
package estimate

import (
	"math"
	"sync"

	"github.com/crewkit/crewkit-go/crewkit"
	"github.com/crewkit/crewkit-go/registry"
)

const (
	// Character-to-token ratios for the input heuristic.
	promptCharsPerToken = 3.5
	codeCharsPerToken   = 2.0
	fileCharsPerToken   = 3.0

	// Prompt overhead and floors/caps.
	systemPromptOverhead = 100
	minInputTokens       = 50
	maxFileChars         = 5000

	// Output sizing per intent.
	baseOutputTokens     = 512
	generateOutputTokens = 2048
	reviewOutputTokens   = 1024
	debugOutputTokens    = 1536
	highComplexityFactor = 1.5

	// Rolling accuracy window per model.
	accuracyWindow = 20
)

// TokenEstimate is the heuristic token sizing for one request.
type TokenEstimate struct {
	InputTokens  int
	OutputTokens int
}

// Estimator estimates token counts and prices them against the registry,
// and tracks historical estimate-vs-actual accuracy per model.
//
// Example:
//
//	est := estimate.New(reg)
//	tokens := est.EstimateTokens(req)
//	cost := est.EstimateCost("claude-sonnet-4", tokens)
type Estimator struct {
	registry *registry.Registry

	mu       sync.Mutex
	accuracy map[string][]float64
}

// New creates an estimator backed by the given registry.
func New(reg *registry.Registry) *Estimator {
	return &Estimator{
		registry: reg,
		accuracy: make(map[string][]float64),
	}
}

// EstimateTokens sizes the input and output token counts for a request.
//
// Input: ceil(len(userRequest)/3.5) plus a fixed system-prompt overhead,
// plus ceil(len(selectedCode)/2) and ceil(min(len(fileContent),5000)/3)
// when present, floored at 50 tokens.
//
// Output: 512 base, overridden per intent (GENERATE/TEST 2048, REVIEW 1024,
// DEBUG 1536), multiplied by 1.5 for HIGH complexity, capped by an explicit
// MaxTokens when the caller supplies one.
func (e *Estimator) EstimateTokens(req crewkit.PersonaRequest) TokenEstimate {
	input := int(math.Ceil(float64(len(req.UserRequest)) / promptCharsPerToken))
	input += systemPromptOverhead
	if req.SelectedCode != "" {
		input += int(math.Ceil(float64(len(req.SelectedCode)) / codeCharsPerToken))
	}
	if req.FileContent != "" {
		chars := len(req.FileContent)
		if chars > maxFileChars {
			chars = maxFileChars
		}
		input += int(math.Ceil(float64(chars) / fileCharsPerToken))
	}
	if input < minInputTokens {
		input = minInputTokens
	}

	output := baseOutputTokens
	switch req.Intent {
	case crewkit.IntentGenerate, crewkit.IntentTest:
		output = generateOutputTokens
	case crewkit.IntentReview:
		output = reviewOutputTokens
	case crewkit.IntentDebug:
		output = debugOutputTokens
	}
	if req.Complexity == crewkit.ComplexityHigh {
		output = int(float64(output) * highComplexityFactor)
	}
	if req.MaxTokens > 0 && output > req.MaxTokens {
		output = req.MaxTokens
	}

	return TokenEstimate{InputTokens: input, OutputTokens: output}
}

// EstimateCost prices a token estimate against the registry's table.
func (e *Estimator) EstimateCost(modelID string, tokens TokenEstimate) float64 {
	return e.registry.Price(modelID, tokens.InputTokens, tokens.OutputTokens)
}

// RecordActual records the outcome of an executed call against its prior
// estimate. Accuracy per dimension is max(0, 1 - |actual-estimated|/actual);
// the token accuracies are averaged into one sample appended to the model's
// rolling window.
func (e *Estimator) RecordActual(modelID string, actualIn, actualOut int, prior TokenEstimate) {
	samples := 0
	sum := 0.0
	if actualIn > 0 {
		sum += dimensionAccuracy(actualIn, prior.InputTokens)
		samples++
	}
	if actualOut > 0 {
		sum += dimensionAccuracy(actualOut, prior.OutputTokens)
		samples++
	}
	if samples == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	window := append(e.accuracy[modelID], sum/float64(samples))
	if len(window) > accuracyWindow {
		window = window[len(window)-accuracyWindow:]
	}
	e.accuracy[modelID] = window
}

// Confidence reports the mean rolling accuracy for a model, or 0 when no
// actuals have been recorded yet.
func (e *Estimator) Confidence(modelID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	window := e.accuracy[modelID]
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range window {
		sum += a
	}
	return sum / float64(len(window))
}

func dimensionAccuracy(actual, estimated int) float64 {
	diff := math.Abs(float64(actual - estimated))
	acc := 1 - diff/float64(actual)
	if acc < 0 {
		return 0
	}
	return acc
}
