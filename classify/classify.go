// Package classify provides the intent/complexity classifier collaborator.
//
// The router consumes the Classifier interface; the heuristic implementation
// here is deliberately simple (keyword and length based). Callers with a
// better signal can supply their own implementation.
package classify

import (
	"context"
	"strings"

	"github.com/crewkit/crewkit-go/crewkit"
)

// Classifier labels a prompt with an intent and a complexity tier.
type Classifier interface {
	Classify(ctx context.Context, promptText, codeContext string) (crewkit.Classification, error)
}

// Heuristic is a keyword- and length-based classifier.
//
// Factors:
//   - Intent keywords in the prompt (review, debug, refactor, generate, test)
//   - Prompt length and presence of code context for complexity
type Heuristic struct {
	longPromptThreshold int
	highPromptThreshold int
}

const (
	defaultLongPromptThreshold = 200
	defaultHighPromptThreshold = 600
)

// NewHeuristic creates a heuristic classifier with default thresholds.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		longPromptThreshold: defaultLongPromptThreshold,
		highPromptThreshold: defaultHighPromptThreshold,
	}
}

var intentKeywords = []struct {
	intent   crewkit.Intent
	keywords []string
}{
	{crewkit.IntentReview, []string{"review", "critique", "feedback on", "look over"}},
	{crewkit.IntentDebug, []string{"debug", "fix this", "error", "broken", "crash", "stack trace"}},
	{crewkit.IntentRefactor, []string{"refactor", "clean up", "restructure", "simplify this"}},
	{crewkit.IntentTest, []string{"write tests", "unit test", "test case", "coverage"}},
	{crewkit.IntentGenerate, []string{"generate", "write a", "create a", "implement", "build a"}},
	{crewkit.IntentExplain, []string{"explain", "what does", "how does", "why does"}},
}

var highComplexityKeywords = []string{
	"analyze", "compare", "trade-offs", "architecture",
	"step by step", "comprehensive", "in depth", "thorough",
}

// Classify labels the prompt. It never fails; the error return satisfies
// the Classifier interface for implementations that call out.
func (h *Heuristic) Classify(ctx context.Context, promptText, codeContext string) (crewkit.Classification, error) {
	lower := strings.ToLower(promptText)

	intent := crewkit.IntentGeneral
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				intent = group.intent
				break
			}
		}
		if intent != crewkit.IntentGeneral {
			break
		}
	}

	complexity := crewkit.ComplexityLow
	hasHighKeyword := false
	for _, kw := range highComplexityKeywords {
		if strings.Contains(lower, kw) {
			hasHighKeyword = true
			break
		}
	}
	switch {
	case len(promptText) > h.highPromptThreshold || hasHighKeyword:
		complexity = crewkit.ComplexityHigh
	case len(promptText) > h.longPromptThreshold || codeContext != "":
		complexity = crewkit.ComplexityMedium
	}

	return crewkit.Classification{Intent: intent, Complexity: complexity}, nil
}
