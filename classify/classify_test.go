package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/crewkit/crewkit-go/crewkit"
)

func TestClassifyIntent(t *testing.T) {
	h := NewHeuristic()

	cases := []struct {
		name   string
		prompt string
		want   crewkit.Intent
	}{
		{"Review", "please review this pull request", crewkit.IntentReview},
		{"Debug", "I hit an error and the service is broken", crewkit.IntentDebug},
		{"Refactor", "refactor the handler into smaller pieces", crewkit.IntentRefactor},
		{"Test", "write tests for the parser", crewkit.IntentTest},
		{"Generate", "implement a rate limiter", crewkit.IntentGenerate},
		{"Explain", "explain how the scheduler works", crewkit.IntentExplain},
		{"Default", "hello there", crewkit.IntentGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Classify(context.Background(), tc.prompt, "")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Intent != tc.want {
				t.Errorf("intent = %s, want %s", got.Intent, tc.want)
			}
		})
	}
}

func TestClassifyComplexity(t *testing.T) {
	h := NewHeuristic()

	t.Run("ShortPromptIsLow", func(t *testing.T) {
		got, _ := h.Classify(context.Background(), "hi", "")
		if got.Complexity != crewkit.ComplexityLow {
			t.Errorf("complexity = %s, want LOW", got.Complexity)
		}
	})

	t.Run("CodeContextRaisesToMedium", func(t *testing.T) {
		got, _ := h.Classify(context.Background(), "hi", "func main() {}")
		if got.Complexity != crewkit.ComplexityMedium {
			t.Errorf("complexity = %s, want MEDIUM", got.Complexity)
		}
	})

	t.Run("LongPromptIsMedium", func(t *testing.T) {
		got, _ := h.Classify(context.Background(), strings.Repeat("x", 300), "")
		if got.Complexity != crewkit.ComplexityMedium {
			t.Errorf("complexity = %s, want MEDIUM", got.Complexity)
		}
	})

	t.Run("VeryLongPromptIsHigh", func(t *testing.T) {
		got, _ := h.Classify(context.Background(), strings.Repeat("x", 700), "")
		if got.Complexity != crewkit.ComplexityHigh {
			t.Errorf("complexity = %s, want HIGH", got.Complexity)
		}
	})

	t.Run("KeywordIsHigh", func(t *testing.T) {
		got, _ := h.Classify(context.Background(), "compare these two designs", "")
		if got.Complexity != crewkit.ComplexityHigh {
			t.Errorf("complexity = %s, want HIGH", got.Complexity)
		}
	})
}
