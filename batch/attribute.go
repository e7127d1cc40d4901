package batch

import (
	"github.com/crewkit/crewkit-go/adapter/llm"
)

// pricer prices a token pair for a model. *registry.Registry satisfies
// this.
type pricer interface {
	Price(modelID string, promptTokens, completionTokens int) float64
}

// attribution is one persona's share of a combined call.
type attribution struct {
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

// attributeUsage splits a combined call's reported usage across the
// group's personas.
//
// Prompt tokens are split proportionally to system-prompt length,
// completion tokens proportionally to parsed-response length. Each share
// is floored and the remainder of each dimension goes to the last
// persona, so the shares sum exactly to the reported totals. A persona's
// dollar cost is then recomputed from its own token shares at the model's
// registry price, not scaled from the blended call cost, so per-persona
// costs stay exact at the price sheet even though their sum can drift
// fractionally from the whole-call price.
func attributeUsage(group Group, parsed map[string]string, usage llm.Usage, prices pricer) map[string]attribution {
	n := len(group.Requests)

	sysWeights := make([]int, n)
	respWeights := make([]int, n)
	for i, req := range group.Requests {
		sysWeights[i] = len(req.SystemPrompt)
		respWeights[i] = len(parsed[req.PersonaID])
	}

	promptShares := proportionalSplit(usage.PromptTokens, sysWeights)
	completionShares := proportionalSplit(usage.CompletionTokens, respWeights)

	out := make(map[string]attribution, n)
	for i, req := range group.Requests {
		out[req.PersonaID] = attribution{
			PromptTokens:     promptShares[i],
			CompletionTokens: completionShares[i],
			CostUSD:          prices.Price(group.ModelID, promptShares[i], completionShares[i]),
		}
	}
	return out
}

// proportionalSplit divides total across weights with floored shares,
// assigning the leftover to the last entry. All-zero weights fall back to
// an even split.
func proportionalSplit(total int, weights []int) []int {
	n := len(weights)
	shares := make([]int, n)
	if n == 0 {
		return shares
	}

	sum := 0
	for _, w := range weights {
		sum += w
	}

	assigned := 0
	for i, w := range weights {
		if sum == 0 {
			shares[i] = total / n
		} else {
			shares[i] = total * w / sum
		}
		assigned += shares[i]
	}
	shares[n-1] += total - assigned
	return shares
}
