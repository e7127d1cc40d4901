package registry

// DefaultCatalog returns the built-in model catalog (November 2025 rates).
//
// All prices are dollars per 1 million tokens, input and output separately.
// Quality scores are a coarse 1-10 ranking used by the router's tiering;
// SpeedMs is a typical time-to-full-response for a mid-sized prompt.
func DefaultCatalog() []ModelEntry {
	return []ModelEntry{
		// Anthropic
		{
			ID: "claude-haiku-3", DisplayName: "Claude Haiku 3", Provider: "anthropic",
			InputCostPerMTok: 0.25, OutputCostPerMTok: 1.25,
			SpeedMs: 900, QualityScore: 5,
			BestFor: []string{TagCheap},
		},
		{
			ID: "claude-sonnet-4", DisplayName: "Claude Sonnet 4", Provider: "anthropic",
			InputCostPerMTok: 3.00, OutputCostPerMTok: 15.00,
			SpeedMs: 2200, QualityScore: 8,
			BestFor: []string{TagBalanced, TagReview},
		},
		{
			ID: "claude-opus-4", DisplayName: "Claude Opus 4", Provider: "anthropic",
			InputCostPerMTok: 15.00, OutputCostPerMTok: 75.00,
			SpeedMs: 4500, QualityScore: 10,
			BestFor: []string{TagReasoning},
		},

		// OpenAI
		{
			ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", Provider: "openai",
			InputCostPerMTok: 0.50, OutputCostPerMTok: 1.50,
			SpeedMs: 800, QualityScore: 4,
			BestFor: []string{TagCheap},
		},
		{
			ID: "gpt-4o", DisplayName: "GPT-4o", Provider: "openai",
			InputCostPerMTok: 2.50, OutputCostPerMTok: 10.00,
			SpeedMs: 1800, QualityScore: 8,
			BestFor: []string{TagBalanced},
		},
		{
			ID: "o3", DisplayName: "OpenAI o3", Provider: "openai",
			InputCostPerMTok: 5.00, OutputCostPerMTok: 15.00,
			SpeedMs: 6000, QualityScore: 9,
			BestFor: []string{TagReasoning, TagReview},
		},

		// Google
		{
			ID: "gemini-pro", DisplayName: "Gemini Pro", Provider: "google",
			InputCostPerMTok: 0.50, OutputCostPerMTok: 1.50,
			SpeedMs: 1200, QualityScore: 6,
			BestFor: []string{TagCheap, TagBalanced},
		},
	}
}
