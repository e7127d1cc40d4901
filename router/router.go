// Package router selects the cheapest adequate model for a request and is
// the executing entry point for individual upstream calls.
//
// Selection policy: three intents override complexity (REVIEW goes to the
// highest-quality review-tagged model, DEBUG and REFACTOR to the highest-
// reasoning model); everything else tiers on complexity, where LOW takes
// the cheapest model and MEDIUM/HIGH share the balanced tier. HIGH scales
// the token budget, not the model choice.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crewkit/crewkit-go/adapter/llm"
	"github.com/crewkit/crewkit-go/classify"
	"github.com/crewkit/crewkit-go/crewkit"
	"github.com/crewkit/crewkit-go/estimate"
	"github.com/crewkit/crewkit-go/ledger"
	"github.com/crewkit/crewkit-go/registry"
)

const maxAlternatives = 3

// Router routes requests to models with budget pre-flight checks.
//
// Example:
//
//	r, err := router.New(router.Config{
//	    Registry:  reg,
//	    Estimator: est,
//	    Ledger:    led,
//	    Caller:    caller,
//	})
//	result, err := r.Route(ctx, req, "")
type Router struct {
	registry   *registry.Registry
	estimator  *estimate.Estimator
	ledger     *ledger.Ledger
	caller     llm.Caller
	classifier classify.Classifier
	logger     *slog.Logger

	cheapModel     string
	balancedModel  string
	reviewModel    string
	reasoningModel string
}

// Config configures a Router.
type Config struct {
	Registry   *registry.Registry
	Estimator  *estimate.Estimator
	Ledger     *ledger.Ledger
	Caller     llm.Caller
	Classifier classify.Classifier // nil = keyword heuristic
	Logger     *slog.Logger        // nil = slog.Default()
}

// New creates a router, resolving the tier models once. A catalog that
// cannot populate every tier is a configuration error; nothing is resolved
// at request time.
func New(cfg Config) (*Router, error) {
	if cfg.Registry == nil || cfg.Estimator == nil || cfg.Ledger == nil || cfg.Caller == nil {
		return nil, fmt.Errorf("router requires registry, estimator, ledger, and caller")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = classify.NewHeuristic()
	}

	cheap := cfg.Registry.Cheapest()
	balanced := cfg.Registry.HighestQualityWithTag(registry.TagBalanced)
	review := cfg.Registry.HighestQualityWithTag(registry.TagReview)
	reasoning := cfg.Registry.HighestQualityWithTag(registry.TagReasoning)
	if balanced == nil {
		return nil, fmt.Errorf("catalog has no %s-tagged model", registry.TagBalanced)
	}
	if review == nil {
		review = balanced
	}
	if reasoning == nil {
		reasoning = balanced
	}

	return &Router{
		registry:       cfg.Registry,
		estimator:      cfg.Estimator,
		ledger:         cfg.Ledger,
		caller:         cfg.Caller,
		classifier:     classifier,
		logger:         logger,
		cheapModel:     cheap.ID,
		balancedModel:  balanced.ID,
		reviewModel:    review.ID,
		reasoningModel: reasoning.ID,
	}, nil
}

// ClassifyRequest fills in a request's missing intent and complexity via
// the configured classifier. Pre-labelled fields are left untouched, so the
// call is idempotent. A classifier failure leaves the request unlabelled
// and falls through to default tiering.
func (r *Router) ClassifyRequest(ctx context.Context, req crewkit.PersonaRequest) crewkit.PersonaRequest {
	if req.Intent != "" && req.Complexity != "" {
		return req
	}
	cls, err := r.classifier.Classify(ctx, req.UserRequest, req.SelectedCode)
	if err != nil {
		r.logger.Warn("classification failed, using default tiering",
			slog.String("persona", req.PersonaID),
			slog.String("error", err.Error()))
		return req
	}
	if req.Intent == "" {
		req.Intent = cls.Intent
	}
	if req.Complexity == "" {
		req.Complexity = cls.Complexity
	}
	return req
}

// SelectModel picks a model id from intent and complexity.
func (r *Router) SelectModel(intent crewkit.Intent, complexity crewkit.Complexity) string {
	switch intent {
	case crewkit.IntentReview:
		return r.reviewModel
	case crewkit.IntentDebug, crewkit.IntentRefactor:
		return r.reasoningModel
	}

	if complexity == crewkit.ComplexityLow {
		return r.cheapModel
	}
	// MEDIUM and HIGH share the balanced tier; complexity scales the token
	// budget in the estimator, not the model choice.
	return r.balancedModel
}

// Resolve returns the model for a request, honoring an explicit override.
// An override must name a cataloged model.
func (r *Router) Resolve(req crewkit.PersonaRequest, override string) (string, error) {
	if override != "" {
		if !r.registry.Contains(override) {
			return "", &crewkit.UnknownModelError{ModelID: override}
		}
		return override, nil
	}
	return r.SelectModel(req.Intent, req.Complexity), nil
}

// EstimateCost pre-flights a request against the ledger's current
// remaining balance.
func (r *Router) EstimateCost(req crewkit.PersonaRequest) crewkit.CostEstimate {
	return r.EstimateCostAgainst(req, r.ledger.Remaining())
}

// EstimateCostAgainst pre-flights a request against an explicit budget
// limit, attaching up to three strictly cheaper alternatives sorted by
// savings descending.
func (r *Router) EstimateCostAgainst(req crewkit.PersonaRequest, budgetLimitUSD float64) crewkit.CostEstimate {
	modelID := r.SelectModel(req.Intent, req.Complexity)
	tokens := r.estimator.EstimateTokens(req)
	cost := r.estimator.EstimateCost(modelID, tokens)

	est := crewkit.CostEstimate{
		ModelID:               modelID,
		EstimatedInputTokens:  tokens.InputTokens,
		EstimatedOutputTokens: tokens.OutputTokens,
		EstimatedCostUSD:      cost,
		WithinBudget:          cost <= budgetLimitUSD,
	}
	if !est.WithinBudget {
		est.RejectionReason = fmt.Sprintf("estimated $%.4f exceeds budget limit $%.4f", cost, budgetLimitUSD)
	}

	cheaper := r.registry.CheaperThan(modelID, tokens.InputTokens, tokens.OutputTokens)
	for _, entry := range cheaper {
		altCost := r.registry.Price(entry.ID, tokens.InputTokens, tokens.OutputTokens)
		est.Alternatives = append(est.Alternatives, crewkit.Alternative{
			ModelID:    entry.ID,
			CostUSD:    altCost,
			SavingsUSD: cost - altCost,
		})
	}
	// CheaperThan sorts ascending by cost, which is descending by savings.
	if len(est.Alternatives) > maxAlternatives {
		est.Alternatives = est.Alternatives[:maxAlternatives]
	}

	return est
}

// Route executes one individual upstream call for a request.
//
// An unlabelled request is classified first (see ClassifyRequest). The
// request is re-estimated and rejected with BudgetExceededError before
// any upstream call when the estimate exceeds the remaining balance. On
// success the actual reported cost is deducted from the ledger and the
// estimator's accuracy window is updated.
func (r *Router) Route(ctx context.Context, req crewkit.PersonaRequest, modelOverride string) (crewkit.PersonaResult, error) {
	req = r.ClassifyRequest(ctx, req)
	modelID, err := r.Resolve(req, modelOverride)
	if err != nil {
		return crewkit.PersonaResult{}, err
	}

	tokens := r.estimator.EstimateTokens(req)
	cost := r.estimator.EstimateCost(modelID, tokens)
	remaining := r.ledger.Remaining()
	if cost > remaining {
		return crewkit.PersonaResult{}, &crewkit.BudgetExceededError{
			ModelID:      modelID,
			EstimatedUSD: cost,
			RemainingUSD: remaining,
		}
	}

	maxTokens := tokens.OutputTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	messages := []crewkit.Message{
		crewkit.NewMessage("system", req.SystemPrompt),
		crewkit.NewMessage("user", req.UserRequest),
	}

	r.logger.Debug("routing individual call",
		slog.String("persona", req.PersonaID),
		slog.String("model", modelID),
		slog.String("intent", string(req.Intent)),
		slog.String("complexity", string(req.Complexity)))

	completion, err := r.caller.Complete(ctx, modelID, messages, req.Temperature, maxTokens)
	if err != nil {
		if _, ok := err.(*crewkit.UpstreamCallError); ok {
			return crewkit.PersonaResult{}, err
		}
		return crewkit.PersonaResult{}, &crewkit.UpstreamCallError{ModelID: modelID, Err: err}
	}

	actualCost := r.registry.Price(modelID, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	r.estimator.RecordActual(modelID, completion.Usage.PromptTokens, completion.Usage.CompletionTokens, tokens)

	intent := req.Intent
	if intent == "" {
		intent = crewkit.IntentGeneral
	}
	res, err := r.ledger.RecordTransaction(ctx, modelID, intent,
		completion.Usage.PromptTokens, completion.Usage.CompletionTokens, actualCost)
	if err != nil {
		r.logger.Warn("transaction log append failed", slog.String("error", err.Error()))
	}
	if !res.Success {
		// The call already happened; the spend is real even though the
		// ledger refused it. Surface loudly rather than hide the overage.
		r.logger.Warn("actual cost exceeded remaining budget after pre-flight pass",
			slog.String("model", modelID),
			slog.Float64("actual_cost_usd", actualCost))
	}

	return crewkit.PersonaResult{
		PersonaID:        req.PersonaID,
		ResponseText:     completion.Text,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens(),
		CostUSD:          actualCost,
		ModelUsed:        modelID,
		ExecutionKind:    crewkit.ExecutionIndividual,
		Latency:          completion.Latency,
	}, nil
}
