package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/crewkit/crewkit-go/adapter/llm"
	"github.com/crewkit/crewkit-go/crewkit"
	"github.com/crewkit/crewkit-go/estimate"
	"github.com/crewkit/crewkit-go/ledger"
	"github.com/crewkit/crewkit-go/observability"
	"github.com/crewkit/crewkit-go/registry"
	"github.com/crewkit/crewkit-go/router"
)

// RoundError attaches a failed group's context to its error. PersonaIDs
// lists every persona that got no result because of it.
type RoundError struct {
	ModelID    string
	PersonaIDs []string
	Err        error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("group %s (%d personas): %v", e.ModelID, len(e.PersonaIDs), e.Err)
}

func (e *RoundError) Unwrap() error { return e.Err }

// RoundResult is the outcome of one multi-persona round.
//
// Every persona appears in exactly one place: Results on success, or a
// RoundError naming it on failure.
type RoundResult struct {
	RoundID           string                           `json:"round_id"`
	Results           map[string]crewkit.PersonaResult `json:"results"`
	TotalAPICalls     int                              `json:"total_api_calls"`
	BatchedGroupCount int                              `json:"batched_group_count"`
	TotalCostUSD      float64                          `json:"total_cost_usd"`
	TotalTokens       int                              `json:"total_tokens"`
	ExecutionTime     time.Duration                    `json:"execution_time_ms"`
	FallbackUsed      bool                             `json:"fallback_used"`
	Errors            []*RoundError                    `json:"errors,omitempty"`
}

// Engine runs persona rounds: it groups requests by resolved model and
// temperature, issues one combined call per multi-member group and one
// individual call per singleton, and reassembles per-persona results.
//
// Groups execute concurrently; the ledger serializes spend recording.
//
// Example:
//
//	eng, err := batch.NewEngine(batch.EngineConfig{
//	    Router:    r,
//	    Registry:  reg,
//	    Estimator: est,
//	    Ledger:    led,
//	    Caller:    caller,
//	})
//	round, err := eng.BatchPersonaRequests(ctx, requests, nil)
type Engine struct {
	router    *router.Router
	registry  *registry.Registry
	estimator *estimate.Estimator
	ledger    *ledger.Ledger
	caller    llm.Caller
	logger    *slog.Logger
	metrics   *observability.EngineMetrics
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Router    *router.Router
	Registry  *registry.Registry
	Estimator *estimate.Estimator
	Ledger    *ledger.Ledger
	Caller    llm.Caller
	Logger    *slog.Logger                 // nil = slog.Default()
	Metrics   *observability.EngineMetrics // nil = no instrumentation
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Router == nil || cfg.Registry == nil || cfg.Estimator == nil || cfg.Ledger == nil || cfg.Caller == nil {
		return nil, fmt.Errorf("engine requires router, registry, estimator, ledger, and caller")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		router:    cfg.Router,
		registry:  cfg.Registry,
		estimator: cfg.Estimator,
		ledger:    cfg.Ledger,
		caller:    cfg.Caller,
		logger:    logger,
		metrics:   cfg.Metrics,
	}, nil
}

// groupOutcome is one group's contribution to the round, merged by the
// collector under a single lock.
type groupOutcome struct {
	results  []crewkit.PersonaResult
	apiCalls int
	batched  bool
	fallback bool
	err      *RoundError
}

// BatchPersonaRequests executes one round for the given personas.
//
// assignments optionally pins persona ids to model ids; pinned models must
// exist in the registry. Each multi-member group costs one upstream call
// on the happy path; a group whose combined reply fails parsing or
// validation falls back to one individual call per persona. Group-level
// failures land in Errors naming every affected persona; other groups are
// unaffected.
func (e *Engine) BatchPersonaRequests(ctx context.Context, requests []crewkit.PersonaRequest, assignments map[string]string) (*RoundResult, error) {
	start := time.Now()

	tracer := observability.GetTracer("crewkit.batch")
	ctx, span := tracer.Start(ctx, "engine.round")
	defer span.End()
	span.SetAttributes(attribute.Int("round.personas", len(requests)))

	if len(requests) == 0 {
		return nil, fmt.Errorf("round requires at least one persona request")
	}

	// Label unclassified requests up front so grouping and the individual
	// call paths see the same intent and complexity.
	classified := make([]crewkit.PersonaRequest, len(requests))
	for i, req := range requests {
		classified[i] = e.router.ClassifyRequest(ctx, req)
	}

	groups, err := buildGroups(classified, assignments, e.router)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	round := &RoundResult{
		RoundID: uuid.NewString(),
		Results: make(map[string]crewkit.PersonaResult, len(requests)),
	}
	span.SetAttributes(attribute.String("round.id", round.RoundID))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(g Group) {
			defer wg.Done()
			out := e.runGroup(ctx, g)

			mu.Lock()
			defer mu.Unlock()
			for _, res := range out.results {
				round.Results[res.PersonaID] = res
				round.TotalCostUSD += res.CostUSD
				round.TotalTokens += res.TotalTokens
			}
			round.TotalAPICalls += out.apiCalls
			if out.batched {
				round.BatchedGroupCount++
			}
			if out.fallback {
				round.FallbackUsed = true
			}
			if out.err != nil {
				round.Errors = append(round.Errors, out.err)
			}
		}(group)
	}
	wg.Wait()

	round.ExecutionTime = time.Since(start)

	span.SetAttributes(
		attribute.Int("round.api_calls", round.TotalAPICalls),
		attribute.Int("round.batched_groups", round.BatchedGroupCount),
		attribute.Float64("round.cost_usd", round.TotalCostUSD),
		attribute.Bool("round.fallback_used", round.FallbackUsed),
	)
	if len(round.Errors) > 0 {
		span.SetStatus(codes.Error, round.Errors[0].Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	e.metrics.RecordRound(ctx, len(requests), len(groups), round.FallbackUsed, round.ExecutionTime)

	e.logger.Info("round complete",
		slog.String("round_id", round.RoundID),
		slog.Int("personas", len(requests)),
		slog.Int("groups", len(groups)),
		slog.Int("api_calls", round.TotalAPICalls),
		slog.Int("batched_groups", round.BatchedGroupCount),
		slog.Float64("cost_usd", round.TotalCostUSD),
		slog.Bool("fallback_used", round.FallbackUsed),
		slog.Int("errors", len(round.Errors)))

	return round, nil
}

// runGroup executes one group: an individual routed call for singletons, a
// combined call with fallback for multi-member groups.
func (e *Engine) runGroup(ctx context.Context, group Group) groupOutcome {
	if len(group.Requests) == 1 {
		req := group.Requests[0]
		res, err := e.router.Route(ctx, req, group.ModelID)
		if err != nil {
			return groupOutcome{err: &RoundError{
				ModelID:    group.ModelID,
				PersonaIDs: []string{req.PersonaID},
				Err:        err,
			}}
		}
		e.metrics.RecordCall(ctx, res.ModelUsed, string(res.ExecutionKind), res.TotalTokens, res.CostUSD)
		return groupOutcome{results: []crewkit.PersonaResult{res}, apiCalls: 1}
	}

	results, err := e.runBatched(ctx, group)
	if err == nil {
		return groupOutcome{results: results, apiCalls: 1, batched: true}
	}

	switch err.(type) {
	case *crewkit.IncompleteResponseError, *crewkit.QualityValidationFailedError:
		e.logger.Warn("batch parse failed, falling back to individual calls",
			slog.String("model", group.ModelID),
			slog.Int("personas", len(group.Requests)),
			slog.String("error", err.Error()))
		out := e.runFallback(ctx, group)
		out.fallback = true
		// The failed combined call still hit the provider.
		out.apiCalls++
		return out
	}

	ids := personaIDs(group.Requests)
	return groupOutcome{err: &RoundError{ModelID: group.ModelID, PersonaIDs: ids, Err: err}}
}

// runBatched issues the combined call for a multi-member group and splits
// the reply. The upstream call's spend is recorded even when the reply
// later fails parsing, since the tokens were consumed either way.
func (e *Engine) runBatched(ctx context.Context, group Group) ([]crewkit.PersonaResult, error) {
	caps := make([]int, len(group.Requests))
	estimates := make([]estimate.TokenEstimate, len(group.Requests))
	inputTotal, outputTotal := 0, 0
	for i, req := range group.Requests {
		estimates[i] = e.estimator.EstimateTokens(req)
		caps[i] = estimates[i].OutputTokens
		if req.MaxTokens > 0 {
			caps[i] = req.MaxTokens
		}
		inputTotal += estimates[i].InputTokens
		outputTotal += caps[i]
	}

	prompt, maxTokens, err := ComposePrompt(group.Requests, caps)
	if err != nil {
		return nil, err
	}

	estCost := e.registry.Price(group.ModelID, inputTotal, maxTokens)
	remaining := e.ledger.Remaining()
	if estCost > remaining {
		return nil, &crewkit.BudgetExceededError{
			ModelID:      group.ModelID,
			EstimatedUSD: estCost,
			RemainingUSD: remaining,
		}
	}

	e.logger.Debug("dispatching batched call",
		slog.String("model", group.ModelID),
		slog.Int("personas", len(group.Requests)),
		slog.Int("max_tokens", maxTokens))

	messages := []crewkit.Message{crewkit.NewMessage("user", prompt)}
	completion, err := e.caller.Complete(ctx, group.ModelID, messages, group.Temperature, maxTokens)
	if err != nil {
		if _, ok := err.(*crewkit.UpstreamCallError); ok {
			return nil, err
		}
		return nil, &crewkit.UpstreamCallError{ModelID: group.ModelID, Err: err}
	}

	actualCost := e.registry.Price(group.ModelID, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	e.estimator.RecordActual(group.ModelID, completion.Usage.PromptTokens, completion.Usage.CompletionTokens,
		estimate.TokenEstimate{InputTokens: inputTotal, OutputTokens: outputTotal})
	e.recordSpend(ctx, group, completion.Usage, actualCost)
	e.metrics.RecordCall(ctx, group.ModelID, string(crewkit.ExecutionBatched), completion.Usage.TotalTokens(), actualCost)

	parsed, err := ParseResponse(completion.Text, personaIDs(group.Requests))
	if err != nil {
		return nil, err
	}

	shares := attributeUsage(group, parsed, completion.Usage, e.registry)
	results := make([]crewkit.PersonaResult, 0, len(group.Requests))
	for _, req := range group.Requests {
		share := shares[req.PersonaID]
		results = append(results, crewkit.PersonaResult{
			PersonaID:        req.PersonaID,
			ResponseText:     parsed[req.PersonaID],
			PromptTokens:     share.PromptTokens,
			CompletionTokens: share.CompletionTokens,
			TotalTokens:      share.PromptTokens + share.CompletionTokens,
			CostUSD:          share.CostUSD,
			ModelUsed:        group.ModelID,
			ExecutionKind:    crewkit.ExecutionBatched,
			Latency:          completion.Latency,
		})
	}
	return results, nil
}

// recordSpend deducts a combined call from the ledger as one transaction.
func (e *Engine) recordSpend(ctx context.Context, group Group, usage llm.Usage, costUSD float64) {
	res, err := e.ledger.RecordTransaction(ctx, group.ModelID, groupIntent(group),
		usage.PromptTokens, usage.CompletionTokens, costUSD)
	if err != nil {
		e.logger.Warn("transaction log append failed", slog.String("error", err.Error()))
	}
	if !res.Success {
		e.logger.Warn("actual batch cost exceeded remaining budget after pre-flight pass",
			slog.String("model", group.ModelID),
			slog.Float64("actual_cost_usd", costUSD))
	}
}

// runFallback reissues a failed group as individual calls, synchronously
// in member order so spend stays bounded by the ledger between calls.
func (e *Engine) runFallback(ctx context.Context, group Group) groupOutcome {
	var out groupOutcome
	var failed []string
	var firstErr error

	for _, req := range group.Requests {
		res, err := e.router.Route(ctx, req, group.ModelID)
		if err != nil {
			failed = append(failed, req.PersonaID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.metrics.RecordCall(ctx, res.ModelUsed, string(res.ExecutionKind), res.TotalTokens, res.CostUSD)
		out.results = append(out.results, res)
		out.apiCalls++
	}

	if len(failed) > 0 {
		out.err = &RoundError{ModelID: group.ModelID, PersonaIDs: failed, Err: firstErr}
	}
	return out
}

// groupIntent reports the group's shared intent, or GENERAL when members
// disagree.
func groupIntent(group Group) crewkit.Intent {
	intent := group.Requests[0].Intent
	for _, req := range group.Requests[1:] {
		if req.Intent != intent {
			return crewkit.IntentGeneral
		}
	}
	if intent == "" {
		return crewkit.IntentGeneral
	}
	return intent
}

func personaIDs(requests []crewkit.PersonaRequest) []string {
	ids := make([]string, len(requests))
	for i, req := range requests {
		ids[i] = req.PersonaID
	}
	return ids
}
