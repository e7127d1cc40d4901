package crewkit

import (
	"fmt"
	"strings"
)

// BudgetExceededError is returned when a pre-flight estimate exceeds the
// remaining budget. No upstream call has been made; the caller may retry
// with a cheaper model from the estimate's alternatives.
type BudgetExceededError struct {
	ModelID      string
	EstimatedUSD float64
	RemainingUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s estimated $%.4f, remaining $%.4f",
		e.ModelID, e.EstimatedUSD, e.RemainingUSD)
}

// IncompleteResponseError is returned when a combined batch reply is missing
// one or more persona sections. It aborts the whole batch and triggers
// fallback to individual calls; it is never surfaced to the end caller
// unless the fallback calls also fail.
type IncompleteResponseError struct {
	MissingIDs []string
}

func (e *IncompleteResponseError) Error() string {
	return fmt.Sprintf("incomplete batch response: missing personas [%s]",
		strings.Join(e.MissingIDs, ", "))
}

// QualityValidationFailedError is returned when a parsed persona section is
// shorter than the minimum acceptable length. Like IncompleteResponseError
// it aborts the whole batch and triggers fallback.
type QualityValidationFailedError struct {
	PersonaID string
	Length    int
	MinLength int
}

func (e *QualityValidationFailedError) Error() string {
	return fmt.Sprintf("batch response for persona %s too short: %d chars (min %d)",
		e.PersonaID, e.Length, e.MinLength)
}

// UpstreamCallError wraps a provider failure. It is propagated unmodified to
// the caller; the engine defines no retry policy for it.
type UpstreamCallError struct {
	ModelID string
	Err     error
}

func (e *UpstreamCallError) Error() string {
	return fmt.Sprintf("upstream call to %s failed: %v", e.ModelID, e.Err)
}

func (e *UpstreamCallError) Unwrap() error {
	return e.Err
}

// UnknownModelError indicates a model id absent from the registry. This is a
// configuration error, fatal at startup, never a runtime condition.
type UnknownModelError struct {
	ModelID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model: %s", e.ModelID)
}
