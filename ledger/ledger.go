// Package ledger provides the process-wide, date-scoped budget account.
//
// The ledger is the single shared mutable resource of the engine: every
// recorded transaction goes through one mutex so the "never goes negative,
// resets exactly once per day" invariants hold under concurrent group
// execution. The clock is injectable for deterministic day-rollover tests.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewkit/crewkit-go/crewkit"
)

// Clock abstracts time for deterministic testing of the daily reset.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

// AlertLevel classifies a budget alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"  // >= 75% of daily budget used
	AlertCritical AlertLevel = "critical" // >= 95% of daily budget used
	AlertExceeded AlertLevel = "exceeded" // transaction rejected outright
)

// Alert is raised when spend crosses a threshold or a transaction is
// rejected. Active alerts are cleared by the daily reset.
type Alert struct {
	Level       AlertLevel `json:"level"`
	Message     string     `json:"message"`
	UsedPercent float64    `json:"used_percent"`
	Timestamp   time.Time  `json:"timestamp"`
}

// CostTransaction is one append-only entry in the transaction log.
type CostTransaction struct {
	ID                   string         `json:"id"`
	Timestamp            time.Time      `json:"timestamp"`
	ModelID              string         `json:"model_id"`
	Intent               crewkit.Intent `json:"intent"`
	InputTokens          int            `json:"input_tokens"`
	OutputTokens         int            `json:"output_tokens"`
	CostUSD              float64        `json:"cost_usd"`
	BudgetRemainingAfter float64        `json:"budget_remaining_after"`
	Succeeded            bool           `json:"succeeded"`
}

// TransactionResult is the outcome of RecordTransaction.
type TransactionResult struct {
	Success bool
	Alert   *Alert
}

// Status is a point-in-time snapshot of the ledger.
type Status struct {
	DailyBudgetUSD float64   `json:"daily_budget_usd"`
	RemainingUSD   float64   `json:"remaining_usd"`
	UsedPercent    float64   `json:"used_percent"`
	LastResetDate  string    `json:"last_reset_date"`
	ActiveAlerts   []Alert   `json:"active_alerts"`
	AsOf           time.Time `json:"as_of"`
}

const (
	warningThresholdPct  = 75.0
	criticalThresholdPct = 95.0
)

// Ledger enforces the daily budget and records the transaction log.
//
// States: Open (accepting transactions) with per-transaction rejection once
// a transaction would exceed the remaining balance; the ledger does not
// hard-lock, so smaller transactions may still succeed after a rejection.
// The first operation observed on a new calendar day restores the budget
// and clears alerts before it is processed.
//
// Example:
//
//	led, err := ledger.New(ledger.Config{DailyBudgetUSD: 10.0})
//	res, err := led.RecordTransaction(ctx, "claude-sonnet-4", crewkit.IntentGeneral, 1000, 500, 0.012)
//	if !res.Success {
//	    // rejected: res.Alert.Level == ledger.AlertExceeded
//	}
type Ledger struct {
	mu sync.Mutex

	dailyBudget   float64
	remaining     float64
	lastResetDate string
	activeAlerts  []Alert

	clock   Clock
	storage Storage
	logger  *slog.Logger
}

// Config configures a Ledger.
type Config struct {
	DailyBudgetUSD float64
	Clock          Clock        // nil = system clock (UTC)
	Storage        Storage      // nil = in-memory transaction log
	Logger         *slog.Logger // nil = slog.Default()
}

// New creates a ledger with a full day's budget available.
func New(cfg Config) (*Ledger, error) {
	if cfg.DailyBudgetUSD <= 0 {
		return nil, fmt.Errorf("daily budget must be positive, got %.4f", cfg.DailyBudgetUSD)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	storage := cfg.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Ledger{
		dailyBudget:   cfg.DailyBudgetUSD,
		remaining:     cfg.DailyBudgetUSD,
		lastResetDate: dateOf(clock.Now()),
		clock:         clock,
		storage:       storage,
		logger:        logger,
	}, nil
}

func dateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// resetIfNewDay restores the budget on the first operation of a new
// calendar day. Caller must hold l.mu.
func (l *Ledger) resetIfNewDay(now time.Time) {
	today := dateOf(now)
	if today == l.lastResetDate {
		return
	}
	l.logger.Info("daily budget reset",
		slog.String("previous_date", l.lastResetDate),
		slog.String("date", today),
		slog.Float64("daily_budget_usd", l.dailyBudget))
	l.remaining = l.dailyBudget
	l.activeAlerts = nil
	l.lastResetDate = today
}

// RecordTransaction applies one spend against the remaining balance.
//
// A transaction whose cost exceeds the remaining balance is rejected: the
// balance is unchanged, nothing is appended to the log, and the result
// carries an Exceeded alert. An accepted transaction deducts its cost,
// appends to the log, and raises a Warning (>=75% used) or Critical
// (>=95% used) alert the first time spend enters that band on a given day;
// later transactions inside an already-alerted band emit nothing.
//
// The returned error reports storage failures only; budget rejection is a
// result, not an error.
func (l *Ledger) RecordTransaction(ctx context.Context, modelID string, intent crewkit.Intent, inputTokens, outputTokens int, costUSD float64) (TransactionResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.resetIfNewDay(now)

	if costUSD > l.remaining {
		alert := Alert{
			Level: AlertExceeded,
			Message: fmt.Sprintf("transaction of $%.4f rejected: only $%.4f of $%.2f daily budget remains",
				costUSD, l.remaining, l.dailyBudget),
			UsedPercent: l.usedPercent(),
			Timestamp:   now,
		}
		l.activeAlerts = append(l.activeAlerts, alert)
		l.logger.Warn("budget transaction rejected",
			slog.String("model", modelID),
			slog.Float64("cost_usd", costUSD),
			slog.Float64("remaining_usd", l.remaining))
		return TransactionResult{Success: false, Alert: &alert}, nil
	}

	l.remaining -= costUSD
	tx := CostTransaction{
		ID:                   uuid.NewString(),
		Timestamp:            now,
		ModelID:              modelID,
		Intent:               intent,
		InputTokens:          inputTokens,
		OutputTokens:         outputTokens,
		CostUSD:              costUSD,
		BudgetRemainingAfter: l.remaining,
		Succeeded:            true,
	}
	if err := l.storage.Append(ctx, tx); err != nil {
		// The deduction stands; the log entry is what failed.
		return TransactionResult{Success: true}, fmt.Errorf("appending transaction: %w", err)
	}

	result := TransactionResult{Success: true}
	switch used := l.usedPercent(); {
	case used >= criticalThresholdPct:
		result.Alert = l.raiseThresholdAlert(AlertCritical, used, now)
	case used >= warningThresholdPct:
		result.Alert = l.raiseThresholdAlert(AlertWarning, used, now)
	}

	return result, nil
}

// raiseThresholdAlert records a threshold alert the first time spend enters
// the level's band since the last reset; transactions landing in a band
// whose alert is already active emit nothing. Caller holds l.mu.
func (l *Ledger) raiseThresholdAlert(level AlertLevel, used float64, now time.Time) *Alert {
	for _, a := range l.activeAlerts {
		if a.Level == level {
			return nil
		}
	}
	alert := Alert{
		Level:       level,
		Message:     fmt.Sprintf("daily budget %.1f%% used ($%.4f remaining)", used, l.remaining),
		UsedPercent: used,
		Timestamp:   now,
	}
	l.activeAlerts = append(l.activeAlerts, alert)
	return &alert
}

// usedPercent computes percent of daily budget consumed. Caller holds l.mu.
func (l *Ledger) usedPercent() float64 {
	return (l.dailyBudget - l.remaining) / l.dailyBudget * 100
}

// Remaining returns the current remaining balance, applying the daily reset
// first so a stale balance is never observed across midnight.
func (l *Ledger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfNewDay(l.clock.Now())
	return l.remaining
}

// GetStatus returns a snapshot of the ledger state.
func (l *Ledger) GetStatus() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.resetIfNewDay(now)

	alerts := make([]Alert, len(l.activeAlerts))
	copy(alerts, l.activeAlerts)

	return Status{
		DailyBudgetUSD: l.dailyBudget,
		RemainingUSD:   l.remaining,
		UsedPercent:    l.usedPercent(),
		LastResetDate:  l.lastResetDate,
		ActiveAlerts:   alerts,
		AsOf:           now,
	}
}

// ExportTransactions returns the ordered transaction log for external
// storage. Entries are JSON-serializable.
func (l *Ledger) ExportTransactions(ctx context.Context) ([]CostTransaction, error) {
	return l.storage.List(ctx)
}
