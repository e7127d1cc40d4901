package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/crewkit/crewkit-go/crewkit"
)

// fakeClock is a settable clock for day-rollover tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLedger(t *testing.T, budget float64, clock Clock) *Ledger {
	t.Helper()
	led, err := New(Config{DailyBudgetUSD: budget, Clock: clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return led
}

func record(t *testing.T, led *Ledger, cost float64) TransactionResult {
	t.Helper()
	res, err := led.RecordTransaction(context.Background(), "claude-sonnet-4", crewkit.IntentGeneral, 1000, 500, cost)
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	return res
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{DailyBudgetUSD: 0}); err == nil {
		t.Error("expected error for zero budget")
	}
	if _, err := New(Config{DailyBudgetUSD: -5}); err == nil {
		t.Error("expected error for negative budget")
	}
}

// A transaction larger than the remaining balance is rejected: balance
// unchanged, success false.
func TestRejectionLeavesBalanceUnchanged(t *testing.T) {
	led := newTestLedger(t, 1.0, nil)

	res := record(t, led, 2.0)
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Alert == nil || res.Alert.Level != AlertExceeded {
		t.Fatalf("expected Exceeded alert, got %+v", res.Alert)
	}
	if got := led.Remaining(); got != 1.0 {
		t.Errorf("Remaining = %v, want 1.0 (unchanged)", got)
	}

	// Nothing was appended to the log.
	txs, err := led.ExportTransactions(context.Background())
	if err != nil {
		t.Fatalf("ExportTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("log has %d entries, want 0", len(txs))
	}
}

// Three $2 transactions against a $5 budget: the first two succeed leaving
// $1, the third is rejected and the balance stays $1.
func TestSequentialExhaustion(t *testing.T) {
	led := newTestLedger(t, 5.0, nil)

	if res := record(t, led, 2.0); !res.Success {
		t.Fatal("transaction 1 should succeed")
	}
	if res := record(t, led, 2.0); !res.Success {
		t.Fatal("transaction 2 should succeed")
	}
	if got := led.Remaining(); got != 1.0 {
		t.Fatalf("Remaining after two transactions = %v, want 1.0", got)
	}

	if res := record(t, led, 2.0); res.Success {
		t.Fatal("transaction 3 should be rejected")
	}
	if got := led.Remaining(); got != 1.0 {
		t.Errorf("Remaining after rejection = %v, want 1.0", got)
	}

	// The ledger does not hard-lock: a smaller transaction still succeeds.
	if res := record(t, led, 0.5); !res.Success {
		t.Error("smaller transaction after rejection should succeed")
	}
}

// Crossing 75% then 95% emits Warning then Critical; a further small
// transaction that crosses neither threshold emits no alert.
func TestAlertThresholds(t *testing.T) {
	led := newTestLedger(t, 100.0, nil)

	res := record(t, led, 80.0) // 80% used
	if res.Alert == nil || res.Alert.Level != AlertWarning {
		t.Fatalf("expected Warning at 80%% used, got %+v", res.Alert)
	}

	res = record(t, led, 16.0) // 96% used
	if res.Alert == nil || res.Alert.Level != AlertCritical {
		t.Fatalf("expected Critical at 96%% used, got %+v", res.Alert)
	}

	res = record(t, led, 0.5) // 96.5% used: crosses neither threshold anew
	if res.Alert != nil {
		t.Fatalf("expected no further alert inside an already-alerted band, got %+v", res.Alert)
	}
}

// Alerts are edge-triggered per band: once Warning has fired, further
// transactions below 95% stay silent, and Critical still fires once when
// that band is entered.
func TestAlertOncePerBand(t *testing.T) {
	led := newTestLedger(t, 100.0, nil)

	if res := record(t, led, 76.0); res.Alert == nil || res.Alert.Level != AlertWarning {
		t.Fatal("expected Warning on first crossing of 75%")
	}
	if res := record(t, led, 5.0); res.Alert != nil { // 81%
		t.Fatalf("expected silence inside warning band, got %+v", res.Alert)
	}
	if res := record(t, led, 5.0); res.Alert != nil { // 86%
		t.Fatalf("expected silence inside warning band, got %+v", res.Alert)
	}
	if res := record(t, led, 10.0); res.Alert == nil || res.Alert.Level != AlertCritical { // 96%
		t.Fatal("expected Critical on first crossing of 95%")
	}
	if res := record(t, led, 1.0); res.Alert != nil { // 97%
		t.Fatalf("expected silence inside critical band, got %+v", res.Alert)
	}

	// Both alerts stay visible on the status snapshot until the reset.
	alerts := led.GetStatus().ActiveAlerts
	if len(alerts) != 2 {
		t.Fatalf("ActiveAlerts = %d, want 2", len(alerts))
	}
	if alerts[0].Level != AlertWarning || alerts[1].Level != AlertCritical {
		t.Errorf("alert levels = %s, %s, want warning, critical", alerts[0].Level, alerts[1].Level)
	}
}

func TestNoAlertBelowWarning(t *testing.T) {
	led := newTestLedger(t, 100.0, nil)

	res := record(t, led, 10.0)
	if res.Alert != nil {
		t.Errorf("expected no alert at 10%% used, got %+v", res.Alert)
	}
}

// After the date rolls over, the first operation observes a full budget
// before applying its own deduction, and alerts are cleared.
func TestDailyReset(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)}
	led := newTestLedger(t, 10.0, clock)

	record(t, led, 9.0) // 90% used, Warning active
	if got := led.Remaining(); got != 1.0 {
		t.Fatalf("Remaining = %v, want 1.0", got)
	}
	if len(led.GetStatus().ActiveAlerts) == 0 {
		t.Fatal("expected an active alert before rollover")
	}

	clock.now = time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC)

	res := record(t, led, 4.0)
	if !res.Success {
		t.Fatal("post-rollover transaction should succeed against fresh budget")
	}
	if got := led.Remaining(); got != 6.0 {
		t.Errorf("Remaining after reset+deduction = %v, want 6.0", got)
	}

	status := led.GetStatus()
	if status.LastResetDate != "2026-03-02" {
		t.Errorf("LastResetDate = %s, want 2026-03-02", status.LastResetDate)
	}
	// The reset cleared the prior day's alerts; the 40%-used transaction
	// raised none.
	if len(status.ActiveAlerts) != 0 {
		t.Errorf("ActiveAlerts after reset = %d, want 0", len(status.ActiveAlerts))
	}
}

// The reset happens once per day, not on every operation.
func TestResetOncePerDay(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	led := newTestLedger(t, 10.0, clock)

	record(t, led, 3.0)
	clock.now = clock.now.Add(2 * time.Hour)
	record(t, led, 3.0)

	if got := led.Remaining(); got != 4.0 {
		t.Errorf("Remaining = %v, want 4.0 (no same-day reset)", got)
	}
}

func TestExportTransactionsOrdered(t *testing.T) {
	led := newTestLedger(t, 10.0, nil)

	record(t, led, 1.0)
	record(t, led, 2.0)
	record(t, led, 3.0)

	txs, err := led.ExportTransactions(context.Background())
	if err != nil {
		t.Fatalf("ExportTransactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	for i, want := range []float64{1.0, 2.0, 3.0} {
		if txs[i].CostUSD != want {
			t.Errorf("tx %d cost = %v, want %v", i, txs[i].CostUSD, want)
		}
		if txs[i].ID == "" {
			t.Errorf("tx %d missing id", i)
		}
		if !txs[i].Succeeded {
			t.Errorf("tx %d not marked succeeded", i)
		}
	}
	if txs[0].BudgetRemainingAfter != 9.0 || txs[2].BudgetRemainingAfter != 4.0 {
		t.Errorf("BudgetRemainingAfter chain wrong: %v, %v",
			txs[0].BudgetRemainingAfter, txs[2].BudgetRemainingAfter)
	}
}
