package ledger

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/crewkit/crewkit-go/crewkit"
)

// Trend classifies recent spend direction.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

const (
	trendWindow     = 10
	trendHysteresis = 0.20
)

// Breakdown is an aggregated slice of the transaction log.
type Breakdown struct {
	Transactions int     `json:"transactions"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Analytics is a derived, on-demand view of the transaction log. Nothing in
// it is stored; it is recomputed from the log on each call.
type Analytics struct {
	TotalTransactions  int                          `json:"total_transactions"`
	TotalCostUSD       float64                      `json:"total_cost_usd"`
	TotalInputTokens   int                          `json:"total_input_tokens"`
	TotalOutputTokens  int                          `json:"total_output_tokens"`
	ByModel            map[string]Breakdown         `json:"by_model"`
	ByIntent           map[crewkit.Intent]Breakdown `json:"by_intent"`
	CostTrend          Trend                        `json:"cost_trend"`
	HighestCost        *CostTransaction             `json:"highest_cost,omitempty"`
	AvgCostPerCallUSD  float64                      `json:"avg_cost_per_call_usd"`
	AvgTokensPerCall   float64                      `json:"avg_tokens_per_call"`
}

// GetAnalytics computes totals, per-model and per-intent breakdowns, the
// moving-average cost trend, and the highest-cost transaction from the
// current log.
func (l *Ledger) GetAnalytics(ctx context.Context) (*Analytics, error) {
	txs, err := l.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	a := &Analytics{
		ByModel:   make(map[string]Breakdown),
		ByIntent:  make(map[crewkit.Intent]Breakdown),
		CostTrend: TrendStable,
	}
	if len(txs) == 0 {
		return a, nil
	}

	totalTokens := 0
	for i := range txs {
		tx := &txs[i]
		a.TotalTransactions++
		a.TotalCostUSD += tx.CostUSD
		a.TotalInputTokens += tx.InputTokens
		a.TotalOutputTokens += tx.OutputTokens
		totalTokens += tx.InputTokens + tx.OutputTokens

		m := a.ByModel[tx.ModelID]
		m.Transactions++
		m.InputTokens += tx.InputTokens
		m.OutputTokens += tx.OutputTokens
		m.CostUSD += tx.CostUSD
		a.ByModel[tx.ModelID] = m

		in := a.ByIntent[tx.Intent]
		in.Transactions++
		in.InputTokens += tx.InputTokens
		in.OutputTokens += tx.OutputTokens
		in.CostUSD += tx.CostUSD
		a.ByIntent[tx.Intent] = in

		if a.HighestCost == nil || tx.CostUSD > a.HighestCost.CostUSD {
			a.HighestCost = tx
		}
	}

	a.AvgCostPerCallUSD = a.TotalCostUSD / float64(a.TotalTransactions)
	a.AvgTokensPerCall = float64(totalTokens) / float64(a.TotalTransactions)
	a.CostTrend = costTrend(txs)

	return a, nil
}

// costTrend compares the moving average of the most recent window against
// the window before it, with a hysteresis band so noise reads as stable.
func costTrend(txs []CostTransaction) Trend {
	if len(txs) < 2*trendWindow {
		return TrendStable
	}

	costs := make([]float64, len(txs))
	for i, tx := range txs {
		costs[i] = tx.CostUSD
	}

	recent := stat.Mean(costs[len(costs)-trendWindow:], nil)
	prior := stat.Mean(costs[len(costs)-2*trendWindow:len(costs)-trendWindow], nil)

	if prior == 0 {
		if recent > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	switch {
	case recent > prior*(1+trendHysteresis):
		return TrendIncreasing
	case recent < prior*(1-trendHysteresis):
		return TrendDecreasing
	default:
		return TrendStable
	}
}
