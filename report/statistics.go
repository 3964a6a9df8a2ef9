// Package report folds ledger entries and payment tickets over a time
// window into the aggregates an operator dashboard displays.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xraph/creditledger/types"
)

// LedgerEntry is the minimal view of a persisted ledger row report needs.
type LedgerEntry struct {
	UserID      string
	UserName    string
	CreditDelta types.Decimal
	Detail      types.LedgerDetail
	CreatedAt   time.Time
}

// PaymentTicket is the minimal view of a persisted ticket row report
// needs: only successfully completed tickets matter for the daily series.
type PaymentTicket struct {
	Amount     types.Decimal
	CreatedAt  time.Time
	Successful bool
}

// Source streams the two record kinds within [start, end).
type Source interface {
	RangeLedgerEntries(ctx context.Context, start, end time.Time) ([]LedgerEntry, error)
	RangeTickets(ctx context.Context, start, end time.Time) ([]PaymentTicket, error)
}

// Pie is an unordered cost/token breakdown keyed by model id or by
// "id:name" user key.
type Pie map[string]types.Decimal

// TokenPie is a token-count breakdown keyed the same way as Pie.
type TokenPie map[string]int64

// DailyPoint is one day's total of successful payments.
type DailyPoint struct {
	Date  string        `json:"date"` // YYYY-MM-DD
	Total types.Decimal `json:"total"`
}

// Statistics is the full set of aggregates over one time window.
type Statistics struct {
	TotalCost     types.Decimal `json:"total_cost"`
	TotalTokens   int64         `json:"total_tokens"`
	CostByModel   Pie           `json:"cost_by_model"`
	TokensByModel TokenPie      `json:"tokens_by_model"`
	CostByUser    Pie           `json:"cost_by_user"`
	TokensByUser  TokenPie      `json:"tokens_by_user"`
	DailyPayments []DailyPoint  `json:"daily_payments"`
}

// Compute folds ledger entries and payment tickets in [start, end) into
// the seven aggregates above.
func Compute(ctx context.Context, source Source, start, end time.Time) (Statistics, error) {
	entries, err := source.RangeLedgerEntries(ctx, start, end)
	if err != nil {
		return Statistics{}, fmt.Errorf("report: range ledger entries: %w", err)
	}
	tickets, err := source.RangeTickets(ctx, start, end)
	if err != nil {
		return Statistics{}, fmt.Errorf("report: range tickets: %w", err)
	}

	stats := Statistics{
		CostByModel:   Pie{},
		TokensByModel: TokenPie{},
		CostByUser:    Pie{},
		TokensByUser:  TokenPie{},
	}

	for _, e := range entries {
		u := e.Detail.Usage
		if u == nil || e.Detail.APIParams == nil || e.Detail.APIParams.Model == "" {
			continue
		}

		model := e.Detail.APIParams.Model
		userKey := e.UserID + ":" + e.UserName

		stats.TotalCost = stats.TotalCost.Add(u.TotalPrice)
		stats.TotalTokens += u.TotalTokens

		stats.CostByModel[model] = stats.CostByModel[model].Add(u.TotalPrice)
		stats.TokensByModel[model] += u.TotalTokens

		stats.CostByUser[userKey] = stats.CostByUser[userKey].Add(u.TotalPrice)
		stats.TokensByUser[userKey] += u.TotalTokens
	}

	daily := map[string]types.Decimal{}
	for _, t := range tickets {
		if !t.Successful {
			continue
		}
		day := t.CreatedAt.UTC().Format("2006-01-02")
		daily[day] = daily[day].Add(t.Amount)
	}

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)

	for _, d := range days {
		stats.DailyPayments = append(stats.DailyPayments, DailyPoint{Date: d, Total: daily[d]})
	}

	return stats, nil
}
