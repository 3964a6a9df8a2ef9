package report

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/creditledger/types"
)

type fakeSource struct {
	entries []LedgerEntry
	tickets []PaymentTicket
}

func (f *fakeSource) RangeLedgerEntries(ctx context.Context, start, end time.Time) ([]LedgerEntry, error) {
	return f.entries, nil
}

func (f *fakeSource) RangeTickets(ctx context.Context, start, end time.Time) ([]PaymentTicket, error) {
	return f.tickets, nil
}

func entry(userID, userName, model string, tokens int64, cost string) LedgerEntry {
	return LedgerEntry{
		UserID:   userID,
		UserName: userName,
		Detail: types.LedgerDetail{
			APIParams: &types.APIParams{Model: model},
			Usage: &types.UsageDetail{
				TotalTokens: tokens,
				TotalPrice:  types.MustFromString(cost),
			},
		},
	}
}

func TestComputeFoldsByModelAndUser(t *testing.T) {
	source := &fakeSource{entries: []LedgerEntry{
		entry("u1", "alice", "gpt-4o", 100, "0.01"),
		entry("u1", "alice", "gpt-4o", 200, "0.02"),
		entry("u2", "bob", "claude-3", 50, "0.05"),
	}}

	stats, err := Compute(context.Background(), source, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if !stats.TotalCost.Equal(types.MustFromString("0.08")) {
		t.Errorf("TotalCost = %s, want 0.08", stats.TotalCost)
	}
	if stats.TotalTokens != 350 {
		t.Errorf("TotalTokens = %d, want 350", stats.TotalTokens)
	}
	if !stats.CostByModel["gpt-4o"].Equal(types.MustFromString("0.03")) {
		t.Errorf("CostByModel[gpt-4o] = %s, want 0.03", stats.CostByModel["gpt-4o"])
	}
	if !stats.CostByUser["u1:alice"].Equal(types.MustFromString("0.03")) {
		t.Errorf("CostByUser[u1:alice] = %s, want 0.03", stats.CostByUser["u1:alice"])
	}
	if stats.TokensByUser["u2:bob"] != 50 {
		t.Errorf("TokensByUser[u2:bob] = %d, want 50", stats.TokensByUser["u2:bob"])
	}
}

func TestComputeSkipsEntriesWithoutUsageOrModel(t *testing.T) {
	source := &fakeSource{entries: []LedgerEntry{
		{UserID: "u1", Detail: types.LedgerDetail{Desc: "redemption code"}},
	}}

	stats, err := Compute(context.Background(), source, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !stats.TotalCost.IsZero() || stats.TotalTokens != 0 {
		t.Errorf("expected entries without usage/model to be skipped, got %+v", stats)
	}
}

func TestComputeDailyPaymentsSumsSuccessfulOnly(t *testing.T) {
	day1 := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 2, 10, 0, 0, 0, time.UTC)

	source := &fakeSource{tickets: []PaymentTicket{
		{Amount: types.New(10), CreatedAt: day1, Successful: true},
		{Amount: types.New(5), CreatedAt: day1, Successful: true},
		{Amount: types.New(999), CreatedAt: day1, Successful: false},
		{Amount: types.New(20), CreatedAt: day2, Successful: true},
	}}

	stats, err := Compute(context.Background(), source, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(stats.DailyPayments) != 2 {
		t.Fatalf("got %d days, want 2", len(stats.DailyPayments))
	}
	if stats.DailyPayments[0].Date != "2026-07-01" || !stats.DailyPayments[0].Total.Equal(types.New(15)) {
		t.Errorf("day 1 = %+v, want 2026-07-01 total 15", stats.DailyPayments[0])
	}
	if stats.DailyPayments[1].Date != "2026-07-02" || !stats.DailyPayments[1].Total.Equal(types.New(20)) {
		t.Errorf("day 2 = %+v, want 2026-07-02 total 20", stats.DailyPayments[1])
	}
}
