package memory

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/types"
)

func TestEnsureBalanceCreatesOnce(t *testing.T) {
	s := New()
	ctx := context.Background()

	b1, err := s.EnsureBalance(ctx, "user-1", types.New(5))
	if err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
	if !b1.Credit.Equal(types.New(5)) {
		t.Errorf("Credit = %s, want 5", b1.Credit)
	}

	b2, err := s.EnsureBalance(ctx, "user-1", types.New(99))
	if err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
	if !b2.Credit.Equal(types.New(5)) {
		t.Errorf("second EnsureBalance changed credit to %s, want unchanged 5", b2.Credit)
	}
}

func TestAddDeltaAccumulatesAndAppendsEntry(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.EnsureBalance(ctx, "user-1", types.New(10)); err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
	if _, err := s.AddDelta(ctx, "user-1", types.New(-3), types.LedgerDetail{Desc: "debit"}); err != nil {
		t.Fatalf("AddDelta: %v", err)
	}
	entry, err := s.AddDelta(ctx, "user-1", types.New(2), types.LedgerDetail{Desc: "credit"})
	if err != nil {
		t.Fatalf("AddDelta: %v", err)
	}
	if entry.ID.IsNil() {
		t.Error("entry ID should not be nil")
	}

	b, err := s.EnsureBalance(ctx, "user-1", types.New(0))
	if err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
	if !b.Credit.Equal(types.New(9)) {
		t.Errorf("Credit = %s, want 9", b.Credit)
	}

	entries, err := s.ListLedgerEntries(ctx, store.ListOpts{UserIDs: []string{"user-1"}})
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Detail.Desc != "credit" {
		t.Errorf("newest-first ordering broken: got %q first", entries[0].Detail.Desc)
	}
}

func TestSetAbsoluteRecordsDeltaFromPriorBalance(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.EnsureBalance(ctx, "user-1", types.New(10)); err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
	entry, err := s.SetAbsolute(ctx, "user-1", types.New(25), types.LedgerDetail{Desc: "admin adjustment"})
	if err != nil {
		t.Fatalf("SetAbsolute: %v", err)
	}
	if !entry.CreditDelta.Equal(types.New(15)) {
		t.Errorf("CreditDelta = %s, want 15", entry.CreditDelta)
	}

	b, err := s.EnsureBalance(ctx, "user-1", types.New(0))
	if err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
	if !b.Credit.Equal(types.New(25)) {
		t.Errorf("Credit = %s, want 25", b.Credit)
	}
}

func TestCountAndRangeLedgerEntries(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.AddDelta(ctx, "user-1", types.New(1), types.LedgerDetail{}); err != nil {
		t.Fatalf("AddDelta: %v", err)
	}
	if _, err := s.AddDelta(ctx, "user-2", types.New(1), types.LedgerDetail{}); err != nil {
		t.Fatalf("AddDelta: %v", err)
	}

	count, err := s.CountLedgerEntries(ctx, nil)
	if err != nil {
		t.Fatalf("CountLedgerEntries: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	count, err = s.CountLedgerEntries(ctx, []string{"user-1"})
	if err != nil {
		t.Fatalf("CountLedgerEntries: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	entries, err := s.RangeLedgerEntries(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("RangeLedgerEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len(entries) = %d, want 2", len(entries))
	}
}

func TestPruneLedgerEntries(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.AddDelta(ctx, "user-1", types.New(1), types.LedgerDetail{}); err != nil {
		t.Fatalf("AddDelta: %v", err)
	}

	pruned, err := s.PruneLedgerEntries(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneLedgerEntries: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	count, err := s.CountLedgerEntries(ctx, nil)
	if err != nil {
		t.Fatalf("CountLedgerEntries: %v", err)
	}
	if count != 0 {
		t.Errorf("count after prune = %d, want 0", count)
	}
}

func TestTicketLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	ticket := store.PaymentTicket{
		ID:        "20260101120000.abcd1234",
		UserID:    "user-1",
		Amount:    types.New(10),
		CreatedAt: time.Now(),
	}
	if err := s.CreateTicket(ctx, ticket); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if err := s.CreateTicket(ctx, ticket); err == nil {
		t.Error("expected error creating duplicate ticket")
	}

	got, ok, err := s.GetTicket(ctx, ticket.ID)
	if err != nil || !ok {
		t.Fatalf("GetTicket: got=%v ok=%v err=%v", got, ok, err)
	}
	if got.HasCallback() {
		t.Error("fresh ticket should not have a callback")
	}

	sealed, err := s.SetTicketCallback(ctx, ticket.ID, map[string]string{"trade_no": "xyz"})
	if err != nil || !sealed {
		t.Fatalf("SetTicketCallback: sealed=%v err=%v", sealed, err)
	}
	got, _, _ = s.GetTicket(ctx, ticket.ID)
	if !got.HasCallback() {
		t.Error("ticket should have a callback after SetTicketCallback")
	}

	if sealed, err := s.SetTicketCallback(ctx, ticket.ID, map[string]string{"trade_no": "replay"}); err != nil || sealed {
		t.Errorf("replayed SetTicketCallback should report sealed=false, got sealed=%v err=%v", sealed, err)
	}

	if _, err := s.SetTicketCallback(ctx, "missing", nil); err == nil {
		t.Error("expected error setting callback on missing ticket")
	}
}

func TestRedemptionCodeLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	code := store.RedemptionCode{Code: "deadbeef", Purpose: "promo", Amount: types.New(5), CreatedAt: time.Now()}
	if err := s.IssueRedemptionCodes(ctx, []store.RedemptionCode{code}); err != nil {
		t.Fatalf("IssueRedemptionCodes: %v", err)
	}

	redeemed, err := s.RedeemCode(ctx, "deadbeef", "user-1", time.Now())
	if err != nil {
		t.Fatalf("RedeemCode: %v", err)
	}
	if redeemed.UserID == nil || *redeemed.UserID != "user-1" {
		t.Errorf("redeemed.UserID = %v, want user-1", redeemed.UserID)
	}

	if _, err := s.RedeemCode(ctx, "deadbeef", "user-2", time.Now()); err == nil {
		t.Error("expected error redeeming already-used code")
	}

	if _, err := s.RedeemCode(ctx, "unknown", "user-1", time.Now()); err == nil {
		t.Error("expected error redeeming unknown code")
	}
}

func TestRedeemExpiredCode(t *testing.T) {
	s := New()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	code := store.RedemptionCode{Code: "expired", Amount: types.New(1), CreatedAt: past.Add(-time.Hour), ExpiredAt: &past}
	if err := s.IssueRedemptionCodes(ctx, []store.RedemptionCode{code}); err != nil {
		t.Fatalf("IssueRedemptionCodes: %v", err)
	}

	if _, err := s.RedeemCode(ctx, "expired", "user-1", time.Now()); err == nil {
		t.Error("expected error redeeming expired code")
	}
}

func TestDeleteRedemptionCodeRejectsUsed(t *testing.T) {
	s := New()
	ctx := context.Background()

	code := store.RedemptionCode{Code: "onetime", Amount: types.New(1), CreatedAt: time.Now()}
	if err := s.IssueRedemptionCodes(ctx, []store.RedemptionCode{code}); err != nil {
		t.Fatalf("IssueRedemptionCodes: %v", err)
	}
	if _, err := s.RedeemCode(ctx, "onetime", "user-1", time.Now()); err != nil {
		t.Fatalf("RedeemCode: %v", err)
	}
	if err := s.DeleteRedemptionCode(ctx, "onetime"); err == nil {
		t.Error("expected error deleting already-used code")
	}
}

func TestMigratePingClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Errorf("Migrate: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
