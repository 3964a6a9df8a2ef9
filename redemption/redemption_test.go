package redemption

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/creditledger/types"
)

type fakeStore struct {
	issued []Code
	codes  map[string]Code
}

func (f *fakeStore) IssueCodes(ctx context.Context, codes []Code) error {
	f.issued = append(f.issued, codes...)
	if f.codes == nil {
		f.codes = map[string]Code{}
	}
	for _, c := range codes {
		f.codes[c.Code] = c
	}
	return nil
}

func (f *fakeStore) Redeem(ctx context.Context, code, userID string, now time.Time) (Code, error) {
	c, ok := f.codes[code]
	if !ok {
		return Code{}, errors.New("code not found")
	}
	if c.Redeemed() {
		return Code{}, errors.New("already received")
	}
	if c.Expired(now) {
		return Code{}, errors.New("expired")
	}
	c.UserID = &userID
	c.ReceivedAt = &now
	f.codes[code] = c
	return c, nil
}

type fakeCrediter struct {
	calls int
	delta types.Decimal
}

func (f *fakeCrediter) AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) error {
	f.calls++
	f.delta = delta
	return nil
}

func TestIssueGeneratesRequestedCount(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store, &fakeCrediter{}, types.New(10))

	codes, err := s.Issue(context.Background(), "promo", 2, types.New(3), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("got %d codes, want 2", len(codes))
	}
	if codes[0].Code == codes[1].Code {
		t.Error("expected distinct codes")
	}
	if len(codes[0].Code) != 64 {
		t.Errorf("code length = %d, want 64", len(codes[0].Code))
	}
}

func TestIssueValidatesCount(t *testing.T) {
	s := NewService(&fakeStore{}, &fakeCrediter{}, types.New(10))

	if _, err := s.Issue(context.Background(), "promo", 0, types.New(3), nil); err == nil {
		t.Error("expected error for count=0")
	}
	if _, err := s.Issue(context.Background(), "promo", 1001, types.New(3), nil); err == nil {
		t.Error("expected error for count=1001")
	}
}

func TestIssueValidatesAmount(t *testing.T) {
	s := NewService(&fakeStore{}, &fakeCrediter{}, types.New(10))
	if _, err := s.Issue(context.Background(), "promo", 1, types.Zero, nil); err == nil {
		t.Error("expected error for non-positive amount")
	}
}

func TestIssueValidatesExpiry(t *testing.T) {
	s := NewService(&fakeStore{}, &fakeCrediter{}, types.New(10))
	past := time.Now().Add(-time.Hour)
	if _, err := s.Issue(context.Background(), "promo", 1, types.New(3), &past); err == nil {
		t.Error("expected error for a past expiry")
	}
}

func TestRedeemCreditsUserAmountTimesRatio(t *testing.T) {
	store := &fakeStore{}
	crediter := &fakeCrediter{}
	s := NewService(store, crediter, types.New(10))

	codes, _ := s.Issue(context.Background(), "promo", 1, types.New(3), nil)

	if err := s.Redeem(context.Background(), codes[0].Code, "user-u"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if crediter.calls != 1 {
		t.Fatalf("expected one credit call, got %d", crediter.calls)
	}
	if !crediter.delta.Equal(types.New(30)) {
		t.Errorf("credited %s, want 30 (3 amount x 10 ratio)", crediter.delta)
	}
}

func TestRedeemTwiceFailsSecondTime(t *testing.T) {
	store := &fakeStore{}
	crediter := &fakeCrediter{}
	s := NewService(store, crediter, types.New(10))

	codes, _ := s.Issue(context.Background(), "promo", 1, types.New(3), nil)

	if err := s.Redeem(context.Background(), codes[0].Code, "user-u"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if err := s.Redeem(context.Background(), codes[0].Code, "user-v"); err == nil {
		t.Error("expected second redeem of the same code to fail")
	}
	if crediter.calls != 1 {
		t.Errorf("expected only one credit across both attempts, got %d", crediter.calls)
	}
}

func TestRedeemUnknownCodeFails(t *testing.T) {
	s := NewService(&fakeStore{codes: map[string]Code{}}, &fakeCrediter{}, types.New(10))
	if err := s.Redeem(context.Background(), "does-not-exist", "user-u"); err == nil {
		t.Error("expected error for unknown code")
	}
}
