// Package redemption implements one-shot bearer credit codes: issued in
// bulk by an operator, redeemed at most once by a user.
package redemption

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/creditledger/types"
)

const (
	minCount = 1
	maxCount = 1000
)

// Code is a redemption code's persisted row.
type Code struct {
	Code       string
	Purpose    string
	Amount     types.Decimal
	CreatedAt  time.Time
	ExpiredAt  *time.Time
	UserID     *string
	ReceivedAt *time.Time
}

// Redeemed reports whether the code has already been received.
func (c Code) Redeemed() bool { return c.ReceivedAt != nil }

// Expired reports whether the code's expiry, if any, has passed as of now.
func (c Code) Expired(now time.Time) bool {
	return c.ExpiredAt != nil && now.After(*c.ExpiredAt)
}

// Store is the persistence slice redemption needs: bulk insert on issue,
// and an atomic get-then-claim on redeem.
type Store interface {
	IssueCodes(ctx context.Context, codes []Code) error
	// Redeem atomically claims code for userID, returning the claimed row.
	// It must reject (without mutating) a code that does not exist, is
	// already received, or is expired.
	Redeem(ctx context.Context, code, userID string, now time.Time) (Code, error)
}

// Crediter is the narrow slice of the ledger redemption needs to credit
// a successful redemption.
type Crediter interface {
	AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) error
}

// Service issues and redeems codes.
type Service struct {
	store  Store
	ledger Crediter
	ratio  types.Decimal
}

// NewService builds a Service. ratio is the configured credit exchange
// ratio applied on redemption.
func NewService(store Store, ledger Crediter, ratio types.Decimal) *Service {
	return &Service{store: store, ledger: ledger, ratio: ratio}
}

// generateCode returns the concatenation of two uuid hex forms: 64 hex
// characters total.
func generateCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Issue generates count codes sharing purpose and amount. expiredAt is
// optional; if given it must be in the future.
func (s *Service) Issue(ctx context.Context, purpose string, count int, amount types.Decimal, expiredAt *time.Time) ([]Code, error) {
	if count < minCount || count > maxCount {
		return nil, fmt.Errorf("redemption: count must be between %d and %d, got %d", minCount, maxCount, count)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("redemption: amount must be positive, got %s", amount)
	}
	now := time.Now()
	if expiredAt != nil && !expiredAt.After(now) {
		return nil, fmt.Errorf("redemption: expired_at must be in the future")
	}

	codes := make([]Code, count)
	for i := range codes {
		codes[i] = Code{
			Code:      generateCode(),
			Purpose:   purpose,
			Amount:    amount,
			CreatedAt: now,
			ExpiredAt: expiredAt,
		}
	}

	if err := s.store.IssueCodes(ctx, codes); err != nil {
		return nil, fmt.Errorf("redemption: issue codes: %w", err)
	}
	return codes, nil
}

// Redeem atomically claims code for userID and credits the user with
// amount × exchange ratio. The store is responsible for rejecting a
// nonexistent, already-received, or expired code without crediting.
func (s *Service) Redeem(ctx context.Context, code, userID string) error {
	claimed, err := s.store.Redeem(ctx, code, userID, time.Now())
	if err != nil {
		return fmt.Errorf("redemption: redeem %s: %w", code, err)
	}

	credited := claimed.Amount.Mul(s.ratio)
	detail := types.LedgerDetail{Desc: "redemption code"}
	if err := s.ledger.AddDelta(ctx, userID, credited, detail); err != nil {
		return fmt.Errorf("redemption: credit user after redeem: %w", err)
	}
	return nil
}
