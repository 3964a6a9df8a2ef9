// Package store defines the persistence interface for the credit
// ledger's four entities: Balance, LedgerEntry, PaymentTicket, and
// RedemptionCode.
package store

import (
	"context"
	"time"

	"github.com/xraph/creditledger/id"
	"github.com/xraph/creditledger/types"
)

// Balance is one user's current credit balance.
type Balance struct {
	types.Entity
	UserID string        `json:"user_id"`
	Credit types.Decimal `json:"credit"`
}

// LedgerEntry is one append-only row in the credit ledger.
type LedgerEntry struct {
	ID          id.LedgerEntryID   `json:"id"`
	UserID      string             `json:"user_id"`
	CreditDelta types.Decimal      `json:"credit_delta"`
	Detail      types.LedgerDetail `json:"detail"`
	CreatedAt   time.Time          `json:"created_at"`
}

// PaymentTicket is one externally-tracked payment intent. Its ID follows
// the gateway's mandated out_trade_no format
// ("YYYYMMDDhhmmss.<uuid-hex>"), not an internal TypeID, since the
// payment provider echoes it back verbatim on callback.
type PaymentTicket struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Amount    types.Decimal     `json:"amount"`
	Detail    map[string]any    `json:"detail"`
	Callback  map[string]string `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
}

// HasCallback reports whether the ticket has already been sealed by a
// successful gateway callback.
func (t PaymentTicket) HasCallback() bool { return t.Callback != nil }

// RedemptionCode is a one-shot bearer credit token.
type RedemptionCode struct {
	Code       string        `json:"code"`
	Purpose    string        `json:"purpose"`
	Amount     types.Decimal `json:"amount"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiredAt  *time.Time    `json:"expired_at,omitempty"`
	UserID     *string       `json:"user_id,omitempty"`
	ReceivedAt *time.Time    `json:"received_at,omitempty"`
}

// ListOpts paginates a ledger entry listing.
type ListOpts struct {
	UserIDs []string
	Offset  int
	Limit   int
}

// Store is the unified persistence interface for the credit ledger.
type Store interface {
	// Balance and ledger entry methods. AddDelta and SetAbsolute are each
	// atomic: the entry append and the balance mutation happen in one
	// transaction. AddDelta's balance mutation is a relative SQL update
	// (credit = credit + ?), never an application-level read-modify-write;
	// SetAbsolute reads the prior balance inside the transaction to compute
	// the recorded delta and then writes the new value.
	EnsureBalance(ctx context.Context, userID string, defaultCredit types.Decimal) (Balance, error)
	AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) (LedgerEntry, error)
	SetAbsolute(ctx context.Context, userID string, newCredit types.Decimal, detail types.LedgerDetail) (LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, opts ListOpts) ([]LedgerEntry, error)
	CountLedgerEntries(ctx context.Context, userIDs []string) (int64, error)
	RangeLedgerEntries(ctx context.Context, start, end time.Time) ([]LedgerEntry, error)
	PruneLedgerEntries(ctx context.Context, before time.Time) (int64, error)

	// Payment ticket methods.
	CreateTicket(ctx context.Context, t PaymentTicket) error
	GetTicket(ctx context.Context, id string) (PaymentTicket, bool, error)
	// SetTicketCallback atomically seals a ticket with its first callback
	// payload. sealed is true only if this call performed the seal; a
	// replayed callback on an already-sealed ticket returns sealed=false
	// so the caller can skip crediting a second time.
	SetTicketCallback(ctx context.Context, id string, callback map[string]string) (sealed bool, err error)
	RangeTickets(ctx context.Context, start, end time.Time) ([]PaymentTicket, error)

	// Redemption code methods.
	IssueRedemptionCodes(ctx context.Context, codes []RedemptionCode) error
	GetRedemptionCode(ctx context.Context, code string) (RedemptionCode, bool, error)
	RedeemCode(ctx context.Context, code, userID string, now time.Time) (RedemptionCode, error)
	ListRedemptionCodes(ctx context.Context, keyword string) ([]RedemptionCode, error)
	// UpdateRedemptionCode and DeleteRedemptionCode are admin-only and
	// must reject a code whose ReceivedAt is already set.
	UpdateRedemptionCode(ctx context.Context, code RedemptionCode) error
	DeleteRedemptionCode(ctx context.Context, code string) error

	// Core methods.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
