// Package plugin provides an extensible hook system for the credit
// ledger. Plugins observe ledger lifecycle events — debits, credits,
// admission refusals, payment callbacks, redemption activity — without
// the ledger engine depending on any concrete observer.
package plugin

import (
	"context"

	"github.com/xraph/creditledger/types"
)

// Plugin is the base interface every plugin implements.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called once when the ledger engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger mutation hooks
// ──────────────────────────────────────────────────

// DebitEvent describes one negative ledger delta produced by a closed
// deduction scope or an operator override.
type DebitEvent struct {
	UserID string
	Amount types.Decimal // positive magnitude debited
	Detail types.LedgerDetail
}

// CreditEvent describes one positive ledger delta: a payment callback,
// a redemption code claim, or an operator top-up.
type CreditEvent struct {
	UserID string
	Amount types.Decimal
	Detail types.LedgerDetail
}

// OnDebit is called after a ledger entry with a negative delta is
// appended.
type OnDebit interface {
	Plugin
	OnDebit(ctx context.Context, evt DebitEvent) error
}

// OnCredit is called after a ledger entry with a positive delta is
// appended.
type OnCredit interface {
	Plugin
	OnCredit(ctx context.Context, evt CreditEvent) error
}

// ──────────────────────────────────────────────────
// Admission hooks
// ──────────────────────────────────────────────────

// OnAdmissionRefused is called when the admission controller refuses a
// request for insufficient credit.
type OnAdmissionRefused interface {
	Plugin
	OnAdmissionRefused(ctx context.Context, userID, modelID string) error
}

// ──────────────────────────────────────────────────
// Payment gateway hooks
// ──────────────────────────────────────────────────

// OnPaymentCallback is called after one webhook delivery has been
// processed, whatever its outcome. credited is true for every delivery
// answered "success" with trade_status TRADE_SUCCESS, which includes
// replays of an already sealed ticket that add no credit.
type OnPaymentCallback interface {
	Plugin
	OnPaymentCallback(ctx context.Context, outTradeNo string, credited bool) error
}

// ──────────────────────────────────────────────────
// Redemption code hooks
// ──────────────────────────────────────────────────

// OnRedemptionIssued is called after a batch of redemption codes is
// bulk-inserted.
type OnRedemptionIssued interface {
	Plugin
	OnRedemptionIssued(ctx context.Context, purpose string, count int) error
}

// OnRedemptionClaimed is called after a redemption code is successfully
// claimed and its amount credited.
type OnRedemptionClaimed interface {
	Plugin
	OnRedemptionClaimed(ctx context.Context, code, userID string) error
}
