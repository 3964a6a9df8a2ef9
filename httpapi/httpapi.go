// Package httpapi exposes the credit ledger over HTTP: the operator
// console's logs/statistics/redemption-code endpoints, the checkout and
// payment-gateway webhook endpoints, and a small pricing-override
// surface. The host application owns authentication; httpapi depends on
// it only through the narrow UserIDFunc/AdminFunc collaborators so it
// never has to know how a request is authenticated.
package httpapi

import (
	"net/http"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/payment"
	"github.com/xraph/creditledger/pricing"
	"github.com/xraph/creditledger/redemption"
	"github.com/xraph/creditledger/types"
)

// UserIDFunc resolves the calling user's id from an inbound request. It
// returns an error if the request carries no identifiable user.
type UserIDFunc func(r *http.Request) (string, error)

// AdminFunc reports whether the calling request is an operator, and thus
// allowed to reach the admin-only endpoints (logs, statistics,
// redemption-code issuance, pricing overrides).
type AdminFunc func(r *http.Request) bool

// Deps wires the collaborators the HTTP surface needs. Engine is
// required. Without UserID the user-scoped endpoints respond 403, and
// without Admin every admin endpoint does. Payment, Redemption and
// Pricing are optional: the routes that check for a missing one respond
// 404, except GET /callback, which answers "no ticket fount" with 200.
type Deps struct {
	Engine *ledger.Ledger

	// Payment, if set, enables the checkout and webhook endpoints.
	Payment *payment.Client

	// Redemption, if set, enables listing, issuing and receiving
	// redemption codes. The update, delete and export endpoints go
	// through Engine and do not check it.
	Redemption *redemption.Service

	// CreditRatio is the configured credit exchange ratio, forwarded to
	// ticket creation so the response can report the credited amount.
	CreditRatio types.Decimal

	// PaymentCallbackHost is where GET /callback/redirect sends a paying
	// user's browser after checkout.
	PaymentCallbackHost string

	// UserID resolves the calling user for user-scoped endpoints
	// (logs, ticket creation, redemption-code receive). Required.
	UserID UserIDFunc

	// Admin reports whether the calling request may reach operator-only
	// endpoints. A nil Admin refuses every admin endpoint.
	Admin AdminFunc

	// Pricing is the mutable lookup backing GET/PUT /models/price. A nil
	// Pricing makes that endpoint respond 404.
	Pricing *PriceStore

	// PublicConfig is returned verbatim by GET /config.
	PublicConfig PublicConfig
}

// PublicConfig is the subset of ledger configuration safe to expose to
// any caller, unauthenticated: it lets a chat client decide whether to
// show a balance indicator and what exchange ratio to display.
type PublicConfig struct {
	CreditExchangeRatio string                `json:"credit_exchange_ratio"`
	PayPriority         string                `json:"pay_priority"`
	NoCreditMessage     string                `json:"no_credit_message"`
	FeaturePrices       pricing.FeaturePrices `json:"feature_prices"`
}
