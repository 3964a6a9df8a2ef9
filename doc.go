// Package ledger provides a composable credit accounting and
// usage-metering engine for LLM chat platforms.
//
// Ledger is designed as a library, not a service. Import it directly
// into your Go application. It provides:
//
//   - A per-user monetary-style credit balance, debited by a single
//     append-only ledger entry per request
//   - Token counting that uses provider-reported usage when available,
//     falling back to BPE encoder estimates
//   - Deterministic image token estimation without a vendor SDK
//   - Model pricing resolution with base-model inheritance and paid
//     feature surcharges
//   - A deduction scope that accumulates streamed usage and debits
//     exactly once when the request completes
//   - An admission controller that refuses a request before the
//     provider is ever called when the user cannot afford it
//   - A pluggable payment gateway adapter with idempotent,
//     signature-verified webhook callbacks
//   - One-shot redemption codes, issued in bulk and claimed at most once
//   - Operator reporting: per-model, per-user, and daily aggregates
//   - Production metrics through a pluggable MetricFactory and an audit
//     trail bridge for external event sinks
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    ledger "github.com/xraph/creditledger"
//	    "github.com/xraph/creditledger/store/sqlite"
//	)
//
//	store := sqlite.New(db) // db is an open *grove.DB
//
//	l := ledger.New(store, ledger.WithDefaultCredit(ledger.NewDecimal(0)))
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop(ctx)
//
// # Core Concepts
//
// Every user's balance is created lazily on first use:
//
//	credit, err := l.Ensure(ctx, userID)
//
// A deduction scope wraps one LLM request: open it before calling the
// provider, feed it every response chunk, and close it exactly once —
// the close debits the ledger for the accumulated usage and never
// returns an error to the caller:
//
//	s := l.OpenScope(userID, modelID, "/v1/chat/completions", messages, true, nil)
//	defer s.Close(ctx, l.FeatureSurcharge(nil))
//	s.Feed(chunk)
//
// The admission controller gates a request before the scope is even
// opened:
//
//	if err := l.CheckAdmission(ctx, controller, userID, admission.Request{ModelID: modelID}); err != nil {
//	    // refuse the request
//	}
//
// # Precision
//
// All monetary and token-price calculations use exact decimal
// arithmetic (24-digit precision, 12-digit scale) to avoid
// floating-point drift across millions of small per-token charges.
// Rounding only ever happens at display time.
//
// # TypeID
//
// Ledger entries use TypeID for globally unique, K-sortable
// identifiers:
//
//	lgr_01h2xcejqtf2nbrexx3vqjhp41  // LedgerEntry ID
//
// Balances, payment tickets, and redemption codes are keyed by their
// own natural key (user id, gateway-mandated out_trade_no, and code
// respectively) instead.
package ledger
