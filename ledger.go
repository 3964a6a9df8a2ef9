// Package ledger is the credit accounting and usage-metering engine for
// an LLM chat platform: it maintains a per-user monetary-style credit
// balance, debits it for LLM calls token-counted by the tokenizer and
// priced by the pricing resolver, tops it up through a payment gateway
// or redemption codes, gates requests with an admission controller, and
// folds ledger and payment history into operator reports.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/creditledger/admission"
	"github.com/xraph/creditledger/imagetoken"
	"github.com/xraph/creditledger/payment"
	"github.com/xraph/creditledger/plugin"
	"github.com/xraph/creditledger/pricing"
	"github.com/xraph/creditledger/redemption"
	"github.com/xraph/creditledger/report"
	"github.com/xraph/creditledger/scope"
	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/tokenizer"
	"github.com/xraph/creditledger/types"
	"github.com/xraph/creditledger/usage"
)

// UserNamer resolves a display name for a user id, used only to key the
// per-user report pie as "id:name". A nil Namer leaves the name half
// blank; the user directory itself lives outside this subsystem.
type UserNamer interface {
	UserName(ctx context.Context, userID string) string
}

// Ledger is the credit ledger engine.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	defaultCredit types.Decimal
	namer         UserNamer

	estimator *tokenizer.Estimator
	resolver  *pricing.Resolver
	features  pricing.FeaturePrices
	minCost   types.Decimal
}

// New creates a Ledger over the given store.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     s,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		estimator: tokenizer.NewEstimator("", "gpt-4o"),
		resolver:  pricing.NewResolver(nil, pricing.Defaults{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used by the ledger and its plugin registry.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin at construction time.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		if err := l.plugins.Register(p); err != nil {
			l.logger.Warn("ledger: plugin registration failed", "plugin", p.Name(), "error", err)
		}
	}
}

// WithDefaultCredit sets the balance a brand-new user is created with.
func WithDefaultCredit(amount types.Decimal) Option {
	return func(l *Ledger) { l.defaultCredit = amount }
}

// WithUserNamer sets the collaborator used to resolve display names for
// the reporting per-user breakdown.
func WithUserNamer(namer UserNamer) Option {
	return func(l *Ledger) { l.namer = namer }
}

// WithEstimator overrides the default token estimator.
func WithEstimator(est *tokenizer.Estimator) Option {
	return func(l *Ledger) { l.estimator = est }
}

// WithResolver overrides the default pricing resolver.
func WithResolver(r *pricing.Resolver) Option {
	return func(l *Ledger) { l.resolver = r }
}

// WithFeaturePrices sets the flat per-million surcharges for paid
// features (image generation, code interpreter, web search, direct
// tool servers).
func WithFeaturePrices(fp pricing.FeaturePrices) Option {
	return func(l *Ledger) { l.features = fp }
}

// WithMinimumCost sets the floor applied to every priced request.
func WithMinimumCost(min types.Decimal) Option {
	return func(l *Ledger) { l.minCost = min }
}

// Start migrates the store and dispatches OnInit to every plugin.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	l.plugins.DispatchInit(ctx, l)
	l.logger.Info("ledger started")
	return nil
}

// Stop dispatches OnShutdown to every plugin and closes the store.
func (l *Ledger) Stop(ctx context.Context) error {
	l.plugins.DispatchShutdown(ctx)
	return l.store.Close()
}

// Health pings the underlying store.
func (l *Ledger) Health(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Credit ledger core
// ──────────────────────────────────────────────────

// Ensure idempotently creates a user's balance at the configured default
// credit if it does not already exist, and returns the current credit.
func (l *Ledger) Ensure(ctx context.Context, userID string) (types.Decimal, error) {
	b, err := l.store.EnsureBalance(ctx, userID, l.defaultCredit)
	if err != nil {
		return types.Zero, fmt.Errorf("ledger: ensure balance: %w", err)
	}
	return b.Credit, nil
}

// AddDelta applies a relative credit change to userID and appends one
// ledger entry recording it. It satisfies the narrow Debiter/Crediter
// interfaces scope, payment, and redemption each depend on. A user with
// no balance yet is first created at the default credit.
func (l *Ledger) AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) error {
	if _, err := l.store.EnsureBalance(ctx, userID, l.defaultCredit); err != nil {
		return fmt.Errorf("ledger: ensure balance: %w", err)
	}
	if _, err := l.store.AddDelta(ctx, userID, delta, detail); err != nil {
		return fmt.Errorf("ledger: add delta: %w", err)
	}

	if delta.IsNegative() {
		l.plugins.DispatchDebit(ctx, plugin.DebitEvent{UserID: userID, Amount: delta.Abs(), Detail: detail})
	} else if delta.IsPositive() {
		l.plugins.DispatchCredit(ctx, plugin.CreditEvent{UserID: userID, Amount: delta, Detail: detail})
	}

	return nil
}

// SetAbsolute overrides a user's balance to an exact value, recording
// the implied delta as a ledger entry. Used by operator balance edits.
func (l *Ledger) SetAbsolute(ctx context.Context, userID string, newCredit types.Decimal, detail types.LedgerDetail) (store.LedgerEntry, error) {
	entry, err := l.store.SetAbsolute(ctx, userID, newCredit, detail)
	if err != nil {
		return store.LedgerEntry{}, fmt.Errorf("ledger: set absolute: %w", err)
	}

	if entry.CreditDelta.IsNegative() {
		l.plugins.DispatchDebit(ctx, plugin.DebitEvent{UserID: userID, Amount: entry.CreditDelta.Abs(), Detail: detail})
	} else if entry.CreditDelta.IsPositive() {
		l.plugins.DispatchCredit(ctx, plugin.CreditEvent{UserID: userID, Amount: entry.CreditDelta, Detail: detail})
	}

	return entry, nil
}

// List returns a page of ledger entries, newest first, optionally
// restricted to a set of user ids.
func (l *Ledger) List(ctx context.Context, opts store.ListOpts) ([]store.LedgerEntry, error) {
	return l.store.ListLedgerEntries(ctx, opts)
}

// Count returns the total number of ledger entries, optionally
// restricted to a set of user ids.
func (l *Ledger) Count(ctx context.Context, userIDs []string) (int64, error) {
	return l.store.CountLedgerEntries(ctx, userIDs)
}

// Range returns ledger entries created in [start, end), ordered oldest
// first, for reporting.
func (l *Ledger) Range(ctx context.Context, start, end time.Time) ([]store.LedgerEntry, error) {
	return l.store.RangeLedgerEntries(ctx, start, end)
}

// Prune permanently deletes ledger entries older than before, returning
// the count removed.
func (l *Ledger) Prune(ctx context.Context, before time.Time) (int64, error) {
	return l.store.PruneLedgerEntries(ctx, before)
}

// ──────────────────────────────────────────────────
// Deduction scope wiring
// ──────────────────────────────────────────────────

// OpenScope resolves pricing for modelID and opens a Scope bound to one
// request. Callers Feed() provider response chunks and must Close() the
// returned Scope exactly once, typically in a defer.
func (l *Ledger) OpenScope(userID, modelID, apiPath string, messages []usage.MessageItem, stream bool, features []string) *scope.Scope {
	prices := l.resolver.Resolve(modelID)
	s := scope.New(l, l.estimator, userID, modelID, messages, stream, prices, features, l.minCost, l.logger)
	s.APIPath = apiPath
	return s
}

// FeatureSurcharge sums the configured per-million surcharge for the
// given active feature names.
func (l *Ledger) FeatureSurcharge(features []string) types.Decimal {
	return l.features.FeatureSurcharge(features)
}

// ──────────────────────────────────────────────────
// Admission control wiring
// ──────────────────────────────────────────────────

// NewAdmissionController builds an admission.Controller bound to this
// ledger's balances and pricing. annotator and noCreditMsg are passed
// through verbatim; annotator may be nil.
func (l *Ledger) NewAdmissionController(annotator admission.ChatAnnotator, noCreditMsg string) *admission.Controller {
	c := admission.NewController(l, l.resolver, l.features, annotator, noCreditMsg)
	return c
}

// CheckAdmission evaluates a controller's decision and, on refusal,
// dispatches OnAdmissionRefused before returning the error.
func (l *Ledger) CheckAdmission(ctx context.Context, c *admission.Controller, userID string, req admission.Request) error {
	err := c.Check(ctx, userID, req)
	var refused *admission.RefusedError
	if errors.As(err, &refused) {
		l.plugins.DispatchAdmissionRefused(ctx, userID, req.ModelID)
	}
	return err
}

// ──────────────────────────────────────────────────
// Payment gateway wiring
// ──────────────────────────────────────────────────

// ticketAdapter bridges store.Store's ticket methods to the narrower
// payment.TicketStore interface the gateway client depends on.
type ticketAdapter struct {
	store store.Store
}

func (a ticketAdapter) GetTicket(ctx context.Context, id string) (payment.Ticket, bool, error) {
	t, ok, err := a.store.GetTicket(ctx, id)
	if err != nil || !ok {
		return payment.Ticket{}, ok, err
	}
	return payment.Ticket{
		ID:          t.ID,
		UserID:      t.UserID,
		Amount:      t.Amount,
		HasCallback: t.HasCallback(),
	}, true, nil
}

func (a ticketAdapter) SetCallback(ctx context.Context, id string, callback map[string]string) (bool, error) {
	return a.store.SetTicketCallback(ctx, id, callback)
}

// NewPaymentClient builds a payment.Client wired to this ledger's store
// and credit-granting logic.
func (l *Ledger) NewPaymentClient(cfg payment.Config, ratio types.Decimal) *payment.Client {
	return payment.NewClient(cfg, ticketAdapter{store: l.store}, l, ratio)
}

// HandlePaymentCallback processes one gateway webhook delivery and
// dispatches OnPaymentCallback once, regardless of outcome. The credited
// flag passed to plugins is true whenever the gateway answer is "success"
// for a TRADE_SUCCESS delivery; a replayed delivery for an already sealed
// ticket also reports true although it grants no credit.
func (l *Ledger) HandlePaymentCallback(ctx context.Context, client *payment.Client, payload map[string]string) string {
	result := client.HandleCallback(ctx, payload)
	l.plugins.DispatchPaymentCallback(ctx, payload["out_trade_no"], result == "success" && payload["trade_status"] == "TRADE_SUCCESS")
	return result
}

// CreateTicket persists a new payment ticket ahead of initiating a
// checkout.
func (l *Ledger) CreateTicket(ctx context.Context, t store.PaymentTicket) error {
	return l.store.CreateTicket(ctx, t)
}

// ──────────────────────────────────────────────────
// Redemption code wiring
// ──────────────────────────────────────────────────

// redemptionStoreAdapter bridges store.Store's redemption methods to the
// narrower redemption.Store interface the service depends on.
type redemptionStoreAdapter struct {
	store store.Store
}

func (a redemptionStoreAdapter) IssueCodes(ctx context.Context, codes []redemption.Code) error {
	rows := make([]store.RedemptionCode, len(codes))
	for i, c := range codes {
		rows[i] = store.RedemptionCode{
			Code:      c.Code,
			Purpose:   c.Purpose,
			Amount:    c.Amount,
			CreatedAt: c.CreatedAt,
			ExpiredAt: c.ExpiredAt,
		}
	}
	return a.store.IssueRedemptionCodes(ctx, rows)
}

func (a redemptionStoreAdapter) Redeem(ctx context.Context, code, userID string, now time.Time) (redemption.Code, error) {
	c, err := a.store.RedeemCode(ctx, code, userID, now)
	if err != nil {
		return redemption.Code{}, err
	}
	return redemption.Code{
		Code:       c.Code,
		Purpose:    c.Purpose,
		Amount:     c.Amount,
		CreatedAt:  c.CreatedAt,
		ExpiredAt:  c.ExpiredAt,
		UserID:     c.UserID,
		ReceivedAt: c.ReceivedAt,
	}, nil
}

// NewRedemptionService builds a redemption.Service wired to this
// ledger's store and credit-granting logic.
func (l *Ledger) NewRedemptionService(ratio types.Decimal) *redemption.Service {
	return redemption.NewService(redemptionStoreAdapter{store: l.store}, l, ratio)
}

// IssueRedemptionCodes issues a batch of codes and dispatches
// OnRedemptionIssued.
func (l *Ledger) IssueRedemptionCodes(ctx context.Context, svc *redemption.Service, purpose string, count int, amount types.Decimal, expiredAt *time.Time) ([]redemption.Code, error) {
	codes, err := svc.Issue(ctx, purpose, count, amount, expiredAt)
	if err != nil {
		return nil, err
	}
	l.plugins.DispatchRedemptionIssued(ctx, purpose, len(codes))
	return codes, nil
}

// RedeemCode redeems a code for userID and dispatches
// OnRedemptionClaimed on success.
func (l *Ledger) RedeemCode(ctx context.Context, svc *redemption.Service, code, userID string) error {
	if err := svc.Redeem(ctx, code, userID); err != nil {
		return err
	}
	l.plugins.DispatchRedemptionClaimed(ctx, code, userID)
	return nil
}

// ListRedemptionCodes lists codes matching an optional keyword.
func (l *Ledger) ListRedemptionCodes(ctx context.Context, keyword string) ([]store.RedemptionCode, error) {
	return l.store.ListRedemptionCodes(ctx, keyword)
}

// UpdateRedemptionCode updates an unclaimed redemption code.
func (l *Ledger) UpdateRedemptionCode(ctx context.Context, code store.RedemptionCode) error {
	return l.store.UpdateRedemptionCode(ctx, code)
}

// DeleteRedemptionCode deletes an unclaimed redemption code.
func (l *Ledger) DeleteRedemptionCode(ctx context.Context, code string) error {
	return l.store.DeleteRedemptionCode(ctx, code)
}

// ──────────────────────────────────────────────────
// Reporting wiring
// ──────────────────────────────────────────────────

// reportSource bridges store.Store's range methods, plus the ledger's
// UserNamer, to the leaner report.Source interface.
type reportSource struct {
	store store.Store
	namer UserNamer
}

func (r reportSource) RangeLedgerEntries(ctx context.Context, start, end time.Time) ([]report.LedgerEntry, error) {
	rows, err := r.store.RangeLedgerEntries(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]report.LedgerEntry, len(rows))
	for i, e := range rows {
		name := ""
		if r.namer != nil {
			name = r.namer.UserName(ctx, e.UserID)
		}
		out[i] = report.LedgerEntry{
			UserID:      e.UserID,
			UserName:    name,
			CreditDelta: e.CreditDelta,
			Detail:      e.Detail,
			CreatedAt:   e.CreatedAt,
		}
	}
	return out, nil
}

func (r reportSource) RangeTickets(ctx context.Context, start, end time.Time) ([]report.PaymentTicket, error) {
	rows, err := r.store.RangeTickets(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]report.PaymentTicket, len(rows))
	for i, t := range rows {
		out[i] = report.PaymentTicket{
			Amount:     t.Amount,
			CreatedAt:  t.CreatedAt,
			Successful: t.HasCallback(),
		}
	}
	return out, nil
}

// Statistics folds ledger entries and payment tickets in [start, end)
// into per-model, per-user, and daily-payment aggregates.
func (l *Ledger) Statistics(ctx context.Context, start, end time.Time) (report.Statistics, error) {
	return report.Compute(ctx, reportSource{store: l.store, namer: l.namer}, start, end)
}

// ──────────────────────────────────────────────────
// Image token calculator passthrough
// ──────────────────────────────────────────────────

// CalculateImageTokens estimates the token cost of one image part for
// modelID, fetching or decoding it as needed to read its dimensions.
func (l *Ledger) CalculateImageTokens(modelID string, img imagetoken.ImageRef) (int, error) {
	return imagetoken.Calculate(modelID, img)
}
