// Package audithook bridges credit ledger lifecycle events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not import
// any concrete audit sink directly. Callers inject a RecorderFunc
// adapter that bridges to their own backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/creditledger/plugin"
	"github.com/xraph/creditledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnDebit             = (*Extension)(nil)
	_ plugin.OnCredit            = (*Extension)(nil)
	_ plugin.OnAdmissionRefused  = (*Extension)(nil)
	_ plugin.OnPaymentCallback   = (*Extension)(nil)
	_ plugin.OnRedemptionIssued  = (*Extension)(nil)
	_ plugin.OnRedemptionClaimed = (*Extension)(nil)
)

// Recorder is the interface audit backends must implement. Defined
// locally so this package carries no dependency on a concrete audit
// trail library — callers inject the concrete implementation at wiring
// time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnDebit implements plugin.OnDebit.
func (e *Extension) OnDebit(ctx context.Context, evt plugin.DebitEvent) error {
	return e.record(ctx, ActionDebit, SeverityInfo, OutcomeSuccess,
		ResourceLedgerEntry, evt.UserID, CategoryCredit, nil,
		"user_id", evt.UserID,
		"amount", evt.Amount.String(),
		"model", modelOf(evt.Detail.APIParams),
	)
}

// OnCredit implements plugin.OnCredit.
func (e *Extension) OnCredit(ctx context.Context, evt plugin.CreditEvent) error {
	return e.record(ctx, ActionCredit, SeverityInfo, OutcomeSuccess,
		ResourceLedgerEntry, evt.UserID, CategoryCredit, nil,
		"user_id", evt.UserID,
		"amount", evt.Amount.String(),
		"desc", evt.Detail.Desc,
	)
}

// OnAdmissionRefused implements plugin.OnAdmissionRefused.
func (e *Extension) OnAdmissionRefused(ctx context.Context, userID, modelID string) error {
	return e.record(ctx, ActionAdmissionRefused, SeverityWarning, OutcomeFailure,
		ResourceAdmission, userID, CategoryAccess, nil,
		"user_id", userID,
		"model", modelID,
	)
}

// OnPaymentCallback implements plugin.OnPaymentCallback.
func (e *Extension) OnPaymentCallback(ctx context.Context, outTradeNo string, credited bool) error {
	outcome := OutcomeSuccess
	if !credited {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionPaymentCallback, SeverityInfo, outcome,
		ResourcePaymentTicket, outTradeNo, CategoryPayment, nil,
		"out_trade_no", outTradeNo,
		"credited", credited,
	)
}

// OnRedemptionIssued implements plugin.OnRedemptionIssued.
func (e *Extension) OnRedemptionIssued(ctx context.Context, purpose string, count int) error {
	return e.record(ctx, ActionRedemptionIssued, SeverityInfo, OutcomeSuccess,
		ResourceRedemption, "", CategoryRedemption, nil,
		"purpose", purpose,
		"count", count,
	)
}

// OnRedemptionClaimed implements plugin.OnRedemptionClaimed.
func (e *Extension) OnRedemptionClaimed(ctx context.Context, code, userID string) error {
	return e.record(ctx, ActionRedemptionClaimed, SeverityInfo, OutcomeSuccess,
		ResourceRedemption, code, CategoryRedemption, nil,
		"code", code,
		"user_id", userID,
	)
}

func modelOf(p *types.APIParams) string {
	if p == nil {
		return ""
	}
	return p.Model
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
