// Package observability provides a metrics extension for the credit
// ledger that records lifecycle event counts and amounts through a
// host-supplied MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/creditledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnDebit             = (*MetricsExtension)(nil)
	_ plugin.OnCredit            = (*MetricsExtension)(nil)
	_ plugin.OnAdmissionRefused  = (*MetricsExtension)(nil)
	_ plugin.OnPaymentCallback   = (*MetricsExtension)(nil)
	_ plugin.OnRedemptionIssued  = (*MetricsExtension)(nil)
	_ plugin.OnRedemptionClaimed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics. Register it
// as a ledger plugin to automatically track credit ledger activity.
type MetricsExtension struct {
	factory MetricFactory

	DebitCount   Counter
	DebitAmount  Histogram
	CreditCount  Counter
	CreditAmount Histogram

	AdmissionRefused Counter

	PaymentCallbacksTotal    Counter
	PaymentCallbacksCredited Counter

	RedemptionCodesIssued  Counter
	RedemptionCodesClaimed Counter

	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided
// MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		DebitCount:   factory.Counter("ledger.debit.count"),
		DebitAmount:  factory.Histogram("ledger.debit.amount"),
		CreditCount:  factory.Counter("ledger.credit.count"),
		CreditAmount: factory.Histogram("ledger.credit.amount"),

		AdmissionRefused: factory.Counter("ledger.admission.refused"),

		PaymentCallbacksTotal:    factory.Counter("ledger.payment.callbacks.total"),
		PaymentCallbacksCredited: factory.Counter("ledger.payment.callbacks.credited"),

		RedemptionCodesIssued:  factory.Counter("ledger.redemption.issued"),
		RedemptionCodesClaimed: factory.Counter("ledger.redemption.claimed"),

		StoreErrors:  factory.Counter("ledger.store.errors"),
		PluginErrors: factory.Counter("ledger.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnDebit implements plugin.OnDebit.
func (m *MetricsExtension) OnDebit(_ context.Context, evt plugin.DebitEvent) error {
	m.DebitCount.Inc()
	m.DebitAmount.Observe(evt.Amount.Float64())
	return nil
}

// OnCredit implements plugin.OnCredit.
func (m *MetricsExtension) OnCredit(_ context.Context, evt plugin.CreditEvent) error {
	m.CreditCount.Inc()
	m.CreditAmount.Observe(evt.Amount.Float64())
	return nil
}

// OnAdmissionRefused implements plugin.OnAdmissionRefused.
func (m *MetricsExtension) OnAdmissionRefused(_ context.Context, _, _ string) error {
	m.AdmissionRefused.Inc()
	return nil
}

// OnPaymentCallback implements plugin.OnPaymentCallback.
func (m *MetricsExtension) OnPaymentCallback(_ context.Context, _ string, credited bool) error {
	m.PaymentCallbacksTotal.Inc()
	if credited {
		m.PaymentCallbacksCredited.Inc()
	}
	return nil
}

// OnRedemptionIssued implements plugin.OnRedemptionIssued.
func (m *MetricsExtension) OnRedemptionIssued(_ context.Context, _ string, count int) error {
	m.RedemptionCodesIssued.Add(float64(count))
	return nil
}

// OnRedemptionClaimed implements plugin.OnRedemptionClaimed.
func (m *MetricsExtension) OnRedemptionClaimed(_ context.Context, _, _ string) error {
	m.RedemptionCodesClaimed.Inc()
	return nil
}
