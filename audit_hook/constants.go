package audithook

// Action constants for audit events.
const (
	ActionDebit               = "ledger.debit"
	ActionCredit              = "ledger.credit"
	ActionAdmissionRefused    = "admission.refused"
	ActionPaymentCallback     = "payment.callback"
	ActionRedemptionIssued    = "redemption.issued"
	ActionRedemptionClaimed   = "redemption.claimed"
)

// Resource constants for audit events.
const (
	ResourceLedgerEntry  = "ledger_entry"
	ResourceAdmission    = "admission"
	ResourcePaymentTicket = "payment_ticket"
	ResourceRedemption   = "redemption_code"
)

// Category constants for audit events.
const (
	CategoryCredit     = "credit"
	CategoryAccess     = "access"
	CategoryPayment    = "payment"
	CategoryRedemption = "redemption"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
