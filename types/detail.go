package types

// APIParams snapshots the model and mode of the request a ledger entry
// was charged for.
type APIParams struct {
	Model    string `json:"model"`
	IsStream bool   `json:"is_stream"`
}

// UsageDetail is the accumulated token usage and cost breakdown recorded
// on a ledger entry.
type UsageDetail struct {
	PromptTokens        int64    `json:"prompt_tokens"`
	CompletionTokens    int64    `json:"completion_tokens"`
	TotalTokens         int64    `json:"total_tokens"`
	TotalPrice          Decimal  `json:"total_price"`
	PromptUnitPrice     Decimal  `json:"prompt_unit_price"`
	CompletionUnitPrice Decimal  `json:"completion_unit_price"`
	RequestUnitPrice    Decimal  `json:"request_unit_price"`
	FeaturePrice        Decimal  `json:"feature_price"`
	Features            []string `json:"features,omitempty"`
}

// LedgerDetail is the structured payload stored alongside a LedgerEntry's
// credit_delta: what request it was for, and (for debits produced by a
// deduction scope) the usage and pricing that produced the amount.
type LedgerDetail struct {
	APIPath   string       `json:"api_path,omitempty"`
	APIParams *APIParams   `json:"api_params,omitempty"`
	Usage     *UsageDetail `json:"usage,omitempty"`
	Desc      string       `json:"desc,omitempty"`
}
