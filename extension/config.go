package extension

// Config holds the credit ledger extension configuration. Fields can be
// set programmatically via Option functions or loaded from YAML
// configuration files (under "extensions.ledger" or "ledger" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for ledger routes (conventionally
	// "/credit"; DefaultConfig leaves it empty).
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// CreditExchangeRatio converts one unit of gateway/redemption currency
	// into credited balance (default: "1").
	CreditExchangeRatio string `json:"credit_exchange_ratio" mapstructure:"credit_exchange_ratio" yaml:"credit_exchange_ratio"`

	// CreditDefaultCredit is the balance a brand-new user starts with.
	CreditDefaultCredit string `json:"credit_default_credit" mapstructure:"credit_default_credit" yaml:"credit_default_credit"`

	// CreditNoCreditMsg is the notice surfaced when admission refuses a
	// request for insufficient balance.
	CreditNoCreditMsg string `json:"credit_no_credit_msg" mapstructure:"credit_no_credit_msg" yaml:"credit_no_credit_msg"`

	// UsageModelPrefixToRemove is stripped from a model id before tokenizer
	// encoder lookup, e.g. a gateway-specific routing prefix.
	UsageModelPrefixToRemove string `json:"usage_model_prefix_to_remove" mapstructure:"usage_model_prefix_to_remove" yaml:"usage_model_prefix_to_remove"`

	// UsageDefaultEncodingModel selects the tiktoken encoder used when a
	// model id is unrecognised (default: "gpt-4o").
	UsageDefaultEncodingModel string `json:"usage_default_encoding_model" mapstructure:"usage_default_encoding_model" yaml:"usage_default_encoding_model"`

	// UsageDefaultTokenPrice is the per-million fallback prompt/completion
	// unit price applied when a model has no configured price.
	UsageDefaultTokenPrice string `json:"usage_default_token_price" mapstructure:"usage_default_token_price" yaml:"usage_default_token_price"`

	// UsageDefaultRequestPrice is the per-million fallback flat request
	// price.
	UsageDefaultRequestPrice string `json:"usage_default_request_price" mapstructure:"usage_default_request_price" yaml:"usage_default_request_price"`

	// UsageMinimumCost is the floor applied to every priced request.
	UsageMinimumCost string `json:"usage_minimum_cost" mapstructure:"usage_minimum_cost" yaml:"usage_minimum_cost"`

	// UsageFeatureImageGenerationPrice, UsageFeatureCodeInterpreterPrice,
	// UsageFeatureWebSearchPrice, and UsageFeatureDirectToolsPrice are the
	// flat per-million surcharges for the four known paid features.
	UsageFeatureImageGenerationPrice string `json:"usage_feature_image_generation_price" mapstructure:"usage_feature_image_generation_price" yaml:"usage_feature_image_generation_price"`
	UsageFeatureCodeInterpreterPrice string `json:"usage_feature_code_interpreter_price" mapstructure:"usage_feature_code_interpreter_price" yaml:"usage_feature_code_interpreter_price"`
	UsageFeatureWebSearchPrice       string `json:"usage_feature_web_search_price" mapstructure:"usage_feature_web_search_price" yaml:"usage_feature_web_search_price"`
	UsageFeatureDirectToolsPrice     string `json:"usage_feature_direct_tools_price" mapstructure:"usage_feature_direct_tools_price" yaml:"usage_feature_direct_tools_price"`

	// EZFPEndpoint, EZFPPID, EZFPKey, EZFPPayPriority, EZFPCallbackHost, and
	// EZFPAmountControl configure the EZFP-style payment gateway adapter.
	EZFPEndpoint      string `json:"ezfp_endpoint" mapstructure:"ezfp_endpoint" yaml:"ezfp_endpoint"`
	EZFPPID           string `json:"ezfp_pid" mapstructure:"ezfp_pid" yaml:"ezfp_pid"`
	EZFPKey           string `json:"ezfp_key" mapstructure:"ezfp_key" yaml:"ezfp_key"`
	EZFPPayPriority   string `json:"ezfp_pay_priority" mapstructure:"ezfp_pay_priority" yaml:"ezfp_pay_priority"`
	EZFPCallbackHost  string `json:"ezfp_callback_host" mapstructure:"ezfp_callback_host" yaml:"ezfp_callback_host"`
	EZFPAmountControl string `json:"ezfp_amount_control" mapstructure:"ezfp_amount_control" yaml:"ezfp_amount_control"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CreditExchangeRatio:       "1",
		CreditDefaultCredit:       "0",
		CreditNoCreditMsg:         "Insufficient credit balance. Please top up to continue.",
		UsageDefaultEncodingModel: "gpt-4o",
		UsageDefaultTokenPrice:    "0",
		UsageDefaultRequestPrice:  "0",
		UsageMinimumCost:          "0",
	}
}
