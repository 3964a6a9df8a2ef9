package extension

import (
	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/httpapi"
	"github.com/xraph/creditledger/plugin"
	"github.com/xraph/creditledger/store"
)

// Option configures the Ledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a ledger.Option through to the underlying engine.
func WithLedgerOption(opt ledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, ledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for ledger routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCreditExchangeRatio sets the conversion ratio applied when
// payment and redemption amounts are credited to a balance.
func WithCreditExchangeRatio(ratio string) Option {
	return func(e *Extension) { e.config.CreditExchangeRatio = ratio }
}

// WithDefaultCredit sets the starting balance assigned to a brand-new
// user.
func WithDefaultCredit(amount string) Option {
	return func(e *Extension) { e.config.CreditDefaultCredit = amount }
}

// WithNoCreditMessage sets the notice surfaced when admission refuses
// a request for insufficient balance.
func WithNoCreditMessage(msg string) Option {
	return func(e *Extension) { e.config.CreditNoCreditMsg = msg }
}

// WithUsageDefaults sets the fallback encoding model and per-million
// prompt/completion and request unit prices applied when a model has
// no configured price.
func WithUsageDefaults(encodingModel, tokenPrice, requestPrice string) Option {
	return func(e *Extension) {
		e.config.UsageDefaultEncodingModel = encodingModel
		e.config.UsageDefaultTokenPrice = tokenPrice
		e.config.UsageDefaultRequestPrice = requestPrice
	}
}

// WithMinimumCost sets the floor applied to every priced request.
func WithMinimumCost(amount string) Option {
	return func(e *Extension) { e.config.UsageMinimumCost = amount }
}

// WithFeaturePrices sets the flat per-million surcharges for the four
// known paid features.
func WithFeaturePrices(imageGeneration, codeInterpreter, webSearch, directTools string) Option {
	return func(e *Extension) {
		e.config.UsageFeatureImageGenerationPrice = imageGeneration
		e.config.UsageFeatureCodeInterpreterPrice = codeInterpreter
		e.config.UsageFeatureWebSearchPrice = webSearch
		e.config.UsageFeatureDirectToolsPrice = directTools
	}
}

// WithUserIDFunc sets the collaborator the HTTP surface uses to resolve
// the calling user for user-scoped endpoints. The host application owns
// authentication; this is the only hook the ledger needs into it.
func WithUserIDFunc(fn httpapi.UserIDFunc) Option {
	return func(e *Extension) { e.userIDFunc = fn }
}

// WithAdminFunc sets the collaborator the HTTP surface uses to decide
// whether a request may reach operator-only endpoints.
func WithAdminFunc(fn httpapi.AdminFunc) Option {
	return func(e *Extension) { e.adminFunc = fn }
}

// WithPriceStore sets the mutable model pricing catalogue backing
// GET/PUT /models/price and consulted by the pricing resolver. Without
// one, every model resolves to the configured defaults and the pricing
// endpoints respond 404.
func WithPriceStore(s *httpapi.PriceStore) Option {
	return func(e *Extension) { e.priceStore = s }
}

// WithEZFPGateway configures the EZFP-style payment gateway adapter.
func WithEZFPGateway(endpoint, pid, key, callbackHost, amountControl string) Option {
	return func(e *Extension) {
		e.config.EZFPEndpoint = endpoint
		e.config.EZFPPID = pid
		e.config.EZFPKey = key
		e.config.EZFPCallbackHost = callbackHost
		e.config.EZFPAmountControl = amountControl
	}
}

// WithEZFPPayPriority sets the preferred pay method surfaced through
// GET /config.
func WithEZFPPayPriority(priority string) Option {
	return func(e *Extension) { e.config.EZFPPayPriority = priority }
}
