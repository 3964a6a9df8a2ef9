// Package extension provides the Forge extension adapter for the
// credit ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with automatic dependency discovery, DI
// registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.ledger" or
// "ledger" keys.
package extension

import (
	"context"
	"errors"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/httpapi"
	"github.com/xraph/creditledger/payment"
	"github.com/xraph/creditledger/pricing"
	"github.com/xraph/creditledger/redemption"
	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/store/memory"
	"github.com/xraph/creditledger/tokenizer"
	"github.com/xraph/creditledger/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "ledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Credit accounting and usage-metering engine for LLM chat platforms"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the credit ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *ledger.Ledger
	store      store.Store
	ledgerOpts []ledger.Option

	priceStore *httpapi.PriceStore
	userIDFunc httpapi.UserIDFunc
	adminFunc  httpapi.AdminFunc
	handler    http.Handler

	paymentClient     *payment.Client
	redemptionService *redemption.Service
}

// New creates a new ledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance. This is nil until
// Register is called.
func (e *Extension) Engine() *ledger.Ledger { return e.engine }

// Handler returns the ledger's HTTP surface, ready to be mounted by the
// host application at e.config.BasePath. It is nil until Register is
// called, and stays nil when DisableRoutes is set.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	eng := ledger.New(e.store, opts...)
	e.engine = eng

	if err := e.buildHTTPHandler(); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*ledger.Ledger, error) {
		return e.engine, nil
	})
}

// buildHTTPHandler wires the EZFP payment gateway and redemption
// service, if configured, and assembles the ledger's HTTP surface. It
// is a no-op (leaving e.handler nil) when DisableRoutes is set.
func (e *Extension) buildHTTPHandler() error {
	if e.config.DisableRoutes {
		return nil
	}

	ratio, err := decimalField(e.config.CreditExchangeRatio, "credit_exchange_ratio")
	if err != nil {
		return err
	}

	if e.config.EZFPEndpoint != "" {
		e.paymentClient = e.engine.NewPaymentClient(payment.Config{
			Endpoint:      e.config.EZFPEndpoint,
			PID:           e.config.EZFPPID,
			Key:           e.config.EZFPKey,
			CallbackHost:  e.config.EZFPCallbackHost,
			AmountControl: e.config.EZFPAmountControl,
		}, ratio)
	}
	e.redemptionService = e.engine.NewRedemptionService(ratio)

	featurePrices, err := e.featurePrices()
	if err != nil {
		return err
	}

	e.handler = httpapi.NewRouter(httpapi.Deps{
		Engine:              e.engine,
		Payment:             e.paymentClient,
		Redemption:          e.redemptionService,
		CreditRatio:         ratio,
		PaymentCallbackHost: e.config.EZFPCallbackHost,
		UserID:              e.userIDFunc,
		Admin:               e.adminFunc,
		Pricing:             e.priceStore,
		PublicConfig: httpapi.PublicConfig{
			CreditExchangeRatio: e.config.CreditExchangeRatio,
			PayPriority:         e.config.EZFPPayPriority,
			NoCreditMessage:     e.config.CreditNoCreditMsg,
			FeaturePrices:       featurePrices,
		},
	})
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("ledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(ctx); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("ledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs ledger.Option values from the resolved
// config, parsing its decimal-valued string fields.
func (e *Extension) buildLedgerOpts() ([]ledger.Option, error) {
	opts := make([]ledger.Option, 0, len(e.ledgerOpts)+5)

	defaultCredit, err := decimalField(e.config.CreditDefaultCredit, "credit_default_credit")
	if err != nil {
		return nil, err
	}
	opts = append(opts, ledger.WithDefaultCredit(defaultCredit))

	opts = append(opts, ledger.WithEstimator(tokenizer.NewEstimator(
		e.config.UsageModelPrefixToRemove,
		e.config.UsageDefaultEncodingModel,
	)))

	tokenPrice, err := decimalField(e.config.UsageDefaultTokenPrice, "usage_default_token_price")
	if err != nil {
		return nil, err
	}
	requestPrice, err := decimalField(e.config.UsageDefaultRequestPrice, "usage_default_request_price")
	if err != nil {
		return nil, err
	}
	var lookup pricing.Lookup
	if e.priceStore != nil {
		lookup = e.priceStore.Lookup
	}
	opts = append(opts, ledger.WithResolver(pricing.NewResolver(lookup, pricing.Defaults{
		TokenPrice:   tokenPrice,
		RequestPrice: requestPrice,
	})))

	minCost, err := decimalField(e.config.UsageMinimumCost, "usage_minimum_cost")
	if err != nil {
		return nil, err
	}
	opts = append(opts, ledger.WithMinimumCost(minCost))

	featurePrices, err := e.featurePrices()
	if err != nil {
		return nil, err
	}
	opts = append(opts, ledger.WithFeaturePrices(featurePrices))

	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

func (e *Extension) featurePrices() (pricing.FeaturePrices, error) {
	var fp pricing.FeaturePrices
	var err error
	if fp.ImageGeneration, err = decimalField(e.config.UsageFeatureImageGenerationPrice, "usage_feature_image_generation_price"); err != nil {
		return fp, err
	}
	if fp.CodeInterpreter, err = decimalField(e.config.UsageFeatureCodeInterpreterPrice, "usage_feature_code_interpreter_price"); err != nil {
		return fp, err
	}
	if fp.WebSearch, err = decimalField(e.config.UsageFeatureWebSearchPrice, "usage_feature_web_search_price"); err != nil {
		return fp, err
	}
	if fp.DirectTools, err = decimalField(e.config.UsageFeatureDirectToolsPrice, "usage_feature_direct_tools_price"); err != nil {
		return fp, err
	}
	return fp, nil
}

func decimalField(raw, field string) (types.Decimal, error) {
	if raw == "" {
		return types.Zero, nil
	}
	d, err := types.NewFromString(raw)
	if err != nil {
		return types.Zero, errors.New("ledger: invalid decimal for " + field + ": " + err.Error())
	}
	return d, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("ledger: configuration is required but not found in config files; " +
				"ensure 'extensions.ledger' or 'ledger' key exists in your config")
		}

		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("ledger: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("credit_exchange_ratio", e.config.CreditExchangeRatio),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	if cm.IsSet("extensions.ledger") {
		if err := cm.Bind("extensions.ledger", &cfg); err == nil {
			e.Logger().Debug("ledger: loaded config from file", forge.F("key", "extensions.ledger"))
			return cfg, true
		}
		e.Logger().Warn("ledger: failed to bind extensions.ledger config", forge.F("error", "bind failed"))
	}

	if cm.IsSet("ledger") {
		if err := cm.Bind("ledger", &cfg); err == nil {
			e.Logger().Debug("ledger: loaded config from file", forge.F("key", "ledger"))
			return cfg, true
		}
		e.Logger().Warn("ledger: failed to bind ledger config", forge.F("error", "bind failed"))
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.CreditExchangeRatio == "" {
		cfg.CreditExchangeRatio = defaults.CreditExchangeRatio
	}
	if cfg.CreditDefaultCredit == "" {
		cfg.CreditDefaultCredit = defaults.CreditDefaultCredit
	}
	if cfg.CreditNoCreditMsg == "" {
		cfg.CreditNoCreditMsg = defaults.CreditNoCreditMsg
	}
	if cfg.UsageDefaultEncodingModel == "" {
		cfg.UsageDefaultEncodingModel = defaults.UsageDefaultEncodingModel
	}
	if cfg.UsageDefaultTokenPrice == "" {
		cfg.UsageDefaultTokenPrice = defaults.UsageDefaultTokenPrice
	}
	if cfg.UsageDefaultRequestPrice == "" {
		cfg.UsageDefaultRequestPrice = defaults.UsageDefaultRequestPrice
	}
	if cfg.UsageMinimumCost == "" {
		cfg.UsageMinimumCost = defaults.UsageMinimumCost
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool
// flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.CreditExchangeRatio == "" && programmaticConfig.CreditExchangeRatio != "" {
		yamlConfig.CreditExchangeRatio = programmaticConfig.CreditExchangeRatio
	}
	if yamlConfig.CreditDefaultCredit == "" && programmaticConfig.CreditDefaultCredit != "" {
		yamlConfig.CreditDefaultCredit = programmaticConfig.CreditDefaultCredit
	}
	if yamlConfig.CreditNoCreditMsg == "" && programmaticConfig.CreditNoCreditMsg != "" {
		yamlConfig.CreditNoCreditMsg = programmaticConfig.CreditNoCreditMsg
	}
	if yamlConfig.UsageModelPrefixToRemove == "" && programmaticConfig.UsageModelPrefixToRemove != "" {
		yamlConfig.UsageModelPrefixToRemove = programmaticConfig.UsageModelPrefixToRemove
	}
	if yamlConfig.UsageDefaultEncodingModel == "" && programmaticConfig.UsageDefaultEncodingModel != "" {
		yamlConfig.UsageDefaultEncodingModel = programmaticConfig.UsageDefaultEncodingModel
	}
	if yamlConfig.UsageDefaultTokenPrice == "" && programmaticConfig.UsageDefaultTokenPrice != "" {
		yamlConfig.UsageDefaultTokenPrice = programmaticConfig.UsageDefaultTokenPrice
	}
	if yamlConfig.UsageDefaultRequestPrice == "" && programmaticConfig.UsageDefaultRequestPrice != "" {
		yamlConfig.UsageDefaultRequestPrice = programmaticConfig.UsageDefaultRequestPrice
	}
	if yamlConfig.UsageMinimumCost == "" && programmaticConfig.UsageMinimumCost != "" {
		yamlConfig.UsageMinimumCost = programmaticConfig.UsageMinimumCost
	}
	if yamlConfig.EZFPEndpoint == "" && programmaticConfig.EZFPEndpoint != "" {
		yamlConfig.EZFPEndpoint = programmaticConfig.EZFPEndpoint
	}
	if yamlConfig.EZFPPID == "" && programmaticConfig.EZFPPID != "" {
		yamlConfig.EZFPPID = programmaticConfig.EZFPPID
	}
	if yamlConfig.EZFPKey == "" && programmaticConfig.EZFPKey != "" {
		yamlConfig.EZFPKey = programmaticConfig.EZFPKey
	}
	if yamlConfig.EZFPPayPriority == "" && programmaticConfig.EZFPPayPriority != "" {
		yamlConfig.EZFPPayPriority = programmaticConfig.EZFPPayPriority
	}
	if yamlConfig.EZFPCallbackHost == "" && programmaticConfig.EZFPCallbackHost != "" {
		yamlConfig.EZFPCallbackHost = programmaticConfig.EZFPCallbackHost
	}
	if yamlConfig.EZFPAmountControl == "" && programmaticConfig.EZFPAmountControl != "" {
		yamlConfig.EZFPAmountControl = programmaticConfig.EZFPAmountControl
	}

	return e.mergeWithDefaults(yamlConfig)
}
