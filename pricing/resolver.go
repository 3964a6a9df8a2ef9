// Package pricing resolves the per-million unit prices and feature
// surcharges applied to one model invocation.
package pricing

import (
	"github.com/xraph/creditledger/types"
)

// maxBaseModelDepth bounds base-model-inheritance recursion so a
// misconfigured cycle cannot loop forever.
const maxBaseModelDepth = 16

// Model is the minimal view of a model's pricing configuration the
// resolver needs: an optional parent to inherit from, and a price map
// whose recognised keys are prompt_price, completion_price,
// request_price, and minimum_credit.
type Model struct {
	BaseModelID string
	Price       map[string]string
}

// Lookup resolves a model id to its Model definition. Callers supply it
// so the resolver has no storage dependency of its own.
type Lookup func(modelID string) (Model, bool)

// Defaults are the configured fallback unit prices used when a model is
// absent, has no base, or a price key is missing.
type Defaults struct {
	TokenPrice   types.Decimal // prompt and completion unit price fallback
	RequestPrice types.Decimal
}

// FeaturePrices are the configured flat per-million surcharges for the
// four known paid features. Unknown feature names cost zero.
type FeaturePrices struct {
	ImageGeneration types.Decimal
	CodeInterpreter types.Decimal
	WebSearch       types.Decimal
	DirectTools     types.Decimal
}

// Prices is the resolved result: four per-million unit prices.
type Prices struct {
	PromptUnit     types.Decimal
	CompletionUnit types.Decimal
	RequestUnit    types.Decimal
	MinimumCredit  types.Decimal
}

// Resolver resolves pricing for a model id, following base-model
// inheritance and falling back to configured defaults.
type Resolver struct {
	Lookup   Lookup
	Defaults Defaults
}

// NewResolver builds a Resolver over lookup with the given defaults.
func NewResolver(lookup Lookup, defaults Defaults) *Resolver {
	return &Resolver{Lookup: lookup, Defaults: defaults}
}

// Resolve returns the unit prices for modelID, following base-model
// inheritance. A missing model, an empty modelID, or an inheritance
// cycle all resolve to the configured defaults.
func (r *Resolver) Resolve(modelID string) Prices {
	return r.resolve(modelID, 0)
}

func (r *Resolver) resolve(modelID string, depth int) Prices {
	if modelID == "" || r.Lookup == nil || depth >= maxBaseModelDepth {
		return r.defaultPrices()
	}

	model, ok := r.Lookup(modelID)
	if !ok {
		return r.defaultPrices()
	}

	if model.BaseModelID != "" {
		if _, ok := r.Lookup(model.BaseModelID); ok {
			return r.resolve(model.BaseModelID, depth+1)
		}
	}

	return Prices{
		PromptUnit:     r.priceOrDefault(model.Price, "prompt_price", r.Defaults.TokenPrice),
		CompletionUnit: r.priceOrDefault(model.Price, "completion_price", r.Defaults.TokenPrice),
		RequestUnit:    r.priceOrDefault(model.Price, "request_price", r.Defaults.RequestPrice),
		MinimumCredit:  r.priceOrDefault(model.Price, "minimum_credit", types.Zero),
	}
}

func (r *Resolver) defaultPrices() Prices {
	return Prices{
		PromptUnit:     r.Defaults.TokenPrice,
		CompletionUnit: r.Defaults.TokenPrice,
		RequestUnit:    r.Defaults.RequestPrice,
		MinimumCredit:  types.Zero,
	}
}

func (r *Resolver) priceOrDefault(price map[string]string, key string, fallback types.Decimal) types.Decimal {
	raw, ok := price[key]
	if !ok || raw == "" {
		return fallback
	}
	d, err := types.NewFromString(raw)
	if err != nil {
		return fallback
	}
	return d
}

// FeatureSurcharge sums the configured per-million surcharge for each
// enabled feature name in features. Unknown names cost zero.
func (fp FeaturePrices) FeatureSurcharge(features []string) types.Decimal {
	total := types.Zero
	million := types.New(1000000)

	for _, f := range features {
		switch f {
		case "image_generation":
			total = total.Add(fp.ImageGeneration.Div(million))
		case "code_interpreter":
			total = total.Add(fp.CodeInterpreter.Div(million))
		case "web_search":
			total = total.Add(fp.WebSearch.Div(million))
		case "direct_tool_servers":
			total = total.Add(fp.DirectTools.Div(million))
		}
	}

	return total
}

// IsFree reports whether prices has no paid unit price and features
// carries no surcharge, i.e. the request costs nothing at all.
func IsFree(prices Prices, fp FeaturePrices, features []string) bool {
	modelFree := !prices.PromptUnit.IsPositive() && !prices.CompletionUnit.IsPositive() && !prices.RequestUnit.IsPositive()
	featuresFree := !fp.FeatureSurcharge(features).IsPositive()
	return modelFree && featuresFree
}
