package pricing

import (
	"testing"

	"github.com/xraph/creditledger/types"
)

func defaults() Defaults {
	return Defaults{
		TokenPrice:   types.MustFromString("2.0"),
		RequestPrice: types.Zero,
	}
}

func TestResolveNoModel(t *testing.T) {
	r := NewResolver(nil, defaults())
	prices := r.Resolve("gpt-4o")
	if !prices.PromptUnit.Equal(types.MustFromString("2.0")) {
		t.Errorf("PromptUnit = %s, want 2.0", prices.PromptUnit)
	}
	if !prices.MinimumCredit.Equal(types.Zero) {
		t.Errorf("MinimumCredit = %s, want 0", prices.MinimumCredit)
	}
}

func TestResolveOwnPrice(t *testing.T) {
	models := map[string]Model{
		"gpt-4o": {Price: map[string]string{
			"prompt_price":     "2.0",
			"completion_price": "6.0",
			"minimum_credit":   "1",
		}},
	}
	r := NewResolver(func(id string) (Model, bool) { m, ok := models[id]; return m, ok }, defaults())

	prices := r.Resolve("gpt-4o")
	if !prices.PromptUnit.Equal(types.MustFromString("2.0")) {
		t.Errorf("PromptUnit = %s, want 2.0", prices.PromptUnit)
	}
	if !prices.CompletionUnit.Equal(types.MustFromString("6.0")) {
		t.Errorf("CompletionUnit = %s, want 6.0", prices.CompletionUnit)
	}
	if !prices.RequestUnit.Equal(types.Zero) {
		t.Errorf("RequestUnit = %s, want default 0", prices.RequestUnit)
	}
	if !prices.MinimumCredit.Equal(types.MustFromString("1")) {
		t.Errorf("MinimumCredit = %s, want 1", prices.MinimumCredit)
	}
}

func TestResolveBaseModelInheritance(t *testing.T) {
	models := map[string]Model{
		"gpt-4o":      {Price: map[string]string{"prompt_price": "2.0", "completion_price": "6.0"}},
		"gpt-4o-june": {BaseModelID: "gpt-4o"},
	}
	r := NewResolver(func(id string) (Model, bool) { m, ok := models[id]; return m, ok }, defaults())

	prices := r.Resolve("gpt-4o-june")
	if !prices.CompletionUnit.Equal(types.MustFromString("6.0")) {
		t.Errorf("CompletionUnit = %s, want inherited 6.0", prices.CompletionUnit)
	}
}

func TestResolveBaseModelCycleBreaksToDefaults(t *testing.T) {
	models := map[string]Model{
		"a": {BaseModelID: "b"},
		"b": {BaseModelID: "a"},
	}
	r := NewResolver(func(id string) (Model, bool) { m, ok := models[id]; return m, ok }, defaults())

	prices := r.Resolve("a")
	if !prices.PromptUnit.Equal(types.MustFromString("2.0")) {
		t.Errorf("PromptUnit = %s, want default 2.0 after cycle break", prices.PromptUnit)
	}
}

func TestFeatureSurcharge(t *testing.T) {
	fp := FeaturePrices{
		ImageGeneration: types.New(100),
		WebSearch:       types.New(50),
	}

	got := fp.FeatureSurcharge([]string{"image_generation", "web_search", "unknown_feature"})
	want := types.MustFromString("0.00015")
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestIsFree(t *testing.T) {
	freePrices := Prices{}
	paidPrices := Prices{PromptUnit: types.New(1)}
	fp := FeaturePrices{ImageGeneration: types.New(100)}

	if !IsFree(freePrices, FeaturePrices{}, nil) {
		t.Error("expected free model with no features to be free")
	}
	if IsFree(paidPrices, FeaturePrices{}, nil) {
		t.Error("expected paid model to not be free")
	}
	if IsFree(freePrices, fp, []string{"image_generation"}) {
		t.Error("expected free model with a paid feature to not be free")
	}
}
