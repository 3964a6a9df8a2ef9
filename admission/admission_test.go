package admission

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/creditledger/pricing"
	"github.com/xraph/creditledger/types"
)

type fakeBalances struct {
	credit types.Decimal
	err    error
}

func (f *fakeBalances) Ensure(ctx context.Context, userID string) (types.Decimal, error) {
	return f.credit, f.err
}

type fakeAnnotator struct {
	called    bool
	chatID    string
	messageID string
	message   string
}

func (f *fakeAnnotator) AnnotateError(ctx context.Context, chatID, messageID, message string) error {
	f.called = true
	f.chatID = chatID
	f.messageID = messageID
	f.message = message
	return nil
}

func TestCheckFreeModelAlwaysPasses(t *testing.T) {
	balances := &fakeBalances{credit: types.Zero}
	resolver := pricing.NewResolver(nil, pricing.Defaults{})
	c := NewController(balances, resolver, pricing.FeaturePrices{}, nil, "no credit")

	if err := c.Check(context.Background(), "user-1", Request{ModelID: "free-model"}); err != nil {
		t.Fatalf("expected free model to pass, got %v", err)
	}
}

func TestCheckInsufficientCreditRefuses(t *testing.T) {
	balances := &fakeBalances{credit: types.MustFromString("0.1")}
	models := map[string]pricing.Model{
		"paid-model": {Price: map[string]string{
			"prompt_price":   "2.0",
			"minimum_credit": "1",
		}},
	}
	resolver := pricing.NewResolver(func(id string) (pricing.Model, bool) { m, ok := models[id]; return m, ok }, pricing.Defaults{})
	annotator := &fakeAnnotator{}
	c := NewController(balances, resolver, pricing.FeaturePrices{}, annotator, "insufficient credit")

	err := c.Check(context.Background(), "user-1", Request{ModelID: "paid-model", ChatID: "chat-1", MessageID: "msg-1"})

	var refused *RefusedError
	if !errors.As(err, &refused) {
		t.Fatalf("expected RefusedError, got %v", err)
	}
	if !annotator.called {
		t.Error("expected chat annotation on refusal")
	}
	if annotator.chatID != "chat-1" || annotator.messageID != "msg-1" {
		t.Errorf("annotator got chat=%s msg=%s", annotator.chatID, annotator.messageID)
	}
}

func TestCheckSufficientCreditPasses(t *testing.T) {
	balances := &fakeBalances{credit: types.MustFromString("10")}
	models := map[string]pricing.Model{
		"paid-model": {Price: map[string]string{
			"prompt_price":   "2.0",
			"minimum_credit": "1",
		}},
	}
	resolver := pricing.NewResolver(func(id string) (pricing.Model, bool) { m, ok := models[id]; return m, ok }, pricing.Defaults{})
	c := NewController(balances, resolver, pricing.FeaturePrices{}, nil, "insufficient credit")

	if err := c.Check(context.Background(), "user-1", Request{ModelID: "paid-model"}); err != nil {
		t.Fatalf("expected sufficient credit to pass, got %v", err)
	}
}

func TestCheckNoAnnotationWithoutChatContext(t *testing.T) {
	balances := &fakeBalances{credit: types.Zero}
	models := map[string]pricing.Model{
		"paid-model": {Price: map[string]string{"prompt_price": "2.0", "minimum_credit": "1"}},
	}
	resolver := pricing.NewResolver(func(id string) (pricing.Model, bool) { m, ok := models[id]; return m, ok }, pricing.Defaults{})
	annotator := &fakeAnnotator{}
	c := NewController(balances, resolver, pricing.FeaturePrices{}, annotator, "insufficient credit")

	_ = c.Check(context.Background(), "user-1", Request{ModelID: "paid-model"})

	if annotator.called {
		t.Error("expected no annotation without chat/message id")
	}
}
