package scope

import (
	"context"
	"testing"

	"github.com/xraph/creditledger/pricing"
	"github.com/xraph/creditledger/tokenizer"
	"github.com/xraph/creditledger/types"
)

type fakeLedger struct {
	calls int
	delta types.Decimal
	err   error
}

func (f *fakeLedger) AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) error {
	f.calls++
	f.delta = delta
	return f.err
}

func TestScopeFreshUserDebit(t *testing.T) {
	ledger := &fakeLedger{}
	est := tokenizer.NewEstimator("", "gpt-4o")
	prices := pricing.Prices{
		PromptUnit:     types.MustFromString("2.0"),
		CompletionUnit: types.MustFromString("6.0"),
	}

	s := New(ledger, est, "user-1", "gpt-4o", nil, false, prices, nil, types.Zero, nil)

	s.Feed([]byte(`{"choices":[{"message":{"content":""}}],"usage":{"prompt_tokens":1000,"completion_tokens":500,"total_tokens":1500}}`))
	s.Close(context.Background(), types.Zero)

	if ledger.calls != 1 {
		t.Fatalf("expected exactly one debit, got %d", ledger.calls)
	}
	want := types.MustFromString("-0.005")
	if !ledger.delta.Equal(want) {
		t.Errorf("delta = %s, want %s", ledger.delta, want)
	}
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	ledger := &fakeLedger{}
	est := tokenizer.NewEstimator("", "gpt-4o")
	s := New(ledger, est, "user-1", "gpt-4o", nil, false, pricing.Prices{}, nil, types.Zero, nil)

	s.Close(context.Background(), types.Zero)
	s.Close(context.Background(), types.Zero)

	if ledger.calls != 1 {
		t.Fatalf("expected Close to debit only once, got %d calls", ledger.calls)
	}
}

func TestScopeStreamingAccumulatesCompletionSticksPrompt(t *testing.T) {
	ledger := &fakeLedger{}
	est := tokenizer.NewEstimator("", "gpt-4o")
	prices := pricing.Prices{PromptUnit: types.Zero, CompletionUnit: types.Zero}
	s := New(ledger, est, "user-1", "gpt-4o", nil, true, prices, nil, types.Zero, nil)

	s.Feed([]byte(`data: {"choices":[{"delta":{"content":"hello"}}]}`))
	s.Feed([]byte(`data: {"choices":[{"delta":{"content":" world"}}]}`))
	s.Feed([]byte(`data: [DONE]`))

	if s.usage.CompletionTokens == 0 {
		t.Error("expected completion tokens to accumulate across chunks")
	}
}

func TestScopeAuthoritativeLatchIgnoresLaterEstimates(t *testing.T) {
	ledger := &fakeLedger{}
	est := tokenizer.NewEstimator("", "gpt-4o")
	s := New(ledger, est, "user-1", "gpt-4o", nil, true, pricing.Prices{}, nil, types.Zero, nil)

	s.Feed([]byte(`{"choices":[{"delta":{"content":"x"}}],"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}}`))
	before := s.usage

	s.Feed([]byte(`data: {"choices":[{"delta":{"content":"more text that would add tokens"}}]}`))

	if s.usage != before {
		t.Errorf("authoritative usage should not change after latch: before=%+v after=%+v", before, s.usage)
	}
}

func TestScopeStreamEqualsNonStreamOnConcat(t *testing.T) {
	est := tokenizer.NewEstimator("", "gpt-4o")

	streamed := New(&fakeLedger{}, est, "user-1", "gpt-4o", nil, true, pricing.Prices{}, nil, types.Zero, nil)
	streamed.Feed([]byte(`data: {"choices":[{"delta":{"content":"hello"}}]}`))
	streamed.Feed([]byte(`data: {"choices":[{"delta":{"content":" world"}}]}`))
	streamed.Feed([]byte(`data: [DONE]`))

	whole := New(&fakeLedger{}, est, "user-1", "gpt-4o", nil, false, pricing.Prices{}, nil, types.Zero, nil)
	whole.Feed([]byte(`{"choices":[{"message":{"content":"hello world"}}]}`))

	if streamed.usage.CompletionTokens != whole.usage.CompletionTokens {
		t.Errorf("stream completion tokens = %d, non-stream = %d, want equal",
			streamed.usage.CompletionTokens, whole.usage.CompletionTokens)
	}
}

func TestScopeUsageOnlyFinalChunkLatches(t *testing.T) {
	ledger := &fakeLedger{}
	est := tokenizer.NewEstimator("", "gpt-4o")
	s := New(ledger, est, "user-1", "gpt-4o", nil, true, pricing.Prices{}, nil, types.Zero, nil)

	s.Feed([]byte(`data: {"choices":[{"delta":{"content":"hello"}}]}`))
	// Final chunk with an empty choices array carrying only the vendor
	// usage block.
	s.Feed([]byte(`data: {"choices":[],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`))

	if !s.authoritative {
		t.Fatal("expected usage-only final chunk to latch authoritative mode")
	}
	if s.usage.PromptTokens != 7 || s.usage.CompletionTokens != 3 || s.usage.TotalTokens != 10 {
		t.Errorf("usage = %+v, want vendor-reported 7/3/10", s.usage)
	}
}

func TestScopeMinimumCostFloor(t *testing.T) {
	ledger := &fakeLedger{}
	est := tokenizer.NewEstimator("", "gpt-4o")
	prices := pricing.Prices{PromptUnit: types.Zero, CompletionUnit: types.Zero}
	floor := types.MustFromString("0.01")
	s := New(ledger, est, "user-1", "gpt-4o", nil, false, prices, nil, floor, nil)

	s.Close(context.Background(), types.Zero)

	want := floor.Negate()
	if !ledger.delta.Equal(want) {
		t.Errorf("delta = %s, want floor %s", ledger.delta, want)
	}
}

func TestScopeRequestUnitOverridesTokenPricing(t *testing.T) {
	ledger := &fakeLedger{}
	est := tokenizer.NewEstimator("", "gpt-4o")
	prices := pricing.Prices{
		PromptUnit:     types.MustFromString("100"),
		CompletionUnit: types.MustFromString("100"),
		RequestUnit:    types.New(1000000), // 1.0 after /1e6
	}
	s := New(ledger, est, "user-1", "gpt-4o", nil, false, prices, nil, types.Zero, nil)

	s.Feed([]byte(`{"choices":[{"message":{"content":""}}],"usage":{"prompt_tokens":1000,"completion_tokens":1000,"total_tokens":2000}}`))
	s.Close(context.Background(), types.Zero)

	want := types.MustFromString("-1")
	if !ledger.delta.Equal(want) {
		t.Errorf("delta = %s, want %s (request price should override token pricing)", ledger.delta, want)
	}
}
