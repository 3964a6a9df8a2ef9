// Package scope implements the credit deduction scope: a per-request
// accounting accumulator that is fed provider response chunks and, on
// close, debits the ledger exactly once for the request.
package scope

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/xraph/creditledger/pricing"
	"github.com/xraph/creditledger/tokenizer"
	"github.com/xraph/creditledger/types"
	"github.com/xraph/creditledger/usage"
)

// Debiter is the narrow slice of the ledger a scope needs: appending a
// single debit entry on close.
type Debiter interface {
	AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) error
}

// Scope is a scoped accumulator bound to one LLM request. Create with
// New before calling the provider, Feed each response chunk (or the
// single full completion), and Close exactly once when the response has
// been fully consumed.
type Scope struct {
	ledger  Debiter
	logger  *slog.Logger
	est     *tokenizer.Estimator
	minCost types.Decimal

	UserID   string
	ModelID  string
	APIPath  string
	Stream   bool
	Features []string
	Prices   pricing.Prices

	messages []usage.MessageItem

	usage         usage.Usage
	authoritative bool
	closed        bool
}

// New creates a Scope for one request. messages is the prompt sent to
// the provider; prices is the resolved pricing for modelID.
func New(ledger Debiter, est *tokenizer.Estimator, userID, modelID string, messages []usage.MessageItem, stream bool, prices pricing.Prices, features []string, minCost types.Decimal, logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scope{
		ledger:   ledger,
		logger:   logger,
		est:      est,
		minCost:  minCost,
		UserID:   userID,
		ModelID:  modelID,
		Stream:   stream,
		Features: features,
		Prices:   prices,
		messages: messages,
	}
}

// Feed ingests one response chunk: either a full completion (non-stream)
// or a single streamed chunk. chunk is the raw JSON or SSE payload
// (optionally "data: "-prefixed, with a terminal "[DONE]"); decoded
// values are not accepted.
func (s *Scope) Feed(chunk []byte) {
	if s.authoritative {
		return
	}

	piece, vendorUsage, ok := normalizeChunk(chunk)
	if !ok {
		return
	}

	cached := int64(0)
	if s.usage.PromptTokens > 0 {
		cached = s.usage.PromptTokens
	}

	authoritative, result := s.est.Estimate(s.ModelID, s.messages, piece, vendorUsage, cached)

	if authoritative {
		s.authoritative = true
		s.usage = result
		return
	}

	if s.Stream {
		s.usage.PromptTokens = result.PromptTokens
		s.usage.CompletionTokens += result.CompletionTokens
		s.usage.TotalTokens = s.usage.PromptTokens + s.usage.CompletionTokens
	} else {
		s.usage = result
	}
}

// normalizeChunk turns a raw SSE/JSON chunk into a usage.Choice plus an
// optional vendor-reported usage block. If the payload cannot be parsed
// as JSON, it synthesises a minimal envelope whose content is the raw
// text, so token estimation still runs on something. Returns ok=false
// for an empty or terminal ("[DONE]") chunk.
func normalizeChunk(chunk []byte) (piece usage.Choice, vendorUsage *usage.Usage, ok bool) {
	text := strings.TrimSpace(string(chunk))
	text = strings.TrimPrefix(text, "data:")
	text = strings.TrimSpace(text)
	if text == "" || text == "[DONE]" {
		return usage.Choice{}, nil, false
	}

	var envelope struct {
		Choices []usage.Choice `json:"choices"`
		Usage   *usage.Usage   `json:"usage"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err == nil {
		if len(envelope.Choices) > 0 {
			return envelope.Choices[0], envelope.Usage, true
		}
		// Some providers send a final chunk carrying only the usage block,
		// with an empty choices array.
		if envelope.Usage != nil {
			return usage.Choice{}, envelope.Usage, true
		}
	}

	return usage.Choice{Delta: &usage.ChoiceDelta{Content: text}}, nil, true
}

// Price computes the total cost of the accumulated usage under the
// scope's resolved prices and active features, applying the configured
// floor.
func (s *Scope) Price(featureSurcharge types.Decimal) types.Decimal {
	million := types.New(1000000)

	promptPrice := s.Prices.PromptUnit.MulInt64(s.usage.PromptTokens).Div(million)
	completionPrice := s.Prices.CompletionUnit.MulInt64(s.usage.CompletionTokens).Div(million)
	requestPrice := s.Prices.RequestUnit.Div(million)
	featurePrice := featureSurcharge

	var total types.Decimal
	if s.Prices.RequestUnit.IsPositive() {
		total = requestPrice.Add(featurePrice)
	} else {
		total = promptPrice.Add(completionPrice).Add(featurePrice)
	}

	return total.Max(s.minCost)
}

// UsageWithCost returns the accumulated usage and its priced total,
// suitable for the server-sent-events usage frame injected into the
// response stream.
func (s *Scope) UsageWithCost(featureSurcharge types.Decimal) (usage.Usage, types.Decimal) {
	return s.usage, s.Price(featureSurcharge)
}

// Close debits the ledger exactly once for the request's accumulated
// usage. It is safe to call multiple times; only the first call debits.
// Close never returns an error to the caller — persistence failures are
// logged, matching the guarantee that a close must never throw.
func (s *Scope) Close(ctx context.Context, featureSurcharge types.Decimal) {
	if s.closed {
		return
	}
	s.closed = true

	total := s.Price(featureSurcharge)

	detail := types.LedgerDetail{
		APIPath: s.APIPath,
		APIParams: &types.APIParams{
			Model:    s.ModelID,
			IsStream: s.Stream,
		},
		Usage: &types.UsageDetail{
			PromptTokens:        s.usage.PromptTokens,
			CompletionTokens:    s.usage.CompletionTokens,
			TotalTokens:         s.usage.TotalTokens,
			TotalPrice:          total,
			PromptUnitPrice:     s.Prices.PromptUnit,
			CompletionUnitPrice: s.Prices.CompletionUnit,
			RequestUnitPrice:    s.Prices.RequestUnit,
			FeaturePrice:        featureSurcharge,
			Features:            s.Features,
		},
	}

	if err := s.ledger.AddDelta(ctx, s.UserID, total.Negate(), detail); err != nil {
		s.logger.Error("scope: failed to debit ledger on close",
			"user_id", s.UserID, "model", s.ModelID, "error", err)
	}
}

// SSEFrame renders the current accumulated usage and cost as a
// server-sent-events "data: {...}\n\n" frame.
func (s *Scope) SSEFrame(featureSurcharge types.Decimal) []byte {
	u, total := s.UsageWithCost(featureSurcharge)
	payload := struct {
		Usage      usage.Usage   `json:"usage"`
		TotalPrice types.Decimal `json:"total_price"`
	}{Usage: u, TotalPrice: total}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString("data: ")
	buf.Write(body)
	buf.WriteString("\n\n")
	return buf.Bytes()
}
