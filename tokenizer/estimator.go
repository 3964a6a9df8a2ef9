// Package tokenizer estimates prompt and completion token counts for a
// model id, using an accurate BPE encoder when one is known and falling
// back to a configured default encoding otherwise.
package tokenizer

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/xraph/creditledger/imagetoken"
	"github.com/xraph/creditledger/usage"
)

// encoderCache is a process-wide map keyed by normalised model id. Lookups
// tolerate concurrent readers; a missing entry may be computed by more
// than one goroutine simultaneously since tiktoken encoders are pure for a
// given id and the cache is last-writer-wins.
var (
	encoderCacheMu sync.RWMutex
	encoderCache   = map[string]*tiktoken.Tiktoken{}
)

// Estimator computes token counts for a model id, caching encoders by
// normalised id and falling back to a configured default model when the
// id is unknown to tiktoken.
type Estimator struct {
	// PrefixToStrip is removed from the front of a model id before encoder
	// lookup, e.g. a gateway-specific routing prefix.
	PrefixToStrip string
	// DefaultModel is used to select an encoder when the (stripped) model
	// id is not recognised by tiktoken.
	DefaultModel string
}

// NewEstimator creates an Estimator with the given prefix-strip and
// default-model configuration.
func NewEstimator(prefixToStrip, defaultModel string) *Estimator {
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}
	return &Estimator{PrefixToStrip: prefixToStrip, DefaultModel: defaultModel}
}

func (e *Estimator) normalize(modelID string) string {
	if e.PrefixToStrip != "" {
		modelID = strings.TrimPrefix(modelID, e.PrefixToStrip)
	}
	return modelID
}

// encoderFor returns a cached tiktoken encoder for modelID, falling back to
// the configured default model's encoder, and finally to cl100k_base.
func (e *Estimator) encoderFor(modelID string) *tiktoken.Tiktoken {
	key := e.normalize(modelID)

	encoderCacheMu.RLock()
	enc, ok := encoderCache[key]
	encoderCacheMu.RUnlock()
	if ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(key)
	if err != nil {
		enc, err = tiktoken.EncodingForModel(e.DefaultModel)
	}
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		return nil
	}

	encoderCacheMu.Lock()
	encoderCache[key] = enc
	encoderCacheMu.Unlock()

	return enc
}

// CountText returns the token count for plain text under modelID's
// encoder. An empty or unencodable string counts as zero.
func (e *Estimator) CountText(modelID, text string) int64 {
	if text == "" {
		return 0
	}
	enc := e.encoderFor(modelID)
	if enc == nil {
		return 0
	}
	return int64(len(enc.Encode(text, nil, nil)))
}

// CountMessageItem sums tokens across the text and image parts of one
// message, dispatching image parts to the image token calculator.
// Unknown content tags contribute zero tokens.
func (e *Estimator) CountMessageItem(modelID string, m usage.MessageItem) int64 {
	if !m.IsParts {
		return e.CountText(modelID, m.Text)
	}

	var total int64
	for _, part := range m.Parts {
		switch part.Type {
		case "text":
			total += e.CountText(modelID, part.Text)
		case "image_url":
			if part.ImageURL != nil {
				n, _ := imagetoken.Calculate(modelID, imagetoken.ImageRef{
					URL:    part.ImageURL.URL,
					Detail: part.ImageURL.Detail,
				})
				total += int64(n)
			}
		default:
			// input_audio, file, and unknown tags contribute zero tokens.
		}
	}
	return total
}

// CountPrompt sums token counts across an ordered list of prompt messages.
func (e *Estimator) CountPrompt(modelID string, messages []usage.MessageItem) int64 {
	var total int64
	for _, m := range messages {
		total += e.CountMessageItem(modelID, m)
	}
	return total
}

// Estimate implements the contract: given a model id, the prompt messages,
// one response piece (a full completion or a single streamed chunk), and
// the sticky cached prompt token count from a prior call in the same
// scope, it returns whether the usage is vendor-authoritative and the
// resulting Usage.
//
// When response.Usage is present it is returned verbatim and authoritative.
// Otherwise prompt tokens are reused from cachedPromptTokens when positive
// (prompts are immutable across a stream), else recomputed from messages;
// completion tokens are computed by encoding the piece's own content.
func (e *Estimator) Estimate(
	modelID string,
	messages []usage.MessageItem,
	piece usage.Choice,
	vendorUsage *usage.Usage,
	cachedPromptTokens int64,
) (authoritative bool, result usage.Usage) {
	if vendorUsage != nil && !vendorUsage.IsZero() {
		return true, *vendorUsage
	}

	promptTokens := cachedPromptTokens
	if promptTokens <= 0 {
		promptTokens = e.CountPrompt(modelID, messages)
	}

	completionTokens := e.CountText(modelID, usage.ContentOf(piece))

	return false, usage.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}
