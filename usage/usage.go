// Package usage models the canonical token-usage representation and
// ingests the vendor dialects LLM providers report it in.
package usage

import (
	"encoding/json"
)

// CompletionTokensDetails carries the optional completion-side token
// breakdown. Unknown fields reported by a vendor are preserved in Extra
// rather than dropped.
type CompletionTokensDetails struct {
	AcceptedPredictionTokens int64          `json:"accepted_prediction_tokens,omitempty"`
	AudioTokens              int64          `json:"audio_tokens,omitempty"`
	ReasoningTokens          int64          `json:"reasoning_tokens,omitempty"`
	RejectedPredictionTokens int64          `json:"rejected_prediction_tokens,omitempty"`
	Extra                    map[string]any `json:"-"`
}

// PromptTokensDetails carries the optional prompt-side token breakdown.
type PromptTokensDetails struct {
	AudioTokens  int64          `json:"audio_tokens,omitempty"`
	CachedTokens int64          `json:"cached_tokens,omitempty"`
	Extra        map[string]any `json:"-"`
}

// UnmarshalJSON keeps vendor fields beyond the known breakdown keys as
// opaque side-data in Extra.
func (d *CompletionTokensDetails) UnmarshalJSON(data []byte) error {
	type known CompletionTokensDetails
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*d = CompletionTokensDetails(k)
	d.Extra = extraFields(data,
		"accepted_prediction_tokens", "audio_tokens", "reasoning_tokens", "rejected_prediction_tokens")
	return nil
}

// UnmarshalJSON keeps vendor fields beyond the known breakdown keys as
// opaque side-data in Extra.
func (d *PromptTokensDetails) UnmarshalJSON(data []byte) error {
	type known PromptTokensDetails
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*d = PromptTokensDetails(k)
	d.Extra = extraFields(data, "audio_tokens", "cached_tokens")
	return nil
}

// extraFields returns the fields of a JSON object not named in knownKeys,
// or nil if there are none.
func extraFields(data []byte, knownKeys ...string) map[string]any {
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil
	}
	for _, k := range knownKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

// Usage is the canonical, normalised token count for one LLM call:
// {prompt_tokens, completion_tokens, total_tokens} plus optional nested
// detail blocks. It is the ingestion target for every vendor dialect.
type Usage struct {
	PromptTokens            int64                    `json:"prompt_tokens"`
	CompletionTokens        int64                    `json:"completion_tokens"`
	TotalTokens             int64                    `json:"total_tokens"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
}

// IsZero reports whether no tokens were recorded at all.
func (u Usage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// firstNonZero returns the first non-zero value found under any of the
// given keys in raw, interpreted as an integer token count.
func firstNonZero(raw map[string]json.RawMessage, keys ...string) int64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var n int64
		if err := json.Unmarshal(v, &n); err != nil {
			continue
		}
		if n != 0 {
			return n
		}
	}
	return 0
}

// UnmarshalJSON implements the alias-collapsing ingestion described by the
// canonical/alias table: for each canonical field, the first non-zero
// value among its accepted aliases wins; total_tokens additionally falls
// back to prompt+completion when no vendor total is present.
func (u *Usage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	prompt := firstNonZero(raw, "prompt_tokens", "promptTokenCount", "input_tokens")
	completion := firstNonZero(raw, "completion_tokens", "candidatesTokenCount", "output_tokens")
	total := firstNonZero(raw, "total_tokens", "totalTokenCount")
	if total == 0 {
		total = prompt + completion
	}

	u.PromptTokens = prompt
	u.CompletionTokens = completion
	u.TotalTokens = total

	if v, ok := raw["completion_tokens_details"]; ok {
		var d CompletionTokensDetails
		if err := json.Unmarshal(v, &d); err == nil {
			u.CompletionTokensDetails = &d
		}
	}
	if v, ok := raw["prompt_tokens_details"]; ok {
		var d PromptTokensDetails
		if err := json.Unmarshal(v, &d); err == nil {
			u.PromptTokensDetails = &d
		}
	}

	return nil
}

// FromMap ingests a raw, already-decoded usage object (as produced by
// parsing an SSE chunk) using the same alias-collapsing rule as
// UnmarshalJSON.
func FromMap(m map[string]any) Usage {
	raw := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		raw[k] = b
	}

	var u Usage
	_ = u.UnmarshalJSON(mustMarshalRaw(raw))
	return u
}

func mustMarshalRaw(raw map[string]json.RawMessage) []byte {
	b, err := json.Marshal(raw)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// ImageURL is the image_url part of a polymorphic message content item.
type ImageURL struct {
	URL    string `json:"url,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// InputAudio is the input_audio part of a polymorphic message content item.
type InputAudio struct {
	Data   string `json:"data,omitempty"`
	Format string `json:"format,omitempty"`
}

// FileRef is the file part of a polymorphic message content item.
type FileRef struct {
	FileData string `json:"file_data,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// MessageContent is one part of a polymorphic message content list, tagged
// by Type: "text", "image_url", "input_audio", or "file". Unknown tags are
// kept (Type and Raw) but contribute zero tokens.
type MessageContent struct {
	Type       string      `json:"type,omitempty"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
	File       *FileRef    `json:"file,omitempty"`
}

// MessageItem is a chat message whose Content is either a plain string or
// an ordered list of MessageContent parts.
type MessageItem struct {
	Role    string
	Text    string
	Parts   []MessageContent
	IsParts bool
}

// UnmarshalJSON accepts content as either a JSON string or a JSON array of
// parts.
func (m *MessageItem) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Role = wire.Role

	if len(wire.Content) == 0 {
		return nil
	}

	var asString string
	if err := json.Unmarshal(wire.Content, &asString); err == nil {
		m.Text = asString
		m.IsParts = false
		return nil
	}

	var asParts []MessageContent
	if err := json.Unmarshal(wire.Content, &asParts); err == nil {
		m.Parts = asParts
		m.IsParts = true
		return nil
	}

	return nil
}

// ChatCompletionMessage is the non-streaming "message" field of a choice.
type ChatCompletionMessage struct {
	Content string `json:"content"`
}

// ChoiceDelta is the streaming "delta" field of a choice.
type ChoiceDelta struct {
	Content string `json:"content"`
}

// Choice is one entry in a completion's choices array.
type Choice struct {
	Message *ChatCompletionMessage `json:"message,omitempty"`
	Delta   *ChoiceDelta           `json:"delta,omitempty"`
}

// ChatCompletion is a full, non-streamed response object.
type ChatCompletion struct {
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// ChatCompletionChunk is one server-sent-events chunk of a streamed
// response.
type ChatCompletionChunk struct {
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// ContentOf returns the text content of the first choice, preferring the
// streaming delta when both are present.
func ContentOf(c Choice) string {
	if c.Delta != nil {
		return c.Delta.Content
	}
	if c.Message != nil {
		return c.Message.Content
	}
	return ""
}
