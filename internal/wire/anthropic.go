// Package wire defines the typed wire representations of the Anthropic
// Messages API and the OpenAI Chat Completions API, including the
// content-block tagged variant shared by both request and response
// bodies. Nothing here performs translation — that is internal/translate's
// job; wire only carries the shapes, kept deliberately separate from the
// conversion functions that sit beside them.
package wire

import "encoding/json"

// ContentBlockType is the discriminator for ContentBlock's tagged variant.
type ContentBlockType string

const (
	BlockText       ContentBlockType = "text"
	BlockImage      ContentBlockType = "image"
	BlockToolUse    ContentBlockType = "tool_use"
	BlockToolResult ContentBlockType = "tool_result"
	BlockThinking   ContentBlockType = "thinking"
)

// ImageSource is the base64-embedded image payload Anthropic's wire format
// uses for Image content blocks.
type ImageSource struct {
	Type      string `json:"type"` // always "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is the tagged variant over Text, Image, ToolUse, ToolResult,
// and Thinking blocks. Only the fields relevant to Type are populated.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// Text, Thinking
	Text      string `json:"text,omitempty"`
	Signature string `json:"signature,omitempty"`

	// Image
	Source *ImageSource `json:"source,omitempty"`

	// ToolUse
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// ToolResult. Content is string or []ContentBlock — callers type-switch.
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   any    `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// TextBlock is a convenience constructor for the common case.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// UnmarshalJSON decodes a ContentBlock, special-casing Content: a
// ToolResult's content is string | []ContentBlock on the wire, and the
// stdlib decoder has no way to pick that shape for an `any` field on its
// own — left alone it always produces []interface{}, never []ContentBlock.
func (cb *ContentBlock) UnmarshalJSON(data []byte) error {
	type alias ContentBlock
	var shadow struct {
		alias
		Content json.RawMessage `json:"content,omitempty"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	*cb = ContentBlock(shadow.alias)
	cb.Content = decodeContentField(shadow.Content)
	return nil
}

// decodeContentField decodes a raw JSON value that is documented as
// string | []ContentBlock (Message.Content, MessagesRequest.System,
// ContentBlock.Content) into the `any` shape callers type-switch on.
func decodeContentField(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks
	}
	var fallback any
	_ = json.Unmarshal(raw, &fallback)
	return fallback
}

// Message is one turn of the conversation. Content is either a bare string
// (equivalent to a single Text block, and must round-trip identically)
// or a []ContentBlock.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// UnmarshalJSON decodes a Message, resolving Content to either a string or
// a []ContentBlock the same way the rest of the package expects (see
// ContentBlock.UnmarshalJSON).
func (m *Message) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	m.Role = shadow.Role
	m.Content = decodeContentField(shadow.Content)
	return nil
}

// Blocks normalizes Content into a []ContentBlock regardless of which form
// the wire value took.
func (m Message) Blocks() []ContentBlock {
	switch c := m.Content.(type) {
	case string:
		return []ContentBlock{TextBlock(c)}
	case []ContentBlock:
		return c
	default:
		return nil
	}
}

// ToolSpec is a tool declaration: input_schema must be a JSON
// Schema object, checked by Validate.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolChoiceKind is the discriminator for ToolChoice.
type ToolChoiceKind string

const (
	ToolChoiceAuto     ToolChoiceKind = "auto"
	ToolChoiceAny      ToolChoiceKind = "any"
	ToolChoiceSpecific ToolChoiceKind = "tool"
)

// ToolChoice mirrors Anthropic's tool_choice union.
type ToolChoice struct {
	Type ToolChoiceKind `json:"type"`
	Name string         `json:"name,omitempty"`
}

// MessagesRequest is the inbound Anthropic Messages API request body.
// OriginalModel is only decoded when present; the gateway does not set
// it (the model mapper, C2, returns the caller's alias in
// modelmap.Mapped instead).
type MessagesRequest struct {
	Model         string         `json:"model"`
	MaxTokens     int            `json:"max_tokens"`
	Messages      []Message      `json:"messages"`
	System        any            `json:"system,omitempty"` // string | []ContentBlock(Text)
	Tools         []ToolSpec     `json:"tools,omitempty"`
	ToolChoice    *ToolChoice    `json:"tool_choice,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	TopK          *int           `json:"top_k,omitempty"`
	StopSequences []string       `json:"stop_sequences,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	OriginalModel string         `json:"original_model,omitempty"`
}

// UnmarshalJSON decodes a MessagesRequest, resolving System to either a
// string or a []ContentBlock (see ContentBlock.UnmarshalJSON); every other
// field decodes as normal.
func (r *MessagesRequest) UnmarshalJSON(data []byte) error {
	type alias MessagesRequest
	var shadow struct {
		alias
		System json.RawMessage `json:"system,omitempty"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	*r = MessagesRequest(shadow.alias)
	r.System = decodeContentField(shadow.System)
	return nil
}

// SystemText flattens System into a single string, the form C3 needs when
// prepending a system message to the translated OpenAI conversation.
func (r *MessagesRequest) SystemText() string {
	switch s := r.System.(type) {
	case string:
		return s
	case []ContentBlock:
		var out string
		for i, b := range s {
			if i > 0 {
				out += "\n\n"
			}
			out += b.Text
		}
		return out
	default:
		return ""
	}
}

// Usage is input/output token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessagesResponse is the outbound Anthropic Messages API response body.
// Model is always the caller's original alias, never the
// backend-resolved name.
type MessagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"` // "message"
	Role         string         `json:"role"` // "assistant"
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   string         `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence,omitempty"`
	Usage        Usage          `json:"usage"`
}

// Anthropic stop_reason values.
const (
	StopEndTurn      = "end_turn"
	StopMaxTokens     = "max_tokens"
	StopSequenceKind = "stop_sequence"
	StopToolUse      = "tool_use"
	StopError        = "error"
)

// AnthropicStreamEvent is one SSE event in the Anthropic streaming
// envelope: message_start, content_block_start,
// content_block_delta, content_block_stop, message_delta, message_stop,
// error.
type AnthropicStreamEvent struct {
	Type         string                `json:"type"`
	Message      *MessagesResponse     `json:"message,omitempty"`
	Index        *int                  `json:"index,omitempty"`
	ContentBlock *ContentBlock         `json:"content_block,omitempty"`
	Delta        *AnthropicStreamDelta `json:"delta,omitempty"`
	Usage        *Usage                `json:"usage,omitempty"`
	Error        *AnthropicStreamError `json:"error,omitempty"`
}

// AnthropicStreamDelta carries whichever delta field matches the
// containing event's Type.
type AnthropicStreamDelta struct {
	Type         string  `json:"type,omitempty"` // text_delta | input_json_delta | thinking_delta
	Text         string  `json:"text,omitempty"`
	PartialJSON  string  `json:"partial_json,omitempty"`
	StopReason   string  `json:"stop_reason,omitempty"`
	StopSequence *string `json:"stop_sequence,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
}

// AnthropicStreamError is the payload of a stream-level error event.
type AnthropicStreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
