// Package translate implements the bidirectional Anthropic↔OpenAI
// conversion at the heart of the gateway: request and response shapes
// map across the two wire formats field by field, including tool calls,
// multi-modal content, and reasoning blocks.
package translate

import (
	"encoding/json"
	"fmt"

	"github.com/nugget/gateway/internal/wire"
)

// Warning is a non-fatal conversion note recorded alongside a translated
// request.
type Warning struct {
	Message string
}

// RequestResult is the translated OpenAI request plus any warnings raised
// during a best-effort conversion.
type RequestResult struct {
	Request  *wire.ChatCompletionRequest
	Warnings []Warning
}

// ToOpenAIRequest converts an Anthropic MessagesRequest into an OpenAI
// chat-completions request. resolvedModel is the
// backend-qualified model string from C2 — never the caller's alias.
// maxTokensCeiling clamps max_tokens; 0 disables clamping.
func ToOpenAIRequest(req *wire.MessagesRequest, resolvedModel string, maxTokensCeiling int) RequestResult {
	var warnings []Warning
	var messages []wire.ChatMessage

	if system := req.SystemText(); system != "" {
		messages = append(messages, wire.ChatMessage{Role: "system", Content: system})
	}

	for _, m := range req.Messages {
		converted, w := convertMessage(m)
		messages = append(messages, converted...)
		warnings = append(warnings, w...)
	}

	maxTokens := req.MaxTokens
	if maxTokensCeiling > 0 && maxTokens > maxTokensCeiling {
		maxTokens = maxTokensCeiling
	}

	out := &wire.ChatCompletionRequest{
		Model:       resolvedModel,
		Messages:    messages,
		Tools:       convertTools(req.Tools),
		ToolChoice:  convertToolChoice(req.ToolChoice),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   maxTokens,
		Stream:      req.Stream,
	}
	if len(req.StopSequences) > 0 {
		out.Stop = req.StopSequences
	}

	// top_k has no OpenAI equivalent; dropping it is a documented choice
	//, not a silent rewrite — recorded as a warning so callers
	// inspecting conversion metadata can see it happened.
	if req.TopK != nil {
		warnings = append(warnings, Warning{Message: "top_k has no OpenAI-compatible equivalent and was dropped"})
	}

	return RequestResult{Request: out, Warnings: warnings}
}

// convertMessage converts one Anthropic message into zero or more OpenAI
// messages. A user message carrying ToolResult blocks expands into one
// "tool" role message per block; an assistant message
// carrying ToolUse blocks keeps a single message with a sibling
// tool_calls list.
func convertMessage(m wire.Message) ([]wire.ChatMessage, []Warning) {
	if s, ok := m.Content.(string); ok {
		return []wire.ChatMessage{{Role: m.Role, Content: s}}, nil
	}

	blocks := m.Blocks()
	var warnings []Warning

	switch m.Role {
	case "assistant":
		var parts []wire.OpenAIContentPart
		var toolCalls []wire.OpenAIToolCall
		var thinking string

		for _, b := range blocks {
			switch b.Type {
			case wire.BlockText:
				parts = append(parts, wire.OpenAIContentPart{Type: "text", Text: b.Text})
			case wire.BlockThinking:
				thinking += b.Text
			case wire.BlockToolUse:
				argsJSON, err := json.Marshal(b.Input)
				if err != nil {
					argsJSON = []byte("{}")
				}
				toolCalls = append(toolCalls, wire.OpenAIToolCall{
					ID:   b.ID,
					Type: "function",
					Function: wire.OpenAIFunctionCall{
						Name:      b.Name,
						Arguments: string(argsJSON),
					},
				})
			}
		}

		msg := wire.ChatMessage{Role: "assistant", ToolCalls: toolCalls}
		if thinking != "" {
			msg.ReasoningContent = thinking
		}
		msg.Content = contentOrString(parts)
		return []wire.ChatMessage{msg}, warnings

	case "user":
		var parts []wire.OpenAIContentPart
		var toolMessages []wire.ChatMessage

		for _, b := range blocks {
			switch b.Type {
			case wire.BlockText:
				parts = append(parts, wire.OpenAIContentPart{Type: "text", Text: b.Text})
			case wire.BlockImage:
				part, w := convertImage(b)
				parts = append(parts, part)
				if w != nil {
					warnings = append(warnings, *w)
				}
			case wire.BlockToolResult:
				toolMessages = append(toolMessages, wire.ChatMessage{
					Role:       "tool",
					ToolCallID: b.ToolUseID,
					Content:    stringifyToolResult(b.Content),
				})
			}
		}

		var out []wire.ChatMessage
		if len(parts) > 0 {
			out = append(out, wire.ChatMessage{Role: "user", Content: contentOrString(parts)})
		}
		out = append(out, toolMessages...)
		return out, warnings
	}

	return []wire.ChatMessage{{Role: m.Role, Content: ""}}, warnings
}

// contentOrString collapses a single text-only part list to a bare string
// (cheaper wire form), matching how most OpenAI-compatible backends accept
// either shape but prefer the plain string for simple messages.
func contentOrString(parts []wire.OpenAIContentPart) any {
	if len(parts) == 1 && parts[0].Type == "text" {
		return parts[0].Text
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// convertImage renders an Image content block as an OpenAI image_url part.
// A malformed source does not fail the request: it falls back
// to a text placeholder and a recorded warning.
func convertImage(b wire.ContentBlock) (wire.OpenAIContentPart, *Warning) {
	if b.Source == nil || b.Source.MediaType == "" || b.Source.Data == "" || !validMediaType(b.Source.MediaType) {
		return wire.OpenAIContentPart{Type: "text", Text: "[Image content not supported]"},
			&Warning{Message: "malformed image source; replaced with text fallback"}
	}
	url := fmt.Sprintf("data:%s;base64,%s", b.Source.MediaType, b.Source.Data)
	return wire.OpenAIContentPart{Type: "image_url", ImageURL: &wire.OpenAIImageURL{URL: url}}, nil
}

func validMediaType(mt string) bool {
	switch mt {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// stringifyToolResult renders a ToolResult block's Content (string or
// []ContentBlock) into the single string OpenAI's "tool" role expects.
func stringifyToolResult(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []wire.ContentBlock:
		var out string
		for i, b := range c {
			if i > 0 {
				out += "\n"
			}
			if b.Type == wire.BlockText {
				out += b.Text
			}
		}
		return out
	default:
		return ""
	}
}

func convertTools(tools []wire.ToolSpec) []wire.OpenAIToolDef {
	if len(tools) == 0 {
		return nil
	}
	out := make([]wire.OpenAIToolDef, 0, len(tools))
	for _, t := range tools {
		out = append(out, wire.OpenAIToolDef{
			Type: "function",
			Function: wire.OpenAIFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func convertToolChoice(tc *wire.ToolChoice) any {
	if tc == nil {
		return nil
	}
	switch tc.Type {
	case wire.ToolChoiceAuto:
		return "auto"
	case wire.ToolChoiceAny:
		return "required"
	case wire.ToolChoiceSpecific:
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": tc.Name},
		}
	default:
		return nil
	}
}
