package translate

import (
	"encoding/json"

	"github.com/nugget/gateway/internal/wire"
)

// FromOpenAIResponse converts a non-streaming OpenAI-compatible response
// into an Anthropic MessagesResponse. originalModel is always
// echoed back verbatim — never the backend-resolved model the upstream
// actually saw.
func FromOpenAIResponse(resp *wire.ChatCompletionResponse, originalModel string) *wire.MessagesResponse {
	out := &wire.MessagesResponse{
		ID:    resp.ID,
		Type:  "message",
		Role:  "assistant",
		Model: originalModel,
		Usage: wire.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	if len(resp.Choices) == 0 {
		out.StopReason = wire.StopEndTurn
		return out
	}

	choice := resp.Choices[0]
	out.Content = contentBlocksFromMessage(choice.Message)
	out.StopReason = MapFinishReason(choice.FinishReason)
	return out
}

// contentBlocksFromMessage builds the Anthropic content list for one
// OpenAI message: reasoning first, then text, then one ToolUse per tool call.
func contentBlocksFromMessage(msg wire.ChatMessage) []wire.ContentBlock {
	var blocks []wire.ContentBlock

	if msg.ReasoningContent != "" {
		blocks = append(blocks, wire.ContentBlock{Type: wire.BlockThinking, Text: msg.ReasoningContent})
	}

	if text := messageText(msg.Content); text != "" {
		blocks = append(blocks, wire.TextBlock(text))
	}

	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, wire.ContentBlock{
			Type:  wire.BlockToolUse,
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: ParseToolArguments(tc.Function.Arguments),
		})
	}

	return blocks
}

func messageText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []wire.OpenAIContentPart:
		var out string
		for _, p := range c {
			if p.Type == "text" {
				out += p.Text
			}
		}
		return out
	default:
		return ""
	}
}

// ParseToolArguments decodes a tool call's JSON-encoded arguments string.
// Parse failures never abort the conversation: the raw string
// is preserved under raw_input instead.
func ParseToolArguments(argsJSON string) map[string]any {
	if argsJSON == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return map[string]any{"raw_input": argsJSON}
	}
	return args
}

// MapFinishReason applies the finish_reason → stop_reason table.
// Exported for reuse by the stream normalizer, which applies the same
// table to a streaming response's terminal finish_reason.
func MapFinishReason(reason string) string {
	switch reason {
	case "stop":
		return wire.StopEndTurn
	case "length":
		return wire.StopMaxTokens
	case "tool_calls", "function_call":
		return wire.StopToolUse
	case "content_filter":
		return wire.StopSequenceKind
	default:
		return wire.StopEndTurn
	}
}
