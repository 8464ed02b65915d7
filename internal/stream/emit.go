package stream

import (
	"encoding/json"
	"fmt"

	"github.com/nugget/gateway/internal/wire"
)

// EmitAnthropic renders one StreamEvent as a framed Anthropic SSE chunk:
// "event: <type>\ndata: <json>\n\n", where <type> is the payload's "type"
// field. It always returns a frame, never nil.
func EmitAnthropic(evt StreamEvent) []byte {
	payload := anthropicEventPayload(evt)
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"type":"error","error":{"type":"api_error","message":"encode failure"}}`)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", payload["type"], data))
}

// EmitDone renders the terminal [DONE] sentinel frame.
func EmitDone() []byte {
	return []byte("data: [DONE]\n\n")
}

func anthropicEventPayload(evt StreamEvent) map[string]any {
	switch evt.Kind {
	case KindMessageStart:
		return map[string]any{
			"type": "message_start",
			"message": map[string]any{
				"id":    evt.MessageID,
				"type":  "message",
				"role":  evt.Role,
				"model": evt.Model,
				"content": []any{},
				"usage": map[string]any{"input_tokens": 0, "output_tokens": 0},
			},
		}

	case KindContentBlockStart:
		return map[string]any{
			"type":          "content_block_start",
			"index":         evt.Index,
			"content_block": contentBlockShell(evt.Block),
		}

	case KindContentBlockDelta:
		return map[string]any{
			"type":  "content_block_delta",
			"index": evt.Index,
			"delta": deltaPayload(evt.Delta),
		}

	case KindContentBlockStop:
		return map[string]any{"type": "content_block_stop", "index": evt.Index}

	case KindMessageDelta:
		delta := map[string]any{}
		if evt.StopReason != "" {
			delta["stop_reason"] = evt.StopReason
		}
		if evt.StopSequence != nil {
			delta["stop_sequence"] = *evt.StopSequence
		}
		return map[string]any{
			"type":  "message_delta",
			"delta": delta,
			"usage": map[string]any{"output_tokens": evt.OutputTokens},
		}

	case KindMessageStop:
		return map[string]any{"type": "message_stop"}

	case KindError:
		return map[string]any{
			"type":  "error",
			"error": map[string]any{"type": evt.ErrorKind, "message": evt.ErrorMessage},
		}

	default:
		return map[string]any{"type": "error", "error": map[string]any{"type": "api_error", "message": "unknown event kind"}}
	}
}

func contentBlockShell(b Block) map[string]any {
	switch b.Type {
	case BlockToolUse:
		return map[string]any{"type": "tool_use", "id": b.ID, "name": b.Name, "input": map[string]any{}}
	case BlockThinking:
		return map[string]any{"type": "thinking", "text": ""}
	default:
		return map[string]any{"type": "text", "text": ""}
	}
}

func deltaPayload(d Delta) map[string]any {
	switch d.Kind {
	case DeltaToolInput:
		return map[string]any{"type": "input_json_delta", "partial_json": d.PartialJSON}
	case DeltaThinking:
		return map[string]any{"type": "thinking_delta", "text": d.Text}
	default:
		return map[string]any{"type": "text_delta", "text": d.Text}
	}
}

// EmitOpenAIChunk rebuilds the choice-delta envelope for the OpenAI wire
// format, used only when a caller explicitly requests
// OpenAI-shaped streaming passthrough of the normalized sequence.
func EmitOpenAIChunk(evt StreamEvent, id, model string) ([]byte, bool) {
	chunk := wire.ChatCompletionChunk{ID: id, Model: model}
	choice := wire.ChatCompletionChunkChoice{Index: 0}

	switch evt.Kind {
	case KindMessageStart:
		choice.Delta.Role = "assistant"
	case KindContentBlockDelta:
		switch evt.Delta.Kind {
		case DeltaText:
			choice.Delta.Content = evt.Delta.Text
		case DeltaThinking:
			choice.Delta.ReasoningContent = evt.Delta.Text
		case DeltaToolInput:
			choice.Delta.ToolCalls = []wire.OpenAIToolCallDelta{{
				Index:    evt.Index,
				Function: wire.OpenAIFunctionCallDelta{Arguments: evt.Delta.PartialJSON},
			}}
		}
	case KindContentBlockStart:
		if evt.Block.Type == BlockToolUse {
			choice.Delta.ToolCalls = []wire.OpenAIToolCallDelta{{
				Index:    evt.Index,
				ID:       evt.Block.ID,
				Type:     "function",
				Function: wire.OpenAIFunctionCallDelta{Name: evt.Block.Name},
			}}
		}
	case KindMessageDelta:
		reason := evt.StopReason
		choice.FinishReason = &reason
	case KindMessageStop, KindContentBlockStop:
		return nil, false
	case KindError:
		return nil, false
	}

	chunk.Choices = []wire.ChatCompletionChunkChoice{choice}
	data, err := json.Marshal(chunk)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("data: %s\n\n", data)), true
}
