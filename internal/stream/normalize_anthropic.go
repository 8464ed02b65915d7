package stream

import "github.com/nugget/gateway/internal/wire"

// NormalizeAnthropicEvent re-emits a native Anthropic SSE event with an
// identity mapping. Unlike
// OpenAINormalizer it is stateless — Anthropic's own envelope already
// carries explicit indices and block shells, so no index bookkeeping is
// needed.
func NormalizeAnthropicEvent(evt wire.AnthropicStreamEvent) StreamEvent {
	switch evt.Type {
	case "message_start":
		out := StreamEvent{Kind: KindMessageStart}
		if evt.Message != nil {
			out.MessageID = evt.Message.ID
			out.Model = evt.Message.Model
			out.Role = evt.Message.Role
		}
		return out

	case "content_block_start":
		out := StreamEvent{Kind: KindContentBlockStart}
		if evt.Index != nil {
			out.Index = *evt.Index
		}
		if evt.ContentBlock != nil {
			out.Block = blockFromContentBlock(*evt.ContentBlock)
		}
		return out

	case "content_block_delta":
		out := StreamEvent{Kind: KindContentBlockDelta}
		if evt.Index != nil {
			out.Index = *evt.Index
		}
		if evt.Delta != nil {
			out.Delta = deltaFromAnthropic(*evt.Delta)
		}
		return out

	case "content_block_stop":
		out := StreamEvent{Kind: KindContentBlockStop}
		if evt.Index != nil {
			out.Index = *evt.Index
		}
		return out

	case "message_delta":
		out := StreamEvent{Kind: KindMessageDelta}
		if evt.Delta != nil {
			out.StopReason = evt.Delta.StopReason
			out.StopSequence = evt.Delta.StopSequence
			out.OutputTokens = evt.Delta.OutputTokens
		}
		if evt.Usage != nil {
			out.OutputTokens = evt.Usage.OutputTokens
		}
		return out

	case "message_stop":
		return StreamEvent{Kind: KindMessageStop}

	case "error":
		out := StreamEvent{Kind: KindError}
		if evt.Error != nil {
			out.ErrorKind = evt.Error.Type
			out.ErrorMessage = evt.Error.Message
		}
		return out

	default:
		return StreamEvent{Kind: KindError, ErrorKind: "api_error", ErrorMessage: "unrecognized upstream event type: " + evt.Type}
	}
}

func blockFromContentBlock(b wire.ContentBlock) Block {
	switch b.Type {
	case wire.BlockToolUse:
		return Block{Type: BlockToolUse, ID: b.ID, Name: b.Name}
	case wire.BlockThinking:
		return Block{Type: BlockThinking}
	default:
		return Block{Type: BlockText}
	}
}

func deltaFromAnthropic(d wire.AnthropicStreamDelta) Delta {
	switch d.Type {
	case "input_json_delta":
		return Delta{Kind: DeltaToolInput, PartialJSON: d.PartialJSON}
	case "thinking_delta":
		return Delta{Kind: DeltaThinking, Text: d.Text}
	default:
		return Delta{Kind: DeltaText, Text: d.Text}
	}
}
