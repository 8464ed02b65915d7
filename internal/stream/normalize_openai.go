package stream

import (
	"github.com/nugget/gateway/internal/translate"
	"github.com/nugget/gateway/internal/wire"
)

// OpenAINormalizer holds the per-stream state needed to turn a sequence of
// OpenAI-compatible chat-completion chunks into normalized StreamEvents
//. One Normalizer is used for exactly one upstream stream —
// it is not safe to share across requests.
type OpenAINormalizer struct {
	started       bool
	textIndex     int
	textOpen      bool
	thinkingIndex int
	thinkingOpen  bool
	nextIndex     int
	toolIndices   map[int]int // OpenAI fragment index -> dense block index
	openOrder     []int       // dense indices in the order they were opened
}

// NewOpenAINormalizer returns a fresh normalizer for one stream.
func NewOpenAINormalizer() *OpenAINormalizer {
	return &OpenAINormalizer{toolIndices: make(map[int]int)}
}

// Feed consumes one decoded chunk and returns the StreamEvents it
// produces, preserving the ordering guarantee that ContentBlockStart(i)
// precedes every ...(i) delta, which precedes ContentBlockStop(i).
func (n *OpenAINormalizer) Feed(chunk wire.ChatCompletionChunk) []StreamEvent {
	var events []StreamEvent

	if !n.started {
		n.started = true
		events = append(events, StreamEvent{Kind: KindMessageStart, MessageID: chunk.ID, Model: chunk.Model, Role: "assistant"})
	}

	if len(chunk.Choices) == 0 {
		return events
	}
	choice := chunk.Choices[0]
	delta := choice.Delta

	if delta.Content != "" {
		if !n.textOpen {
			n.textOpen = true
			n.textIndex = n.nextIndex
			n.nextIndex++
			n.openOrder = append(n.openOrder, n.textIndex)
			events = append(events, StreamEvent{Kind: KindContentBlockStart, Index: n.textIndex, Block: Block{Type: BlockText}})
		}
		events = append(events, StreamEvent{Kind: KindContentBlockDelta, Index: n.textIndex, Delta: Delta{Kind: DeltaText, Text: delta.Content}})
	}

	if delta.ReasoningContent != "" {
		if !n.thinkingOpen {
			n.thinkingOpen = true
			n.thinkingIndex = n.nextIndex
			n.nextIndex++
			n.openOrder = append(n.openOrder, n.thinkingIndex)
			events = append(events, StreamEvent{Kind: KindContentBlockStart, Index: n.thinkingIndex, Block: Block{Type: BlockThinking}})
		}
		events = append(events, StreamEvent{Kind: KindContentBlockDelta, Index: n.thinkingIndex, Delta: Delta{Kind: DeltaThinking, Text: delta.ReasoningContent}})
	}

	for _, tc := range delta.ToolCalls {
		dense, ok := n.toolIndices[tc.Index]
		if !ok {
			dense = n.nextIndex
			n.nextIndex++
			n.toolIndices[tc.Index] = dense
			n.openOrder = append(n.openOrder, dense)
			events = append(events, StreamEvent{
				Kind:  KindContentBlockStart,
				Index: dense,
				Block: Block{Type: BlockToolUse, ID: tc.ID, Name: tc.Function.Name},
			})
		}
		if tc.Function.Arguments != "" {
			events = append(events, StreamEvent{Kind: KindContentBlockDelta, Index: dense, Delta: Delta{Kind: DeltaToolInput, PartialJSON: tc.Function.Arguments}})
		}
	}

	if choice.FinishReason != nil {
		for _, idx := range n.openOrder {
			events = append(events, StreamEvent{Kind: KindContentBlockStop, Index: idx})
		}
		outputTokens := 0
		if chunk.Usage != nil {
			outputTokens = chunk.Usage.CompletionTokens
		}
		events = append(events, StreamEvent{Kind: KindMessageDelta, StopReason: translate.MapFinishReason(*choice.FinishReason), OutputTokens: outputTokens})
		events = append(events, StreamEvent{Kind: KindMessageStop})
	}

	return events
}
