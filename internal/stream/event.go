// Package stream implements the stream normalizer: a lazy sequence of
// internal StreamEvent values produced from any upstream chunk format, and
// the inverse — emitting a StreamEvent sequence back out in the caller's
// wire format. A bufio.Scanner reads the raw SSE frames; a
// switch-per-event-type decoder normalizes both Anthropic-native and
// OpenAI-compatible chunks into the same StreamEvent shape.
package stream

// EventKind discriminates the internal normalized event.
type EventKind string

const (
	KindMessageStart      EventKind = "message_start"
	KindContentBlockStart EventKind = "content_block_start"
	KindContentBlockDelta EventKind = "content_block_delta"
	KindContentBlockStop  EventKind = "content_block_stop"
	KindMessageDelta      EventKind = "message_delta"
	KindMessageStop       EventKind = "message_stop"
	KindError             EventKind = "error"
)

// DeltaKind discriminates a ContentBlockDelta's payload.
type DeltaKind string

const (
	DeltaText        DeltaKind = "text_delta"
	DeltaToolInput    DeltaKind = "input_json_delta"
	DeltaThinking    DeltaKind = "thinking_delta"
)

// Block is an empty content-block "shell" announced by ContentBlockStart:
// its Type and (for ToolUse) ID/Name are known up front; Text/Input fill
// in via subsequent deltas.
type Block struct {
	Type ContentBlockType
	ID   string // ToolUse only
	Name string // ToolUse only
}

// ContentBlockType mirrors wire.ContentBlockType without importing wire,
// keeping stream's public surface independent of the wire package's
// request/response shapes — it only needs the three kinds that ever
// appear in a streamed block shell.
type ContentBlockType string

const (
	BlockText     ContentBlockType = "text"
	BlockToolUse  ContentBlockType = "tool_use"
	BlockThinking ContentBlockType = "thinking"
)

// Delta is the incremental payload of one ContentBlockDelta event.
type Delta struct {
	Kind        DeltaKind
	Text        string // DeltaText, DeltaThinking
	PartialJSON string // DeltaToolInput
}

// StreamEvent is the tagged variant C5 produces. Only the
// fields relevant to Kind are populated.
type StreamEvent struct {
	Kind EventKind

	// MessageStart
	MessageID    string
	Model        string
	Role         string

	// ContentBlockStart / ContentBlockDelta / ContentBlockStop
	Index int
	Block Block
	Delta Delta

	// MessageDelta
	StopReason   string
	StopSequence *string
	OutputTokens int

	// Error
	ErrorKind    string
	ErrorMessage string
}
