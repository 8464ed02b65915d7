package translate

import (
	"strings"

	"github.com/nugget/gateway/internal/wire"
)

// ToolCallAccumulator consolidates streaming tool-call argument fragments
// keyed by the upstream's per-call index. It never appears on the public
// data model; the stream normalizer and the continuation loop do not use
// it (they track tool-call indices themselves).
type ToolCallAccumulator struct {
	order []int
	calls map[int]*pendingCall
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// NewToolCallAccumulator returns an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{calls: make(map[int]*pendingCall)}
}

// Start begins tracking a new tool call fragment stream at index. id and
// name may be empty on the first fragment and filled in by a later one,
// depending on upstream chunking behavior.
func (a *ToolCallAccumulator) Start(index int, id, name string) {
	if _, ok := a.calls[index]; !ok {
		a.order = append(a.order, index)
		a.calls[index] = &pendingCall{}
	}
	c := a.calls[index]
	if id != "" {
		c.id = id
	}
	if name != "" {
		c.name = name
	}
}

// AppendArgs appends a fragment of the JSON-encoded arguments string for
// the call at index, creating the entry if it has not been Start-ed yet
// (some upstreams interleave name and arguments across chunks).
func (a *ToolCallAccumulator) AppendArgs(index int, fragment string) {
	if _, ok := a.calls[index]; !ok {
		a.order = append(a.order, index)
		a.calls[index] = &pendingCall{}
	}
	a.calls[index].args.WriteString(fragment)
}

// Len reports how many distinct tool calls are being tracked.
func (a *ToolCallAccumulator) Len() int {
	return len(a.order)
}

// Finish closes the call at index and returns it as a wire.ContentBlock;
// ok is false if index was never started. A malformed arguments buffer
// never fails the conversion — it is preserved under raw_input, matching
// the non-streaming path in response.go.
func (a *ToolCallAccumulator) Finish(index int) (wire.ContentBlock, bool) {
	c, ok := a.calls[index]
	if !ok {
		return wire.ContentBlock{}, false
	}
	return wire.ContentBlock{
		Type:  wire.BlockToolUse,
		ID:    c.id,
		Name:  c.name,
		Input: ParseToolArguments(c.args.String()),
	}, true
}

// FinishAll closes every tracked call in first-seen order.
func (a *ToolCallAccumulator) FinishAll() []wire.ContentBlock {
	blocks := make([]wire.ContentBlock, 0, len(a.order))
	for _, idx := range a.order {
		if b, ok := a.Finish(idx); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
