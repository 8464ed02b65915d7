package api

import "github.com/nugget/gateway/internal/wire"

// TokenCounter estimates the input token count for a MessagesRequest.
// The gateway never implements a real tokenizer; CharHeuristicCounter is
// the default, delegating to a proper tokenizer is left to an external
// collaborator.
type TokenCounter interface {
	Count(req *wire.MessagesRequest) int
}

// CharHeuristicCounter estimates tokens as total characters / 4, a
// common rough ratio for context-budget tracking without a real
// tokenizer on hand.
type CharHeuristicCounter struct{}

func (CharHeuristicCounter) Count(req *wire.MessagesRequest) int {
	chars := len(req.SystemText())
	for _, m := range req.Messages {
		for _, b := range m.Blocks() {
			chars += len(b.Text)
			if s, ok := b.Content.(string); ok {
				chars += len(s)
			}
		}
	}
	for _, t := range req.Tools {
		chars += len(t.Name) + len(t.Description)
	}
	return chars / 4
}
