package continuation

import (
	"context"
	"sync"

	"github.com/nugget/gateway/internal/stream"
	"github.com/nugget/gateway/internal/tools"
	"github.com/nugget/gateway/internal/translate"
	"github.com/nugget/gateway/internal/wire"
)

// blockState tracks one content block's accumulated text/JSON across the
// streamed deltas of a single round, needed to rebuild the assistant
// message fed into the next round's request.
type blockState struct {
	kind stream.ContentBlockType
	id   string
	name string
	text string // BlockText, BlockThinking
	json string // BlockToolUse, accumulated partial_json
}

// RunStream executes the streaming continuation loop. It returns a channel of StreamEvents spanning
// every round — one message_start, one message_stop, and a single
// monotonically increasing index space across however many upstream
// rounds the continuation takes. The caller must drain the channel to
// completion; cancelling ctx propagates to the in-flight upstream call
// and to any tool task still running.
func (l *Loop) RunStream(ctx context.Context, req *wire.MessagesRequest, apiKey, requestID string) <-chan stream.StreamEvent {
	out := make(chan stream.StreamEvent, 32)

	go func() {
		defer close(out)
		defer l.executor.Release(requestID)

		emit := func(evt stream.StreamEvent) bool {
			select {
			case out <- evt:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var idxMu sync.Mutex
		nextIndex := 0
		allocIndex := func() int {
			idxMu.Lock()
			defer idxMu.Unlock()
			i := nextIndex
			nextIndex++
			return i
		}

		messages := append([]wire.Message(nil), req.Messages...)
		emittedStart := false
		totalOutputTokens := 0

		for round := 1; ; round++ {
			callReq := *req
			callReq.Messages = messages

			events, _, uerr, err := l.router.StreamRound(ctx, &callReq, apiKey)
			if err != nil {
				emit(stream.StreamEvent{Kind: stream.KindError, ErrorKind: "api_error", ErrorMessage: err.Error()})
				return
			}
			if uerr != nil {
				emit(stream.StreamEvent{Kind: stream.KindError, ErrorKind: "api_error", ErrorMessage: uerr.Error()})
				return
			}

			localToGlobal := make(map[int]int)
			states := make(map[int]*blockState)
			var openOrder []int

			var toolWG sync.WaitGroup
			var toolMu sync.Mutex
			toolRecords := make(map[int]tools.ToolExecutionRecord)

			var roundStopReason string
			var roundOutputTokens int

			for evt := range events {
				switch evt.Kind {
				case stream.KindMessageStart:
					if !emittedStart {
						emittedStart = true
						emit(evt)
					}

				case stream.KindContentBlockStart:
					g := allocIndex()
					localToGlobal[evt.Index] = g
					states[evt.Index] = &blockState{kind: evt.Block.Type, id: evt.Block.ID, name: evt.Block.Name}
					openOrder = append(openOrder, evt.Index)
					emit(stream.StreamEvent{Kind: stream.KindContentBlockStart, Index: g, Block: evt.Block})

				case stream.KindContentBlockDelta:
					st := states[evt.Index]
					if st != nil {
						switch evt.Delta.Kind {
						case stream.DeltaToolInput:
							st.json += evt.Delta.PartialJSON
						default:
							st.text += evt.Delta.Text
						}
					}
					emit(stream.StreamEvent{Kind: stream.KindContentBlockDelta, Index: localToGlobal[evt.Index], Delta: evt.Delta})

				case stream.KindContentBlockStop:
					g := localToGlobal[evt.Index]
					emit(stream.StreamEvent{Kind: stream.KindContentBlockStop, Index: g})

					st := states[evt.Index]
					if st != nil && st.kind == stream.BlockToolUse {
						localIdx := evt.Index
						call := tools.ToolCall{ID: st.id, Name: st.name, ArgsJSON: st.json}
						toolWG.Add(1)
						go func() {
							defer toolWG.Done()
							rec := l.executor.Execute(ctx, requestID, call)
							toolMu.Lock()
							toolRecords[localIdx] = rec
							toolMu.Unlock()

							resultIdx := allocIndex()
							text := rec.Output
							if rec.Error != "" {
								text = rec.Error
							}
							emit(stream.StreamEvent{Kind: stream.KindContentBlockStart, Index: resultIdx, Block: stream.Block{Type: stream.BlockText}})
							emit(stream.StreamEvent{Kind: stream.KindContentBlockDelta, Index: resultIdx, Delta: stream.Delta{Kind: stream.DeltaText, Text: text}})
							emit(stream.StreamEvent{Kind: stream.KindContentBlockStop, Index: resultIdx})
						}()
					}

				case stream.KindMessageDelta:
					roundStopReason = evt.StopReason
					roundOutputTokens = evt.OutputTokens

				case stream.KindMessageStop:
					// round boundary handled after the events channel closes

				case stream.KindError:
					emit(evt)
					return
				}
			}

			toolWG.Wait()
			totalOutputTokens += roundOutputTokens

			executedAnyTool := len(toolRecords) > 0
			securityViolation := false
			for _, rec := range toolRecords {
				if tools.IsSecurityViolation(rec.Error) {
					securityViolation = true
					break
				}
			}

			terminal := !executedAnyTool || roundStopReason != wire.StopToolUse || round >= l.cfg.MaxRounds || securityViolation
			if terminal {
				stopReason := roundStopReason
				if round >= l.cfg.MaxRounds && executedAnyTool {
					stopReason = wire.StopToolUse
				}
				emit(stream.StreamEvent{Kind: stream.KindMessageDelta, StopReason: stopReason, OutputTokens: totalOutputTokens})
				emit(stream.StreamEvent{Kind: stream.KindMessageStop})
				return
			}

			assistantContent := make([]wire.ContentBlock, 0, len(openOrder))
			for _, localIdx := range openOrder {
				st := states[localIdx]
				switch st.kind {
				case stream.BlockText:
					assistantContent = append(assistantContent, wire.ContentBlock{Type: wire.BlockText, Text: st.text})
				case stream.BlockThinking:
					assistantContent = append(assistantContent, wire.ContentBlock{Type: wire.BlockThinking, Text: st.text})
				case stream.BlockToolUse:
					assistantContent = append(assistantContent, wire.ContentBlock{
						Type:  wire.BlockToolUse,
						ID:    st.id,
						Name:  st.name,
						Input: translate.ParseToolArguments(st.json),
					})
				}
			}
			messages = append(messages, wire.Message{Role: "assistant", Content: assistantContent})

			resultContent := make([]wire.ContentBlock, 0, len(openOrder))
			for _, localIdx := range openOrder {
				rec, ok := toolRecords[localIdx]
				if !ok {
					continue
				}
				if rec.Error != "" {
					resultContent = append(resultContent, wire.ContentBlock{Type: wire.BlockToolResult, ToolUseID: rec.ToolUseID, Content: rec.Error, IsError: true})
					continue
				}
				resultContent = append(resultContent, wire.ContentBlock{Type: wire.BlockToolResult, ToolUseID: rec.ToolUseID, Content: rec.Output})
			}
			messages = append(messages, wire.Message{Role: "user", Content: resultContent})
		}
	}()

	return out
}
