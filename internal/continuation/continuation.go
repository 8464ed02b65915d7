// Package continuation implements the conversation continuation loop:
// the multi-round tool-use/tool-result cycle that runs until the
// upstream produces a terminal, non-tool-use response, rebuilding the
// message history and re-issuing the request each round the upstream
// asks for a tool call.
package continuation

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nugget/gateway/internal/router"
	"github.com/nugget/gateway/internal/tools"
	"github.com/nugget/gateway/internal/translate"
	"github.com/nugget/gateway/internal/upstream"
	"github.com/nugget/gateway/internal/wire"
)

// Config holds the round cap.
type Config struct {
	MaxRounds int
}

// Loop drives one inbound request's full continuation: it owns the
// in-flight conversation exclusively for that request's duration.
type Loop struct {
	router   *router.Router
	executor *tools.Executor
	cfg      Config
	logger   *slog.Logger
}

// New builds a Loop. A MaxRounds <= 0 defaults to 3.
func New(r *router.Router, executor *tools.Executor, cfg Config, logger *slog.Logger) *Loop {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{router: r, executor: executor, cfg: cfg, logger: logger}
}

// Run executes the non-streaming continuation loop to completion: AwaitingUpstream -> InspectingResponse -> (ExecutingTools ->
// BuildingContinuation)* -> Terminal.
func (l *Loop) Run(ctx context.Context, req *wire.MessagesRequest, apiKey, requestID string) (*wire.MessagesResponse, []translate.Warning, *upstream.Error, error) {
	defer l.executor.Release(requestID)

	messages := append([]wire.Message(nil), req.Messages...)
	var allWarnings []translate.Warning

	for round := 1; ; round++ {
		callReq := *req
		callReq.Messages = messages

		result, uerr, err := l.router.Send(ctx, &callReq, apiKey)
		if err != nil {
			return nil, allWarnings, nil, err
		}
		if uerr != nil {
			return nil, allWarnings, uerr, nil
		}
		allWarnings = append(allWarnings, result.Warnings...)
		resp := result.Response

		toolUses := extractToolUse(resp.Content)
		if len(toolUses) == 0 || resp.StopReason != wire.StopToolUse {
			return resp, allWarnings, nil, nil
		}

		if round >= l.cfg.MaxRounds {
			l.logger.Info("continuation round cap reached", "request_id", requestID, "rounds", round)
			return resp, allWarnings, nil, nil
		}

		calls := make([]tools.ToolCall, len(toolUses))
		for i, b := range toolUses {
			argsJSON, err := json.Marshal(b.Input)
			if err != nil {
				argsJSON = []byte("{}")
			}
			calls[i] = tools.ToolCall{ID: b.ID, Name: b.Name, ArgsJSON: string(argsJSON)}
		}
		records := l.executor.ExecuteBatch(ctx, requestID, calls)

		for _, rec := range records {
			if tools.IsSecurityViolation(rec.Error) {
				l.logger.Warn("security policy violation, returning response with tool_use intact",
					"request_id", requestID, "tool", rec.ToolName)
				return resp, allWarnings, nil, nil
			}
		}

		messages = append(messages, wire.Message{Role: "assistant", Content: resp.Content})
		messages = append(messages, wire.Message{Role: "user", Content: resultBlocks(records)})
	}
}

// extractToolUse filters a response's content list down to its ToolUse
// blocks, preserving order.
func extractToolUse(content []wire.ContentBlock) []wire.ContentBlock {
	var out []wire.ContentBlock
	for _, b := range content {
		if b.Type == wire.BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

// resultBlocks renders a batch of ToolExecutionRecords into the
// ToolResult content blocks the next round's user message carries, in the same order the records were
// returned (already input order per ExecuteBatch's contract).
func resultBlocks(records []tools.ToolExecutionRecord) []wire.ContentBlock {
	out := make([]wire.ContentBlock, 0, len(records))
	for _, rec := range records {
		if rec.Error != "" {
			out = append(out, wire.ContentBlock{
				Type:      wire.BlockToolResult,
				ToolUseID: rec.ToolUseID,
				Content:   rec.Error,
				IsError:   true,
			})
			continue
		}
		out = append(out, wire.ContentBlock{
			Type:      wire.BlockToolResult,
			ToolUseID: rec.ToolUseID,
			Content:   rec.Output,
		})
	}
	return out
}
