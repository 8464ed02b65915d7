// Package router dispatches a resolved MessagesRequest to the configured
// backend kind. It holds exactly one upstream.Client + translator
// pairing per process, selected once at startup from PROXY_BACKEND,
// and dispatches by backend kind rather than per-call by model name —
// this gateway fronts one upstream per process, not a pool of
// interchangeable providers.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/nugget/gateway/internal/modelmap"
	"github.com/nugget/gateway/internal/stream"
	"github.com/nugget/gateway/internal/translate"
	"github.com/nugget/gateway/internal/upstream"
	"github.com/nugget/gateway/internal/wire"
)

// Router owns the single configured backend and translates (or, for the
// passthrough backend, forwards) MessagesRequests to it.
type Router struct {
	cfg              modelmap.Config
	client           upstream.Client
	databricks       *upstream.DatabricksClient
	fallbackClient   upstream.Client
	maxTokensCeiling int
	logger           *slog.Logger
}

// SetFallback wires a secondary upstream client of the same backend kind,
// tried once when the primary upstream returns a 5xx or transport error
// and FALLBACK_ENABLED is configured (spec.md §4.9/§7's "if a fallback
// backend is configured, try it once"). Unset (nil) by default, meaning
// no fallback is attempted. cmd/gateway/main.go only calls this when
// FALLBACK_UPSTREAM_API_BASE is also configured.
func (r *Router) SetFallback(client upstream.Client) {
	r.fallbackClient = client
}

// New builds a Router bound to one of the three backend kinds. Exactly
// one of openaiClient/anthropicClient/databricksClient is expected to be
// non-nil, matching cfg.Backend; cmd/gateway/main.go constructs only the
// client the configured backend needs.
func New(cfg modelmap.Config, openaiClient upstream.Client, anthropicClient upstream.Client, databricksClient *upstream.DatabricksClient, maxTokensCeiling int, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{cfg: cfg, maxTokensCeiling: maxTokensCeiling, logger: logger, databricks: databricksClient}
	switch cfg.Backend {
	case modelmap.BackendOpenAICompatible:
		r.client = openaiClient
	case modelmap.BackendAnthropicPass:
		r.client = anthropicClient
	case modelmap.BackendDatabricks:
		// bound per-request in clientFor, since the invocation path
		// depends on the resolved model name.
	}
	return r
}

// sendUnaryWithFallback issues the unary call against client; a 4xx is
// returned immediately (never retried). A 5xx or transport error retries
// once against r.fallbackClient, if one is wired; otherwise it is
// returned as-is for the caller to surface as a 502.
func (r *Router) sendUnaryWithFallback(ctx context.Context, client upstream.Client, body []byte, apiKey string) ([]byte, *upstream.Error, error) {
	_, respBody, err := client.SendUnary(ctx, body, apiKey)
	if err == nil {
		return respBody, nil, nil
	}
	if uerr, ok := err.(*upstream.Error); ok && uerr.IsClientError() {
		return nil, uerr, nil
	}
	if r.fallbackClient == nil {
		if uerr, ok := err.(*upstream.Error); ok {
			return nil, uerr, nil
		}
		return nil, nil, err
	}
	r.logger.Warn("primary upstream failed, trying fallback backend", "error", err)
	_, respBody, err = r.fallbackClient.SendUnary(ctx, body, apiKey)
	if err != nil {
		if uerr, ok := err.(*upstream.Error); ok {
			return nil, uerr, nil
		}
		return nil, nil, err
	}
	return respBody, nil, nil
}

// sendStreamWithFallback mirrors sendUnaryWithFallback for the streaming
// call mode. Safe to retry on the fallback because SendStream fails fast
// on a non-200 status, before any bytes have reached the caller.
func (r *Router) sendStreamWithFallback(ctx context.Context, client upstream.Client, body []byte, apiKey string) (io.ReadCloser, *upstream.Error, error) {
	_, rc, err := client.SendStream(ctx, body, apiKey)
	if err == nil {
		return rc, nil, nil
	}
	if uerr, ok := err.(*upstream.Error); ok && uerr.IsClientError() {
		return nil, uerr, nil
	}
	if r.fallbackClient == nil {
		if uerr, ok := err.(*upstream.Error); ok {
			return nil, uerr, nil
		}
		return nil, nil, err
	}
	r.logger.Warn("primary upstream stream failed, trying fallback backend", "error", err)
	_, rc, err = r.fallbackClient.SendStream(ctx, body, apiKey)
	if err != nil {
		if uerr, ok := err.(*upstream.Error); ok {
			return nil, uerr, nil
		}
		return nil, nil, err
	}
	return rc, nil, nil
}

// Result carries a response plus any non-fatal translation warnings,
// surfaced to the caller for logging, never to the client.
type Result struct {
	Response *wire.MessagesResponse
	Warnings []translate.Warning
}

// Send performs one non-streaming round: resolve the model, translate
// (unless passthrough), call upstream, translate back. apiKey is the
// bearer/x-api-key forwarded from the inbound request, falling back to
// the configured UPSTREAM_API_KEY when absent.
func (r *Router) Send(ctx context.Context, req *wire.MessagesRequest, apiKey string) (*Result, *upstream.Error, error) {
	mapped := modelmap.Resolve(r.cfg, req.Model)

	if r.cfg.Backend == modelmap.BackendAnthropicPass {
		return r.sendPassthrough(ctx, req, mapped, apiKey)
	}

	translated := translate.ToOpenAIRequest(req, mapped.ResolvedModel, r.maxTokensCeiling)
	body, err := json.Marshal(translated.Request)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	client, err := r.clientFor(mapped)
	if err != nil {
		return nil, nil, err
	}

	respBody, uerr, err := r.sendUnaryWithFallback(ctx, client, body, apiKey)
	if err != nil {
		return nil, nil, err
	}
	if uerr != nil {
		return nil, uerr, nil
	}

	var chatResp wire.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, nil, fmt.Errorf("decode upstream response: %w", err)
	}

	out := translate.FromOpenAIResponse(&chatResp, req.Model)
	return &Result{Response: out, Warnings: translated.Warnings}, nil, nil
}

func (r *Router) sendPassthrough(ctx context.Context, req *wire.MessagesRequest, mapped modelmap.Mapped, apiKey string) (*Result, *upstream.Error, error) {
	passReq := *req
	passReq.Model = mapped.ResolvedModel
	if passReq.MaxTokens <= 0 || (r.maxTokensCeiling > 0 && passReq.MaxTokens > r.maxTokensCeiling) {
		passReq.MaxTokens = r.maxTokensCeiling
	}
	body, err := json.Marshal(passReq)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal passthrough request: %w", err)
	}

	respBody, uerr, err := r.sendUnaryWithFallback(ctx, r.client, body, apiKey)
	if err != nil {
		return nil, nil, err
	}
	if uerr != nil {
		return nil, uerr, nil
	}

	var resp wire.MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode passthrough response: %w", err)
	}
	resp.Model = req.Model
	return &Result{Response: &resp}, nil, nil
}

// clientFor resolves the outbound client for this request. Databricks
// binds late because its path depends on the resolved model; the other
// two kinds are bound once at construction time.
func (r *Router) clientFor(mapped modelmap.Mapped) (upstream.Client, error) {
	if r.cfg.Backend == modelmap.BackendDatabricks {
		if r.databricks == nil {
			return nil, fmt.Errorf("databricks backend configured but no client constructed")
		}
		return r.databricks.WithEndpoint(mapped.ResolvedModel), nil
	}
	if r.client == nil {
		return nil, fmt.Errorf("no upstream client configured for backend %q", r.cfg.Backend)
	}
	return r.client, nil
}

// StreamRound opens a streaming round and returns a channel of normalized
// StreamEvents plus the translation warnings collected while building the
// outbound request. The channel is closed when the upstream stream ends
// or ctx is cancelled; the caller must drain it to avoid leaking the
// underlying connection.
func (r *Router) StreamRound(ctx context.Context, req *wire.MessagesRequest, apiKey string) (<-chan stream.StreamEvent, []translate.Warning, *upstream.Error, error) {
	mapped := modelmap.Resolve(r.cfg, req.Model)

	if r.cfg.Backend == modelmap.BackendAnthropicPass {
		events, uerr, err := r.streamPassthrough(ctx, req, mapped, apiKey)
		return events, nil, uerr, err
	}

	translated := translate.ToOpenAIRequest(req, mapped.ResolvedModel, r.maxTokensCeiling)
	translated.Request.Stream = true
	body, err := json.Marshal(translated.Request)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	client, err := r.clientFor(mapped)
	if err != nil {
		return nil, nil, nil, err
	}

	rc, uerr, err := r.sendStreamWithFallback(ctx, client, body, apiKey)
	if err != nil {
		return nil, translated.Warnings, nil, err
	}
	if uerr != nil {
		return nil, translated.Warnings, uerr, nil
	}

	events := make(chan stream.StreamEvent, 16)
	go func() {
		defer close(events)
		defer rc.Close()
		scanner := upstream.NewSSEScanner(rc)
		normalizer := stream.NewOpenAINormalizer()
		for {
			payload, ok := scanner.Next()
			if !ok {
				break
			}
			var chunk wire.ChatCompletionChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				r.logger.Warn("skipping malformed upstream chunk", "error", err)
				continue
			}
			for _, evt := range normalizer.Feed(chunk) {
				select {
				case events <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case events <- stream.StreamEvent{Kind: stream.KindError, ErrorKind: "api_error", ErrorMessage: err.Error()}:
			case <-ctx.Done():
			}
		}
	}()

	return events, translated.Warnings, nil, nil
}

func (r *Router) streamPassthrough(ctx context.Context, req *wire.MessagesRequest, mapped modelmap.Mapped, apiKey string) (<-chan stream.StreamEvent, *upstream.Error, error) {
	passReq := *req
	passReq.Model = mapped.ResolvedModel
	passReq.Stream = true
	body, err := json.Marshal(passReq)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal passthrough request: %w", err)
	}

	rc, uerr, err := r.sendStreamWithFallback(ctx, r.client, body, apiKey)
	if err != nil {
		return nil, nil, err
	}
	if uerr != nil {
		return nil, uerr, nil
	}

	originalModel := req.Model
	events := make(chan stream.StreamEvent, 16)
	go func() {
		defer close(events)
		defer rc.Close()
		scanner := upstream.NewSSEScanner(rc)
		for {
			payload, ok := scanner.Next()
			if !ok {
				break
			}
			var raw wire.AnthropicStreamEvent
			if err := json.Unmarshal([]byte(payload), &raw); err != nil {
				r.logger.Warn("skipping malformed upstream event", "error", err)
				continue
			}
			evt := stream.NormalizeAnthropicEvent(raw)
			if evt.Kind == stream.KindMessageStart {
				evt.Model = originalModel
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case events <- stream.StreamEvent{Kind: stream.KindError, ErrorKind: "api_error", ErrorMessage: err.Error()}:
			case <-ctx.Done():
			}
		}
	}()

	return events, nil, nil
}
