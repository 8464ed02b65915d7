package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nugget/gateway/internal/continuation"
	"github.com/nugget/gateway/internal/modelmap"
	"github.com/nugget/gateway/internal/router"
	"github.com/nugget/gateway/internal/tools"
	"github.com/nugget/gateway/internal/upstream"
	"github.com/nugget/gateway/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, upstreamURL string) *Server {
	t.Helper()
	cfg := modelmap.Config{BigModel: "claude-3-7-sonnet", Backend: modelmap.BackendAnthropicPass}
	anthropicClient := upstream.NewAnthropicClient(upstreamURL, 5*time.Second, discardLogger())
	rtr := router.New(cfg, nil, anthropicClient, nil, 8192, discardLogger())

	registry := tools.NewRegistry()
	executor := tools.NewExecutor(registry, tools.ExecutorConfig{})
	loop := continuation.New(rtr, executor, continuation.Config{MaxRounds: 3}, discardLogger())

	return New("", 0, loop, nil, nil, nil, "test-key", discardLogger())
}

func TestHandleMessages_NonStreaming(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wire.MessagesResponse{
			ID:         "msg_1",
			Type:       "message",
			Role:       "assistant",
			Model:      "claude-3-7-sonnet",
			Content:    []wire.ContentBlock{wire.TextBlock("hello there")},
			StopReason: wire.StopEndTurn,
			Usage:      wire.Usage{InputTokens: 5, OutputTokens: 3},
		})
	}))
	defer upstreamSrv.Close()

	s := newTestServer(t, upstreamSrv.URL)

	reqBody, _ := json.Marshal(wire.MessagesRequest{
		Model:     "big",
		MaxTokens: 100,
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	})

	r := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp wire.MessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "hello there" {
		t.Errorf("unexpected content: %+v", resp.Content)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestHandleMessages_MissingFields(t *testing.T) {
	s := newTestServer(t, "http://unused.invalid")

	r := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var env map[string]any
	json.Unmarshal(w.Body.Bytes(), &env)
	if env["type"] != "error" {
		t.Errorf("expected error envelope, got %v", env)
	}
}

func TestHandleCountTokens(t *testing.T) {
	s := newTestServer(t, "http://unused.invalid")

	reqBody, _ := json.Marshal(wire.MessagesRequest{
		Model:     "big",
		MaxTokens: 100,
		Messages:  []wire.Message{{Role: "user", Content: "this is eight words long ok"}},
	})

	r := httptest.NewRequest(http.MethodPost, "/v1/messages/count_tokens", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string]int
	json.Unmarshal(w.Body.Bytes(), &out)
	if out["input_tokens"] <= 0 {
		t.Errorf("expected positive input_tokens, got %d", out["input_tokens"])
	}
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(t, "http://unused.invalid")

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleMessages_UpstreamServerError(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("backend overloaded"))
	}))
	defer upstreamSrv.Close()

	s := newTestServer(t, upstreamSrv.URL)

	reqBody, _ := json.Marshal(wire.MessagesRequest{
		Model:     "big",
		MaxTokens: 100,
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	})

	r := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}
