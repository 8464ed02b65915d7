package router

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/nugget/gateway/internal/modelmap"
	"github.com/nugget/gateway/internal/upstream"
	"github.com/nugget/gateway/internal/wire"
)

// fakeClient is a minimal upstream.Client test double letting each test
// script both the unary and streaming response it hands back.
type fakeClient struct {
	unaryStatus int
	unaryBody   []byte
	unaryErr    error

	streamStatus int
	streamBody   io.ReadCloser
	streamErr    error
}

func (f *fakeClient) SendUnary(ctx context.Context, body []byte, apiKey string) (int, []byte, error) {
	return f.unaryStatus, f.unaryBody, f.unaryErr
}

func (f *fakeClient) SendStream(ctx context.Context, body []byte, apiKey string) (int, io.ReadCloser, error) {
	return f.streamStatus, f.streamBody, f.streamErr
}

var _ upstream.Client = (*fakeClient)(nil)

func basicRequest() *wire.MessagesRequest {
	return &wire.MessagesRequest{
		Model:     "big",
		MaxTokens: 256,
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	}
}

func chatResponseBody(t *testing.T) []byte {
	t.Helper()
	resp := wire.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-test",
		Choices: []wire.ChatCompletionChoice{
			{Message: wire.ChatMessage{Role: "assistant", Content: "hello"}, FinishReason: "stop"},
		},
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return b
}

func TestSend_OpenAICompatibleSuccessTranslatesResponse(t *testing.T) {
	client := &fakeClient{unaryStatus: 200, unaryBody: chatResponseBody(t)}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, client, nil, nil, 4096, nil)

	result, uerr, err := r.Send(context.Background(), basicRequest(), "key")
	if err != nil || uerr != nil {
		t.Fatalf("Send() err=%v uerr=%v", err, uerr)
	}
	if result.Response.Content[0].Text != "hello" {
		t.Errorf("Response.Content = %+v, want translated text block", result.Response.Content)
	}
}

func TestSend_OpenAICompatibleUpstreamErrorClassified(t *testing.T) {
	client := &fakeClient{unaryErr: &upstream.Error{Status: 429, Body: "rate limited"}}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, client, nil, nil, 4096, nil)

	result, uerr, err := r.Send(context.Background(), basicRequest(), "key")
	if err != nil {
		t.Fatalf("Send() unexpected transport error = %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on upstream error", result)
	}
	if uerr == nil || uerr.Status != 429 {
		t.Fatalf("uerr = %+v, want classified *upstream.Error with status 429", uerr)
	}
}

func TestSend_OpenAICompatibleTransportErrorNotMisclassified(t *testing.T) {
	client := &fakeClient{unaryErr: io.ErrUnexpectedEOF}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, client, nil, nil, 4096, nil)

	result, uerr, err := r.Send(context.Background(), basicRequest(), "key")
	if result != nil || uerr != nil {
		t.Fatalf("result=%+v uerr=%+v, want both nil for a plain transport error", result, uerr)
	}
	if err == nil {
		t.Fatal("err = nil, want the transport error surfaced")
	}
}

func TestSend_ServerErrorFallsBackToSecondaryClient(t *testing.T) {
	primary := &fakeClient{unaryErr: &upstream.Error{Status: 503, Body: "down"}}
	secondary := &fakeClient{unaryStatus: 200, unaryBody: chatResponseBody(t)}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, primary, nil, nil, 4096, nil)
	r.SetFallback(secondary)

	result, uerr, err := r.Send(context.Background(), basicRequest(), "key")
	if err != nil || uerr != nil {
		t.Fatalf("Send() err=%v uerr=%v, want the fallback's success", err, uerr)
	}
	if result.Response.Content[0].Text != "hello" {
		t.Errorf("Response.Content = %+v, want the fallback's translated response", result.Response.Content)
	}
}

func TestSend_ClientErrorNeverTriesFallback(t *testing.T) {
	primary := &fakeClient{unaryErr: &upstream.Error{Status: 429, Body: "rate limited"}}
	secondary := &fakeClient{unaryStatus: 200, unaryBody: chatResponseBody(t)}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, primary, nil, nil, 4096, nil)
	r.SetFallback(secondary)

	result, uerr, err := r.Send(context.Background(), basicRequest(), "key")
	if err != nil {
		t.Fatalf("Send() unexpected transport error = %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil — a 4xx must never retry the fallback", result)
	}
	if uerr == nil || uerr.Status != 429 {
		t.Fatalf("uerr = %+v, want the primary's classified 429 surfaced unchanged", uerr)
	}
}

func TestSend_FallbackAlsoFailingSurfacesFallbacksError(t *testing.T) {
	primary := &fakeClient{unaryErr: &upstream.Error{Status: 500, Body: "down"}}
	secondary := &fakeClient{unaryErr: &upstream.Error{Status: 502, Body: "also down"}}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, primary, nil, nil, 4096, nil)
	r.SetFallback(secondary)

	_, uerr, err := r.Send(context.Background(), basicRequest(), "key")
	if err != nil {
		t.Fatalf("Send() unexpected transport error = %v", err)
	}
	if uerr == nil || uerr.Status != 502 {
		t.Fatalf("uerr = %+v, want the fallback's own classified error", uerr)
	}
}

func TestStreamRound_ServerErrorFallsBackToSecondaryClient(t *testing.T) {
	sse := "data: " + mustMarshalChunk(t, wire.ChatCompletionChunk{
		ID: "c1", Model: "gpt-test",
		Choices: []wire.ChatCompletionChunkChoice{{Delta: wire.ChatCompletionDelta{Role: "assistant"}}},
	}) + "\n\n"
	primary := &fakeClient{streamErr: &upstream.Error{Status: 503, Body: "down"}}
	secondary := &fakeClient{streamStatus: 200, streamBody: io.NopCloser(strings.NewReader(sse))}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, primary, nil, nil, 4096, nil)
	r.SetFallback(secondary)

	events, _, uerr, err := r.StreamRound(context.Background(), basicRequest(), "key")
	if err != nil || uerr != nil {
		t.Fatalf("StreamRound() err=%v uerr=%v, want the fallback's stream", err, uerr)
	}
	var count int
	for range events {
		count++
	}
	if count == 0 {
		t.Error("expected at least one normalized stream event from the fallback")
	}
}

func TestSend_AnthropicPassthroughEchoesOriginalModel(t *testing.T) {
	passResp := wire.MessagesResponse{
		ID: "msg_1", Type: "message", Role: "assistant",
		Content: []wire.ContentBlock{{Type: wire.BlockText, Text: "hi there"}},
	}
	body, _ := json.Marshal(passResp)
	client := &fakeClient{unaryStatus: 200, unaryBody: body}
	cfg := modelmap.Config{Backend: modelmap.BackendAnthropicPass}
	r := New(cfg, nil, client, nil, 4096, nil)

	req := basicRequest()
	req.Model = "claude-3-7-sonnet"
	result, uerr, err := r.Send(context.Background(), req, "key")
	if err != nil || uerr != nil {
		t.Fatalf("Send() err=%v uerr=%v", err, uerr)
	}
	if result.Response.Model != "claude-3-7-sonnet" {
		t.Errorf("Response.Model = %q, want original model echoed back", result.Response.Model)
	}
}

func TestSend_AnthropicPassthroughUpstreamErrorClassified(t *testing.T) {
	client := &fakeClient{unaryErr: &upstream.Error{Status: 401, Body: "bad key"}}
	cfg := modelmap.Config{Backend: modelmap.BackendAnthropicPass}
	r := New(cfg, nil, client, nil, 4096, nil)

	_, uerr, err := r.Send(context.Background(), basicRequest(), "key")
	if err != nil {
		t.Fatalf("Send() unexpected transport error = %v", err)
	}
	if uerr == nil || uerr.Status != 401 {
		t.Fatalf("uerr = %+v, want classified *upstream.Error with status 401", uerr)
	}
}

func TestClientFor_DatabricksMissingClientErrors(t *testing.T) {
	cfg := modelmap.Config{Backend: modelmap.BackendDatabricks, BigModel: "claude"}
	r := New(cfg, nil, nil, nil, 4096, nil)

	_, _, err := r.Send(context.Background(), basicRequest(), "key")
	if err == nil || !strings.Contains(err.Error(), "no client constructed") {
		t.Errorf("err = %v, want missing-databricks-client error", err)
	}
}

func TestClientFor_OpenAICompatibleMissingClientErrors(t *testing.T) {
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, nil, nil, nil, 4096, nil)

	_, _, err := r.Send(context.Background(), basicRequest(), "key")
	if err == nil || !strings.Contains(err.Error(), "no upstream client configured") {
		t.Errorf("err = %v, want missing-client error", err)
	}
}

func TestStreamRound_UpstreamErrorClassified(t *testing.T) {
	client := &fakeClient{streamErr: &upstream.Error{Status: 503, Body: "down"}}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, client, nil, nil, 4096, nil)

	events, _, uerr, err := r.StreamRound(context.Background(), basicRequest(), "key")
	if events != nil {
		t.Error("events channel should be nil on an upstream error")
	}
	if err != nil {
		t.Fatalf("StreamRound() unexpected transport error = %v", err)
	}
	if uerr == nil || uerr.Status != 503 {
		t.Fatalf("uerr = %+v, want classified *upstream.Error with status 503", uerr)
	}
}

func TestStreamRound_OpenAICompatibleStreamsTextDelta(t *testing.T) {
	sse := "data: " + mustMarshalChunk(t, wire.ChatCompletionChunk{
		ID: "c1", Model: "gpt-test",
		Choices: []wire.ChatCompletionChunkChoice{{Delta: wire.ChatCompletionDelta{Role: "assistant"}}},
	}) + "\n\n"
	client := &fakeClient{streamStatus: 200, streamBody: io.NopCloser(strings.NewReader(sse))}
	cfg := modelmap.Config{Backend: modelmap.BackendOpenAICompatible, BigModel: "gpt-test"}
	r := New(cfg, client, nil, nil, 4096, nil)

	events, _, uerr, err := r.StreamRound(context.Background(), basicRequest(), "key")
	if err != nil || uerr != nil {
		t.Fatalf("StreamRound() err=%v uerr=%v", err, uerr)
	}
	var count int
	for range events {
		count++
	}
	if count == 0 {
		t.Error("expected at least one normalized stream event")
	}
}

func mustMarshalChunk(t *testing.T, c wire.ChatCompletionChunk) string {
	t.Helper()
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	return string(b)
}
