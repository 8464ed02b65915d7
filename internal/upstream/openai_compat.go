package upstream

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// OpenAICompatClient talks to any OpenAI-compatible chat-completions
// endpoint. It is a direct
// generalization of internal/llm/ollama.go's OllamaClient construction
// pattern with the Ollama-specific local-model text-tool-call heuristics
// removed: a backend that advertises OpenAI compatibility is expected to
// return native tool_calls, so there is nothing here to compensate for.
type OpenAICompatClient struct {
	base baseClient
	path string
}

// NewOpenAICompatClient builds a client against baseURL (no trailing
// slash) using the standard /chat/completions path.
func NewOpenAICompatClient(baseURL string, timeout time.Duration, logger *slog.Logger) *OpenAICompatClient {
	if logger != nil {
		logger = logger.With("backend", "openai-compatible")
	}
	return &OpenAICompatClient{
		base: newBaseClient(baseURL, timeout, logger),
		path: "/chat/completions",
	}
}

func (c *OpenAICompatClient) headers(apiKey string) map[string]string {
	h := map[string]string{}
	if apiKey != "" {
		h["Authorization"] = "Bearer " + apiKey
	}
	return h
}

func (c *OpenAICompatClient) SendUnary(ctx context.Context, body []byte, apiKey string) (int, []byte, error) {
	resp, err := c.base.do(ctx, "POST", c.base.baseURL+c.path, body, c.headers(apiKey))
	if err != nil {
		return 0, nil, err
	}
	status, data, err := readAndClassify(resp)
	if err != nil {
		if uerr, ok := err.(*Error); ok {
			return status, data, uerr
		}
		return status, nil, err
	}
	return status, data, nil
}

func (c *OpenAICompatClient) SendStream(ctx context.Context, body []byte, apiKey string) (int, io.ReadCloser, error) {
	resp, err := c.base.do(ctx, "POST", c.base.baseURL+c.path, body, c.headers(apiKey))
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data := readErrBody(resp.Body)
		return resp.StatusCode, nil, &Error{Status: resp.StatusCode, Body: data}
	}
	return resp.StatusCode, resp.Body, nil
}

func readErrBody(rc io.ReadCloser) string {
	defer rc.Close()
	data, _ := io.ReadAll(io.LimitReader(rc, 8192))
	return string(data)
}

var _ Client = (*OpenAICompatClient)(nil)
