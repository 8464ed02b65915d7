package upstream

import (
	"context"
	"io"
	"log/slog"
	"time"
)

const anthropicAPIVersion = "2023-06-01"

// AnthropicClient talks to the native Anthropic Messages API, used for
// BackendAnthropicPass where C3/C4 translation is bypassed and the
// inbound MessagesRequest is forwarded close to verbatim. Generalized from internal/llm/anthropic.go's
// AnthropicClient: same header/timeout construction, but the unary and
// streaming bodies are opaque []byte here — request/response shaping for
// the passthrough path lives in the router (C10), not in this client.
type AnthropicClient struct {
	base    baseClient
	version string
}

// NewAnthropicClient builds a passthrough client against baseURL (e.g.
// https://api.anthropic.com). No default is applied; baseURL is used as
// given.
func NewAnthropicClient(baseURL string, timeout time.Duration, logger *slog.Logger) *AnthropicClient {
	if logger != nil {
		logger = logger.With("backend", "anthropic-passthrough")
	}
	return &AnthropicClient{
		base:    newBaseClient(baseURL, timeout, logger),
		version: anthropicAPIVersion,
	}
}

func (c *AnthropicClient) headers(apiKey string) map[string]string {
	return map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": c.version,
	}
}

func (c *AnthropicClient) SendUnary(ctx context.Context, body []byte, apiKey string) (int, []byte, error) {
	resp, err := c.base.do(ctx, "POST", c.base.baseURL+"/v1/messages", body, c.headers(apiKey))
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

func (c *AnthropicClient) SendStream(ctx context.Context, body []byte, apiKey string) (int, io.ReadCloser, error) {
	resp, err := c.base.do(ctx, "POST", c.base.baseURL+"/v1/messages", body, c.headers(apiKey))
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data := readErrBody(resp.Body)
		return resp.StatusCode, nil, &Error{Status: resp.StatusCode, Body: data}
	}
	return resp.StatusCode, resp.Body, nil
}

var _ Client = (*AnthropicClient)(nil)
