// Package upstream implements the outbound HTTP client: unary and
// streaming calls to whichever backend kind the process is configured
// for, built on the internal/httpkit transport/retry/User-Agent stack
// and generalized to support any backend kind the router selects
// rather than one hardcoded provider.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nugget/gateway/internal/httpkit"
)

// Client is the uniform outbound surface C3/C4/passthrough call against.
// It is deliberately wire-format-agnostic: callers marshal/unmarshal the
// body; Client only owns transport, auth headers, and status-class
// distinction.
type Client interface {
	// SendUnary issues a non-streaming POST and returns the raw response
	// body alongside the HTTP status code.
	SendUnary(ctx context.Context, body []byte, apiKey string) (status int, respBody []byte, err error)

	// SendStream issues a streaming POST and returns the response body as
	// an io.ReadCloser the caller scans for SSE frames. Fails fast on a
	// non-200 status: the error is returned instead of a body.
	SendStream(ctx context.Context, body []byte, apiKey string) (status int, respBody io.ReadCloser, err error)
}

// Error wraps a non-2xx upstream response with enough information for the
// caller to classify it as client-error (4xx, no retry) vs server-error
// (5xx, fallback-eligible).
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.Status, e.Body)
}

// IsClientError reports whether the error is a 4xx response that must not
// be retried.
func (e *Error) IsClientError() bool { return e.Status >= 400 && e.Status < 500 }

// IsServerError reports whether the error is a 5xx response eligible for
// fallback.
func (e *Error) IsServerError() bool { return e.Status >= 500 }

// baseClient holds the shared transport/header-construction logic used by
// every concrete backend kind: one *http.Client built via httpkit per
// provider rather than a single shared global client.
type baseClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func newBaseClient(baseURL string, timeout time.Duration, logger *slog.Logger) baseClient {
	if logger == nil {
		logger = slog.Default()
	}
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second
	return baseClient{
		baseURL: baseURL,
		logger:  logger,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
			httpkit.WithTransport(t),
		),
	}
}

func (b baseClient) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func readAndClassify(resp *http.Response) (int, []byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, data, &Error{Status: resp.StatusCode, Body: string(data)}
	}
	return resp.StatusCode, data, nil
}
