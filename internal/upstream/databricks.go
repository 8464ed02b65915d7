package upstream

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// DatabricksClient talks to a Databricks Model Serving endpoint
// (BackendDatabricks). Databricks exposes an OpenAI-compatible request/
// response body but routes by serving-endpoint name embedded in the URL
// path rather than in the request body's model field, so it
// cannot share OpenAICompatClient's fixed path.
type DatabricksClient struct {
	base baseClient
}

// NewDatabricksClient builds a client against a Databricks workspace URL
// (e.g. https://<workspace>.cloud.databricks.com).
func NewDatabricksClient(baseURL string, timeout time.Duration, logger *slog.Logger) *DatabricksClient {
	if logger != nil {
		logger = logger.With("backend", "databricks")
	}
	return &DatabricksClient{base: newBaseClient(baseURL, timeout, logger)}
}

// EndpointPath builds the serving-endpoint invocation path for a resolved
// model name, e.g. "databricks-claude-3-7-sonnet" ->
// "/serving-endpoints/databricks-claude-3-7-sonnet/invocations". Any
// path-unsafe characters already disallowed in Databricks endpoint names
// are left as-is; callers supply names resolved by internal/modelmap.
func EndpointPath(endpointName string) string {
	name := strings.TrimSpace(endpointName)
	return "/serving-endpoints/" + name + "/invocations"
}

func (c *DatabricksClient) headers(apiKey string) map[string]string {
	h := map[string]string{}
	if apiKey != "" {
		h["Authorization"] = "Bearer " + apiKey
	}
	return h
}

// withEndpoint pairs a DatabricksClient with one serving endpoint name,
// since the Databricks path is per-model, unlike the fixed paths
// OpenAICompatClient and AnthropicClient use. Its SendUnary/SendStream
// target that endpoint, so the value returned by WithEndpoint is usable
// wherever the router holds a plain Client handle.
type withEndpoint struct {
	*DatabricksClient
	endpoint string
}

// WithEndpoint binds this client to one serving endpoint for the
// lifetime of the returned value. The router resolves the endpoint name
// from the mapped model (internal/modelmap) once per request and binds
// it here before handing the result to the translator/continuation
// layers as a plain Client.
func (c *DatabricksClient) WithEndpoint(endpointName string) Client {
	return &withEndpoint{DatabricksClient: c, endpoint: endpointName}
}

func (w *withEndpoint) SendUnary(ctx context.Context, body []byte, apiKey string) (int, []byte, error) {
	url := w.base.baseURL + EndpointPath(w.endpoint)
	resp, err := w.base.do(ctx, "POST", url, body, w.headers(apiKey))
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

func (w *withEndpoint) SendStream(ctx context.Context, body []byte, apiKey string) (int, io.ReadCloser, error) {
	url := w.base.baseURL + EndpointPath(w.endpoint)
	resp, err := w.base.do(ctx, "POST", url, body, w.headers(apiKey))
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data := readErrBody(resp.Body)
		return resp.StatusCode, nil, &Error{Status: resp.StatusCode, Body: data}
	}
	return resp.StatusCode, resp.Body, nil
}

var _ Client = (*withEndpoint)(nil)
