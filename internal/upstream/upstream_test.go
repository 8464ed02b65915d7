package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAnthropicClient_SendUnarySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("x-api-key header = %q", r.Header.Get("x-api-key"))
		}
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(srv.URL, 5*time.Second, nil)
	status, body, err := c.SendUnary(context.Background(), []byte(`{}`), "sk-test")
	if err != nil {
		t.Fatalf("SendUnary() error = %v", err)
	}
	if status != 200 || string(body) != `{"id":"msg_1"}` {
		t.Errorf("status=%d body=%s", status, body)
	}
}

func TestAnthropicClient_SendUnaryClassifiesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(srv.URL, 5*time.Second, nil)
	_, _, err := c.SendUnary(context.Background(), []byte(`{}`), "bad")
	uerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("err = %v (%T), want *Error", err, err)
	}
	if uerr.Status != 401 || !uerr.IsClientError() {
		t.Errorf("uerr = %+v", uerr)
	}
}

func TestAnthropicClient_SendStreamFailsFastOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
		w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	c := NewAnthropicClient(srv.URL, 5*time.Second, nil)
	_, rc, err := c.SendStream(context.Background(), []byte(`{}`), "key")
	if rc != nil {
		t.Error("body should be nil on a non-2xx stream response")
	}
	uerr, ok := err.(*Error)
	if !ok || uerr.Status != 503 || !uerr.IsServerError() {
		t.Errorf("err = %v, want server *Error", err)
	}
}

func TestAnthropicClient_SendStreamReturnsBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("data: {}\n\n"))
	}))
	defer srv.Close()

	c := NewAnthropicClient(srv.URL, 5*time.Second, nil)
	status, rc, err := c.SendStream(context.Background(), []byte(`{}`), "key")
	if err != nil || status != 200 || rc == nil {
		t.Fatalf("status=%d err=%v rc=%v", status, err, rc)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !strings.Contains(string(data), "data: {}") {
		t.Errorf("body = %q", data)
	}
}

func TestOpenAICompatClient_SendUnaryUsesBearerAuthAndPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatClient(srv.URL, 5*time.Second, nil)
	status, body, err := c.SendUnary(context.Background(), []byte(`{}`), "sk-test")
	if err != nil || status != 200 || string(body) != `{"id":"chatcmpl-1"}` {
		t.Fatalf("status=%d body=%s err=%v", status, body, err)
	}
}

func TestOpenAICompatClient_SendUnaryOmitsAuthHeaderWhenKeyEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("Authorization = %q, want empty", r.Header.Get("Authorization"))
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := NewOpenAICompatClient(srv.URL, 5*time.Second, nil)
	if _, _, err := c.SendUnary(context.Background(), []byte(`{}`), ""); err != nil {
		t.Fatalf("SendUnary() error = %v", err)
	}
}

func TestOpenAICompatClient_SendUnaryClassifies5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewOpenAICompatClient(srv.URL, 5*time.Second, nil)
	_, _, err := c.SendUnary(context.Background(), []byte(`{}`), "key")
	uerr, ok := err.(*Error)
	if !ok || !uerr.IsServerError() {
		t.Errorf("err = %v, want server *Error", err)
	}
}

func TestDatabricksClient_WithEndpointTargetsServingPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(200)
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	c := NewDatabricksClient(srv.URL, 5*time.Second, nil)
	bound := c.WithEndpoint("databricks-claude-3-7-sonnet")
	status, _, err := bound.SendUnary(context.Background(), []byte(`{}`), "key")
	if err != nil || status != 200 {
		t.Fatalf("status=%d err=%v", status, err)
	}
	want := "/serving-endpoints/databricks-claude-3-7-sonnet/invocations"
	if gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
}

func TestEndpointPath_TrimsWhitespace(t *testing.T) {
	if got := EndpointPath(" my-endpoint "); got != "/serving-endpoints/my-endpoint/invocations" {
		t.Errorf("EndpointPath = %q", got)
	}
}

func TestSSEScanner_StopsOnDoneSentinel(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: {\"a\":1}\n\ndata: [DONE]\n\ndata: {\"b\":2}\n\n"))
	s := NewSSEScanner(body)

	payload, ok := s.Next()
	if !ok || payload != `{"a":1}` {
		t.Fatalf("first Next() = %q, %v", payload, ok)
	}
	_, ok = s.Next()
	if ok {
		t.Error("Next() after [DONE] should report ok=false")
	}
}

func TestSSEScanner_SkipsNonDataLines(t *testing.T) {
	body := io.NopCloser(strings.NewReader("event: ping\n\ndata: {\"x\":1}\n\n"))
	s := NewSSEScanner(body)

	payload, ok := s.Next()
	if !ok || payload != `{"x":1}` {
		t.Fatalf("Next() = %q, %v, want the data frame skipping the event: line", payload, ok)
	}
}

func TestError_IsClientErrorIsServerError(t *testing.T) {
	clientErr := &Error{Status: 404}
	if !clientErr.IsClientError() || clientErr.IsServerError() {
		t.Errorf("404 classification wrong: client=%v server=%v", clientErr.IsClientError(), clientErr.IsServerError())
	}
	serverErr := &Error{Status: 502}
	if serverErr.IsClientError() || !serverErr.IsServerError() {
		t.Errorf("502 classification wrong: client=%v server=%v", serverErr.IsClientError(), serverErr.IsServerError())
	}
}
