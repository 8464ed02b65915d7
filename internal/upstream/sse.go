package upstream

import (
	"bufio"
	"io"
	"strings"
)

// SSEScanner iterates the "data: <payload>" frames of an SSE body,
// mirroring the scanning loop internal/llm/anthropic.go's handleStreaming
// used inline. Both the OpenAI-compatible and Anthropic-passthrough
// backends frame their streaming responses this way, so
// the scanning logic is shared here instead of duplicated per backend.
type SSEScanner struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	done    bool
}

// NewSSEScanner wraps a streaming response body. The caller must Close
// it once scanning is finished (or abandoned).
func NewSSEScanner(body io.ReadCloser) *SSEScanner {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &SSEScanner{scanner: scanner, body: body}
}

// Next returns the next frame's raw JSON payload. ok is false once the
// stream ends (either via the "[DONE]" sentinel or EOF); the caller
// should stop calling Next after the first false.
func (s *SSEScanner) Next() (payload string, ok bool) {
	if s.done {
		return "", false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "[DONE]" {
			s.done = true
			return "", false
		}
		if data == "" {
			continue
		}
		return data, true
	}
	s.done = true
	return "", false
}

// Err returns any error the underlying scanner encountered.
func (s *SSEScanner) Err() error {
	return s.scanner.Err()
}

// Close releases the underlying response body.
func (s *SSEScanner) Close() error {
	return s.body.Close()
}
