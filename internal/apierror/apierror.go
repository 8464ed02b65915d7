// Package apierror defines the bit-exact Anthropic error envelope and
// the Kind taxonomy every HTTP handler in internal/api converts an
// internal failure into at the boundary, keeping "tool execution
// failure" (captured in a record, conversation continues) and "request
// failure" (propagated to the caller) as distinct surfaces.
package apierror

import "net/http"

// Kind is the closed set of Anthropic error types.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request_error"
	KindAuthentication Kind = "authentication_error"
	KindPermission     Kind = "permission_error"
	KindNotFound       Kind = "not_found_error"
	KindRateLimit      Kind = "rate_limit_error"
	KindAPIError       Kind = "api_error"
	KindOverloaded     Kind = "overloaded_error"
)

// Error is the request-failure surface: every HTTP handler converts an
// internal error into one of these before writing a response.
type Error struct {
	Status  int
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Envelope is the bit-exact wire shape:
// {"type":"error","error":{"type":<kind>,"message":<string>}}
type Envelope struct {
	Type  string       `json:"type"`
	Error EnvelopeBody `json:"error"`
}

// EnvelopeBody is the nested error object.
type EnvelopeBody struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
}

// Envelope renders e as the JSON body the caller receives.
func (e *Error) Envelope() Envelope {
	return Envelope{Type: "error", Error: EnvelopeBody{Type: e.Kind, Message: e.Message}}
}

// New builds an Error with an explicit status/kind/message.
func New(status int, kind Kind, message string) *Error {
	return &Error{Status: status, Kind: kind, Message: message}
}

// InvalidRequest is a 400 invalid_request_error.
func InvalidRequest(message string) *Error {
	return New(http.StatusBadRequest, KindInvalidRequest, message)
}

// Internal is a 500 api_error. The
// diagnostic detail belongs in the server log, never in message.
func Internal(message string) *Error {
	return New(http.StatusInternalServerError, KindAPIError, message)
}

// BadGateway is a 502 api_error for an upstream 5xx/transport failure
// with fallback disabled or exhausted.
func BadGateway(message string) *Error {
	return New(http.StatusBadGateway, KindAPIError, message)
}

// FromUpstreamStatus maps an upstream 4xx status to the Anthropic error
// kind taxonomy, preserving the original status
// code. Only called for client errors; 5xx is handled by BadGateway or a
// fallback attempt instead.
func FromUpstreamStatus(status int, body string) *Error {
	kind := KindInvalidRequest
	switch status {
	case http.StatusUnauthorized:
		kind = KindAuthentication
	case http.StatusForbidden:
		kind = KindPermission
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusTooManyRequests:
		kind = KindRateLimit
	}
	message := body
	if message == "" {
		message = http.StatusText(status)
	}
	return New(status, kind, message)
}
