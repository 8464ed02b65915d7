package tools

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	grantsKey    contextKey = "grants"
)

// WithRequestID scopes the context to a single inbound request, used as
// the rate-limit window key.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from the context. Returns
// "default" if not set, so the executor remains usable without a caller
// that wires request scoping (e.g. in tests).
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return "default"
}

// WithGrants attaches the set of permission grants carried by an inbound
// request. The grant source (how a caller obtains a grant) is explicitly
// out of scope — the executor only consults
// whatever set is present here.
func WithGrants(ctx context.Context, grants map[string]bool) context.Context {
	return context.WithValue(ctx, grantsKey, grants)
}

// HasGrant reports whether the context carries the named permission grant.
func HasGrant(ctx context.Context, name string) bool {
	grants, _ := ctx.Value(grantsKey).(map[string]bool)
	return grants[name]
}
