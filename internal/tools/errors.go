// Package tools provides the tool registry and execution framework.
//
// This file defines sentinel error types for tool execution. None of
// these ever abort a conversation — the executor folds them into a
// ToolExecutionRecord's Error field.
package tools

import (
	"fmt"
	"strings"
)

// ErrToolUnavailable is returned when a tool call targets a tool that
// is not present in the effective registry. This indicates a capability
// mismatch (filtered out of the advertised set, or nonexistent), not a
// transient execution failure. Callers should break the iteration loop
// rather than retrying.
type ErrToolUnavailable struct {
	ToolName string
}

func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available in this context", e.ToolName)
}

// ErrRateLimited is returned when the sliding-window rate limit for the
// current inbound request has been exceeded.
type ErrRateLimited struct {
	ToolName string
	Window   int
	Max      int
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("rate_limit_exceeded: tool %q exceeded %d calls in %ds", e.ToolName, e.Max, e.Window)
}

// ErrPermissionDenied is returned when a tool requires a grant the
// current request context does not carry.
type ErrPermissionDenied struct {
	ToolName string
}

func (e *ErrPermissionDenied) Error() string {
	return fmt.Sprintf("permission_denied: tool %q requires a grant not present on this request", e.ToolName)
}

// ErrSecurityPolicy is returned when a tool call's arguments violate the
// executor's security policy (file_ops denylist prefix, system allowlist
// command head) before the handler is ever invoked.
type ErrSecurityPolicy struct {
	ToolName string
	Reason   string
}

func (e *ErrSecurityPolicy) Error() string {
	return fmt.Sprintf("security_policy_violation: tool %q: %s", e.ToolName, e.Reason)
}

// ErrToolTimeout is returned when a tool handler does not complete
// within its configured timeout.
type ErrToolTimeout struct {
	ToolName string
	Seconds  int
}

func (e *ErrToolTimeout) Error() string {
	return fmt.Sprintf("timeout after %ds", e.Seconds)
}

// IsSecurityViolation reports whether a ToolExecutionRecord's Error was
// raised by the security policy check rather than by the tool handler
// itself. The continuation loop (C9) uses this to short-circuit: a
// security violation returns the response to the caller with its
// tool_use blocks intact instead of feeding a tool_result back upstream
//.
func IsSecurityViolation(errText string) bool {
	return strings.HasPrefix(errText, "security_policy_violation:")
}
