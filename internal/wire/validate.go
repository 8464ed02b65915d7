package wire

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Validate checks the request-level invariants: max_tokens is at least 1,
// tool names are unique, each tool's input_schema is a structurally valid
// JSON Schema object, and a Specific tool_choice names a declared tool.
func (r *MessagesRequest) Validate() error {
	if r.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be >= 1, got %d", r.MaxTokens)
	}

	seen := make(map[string]bool, len(r.Tools))
	for _, t := range r.Tools {
		if seen[t.Name] {
			return fmt.Errorf("duplicate tool name %q", t.Name)
		}
		seen[t.Name] = true

		if err := validateJSONSchema(t.InputSchema); err != nil {
			return fmt.Errorf("tool %q: invalid input_schema: %w", t.Name, err)
		}
	}

	if r.ToolChoice != nil && r.ToolChoice.Type == ToolChoiceSpecific {
		if !seen[r.ToolChoice.Name] {
			return fmt.Errorf("tool_choice names %q, which is not in tools", r.ToolChoice.Name)
		}
	}

	return nil
}

// validateJSONSchema confirms schema is itself a well-formed JSON Schema
// document, not that any particular value conforms to it.
func validateJSONSchema(schema map[string]any) error {
	if schema == nil {
		return fmt.Errorf("input_schema is required")
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
		return err
	}
	return nil
}
