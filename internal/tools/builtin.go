package tools

import (
	"context"
	"fmt"
	"strconv"
)

// schema builds a minimal JSON Schema object for a tool's input_schema,
// matching the shape upstream providers expect in a ToolSpec.
func schema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func boolProp(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func argBool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// RegisterFileOps wires ft's read/write/edit/search surface into reg as
// category file_ops tools, subject to the executor's path denylist.
func RegisterFileOps(reg *Registry, ft *FileTools) {
	if ft == nil || !ft.Enabled() {
		return
	}

	reg.Register(&Tool{
		Name:            "file_read",
		Description:     "Read a file's contents, optionally starting at a 1-indexed line offset for a bounded number of lines.",
		InputSchema:     schema([]string{"path"}, map[string]any{"path": strProp("workspace-relative or absolute file path"), "offset": intProp("1-indexed starting line"), "limit": intProp("maximum number of lines to return")}),
		Category:        CategoryFileOps,
		SecurityProfile: "file_ops_denylist",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return ft.Read(ctx, argString(args, "path"), argInt(args, "offset"), argInt(args, "limit"))
		},
	})

	reg.Register(&Tool{
		Name:               "file_write",
		Description:        "Write content to a file, creating parent directories as needed. Overwrites any existing file.",
		InputSchema:        schema([]string{"path", "content"}, map[string]any{"path": strProp("workspace-relative or absolute file path"), "content": strProp("full file content to write")}),
		Category:           CategoryFileOps,
		SecurityProfile:    "file_ops_denylist",
		RequiresPermission: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path := argString(args, "path")
			if err := ft.Write(ctx, path, argString(args, "content")); err != nil {
				return "", err
			}
			return fmt.Sprintf("wrote %s", path), nil
		},
	})

	reg.Register(&Tool{
		Name:               "file_edit",
		Description:        "Replace a unique occurrence of old_text with new_text in a file.",
		InputSchema:        schema([]string{"path", "old_text", "new_text"}, map[string]any{"path": strProp("workspace-relative or absolute file path"), "old_text": strProp("exact text to replace; must be unique in the file"), "new_text": strProp("replacement text")}),
		Category:           CategoryFileOps,
		SecurityProfile:    "file_ops_denylist",
		RequiresPermission: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path := argString(args, "path")
			if err := ft.Edit(ctx, path, argString(args, "old_text"), argString(args, "new_text")); err != nil {
				return "", err
			}
			return fmt.Sprintf("edited %s", path), nil
		},
	})

	reg.Register(&Tool{
		Name:            "file_list",
		Description:     "List the immediate entries of a directory.",
		InputSchema:     schema([]string{"path"}, map[string]any{"path": strProp("workspace-relative or absolute directory path")}),
		Category:        CategoryFileOps,
		SecurityProfile: "file_ops_denylist",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			entries, err := ft.List(ctx, argString(args, "path"))
			if err != nil {
				return "", err
			}
			return FormatOutput(toAnySlice(entries)), nil
		},
	})

	reg.Register(&Tool{
		Name:            "file_search",
		Description:     "Find files under a directory tree matching a glob pattern.",
		InputSchema:     schema([]string{"dir", "pattern"}, map[string]any{"dir": strProp("directory to search under"), "pattern": strProp("glob pattern, e.g. *.go"), "max_depth": intProp("maximum recursion depth")}),
		Category:        CategoryFileOps,
		SecurityProfile: "file_ops_denylist",
		TimeoutSeconds:  30,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return ft.Search(ctx, argString(args, "dir"), argString(args, "pattern"), argInt(args, "max_depth"))
		},
	})

	reg.Register(&Tool{
		Name:            "file_grep",
		Description:     "Search file contents under a directory tree for a regular expression.",
		InputSchema:     schema([]string{"dir", "pattern"}, map[string]any{"dir": strProp("directory to search under"), "pattern": strProp("regular expression"), "max_depth": intProp("maximum recursion depth"), "case_insensitive": boolProp("match case-insensitively")}),
		Category:        CategoryFileOps,
		SecurityProfile: "file_ops_denylist",
		TimeoutSeconds:  30,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return ft.Grep(ctx, argString(args, "dir"), argString(args, "pattern"), argInt(args, "max_depth"), argBool(args, "case_insensitive"))
		},
	})

	reg.Register(&Tool{
		Name:            "file_tree",
		Description:     "Render a directory tree with indentation, up to a maximum depth.",
		InputSchema:     schema([]string{"dir"}, map[string]any{"dir": strProp("directory to render"), "max_depth": intProp("maximum depth")}),
		Category:        CategoryFileOps,
		SecurityProfile: "file_ops_denylist",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return ft.Tree(ctx, argString(args, "dir"), argInt(args, "max_depth"))
		},
	})

	reg.Register(&Tool{
		Name:            "file_stat",
		Description:     "Return type, size, permissions, and modification time for one or more comma-separated paths.",
		InputSchema:     schema([]string{"paths"}, map[string]any{"paths": strProp("comma-separated list of paths")}),
		Category:        CategoryFileOps,
		SecurityProfile: "file_ops_denylist",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return ft.Stat(ctx, argString(args, "paths"))
		},
	})
}

// RegisterSystem wires se's command execution into reg as the single
// category system tool, subject to the executor's command-head allowlist.
func RegisterSystem(reg *Registry, se *ShellExec) {
	if se == nil || !se.Enabled() {
		return
	}

	reg.Register(&Tool{
		Name:               "system_exec",
		Description:        "Run a shell command and return its stdout, stderr, and exit code.",
		InputSchema:        schema([]string{"command"}, map[string]any{"command": strProp("the shell command line to run"), "timeout_seconds": intProp("override the default execution timeout")}),
		Category:           CategorySystem,
		SecurityProfile:    "system_allowlist",
		RequiresPermission: true,
		TimeoutSeconds:     60,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			result, err := se.Exec(ctx, argString(args, "command"), argInt(args, "timeout_seconds"))
			if err != nil {
				return "", err
			}
			return FormatOutput(map[string]any{
				"stdout":    result.Stdout,
				"stderr":    result.Stderr,
				"exit_code": result.ExitCode,
				"timed_out": result.TimedOut,
			}), nil
		},
	})
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
