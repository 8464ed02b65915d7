// Package modelmap resolves caller-supplied model aliases to a
// backend-qualified target. The resolution table is a small closed set
// (big/small plus direct passthrough) resolved by a single map lookup
// with a fallback default.
package modelmap

// BackendKind names the configured backend kind. It lives here, not in
// internal/router, to keep modelmap free of router's dependency on
// upstream clients; router and config use this type directly. Only the
// prefixing/stripping behavior cares about the kind.
type BackendKind string

const (
	BackendOpenAICompatible BackendKind = "OPENAI_COMPATIBLE"
	BackendAnthropicPass    BackendKind = "ANTHROPIC_PASSTHROUGH"
	BackendDatabricks       BackendKind = "DATABRICKS"
)

// Config holds the alias table and per-backend qualification rule.
type Config struct {
	BigModel   string
	SmallModel string
	Backend    BackendKind

	// Prefix is prepended to the resolved model for backends that expect a
	// namespaced identifier (e.g. "openrouter/anthropic/"). Empty for
	// backends that take the model string as-is.
	Prefix string

	// StripPrefixes is an ordered list of prefixes removed from the
	// resolved model for the passthrough backend.
	StripPrefixes []string
}

// Mapped is the result of Resolve: original_model is echoed to the
// caller, ResolvedModel is what the upstream sees.
type Mapped struct {
	OriginalModel string
	ResolvedModel string
}

// KnownClaudeModels lists the concrete Claude model version strings the
// alias table resolves to themselves, mirroring the teacher's per-model
// pricing table in internal/api/server.go. Any caller-supplied model that
// names neither an alias nor one of these falls through to BigModel.
var KnownClaudeModels = []string{
	"claude-opus-4-20250514",
	"claude-sonnet-4-20250514",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-sonnet-20240620",
	"claude-3-5-haiku-20241022",
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
}

// aliasTable builds the closed alias->target lookup: "big"/"small" plus
// every known concrete Claude model ID mapped to itself.
func aliasTable(cfg Config) map[string]string {
	table := map[string]string{
		"big":   cfg.BigModel,
		"small": cfg.SmallModel,
	}
	for _, m := range KnownClaudeModels {
		table[m] = m
	}
	return table
}

// Resolve looks up alias in the configured table. Unknown aliases fall
// through to BigModel, matching the ground-truth behavior
// (model_mapping.get(original_model, config.big_model)): a lookup miss,
// not a verbatim passthrough. The backend's prefix/strip rule is then
// applied to produce ResolvedModel; OriginalModel always holds the
// caller's exact input, unmodified.
func Resolve(cfg Config, alias string) Mapped {
	resolved, ok := aliasTable(cfg)[alias]
	if !ok || resolved == "" {
		resolved = cfg.BigModel
	}

	switch cfg.Backend {
	case BackendAnthropicPass:
		for _, p := range cfg.StripPrefixes {
			if len(resolved) > len(p) && resolved[:len(p)] == p {
				resolved = resolved[len(p):]
				break
			}
		}
	default:
		if cfg.Prefix != "" {
			resolved = cfg.Prefix + resolved
		}
	}

	return Mapped{OriginalModel: alias, ResolvedModel: resolved}
}
