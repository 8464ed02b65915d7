package modelmap

import "testing"

func TestResolve_BigSmallAliases(t *testing.T) {
	cfg := Config{BigModel: "gpt-4.1", SmallModel: "gpt-4.1-mini", Backend: BackendOpenAICompatible}

	if got := Resolve(cfg, "big"); got.ResolvedModel != "gpt-4.1" || got.OriginalModel != "big" {
		t.Errorf("Resolve(big) = %+v", got)
	}
	if got := Resolve(cfg, "small"); got.ResolvedModel != "gpt-4.1-mini" || got.OriginalModel != "small" {
		t.Errorf("Resolve(small) = %+v", got)
	}
}

func TestResolve_EmptyModelFallsBackToBig(t *testing.T) {
	cfg := Config{BigModel: "gpt-4.1", Backend: BackendOpenAICompatible}
	got := Resolve(cfg, "")
	if got.ResolvedModel != "gpt-4.1" {
		t.Errorf("ResolvedModel = %q, want %q", got.ResolvedModel, "gpt-4.1")
	}
}

func TestResolve_KnownClaudeModelPassesThroughVerbatim(t *testing.T) {
	cfg := Config{BigModel: "gpt-4.1", Backend: BackendAnthropicPass}
	got := Resolve(cfg, "claude-3-7-sonnet-20250219")
	if got.ResolvedModel != "claude-3-7-sonnet-20250219" {
		t.Errorf("ResolvedModel = %q, want passthrough of known Claude model", got.ResolvedModel)
	}
	if got.OriginalModel != "claude-3-7-sonnet-20250219" {
		t.Errorf("OriginalModel = %q, want unmodified caller input", got.OriginalModel)
	}
}

func TestResolve_UnknownAliasFallsBackToBig(t *testing.T) {
	cfg := Config{BigModel: "gpt-4.1", Backend: BackendOpenAICompatible}
	got := Resolve(cfg, "not-a-real-model")
	if got.ResolvedModel != "gpt-4.1" {
		t.Errorf("ResolvedModel = %q, want fallback to BigModel for an unknown alias", got.ResolvedModel)
	}
	if got.OriginalModel != "not-a-real-model" {
		t.Errorf("OriginalModel = %q, want unmodified caller input", got.OriginalModel)
	}
}

func TestResolve_PrefixAppliedForNonPassthroughBackend(t *testing.T) {
	cfg := Config{BigModel: "anthropic/claude-3-7-sonnet", Backend: BackendOpenAICompatible, Prefix: "openrouter/"}
	got := Resolve(cfg, "big")
	if got.ResolvedModel != "openrouter/anthropic/claude-3-7-sonnet" {
		t.Errorf("ResolvedModel = %q", got.ResolvedModel)
	}
}

func TestResolve_StripPrefixForAnthropicPassthrough(t *testing.T) {
	cfg := Config{
		BigModel:      "openrouter/anthropic/claude-3-7-sonnet",
		Backend:       BackendAnthropicPass,
		StripPrefixes: []string{"openrouter/anthropic/", "bedrock/"},
	}
	got := Resolve(cfg, "big")
	if got.ResolvedModel != "claude-3-7-sonnet" {
		t.Errorf("ResolvedModel = %q, want stripped", got.ResolvedModel)
	}
}

func TestResolve_StripPrefixNoMatchLeavesModelUnchanged(t *testing.T) {
	cfg := Config{
		BigModel:      "claude-3-7-sonnet",
		Backend:       BackendAnthropicPass,
		StripPrefixes: []string{"bedrock/"},
	}
	got := Resolve(cfg, "big")
	if got.ResolvedModel != "claude-3-7-sonnet" {
		t.Errorf("ResolvedModel = %q, want unchanged", got.ResolvedModel)
	}
}

func TestResolve_DatabricksBackendAppliesPrefixLikeOpenAICompatible(t *testing.T) {
	cfg := Config{BigModel: "databricks-claude-3-7-sonnet", Backend: BackendDatabricks, Prefix: "endpoints/"}
	got := Resolve(cfg, "big")
	if got.ResolvedModel != "endpoints/databricks-claude-3-7-sonnet" {
		t.Errorf("ResolvedModel = %q", got.ResolvedModel)
	}
}
