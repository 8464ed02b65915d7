package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nugget/gateway/internal/modelmap"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PROXY_BACKEND", "UPSTREAM_API_BASE", "UPSTREAM_API_KEY",
		"BIG_MODEL", "SMALL_MODEL", "MODEL_PREFIX", "STRIP_PREFIXES",
		"MAX_TOKENS_LIMIT", "REQUEST_TIMEOUT_S", "FALLBACK_ENABLED", "FALLBACK_UPSTREAM_API_BASE",
		"MAX_TOOL_ROUNDS", "LOG_LEVEL", "TOOL_MAX_CONCURRENCY",
		"TOOL_EXECUTION_TIMEOUT_S", "TOOL_RATE_LIMIT_WINDOW_S",
		"TOOL_RATE_LIMIT_MAX", "WORKSPACE_PATH", "SHELL_EXEC_ENABLED",
		"GATEWAY_CONFIG", "DOTENV_PATH",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_MissingRequiredFails(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when PROXY_BACKEND/UPSTREAM_API_BASE/UPSTREAM_API_KEY are unset")
	}
}

func TestLoad_RequiredFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("PROXY_BACKEND", "OPENAI_COMPATIBLE")
	os.Setenv("UPSTREAM_API_BASE", "https://api.example.com/v1")
	os.Setenv("UPSTREAM_API_KEY", "sk-test")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Backend != modelmap.BackendOpenAICompatible {
		t.Errorf("Backend = %q, want %q", cfg.Backend, modelmap.BackendOpenAICompatible)
	}
	if cfg.UpstreamBase != "https://api.example.com/v1" {
		t.Errorf("UpstreamBase = %q", cfg.UpstreamBase)
	}
	if cfg.UpstreamAPIKey != "sk-test" {
		t.Errorf("UpstreamAPIKey = %q", cfg.UpstreamAPIKey)
	}
	// defaults
	if cfg.Listen.Port != 8080 {
		t.Errorf("default Listen.Port = %d, want 8080", cfg.Listen.Port)
	}
	if cfg.MaxToolRounds != 3 {
		t.Errorf("default MaxToolRounds = %d, want 3", cfg.MaxToolRounds)
	}
	if cfg.Tools.MaxConcurrency != 5 {
		t.Errorf("default Tools.MaxConcurrency = %d, want 5", cfg.Tools.MaxConcurrency)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	clearEnv(t)
	os.Setenv("PROXY_BACKEND", "NOT_A_BACKEND")
	os.Setenv("UPSTREAM_API_BASE", "https://api.example.com")
	os.Setenv("UPSTREAM_API_KEY", "sk-test")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unrecognized PROXY_BACKEND")
	}
}

func TestLoad_EnvOverridesOverlay(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	os.WriteFile(path, []byte("max_tool_rounds: 7\nlisten:\n  port: 9999\n"), 0o600)

	os.Setenv("GATEWAY_CONFIG", path)
	os.Setenv("PROXY_BACKEND", "ANTHROPIC_PASSTHROUGH")
	os.Setenv("UPSTREAM_API_BASE", "https://api.anthropic.com")
	os.Setenv("UPSTREAM_API_KEY", "sk-test")
	os.Setenv("MAX_TOOL_ROUNDS", "2")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MaxToolRounds != 2 {
		t.Errorf("MaxToolRounds = %d, want 2 (env should win over overlay's 7)", cfg.MaxToolRounds)
	}
	if cfg.Listen.Port != 9999 {
		t.Errorf("Listen.Port = %d, want 9999 (overlay-only field)", cfg.Listen.Port)
	}
}

func TestLoad_ToolTimeoutsFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("PROXY_BACKEND", "DATABRICKS")
	os.Setenv("UPSTREAM_API_BASE", "https://workspace.cloud.databricks.com")
	os.Setenv("UPSTREAM_API_KEY", "dapi-test")
	os.Setenv("TOOL_EXECUTION_TIMEOUT_S", "45")
	os.Setenv("TOOL_RATE_LIMIT_WINDOW_S", "30")
	os.Setenv("TOOL_RATE_LIMIT_MAX", "10")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Tools.ExecutionTimeout != 45*time.Second {
		t.Errorf("Tools.ExecutionTimeout = %v, want 45s", cfg.Tools.ExecutionTimeout)
	}
	if cfg.Tools.RateLimitWindow != 30*time.Second {
		t.Errorf("Tools.RateLimitWindow = %v, want 30s", cfg.Tools.RateLimitWindow)
	}
	if cfg.Tools.RateLimitMax != 10 {
		t.Errorf("Tools.RateLimitMax = %d, want 10", cfg.Tools.RateLimitMax)
	}
}

func TestLoad_FallbackUpstreamBaseFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("PROXY_BACKEND", "OPENAI_COMPATIBLE")
	os.Setenv("UPSTREAM_API_BASE", "https://api.example.com/v1")
	os.Setenv("UPSTREAM_API_KEY", "sk-test")
	os.Setenv("FALLBACK_ENABLED", "true")
	os.Setenv("FALLBACK_UPSTREAM_API_BASE", "https://backup.example.com/v1")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.FallbackEnabled {
		t.Error("FallbackEnabled = false, want true")
	}
	if cfg.FallbackUpstreamBase != "https://backup.example.com/v1" {
		t.Errorf("FallbackUpstreamBase = %q", cfg.FallbackUpstreamBase)
	}
}

func TestModelMapConfig_Passthrough(t *testing.T) {
	clearEnv(t)
	os.Setenv("PROXY_BACKEND", "ANTHROPIC_PASSTHROUGH")
	os.Setenv("UPSTREAM_API_BASE", "https://api.anthropic.com")
	os.Setenv("UPSTREAM_API_KEY", "sk-test")
	os.Setenv("STRIP_PREFIXES", "openrouter/,bedrock/")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	mm := cfg.ModelMapConfig()
	if len(mm.StripPrefixes) != 2 || mm.StripPrefixes[0] != "openrouter/" {
		t.Errorf("StripPrefixes = %v", mm.StripPrefixes)
	}
}
