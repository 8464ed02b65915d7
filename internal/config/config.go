// Package config loads the gateway's process configuration. Required
// settings come from the environment; an optional YAML
// overlay supplies non-secret tunables for operators who prefer a file.
// Env vars always win over the overlay — explicit beats discovered.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nugget/gateway/internal/modelmap"
)

// Config holds every setting the gateway needs to run.
type Config struct {
	Listen ListenConfig

	Backend        modelmap.BackendKind
	UpstreamBase   string
	UpstreamAPIKey string

	// FallbackUpstreamBase, when set alongside FallbackEnabled, is a
	// second endpoint of the same backend kind tried once when the
	// primary upstream returns a 5xx or transport error (spec.md §4.9/§7).
	FallbackUpstreamBase string

	BigModel      string
	SmallModel    string
	ModelPrefix   string
	StripPrefixes []string

	MaxTokensLimit  int
	RequestTimeout  time.Duration
	FallbackEnabled bool

	Tools ToolsConfig

	MaxToolRounds int

	LogLevel string
}

// ListenConfig is the inbound HTTP bind address.
type ListenConfig struct {
	Address string
	Port    int
}

// ToolsConfig is the client-side tool execution policy.
type ToolsConfig struct {
	MaxConcurrency   int
	ExecutionTimeout time.Duration
	RateLimitWindow  time.Duration
	RateLimitMax     int

	WorkspacePath   string
	ReadOnlyDirs    []string
	ShellEnabled    bool
	ShellWorkingDir string
	DeniedPatterns  []string
	AllowedPrefixes []string
}

// overlay is the optional YAML document pointed to by GATEWAY_CONFIG. It
// only carries the non-secret tunables; Backend/UpstreamBase/UpstreamAPIKey
// are env-only by design.
type overlay struct {
	Listen struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"listen"`
	BigModel             string   `yaml:"big_model"`
	SmallModel           string   `yaml:"small_model"`
	ModelPrefix          string   `yaml:"model_prefix"`
	StripPrefixes        []string `yaml:"strip_prefixes"`
	MaxTokensLimit       int      `yaml:"max_tokens_limit"`
	RequestTimeout       int      `yaml:"request_timeout_s"`
	FallbackEnabled      bool     `yaml:"fallback_enabled"`
	FallbackUpstreamBase string   `yaml:"fallback_upstream_api_base"`
	MaxToolRounds        int      `yaml:"max_tool_rounds"`
	LogLevel             string   `yaml:"log_level"`
	Tools                struct {
		MaxConcurrency   int      `yaml:"max_concurrency"`
		ExecutionTimeout int      `yaml:"execution_timeout_s"`
		RateLimitWindow  int      `yaml:"rate_limit_window_s"`
		RateLimitMax     int      `yaml:"rate_limit_max"`
		WorkspacePath    string   `yaml:"workspace_path"`
		ReadOnlyDirs     []string `yaml:"read_only_dirs"`
		ShellEnabled     bool     `yaml:"shell_enabled"`
		ShellWorkingDir  string   `yaml:"shell_working_dir"`
		DeniedPatterns   []string `yaml:"denied_patterns"`
		AllowedPrefixes  []string `yaml:"allowed_prefixes"`
	} `yaml:"tools"`
}

// Load builds a Config from the process environment, optionally
// preloaded from a .env file and layered over a YAML overlay. After Load
// returns successfully, every field is usable without further nil/empty
// checks. Load fails when the overlay file cannot be read or parsed, or
// when Validate rejects the result (a required env var missing, an
// unknown PROXY_BACKEND, a port out of range, or an invalid log level).
func Load() (*Config, error) {
	if path := os.Getenv("DOTENV_PATH"); path != "" {
		_ = godotenv.Load(path)
	} else {
		_ = godotenv.Load() // best-effort; a missing .env is not an error
	}

	cfg := &Config{}
	cfg.applyOverlayDefaults()

	if ov := os.Getenv("GATEWAY_CONFIG"); ov != "" {
		if err := cfg.loadOverlay(ov); err != nil {
			return nil, fmt.Errorf("load overlay config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyOverlayDefaults seeds the fields the overlay/env may leave unset.
func (c *Config) applyOverlayDefaults() {
	c.Listen.Port = 8080
	c.MaxTokensLimit = 8192
	c.RequestTimeout = 120 * time.Second
	c.MaxToolRounds = 3
	c.Tools.MaxConcurrency = 5
	c.Tools.ExecutionTimeout = 30 * time.Second
	c.Tools.RateLimitWindow = 60 * time.Second
	c.Tools.RateLimitMax = 20
	c.LogLevel = "info"
}

func (c *Config) loadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ov overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return err
	}

	if ov.Listen.Address != "" {
		c.Listen.Address = ov.Listen.Address
	}
	if ov.Listen.Port != 0 {
		c.Listen.Port = ov.Listen.Port
	}
	if ov.BigModel != "" {
		c.BigModel = ov.BigModel
	}
	if ov.SmallModel != "" {
		c.SmallModel = ov.SmallModel
	}
	if ov.ModelPrefix != "" {
		c.ModelPrefix = ov.ModelPrefix
	}
	if len(ov.StripPrefixes) > 0 {
		c.StripPrefixes = ov.StripPrefixes
	}
	if ov.MaxTokensLimit != 0 {
		c.MaxTokensLimit = ov.MaxTokensLimit
	}
	if ov.RequestTimeout != 0 {
		c.RequestTimeout = time.Duration(ov.RequestTimeout) * time.Second
	}
	if ov.FallbackEnabled {
		c.FallbackEnabled = true
	}
	if ov.FallbackUpstreamBase != "" {
		c.FallbackUpstreamBase = ov.FallbackUpstreamBase
	}
	if ov.MaxToolRounds != 0 {
		c.MaxToolRounds = ov.MaxToolRounds
	}
	if ov.LogLevel != "" {
		c.LogLevel = ov.LogLevel
	}
	if ov.Tools.MaxConcurrency != 0 {
		c.Tools.MaxConcurrency = ov.Tools.MaxConcurrency
	}
	if ov.Tools.ExecutionTimeout != 0 {
		c.Tools.ExecutionTimeout = time.Duration(ov.Tools.ExecutionTimeout) * time.Second
	}
	if ov.Tools.RateLimitWindow != 0 {
		c.Tools.RateLimitWindow = time.Duration(ov.Tools.RateLimitWindow) * time.Second
	}
	if ov.Tools.RateLimitMax != 0 {
		c.Tools.RateLimitMax = ov.Tools.RateLimitMax
	}
	if ov.Tools.WorkspacePath != "" {
		c.Tools.WorkspacePath = ov.Tools.WorkspacePath
	}
	if len(ov.Tools.ReadOnlyDirs) > 0 {
		c.Tools.ReadOnlyDirs = ov.Tools.ReadOnlyDirs
	}
	if ov.Tools.ShellEnabled {
		c.Tools.ShellEnabled = true
	}
	if ov.Tools.ShellWorkingDir != "" {
		c.Tools.ShellWorkingDir = ov.Tools.ShellWorkingDir
	}
	if len(ov.Tools.DeniedPatterns) > 0 {
		c.Tools.DeniedPatterns = ov.Tools.DeniedPatterns
	}
	if len(ov.Tools.AllowedPrefixes) > 0 {
		c.Tools.AllowedPrefixes = ov.Tools.AllowedPrefixes
	}
	return nil
}

// applyEnv overlays environment variables, which always take precedence
// over both the defaults and the YAML overlay.
func (c *Config) applyEnv() {
	if v := os.Getenv("PROXY_BACKEND"); v != "" {
		c.Backend = modelmap.BackendKind(v)
	}
	if v := os.Getenv("UPSTREAM_API_BASE"); v != "" {
		c.UpstreamBase = v
	}
	if v := os.Getenv("UPSTREAM_API_KEY"); v != "" {
		c.UpstreamAPIKey = v
	}
	if v := os.Getenv("BIG_MODEL"); v != "" {
		c.BigModel = v
	}
	if v := os.Getenv("SMALL_MODEL"); v != "" {
		c.SmallModel = v
	}
	if v := os.Getenv("MODEL_PREFIX"); v != "" {
		c.ModelPrefix = v
	}
	if v := os.Getenv("STRIP_PREFIXES"); v != "" {
		c.StripPrefixes = strings.Split(v, ",")
	}
	if v, ok := envInt("MAX_TOKENS_LIMIT"); ok {
		c.MaxTokensLimit = v
	}
	if v, ok := envInt("REQUEST_TIMEOUT_S"); ok {
		c.RequestTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envBool("FALLBACK_ENABLED"); ok {
		c.FallbackEnabled = v
	}
	if v := os.Getenv("FALLBACK_UPSTREAM_API_BASE"); v != "" {
		c.FallbackUpstreamBase = v
	}
	if v, ok := envInt("MAX_TOOL_ROUNDS"); ok {
		c.MaxToolRounds = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v, ok := envInt("TOOL_MAX_CONCURRENCY"); ok {
		c.Tools.MaxConcurrency = v
	}
	if v, ok := envInt("TOOL_EXECUTION_TIMEOUT_S"); ok {
		c.Tools.ExecutionTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envInt("TOOL_RATE_LIMIT_WINDOW_S"); ok {
		c.Tools.RateLimitWindow = time.Duration(v) * time.Second
	}
	if v, ok := envInt("TOOL_RATE_LIMIT_MAX"); ok {
		c.Tools.RateLimitMax = v
	}
	if v := os.Getenv("WORKSPACE_PATH"); v != "" {
		c.Tools.WorkspacePath = v
	}
	if v, ok := envBool("SHELL_EXEC_ENABLED"); ok {
		c.Tools.ShellEnabled = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Validate checks that the configuration is internally consistent. It
// runs after defaults/overlay/env have all been applied.
func (c *Config) Validate() error {
	switch c.Backend {
	case modelmap.BackendOpenAICompatible, modelmap.BackendAnthropicPass, modelmap.BackendDatabricks:
	case "":
		return fmt.Errorf("PROXY_BACKEND is required (one of OPENAI_COMPATIBLE, ANTHROPIC_PASSTHROUGH, DATABRICKS)")
	default:
		return fmt.Errorf("PROXY_BACKEND %q is not one of OPENAI_COMPATIBLE, ANTHROPIC_PASSTHROUGH, DATABRICKS", c.Backend)
	}
	if c.UpstreamBase == "" {
		return fmt.Errorf("UPSTREAM_API_BASE is required")
	}
	if c.UpstreamAPIKey == "" {
		return fmt.Errorf("UPSTREAM_API_KEY is required")
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// ModelMapConfig projects the subset of Config that internal/modelmap
// needs. It copies fields only; modelmap.Resolve applies the
// passthrough-vs-prefixed rule (the Anthropic passthrough backend strips
// prefixes, the others prepend one).
func (c *Config) ModelMapConfig() modelmap.Config {
	return modelmap.Config{
		BigModel:      c.BigModel,
		SmallModel:    c.SmallModel,
		Backend:       c.Backend,
		Prefix:        c.ModelPrefix,
		StripPrefixes: c.StripPrefixes,
	}
}
