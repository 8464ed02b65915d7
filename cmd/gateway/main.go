// Package main is the entry point for the gateway server: load config
// from the environment, wire dependencies bottom-up, start the HTTP
// server, and shut down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nugget/gateway/internal/api"
	"github.com/nugget/gateway/internal/buildinfo"
	"github.com/nugget/gateway/internal/config"
	"github.com/nugget/gateway/internal/continuation"
	"github.com/nugget/gateway/internal/metrics"
	"github.com/nugget/gateway/internal/modelmap"
	"github.com/nugget/gateway/internal/router"
	"github.com/nugget/gateway/internal/tools"
	"github.com/nugget/gateway/internal/upstream"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("starting gateway", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if level, err := config.ParseLogLevel(cfg.LogLevel); err == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("config loaded", "backend", cfg.Backend, "upstream_base", cfg.UpstreamBase, "port", cfg.Listen.Port)

	var openaiClient upstream.Client
	var anthropicClient upstream.Client
	var databricksClient *upstream.DatabricksClient

	switch cfg.Backend {
	case modelmap.BackendOpenAICompatible:
		openaiClient = upstream.NewOpenAICompatClient(cfg.UpstreamBase, cfg.RequestTimeout, logger)
	case modelmap.BackendAnthropicPass:
		anthropicClient = upstream.NewAnthropicClient(cfg.UpstreamBase, cfg.RequestTimeout, logger)
	case modelmap.BackendDatabricks:
		databricksClient = upstream.NewDatabricksClient(cfg.UpstreamBase, cfg.RequestTimeout, logger)
	}

	rtr := router.New(cfg.ModelMapConfig(), openaiClient, anthropicClient, databricksClient, cfg.MaxTokensLimit, logger)

	if cfg.FallbackEnabled && cfg.FallbackUpstreamBase != "" {
		var fallbackClient upstream.Client
		switch cfg.Backend {
		case modelmap.BackendOpenAICompatible:
			fallbackClient = upstream.NewOpenAICompatClient(cfg.FallbackUpstreamBase, cfg.RequestTimeout, logger)
		case modelmap.BackendAnthropicPass:
			fallbackClient = upstream.NewAnthropicClient(cfg.FallbackUpstreamBase, cfg.RequestTimeout, logger)
		case modelmap.BackendDatabricks:
			fallbackClient = upstream.NewDatabricksClient(cfg.FallbackUpstreamBase, cfg.RequestTimeout, logger).WithEndpoint(cfg.BigModel)
		}
		rtr.SetFallback(fallbackClient)
		logger.Info("fallback backend enabled", "fallback_upstream_base", cfg.FallbackUpstreamBase)
	}

	registry := tools.NewRegistry()
	if cfg.Tools.WorkspacePath != "" {
		ft := tools.NewFileTools(cfg.Tools.WorkspacePath, cfg.Tools.ReadOnlyDirs)
		tools.RegisterFileOps(registry, ft)
		logger.Info("file tools enabled", "workspace", cfg.Tools.WorkspacePath)
	}
	if cfg.Tools.ShellEnabled {
		shellCfg := tools.ShellExecConfig{
			Enabled:        true,
			WorkingDir:     cfg.Tools.ShellWorkingDir,
			AllowedCmds:    cfg.Tools.AllowedPrefixes,
			DeniedCmds:     cfg.Tools.DeniedPatterns,
			DefaultTimeout: cfg.Tools.ExecutionTimeout,
		}
		if len(shellCfg.DeniedCmds) == 0 {
			shellCfg.DeniedCmds = tools.DefaultShellExecConfig().DeniedCmds
		}
		tools.RegisterSystem(registry, tools.NewShellExec(shellCfg))
		logger.Info("shell exec enabled", "working_dir", cfg.Tools.ShellWorkingDir)
	}

	executor := tools.NewExecutor(registry, tools.ExecutorConfig{
		MaxConcurrency:  cfg.Tools.MaxConcurrency,
		DefaultTimeout:  cfg.Tools.ExecutionTimeout,
		RateLimitWindow: cfg.Tools.RateLimitWindow,
		RateLimitMax:    cfg.Tools.RateLimitMax,
		FileOpsDenylist: tools.DefaultFileOpsDenylist(),
		SystemAllowlist: cfg.Tools.AllowedPrefixes,
	})

	loop := continuation.New(rtr, executor, continuation.Config{MaxRounds: cfg.MaxToolRounds}, logger)

	reg := metrics.New()

	grants := map[string]bool{}
	for _, name := range registry.AllToolNames() {
		grants[name] = true
	}

	server := api.New(cfg.Listen.Address, cfg.Listen.Port, loop, nil, reg, grants, cfg.UpstreamAPIKey, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		if ctx.Err() == nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
	fmt.Println("gateway stopped")
}
