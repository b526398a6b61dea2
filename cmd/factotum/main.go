// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Command factotum runs the conversational assistant as an interactive
// terminal session.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/factotum-ai/factotum/pkg/assistant"
	"github.com/factotum-ai/factotum/pkg/config"
	"github.com/factotum-ai/factotum/pkg/llm"
	"github.com/factotum-ai/factotum/pkg/memory"
	memollama "github.com/factotum-ai/factotum/pkg/memory/ollama"
	"github.com/factotum-ai/factotum/pkg/memory/qdrant"
	"github.com/factotum-ai/factotum/pkg/resilience"
	"github.com/factotum-ai/factotum/pkg/telemetry"
	"github.com/factotum-ai/factotum/pkg/tools"
	"github.com/factotum-ai/factotum/pkg/tools/builtin"
	"github.com/factotum-ai/factotum/pkg/tools/mcptool"
	"github.com/factotum-ai/factotum/providers/anthropic"
	"github.com/factotum-ai/factotum/providers/gemini"
	"github.com/factotum-ai/factotum/providers/openai"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "factotum:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	logLevel := flag.String("log-level", "", "override the configured log level")
	session := flag.String("session", "", "override the configured session name")
	initConfig := flag.String("init", "", "write a default config file to the given path and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("factotum", version)
		return nil
	}
	if *initConfig != "" {
		if err := config.WriteDefault(*initConfig); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
		fmt.Println("wrote", *initConfig)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewWatcher(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := watcher.Config()
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *session != "" {
		cfg.Memory.Session = *session
	}

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("factotum", version, telemetry.Config{
		Exporter:           cfg.Telemetry.Exporter,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := telemetry.NewLoopMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	registry, closeTools, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTools()

	conversation, closeMemory, err := buildConversation(cfg)
	if err != nil {
		return err
	}
	defer closeMemory()

	recaller, closeRecall, err := buildRecaller(ctx, cfg)
	if err != nil {
		// Recall is an enhancement; a missing Qdrant or embedder should
		// not keep the assistant from starting.
		slog.Warn("long-term recall disabled", slog.String("error", err.Error()))
	}
	defer closeRecall()

	opts := []assistant.Option{
		assistant.WithCandidates(buildCandidates(cfg.Providers.Candidates)...),
		assistant.WithSelectorConfig(assistant.SelectorConfig{
			ProbeTimeout: time.Duration(cfg.Providers.ProbeTimeoutSeconds) * time.Second,
			ProbeDelay:   time.Duration(cfg.Providers.ProbeDelaySeconds) * time.Second,
			Metrics:      metrics,
		}),
		assistant.WithTools(registry),
		assistant.WithConversation(conversation),
		assistant.WithRetry(buildRetry(cfg.Retry)),
		assistant.WithMetrics(metrics),
		assistant.WithSessionID(cfg.Memory.Session),
	}
	if cfg.Loop.MaxIterations > 0 {
		opts = append(opts, assistant.WithMaxIterations(cfg.Loop.MaxIterations))
	}
	if cfg.Loop.Temperature > 0 {
		opts = append(opts, assistant.WithTemperature(cfg.Loop.Temperature))
	}
	if cfg.Loop.MaxTokens > 0 {
		opts = append(opts, assistant.WithMaxTokens(cfg.Loop.MaxTokens))
	}
	if cfg.Providers.KeywordFallback {
		opts = append(opts, assistant.WithKeywordFallback())
	}
	if recaller != nil {
		opts = append(opts, assistant.WithRecaller(recaller))
	}

	fmt.Println("Selecting a model backend...")
	a, err := assistant.New(ctx, opts...)
	if err != nil {
		return err
	}

	// Config edits take effect between chats; provider and memory changes
	// still need a restart.
	watcher.OnChange(func(next *config.Config) {
		level := next.Log.Level
		if *logLevel != "" {
			level = *logLevel
		}
		telemetry.ConfigureSlog(os.Stderr, level, next.Log.Format)

		tuning := []assistant.Option{assistant.WithRetry(buildRetry(next.Retry))}
		if next.Loop.MaxIterations > 0 {
			tuning = append(tuning, assistant.WithMaxIterations(next.Loop.MaxIterations))
		}
		if next.Loop.Temperature > 0 {
			tuning = append(tuning, assistant.WithTemperature(next.Loop.Temperature))
		}
		if next.Loop.MaxTokens > 0 {
			tuning = append(tuning, assistant.WithMaxTokens(next.Loop.MaxTokens))
		}
		if err := a.Apply(tuning...); err != nil {
			slog.Warn("ignoring invalid config change", slog.String("error", err.Error()))
		}
	})
	watcher.Start(ctx)
	defer watcher.Stop()

	if a.Degraded() {
		fmt.Println("No model backend is reachable. Running in degraded mode: only direct tool requests will work.")
	} else {
		fmt.Printf("Ready (backend: %s). Type 'quit' to exit.\n", a.ProviderName())
	}

	return repl(ctx, a)
}

// repl reads user messages from stdin until EOF, interrupt, or "quit".
func repl(ctx context.Context, a *assistant.Assistant) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit":
			fmt.Println("Goodbye!")
			return nil
		}

		fmt.Println(a.Chat(ctx, line))
	}
}

func buildRegistry(ctx context.Context, cfg *config.Config) (*tools.Registry, func(), error) {
	registry := tools.NewRegistry()
	registry.MustRegister(builtin.Calculator())
	registry.MustRegister(builtin.FileReader())
	registry.MustRegister(builtin.CSVAnalyzer())

	serpKey := cfg.Tools.SerpAPIKey
	if serpKey == "" {
		serpKey = os.Getenv("SERPAPI_API_KEY")
	}
	registry.MustRegister(builtin.WebSearch(serpKey))

	var closers []func()
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	for _, server := range cfg.Tools.MCPServers {
		client, err := mcptool.Connect(ctx, server.Command, server.Args)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to connect mcp server %s: %w", server.Name, err)
		}
		closers = append(closers, func() { _ = client.Close() })

		if err := client.RegisterAll(ctx, registry); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to register tools from %s: %w", server.Name, err)
		}
		slog.Info("mcp server connected", slog.String("server", server.Name))
	}

	return registry, closeAll, nil
}

func buildConversation(cfg *config.Config) (memory.Conversation, func(), error) {
	memCfg := memory.Config{Pairs: cfg.Memory.Pairs}
	noop := func() {}

	switch cfg.Memory.Backend {
	case "", "memory":
		return memory.NewWindowConversation(memCfg), noop, nil

	case "file":
		path := cfg.Memory.Path
		if path == "" {
			path = "factotum-history.json"
		}
		conversation, err := memory.NewFileConversation(path, memCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history file: %w", err)
		}
		return conversation, noop, nil

	case "sqlite":
		path := cfg.Memory.Path
		if path == "" {
			path = "factotum.db"
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		conversation, err := memory.NewSQLiteConversation(db, cfg.Memory.Session, memCfg)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize sqlite conversation: %w", err)
		}
		return conversation, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown memory backend: %s", cfg.Memory.Backend)
	}
}

func buildRecaller(ctx context.Context, cfg *config.Config) (*memory.Recaller, func(), error) {
	noop := func() {}
	if !cfg.Recall.Enabled {
		return nil, noop, nil
	}

	store, err := qdrant.New(cfg.Recall.QdrantAddr)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	embedder := memollama.NewEmbedder(cfg.Recall.EmbedderBaseURL, cfg.Recall.EmbedderModel)
	recaller, err := memory.NewRecaller(ctx, store, embedder, cfg.Recall.Collection)
	if err != nil {
		store.Close()
		return nil, noop, err
	}
	return recaller, func() { _ = store.Close() }, nil
}

func buildRetry(cfg config.RetryConfig) resilience.RetryConfig {
	retry := resilience.ProviderRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelaySeconds > 0 {
		retry.InitialDelay = time.Duration(cfg.InitialDelaySeconds) * time.Second
	}
	if cfg.MaxDelaySeconds > 0 {
		retry.MaxDelay = time.Duration(cfg.MaxDelaySeconds) * time.Second
	}
	return retry
}

func buildCandidates(configs []config.CandidateConfig) []assistant.Candidate {
	candidates := make([]assistant.Candidate, 0, len(configs))
	for _, c := range configs {
		name := c.Name
		if name == "" {
			name = c.Kind
		}
		candidates = append(candidates, assistant.Candidate{
			Name: name,
			Rank: c.Rank,
			New:  providerFactory(c),
		})
	}
	return candidates
}

func providerFactory(c config.CandidateConfig) func(ctx context.Context) (llm.Provider, error) {
	switch c.Kind {
	case "gemini":
		return func(ctx context.Context) (llm.Provider, error) {
			var opts []gemini.Option
			if c.Model != "" {
				opts = append(opts, gemini.WithModel(c.Model))
			}
			if c.APIKey != "" {
				return gemini.NewWithAPIKey(ctx, c.APIKey, opts...)
			}
			return gemini.New(ctx, opts...)
		}
	case "openai":
		return func(ctx context.Context) (llm.Provider, error) {
			var opts []openai.Option
			if c.Model != "" {
				opts = append(opts, openai.WithModel(c.Model))
			}
			key := c.APIKey
			if key == "" {
				key = os.Getenv("OPENAI_API_KEY")
			}
			return openai.New(key, opts...), nil
		}
	case "anthropic":
		return func(ctx context.Context) (llm.Provider, error) {
			var opts []anthropic.Option
			if c.Model != "" {
				opts = append(opts, anthropic.WithModel(c.Model))
			}
			key := c.APIKey
			if key == "" {
				key = os.Getenv("ANTHROPIC_API_KEY")
			}
			return anthropic.New(key, opts...), nil
		}
	case "ollama":
		return func(ctx context.Context) (llm.Provider, error) {
			return llm.NewOllamaModel(c.BaseURL, c.Model), nil
		}
	default:
		return func(ctx context.Context) (llm.Provider, error) {
			return nil, fmt.Errorf("unknown provider kind: %s", c.Kind)
		}
	}
}
