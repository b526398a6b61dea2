// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads Factotum configuration from YAML files and the
// environment. File values override defaults; FACTOTUM_* environment
// variables override both (FACTOTUM_LOG_LEVEL -> log.level).
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the environment variable prefix for overrides.
const EnvPrefix = "FACTOTUM_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Providers ProvidersConfig `koanf:"providers"`
	Loop      LoopConfig      `koanf:"loop"`
	Retry     RetryConfig     `koanf:"retry"`
	Memory    MemoryConfig    `koanf:"memory"`
	Recall    RecallConfig    `koanf:"recall"`
	Tools     ToolsConfig     `koanf:"tools"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// ProvidersConfig holds the ranked model backends and probe tuning.
type ProvidersConfig struct {
	Candidates []CandidateConfig `koanf:"candidates"`

	ProbeTimeoutSeconds int `koanf:"probe_timeout_seconds"`
	ProbeDelaySeconds   int `koanf:"probe_delay_seconds"`

	// KeywordFallback keeps the assistant running on keyword tool routing
	// when every candidate fails its probe.
	KeywordFallback bool `koanf:"keyword_fallback"`
}

// CandidateConfig describes one provider candidate. Kind selects the
// backend implementation; Rank orders the fallback chain, lowest first.
type CandidateConfig struct {
	Name    string `koanf:"name"`
	Kind    string `koanf:"kind"` // gemini, openai, anthropic, ollama
	Rank    int    `koanf:"rank"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type LoopConfig struct {
	MaxIterations int     `koanf:"max_iterations"`
	Temperature   float64 `koanf:"temperature"`
	MaxTokens     int     `koanf:"max_tokens"`
}

type RetryConfig struct {
	MaxAttempts         int `koanf:"max_attempts"`
	InitialDelaySeconds int `koanf:"initial_delay_seconds"`
	MaxDelaySeconds     int `koanf:"max_delay_seconds"`
}

// MemoryConfig selects the conversation window backend.
type MemoryConfig struct {
	Backend string `koanf:"backend"` // memory, file, sqlite
	Pairs   int    `koanf:"pairs"`
	Path    string `koanf:"path"`
	Session string `koanf:"session"`
}

// RecallConfig enables long-term semantic recall via Qdrant and a local
// embedding model.
type RecallConfig struct {
	Enabled         bool   `koanf:"enabled"`
	QdrantAddr      string `koanf:"qdrant_addr"`
	Collection      string `koanf:"collection"`
	EmbedderBaseURL string `koanf:"embedder_base_url"`
	EmbedderModel   string `koanf:"embedder_model"`
}

type ToolsConfig struct {
	SerpAPIKey string            `koanf:"serpapi_key"`
	MCPServers []MCPServerConfig `koanf:"mcp_servers"`
}

// MCPServerConfig describes one stdio MCP server whose tools are
// registered alongside the builtins.
type MCPServerConfig struct {
	Name    string   `koanf:"name"`
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

type TelemetryConfig struct {
	Exporter           string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint       string `koanf:"otlp_endpoint"`
	OTLPInsecure       bool   `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int    `koanf:"otlp_timeout_seconds"`
}

// Load reads configuration from an optional YAML file and the
// environment. An empty path loads defaults plus environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// FACTOTUM_LOOP_MAX_ITERATIONS -> loop.max_iterations
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyToPath), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Providers.Candidates) == 0 {
		cfg.Providers.Candidates = defaultCandidates()
	}
	return &cfg, nil
}

// keyPaths lists every leaf path reachable through a FACTOTUM_* variable.
// Environment variable names are flat, so an underscore inside them is
// ambiguous between a section separator and part of a key name; the lookup
// resolves against the known paths instead of guessing.
var keyPaths = []string{
	"log.level",
	"log.format",
	"providers.probe_timeout_seconds",
	"providers.probe_delay_seconds",
	"providers.keyword_fallback",
	"loop.max_iterations",
	"loop.temperature",
	"loop.max_tokens",
	"retry.max_attempts",
	"retry.initial_delay_seconds",
	"retry.max_delay_seconds",
	"memory.backend",
	"memory.pairs",
	"memory.path",
	"memory.session",
	"recall.enabled",
	"recall.qdrant_addr",
	"recall.collection",
	"recall.embedder_base_url",
	"recall.embedder_model",
	"tools.serpapi_key",
	"telemetry.exporter",
	"telemetry.otlp_endpoint",
	"telemetry.otlp_insecure",
	"telemetry.otlp_timeout_seconds",
}

var envKeyLookup = func() map[string]string {
	lookup := make(map[string]string, len(keyPaths))
	for _, path := range keyPaths {
		lookup[strings.ReplaceAll(path, ".", "_")] = path
	}
	return lookup
}()

// envKeyToPath maps an environment variable name onto its koanf path.
// Unknown names fall back to the plain section_key convention so that a
// candidate override like FACTOTUM_LOG_LEVEL still resolves even if the
// lookup table lags behind a new section.
func envKeyToPath(name string) string {
	flat := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if path, ok := envKeyLookup[flat]; ok {
		return path
	}
	return strings.Replace(flat, "_", ".", 1)
}

// WriteDefault writes the default configuration to path as YAML, as a
// starting point for a site config. Existing files are not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.ErrExist
	}

	nested := make(map[string]interface{})
	for key, value := range defaults() {
		parts := strings.Split(key, ".")
		section := nested
		for _, part := range parts[:len(parts)-1] {
			child, ok := section[part].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				section[part] = child
			}
			section = child
		}
		section[parts[len(parts)-1]] = value
	}

	encoded, err := yamlv3.Marshal(nested)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.level":  "info",
		"log.format": "text",

		"providers.probe_timeout_seconds": 10,
		"providers.probe_delay_seconds":   2,
		"providers.keyword_fallback":      true,

		"loop.max_iterations": 3,
		"loop.temperature":    0.0,
		"loop.max_tokens":     1024,

		"retry.max_attempts":          3,
		"retry.initial_delay_seconds": 5,

		"memory.backend": "memory",
		"memory.pairs":   10,
		"memory.session": "default",

		"recall.enabled":           false,
		"recall.qdrant_addr":       "localhost:6334",
		"recall.collection":        "factotum_exchanges",
		"recall.embedder_base_url": "http://localhost:11434",
		"recall.embedder_model":    "nomic-embed-text",

		"telemetry.exporter": "none",
	}
}

// defaultCandidates builds the fallback chain from whatever credentials
// the environment carries, ending with a keyless local Ollama.
func defaultCandidates() []CandidateConfig {
	var candidates []CandidateConfig
	rank := 1

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		for _, model := range []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"} {
			candidates = append(candidates, CandidateConfig{
				Name:   model,
				Kind:   "gemini",
				Rank:   rank,
				Model:  model,
				APIKey: key,
			})
			rank++
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		candidates = append(candidates, CandidateConfig{
			Name:   "openai",
			Kind:   "openai",
			Rank:   rank,
			APIKey: key,
		})
		rank++
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		candidates = append(candidates, CandidateConfig{
			Name:   "anthropic",
			Kind:   "anthropic",
			Rank:   rank,
			APIKey: key,
		})
		rank++
	}

	candidates = append(candidates, CandidateConfig{
		Name: "ollama",
		Kind: "ollama",
		Rank: rank,
	})
	return candidates
}
