// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Loop.MaxIterations != 3 {
		t.Errorf("Loop.MaxIterations = %d, want 3", cfg.Loop.MaxIterations)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialDelaySeconds != 5 {
		t.Errorf("Retry = %+v, want 3 attempts with 5s initial delay", cfg.Retry)
	}
	if cfg.Memory.Backend != "memory" || cfg.Memory.Pairs != 10 {
		t.Errorf("Memory = %+v", cfg.Memory)
	}
	if cfg.Recall.Enabled {
		t.Error("Recall.Enabled = true by default")
	}
	if !cfg.Providers.KeywordFallback {
		t.Error("Providers.KeywordFallback = false by default")
	}
}

func TestLoadDefaultCandidatesEndWithOllama(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	candidates := cfg.Providers.Candidates
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 2 gemini models + ollama", len(candidates))
	}
	if candidates[0].Kind != "gemini" || candidates[0].Rank != 1 {
		t.Errorf("first candidate = %+v", candidates[0])
	}
	last := candidates[len(candidates)-1]
	if last.Kind != "ollama" {
		t.Errorf("last candidate kind = %q, want ollama", last.Kind)
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Rank <= candidates[i-1].Rank {
			t.Errorf("candidate ranks not increasing: %+v", candidates)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "factotum.yaml")
	content := `
log:
  level: debug
providers:
  keyword_fallback: false
  candidates:
    - name: primary
      kind: openai
      rank: 1
      model: gpt-4o
      api_key: file-key
loop:
  max_iterations: 5
memory:
  backend: sqlite
  path: /tmp/factotum.db
recall:
  enabled: true
  qdrant_addr: qdrant:6334
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Loop.MaxIterations != 5 {
		t.Errorf("Loop.MaxIterations = %d", cfg.Loop.MaxIterations)
	}
	if cfg.Providers.KeywordFallback {
		t.Error("KeywordFallback should be overridden to false")
	}
	if len(cfg.Providers.Candidates) != 1 {
		t.Fatalf("got %d candidates, want the file's one", len(cfg.Providers.Candidates))
	}
	c := cfg.Providers.Candidates[0]
	if c.Kind != "openai" || c.Model != "gpt-4o" || c.APIKey != "file-key" {
		t.Errorf("candidate = %+v", c)
	}
	if cfg.Memory.Backend != "sqlite" || cfg.Memory.Path != "/tmp/factotum.db" {
		t.Errorf("Memory = %+v", cfg.Memory)
	}
	if !cfg.Recall.Enabled || cfg.Recall.QdrantAddr != "qdrant:6334" {
		t.Errorf("Recall = %+v", cfg.Recall)
	}
	// Unset sections keep their defaults.
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want default 3", cfg.Retry.MaxAttempts)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "factotum.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv("FACTOTUM_LOG_LEVEL", "warn")
	t.Setenv("FACTOTUM_MEMORY_BACKEND", "file")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want env override warn", cfg.Log.Level)
	}
	if cfg.Memory.Backend != "file" {
		t.Errorf("Memory.Backend = %q, want env override file", cfg.Memory.Backend)
	}
}

func TestLoadEnvOverridesUnderscoreKeys(t *testing.T) {
	clearProviderEnv(t)

	t.Setenv("FACTOTUM_LOOP_MAX_ITERATIONS", "7")
	t.Setenv("FACTOTUM_PROVIDERS_PROBE_DELAY_SECONDS", "9")
	t.Setenv("FACTOTUM_PROVIDERS_KEYWORD_FALLBACK", "false")
	t.Setenv("FACTOTUM_RETRY_INITIAL_DELAY_SECONDS", "1")
	t.Setenv("FACTOTUM_TELEMETRY_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("FACTOTUM_TOOLS_SERPAPI_KEY", "env-serp-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Loop.MaxIterations != 7 {
		t.Errorf("Loop.MaxIterations = %d, want 7", cfg.Loop.MaxIterations)
	}
	if cfg.Providers.ProbeDelaySeconds != 9 {
		t.Errorf("Providers.ProbeDelaySeconds = %d, want 9", cfg.Providers.ProbeDelaySeconds)
	}
	if cfg.Providers.KeywordFallback {
		t.Error("Providers.KeywordFallback = true, want env override false")
	}
	if cfg.Retry.InitialDelaySeconds != 1 {
		t.Errorf("Retry.InitialDelaySeconds = %d, want 1", cfg.Retry.InitialDelaySeconds)
	}
	if cfg.Telemetry.OTLPEndpoint != "collector:4317" {
		t.Errorf("Telemetry.OTLPEndpoint = %q", cfg.Telemetry.OTLPEndpoint)
	}
	if cfg.Tools.SerpAPIKey != "env-serp-key" {
		t.Errorf("Tools.SerpAPIKey = %q", cfg.Tools.SerpAPIKey)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "factotum.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of written defaults failed: %v", err)
	}
	if cfg.Loop.MaxIterations != 3 || cfg.Memory.Pairs != 10 {
		t.Errorf("round-tripped config lost defaults: %+v", cfg)
	}

	if err := WriteDefault(path); err == nil {
		t.Fatal("WriteDefault overwrote an existing file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded for a missing file")
	}
}
