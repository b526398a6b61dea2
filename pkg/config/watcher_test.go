// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestWatcherLoadsInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factotum.yaml")
	writeConfigFile(t, path, "log:\n  level: debug\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if w.Config().Log.Level != "debug" {
		t.Errorf("Log.Level = %q", w.Config().Log.Level)
	}
}

func TestWatcherWithoutFile(t *testing.T) {
	clearProviderEnv(t)

	w, err := NewWatcher("")
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if w.Config().Log.Level != "info" {
		t.Errorf("Log.Level = %q, want defaults", w.Config().Log.Level)
	}

	// Start/Stop must not hang when there is nothing to watch.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	w.Stop()
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factotum.yaml")
	writeConfigFile(t, path, "log:\n  level: info\n")

	w, err := NewWatcher(path, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	changed := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	// mtime granularity can hide an immediate rewrite
	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, path, "log:\n  level: error\n")
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Log.Level != "error" {
			t.Errorf("reloaded Log.Level = %q, want error", cfg.Log.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if w.Config().Log.Level != "error" {
		t.Errorf("Config().Log.Level = %q after reload", w.Config().Log.Level)
	}
}

func TestWatcherKeepsLastGoodConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factotum.yaml")
	writeConfigFile(t, path, "log:\n  level: debug\n")

	w, err := NewWatcher(path, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, path, "log: [not a mapping\n")
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if w.Config().Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want last good config retained", w.Config().Log.Level)
	}
}
