// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileConversation implements Conversation with file-based storage.
// The session is stored as a single JSON file, rewritten on every append.
// Suitable for simple persistence without external dependencies.
type FileConversation struct {
	mu     sync.RWMutex
	path   string
	config Config
}

// NewFileConversation creates a file-backed conversation window at path.
func NewFileConversation(path string, config Config) (*FileConversation, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversation directory: %w", err)
	}
	return &FileConversation{path: path, config: config}, nil
}

// Append adds a turn, evicting the oldest pair if the window overflows.
func (f *FileConversation) Append(_ context.Context, turn Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	turns, err := f.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	turns = clampWindow(append(turns, turn), f.config.maxTurns())
	return f.save(turns)
}

// Window returns an ordered read-only snapshot of the stored turns.
func (f *FileConversation) Window(_ context.Context) ([]Turn, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	turns, err := f.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return turns, nil
}

// Clear removes all stored turns.
func (f *FileConversation) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileConversation) load() ([]Turn, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to parse conversation file: %w", err)
	}
	return turns, nil
}

func (f *FileConversation) save(turns []Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

var _ Conversation = (*FileConversation)(nil)
