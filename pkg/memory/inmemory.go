// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WindowConversation implements Conversation with in-memory storage.
// Suitable for development, testing, and single-instance deployments.
// History is lost on restart.
type WindowConversation struct {
	mu     sync.RWMutex
	turns  []Turn
	config Config
}

// NewWindowConversation creates a new in-memory conversation window.
func NewWindowConversation(config Config) *WindowConversation {
	return &WindowConversation{config: config}
}

// Append adds a turn, evicting the oldest pair if the window overflows.
func (m *WindowConversation) Append(_ context.Context, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	m.turns = clampWindow(append(m.turns, turn), m.config.maxTurns())
	return nil
}

// Window returns an ordered read-only snapshot of the stored turns.
func (m *WindowConversation) Window(_ context.Context) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]Turn, len(m.turns))
	copy(snapshot, m.turns)
	return snapshot, nil
}

// Clear removes all stored turns.
func (m *WindowConversation) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = nil
	return nil
}

// Len returns the number of stored turns.
func (m *WindowConversation) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

var _ Conversation = (*WindowConversation)(nil)
