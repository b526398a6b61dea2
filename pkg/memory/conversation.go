// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides conversation memory backends for the assistant.
package memory

import (
	"context"
	"time"

	"github.com/factotum-ai/factotum/pkg/llm"
)

// DefaultWindowPairs is the number of user/assistant exchange pairs kept in
// the conversation window.
const DefaultWindowPairs = 10

// Turn is one recorded user or assistant message in conversation history.
type Turn struct {
	ID        string    `json:"id"`
	Role      llm.Role  `json:"role"` // user or assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation stores the ordered turn history of a single session.
// Implementations keep at most 2×Pairs turns: once the window is full the
// oldest complete user/assistant pair is evicted. A trailing half-exchange is
// never split.
//
// Implementations are safe for concurrent use, but the assistant serializes
// access per session: one chat call mutates the conversation at a time.
type Conversation interface {
	// Append adds a turn, evicting the oldest pair if the window overflows.
	Append(ctx context.Context, turn Turn) error

	// Window returns an ordered read-only snapshot of the stored turns.
	Window(ctx context.Context) ([]Turn, error)

	// Clear removes all stored turns.
	Clear(ctx context.Context) error
}

// Config configures a conversation backend.
type Config struct {
	// Pairs is the window size in user/assistant exchange pairs.
	// Zero means DefaultWindowPairs.
	Pairs int
}

func (c Config) maxTurns() int {
	pairs := c.Pairs
	if pairs <= 0 {
		pairs = DefaultWindowPairs
	}
	return 2 * pairs
}

func roleFromString(s string) llm.Role {
	if s == string(llm.RoleAssistant) {
		return llm.RoleAssistant
	}
	return llm.RoleUser
}

// clampWindow enforces the window invariant on an ordered turn slice:
// oldest pairs are dropped two turns at a time until at most max turns remain.
func clampWindow(turns []Turn, max int) []Turn {
	for len(turns) > max {
		turns = turns[2:]
	}
	return turns
}
