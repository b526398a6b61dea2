// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/factotum-ai/factotum/pkg/llm"
)

func appendExchange(t *testing.T, conv Conversation, n int) {
	t.Helper()
	ctx := context.Background()
	if err := conv.Append(ctx, Turn{Role: llm.RoleUser, Content: fmt.Sprintf("question %d", n)}); err != nil {
		t.Fatalf("Append user turn failed: %v", err)
	}
	if err := conv.Append(ctx, Turn{Role: llm.RoleAssistant, Content: fmt.Sprintf("answer %d", n)}); err != nil {
		t.Fatalf("Append assistant turn failed: %v", err)
	}
}

func TestWindowConversation_AppendAndWindow(t *testing.T) {
	conv := NewWindowConversation(Config{})
	ctx := context.Background()

	appendExchange(t, conv, 1)

	turns, err := conv.Window(ctx)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != llm.RoleUser || turns[0].Content != "question 1" {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Role != llm.RoleAssistant || turns[1].Content != "answer 1" {
		t.Errorf("unexpected second turn: %+v", turns[1])
	}
	if turns[0].ID == "" || turns[0].CreatedAt.IsZero() {
		t.Error("expected id and timestamp to be assigned on append")
	}
}

func TestWindowConversation_NeverExceedsWindow(t *testing.T) {
	conv := NewWindowConversation(Config{Pairs: 10})
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		appendExchange(t, conv, i)

		turns, err := conv.Window(ctx)
		if err != nil {
			t.Fatalf("Window failed: %v", err)
		}
		if len(turns) > 20 {
			t.Fatalf("after %d exchanges window holds %d turns, want at most 20", i, len(turns))
		}
	}

	// The 10 most recent exchanges survive, oldest evicted first.
	turns, _ := conv.Window(ctx)
	if len(turns) != 20 {
		t.Fatalf("expected full window of 20 turns, got %d", len(turns))
	}
	if turns[0].Content != "question 41" {
		t.Errorf("expected oldest surviving turn to be question 41, got %q", turns[0].Content)
	}
	if turns[19].Content != "answer 50" {
		t.Errorf("expected newest turn to be answer 50, got %q", turns[19].Content)
	}
}

func TestWindowConversation_EvictsWholePairs(t *testing.T) {
	conv := NewWindowConversation(Config{Pairs: 2})
	ctx := context.Background()

	appendExchange(t, conv, 1)
	appendExchange(t, conv, 2)

	// A trailing user turn overflows the window; the whole oldest pair
	// goes, never a single turn.
	if err := conv.Append(ctx, Turn{Role: llm.RoleUser, Content: "question 3"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	turns, err := conv.Window(ctx)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Content != "question 2" {
		t.Errorf("expected pair 1 to be evicted, window starts at %q", turns[0].Content)
	}
	if turns[0].Role != llm.RoleUser {
		t.Errorf("window must start on a user turn, got role %q", turns[0].Role)
	}
}

func TestWindowConversation_Clear(t *testing.T) {
	conv := NewWindowConversation(Config{})
	ctx := context.Background()

	appendExchange(t, conv, 1)
	if conv.Len() != 2 {
		t.Fatalf("expected 2 turns, got %d", conv.Len())
	}

	if err := conv.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if conv.Len() != 0 {
		t.Fatal("expected empty window after clear")
	}
}

func TestFileConversation_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	conv, err := NewFileConversation(path, Config{Pairs: 2})
	if err != nil {
		t.Fatalf("NewFileConversation failed: %v", err)
	}

	appendExchange(t, conv, 1)
	appendExchange(t, conv, 2)
	appendExchange(t, conv, 3)

	// Reopen from disk and check the window survived with the oldest
	// pair evicted.
	reopened, err := NewFileConversation(path, Config{Pairs: 2})
	if err != nil {
		t.Fatalf("NewFileConversation failed: %v", err)
	}
	turns, err := reopened.Window(ctx)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Content != "question 2" || turns[3].Content != "answer 3" {
		t.Errorf("unexpected window contents: %q .. %q", turns[0].Content, turns[3].Content)
	}

	if err := reopened.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	turns, err = reopened.Window(ctx)
	if err != nil {
		t.Fatalf("Window after clear failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty window after clear, got %d turns", len(turns))
	}
}

func TestSQLiteConversation_WindowEviction(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "factotum.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer db.Close()

	conv, err := NewSQLiteConversation(db, "session-a", Config{Pairs: 3})
	if err != nil {
		t.Fatalf("NewSQLiteConversation failed: %v", err)
	}
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		appendExchange(t, conv, i)
	}

	turns, err := conv.Window(ctx)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(turns) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(turns))
	}
	if turns[0].Content != "question 3" {
		t.Errorf("expected window to start at question 3, got %q", turns[0].Content)
	}
	if turns[5].Role != llm.RoleAssistant || turns[5].Content != "answer 5" {
		t.Errorf("unexpected newest turn: %+v", turns[5])
	}
}

func TestSQLiteConversation_SessionsAreIsolated(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "factotum.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	a, err := NewSQLiteConversation(db, "session-a", Config{})
	if err != nil {
		t.Fatalf("NewSQLiteConversation failed: %v", err)
	}
	b, err := NewSQLiteConversation(db, "session-b", Config{})
	if err != nil {
		t.Fatalf("NewSQLiteConversation failed: %v", err)
	}

	appendExchange(t, a, 1)

	turns, err := b.Window(ctx)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("session-b should be empty, got %d turns", len(turns))
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	turns, _ = a.Window(ctx)
	if len(turns) != 0 {
		t.Fatalf("session-a should be empty after clear, got %d turns", len(turns))
	}
}
