// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "Hello world"}
	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "Hello world" {
		t.Errorf("Expected 'Hello world', got '%s'", resp.Content)
	}
}

func TestScriptedMockProviderSequence(t *testing.T) {
	mock := NewScriptedMockProvider("first", "second")

	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("expected 'first', got %q", resp.Content)
	}

	resp, err = mock.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "second" {
		t.Errorf("expected 'second', got %q", resp.Content)
	}

	if _, err := mock.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Error("expected error when script is exhausted")
	}
	if mock.CallCount != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount)
	}
}

func TestScriptedMockProviderErrors(t *testing.T) {
	boom := errors.New("boom")
	mock := &ScriptedMockProvider{}
	mock.AddError(boom)
	mock.AddResponse("recovered")

	if _, err := mock.Chat(context.Background(), ChatRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	resp, err := mock.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("expected 'recovered', got %q", resp.Content)
	}
}

func TestOllamaProviderAppliesDefaultModel(t *testing.T) {
	var received ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Message:         Message{Role: RoleAssistant, Content: "hi"},
			Done:            true,
			EvalCount:       2,
			PromptEvalCount: 3,
		})
	}))
	defer server.Close()

	p := NewOllamaModel(server.URL, "llama3.2")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hi" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, want 5", resp.Usage.TotalTokens)
	}
	if received.Model != "llama3.2" {
		t.Errorf("request model = %q, want default applied", received.Model)
	}

	// An explicit request model wins over the default.
	if _, err := p.Chat(context.Background(), ChatRequest{
		Model:    "mistral",
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if received.Model != "mistral" {
		t.Errorf("request model = %q, want mistral", received.Model)
	}
}

func TestScriptedMockProviderCapturesRequests(t *testing.T) {
	mock := NewScriptedMockProvider("ok")
	req := ChatRequest{Messages: []Message{{Role: RoleUser, Content: "what is 2+2"}}}
	if _, err := mock.Chat(context.Background(), req); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(mock.Requests) != 1 {
		t.Fatalf("expected 1 captured request, got %d", len(mock.Requests))
	}
	if mock.Requests[0].Messages[0].Content != "what is 2+2" {
		t.Errorf("unexpected captured request: %+v", mock.Requests[0])
	}
}
