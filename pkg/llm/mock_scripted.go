// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedResponse is one step in a scripted conversation. Either Content
// or Err is returned for the step.
type ScriptedResponse struct {
	Content string
	Err     error
}

// ScriptedMockProvider is a mock provider that returns a pre-defined sequence
// of responses. Useful for testing multi-turn interactions (e.g. the agent
// loop) and failure sequences (e.g. transient errors followed by success).
type ScriptedMockProvider struct {
	mu        sync.Mutex
	Responses []ScriptedResponse
	// Requests captures every ChatRequest received, in order.
	Requests []ChatRequest
	// CallCount tracks how many times Chat has been called.
	CallCount int
}

// NewScriptedMockProvider creates a provider that pops the given responses
// in order.
func NewScriptedMockProvider(responses ...string) *ScriptedMockProvider {
	p := &ScriptedMockProvider{}
	for _, r := range responses {
		p.Responses = append(p.Responses, ScriptedResponse{Content: r})
	}
	return p
}

// Chat pops the next scripted response or error.
func (s *ScriptedMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	s.Requests = append(s.Requests, req)

	if len(s.Responses) == 0 {
		return nil, errors.New("scripted mock: no more responses available")
	}

	next := s.Responses[0]
	s.Responses = s.Responses[1:]

	if next.Err != nil {
		return nil, next.Err
	}
	return &ChatResponse{
		Content: next.Content,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// AddResponse appends a successful response to the queue.
func (s *ScriptedMockProvider) AddResponse(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, ScriptedResponse{Content: content})
}

// AddError appends a failing step to the queue.
func (s *ScriptedMockProvider) AddError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, ScriptedResponse{Err: err})
}

// PeekNext returns the next response content to be returned, or empty string.
func (s *ScriptedMockProvider) PeekNext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Responses) == 0 {
		return ""
	}
	return s.Responses[0].Content
}
