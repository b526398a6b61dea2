// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
)

// MockProvider is a fixed-response Provider for tests: every Chat call
// returns Response (or Err). Calls counts invocations, which selector
// tests use to assert that a winning probe is the only one issued. For
// multi-step conversations use ScriptedMockProvider instead.
type MockProvider struct {
	Response string
	Err      error
	Calls    int
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.Calls++
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content: m.Response,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// FailingMockProvider fails every Chat call, standing in for a candidate
// whose liveness probe cannot succeed.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err == nil {
		return nil, fmt.Errorf("mock error")
	}
	return nil, f.Err
}

var (
	_ Provider = (*MockProvider)(nil)
	_ Provider = (*FailingMockProvider)(nil)
)
