// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"fmt"
	"testing"

	"google.golang.org/genai"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
	"github.com/factotum-ai/factotum/pkg/llm"
)

func TestConvertMessages(t *testing.T) {
	contents, system := convertMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: "You are helpful."},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: llm.RoleUser, Content: "what is 2+2?"},
	})

	if system != "You are helpful." {
		t.Errorf("system instruction = %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[0].Parts[0].Text != "hi" {
		t.Errorf("unexpected first content: %+v", contents[0])
	}
	if contents[1].Role != "model" {
		t.Errorf("assistant turn should map to model role, got %q", contents[1].Role)
	}
}

func TestConvertResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "2+2 "}, {Text: "is 4"}}}},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 5,
			TotalTokenCount:      17,
		},
	}

	got := convertResponse(resp)
	if got.Content != "2+2 is 4" {
		t.Errorf("content = %q", got.Content)
	}
	if got.Usage.TotalTokens != 17 || got.Usage.PromptTokens != 12 {
		t.Errorf("unexpected usage: %+v", got.Usage)
	}
}

func TestWrapErrorClassifiesAPIErrors(t *testing.T) {
	err := wrapError("gemini-2.5-flash", genai.APIError{
		Code:    429,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exceeded",
	})

	fe := ferrors.AsFactotumError(err)
	if fe == nil {
		t.Fatalf("expected FactotumError, got %T", err)
	}
	if fe.Code != ferrors.CodeQuotaExhausted {
		t.Errorf("code = %s, want %s", fe.Code, ferrors.CodeQuotaExhausted)
	}
	if !fe.Recoverable {
		t.Error("quota exhaustion should be recoverable")
	}

	err = wrapError("gemini-2.5-flash", fmt.Errorf("connection refused"))
	fe = ferrors.AsFactotumError(err)
	if fe == nil || fe.Code != ferrors.CodeProviderUnavailable {
		t.Errorf("expected CodeProviderUnavailable for network error, got %v", err)
	}
}
