// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package anthropic

import (
	"fmt"
	"testing"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
)

func TestNewAppliesOptions(t *testing.T) {
	p := New("test-key", WithModel("claude-haiku-4-5"))
	if p.Model() != "claude-haiku-4-5" {
		t.Errorf("model = %q, want claude-haiku-4-5", p.Model())
	}

	if p := New(""); p.Model() != DefaultModel {
		t.Errorf("default model = %q, want %q", p.Model(), DefaultModel)
	}
}

func TestWrapErrorFallback(t *testing.T) {
	err := wrapError("claude-sonnet-4-5", fmt.Errorf("overloaded_error: Overloaded"))
	fe := ferrors.AsFactotumError(err)
	if fe == nil || fe.Code != ferrors.CodeRateLimited {
		t.Errorf("expected CodeRateLimited, got %v", err)
	}
	if !fe.Recoverable {
		t.Error("overloaded should be recoverable")
	}
}
