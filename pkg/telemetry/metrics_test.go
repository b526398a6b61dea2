// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"fmt"
	"testing"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
)

func TestNewLoopMetrics(t *testing.T) {
	m, err := NewLoopMetrics()
	if err != nil {
		t.Fatalf("failed to create loop metrics: %v", err)
	}
	if m == nil {
		t.Fatal("expected non-nil LoopMetrics")
	}
}

func TestRecordChatAndToolCalls(t *testing.T) {
	m, _ := NewLoopMetrics()
	ctx := context.Background()

	m.RecordChat(ctx, "final", 1)
	m.RecordChat(ctx, "capped", 3)
	m.RecordToolCall(ctx, "Calculator", true)
	m.RecordToolCall(ctx, "Imaginary", false)
	m.RecordFailover(ctx, "gemini-2.5-flash")

	// Nil receiver must not panic, callers skip wiring metrics in tests.
	var nilMetrics *LoopMetrics
	nilMetrics.RecordChat(ctx, "final", 1)
	nilMetrics.RecordToolCall(ctx, "Calculator", true)
	nilMetrics.RecordFailover(ctx, "gemini-2.5-flash")
}

func TestRecordError(t *testing.T) {
	m, _ := NewLoopMetrics()
	ctx := context.Background()

	fe := ferrors.New(ferrors.CodeToolFailure, "tool failed", nil)
	m.RecordError(ctx, fe, "loop")
	m.RecordError(ctx, fmt.Errorf("plain error"), "provider")
	m.RecordError(ctx, nil, "loop")

	var nilMetrics *LoopMetrics
	nilMetrics.RecordError(ctx, fe, "loop")
}

func TestRecordRecovery(t *testing.T) {
	m, _ := NewLoopMetrics()
	ctx := context.Background()

	m.RecordRecovery(ctx, ferrors.CodeRateLimited)
	m.RecordRecovery(ctx, ferrors.CodeTimeout)

	var nilMetrics *LoopMetrics
	nilMetrics.RecordRecovery(ctx, ferrors.CodeRateLimited)
}

func TestConcurrentMetrics(t *testing.T) {
	m, _ := NewLoopMetrics()
	ctx := context.Background()

	done := make(chan bool, 3)

	go func() {
		fe := ferrors.New(ferrors.CodeLLMError, "model overloaded", nil)
		for i := 0; i < 10; i++ {
			m.RecordError(ctx, fe, "provider")
			m.RecordRecovery(ctx, ferrors.CodeLLMError)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 10; i++ {
			m.RecordToolCall(ctx, "Calculator", true)
			m.RecordFailover(ctx, "gemini-2.5-pro")
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 10; i++ {
			m.RecordChat(ctx, "final", i%3+1)
		}
		done <- true
	}()

	<-done
	<-done
	<-done
}
