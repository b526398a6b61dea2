// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
	"github.com/factotum-ai/factotum/pkg/llm"
	"github.com/factotum-ai/factotum/pkg/memory"
	"github.com/factotum-ai/factotum/pkg/resilience"
	"github.com/factotum-ai/factotum/pkg/telemetry"
)

func memoryTurn(role llm.Role, content string) memory.Turn {
	return memory.Turn{Role: role, Content: content}
}

// User-facing degradation messages. The chat boundary never surfaces a
// raw error.
const (
	msgHighDemand = "I'm experiencing high demand right now. Please try again in a few minutes."
	msgNoBackend  = "I'm currently unable to reach a language model. I can still run simple tool requests like calculations."
	msgCapReached = "I couldn't finish reasoning about that within my limits. Please try rephrasing or simplifying your request."
)

func msgFatal(err error) string {
	return fmt.Sprintf("I encountered an error: %v. Please try rephrasing your request.", err)
}

// Chat runs one full user exchange and always returns user-facing text.
// Calls are serialized: one chat mutates the session at a time.
func (a *Assistant) Chat(ctx context.Context, message string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, span := a.tracer.Start(ctx, "Assistant.Chat")
	defer span.End()
	span.SetAttributes(telemetry.LoopAttributes(a.sessionID, 0, a.maxIterations)...)

	log := slog.Default().With(
		slog.String("session_id", a.sessionID),
		slog.String("provider", a.providerName),
	)

	message = strings.TrimSpace(message)
	if message == "" {
		return "Please give me something to work with."
	}

	if a.provider == nil {
		return a.chatDegraded(ctx, log, message)
	}

	reply, outcome, iterations := a.runLoop(ctx, log, message)
	span.SetAttributes(telemetry.LoopAttributes(a.sessionID, iterations, a.maxIterations)...)
	a.metrics.RecordChat(ctx, outcome, iterations)

	if outcome == outcomeFinal || outcome == outcomeCapped {
		a.remember(ctx, log, message, reply)
	}

	log.Info("chat completed",
		slog.String("outcome", outcome),
		slog.Int("iterations", iterations),
	)
	return reply
}

const (
	outcomeFinal    = "final"
	outcomeCapped   = "capped"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

// runLoop drives the reason/act state machine: think, parse, dispatch,
// observe, repeat, bounded by the iteration cap.
func (a *Assistant) runLoop(ctx context.Context, log *slog.Logger, message string) (string, string, int) {
	recalled := a.recall(ctx, log, message)
	window, err := a.conversation.Window(ctx)
	if err != nil {
		log.Warn("failed to read conversation window", slog.String("error", err.Error()))
		a.metrics.RecordError(ctx, err, "memory")
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(telemetry.RecallAttributes(a.recaller != nil, len(recalled))...)
	span.SetAttributes(telemetry.ConversationAttributes(len(window), len(window)/2)...)

	system := buildSystemPrompt(a.registry.Specs(), recalled)

	var (
		scratchpad    []llm.Message
		hint          bool
		bestText      string
		correctedOnce bool
		iterations    int
	)

	for iterations < a.maxIterations {
		content, err := a.think(ctx, buildMessages(system, window, message, scratchpad, hint))
		if err != nil {
			a.metrics.RecordError(ctx, err, "provider")
			if resilience.IsTransient(err) {
				// Retries are exhausted at this point; degrade softly.
				log.Warn("provider still throttled after retries", slog.String("error", err.Error()))
				a.metrics.RecordRecovery(ctx, ferrors.CodeRateLimited)
				return msgHighDemand, outcomeDegraded, iterations
			}
			log.Error("provider call failed", slog.String("error", err.Error()))
			return msgFatal(err), outcomeFailed, iterations
		}

		parsed, perr := parseStep(content)
		if perr != nil {
			bestText = strings.TrimSpace(content)
			scratchpad = append(scratchpad, llm.Message{Role: llm.RoleAssistant, Content: content})
			hint = true
			if !correctedOnce {
				// One free self-correction before the cap starts counting.
				correctedOnce = true
				log.Debug("model response unparseable, retrying with correction hint")
				continue
			}
			iterations++
			continue
		}
		hint = false

		if parsed.IsFinal {
			iterations++
			return parsed.Final, outcomeFinal, iterations
		}

		iterations++
		observation := a.dispatch(ctx, log, parsed)
		bestText = observation
		scratchpad = append(scratchpad,
			llm.Message{Role: llm.RoleAssistant, Content: content},
			observationMessage(observation),
		)
	}

	log.Warn("iteration cap reached without final answer")
	if bestText != "" {
		return bestText, outcomeCapped, iterations
	}
	return msgCapReached, outcomeCapped, iterations
}

// think performs one retry-wrapped provider call.
func (a *Assistant) think(ctx context.Context, messages []llm.Message) (string, error) {
	var resp *llm.ChatResponse

	ctx, span := a.tracer.Start(ctx, "assistant.think")
	defer span.End()
	span.SetAttributes(telemetry.LLMAttributes("", a.providerName, len(messages), 0)...)

	start := time.Now()
	err := a.retry.Do(ctx, func() error {
		var callErr error
		resp, callErr = a.provider.Chat(ctx, llm.ChatRequest{
			Messages:    messages,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		})
		return callErr
	})
	if err != nil {
		return "", err
	}

	span.SetAttributes(telemetry.LLMUsageAttributes(
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens,
		float64(time.Since(start).Milliseconds()))...)
	return resp.Content, nil
}

// dispatch invokes the requested tool. Failures never abort the loop;
// they come back as observations the model can react to.
func (a *Assistant) dispatch(ctx context.Context, log *slog.Logger, parsed step) string {
	ctx, span := a.tracer.Start(ctx, "assistant.tool")
	defer span.End()

	start := time.Now()
	observation, err := a.registry.Invoke(ctx, parsed.Action, parsed.ActionInput)
	known := err == nil

	if err != nil {
		observation = fmt.Sprintf("Error: unknown tool %q. Available tools: %s",
			parsed.Action, strings.Join(a.registry.Names(), ", "))
		log.Warn("model requested unknown tool", slog.String("tool", parsed.Action))
	}

	span.SetAttributes(telemetry.ToolCallAttributes(parsed.Action, known,
		float64(time.Since(start).Milliseconds()))...)
	span.SetAttributes(telemetry.ToolCallInputResult(parsed.ActionInput, observation)...)
	a.metrics.RecordToolCall(ctx, parsed.Action, known)

	log.Debug("tool dispatched",
		slog.String("tool", parsed.Action),
		slog.Bool("known", known),
	)
	return observation
}

// chatDegraded answers without a model backend via keyword routing.
func (a *Assistant) chatDegraded(ctx context.Context, log *slog.Logger, message string) string {
	if reply, ok := keywordRoute(ctx, a.registry, message); ok {
		a.metrics.RecordChat(ctx, outcomeDegraded, 0)
		a.remember(ctx, log, message, reply)
		return reply
	}
	a.metrics.RecordChat(ctx, outcomeDegraded, 0)
	return msgNoBackend
}

// remember appends the exchange to the window and, when recall is wired,
// to long-term storage.
func (a *Assistant) remember(ctx context.Context, log *slog.Logger, userText, assistantText string) {
	if err := a.conversation.Append(ctx, memoryTurn(llm.RoleUser, userText)); err != nil {
		log.Warn("failed to store user turn", slog.String("error", err.Error()))
		a.metrics.RecordError(ctx, err, "memory")
		return
	}
	if err := a.conversation.Append(ctx, memoryTurn(llm.RoleAssistant, assistantText)); err != nil {
		log.Warn("failed to store assistant turn", slog.String("error", err.Error()))
		a.metrics.RecordError(ctx, err, "memory")
	}

	if a.recaller != nil {
		if err := a.recaller.Remember(ctx, userText, assistantText); err != nil {
			log.Warn("failed to store exchange for recall", slog.String("error", err.Error()))
			a.metrics.RecordError(ctx, err, "recall")
		}
	}
}

// recall fetches related past exchanges for prompt context. Best effort;
// a recall failure never blocks the chat.
func (a *Assistant) recall(ctx context.Context, log *slog.Logger, message string) []string {
	if a.recaller == nil {
		return nil
	}
	recalled, err := a.recaller.Recall(ctx, message, 3)
	if err != nil {
		log.Warn("recall lookup failed", slog.String("error", err.Error()))
		a.metrics.RecordError(ctx, err, "recall")
		return nil
	}
	return recalled
}
