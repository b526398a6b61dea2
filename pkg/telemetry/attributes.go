// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration with rich attributes
// for assistant observability.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for Factotum telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Assistant loop attributes
	AttrSessionID     = "factotum.session.id"
	AttrLoopIteration = "factotum.loop.iteration"
	AttrLoopMaxIter   = "factotum.loop.max_iterations"
	AttrLoopOutcome   = "factotum.loop.outcome" // "final", "capped", "degraded", "failed"

	// Provider selection attributes
	AttrProviderName  = "factotum.provider.name"
	AttrProviderRank  = "factotum.provider.rank"
	AttrProviderProbe = "factotum.provider.probe_ok"

	// Conversation attributes
	AttrConversationTurns = "factotum.conversation.turn_count"
	AttrConversationPairs = "factotum.conversation.window_pairs"

	// Recall attributes
	AttrRecallEnabled = "factotum.recall.enabled"
	AttrRecallCount   = "factotum.recall.retrieved_count"

	// Tool attributes
	AttrToolName       = "factotum.tool.name"
	AttrToolInput      = "factotum.tool.input"
	AttrToolResult     = "factotum.tool.result"
	AttrToolDurationMs = "factotum.tool.duration_ms"
	AttrToolKnown      = "factotum.tool.known"

	// LLM attributes (extending standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMAttempt      = "gen_ai.request.attempt"
)

// attrTruncateLimit caps free-text attribute values.
const attrTruncateLimit = 500

func truncateAttr(s string) string {
	if len(s) > attrTruncateLimit {
		return s[:attrTruncateLimit] + "..."
	}
	return s
}

// LoopAttributes returns common attributes for reasoning loop spans.
func LoopAttributes(sessionID string, iteration, maxIter int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
	}
	if iteration > 0 {
		attrs = append(attrs, attribute.Int(AttrLoopIteration, iteration))
	}
	if maxIter > 0 {
		attrs = append(attrs, attribute.Int(AttrLoopMaxIter, maxIter))
	}
	return attrs
}

// ProviderAttributes returns attributes for provider selection and probes.
func ProviderAttributes(name string, rank int, probeOK bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrProviderName, name),
		attribute.Int(AttrProviderRank, rank),
		attribute.Bool(AttrProviderProbe, probeOK),
	}
}

// ConversationAttributes returns attributes for conversation window state.
func ConversationAttributes(turns, pairs int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrConversationTurns, turns),
		attribute.Int(AttrConversationPairs, pairs),
	}
}

// RecallAttributes returns attributes for long-term recall lookups.
func RecallAttributes(enabled bool, retrieved int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrRecallEnabled, enabled),
	}
	if retrieved > 0 {
		attrs = append(attrs, attribute.Int(AttrRecallCount, retrieved))
	}
	return attrs
}

// ToolCallAttributes returns attributes for a tool dispatch span.
func ToolCallAttributes(name string, known bool, durationMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.Bool(AttrToolKnown, known),
		attribute.Float64(AttrToolDurationMs, durationMs),
	}
}

// ToolCallInputResult returns tool input and observation attributes,
// truncated so prompts and file contents never bloat a span.
func ToolCallInputResult(input, result string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if input != "" {
		attrs = append(attrs, attribute.String(AttrToolInput, truncateAttr(input)))
	}
	if result != "" {
		attrs = append(attrs, attribute.String(AttrToolResult, truncateAttr(result)))
	}
	return attrs
}

// LLMAttributes returns attributes for LLM call spans.
func LLMAttributes(model, provider string, msgCount, attempt int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if attempt > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMAttempt, attempt))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	return attrs
}
