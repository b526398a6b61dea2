// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
)

// LoopMetrics tracks chat volume, loop shape, tool usage, and failover
// behavior for production monitoring.
type LoopMetrics struct {
	// chatCounter tracks completed chat calls by outcome
	chatCounter metric.Int64Counter

	// iterationHistogram tracks reasoning iterations per chat
	iterationHistogram metric.Int64Histogram

	// toolCallCounter tracks tool dispatches by tool and success
	toolCallCounter metric.Int64Counter

	// failoverCounter tracks candidate providers skipped during selection
	failoverCounter metric.Int64Counter

	// errorCounter tracks total errors by code and component
	errorCounter metric.Int64Counter

	// recoveryCounter tracks successful recoveries (retry succeeded,
	// degraded answer produced)
	recoveryCounter metric.Int64Counter
}

// NewLoopMetrics creates a metrics tracker with OTEL meters.
func NewLoopMetrics() (*LoopMetrics, error) {
	meter := otel.Meter("factotum/assistant")

	chatCounter, err := meter.Int64Counter(
		"factotum.chats.total",
		metric.WithDescription("Completed chat calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	iterationHistogram, err := meter.Int64Histogram(
		"factotum.loop.iterations",
		metric.WithDescription("Reasoning iterations used per chat"),
	)
	if err != nil {
		return nil, err
	}

	toolCallCounter, err := meter.Int64Counter(
		"factotum.tools.calls",
		metric.WithDescription("Tool dispatches by tool name and success"),
	)
	if err != nil {
		return nil, err
	}

	failoverCounter, err := meter.Int64Counter(
		"factotum.provider.failovers",
		metric.WithDescription("Candidate providers skipped during selection"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"factotum.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	recoveryCounter, err := meter.Int64Counter(
		"factotum.errors.recovered",
		metric.WithDescription("Successful error recoveries by code"),
	)
	if err != nil {
		return nil, err
	}

	return &LoopMetrics{
		chatCounter:        chatCounter,
		iterationHistogram: iterationHistogram,
		toolCallCounter:    toolCallCounter,
		failoverCounter:    failoverCounter,
		errorCounter:       errorCounter,
		recoveryCounter:    recoveryCounter,
	}, nil
}

// RecordChat records one completed chat call and the iterations it used.
// Outcome is one of "final", "capped", "degraded", "failed".
func (m *LoopMetrics) RecordChat(ctx context.Context, outcome string, iterations int) {
	if m == nil {
		return
	}
	m.chatCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
	m.iterationHistogram.Record(ctx, int64(iterations),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordToolCall records one tool dispatch.
func (m *LoopMetrics) RecordToolCall(ctx context.Context, tool string, known bool) {
	if m == nil {
		return
	}
	m.toolCallCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.Bool("known", known),
		))
}

// RecordFailover records a candidate provider that failed its probe.
func (m *LoopMetrics) RecordFailover(ctx context.Context, candidate string) {
	if m == nil {
		return
	}
	m.failoverCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("candidate", candidate)))
}

// RecordError increments the error counter for the given error and component.
func (m *LoopMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}

	if fe := ferrors.AsFactotumError(err); fe != nil {
		m.errorCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("error.code", string(fe.Code)),
				attribute.String("component", component),
				attribute.String("recoverable", fe.RecoverableString()),
			),
		)
		return
	}
	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", "UNKNOWN"),
			attribute.String("component", component),
			attribute.String("recoverable", "unknown"),
		),
	)
}

// RecordRecovery increments the recovery counter for the given error code.
// Called when an error was absorbed: a retry succeeded or a degraded answer
// was produced instead of a failure.
func (m *LoopMetrics) RecordRecovery(ctx context.Context, code ferrors.ErrorCode) {
	if m == nil {
		return
	}
	m.recoveryCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("error.code", string(code))))
}
