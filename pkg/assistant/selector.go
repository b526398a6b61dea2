// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
	"github.com/factotum-ai/factotum/pkg/llm"
	"github.com/factotum-ai/factotum/pkg/resilience"
	"github.com/factotum-ai/factotum/pkg/telemetry"
)

// Candidate is one entry in the ranked provider list. Lower Rank is tried
// first. New constructs the backend; construction failures count the same
// as probe failures.
type Candidate struct {
	Name string
	Rank int
	New  func(ctx context.Context) (llm.Provider, error)
}

// Selection is the outcome of a successful provider selection.
type Selection struct {
	Provider  llm.Provider
	Candidate Candidate
}

// SelectorConfig tunes liveness probing.
type SelectorConfig struct {
	// ProbeTimeout bounds one liveness probe. Zero means 10s.
	ProbeTimeout time.Duration

	// ProbeDelay is the pause before trying the next candidate after a
	// transient probe failure, giving a shared quota a moment to recover.
	// Zero means 2s.
	ProbeDelay time.Duration

	Metrics *telemetry.LoopMetrics

	// sleep is a test hook.
	sleep func(ctx context.Context, d time.Duration) error
}

func (c SelectorConfig) probeTimeout() time.Duration {
	if c.ProbeTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ProbeTimeout
}

func (c SelectorConfig) probeDelay() time.Duration {
	if c.ProbeDelay <= 0 {
		return 2 * time.Second
	}
	return c.ProbeDelay
}

// Select tries candidates in rank order and returns the first whose
// liveness probe succeeds. Probes are single-shot: they are billable, so
// no retry happens at this layer. A fatal probe failure still moves on to
// the next candidate, since a different backend may succeed where this one
// cannot. When every candidate fails, the returned error carries the last
// failure and the code CodeProviderUnavailable.
func Select(ctx context.Context, candidates []Candidate, config SelectorConfig) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, ferrors.New(ferrors.CodeProviderUnavailable, "no provider candidates configured", nil)
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	sleep := config.sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log := slog.Default()
	var lastErr error

	span := trace.SpanFromContext(ctx)

	for i, candidate := range ordered {
		provider, err := probeCandidate(ctx, candidate, config.probeTimeout())
		span.SetAttributes(telemetry.ProviderAttributes(candidate.Name, candidate.Rank, err == nil)...)
		if err == nil {
			log.Info("provider selected",
				slog.String("candidate", candidate.Name),
				slog.Int("rank", candidate.Rank),
			)
			return &Selection{Provider: provider, Candidate: candidate}, nil
		}

		lastErr = err
		log.Warn("provider probe failed",
			slog.String("candidate", candidate.Name),
			slog.Int("rank", candidate.Rank),
			slog.String("error", err.Error()),
		)
		config.Metrics.RecordFailover(ctx, candidate.Name)

		if ctx.Err() != nil {
			break
		}
		// Give a shared quota a moment before hitting the next model.
		if i < len(ordered)-1 && resilience.IsTransient(err) {
			if err := sleep(ctx, config.probeDelay()); err != nil {
				break
			}
		}
	}

	return nil, ferrors.New(ferrors.CodeProviderUnavailable,
		"all provider candidates failed their liveness probe", lastErr)
}

// probeCandidate constructs the backend and issues one minimal round-trip.
func probeCandidate(ctx context.Context, candidate Candidate, timeout time.Duration) (llm.Provider, error) {
	var provider llm.Provider

	err := resilience.WithTimeout(ctx, resilience.TimeoutConfig{Duration: timeout}, func(ctx context.Context) error {
		p, err := candidate.New(ctx)
		if err != nil {
			return err
		}

		_, err = p.Chat(ctx, llm.ChatRequest{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
			MaxTokens: 8,
		})
		if err != nil {
			return err
		}
		provider = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}
