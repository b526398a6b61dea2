// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package assistant implements the conversational orchestration core: a
// ranked-provider selector, a bounded reason/act loop over a tool
// registry, and a conversation window feeding the model context.
package assistant

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
	"github.com/factotum-ai/factotum/pkg/llm"
	"github.com/factotum-ai/factotum/pkg/memory"
	"github.com/factotum-ai/factotum/pkg/resilience"
	"github.com/factotum-ai/factotum/pkg/telemetry"
	"github.com/factotum-ai/factotum/pkg/tools"
)

// DefaultMaxIterations caps reason/act cycles per chat call.
const DefaultMaxIterations = 3

// Assistant owns one conversation session: a bound provider handle, the
// tool registry, and the session's memory. Chat calls are serialized; the
// conversation window has a single writer.
type Assistant struct {
	provider      llm.Provider
	providerName  string
	registry      *tools.Registry
	conversation  memory.Conversation
	recaller      *memory.Recaller
	retry         resilience.RetryConfig
	selectorCfg   SelectorConfig
	candidates    []Candidate
	maxIterations int
	temperature   float64
	maxTokens     int
	fallback      bool
	sessionID     string
	metrics       *telemetry.LoopMetrics
	tracer        trace.Tracer

	mu sync.Mutex
}

// Option configures an Assistant instance.
type Option func(*Assistant) error

// WithProvider binds an already-constructed provider, skipping selection.
func WithProvider(name string, provider llm.Provider) Option {
	return func(a *Assistant) error {
		if provider == nil {
			return ferrors.New(ferrors.CodeInvalidInput, "provider is nil", nil)
		}
		a.provider = provider
		a.providerName = name
		return nil
	}
}

// WithCandidates sets the ranked provider list to select from.
func WithCandidates(candidates ...Candidate) Option {
	return func(a *Assistant) error {
		a.candidates = append([]Candidate(nil), candidates...)
		return nil
	}
}

// WithSelectorConfig tunes liveness probing during selection.
func WithSelectorConfig(cfg SelectorConfig) Option {
	return func(a *Assistant) error {
		a.selectorCfg = cfg
		return nil
	}
}

// WithTools attaches the tool registry. The registry must not be mutated
// after construction.
func WithTools(registry *tools.Registry) Option {
	return func(a *Assistant) error {
		a.registry = registry
		return nil
	}
}

// WithConversation attaches a conversation memory backend.
func WithConversation(conversation memory.Conversation) Option {
	return func(a *Assistant) error {
		a.conversation = conversation
		return nil
	}
}

// WithRecaller enables long-term semantic recall of past exchanges.
func WithRecaller(recaller *memory.Recaller) Option {
	return func(a *Assistant) error {
		a.recaller = recaller
		return nil
	}
}

// WithRetry overrides the retry policy wrapped around provider calls.
func WithRetry(retry resilience.RetryConfig) Option {
	return func(a *Assistant) error {
		a.retry = retry
		return nil
	}
}

// WithMaxIterations overrides the reason/act iteration cap.
func WithMaxIterations(n int) Option {
	return func(a *Assistant) error {
		if n < 1 {
			return ferrors.New(ferrors.CodeInvalidInput, "max iterations must be >= 1", nil)
		}
		a.maxIterations = n
		return nil
	}
}

// WithTemperature sets the sampling temperature for provider calls.
func WithTemperature(t float64) Option {
	return func(a *Assistant) error {
		a.temperature = t
		return nil
	}
}

// WithMaxTokens caps completion length for provider calls.
func WithMaxTokens(n int) Option {
	return func(a *Assistant) error {
		a.maxTokens = n
		return nil
	}
}

// WithKeywordFallback lets the assistant answer through direct keyword
// tool routing when no provider candidate is reachable, instead of
// failing construction.
func WithKeywordFallback() Option {
	return func(a *Assistant) error {
		a.fallback = true
		return nil
	}
}

// WithSessionID fixes the session identifier. Default is a random UUID.
func WithSessionID(id string) Option {
	return func(a *Assistant) error {
		a.sessionID = id
		return nil
	}
}

// WithMetrics attaches loop metrics.
func WithMetrics(metrics *telemetry.LoopMetrics) Option {
	return func(a *Assistant) error {
		a.metrics = metrics
		return nil
	}
}

// New builds an Assistant. When no provider is bound directly, the ranked
// candidate list is probed and the first live backend wins. With
// WithKeywordFallback the assistant survives total selection failure and
// degrades to keyword tool routing.
func New(ctx context.Context, opts ...Option) (*Assistant, error) {
	a := &Assistant{
		retry:         resilience.ProviderRetryConfig(),
		maxIterations: DefaultMaxIterations,
		tracer:        otel.Tracer("factotum/assistant"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.registry == nil {
		a.registry = tools.NewRegistry()
	}
	if a.conversation == nil {
		a.conversation = memory.NewWindowConversation(memory.Config{})
	}
	if a.sessionID == "" {
		a.sessionID = uuid.NewString()
	}
	if a.selectorCfg.Metrics == nil {
		a.selectorCfg.Metrics = a.metrics
	}

	if a.provider == nil && len(a.candidates) > 0 {
		selection, err := Select(ctx, a.candidates, a.selectorCfg)
		if err != nil {
			if !a.fallback {
				return nil, err
			}
			a.metrics.RecordError(ctx, err, "selector")
		} else {
			a.provider = selection.Provider
			a.providerName = selection.Candidate.Name
		}
	}

	if a.provider == nil && !a.fallback {
		return nil, ferrors.New(ferrors.CodeProviderUnavailable,
			"no provider configured; bind one or supply candidates", nil)
	}
	return a, nil
}

// Apply re-applies options to a live assistant between chats, so tuning
// (retry policy, iteration cap, temperature) can follow a config reload.
// Options that select or bind providers are construction-time concerns and
// must not be passed here.
func (a *Assistant) Apply(opts ...Option) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return err
		}
	}
	return nil
}

// SessionID returns this assistant's session identifier.
func (a *Assistant) SessionID() string { return a.sessionID }

// ProviderName returns the name of the bound provider candidate, or ""
// when running degraded.
func (a *Assistant) ProviderName() string { return a.providerName }

// Degraded reports whether the assistant runs without a model backend.
func (a *Assistant) Degraded() bool { return a.provider == nil }
