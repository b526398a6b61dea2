// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
	"github.com/factotum-ai/factotum/pkg/llm"
)

func liveCandidate(name string, rank int, constructed *[]string) Candidate {
	return Candidate{
		Name: name,
		Rank: rank,
		New: func(ctx context.Context) (llm.Provider, error) {
			*constructed = append(*constructed, name)
			return &llm.MockProvider{Response: "Hi"}, nil
		},
	}
}

func deadCandidate(name string, rank int, err error, constructed *[]string) Candidate {
	return Candidate{
		Name: name,
		Rank: rank,
		New: func(ctx context.Context) (llm.Provider, error) {
			*constructed = append(*constructed, name)
			return &llm.FailingMockProvider{Err: err}, nil
		},
	}
}

func noSleep(cfg SelectorConfig) SelectorConfig {
	cfg.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return cfg
}

func TestSelectHighestRankWins(t *testing.T) {
	var constructed []string
	candidates := []Candidate{
		liveCandidate("backup", 2, &constructed),
		liveCandidate("primary", 1, &constructed),
	}

	selection, err := Select(context.Background(), candidates, noSleep(SelectorConfig{}))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if selection.Candidate.Name != "primary" {
		t.Errorf("selected %q, want primary", selection.Candidate.Name)
	}
	// The winner's probe must be the only probe issued.
	if len(constructed) != 1 || constructed[0] != "primary" {
		t.Errorf("constructed = %v, want [primary]", constructed)
	}
}

func TestSelectFallsThroughToNextCandidate(t *testing.T) {
	var constructed []string
	rateLimited := ferrors.New(ferrors.CodeRateLimited, "rate limited", nil)
	candidates := []Candidate{
		deadCandidate("primary", 1, rateLimited, &constructed),
		liveCandidate("backup", 2, &constructed),
	}

	selection, err := Select(context.Background(), candidates, noSleep(SelectorConfig{}))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if selection.Candidate.Name != "backup" {
		t.Errorf("selected %q, want backup", selection.Candidate.Name)
	}
	if len(constructed) != 2 {
		t.Errorf("constructed = %v, want both candidates probed", constructed)
	}
}

func TestSelectDelaysAfterTransientProbeFailure(t *testing.T) {
	var constructed []string
	var delays []time.Duration

	cfg := SelectorConfig{
		sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}
	candidates := []Candidate{
		deadCandidate("primary", 1, ferrors.New(ferrors.CodeQuotaExhausted, "quota exceeded", nil), &constructed),
		liveCandidate("backup", 2, &constructed),
	}

	if _, err := Select(context.Background(), candidates, cfg); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(delays) != 1 || delays[0] != 2*time.Second {
		t.Errorf("delays = %v, want one 2s pause", delays)
	}
}

func TestSelectNoDelayAfterFatalProbeFailure(t *testing.T) {
	var constructed []string
	var delays []time.Duration

	cfg := SelectorConfig{
		sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}
	candidates := []Candidate{
		deadCandidate("primary", 1, ferrors.New(ferrors.CodeUnauthorized, "invalid api key", nil), &constructed),
		liveCandidate("backup", 2, &constructed),
	}

	selection, err := Select(context.Background(), candidates, cfg)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if selection.Candidate.Name != "backup" {
		t.Errorf("selected %q, want backup", selection.Candidate.Name)
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none for a fatal failure", delays)
	}
}

func TestSelectConstructionFailureCountsAsProbeFailure(t *testing.T) {
	var constructed []string
	candidates := []Candidate{
		{
			Name: "primary",
			Rank: 1,
			New: func(ctx context.Context) (llm.Provider, error) {
				return nil, errors.New("missing credentials")
			},
		},
		liveCandidate("backup", 2, &constructed),
	}

	selection, err := Select(context.Background(), candidates, noSleep(SelectorConfig{}))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if selection.Candidate.Name != "backup" {
		t.Errorf("selected %q, want backup", selection.Candidate.Name)
	}
}

func TestSelectAllCandidatesFail(t *testing.T) {
	var constructed []string
	probeErr := ferrors.New(ferrors.CodeQuotaExhausted, "quota exceeded", nil)
	candidates := []Candidate{
		deadCandidate("primary", 1, probeErr, &constructed),
		deadCandidate("backup", 2, probeErr, &constructed),
	}

	_, err := Select(context.Background(), candidates, noSleep(SelectorConfig{}))
	if err == nil {
		t.Fatal("Select succeeded, want error")
	}
	var fe *ferrors.FactotumError
	if !errors.As(err, &fe) || fe.Code != ferrors.CodeProviderUnavailable {
		t.Errorf("error = %v, want CodeProviderUnavailable", err)
	}
	if len(constructed) != 2 {
		t.Errorf("constructed = %v, want every candidate probed", constructed)
	}
}

func TestSelectNoCandidates(t *testing.T) {
	_, err := Select(context.Background(), nil, SelectorConfig{})
	if err == nil {
		t.Fatal("Select succeeded, want error")
	}
	var fe *ferrors.FactotumError
	if !errors.As(err, &fe) || fe.Code != ferrors.CodeProviderUnavailable {
		t.Errorf("error = %v, want CodeProviderUnavailable", err)
	}
}
