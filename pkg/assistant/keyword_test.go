// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"context"
	"testing"

	"github.com/factotum-ai/factotum/pkg/tools"
	"github.com/factotum-ai/factotum/pkg/tools/builtin"
)

func calculatorOnlyRegistry() *tools.Registry {
	registry := tools.NewRegistry()
	registry.MustRegister(builtin.Calculator())
	return registry
}

func TestKeywordRouteCalculator(t *testing.T) {
	registry := calculatorOnlyRegistry()

	cases := []struct {
		message string
		want    string
	}{
		{"calculate 2+2", "Calculation result: 2+2 = 4"},
		{"what is 17 * 3?", "Calculation result: 17 * 3 = 51"},
		{"100/4", "Calculation result: 100/4 = 25"},
	}
	for _, tc := range cases {
		got, ok := keywordRoute(context.Background(), registry, tc.message)
		if !ok {
			t.Errorf("keywordRoute(%q) did not match", tc.message)
			continue
		}
		if got != tc.want {
			t.Errorf("keywordRoute(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestKeywordRouteNoMatch(t *testing.T) {
	registry := calculatorOnlyRegistry()

	for _, message := range []string{
		"tell me a joke",
		"what is the capital of France?",
	} {
		if got, ok := keywordRoute(context.Background(), registry, message); ok {
			t.Errorf("keywordRoute(%q) matched unexpectedly: %q", message, got)
		}
	}
}

func TestKeywordRouteUnregisteredTool(t *testing.T) {
	registry := calculatorOnlyRegistry()

	// Search phrasing matches, but WebSearch is not registered.
	if got, ok := keywordRoute(context.Background(), registry, "search for golang news"); ok {
		t.Errorf("keywordRoute matched without WebSearch registered: %q", got)
	}
}

func TestKeywordRouteNilRegistry(t *testing.T) {
	if _, ok := keywordRoute(context.Background(), nil, "calculate 2+2"); ok {
		t.Error("keywordRoute matched with a nil registry")
	}
}

func TestExtractExpression(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"what is 2+2?", "2+2"},
		{"calculate 17 * 3 please", "17 * 3"},
		{"(1+2)*3", "(1+2)*3"},
	}
	for _, tc := range cases {
		if got := extractExpression(tc.in); got != tc.want {
			t.Errorf("extractExpression(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
