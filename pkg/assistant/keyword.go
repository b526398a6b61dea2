// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"context"
	"strings"

	"github.com/factotum-ai/factotum/pkg/tools"
)

// keywordRoute is the degraded dispatch strategy used when no model
// backend is available: route the message to a tool by keyword and return
// its raw observation. It is deliberately dumb; the model-driven loop is
// the real contract.
func keywordRoute(ctx context.Context, registry *tools.Registry, message string) (string, bool) {
	if registry == nil {
		return "", false
	}
	lower := strings.ToLower(message)

	try := func(tool, input string) (string, bool) {
		if _, ok := registry.Lookup(tool); !ok {
			return "", false
		}
		obs, err := registry.Invoke(ctx, tool, input)
		if err != nil {
			return "", false
		}
		return obs, true
	}

	switch {
	case strings.Contains(lower, "calculate") || strings.Contains(lower, "what is") && looksArithmetic(message):
		return try("Calculator", extractExpression(message))
	case strings.Contains(lower, "search") || strings.Contains(lower, "look up"):
		return try("WebSearch", strings.TrimSpace(trimLeadingKeyword(message, "search", "look up")))
	case strings.Contains(lower, "read file") || strings.Contains(lower, "open file"):
		return try("FileReader", lastField(message))
	case strings.Contains(lower, "csv"):
		return try("CSVAnalyzer", strings.TrimSpace(message))
	case looksArithmetic(message):
		return try("Calculator", extractExpression(message))
	}
	return "", false
}

func looksArithmetic(s string) bool {
	hasDigit, hasOp := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '^' || r == '%':
			hasOp = true
		}
	}
	return hasDigit && hasOp
}

// extractExpression keeps only the arithmetic-looking tail of a message,
// so "what is 2+2?" becomes "2+2".
func extractExpression(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' || r == '(' {
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimSpace(s)
	}
	end := start
	for _, r := range s[start:] {
		if r >= '0' && r <= '9' || strings.ContainsRune("+-*/^%(). ,", r) {
			end += len(string(r))
			continue
		}
		break
	}
	return strings.TrimSpace(strings.TrimRight(s[start:end], ". ,"))
}

func trimLeadingKeyword(s string, keywords ...string) string {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if idx := strings.Index(lower, kw); idx >= 0 {
			candidate := strings.TrimSpace(s[idx+len(kw):])
			candidate = strings.TrimPrefix(candidate, "for ")
			if candidate != "" {
				return candidate
			}
		}
	}
	return s
}

func lastField(s string) string {
	fields := strings.Fields(strings.TrimRight(s, ".?!"))
	if len(fields) == 0 {
		return s
	}
	return fields[len(fields)-1]
}
