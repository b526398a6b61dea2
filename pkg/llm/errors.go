// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"fmt"
	"strings"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
)

// WrapProviderError converts a provider SDK failure into a FactotumError
// with a structured code so downstream retry classification does not have
// to scrape error strings. status is the HTTP status when known, 0 otherwise.
func WrapProviderError(provider string, status int, err error) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf("%s request failed", provider)
	fe := func(code ferrors.ErrorCode, recoverable bool) *ferrors.FactotumError {
		return ferrors.New(code, msg, err).
			WithContext("provider", provider).
			WithContext("status", status).
			WithRecoverable(recoverable)
	}

	switch status {
	case 429:
		// 429 covers both throttling and exhausted quota. Billing quota
		// failures are worth telling apart in metrics.
		if isQuotaText(err.Error()) {
			return fe(ferrors.CodeQuotaExhausted, true)
		}
		return fe(ferrors.CodeRateLimited, true)
	case 401, 403:
		return fe(ferrors.CodeUnauthorized, false)
	case 400, 422:
		return fe(ferrors.CodeInvalidInput, false)
	case 404:
		return fe(ferrors.CodeNotFound, false)
	case 408:
		return fe(ferrors.CodeTimeout, true)
	}
	if status >= 500 {
		return fe(ferrors.CodeProviderUnavailable, true)
	}

	// No usable status. Fall back to the error text once, here, so the
	// retry layer sees a structured code either way.
	text := strings.ToLower(err.Error())
	switch {
	case isQuotaText(text):
		return fe(ferrors.CodeQuotaExhausted, true)
	case strings.Contains(text, "rate limit"), strings.Contains(text, "429"),
		strings.Contains(text, "too many requests"), strings.Contains(text, "overloaded"):
		return fe(ferrors.CodeRateLimited, true)
	case strings.Contains(text, "timeout"), strings.Contains(text, "deadline exceeded"):
		return fe(ferrors.CodeTimeout, true)
	case strings.Contains(text, "connection"), strings.Contains(text, "unavailable"),
		strings.Contains(text, "eof"), strings.Contains(text, "reset"):
		return fe(ferrors.CodeProviderUnavailable, true)
	}
	return fe(ferrors.CodeLLMError, false)
}

func isQuotaText(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "quota") || strings.Contains(s, "resource exhausted") ||
		strings.Contains(s, "resource_exhausted") || strings.Contains(s, "billing")
}
