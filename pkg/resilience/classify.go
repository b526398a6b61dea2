// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	stderrors "errors"
	"strings"

	"github.com/factotum-ai/factotum/pkg/errors"
)

// transientIndicators are the substrings matched against an error's text when
// no structured code is available. The list covers the phrasings observed
// from Gemini, OpenAI and Anthropic quota/rate-limit rejections.
var transientIndicators = []string{
	"quota",
	"rate limit",
	"rate-limit",
	"ratelimit",
	"429",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"overloaded",
}

// IsTransient reports whether err is a quota or rate-limit failure that is
// worth retrying. A structured FactotumError code wins; the textual match is
// a fallback for providers that surface no structured signal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var fe *errors.FactotumError
	if stderrors.As(err, &fe) {
		switch fe.Code {
		case errors.CodeRateLimited, errors.CodeQuotaExhausted:
			return true
		case errors.CodeContextLost, errors.CodeInvalidInput, errors.CodeUnauthorized:
			return false
		}
		if fe.Recoverable {
			return true
		}
		// A typed error that is neither rate/quota nor marked recoverable
		// still gets the textual check: provider wrappers preserve the raw
		// SDK message as the cause.
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range transientIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
