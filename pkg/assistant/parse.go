// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"strings"

	ferrors "github.com/factotum-ai/factotum/pkg/errors"
)

// Markers of the text action protocol. The model must answer either with
//
//	Thought: ...
//	Action: <tool name>
//	Action Input: <tool input>
//
// or with
//
//	Thought: ...
//	Final Answer: <text for the user>
//
// Anything else is a parse failure and earns one correction retry.
const (
	markerThought     = "Thought:"
	markerAction      = "Action:"
	markerActionInput = "Action Input:"
	markerFinal       = "Final Answer:"
)

// step is one decoded model response: either a final answer or a tool
// action request.
type step struct {
	Thought     string
	Action      string
	ActionInput string
	Final       string
	IsFinal     bool
}

// parseStep decodes a model response into a step. Code fences are
// stripped first since models love to wrap the protocol in them.
func parseStep(raw string) (step, error) {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return step{}, ferrors.New(ferrors.CodeInvalidInput, "model returned an empty response", nil)
	}

	s := step{Thought: sectionAfter(text, markerThought)}

	if final, ok := lookupSection(text, markerFinal); ok {
		s.IsFinal = true
		s.Final = final
		return s, nil
	}

	action, okAction := lookupSection(text, markerAction)
	if okAction {
		// The action name is the first line after the marker; the rest
		// belongs to Action Input when that marker is missing.
		action = firstLine(action)
		input, okInput := lookupSection(text, markerActionInput)
		if !okInput || action == "" {
			return step{}, ferrors.New(ferrors.CodeInvalidInput,
				"model response has an Action without a usable Action Input", nil)
		}
		s.Action = strings.Trim(action, "`\"' ")
		s.ActionInput = strings.Trim(input, "`\"' ")
		return s, nil
	}

	return step{}, ferrors.New(ferrors.CodeInvalidInput,
		"model response matches neither Final Answer nor Action protocol", nil)
}

// lookupSection returns the text between marker and the next known marker.
func lookupSection(text, marker string) (string, bool) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(marker):]

	end := len(rest)
	for _, other := range []string{markerThought, markerAction, markerActionInput, markerFinal} {
		if other == marker {
			continue
		}
		if i := strings.Index(rest, other); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(rest[:end]), true
}

func sectionAfter(text, marker string) string {
	section, _ := lookupSection(text, marker)
	return section
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	trimmed := strings.TrimPrefix(text, "```")
	// Drop an optional language tag on the fence line.
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		firstLine := strings.TrimSpace(trimmed[:i])
		if firstLine == "" || !strings.ContainsAny(firstLine, " :") && len(firstLine) < 20 {
			trimmed = trimmed[i+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
