// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"fmt"
	"strings"

	"github.com/factotum-ai/factotum/pkg/llm"
	"github.com/factotum-ai/factotum/pkg/memory"
	"github.com/factotum-ai/factotum/pkg/tools"
)

const correctionHint = "Your previous reply did not follow the required format. " +
	"Reply again using exactly one of the two formats: either " +
	"\"Action: <tool>\" followed by \"Action Input: <input>\", or \"Final Answer: <text>\"."

// buildSystemPrompt renders the tool protocol instructions. Tool
// descriptions are shown verbatim so each tool can state its input format.
func buildSystemPrompt(specs []tools.Spec, recalled []string) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant. Answer the user's request, using the available tools when they help.\n\n")

	if len(specs) > 0 {
		b.WriteString("Available tools:\n")
		for _, spec := range specs {
			fmt.Fprintf(&b, "- %s: %s\n", spec.Name, spec.Description)
		}
		b.WriteString("\nTo use a tool, reply with exactly this format:\n")
		b.WriteString("Thought: what you are trying to do\n")
		b.WriteString("Action: the tool name, one of [" + strings.Join(toolNames(specs), ", ") + "]\n")
		b.WriteString("Action Input: the input to the tool\n\n")
		b.WriteString("When you know the answer, reply with exactly this format:\n")
		b.WriteString("Thought: I know the answer\n")
		b.WriteString("Final Answer: the answer to give the user\n\n")
		b.WriteString("Never mix the two formats in one reply.")
	} else {
		b.WriteString("Reply with this format:\nThought: your reasoning\nFinal Answer: the answer to give the user")
	}

	if len(recalled) > 0 {
		b.WriteString("\n\nPossibly relevant past exchanges:\n")
		for _, text := range recalled {
			b.WriteString(text + "\n---\n")
		}
	}
	return b.String()
}

func toolNames(specs []tools.Spec) []string {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return names
}

// buildMessages assembles the provider request for one thinking step:
// system prompt, conversation window, the user message, and the scratchpad
// of earlier steps from this same loop invocation.
func buildMessages(system string, window []memory.Turn, userMessage string, scratchpad []llm.Message, hint bool) []llm.Message {
	messages := make([]llm.Message, 0, len(window)+len(scratchpad)+3)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})

	for _, turn := range window {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	messages = append(messages, scratchpad...)

	if hint {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: correctionHint})
	}
	return messages
}

// observationMessage renders a tool result for the next thinking step.
func observationMessage(observation string) llm.Message {
	return llm.Message{
		Role:    llm.RoleUser,
		Content: "Observation: " + observation + "\nContinue. Use the required format.",
	}
}
