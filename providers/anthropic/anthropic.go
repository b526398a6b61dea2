// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package anthropic provides an Anthropic Claude provider.
package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/factotum-ai/factotum/pkg/llm"
)

// DefaultModel is used when neither the request nor an option names one.
const DefaultModel = "claude-sonnet-4-5"

// defaultMaxTokens applies when the request leaves MaxTokens unset; the
// Anthropic API requires an explicit limit.
const defaultMaxTokens = 4096

// Provider implements llm.Provider for the Anthropic API.
type Provider struct {
	client anthropic.Client
	model  string
}

// Option configures the Provider.
type Option func(*Provider)

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// New creates a new Anthropic provider. An empty apiKey defers to the
// SDK's ANTHROPIC_API_KEY handling.
func New(apiKey string, opts ...Option) *Provider {
	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}

	p := &Provider{
		client: anthropic.NewClient(clientOpts...),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the default model this provider targets.
func (p *Provider) Model() string { return p.model }

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var (
		system   []anthropic.TextBlockParam
		messages []anthropic.MessageParam
	)
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case llm.RoleUser:
			messages = append(messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleAssistant:
			messages = append(messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
		System:    system,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapError(model, err)
	}

	result := &llm.ChatResponse{
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.Content += block.Text
		}
	}
	return result, nil
}

func wrapError(model string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.WrapProviderError("anthropic/"+model, apiErr.StatusCode, err)
	}
	return llm.WrapProviderError("anthropic/"+model, 0, err)
}

var _ llm.Provider = (*Provider)(nil)
