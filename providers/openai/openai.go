// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package openai provides an OpenAI chat completions provider.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/factotum-ai/factotum/pkg/llm"
)

// DefaultModel is used when neither the request nor an option names one.
const DefaultModel = "gpt-4o-mini"

// Provider implements llm.Provider for the OpenAI API.
type Provider struct {
	client openai.Client
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

// New creates a new OpenAI provider. An empty apiKey defers to the SDK's
// OPENAI_API_KEY handling.
func New(apiKey string, opts ...Option) *Provider {
	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}

	p := &Provider{
		client: openai.NewClient(clientOpts...),
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

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(model, err)
	}

	result := &llm.ChatResponse{
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
	}
	return result, nil
}

func wrapError(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.WrapProviderError("openai/"+model, apiErr.StatusCode, err)
	}
	return llm.WrapProviderError("openai/"+model, 0, err)
}

var _ llm.Provider = (*Provider)(nil)
