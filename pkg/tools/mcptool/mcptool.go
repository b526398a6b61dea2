// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcptool exposes tools served over the Model Context Protocol to
// the assistant's registry. Each remote MCP tool becomes a tools.Spec whose
// observation carries either the tool output or the failure text.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/factotum-ai/factotum/pkg/tools"
)

const defaultCallTimeout = 30 * time.Second

// Caller abstracts MCP tool execution so tests can stub the transport.
type Caller interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Client connects to one MCP server and adapts its tools.
type Client struct {
	caller  Caller
	timeout time.Duration
	closer  func() error
}

// Option customizes a Client.
type Option func(*Client)

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient wraps an already initialized MCP caller.
func NewClient(caller Caller, opts ...Option) *Client {
	c := &Client{caller: caller, timeout: defaultCallTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect starts an MCP server as a child process over stdio, performs the
// initialize handshake, and returns a Client for it.
func Connect(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	mcpClient, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start mcp server %s: %w", command, err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to start mcp transport: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "factotum", Version: "1.0.0"}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("mcp initialize failed: %w", err)
	}

	c := NewClient(mcpClient, opts...)
	c.closer = mcpClient.Close
	return c, nil
}

// Close shuts down the underlying transport, if this client owns one.
func (c *Client) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

// Specs lists the server's tools as registry specs.
func (c *Client) Specs(ctx context.Context) ([]tools.Spec, error) {
	result, err := c.caller.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list mcp tools: %w", err)
	}

	specs := make([]tools.Spec, 0, len(result.Tools))
	for _, tool := range result.Tools {
		specs = append(specs, c.spec(tool))
	}
	return specs, nil
}

// RegisterAll lists the server's tools and registers each one.
func (c *Client) RegisterAll(ctx context.Context, registry *tools.Registry) error {
	specs, err := c.Specs(ctx)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := registry.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) spec(tool mcp.Tool) tools.Spec {
	return tools.Spec{
		Name:        tool.Name,
		Description: tool.Description,
		Func: func(ctx context.Context, input string) string {
			ctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			req := mcp.CallToolRequest{}
			req.Params.Name = tool.Name
			req.Params.Arguments = normalizeArgs(tool, input)

			result, err := c.caller.CallTool(ctx, req)
			if err != nil {
				return fmt.Sprintf("Error: tool %s failed: %v", tool.Name, err)
			}
			return resultText(tool.Name, result)
		},
	}
}

// normalizeArgs maps the loop's single string input onto the tool's input
// schema: JSON objects pass through, and a bare string binds to the schema's
// only required property when there is exactly one.
func normalizeArgs(tool mcp.Tool, input string) map[string]interface{} {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return map[string]interface{}{}
	}

	if strings.HasPrefix(trimmed, "{") {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}

	if len(tool.InputSchema.Required) == 1 {
		return map[string]interface{}{tool.InputSchema.Required[0]: trimmed}
	}
	return map[string]interface{}{"input": trimmed}
}

func resultText(name string, result *mcp.CallToolResult) string {
	if result == nil {
		return fmt.Sprintf("Error: tool %s returned no result", name)
	}

	text := extractText(result.Content)
	if result.IsError {
		if text == "" {
			text = "unknown error"
		}
		return fmt.Sprintf("Error: tool %s failed: %s", name, text)
	}
	if text != "" {
		return text
	}
	if result.StructuredContent != nil {
		if encoded, err := json.Marshal(result.StructuredContent); err == nil {
			return string(encoded)
		}
	}
	return fmt.Sprintf("Tool %s produced no output", name)
}

func extractText(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
