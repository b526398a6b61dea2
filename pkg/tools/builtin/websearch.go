// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/factotum-ai/factotum/pkg/tools"
)

const serpAPIEndpoint = "https://serpapi.com/search"

// WebSearchOption customizes the web search tool.
type WebSearchOption func(*webSearch)

// WithSearchClient overrides the HTTP client, mainly for tests.
func WithSearchClient(client *http.Client) WebSearchOption {
	return func(w *webSearch) { w.client = client }
}

// WithSearchEndpoint overrides the SerpAPI endpoint, mainly for tests.
func WithSearchEndpoint(endpoint string) WebSearchOption {
	return func(w *webSearch) { w.endpoint = endpoint }
}

type webSearch struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type searchResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// WebSearch returns a tool that queries SerpAPI for current information.
// The tool degrades to an error observation when the key is missing or the
// request fails; it never blocks the reasoning loop.
func WebSearch(apiKey string, opts ...WebSearchOption) tools.Spec {
	w := &webSearch{
		apiKey:   apiKey,
		endpoint: serpAPIEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}

	return tools.Spec{
		Name:        "WebSearch",
		Description: "Search the internet for current information. Use this when you need up-to-date information or facts not in your knowledge base.",
		Func:        w.search,
	}
}

func (w *webSearch) search(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Error searching web: empty query"
	}
	if w.apiKey == "" {
		return "Error searching web: SERPAPI_API_KEY is not configured"
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", w.apiKey)
	params.Set("engine", "google")
	params.Set("num", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Sprintf("Error searching web: %v", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Error searching web: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Error searching web: search api returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Sprintf("Error searching web: %v", err)
	}
	if len(result.OrganicResults) == 0 {
		return "No search results found."
	}

	top := result.OrganicResults
	if len(top) > 3 {
		top = top[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for '%s':\n\n", query)
	for _, r := range top {
		fmt.Fprintf(&b, "Title: %s\nSummary: %s\nURL: %s\n\n", r.Title, r.Snippet, r.Link)
	}
	return strings.TrimRight(b.String(), "\n")
}
