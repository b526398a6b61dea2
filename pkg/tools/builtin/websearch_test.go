// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebSearch_FormatsResults(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("missing api key in request")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic_results": [
			{"title": "Go", "snippet": "The Go programming language", "link": "https://go.dev"},
			{"title": "Go docs", "snippet": "Documentation", "link": "https://go.dev/doc"},
			{"title": "Go blog", "snippet": "Blog", "link": "https://go.dev/blog"},
			{"title": "Fourth", "snippet": "Should be dropped", "link": "https://example.com"}
		]}`))
	}))
	defer server.Close()

	search := WebSearch("test-key", WithSearchEndpoint(server.URL), WithSearchClient(server.Client()))
	got := search.Func(context.Background(), "golang")

	if gotQuery != "golang" {
		t.Errorf("server received query %q, want golang", gotQuery)
	}
	if !strings.HasPrefix(got, "Web search results for 'golang':") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "Title: Go\nSummary: The Go programming language\nURL: https://go.dev") {
		t.Errorf("missing first result: %q", got)
	}
	if strings.Contains(got, "Fourth") {
		t.Error("expected only the top 3 results")
	}
}

func TestWebSearch_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	search := WebSearch("test-key", WithSearchEndpoint(server.URL), WithSearchClient(server.Client()))
	if got := search.Func(context.Background(), "obscure"); got != "No search results found." {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestWebSearch_Failures(t *testing.T) {
	ctx := context.Background()

	noKey := WebSearch("")
	if got := noKey.Func(ctx, "anything"); !strings.Contains(got, "SERPAPI_API_KEY") {
		t.Errorf("expected missing key message, got %q", got)
	}

	if got := noKey.Func(ctx, "  "); got != "Error searching web: empty query" {
		t.Errorf("unexpected output for empty query: %q", got)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	search := WebSearch("test-key", WithSearchEndpoint(server.URL), WithSearchClient(server.Client()))
	if got := search.Func(ctx, "golang"); !strings.Contains(got, "status 429") {
		t.Errorf("expected status error, got %q", got)
	}
}
