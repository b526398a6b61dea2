// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recaller stores completed exchanges in a vector store and retrieves the
// exchanges most related to a new message. It complements the bounded
// conversation window with long-term semantic recall: once a pair has been
// evicted from the window, recall is the only way it can reach the prompt
// again.
type Recaller struct {
	store      VectorStore
	embedder   Embedder
	collection string
	threshold  float32
}

// NewRecaller creates a Recaller over the given store and embedder. The
// collection is created if missing, sized from a probe embedding.
func NewRecaller(ctx context.Context, store VectorStore, embedder Embedder, collection string) (*Recaller, error) {
	if store == nil || embedder == nil {
		return nil, fmt.Errorf("vector store and embedder are required")
	}
	if collection == "" {
		collection = "factotum_exchanges"
	}

	probe, err := embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return nil, fmt.Errorf("failed to probe embedding dimension: %w", err)
	}
	if err := store.CreateCollection(ctx, collection, uint64(len(probe))); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return &Recaller{
		store:      store,
		embedder:   embedder,
		collection: collection,
		threshold:  0.6,
	}, nil
}

// Remember stores one completed user/assistant exchange.
func (r *Recaller) Remember(ctx context.Context, userText, assistantText string) error {
	text := "User: " + userText + "\nAssistant: " + assistantText
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed exchange: %w", err)
	}

	point := Point{
		ID:     uuid.NewString(),
		Vector: vector,
		Payload: map[string]interface{}{
			"text": text,
		},
		Timestamp: time.Now().Unix(),
	}
	return r.store.Upsert(ctx, r.collection, []Point{point})
}

// Recall returns the texts of up to limit past exchanges related to query.
func (r *Recaller) Recall(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, r.collection, vector, limit, r.threshold)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(results))
	for _, res := range results {
		if text, ok := res.Point.Payload["text"].(string); ok && text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}
