// Package vectorstore defines the similarity-search contract the
// retrieval pipeline consumes. Backends handle their own persistence and
// internal concurrency; the pipeline only requires read consistency (a
// query must observe only fully-ingested passages).
package vectorstore

import (
	"context"

	"medrag/internal/model"
)

// Hit is one similarity search result. The Similarity scale is backend
// specific and each adapter documents its own.
type Hit struct {
	ChunkID    string
	Similarity float64
	Passage    model.Passage
}

// Store persists passage vectors and answers nearest-neighbour queries
type Store interface {
	// Init prepares the backend for vectors of the given length
	Init(ctx context.Context, dimensions int) error

	// Upsert stores passages with their vectors, keyed by chunk ID
	Upsert(ctx context.Context, passages []model.Passage, vectors [][]float32) error

	// Search returns the k nearest passages, optionally restricted to
	// the given document IDs. Results are ordered by descending
	// similarity.
	Search(ctx context.Context, vector []float32, k int, documentScope []string) ([]Hit, error)

	// Delete removes a single chunk
	Delete(ctx context.Context, chunkID string) error

	// DeleteDocument removes every chunk of a document
	DeleteDocument(ctx context.Context, documentID string) error
}
