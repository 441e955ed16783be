// Package embedding turns text into fixed-length vectors. The same model
// and version must be used at indexing time and query time or similarity
// scores are meaningless; the model name is therefore part of the cache
// key and is recorded alongside the vector store collection.
package embedding

import (
	"context"
	"math"
)

// Embedder converts text into a fixed-length numeric vector.
// Implementations must be deterministic for identical input.
type Embedder interface {
	// Embed generates a vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts in one call
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length produced by the model
	Dimensions() int

	// ModelName returns the embedding model identifier
	ModelName() string

	// Ping verifies the backing service is reachable
	Ping(ctx context.Context) error
}

// Cosine computes the cosine similarity of two vectors, in [-1, 1].
// Mismatched or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
