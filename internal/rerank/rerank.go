// Package rerank scores query/passage pairs with a cross-encoder service.
package rerank

import (
	"context"
	"fmt"
)

// CrossEncoder produces relevance scores for a query against candidate
// passages. Higher scores mean stronger relevance; the scale depends on
// the model and is only meaningful for ordering within one call.
type CrossEncoder interface {
	// ScorePairs returns one score per document, index-aligned with the
	// input slice.
	ScorePairs(ctx context.Context, query string, documents []string) ([]float64, error)

	// ModelName reports the cross-encoder model in use.
	ModelName() string
}

// Score rates a single query/passage pair. Callers scoring many passages
// should use ScorePairs directly to batch the work.
func Score(ctx context.Context, enc CrossEncoder, query, passage string) (float64, error) {
	scores, err := enc.ScorePairs(ctx, query, []string{passage})
	if err != nil {
		return 0, err
	}
	if len(scores) != 1 {
		return 0, fmt.Errorf("rerank: expected one score, got %d", len(scores))
	}
	return scores[0], nil
}
