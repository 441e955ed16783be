// Package retrieve finds the passages most relevant to a query.
//
// Retrieval runs in two stages: an over-fetched similarity search against
// the vector store, then a cross-encoder rerank of those candidates. The
// rerank stage is optional; without it, or when the cross-encoder is down,
// ordering falls back to raw similarity.
package retrieve

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"medrag/internal/embedding"
	"medrag/internal/model"
	"medrag/internal/rerank"
	"medrag/internal/retry"
	"medrag/internal/vectorstore"
)

type Config struct {
	TopK                int
	SimilarityThreshold float64
	OverfetchFactor     int
	RetryAttempts       int
	RetryBackoff        time.Duration
}

// Options narrow a single retrieval call. Zero values defer to the
// retriever's configuration.
type Options struct {
	TopK                int
	SimilarityThreshold float64
	// DocumentScope restricts the search to these document IDs.
	// Empty means all ingested documents.
	DocumentScope []string
}

type Retriever struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	encoder  rerank.CrossEncoder // nil disables reranking
	cfg      Config
}

func New(embedder embedding.Embedder, store vectorstore.Store, encoder rerank.CrossEncoder, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.OverfetchFactor < 1 {
		cfg.OverfetchFactor = 4
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Retriever{embedder: embedder, store: store, encoder: encoder, cfg: cfg}
}

// Retrieve embeds the query, over-fetches similar chunks, filters them by
// the similarity threshold, reranks the survivors, and returns the top-k
// in final order. An empty result is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]model.RetrievedCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("retrieve: empty query")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = r.cfg.SimilarityThreshold
	}

	var queryVec []float32
	err := retry.Do(ctx, r.cfg.RetryAttempts, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		queryVec, err = r.embedder.Embed(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}

	var hits []vectorstore.Hit
	err = retry.Do(ctx, r.cfg.RetryAttempts, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		hits, err = r.store.Search(ctx, queryVec, topK*r.cfg.OverfetchFactor, opts.DocumentScope)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: search: %w", err)
	}

	candidates := make([]model.RetrievedCandidate, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < threshold {
			continue
		}
		candidates = append(candidates, model.RetrievedCandidate{
			ChunkID:         h.ChunkID,
			SimilarityScore: h.Similarity,
			RerankScore:     h.Similarity,
			Passage:         h.Passage,
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	r.rerankCandidates(ctx, query, candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RerankScore != candidates[j].RerankScore {
			return candidates[i].RerankScore > candidates[j].RerankScore
		}
		if candidates[i].SimilarityScore != candidates[j].SimilarityScore {
			return candidates[i].SimilarityScore > candidates[j].SimilarityScore
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// rerankCandidates overwrites RerankScore in place with cross-encoder
// scores. On failure the similarity scores already seeded into
// RerankScore stand, so ordering degrades to similarity only.
func (r *Retriever) rerankCandidates(ctx context.Context, query string, candidates []model.RetrievedCandidate) {
	if r.encoder == nil {
		return
	}
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Passage.Text
	}
	scores, err := r.encoder.ScorePairs(ctx, query, docs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cross-encoder unavailable, falling back to similarity ordering: %v\n", err)
		return
	}
	for i := range candidates {
		candidates[i].RerankScore = scores[i]
	}
}
