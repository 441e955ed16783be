// Package memory provides an in-process vector store for tests and small
// corpora. Similarity is raw cosine in [-1, 1].
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"medrag/internal/embedding"
	"medrag/internal/model"
	"medrag/internal/vectorstore"
)

type entry struct {
	passage model.Passage
	vector  []float32
}

// Store keeps vectors in a map guarded by a RWMutex. Reads during
// concurrent ingestion observe only fully upserted documents because
// Upsert holds the write lock for the whole batch.
type Store struct {
	mu         sync.RWMutex
	dimensions int
	entries    map[string]entry
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Init records the expected vector length
func (s *Store) Init(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid dimensions %d", dimensions)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimensions = dimensions
	return nil
}

// Upsert stores all passages atomically
func (s *Store) Upsert(ctx context.Context, passages []model.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages and vectors length mismatch: %d != %d", len(passages), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range passages {
		if s.dimensions > 0 && len(vectors[i]) != s.dimensions {
			return fmt.Errorf("vector for %s has %d dimensions, expected %d", p.ChunkID, len(vectors[i]), s.dimensions)
		}
		s.entries[p.ChunkID] = entry{passage: p, vector: vectors[i]}
	}
	return nil
}

// Search scans all entries and returns the top k by cosine similarity
func (s *Store) Search(ctx context.Context, vector []float32, k int, documentScope []string) ([]vectorstore.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be > 0, got %d", k)
	}

	scope := make(map[string]bool, len(documentScope))
	for _, id := range documentScope {
		scope[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]vectorstore.Hit, 0, len(s.entries))
	for _, e := range s.entries {
		if len(scope) > 0 && !scope[e.passage.DocumentID] {
			continue
		}
		hits = append(hits, vectorstore.Hit{
			ChunkID:    e.passage.ChunkID,
			Similarity: embedding.Cosine(vector, e.vector),
			Passage:    e.passage,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes a single chunk
func (s *Store) Delete(ctx context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chunkID)
	return nil
}

// DeleteDocument removes every chunk owned by the document
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.passage.DocumentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

// Len reports the number of stored chunks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
