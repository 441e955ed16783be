// Package qdrant implements vectorstore.Store against the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"medrag/internal/errdefs"
	"medrag/internal/model"
	"medrag/internal/vectorstore"
)

// Store is a minimal REST client to Qdrant. It assumes cosine distance
// and creates the collection on Init if missing.
//
// Qdrant only accepts unsigned integers or UUIDs as point IDs, so each
// point gets a UUID derived from its chunk ID and the chunk ID itself
// lives in the payload.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errdefs.Config("vector_store.qdrant.url", "must not be empty")
	}
	if cfg.Collection == "" {
		return nil, errdefs.Config("vector_store.qdrant.collection", "must not be empty")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// pointID maps a chunk ID onto a stable UUID acceptable to Qdrant.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (s *Store) Init(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return errdefs.Config("embedding.dimensions", "must be positive, got %d", dimensions)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 409 when the collection already exists; that is fine.
	err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil, http.StatusConflict)
	if err != nil {
		return err
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, passages []model.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("qdrant: %d passages but %d vectors", len(passages), len(vectors))
	}
	if len(passages) == 0 {
		return nil
	}
	points := make([]map[string]any, len(passages))
	for i, p := range passages {
		payload := map[string]any{
			"chunk_id":        p.ChunkID,
			"document_id":     p.DocumentID,
			"source_document": p.SourceDocument,
			"text":            p.Text,
			"page_number":     p.PageNumber,
			"chunk_index":     p.ChunkIndex,
			"extraction_type": string(p.ExtractionType),
		}
		if p.BBox != nil {
			payload["bbox"] = p.BBox[:]
		}
		points[i] = map[string]any{
			"id":      pointID(p.ChunkID),
			"vector":  vectors[i],
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body, nil)
}

func (s *Store) Search(ctx context.Context, vector []float32, k int, documentScope []string) ([]vectorstore.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if len(documentScope) > 0 {
		body["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_id",
					"match": map[string]any{"any": documentScope},
				},
			},
		}
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body, &resp)
	if err != nil {
		return nil, err
	}
	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		p, err := decodePayload(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("qdrant: decode payload: %w", err)
		}
		hits = append(hits, vectorstore.Hit{
			ChunkID:    p.ChunkID,
			Similarity: r.Score,
			Passage:    p,
		})
	}
	return hits, nil
}

func (s *Store) Delete(ctx context.Context, chunkID string) error {
	return s.deleteByFilter(ctx, "chunk_id", chunkID)
}

func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	return s.deleteByFilter(ctx, "document_id", documentID)
}

func (s *Store) deleteByFilter(ctx context.Context, key, value string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   key,
					"match": map[string]any{"value": value},
				},
			},
		},
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), body, nil)
}

type payload struct {
	ChunkID        string    `json:"chunk_id"`
	DocumentID     string    `json:"document_id"`
	SourceDocument string    `json:"source_document"`
	Text           string    `json:"text"`
	PageNumber     int       `json:"page_number"`
	ChunkIndex     int       `json:"chunk_index"`
	ExtractionType string    `json:"extraction_type"`
	BBox           []float64 `json:"bbox"`
}

func decodePayload(raw json.RawMessage) (model.Passage, error) {
	var pl payload
	if err := json.Unmarshal(raw, &pl); err != nil {
		return model.Passage{}, err
	}
	p := model.Passage{
		ChunkID:        pl.ChunkID,
		DocumentID:     pl.DocumentID,
		SourceDocument: pl.SourceDocument,
		Text:           pl.Text,
		PageNumber:     pl.PageNumber,
		ChunkIndex:     pl.ChunkIndex,
		ExtractionType: model.ExtractionType(pl.ExtractionType),
	}
	if len(pl.BBox) == 4 {
		var box model.BBox
		copy(box[:], pl.BBox)
		p.BBox = &box
	}
	return p, nil
}

// do sends a JSON request and decodes the response into out when non-nil.
// Network failures and unexpected statuses come back as transient errors
// so callers can retry. Statuses in okStatuses are accepted alongside 2xx.
func (s *Store) do(ctx context.Context, method, path string, body, out any, okStatuses ...int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("qdrant: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return errdefs.Transient("qdrant "+method+" "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && !statusAllowed(resp.StatusCode, okStatuses) {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errdefs.Transient("qdrant "+method+" "+path, fmt.Errorf("status %s: %s", resp.Status, msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errdefs.Transient("qdrant "+method+" "+path, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func statusAllowed(code int, allowed []int) bool {
	for _, a := range allowed {
		if code == a {
			return true
		}
	}
	return false
}
