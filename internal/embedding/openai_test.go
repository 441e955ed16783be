package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medrag/internal/cache"
	"medrag/internal/config"
	"medrag/internal/errdefs"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func embeddingsServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string  `json:"object"`
			Data   []datum `json:"data"`
			Model  string  `json:"model"`
		}{Object: "list", Model: req.Model}

		for i, text := range req.Input {
			// Deterministic vector derived from the text length
			resp.Data = append(resp.Data, datum{
				Object:    "embedding",
				Embedding: []float32{float32(len(text)), 1, 0},
				Index:     i,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(t *testing.T, baseURL string, store cache.Cache) *OpenAIEmbedder {
	t.Helper()
	e, err := NewOpenAI(config.EmbeddingConfig{
		Model:             "test-model",
		APIKey:            "test-key",
		BaseURL:           baseURL,
		Dimensions:        3,
		RequestsPerSecond: 1000,
		Burst:             1000,
		TimeoutSecs:       5,
	}, store)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNewOpenAI_RequiresKeyOrBaseURL(t *testing.T) {
	_, err := NewOpenAI(config.EmbeddingConfig{Model: "m"}, nil)
	if err == nil {
		t.Fatal("expected config error without API key or base URL")
	}
	if !errdefs.IsConfig(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	calls := 0
	server := embeddingsServer(t, &calls)
	defer server.Close()

	e := newTestEmbedder(t, server.URL, nil)
	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "bbb", "cc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, wantLen := range []float32{1, 3, 2} {
		if vectors[i][0] != wantLen {
			t.Errorf("vector %d: expected first component %g, got %g", i, wantLen, vectors[i][0])
		}
	}
}

func TestEmbed_ServesFromCache(t *testing.T) {
	calls := 0
	server := embeddingsServer(t, &calls)
	defer server.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	e := newTestEmbedder(t, server.URL, store)

	first, err := e.Embed(context.Background(), "diagnosis")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(context.Background(), "diagnosis")
	if err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("expected 1 API call, got %d", calls)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Error("cached vector differs from the original")
	}
}

func TestEmbedBatch_MixedCacheHits(t *testing.T) {
	calls := 0
	server := embeddingsServer(t, &calls)
	defer server.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	e := newTestEmbedder(t, server.URL, store)

	if _, err := e.Embed(context.Background(), "cached text"); err != nil {
		t.Fatal(err)
	}

	vectors, err := e.EmbedBatch(context.Background(), []string{"fresh", "cached text"})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected 2 API calls total, got %d", calls)
	}
	if vectors[1][0] != float32(len("cached text")) {
		t.Error("cached entry not mapped back to its position")
	}
}

func TestEmbed_ClassifiesFailureAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := newTestEmbedder(t, server.URL, nil)
	_, err := e.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error from failing endpoint")
	}
	if !errdefs.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched length", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected %g, got %g", tt.want, got)
			}
		})
	}
}
