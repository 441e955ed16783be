package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"medrag/internal/cache"
	"medrag/internal/config"
	"medrag/internal/errdefs"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Vectors
// are cached by (model, text) and requests are rate limited client-side.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	dims    int
	cache   cache.Cache // nil disables caching
	limiter *rate.Limiter
	timeout time.Duration
}

// NewOpenAI creates an embedder from configuration. The cache may be nil.
func NewOpenAI(cfg config.EmbeddingConfig, store cache.Cache) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errdefs.Config("embedding.api_key", "API key is required (or set embedding.base_url for a local endpoint)")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		dims:    cfg.Dimensions,
		cache:   store,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		timeout: timeout,
	}, nil
}

// ModelName returns the embedding model identifier
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Dimensions returns the configured vector length
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// Ping verifies the endpoint is reachable
func (e *OpenAIEmbedder) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if _, err := e.client.ListModels(ctx); err != nil {
		return errdefs.Transient("embedding ping", err)
	}
	return nil
}

// Embed generates a vector for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for multiple texts, serving cached entries
// and requesting only the misses in a single API call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if v, ok := e.cached(text); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, errdefs.Transient("embed", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Input: missing,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, errdefs.Transient("embed", err)
	}
	if len(resp.Data) != len(missing) {
		return nil, errdefs.Transient("embed", fmt.Errorf("expected %d embeddings, got %d", len(missing), len(resp.Data)))
	}

	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(missing) {
			return nil, errdefs.Transient("embed", fmt.Errorf("embedding index %d out of range", item.Index))
		}
		idx := missingIdx[item.Index]
		vectors[idx] = item.Embedding
		e.store(texts[idx], item.Embedding)
	}

	for i, v := range vectors {
		if v == nil {
			return nil, errdefs.Transient("embed", fmt.Errorf("no embedding returned for input %d", i))
		}
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) cached(text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, found := e.cache.Get(cache.Key(e.model, text))
	if !found {
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (e *OpenAIEmbedder) store(text string, vector []float32) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	_ = e.cache.Set(cache.Key(e.model, text), data, 0)
}
