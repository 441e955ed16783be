package pipeline

import (
	"context"
	"fmt"
	"time"

	"medrag/internal/cache"
	"medrag/internal/chunker"
	"medrag/internal/config"
	"medrag/internal/embedding"
	"medrag/internal/errdefs"
	"medrag/internal/ingest"
	"medrag/internal/llm"
	"medrag/internal/moderation"
	"medrag/internal/rerank"
	"medrag/internal/retrieve"
	"medrag/internal/session"
	"medrag/internal/vectorstore"
	"medrag/internal/vectorstore/memory"
	"medrag/internal/vectorstore/qdrant"
	"medrag/internal/verify"
)

// System bundles the wired query pipeline with its write path so the CLI
// can drive both from one construction.
type System struct {
	*Pipeline
	Ingester *ingest.Ingester
	Store    vectorstore.Store
	Sessions *session.Manager
}

// New constructs a fully wired system from configuration. All
// configuration problems surface here, before any document or query is
// touched.
func New(ctx context.Context, cfg config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var embedCache cache.Cache
	if cfg.Cache.Enabled {
		embedCache = cache.NewLayeredCache(
			time.Duration(cfg.Cache.MemoryTTL)*time.Second,
			cfg.Cache.Dir,
			time.Duration(cfg.Cache.DiskTTL)*time.Second,
		)
	}

	embedder, err := embedding.NewOpenAI(cfg.Embedding, embedCache)
	if err != nil {
		return nil, err
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx, cfg.Embedding.Dimensions); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	var encoder rerank.CrossEncoder
	if cfg.Rerank.URL != "" {
		encoder, err = rerank.NewHTTP(rerank.Config{
			BaseURL: cfg.Rerank.URL,
			Model:   cfg.Rerank.Model,
			Timeout: time.Duration(cfg.Rerank.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
	}

	retriever := retrieve.New(embedder, store, encoder, retrieve.Config{
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		OverfetchFactor:     cfg.Retrieval.OverfetchFactor,
		RetryAttempts:       cfg.Retry.Attempts,
		RetryBackoff:        cfg.RetryBackoff(),
	})

	verifier, err := verify.New(verify.Config{
		ConfidenceThreshold: cfg.Verify.ConfidenceThreshold,
		MatchThreshold:      cfg.Verify.MatchThreshold,
		GroundingWeight:     cfg.Verify.Weights.Grounding,
		ConsistencyWeight:   cfg.Verify.Weights.Consistency,
		RelevanceWeight:     cfg.Verify.Weights.Relevance,
		DomainWeight:        cfg.Verify.Weights.Domain,
		DomainName:          cfg.Verify.DomainName,
		DomainTerms:         cfg.Verify.DomainTerms,
		DomainMinHits:       cfg.Verify.DomainMinHits,
	}, embedder)
	if err != nil {
		return nil, err
	}

	generator, err := llm.NewProvider(llm.Config{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		Timeout:           cfg.LLM.TimeoutSecs,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	var moderator moderation.Moderator
	if cfg.Moderation.Enabled {
		moderator, err = moderation.NewOpenAI(cfg.Moderation.APIKey, "")
		if err != nil {
			return nil, err
		}
	}

	sessions := session.NewManager(
		time.Duration(cfg.Session.TTLSecs)*time.Second,
		cfg.Session.ContextMessages,
	)

	chk, err := chunker.New(chunker.Config{Size: cfg.Chunking.Size, Overlap: cfg.Chunking.Overlap})
	if err != nil {
		return nil, err
	}

	ingester := ingest.New(chk, embedder, store, ingest.Config{
		BatchSize:     cfg.Embedding.BatchSize,
		RetryAttempts: cfg.Retry.Attempts,
		RetryBackoff:  cfg.RetryBackoff(),
	})

	return &System{
		Pipeline: newPipeline(retriever, generator, verifier, moderator, sessions, cfg),
		Ingester: ingester,
		Store:    store,
		Sessions: sessions,
	}, nil
}

func newStore(cfg config.Config) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.New(), nil
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, errdefs.Config("vector_store.type", "unknown store %q", cfg.VectorStore.Type)
	}
}
