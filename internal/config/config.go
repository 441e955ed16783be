// Package config holds the immutable application configuration. It is
// built once at startup (defaults, then config file, then MEDRAG_*
// environment variables, then flags) and passed explicitly to component
// constructors. Core logic never reads configuration ambiently.
package config

import (
	"math"
	"os"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"medrag/internal/errdefs"
)

// Config is the root application configuration
type Config struct {
	Chunking    ChunkingConfig    `mapstructure:"chunking" yaml:"chunking"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval" yaml:"retrieval"`
	Verify      VerifyConfig      `mapstructure:"verify" yaml:"verify"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store" yaml:"vector_store"`
	Rerank      RerankConfig      `mapstructure:"rerank" yaml:"rerank"`
	LLM         LLMConfig         `mapstructure:"llm" yaml:"llm"`
	Moderation  ModerationConfig  `mapstructure:"moderation" yaml:"moderation"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Session     SessionConfig     `mapstructure:"session" yaml:"session"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Retry       RetryConfig       `mapstructure:"retry" yaml:"retry"`
}

// ChunkingConfig controls how page text is split into passages
type ChunkingConfig struct {
	Size    int `mapstructure:"size" yaml:"size"`       // characters per chunk
	Overlap int `mapstructure:"overlap" yaml:"overlap"` // overlapping characters between consecutive chunks
}

// RetrievalConfig controls similarity search and reranking
type RetrievalConfig struct {
	TopK                int     `mapstructure:"top_k" yaml:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	OverfetchFactor     int     `mapstructure:"overfetch_factor" yaml:"overfetch_factor"` // raw candidates requested = top_k * factor
}

// Weights are the sub-score weights for the combined confidence score.
// They must be non-negative and sum to 1.
type Weights struct {
	Grounding   float64 `mapstructure:"grounding" yaml:"grounding"`
	Consistency float64 `mapstructure:"consistency" yaml:"consistency"`
	Relevance   float64 `mapstructure:"relevance" yaml:"relevance"`
	Domain      float64 `mapstructure:"domain" yaml:"domain"`
}

// VerifyConfig controls answer verification
type VerifyConfig struct {
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	MatchThreshold      float64  `mapstructure:"match_threshold" yaml:"match_threshold"` // token containment needed to count a sentence as supported
	Weights             Weights  `mapstructure:"weights" yaml:"weights"`
	DomainName          string   `mapstructure:"domain_name" yaml:"domain_name"`
	DomainTerms         []string `mapstructure:"domain_terms" yaml:"domain_terms"`
	DomainMinHits       int      `mapstructure:"domain_min_hits" yaml:"domain_min_hits"` // distinct domain terms for a full domain score
}

// EmbeddingConfig selects and configures the embedding backend. The same
// model must be used at indexing time and query time.
type EmbeddingConfig struct {
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"-"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	Dimensions        int     `mapstructure:"dimensions" yaml:"dimensions"`
	BatchSize         int     `mapstructure:"batch_size" yaml:"batch_size"`
	TimeoutSecs       int     `mapstructure:"timeout_secs" yaml:"timeout_secs"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// VectorStoreConfig selects the vector store backend
type VectorStoreConfig struct {
	Type   string       `mapstructure:"type" yaml:"type"` // "qdrant" or "memory"
	Qdrant QdrantConfig `mapstructure:"qdrant" yaml:"qdrant"`
}

// QdrantConfig holds connection details for a Qdrant vector store
type QdrantConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	APIKey      string `mapstructure:"api_key" yaml:"-"`
	Collection  string `mapstructure:"collection" yaml:"collection"`
	TimeoutSecs int    `mapstructure:"timeout_secs" yaml:"timeout_secs"`
}

// RerankConfig configures the cross-encoder scoring service. An empty URL
// disables reranking and retrieval orders by similarity alone.
type RerankConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Model       string `mapstructure:"model" yaml:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs" yaml:"timeout_secs"`
}

// LLMConfig configures the answer generation provider
type LLMConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"` // "openai" or "ollama"
	Model       string  `mapstructure:"model" yaml:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"-"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSecs int     `mapstructure:"timeout_secs" yaml:"timeout_secs"`

	// RequestsPerSecond throttles outbound completion calls to stay
	// inside provider quotas. Zero uses the default.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// ModerationConfig controls pre/post safety screening
type ModerationConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey  string `mapstructure:"api_key" yaml:"-"`
}

// CacheConfig controls the layered embedding cache
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir       string `mapstructure:"dir" yaml:"dir"`
	MemoryTTL int    `mapstructure:"memory_ttl_secs" yaml:"memory_ttl_secs"`
	DiskTTL   int    `mapstructure:"disk_ttl_secs" yaml:"disk_ttl_secs"`
}

// SessionConfig controls chat memory
type SessionConfig struct {
	TTLSecs         int `mapstructure:"ttl_secs" yaml:"ttl_secs"`
	ContextMessages int `mapstructure:"context_messages" yaml:"context_messages"` // previous messages included in the LLM prompt
}

// ConcurrencyConfig controls batch ingestion parallelism
type ConcurrencyConfig struct {
	IngestWorkers int `mapstructure:"ingest_workers" yaml:"ingest_workers"`
}

// RetryConfig controls backoff for transient dependency failures
type RetryConfig struct {
	Attempts    int `mapstructure:"attempts" yaml:"attempts"`
	BackoffSecs int `mapstructure:"backoff_secs" yaml:"backoff_secs"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 100,
		},
		Retrieval: RetrievalConfig{
			TopK:                5,
			SimilarityThreshold: 0.5,
			OverfetchFactor:     4,
		},
		Verify: VerifyConfig{
			ConfidenceThreshold: 0.7,
			MatchThreshold:      0.55,
			Weights: Weights{
				Grounding:   0.4,
				Consistency: 0.2,
				Relevance:   0.2,
				Domain:      0.2,
			},
			DomainName: "medical",
			DomainTerms: []string{
				"diagnosis", "patient", "treatment", "symptom", "medication",
				"dose", "dosage", "lab", "blood", "test", "result", "clinical",
				"disease", "condition", "therapy", "prescription", "diabetes",
				"pressure", "heart", "chronic", "acute", "exam", "history",
			},
			DomainMinHits: 2,
		},
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			Dimensions:        1536,
			BatchSize:         64,
			TimeoutSecs:       30,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		VectorStore: VectorStoreConfig{
			Type: "qdrant",
			Qdrant: QdrantConfig{
				URL:         "http://localhost:6333",
				Collection:  "medrag_chunks",
				TimeoutSecs: 15,
			},
		},
		Rerank: RerankConfig{
			Model:       "cross-encoder/mmarco-MiniLMv2-L12-H384-v1",
			TimeoutSecs: 20,
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			Temperature:       0.1,
			MaxTokens:         2000,
			TimeoutSecs:       30,
			RequestsPerSecond: 1,
		},
		Moderation: ModerationConfig{
			Enabled: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 3600,
			DiskTTL:   7 * 24 * 3600,
		},
		Session: SessionConfig{
			TTLSecs:         1800,
			ContextMessages: 4,
		},
		Concurrency: ConcurrencyConfig{
			IngestWorkers: runtime.NumCPU(),
		},
		Retry: RetryConfig{
			Attempts:    3,
			BackoffSecs: 1,
		},
	}
}

// Load builds the configuration from defaults overlaid with whatever the
// viper instance has read (config file, environment, bound flags). API
// keys fall back to the conventional environment variables.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errdefs.Config("config", "unmarshal: %v", err)
	}

	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Moderation.APIKey == "" {
		cfg.Moderation.APIKey = cfg.LLM.APIKey
	}
	if cfg.Cache.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Cache.Dir = home + "/.medrag/cache"
		} else {
			cfg.Cache.Dir = ".medrag-cache"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects invalid parameter combinations before any processing
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return errdefs.Config("chunking.size", "must be > 0, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return errdefs.Config("chunking.overlap", "must satisfy 0 <= overlap < size, got %d (size %d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Retrieval.TopK <= 0 {
		return errdefs.Config("retrieval.top_k", "must be > 0, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.OverfetchFactor < 1 {
		return errdefs.Config("retrieval.overfetch_factor", "must be >= 1, got %d", c.Retrieval.OverfetchFactor)
	}
	if c.Verify.ConfidenceThreshold < 0 || c.Verify.ConfidenceThreshold > 1 {
		return errdefs.Config("verify.confidence_threshold", "must be in [0, 1], got %g", c.Verify.ConfidenceThreshold)
	}
	if c.Verify.MatchThreshold < 0 || c.Verify.MatchThreshold > 1 {
		return errdefs.Config("verify.match_threshold", "must be in [0, 1], got %g", c.Verify.MatchThreshold)
	}

	w := c.Verify.Weights
	for name, value := range map[string]float64{
		"grounding":   w.Grounding,
		"consistency": w.Consistency,
		"relevance":   w.Relevance,
		"domain":      w.Domain,
	} {
		if value < 0 {
			return errdefs.Config("verify.weights."+name, "must be non-negative, got %g", value)
		}
	}
	sum := w.Grounding + w.Consistency + w.Relevance + w.Domain
	if math.Abs(sum-1.0) > 1e-6 {
		return errdefs.Config("verify.weights", "must sum to 1, got %g", sum)
	}

	if c.Embedding.Dimensions <= 0 {
		return errdefs.Config("embedding.dimensions", "must be > 0, got %d", c.Embedding.Dimensions)
	}
	switch c.VectorStore.Type {
	case "qdrant", "memory":
	default:
		return errdefs.Config("vector_store.type", "unknown backend %q (supported: qdrant, memory)", c.VectorStore.Type)
	}
	return nil
}

// RetryBackoff returns the base backoff as a duration
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Retry.BackoffSecs) * time.Second
}
