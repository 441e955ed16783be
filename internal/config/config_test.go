package config

import (
	"testing"

	"medrag/internal/errdefs"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidate_RejectsBadChunking(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -10, 0},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"negative overlap", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Chunking.Size = tt.size
			cfg.Chunking.Overlap = tt.overlap

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errdefs.IsConfig(err) {
				t.Errorf("expected ConfigError, got %T", err)
			}
		})
	}
}

func TestValidate_RejectsBadWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Verify.Weights = Weights{Grounding: 0.5, Consistency: 0.5, Relevance: 0.5, Domain: 0.5}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for weights not summing to 1")
	}

	cfg = DefaultConfig()
	cfg.Verify.Weights = Weights{Grounding: 1.4, Consistency: -0.4, Relevance: 0, Domain: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestValidate_RejectsUnknownStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VectorStore.Type = "chroma"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown vector store type")
	}
}

func TestValidate_RejectsBadThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Verify.ConfidenceThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for confidence threshold out of range")
	}

	cfg = DefaultConfig()
	cfg.Retrieval.TopK = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for top_k = 0")
	}
}
