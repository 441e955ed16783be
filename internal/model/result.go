package model

import "time"

// SourceRef describes one retained candidate in a query result
type SourceRef struct {
	Document        string  `json:"document"`
	PageNumber      int     `json:"page_number"`
	ChunkID         string  `json:"chunk_id"`
	SimilarityScore float64 `json:"similarity_score"`
	RerankScore     float64 `json:"rerank_score"`
}

// QueryResult is the structured answer bundle returned to the caller
type QueryResult struct {
	Query        string              `json:"query"`
	Answer       string              `json:"answer"`
	PageNumbers  []int               `json:"page_numbers"` // deduplicated, ascending, derived from evidence
	Evidence     []SourceEvidence    `json:"evidence"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Sources      []SourceRef         `json:"sources"`
	NoGrounding  bool                `json:"no_grounding"` // true when retrieval produced no candidates
	Moderation   *ModerationOutcome  `json:"moderation,omitempty"`
	Model        string              `json:"model,omitempty"`
	TokensUsed   int                 `json:"tokens_used"`
	Timestamp    time.Time           `json:"timestamp"`
}

// ModerationOutcome records a safety refusal. Present only when the query
// or the generated answer was flagged.
type ModerationOutcome struct {
	Stage      string   `json:"stage"` // "input" or "output"
	Categories []string `json:"categories,omitempty"`
}

// IngestResult summarizes one ingested document
type IngestResult struct {
	DocumentID string    `json:"document_id"`
	Document   string    `json:"document"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"total_chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}
