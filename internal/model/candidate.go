package model

// RetrievedCandidate is a passage selected for a query, carrying both the
// vector-store similarity score and the cross-encoder rerank score.
// Candidates are constructed fresh per query and never persisted.
//
// SimilarityScore scale is backend specific: the Qdrant adapter reports
// cosine similarity in [-1, 1], the in-memory store reports raw cosine in
// [-1, 1]. RerankScore is the cross-encoder output and is not normalized.
type RetrievedCandidate struct {
	ChunkID         string  `json:"chunk_id"`
	SimilarityScore float64 `json:"similarity_score"`
	RerankScore     float64 `json:"rerank_score"`
	Passage         Passage `json:"metadata"` // copy of the owning passage's metadata
}
