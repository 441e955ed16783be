package model

// SourceEvidence is one supporting quote for a verified answer. ExactChunk
// is always a verbatim substring of the source passage's text.
type SourceEvidence struct {
	PageNumber  int    `json:"page_number"`
	Document    string `json:"document,omitempty"`
	ChunkID     string `json:"chunk_id"`
	ExactChunk  string `json:"exact_chunk"`
	BBox        *BBox  `json:"bbox,omitempty"`
	Highlighted string `json:"highlighted"` // ExactChunk with matched spans marked, never altering the quote itself
}

// VerificationResult is the outcome of scoring an answer against its
// retrieved passages. All scores lie in [0, 1]. MeetsThreshold false is a
// normal, fully-formed result, not an error.
type VerificationResult struct {
	ConfidenceScore  float64          `json:"confidence_score"`
	GroundingScore   float64          `json:"grounding_score"`
	ConsistencyScore float64          `json:"consistency_score"`
	RelevanceScore   float64          `json:"relevance_score"`
	DomainScore      float64          `json:"domain_score"`
	MeetsThreshold   bool             `json:"meets_threshold"`
	Evidence         []SourceEvidence `json:"evidence"`
}
