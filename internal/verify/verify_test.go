package verify

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"medrag/internal/errdefs"
	"medrag/internal/model"
)

func testConfig() Config {
	return Config{
		ConfidenceThreshold: 0.7,
		MatchThreshold:      0.55,
		GroundingWeight:     0.4,
		ConsistencyWeight:   0.2,
		RelevanceWeight:     0.2,
		DomainWeight:        0.2,
		DomainName:          "medical",
		DomainTerms:         []string{"diagnosis", "patient", "treatment", "diabetes", "dose", "mg"},
		DomainMinHits:       2,
	}
}

func candidate(chunkID, text string, page int) model.RetrievedCandidate {
	return model.RetrievedCandidate{
		ChunkID:         chunkID,
		SimilarityScore: 0.8,
		RerankScore:     0.8,
		Passage: model.Passage{
			ChunkID:    chunkID,
			Text:       text,
			PageNumber: page,
		},
	}
}

func mustVerifier(t *testing.T, cfg Config) *Verifier {
	t.Helper()
	v, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNew_RejectsInvalidWeights(t *testing.T) {
	cfg := testConfig()
	cfg.GroundingWeight = 0.9
	if _, err := New(cfg, nil); !errdefs.IsConfig(err) {
		t.Errorf("expected config error for weights not summing to 1, got %v", err)
	}

	cfg = testConfig()
	cfg.ConfidenceThreshold = 1.5
	if _, err := New(cfg, nil); !errdefs.IsConfig(err) {
		t.Errorf("expected config error for threshold out of range, got %v", err)
	}
}

func TestVerify_FullyGroundedAnswer(t *testing.T) {
	v := mustVerifier(t, testConfig())
	passages := []model.RetrievedCandidate{
		candidate("d1_p1_c0", "Diagnosis: Type 2 Diabetes. Patient started on metformin.", 1),
	}

	res, err := v.Verify(context.Background(), "What is the diagnosis?", "The diagnosis is Type 2 Diabetes.", passages)
	if err != nil {
		t.Fatal(err)
	}
	if res.GroundingScore != 1.0 {
		t.Errorf("grounding = %v, want 1.0", res.GroundingScore)
	}
	if len(res.Evidence) != 1 {
		t.Fatalf("expected 1 evidence entry, got %d", len(res.Evidence))
	}
	if res.Evidence[0].PageNumber != 1 || res.Evidence[0].ChunkID != "d1_p1_c0" {
		t.Errorf("evidence provenance wrong: %+v", res.Evidence[0])
	}
}

func TestVerify_EmptyPassagesZeroGrounding(t *testing.T) {
	v := mustVerifier(t, testConfig())

	res, err := v.Verify(context.Background(), "What is the diagnosis?", "The diagnosis is Type 2 Diabetes.", nil)
	if err != nil {
		t.Fatalf("empty passage set must not raise: %v", err)
	}
	if res.GroundingScore != 0 {
		t.Errorf("grounding = %v, want 0", res.GroundingScore)
	}
	if res.MeetsThreshold {
		t.Error("ungrounded answer must not meet the threshold")
	}
	if len(res.Evidence) != 0 {
		t.Errorf("expected no evidence, got %d entries", len(res.Evidence))
	}
}

func TestVerify_PartialGrounding(t *testing.T) {
	v := mustVerifier(t, testConfig())
	passages := []model.RetrievedCandidate{
		candidate("c0", "Diagnosis: Type 2 Diabetes.", 1),
	}
	answer := "The diagnosis is Type 2 Diabetes. The patient should travel to Mars immediately."

	res, err := v.Verify(context.Background(), "What is the diagnosis?", answer, passages)
	if err != nil {
		t.Fatal(err)
	}
	if res.GroundingScore <= 0 || res.GroundingScore >= 1 {
		t.Errorf("grounding = %v, want strictly between 0 and 1", res.GroundingScore)
	}
	if res.GroundingScore != 0.5 {
		t.Errorf("grounding = %v, want 0.5 for one of two sentences supported", res.GroundingScore)
	}
}

func TestVerify_EmptyQueryRejected(t *testing.T) {
	v := mustVerifier(t, testConfig())
	if _, err := v.Verify(context.Background(), "  ", "answer", nil); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestVerify_ScoresBounded(t *testing.T) {
	v := mustVerifier(t, testConfig())
	passages := []model.RetrievedCandidate{
		candidate("c0", "Blood pressure was 120/80. No signs of infection.", 1),
	}

	res, err := v.Verify(context.Background(), "blood pressure?", "Blood pressure was not 140/90 but elevated somewhat.", passages)
	if err != nil {
		t.Fatal(err)
	}
	for name, s := range map[string]float64{
		"confidence":  res.ConfidenceScore,
		"grounding":   res.GroundingScore,
		"consistency": res.ConsistencyScore,
		"relevance":   res.RelevanceScore,
		"domain":      res.DomainScore,
	} {
		if s < 0 || s > 1 {
			t.Errorf("%s score %v out of [0,1]", name, s)
		}
	}
}

func TestVerify_Deterministic(t *testing.T) {
	v := mustVerifier(t, testConfig())
	passages := []model.RetrievedCandidate{
		candidate("c0", "Diagnosis: Type 2 Diabetes. Metformin 500 mg twice daily.", 1),
	}

	a, err := v.Verify(context.Background(), "What is the treatment?", "Metformin 500 mg twice daily.", passages)
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Verify(context.Background(), "What is the treatment?", "Metformin 500 mg twice daily.", passages)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different results")
	}
}

func TestVerify_EvidenceSoundness(t *testing.T) {
	v := mustVerifier(t, testConfig())
	text := "Diagnosis: Type 2 Diabetes. Patient started on metformin 500 mg."
	passages := []model.RetrievedCandidate{candidate("c0", text, 3)}

	res, err := v.Verify(context.Background(), "What is the diagnosis?", "The diagnosis is Type 2 Diabetes.", passages)
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range res.Evidence {
		if ev.ExactChunk != text {
			t.Errorf("exact_chunk is not the verbatim passage text: %q", ev.ExactChunk)
		}
		if strings.ReplaceAll(ev.Highlighted, "**", "") != ev.ExactChunk {
			t.Errorf("stripping highlights must recover exact_chunk, got %q", ev.Highlighted)
		}
		if !strings.Contains(ev.Highlighted, "**") {
			t.Errorf("expected highlighted spans in %q", ev.Highlighted)
		}
	}
}

func TestConsistency_NegationContradiction(t *testing.T) {
	v := mustVerifier(t, testConfig())
	passages := []model.RetrievedCandidate{
		candidate("c0", "The patient has a history of hypertension.", 1),
	}

	res, err := v.Verify(context.Background(), "hypertension history?",
		"The patient has no history of hypertension.", passages)
	if err != nil {
		t.Fatal(err)
	}
	if res.ConsistencyScore != 0 {
		t.Errorf("consistency = %v, want 0 for a single contradicted sentence", res.ConsistencyScore)
	}
}

func TestConsistency_NumericConflict(t *testing.T) {
	v := mustVerifier(t, testConfig())
	passages := []model.RetrievedCandidate{
		candidate("c0", "Metformin dose was 500 mg twice daily.", 1),
	}

	res, err := v.Verify(context.Background(), "metformin dose?",
		"Metformin dose was 850 mg twice daily.", passages)
	if err != nil {
		t.Fatal(err)
	}
	if res.ConsistencyScore != 0 {
		t.Errorf("consistency = %v, want 0 for conflicting dose", res.ConsistencyScore)
	}
}

func TestConsistency_NoContradiction(t *testing.T) {
	v := mustVerifier(t, testConfig())
	passages := []model.RetrievedCandidate{
		candidate("c0", "Metformin dose was 500 mg twice daily.", 1),
	}

	res, err := v.Verify(context.Background(), "metformin dose?",
		"Metformin dose was 500 mg twice daily.", passages)
	if err != nil {
		t.Fatal(err)
	}
	if res.ConsistencyScore != 1 {
		t.Errorf("consistency = %v, want 1 for an agreeing answer", res.ConsistencyScore)
	}
}

func TestDomain_GradedScore(t *testing.T) {
	v := mustVerifier(t, testConfig())

	res, err := v.Verify(context.Background(), "q", "The patient diagnosis indicates diabetes.",
		[]model.RetrievedCandidate{candidate("c0", "The patient diagnosis indicates diabetes.", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if res.DomainScore != 1 {
		t.Errorf("domain = %v, want 1 with three term hits and min_hits 2", res.DomainScore)
	}

	res, err = v.Verify(context.Background(), "q", "The weather is sunny today.",
		[]model.RetrievedCandidate{candidate("c0", "The weather is sunny today.", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if res.DomainScore != 0 {
		t.Errorf("domain = %v, want 0 with no term hits", res.DomainScore)
	}
}

func TestDomain_NoTermsConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.DomainTerms = nil
	v := mustVerifier(t, cfg)

	res, err := v.Verify(context.Background(), "q", "anything at all",
		[]model.RetrievedCandidate{candidate("c0", "anything at all", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if res.DomainScore != 1 {
		t.Errorf("domain = %v, want 1 when no terms configured", res.DomainScore)
	}
}

func TestRelevance_LexicalFallback(t *testing.T) {
	v := mustVerifier(t, testConfig())

	res, err := v.Verify(context.Background(), "metformin dose", "The metformin dose is 500 mg.",
		[]model.RetrievedCandidate{candidate("c0", "The metformin dose is 500 mg.", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if res.RelevanceScore != 1 {
		t.Errorf("relevance = %v, want 1 when all query tokens appear in the answer", res.RelevanceScore)
	}

	res, err = v.Verify(context.Background(), "metformin dose", "Completely unrelated text here.",
		[]model.RetrievedCandidate{candidate("c0", "Completely unrelated text here.", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if res.RelevanceScore != 0 {
		t.Errorf("relevance = %v, want 0 with no overlap", res.RelevanceScore)
	}
}
