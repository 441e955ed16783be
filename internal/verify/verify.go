// Package verify scores a generated answer against the passages it was
// generated from.
//
// Four independent signals are computed: grounding (is each answer
// sentence supported by a passage), consistency (does the answer
// contradict itself or its sources), relevance (does the answer address
// the query), and domain fit (does the answer stay on topic). A weighted
// combination yields a single confidence score and a pass/fail decision.
// An unsupported answer is a normal result, never an error.
package verify

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"medrag/internal/embedding"
	"medrag/internal/errdefs"
	"medrag/internal/model"
)

type Config struct {
	ConfidenceThreshold float64
	// MatchThreshold is the token containment a sentence needs against
	// its best passage to count as grounded.
	MatchThreshold float64

	GroundingWeight   float64
	ConsistencyWeight float64
	RelevanceWeight   float64
	DomainWeight      float64

	DomainName    string
	DomainTerms   []string
	DomainMinHits int
}

type Verifier struct {
	cfg      Config
	embedder embedding.Embedder // nil falls back to lexical relevance
}

func New(cfg Config, embedder embedding.Embedder) (*Verifier, error) {
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, errdefs.Config("verify.confidence_threshold", "must be in [0,1], got %v", cfg.ConfidenceThreshold)
	}
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return nil, errdefs.Config("verify.match_threshold", "must be in [0,1], got %v", cfg.MatchThreshold)
	}
	weights := []float64{cfg.GroundingWeight, cfg.ConsistencyWeight, cfg.RelevanceWeight, cfg.DomainWeight}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, errdefs.Config("verify.weights", "must be non-negative, got %v", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, errdefs.Config("verify.weights", "must sum to 1, got %v", sum)
	}
	if cfg.DomainMinHits <= 0 {
		cfg.DomainMinHits = 2
	}
	return &Verifier{cfg: cfg, embedder: embedder}, nil
}

// Verify scores answer against passages. An empty passage set with a
// non-empty answer is logged as a data consistency violation and scored
// with zero grounding rather than rejected.
func (v *Verifier) Verify(ctx context.Context, query, answer string, passages []model.RetrievedCandidate) (*model.VerificationResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("verify: empty query")
	}

	if len(passages) == 0 && strings.TrimSpace(answer) != "" {
		fmt.Fprintln(os.Stderr, "Warning: verifying a non-empty answer against an empty passage set")
	}

	sentences := splitSentences(answer)
	grounding, evidence := v.scoreGrounding(sentences, passages)
	consistency := v.scoreConsistency(sentences, passages)
	relevance := v.scoreRelevance(ctx, query, answer)
	domain := v.scoreDomain(answer)

	confidence := v.cfg.GroundingWeight*grounding +
		v.cfg.ConsistencyWeight*consistency +
		v.cfg.RelevanceWeight*relevance +
		v.cfg.DomainWeight*domain
	confidence = clamp01(confidence)

	return &model.VerificationResult{
		ConfidenceScore:  confidence,
		GroundingScore:   grounding,
		ConsistencyScore: consistency,
		RelevanceScore:   relevance,
		DomainScore:      domain,
		MeetsThreshold:   confidence >= v.cfg.ConfidenceThreshold,
		Evidence:         evidence,
	}, nil
}

// scoreGrounding computes the fraction of answer sentences supported by
// at least one passage, and collects one evidence entry per supporting
// passage. Support means the passage contains at least MatchThreshold of
// the sentence's content tokens.
func (v *Verifier) scoreGrounding(sentences []string, passages []model.RetrievedCandidate) (float64, []model.SourceEvidence) {
	if len(sentences) == 0 {
		return 0, nil
	}

	passageTokens := make([]map[string]bool, len(passages))
	for i, p := range passages {
		passageTokens[i] = tokenSet(tokenize(p.Passage.Text))
	}

	// matched tokens per passage, aggregated across sentences
	matchedByPassage := make([]map[string]bool, len(passages))

	counted := 0
	supported := 0
	for _, sentence := range sentences {
		tokens := tokenize(sentence)
		if len(tokens) == 0 {
			continue
		}
		counted++

		bestIdx := -1
		bestRatio := 0.0
		var bestMatched []string
		for i := range passages {
			matched := make([]string, 0, len(tokens))
			for _, t := range tokens {
				if passageTokens[i][t] {
					matched = append(matched, t)
				}
			}
			ratio := float64(len(matched)) / float64(len(tokens))
			if ratio > bestRatio {
				bestRatio = ratio
				bestIdx = i
				bestMatched = matched
			}
		}

		if bestIdx >= 0 && bestRatio >= v.cfg.MatchThreshold {
			supported++
			if matchedByPassage[bestIdx] == nil {
				matchedByPassage[bestIdx] = make(map[string]bool)
			}
			for _, t := range bestMatched {
				matchedByPassage[bestIdx][t] = true
			}
		}
	}

	if counted == 0 {
		return 0, nil
	}

	var evidence []model.SourceEvidence
	for i, p := range passages {
		if matchedByPassage[i] == nil {
			continue
		}
		evidence = append(evidence, model.SourceEvidence{
			PageNumber:  p.Passage.PageNumber,
			Document:    p.Passage.SourceDocument,
			ChunkID:     p.Passage.ChunkID,
			ExactChunk:  p.Passage.Text,
			BBox:        p.Passage.BBox,
			Highlighted: highlight(p.Passage.Text, matchedByPassage[i]),
		})
	}

	return float64(supported) / float64(counted), evidence
}

// scoreConsistency counts contradiction signals: a sentence negating what
// its best-matching passage states, numeric values conflicting with the
// passage, and answer sentences negating each other on a shared subject.
func (v *Verifier) scoreConsistency(sentences []string, passages []model.RetrievedCandidate) float64 {
	if len(sentences) == 0 {
		return 1
	}

	passageTok := make([][]string, len(passages))
	for i, p := range passages {
		passageTok[i] = tokenizeWithNegations(p.Passage.Text)
	}

	sentenceTok := make([][]string, len(sentences))
	for i, s := range sentences {
		sentenceTok[i] = tokenizeWithNegations(s)
	}

	contradictions := 0
	for i, tokens := range sentenceTok {
		if contradictsAny(tokens, passageTok) {
			contradictions++
			continue
		}
		for j := i + 1; j < len(sentenceTok); j++ {
			if contradicts(tokens, sentenceTok[j]) {
				contradictions++
				break
			}
		}
	}

	score := 1 - float64(contradictions)/float64(len(sentences))
	if score < 0 {
		return 0
	}
	return score
}

func contradictsAny(tokens []string, others [][]string) bool {
	for _, other := range others {
		if contradicts(tokens, other) {
			return true
		}
	}
	return false
}

// contradicts reports whether two token lists describe the same subject
// with a negation mismatch or conflicting numeric values. Requiring
// shared content tokens keeps unrelated statements from counting.
func contradicts(a, b []string) bool {
	shared := 0
	aSet := tokenSet(a)
	bSet := tokenSet(b)
	for t := range aSet {
		if !negations[t] && !isNumeric(t) && bSet[t] {
			shared++
		}
	}
	if shared < 2 {
		return false
	}

	if hasNegation(aSet) != hasNegation(bSet) {
		return true
	}

	aNums := numericTokens(a)
	bNums := numericTokens(b)
	if len(aNums) > 0 && len(bNums) > 0 {
		for t := range aNums {
			if bNums[t] {
				return false
			}
		}
		return true
	}
	return false
}

func hasNegation(set map[string]bool) bool {
	for t := range set {
		if negations[t] {
			return true
		}
	}
	return false
}

func numericTokens(tokens []string) map[string]bool {
	nums := make(map[string]bool)
	for _, t := range tokens {
		if isNumeric(t) {
			nums[t] = true
		}
	}
	return nums
}

// tokenizeWithNegations tokenizes but keeps negation words that the
// regular stopword list would otherwise drop.
func tokenizeWithNegations(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := stripInnerPunct(field)
		if isNumeric(strings.Trim(field, ".,;:!?()")) {
			token = strings.Trim(field, ".,;:!?()")
		}
		if token == "" {
			continue
		}
		if stopwords[token] && !negations[token] {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// scoreRelevance measures how well the answer addresses the query. With
// an embedder present this is cosine similarity mapped from [-1,1] to
// [0,1]; otherwise, or when embedding fails, it degrades to the fraction
// of query content tokens present in the answer.
func (v *Verifier) scoreRelevance(ctx context.Context, query, answer string) float64 {
	if v.embedder != nil {
		vecs, err := v.embedder.EmbedBatch(ctx, []string{query, answer})
		if err == nil && len(vecs) == 2 {
			cos := embedding.Cosine(vecs[0], vecs[1])
			return clamp01((cos + 1) / 2)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: relevance embedding failed, using lexical overlap: %v\n", err)
		}
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	answerSet := tokenSet(tokenize(answer))
	overlap := 0
	for _, t := range queryTokens {
		if answerSet[t] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}

// scoreDomain grades whether the answer's vocabulary stays inside the
// configured domain. With no terms configured every answer fits.
func (v *Verifier) scoreDomain(answer string) float64 {
	if len(v.cfg.DomainTerms) == 0 {
		return 1
	}
	lower := strings.ToLower(answer)
	hits := 0
	for _, term := range v.cfg.DomainTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			hits++
		}
	}
	score := float64(hits) / float64(v.cfg.DomainMinHits)
	return clamp01(score)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
