// Package pipeline wires retrieval, generation, and verification into
// the query path.
//
// A query flows: input moderation, retrieval, answer generation,
// output moderation, verification. Each stage's outcome is recorded in
// the QueryResult so callers can audit why an answer was or was not
// returned.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"medrag/internal/config"
	"medrag/internal/llm"
	"medrag/internal/model"
	"medrag/internal/moderation"
	"medrag/internal/retrieve"
)

// NoGroundingMessage is returned as the answer when retrieval finds no
// relevant passages. This is a processed, valid outcome; it is distinct
// from a failure to process the query.
const NoGroundingMessage = "I could not find any relevant information in the documents to answer your question."

// UnsupportedAnswerMessage replaces an answer whose verification score
// fell below the confidence threshold.
const UnsupportedAnswerMessage = "The generated answer could not be verified against the documents with sufficient confidence."

type Retriever interface {
	Retrieve(ctx context.Context, query string, opts retrieve.Options) ([]model.RetrievedCandidate, error)
}

type Verifier interface {
	Verify(ctx context.Context, query, answer string, passages []model.RetrievedCandidate) (*model.VerificationResult, error)
}

type Sessions interface {
	Context(id string) []model.Message
	Record(id, query, answer string)
}

// Pipeline executes queries end to end
type Pipeline struct {
	retriever Retriever
	generator llm.Provider
	verifier  Verifier
	moderator moderation.Moderator // nil disables moderation
	sessions  Sessions             // nil disables conversation history
	cfg       config.Config
}

// QueryOptions narrow a single query
type QueryOptions struct {
	TopK                int
	SimilarityThreshold float64
	DocumentScope       []string
	SessionID           string
}

func newPipeline(retriever Retriever, generator llm.Provider, verifier Verifier, moderator moderation.Moderator, sessions Sessions, cfg config.Config) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		verifier:  verifier,
		moderator: moderator,
		sessions:  sessions,
		cfg:       cfg,
	}
}

// Query answers a question against the ingested corpus
func (p *Pipeline) Query(ctx context.Context, query string, opts QueryOptions) (*model.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if p.generator == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	result := &model.QueryResult{
		Query:     query,
		Timestamp: time.Now().UTC(),
	}

	if p.moderator != nil {
		mod, err := p.moderator.Check(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("moderate query: %w", err)
		}
		if mod.Flagged {
			result.Answer = moderation.ViolationMessage("input")
			result.Moderation = &model.ModerationOutcome{Stage: "input", Categories: mod.Categories}
			return result, nil
		}
	}

	candidates, err := p.retriever.Retrieve(ctx, query, retrieve.Options{
		TopK:                opts.TopK,
		SimilarityThreshold: opts.SimilarityThreshold,
		DocumentScope:       opts.DocumentScope,
	})
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		result.Answer = NoGroundingMessage
		result.NoGrounding = true
		result.Verification = &model.VerificationResult{}
		p.record(opts.SessionID, query, result.Answer)
		return result, nil
	}

	var history []model.Message
	if p.sessions != nil && opts.SessionID != "" {
		history = p.sessions.Context(opts.SessionID)
	}

	gen, err := p.generator.Generate(ctx, llm.GenerateRequest{
		Query:    query,
		Passages: candidates,
		History:  history,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	result.Model = gen.Model
	result.TokensUsed = gen.TokensUsed

	if p.moderator != nil {
		mod, err := p.moderator.Check(ctx, gen.Answer)
		if err != nil {
			return nil, fmt.Errorf("moderate answer: %w", err)
		}
		if mod.Flagged {
			result.Answer = moderation.ViolationMessage("output")
			result.Moderation = &model.ModerationOutcome{Stage: "output", Categories: mod.Categories}
			return result, nil
		}
	}

	verification, err := p.verifier.Verify(ctx, query, gen.Answer, candidates)
	if err != nil {
		return nil, fmt.Errorf("verify answer: %w", err)
	}

	result.Answer = gen.Answer
	result.Verification = verification
	result.Evidence = verification.Evidence
	result.PageNumbers = evidencePages(verification.Evidence)
	result.Sources = sourceRefs(candidates)

	if !verification.MeetsThreshold && !strings.Contains(gen.Answer, llm.RefusalSentinel) {
		result.Answer = UnsupportedAnswerMessage
	}

	p.record(opts.SessionID, query, result.Answer)
	return result, nil
}

func (p *Pipeline) record(sessionID, query, answer string) {
	if p.sessions == nil || sessionID == "" {
		return
	}
	p.sessions.Record(sessionID, query, answer)
}

// evidencePages extracts the distinct page numbers cited by evidence,
// ascending.
func evidencePages(evidence []model.SourceEvidence) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, ev := range evidence {
		if !seen[ev.PageNumber] {
			seen[ev.PageNumber] = true
			pages = append(pages, ev.PageNumber)
		}
	}
	sort.Ints(pages)
	return pages
}

func sourceRefs(candidates []model.RetrievedCandidate) []model.SourceRef {
	refs := make([]model.SourceRef, len(candidates))
	for i, c := range candidates {
		refs[i] = model.SourceRef{
			Document:        c.Passage.SourceDocument,
			PageNumber:      c.Passage.PageNumber,
			ChunkID:         c.ChunkID,
			SimilarityScore: c.SimilarityScore,
			RerankScore:     c.RerankScore,
		}
	}
	return refs
}
