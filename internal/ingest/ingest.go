// Package ingest turns PDF files into searchable passages.
//
// Ingestion is all-or-nothing per document: passages only become
// searchable once the whole document has been chunked, embedded, and
// written to the vector store in a single upsert. A query never observes
// a partially ingested document.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"medrag/internal/chunker"
	"medrag/internal/embedding"
	"medrag/internal/model"
	"medrag/internal/pdfx"
	"medrag/internal/retry"
	"medrag/internal/vectorstore"
)

type Config struct {
	BatchSize     int
	RetryAttempts int
	RetryBackoff  time.Duration
}

type Ingester struct {
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	store    vectorstore.Store
	cfg      Config
}

func New(c *chunker.Chunker, embedder embedding.Embedder, store vectorstore.Store, cfg Config) *Ingester {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Ingester{chunker: c, embedder: embedder, store: store, cfg: cfg}
}

// IngestFile extracts, chunks, embeds, and indexes one PDF. The document
// gets a fresh UUID; re-ingesting the same file creates a new document.
func (i *Ingester) IngestFile(ctx context.Context, path string) (*model.IngestResult, error) {
	pages, err := pdfx.ExtractPages(path)
	if err != nil {
		return nil, err
	}
	return i.IngestPages(ctx, filepath.Base(path), pages)
}

// IngestPages indexes already-extracted pages under a new document ID.
func (i *Ingester) IngestPages(ctx context.Context, sourceDocument string, pages []chunker.PageText) (*model.IngestResult, error) {
	documentID := uuid.NewString()

	passages, err := i.chunker.Chunk(documentID, sourceDocument, pages)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", sourceDocument, err)
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", sourceDocument)
	}

	vectors := make([][]float32, 0, len(passages))
	for start := 0; start < len(passages); start += i.cfg.BatchSize {
		end := start + i.cfg.BatchSize
		if end > len(passages) {
			end = len(passages)
		}
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}

		var batch [][]float32
		err := retry.Do(ctx, i.cfg.RetryAttempts, i.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			batch, err = i.embedder.EmbedBatch(ctx, texts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", sourceDocument, err)
		}
		vectors = append(vectors, batch...)
	}

	// Single upsert keeps the document invisible until fully indexed.
	err = retry.Do(ctx, i.cfg.RetryAttempts, i.cfg.RetryBackoff, func(ctx context.Context) error {
		return i.store.Upsert(ctx, passages, vectors)
	})
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", sourceDocument, err)
	}

	return &model.IngestResult{
		DocumentID: documentID,
		Document:   sourceDocument,
		Pages:      len(pages),
		Chunks:     len(passages),
		IngestedAt: time.Now().UTC(),
	}, nil
}

// Delete removes every chunk of a document from the index.
func (i *Ingester) Delete(ctx context.Context, documentID string) error {
	return i.store.DeleteDocument(ctx, documentID)
}
