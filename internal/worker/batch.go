package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"medrag/internal/model"
)

// Ingester defines the interface for ingesting a single PDF file
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*model.IngestResult, error)
}

// IngestJob represents one file ingestion job
type IngestJob struct {
	Path     string
	Ingester Ingester
}

// Execute executes the ingestion job
func (j *IngestJob) Execute(ctx context.Context) Result {
	result, err := j.Ingester.IngestFile(ctx, j.Path)
	return &IngestJobResult{
		Path:   j.Path,
		Result: result,
		Error:  err,
	}
}

// IngestJobResult represents the outcome of one file ingestion
type IngestJobResult struct {
	Path   string
	Result *model.IngestResult
	Error  error
}

// GetError returns the error from the ingestion result
func (r *IngestJobResult) GetError() error {
	return r.Error
}

// BatchProcessor ingests multiple PDF files concurrently. Files are
// independent documents, so they can be processed in parallel without
// coordination; each file is still ingested all-or-nothing on its own.
type BatchProcessor struct {
	ingester    Ingester
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(ingester Ingester, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		ingester:    ingester,
		concurrency: concurrency,
	}
}

// ProcessFiles ingests the given PDF files concurrently
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*IngestJobResult {
	if len(paths) == 0 {
		return []*IngestJobResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&IngestJob{Path: path, Ingester: b.ingester})
	}

	results := pool.Wait()

	out := make([]*IngestJobResult, len(results))
	for i, result := range results {
		out[i] = result.(*IngestJobResult)
	}

	return out
}

// ProcessDir ingests every PDF in a directory (non-recursive)
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) ([]*IngestJobResult, error) {
	paths, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF files in %s", dir)
	}
	return b.ProcessFiles(ctx, paths), nil
}

// ListPDFs returns the PDF files in a directory, sorted by name
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
