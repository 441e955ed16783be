package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"medrag/internal/model"
)

// mockIngester implements Ingester
type mockIngester struct {
	calls   int32
	failFor map[string]bool
}

func (m *mockIngester) IngestFile(ctx context.Context, path string) (*model.IngestResult, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.failFor[path] {
		return nil, errors.New("extraction failed")
	}
	return &model.IngestResult{DocumentID: "doc-" + path, Document: path, Chunks: 3}, nil
}

func TestBatchProcessor_ProcessFiles(t *testing.T) {
	ing := &mockIngester{}
	b := NewBatchProcessor(ing, 3)

	paths := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}
	results := b.ProcessFiles(context.Background(), paths)

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	if atomic.LoadInt32(&ing.calls) != int32(len(paths)) {
		t.Errorf("expected %d ingest calls, got %d", len(paths), ing.calls)
	}
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("unexpected error for %s: %v", r.Path, r.Error)
		}
		if r.Result == nil || r.Result.Chunks != 3 {
			t.Errorf("missing result for %s", r.Path)
		}
	}
}

func TestBatchProcessor_ManyFilesLowConcurrency(t *testing.T) {
	ing := &mockIngester{}
	b := NewBatchProcessor(ing, 1)

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = fmt.Sprintf("doc-%02d.pdf", i)
	}

	done := make(chan []*IngestJobResult, 1)
	go func() {
		done <- b.ProcessFiles(context.Background(), paths)
	}()

	select {
	case results := <-done:
		if len(results) != len(paths) {
			t.Fatalf("expected %d results, got %d", len(paths), len(results))
		}
		if atomic.LoadInt32(&ing.calls) != int32(len(paths)) {
			t.Errorf("expected %d ingest calls, got %d", len(paths), ing.calls)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete")
	}
}

func TestBatchProcessor_PartialFailure(t *testing.T) {
	ing := &mockIngester{failFor: map[string]bool{"bad.pdf": true}}
	b := NewBatchProcessor(ing, 2)

	results := b.ProcessFiles(context.Background(), []string{"good.pdf", "bad.pdf"})

	var failed, succeeded int
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 1 {
		t.Errorf("expected 1 failure and 1 success, got %d/%d", failed, succeeded)
	}
}

func TestBatchProcessor_EmptyInput(t *testing.T) {
	b := NewBatchProcessor(&mockIngester{}, 2)
	results := b.ProcessFiles(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestListPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := ListPDFs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 PDFs, got %v", paths)
	}
}
