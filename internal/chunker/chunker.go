// Package chunker splits page-tagged extracted text into overlapping
// fixed-size passages with full provenance metadata. The chunker is
// stateless and reentrant; ingestion into the same document must be
// serialized by the caller.
package chunker

import (
	"fmt"

	"medrag/internal/errdefs"
	"medrag/internal/model"
)

// Span localizes a character range of a page's text on the page
type Span struct {
	Start int // rune offset, inclusive
	End   int // rune offset, exclusive
	BBox  model.BBox
}

// PageText is one page of extracted text with optional span geometry.
// Spans may be empty when the extraction type cannot localize text.
type PageText struct {
	PageNumber     int
	Text           string
	ExtractionType model.ExtractionType
	Spans          []Span
}

// Config holds the chunking window parameters
type Config struct {
	Size    int // characters per chunk, > 0
	Overlap int // overlapping characters, 0 <= overlap < size
}

// Chunker produces passages from page text using a sliding window
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters and returns a chunker. An invalid
// config is rejected before any processing.
func New(cfg Config) (*Chunker, error) {
	if cfg.Size <= 0 {
		return nil, errdefs.Config("chunking.size", "must be > 0, got %d", cfg.Size)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, errdefs.Config("chunking.overlap", "must satisfy 0 <= overlap < size, got %d (size %d)", cfg.Overlap, cfg.Size)
	}
	return &Chunker{size: cfg.Size, overlap: cfg.Overlap}, nil
}

// Chunk slides a window of size characters across each page, advancing by
// size-overlap characters per step. The final window may be shorter and
// is retained whenever it is non-empty. Chunk indexes are contiguous from
// 0 per page in emission order.
func (c *Chunker) Chunk(documentID, sourceDocument string, pages []PageText) ([]model.Passage, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required")
	}

	var passages []model.Passage
	for _, page := range pages {
		if page.PageNumber < 1 {
			return nil, fmt.Errorf("page number must be >= 1, got %d", page.PageNumber)
		}

		runes := []rune(page.Text)
		stride := c.size - c.overlap
		chunkIndex := 0

		for start := 0; start < len(runes); start += stride {
			end := start + c.size
			if end > len(runes) {
				end = len(runes)
			}
			text := string(runes[start:end])
			if text == "" {
				continue
			}

			passages = append(passages, model.Passage{
				ChunkID:        model.ChunkKey(documentID, page.PageNumber, chunkIndex),
				DocumentID:     documentID,
				SourceDocument: sourceDocument,
				Text:           text,
				PageNumber:     page.PageNumber,
				ChunkIndex:     chunkIndex,
				BBox:           unionBBox(page.Spans, start, end),
				ExtractionType: page.ExtractionType,
			})
			chunkIndex++

			// The window reached the end of the page; a further step
			// would re-emit only overlap
			if end == len(runes) {
				break
			}
		}
	}
	return passages, nil
}

// unionBBox returns the union bounding box of all spans overlapping the
// rune range [start, end), or nil when no span information covers it.
func unionBBox(spans []Span, start, end int) *model.BBox {
	var union *model.BBox
	for _, span := range spans {
		if span.End <= start || span.Start >= end {
			continue
		}
		if union == nil {
			box := span.BBox
			union = &box
			continue
		}
		box := union.Union(span.BBox)
		union = &box
	}
	return union
}
