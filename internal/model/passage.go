package model

import "fmt"

// ExtractionType records how the text of a page was obtained
type ExtractionType string

const (
	ExtractionText ExtractionType = "text" // text layer extracted directly from the PDF
	ExtractionOCR  ExtractionType = "ocr"  // text produced by OCR on a scanned page
)

// BBox is a rectangle [x0, y0, x1, y1] in source-page coordinates
type BBox [4]float64

// Union returns the smallest rectangle covering both boxes
func (b BBox) Union(other BBox) BBox {
	u := b
	if other[0] < u[0] {
		u[0] = other[0]
	}
	if other[1] < u[1] {
		u[1] = other[1]
	}
	if other[2] > u[2] {
		u[2] = other[2]
	}
	if other[3] > u[3] {
		u[3] = other[3]
	}
	return u
}

// Passage is the unit of retrieval: a bounded span of document text with
// full provenance metadata. Passages are created once at ingestion time
// and are immutable thereafter.
type Passage struct {
	ChunkID        string         `json:"chunk_id"`
	DocumentID     string         `json:"document_id"`
	SourceDocument string         `json:"source_document,omitempty"` // file name of the owning document
	Text           string         `json:"text"`
	PageNumber     int            `json:"page_number"` // 1-based
	ChunkIndex     int            `json:"chunk_index"` // 0-based per page
	BBox           *BBox          `json:"bbox,omitempty"`
	ExtractionType ExtractionType `json:"extraction_type"`
}

// ChunkKey builds the stable chunk identifier for a passage position
func ChunkKey(documentID string, pageNumber, chunkIndex int) string {
	return fmt.Sprintf("%s_p%d_c%d", documentID, pageNumber, chunkIndex)
}
