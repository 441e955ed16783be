// Package pdfx extracts per-page text from PDF files.
package pdfx

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"medrag/internal/chunker"
	"medrag/internal/model"
)

// ExtractPages reads a PDF and returns one PageText per page carrying
// text. Pages are numbered from 1; pages with no extractable text are
// skipped with a warning. Each returned page gets a single span covering
// its full text with the bounding box of the page's content, so chunks
// inherit page-level geometry.
func ExtractPages(path string) ([]chunker.PageText, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	total := r.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf %s has no pages", path)
	}

	var pages []chunker.PageText
	for num := 1; num <= total; num++ {
		p := r.Page(num)
		if p.V.IsNull() {
			fmt.Fprintf(os.Stderr, "Warning: %s page %d is unreadable, skipping\n", path, num)
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s page %d text extraction failed, skipping: %v\n", path, num, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			fmt.Fprintf(os.Stderr, "Warning: %s page %d has no extractable text, skipping\n", path, num)
			continue
		}

		page := chunker.PageText{
			PageNumber:     num,
			Text:           text,
			ExtractionType: model.ExtractionText,
		}
		if box, ok := contentBBox(p); ok {
			page.Spans = []chunker.Span{{Start: 0, End: utf8.RuneCountInString(text), BBox: box}}
		}
		pages = append(pages, page)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf %s yielded no text on any page", path)
	}
	return pages, nil
}

// contentBBox computes the bounding box of all positioned text on the
// page. Geometry is page-level, not word-level: the text extractor does
// not preserve a glyph-to-plain-text mapping.
func contentBBox(p pdf.Page) (model.BBox, bool) {
	defer func() { _ = recover() }() // malformed content streams panic inside the parser

	content := p.Content()
	if len(content.Text) == 0 {
		return model.BBox{}, false
	}

	first := content.Text[0]
	box := model.BBox{first.X, first.Y, first.X + first.W, first.Y + first.FontSize}
	for _, t := range content.Text[1:] {
		if t.X < box[0] {
			box[0] = t.X
		}
		if t.Y < box[1] {
			box[1] = t.Y
		}
		if t.X+t.W > box[2] {
			box[2] = t.X + t.W
		}
		if t.Y+t.FontSize > box[3] {
			box[3] = t.Y + t.FontSize
		}
	}
	return box, true
}
