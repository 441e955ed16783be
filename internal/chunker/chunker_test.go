package chunker

import (
	"strings"
	"testing"

	"medrag/internal/errdefs"
	"medrag/internal/model"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
		{"negative overlap", 10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{Size: tt.size, Overlap: tt.overlap})
			if err == nil {
				t.Fatal("expected config error")
			}
			if !errdefs.IsConfig(err) {
				t.Errorf("expected ConfigError, got %T", err)
			}
		})
	}
}

func TestChunk_CountFormula(t *testing.T) {
	// chunk count = ceil((len - overlap) / (size - overlap)) for len > size
	tests := []struct {
		textLen int
		size    int
		overlap int
	}{
		{1200, 500, 100},
		{500, 500, 100},
		{501, 500, 100},
		{1000, 100, 0},
		{999, 100, 25},
		{50, 500, 100},
	}

	for _, tt := range tests {
		c, err := New(Config{Size: tt.size, Overlap: tt.overlap})
		if err != nil {
			t.Fatal(err)
		}

		text := strings.Repeat("a", tt.textLen)
		passages, err := c.Chunk("doc1", "doc.pdf", []PageText{
			{PageNumber: 1, Text: text, ExtractionType: model.ExtractionText},
		})
		if err != nil {
			t.Fatal(err)
		}

		stride := tt.size - tt.overlap
		want := (tt.textLen - tt.overlap + stride - 1) / stride
		if tt.textLen <= tt.size {
			want = 1
		}
		if len(passages) != want {
			t.Errorf("len=%d size=%d overlap=%d: expected %d chunks, got %d",
				tt.textLen, tt.size, tt.overlap, want, len(passages))
		}
	}
}

func TestChunk_ReconstructsOriginalText(t *testing.T) {
	c, err := New(Config{Size: 50, Overlap: 10})
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 8)
	passages, err := c.Chunk("doc1", "doc.pdf", []PageText{
		{PageNumber: 1, Text: text, ExtractionType: model.ExtractionText},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Concatenating each chunk minus the leading overlap reproduces the input
	var rebuilt strings.Builder
	for i, p := range passages {
		runes := []rune(p.Text)
		if i == 0 {
			rebuilt.WriteString(p.Text)
			continue
		}
		if len(runes) <= 10 {
			// Fully contained in the previous chunk's overlap region;
			// the window never emits these because the stride is positive
			t.Fatalf("chunk %d shorter than the overlap", i)
		}
		rebuilt.WriteString(string(runes[10:]))
	}
	if rebuilt.String() != text {
		t.Error("non-overlapping portions do not reconstruct the original text")
	}
}

func TestChunk_FinalShortWindowRetained(t *testing.T) {
	c, err := New(Config{Size: 100, Overlap: 20})
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("x", 130)
	passages, err := c.Chunk("doc1", "doc.pdf", []PageText{
		{PageNumber: 1, Text: text, ExtractionType: model.ExtractionText},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(passages) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(passages))
	}
	if len(passages[1].Text) != 50 {
		t.Errorf("expected final window of 50 chars, got %d", len(passages[1].Text))
	}
}

func TestChunk_MetadataInvariants(t *testing.T) {
	c, err := New(Config{Size: 40, Overlap: 10})
	if err != nil {
		t.Fatal(err)
	}

	pages := []PageText{
		{PageNumber: 1, Text: strings.Repeat("a", 100), ExtractionType: model.ExtractionText},
		{PageNumber: 2, Text: strings.Repeat("b", 80), ExtractionType: model.ExtractionOCR},
	}
	passages, err := c.Chunk("doc1", "report.pdf", pages)
	if err != nil {
		t.Fatal(err)
	}

	perPage := make(map[int]int)
	for _, p := range passages {
		if p.PageNumber < 1 {
			t.Errorf("page number %d < 1", p.PageNumber)
		}
		if p.ChunkIndex != perPage[p.PageNumber] {
			t.Errorf("page %d: expected chunk index %d, got %d", p.PageNumber, perPage[p.PageNumber], p.ChunkIndex)
		}
		perPage[p.PageNumber]++

		if p.DocumentID != "doc1" || p.SourceDocument != "report.pdf" {
			t.Errorf("provenance not preserved: %+v", p)
		}
		want := model.ChunkKey("doc1", p.PageNumber, p.ChunkIndex)
		if p.ChunkID != want {
			t.Errorf("expected chunk id %s, got %s", want, p.ChunkID)
		}
	}

	// Pages keep their extraction type
	for _, p := range passages {
		want := model.ExtractionText
		if p.PageNumber == 2 {
			want = model.ExtractionOCR
		}
		if p.ExtractionType != want {
			t.Errorf("page %d: expected extraction type %s, got %s", p.PageNumber, want, p.ExtractionType)
		}
	}
}

func TestChunk_BBoxUnion(t *testing.T) {
	c, err := New(Config{Size: 10, Overlap: 0})
	if err != nil {
		t.Fatal(err)
	}

	page := PageText{
		PageNumber:     1,
		Text:           "abcdefghijklmnopqrst",
		ExtractionType: model.ExtractionText,
		Spans: []Span{
			{Start: 0, End: 5, BBox: model.BBox{0, 0, 10, 10}},
			{Start: 5, End: 10, BBox: model.BBox{10, 0, 20, 12}},
			// No span covers the second chunk
		},
	}

	passages, err := c.Chunk("doc1", "doc.pdf", []PageText{page})
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(passages))
	}

	if passages[0].BBox == nil {
		t.Fatal("expected union bbox on first chunk")
	}
	want := model.BBox{0, 0, 20, 12}
	if *passages[0].BBox != want {
		t.Errorf("expected union %v, got %v", want, *passages[0].BBox)
	}

	if passages[1].BBox != nil {
		t.Errorf("expected absent bbox when no span covers the chunk, got %v", *passages[1].BBox)
	}
}

func TestChunk_EmptyPageProducesNoChunks(t *testing.T) {
	c, err := New(Config{Size: 100, Overlap: 0})
	if err != nil {
		t.Fatal(err)
	}

	passages, err := c.Chunk("doc1", "doc.pdf", []PageText{
		{PageNumber: 1, Text: "", ExtractionType: model.ExtractionText},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 0 {
		t.Errorf("expected no chunks for empty page, got %d", len(passages))
	}
}

func TestChunk_RejectsBadPageNumber(t *testing.T) {
	c, err := New(Config{Size: 100, Overlap: 0})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Chunk("doc1", "doc.pdf", []PageText{
		{PageNumber: 0, Text: "text", ExtractionType: model.ExtractionText},
	})
	if err == nil {
		t.Fatal("expected error for page number 0")
	}
}
