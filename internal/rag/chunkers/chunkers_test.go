package chunkers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

func assertUniqueIDs(t *testing.T, chunks []schema.Chunk) {
	t.Helper()
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if seen[c.ID] {
			t.Errorf("duplicate chunk ID %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func assertNonEmpty(t *testing.T, chunks []schema.Chunk) {
	t.Helper()
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %s has empty text", c.ID)
		}
	}
}

func TestSemanticChunkerWindows(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Sentence number %d talks about revenue growth. ", i)
	}
	doc := &schema.ParsedDocument{Text: sb.String(), Metadata: map[string]interface{}{"filename": "a.txt"}}

	c := NewSemanticChunker(200, 50)
	chunks, err := c.Chunk(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	assertUniqueIDs(t, chunks)
	assertNonEmpty(t, chunks)

	for i, ch := range chunks {
		if ch.ID != schema.ChunkID("doc1", i) {
			t.Errorf("chunk %d ID = %s, want %s", i, ch.ID, schema.ChunkID("doc1", i))
		}
		if ch.Metadata[schema.MetadataKeyChunkIndex] != i {
			t.Errorf("chunk %d index metadata = %v", i, ch.Metadata[schema.MetadataKeyChunkIndex])
		}
		if ch.Metadata[schema.MetadataKeyDocumentID] != "doc1" {
			t.Errorf("chunk %d document_id = %v", i, ch.Metadata[schema.MetadataKeyDocumentID])
		}
		// Sentence boundaries respected: every chunk ends with terminal punctuation.
		if !strings.HasSuffix(strings.TrimSpace(ch.Text), ".") {
			t.Errorf("chunk %d cut mid-sentence: %q", i, ch.Text)
		}
	}
}

func TestSemanticChunkerOverlap(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here. Fourth sentence here."
	c := NewSemanticChunker(50, 25)
	chunks, err := c.Chunk(context.Background(), &schema.ParsedDocument{Text: text}, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	// Adjacent windows share at least one sentence.
	if !strings.Contains(chunks[1].Text, "Second sentence here.") {
		t.Errorf("expected overlap carried into second chunk, got %q", chunks[1].Text)
	}
}

func TestSemanticChunkerLongSentence(t *testing.T) {
	long := strings.Repeat("word ", 100) + "end."
	c := NewSemanticChunker(50, 10)
	chunks, err := c.Chunk(context.Background(), &schema.ParsedDocument{Text: long}, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("a single oversized sentence must stay one chunk, got %d", len(chunks))
	}
}

func TestSemanticChunkBySections(t *testing.T) {
	doc := &schema.ParsedDocument{
		Text: "ignored",
		Sections: []schema.Section{
			{Heading: "Jane Smith", SpeakerRole: "CEO", Content: []string{"We grew revenue. We launched products."}},
			{Heading: "Operator", SpeakerRole: "Operator", Content: []string{"Next question please."}},
		},
	}
	c := NewSemanticChunker(1024, 128)
	chunks, err := c.ChunkBySections(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("ChunkBySections failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Metadata[schema.MetadataKeySpeakerRole] != "CEO" {
		t.Errorf("speaker role = %v", chunks[0].Metadata[schema.MetadataKeySpeakerRole])
	}
	if !strings.HasPrefix(chunks[0].Text, "Jane Smith") {
		t.Errorf("heading not prepended: %q", chunks[0].Text)
	}
	assertUniqueIDs(t, chunks)
}

func TestStructuralChunkerPages(t *testing.T) {
	doc := &schema.ParsedDocument{
		Pages: []schema.Page{
			{Number: 1, Text: "Page one content."},
			{Number: 2, Text: "Page two content."},
		},
	}
	c := NewStructuralChunker(2000)
	chunks, err := c.Chunk(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "doc1_page_1" || chunks[1].ID != "doc1_page_2" {
		t.Errorf("unexpected IDs %s, %s", chunks[0].ID, chunks[1].ID)
	}
	if chunks[1].Metadata[schema.MetadataKeyPageNumber] != 2 {
		t.Errorf("page number = %v", chunks[1].Metadata[schema.MetadataKeyPageNumber])
	}
	for i, ch := range chunks {
		if ch.Metadata[schema.MetadataKeyChunkIndex] != i {
			t.Errorf("chunk %d index = %v", i, ch.Metadata[schema.MetadataKeyChunkIndex])
		}
	}
}

func TestStructuralChunkerOversizedPageSplits(t *testing.T) {
	doc := &schema.ParsedDocument{
		Pages: []schema.Page{{Number: 3, Text: strings.Repeat("word ", 200)}},
	}
	c := NewStructuralChunker(300)
	chunks, err := c.Chunk(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected split, got %d chunks", len(chunks))
	}
	if chunks[0].ID != "doc1_page_3_part_0" {
		t.Errorf("ID = %s", chunks[0].ID)
	}
	for _, ch := range chunks {
		if len(ch.Text) > 300 {
			t.Errorf("chunk %s exceeds max size: %d", ch.ID, len(ch.Text))
		}
	}
	assertUniqueIDs(t, chunks)
}

func TestStructuralChunkerSectionContinuation(t *testing.T) {
	paras := make([]string, 8)
	for i := range paras {
		paras[i] = strings.Repeat("strategy ", 20)
	}
	doc := &schema.ParsedDocument{
		Sections: []schema.Section{{Heading: "Growth Plan", HeadingLevel: 1, Content: paras}},
	}
	c := NewStructuralChunker(400)
	chunks, err := c.Chunk(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected split section, got %d chunks", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "Growth Plan") {
		t.Errorf("first part missing heading: %q", chunks[0].Text[:40])
	}
	for _, ch := range chunks[1:] {
		if !strings.HasPrefix(ch.Text, "[Continued from: Growth Plan]") {
			t.Errorf("continuation part %s missing marker: %q", ch.ID, ch.Text[:40])
		}
	}
	assertUniqueIDs(t, chunks)
}

func TestStructuralChunkerTablesAlwaysSeparate(t *testing.T) {
	doc := &schema.ParsedDocument{
		Pages:  []schema.Page{{Number: 1, Text: "Body text."}},
		Tables: []schema.Table{{Index: 0, Rows: [][]string{{"Metric", "Value"}, {"Revenue", "$10M"}}}},
	}
	c := NewStructuralChunker(2000)
	chunks, err := c.Chunk(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected page + table chunks, got %d", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if last.ID != "doc1_table_0" {
		t.Errorf("table chunk ID = %s", last.ID)
	}
	if last.Metadata[schema.MetadataKeyChunkType] != schema.ChunkTypeTable {
		t.Errorf("chunk type = %v", last.Metadata[schema.MetadataKeyChunkType])
	}
	if !strings.Contains(last.Text, "| Revenue | $10M |") {
		t.Errorf("table markdown missing: %q", last.Text)
	}
}

func TestSemanticChunkerEmitsTableChunks(t *testing.T) {
	doc := &schema.ParsedDocument{
		Text:     "Revenue grew strongly. Margins held steady.",
		Metadata: map[string]interface{}{"filename": "a.txt"},
		Tables: []schema.Table{
			{Index: 0, Rows: [][]string{{"Metric", "Value"}, {"Revenue", "$10M"}}},
			{Index: 1, Rows: [][]string{{"Region", "Growth"}, {"EMEA", "12%"}}},
		},
	}
	c := NewSemanticChunker(1024, 64)
	chunks, err := c.Chunk(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	var tables []schema.Chunk
	for _, ch := range chunks {
		if ch.Metadata[schema.MetadataKeyChunkType] == schema.ChunkTypeTable {
			tables = append(tables, ch)
		}
	}
	if len(tables) != 2 {
		t.Fatalf("expected one chunk per table, got %d", len(tables))
	}
	if tables[0].ID != "doc1_table_0" || tables[1].ID != "doc1_table_1" {
		t.Errorf("table chunk IDs = %s, %s", tables[0].ID, tables[1].ID)
	}
	if !strings.Contains(tables[0].Text, "| Revenue | $10M |") {
		t.Errorf("table markdown missing: %q", tables[0].Text)
	}
	for i, ch := range chunks {
		if got := ch.Metadata[schema.MetadataKeyChunkIndex]; got != i {
			t.Errorf("chunk %d has index %v", i, got)
		}
	}
	assertUniqueIDs(t, chunks)
}

func TestSemanticChunkBySectionsEmitsTableChunks(t *testing.T) {
	doc := &schema.ParsedDocument{
		Sections: []schema.Section{{Heading: "Outlook", Content: []string{"Guidance raised."}}},
		Metadata: map[string]interface{}{"filename": "a.txt"},
		Tables:   []schema.Table{{Index: 0, Rows: [][]string{{"Q", "EPS"}, {"Q2", "1.20"}}}},
	}
	c := NewSemanticChunker(1024, 64)
	chunks, err := c.ChunkBySections(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("ChunkBySections failed: %v", err)
	}
	last := chunks[len(chunks)-1]
	if last.ID != "doc1_table_0" {
		t.Fatalf("expected trailing table chunk, got %s", last.ID)
	}
	if last.Metadata[schema.MetadataKeyChunkType] != schema.ChunkTypeTable {
		t.Errorf("chunk type = %v", last.Metadata[schema.MetadataKeyChunkType])
	}
}

func TestStructuralChunkerTextFallback(t *testing.T) {
	doc := &schema.ParsedDocument{
		Text:     "Para one.\n\nPara two.\n\nPara three.",
		Metadata: map[string]interface{}{"filename": "a.txt"},
	}
	c := NewStructuralChunker(15)
	chunks, err := c.Chunk(context.Background(), doc, "doc1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "doc1_chunk_0" {
		t.Errorf("ID = %s", chunks[0].ID)
	}
	assertNonEmpty(t, chunks)
	assertUniqueIDs(t, chunks)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences(`He said "stop." Then left! Done? trailing bit`)
	want := []string{`He said "stop."`, "Then left!", "Done?", "trailing bit"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].text != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i].text, want[i])
		}
	}
}
