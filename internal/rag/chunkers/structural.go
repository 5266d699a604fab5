package chunkers

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// StructuralChunker follows the document's natural structure: pages first,
// then sections, then a paragraph-bounded text fallback. Tables always become
// one chunk each regardless of which structural view was used.
type StructuralChunker struct {
	maxChunkSize  int
	includeTables bool
}

// NewStructuralChunker creates a chunker with the given maximum chunk size in
// characters.
func NewStructuralChunker(maxChunkSize int) *StructuralChunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 2000
	}
	return &StructuralChunker{maxChunkSize: maxChunkSize, includeTables: true}
}

// Chunk produces structure-aware chunks. IDs encode the structural unit:
// {doc}_page_{n}, {doc}_section_{i} (with a _part_{k} suffix when a unit had
// to be split) and {doc}_table_{i}.
func (c *StructuralChunker) Chunk(ctx context.Context, doc *schema.ParsedDocument, documentID string) ([]schema.Chunk, error) {
	var chunks []schema.Chunk

	switch {
	case len(doc.Pages) > 0:
		for _, page := range doc.Pages {
			chunks = append(chunks, c.chunkPage(page, documentID)...)
		}
	case len(doc.Sections) > 0:
		for sectionIdx, section := range doc.Sections {
			chunks = append(chunks, c.chunkSection(section, documentID, sectionIdx)...)
		}
	default:
		chunks = c.chunkText(doc.Text, doc.Metadata, documentID)
	}

	if c.includeTables {
		chunks = append(chunks, c.chunkTables(doc.Tables, documentID)...)
	}

	for i := range chunks {
		chunks[i].Metadata[schema.MetadataKeyChunkIndex] = i
	}
	return chunks, nil
}

func (c *StructuralChunker) chunkPage(page schema.Page, documentID string) []schema.Chunk {
	text := strings.TrimSpace(page.Text)
	if text == "" {
		return nil
	}

	md := func() map[string]interface{} {
		return map[string]interface{}{
			schema.MetadataKeyDocumentID: documentID,
			schema.MetadataKeyPageNumber: page.Number,
			schema.MetadataKeyChunkType:  schema.ChunkTypePage,
		}
	}

	if len(text) <= c.maxChunkSize {
		return []schema.Chunk{{
			ID:       fmt.Sprintf("%s_page_%d", documentID, page.Number),
			Text:     text,
			Metadata: md(),
		}}
	}

	// Oversized pages split on word boundaries.
	var chunks []schema.Chunk
	var current []string
	length := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		m := md()
		m["part_index"] = len(chunks)
		chunks = append(chunks, schema.Chunk{
			ID:       fmt.Sprintf("%s_page_%d_part_%d", documentID, page.Number, len(chunks)),
			Text:     strings.Join(current, " "),
			Metadata: m,
		})
		current = nil
		length = 0
	}
	for _, word := range strings.Fields(text) {
		if length+len(word)+1 > c.maxChunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, word)
		length += len(word) + 1
	}
	flush()
	return chunks
}

func (c *StructuralChunker) chunkSection(section schema.Section, documentID string, sectionIdx int) []schema.Chunk {
	text := section.Text()
	if strings.TrimSpace(text) == "" && section.Heading == "" {
		return nil
	}

	md := func() map[string]interface{} {
		m := map[string]interface{}{
			schema.MetadataKeyDocumentID:     documentID,
			schema.MetadataKeySectionIndex:   sectionIdx,
			schema.MetadataKeySectionHeading: section.Heading,
			schema.MetadataKeyChunkType:      schema.ChunkTypeSection,
		}
		if section.SpeakerRole != "" {
			m[schema.MetadataKeySpeakerRole] = section.SpeakerRole
		}
		return m
	}

	fullText := text
	if section.Heading != "" {
		fullText = section.Heading + "\n\n" + text
	}

	if len(fullText) <= c.maxChunkSize {
		if strings.TrimSpace(fullText) == "" {
			return nil
		}
		return []schema.Chunk{{
			ID:       fmt.Sprintf("%s_section_%d", documentID, sectionIdx),
			Text:     fullText,
			Metadata: md(),
		}}
	}

	// Oversized sections split on paragraph boundaries; every part after the
	// first repeats the heading as a continuation marker so each chunk stays
	// self-describing.
	var chunks []schema.Chunk
	var current []string
	length := 0
	if section.Heading != "" {
		current = append(current, section.Heading)
		length = len(section.Heading)
	}
	flush := func() {
		if len(current) == 0 {
			return
		}
		m := md()
		m["part_index"] = len(chunks)
		chunks = append(chunks, schema.Chunk{
			ID:       fmt.Sprintf("%s_section_%d_part_%d", documentID, sectionIdx, len(chunks)),
			Text:     strings.Join(current, "\n\n"),
			Metadata: m,
		})
		current = nil
		length = 0
		if section.Heading != "" {
			cont := fmt.Sprintf("[Continued from: %s]", section.Heading)
			current = append(current, cont)
			length = len(cont)
		}
	}
	for _, para := range strings.Split(text, "\n\n") {
		if length+len(para) > c.maxChunkSize && len(current) > 1 {
			flush()
		}
		current = append(current, para)
		length += len(para)
	}
	if len(current) > 0 {
		m := md()
		m["part_index"] = len(chunks)
		chunks = append(chunks, schema.Chunk{
			ID:       fmt.Sprintf("%s_section_%d_part_%d", documentID, sectionIdx, len(chunks)),
			Text:     strings.Join(current, "\n\n"),
			Metadata: m,
		})
	}
	return chunks
}

// chunkText is the paragraph-bounded fallback for documents with no
// structural view at all.
func (c *StructuralChunker) chunkText(text string, docMeta map[string]interface{}, documentID string) []schema.Chunk {
	var chunks []schema.Chunk
	var current []string
	length := 0
	flush := func() {
		joined := strings.TrimSpace(strings.Join(current, "\n\n"))
		if joined == "" {
			current = nil
			length = 0
			return
		}
		md := schema.CopyMetadata(docMeta)
		md[schema.MetadataKeyDocumentID] = documentID
		md[schema.MetadataKeyChunkType] = schema.ChunkTypeText
		chunks = append(chunks, schema.Chunk{
			ID:       schema.ChunkID(documentID, len(chunks)),
			Text:     joined,
			Metadata: md,
		})
		current = nil
		length = 0
	}
	for _, para := range strings.Split(text, "\n\n") {
		if length+len(para) > c.maxChunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, para)
		length += len(para)
	}
	flush()
	return chunks
}

func (c *StructuralChunker) chunkTables(tables []schema.Table, documentID string) []schema.Chunk {
	return tableChunks(tables, documentID)
}

// tableChunks renders one chunk per table. Both chunking strategies emit
// these, so a table survives chunking no matter how the surrounding text was
// split.
func tableChunks(tables []schema.Table, documentID string) []schema.Chunk {
	var chunks []schema.Chunk
	for i, table := range tables {
		text := table.Markdown()
		if text == "" {
			continue
		}
		md := map[string]interface{}{
			schema.MetadataKeyDocumentID: documentID,
			schema.MetadataKeyChunkType:  schema.ChunkTypeTable,
			"table_index":                i,
			"row_count":                  len(table.Rows),
		}
		if table.PageNumber > 0 {
			md[schema.MetadataKeyPageNumber] = table.PageNumber
		}
		chunks = append(chunks, schema.Chunk{
			ID:       fmt.Sprintf("%s_table_%d", documentID, i),
			Text:     text,
			Metadata: md,
		})
	}
	return chunks
}

var _ interfaces.Chunker = (*StructuralChunker)(nil)
