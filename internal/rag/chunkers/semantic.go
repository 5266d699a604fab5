package chunkers

import (
	"context"
	"regexp"
	"strings"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// SemanticChunker splits text into sentence-respecting windows of a target
// size with overlap, so no chunk ever cuts a sentence in half and adjacent
// chunks share boundary context.
type SemanticChunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewSemanticChunker creates a chunker with the given target size and overlap
// in characters. Overlap is clamped below the chunk size.
func NewSemanticChunker(chunkSize, chunkOverlap int) *SemanticChunker {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 8
	}
	return &SemanticChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits the full document text into sentence windows. Chunk IDs follow
// the sequential {documentID}_chunk_{n} scheme. Tables become one chunk each,
// appended after the text windows.
func (c *SemanticChunker) Chunk(ctx context.Context, doc *schema.ParsedDocument, documentID string) ([]schema.Chunk, error) {
	windows := c.windows(doc.Text)
	tables := tableChunks(doc.Tables, documentID)
	total := len(windows) + len(tables)

	chunks := make([]schema.Chunk, 0, total)
	for i, w := range windows {
		md := schema.CopyMetadata(doc.Metadata)
		md[schema.MetadataKeyDocumentID] = documentID
		md[schema.MetadataKeyChunkIndex] = i
		md[schema.MetadataKeyChunkType] = schema.ChunkTypeText
		md["chunk_count"] = total
		chunks = append(chunks, schema.Chunk{
			ID:        schema.ChunkID(documentID, i),
			Text:      w.text,
			Metadata:  md,
			StartChar: w.start,
			EndChar:   w.end,
		})
	}
	for i := range tables {
		tables[i].Metadata[schema.MetadataKeyChunkIndex] = len(windows) + i
		tables[i].Metadata["chunk_count"] = total
	}
	return append(chunks, tables...), nil
}

// ChunkBySections applies sentence windowing per section so section boundaries
// are never crossed. Falls back to Chunk when the document has no sections.
// The heading is prepended to the first window of its section and section
// metadata travels with every chunk.
func (c *SemanticChunker) ChunkBySections(ctx context.Context, doc *schema.ParsedDocument, documentID string) ([]schema.Chunk, error) {
	if len(doc.Sections) == 0 {
		return c.Chunk(ctx, doc, documentID)
	}

	var chunks []schema.Chunk
	chunkIdx := 0

	for sectionIdx, section := range doc.Sections {
		text := section.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if section.Heading != "" {
			text = section.Heading + "\n\n" + text
		}

		for _, w := range c.windows(text) {
			md := schema.CopyMetadata(doc.Metadata)
			md[schema.MetadataKeyDocumentID] = documentID
			md[schema.MetadataKeyChunkIndex] = chunkIdx
			md[schema.MetadataKeyChunkType] = schema.ChunkTypeSection
			md[schema.MetadataKeySectionIndex] = sectionIdx
			md[schema.MetadataKeySectionHeading] = section.Heading
			if section.SpeakerRole != "" {
				md[schema.MetadataKeySpeakerRole] = section.SpeakerRole
			}
			chunks = append(chunks, schema.Chunk{
				ID:       schema.ChunkID(documentID, chunkIdx),
				Text:     w.text,
				Metadata: md,
			})
			chunkIdx++
		}
	}

	tables := tableChunks(doc.Tables, documentID)
	for i := range tables {
		tables[i].Metadata[schema.MetadataKeyChunkIndex] = chunkIdx + i
	}
	return append(chunks, tables...), nil
}

type window struct {
	text       string
	start, end int
}

// windows packs sentences into overlapping windows of at most chunkSize
// characters. A sentence longer than the chunk size becomes its own window
// rather than being split mid-sentence.
func (c *SemanticChunker) windows(text string) []window {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []window
	start := 0
	for start < len(sentences) {
		end := start
		length := 0
		for end < len(sentences) {
			l := len(sentences[end].text)
			if end > start {
				l++ // joining space
			}
			if length+l > c.chunkSize && end > start {
				break
			}
			length += l
			end++
		}

		parts := make([]string, 0, end-start)
		for _, s := range sentences[start:end] {
			parts = append(parts, s.text)
		}
		out = append(out, window{
			text:  strings.Join(parts, " "),
			start: sentences[start].start,
			end:   sentences[end-1].end,
		})

		if end >= len(sentences) {
			break
		}
		start = c.overlapStart(sentences, start, end)
	}
	return out
}

// overlapStart walks back from the window end to carry roughly chunkOverlap
// characters of trailing sentences into the next window. It always advances
// past the previous window start so the loop makes progress.
func (c *SemanticChunker) overlapStart(sentences []sentence, prevStart, end int) int {
	next := end
	carried := 0
	for next > prevStart+1 && carried+len(sentences[next-1].text) <= c.chunkOverlap {
		next--
		carried += len(sentences[next].text)
	}
	return next
}

type sentence struct {
	text       string
	start, end int
}

var sentenceEndRe = regexp.MustCompile(`[.!?]["')\]]?(\s+|$)`)

// splitSentences segments text on terminal punctuation followed by
// whitespace. Trailing text without terminal punctuation forms a final
// sentence. Whitespace-only segments are dropped.
func splitSentences(text string) []sentence {
	var out []sentence
	offset := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		raw := text[offset:loc[1]]
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			out = append(out, sentence{text: trimmed, start: offset, end: loc[1]})
		}
		offset = loc[1]
	}
	if trimmed := strings.TrimSpace(text[offset:]); trimmed != "" {
		out = append(out, sentence{text: trimmed, start: offset, end: len(text)})
	}
	return out
}

var _ interfaces.Chunker = (*SemanticChunker)(nil)
