package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata keys shared across the pipeline. Every chunk carries at least
// MetadataKeyDocumentID, MetadataKeyCompanyID and MetadataKeyChunkType.
const (
	MetadataKeyFileName       = "filename"
	MetadataKeyDocumentID     = "document_id"
	MetadataKeyCompanyID      = "company_id"
	MetadataKeyChunkType      = "chunk_type"
	MetadataKeyChunkIndex     = "chunk_index"
	MetadataKeyPageNumber     = "page_number"
	MetadataKeySectionHeading = "section_heading"
	MetadataKeySectionIndex   = "section_index"
	MetadataKeySpeakerRole    = "speaker_role"
	MetadataKeyScore          = "score"
)

// Chunk type tags.
const (
	ChunkTypeText    = "text"
	ChunkTypePage    = "page"
	ChunkTypeSection = "section"
	ChunkTypeTable   = "table"
)

// Page is one page or slide of a parsed document.
type Page struct {
	Number int
	Title  string
	Text   string
}

// Section is a heading- or speaker-delimited span of a parsed document.
type Section struct {
	Heading      string
	HeadingLevel int
	SpeakerRole  string
	Content      []string
}

// Text joins the section body into one string.
func (s *Section) Text() string {
	return strings.Join(s.Content, "\n")
}

// Table is row-major cell text extracted from a document.
type Table struct {
	Index      int
	PageNumber int
	Rows       [][]string
}

// Markdown renders the table in markdown form for indexing and citation.
func (t *Table) Markdown() string {
	if len(t.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, row := range t.Rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			seps := make([]string, len(row))
			for j := range seps {
				seps[j] = "---"
			}
			sb.WriteString("| " + strings.Join(seps, " | ") + " |\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ParsedDocument is the normalized output of a format parser. Pages and
// Sections are alternative structural views; a parser fills whichever the
// format supports. Tables are independent and additive.
type ParsedDocument struct {
	Text     string
	Metadata map[string]interface{}
	Pages    []Page
	Sections []Section
	Tables   []Table
}

// Chunk is a bounded, independently citable unit of document text. IDs are
// deterministic, derived from the document ID and the chunk's position, so
// re-chunking the same document yields the same IDs.
type Chunk struct {
	ID        string
	Text      string
	Metadata  map[string]interface{}
	Embedding []float32
	StartChar int
	EndChar   int
}

// DocumentID returns the owning document's ID from chunk metadata.
func (c *Chunk) DocumentID() string {
	v, _ := c.Metadata[MetadataKeyDocumentID].(string)
	return v
}

// ChunkID builds the canonical sequential chunk ID for a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// ParseChunkID splits a sequential chunk ID back into document ID and index.
// Returns ok=false for IDs produced by the structural chunker's page/section/
// table schemes, which are not index-addressable.
func ParseChunkID(chunkID string) (documentID string, index int, ok bool) {
	i := strings.LastIndex(chunkID, "_chunk_")
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(chunkID[i+len("_chunk_"):])
	if err != nil {
		return "", 0, false
	}
	return chunkID[:i], n, true
}

// RetrievalResult is one scored chunk returned by retrieval or reranking.
type RetrievalResult struct {
	ChunkID    string
	Text       string
	Score      float64
	Metadata   map[string]interface{}
	DocumentID string
}

// ExtractedInitiative is an unpersisted candidate claim produced by one
// schema-constrained reasoning call. EvidenceQuote is verbatim text from the
// source chunk.
type ExtractedInitiative struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Category       string                 `json:"category"`
	Timeline       string                 `json:"timeline,omitempty"`
	Metrics        []string               `json:"metrics,omitempty"`
	Confidence     float64                `json:"confidence"`
	EvidenceQuote  string                 `json:"evidence_quote"`
	SourceChunkID  string                 `json:"-"`
	SourceContext  string                 `json:"-"`
	SourceMetadata map[string]interface{} `json:"-"`
}

// EvidenceRef ties one verbatim quote to the place it came from. Location
// fields are zero when the source chunk carried no such metadata.
type EvidenceRef struct {
	Quote      string
	Context    string
	ChunkID    string
	DocumentID string
	PageNumber int
	Section    string
}

// EvidenceRefOf builds the reference for a candidate from its source chunk
// metadata. The document ID falls back to the chunk-ID scheme when the
// metadata lacks one.
func EvidenceRefOf(c ExtractedInitiative) EvidenceRef {
	ref := EvidenceRef{
		Quote:   c.EvidenceQuote,
		Context: c.SourceContext,
		ChunkID: c.SourceChunkID,
	}
	if md := c.SourceMetadata; md != nil {
		ref.DocumentID, _ = md[MetadataKeyDocumentID].(string)
		ref.Section, _ = md[MetadataKeySectionHeading].(string)
		switch v := md[MetadataKeyPageNumber].(type) {
		case int:
			ref.PageNumber = v
		case int64:
			ref.PageNumber = int(v)
		case float64:
			ref.PageNumber = int(v)
		}
	}
	if ref.DocumentID == "" && c.SourceChunkID != "" {
		if docID, _, ok := ParseChunkID(c.SourceChunkID); ok {
			ref.DocumentID = docID
		}
	}
	return ref
}

// MergedInitiative is the canonical form of a deduplication group. Every
// member's evidence travels with the merge, location metadata included.
type MergedInitiative struct {
	Name        string
	Description string
	Category    string
	Timeline    string
	Metrics     []string
	Confidence  float64
	Evidence    []EvidenceRef
	MergedCount int
}

// CopyMetadata deep-copies a metadata map so chunks never share storage.
func CopyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
