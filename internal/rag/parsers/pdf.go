package parsers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// PDFParser extracts per-page text from PDF filings.
type PDFParser struct{}

// NewPDFParser creates a new PDFParser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Supports reports whether the filename has a .pdf extension.
func (p *PDFParser) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}

// Parse extracts text page by page. Pages that fail text extraction are
// skipped rather than failing the whole document; a fully image-based PDF
// yields an empty text body, which the chunker rejects later.
func (p *PDFParser) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF '%s': %w", filename, err)
	}

	numPages := reader.NumPage()
	pages := make([]schema.Page, 0, numPages)
	var fullText []string

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, schema.Page{Number: i, Text: text})
		fullText = append(fullText, text)
	}

	return &schema.ParsedDocument{
		Text: strings.Join(fullText, "\n\n"),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(filename),
			"page_count":               numPages,
		},
		Pages: pages,
	}, nil
}

var _ interfaces.DocumentParser = (*PDFParser)(nil)
