package parsers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/unidoc/unioffice/v2/document"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// DocxParser extracts paragraph text, heading-delimited sections and tables
// from Word documents.
type DocxParser struct{}

// NewDocxParser creates a new DocxParser.
func NewDocxParser() *DocxParser {
	return &DocxParser{}
}

// Supports reports whether the filename has an OOXML Word extension. Legacy
// binary .doc files are not readable here and are rejected at the registry.
func (p *DocxParser) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".docx"
}

// Parse reads the document, building sections from Heading-styled paragraphs
// and collecting tables row-major.
func (p *DocxParser) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	doc, err := document.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX '%s': %w", filename, err)
	}
	defer doc.Close()

	var paragraphs []string
	var sections []schema.Section
	current := schema.Section{}

	for _, para := range doc.Paragraphs() {
		var sb strings.Builder
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		paragraphs = append(paragraphs, text)

		if level, ok := headingLevel(para); ok {
			if len(current.Content) > 0 || current.Heading != "" {
				sections = append(sections, current)
			}
			current = schema.Section{Heading: text, HeadingLevel: level}
		} else {
			current.Content = append(current.Content, text)
		}
	}
	if len(current.Content) > 0 || current.Heading != "" {
		sections = append(sections, current)
	}

	var tables []schema.Table
	for i, tbl := range doc.Tables() {
		var rows [][]string
		for _, row := range tbl.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				var cellText []string
				for _, cp := range cell.Paragraphs() {
					var cb strings.Builder
					for _, run := range cp.Runs() {
						cb.WriteString(run.Text())
					}
					if s := strings.TrimSpace(cb.String()); s != "" {
						cellText = append(cellText, s)
					}
				}
				cells = append(cells, strings.Join(cellText, " "))
			}
			rows = append(rows, cells)
		}
		tables = append(tables, schema.Table{Index: i, Rows: rows})
	}

	return &schema.ParsedDocument{
		Text: strings.Join(paragraphs, "\n\n"),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(filename),
		},
		Sections: sections,
		Tables:   tables,
	}, nil
}

// headingLevel returns the numeric level of a Heading-styled paragraph.
func headingLevel(para document.Paragraph) (int, bool) {
	x := para.X()
	if x.PPr == nil || x.PPr.PStyle == nil {
		return 0, false
	}
	style := x.PPr.PStyle.ValAttr
	if !strings.HasPrefix(style, "Heading") {
		return 0, false
	}
	level, err := strconv.Atoi(strings.TrimPrefix(style, "Heading"))
	if err != nil {
		return 1, true
	}
	return level, true
}

var _ interfaces.DocumentParser = (*DocxParser)(nil)
