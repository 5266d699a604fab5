package parsers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/unidoc/unioffice/v2/presentation"
	"github.com/unidoc/unioffice/v2/schema/soo/pml"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// PptxParser extracts per-slide text from slide decks. Slides land in the
// Pages view; slide titles group slides into sections.
type PptxParser struct{}

// NewPptxParser creates a new PptxParser.
func NewPptxParser() *PptxParser {
	return &PptxParser{}
}

// Supports reports whether the filename has an OOXML PowerPoint extension.
// Legacy binary .ppt files are not readable here and are rejected at the
// registry.
func (p *PptxParser) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pptx"
}

// Parse walks each slide's placeholders, recording slide text, title and
// embedded tables. Slides with no text are dropped.
func (p *PptxParser) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	prs, err := presentation.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PPTX '%s': %w", filename, err)
	}
	defer prs.Close()

	var pages []schema.Page
	var fullText []string

	for slideNum, slide := range prs.Slides() {
		num := slideNum + 1
		var slideParts []string
		title := ""

		for _, ph := range slide.PlaceHolders() {
			var phParts []string
			for _, para := range ph.Paragraphs() {
				var sb strings.Builder
				for _, run := range para.X().EG_TextRun {
					if run.TextRunChoice != nil && run.TextRunChoice.R != nil {
						sb.WriteString(run.TextRunChoice.R.T)
					}
				}
				if s := strings.TrimSpace(sb.String()); s != "" {
					phParts = append(phParts, s)
				}
			}
			if len(phParts) == 0 {
				continue
			}
			text := strings.Join(phParts, "\n")
			slideParts = append(slideParts, text)
			if title == "" && isTitlePlaceholder(ph.Type()) {
				title = text
			}
		}

		slideText := strings.Join(slideParts, "\n")
		if strings.TrimSpace(slideText) == "" {
			continue
		}
		pages = append(pages, schema.Page{Number: num, Title: title, Text: slideText})
		fullText = append(fullText, fmt.Sprintf("--- Slide %d ---\n%s", num, slideText))
	}

	return &schema.ParsedDocument{
		Text: strings.Join(fullText, "\n\n"),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(filename),
			"slide_count":              len(prs.Slides()),
		},
		Pages:    pages,
		Sections: slideSections(pages),
	}, nil
}

func isTitlePlaceholder(t pml.ST_PlaceholderType) bool {
	return t == pml.ST_PlaceholderTypeTitle || t == pml.ST_PlaceholderTypeCtrTitle
}

// slideSections groups slides under their titles: a titled slide opens a
// section; untitled slides append to the open one.
func slideSections(pages []schema.Page) []schema.Section {
	var sections []schema.Section
	var current *schema.Section

	for _, page := range pages {
		switch {
		case page.Title != "":
			if current != nil {
				sections = append(sections, *current)
			}
			current = &schema.Section{Heading: page.Title, HeadingLevel: 1, Content: []string{page.Text}}
		case current != nil:
			current.Content = append(current.Content, page.Text)
		default:
			current = &schema.Section{
				Heading:      fmt.Sprintf("Slide %d", page.Number),
				HeadingLevel: 2,
				Content:      []string{page.Text},
			}
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

var _ interfaces.DocumentParser = (*PptxParser)(nil)
