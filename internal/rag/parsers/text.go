package parsers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/vbhandari/MgmtSays/internal/apperrors"
	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// TextParser is the plain-text fallback. Markdown files additionally get
// heading-based sections.
type TextParser struct{}

// NewTextParser creates a new TextParser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".text": true,
}

// Supports reports whether the filename has a plain-text extension.
func (p *TextParser) Supports(filename string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Parse decodes the content, trying UTF-8, then UTF-16 (BOM), then Latin-1.
func (p *TextParser) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", filename, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	var sections []schema.Section
	if ext == ".md" || ext == ".markdown" {
		sections = markdownSections(text)
	}

	return &schema.ParsedDocument{
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(filename),
			"char_count":               len(text),
			"line_count":               strings.Count(text, "\n") + 1,
		},
		Sections: sections,
	}, nil
}

// decodeText determines the text encoding of raw bytes. NUL bytes without a
// UTF-16 BOM mean the content is binary, which is a DecodeError.
func decodeText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})), nil
	}
	if len(content) >= 2 {
		if content[0] == 0xFF && content[1] == 0xFE {
			return decodeUTF16(content[2:], false), nil
		}
		if content[0] == 0xFE && content[1] == 0xFF {
			return decodeUTF16(content[2:], true), nil
		}
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return "", apperrors.ErrDecode
	}
	// Latin-1: every byte maps directly to the code point of the same value.
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

func decodeUTF16(content []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(content)/2)
	for i := 0; i+1 < len(content); i += 2 {
		if bigEndian {
			units = append(units, uint16(content[i])<<8|uint16(content[i+1]))
		} else {
			units = append(units, uint16(content[i+1])<<8|uint16(content[i]))
		}
	}
	return string(utf16.Decode(units))
}

// markdownSections splits markdown text on heading lines.
func markdownSections(text string) []schema.Section {
	var sections []schema.Section
	current := schema.Section{}

	flush := func() {
		if len(current.Content) > 0 || current.Heading != "" {
			sections = append(sections, current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "#") {
			level := 0
			for level < len(stripped) && stripped[level] == '#' {
				level++
			}
			flush()
			current = schema.Section{
				Heading:      strings.TrimSpace(stripped[level:]),
				HeadingLevel: level,
			}
			continue
		}
		current.Content = append(current.Content, line)
	}
	flush()

	return sections
}

var _ interfaces.DocumentParser = (*TextParser)(nil)
