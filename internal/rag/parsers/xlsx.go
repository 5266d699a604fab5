package parsers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// XlsxParser converts each spreadsheet sheet into a table. Supplementary
// financial data often arrives this way alongside the main filing.
type XlsxParser struct{}

// NewXlsxParser creates a new XlsxParser.
func NewXlsxParser() *XlsxParser {
	return &XlsxParser{}
}

// Supports reports whether the filename has an .xlsx extension.
func (p *XlsxParser) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".xlsx"
}

// Parse reads every sheet; each becomes one table and its markdown rendering
// contributes to the full text. Unreadable sheets are skipped.
func (p *XlsxParser) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX '%s': %w", filename, err)
	}
	defer f.Close()

	var tables []schema.Table
	var fullText []string

	for i, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil || len(rows) == 0 {
			continue
		}
		table := schema.Table{Index: i, Rows: rows}
		tables = append(tables, table)
		fullText = append(fullText, fmt.Sprintf("%s\n%s", sheetName, table.Markdown()))
	}

	return &schema.ParsedDocument{
		Text: strings.Join(fullText, "\n\n"),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(filename),
			"sheet_count":              len(tables),
		},
		Tables: tables,
	}, nil
}

var _ interfaces.DocumentParser = (*XlsxParser)(nil)
