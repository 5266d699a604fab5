package parsers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vbhandari/MgmtSays/internal/apperrors"
	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Registry routes raw document bytes to the first parser that supports the
// filename. Order is significant: specialized formats come before the plain
// text fallback, and the transcript parser must be tried before generic HTML
// handling would swallow its files.
type Registry struct {
	parsers []interfaces.DocumentParser
	log     *logger.Logger
}

// NewRegistry builds a registry with the default parser order.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		parsers: []interfaces.DocumentParser{
			NewPDFParser(),
			NewDocxParser(),
			NewPptxParser(),
			NewXlsxParser(),
			NewTranscriptParser(),
			NewTextParser(), // fallback for plain text
		},
		log: log,
	}
}

// NewRegistryWithParsers builds a registry with an explicit parser order.
func NewRegistryWithParsers(log *logger.Logger, parsers ...interfaces.DocumentParser) *Registry {
	return &Registry{parsers: parsers, log: log}
}

// Parse dispatches to the first matching parser. It returns
// apperrors.ErrUnsupportedFormat when no parser accepts the filename; no
// partial ParsedDocument is produced in that case.
func (r *Registry) Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error) {
	for _, p := range r.parsers {
		if !p.Supports(filename) {
			continue
		}
		if mismatch := r.sniffMismatch(content, filename); mismatch != "" {
			r.log.Warn(fmt.Sprintf("Content type %s does not match extension of '%s', parsing anyway", mismatch, filename))
		}
		return p.Parse(ctx, content, filename)
	}
	return nil, apperrors.UnsupportedFormat(filename)
}

// SupportedExtensions lists the extensions the default registry accepts.
func (r *Registry) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".pptx", ".xlsx", ".txt", ".md", ".markdown", ".rst", ".text", ".html", ".htm"}
}

// sniffMismatch detects obviously mislabeled files, e.g. an HTML page saved
// with a .pdf extension. Returns the detected MIME type on mismatch.
func (r *Registry) sniffMismatch(content []byte, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	detected := mimetype.Detect(content)
	switch ext {
	case ".pdf":
		if !detected.Is("application/pdf") {
			return detected.String()
		}
	case ".html", ".htm":
		if !detected.Is("text/html") && !strings.HasPrefix(detected.String(), "text/") {
			return detected.String()
		}
	}
	return ""
}
