package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbhandari/MgmtSays/internal/apperrors"
	"github.com/vbhandari/MgmtSays/internal/models"
	"github.com/vbhandari/MgmtSays/internal/rag/chunkers"
	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/parsers"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/internal/repository"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// DocumentService owns the document lifecycle: upload with duplicate
// rejection, parse-chunk-index processing, and full removal. Processing is
// strictly sequential per document; concurrency lives in the job layer.
type DocumentService struct {
	log        *logger.Logger
	documents  *repository.DocumentRepository
	companies  *repository.CompanyRepository
	evidence   *repository.EvidenceRepository
	storage    interfaces.Storage
	registry   *parsers.Registry
	semantic   *chunkers.SemanticChunker
	structural *chunkers.StructuralChunker
	store      interfaces.VectorStore
}

// NewDocumentService wires the document pipeline.
func NewDocumentService(
	documents *repository.DocumentRepository,
	companies *repository.CompanyRepository,
	evidence *repository.EvidenceRepository,
	storage interfaces.Storage,
	registry *parsers.Registry,
	semantic *chunkers.SemanticChunker,
	structural *chunkers.StructuralChunker,
	store interfaces.VectorStore,
) *DocumentService {
	return &DocumentService{
		log:        logger.New("service.document"),
		documents:  documents,
		companies:  companies,
		evidence:   evidence,
		storage:    storage,
		registry:   registry,
		semantic:   semantic,
		structural: structural,
		store:      store,
	}
}

// UploadRequest carries the fields of a document upload.
type UploadRequest struct {
	CompanyID    string
	Filename     string
	Title        string
	DocumentType string
	Content      []byte
}

// Upload validates and stores a new document, leaving it in pending state for
// the processing job. Uploading a byte-identical file for the same company
// fails with ErrDuplicateDocument.
func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	if _, err := s.companies.GetByID(ctx, req.CompanyID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	supported := false
	for _, e := range s.registry.SupportedExtensions() {
		if e == ext {
			supported = true
			break
		}
	}
	if !supported {
		return nil, apperrors.UnsupportedFormat(req.Filename)
	}

	sum := sha256.Sum256(req.Content)
	contentHash := hex.EncodeToString(sum[:])
	existing, err := s.documents.GetByHash(ctx, req.CompanyID, contentHash)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("'%s' matches document %s: %w", req.Filename, existing.ID, apperrors.ErrDuplicateDocument)
	}

	path, err := s.storage.Save(ctx, req.Content, req.Filename, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	title := req.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(req.Filename), ext)
	}
	doc := &models.Document{
		ID:           uuid.NewString(),
		CompanyID:    req.CompanyID,
		Filename:     filepath.Base(req.Filename),
		Title:        title,
		DocumentType: req.DocumentType,
		FileSize:     int64(len(req.Content)),
		StoragePath:  path,
		ContentHash:  contentHash,
		Status:       models.StatusPending,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	s.log.WithField("document_id", doc.ID).WithField("filename", doc.Filename).Info("document uploaded")
	return doc, nil
}

// Process runs one document through parse, chunk and index, transitioning
// its status from pending to completed or failed.
func (s *DocumentService) Process(ctx context.Context, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.documents.SetStatus(ctx, doc.ID, models.StatusProcessing, ""); err != nil {
		return err
	}

	if err := s.process(ctx, doc); err != nil {
		s.log.WithError(err).WithField("document_id", doc.ID).Error("document processing failed")
		if serr := s.documents.SetStatus(ctx, doc.ID, models.StatusFailed, err.Error()); serr != nil {
			s.log.WithError(serr).Error("failed to record failure status")
		}
		return err
	}
	return nil
}

func (s *DocumentService) process(ctx context.Context, doc *models.Document) error {
	content, err := s.storage.Read(ctx, doc.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to read stored document: %w", err)
	}

	parsed, err := s.registry.Parse(ctx, content, doc.Filename)
	if err != nil {
		return err
	}

	chunks, err := s.chunk(ctx, parsed, doc.ID)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document '%s' produced no chunks", doc.Filename)
	}
	for i := range chunks {
		chunks[i].Metadata[schema.MetadataKeyCompanyID] = doc.CompanyID
	}

	if err := s.store.Upsert(ctx, chunks, doc.CompanyID, doc.ID); err != nil {
		return err
	}

	return s.documents.Update(ctx, doc.ID, map[string]interface{}{
		"status":      models.StatusCompleted,
		"chunk_count": len(chunks),
		"word_count":  len(strings.Fields(parsed.Text)),
	})
}

// chunk picks the structural chunker when the parser preserved pages or
// sections, and falls back to semantic windowing for flat text.
func (s *DocumentService) chunk(ctx context.Context, parsed *schema.ParsedDocument, documentID string) ([]schema.Chunk, error) {
	if len(parsed.Pages) > 0 || len(parsed.Sections) > 0 || len(parsed.Tables) > 0 {
		return s.structural.Chunk(ctx, parsed, documentID)
	}
	return s.semantic.Chunk(ctx, parsed, documentID)
}

// Get returns a document record.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*models.Document, error) {
	return s.documents.GetByID(ctx, documentID)
}

// List returns a company's documents.
func (s *DocumentService) List(ctx context.Context, companyID string, status models.ProcessingStatus, offset, limit int) ([]models.Document, error) {
	return s.documents.ListByCompany(ctx, companyID, status, offset, limit)
}

// Delete removes a document everywhere: vector index, object storage,
// evidence citations and the record itself. Storage cleanup failures are
// logged but do not block the delete.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteByDocument(ctx, doc.ID, doc.CompanyID); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
		s.log.WithError(err).WithField("path", doc.StoragePath).Warn("failed to delete stored file")
	}
	if n, err := s.evidence.DeleteByDocument(ctx, doc.ID); err != nil {
		s.log.WithError(err).Warn("failed to delete evidence citations")
	} else if n > 0 {
		s.log.WithField("count", n).Debug("deleted evidence citations")
	}

	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		return err
	}
	s.log.WithField("document_id", doc.ID).Info("document deleted")
	return nil
}
