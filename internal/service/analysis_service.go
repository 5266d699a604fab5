package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vbhandari/MgmtSays/internal/models"
	"github.com/vbhandari/MgmtSays/internal/rag/extraction"
	"github.com/vbhandari/MgmtSays/internal/rag/retrieval"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/internal/rag/temporal"
	"github.com/vbhandari/MgmtSays/internal/repository"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// extractionQuery biases retrieval toward forward-looking management
// statements.
const extractionQuery = "strategic initiatives goals plans investments expansion"

// AnalysisService runs extraction over a company's indexed documents:
// retrieve and extract per document, deduplicate the accumulated candidates
// once over the whole run, then match against known initiatives and record
// the resulting insights with evidence. A failing document is skipped, not
// fatal.
type AnalysisService struct {
	log               *logger.Logger
	analyses          *repository.AnalysisRepository
	documents         *repository.DocumentRepository
	companies         *repository.CompanyRepository
	initiatives       *repository.InitiativeRepository
	insights          *repository.InsightRepository
	evidence          *repository.EvidenceRepository
	retriever         *retrieval.Retriever
	extractor         *extraction.Extractor
	deduplicator      *extraction.Deduplicator
	classifier        *extraction.Classifier
	extractionTopK    int
	modifiedThreshold float64
}

// NewAnalysisService wires the analysis pipeline.
func NewAnalysisService(
	analyses *repository.AnalysisRepository,
	documents *repository.DocumentRepository,
	companies *repository.CompanyRepository,
	initiatives *repository.InitiativeRepository,
	insights *repository.InsightRepository,
	evidence *repository.EvidenceRepository,
	retriever *retrieval.Retriever,
	extractor *extraction.Extractor,
	deduplicator *extraction.Deduplicator,
	classifier *extraction.Classifier,
	extractionTopK int,
	modifiedThreshold float64,
) *AnalysisService {
	return &AnalysisService{
		log:               logger.New("service.analysis"),
		analyses:          analyses,
		documents:         documents,
		companies:         companies,
		initiatives:       initiatives,
		insights:          insights,
		evidence:          evidence,
		retriever:         retriever,
		extractor:         extractor,
		deduplicator:      deduplicator,
		classifier:        classifier,
		extractionTopK:    extractionTopK,
		modifiedThreshold: modifiedThreshold,
	}
}

// Start registers a new analysis run in pending state. An empty documentIDs
// slice means every completed document of the company.
func (s *AnalysisService) Start(ctx context.Context, companyID string, documentIDs []string) (*models.Analysis, error) {
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, err
	}
	analysis := &models.Analysis{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		DocumentIDs: documentIDs,
		Status:      models.StatusPending,
	}
	if err := s.analyses.Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to create analysis record: %w", err)
	}
	return analysis, nil
}

// Get returns an analysis run.
func (s *AnalysisService) Get(ctx context.Context, analysisID string) (*models.Analysis, error) {
	return s.analyses.GetByID(ctx, analysisID)
}

// Run executes a pending analysis to completion, updating progress per
// document. Any error that escapes the per-document loop marks the run
// failed.
func (s *AnalysisService) Run(ctx context.Context, analysisID string) error {
	analysis, err := s.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return err
	}
	company, err := s.companies.GetByID(ctx, analysis.CompanyID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.analyses.Update(ctx, analysis.ID, bson.M{
		"status":     models.StatusProcessing,
		"started_at": now,
	}); err != nil {
		return err
	}

	insightCount, err := s.run(ctx, analysis, company)
	if err != nil {
		s.log.WithError(err).WithField("analysis_id", analysis.ID).Error("analysis failed")
		if uerr := s.analyses.Update(ctx, analysis.ID, bson.M{
			"status":        models.StatusFailed,
			"error_message": err.Error(),
		}); uerr != nil {
			s.log.WithError(uerr).Error("failed to record failure status")
		}
		return err
	}

	done := time.Now().UTC()
	return s.analyses.Update(ctx, analysis.ID, bson.M{
		"status":        models.StatusCompleted,
		"progress":      100,
		"insight_count": insightCount,
		"completed_at":  done,
	})
}

func (s *AnalysisService) run(ctx context.Context, analysis *models.Analysis, company *models.Company) (int, error) {
	docs, err := s.resolveDocuments(ctx, analysis)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("company %s has no completed documents to analyze", analysis.CompanyID)
	}

	docsByID := make(map[string]*models.Document, len(docs))
	var candidates []schema.ExtractedInitiative
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		doc := &docs[i]
		docsByID[doc.ID] = doc
		found, err := s.extractFromDocument(ctx, company, doc)
		if err != nil {
			s.log.WithError(err).WithField("document_id", doc.ID).Warn("skipping document")
		} else {
			candidates = append(candidates, found...)
		}
		// Extraction dominates the run; merging and persistence share the tail.
		progress := (i + 1) * 90 / len(docs)
		if err := s.analyses.SetProgress(ctx, analysis.ID, progress); err != nil {
			s.log.WithError(err).Warn("failed to update progress")
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	// One deduplication over the whole run, so the same initiative mentioned
	// in several documents collapses into a single record carrying evidence
	// from each of them.
	merged, err := s.deduplicator.Deduplicate(ctx, candidates)
	if err != nil {
		return 0, fmt.Errorf("deduplication failed: %w", err)
	}

	created := 0
	for _, m := range merged {
		if err := s.recordInsight(ctx, analysis, company, m, docsByID); err != nil {
			s.log.WithError(err).WithField("initiative", m.Name).Warn("failed to record insight")
			continue
		}
		created++
	}
	return created, nil
}

func (s *AnalysisService) resolveDocuments(ctx context.Context, analysis *models.Analysis) ([]models.Document, error) {
	if len(analysis.DocumentIDs) > 0 {
		docs := make([]models.Document, 0, len(analysis.DocumentIDs))
		for _, id := range analysis.DocumentIDs {
			doc, err := s.documents.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if doc.Status != models.StatusCompleted {
				return nil, fmt.Errorf("document %s is not indexed (status %s)", doc.ID, doc.Status)
			}
			docs = append(docs, *doc)
		}
		return docs, nil
	}
	return s.documents.ListByCompany(ctx, analysis.CompanyID, models.StatusCompleted, 0, 1000)
}

// extractFromDocument runs retrieval and extraction for one document and
// returns the candidate initiatives found in it.
func (s *AnalysisService) extractFromDocument(ctx context.Context, company *models.Company, doc *models.Document) ([]schema.ExtractedInitiative, error) {
	chunks, err := s.retriever.Retrieve(ctx, extractionQuery, doc.CompanyID, s.extractionTopK, &retrieval.Options{
		DocumentIDs: []string{doc.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	if len(chunks) == 0 {
		s.log.WithField("document_id", doc.ID).Info("no chunks retrieved, nothing to extract")
		return nil, nil
	}
	return s.extractor.ExtractFromChunks(ctx, chunks, company.Name, doc.DocumentType), nil
}

// mentionSource picks when and where an initiative was first mentioned in
// this run: the earliest-dated document among its evidence, falling back to
// the earliest document of the run when no evidence names one.
func mentionSource(m schema.MergedInitiative, docsByID map[string]*models.Document) (time.Time, *models.Document) {
	var best *models.Document
	var bestAt time.Time
	consider := func(doc *models.Document) {
		at := doc.CreatedAt
		if doc.DocumentDate != nil {
			at = *doc.DocumentDate
		}
		if best == nil || at.Before(bestAt) {
			best, bestAt = doc, at
		}
	}
	for _, ref := range m.Evidence {
		if doc, ok := docsByID[ref.DocumentID]; ok {
			consider(doc)
		}
	}
	if best == nil {
		for _, doc := range docsByID {
			consider(doc)
		}
	}
	return bestAt, best
}

// firstQuote returns the first non-empty evidence quote of a merged
// initiative, used as classification context.
func firstQuote(m schema.MergedInitiative) string {
	for _, ref := range m.Evidence {
		if ref.Quote != "" {
			return ref.Quote
		}
	}
	return ""
}

// recordInsight matches one merged extraction against the company's known
// initiatives, updates or creates the canonical record, and persists the
// insight with its evidence. Each evidence row keeps the document, page and
// section its quote came from.
func (s *AnalysisService) recordInsight(ctx context.Context, analysis *models.Analysis, company *models.Company, m schema.MergedInitiative, docsByID map[string]*models.Document) error {
	mentionedAt, firstDoc := mentionSource(m, docsByID)
	if firstDoc == nil {
		return fmt.Errorf("no source document resolvable for initiative %q", m.Name)
	}

	existing, err := s.initiatives.FindSimilar(ctx, company.ID, m.Name)
	if err != nil {
		return fmt.Errorf("initiative lookup failed: %w", err)
	}

	var initiative *models.Initiative
	if existing != nil {
		newDocument := existing.FirstDocumentID != firstDoc.ID
		if err := s.initiatives.RecordMention(ctx, existing, m.Confidence, mentionedAt, newDocument); err != nil {
			return err
		}
		initiative = existing
	} else {
		initiative = &models.Initiative{
			ID:               uuid.NewString(),
			CompanyID:        company.ID,
			Name:             m.Name,
			Description:      m.Description,
			Category:         models.Category(m.Category),
			FirstMentionedAt: mentionedAt,
			LastMentionedAt:  mentionedAt,
			FirstDocumentID:  firstDoc.ID,
			MentionCount:     1,
			DocumentCount:    1,
			AvgConfidence:    m.Confidence,
			IsActive:         true,
			Keywords:         repository.Keywords(m.Name),
		}
		if err := s.initiatives.Create(ctx, initiative); err != nil {
			return fmt.Errorf("failed to create initiative: %w", err)
		}
	}

	classification, err := s.classifier.Classify(ctx, m.Name+": "+m.Description, firstQuote(m), company.Industry)
	if err != nil {
		s.log.WithError(err).WithField("initiative", m.Name).Warn("classification failed, keeping defaults")
	}

	state := temporal.ClassifyMention(existing == nil, initiative.Description, m.Description, s.modifiedThreshold)
	insight := &models.Insight{
		ID:               uuid.NewString(),
		CompanyID:        company.ID,
		AnalysisID:       analysis.ID,
		InitiativeID:     initiative.ID,
		Title:            m.Name,
		Description:      m.Description,
		Category:         models.Category(m.Category),
		ConfidenceScore:  m.Confidence,
		ConfidenceLevel:  models.LevelForScore(m.Confidence),
		Sentiment:        classification.Sentiment,
		ImportanceScore:  classification.ImportanceScore,
		Actionability:    classification.Actionability,
		IsNew:            state.IsNew,
		IsReiterated:     state.IsReiterated,
		IsModified:       state.IsModified,
		FirstMentionedAt: initiative.FirstMentionedAt,
	}
	if err := s.insights.Create(ctx, insight); err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}

	evidence := make([]models.Evidence, 0, len(m.Evidence))
	for _, ref := range m.Evidence {
		if ref.Quote == "" {
			continue
		}
		documentID := ref.DocumentID
		if documentID == "" {
			documentID = firstDoc.ID
		}
		evidence = append(evidence, models.Evidence{
			ID:             uuid.NewString(),
			InsightID:      insight.ID,
			DocumentID:     documentID,
			Quote:          ref.Quote,
			Context:        ref.Context,
			PageNumber:     ref.PageNumber,
			Section:        ref.Section,
			ChunkID:        ref.ChunkID,
			RelevanceScore: m.Confidence,
		})
	}
	if err := s.evidence.CreateMany(ctx, evidence); err != nil {
		return fmt.Errorf("failed to store evidence: %w", err)
	}
	return nil
}
