package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vbhandari/MgmtSays/internal/models"
	"github.com/vbhandari/MgmtSays/internal/repository"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// CompanyService manages tracked companies. Purge is the only path that
// removes initiatives: deleting a company cascades through its documents,
// initiatives, insights and index collections.
type CompanyService struct {
	log         *logger.Logger
	companies   *repository.CompanyRepository
	initiatives *repository.InitiativeRepository
	insights    *repository.InsightRepository
	documents   *DocumentService
}

// NewCompanyService wires company management.
func NewCompanyService(
	companies *repository.CompanyRepository,
	initiatives *repository.InitiativeRepository,
	insights *repository.InsightRepository,
	documents *DocumentService,
) *CompanyService {
	return &CompanyService{
		log:         logger.New("service.company"),
		companies:   companies,
		initiatives: initiatives,
		insights:    insights,
		documents:   documents,
	}
}

// Create registers a new company.
func (s *CompanyService) Create(ctx context.Context, name, ticker, industry string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("company name is required")
	}
	company := &models.Company{
		ID:       uuid.NewString(),
		Name:     name,
		Ticker:   strings.ToUpper(strings.TrimSpace(ticker)),
		Industry: strings.TrimSpace(industry),
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	s.log.WithField("company_id", company.ID).WithField("name", company.Name).Info("company created")
	return company, nil
}

// Get returns a company record.
func (s *CompanyService) Get(ctx context.Context, companyID string) (*models.Company, error) {
	return s.companies.GetByID(ctx, companyID)
}

// List returns companies ordered by name.
func (s *CompanyService) List(ctx context.Context, offset, limit int) ([]models.Company, error) {
	return s.companies.List(ctx, offset, limit)
}

// Delete purges a company and everything derived from its documents.
func (s *CompanyService) Delete(ctx context.Context, companyID string) error {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return err
	}

	docs, err := s.documents.List(ctx, companyID, "", 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list documents for purge: %w", err)
	}
	for _, doc := range docs {
		if err := s.documents.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to purge document %s: %w", doc.ID, err)
		}
	}

	if n, err := s.insights.DeleteByCompany(ctx, companyID); err != nil {
		return fmt.Errorf("failed to purge insights: %w", err)
	} else if n > 0 {
		s.log.WithField("count", n).Debug("purged insights")
	}
	if n, err := s.initiatives.DeleteByCompany(ctx, companyID); err != nil {
		return fmt.Errorf("failed to purge initiatives: %w", err)
	} else if n > 0 {
		s.log.WithField("count", n).Debug("purged initiatives")
	}

	if err := s.companies.Delete(ctx, companyID); err != nil {
		return err
	}
	s.log.WithField("company_id", companyID).WithField("name", company.Name).Info("company deleted")
	return nil
}
