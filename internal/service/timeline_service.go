package service

import (
	"context"

	"github.com/vbhandari/MgmtSays/internal/models"
	"github.com/vbhandari/MgmtSays/internal/rag/temporal"
	"github.com/vbhandari/MgmtSays/internal/repository"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// TimelineService answers temporal questions about a company's initiatives:
// per-period buckets, trend counts and mention rankings.
type TimelineService struct {
	log         *logger.Logger
	insights    *repository.InsightRepository
	initiatives *repository.InitiativeRepository
}

// NewTimelineService wires the temporal read paths.
func NewTimelineService(insights *repository.InsightRepository, initiatives *repository.InitiativeRepository) *TimelineService {
	return &TimelineService{
		log:         logger.New("service.timeline"),
		insights:    insights,
		initiatives: initiatives,
	}
}

// Timeline groups every insight of a company into chronological period
// buckets.
func (s *TimelineService) Timeline(ctx context.Context, companyID string, groupBy temporal.Grouping) ([]temporal.PeriodBucket, error) {
	insights, err := s.insights.ListByCompany(ctx, companyID, "", 0, 0)
	if err != nil {
		return nil, err
	}
	return temporal.BucketInsights(insights, groupBy), nil
}

// Trends summarizes new-vs-reiterated counts per quarter and the category
// distribution across all of a company's insights.
func (s *TimelineService) Trends(ctx context.Context, companyID string) (*temporal.Trends, error) {
	insights, err := s.insights.ListByCompany(ctx, companyID, "", 0, 0)
	if err != nil {
		return nil, err
	}
	t := temporal.ComputeTrends(insights)
	return &t, nil
}

// MostDiscussed returns the company's initiatives ranked by mention count.
func (s *TimelineService) MostDiscussed(ctx context.Context, companyID string, limit int) ([]models.Initiative, error) {
	initiatives, err := s.initiatives.ListByCompany(ctx, companyID, "", 0, 0)
	if err != nil {
		return nil, err
	}
	return temporal.MostDiscussed(initiatives, limit), nil
}

// InitiativeHistory is one initiative with its mentions in chronological
// order.
type InitiativeHistory struct {
	Initiative models.Initiative `json:"initiative"`
	Mentions   []models.Insight  `json:"mentions"`
}

// History returns the full mention history of one initiative.
func (s *TimelineService) History(ctx context.Context, initiativeID string) (*InitiativeHistory, error) {
	initiative, err := s.initiatives.GetByID(ctx, initiativeID)
	if err != nil {
		return nil, err
	}
	mentions, err := s.insights.ListByInitiative(ctx, initiativeID)
	if err != nil {
		return nil, err
	}
	return &InitiativeHistory{Initiative: *initiative, Mentions: mentions}, nil
}
