package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vbhandari/MgmtSays/internal/apperrors"
	"github.com/vbhandari/MgmtSays/internal/models"
)

// AnalysisRepository persists Analysis run records.
type AnalysisRepository struct {
	collection *mongo.Collection
}

// NewAnalysisRepository creates a repository over the analyses collection.
func NewAnalysisRepository(db *mongo.Database) *AnalysisRepository {
	return &AnalysisRepository{collection: db.Collection("analyses")}
}

// Create inserts a new analysis run.
func (r *AnalysisRepository) Create(ctx context.Context, analysis *models.Analysis) error {
	analysis.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, analysis)
	return err
}

// GetByID retrieves an analysis, returning a NotFound error when missing.
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*models.Analysis, error) {
	var analysis models.Analysis
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&analysis)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("analysis", id)
		}
		return nil, err
	}
	return &analysis, nil
}

// ListByCompany returns a company's analysis runs, newest first.
func (r *AnalysisRepository) ListByCompany(ctx context.Context, companyID string, offset, limit int) ([]models.Analysis, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"company_id": companyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var analyses []models.Analysis
	if err := cursor.All(ctx, &analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

// Update applies a partial update to an analysis run.
func (r *AnalysisRepository) Update(ctx context.Context, id string, fields bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("analysis", id)
	}
	return nil
}

// SetProgress records the job's completion percentage. Only the owning
// worker writes progress, so there is no competing writer to guard against.
func (r *AnalysisRepository) SetProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return r.Update(ctx, id, bson.M{"progress": progress})
}
