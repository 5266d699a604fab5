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

// InsightRepository persists per-analysis Insight records.
type InsightRepository struct {
	collection *mongo.Collection
}

// NewInsightRepository creates a repository over the insights collection.
func NewInsightRepository(db *mongo.Database) *InsightRepository {
	return &InsightRepository{collection: db.Collection("insights")}
}

// Create inserts a new insight.
func (r *InsightRepository) Create(ctx context.Context, insight *models.Insight) error {
	insight.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, insight)
	return err
}

// GetByID retrieves an insight, returning a NotFound error when missing.
func (r *InsightRepository) GetByID(ctx context.Context, id string) (*models.Insight, error) {
	var insight models.Insight
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&insight)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("insight", id)
		}
		return nil, err
	}
	return &insight, nil
}

// ListByCompany returns a company's insights, newest first. An empty
// category matches all categories; limit <= 0 returns everything.
func (r *InsightRepository) ListByCompany(ctx context.Context, companyID string, category models.Category, offset, limit int) ([]models.Insight, error) {
	filter := bson.M{"company_id": companyID}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var insights []models.Insight
	if err := cursor.All(ctx, &insights); err != nil {
		return nil, err
	}
	return insights, nil
}

// ListByInitiative returns every insight linked to an initiative in mention
// order.
func (r *InsightRepository) ListByInitiative(ctx context.Context, initiativeID string) ([]models.Insight, error) {
	opts := options.Find().SetSort(bson.D{{Key: "first_mentioned_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"initiative_id": initiativeID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var insights []models.Insight
	if err := cursor.All(ctx, &insights); err != nil {
		return nil, err
	}
	return insights, nil
}

// CountByAnalysis returns the number of insights one analysis run produced.
func (r *InsightRepository) CountByAnalysis(ctx context.Context, analysisID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"analysis_id": analysisID})
}

// DeleteByCompany purges every insight of a company.
func (r *InsightRepository) DeleteByCompany(ctx context.Context, companyID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"company_id": companyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
