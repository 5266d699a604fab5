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

// CompanyRepository persists Company records.
type CompanyRepository struct {
	collection *mongo.Collection
}

// NewCompanyRepository creates a repository over the companies collection.
func NewCompanyRepository(db *mongo.Database) *CompanyRepository {
	return &CompanyRepository{collection: db.Collection("companies")}
}

// Create inserts a new company.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, company)
	return err
}

// GetByID retrieves a company, returning a NotFound error when missing.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&company)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("company", id)
		}
		return nil, err
	}
	return &company, nil
}

// List returns companies ordered by name.
func (r *CompanyRepository) List(ctx context.Context, offset, limit int) ([]models.Company, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var companies []models.Company
	if err := cursor.All(ctx, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// Update applies a partial update to a company.
func (r *CompanyRepository) Update(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("company", id)
	}
	return nil
}

// Delete removes a company record.
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("company", id)
	}
	return nil
}
