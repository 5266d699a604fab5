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

// DocumentRepository persists Document records.
type DocumentRepository struct {
	collection *mongo.Collection
}

// NewDocumentRepository creates a repository over the documents collection.
func NewDocumentRepository(db *mongo.Database) *DocumentRepository {
	return &DocumentRepository{collection: db.Collection("documents")}
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

// GetByID retrieves a document, returning a NotFound error when missing.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("document", id)
		}
		return nil, err
	}
	return &doc, nil
}

// GetByHash looks up a company's document by content hash. Returns nil with
// no error when no duplicate exists.
func (r *DocumentRepository) GetByHash(ctx context.Context, companyID, contentHash string) (*models.Document, error) {
	var doc models.Document
	err := r.collection.FindOne(ctx, bson.M{
		"company_id":   companyID,
		"content_hash": contentHash,
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// ListByCompany returns a company's documents, newest first. An empty status
// matches all statuses.
func (r *DocumentRepository) ListByCompany(ctx context.Context, companyID string, status models.ProcessingStatus, offset, limit int) ([]models.Document, error) {
	filter := bson.M{"company_id": companyID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Update applies a partial update to a document.
func (r *DocumentRepository) Update(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("document", id)
	}
	return nil
}

// SetStatus transitions the processing status, recording an error message on
// failure states.
func (r *DocumentRepository) SetStatus(ctx context.Context, id string, status models.ProcessingStatus, errorMessage string) error {
	fields := bson.M{"status": status}
	if errorMessage != "" {
		fields["error_message"] = errorMessage
	}
	return r.Update(ctx, id, fields)
}

// Delete removes a document record.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("document", id)
	}
	return nil
}
