package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vbhandari/MgmtSays/internal/models"
)

// EvidenceRepository persists citation records.
type EvidenceRepository struct {
	collection *mongo.Collection
}

// NewEvidenceRepository creates a repository over the evidence collection.
func NewEvidenceRepository(db *mongo.Database) *EvidenceRepository {
	return &EvidenceRepository{collection: db.Collection("evidence")}
}

// CreateMany inserts citations for one insight in a single call.
func (r *EvidenceRepository) CreateMany(ctx context.Context, evidence []models.Evidence) error {
	if len(evidence) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(evidence))
	for i := range evidence {
		evidence[i].CreatedAt = now
		docs[i] = evidence[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// ListByInsight returns the citations supporting an insight, strongest
// first.
func (r *EvidenceRepository) ListByInsight(ctx context.Context, insightID string) ([]models.Evidence, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"insight_id": insightID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var evidence []models.Evidence
	if err := cursor.All(ctx, &evidence); err != nil {
		return nil, err
	}
	return evidence, nil
}

// DeleteByDocument removes citations referencing a deleted document.
func (r *EvidenceRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
