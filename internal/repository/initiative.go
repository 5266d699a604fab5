package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vbhandari/MgmtSays/internal/apperrors"
	"github.com/vbhandari/MgmtSays/internal/models"
)

// InitiativeRepository persists canonical Initiative records.
type InitiativeRepository struct {
	collection *mongo.Collection
}

// NewInitiativeRepository creates a repository over the initiatives
// collection.
func NewInitiativeRepository(db *mongo.Database) *InitiativeRepository {
	return &InitiativeRepository{collection: db.Collection("initiatives")}
}

// Create inserts a new initiative.
func (r *InitiativeRepository) Create(ctx context.Context, initiative *models.Initiative) error {
	now := time.Now().UTC()
	initiative.CreatedAt = now
	initiative.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, initiative)
	return err
}

// GetByID retrieves an initiative, returning a NotFound error when missing.
func (r *InitiativeRepository) GetByID(ctx context.Context, id string) (*models.Initiative, error) {
	var initiative models.Initiative
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&initiative)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("initiative", id)
		}
		return nil, err
	}
	return &initiative, nil
}

// ListByCompany returns a company's initiatives ordered by mention count.
// An empty category matches all categories.
func (r *InitiativeRepository) ListByCompany(ctx context.Context, companyID string, category models.Category, offset, limit int) ([]models.Initiative, error) {
	filter := bson.M{"company_id": companyID}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "mention_count", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var initiatives []models.Initiative
	if err := cursor.All(ctx, &initiatives); err != nil {
		return nil, err
	}
	return initiatives, nil
}

// FindSimilar returns the company's initiative whose name or keywords best
// overlap the candidate name, or nil when nothing crosses the match bar.
// This is a cheap lexical prefilter; the caller applies the full similarity
// judgment.
func (r *InitiativeRepository) FindSimilar(ctx context.Context, companyID, name string) (*models.Initiative, error) {
	candidates, err := r.ListByCompany(ctx, companyID, "", 0, 500)
	if err != nil {
		return nil, err
	}

	nameTerms := keywordSet(name)
	if len(nameTerms) == 0 {
		return nil, nil
	}

	var best *models.Initiative
	bestOverlap := 0
	for i := range candidates {
		overlap := 0
		terms := keywordSet(candidates[i].Name)
		for _, kw := range candidates[i].Keywords {
			terms[strings.ToLower(kw)] = true
		}
		for term := range nameTerms {
			if terms[term] {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = &candidates[i]
		}
	}

	// At least half the candidate's name terms must match.
	if best == nil || bestOverlap*2 < len(nameTerms) {
		return nil, nil
	}
	return best, nil
}

// RecordMention updates an initiative after a matching extraction:
// mention_count++, last_mentioned_at advanced, avg_confidence recomputed
// incrementally.
func (r *InitiativeRepository) RecordMention(ctx context.Context, initiative *models.Initiative, confidence float64, mentionedAt time.Time, newDocument bool) error {
	mentions := initiative.MentionCount + 1
	avg := (initiative.AvgConfidence*float64(initiative.MentionCount) + confidence) / float64(mentions)

	fields := bson.M{
		"mention_count":     mentions,
		"last_mentioned_at": mentionedAt,
		"avg_confidence":    avg,
		"updated_at":        time.Now().UTC(),
	}
	if newDocument {
		fields["document_count"] = initiative.DocumentCount + 1
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": initiative.ID}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("initiative", initiative.ID)
	}

	initiative.MentionCount = mentions
	initiative.LastMentionedAt = mentionedAt
	initiative.AvgConfidence = avg
	if newDocument {
		initiative.DocumentCount++
	}
	return nil
}

// DeleteByCompany purges every initiative of a company.
func (r *InitiativeRepository) DeleteByCompany(ctx context.Context, companyID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"company_id": companyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Keywords returns the informative terms of an initiative name, sorted, for
// storage alongside the canonical record.
func Keywords(name string) []string {
	set := keywordSet(name)
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// stopwords excluded from keyword matching.
var keywordStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "to": true,
	"and": true, "for": true, "new": true, "our": true,
}

func keywordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'")
		if len(w) < 3 || keywordStopwords[w] {
			continue
		}
		set[w] = true
	}
	return set
}
