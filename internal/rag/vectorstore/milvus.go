package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/vbhandari/MgmtSays/internal/apperrors"
	"github.com/vbhandari/MgmtSays/internal/database/milvus"
	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Schema fields of a company collection.
const (
	FieldID             = "id"
	FieldText           = "text"
	FieldEmbedding      = "embedding"
	FieldDocumentID     = "document_id"
	FieldCompanyID      = "company_id"
	FieldChunkType      = "chunk_type"
	FieldSectionHeading = "section_heading"
	FieldSpeakerRole    = "speaker_role"
	FieldChunkIndex     = "chunk_index"
	FieldPageNumber     = "page_number"
)

var outputFields = []string{
	FieldID, FieldText, FieldDocumentID, FieldCompanyID, FieldChunkType,
	FieldSectionHeading, FieldSpeakerRole, FieldChunkIndex, FieldPageNumber,
}

var collectionNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// CollectionName returns the Milvus collection name for a company. Milvus
// collection names only allow letters, digits and underscores.
func CollectionName(companyID string) string {
	return "company_" + collectionNameSanitizer.ReplaceAllString(companyID, "_")
}

// MilvusStore stores chunks with embeddings in one Milvus collection per
// company. Collections are created lazily on first write and the existence
// check is cached for the process lifetime.
type MilvusStore struct {
	log      *logger.Logger
	client   client.Client
	embedder interfaces.EmbeddingModel
	dim      int

	mu    sync.Mutex
	known map[string]bool // collections verified to exist and be loaded
}

// NewMilvusStore creates a store over an established Milvus connection.
func NewMilvusStore(mc *milvus.Client, embedder interfaces.EmbeddingModel, dim int) (*MilvusStore, error) {
	if mc == nil || mc.Milvus == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:      logger.New("vectorstore"),
		client:   mc.Milvus,
		embedder: embedder,
		dim:      dim,
		known:    make(map[string]bool),
	}, nil
}

// Upsert embeds the chunks in one batch call and writes them to the company's
// collection. Existing rows with the same chunk IDs are replaced, so
// re-indexing a document is idempotent.
func (s *MilvusStore) Upsert(ctx context.Context, chunks []schema.Chunk, companyID, documentID string) error {
	if len(chunks) == 0 {
		return nil
	}
	collection := CollectionName(companyID)
	if err := s.ensureCollection(ctx, collection); err != nil {
		return &apperrors.IndexOperationError{Op: "upsert", Err: err}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return &apperrors.IndexOperationError{Op: "embed", Err: err}
	}

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	companyIDs := make([]string, len(chunks))
	chunkTypes := make([]string, len(chunks))
	headings := make([]string, len(chunks))
	speakerRoles := make([]string, len(chunks))
	chunkIndexes := make([]int64, len(chunks))
	pageNumbers := make([]int64, len(chunks))

	for i, c := range chunks {
		ids[i] = c.ID
		docIDs[i] = documentID
		companyIDs[i] = companyID
		chunkTypes[i], _ = c.Metadata[schema.MetadataKeyChunkType].(string)
		headings[i], _ = c.Metadata[schema.MetadataKeySectionHeading].(string)
		speakerRoles[i], _ = c.Metadata[schema.MetadataKeySpeakerRole].(string)
		chunkIndexes[i] = metadataInt64(c.Metadata, schema.MetadataKeyChunkIndex)
		pageNumbers[i] = metadataInt64(c.Metadata, schema.MetadataKeyPageNumber)
	}

	// Replace any rows left over from a previous indexing of these chunks.
	if err := s.client.Delete(ctx, collection, "", idInExpr(ids)); err != nil {
		return &apperrors.IndexOperationError{Op: "upsert", Err: err}
	}

	_, err = s.client.Insert(ctx, collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnFloatVector(FieldEmbedding, s.dim, embeddings),
		entity.NewColumnVarChar(FieldDocumentID, docIDs),
		entity.NewColumnVarChar(FieldCompanyID, companyIDs),
		entity.NewColumnVarChar(FieldChunkType, chunkTypes),
		entity.NewColumnVarChar(FieldSectionHeading, headings),
		entity.NewColumnVarChar(FieldSpeakerRole, speakerRoles),
		entity.NewColumnInt64(FieldChunkIndex, chunkIndexes),
		entity.NewColumnInt64(FieldPageNumber, pageNumbers),
	)
	if err != nil {
		return &apperrors.IndexOperationError{Op: "upsert", Err: err}
	}

	if err := s.client.Flush(ctx, collection, false); err != nil {
		return &apperrors.IndexOperationError{Op: "flush", Err: err}
	}

	s.log.WithPayload(map[string]interface{}{
		"collection": collection,
		"document":   documentID,
		"chunks":     len(chunks),
	}).Info("indexed document chunks")
	return nil
}

// Search runs a vector similarity search in the company's collection with an
// optional metadata filter. Results come back in descending score order.
func (s *MilvusStore) Search(ctx context.Context, companyID string, embedding []float32, topK int, filter map[string]interface{}) ([]schema.RetrievalResult, error) {
	collection := CollectionName(companyID)
	if err := s.ensureCollection(ctx, collection); err != nil {
		return nil, &apperrors.IndexOperationError{Op: "search", Err: err}
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.client.Search(
		ctx, collection, nil, buildFilterExpr(filter), outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, &apperrors.IndexOperationError{Op: "search", Err: err}
	}

	var results []schema.RetrievalResult
	for _, res := range searchResults {
		for i := 0; i < res.ResultCount; i++ {
			r := resultFromFields(res.Fields, i)
			r.Score = float64(res.Scores[i])
			r.Metadata[schema.MetadataKeyScore] = r.Score
			results = append(results, r)
		}
	}
	return results, nil
}

// FetchByMetadata returns all chunks in the company's collection matching the
// filter, without similarity scoring. Used for context-window expansion.
func (s *MilvusStore) FetchByMetadata(ctx context.Context, companyID string, filter map[string]interface{}) ([]schema.Chunk, error) {
	collection := CollectionName(companyID)
	if err := s.ensureCollection(ctx, collection); err != nil {
		return nil, &apperrors.IndexOperationError{Op: "fetch", Err: err}
	}

	expr := buildFilterExpr(filter)
	if expr == "" {
		return nil, fmt.Errorf("fetch by metadata requires a non-empty filter")
	}

	rs, err := s.client.Query(ctx, collection, nil, expr, outputFields)
	if err != nil {
		return nil, &apperrors.IndexOperationError{Op: "fetch", Err: err}
	}

	var count int
	if idCol := rs.GetColumn(FieldID); idCol != nil {
		count = idCol.Len()
	}

	chunks := make([]schema.Chunk, 0, count)
	for i := 0; i < count; i++ {
		r := resultFromFields(rs, i)
		chunks = append(chunks, schema.Chunk{
			ID:       r.ChunkID,
			Text:     r.Text,
			Metadata: r.Metadata,
		})
	}
	return chunks, nil
}

// DeleteByDocument removes every chunk of a document from the company's
// collection. Failure is surfaced as an IndexOperationError; the caller
// decides whether to retry.
func (s *MilvusStore) DeleteByDocument(ctx context.Context, documentID, companyID string) error {
	collection := CollectionName(companyID)
	if err := s.ensureCollection(ctx, collection); err != nil {
		return &apperrors.IndexOperationError{Op: "delete", Err: err}
	}

	expr := fmt.Sprintf(`%s == "%s"`, FieldDocumentID, documentID)
	if err := s.client.Delete(ctx, collection, "", expr); err != nil {
		return &apperrors.IndexOperationError{Op: "delete", Err: err}
	}
	if err := s.client.Flush(ctx, collection, false); err != nil {
		return &apperrors.IndexOperationError{Op: "flush", Err: err}
	}

	s.log.WithPayload(map[string]interface{}{
		"collection": collection,
		"document":   documentID,
	}).Info("deleted document chunks")
	return nil
}

// ensureCollection lazily creates, indexes and loads the company collection.
// The check result is cached so steady-state writes skip the round trips.
func (s *MilvusStore) ensureCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known[collection] {
		return nil
	}

	exists, err := s.client.HasCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection '%s': %w", collection, err)
	}

	if !exists {
		sch := entity.NewSchema().
			WithName(collection).
			WithDescription("per-company document chunks").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim))).
			WithField(entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(FieldCompanyID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(FieldChunkType).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(FieldSectionHeading).WithDataType(entity.FieldTypeVarChar).WithMaxLength(2048)).
			WithField(entity.NewField().WithName(FieldSpeakerRole).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128)).
			WithField(entity.NewField().WithName(FieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldPageNumber).WithDataType(entity.FieldTypeInt64))

		if err := s.client.CreateCollection(ctx, sch, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection '%s': %w", collection, err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 96)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := s.client.CreateIndex(ctx, collection, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on '%s': %w", collection, err)
		}
		s.log.WithField("collection", collection).Info("created company collection")
	}

	if err := s.client.LoadCollection(ctx, collection, false); err != nil {
		return fmt.Errorf("failed to load collection '%s': %w", collection, err)
	}

	s.known[collection] = true
	return nil
}

// resultFromFields reads row i of a column set into a RetrievalResult.
func resultFromFields(fields []entity.Column, i int) schema.RetrievalResult {
	findColumn := func(name string) entity.Column {
		for _, f := range fields {
			if f.Name() == name {
				return f
			}
		}
		return nil
	}
	getString := func(name string) string {
		if col := findColumn(name); col != nil {
			v, _ := col.GetAsString(i)
			return v
		}
		return ""
	}
	getInt := func(name string) int64 {
		if col := findColumn(name); col != nil {
			v, _ := col.GetAsInt64(i)
			return v
		}
		return 0
	}

	r := schema.RetrievalResult{
		ChunkID:    getString(FieldID),
		Text:       getString(FieldText),
		DocumentID: getString(FieldDocumentID),
		Metadata: map[string]interface{}{
			schema.MetadataKeyDocumentID: getString(FieldDocumentID),
			schema.MetadataKeyCompanyID:  getString(FieldCompanyID),
			schema.MetadataKeyChunkType:  getString(FieldChunkType),
			schema.MetadataKeyChunkIndex: int(getInt(FieldChunkIndex)),
		},
	}
	if h := getString(FieldSectionHeading); h != "" {
		r.Metadata[schema.MetadataKeySectionHeading] = h
	}
	if sr := getString(FieldSpeakerRole); sr != "" {
		r.Metadata[schema.MetadataKeySpeakerRole] = sr
	}
	if pn := getInt(FieldPageNumber); pn > 0 {
		r.Metadata[schema.MetadataKeyPageNumber] = int(pn)
	}
	return r
}

// buildFilterExpr turns a metadata map into a Milvus boolean expression.
func buildFilterExpr(filter map[string]interface{}) string {
	if len(filter) == 0 {
		return ""
	}
	var conditions []string
	for key, value := range filter {
		switch v := value.(type) {
		case string:
			conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, key, v))
		case int:
			conditions = append(conditions, fmt.Sprintf(`%s == %d`, key, v))
		case int64:
			conditions = append(conditions, fmt.Sprintf(`%s == %d`, key, v))
		case []string:
			quoted := make([]string, len(v))
			for i, s := range v {
				quoted[i] = fmt.Sprintf("%q", s)
			}
			conditions = append(conditions, fmt.Sprintf(`%s in [%s]`, key, strings.Join(quoted, ", ")))
		}
	}
	return strings.Join(conditions, " and ")
}

func idInExpr(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf(`%s in [%s]`, FieldID, strings.Join(quoted, ", "))
}

func metadataInt64(md map[string]interface{}, key string) int64 {
	switch v := md[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

var _ interfaces.VectorStore = (*MilvusStore)(nil)
