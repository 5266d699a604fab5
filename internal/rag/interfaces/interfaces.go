package interfaces

import (
	"context"

	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// DocumentParser converts raw file bytes into a normalized ParsedDocument.
// Dispatch is by filename: the registry walks an ordered parser list and the
// first Supports match wins.
type DocumentParser interface {
	Supports(filename string) bool
	Parse(ctx context.Context, content []byte, filename string) (*schema.ParsedDocument, error)
}

// Chunker splits a parsed document into bounded, citable chunks with
// monotonically increasing chunk indices.
type Chunker interface {
	Chunk(ctx context.Context, doc *schema.ParsedDocument, documentID string) ([]schema.Chunk, error)
}

// VectorStore stores chunks with their embeddings in company-scoped
// collections and supports similarity search and metadata-filtered access.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []schema.Chunk, companyID, documentID string) error
	Search(ctx context.Context, companyID string, embedding []float32, topK int, filter map[string]interface{}) ([]schema.RetrievalResult, error)
	FetchByMetadata(ctx context.Context, companyID string, filter map[string]interface{}) ([]schema.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID, companyID string) error
}

// Reranker reorders retrieval candidates by a higher-precision relevance
// signal, returning at most topK results in descending score order.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []schema.RetrievalResult, topK int) ([]schema.RetrievalResult, error)
}

// EmbeddingModel computes dense vectors for text.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// StructuredCompleter is the single capability expected from the external
// reasoning model: given a prompt describing an output schema, return a JSON
// value conforming to it, or fail.
type StructuredCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Storage persists raw document bytes outside the pipeline.
type Storage interface {
	Save(ctx context.Context, content []byte, filename, companyID string) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}
