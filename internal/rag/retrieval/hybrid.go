package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Options narrow a retrieval to specific documents or metadata values.
type Options struct {
	DocumentIDs []string
	Filters     map[string]interface{}
	MinScore    float64
}

// Retriever runs similarity search against the company's collection and
// optionally hands a widened candidate set to a reranker.
type Retriever struct {
	log      *logger.Logger
	store    interfaces.VectorStore
	embedder interfaces.EmbeddingModel
	reranker interfaces.Reranker // nil disables reranking
}

// NewRetriever creates a retriever. Pass a nil reranker to return raw
// similarity ordering.
func NewRetriever(store interfaces.VectorStore, embedder interfaces.EmbeddingModel, reranker interfaces.Reranker) *Retriever {
	return &Retriever{
		log:      logger.New("retriever"),
		store:    store,
		embedder: embedder,
		reranker: reranker,
	}
}

// Retrieve returns the topK most relevant chunks for the query. With a
// reranker configured, 2×topK candidates are fetched from the index first and
// the reranker picks the final topK.
func (r *Retriever) Retrieve(ctx context.Context, query, companyID string, topK int, opts *Options) ([]schema.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	fetchK := topK
	if r.reranker != nil {
		fetchK = topK * 2
	}

	results, err := r.store.Search(ctx, companyID, embedding, fetchK, buildFilter(opts))
	if err != nil {
		return nil, err
	}
	results = applyMinScore(results, opts)

	if r.reranker != nil {
		reranked, err := r.reranker.Rerank(ctx, query, results, topK)
		if err != nil {
			// Reranking is best-effort; similarity order still stands.
			r.log.WithError(err).Warn("reranking failed, returning similarity order")
		} else {
			results = reranked
		}
	}

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// RetrieveMultiQuery runs one retrieval per query and merges the result sets
// by chunk ID, keeping the maximum score per chunk, then truncates to topK.
func (r *Retriever) RetrieveMultiQuery(ctx context.Context, queries []string, companyID string, topK int, opts *Options) ([]schema.RetrievalResult, error) {
	best := make(map[string]schema.RetrievalResult)
	for _, query := range queries {
		results, err := r.Retrieve(ctx, query, companyID, topK, opts)
		if err != nil {
			return nil, fmt.Errorf("retrieval for query %q failed: %w", query, err)
		}
		for _, res := range results {
			if prev, ok := best[res.ChunkID]; !ok || res.Score > prev.Score {
				best[res.ChunkID] = res
			}
		}
	}

	merged := make([]schema.RetrievalResult, 0, len(best))
	for _, res := range best {
		merged = append(merged, res)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// ContextWindow fetches up to window chunks on each side of the given chunk
// within the same document, by index arithmetic on the sequential ID scheme.
// Chunks with structural IDs (page/section/table) have no neighbors to
// compute, so the result is just the chunk itself if it exists.
func (r *Retriever) ContextWindow(ctx context.Context, chunkID, companyID string, window int) ([]schema.Chunk, error) {
	documentID, index, ok := schema.ParseChunkID(chunkID)
	if !ok {
		return r.store.FetchByMetadata(ctx, companyID, map[string]interface{}{
			vectorFieldID: chunkID,
		})
	}

	ids := make([]string, 0, 2*window+1)
	for i := index - window; i <= index+window; i++ {
		if i >= 0 {
			ids = append(ids, schema.ChunkID(documentID, i))
		}
	}

	chunks, err := r.store.FetchByMetadata(ctx, companyID, map[string]interface{}{
		vectorFieldID: ids,
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		_, a, _ := schema.ParseChunkID(chunks[i].ID)
		_, b, _ := schema.ParseChunkID(chunks[j].ID)
		return a < b
	})
	return chunks, nil
}

// vectorFieldID matches the primary key field name of the vector store.
const vectorFieldID = "id"

func buildFilter(opts *Options) map[string]interface{} {
	if opts == nil {
		return nil
	}
	filter := make(map[string]interface{})
	for k, v := range opts.Filters {
		filter[k] = v
	}
	if len(opts.DocumentIDs) == 1 {
		filter[schema.MetadataKeyDocumentID] = opts.DocumentIDs[0]
	} else if len(opts.DocumentIDs) > 1 {
		filter[schema.MetadataKeyDocumentID] = opts.DocumentIDs
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func applyMinScore(results []schema.RetrievalResult, opts *Options) []schema.RetrievalResult {
	if opts == nil || opts.MinScore <= 0 {
		return results
	}
	kept := results[:0]
	for _, res := range results {
		if res.Score >= opts.MinScore {
			kept = append(kept, res)
		}
	}
	return kept
}
