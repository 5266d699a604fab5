package retrieval

import (
	"context"
	"testing"

	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	results     map[string][]schema.RetrievalResult // keyed by a per-test discriminator
	lastTopK    int
	lastFilter  map[string]interface{}
	fetchCalls  []map[string]interface{}
	fetchChunks []schema.Chunk
}

func (s *fakeStore) Upsert(ctx context.Context, chunks []schema.Chunk, companyID, documentID string) error {
	return nil
}

func (s *fakeStore) Search(ctx context.Context, companyID string, embedding []float32, topK int, filter map[string]interface{}) ([]schema.RetrievalResult, error) {
	s.lastTopK = topK
	s.lastFilter = filter
	out := s.results[companyID]
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *fakeStore) FetchByMetadata(ctx context.Context, companyID string, filter map[string]interface{}) ([]schema.Chunk, error) {
	s.fetchCalls = append(s.fetchCalls, filter)
	return s.fetchChunks, nil
}

func (s *fakeStore) DeleteByDocument(ctx context.Context, documentID, companyID string) error {
	return nil
}

type passthroughReranker struct{ called bool }

func (r *passthroughReranker) Rerank(ctx context.Context, query string, results []schema.RetrievalResult, topK int) ([]schema.RetrievalResult, error) {
	r.called = true
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func makeResults(ids ...string) []schema.RetrievalResult {
	out := make([]schema.RetrievalResult, len(ids))
	for i, id := range ids {
		out[i] = schema.RetrievalResult{
			ChunkID:  id,
			Text:     "text " + id,
			Score:    1.0 - float64(i)*0.1,
			Metadata: map[string]interface{}{},
		}
	}
	return out
}

func TestRetrieveWidensForReranker(t *testing.T) {
	store := &fakeStore{results: map[string][]schema.RetrievalResult{
		"c1": makeResults("a", "b", "c", "d", "e", "f"),
	}}
	reranker := &passthroughReranker{}
	r := NewRetriever(store, fakeEmbedder{}, reranker)

	results, err := r.Retrieve(context.Background(), "growth plans", "c1", 3, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if store.lastTopK != 6 {
		t.Errorf("expected 2x widening, store got topK=%d", store.lastTopK)
	}
	if !reranker.called {
		t.Error("reranker was not invoked")
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestRetrieveWithoutReranker(t *testing.T) {
	store := &fakeStore{results: map[string][]schema.RetrievalResult{
		"c1": makeResults("a", "b", "c"),
	}}
	r := NewRetriever(store, fakeEmbedder{}, nil)

	results, err := r.Retrieve(context.Background(), "growth", "c1", 2, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if store.lastTopK != 2 {
		t.Errorf("expected no widening, store got topK=%d", store.lastTopK)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestRetrieveDocumentScoping(t *testing.T) {
	store := &fakeStore{results: map[string][]schema.RetrievalResult{}}
	r := NewRetriever(store, fakeEmbedder{}, nil)

	_, err := r.Retrieve(context.Background(), "q", "c1", 5, &Options{DocumentIDs: []string{"doc9"}})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if store.lastFilter[schema.MetadataKeyDocumentID] != "doc9" {
		t.Errorf("document filter not passed: %v", store.lastFilter)
	}
}

func TestRetrieveMinScore(t *testing.T) {
	store := &fakeStore{results: map[string][]schema.RetrievalResult{
		"c1": makeResults("a", "b", "c", "d", "e", "f"), // scores 1.0 .. 0.5
	}}
	r := NewRetriever(store, fakeEmbedder{}, nil)

	results, err := r.Retrieve(context.Background(), "q", "c1", 6, &Options{MinScore: 0.75})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	for _, res := range results {
		if res.Score < 0.75 {
			t.Errorf("result %s below min score: %f", res.ChunkID, res.Score)
		}
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results above threshold, got %d", len(results))
	}
}

func TestRetrieveMultiQueryKeepsMaxScore(t *testing.T) {
	store := &fakeStore{results: map[string][]schema.RetrievalResult{}}
	r := NewRetriever(store, fakeEmbedder{}, nil)

	// Same chunk appears in both queries with different scores; stub the
	// store per call by swapping results between queries.
	call := 0
	perQuery := [][]schema.RetrievalResult{
		{{ChunkID: "x", Score: 0.6, Metadata: map[string]interface{}{}}, {ChunkID: "y", Score: 0.5, Metadata: map[string]interface{}{}}},
		{{ChunkID: "x", Score: 0.9, Metadata: map[string]interface{}{}}},
	}
	swapper := &swappingStore{fakeStore: store, perCall: perQuery, call: &call}
	r = NewRetriever(swapper, fakeEmbedder{}, nil)

	results, err := r.RetrieveMultiQuery(context.Background(), []string{"q1", "q2"}, "c1", 10, nil)
	if err != nil {
		t.Fatalf("RetrieveMultiQuery failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 merged results, got %d", len(results))
	}
	if results[0].ChunkID != "x" || results[0].Score != 0.9 {
		t.Errorf("expected x with max score 0.9 first, got %s %f", results[0].ChunkID, results[0].Score)
	}
}

type swappingStore struct {
	*fakeStore
	perCall [][]schema.RetrievalResult
	call    *int
}

func (s *swappingStore) Search(ctx context.Context, companyID string, embedding []float32, topK int, filter map[string]interface{}) ([]schema.RetrievalResult, error) {
	i := *s.call
	*s.call++
	if i < len(s.perCall) {
		return s.perCall[i], nil
	}
	return nil, nil
}

func TestContextWindowIDs(t *testing.T) {
	store := &fakeStore{fetchChunks: []schema.Chunk{
		{ID: schema.ChunkID("doc1", 4)},
		{ID: schema.ChunkID("doc1", 2)},
		{ID: schema.ChunkID("doc1", 3)},
	}}
	r := NewRetriever(store, fakeEmbedder{}, nil)

	chunks, err := r.ContextWindow(context.Background(), schema.ChunkID("doc1", 3), "c1", 1)
	if err != nil {
		t.Fatalf("ContextWindow failed: %v", err)
	}

	// Requested IDs are index neighbors only.
	filter := store.fetchCalls[0]
	ids, ok := filter[vectorFieldID].([]string)
	if !ok {
		t.Fatalf("filter did not carry ID list: %v", filter)
	}
	want := []string{"doc1_chunk_2", "doc1_chunk_3", "doc1_chunk_4"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("id %d = %s, want %s", i, ids[i], want[i])
		}
	}

	// Returned chunks are ordered by index.
	for i := 1; i < len(chunks); i++ {
		_, a, _ := schema.ParseChunkID(chunks[i-1].ID)
		_, b, _ := schema.ParseChunkID(chunks[i].ID)
		if b < a {
			t.Errorf("chunks not ordered by index: %s before %s", chunks[i-1].ID, chunks[i].ID)
		}
	}
}

func TestContextWindowClampsAtStart(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, fakeEmbedder{}, nil)

	if _, err := r.ContextWindow(context.Background(), schema.ChunkID("doc1", 0), "c1", 2); err != nil {
		t.Fatalf("ContextWindow failed: %v", err)
	}
	ids := store.fetchCalls[0][vectorFieldID].([]string)
	for _, id := range ids {
		if _, idx, _ := schema.ParseChunkID(id); idx < 0 {
			t.Errorf("negative index requested: %s", id)
		}
	}
	if len(ids) != 3 { // 0, 1, 2
		t.Errorf("expected 3 ids, got %v", ids)
	}
}
