package rerankers

import (
	"context"
	"testing"

	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

func TestHeuristicRerankBoosts(t *testing.T) {
	results := []schema.RetrievalResult{
		{ChunkID: "a", Text: "unrelated filler content", Score: 0.50, Metadata: map[string]interface{}{}},
		{ChunkID: "b", Text: "we will expand into new markets next year", Score: 0.45,
			Metadata: map[string]interface{}{schema.MetadataKeySpeakerRole: "CEO"}},
	}

	r := NewHeuristicReranker()
	reranked, err := r.Rerank(context.Background(), "expand into new markets", results, 2)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	// b gets exact-phrase (+0.2), full coverage (+0.1) and CEO (+0.1) boosts
	// on top of 0.45, overtaking a.
	if reranked[0].ChunkID != "b" {
		t.Errorf("expected boosted chunk first, got %s", reranked[0].ChunkID)
	}
	want := 0.45 + 0.2 + 0.1 + 0.1
	if diff := reranked[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %f, want %f", reranked[0].Score, want)
	}
	// Boost is additive: the similarity score is still part of the total.
	if reranked[0].Score <= 0.45 {
		t.Error("boost must not replace the similarity score")
	}
}

func TestHeuristicRerankDescendingAndTruncated(t *testing.T) {
	results := []schema.RetrievalResult{
		{ChunkID: "a", Text: "alpha", Score: 0.3, Metadata: map[string]interface{}{}},
		{ChunkID: "b", Text: "beta", Score: 0.9, Metadata: map[string]interface{}{}},
		{ChunkID: "c", Text: "gamma", Score: 0.6, Metadata: map[string]interface{}{}},
	}

	r := NewHeuristicReranker()
	reranked, err := r.Rerank(context.Background(), "delta", results, 2)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(reranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(reranked))
	}
	for i := 1; i < len(reranked); i++ {
		if reranked[i].Score > reranked[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, reranked[i].Score, reranked[i-1].Score)
		}
	}
}

func TestHeuristicRerankDoesNotMutateInput(t *testing.T) {
	results := []schema.RetrievalResult{
		{ChunkID: "a", Text: "expand", Score: 0.5, Metadata: map[string]interface{}{}},
	}
	r := NewHeuristicReranker()
	if _, err := r.Rerank(context.Background(), "expand", results, 1); err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if results[0].Score != 0.5 {
		t.Errorf("input slice was mutated: score = %f", results[0].Score)
	}
}

func TestHeuristicRerankEmpty(t *testing.T) {
	r := NewHeuristicReranker()
	reranked, err := r.Rerank(context.Background(), "anything", nil, 5)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(reranked) != 0 {
		t.Errorf("expected no results, got %d", len(reranked))
	}
}
