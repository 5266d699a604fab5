package rerankers

import (
	"context"
	"sort"
	"strings"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

// Speaker roles whose statements carry extra weight in disclosures.
var authorityRoles = map[string]bool{
	"CEO":       true,
	"CFO":       true,
	"President": true,
}

// HeuristicReranker boosts retrieval scores with cheap lexical signals:
// exact-phrase presence, query term coverage and speaker authority. Boosts
// are additive on top of the similarity score, never replacing it.
type HeuristicReranker struct{}

// NewHeuristicReranker creates the fallback reranker.
func NewHeuristicReranker() *HeuristicReranker {
	return &HeuristicReranker{}
}

// Rerank rescores the candidates and returns the topK in descending order.
func (r *HeuristicReranker) Rerank(ctx context.Context, query string, results []schema.RetrievalResult, topK int) ([]schema.RetrievalResult, error) {
	if len(results) == 0 {
		return nil, nil
	}

	queryLower := strings.ToLower(query)
	queryTerms := termSet(queryLower)

	reranked := make([]schema.RetrievalResult, len(results))
	copy(reranked, results)

	for i := range reranked {
		textLower := strings.ToLower(reranked[i].Text)
		boost := 0.0

		if strings.Contains(textLower, queryLower) {
			boost += 0.2
		}

		if len(queryTerms) > 0 {
			overlap := 0
			textTerms := termSet(textLower)
			for term := range queryTerms {
				if textTerms[term] {
					overlap++
				}
			}
			boost += float64(overlap) / float64(len(queryTerms)) * 0.1
		}

		if role, _ := reranked[i].Metadata[schema.MetadataKeySpeakerRole].(string); authorityRoles[role] {
			boost += 0.1
		}

		reranked[i].Score += boost
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}

func termSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, term := range strings.Fields(s) {
		set[term] = true
	}
	return set
}

var _ interfaces.Reranker = (*HeuristicReranker)(nil)
