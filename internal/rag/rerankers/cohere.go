package rerankers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

const cohereRerankURL = "https://api.cohere.ai/v1/rerank"

// CohereReranker is the model-backed reranking mode, scoring query/candidate
// pairs with the Cohere Rerank API.
type CohereReranker struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewCohereReranker creates a model-backed reranker.
func NewCohereReranker(apiKey, model string) *CohereReranker {
	return &CohereReranker{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type cohereRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

// Rerank scores each candidate against the query and returns the topK in
// descending relevance order.
func (r *CohereReranker) Rerank(ctx context.Context, query string, results []schema.RetrievalResult, topK int) ([]schema.RetrievalResult, error) {
	if len(results) == 0 {
		return nil, nil
	}

	docTexts := make([]string, len(results))
	for i, res := range results {
		docTexts[i] = res.Text
	}

	payload, err := json.Marshal(cohereRerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       docTexts,
		TopN:            topK,
		ReturnDocuments: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cohereRerankURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call rerank api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank api returned status %s", resp.Status)
	}

	var rerankResp cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	reranked := make([]schema.RetrievalResult, 0, len(rerankResp.Results))
	for _, item := range rerankResp.Results {
		if item.Index >= len(results) {
			continue
		}
		res := results[item.Index]
		res.Score = item.RelevanceScore
		res.Metadata = schema.CopyMetadata(res.Metadata)
		res.Metadata[schema.MetadataKeyScore] = item.RelevanceScore
		reranked = append(reranked, res)
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}

var _ interfaces.Reranker = (*CohereReranker)(nil)
