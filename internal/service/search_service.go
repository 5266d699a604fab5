package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/retrieval"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// SearchService exposes company-scoped retrieval and grounded question
// answering over the vector index.
type SearchService struct {
	log       *logger.Logger
	retriever *retrieval.Retriever
	completer interfaces.StructuredCompleter
	topK      int
}

// NewSearchService wires retrieval and the reasoning model for QA.
func NewSearchService(retriever *retrieval.Retriever, completer interfaces.StructuredCompleter, defaultTopK int) *SearchService {
	return &SearchService{
		log:       logger.New("service.search"),
		retriever: retriever,
		completer: completer,
		topK:      defaultTopK,
	}
}

// Search returns the top matching chunks for a query. topK <= 0 uses the
// configured default.
func (s *SearchService) Search(ctx context.Context, companyID, query string, topK int, opts *retrieval.Options) ([]schema.RetrievalResult, error) {
	if topK <= 0 {
		topK = s.topK
	}
	return s.retriever.Retrieve(ctx, query, companyID, topK, opts)
}

// Citation is one direct quote backing an answer, attributed to the chunk
// and document it was taken from.
type Citation struct {
	Quote      string `json:"quote"`
	ChunkID    string `json:"chunk_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// Answer is a grounded response to a question, with the supporting quotes
// and the chunks it was grounded on.
type Answer struct {
	Answer    string                   `json:"answer"`
	Citations []Citation               `json:"citations,omitempty"`
	Sources   []schema.RetrievalResult `json:"sources"`
}

const answerPromptTemplate = `You are an analyst answering a question about a company using only the numbered excerpts below.

Question: %s

Excerpts:
%s

Answer the question using only information from the excerpts. If the excerpts do not contain the answer, say so. Support the answer with direct quotes copied verbatim from the excerpts, each tagged with the number of the excerpt it came from.

Respond with JSON: {"answer": "<your answer>", "citations": [{"quote": "<verbatim quote>", "excerpt": 1}]}`

// Ask retrieves relevant chunks and asks the reasoning model to answer from
// them alone. Each returned citation is resolved from its excerpt number back
// to the chunk and document it quotes; a citation pointing at an excerpt that
// does not contain its quote is dropped.
func (s *SearchService) Ask(ctx context.Context, companyID, question string, topK int) (*Answer, error) {
	results, err := s.Search(ctx, companyID, question, topK, nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Answer{Answer: "No indexed documents contain information relevant to this question."}, nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, r.Text)
	}

	raw, err := s.completer.Complete(ctx, fmt.Sprintf(answerPromptTemplate, question, sb.String()))
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}
	var parsed struct {
		Answer    string `json:"answer"`
		Citations []struct {
			Quote   string `json:"quote"`
			Excerpt int    `json:"excerpt"`
		} `json:"citations"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse answer: %w", err)
	}

	citations := make([]Citation, 0, len(parsed.Citations))
	for _, c := range parsed.Citations {
		quote := strings.TrimSpace(c.Quote)
		if quote == "" || c.Excerpt < 1 || c.Excerpt > len(results) {
			continue
		}
		src := results[c.Excerpt-1]
		if !strings.Contains(src.Text, quote) {
			s.log.WithField("chunk", src.ChunkID).Warn("dropping citation not found in its excerpt")
			continue
		}
		citations = append(citations, Citation{
			Quote:      quote,
			ChunkID:    src.ChunkID,
			DocumentID: src.DocumentID,
		})
	}
	return &Answer{Answer: parsed.Answer, Citations: citations, Sources: results}, nil
}
