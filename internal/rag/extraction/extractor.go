package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vbhandari/MgmtSays/internal/models"
	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

const extractionPromptTemplate = `Extract strategic initiatives from the following management disclosure text.

Company: %s
Document type: %s

Text:
"""
%s
"""

Respond with a JSON object of the form:
{"initiatives": [{"name": "short name (3-7 words)", "description": "detailed description", "category": "one of strategy, product, market, operational, financial", "timeline": "mentioned timeline if any", "metrics": ["mentioned metrics or KPIs"], "confidence": 0.8, "evidence_quote": "direct quote from the text above"}]}

The evidence_quote must be copied verbatim from the text. Return {"initiatives": []} when the text contains no strategic initiatives.`

// Closed category vocabulary with common aliases. Unknown values fall back
// to strategy.
var categoryAliases = map[string]models.Category{
	"strategic":  models.CategoryStrategy,
	"products":   models.CategoryProduct,
	"marketing":  models.CategoryMarket,
	"operations": models.CategoryOperational,
	"finance":    models.CategoryFinancial,
	"growth":     models.CategoryStrategy,
	"expansion":  models.CategoryMarket,
	"cost":       models.CategoryOperational,
	"revenue":    models.CategoryFinancial,
}

var validCategories = map[models.Category]bool{
	models.CategoryStrategy:    true,
	models.CategoryProduct:     true,
	models.CategoryMarket:      true,
	models.CategoryOperational: true,
	models.CategoryFinancial:   true,
}

// Extractor pulls structured initiative candidates out of disclosure text
// with one schema-constrained reasoning call per input.
type Extractor struct {
	log       *logger.Logger
	completer interfaces.StructuredCompleter
}

// NewExtractor creates an extractor over the given reasoning model.
func NewExtractor(completer interfaces.StructuredCompleter) *Extractor {
	return &Extractor{
		log:       logger.New("extractor"),
		completer: completer,
	}
}

type extractionResponse struct {
	Initiatives []json.RawMessage `json:"initiatives"`
}

type rawInitiative struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Timeline      string   `json:"timeline"`
	Metrics       []string `json:"metrics"`
	Confidence    *float64 `json:"confidence"`
	EvidenceQuote string   `json:"evidence_quote"`
}

// Extract issues one reasoning call over the context text and validates each
// returned item. A malformed item is dropped with a warning; it never aborts
// the whole call.
func (e *Extractor) Extract(ctx context.Context, contextText, companyName, documentType string) ([]schema.ExtractedInitiative, error) {
	prompt := fmt.Sprintf(extractionPromptTemplate, companyName, documentType, contextText)
	reply, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(reply), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	initiatives := make([]schema.ExtractedInitiative, 0, len(resp.Initiatives))
	for _, item := range resp.Initiatives {
		var raw rawInitiative
		if err := json.Unmarshal(item, &raw); err != nil {
			e.log.WithError(err).Warn("dropping malformed initiative item")
			continue
		}
		if strings.TrimSpace(raw.Name) == "" {
			e.log.Warn("dropping initiative item with empty name")
			continue
		}
		initiatives = append(initiatives, schema.ExtractedInitiative{
			Name:          strings.TrimSpace(raw.Name),
			Description:   strings.TrimSpace(raw.Description),
			Category:      NormalizeCategory(raw.Category),
			Timeline:      strings.TrimSpace(raw.Timeline),
			Metrics:       raw.Metrics,
			Confidence:    normalizeConfidence(raw.Confidence),
			EvidenceQuote: raw.EvidenceQuote,
		})
	}
	return initiatives, nil
}

// ExtractFromChunks runs extraction over each chunk and accumulates all
// candidates, tagging each with the chunk it came from. Deduplication is a
// separate stage. A failed call skips that chunk and is logged.
func (e *Extractor) ExtractFromChunks(ctx context.Context, chunks []schema.RetrievalResult, companyName, documentType string) []schema.ExtractedInitiative {
	var all []schema.ExtractedInitiative

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		initiatives, err := e.Extract(ctx, chunk.Text, companyName, documentType)
		if err != nil {
			e.log.WithField("chunk", chunk.ChunkID).WithError(err).Error("extraction failed for chunk, skipping")
			continue
		}
		for i := range initiatives {
			initiatives[i].SourceChunkID = chunk.ChunkID
			initiatives[i].SourceMetadata = chunk.Metadata
			initiatives[i].EvidenceQuote = verbatimQuote(initiatives[i].EvidenceQuote, chunk.Text)
			initiatives[i].SourceContext = contextWindow(chunk.Text, initiatives[i].EvidenceQuote, 160)
		}
		all = append(all, initiatives...)
	}
	return all
}

// verbatimQuote keeps a quote only when it is an exact substring of the text
// it claims to come from. A paraphrased quote is blanked, not trusted.
func verbatimQuote(quote, chunkText string) string {
	quote = strings.TrimSpace(quote)
	if quote == "" || strings.Contains(chunkText, quote) {
		return quote
	}
	return ""
}

// contextWindow returns the quote with up to margin bytes of surrounding
// chunk text on each side, trimmed to rune boundaries, so a citation can show
// where the quote sits.
func contextWindow(chunkText, quote string, margin int) string {
	if quote == "" {
		return ""
	}
	idx := strings.Index(chunkText, quote)
	if idx < 0 {
		return ""
	}
	start := idx - margin
	if start < 0 {
		start = 0
	}
	end := idx + len(quote) + margin
	if end > len(chunkText) {
		end = len(chunkText)
	}
	for start > 0 && !utf8.RuneStart(chunkText[start]) {
		start--
	}
	for end < len(chunkText) && !utf8.RuneStart(chunkText[end]) {
		end++
	}
	return strings.TrimSpace(chunkText[start:end])
}

// NormalizeCategory maps a raw category value onto the closed vocabulary.
func NormalizeCategory(category string) string {
	normalized := models.Category(strings.ToLower(strings.TrimSpace(category)))
	if validCategories[normalized] {
		return string(normalized)
	}
	if mapped, ok := categoryAliases[string(normalized)]; ok {
		return string(mapped)
	}
	return string(models.CategoryStrategy)
}

// normalizeConfidence clamps to [0,1], defaulting to 0.5 when missing.
func normalizeConfidence(c *float64) float64 {
	if c == nil {
		return 0.5
	}
	if *c < 0 {
		return 0
	}
	if *c > 1 {
		return 1
	}
	return *c
}
