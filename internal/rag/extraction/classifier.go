package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

const classifyPromptTemplate = `Assess this strategic insight from a company's disclosures.

Insight: %s

Source context:
"""
%s
"""

Company industry: %s

Respond with a JSON object:
{"sentiment": "positive, negative, neutral or mixed", "importance_score": 1.0 to 10.0 based on strategic significance, "actionability": "immediate, short_term, long_term or informational"}`

var validSentiments = map[string]bool{
	"positive": true, "negative": true, "neutral": true, "mixed": true,
}

var validActionability = map[string]bool{
	"immediate": true, "short_term": true, "long_term": true, "informational": true,
}

// InsightClassification is the model's assessment of one insight: tone,
// strategic weight on a 1-10 scale, and how soon it calls for action.
type InsightClassification struct {
	Sentiment       string  `json:"sentiment"`
	ImportanceScore float64 `json:"importance_score"`
	Actionability   string  `json:"actionability"`
}

// DefaultClassification is the neutral fallback used when the model call
// fails; insights are never dropped for lack of a classification.
func DefaultClassification() InsightClassification {
	return InsightClassification{
		Sentiment:       "neutral",
		ImportanceScore: 5.0,
		Actionability:   "informational",
	}
}

// Classifier assesses sentiment, importance and actionability of insights
// with one schema-constrained reasoning call each.
type Classifier struct {
	log       *logger.Logger
	completer interfaces.StructuredCompleter
}

// NewClassifier creates a classifier over the given reasoning model.
func NewClassifier(completer interfaces.StructuredCompleter) *Classifier {
	return &Classifier{
		log:       logger.New("classifier"),
		completer: completer,
	}
}

// Classify assesses one insight. On a failed call or unparseable reply it
// returns the neutral default alongside the error so the caller can keep
// going.
func (c *Classifier) Classify(ctx context.Context, insightText, contextText, industry string) (InsightClassification, error) {
	if industry == "" {
		industry = "unknown"
	}
	prompt := fmt.Sprintf(classifyPromptTemplate, insightText, contextText, industry)
	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return DefaultClassification(), fmt.Errorf("classification call failed: %w", err)
	}

	var raw InsightClassification
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return DefaultClassification(), fmt.Errorf("failed to parse classification response: %w", err)
	}
	return normalizeClassification(raw), nil
}

func normalizeClassification(raw InsightClassification) InsightClassification {
	out := raw
	out.Sentiment = strings.ToLower(strings.TrimSpace(raw.Sentiment))
	if !validSentiments[out.Sentiment] {
		out.Sentiment = "neutral"
	}

	out.Actionability = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw.Actionability)), " ", "_")
	if !validActionability[out.Actionability] {
		switch {
		case strings.Contains(out.Actionability, "immediate"), strings.Contains(out.Actionability, "now"):
			out.Actionability = "immediate"
		case strings.Contains(out.Actionability, "short"):
			out.Actionability = "short_term"
		case strings.Contains(out.Actionability, "long"):
			out.Actionability = "long_term"
		default:
			out.Actionability = "informational"
		}
	}

	if out.ImportanceScore < 1 {
		out.ImportanceScore = 1
	}
	if out.ImportanceScore > 10 {
		out.ImportanceScore = 10
	}
	if raw.ImportanceScore == 0 {
		out.ImportanceScore = 5.0
	}
	return out
}
