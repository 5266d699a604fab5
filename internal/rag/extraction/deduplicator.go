package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

const comparePromptTemplate = `Decide whether these two strategic initiatives refer to the same underlying initiative.

Initiative A: %s
Initiative B: %s

Respond with a JSON object: {"is_duplicate": true or false, "similarity_score": 0.0 to 1.0}`

const mergePromptTemplate = `Merge these descriptions of the same strategic initiative into one canonical form.

Initiatives:
%s

Respond with a JSON object: {"canonical_name": "best name", "canonical_description": "comprehensive description combining all inputs", "combined_timeline": "most specific timeline information or empty string"}`

// Deduplicator clusters near-duplicate initiative candidates and merges each
// cluster into one canonical record.
//
// Clustering is a greedy single pass in input order: each unclustered
// candidate opens a group and pulls in every later unclustered candidate the
// pairwise test accepts. The grouping is deliberately not transitive-closure
// correct; first sufficiently similar open group wins. This is a cheap
// approximation, not a bug.
type Deduplicator struct {
	log       *logger.Logger
	completer interfaces.StructuredCompleter
	threshold float64
	batchSize int
}

// NewDeduplicator creates a deduplicator. A pair is merged iff the comparison
// says is_duplicate and its similarity meets the threshold.
func NewDeduplicator(completer interfaces.StructuredCompleter, threshold float64, batchSize int) *Deduplicator {
	if threshold <= 0 {
		threshold = 0.7
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Deduplicator{
		log:       logger.New("deduplicator"),
		completer: completer,
		threshold: threshold,
		batchSize: batchSize,
	}
}

// Deduplicate merges near-duplicate candidates. Inputs larger than the batch
// bound are processed in fixed-size batches whose outputs are re-deduplicated
// in a loop; each pass cannot increase the item count, so the loop terminates.
func (d *Deduplicator) Deduplicate(ctx context.Context, candidates []schema.ExtractedInitiative) ([]schema.MergedInitiative, error) {
	items := make([]schema.MergedInitiative, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, singleton(c))
	}

	for len(items) > d.batchSize {
		var out []schema.MergedInitiative
		for start := 0; start < len(items); start += d.batchSize {
			end := start + d.batchSize
			if end > len(items) {
				end = len(items)
			}
			out = append(out, d.dedupePass(ctx, items[start:end])...)
		}
		if len(out) > len(items) {
			return nil, fmt.Errorf("deduplication pass grew the item count from %d to %d", len(items), len(out))
		}
		if len(out) == len(items) {
			// No cross-batch merges possible beyond this point.
			items = out
			break
		}
		items = out
	}

	return d.dedupePass(ctx, items), nil
}

// dedupePass runs one greedy clustering pass over at most a batch of items.
func (d *Deduplicator) dedupePass(ctx context.Context, items []schema.MergedInitiative) []schema.MergedInitiative {
	if len(items) <= 1 {
		return items
	}

	grouped := make([]bool, len(items))
	var out []schema.MergedInitiative

	for i := range items {
		if grouped[i] {
			continue
		}
		group := []schema.MergedInitiative{items[i]}
		grouped[i] = true

		for j := i + 1; j < len(items); j++ {
			if grouped[j] {
				continue
			}
			if d.isDuplicate(ctx, items[i], items[j]) {
				group = append(group, items[j])
				grouped[j] = true
			}
		}

		out = append(out, d.mergeGroup(ctx, group))
	}
	return out
}

type compareResponse struct {
	IsDuplicate     bool    `json:"is_duplicate"`
	SimilarityScore float64 `json:"similarity_score"`
}

// isDuplicate runs the pairwise model comparison, falling back to a
// deterministic word-overlap test when the call fails.
func (d *Deduplicator) isDuplicate(ctx context.Context, a, b schema.MergedInitiative) bool {
	textA := a.Name + ": " + a.Description
	textB := b.Name + ": " + b.Description

	prompt := fmt.Sprintf(comparePromptTemplate, textA, textB)
	reply, err := d.completer.Complete(ctx, prompt)
	if err == nil {
		var resp compareResponse
		if jsonErr := json.Unmarshal([]byte(reply), &resp); jsonErr == nil {
			return resp.IsDuplicate && resp.SimilarityScore >= d.threshold
		}
		err = fmt.Errorf("failed to parse comparison response: %s", reply)
	}

	d.log.WithError(err).Warn("comparison call failed, using word-overlap fallback")
	return jaccardSimilarity(textA, textB) >= d.threshold
}

// jaccardSimilarity is the deterministic fallback: word-set intersection over
// union.
func jaccardSimilarity(a, b string) float64 {
	wordsA := termSetOf(a)
	wordsB := termSetOf(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func termSetOf(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

type mergeResponse struct {
	CanonicalName        string `json:"canonical_name"`
	CanonicalDescription string `json:"canonical_description"`
	CombinedTimeline     string `json:"combined_timeline"`
}

// mergeGroup combines a cluster into one canonical record. The model proposes
// name, description and timeline; confidence, category, metrics and evidence
// references are combined deterministically outside the model call. A group
// of size 1 passes through unchanged.
func (d *Deduplicator) mergeGroup(ctx context.Context, group []schema.MergedInitiative) schema.MergedInitiative {
	if len(group) == 1 {
		return group[0]
	}

	merged := schema.MergedInitiative{
		Name:        group[0].Name,
		Description: group[0].Description,
		Timeline:    group[0].Timeline,
	}

	var descriptions []string
	mergedCount := 0
	for _, member := range group {
		descriptions = append(descriptions, "- "+member.Name+": "+member.Description)
		mergedCount += member.MergedCount

		if member.Confidence > merged.Confidence {
			merged.Confidence = member.Confidence
			merged.Category = member.Category
		}
		merged.Metrics = appendUnique(merged.Metrics, member.Metrics...)
		merged.Evidence = appendUniqueEvidence(merged.Evidence, member.Evidence...)
	}
	merged.MergedCount = mergedCount
	if merged.Category == "" {
		merged.Category = group[0].Category
	}

	prompt := fmt.Sprintf(mergePromptTemplate, strings.Join(descriptions, "\n"))
	reply, err := d.completer.Complete(ctx, prompt)
	if err != nil {
		d.log.WithError(err).Warn("merge call failed, keeping first member's wording")
		return merged
	}
	var resp mergeResponse
	if err := json.Unmarshal([]byte(reply), &resp); err != nil {
		d.log.WithError(err).Warn("failed to parse merge response, keeping first member's wording")
		return merged
	}

	if resp.CanonicalName != "" {
		merged.Name = resp.CanonicalName
	}
	if resp.CanonicalDescription != "" {
		merged.Description = resp.CanonicalDescription
	}
	if resp.CombinedTimeline != "" {
		merged.Timeline = resp.CombinedTimeline
	}
	return merged
}

// singleton lifts a candidate into its canonical form unchanged, keeping the
// quote tied to its source location.
func singleton(c schema.ExtractedInitiative) schema.MergedInitiative {
	m := schema.MergedInitiative{
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Timeline:    c.Timeline,
		Metrics:     append([]string(nil), c.Metrics...),
		Confidence:  c.Confidence,
		MergedCount: 1,
	}
	if ref := schema.EvidenceRefOf(c); ref.Quote != "" || ref.ChunkID != "" {
		m.Evidence = []schema.EvidenceRef{ref}
	}
	return m
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		dst = append(dst, v)
		seen[v] = true
	}
	return dst
}

// appendUniqueEvidence unions evidence, treating quote+chunk as the identity
// so the same quote from two chunks stays twice but exact repeats collapse.
func appendUniqueEvidence(dst []schema.EvidenceRef, refs ...schema.EvidenceRef) []schema.EvidenceRef {
	type key struct{ quote, chunkID string }
	seen := make(map[key]bool, len(dst))
	for _, r := range dst {
		seen[key{r.Quote, r.ChunkID}] = true
	}
	for _, r := range refs {
		k := key{r.Quote, r.ChunkID}
		if (r.Quote == "" && r.ChunkID == "") || seen[k] {
			continue
		}
		dst = append(dst, r)
		seen[k] = true
	}
	return dst
}
