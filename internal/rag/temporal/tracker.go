package temporal

import (
	"sort"
	"strings"
	"time"

	"github.com/vbhandari/MgmtSays/internal/models"
)

// MentionState classifies one occurrence of an initiative. First occurrence
// is new; later occurrences are reiterated, additionally modified when the
// description has diverged from the canonical one beyond a threshold.
type MentionState struct {
	IsNew        bool
	IsReiterated bool
	IsModified   bool
}

// ClassifyMention assigns the temporal flags for an occurrence of an
// initiative. firstOccurrence is true when no existing Initiative matched.
// The divergence threshold is a fraction in [0,1]; 0.5 means half the
// combined vocabulary of the two descriptions is not shared.
func ClassifyMention(firstOccurrence bool, canonicalDescription, newDescription string, modifiedThreshold float64) MentionState {
	if firstOccurrence {
		return MentionState{IsNew: true}
	}
	state := MentionState{IsReiterated: true}
	if DescriptionDivergence(canonicalDescription, newDescription) >= modifiedThreshold {
		state.IsModified = true
	}
	return state
}

// DescriptionDivergence measures how far two descriptions have drifted apart
// as 1 minus the word-set Jaccard similarity. Identical texts score 0,
// disjoint texts 1.
func DescriptionDivergence(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 1
	}
	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return 1 - float64(intersection)/float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// PeriodBucket is one period of a company timeline.
type PeriodBucket struct {
	Period          string
	Start           time.Time
	End             time.Time
	Insights        []models.Insight
	NewCount        int
	ReiteratedCount int
	ModifiedCount   int
}

// BucketInsights groups insights into periods by their first-mention date and
// returns the buckets in chronological order. Insights with a zero date are
// skipped.
func BucketInsights(insights []models.Insight, groupBy Grouping) []PeriodBucket {
	grouped := make(map[string][]models.Insight)
	for _, insight := range insights {
		if insight.FirstMentionedAt.IsZero() {
			continue
		}
		key := PeriodKey(insight.FirstMentionedAt, groupBy)
		grouped[key] = append(grouped[key], insight)
	}

	buckets := make([]PeriodBucket, 0, len(grouped))
	for key, members := range grouped {
		start, end, err := PeriodBounds(key, groupBy)
		if err != nil {
			continue
		}
		bucket := PeriodBucket{Period: key, Start: start, End: end, Insights: members}
		for _, insight := range members {
			if insight.IsNew {
				bucket.NewCount++
			}
			if insight.IsReiterated {
				bucket.ReiteratedCount++
			}
			if insight.IsModified {
				bucket.ModifiedCount++
			}
		}
		buckets = append(buckets, bucket)
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Start.Before(buckets[j].Start) })
	return buckets
}

// PeriodCount is the number of insights of one kind in one period.
type PeriodCount struct {
	Period string
	Count  int
}

// Trends aggregates new and reiterated insight counts per quarter plus the
// overall category distribution.
type Trends struct {
	NewByPeriod          []PeriodCount
	ReiteratedByPeriod   []PeriodCount
	CategoryDistribution map[models.Category]int
}

// ComputeTrends counts new and reiterated insights per quarter and totals
// insights per category.
func ComputeTrends(insights []models.Insight) Trends {
	newByPeriod := make(map[string]int)
	reiteratedByPeriod := make(map[string]int)
	categories := make(map[models.Category]int)

	for _, insight := range insights {
		categories[insight.Category]++
		if insight.FirstMentionedAt.IsZero() {
			continue
		}
		period := PeriodKey(insight.FirstMentionedAt, GroupByQuarter)
		if insight.IsNew {
			newByPeriod[period]++
		}
		if insight.IsReiterated {
			reiteratedByPeriod[period]++
		}
	}

	return Trends{
		NewByPeriod:          sortedCounts(newByPeriod),
		ReiteratedByPeriod:   sortedCounts(reiteratedByPeriod),
		CategoryDistribution: categories,
	}
}

// MostDiscussed ranks initiatives by mention count, descending, returning at
// most limit entries.
func MostDiscussed(initiatives []models.Initiative, limit int) []models.Initiative {
	ranked := make([]models.Initiative, len(initiatives))
	copy(ranked, initiatives)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].MentionCount > ranked[j].MentionCount })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// sortedCounts orders period counts chronologically. Quarter keys sort
// correctly by their parsed bounds, not lexically.
func sortedCounts(byPeriod map[string]int) []PeriodCount {
	out := make([]PeriodCount, 0, len(byPeriod))
	for period, count := range byPeriod {
		out = append(out, PeriodCount{Period: period, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		si, _, errI := PeriodBounds(out[i].Period, GroupByQuarter)
		sj, _, errJ := PeriodBounds(out[j].Period, GroupByQuarter)
		if errI != nil || errJ != nil {
			return out[i].Period < out[j].Period
		}
		return si.Before(sj)
	})
	return out
}
