package service

import (
	"testing"
	"time"

	"github.com/vbhandari/MgmtSays/internal/models"
	"github.com/vbhandari/MgmtSays/internal/rag/schema"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestMentionSourcePicksEarliestEvidenceDocument(t *testing.T) {
	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	docs := map[string]*models.Document{
		"doc1": {ID: "doc1", DocumentDate: datePtr(newer)},
		"doc2": {ID: "doc2", DocumentDate: datePtr(older)},
		"doc3": {ID: "doc3", DocumentDate: datePtr(older.AddDate(-1, 0, 0))},
	}
	// doc3 is older still but contributes no evidence; the initiative's first
	// mention is the earliest document it actually appeared in.
	m := schema.MergedInitiative{
		Evidence: []schema.EvidenceRef{
			{Quote: "a", DocumentID: "doc1"},
			{Quote: "b", DocumentID: "doc2"},
		},
	}

	at, doc := mentionSource(m, docs)
	if doc == nil || doc.ID != "doc2" {
		t.Fatalf("source document = %v, want doc2", doc)
	}
	if !at.Equal(older) {
		t.Errorf("mentioned at = %v, want %v", at, older)
	}
}

func TestMentionSourceFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	docs := map[string]*models.Document{
		"doc1": {ID: "doc1", CreatedAt: created},
	}
	m := schema.MergedInitiative{
		Evidence: []schema.EvidenceRef{{Quote: "a", DocumentID: "doc1"}},
	}

	at, doc := mentionSource(m, docs)
	if doc == nil || doc.ID != "doc1" {
		t.Fatalf("source document = %v, want doc1", doc)
	}
	if !at.Equal(created) {
		t.Errorf("mentioned at = %v, want upload time", at)
	}
}

func TestMentionSourceFallsBackToRunDocuments(t *testing.T) {
	docs := map[string]*models.Document{
		"doc1": {ID: "doc1", CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		"doc2": {ID: "doc2", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	// Evidence names no known document; the earliest document of the run is
	// used so the insight still gets a defensible timestamp.
	m := schema.MergedInitiative{
		Evidence: []schema.EvidenceRef{{Quote: "a", DocumentID: "unknown"}},
	}

	_, doc := mentionSource(m, docs)
	if doc == nil || doc.ID != "doc2" {
		t.Fatalf("source document = %v, want doc2", doc)
	}
}

func TestFirstQuoteSkipsBlankRefs(t *testing.T) {
	m := schema.MergedInitiative{
		Evidence: []schema.EvidenceRef{
			{ChunkID: "doc1_chunk_0"},
			{Quote: "we will expand", ChunkID: "doc1_chunk_1"},
		},
	}
	if got := firstQuote(m); got != "we will expand" {
		t.Errorf("firstQuote = %q", got)
	}
	if got := firstQuote(schema.MergedInitiative{}); got != "" {
		t.Errorf("firstQuote on empty evidence = %q", got)
	}
}
