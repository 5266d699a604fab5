package vectorstore

import (
	"strings"
	"testing"
)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		companyID string
		want      string
	}{
		{"acme", "company_acme"},
		{"Acme Corp", "company_Acme_Corp"},
		{"550e8400-e29b-41d4", "company_550e8400_e29b_41d4"},
		{"a.b/c", "company_a_b_c"},
	}
	for _, tt := range tests {
		if got := CollectionName(tt.companyID); got != tt.want {
			t.Errorf("CollectionName(%q) = %q, want %q", tt.companyID, got, tt.want)
		}
	}
}

func TestBuildFilterExpr(t *testing.T) {
	if got := buildFilterExpr(nil); got != "" {
		t.Errorf("empty filter produced %q", got)
	}

	got := buildFilterExpr(map[string]interface{}{"document_id": "doc1"})
	if got != `document_id == "doc1"` {
		t.Errorf("string filter produced %q", got)
	}

	got = buildFilterExpr(map[string]interface{}{"chunk_index": 3})
	if got != "chunk_index == 3" {
		t.Errorf("int filter produced %q", got)
	}

	got = buildFilterExpr(map[string]interface{}{"document_id": []string{"a", "b"}})
	if got != `document_id in ["a", "b"]` {
		t.Errorf("list filter produced %q", got)
	}

	// Map iteration order varies, so check parts for multi-key filters.
	got = buildFilterExpr(map[string]interface{}{"document_id": "doc1", "chunk_index": 3})
	if !strings.Contains(got, `document_id == "doc1"`) ||
		!strings.Contains(got, "chunk_index == 3") ||
		!strings.Contains(got, " and ") {
		t.Errorf("multi-key filter produced %q", got)
	}
}

func TestIDInExpr(t *testing.T) {
	got := idInExpr([]string{"doc1_chunk_0", "doc1_chunk_1"})
	want := `id in ["doc1_chunk_0", "doc1_chunk_1"]`
	if got != want {
		t.Errorf("idInExpr = %q, want %q", got, want)
	}
}

func TestMetadataInt64(t *testing.T) {
	md := map[string]interface{}{"a": 1, "b": int64(2), "c": 3.0, "d": "x"}
	if got := metadataInt64(md, "a"); got != 1 {
		t.Errorf("int: got %d", got)
	}
	if got := metadataInt64(md, "b"); got != 2 {
		t.Errorf("int64: got %d", got)
	}
	if got := metadataInt64(md, "c"); got != 3 {
		t.Errorf("float64: got %d", got)
	}
	if got := metadataInt64(md, "d"); got != 0 {
		t.Errorf("non-numeric: got %d", got)
	}
	if got := metadataInt64(md, "missing"); got != 0 {
		t.Errorf("missing: got %d", got)
	}
}
