package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: mgmtsays
  environment: development
logger:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := cfg.Pipeline
	if p.ChunkSize != 1024 {
		t.Errorf("ChunkSize default = %d, want 1024", p.ChunkSize)
	}
	if p.ChunkOverlap != 128 {
		t.Errorf("ChunkOverlap default = %d, want 128", p.ChunkOverlap)
	}
	if p.DedupThreshold != 0.7 {
		t.Errorf("DedupThreshold default = %v, want 0.7", p.DedupThreshold)
	}
	if p.DedupBatchSize != 50 {
		t.Errorf("DedupBatchSize default = %d, want 50", p.DedupBatchSize)
	}
	if p.ModifiedThreshold != 0.5 {
		t.Errorf("ModifiedThreshold default = %v, want 0.5", p.ModifiedThreshold)
	}
	if p.WorkerCount != 2 {
		t.Errorf("WorkerCount default = %d, want 2", p.WorkerCount)
	}
	if p.EmbeddingDimension != 1536 {
		t.Errorf("EmbeddingDimension default = %d, want 1536", p.EmbeddingDimension)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  chunkSize: 2048
  workerCount: 8
  dedupThreshold: 0.85
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.ChunkSize != 2048 {
		t.Errorf("ChunkSize = %d, want 2048", cfg.Pipeline.ChunkSize)
	}
	if cfg.Pipeline.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d, want 8", cfg.Pipeline.WorkerCount)
	}
	if cfg.Pipeline.DedupThreshold != 0.85 {
		t.Errorf("DedupThreshold = %v, want 0.85", cfg.Pipeline.DedupThreshold)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "pipeline: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}
