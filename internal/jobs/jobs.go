package jobs

import (
	"context"
	"time"
)

// Kind identifies what a job does.
type Kind string

const (
	// KindProcessDocument parses, chunks and indexes one uploaded document.
	KindProcessDocument Kind = "process_document"

	// KindRunAnalysis runs the extraction pipeline for one analysis record.
	KindRunAnalysis Kind = "run_analysis"
)

// Job is one unit of background work. TargetID names the document or
// analysis the handler operates on.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	CompanyID  string    `json:"company_id"`
	TargetID   string    `json:"target_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Handler executes one job. A returned error marks the job failed; the pool
// never retries.
type Handler func(ctx context.Context, job Job) error
