package models

import "time"

// Category is the closed vocabulary for initiative classification.
type Category string

const (
	CategoryStrategy    Category = "strategy"
	CategoryProduct     Category = "product"
	CategoryMarket      Category = "market"
	CategoryOperational Category = "operational"
	CategoryFinancial   Category = "financial"
)

// ConfidenceLevel buckets a confidence score for display.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// LevelForScore maps a confidence score to its display bucket.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ProcessingStatus tracks document and analysis lifecycle.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Company is a tracked issuer. All chunks, initiatives and insights are
// scoped to exactly one company.
type Company struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Ticker    string    `bson:"ticker" json:"ticker"`
	Industry  string    `bson:"industry" json:"industry"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Document is an uploaded disclosure file and its processing state.
type Document struct {
	ID           string           `bson:"_id" json:"id"`
	CompanyID    string           `bson:"company_id" json:"company_id"`
	Filename     string           `bson:"filename" json:"filename"`
	Title        string           `bson:"title" json:"title"`
	DocumentType string           `bson:"document_type" json:"document_type"` // earnings_call, annual_report, ...
	FileSize     int64            `bson:"file_size" json:"file_size"`
	StoragePath  string           `bson:"storage_path" json:"storage_path"`
	ContentHash  string           `bson:"content_hash" json:"content_hash"` // sha256, duplicate rejection
	DocumentDate *time.Time       `bson:"document_date,omitempty" json:"document_date,omitempty"`
	Status       ProcessingStatus `bson:"status" json:"status"`
	ErrorMessage string           `bson:"error_message,omitempty" json:"error_message,omitempty"`
	ChunkCount   int              `bson:"chunk_count" json:"chunk_count"`
	WordCount    int              `bson:"word_count" json:"word_count"`
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
}

// Analysis is one extraction run over a company's documents.
type Analysis struct {
	ID           string           `bson:"_id" json:"id"`
	CompanyID    string           `bson:"company_id" json:"company_id"`
	DocumentIDs  []string         `bson:"document_ids,omitempty" json:"document_ids,omitempty"`
	Status       ProcessingStatus `bson:"status" json:"status"`
	Progress     int              `bson:"progress" json:"progress"` // 0..100
	InsightCount int              `bson:"insight_count" json:"insight_count"`
	ErrorMessage string           `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
	StartedAt    *time.Time       `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt  *time.Time       `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Initiative is the canonical record of one strategic claim tracked across
// documents and time. Created on the first unmatched extraction; updated on
// every later match; removed only by company-level purge.
type Initiative struct {
	ID               string    `bson:"_id" json:"id"`
	CompanyID        string    `bson:"company_id" json:"company_id"`
	Name             string    `bson:"name" json:"name"`
	Description      string    `bson:"description" json:"description"`
	Category         Category  `bson:"category" json:"category"`
	FirstMentionedAt time.Time `bson:"first_mentioned_at" json:"first_mentioned_at"`
	LastMentionedAt  time.Time `bson:"last_mentioned_at" json:"last_mentioned_at"`
	FirstDocumentID  string    `bson:"first_document_id" json:"first_document_id"`
	MentionCount     int       `bson:"mention_count" json:"mention_count"`
	DocumentCount    int       `bson:"document_count" json:"document_count"`
	AvgConfidence    float64   `bson:"avg_confidence" json:"avg_confidence"`
	IsActive         bool      `bson:"is_active" json:"is_active"`
	IsCompleted      bool      `bson:"is_completed" json:"is_completed"`
	Keywords         []string  `bson:"keywords" json:"keywords"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// Insight is one surfaced claim within one analysis run, linked to its
// Initiative. The temporal flags are assigned at creation time and never
// recomputed: IsNew and IsReiterated are mutually exclusive; IsModified may
// co-occur with IsReiterated.
type Insight struct {
	ID               string          `bson:"_id" json:"id"`
	CompanyID        string          `bson:"company_id" json:"company_id"`
	AnalysisID       string          `bson:"analysis_id" json:"analysis_id"`
	InitiativeID     string          `bson:"initiative_id,omitempty" json:"initiative_id,omitempty"`
	Title            string          `bson:"title" json:"title"`
	Description      string          `bson:"description" json:"description"`
	Category         Category        `bson:"category" json:"category"`
	ConfidenceScore  float64         `bson:"confidence_score" json:"confidence_score"`
	ConfidenceLevel  ConfidenceLevel `bson:"confidence_level" json:"confidence_level"`
	Sentiment        string          `bson:"sentiment" json:"sentiment"`
	ImportanceScore  float64         `bson:"importance_score" json:"importance_score"`
	Actionability    string          `bson:"actionability" json:"actionability"`
	IsNew            bool            `bson:"is_new" json:"is_new"`
	IsReiterated     bool            `bson:"is_reiterated" json:"is_reiterated"`
	IsModified       bool            `bson:"is_modified" json:"is_modified"`
	FirstMentionedAt time.Time       `bson:"first_mentioned_at" json:"first_mentioned_at"`
	CreatedAt        time.Time       `bson:"created_at" json:"created_at"`
}

// Evidence is a verbatim citation supporting an insight.
type Evidence struct {
	ID             string    `bson:"_id" json:"id"`
	InsightID      string    `bson:"insight_id" json:"insight_id"`
	DocumentID     string    `bson:"document_id" json:"document_id"`
	Quote          string    `bson:"quote" json:"quote"`
	Context        string    `bson:"context,omitempty" json:"context,omitempty"`
	PageNumber     int       `bson:"page_number,omitempty" json:"page_number,omitempty"`
	Section        string    `bson:"section,omitempty" json:"section,omitempty"`
	ChunkID        string    `bson:"chunk_id,omitempty" json:"chunk_id,omitempty"`
	RelevanceScore float64   `bson:"relevance_score" json:"relevance_score"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
