package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application identity.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // "development", "staging", "production"
}

// LoggerConfig controls the global log level.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// OpenAIConfig holds credentials and model names for the OpenAI API.
type OpenAIConfig struct {
	BaseURL        string `yaml:"baseURL"` // empty means the public endpoint
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`          // chat model for extraction/dedup/QA
	EmbeddingModel string `yaml:"embeddingModel"` // e.g. "text-embedding-3-small"
}

// LLMConfig selects the reasoning-model provider.
type LLMConfig struct {
	Provider string       `yaml:"provider"` // "openai"
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// RerankerConfig selects the reranking mode.
type RerankerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode"`   // "model" or "heuristic"
	APIKey  string `yaml:"apiKey"` // rerank API key, model mode only
	Model   string `yaml:"model"`  // rerank model name, model mode only
}

// PipelineConfig tunes the document-to-knowledge pipeline.
type PipelineConfig struct {
	ChunkSize          int      `yaml:"chunkSize"`          // target chunk size in characters
	ChunkOverlap       int      `yaml:"chunkOverlap"`       // overlap between semantic chunks
	MaxChunkSize       int      `yaml:"maxChunkSize"`       // structural chunker hard bound
	RetrievalTopK      int      `yaml:"retrievalTopK"`      // default top-k for retrieval
	ExtractionTopK     int      `yaml:"extractionTopK"`     // chunks retrieved per document for analysis
	DedupThreshold     float64  `yaml:"dedupThreshold"`     // pairwise similarity threshold
	DedupBatchSize     int      `yaml:"dedupBatchSize"`     // batch bound for large dedup runs
	ModifiedThreshold  float64  `yaml:"modifiedThreshold"`  // description divergence for is_modified
	WorkerCount        int      `yaml:"workerCount"`        // job worker pool size
	EmbeddingDimension int      `yaml:"embeddingDimension"` // vector dimension of the embedding model
	Reranker           RerankerConfig `yaml:"reranker"`
}

// MilvusConfig holds the vector database connection settings.
type MilvusConfig struct {
	Address string `yaml:"address"`
}

// MongoConfig holds the document database connection settings.
type MongoConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MinIOConfig holds the object storage connection settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// KafkaConfig holds the optional job-submission topic settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupID"`
}

// StorageConfig selects the file storage backend.
type StorageConfig struct {
	Backend  string `yaml:"backend"`  // "minio" or "local"
	LocalDir string `yaml:"localDir"` // upload directory, local backend only
}

// DatabaseConfigs groups all backing store configurations.
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`
	MongoDB MongoConfig  `yaml:"mongodb"`
	MinIO   MinIOConfig  `yaml:"minio"`
	Kafka   KafkaConfig  `yaml:"kafka"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Storage   StorageConfig   `yaml:"storage"`
	Databases DatabaseConfigs `yaml:"databases"`
}

// Load reads and parses the YAML configuration file at path, then applies
// defaults for unset pipeline tuning values.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	p := &c.Pipeline
	if p.ChunkSize == 0 {
		p.ChunkSize = 1024
	}
	if p.ChunkOverlap == 0 {
		p.ChunkOverlap = 128
	}
	if p.MaxChunkSize == 0 {
		p.MaxChunkSize = 2000
	}
	if p.RetrievalTopK == 0 {
		p.RetrievalTopK = 10
	}
	if p.ExtractionTopK == 0 {
		p.ExtractionTopK = 50
	}
	if p.DedupThreshold == 0 {
		p.DedupThreshold = 0.7
	}
	if p.DedupBatchSize == 0 {
		p.DedupBatchSize = 50
	}
	if p.ModifiedThreshold == 0 {
		p.ModifiedThreshold = 0.5
	}
	if p.WorkerCount == 0 {
		p.WorkerCount = 2
	}
	if p.EmbeddingDimension == 0 {
		p.EmbeddingDimension = 1536
	}
}
