package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the application.
type AppInfo struct {
	Name        string `yaml:"name"`        // Application name
	Environment string `yaml:"environment"` // e.g. "development", "production"
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"` // Listen address, e.g. ":8080"
}

// LoggerConfig holds the logger settings.
type LoggerConfig struct {
	Level string `yaml:"level"` // Log level: "debug", "info", "warn", "error"
}

// MySQLConfig holds the MySQL connection settings.
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL server address
	Username        string `yaml:"username"`        // User name
	Password        string `yaml:"password"`        // Password
	Database        string `yaml:"database"`        // Database name
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // Maximum open connections
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // Maximum idle connections
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // Connection lifetime in seconds
}

// MilvusConfig holds the Milvus connection and collection settings.
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus service address
	Collection string `yaml:"collection"` // Collection holding chunk embeddings
	Dim        int    `yaml:"dim"`        // Embedding dimensionality
}

// MinIOConfig holds the MinIO object-storage settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO endpoint
	AccessKey string `yaml:"accessKey"` // Access key
	SecretKey string `yaml:"secretKey"` // Secret key
	Bucket    string `yaml:"bucket"`    // Bucket for uploaded documents
	Secure    bool   `yaml:"secure"`    // Use HTTPS
}

// DatabaseConfigs groups all storage backend settings.
type DatabaseConfigs struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Milvus MilvusConfig `yaml:"milvus"`
	MinIO  MinIOConfig  `yaml:"minio"`
}

// EmbeddingConfig selects and configures the embedding provider.
// An empty Provider means embeddings are disabled and ingestion runs in
// degraded mode.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", or "" to disable
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseURL"`
	BatchSize      int    `yaml:"batchSize"`      // Texts per provider call
	MaxConcurrency int    `yaml:"maxConcurrency"` // Concurrent batch calls
	Retries        int    `yaml:"retries"`        // Retries per failed batch before degrading
}

// LLMConfig selects and configures the answer-generation provider.
// An empty Provider means answers fall back to chunk concatenation.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "ollama", or "" to disable
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseURL"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`
}

// IngestConfig holds the ingestion pipeline settings.
type IngestConfig struct {
	MaxFileSizeBytes int64   `yaml:"maxFileSizeBytes"` // Upload size ceiling
	TokenBudget      int     `yaml:"tokenBudget"`      // Estimated tokens per chunk
	OverlapRatio     float64 `yaml:"overlapRatio"`     // Fraction of a chunk carried into the next; negative disables
}

// RetrievalConfig holds the query-time settings.
type RetrievalConfig struct {
	DefaultLimit int `yaml:"defaultLimit"` // Result count when the caller omits a limit
	MaxLimit     int `yaml:"maxLimit"`     // Hard ceiling on the result count
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
	Databases DatabaseConfigs `yaml:"databases"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// LoadConfig reads and parses the YAML configuration file at path.
// Environment variable references of the form ${VAR} in the file are
// expanded before parsing so secrets can stay out of the file itself.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file '%s': %w", path, err)
	}

	expanded := os.ExpandEnv(string(yamlFile))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in zero-valued settings with working defaults.
func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Databases.Milvus.Collection == "" {
		cfg.Databases.Milvus.Collection = "chunk_embeddings"
	}
	if cfg.Databases.Milvus.Dim == 0 {
		cfg.Databases.Milvus.Dim = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.MaxConcurrency == 0 {
		cfg.Embedding.MaxConcurrency = 4
	}
	if cfg.Ingest.MaxFileSizeBytes == 0 {
		cfg.Ingest.MaxFileSizeBytes = 50 << 20
	}
	if cfg.Ingest.TokenBudget == 0 {
		cfg.Ingest.TokenBudget = 500
	}
	if cfg.Ingest.OverlapRatio == 0 {
		cfg.Ingest.OverlapRatio = 0.15
	}
	if cfg.Retrieval.DefaultLimit == 0 {
		cfg.Retrieval.DefaultLimit = 5
	}
	if cfg.Retrieval.MaxLimit == 0 {
		cfg.Retrieval.MaxLimit = 50
	}
}
