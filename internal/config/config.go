// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	LLM          LLMConfig          `yaml:"llm"`
	Ingest       IngestConfig       `yaml:"ingest"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Conversation ConversationConfig `yaml:"conversation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the conversation database, the vector
// index snapshot, and the organizations document root.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	VectorIndexPath  string `yaml:"vector_index_path"`
	OrganizationsDir string `yaml:"organizations_dir"`
}

// LLMConfig holds settings for the OpenAI-compatible backend. The API
// key is taken from the OPENAI_API_KEY environment variable, never from
// the config file.
type LLMConfig struct {
	BaseURL             string `yaml:"base_url"`
	ChatModel           string `yaml:"chat_model"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	EmbeddingCacheSize  int    `yaml:"embedding_cache_size"`
	MaxRetries          int    `yaml:"max_retries"`
}

// IngestConfig holds chunking and watch settings.
type IngestConfig struct {
	ChunkSize    int   `yaml:"chunk_size"`
	ChunkOverlap int   `yaml:"chunk_overlap"`
	Watch        *bool `yaml:"watch"`
}

// WatchOrDefault returns whether to watch the organizations directory;
// defaults to true when unset.
func (c *IngestConfig) WatchOrDefault() bool {
	if c.Watch != nil {
		return *c.Watch
	}
	return true
}

// RetrievalConfig holds retrieval tuning settings.
type RetrievalConfig struct {
	MaxPerDocument int `yaml:"max_per_document"`
}

// ConversationConfig holds conversation window settings.
type ConversationConfig struct {
	MaxMessages    int `yaml:"max_messages"`
	MaxTokens      int `yaml:"max_tokens"`
	SummaryTrigger int `yaml:"summary_trigger"`
}

// Load reads and parses the config file at path, applies defaults, and
// expands storage paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.OrganizationsDir = expandPath(cfg.Storage.OrganizationsDir, configDir)

	return &cfg, nil
}

// ApplyDefaults fills unset fields with working defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/kotae.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "./data/vectors.bin"
	}
	if cfg.Storage.OrganizationsDir == "" {
		cfg.Storage.OrganizationsDir = "./data/organizations"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com"
	}
	if cfg.LLM.ChatModel == "" {
		cfg.LLM.ChatModel = "gpt-4o-mini"
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.LLM.EmbeddingDimensions == 0 {
		cfg.LLM.EmbeddingDimensions = 1536
	}
	if cfg.LLM.EmbeddingCacheSize == 0 {
		cfg.LLM.EmbeddingCacheSize = 1000
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 300
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 50
	}
	if cfg.Retrieval.MaxPerDocument == 0 {
		cfg.Retrieval.MaxPerDocument = 3
	}
	if cfg.Conversation.MaxMessages == 0 {
		cfg.Conversation.MaxMessages = 10
	}
	if cfg.Conversation.MaxTokens == 0 {
		cfg.Conversation.MaxTokens = 4000
	}
	if cfg.Conversation.SummaryTrigger == 0 {
		cfg.Conversation.SummaryTrigger = 15
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
