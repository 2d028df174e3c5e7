// Package config loads process configuration from a .env file, an optional
// YAML file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when the generative model has no API key.
var ErrMissingCredential = errors.New("llm api key not set (LLM_API_KEY or OPENAI_API_KEY)")

// ServerConfig configures the HTTP process.
type ServerConfig struct {
	Port       string `yaml:"port"`
	ServerMode bool   `yaml:"server_mode"` // Serve MCP over HTTP instead of stdio
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai | hash
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"` // 0 uses the provider default
	Device    string `yaml:"device"`
	BaseURL   string `yaml:"base_url"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
	APIKey    string `yaml:"-"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Backend string       `yaml:"backend"` // memory | sqlite | qdrant
	Path    string       `yaml:"path"`
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// LLMConfig configures the generative model.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	APIKey      string  `yaml:"-"`
}

// ExecutorConfig configures the script runner.
type ExecutorConfig struct {
	Interpreter    string `yaml:"interpreter"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // DEBUG | INFO | WARN | ERROR
	Format string `yaml:"format"` // text | json
}

// Config is the root configuration.
type Config struct {
	StorageDir  string            `yaml:"storage_dir"`
	Server      ServerConfig      `yaml:"server"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	LLM         LLMConfig         `yaml:"llm"`
	Executor    ExecutorConfig    `yaml:"executor"`
	Log         LogConfig         `yaml:"log"`
	GitHubToken string            `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		StorageDir: "data/storage",
		Server:     ServerConfig{Port: "8080"},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			Device:    "cpu",
			BatchSize: 16,
			Workers:   4,
		},
		VectorStore: VectorStoreConfig{
			Backend: "sqlite",
			Path:    "data/vectorstore/index.db",
			Qdrant:  QdrantConfig{Host: "localhost", Port: 6334, Collection: "qa_chunks"},
		},
		Chunker:  ChunkerConfig{Size: 1000, Overlap: 200},
		LLM:      LLMConfig{Model: "gpt-4o-mini", MaxTokens: 16000, Temperature: 0.2},
		Executor: ExecutorConfig{Interpreter: "python3", TimeoutSeconds: 60},
		Log:      LogConfig{Level: "INFO", Format: "text"},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// QA_CONFIG (if set), then environment variables. A .env file in the
// working directory is loaded into the environment first if present.
func Load() (*Config, error) {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Default()
	if path := os.Getenv("QA_CONFIG"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Save writes cfg as YAML, creating directories as needed. Secrets are not written.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *Config) {
	cfg.StorageDir = getEnv("STORAGE_DIR", cfg.StorageDir)

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.ServerMode = getEnvBool("SERVER_MODE", cfg.Server.ServerMode)

	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Dimension = getEnvInt("EMBEDDING_DIMENSION", cfg.Embedding.Dimension)
	cfg.Embedding.Device = getEnv("EMBEDDING_DEVICE", cfg.Embedding.Device)
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.BatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)
	cfg.Embedding.Workers = getEnvInt("EMBEDDING_WORKERS", cfg.Embedding.Workers)
	cfg.Embedding.APIKey = getEnv("OPENAI_API_KEY", cfg.Embedding.APIKey)

	cfg.VectorStore.Backend = getEnv("VECTOR_STORE", cfg.VectorStore.Backend)
	cfg.VectorStore.Path = getEnv("VECTOR_STORE_PATH", cfg.VectorStore.Path)
	cfg.VectorStore.Qdrant.Host = getEnv("QDRANT_HOST", cfg.VectorStore.Qdrant.Host)
	cfg.VectorStore.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.VectorStore.Qdrant.Port)
	cfg.VectorStore.Qdrant.Collection = getEnv("QDRANT_COLLECTION", cfg.VectorStore.Qdrant.Collection)

	cfg.Chunker.Size = getEnvInt("CHUNK_SIZE", cfg.Chunker.Size)
	cfg.Chunker.Overlap = getEnvInt("CHUNK_OVERLAP", cfg.Chunker.Overlap)

	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", cfg.LLM.APIKey))

	cfg.Executor.Interpreter = getEnv("EXECUTOR_INTERPRETER", cfg.Executor.Interpreter)
	cfg.Executor.TimeoutSeconds = getEnvInt("EXECUTOR_TIMEOUT_SECONDS", cfg.Executor.TimeoutSeconds)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.GitHubToken = getEnv("GITHUB_TOKEN", cfg.GitHubToken)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		errs = append(errs, fmt.Errorf("embedding provider must be openai or hash, got %q", c.Embedding.Provider))
	}
	switch c.VectorStore.Backend {
	case "memory", "sqlite", "qdrant":
	default:
		errs = append(errs, fmt.Errorf("vector store must be memory, sqlite or qdrant, got %q", c.VectorStore.Backend))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must not be negative, got %d", c.Embedding.Dimension))
	}
	if c.Chunker.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.Chunker.Size))
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.Chunker.Size, c.Chunker.Overlap))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature must be in [0, 2], got %v", c.LLM.Temperature))
	}
	if c.Executor.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("executor timeout must be positive, got %d", c.Executor.TimeoutSeconds))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RequireLLMCredential fails with ErrMissingCredential when no key is set.
func (c *Config) RequireLLMCredential() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingCredential
	}
	return nil
}

// ReferenceDir is where the reference page is stored.
func (c *Config) ReferenceDir() string {
	return filepath.Join(c.StorageDir, "reference")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
