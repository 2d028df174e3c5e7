// Package app wires configured components into a running knowledge base.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bull/qa-rag/internal/chunker"
	"github.com/bull/qa-rag/internal/config"
	"github.com/bull/qa-rag/internal/embedding"
	"github.com/bull/qa-rag/internal/executor"
	"github.com/bull/qa-rag/internal/extract"
	"github.com/bull/qa-rag/internal/indexer"
	"github.com/bull/qa-rag/internal/llm"
	"github.com/bull/qa-rag/internal/markdown"
	"github.com/bull/qa-rag/internal/rag"
	"github.com/bull/qa-rag/internal/reference"
	"github.com/bull/qa-rag/internal/storage"
)

// App holds the shared components built once at startup.
type App struct {
	Config     *config.Config
	Embedder   *embedding.Embedder
	Index      storage.Index
	References *reference.Store
	Builder    *indexer.Builder
	Generator  *rag.Generator // Nil when no model is configured
	Runner     *executor.Runner
	Logger     *slog.Logger
}

// Options controls which optional parts New builds.
type Options struct {
	// RequireModel fails startup when no generative model credential is set.
	RequireModel bool
	// Model overrides the configured generative model.
	Model llm.Model
}

// New builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := NewProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	embedder := embedding.NewEmbedder(provider,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithWorkers(cfg.Embedding.Workers),
		embedding.WithLogger(logger),
	)

	logger.Info("Embedding engine ready",
		"provider", cfg.Embedding.Provider,
		"model", provider.Model(),
		"dimension", provider.Dimension(),
		"device", cfg.Embedding.Device)

	index, err := storage.Open(ctx, storage.Config{
		Backend:   cfg.VectorStore.Backend,
		Path:      cfg.VectorStore.Path,
		Dimension: provider.Dimension(),
		Qdrant: storage.QdrantConfig{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			Collection: cfg.VectorStore.Qdrant.Collection,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	extractor := extract.NewExtractor()
	references := reference.NewStore(referenceURL(cfg))

	pipeline := indexer.NewPipeline(
		extractor,
		chunker.New(chunker.WithChunkSize(cfg.Chunker.Size), chunker.WithOverlap(cfg.Chunker.Overlap)),
		markdown.NewSectioner(),
		embedder,
		index,
		logger,
	)

	a := &App{
		Config:     cfg,
		Embedder:   embedder,
		Index:      index,
		References: references,
		Builder:    indexer.NewBuilder(pipeline, references),
		Runner:     newRunner(cfg.Executor, logger),
		Logger:     logger,
	}

	model := opts.Model
	if model == nil {
		if err := cfg.RequireLLMCredential(); err != nil {
			if opts.RequireModel {
				index.Close()
				return nil, err
			}
			logger.Warn("No LLM credential set, generation is disabled")
			return a, nil
		}
		model, err = llm.NewOpenAIModel(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: &cfg.LLM.Temperature,
		}, logger)
		if err != nil {
			index.Close()
			return nil, err
		}
	}

	a.Generator = rag.NewGenerator(embedder, index, model, references, extractor, logger)
	// Leave a quarter of the model budget for instructions
	a.Generator.SetContextLimit(cfg.LLM.MaxTokens * 3)
	return a, nil
}

// NewProvider creates the configured embedding provider.
func NewProvider(cfg config.EmbeddingConfig) (embedding.Provider, error) {
	switch cfg.Provider {
	case "hash":
		dim := cfg.Dimension
		if dim <= 0 {
			dim = embedding.DefaultHashDimension
		}
		return embedding.NewHashProvider(dim)
	case "openai", "":
		p, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Close releases the index.
func (a *App) Close() error {
	return a.Index.Close()
}

func newRunner(cfg config.ExecutorConfig, logger *slog.Logger) *executor.Runner {
	r := executor.NewRunner(logger)
	if cfg.Interpreter != "" {
		r.Interpreter = cfg.Interpreter
	}
	if cfg.TimeoutSeconds > 0 {
		r.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return r
}

func referenceURL(cfg *config.Config) string {
	dir, err := filepath.Abs(cfg.ReferenceDir())
	if err != nil {
		return cfg.ReferenceDir()
	}
	return dir
}
