package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of texts sent to a provider per call.
	DefaultBatchSize = 16

	// DefaultWorkers bounds the number of batches in flight.
	DefaultWorkers = 4
)

// ErrInconsistentDimension is reported when a provider returns vectors of differing length.
var ErrInconsistentDimension = errors.New("inconsistent embedding dimension")

// Provider turns texts into fixed-dimension vectors. Implementations must be
// safe for concurrent use.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// EmbeddingError identifies the batch that failed.
type EmbeddingError struct {
	Offset int
	Size   int
	Err    error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding batch %d-%d: %v", e.Offset, e.Offset+e.Size, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Embedder splits texts into batches and dispatches them to a provider with
// bounded concurrency. Output order always matches input order.
type Embedder struct {
	provider  Provider
	batchSize int
	workers   int
	logger    *slog.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithBatchSize sets the number of texts per provider call.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithWorkers sets the number of concurrent batches.
func WithWorkers(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEmbedder creates an Embedder backed by provider.
func NewEmbedder(provider Provider, opts ...Option) *Embedder {
	e := &Embedder{
		provider:  provider,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimension returns the provider's vector dimension.
func (e *Embedder) Dimension() int { return e.provider.Dimension() }

// Model returns the provider's model name.
func (e *Embedder) Model() string { return e.provider.Model() }

// GenerateEmbeddings returns one vector per text, vector i for text i.
// Any failed batch fails the whole call with an *EmbeddingError and no
// partial output.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := 0; i < len(texts); i += e.batchSize {
		start, end := i, min(i+e.batchSize, len(texts))
		g.Go(func() error {
			vectors, err := e.provider.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return &EmbeddingError{Offset: start, Size: end - start, Err: err}
			}
			if len(vectors) != end-start {
				return &EmbeddingError{
					Offset: start,
					Size:   end - start,
					Err:    fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), end-start),
				}
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) == 0 || len(v) != dim {
			return nil, &EmbeddingError{
				Offset: i,
				Size:   1,
				Err:    fmt.Errorf("%w: got %d, expected %d", ErrInconsistentDimension, len(v), dim),
			}
		}
	}

	e.logger.Debug("generated embeddings",
		"texts", len(texts),
		"batches", (len(texts)+e.batchSize-1)/e.batchSize,
		"model", e.provider.Model())

	return out, nil
}

// EmbedQuery embeds a single text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
