package storage

import (
	"context"

	"github.com/bull/qa-rag/internal/document"
)

// DefaultCollectionName is the Qdrant collection used when none is configured.
const DefaultCollectionName = "qa_chunks"

// Hit is one search result.
type Hit struct {
	Chunk document.Chunk
	Score float64 // Cosine similarity, higher is closer
	Seq   uint64  // Insertion sequence, used to break score ties
}

// Index stores embedding vectors with their chunk metadata and answers
// nearest-neighbour queries. All backends share these rules: the first Add
// fixes the dimensionality unless configured up front, a mismatched Add
// fails with *DimensionMismatchError and leaves the index unchanged, and
// Search results are ordered by Rank.
type Index interface {
	Add(ctx context.Context, vector []float32, chunk document.Chunk) error
	Search(ctx context.Context, query []float32, topK int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	// Dimension returns the established dimensionality, 0 if not yet known.
	Dimension() int
	Name() string
	Close() error
}
