package storage

import (
	"context"
	"sync"

	"github.com/bull/qa-rag/internal/document"
)

// MemoryIndex is an in-process index using brute-force cosine similarity.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	records   []memoryRecord
}

type memoryRecord struct {
	vector []float32
	chunk  document.Chunk
	seq    uint64
}

// NewMemoryIndex creates an empty index. A dimension of 0 is inferred from the first Add.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{dimension: dimension}
}

// Name returns the backend name.
func (m *MemoryIndex) Name() string { return "memory" }

// Dimension returns the established dimensionality.
func (m *MemoryIndex) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimension
}

// Add stores a copy of vector with its chunk.
func (m *MemoryIndex) Add(ctx context.Context, vector []float32, chunk document.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkDimension(m.dimension, vector); err != nil {
		return err
	}
	if m.dimension == 0 {
		m.dimension = len(vector)
	}

	m.records = append(m.records, memoryRecord{
		vector: append([]float32(nil), vector...),
		chunk:  chunk,
		seq:    uint64(len(m.records) + 1),
	})
	return nil
}

// Search returns up to topK records closest to query.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, topK int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 || topK <= 0 {
		return []Hit{}, nil
	}
	if err := checkDimension(m.dimension, query); err != nil {
		return nil, err
	}

	hits := make([]Hit, len(m.records))
	for i, r := range m.records {
		hits[i] = Hit{Chunk: r.chunk, Score: Cosine(query, r.vector), Seq: r.seq}
	}
	return Rank(hits, topK), nil
}

// Count returns the number of stored records.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close is a no-op.
func (m *MemoryIndex) Close() error { return nil }
