package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/qa-rag/internal/document"
)

// vectorName is the named vector holding chunk embeddings.
const vectorName = "content"

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Dimension  int // 0 infers from the existing collection or the first Add
}

// QdrantIndex stores records as points in a single Qdrant collection.
// Each point carries the chunk fields and an insertion sequence in its payload.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger

	mu        sync.Mutex
	dimension int
	exists    bool
	seq       uint64
}

// NewQdrantIndex creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig, logger *slog.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollectionName
	}

	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		logger:     logger,
		dimension:  cfg.Dimension,
	}

	// Perform health check with exponential backoff retry
	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	if err := idx.loadCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return idx, nil
}

// newBackOff returns the retry policy shared by Qdrant calls.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// healthCheckWithRetry performs health check with exponential backoff.
func (q *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return q.Health(ctx) }, newBackOff(ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (q *QdrantIndex) Health(ctx context.Context) error {
	result, err := q.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// loadCollection picks up the dimension and sequence of an existing collection.
func (q *QdrantIndex) loadCollection(ctx context.Context) error {
	collections, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name != q.collection {
			continue
		}

		info, err := q.client.GetCollectionInfo(ctx, q.collection)
		if err != nil {
			return fmt.Errorf("failed to get collection: %w", err)
		}
		params := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[vectorName]
		if params == nil {
			return fmt.Errorf("collection %s has no %q vector", q.collection, vectorName)
		}
		size := int(params.GetSize())
		if q.dimension != 0 && q.dimension != size {
			return &DimensionMismatchError{Expected: size, Got: q.dimension}
		}
		q.dimension = size

		count, err := q.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: q.collection,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("failed to count points: %w", err)
		}
		q.seq = count
		q.exists = true

		q.logger.Info("using existing collection",
			"collection", q.collection,
			"dimension", q.dimension,
			"points", count)
		return nil
	}

	return nil
}

// ensureCollection creates the collection with cosine distance on first use.
func (q *QdrantIndex) ensureCollection(ctx context.Context, dimension int) error {
	if q.exists {
		return nil
	}

	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Index the document id so a document's chunks can be filtered
	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collection,
		FieldName:      "document_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field document_id: %w", err)
	}

	q.exists = true
	return nil
}

// Name returns the backend name.
func (q *QdrantIndex) Name() string { return "qdrant" }

// Dimension returns the established dimensionality.
func (q *QdrantIndex) Dimension() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dimension
}

// Add upserts one point and waits until it is searchable.
func (q *QdrantIndex) Add(ctx context.Context, vector []float32, chunk document.Chunk) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := checkDimension(q.dimension, vector); err != nil {
		return err
	}
	if err := q.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}

	seq := q.seq + 1
	point := &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(uuid.New().String()),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			vectorName: qdrant.NewVector(vector...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			"document_id": chunk.DocumentID,
			"chunk_index": chunk.ChunkIndex,
			"source_name": chunk.SourceName,
			"section":     chunk.Section,
			"text":        chunk.Text,
			"seq":         int64(seq),
		}),
	}

	if err := q.upsertWithRetry(ctx, []*qdrant.PointStruct{point}); err != nil {
		return fmt.Errorf("failed to upsert chunk %d of %s: %w", chunk.ChunkIndex, chunk.DocumentID, err)
	}

	q.seq = seq
	if q.dimension == 0 {
		q.dimension = len(vector)
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (q *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, newBackOff(ctx))
}

// Search performs vector similarity search and re-ranks the results so
// equal scores are ordered by insertion sequence.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, topK int) ([]Hit, error) {
	q.mu.Lock()
	exists, dimension, seq := q.exists, q.dimension, q.seq
	q.mu.Unlock()

	if !exists || seq == 0 || topK <= 0 {
		return []Hit{}, nil
	}
	if err := checkDimension(dimension, query); err != nil {
		return nil, err
	}

	// Over-fetch so ties at the cut-off are resolved by sequence, not by Qdrant
	limit := uint64(topK * 2)
	results, err := q.query(ctx, query, limit, nil)
	if err != nil {
		return nil, err
	}
	if tiesPastLimit(scores(results), topK, int(limit)) {
		// Fetch every point scoring at least the cut-off
		cutoff := results[topK-1].Score
		results, err = q.query(ctx, query, seq, &cutoff)
		if err != nil {
			return nil, err
		}
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		hits = append(hits, Hit{
			Chunk: document.Chunk{
				DocumentID: payload["document_id"].GetStringValue(),
				ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
				SourceName: payload["source_name"].GetStringValue(),
				Section:    payload["section"].GetStringValue(),
				Text:       payload["text"].GetStringValue(),
			},
			Score: float64(result.Score), // Qdrant returns float32, convert to float64
			Seq:   uint64(payload["seq"].GetIntegerValue()),
		})
	}

	return Rank(hits, topK), nil
}

func (q *QdrantIndex) query(ctx context.Context, query []float32, limit uint64, threshold *float32) ([]*qdrant.ScoredPoint, error) {
	using := vectorName
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Using:          &using,
		Limit:          qdrant.PtrOf(limit),
		ScoreThreshold: threshold,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false), // Don't need vectors in response
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return results, nil
}

func scores(results []*qdrant.ScoredPoint) []float32 {
	out := make([]float32, len(results))
	for i, r := range results {
		out[i] = r.Score
	}
	return out
}

// tiesPastLimit reports whether points tied with the topK-th score may have
// been cut off by limit. scores are in descending order.
func tiesPastLimit(scores []float32, topK, limit int) bool {
	if topK <= 0 || len(scores) < limit || len(scores) < topK {
		return false
	}
	return scores[len(scores)-1] == scores[topK-1]
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	q.mu.Lock()
	exists := q.exists
	q.mu.Unlock()
	if !exists {
		return 0, nil
	}

	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// Reset deletes the collection. The next Add recreates it.
func (q *QdrantIndex) Reset(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.exists {
		return nil
	}
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	q.exists = false
	q.seq = 0
	return nil
}

// Close closes the Qdrant client connection.
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}
