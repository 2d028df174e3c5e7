package embedding

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/minio/highwayhash"
)

// DefaultHashDimension is the vector size of the local hash provider.
const DefaultHashDimension = 384

var (
	hashKey      = []byte("qa-rag-feature-hash-key-32-bytes")
	tokenPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)
)

// HashProvider is a local feature-hashing embedder. Each lower-cased token
// is hashed into a signed bucket and the result is L2-normalized, so texts
// sharing vocabulary score high under cosine similarity. It needs no network
// and is deterministic across processes.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a hash provider; dimension <= 0 uses DefaultHashDimension.
func NewHashProvider(dimension int) (*HashProvider, error) {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	if _, err := highwayhash.New64(hashKey); err != nil {
		return nil, fmt.Errorf("init highwayhash: %w", err)
	}
	return &HashProvider{dimension: dimension}, nil
}

// Dimension returns the vector dimension.
func (p *HashProvider) Dimension() int { return p.dimension }

// Model returns the provider name.
func (p *HashProvider) Model() string { return "feature-hash" }

// EmbedBatch embeds each text independently.
func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = p.embed(text)
	}
	return vectors, nil
}

func (p *HashProvider) embed(text string) []float32 {
	acc := make([]float64, p.dimension)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := highwayhash.Sum64([]byte(tok), hashKey)
		bucket := h % uint64(p.dimension)
		if h>>63 == 1 {
			acc[bucket]--
		} else {
			acc[bucket]++
		}
	}

	// L2 normalize
	norm := 0.0
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, p.dimension)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}
