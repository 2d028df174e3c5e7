package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	hits := []Hit{
		{Score: 0.5, Seq: 3},
		{Score: 0.9, Seq: 4},
		{Score: 0.5, Seq: 1},
		{Score: 0.7, Seq: 2},
	}

	ranked := Rank(hits, 3)
	assert.Equal(t, []uint64{4, 2, 1}, []uint64{ranked[0].Seq, ranked[1].Seq, ranked[2].Seq})
}

func TestRank_TopKLargerThanHits(t *testing.T) {
	ranked := Rank([]Hit{{Score: 1, Seq: 1}}, 10)
	assert.Len(t, ranked, 1)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestTiesPastLimit(t *testing.T) {
	tests := []struct {
		name   string
		scores []float32
		topK   int
		limit  int
		want   bool
	}{
		{"fewer results than limit", []float32{0.9, 0.5, 0.5}, 2, 4, false},
		{"cut-off tie ends inside window", []float32{0.9, 0.5, 0.5, 0.3}, 2, 4, false},
		{"cut-off tie fills window", []float32{0.9, 0.5, 0.5, 0.5}, 2, 4, true},
		{"all tied", []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, 3, 6, true},
		{"empty", nil, 3, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tiesPastLimit(tt.scores, tt.topK, tt.limit))
		})
	}
}
