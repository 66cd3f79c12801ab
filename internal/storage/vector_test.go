package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeDeserializeVector(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	blob := SerializeVector(vec)
	assert.Len(t, blob, 16)
	assert.Equal(t, vec, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{0.1, 0.2, 0.3}, []float32{0.1, 0.2, 0.3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"dimension mismatch", []float32{1}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_IdenticalVectorsExact(t *testing.T) {
	// Identical vectors must score exactly 1.0, not 0.999..., so duplicate
	// detection at threshold 1.0 matches byte-identical chunks.
	vec := []float32{0.123, 0.456, 0.789, -0.321, 0.0007}
	assert.Equal(t, 1.0, CosineSimilarity(vec, vec))
}

func TestCosineSimilarity_Bounded(t *testing.T) {
	a := []float32{0.9999999, 1.0000001, 1}
	b := []float32{1, 1, 1.0000002}
	sim := CosineSimilarity(a, b)
	assert.LessOrEqual(t, sim, 1.0)
	assert.GreaterOrEqual(t, sim, -1.0)
}
