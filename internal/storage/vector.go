package storage

import (
	"encoding/binary"
	"math"
)

// SerializeVector converts a float32 vector to a little-endian byte blob,
// the on-disk embedding format.
func SerializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// DeserializeVector converts an embedding blob back to a float32 vector.
func DeserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// CosineSimilarity computes the cosine similarity of two vectors in [-1, 1].
// Mismatched dimensions and zero vectors score 0. Element-wise identical
// vectors score exactly 1, so byte-identical chunks always clear an
// equality threshold.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	identical := true
	var dot, normA, normB float64
	for i := range a {
		if a[i] != b[i] {
			identical = false
		}
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	if identical {
		return 1
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Floating point can drift a hair outside the valid range.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim
}
