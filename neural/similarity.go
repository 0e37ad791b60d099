package neural

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// CosineSimilarity computes the dot product over the norms of two vectors.
// It returns 0 for nil inputs or a length mismatch; absence of an embedding
// is handled upstream by weight renormalization, never by this value.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EmbeddingDigest renders an 8-hex-character digest of an embedding. The
// digest is an index/identifier key only; similarity always uses the full
// vector.
func EmbeddingDigest(embedding []float32) string {
	if len(embedding) == 0 {
		return ""
	}

	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	sum := sha256.Sum256(buf)
	return fmt.Sprintf("%x", sum[:4])
}

// l2Normalize scales the vector to unit length in place. Zero vectors are
// left untouched.
func l2Normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
