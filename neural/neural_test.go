package neural

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dnamatcher/types"
)

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	v := []float32{0.5, 0.25, -0.8, 0.1}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-6)
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestEmbeddingDigest(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3}

	digest := EmbeddingDigest(v)
	assert.Len(t, digest, 8)
	assert.Equal(t, digest, EmbeddingDigest([]float32{0.1, 0.2, 0.3}), "digest must be deterministic")
	assert.NotEqual(t, digest, EmbeddingDigest([]float32{0.1, 0.2, 0.4}))
	assert.Empty(t, EmbeddingDigest(nil))
}

func TestL2Normalize(t *testing.T) {
	v := []float32{3, 4}
	l2Normalize(v)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := []float32{0, 0}
	l2Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestClassifyEntity(t *testing.T) {
	labels := []string{"dog", "car", "backpack"}
	scores := []float32{0.9, 0.3, 0.1}

	entity, confidence, top := classifyEntity(labels, scores)
	assert.Equal(t, types.EntityPet, entity)
	assert.InDelta(t, 0.9, confidence, 1e-6)
	assert.Equal(t, "dog", top[0])
}

func TestClassifyEntityEmpty(t *testing.T) {
	entity, confidence, top := classifyEntity(nil, nil)
	assert.Equal(t, types.EntityUnknown, entity)
	assert.Equal(t, 0.0, confidence)
	assert.Nil(t, top)
}

func TestProviderUnavailableWithoutModel(t *testing.T) {
	p := NewProvider("", "", "")
	assert.False(t, p.Available())

	_, err := p.Process(nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
