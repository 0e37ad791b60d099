package hashcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnamatcher/imaging"
)

// gradientGray builds a deterministic horizontal gradient buffer.
func gradientGray(width, height int) *imaging.Gray {
	g := imaging.NewGray(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.Set(x, y, uint8(x*255/(width-1)))
		}
	}
	return g
}

// checkerGray builds a checkerboard buffer.
func checkerGray(width, height, cell int) *imaging.Gray {
	g := imaging.NewGray(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				g.Set(x, y, 255)
			}
		}
	}
	return g
}

func TestHashesAreDeterministicAndFixedLength(t *testing.T) {
	img := gradientGray(100, 80)

	algorithms := []struct {
		name    string
		fn      func(*imaging.Gray) (string, error)
		wantLen int
	}{
		{"average", ComputeAverageHash, AverageHashLen},
		{"difference", ComputeDifferenceHash, DifferenceHashLen},
		{"perceptual", ComputePerceptualHash, PerceptualHashLen},
		{"block", ComputeBlockHash, BlockHashLen},
	}

	for _, alg := range algorithms {
		t.Run(alg.name, func(t *testing.T) {
			first, err := alg.fn(img)
			require.NoError(t, err)
			assert.Len(t, first, alg.wantLen)

			second, err := alg.fn(img)
			require.NoError(t, err)
			assert.Equal(t, first, second, "same pixels must hash identically")
		})
	}
}

func TestHashesFailOnEmptyBuffer(t *testing.T) {
	_, err := ComputeAverageHash(nil)
	assert.Error(t, err)
	_, err = ComputeDifferenceHash(&imaging.Gray{})
	assert.Error(t, err)
	_, err = ComputePerceptualHash(nil)
	assert.Error(t, err)
	_, err = ComputeBlockHash(nil)
	assert.Error(t, err)
}

func TestDifferenceHashGradient(t *testing.T) {
	// A strictly increasing gradient means every pixel is darker than its
	// right neighbor, so no difference bit is set.
	hash, err := ComputeDifferenceHash(gradientGray(128, 128))
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000", hash)
}

func TestDistinctImagesProduceDistinctHashes(t *testing.T) {
	gradient, err := ComputeBlockHash(gradientGray(128, 128))
	require.NoError(t, err)
	checker, err := ComputeBlockHash(checkerGray(128, 128, 16))
	require.NoError(t, err)
	assert.NotEqual(t, gradient, checker)
}

func TestHammingSimilaritySelfIsFull(t *testing.T) {
	hash, err := ComputeAverageHash(checkerGray(64, 64, 8))
	require.NoError(t, err)

	sim, err := Similarity(hash, hash)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, sim, 1e-9)
}

func TestHammingSimilarityIsSymmetric(t *testing.T) {
	a := "00ff00ff00ff00ff"
	b := "0f0f0f0f0f0f0f0f"

	ab, err := Similarity(a, b)
	require.NoError(t, err)
	ba, err := Similarity(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestHammingDistanceKnownValues(t *testing.T) {
	d, err := HammingDistance("0000000000000000", "ffffffffffffffff")
	require.NoError(t, err)
	assert.Equal(t, 64, d)

	d, err = HammingDistance("0000000000000000", "0000000000000001")
	require.NoError(t, err)
	assert.Equal(t, 1, d)
}

func TestHammingDistanceRejectsBadInput(t *testing.T) {
	_, err := HammingDistance("", "ff")
	assert.Error(t, err)
	_, err = HammingDistance("ff", "ffff")
	assert.Error(t, err)
	_, err = HammingDistance("zz", "ff")
	assert.Error(t, err)
}
