package hashcodec

import (
	"fmt"
	"sort"

	"dnamatcher/imaging"
)

// Per-algorithm fixed output lengths in hex characters. Every algorithm
// emits 64 bits.
const (
	AverageHashLen    = 16
	DifferenceHashLen = 16
	PerceptualHashLen = 16
	BlockHashLen      = 16
)

// ComputeAverageHash calculates the average hash: resize to 8x8 and emit one
// bit per pixel against the global mean. Deterministic for identical pixels.
func ComputeAverageHash(gray *imaging.Gray) (string, error) {
	if gray == nil || len(gray.Pix) == 0 {
		return "", fmt.Errorf("cannot compute average hash of empty buffer")
	}

	small := gray.Scaled(8, 8)

	var sum uint64
	for _, p := range small.Pix {
		sum += uint64(p)
	}
	threshold := float64(sum) / float64(len(small.Pix))

	bits := make([]bool, 0, 64)
	for _, p := range small.Pix {
		bits = append(bits, float64(p) >= threshold)
	}

	return packBits(bits), nil
}

// ComputeDifferenceHash calculates the difference hash: resize to a 9x8 grid
// and compare each pixel with its right neighbor, emitting 8 bits per row.
func ComputeDifferenceHash(gray *imaging.Gray) (string, error) {
	if gray == nil || len(gray.Pix) == 0 {
		return "", fmt.Errorf("cannot compute difference hash of empty buffer")
	}

	small := gray.Scaled(9, 8)

	bits := make([]bool, 0, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			bits = append(bits, small.At(x, y) > small.At(x+1, y))
		}
	}

	return packBits(bits), nil
}

// ComputePerceptualHash approximates a DCT-based perceptual hash: resize to
// 32x32, partition into an 8x8 grid of 4x4 blocks, average each block as a
// low-frequency coefficient, then threshold against the median of the
// coefficients excluding the DC (top-left) term.
func ComputePerceptualHash(gray *imaging.Gray) (string, error) {
	if gray == nil || len(gray.Pix) == 0 {
		return "", fmt.Errorf("cannot compute perceptual hash of empty buffer")
	}

	small := gray.Scaled(32, 32)

	coefs := make([]float64, 64)
	for by := 0; by < 8; by++ {
		for bx := 0; bx < 8; bx++ {
			var sum int
			for y := by * 4; y < (by+1)*4; y++ {
				for x := bx * 4; x < (bx+1)*4; x++ {
					sum += int(small.At(x, y))
				}
			}
			coefs[by*8+bx] = float64(sum) / 16.0
		}
	}

	median := calculateMedian(coefs[1:])

	bits := make([]bool, 0, 64)
	for _, c := range coefs {
		bits = append(bits, c >= median)
	}

	return packBits(bits), nil
}

// ComputeBlockHash calculates the block-mean hash: resize to 64x64, take the
// mean of each 8x8 pixel block and threshold the 64 block means against
// their median. The median threshold makes this the most crop-tolerant of
// the four algorithms.
func ComputeBlockHash(gray *imaging.Gray) (string, error) {
	if gray == nil || len(gray.Pix) == 0 {
		return "", fmt.Errorf("cannot compute block hash of empty buffer")
	}

	small := gray.Scaled(64, 64)

	means := make([]float64, 64)
	for by := 0; by < 8; by++ {
		for bx := 0; bx < 8; bx++ {
			var sum int
			for y := by * 8; y < (by+1)*8; y++ {
				for x := bx * 8; x < (bx+1)*8; x++ {
					sum += int(small.At(x, y))
				}
			}
			means[by*8+bx] = float64(sum) / 64.0
		}
	}

	median := calculateMedian(means)

	bits := make([]bool, 0, 64)
	for _, m := range means {
		bits = append(bits, m >= median)
	}

	return packBits(bits), nil
}

// packBits packs a bit slice MSB-first into bytes and renders them as a
// lowercase hex string. Trailing partial bytes are zero-padded on the right.
func packBits(bits []bool) string {
	var hashBytes []byte
	var currentByte byte
	var bitCount uint

	for _, bit := range bits {
		currentByte <<= 1
		if bit {
			currentByte |= 1
		}
		bitCount++
		if bitCount == 8 {
			hashBytes = append(hashBytes, currentByte)
			currentByte = 0
			bitCount = 0
		}
	}

	if bitCount > 0 {
		currentByte <<= 8 - bitCount
		hashBytes = append(hashBytes, currentByte)
	}

	hexString := ""
	for _, b := range hashBytes {
		hexString += fmt.Sprintf("%02x", b)
	}
	return hexString
}

// calculateMedian returns the median of a float64 slice without modifying it.
func calculateMedian(values []float64) float64 {
	valuesCopy := make([]float64, len(values))
	copy(valuesCopy, values)
	sort.Float64s(valuesCopy)

	length := len(valuesCopy)
	switch {
	case length == 0:
		return 0
	case length%2 == 0:
		return (valuesCopy[length/2-1] + valuesCopy[length/2]) / 2
	default:
		return valuesCopy[length/2]
	}
}
