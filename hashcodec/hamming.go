package hashcodec

import (
	"fmt"
	"math/bits"
	"strconv"
)

// HammingDistance counts differing bits between two equal-length hex hash
// strings.
func HammingDistance(a, b string) (int, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("cannot compare empty hashes")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("hash length mismatch: %d vs %d", len(a), len(b))
	}

	distance := 0
	for i := 0; i < len(a); i++ {
		na, err := strconv.ParseUint(string(a[i]), 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex character %q in hash", a[i])
		}
		nb, err := strconv.ParseUint(string(b[i]), 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex character %q in hash", b[i])
		}
		distance += bits.OnesCount8(uint8(na ^ nb))
	}
	return distance, nil
}

// Similarity converts the Hamming distance between two equal-length hex hash
// strings into a percentage: (bits - distance) / bits * 100. Returns an error
// for empty or mismatched inputs; callers treat that as "feature
// unavailable", never as zero similarity.
func Similarity(a, b string) (float64, error) {
	distance, err := HammingDistance(a, b)
	if err != nil {
		return 0, err
	}
	totalBits := len(a) * 4
	return float64(totalBits-distance) / float64(totalBits) * 100.0, nil
}
