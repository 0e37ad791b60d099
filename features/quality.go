package features

import (
	"math"

	"dnamatcher/imaging"
	"dnamatcher/types"
)

// Blur level names from the Laplacian-variance sharpness estimate.
const (
	BlurVeryBlurry     = "very_blurry"
	BlurBlurry         = "blurry"
	BlurSlightlyBlurry = "slightly_blurry"
	BlurAcceptable     = "acceptable"
	BlurSharp          = "sharp"
)

// Laplacian-variance thresholds for the blur tiers. Tunable.
const (
	veryBlurryVarianceMax     = 40.0
	blurryVarianceMax         = 120.0
	slightlyBlurryVarianceMax = 350.0
	acceptableVarianceMax     = 1000.0
)

// Quality score blend weights and the very-blurry penalty.
const (
	qualitySharpnessWeight  = 0.40
	qualityEdgeWeight       = 0.20
	qualityResolutionWeight = 0.25
	qualityAspectWeight     = 0.15
	veryBlurryPenalty       = 15.0
)

// Quality is the outcome of the blur/quality assessment.
type Quality struct {
	Score     float64
	Tier      types.QualityTier
	BlurLevel string
	Blurry    bool
}

// AssessQuality estimates sharpness from the Laplacian variance of a 64x64
// grayscale downsample and blends it with edge density, resolution and
// aspect-ratio normality into the 0-100 quality score.
func AssessQuality(gray *imaging.Gray, shape *types.ShapeFeatures, origWidth, origHeight int) Quality {
	variance := LaplacianVariance(gray)

	blurLevel := BlurSharp
	switch {
	case variance < veryBlurryVarianceMax:
		blurLevel = BlurVeryBlurry
	case variance < blurryVarianceMax:
		blurLevel = BlurBlurry
	case variance < slightlyBlurryVarianceMax:
		blurLevel = BlurSlightlyBlurry
	case variance < acceptableVarianceMax:
		blurLevel = BlurAcceptable
	}

	sharpness := sharpnessScore(blurLevel)

	edgeScore := 0.0
	aspect := 1.0
	if shape != nil {
		edgeScore = math.Min(100, shape.EdgeDensity/0.25*100)
		aspect = shape.AspectRatio
	}

	score := qualitySharpnessWeight*sharpness +
		qualityEdgeWeight*edgeScore +
		qualityResolutionWeight*resolutionScore(origWidth, origHeight) +
		qualityAspectWeight*aspectScore(aspect)

	if blurLevel == BlurVeryBlurry {
		score -= veryBlurryPenalty
	}
	score = clamp(score, 0, 100)

	tier := types.QualityLow
	switch {
	case score >= 70:
		tier = types.QualityHigh
	case score >= 40:
		tier = types.QualityMedium
	}

	return Quality{
		Score:     score,
		Tier:      tier,
		BlurLevel: blurLevel,
		Blurry:    blurLevel == BlurVeryBlurry || blurLevel == BlurBlurry,
	}
}

// LaplacianVariance applies the 4-neighbor Laplacian kernel to a 64x64
// downsample and returns the variance of the response, the standard
// sharpness estimate.
func LaplacianVariance(gray *imaging.Gray) float64 {
	if gray == nil || len(gray.Pix) == 0 {
		return 0
	}

	g := gray.Scaled(64, 64)
	w, h := g.Width, g.Height

	responses := make([]float64, 0, (w-2)*(h-2))
	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := -4*int(g.At(x, y)) +
				int(g.At(x-1, y)) + int(g.At(x+1, y)) +
				int(g.At(x, y-1)) + int(g.At(x, y+1))
			responses = append(responses, float64(lap))
			sum += float64(lap)
		}
	}
	if len(responses) == 0 {
		return 0
	}
	mean := sum / float64(len(responses))

	var variance float64
	for _, r := range responses {
		d := r - mean
		variance += d * d
	}
	return variance / float64(len(responses))
}

// sharpnessScore maps a blur tier to its contribution to the quality blend.
func sharpnessScore(blurLevel string) float64 {
	switch blurLevel {
	case BlurVeryBlurry:
		return 10
	case BlurBlurry:
		return 30
	case BlurSlightlyBlurry:
		return 55
	case BlurAcceptable:
		return 80
	default:
		return 95
	}
}

// resolutionScore rewards higher original pixel counts.
func resolutionScore(width, height int) float64 {
	pixels := float64(width) * float64(height)
	switch {
	case pixels >= 8_000_000:
		return 100
	case pixels >= 2_000_000:
		return 85
	case pixels >= 500_000:
		return 65
	case pixels >= 100_000:
		return 45
	default:
		return 25
	}
}

// aspectScore penalizes extreme aspect ratios; everyday photos sit near
// ratio 1.
func aspectScore(ratio float64) float64 {
	if ratio <= 0 {
		return 0
	}
	deviation := math.Abs(math.Log2(ratio))
	return clamp(100-deviation*50, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
