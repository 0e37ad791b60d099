package features

import (
	"dnamatcher/imaging"
	"dnamatcher/types"
)

const (
	textureGridSize = 64
	textureBlock    = 4

	// Variance thresholds separating the texture classes. Tunable.
	solidVarianceMax    = 25.0
	smoothVarianceMax   = 150.0
	texturedVarianceMax = 800.0

	// Periodicity detection: minimum step between successive row/column
	// means to count as a direction change, and the alternation ratio above
	// which a direction is considered periodic. Tunable.
	periodicityMinStep = 4.0
	periodicityRatio   = 0.55
)

// Pattern class names.
const (
	PatternSolid    = "solid"
	PatternSmooth   = "smooth"
	PatternTextured = "textured"
	PatternComplex  = "complex"
	PatternStriped  = "striped"
	PatternSpotted  = "spotted"
)

// ExtractTexture partitions a 64x64 grayscale downsample into 4x4-pixel
// blocks, computes per-block variance, classifies the overall pattern by
// variance magnitude, and detects stripe/spot periodicity from alternating
// signs of successive row/column mean differences.
func ExtractTexture(gray *imaging.Gray) *types.TextureFeatures {
	if gray == nil || len(gray.Pix) == 0 {
		return nil
	}

	small := gray.Scaled(textureGridSize, textureGridSize)
	blocksPerSide := textureGridSize / textureBlock

	variances := make([]float64, blocksPerSide*blocksPerSide)
	var totalVariance float64
	for by := 0; by < blocksPerSide; by++ {
		for bx := 0; bx < blocksPerSide; bx++ {
			v := blockVariance(small, bx*textureBlock, by*textureBlock, textureBlock)
			variances[by*blocksPerSide+bx] = v
			totalVariance += v
		}
	}
	meanVariance := totalVariance / float64(len(variances))

	pattern := PatternComplex
	switch {
	case meanVariance < solidVarianceMax:
		pattern = PatternSolid
	case meanVariance < smoothVarianceMax:
		pattern = PatternSmooth
	case meanVariance < texturedVarianceMax:
		pattern = PatternTextured
	}

	// Periodicity only matters when there is enough contrast for a pattern
	// to exist at all.
	confidence := 0.6
	if pattern != PatternSolid {
		horizontal := alternationRatio(columnMeans(small))
		vertical := alternationRatio(rowMeans(small))

		switch {
		case horizontal > periodicityRatio && vertical > periodicityRatio:
			pattern = PatternSpotted
			confidence = (horizontal + vertical) / 2
		case horizontal > periodicityRatio:
			pattern = PatternStriped
			confidence = horizontal
		case vertical > periodicityRatio:
			pattern = PatternStriped
			confidence = vertical
		}
	}

	// Signature: mean block variance per quadrant cell of a 4x4 super-grid,
	// scaled by the largest cell.
	signature := make([]float64, 16)
	super := blocksPerSide / 4
	maxCell := 0.0
	for sy := 0; sy < 4; sy++ {
		for sx := 0; sx < 4; sx++ {
			var sum float64
			for by := sy * super; by < (sy+1)*super; by++ {
				for bx := sx * super; bx < (sx+1)*super; bx++ {
					sum += variances[by*blocksPerSide+bx]
				}
			}
			mean := sum / float64(super*super)
			signature[sy*4+sx] = mean
			if mean > maxCell {
				maxCell = mean
			}
		}
	}
	if maxCell > 0 {
		for i := range signature {
			signature[i] /= maxCell
		}
	}

	return &types.TextureFeatures{
		Signature:  signature,
		Pattern:    pattern,
		Confidence: confidence,
	}
}

// blockVariance computes the pixel variance of a size x size block at
// (x0, y0).
func blockVariance(g *imaging.Gray, x0, y0, size int) float64 {
	var sum float64
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			sum += float64(g.At(x, y))
		}
	}
	mean := sum / float64(size*size)

	var variance float64
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			d := float64(g.At(x, y)) - mean
			variance += d * d
		}
	}
	return variance / float64(size*size)
}

// rowMeans returns the mean pixel value of each row.
func rowMeans(g *imaging.Gray) []float64 {
	out := make([]float64, g.Height)
	for y := 0; y < g.Height; y++ {
		var sum float64
		for x := 0; x < g.Width; x++ {
			sum += float64(g.At(x, y))
		}
		out[y] = sum / float64(g.Width)
	}
	return out
}

// columnMeans returns the mean pixel value of each column.
func columnMeans(g *imaging.Gray) []float64 {
	out := make([]float64, g.Width)
	for x := 0; x < g.Width; x++ {
		var sum float64
		for y := 0; y < g.Height; y++ {
			sum += float64(g.At(x, y))
		}
		out[x] = sum / float64(g.Height)
	}
	return out
}

// alternationRatio counts how often the sign of the difference between
// successive means flips, ignoring steps smaller than periodicityMinStep,
// and returns flips divided by the number of significant steps.
func alternationRatio(means []float64) float64 {
	lastSign := 0
	steps := 0
	flips := 0
	for i := 1; i < len(means); i++ {
		d := means[i] - means[i-1]
		if d > -periodicityMinStep && d < periodicityMinStep {
			continue
		}
		sign := 1
		if d < 0 {
			sign = -1
		}
		if lastSign != 0 {
			steps++
			if sign != lastSign {
				flips++
			}
		}
		lastSign = sign
	}
	if steps == 0 {
		return 0
	}
	return float64(flips) / float64(steps)
}
