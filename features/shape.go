package features

import (
	"math"

	"dnamatcher/imaging"
	"dnamatcher/types"
)

const (
	shapeGridSize = 64

	// SignatureCells is the side length of the edge-density signature grid;
	// the signature vector has SignatureCells^2 entries.
	SignatureCells = 8

	// edgeThresholdFactor scales the mean edge magnitude into the adaptive
	// threshold used for the edge-density fraction. Tunable.
	edgeThresholdFactor = 2.0
)

// ExtractShape runs a Sobel pass over a 64x64 grayscale downsample and
// derives the 8x8 edge-density signature, the edge-density fraction and the
// aspect ratio of the original image.
func ExtractShape(gray *imaging.Gray, origWidth, origHeight int) *types.ShapeFeatures {
	if gray == nil || len(gray.Pix) == 0 {
		return nil
	}

	small := gray.Scaled(shapeGridSize, shapeGridSize)
	magnitudes := sobelMagnitudes(small)

	// Signature: mean gradient magnitude per 8x8 cell, normalized by the
	// strongest cell so the signature describes relative edge structure.
	cell := shapeGridSize / SignatureCells
	signature := make([]float64, SignatureCells*SignatureCells)
	maxCell := 0.0
	for cy := 0; cy < SignatureCells; cy++ {
		for cx := 0; cx < SignatureCells; cx++ {
			var sum float64
			for y := cy * cell; y < (cy+1)*cell; y++ {
				for x := cx * cell; x < (cx+1)*cell; x++ {
					sum += magnitudes[y*shapeGridSize+x]
				}
			}
			mean := sum / float64(cell*cell)
			signature[cy*SignatureCells+cx] = mean
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

	// Edge density: fraction of pixels above an adaptive threshold derived
	// from the mean magnitude.
	var sum float64
	for _, m := range magnitudes {
		sum += m
	}
	mean := sum / float64(len(magnitudes))
	threshold := mean * edgeThresholdFactor
	edgePixels := 0
	for _, m := range magnitudes {
		if m > threshold {
			edgePixels++
		}
	}

	aspect := 1.0
	if origHeight > 0 {
		aspect = float64(origWidth) / float64(origHeight)
	}

	return &types.ShapeFeatures{
		Signature:   signature,
		AspectRatio: aspect,
		EdgeDensity: float64(edgePixels) / float64(len(magnitudes)),
	}
}

// sobelMagnitudes applies the 3x3 Sobel kernels and returns the gradient
// magnitude per pixel. Border pixels are zero.
func sobelMagnitudes(g *imaging.Gray) []float64 {
	w, h := g.Width, g.Height
	out := make([]float64, w*h)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -int(g.At(x-1, y-1)) + int(g.At(x+1, y-1)) +
				-2*int(g.At(x-1, y)) + 2*int(g.At(x+1, y)) +
				-int(g.At(x-1, y+1)) + int(g.At(x+1, y+1))
			gy := -int(g.At(x-1, y-1)) - 2*int(g.At(x, y-1)) - int(g.At(x+1, y-1)) +
				int(g.At(x-1, y+1)) + 2*int(g.At(x, y+1)) + int(g.At(x+1, y+1))
			out[y*w+x] = math.Sqrt(float64(gx*gx + gy*gy))
		}
	}
	return out
}
