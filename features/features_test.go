package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnamatcher/imaging"
)

// solidRGB fills a buffer with one color.
func solidRGB(w, h int, r, g, b uint8) *imaging.RGB {
	img := imaging.NewRGB(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, r, g, b)
		}
	}
	return img
}

// stripedGray alternates bright and dark vertical bands.
func stripedGray(w, h, band int) *imaging.Gray {
	g := imaging.NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/band)%2 == 0 {
				g.Set(x, y, 230)
			} else {
				g.Set(x, y, 20)
			}
		}
	}
	return g
}

// noisyGray fills a buffer with a deterministic pseudo-random pattern.
func noisyGray(w, h int) *imaging.Gray {
	g := imaging.NewGray(w, h)
	seed := uint32(12345)
	for i := range g.Pix {
		seed = seed*1664525 + 1013904223
		g.Pix[i] = uint8(seed >> 24)
	}
	return g
}

func TestRGBToHSVPrimaries(t *testing.T) {
	h, s, v := RGBToHSV(255, 0, 0)
	assert.InDelta(t, 0, h, 0.01)
	assert.InDelta(t, 1, s, 0.01)
	assert.InDelta(t, 1, v, 0.01)

	h, _, _ = RGBToHSV(0, 255, 0)
	assert.InDelta(t, 120, h, 0.01)

	h, _, _ = RGBToHSV(0, 0, 255)
	assert.InDelta(t, 240, h, 0.01)

	_, s, v = RGBToHSV(0, 0, 0)
	assert.Equal(t, 0.0, s)
	assert.Equal(t, 0.0, v)
}

func TestClassifyColorAchromatics(t *testing.T) {
	name, abbr := ClassifyColor(0, 0, 0.05)
	assert.Equal(t, "black", name)
	assert.Equal(t, "BLK", abbr)

	name, _ = ClassifyColor(0, 0.05, 0.95)
	assert.Equal(t, "white", name)

	name, _ = ClassifyColor(0, 0.05, 0.5)
	assert.Equal(t, "gray", name)
}

func TestClassifyColorHueWheel(t *testing.T) {
	name, abbr := ClassifyColor(5, 0.9, 0.9)
	assert.Equal(t, "red", name)
	assert.Equal(t, "RED", abbr)

	name, _ = ClassifyColor(355, 0.9, 0.9)
	assert.Equal(t, "red", name, "hue wrap must still classify as red")

	name, _ = ClassifyColor(220, 0.8, 0.8)
	assert.Equal(t, "blue", name)

	name, _ = ClassifyColor(220, 0.8, 0.3)
	assert.Equal(t, "navy", name, "dark blue is navy")
}

func TestExtractColorSolidRed(t *testing.T) {
	cf := ExtractColor(solidRGB(128, 128, 220, 20, 20))
	require.NotNil(t, cf)
	require.NotEmpty(t, cf.Dominant)

	assert.Equal(t, "red", cf.Dominant[0].Name)
	assert.InDelta(t, 100.0, cf.Dominant[0].Percent, 0.5)
	assert.InDelta(t, 220, cf.AvgR, 2)
	assert.Len(t, cf.HueHist, HueBins)

	var histSum float64
	for _, v := range cf.HueHist {
		histSum += v
	}
	assert.InDelta(t, 1.0, histSum, 1e-9)
}

func TestExtractColorNilInput(t *testing.T) {
	assert.Nil(t, ExtractColor(nil))
	assert.Nil(t, ExtractColor(&imaging.RGB{}))
}

func TestExtractShapeSolidVsStriped(t *testing.T) {
	solid := ExtractShape(solidRGB(128, 128, 100, 100, 100).Gray(), 1280, 960)
	striped := ExtractShape(stripedGray(128, 128, 8), 1280, 960)
	require.NotNil(t, solid)
	require.NotNil(t, striped)

	assert.Less(t, solid.EdgeDensity, striped.EdgeDensity,
		"striped image must have higher edge density than a solid one")
	assert.Len(t, striped.Signature, SignatureCells*SignatureCells)
	assert.InDelta(t, 1280.0/960.0, solid.AspectRatio, 1e-9)
}

func TestExtractTextureClassification(t *testing.T) {
	solid := ExtractTexture(solidRGB(128, 128, 80, 80, 80).Gray())
	require.NotNil(t, solid)
	assert.Equal(t, PatternSolid, solid.Pattern)

	striped := ExtractTexture(stripedGray(128, 128, 8))
	require.NotNil(t, striped)
	assert.Equal(t, PatternStriped, striped.Pattern)

	noisy := ExtractTexture(noisyGray(128, 128))
	require.NotNil(t, noisy)
	assert.NotEqual(t, PatternSolid, noisy.Pattern)
}

func TestAssessQualitySharpVsFlat(t *testing.T) {
	sharpGray := noisyGray(128, 128)
	flatGray := solidRGB(128, 128, 90, 90, 90).Gray()

	sharpShape := ExtractShape(sharpGray, 3000, 2000)
	flatShape := ExtractShape(flatGray, 3000, 2000)

	sharp := AssessQuality(sharpGray, sharpShape, 3000, 2000)
	flat := AssessQuality(flatGray, flatShape, 3000, 2000)

	assert.Equal(t, BlurSharp, sharp.BlurLevel)
	assert.Equal(t, BlurVeryBlurry, flat.BlurLevel)
	assert.True(t, flat.Blurry)
	assert.Greater(t, sharp.Score, flat.Score)
	assert.GreaterOrEqual(t, sharp.Score, 0.0)
	assert.LessOrEqual(t, sharp.Score, 100.0)
}

func TestLaplacianVarianceZeroForFlat(t *testing.T) {
	assert.Equal(t, 0.0, LaplacianVariance(solidRGB(64, 64, 10, 10, 10).Gray()))
}
