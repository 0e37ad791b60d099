package features

import (
	"math"
	"sort"

	"dnamatcher/imaging"
	"dnamatcher/types"
)

// Histogram bin counts and the downsample grid used for color analysis.
const (
	colorGridSize = 64
	HueBins       = 36
	SatBins       = 10
	ValBins       = 10

	// DominantColorCount limits the dominant color list to the most frequent
	// entries.
	DominantColorCount = 5
)

// Saturation/value thresholds for the achromatic special cases.
const (
	blackValueMax    = 0.16
	whiteSaturation  = 0.12
	whiteValueMin    = 0.85
	graySaturation   = 0.14
	darkToneValueMax = 0.45
)

// namedColor maps a hue range (degrees, start inclusive, end exclusive) to a
// color name. Ranges may wrap past 360.
type namedColor struct {
	name     string
	abbr     string
	hueStart float64
	hueEnd   float64
	darkName string // name used when value is low (e.g. red -> maroon)
	darkAbbr string
}

// chromaticColors is the hue wheel partition used for pixel classification.
// Roughly twenty named colors including the achromatic and dark variants.
var chromaticColors = []namedColor{
	{"red", "RED", 345, 15, "maroon", "MRN"},
	{"orange", "ORG", 15, 40, "brown", "BRN"},
	{"gold", "GLD", 40, 52, "brown", "BRN"},
	{"yellow", "YLW", 52, 70, "olive", "OLV"},
	{"lime", "LIM", 70, 100, "olive", "OLV"},
	{"green", "GRN", 100, 150, "green", "GRN"},
	{"teal", "TEL", 150, 180, "teal", "TEL"},
	{"cyan", "CYN", 180, 200, "teal", "TEL"},
	{"blue", "BLU", 200, 250, "navy", "NVY"},
	{"purple", "PRP", 250, 290, "purple", "PRP"},
	{"magenta", "MGT", 290, 320, "purple", "PRP"},
	{"pink", "PNK", 320, 345, "maroon", "MRN"},
}

// abbreviations for the achromatic classes.
var achromaticAbbr = map[string]string{
	"black": "BLK",
	"white": "WHT",
	"gray":  "GRY",
	"beige": "BEI",
}

// RGBToHSV converts 8-bit RGB to HSV with H in [0, 360), S and V in [0, 1],
// using the standard piecewise hue formula.
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}

	switch {
	case delta == 0:
		h = 0
	case maxC == rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case maxC == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// ClassifyColor maps one HSV pixel to a named color. Achromatic pixels
// (low saturation or extreme value) are special-cased before the hue wheel
// is consulted.
func ClassifyColor(h, s, v float64) (name, abbr string) {
	switch {
	case v < blackValueMax:
		return "black", achromaticAbbr["black"]
	case s < whiteSaturation && v > whiteValueMin:
		return "white", achromaticAbbr["white"]
	case s < graySaturation:
		return "gray", achromaticAbbr["gray"]
	case s < 0.25 && v > 0.65 && h >= 20 && h < 70:
		return "beige", achromaticAbbr["beige"]
	}

	for _, c := range chromaticColors {
		inRange := false
		if c.hueStart <= c.hueEnd {
			inRange = h >= c.hueStart && h < c.hueEnd
		} else {
			inRange = h >= c.hueStart || h < c.hueEnd
		}
		if !inRange {
			continue
		}
		if v < darkToneValueMax {
			return c.darkName, c.darkAbbr
		}
		return c.name, c.abbr
	}

	return "gray", achromaticAbbr["gray"]
}

// ExtractColor builds the HSV histograms, dominant color list and average
// color from the working RGB buffer.
func ExtractColor(rgb *imaging.RGB) *types.ColorFeatures {
	if rgb == nil || len(rgb.Pix) == 0 {
		return nil
	}

	grid := rgb.Scaled(colorGridSize, colorGridSize)
	total := colorGridSize * colorGridSize

	hueHist := make([]float64, HueBins)
	satHist := make([]float64, SatBins)
	valHist := make([]float64, ValBins)
	counts := make(map[string]int)
	abbrs := make(map[string]string)

	var sumR, sumG, sumB, sumH, sumS, sumV float64

	for y := 0; y < colorGridSize; y++ {
		for x := 0; x < colorGridSize; x++ {
			r, g, b := grid.At(x, y)
			h, s, v := RGBToHSV(r, g, b)

			hueHist[int(h/360.0*float64(HueBins))%HueBins]++
			satHist[binIndex(s, SatBins)]++
			valHist[binIndex(v, ValBins)]++

			name, abbr := ClassifyColor(h, s, v)
			counts[name]++
			abbrs[name] = abbr

			sumR += float64(r)
			sumG += float64(g)
			sumB += float64(b)
			sumH += h
			sumS += s
			sumV += v
		}
	}

	for i := range hueHist {
		hueHist[i] /= float64(total)
	}
	for i := range satHist {
		satHist[i] /= float64(total)
	}
	for i := range valHist {
		valHist[i] /= float64(total)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	dominant := make([]types.DominantColor, 0, DominantColorCount)
	for _, name := range names {
		if len(dominant) == DominantColorCount {
			break
		}
		dominant = append(dominant, types.DominantColor{
			Name:    name,
			Abbr:    abbrs[name],
			Percent: float64(counts[name]) / float64(total) * 100.0,
		})
	}

	return &types.ColorFeatures{
		HueHist:  hueHist,
		SatHist:  satHist,
		ValHist:  valHist,
		Dominant: dominant,
		AvgR:     sumR / float64(total),
		AvgG:     sumG / float64(total),
		AvgB:     sumB / float64(total),
		AvgH:     sumH / float64(total),
		AvgS:     sumS / float64(total),
		AvgV:     sumV / float64(total),
	}
}

// binIndex buckets a [0,1] value into one of n histogram bins.
func binIndex(v float64, n int) int {
	i := int(v * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
