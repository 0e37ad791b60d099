package matcher

import (
	"math"
	"sort"
	"strings"

	"dnamatcher/hashcodec"
	"dnamatcher/neural"
	"dnamatcher/ocrid"
	"dnamatcher/types"
	"dnamatcher/weights"
)

// Unavailable marks a dimension that could not be scored because one or
// both photos lack the feature. It is never treated as zero similarity;
// the weight engine renormalizes around it.
const Unavailable = -1.0

// PairFeatures derives the weight-engine availability flags for a pair of
// DNA records.
func PairFeatures(a, b *types.VisualDNA) weights.Features {
	aText := a.OCR.HasText() || a.OCR.HasIdentifiers()
	bText := b.OCR.HasText() || b.OCR.HasIdentifiers()

	category := categoryFor(a)
	strongText := false
	if category == weights.CategoryDocuments && a.OCR.HasText() && b.OCR.HasText() {
		strongText = a.OCR.Confidence >= 60 && b.OCR.Confidence >= 60
	}

	solid := false
	if a.Color != nil && len(a.Color.Dominant) > 0 && a.Texture != nil {
		solid = a.Color.Dominant[0].Percent >= 70 && a.Texture.Pattern == "solid"
	}

	return weights.Features{
		HasText:              aText || bText,
		HasIdentifiers:       a.OCR.HasIdentifiers() || b.OCR.HasIdentifiers(),
		HasEmbedding:         len(a.Embedding) > 0 && len(b.Embedding) > 0,
		IsPet:                category == weights.CategoryPets,
		IsDocumentStrongText: strongText,
		SolidSingleColor:     solid,
		AsymmetricOCR:        aText != bText,
	}
}

// categoryFor resolves the weighting category of a record, preferring the
// case category and falling back to heuristic detection.
func categoryFor(dna *types.VisualDNA) string {
	if dna.Category != "" {
		return dna.Category
	}
	return weights.DetectCategory(dna).Category
}

// CompareDNA scores two DNA records against each other. A nil weight
// vector computes category-adapted weights from the pair itself. Every
// dimension is scored independently; dimensions where either side lacks
// the feature come back as Unavailable and the overall score is the
// weighted average over the dimensions that could be scored.
func CompareDNA(a, b *types.VisualDNA, w *types.WeightVector) types.Comparison {
	var wv types.WeightVector
	if w != nil {
		wv = w.Normalized()
	} else {
		wv = weights.Compute(PairFeatures(a, b), categoryFor(a))
	}

	scores := types.DimensionScores{
		Hash:     hashScore(a, b),
		Color:    colorScore(a, b),
		Shape:    shapeScore(a, b),
		OCR:      Unavailable,
		Visual:   visualScore(a, b),
		Objects:  objectsScore(a, b),
		Location: 0,
	}

	ocr, matched, idKind := ocrScore(a, b)
	scores.OCR = ocr

	cmp := types.Comparison{
		Scores:             scores,
		Weights:            wv,
		MatchedIdentifiers: matched,
	}

	// A confirmed plate or serial makes the identifier the dominant
	// signal regardless of how the rest of the image compares.
	if len(matched) > 0 && (idKind == ocrid.KindLicensePlate || idKind == ocrid.KindSerialNumber) {
		cmp.Scores.OCR = 100
		base := weightedOverall(cmp.Scores, wv)
		cmp.Overall = identifierDominanceWeight*100 + (1-identifierDominanceWeight)*base
		if idKind == ocrid.KindLicensePlate {
			cmp.MatchType = MatchTypeLicensePlate
		} else {
			cmp.MatchType = MatchTypeSerialNumber
		}
		cmp.Reasons = buildReasons(cmp.Scores, matched, 0)
		return cmp
	}

	cmp.Overall = weightedOverall(cmp.Scores, wv)

	// Near-identical images: the blended perceptual hash signal becomes
	// primary and guarantees a floor on the overall score.
	if scores.Hash >= dnaPrimaryThreshold {
		if floor := scores.Hash * dnaPrimaryScale; floor > cmp.Overall {
			cmp.Overall = floor
		}
		cmp.MatchType = MatchTypeImageDNA
	}

	if categoryFor(a) == weights.CategoryPets && petCoatMatch(a, b) {
		cmp.Overall = math.Min(100, cmp.Overall+petCoatBonus)
		if cmp.MatchType == "" {
			cmp.MatchType = MatchTypePet
		}
	}

	if cmp.MatchType == "" {
		cmp.MatchType = dominantMatchType(cmp.Scores, wv)
	}
	cmp.Reasons = buildReasons(cmp.Scores, matched, 0)
	return cmp
}

// weightedOverall averages the available dimensions under the given
// weights, renormalizing over whatever could actually be scored.
func weightedOverall(s types.DimensionScores, w types.WeightVector) float64 {
	type dim struct {
		score, weight float64
	}
	dims := []dim{
		{s.Hash, w.Hash},
		{s.Color, w.Color},
		{s.Shape, w.Shape},
		{s.OCR, w.OCR},
		{s.Visual, w.Visual},
		{s.Objects, w.Objects},
	}

	var sum, wsum float64
	for _, d := range dims {
		if d.score < 0 {
			continue
		}
		sum += d.score * d.weight
		wsum += d.weight
	}
	if wsum <= 0 {
		return 0
	}
	return sum / wsum
}

// dominantMatchType tags the comparison after the dimension that
// contributed the most weighted signal, falling back to combined when no
// single dimension stands out.
func dominantMatchType(s types.DimensionScores, w types.WeightVector) string {
	type dim struct {
		tag           string
		score, weight float64
	}
	dims := []dim{
		{MatchTypeText, s.OCR, w.OCR},
		{MatchTypeVisual, s.Visual, w.Visual},
		{MatchTypeShape, s.Shape, w.Shape},
		{MatchTypeColor, s.Color, w.Color},
	}

	best := dim{tag: MatchTypeCombined}
	var bestContrib float64
	for _, d := range dims {
		if d.score < 0 {
			continue
		}
		if c := d.score * d.weight; c > bestContrib {
			bestContrib = c
			best = d
		}
	}
	if best.score < reasonDisplayThreshold {
		return MatchTypeCombined
	}
	return best.tag
}

// hashScore blends the four perceptual hash similarities, weighting the
// structurally stronger algorithms higher. Pairs where either hash is
// missing drop out of the blend.
func hashScore(a, b *types.VisualDNA) float64 {
	type pair struct {
		ha, hb string
		weight float64
	}
	pairs := []pair{
		{a.PerceptualHash, b.PerceptualHash, hashWeightPerceptual},
		{a.BlockHash, b.BlockHash, hashWeightBlock},
		{a.DifferenceHash, b.DifferenceHash, hashWeightDifference},
		{a.AverageHash, b.AverageHash, hashWeightAverage},
	}

	var sum, wsum float64
	for _, p := range pairs {
		sim, err := hashcodec.Similarity(p.ha, p.hb)
		if err != nil {
			continue
		}
		sum += sim * p.weight
		wsum += p.weight
	}
	if wsum <= 0 {
		return Unavailable
	}
	return sum / wsum
}

// colorScore blends chi-square histogram similarity with dominant-color
// overlap.
func colorScore(a, b *types.VisualDNA) float64 {
	if a.Color == nil || b.Color == nil {
		return Unavailable
	}

	hist := 0.5*chiSquareSimilarity(a.Color.HueHist, b.Color.HueHist) +
		0.25*chiSquareSimilarity(a.Color.SatHist, b.Color.SatHist) +
		0.25*chiSquareSimilarity(a.Color.ValHist, b.Color.ValHist)

	return colorHistogramWeight*hist + colorDominantWeight*dominantOverlap(a.Color.Dominant, b.Color.Dominant)
}

// chiSquareSimilarity converts a chi-square histogram distance into a
// 0..100 similarity. Both histograms must be normalized to sum 1, which
// bounds the distance to [0,2].
func chiSquareSimilarity(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	var chi2 float64
	for i := range x {
		denom := x[i] + y[i]
		if denom <= 0 {
			continue
		}
		d := x[i] - y[i]
		chi2 += d * d / denom
	}
	sim := 1 - chi2/2
	if sim < 0 {
		sim = 0
	}
	return sim * 100
}

// dominantOverlap scores how many named dominant colors the two photos
// share, weighted by coverage of the shared names.
func dominantOverlap(a, b []types.DominantColor) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	byName := make(map[string]float64, len(b))
	for _, c := range b {
		byName[c.Name] = c.Percent
	}
	var shared float64
	for _, c := range a {
		if p, ok := byName[c.Name]; ok {
			shared += math.Min(c.Percent, p)
		}
	}
	if shared > 100 {
		shared = 100
	}
	return shared
}

// shapeScore blends edge-signature cosine similarity with aspect-ratio
// and edge-density agreement, plus a small bonus for a shared texture
// pattern.
func shapeScore(a, b *types.VisualDNA) float64 {
	if a.Shape == nil || b.Shape == nil {
		return Unavailable
	}

	sig := cosine(a.Shape.Signature, b.Shape.Signature) * 100

	aspect := 0.0
	if a.Shape.AspectRatio > 0 && b.Shape.AspectRatio > 0 {
		ratio := a.Shape.AspectRatio / b.Shape.AspectRatio
		if ratio > 1 {
			ratio = 1 / ratio
		}
		aspect = ratio * 100
	}

	edgeDiff := math.Abs(a.Shape.EdgeDensity - b.Shape.EdgeDensity)
	edge := (1 - math.Min(1, edgeDiff/0.5)) * 100

	score := shapeSignatureWeight*sig + shapeAspectWeight*aspect + shapeEdgeWeight*edge
	if a.Texture != nil && b.Texture != nil && a.Texture.Pattern == b.Texture.Pattern {
		score += patternMatchBonus
	}
	return math.Min(100, score)
}

// ocrScore compares text evidence. Structured identifiers are matched by
// normalized edit distance; a pair at or above IdentifierExactThreshold
// counts as the same identifier. When no identifiers confirm, the score
// falls back to word-level text overlap. Asymmetric or absent OCR is
// Unavailable, never zero.
func ocrScore(a, b *types.VisualDNA) (score float64, matched []string, kind string) {
	aHas := a.OCR.HasText() || a.OCR.HasIdentifiers()
	bHas := b.OCR.HasText() || b.OCR.HasIdentifiers()
	if !aHas || !bHas {
		return Unavailable, nil, ""
	}

	// Identifier families in dominance order. Contact identifiers confirm
	// but never dominate.
	families := []string{
		ocrid.KindLicensePlate,
		ocrid.KindSerialNumber,
		ocrid.KindDocumentID,
		ocrid.KindEmail,
		ocrid.KindPhone,
	}

	var bestSim float64
	var bestKind, bestID string
	for _, fam := range families {
		for _, ia := range a.OCR.Identifiers[fam] {
			na := ocrid.NormalizeIdentifier(ia)
			for _, ib := range b.OCR.Identifiers[fam] {
				nb := ocrid.NormalizeIdentifier(ib)
				sim := NormalizedSimilarity(na, nb)
				if sim > bestSim {
					bestSim, bestKind, bestID = sim, fam, ia
				}
			}
		}
		if bestSim >= IdentifierExactThreshold {
			break
		}
	}

	if bestSim >= IdentifierExactThreshold {
		return 100, []string{bestID}, bestKind
	}

	text := textOverlap(a.OCR, b.OCR)
	if partial := bestSim * 100 * identifierPartialScale; partial > text {
		return partial, nil, ""
	}
	return text, nil, ""
}

// textOverlap is a word-level Jaccard similarity over lowercased tokens
// of three or more characters.
func textOverlap(a, b *types.OCRFeatures) float64 {
	if !a.HasText() || !b.HasText() {
		return 0
	}
	sa := tokenSet(*a.Text)
	sb := tokenSet(*b.Text)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	var inter, union int
	for w := range sa {
		if sb[w] {
			inter++
		}
	}
	union = len(sa) + len(sb) - inter
	return float64(inter) / float64(union) * 100
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) >= 3 {
			set[w] = true
		}
	}
	return set
}

// visualScore is the cosine similarity of the neural embeddings.
func visualScore(a, b *types.VisualDNA) float64 {
	if len(a.Embedding) == 0 || len(b.Embedding) == 0 {
		return Unavailable
	}
	sim := neural.CosineSimilarity(a.Embedding, b.Embedding)
	if sim < 0 {
		sim = 0
	}
	return sim * 100
}

// objectsScore is the Jaccard overlap of detected object labels.
func objectsScore(a, b *types.VisualDNA) float64 {
	if len(a.Labels) == 0 || len(b.Labels) == 0 {
		return Unavailable
	}
	set := make(map[string]bool, len(a.Labels))
	for _, l := range a.Labels {
		set[l] = true
	}
	var inter int
	for _, l := range b.Labels {
		if set[l] {
			inter++
		}
	}
	union := len(a.Labels) + len(b.Labels) - inter
	return float64(inter) / float64(union) * 100
}

// petCoatMatch reports whether two pet photos agree on coat pattern and
// primary coat color.
func petCoatMatch(a, b *types.VisualDNA) bool {
	if a.Texture == nil || b.Texture == nil || a.Texture.Pattern != b.Texture.Pattern {
		return false
	}
	if a.Color == nil || b.Color == nil || len(a.Color.Dominant) == 0 || len(b.Color.Dominant) == 0 {
		return false
	}
	return a.Color.Dominant[0].Name == b.Color.Dominant[0].Name
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		sim = 0
	}
	return sim
}

// sortMatches orders match records by overall score descending, ties
// broken by target photo ID for deterministic output.
func sortMatches(records []types.MatchRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Overall != records[j].Overall {
			return records[i].Overall > records[j].Overall
		}
		return records[i].TargetPhotoID < records[j].TargetPhotoID
	})
}
