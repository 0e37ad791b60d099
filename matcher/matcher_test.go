package matcher

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnamatcher/config"
	"dnamatcher/ocrid"
	"dnamatcher/types"
	"dnamatcher/weights"
)

type fakeCorpus struct {
	dnas  []*types.VisualDNA
	cases map[string]*types.Case
}

func (f *fakeCorpus) ActiveDNA(_ context.Context, ct types.CaseType, limit int) ([]*types.VisualDNA, error) {
	var out []*types.VisualDNA
	for _, d := range f.dnas {
		if d.CaseType == ct {
			out = append(out, d)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCorpus) CaseByID(_ context.Context, id string) (*types.Case, error) {
	return f.cases[id], nil
}

func hueHist(bin int) []float64 {
	h := make([]float64, 36)
	h[bin] = 1
	return h
}

func flatHist(n int) []float64 {
	h := make([]float64, n)
	for i := range h {
		h[i] = 1 / float64(n)
	}
	return h
}

func colorBlock(name, abbr string, bin int) *types.ColorFeatures {
	return &types.ColorFeatures{
		HueHist:  hueHist(bin),
		SatHist:  flatHist(10),
		ValHist:  flatHist(10),
		Dominant: []types.DominantColor{{Name: name, Abbr: abbr, Percent: 90}},
	}
}

func baseDNA(photoID, caseID string, ct types.CaseType) *types.VisualDNA {
	return &types.VisualDNA{
		PhotoID:        photoID,
		CaseID:         caseID,
		CaseType:       ct,
		EntityType:     types.EntityItem,
		AverageHash:    strings.Repeat("a5", 8),
		DifferenceHash: strings.Repeat("3c", 8),
		PerceptualHash: strings.Repeat("f0", 8),
		BlockHash:      strings.Repeat("0f", 8),
		Color:          colorBlock("red", "RED", 0),
		Shape: &types.ShapeFeatures{
			Signature:   []float64{0.1, 0.5, 0.9, 0.5, 0.1, 0.5, 0.9, 0.5},
			AspectRatio: 1.5,
			EdgeDensity: 0.2,
		},
		Texture: &types.TextureFeatures{Pattern: "smooth", Confidence: 0.8},
		Status:  types.StatusCompleted,
	}
}

func defaultMatcher(c Corpus) *Matcher {
	cfg := config.Default().Matcher
	cfg.Workers = 2
	return New(c, nil, cfg)
}

func TestFindMatchesEmptyCorpus(t *testing.T) {
	m := defaultMatcher(&fakeCorpus{cases: map[string]*types.Case{}})
	res, err := m.FindMatches(context.Background(), baseDNA("p1", "c1", types.CaseLost))
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, VerdictNothingScanned, res.Outcome.Verdict)
}

func TestFindMatchesRejectsFailedSource(t *testing.T) {
	m := defaultMatcher(&fakeCorpus{})
	src := baseDNA("p1", "c1", types.CaseLost)
	src.Status = types.StatusFailed
	_, err := m.FindMatches(context.Background(), src)
	assert.Error(t, err)
}

func TestIdenticalImagesMatchAsImageDNA(t *testing.T) {
	src := baseDNA("lost-1", "case-l", types.CaseLost)
	tgt := baseDNA("found-1", "case-f", types.CaseFound)

	corpus := &fakeCorpus{
		dnas: []*types.VisualDNA{tgt},
		cases: map[string]*types.Case{
			"case-l": {ID: "case-l", Type: types.CaseLost},
			"case-f": {ID: "case-f", Type: types.CaseFound},
		},
	}
	m := defaultMatcher(corpus)

	res, err := m.FindMatches(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, VerdictMatched, res.Outcome.Verdict)

	match := res.Matches[0]
	assert.Equal(t, "found-1", match.TargetPhotoID)
	assert.Equal(t, MatchTypeImageDNA, match.MatchType)
	assert.GreaterOrEqual(t, match.Overall, dnaPrimaryThreshold*dnaPrimaryScale)
	assert.InDelta(t, 100, match.Scores.Hash, 0.001)
}

func TestLicensePlateOverridesVisualDissimilarity(t *testing.T) {
	plate := "ABC-1234"
	text := "registration " + plate

	src := baseDNA("lost-1", "case-l", types.CaseLost)
	src.EntityType = types.EntityVehicle
	src.OCR = &types.OCRFeatures{
		Text:        &text,
		Confidence:  80,
		Identifiers: map[string][]string{ocrid.KindLicensePlate: {plate}},
		Score:       60,
	}

	tgt := baseDNA("found-1", "case-f", types.CaseFound)
	tgt.EntityType = types.EntityVehicle
	// Visually far apart: every hash bit flipped.
	tgt.AverageHash = strings.Repeat("5a", 8)
	tgt.DifferenceHash = strings.Repeat("c3", 8)
	tgt.PerceptualHash = strings.Repeat("0f", 8)
	tgt.BlockHash = strings.Repeat("f0", 8)
	tgt.OCR = &types.OCRFeatures{
		Text:        &text,
		Confidence:  70,
		Identifiers: map[string][]string{ocrid.KindLicensePlate: {"ABC 1234"}},
		Score:       60,
	}

	corpus := &fakeCorpus{
		dnas: []*types.VisualDNA{tgt},
		cases: map[string]*types.Case{
			"case-l": {ID: "case-l", Type: types.CaseLost},
			"case-f": {ID: "case-f", Type: types.CaseFound},
		},
	}
	m := defaultMatcher(corpus)

	res, err := m.FindMatches(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	match := res.Matches[0]
	assert.Equal(t, MatchTypeLicensePlate, match.MatchType)
	assert.Contains(t, match.MatchedIdentifiers, plate)
	assert.InDelta(t, 100, match.Scores.OCR, 0.001)
	assert.GreaterOrEqual(t, match.Overall, identifierDominanceWeight*100)
}

func TestAsymmetricOCRIsUnavailableNotZero(t *testing.T) {
	text := "golden retriever collar with phone tag"
	src := baseDNA("a", "ca", types.CaseLost)
	src.OCR = &types.OCRFeatures{Text: &text, Confidence: 70, Identifiers: map[string][]string{}}
	tgt := baseDNA("b", "cb", types.CaseFound)
	tgt.OCR = nil

	cmp := CompareDNA(src, tgt, nil)
	assert.Equal(t, Unavailable, cmp.Scores.OCR)

	// The unanswered text must not drag the score below the same pair
	// compared with no text at all.
	src2 := baseDNA("a", "ca", types.CaseLost)
	tgt2 := baseDNA("b", "cb", types.CaseFound)
	plain := CompareDNA(src2, tgt2, nil)
	assert.InDelta(t, plain.Overall, cmp.Overall, 1.0)
	assert.Greater(t, cmp.Overall, 80.0)
}

func TestRedBicyclePairScoresWithColorAndVisualReasons(t *testing.T) {
	embed := []float32{0.2, 0.4, 0.6, 0.4, 0.2}

	src := baseDNA("lost-bike", "case-l", types.CaseLost)
	src.EntityType = types.EntityVehicle
	src.Labels = []string{"bicycle"}
	src.Embedding = embed

	tgt := baseDNA("found-bike", "case-f", types.CaseFound)
	tgt.EntityType = types.EntityVehicle
	tgt.Labels = []string{"bicycle"}
	tgt.Embedding = embed
	// Slightly different shot of the same frame.
	tgt.PerceptualHash = strings.Repeat("f0", 7) + "f1"

	cmp := CompareDNA(src, tgt, nil)
	assert.GreaterOrEqual(t, cmp.Overall, 30.0)

	tags := make([]string, 0, len(cmp.Reasons))
	for _, r := range cmp.Reasons {
		tags = append(tags, r.Tag)
	}
	assert.Contains(t, tags, "color")
	assert.Contains(t, tags, "visual")
}

func TestDissimilarItemsProduceNoMatch(t *testing.T) {
	src := baseDNA("blue-wallet", "case-l", types.CaseLost)
	src.EntityType = types.EntityUnknown
	src.Color = colorBlock("blue", "BLU", 24)

	tgt := baseDNA("red-phone", "case-f", types.CaseFound)
	tgt.EntityType = types.EntityItem
	tgt.AverageHash = strings.Repeat("5a", 8)
	tgt.DifferenceHash = strings.Repeat("c3", 8)
	tgt.PerceptualHash = strings.Repeat("0f", 8)
	tgt.BlockHash = strings.Repeat("f0", 8)

	corpus := &fakeCorpus{
		dnas: []*types.VisualDNA{tgt},
		cases: map[string]*types.Case{
			"case-l": {ID: "case-l"},
			"case-f": {ID: "case-f"},
		},
	}
	m := defaultMatcher(corpus)

	res, err := m.FindMatches(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, VerdictFilteredByHash, res.Outcome.Verdict)
}

func TestLocationBoostDecaysWithDistance(t *testing.T) {
	near := &types.Case{ID: "a", Latitude: 48.8566, Longitude: 2.3522, SearchRadiusKM: 10}
	same := &types.Case{ID: "b", Latitude: 48.8566, Longitude: 2.3522}
	far := &types.Case{ID: "c", Latitude: 51.5074, Longitude: -0.1278}

	boost, dist, ok := LocationBoost(near, same, 15, 10)
	require.True(t, ok)
	assert.InDelta(t, 0, dist, 0.001)
	assert.InDelta(t, 15, boost, 0.001)

	boost, dist, ok = LocationBoost(near, far, 15, 10)
	require.True(t, ok)
	assert.InDelta(t, 344, dist, 5)
	assert.Less(t, boost, 0.01)

	_, _, ok = LocationBoost(near, &types.Case{ID: "d"}, 15, 10)
	assert.False(t, ok)
}

func TestHaversineKnownDistance(t *testing.T) {
	d := HaversineKM(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, 344, d, 5)
}

func TestNormalizedSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, NormalizedSimilarity("ABC1234", "ABC1234"), 0.001)
	assert.InDelta(t, 1.0-1.0/7.0, NormalizedSimilarity("ABC1234", "ABC1235"), 0.001)
	assert.Equal(t, 0.0, NormalizedSimilarity("", "ABC"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

func TestTopNTruncatesRankedResults(t *testing.T) {
	src := baseDNA("lost-1", "case-l", types.CaseLost)
	corpus := &fakeCorpus{cases: map[string]*types.Case{"case-l": {ID: "case-l"}}}
	for i := 0; i < 15; i++ {
		tgt := baseDNA(fmt.Sprintf("found-%02d", i), fmt.Sprintf("case-f%02d", i), types.CaseFound)
		corpus.dnas = append(corpus.dnas, tgt)
		corpus.cases[tgt.CaseID] = &types.Case{ID: tgt.CaseID}
	}

	m := defaultMatcher(corpus)
	res, err := m.FindMatches(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, res.Matches, m.cfg.TopN)
	for i := 1; i < len(res.Matches); i++ {
		assert.GreaterOrEqual(t, res.Matches[i-1].Overall, res.Matches[i].Overall)
	}
}

func TestWeightedOverallSkipsUnavailableDimensions(t *testing.T) {
	w := weights.BaseTable(weights.CategoryDefault)
	s := types.DimensionScores{
		Hash:    80,
		Color:   60,
		Shape:   Unavailable,
		OCR:     Unavailable,
		Visual:  Unavailable,
		Objects: Unavailable,
	}
	got := weightedOverall(s, w)
	want := (80*w.Hash + 60*w.Color) / (w.Hash + w.Color)
	assert.InDelta(t, want, got, 0.001)

	none := types.DimensionScores{Hash: Unavailable, Color: Unavailable, Shape: Unavailable,
		OCR: Unavailable, Visual: Unavailable, Objects: Unavailable}
	assert.Equal(t, 0.0, weightedOverall(none, w))
}

func TestDominantMatchTypeFallsBackToCombined(t *testing.T) {
	w := weights.BaseTable(weights.CategoryDefault)
	s := types.DimensionScores{Hash: 40, Color: 45, Shape: 50, OCR: 30, Visual: 35, Objects: 20}
	assert.Equal(t, MatchTypeCombined, dominantMatchType(s, w))

	s.Color = 90
	assert.Equal(t, MatchTypeColor, dominantMatchType(s, w))
}

func TestReasonsRankedAndThresholded(t *testing.T) {
	s := types.DimensionScores{Hash: 95, Color: 70, Shape: 40, OCR: Unavailable, Visual: 85}
	reasons := buildReasons(s, nil, 3.5)

	require.NotEmpty(t, reasons)
	assert.Equal(t, "image", reasons[0].Tag)
	for i := 1; i < len(reasons); i++ {
		assert.GreaterOrEqual(t, reasons[i-1].Score, reasons[i].Score)
	}
	for _, r := range reasons {
		assert.NotEqual(t, "shape", r.Tag)
	}

	last := reasons[len(reasons)-1]
	assert.Equal(t, "location", last.Tag)
}
