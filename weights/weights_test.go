package weights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnamatcher/ocrid"
	"dnamatcher/types"
)

func assertNormalized(t *testing.T, w types.WeightVector) {
	t.Helper()
	assert.InDelta(t, 1.0, w.Sum(), 1e-9, "weights must sum to 1.0")
	for _, v := range []float64{w.Hash, w.Color, w.Shape, w.OCR, w.Visual, w.Objects} {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestBaseTablesAreNormalized(t *testing.T) {
	for _, category := range Categories() {
		assertNormalized(t, BaseTable(category))
	}
	assertNormalized(t, BaseTable("no-such-category"))
}

func TestComputeAlwaysNormalized(t *testing.T) {
	flagSets := []Features{
		{},
		{HasText: true},
		{HasText: true, HasIdentifiers: true},
		{IsPet: true},
		{HasText: true, IsDocumentStrongText: true},
		{SolidSingleColor: true},
		{HasText: true, AsymmetricOCR: true},
		{IsPet: true, SolidSingleColor: true, AsymmetricOCR: true},
	}
	for _, category := range Categories() {
		for _, f := range flagSets {
			assertNormalized(t, Compute(f, category))
		}
	}
}

func TestNoTextCollapsesOCR(t *testing.T) {
	base := BaseTable(CategoryDocuments)
	w := Compute(Features{HasText: false}, CategoryDocuments)

	assert.Less(t, w.OCR, 0.05, "OCR weight must collapse when no text exists")
	assert.Greater(t, w.Color, base.Color, "freed weight redistributes to color")
	assert.Greater(t, w.Shape, base.Shape)
}

func TestPetBoostsColorShrinksShape(t *testing.T) {
	base := BaseTable(CategoryPets)
	w := Compute(Features{HasText: true, IsPet: true}, CategoryPets)

	assert.Greater(t, w.Color, base.Color)
	assert.Less(t, w.Shape, base.Shape)
	assert.Less(t, w.OCR, 0.05)
}

func TestDocumentStrongTextBoostsOCR(t *testing.T) {
	base := BaseTable(CategoryDocuments)
	w := Compute(Features{HasText: true, HasIdentifiers: true, IsDocumentStrongText: true}, CategoryDocuments)

	assert.Greater(t, w.OCR, base.OCR)
	assert.Less(t, w.Color, base.Color)
}

func TestAsymmetricOCRRedistributesInsteadOfPenalizing(t *testing.T) {
	symmetric := Compute(Features{HasText: true}, CategoryVehicles)
	asymmetric := Compute(Features{HasText: true, AsymmetricOCR: true}, CategoryVehicles)

	assert.Less(t, asymmetric.OCR, 0.05, "asymmetric OCR must collapse the OCR weight")
	assert.Greater(t, asymmetric.Hash, symmetric.Hash)
	assert.Greater(t, asymmetric.Color, symmetric.Color)
	assert.Greater(t, asymmetric.Visual, symmetric.Visual)
	assertNormalized(t, asymmetric)
}

func TestComputeIsPure(t *testing.T) {
	base := BaseTable(CategoryVehicles)
	before := base
	_ = ComputeFrom(base, Features{IsPet: true, AsymmetricOCR: true})
	assert.Equal(t, before, base, "input vector must never be mutated")
}

func TestDetectCategoryLicensePlate(t *testing.T) {
	text := "plate ABC-1234"
	dna := &types.VisualDNA{
		OCR: &types.OCRFeatures{
			Text: &text,
			Identifiers: map[string][]string{
				ocrid.KindLicensePlate: {"ABC-1234"},
			},
		},
	}

	d := DetectCategory(dna)
	assert.Equal(t, CategoryVehicles, d.Category)
	assert.GreaterOrEqual(t, d.Confidence, MinDetectionConfidence)
}

func TestDetectCategoryPet(t *testing.T) {
	dna := &types.VisualDNA{
		EntityType:       types.EntityPet,
		EntityConfidence: 0.9,
		Color: &types.ColorFeatures{
			Dominant: []types.DominantColor{{Name: "brown", Abbr: "BRN", Percent: 60}},
		},
		Shape:   &types.ShapeFeatures{EdgeDensity: 0.08},
		Texture: &types.TextureFeatures{Pattern: "spotted"},
	}

	d := DetectCategory(dna)
	assert.Equal(t, CategoryPets, d.Category)
}

func TestDetectCategoryLowConfidenceFallsBack(t *testing.T) {
	d := DetectCategory(&types.VisualDNA{})
	assert.Equal(t, CategoryDefault, d.Category)

	d = DetectCategory(nil)
	assert.Equal(t, CategoryDefault, d.Category)
}

func TestProviderServesAndInvalidates(t *testing.T) {
	calls := 0
	source := func(category string) types.WeightVector {
		calls++
		return BaseTable(category)
	}
	p := NewProvider(source, time.Minute)

	first := p.Table(CategoryPets)
	second := p.Table(CategoryPets)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second read must come from cache")

	p.Invalidate()
	_ = p.Table(CategoryPets)
	assert.Equal(t, 2, calls, "invalidate must force recompute")
}

func TestProviderServesStaleWhileRefreshing(t *testing.T) {
	block := make(chan struct{})
	calls := 0
	source := func(category string) types.WeightVector {
		calls++
		if calls > 1 {
			<-block
		}
		return BaseTable(category)
	}
	p := NewProvider(source, time.Nanosecond)

	first := p.Table(CategoryDefault)
	time.Sleep(time.Millisecond)

	// TTL has lapsed; the read must return immediately with the stale value
	// while the refresh blocks in the background.
	done := make(chan types.WeightVector, 1)
	go func() { done <- p.Table(CategoryDefault) }()

	select {
	case got := <-done:
		assert.Equal(t, first, got)
	case <-time.After(time.Second):
		t.Fatal("stale read blocked on refresh")
	}
	close(block)
}

func TestRequirementWeightsSumForAllFlagCombinations(t *testing.T) {
	// Exhaustive sweep over the flag space for the default category.
	for mask := 0; mask < 1<<6; mask++ {
		f := Features{
			HasText:              mask&1 != 0,
			HasIdentifiers:       mask&2 != 0,
			IsPet:                mask&4 != 0,
			IsDocumentStrongText: mask&8 != 0,
			SolidSingleColor:     mask&16 != 0,
			AsymmetricOCR:        mask&32 != 0,
		}
		w := Compute(f, CategoryDefault)
		require.InDelta(t, 1.0, w.Sum(), 1e-9, "flags %+v", f)
	}
}
