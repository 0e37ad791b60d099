package weights

import (
	"dnamatcher/ocrid"
	"dnamatcher/types"
)

// MinDetectionConfidence is the floor below which auto-detection is
// discarded and the default category used instead. Tunable.
const MinDetectionConfidence = 0.45

// petCoatColors are the palettes organic coats tend to fall into.
var petCoatColors = map[string]bool{
	"brown": true, "black": true, "white": true, "gray": true,
	"orange": true, "beige": true, "gold": true, "maroon": true,
}

// metallicColors suggest jewelry or keys when paired with dense edges.
var metallicColors = map[string]bool{
	"gray": true, "white": true, "gold": true, "beige": true,
}

// Detection is the outcome of category auto-detection, kept as an explicit
// scoring result so the heuristic stays testable on its own.
type Detection struct {
	Category   string
	Confidence float64
	Scores     map[string]float64
}

// DetectCategory scores each category heuristic against the available DNA
// features and returns the best one. Detection below
// MinDetectionConfidence falls back to the default category.
func DetectCategory(dna *types.VisualDNA) Detection {
	scores := map[string]float64{}
	if dna == nil {
		return Detection{Category: CategoryDefault, Scores: scores}
	}

	// A readable license plate is the strongest single signal.
	if dna.OCR.HasIdentifiers() && len(dna.OCR.Identifiers[ocrid.KindLicensePlate]) > 0 {
		scores[CategoryVehicles] += 0.8
	}
	if dna.EntityType == types.EntityVehicle {
		scores[CategoryVehicles] += dna.EntityConfidence * 0.6
	}

	// Document ids or long confident text point at documents.
	if dna.OCR.HasIdentifiers() && len(dna.OCR.Identifiers[ocrid.KindDocumentID]) > 0 {
		scores[CategoryDocuments] += 0.7
	}
	if dna.OCR.HasText() && len(*dna.OCR.Text) > 60 && dna.OCR.Confidence >= 60 {
		scores[CategoryDocuments] += 0.4
	}
	if dna.EntityType == types.EntityDocument {
		scores[CategoryDocuments] += dna.EntityConfidence * 0.6
	}

	// Pet: coat palette, organic low edge density, spotted or striped coat
	// pattern, or the classifier saying so.
	petScore := 0.0
	if dna.Color != nil && len(dna.Color.Dominant) > 0 && petCoatColors[dna.Color.Dominant[0].Name] {
		petScore += 0.25
	}
	if dna.Shape != nil && dna.Shape.EdgeDensity < 0.12 {
		petScore += 0.2
	}
	if dna.Texture != nil && (dna.Texture.Pattern == "spotted" || dna.Texture.Pattern == "striped") {
		petScore += 0.2
	}
	if dna.EntityType == types.EntityPet {
		petScore += dna.EntityConfidence * 0.7
	}
	if petScore > 0 {
		scores[CategoryPets] = petScore
	}

	// Jewelry/keys: metallic palette with very dense fine edges.
	if dna.Color != nil && len(dna.Color.Dominant) > 0 && metallicColors[dna.Color.Dominant[0].Name] &&
		dna.Shape != nil && dna.Shape.EdgeDensity > 0.30 {
		scores[CategoryJewelry] += 0.55
	}

	// Serial numbers lean toward electronics.
	if dna.OCR.HasIdentifiers() && len(dna.OCR.Identifiers[ocrid.KindSerialNumber]) > 0 {
		scores[CategoryElectronics] += 0.5
	}

	best := CategoryDefault
	bestScore := 0.0
	for category, score := range scores {
		if score > bestScore {
			best = category
			bestScore = score
		}
	}
	if bestScore < MinDetectionConfidence {
		return Detection{Category: CategoryDefault, Confidence: bestScore, Scores: scores}
	}
	if bestScore > 1 {
		bestScore = 1
	}
	return Detection{Category: best, Confidence: bestScore, Scores: scores}
}
