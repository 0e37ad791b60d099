package weights

import "dnamatcher/types"

// Item categories the weighting tables are tuned for.
const (
	CategoryPets        = "pets"
	CategoryDocuments   = "documents"
	CategoryVehicles    = "vehicles"
	CategoryJewelry     = "jewelry"
	CategoryKeys        = "keys"
	CategoryElectronics = "electronics"
	CategoryBags        = "bags"
	CategoryClothing    = "clothing"
	CategoryDefault     = "default"
)

// baseTables holds the per-category starting weights over the six
// comparison dimensions. Values are tuned, not derived; they are normalized
// on the way out so rows need not sum to exactly 1.
var baseTables = map[string]types.WeightVector{
	// Pets carry no text and no rigid shape; coat color and the visual
	// embedding dominate.
	CategoryPets: {Hash: 0.10, Color: 0.30, Shape: 0.10, OCR: 0.05, Visual: 0.35, Objects: 0.10},
	// Documents are nearly all text.
	CategoryDocuments: {Hash: 0.05, Color: 0.05, Shape: 0.05, OCR: 0.60, Visual: 0.15, Objects: 0.10},
	// Vehicles: the plate is the strongest signal when readable.
	CategoryVehicles: {Hash: 0.10, Color: 0.15, Shape: 0.15, OCR: 0.40, Visual: 0.10, Objects: 0.10},
	// Jewelry and keys are distinguished by silhouette.
	CategoryJewelry: {Hash: 0.15, Color: 0.15, Shape: 0.40, OCR: 0.05, Visual: 0.15, Objects: 0.10},
	CategoryKeys:    {Hash: 0.15, Color: 0.10, Shape: 0.45, OCR: 0.05, Visual: 0.15, Objects: 0.10},
	// Electronics often carry serial numbers.
	CategoryElectronics: {Hash: 0.20, Color: 0.15, Shape: 0.15, OCR: 0.25, Visual: 0.15, Objects: 0.10},
	CategoryBags:        {Hash: 0.20, Color: 0.30, Shape: 0.20, OCR: 0.05, Visual: 0.15, Objects: 0.10},
	CategoryClothing:    {Hash: 0.15, Color: 0.35, Shape: 0.15, OCR: 0.05, Visual: 0.20, Objects: 0.10},
	CategoryDefault:     {Hash: 0.20, Color: 0.20, Shape: 0.15, OCR: 0.15, Visual: 0.20, Objects: 0.10},
}

// BaseTable returns the normalized base weight vector for a category,
// falling back to the default table for unknown categories.
func BaseTable(category string) types.WeightVector {
	if w, ok := baseTables[category]; ok {
		return w.Normalized()
	}
	return baseTables[CategoryDefault].Normalized()
}

// Categories lists the known category names.
func Categories() []string {
	out := make([]string, 0, len(baseTables))
	for name := range baseTables {
		out = append(out, name)
	}
	return out
}
