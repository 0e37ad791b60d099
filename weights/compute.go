package weights

import "dnamatcher/types"

// ocrFloor is the residual OCR weight left after a collapse; keeping it
// slightly above zero lets an unexpected identifier hit still register.
const ocrFloor = 0.02

// Features are the availability flags the weight engine adapts to. They
// describe the pair being compared, never the caller's internals.
type Features struct {
	// HasText is true when at least one side carries usable OCR text.
	HasText bool
	// HasIdentifiers is true when structured identifiers are present.
	HasIdentifiers bool
	// HasEmbedding is true when both sides carry a neural embedding.
	HasEmbedding bool
	// IsPet marks a pet detection.
	IsPet bool
	// IsDocumentStrongText marks a document detection with confident text
	// on both sides.
	IsDocumentStrongText bool
	// SolidSingleColor marks an item with one dominant color and no
	// pattern.
	SolidSingleColor bool
	// AsymmetricOCR is true when exactly one of the two photos has usable
	// text. Absence of OCR on one side must not read as a mismatch.
	AsymmetricOCR bool
}

// Compute derives the normalized weight vector for a comparison from the
// base category table and the availability flags. It is a pure function:
// the input vector is never mutated and every rule returns a fresh,
// renormalized vector.
func Compute(f Features, category string) types.WeightVector {
	return ComputeFrom(BaseTable(category), f)
}

// ComputeFrom applies the ordered redistribution rules to an explicit base
// vector. Rules are cumulative; each one renormalizes before the next runs.
func ComputeFrom(base types.WeightVector, f Features) types.WeightVector {
	w := base.Normalized()

	// Rule 1: no usable text or identifiers at all. The OCR weight
	// collapses and redistributes 40/30/20/10 to color/shape/visual/hash.
	if !f.HasText && !f.HasIdentifiers {
		freed := w.OCR - ocrFloor
		if freed > 0 {
			w = types.WeightVector{
				Hash:    w.Hash + freed*0.10,
				Color:   w.Color + freed*0.40,
				Shape:   w.Shape + freed*0.30,
				OCR:     ocrFloor,
				Visual:  w.Visual + freed*0.20,
				Objects: w.Objects,
			}.Normalized()
		}
	}

	// Rule 2: pet. Coat color and the embedding carry the comparison;
	// pose makes the silhouette unreliable and pets carry no text.
	if f.IsPet {
		w = types.WeightVector{
			Hash:    w.Hash,
			Color:   w.Color * 1.5,
			Shape:   w.Shape * 0.5,
			OCR:     ocrFloor,
			Visual:  w.Visual * 1.2,
			Objects: w.Objects,
		}.Normalized()
	}

	// Rule 3: document with strong text on both sides.
	if f.IsDocumentStrongText {
		w = types.WeightVector{
			Hash:    w.Hash,
			Color:   w.Color * 0.5,
			Shape:   w.Shape,
			OCR:     w.OCR * 1.5,
			Visual:  w.Visual,
			Objects: w.Objects,
		}.Normalized()
	}

	// Rule 4: solid single-color item. Color alone is ambiguous, the
	// silhouette disambiguates.
	if f.SolidSingleColor {
		w = types.WeightVector{
			Hash:    w.Hash,
			Color:   w.Color * 0.85,
			Shape:   w.Shape * 1.3,
			OCR:     w.OCR,
			Visual:  w.Visual,
			Objects: w.Objects,
		}.Normalized()
	}

	// Rule 5: asymmetric OCR. One side has text, the other does not; the
	// OCR dimension must drop out instead of penalizing the pair.
	if f.AsymmetricOCR {
		freed := w.OCR - ocrFloor
		if freed > 0 {
			total := w.Hash + w.Color + w.Shape + w.Visual
			if total > 0 {
				w = types.WeightVector{
					Hash:    w.Hash + freed*(w.Hash/total),
					Color:   w.Color + freed*(w.Color/total),
					Shape:   w.Shape + freed*(w.Shape/total),
					OCR:     ocrFloor,
					Visual:  w.Visual + freed*(w.Visual/total),
					Objects: w.Objects,
				}.Normalized()
			}
		}
	}

	return w.Normalized()
}
