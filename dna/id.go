package dna

import (
	"fmt"
	"strings"

	"dnamatcher/ocrid"
	"dnamatcher/types"
)

// Aspect-ratio cutoffs for the shape code.
const (
	horizontalRatioMin = 1.3
	verticalRatioMax   = 0.77
)

// minEntityConfidence is the floor below which the neural entity result is
// ignored in favor of the heuristic fallback.
const minEntityConfidence = 0.35

// ComposeID renders the compact human-readable DNA identifier:
// ENTITY-COLORCODE-SHAPE-NEURALHASH-HASHPREFIX-Q{quality}.
func ComposeID(record *types.VisualDNA) string {
	entity := strings.ToUpper(string(record.EntityType))
	if entity == "" {
		entity = "UNKNOWN"
	}

	colorCode := "UNK"
	if record.Color != nil && len(record.Color.Dominant) > 0 {
		abbrs := make([]string, 0, 2)
		for _, c := range record.Color.Dominant {
			abbrs = append(abbrs, c.Abbr)
			if len(abbrs) == 2 {
				break
			}
		}
		colorCode = strings.Join(abbrs, ".")
	}

	shapeCode := "SQR"
	if record.Shape != nil {
		switch {
		case record.Shape.AspectRatio > horizontalRatioMin:
			shapeCode = "HORZ"
		case record.Shape.AspectRatio < verticalRatioMax:
			shapeCode = "VERT"
		}
	}

	neuralHash := record.EmbeddingHash
	if neuralHash == "" {
		neuralHash = "00000000"
	}

	hashPrefix := "000000"
	switch {
	case record.PerceptualHash != "":
		hashPrefix = record.PerceptualHash[:6]
	case record.AverageHash != "":
		hashPrefix = record.AverageHash[:6]
	}

	return fmt.Sprintf("%s-%s-%s-%s-%s-Q%d",
		entity, colorCode, shapeCode, neuralHash, hashPrefix, int(record.QualityScore))
}

// fallbackEntityType derives the entity type from OCR evidence when the
// neural classifier is absent or unsure: a license plate means vehicle,
// document ids or long confident text mean document, a serial number means
// item.
func fallbackEntityType(ocr *types.OCRFeatures) (types.EntityType, float64) {
	if ocr == nil {
		return types.EntityItem, 0.3
	}
	switch {
	case len(ocr.Identifiers[ocrid.KindLicensePlate]) > 0:
		return types.EntityVehicle, 0.8
	case len(ocr.Identifiers[ocrid.KindDocumentID]) > 0:
		return types.EntityDocument, 0.7
	case ocr.HasText() && len(*ocr.Text) > 60 && ocr.Confidence >= 60:
		return types.EntityDocument, 0.5
	case len(ocr.Identifiers[ocrid.KindSerialNumber]) > 0:
		return types.EntityItem, 0.6
	default:
		return types.EntityItem, 0.3
	}
}
