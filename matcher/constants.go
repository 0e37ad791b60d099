package matcher

// Match type tags, ordered by precedence.
const (
	MatchTypeLicensePlate = "license_plate"
	MatchTypeSerialNumber = "serial_number"
	MatchTypeImageDNA     = "image_dna"
	MatchTypePet          = "pet"
	MatchTypeText         = "text"
	MatchTypeVisual       = "visual"
	MatchTypeShape        = "shape"
	MatchTypeColor        = "color"
	MatchTypeCombined     = "combined"
)

// Empirically tuned scoring constants. They reproduce calibrated behavior
// and are isolated here so recalibration never touches control flow.
const (
	// IdentifierExactThreshold is the normalized edit-distance similarity
	// at which two identifiers count as the same physical identifier.
	IdentifierExactThreshold = 0.85

	// identifierDominanceWeight blends a confirmed plate/serial match with
	// the rest of the comparison; the identifier dominates.
	identifierDominanceWeight = 0.7

	// dnaPrimaryThreshold: a blended hash score at or above this treats
	// image-DNA similarity as the primary signal.
	dnaPrimaryThreshold = 85.0

	// dnaPrimaryScale converts a primary hash score into the overall floor
	// it guarantees.
	dnaPrimaryScale = 0.9

	// patternMatchBonus is added to the shape dimension when both photos
	// share a texture pattern classification.
	patternMatchBonus = 10.0

	// petCoatBonus is added once for pets sharing coat pattern and primary
	// coat color.
	petCoatBonus = 5.0

	// Per-algorithm weights inside the blended hash score.
	hashWeightPerceptual = 0.35
	hashWeightBlock      = 0.30
	hashWeightDifference = 0.20
	hashWeightAverage    = 0.15

	// Blend factors inside the color and shape dimensions.
	colorHistogramWeight = 0.6
	colorDominantWeight  = 0.4
	shapeSignatureWeight = 0.6
	shapeAspectWeight    = 0.2
	shapeEdgeWeight      = 0.2

	// Non-exact identifier similarity is discounted by this factor when it
	// beats plain text overlap.
	identifierPartialScale = 0.7

	// reasonDisplayThreshold hides weak signals from the human-readable
	// reason list.
	reasonDisplayThreshold = 60.0
)

// Stage-2 blend weights, with and without embeddings.
const (
	stage2EmbeddingWeight    = 0.5
	stage2ColorWeight        = 0.3
	stage2HashWeight         = 0.2
	stage2ColorWeightNoEmbed = 0.6
	stage2HashWeightNoEmbed  = 0.4
)

// Stage-1 broad signal contributions.
const (
	stage1EntityBonus   = 20.0
	stage1LabelBonus    = 10.0
	stage1ColorBonus    = 15.0
	stage1CategoryBonus = 10.0
	stage1SharedColors  = 2
)
