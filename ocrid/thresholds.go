package ocrid

// Validation thresholds. These replicate empirically tuned cutoffs; they are
// configuration constants, not correctness invariants, and may be
// recalibrated.
const (
	// MinTextLength rejects texts shorter than this outright.
	MinTextLength = 5

	// MinAlnumRatio is the minimum fraction of alphanumeric characters
	// (whitespace excluded) a text must have.
	MinAlnumRatio = 0.6

	// MaxShortWordRatio rejects texts where too many words are 1-2
	// characters.
	MaxShortWordRatio = 0.5

	// MinAvgWordLength rejects texts whose average word length is below
	// this.
	MinAvgWordLength = 3.0

	// MaxGibberishScore rejects texts whose combined gibberish score
	// exceeds this.
	MaxGibberishScore = 60.0

	// MinValidWords is the minimum count of readable words.
	MinValidWords = 3

	// MinConfidence is the minimum mean per-word OCR confidence (0-100).
	MinConfidence = 45.0

	// MaxRandomCharRatio rejects texts with too many non-alphanumeric,
	// non-punctuation characters.
	MaxRandomCharRatio = 0.25
)

// Gibberish score component weights.
const (
	gibberishSingleLetterWeight  = 30.0
	gibberishCapsShortWeight     = 25.0
	gibberishIrregularCaseWeight = 25.0
	gibberishUncommonWeight      = 20.0
)
