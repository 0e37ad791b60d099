package ocrid

import (
	"strings"
	"unicode"

	"dnamatcher/types"
)

// Rejection reasons reported by Validate, for observability.
const (
	RejectTooShort       = "too_short"
	RejectLowAlnum       = "low_alphanumeric_ratio"
	RejectShortWords     = "short_word_ratio"
	RejectAvgWordLength  = "low_avg_word_length"
	RejectGibberish      = "gibberish_score"
	RejectFewWords       = "too_few_valid_words"
	RejectLowConfidence  = "low_confidence"
	RejectRandomChars    = "random_character_ratio"
	AcceptedByIdentifier = "structured_identifier"
	AcceptedByText       = "readable_text"
)

// commonWords is a small stop-word set used by the gibberish heuristic to
// estimate whether text looks like language at all.
var commonWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "have": true, "are": true, "was": true,
	"you": true, "not": true, "but": true, "all": true, "can": true,
	"her": true, "his": true, "one": true, "our": true, "out": true,
	"use": true, "any": true, "new": true, "made": true, "in": true,
	"of": true, "to": true, "on": true, "is": true, "it": true, "at": true,
	"by": true, "be": true, "as": true, "or": true, "no": true, "if": true,
}

// Verdict is the outcome of running the validation pipeline over raw OCR
// output.
type Verdict struct {
	Valid          bool
	Reason         string
	GibberishScore float64
	WordCount      int
	Confidence     float64
	Identifiers    map[string][]string
}

// Validate runs the ordered early-exit validation pipeline over raw OCR
// text plus the engine's per-word confidences (0-100). Texts carrying a
// structured identifier are accepted immediately and skip the statistical
// gibberish checks.
func Validate(text string, wordConfidences []float64) Verdict {
	trimmed := strings.TrimSpace(text)
	confidence := meanConfidence(wordConfidences)

	if len(trimmed) < MinTextLength {
		return Verdict{Reason: RejectTooShort, Confidence: confidence}
	}

	if alnumRatio(trimmed) < MinAlnumRatio {
		return Verdict{Reason: RejectLowAlnum, Confidence: confidence}
	}

	ids := ExtractIdentifiers(trimmed)
	words := strings.Fields(trimmed)

	if HasStructuredIdentifier(ids) {
		return Verdict{
			Valid:       true,
			Reason:      AcceptedByIdentifier,
			WordCount:   len(words),
			Confidence:  confidence,
			Identifiers: ids,
		}
	}

	if shortWordRatio(words) > MaxShortWordRatio {
		return Verdict{Reason: RejectShortWords, Confidence: confidence}
	}

	if avgWordLength(words) < MinAvgWordLength {
		return Verdict{Reason: RejectAvgWordLength, Confidence: confidence}
	}

	gibberish := GibberishScore(words)
	if gibberish > MaxGibberishScore {
		return Verdict{Reason: RejectGibberish, GibberishScore: gibberish, Confidence: confidence}
	}

	valid := validWordCount(words)
	if valid < MinValidWords || confidence < MinConfidence {
		reason := RejectFewWords
		if valid >= MinValidWords {
			reason = RejectLowConfidence
		}
		return Verdict{Reason: reason, GibberishScore: gibberish, WordCount: valid, Confidence: confidence}
	}

	if randomCharRatio(trimmed) > MaxRandomCharRatio {
		return Verdict{Reason: RejectRandomChars, GibberishScore: gibberish, Confidence: confidence}
	}

	return Verdict{
		Valid:          true,
		Reason:         AcceptedByText,
		GibberishScore: gibberish,
		WordCount:      valid,
		Confidence:     confidence,
		Identifiers:    ids,
	}
}

// Extract validates raw OCR output and returns the structured OCR feature
// block. Rejected (garbage) text yields a nil Text, no identifiers and a
// zero score; downstream scoring must treat that as intentional absence.
func Extract(text string, wordConfidences []float64) *types.OCRFeatures {
	verdict := Validate(text, wordConfidences)
	if !verdict.Valid {
		return &types.OCRFeatures{
			Text:        nil,
			Confidence:  verdict.Confidence,
			Identifiers: map[string][]string{},
			Score:       0,
		}
	}

	cleaned := strings.Join(strings.Fields(text), " ")
	return &types.OCRFeatures{
		Text:        &cleaned,
		Confidence:  verdict.Confidence,
		Identifiers: verdict.Identifiers,
		Score:       Score(verdict),
	}
}

// Score rates validated OCR output 0-100: confidence tier, the strongest
// identifier family present (plate over serial over document id over
// contact info), and readable-word count.
func Score(v Verdict) float64 {
	if !v.Valid {
		return 0
	}

	score := 0.0
	switch {
	case v.Confidence >= 90:
		score += 30
	case v.Confidence >= 75:
		score += 22
	case v.Confidence >= 60:
		score += 15
	case v.Confidence >= MinConfidence:
		score += 8
	}

	switch {
	case len(v.Identifiers[KindLicensePlate]) > 0:
		score += 40
	case len(v.Identifiers[KindSerialNumber]) > 0:
		score += 32
	case len(v.Identifiers[KindDocumentID]) > 0:
		score += 25
	case len(v.Identifiers[KindEmail]) > 0 || len(v.Identifiers[KindPhone]) > 0:
		score += 15
	}

	words := float64(v.WordCount) * 3
	if words > 30 {
		words = 30
	}
	score += words

	if score > 100 {
		score = 100
	}
	return score
}

// GibberishScore combines four word-shape ratios into a 0-100 score; higher
// means less language-like.
func GibberishScore(words []string) float64 {
	if len(words) == 0 {
		return 100
	}

	var singleLetter, capsShort, irregularCase, common int
	for _, w := range words {
		if len(w) == 1 && unicode.IsLetter(rune(w[0])) {
			singleLetter++
		}
		if len(w) <= 3 && w == strings.ToUpper(w) && hasLetter(w) {
			capsShort++
		}
		if hasIrregularCasing(w) {
			irregularCase++
		}
		if commonWords[strings.ToLower(w)] {
			common++
		}
	}

	n := float64(len(words))
	score := gibberishSingleLetterWeight*(float64(singleLetter)/n) +
		gibberishCapsShortWeight*(float64(capsShort)/n) +
		gibberishIrregularCaseWeight*(float64(irregularCase)/n) +
		gibberishUncommonWeight*(1.0-float64(common)/n)

	if score > 100 {
		score = 100
	}
	return score
}

// hasIrregularCasing flags words with an uppercase letter after a lowercase
// one, e.g. "pE" or "tHe" - a typical OCR noise shape.
func hasIrregularCasing(w string) bool {
	sawLower := false
	for _, r := range w {
		if unicode.IsLower(r) {
			sawLower = true
		} else if unicode.IsUpper(r) && sawLower {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// alnumRatio is the fraction of non-space characters that are letters or
// digits.
func alnumRatio(s string) float64 {
	var alnum, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

// randomCharRatio is the fraction of non-space characters outside letters,
// digits and ordinary punctuation.
func randomCharRatio(s string) float64 {
	var random, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(".,:;!?@#/-()'\"&+", r) {
			continue
		}
		random++
	}
	if total == 0 {
		return 0
	}
	return float64(random) / float64(total)
}

func shortWordRatio(words []string) float64 {
	if len(words) == 0 {
		return 1
	}
	short := 0
	for _, w := range words {
		if len(w) <= 2 {
			short++
		}
	}
	return float64(short) / float64(len(words))
}

func avgWordLength(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	total := 0
	for _, w := range words {
		total += len(w)
	}
	return float64(total) / float64(len(words))
}

// validWordCount counts words that are at least three characters and mostly
// letters or digits.
func validWordCount(words []string) int {
	n := 0
	for _, w := range words {
		if len(w) >= 3 && alnumRatio(w) >= 0.8 {
			n++
		}
	}
	return n
}

func meanConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	var sum float64
	for _, c := range confidences {
		sum += c
	}
	return sum / float64(len(confidences))
}
