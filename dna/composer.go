package dna

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"dnamatcher/features"
	"dnamatcher/hashcodec"
	"dnamatcher/imaging"
	"dnamatcher/logging"
	"dnamatcher/neural"
	"dnamatcher/ocrid"
	"dnamatcher/types"
)

// AlgorithmVersion is stamped into every record; a version change triggers
// reprocessing of stored fingerprints.
const AlgorithmVersion = "2.1.0"

// OCREngine is the external text recognition collaborator. It returns the
// raw recognized text with one confidence (0-100) per word; validation and
// structuring happen here, not in the engine.
type OCREngine interface {
	Recognize(ctx context.Context, imageBytes []byte) (text string, wordConfidences []float64, err error)
}

// Options carries per-photo extraction context.
type Options struct {
	PhotoID  string
	CaseID   string
	CaseType types.CaseType
	Category string
	// SourcePath, when set, lets the extractor probe the original file's
	// EXIF for true dimensions and orientation.
	SourcePath string
}

// Extractor composes the four fingerprint sub-extractions into a VisualDNA
// record. OCR and Neural may be nil; the corresponding fields stay empty
// and the record degrades to partial only on real failures.
type Extractor struct {
	Decoder *imaging.DecoderRegistry
	Neural  *neural.Provider
	OCR     OCREngine
}

// NewExtractor builds an extractor with the default decoder chain.
func NewExtractor(neuralProvider *neural.Provider, ocrEngine OCREngine) *Extractor {
	return &Extractor{
		Decoder: imaging.NewDecoderRegistry(),
		Neural:  neuralProvider,
		OCR:     ocrEngine,
	}
}

// extractionState collects sub-extractor outputs and failures; each slot is
// written by exactly one goroutine.
type extractionState struct {
	avgHash, diffHash, percHash, blockHash string
	hashErr                                error

	color   *types.ColorFeatures
	shape   *types.ShapeFeatures
	texture *types.TextureFeatures
	quality features.Quality
	featErr error

	ocr    *types.OCRFeatures
	ocrErr error

	embedding *neural.EmbeddingResult
	neuralErr error
}

// Extract decodes the image and runs hashing, color/shape/texture, OCR and
// neural embedding concurrently, folding the outputs into one versioned
// record. A sub-extractor failure nulls its fields and marks the record
// partial; only an undecodable image (or every extractor failing) yields a
// failed record, which is still returned alongside the error.
func (e *Extractor) Extract(ctx context.Context, imageBytes []byte, opts Options) (*types.VisualDNA, error) {
	now := time.Now()
	record := &types.VisualDNA{
		PhotoID:          opts.PhotoID,
		CaseID:           opts.CaseID,
		CaseType:         opts.CaseType,
		Category:         opts.Category,
		EntityType:       types.EntityUnknown,
		Status:           types.StatusProcessing,
		AlgorithmVersion: AlgorithmVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	decoded, err := e.Decoder.Decode(imageBytes)
	if err != nil {
		record.Status = types.StatusFailed
		record.ErrorReason = err.Error()
		return record, fmt.Errorf("extract fingerprint: %w", err)
	}

	record.Width = decoded.OrigWidth
	record.Height = decoded.OrigHeight
	if opts.SourcePath != "" {
		if meta, err := imaging.ProbeFile(opts.SourcePath); err == nil && meta.Width > 0 && meta.Height > 0 {
			record.Width = meta.Width
			record.Height = meta.Height
		}
	}

	state := &extractionState{}
	var wg sync.WaitGroup

	runIsolated(&wg, "hash", func() {
		var errs []error
		if h, err := hashcodec.ComputeAverageHash(decoded.Gray); err == nil {
			state.avgHash = h
		} else {
			errs = append(errs, err)
		}
		if h, err := hashcodec.ComputeDifferenceHash(decoded.Gray); err == nil {
			state.diffHash = h
		} else {
			errs = append(errs, err)
		}
		if h, err := hashcodec.ComputePerceptualHash(decoded.Gray); err == nil {
			state.percHash = h
		} else {
			errs = append(errs, err)
		}
		if h, err := hashcodec.ComputeBlockHash(decoded.Gray); err == nil {
			state.blockHash = h
		} else {
			errs = append(errs, err)
		}
		if len(errs) == 4 {
			state.hashErr = fmt.Errorf("all hash algorithms failed: %v", errs[0])
		}
	}, func(err error) { state.hashErr = err })

	runIsolated(&wg, "features", func() {
		state.color = features.ExtractColor(decoded.RGB)
		state.shape = features.ExtractShape(decoded.Gray, record.Width, record.Height)
		state.texture = features.ExtractTexture(decoded.Gray)
		state.quality = features.AssessQuality(decoded.Gray, state.shape, record.Width, record.Height)
	}, func(err error) { state.featErr = err })

	runIsolated(&wg, "ocr", func() {
		if e.OCR == nil {
			return
		}
		text, confidences, err := e.OCR.Recognize(ctx, imageBytes)
		if err != nil {
			state.ocrErr = fmt.Errorf("ocr engine: %w", err)
			return
		}
		// Garbage text is intentional absence, not an error; Extract
		// returns a zero-score block with nil text in that case.
		state.ocr = ocrid.Extract(text, confidences)
	}, func(err error) { state.ocrErr = err })

	runIsolated(&wg, "neural", func() {
		if e.Neural == nil {
			return
		}
		result, err := e.Neural.Process(decoded.RGB)
		if err != nil {
			// Model unavailable degrades the record, it never fails it.
			state.neuralErr = err
			return
		}
		state.embedding = result
	}, func(err error) { state.neuralErr = err })

	wg.Wait()

	e.compose(record, state)
	return record, nil
}

// compose folds the extraction state into the record and derives status,
// entity type, quality and the DNA id.
func (e *Extractor) compose(record *types.VisualDNA, state *extractionState) {
	record.AverageHash = state.avgHash
	record.DifferenceHash = state.diffHash
	record.PerceptualHash = state.percHash
	record.BlockHash = state.blockHash
	record.Color = state.color
	record.Shape = state.shape
	record.Texture = state.texture
	record.OCR = state.ocr

	if state.embedding != nil {
		record.Embedding = state.embedding.Embedding
		record.EmbeddingHash = state.embedding.EmbeddingHash
		record.Labels = state.embedding.Labels
		if state.embedding.EntityType != types.EntityUnknown {
			record.EntityType = state.embedding.EntityType
			record.EntityConfidence = state.embedding.EntityConfidence
		}
	}

	if record.EntityType == types.EntityUnknown || record.EntityConfidence < minEntityConfidence {
		record.EntityType, record.EntityConfidence = fallbackEntityType(record.OCR)
	}

	record.QualityScore = state.quality.Score
	record.QualityTier = state.quality.Tier
	record.BlurLevel = state.quality.BlurLevel
	record.Blurry = state.quality.Blurry

	failures := 0
	total := 2 // hash and feature extraction always run
	if state.hashErr != nil {
		failures++
		logging.Warn("hash extraction failed", "photo", record.PhotoID, "error", state.hashErr)
	}
	if state.featErr != nil {
		failures++
		logging.Warn("feature extraction failed", "photo", record.PhotoID, "error", state.featErr)
	}
	if e.OCR != nil {
		total++
		if state.ocrErr != nil {
			failures++
			logging.Warn("ocr extraction failed", "photo", record.PhotoID, "error", state.ocrErr)
		}
	}
	if e.Neural != nil {
		total++
		if state.neuralErr != nil {
			failures++
			logging.Debug("neural extraction unavailable", "photo", record.PhotoID, "error", state.neuralErr)
		}
	}

	switch {
	case failures == 0:
		record.Status = types.StatusCompleted
	case failures < total:
		record.Status = types.StatusPartial
	default:
		record.Status = types.StatusFailed
		record.ErrorReason = "all fingerprint extractors failed"
	}

	record.DNAID = ComposeID(record)
	record.UpdatedAt = time.Now()
}

// runIsolated launches fn on the wait group with panic containment so one
// extractor blowing up never cancels its siblings.
func runIsolated(wg *sync.WaitGroup, name string, fn func(), onPanic func(error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				onPanic(fmt.Errorf("panic in %s extractor: %v\n%s", name, r, debug.Stack()))
			}
		}()
		fn()
	}()
}
