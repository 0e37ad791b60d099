package matcher

import (
	"context"
	"fmt"

	"dnamatcher/dna"
	"dnamatcher/logging"
	"dnamatcher/types"
)

// PhotoStore is the persistence surface the service needs on top of the
// matcher's corpus view.
type PhotoStore interface {
	Corpus
	DNAByPhotoID(ctx context.Context, photoID string) (*types.VisualDNA, error)
	SaveDNA(ctx context.Context, dna *types.VisualDNA) error
}

// Service ties extraction and matching together: given a photo it ensures
// a current fingerprint exists, then runs the cascade against the
// opposite-type corpus.
type Service struct {
	Store     PhotoStore
	Extractor *dna.Extractor
	Matcher   *Matcher
}

// FindMatchesForPhoto resolves the photo's fingerprint and searches for
// matches. A stored fingerprint is reused unless it is missing, failed,
// or produced by an older algorithm version; in those cases imageBytes
// must be provided and the photo is (re)extracted and persisted first.
func (s *Service) FindMatchesForPhoto(ctx context.Context, photoID, caseID string, imageBytes []byte) (*SearchResult, error) {
	record, err := s.Store.DNAByPhotoID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("find matches for %s: %w", photoID, err)
	}

	stale := record != nil && record.AlgorithmVersion != dna.AlgorithmVersion
	unusable := record == nil || record.Status == types.StatusFailed || stale
	if unusable {
		if len(imageBytes) == 0 {
			return nil, fmt.Errorf("find matches for %s: no usable fingerprint and no image bytes", photoID)
		}
		record, err = s.extract(ctx, photoID, caseID, imageBytes)
		if err != nil {
			return nil, err
		}
	}

	return s.Matcher.FindMatches(ctx, record)
}

func (s *Service) extract(ctx context.Context, photoID, caseID string, imageBytes []byte) (*types.VisualDNA, error) {
	opts := dna.Options{PhotoID: photoID, CaseID: caseID}
	if c, err := s.Store.CaseByID(ctx, caseID); err != nil {
		return nil, fmt.Errorf("extract %s: %w", photoID, err)
	} else if c != nil {
		opts.CaseType = c.Type
		opts.Category = c.Category
	}

	record, err := s.Extractor.Extract(ctx, imageBytes, opts)
	if record != nil {
		// Failed records are persisted too, so the photo is not
		// re-extracted on every scan attempt.
		if saveErr := s.Store.SaveDNA(ctx, record); saveErr != nil {
			logging.Warn("failed to persist fingerprint", "photo", photoID, "error", saveErr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", photoID, err)
	}
	return record, nil
}
