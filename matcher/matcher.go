package matcher

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"dnamatcher/config"
	"dnamatcher/logging"
	"dnamatcher/types"
	"dnamatcher/weights"
)

// Scan verdicts reported when a search produces no matches, so callers
// can tell an empty corpus from an over-aggressive filter.
const (
	VerdictMatched           = "matched"
	VerdictNothingScanned    = "nothing_scanned"
	VerdictFilteredByHash    = "filtered_by_hash"
	VerdictFilteredByFeature = "filtered_by_feature"
	VerdictBelowThreshold    = "below_threshold"
)

// Corpus is the persistence surface the matcher searches against.
type Corpus interface {
	// ActiveDNA returns completed or partial DNA records of open cases of
	// the given type, capped at limit.
	ActiveDNA(ctx context.Context, caseType types.CaseType, limit int) ([]*types.VisualDNA, error)
	// CaseByID returns the case metadata, or nil when unknown.
	CaseByID(ctx context.Context, id string) (*types.Case, error)
}

// Outcome summarizes how a search narrowed the corpus, stage by stage.
type Outcome struct {
	Scanned time.Duration `json:"scan_duration"`
	Visited int           `json:"visited"`
	Stage1  int           `json:"stage1_survivors"`
	Stage2  int           `json:"stage2_survivors"`
	Stage3  int           `json:"stage3_survivors"`
	Verdict string        `json:"verdict"`
}

// SearchResult is the outcome of one FindMatches call.
type SearchResult struct {
	Matches []types.MatchRecord `json:"matches"`
	Outcome Outcome             `json:"outcome"`
}

// Matcher runs the three-stage cascade over a corpus.
type Matcher struct {
	corpus  Corpus
	weights *weights.Provider
	cfg     config.MatcherConfig
}

// New builds a matcher. A nil weight provider falls back to uncached
// per-pair weight computation.
func New(corpus Corpus, wp *weights.Provider, cfg config.MatcherConfig) *Matcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Matcher{corpus: corpus, weights: wp, cfg: cfg}
}

// candidate carries a corpus record through the cascade.
type candidate struct {
	dna     *types.VisualDNA
	signal  float64
	feature float64
}

// FindMatches searches the opposite-type corpus for the given source DNA
// and returns ranked match records above the minimum score. The source
// must carry at least a completed or partial fingerprint.
func (m *Matcher) FindMatches(ctx context.Context, source *types.VisualDNA) (*SearchResult, error) {
	if source == nil {
		return nil, fmt.Errorf("find matches: nil source")
	}
	if source.Status == types.StatusFailed {
		return nil, fmt.Errorf("find matches: source photo %s has no usable fingerprint", source.PhotoID)
	}

	start := time.Now()
	result := &SearchResult{}

	corpus, err := m.corpus.ActiveDNA(ctx, source.CaseType.Opposite(), m.cfg.Stage1MaxScan)
	if err != nil {
		return nil, fmt.Errorf("find matches: load corpus: %w", err)
	}
	result.Outcome.Visited = len(corpus)
	if len(corpus) == 0 {
		result.Outcome.Verdict = VerdictNothingScanned
		result.Outcome.Scanned = time.Since(start)
		return result, nil
	}

	stage1 := m.broadFilter(ctx, source, corpus)
	result.Outcome.Stage1 = len(stage1)
	if len(stage1) == 0 {
		result.Outcome.Verdict = VerdictFilteredByHash
		result.Outcome.Scanned = time.Since(start)
		return result, nil
	}

	stage2 := m.featureFilter(ctx, source, stage1)
	result.Outcome.Stage2 = len(stage2)
	if len(stage2) == 0 {
		result.Outcome.Verdict = VerdictFilteredByFeature
		result.Outcome.Scanned = time.Since(start)
		return result, nil
	}

	matches, err := m.deepVerify(ctx, source, stage2)
	if err != nil {
		return nil, err
	}
	result.Outcome.Stage3 = len(matches)
	result.Matches = matches
	if len(matches) == 0 {
		result.Outcome.Verdict = VerdictBelowThreshold
	} else {
		result.Outcome.Verdict = VerdictMatched
	}
	result.Outcome.Scanned = time.Since(start)

	logging.Debug("cascade complete",
		"photo", source.PhotoID,
		"visited", result.Outcome.Visited,
		"stage1", result.Outcome.Stage1,
		"stage2", result.Outcome.Stage2,
		"stage3", result.Outcome.Stage3,
		"verdict", result.Outcome.Verdict)
	return result, nil
}

// forEach fans the candidates out over the worker pool, collecting the
// non-nil results. Order of the output is not defined; callers sort.
func (m *Matcher) forEach(ctx context.Context, in []*candidate, fn func(*candidate) *candidate) []*candidate {
	var wg sync.WaitGroup
	sem := make(chan struct{}, m.cfg.Workers)
	var mu sync.Mutex
	var out []*candidate

	for _, c := range in {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c *candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			defer logging.Recover("matcher candidate " + c.dna.PhotoID)
			if r := fn(c); r != nil {
				mu.Lock()
				out = append(out, r)
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return out
}

// deepVerify is stage 3: full weighted comparison of every surviving
// candidate, plus the location boost, with results ranked and truncated
// to the configured top N.
func (m *Matcher) deepVerify(ctx context.Context, source *types.VisualDNA, cands []*candidate) ([]types.MatchRecord, error) {
	sourceCase, err := m.corpus.CaseByID(ctx, source.CaseID)
	if err != nil {
		return nil, fmt.Errorf("deep verify: source case %s: %w", source.CaseID, err)
	}

	// Case lookups are cached per search; many candidates share a case.
	var caseMu sync.Mutex
	caseCache := map[string]*types.Case{}
	caseFor := func(id string) *types.Case {
		caseMu.Lock()
		defer caseMu.Unlock()
		if c, ok := caseCache[id]; ok {
			return c
		}
		c, err := m.corpus.CaseByID(ctx, id)
		if err != nil {
			logging.Warn("case lookup failed during verification", "case", id, "error", err)
			c = nil
		}
		caseCache[id] = c
		return c
	}

	category := categoryFor(source)
	now := time.Now().UTC()

	var recMu sync.Mutex
	var records []types.MatchRecord
	m.forEach(ctx, cands, func(c *candidate) *candidate {
		wv := m.pairWeights(source, c.dna, category)
		cmp := CompareDNA(source, c.dna, &wv)

		boost, _, ok := LocationBoost(sourceCase, caseFor(c.dna.CaseID), m.cfg.LocationBoostMax, m.cfg.DefaultSearchRadiusKM)
		if ok && boost > 0 {
			cmp.Scores.Location = boost
			cmp.Overall = math.Min(100, cmp.Overall+boost)
			cmp.Reasons = buildReasons(cmp.Scores, cmp.MatchedIdentifiers, boost)
		}

		if cmp.Overall < m.cfg.MinMatchScore {
			return nil
		}

		recMu.Lock()
		records = append(records, types.MatchRecord{
			ID:                 uuid.NewString(),
			SourcePhotoID:      source.PhotoID,
			TargetPhotoID:      c.dna.PhotoID,
			SourceCaseID:       source.CaseID,
			TargetCaseID:       c.dna.CaseID,
			Scores:             cmp.Scores,
			Overall:            cmp.Overall,
			MatchType:          cmp.MatchType,
			Reasons:            cmp.Reasons,
			MatchedIdentifiers: cmp.MatchedIdentifiers,
			Weights:            cmp.Weights,
			Feedback:           types.FeedbackPending,
			CreatedAt:          now,
		})
		recMu.Unlock()
		return nil
	})

	sortMatches(records)
	if len(records) > m.cfg.TopN {
		records = records[:m.cfg.TopN]
	}
	return records, nil
}

// pairWeights resolves the weight vector for a specific pair: the cached
// category table adapted by the pair's availability flags.
func (m *Matcher) pairWeights(source, target *types.VisualDNA, category string) types.WeightVector {
	f := PairFeatures(source, target)
	if m.weights != nil {
		return weights.ComputeFrom(m.weights.Table(category), f)
	}
	return weights.Compute(f, category)
}
