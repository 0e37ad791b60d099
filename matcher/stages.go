package matcher

import (
	"context"
	"sort"

	"dnamatcher/hashcodec"
	"dnamatcher/neural"
	"dnamatcher/types"
)

// broadFilter is stage 1: a cheap scan that keeps any candidate sharing
// at least one broad signal with the source. Signals are additive so the
// survivor list can be ranked before capping.
func (m *Matcher) broadFilter(ctx context.Context, source *types.VisualDNA, corpus []*types.VisualDNA) []*candidate {
	in := make([]*candidate, 0, len(corpus))
	for _, dna := range corpus {
		if dna.PhotoID == source.PhotoID {
			continue
		}
		in = append(in, &candidate{dna: dna})
	}

	out := m.forEach(ctx, in, func(c *candidate) *candidate {
		s := m.broadSignal(source, c.dna)
		if s <= 0 {
			return nil
		}
		c.signal = s
		return c
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].signal != out[j].signal {
			return out[i].signal > out[j].signal
		}
		return out[i].dna.PhotoID < out[j].dna.PhotoID
	})
	if len(out) > m.cfg.Stage1MaxCandidates {
		out = out[:m.cfg.Stage1MaxCandidates]
	}
	return out
}

// broadSignal accumulates the lenient stage-1 signals: a loose Hamming
// pass on any hash pair, entity agreement, shared labels or dominant
// colors, and same case category.
func (m *Matcher) broadSignal(source, target *types.VisualDNA) float64 {
	var signal float64

	pairs := [][2]string{
		{source.PerceptualHash, target.PerceptualHash},
		{source.DifferenceHash, target.DifferenceHash},
		{source.AverageHash, target.AverageHash},
		{source.BlockHash, target.BlockHash},
	}
	for _, p := range pairs {
		d, err := hashcodec.HammingDistance(p[0], p[1])
		if err != nil {
			continue
		}
		if d <= m.cfg.Stage1HashMaxDistance {
			signal += float64(m.cfg.Stage1HashMaxDistance - d)
		}
	}

	if source.EntityType != types.EntityUnknown && source.EntityType == target.EntityType {
		signal += stage1EntityBonus
	}
	if sharedLabel(source.Labels, target.Labels) {
		signal += stage1LabelBonus
	}
	if sharedDominant(source.Color, target.Color) >= stage1SharedColors {
		signal += stage1ColorBonus
	}
	if source.Category != "" && source.Category == target.Category {
		signal += stage1CategoryBonus
	}
	return signal
}

// featureFilter is stage 2: a blended similarity over embeddings, color
// histograms and the strict hash blend, keeping candidates above the
// configured floor and capping the survivor list.
func (m *Matcher) featureFilter(ctx context.Context, source *types.VisualDNA, cands []*candidate) []*candidate {
	out := m.forEach(ctx, cands, func(c *candidate) *candidate {
		sim := featureBlend(source, c.dna)
		if sim < m.cfg.Stage2MinSimilarity {
			return nil
		}
		c.feature = sim
		return c
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].feature != out[j].feature {
			return out[i].feature > out[j].feature
		}
		return out[i].dna.PhotoID < out[j].dna.PhotoID
	})
	if len(out) > m.cfg.Stage2MaxCandidates {
		out = out[:m.cfg.Stage2MaxCandidates]
	}
	return out
}

// featureBlend computes the stage-2 similarity. When both sides carry an
// embedding it dominates the blend; otherwise the blend renormalizes over
// color and hash. Dimensions neither side can score drop out entirely.
func featureBlend(source, target *types.VisualDNA) float64 {
	type part struct {
		score, weight float64
	}
	var parts []part

	hasEmbed := len(source.Embedding) > 0 && len(target.Embedding) > 0
	if hasEmbed {
		sim := neural.CosineSimilarity(source.Embedding, target.Embedding)
		if sim < 0 {
			sim = 0
		}
		parts = append(parts, part{sim * 100, stage2EmbeddingWeight})
	}

	colorW := stage2ColorWeight
	hashW := stage2HashWeight
	if !hasEmbed {
		colorW = stage2ColorWeightNoEmbed
		hashW = stage2HashWeightNoEmbed
	}
	if c := colorScore(source, target); c >= 0 {
		parts = append(parts, part{c, colorW})
	}
	if h := hashScore(source, target); h >= 0 {
		parts = append(parts, part{h, hashW})
	}

	var sum, wsum float64
	for _, p := range parts {
		sum += p.score * p.weight
		wsum += p.weight
	}
	if wsum <= 0 {
		return 0
	}
	return sum / wsum
}

func sharedLabel(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if set[l] {
			return true
		}
	}
	return false
}

func sharedDominant(a, b *types.ColorFeatures) int {
	if a == nil || b == nil {
		return 0
	}
	set := make(map[string]bool, len(a.Dominant))
	for _, c := range a.Dominant {
		set[c.Name] = true
	}
	var n int
	for _, c := range b.Dominant {
		if set[c.Name] {
			n++
		}
	}
	return n
}
