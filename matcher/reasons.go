package matcher

import (
	"fmt"
	"sort"
	"strings"

	"dnamatcher/types"
)

// buildReasons turns dimension scores into the ranked human-readable
// explanation list. Weak signals below the display threshold are
// suppressed, but a confirmed identifier and any location boost always
// appear.
func buildReasons(s types.DimensionScores, matchedIDs []string, locationBoost float64) []types.MatchReason {
	var reasons []types.MatchReason

	if len(matchedIDs) > 0 {
		reasons = append(reasons, types.MatchReason{
			Icon:  "🔑",
			Tag:   "identifier",
			Text:  fmt.Sprintf("Identifier match: %s", strings.Join(matchedIDs, ", ")),
			Score: 100,
		})
	}
	if s.Hash >= reasonDisplayThreshold {
		reasons = append(reasons, types.MatchReason{
			Icon:  "🧬",
			Tag:   "image",
			Text:  fmt.Sprintf("Images are %.0f%% similar", s.Hash),
			Score: s.Hash,
		})
	}
	if s.Visual >= reasonDisplayThreshold {
		reasons = append(reasons, types.MatchReason{
			Icon:  "👁",
			Tag:   "visual",
			Text:  fmt.Sprintf("Visual appearance matches at %.0f%%", s.Visual),
			Score: s.Visual,
		})
	}
	if s.Color >= reasonDisplayThreshold {
		reasons = append(reasons, types.MatchReason{
			Icon:  "🎨",
			Tag:   "color",
			Text:  fmt.Sprintf("Colors match at %.0f%%", s.Color),
			Score: s.Color,
		})
	}
	if s.Shape >= reasonDisplayThreshold {
		reasons = append(reasons, types.MatchReason{
			Icon:  "📐",
			Tag:   "shape",
			Text:  fmt.Sprintf("Shape and outline match at %.0f%%", s.Shape),
			Score: s.Shape,
		})
	}
	if s.OCR >= reasonDisplayThreshold && len(matchedIDs) == 0 {
		reasons = append(reasons, types.MatchReason{
			Icon:  "🔤",
			Tag:   "text",
			Text:  fmt.Sprintf("Visible text matches at %.0f%%", s.OCR),
			Score: s.OCR,
		})
	}
	if s.Objects >= reasonDisplayThreshold {
		reasons = append(reasons, types.MatchReason{
			Icon:  "📦",
			Tag:   "objects",
			Text:  fmt.Sprintf("Detected objects overlap at %.0f%%", s.Objects),
			Score: s.Objects,
		})
	}
	if locationBoost > 0 {
		reasons = append(reasons, types.MatchReason{
			Icon:  "📍",
			Tag:   "location",
			Text:  fmt.Sprintf("Reported nearby (+%.1f)", locationBoost),
			Score: locationBoost,
		})
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		return reasons[i].Score > reasons[j].Score
	})
	return reasons
}
