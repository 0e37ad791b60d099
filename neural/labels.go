package neural

import (
	"sort"
	"strings"

	"dnamatcher/types"
)

// labelEntity maps zero-shot classifier labels onto the coarse entity types
// the weighting engine understands. Labels absent from the table count as
// generic items.
var labelEntity = map[string]types.EntityType{
	"person":        types.EntityPerson,
	"face":          types.EntityPerson,
	"man":           types.EntityPerson,
	"woman":         types.EntityPerson,
	"child":         types.EntityPerson,
	"dog":           types.EntityPet,
	"cat":           types.EntityPet,
	"bird":          types.EntityPet,
	"rabbit":        types.EntityPet,
	"pet":           types.EntityPet,
	"car":           types.EntityVehicle,
	"truck":         types.EntityVehicle,
	"motorcycle":    types.EntityVehicle,
	"bicycle":       types.EntityVehicle,
	"scooter":       types.EntityVehicle,
	"vehicle":       types.EntityVehicle,
	"license plate": types.EntityVehicle,
	"passport":      types.EntityDocument,
	"id card":       types.EntityDocument,
	"document":      types.EntityDocument,
	"card":          types.EntityDocument,
	"book":          types.EntityDocument,
}

// scoredLabel pairs a classifier label with its confidence.
type scoredLabel struct {
	label string
	score float64
}

// classifyEntity folds per-label classifier scores into one entity type with
// a confidence, plus the top raw labels for detected-object matching.
func classifyEntity(labels []string, scores []float32) (types.EntityType, float64, []string) {
	n := len(labels)
	if len(scores) < n {
		n = len(scores)
	}
	if n == 0 {
		return types.EntityUnknown, 0, nil
	}

	ranked := make([]scoredLabel, 0, n)
	entityScores := make(map[types.EntityType]float64)
	for i := 0; i < n; i++ {
		s := float64(scores[i])
		ranked = append(ranked, scoredLabel{labels[i], s})

		entity := types.EntityItem
		if e, ok := labelEntity[strings.ToLower(labels[i])]; ok {
			entity = e
		}
		if s > entityScores[entity] {
			entityScores[entity] = s
		}
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	best := types.EntityUnknown
	bestScore := 0.0
	for entity, score := range entityScores {
		if score > bestScore {
			best = entity
			bestScore = score
		}
	}

	const maxLabels = 5
	top := make([]string, 0, maxLabels)
	for _, r := range ranked {
		if len(top) == maxLabels || r.score < 0.1 {
			break
		}
		top = append(top, strings.ToLower(r.label))
	}

	return best, bestScore, top
}
