package coach

import (
	"encoding/json"

	"github.com/myrjola/fitfocus/internal/tracker"
)

// planJSONSchema describes tracker.WorkoutPlan for structured outputs. Strict mode requires every property to be
// listed as required, so the optional weight is expressed as a nullable number.
type planJSONSchema struct {
	muscleGroups []tracker.MuscleGroup
}

func (s planJSONSchema) MarshalJSON() ([]byte, error) {
	exercise := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string", "description": "Identifier unique within the day, e.g. d1e1"},
			"name": map[string]any{"type": "string"},
			"muscleGroup": map[string]any{
				"type": "string",
				"enum": s.muscleGroups,
			},
			"sets": map[string]any{"type": "integer", "minimum": 1},
			"reps": map[string]any{
				"type":        "string",
				"description": `Repetitions as written by the user, either "10" or a range like "8-10"`,
			},
			"tips": map[string]any{"type": "string", "description": "One or two sentences of technique advice"},
			"weight": map[string]any{
				"type":        []string{"number", "null"},
				"description": "Suggested starting weight in kg, null when unknown",
			},
		},
		"required":             []string{"id", "name", "muscleGroup", "sets", "reps", "tips", "weight"},
		"additionalProperties": false,
	}
	day := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string"},
			"title": map[string]any{"type": "string"},
			"exercises": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    exercise,
			},
		},
		"required":             []string{"id", "title", "exercises"},
		"additionalProperties": false,
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"days": map[string]any{
				"type":     "array",
				"minItems": tracker.PlanDays,
				"maxItems": tracker.PlanDays,
				"items":    day,
			},
		},
		"required":             []string{"days"},
		"additionalProperties": false,
	}
	return json.Marshal(schema)
}
