package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/i18n"
	"github.com/myrjola/fitfocus/internal/metrics"
	"github.com/myrjola/fitfocus/internal/tracker"
)

const planAdapter = "plan"

// ParsePlan asks the LLM to structure the routine description into a five-day plan.
func (c *Coach) ParsePlan(ctx context.Context, input string, lang i18n.Language) (tracker.WorkoutPlan, error) {
	if strings.TrimSpace(input) == "" {
		return tracker.WorkoutPlan{}, ErrEmptyInput
	}

	start := time.Now()
	raw, err := c.completer.Complete(ctx, CompletionRequest{
		Prompt:            planPrompt(input, lang),
		Schema:            planJSONSchema{muscleGroups: tracker.MuscleGroups()},
		SchemaName:        "workout_plan",
		SchemaDescription: "A weekly training routine with exactly five workout days",
		Model:             c.model,
	})
	if err != nil {
		c.observe(planAdapter, metrics.OutcomeFailure, start)
		return tracker.WorkoutPlan{}, fmt.Errorf("complete plan: %w", err)
	}

	plan, err := decodePlan(raw)
	if err != nil {
		c.observe(planAdapter, metrics.OutcomeInvalid, start)
		c.logger.LogAttrs(ctx, slog.LevelWarn, "llm returned unusable plan", errors.SlogError(err))
		return tracker.WorkoutPlan{}, err
	}
	c.observe(planAdapter, metrics.OutcomeSuccess, start)
	return plan, nil
}

func decodePlan(raw string) (tracker.WorkoutPlan, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var plan tracker.WorkoutPlan
	if err := dec.Decode(&plan); err != nil {
		return tracker.WorkoutPlan{}, &ValidationError{Problems: []string{"decode: " + err.Error()}}
	}
	if problems := plan.Validate(); len(problems) > 0 {
		return tracker.WorkoutPlan{}, &ValidationError{Problems: problems}
	}
	return plan, nil
}

func planPrompt(input string, lang i18n.Language) string {
	groups := make([]string, 0, len(tracker.MuscleGroups()))
	for _, g := range tracker.MuscleGroups() {
		groups = append(groups, string(g))
	}
	return fmt.Sprintf(`Convert the training routine below into a structured plan with exactly %d workout days.

Rules:
- Use exactly %d days. Split or merge sessions if the routine has a different number of days.
- Keep repetition ranges exactly as written, for example "8-10" or "12". Use "10" when no reps are given.
- Classify every exercise into one of these muscle groups: %s.
- Give each day an id like "d1" and each exercise an id that is unique within its day like "d1e1".
- Write a short technique tip for every exercise.
- Set weight to a suggested starting weight in kg only when the routine states one, otherwise null.
- Write titles, exercise names and tips in %s.

Routine:
%s`, tracker.PlanDays, tracker.PlanDays, strings.Join(groups, ", "), languageName(lang), input)
}
