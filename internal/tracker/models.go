package tracker

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"
)

// PlanDays is the number of training days in every plan.
const PlanDays = 5

// MuscleGroup is the coarse body region an exercise targets.
type MuscleGroup string

const (
	MuscleGroupChest     MuscleGroup = "Chest"
	MuscleGroupBack      MuscleGroup = "Back"
	MuscleGroupLegs      MuscleGroup = "Legs"
	MuscleGroupShoulders MuscleGroup = "Shoulders"
	MuscleGroupArms      MuscleGroup = "Arms"
	MuscleGroupCore      MuscleGroup = "Core"
	MuscleGroupGeneral   MuscleGroup = "General"
)

// MuscleGroups returns the closed set of muscle groups in display order.
func MuscleGroups() []MuscleGroup {
	return []MuscleGroup{
		MuscleGroupChest,
		MuscleGroupBack,
		MuscleGroupLegs,
		MuscleGroupShoulders,
		MuscleGroupArms,
		MuscleGroupCore,
		MuscleGroupGeneral,
	}
}

// Valid reports whether m is one of MuscleGroups.
func (m MuscleGroup) Valid() bool {
	return slices.Contains(MuscleGroups(), m)
}

// Exercise is a prescribed movement within a workout day.
type Exercise struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	MuscleGroup MuscleGroup `json:"muscleGroup"`
	Sets        int         `json:"sets"`
	// Reps is either a single count "10" or an inclusive range "8-10", kept exactly as written.
	Reps string `json:"reps"`
	Tips string `json:"tips"`
	// Weight is an optional starting weight hint in kilograms.
	Weight *float64 `json:"weight,omitempty"`
}

var repsPattern = regexp.MustCompile(`^\s*(\d+)\s*(?:-\s*(\d+)\s*)?$`)

// RepRange parses Reps into its inclusive bounds. A single count yields low == high.
func (e Exercise) RepRange() (low, high int, ok bool) {
	m := repsPattern.FindStringSubmatch(e.Reps)
	if m == nil {
		return 0, 0, false
	}
	var err error
	if low, err = strconv.Atoi(m[1]); err != nil {
		return 0, 0, false
	}
	high = low
	if m[2] != "" {
		if high, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, false
		}
	}
	if low > high {
		return 0, 0, false
	}
	return low, high, true
}

// DefaultReps is the value suggested in the log form, the low end of the prescribed range.
func (e Exercise) DefaultReps() int {
	low, _, ok := e.RepRange()
	if !ok {
		return 0
	}
	return low
}

// WorkoutDay is one training session in a plan.
type WorkoutDay struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise looks up an exercise of the day by id.
func (d WorkoutDay) Exercise(id string) (Exercise, bool) {
	for _, e := range d.Exercises {
		if e.ID == id {
			return e, true
		}
	}
	return Exercise{}, false
}

// WorkoutPlan is the user's weekly routine.
type WorkoutPlan struct {
	Days []WorkoutDay `json:"days"`
}

// Day returns the day at the zero-based index.
func (p WorkoutPlan) Day(index int) (WorkoutDay, bool) {
	if index < 0 || index >= len(p.Days) {
		return WorkoutDay{}, false
	}
	return p.Days[index], true
}

// Validate returns a human-readable description of every structural problem in the plan.
func (p WorkoutPlan) Validate() []string {
	var problems []string
	if len(p.Days) != PlanDays {
		problems = append(problems, fmt.Sprintf("plan has %d days, want %d", len(p.Days), PlanDays))
	}
	for i, d := range p.Days {
		prefix := fmt.Sprintf("days[%d]", i)
		if d.ID == "" {
			problems = append(problems, prefix+": missing id")
		}
		if d.Title == "" {
			problems = append(problems, prefix+": missing title")
		}
		if len(d.Exercises) == 0 {
			problems = append(problems, prefix+": no exercises")
		}
		seen := make(map[string]bool, len(d.Exercises))
		for j, e := range d.Exercises {
			problems = append(problems, e.validate(fmt.Sprintf("%s.exercises[%d]", prefix, j))...)
			if e.ID != "" && seen[e.ID] {
				problems = append(problems, fmt.Sprintf("%s.exercises[%d]: duplicate id %q", prefix, j, e.ID))
			}
			seen[e.ID] = true
		}
	}
	return problems
}

func (e Exercise) validate(prefix string) []string {
	var problems []string
	if e.ID == "" {
		problems = append(problems, prefix+": missing id")
	}
	if e.Name == "" {
		problems = append(problems, prefix+": missing name")
	}
	if !e.MuscleGroup.Valid() {
		problems = append(problems, fmt.Sprintf("%s: unknown muscle group %q", prefix, e.MuscleGroup))
	}
	if e.Sets < 1 {
		problems = append(problems, fmt.Sprintf("%s: sets must be positive, got %d", prefix, e.Sets))
	}
	if _, _, ok := e.RepRange(); !ok {
		problems = append(problems, fmt.Sprintf("%s: reps %q is neither a count nor a low-high range", prefix, e.Reps))
	}
	if e.Weight != nil && *e.Weight < 0 {
		problems = append(problems, fmt.Sprintf("%s: negative weight hint", prefix))
	}
	return problems
}

// LogEntry is one performed set.
//
// ExerciseID is a weak reference, the entry stays meaningful after the plan is replaced because name and muscle
// group are copied in.
type LogEntry struct {
	Date          time.Time   `json:"date"`
	ExerciseID    string      `json:"exerciseId"`
	ExerciseName  string      `json:"exerciseName"`
	MuscleGroup   MuscleGroup `json:"muscleGroup"`
	SetsCompleted int         `json:"setsCompleted"`
	RepsCompleted int         `json:"repsCompleted"`
	Weight        float64     `json:"weight"`
}

// Volume is weight × reps of the entry.
func (e LogEntry) Volume() float64 {
	return e.Weight * float64(e.RepsCompleted)
}

// Day is the UTC calendar day of the entry formatted as YYYY-MM-DD.
func (e LogEntry) Day() string {
	return e.Date.UTC().Format(time.DateOnly)
}

// Validate returns the problems that make the entry unusable for aggregation.
func (e LogEntry) Validate() []string {
	var problems []string
	if e.Date.IsZero() {
		problems = append(problems, "missing date")
	}
	if e.ExerciseID == "" {
		problems = append(problems, "missing exercise id")
	}
	if e.Weight < 0 {
		problems = append(problems, "negative weight")
	}
	if e.RepsCompleted < 0 || e.SetsCompleted < 0 {
		problems = append(problems, "negative sets or reps")
	}
	return problems
}

// Snapshot is everything stored for a device.
type Snapshot struct {
	// Plan is nil until the user has created one.
	Plan *WorkoutPlan
	// Logs are in append order, never nil.
	Logs []LogEntry
}
