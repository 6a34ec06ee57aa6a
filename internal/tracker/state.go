package tracker

import (
	"slices"
	"time"
)

// AppState is the per-device presentation state: the selected plan day and the exercises logged in the current
// sitting. It lives in the HTTP session, never in the store.
type AppState struct {
	DayIndex          int
	LoggedOn          string
	LoggedExerciseIDs []string
}

// ForToday drops the logged exercises when they were recorded on an earlier calendar day.
func (s AppState) ForToday(now time.Time) AppState {
	today := now.UTC().Format(time.DateOnly)
	if s.LoggedOn != today {
		s.LoggedOn = today
		s.LoggedExerciseIDs = nil
	}
	return s
}

// SelectDay switches the plan day. Switching to another day starts a new sitting.
func (s AppState) SelectDay(index int) AppState {
	if index != s.DayIndex {
		s.DayIndex = index
		s.LoggedExerciseIDs = nil
	}
	return s
}

// MarkLogged records that the exercise was logged in this sitting.
func (s AppState) MarkLogged(exerciseID string) AppState {
	if !s.IsLogged(exerciseID) {
		s.LoggedExerciseIDs = append(slices.Clone(s.LoggedExerciseIDs), exerciseID)
	}
	return s
}

// IsLogged reports whether the exercise was logged in this sitting.
func (s AppState) IsLogged(exerciseID string) bool {
	return slices.Contains(s.LoggedExerciseIDs, exerciseID)
}

// ClearProgress forgets the exercises logged in this sitting.
func (s AppState) ClearProgress() AppState {
	s.LoggedExerciseIDs = nil
	return s
}
