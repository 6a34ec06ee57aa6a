package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/tracker"
)

const sessionKeyRecordExercise = "record_exercise"

type dayTab struct {
	Index    int
	Title    string
	Selected bool
}

type exerciseView struct {
	tracker.Exercise
	Logged bool
	// LastWeight is the weight of the most recent entry. HasLast is false without history.
	LastWeight float64
	HasLast    bool
	Best       float64
	// SuggestedWeight prefills the log form: the last weight, else the plan's hint.
	SuggestedWeight float64
	SuggestedReps   int
	NewRecord       bool
}

type workoutTemplateData struct {
	DayIndex    int
	Day         tracker.WorkoutDay
	Days        []dayTab
	Exercises   []exerciseView
	LoggedCount int
	// RecordExercise names the exercise whose last logged set beat its previous best.
	RecordExercise string
}

// ProgressPercent is the share of the day's exercises logged in this sitting.
func (d workoutTemplateData) ProgressPercent() int {
	if len(d.Exercises) == 0 {
		return 0
	}
	return d.LoggedCount * 100 / len(d.Exercises) //nolint:mnd // percent.
}

func dayPath(index int) string {
	return fmt.Sprintf("/workout/days/%d", index)
}

// workoutGET sends the user to the selected day.
func (app *application) workoutGET(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, dayPath(app.appState(r).DayIndex))
}

func (app *application) workoutDayGET(w http.ResponseWriter, r *http.Request) {
	index, ok := app.parseDayIndex(w, r)
	if !ok {
		return
	}
	snapshot, err := app.tracker.Snapshot(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if snapshot.Plan == nil {
		redirect(w, r, "/")
		return
	}
	day, ok := snapshot.Plan.Day(index)
	if !ok {
		app.notFound(w, r)
		return
	}

	state := app.appState(r).SelectDay(index)
	app.putAppState(r, state)

	data := workoutTemplateData{
		DayIndex:       index,
		Day:            day,
		Days:           make([]dayTab, 0, len(snapshot.Plan.Days)),
		Exercises:      make([]exerciseView, 0, len(day.Exercises)),
		LoggedCount:    0,
		RecordExercise: app.sessionManager.PopString(r.Context(), sessionKeyRecordExercise),
	}
	for i, d := range snapshot.Plan.Days {
		data.Days = append(data.Days, dayTab{Index: i, Title: d.Title, Selected: i == index})
	}
	for _, e := range day.Exercises {
		view := exerciseView{
			Exercise:        e,
			Logged:          state.IsLogged(e.ID),
			LastWeight:      0,
			HasLast:         false,
			Best:            tracker.PersonalBest(snapshot.Logs, e.ID),
			SuggestedWeight: 0,
			SuggestedReps:   e.DefaultReps(),
			NewRecord:       false,
		}
		view.LastWeight, view.HasLast = tracker.LastWeight(snapshot.Logs, e.ID)
		switch {
		case view.HasLast:
			view.SuggestedWeight = view.LastWeight
		case e.Weight != nil:
			view.SuggestedWeight = *e.Weight
		}
		if view.SuggestedReps == 0 {
			view.SuggestedReps = 1
		}
		if view.Logged {
			data.LoggedCount++
			view.NewRecord = tracker.IsNewPersonalRecord(snapshot.Logs, e.ID)
		}
		data.Exercises = append(data.Exercises, view)
	}

	app.render(w, r, http.StatusOK, "workout", data)
}

// exerciseLogPOST appends one completed set of the exercise to the history.
func (app *application) exerciseLogPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := app.parseDayIndex(w, r)
	if !ok {
		return
	}
	exerciseID := r.PathValue("exerciseID")

	weight, err := strconv.ParseFloat(strings.ReplaceAll(r.PostFormValue("weight"), ",", "."), 64)
	if err != nil {
		http.Error(w, "invalid weight", http.StatusUnprocessableEntity)
		return
	}
	reps, err := strconv.Atoi(r.PostFormValue("reps"))
	if err != nil {
		http.Error(w, "invalid reps", http.StatusUnprocessableEntity)
		return
	}

	logged, err := app.tracker.LogExercise(ctx, index, exerciseID, weight, reps)
	switch {
	case err == nil:
	case errors.Is(err, tracker.ErrNoPlan):
		redirect(w, r, "/")
		return
	case errors.Is(err, tracker.ErrExerciseNotFound):
		app.notFound(w, r)
		return
	case errors.Is(err, tracker.ErrInvalidEntry):
		http.Error(w, "weight must not be negative and reps must be positive", http.StatusUnprocessableEntity)
		return
	default:
		app.serverError(w, r, err)
		return
	}

	if logged.PersonalRecord {
		app.logger.LogAttrs(ctx, slog.LevelInfo, "personal record",
			slog.String("exercise_id", logged.Entry.ExerciseID), slog.Float64("weight", logged.Entry.Weight))
		app.sessionManager.Put(ctx, sessionKeyRecordExercise, logged.Entry.ExerciseName)
	}
	app.putAppState(r, app.appState(r).SelectDay(index).MarkLogged(exerciseID))
	redirect(w, r, dayPath(index)+"#exercise-"+exerciseID)
}

// progressClearPOST forgets which exercises were logged in this sitting. The history is kept.
func (app *application) progressClearPOST(w http.ResponseWriter, r *http.Request) {
	state := app.appState(r).ClearProgress()
	app.putAppState(r, state)
	redirect(w, r, dayPath(state.DayIndex))
}
