package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/fitfocus/internal/coach"
	"github.com/myrjola/fitfocus/internal/contexthelpers"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/tracker"
)

// maxRoutineLength bounds the routine description sent to the LLM.
const maxRoutineLength = 20_000

type homeTemplateData struct {
	Routine string
	// ErrorKey is the translation key of the alert shown above the form.
	ErrorKey string
	LogCount int
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.tracker.Snapshot(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if snapshot.Plan != nil {
		redirect(w, r, "/workout")
		return
	}
	app.render(w, r, http.StatusOK, "home", homeTemplateData{
		Routine:  "",
		ErrorKey: "",
		LogCount: len(snapshot.Logs),
	})
}

// planPOST turns the routine description into the active plan.
func (app *application) planPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	routine := r.PostFormValue("routine")
	if len(routine) > maxRoutineLength {
		app.renderSetupError(w, r, http.StatusUnprocessableEntity, routine, "setup.error.tooLong")
		return
	}

	_, err := app.tracker.CreatePlan(ctx, routine, contexthelpers.Language(ctx))
	switch {
	case err == nil:
		app.putAppState(r, tracker.AppState{}.ForToday(app.now()))
		redirect(w, r, "/workout")
	case errors.Is(err, coach.ErrEmptyInput):
		app.renderSetupError(w, r, http.StatusUnprocessableEntity, routine, "setup.error.empty")
	case errors.Is(err, coach.ErrRemoteService):
		app.logger.LogAttrs(ctx, slog.LevelWarn, "plan ingestion failed", errors.SlogError(err))
		app.renderSetupError(w, r, http.StatusBadGateway, routine, "setup.error.remote")
	default:
		app.serverError(w, r, err)
	}
}

// renderSetupError shows the setup form again with the submitted routine and an alert.
func (app *application) renderSetupError(w http.ResponseWriter, r *http.Request, status int, routine, errorKey string) {
	snapshot, err := app.tracker.Snapshot(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, status, "home", homeTemplateData{
		Routine:  routine,
		ErrorKey: errorKey,
		LogCount: len(snapshot.Logs),
	})
}
