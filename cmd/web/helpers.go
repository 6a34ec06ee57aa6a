package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/tracker"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.render(w, r, http.StatusInternalServerError, "error", nil)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", nil)
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "encode json")
	}
	return nil
}

// parseDayIndex parses the zero-based "index" path parameter. On failure, it responds with 404.
func (app *application) parseDayIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 || index >= tracker.PlanDays {
		app.notFound(w, r)
		return 0, false
	}
	return index, true
}

// appState returns the per-session UI state normalized to today.
func (app *application) appState(r *http.Request) tracker.AppState {
	state, _ := app.sessionManager.Get(r.Context(), sessionKeyAppState).(tracker.AppState)
	return state.ForToday(app.now())
}

func (app *application) putAppState(r *http.Request, state tracker.AppState) {
	app.sessionManager.Put(r.Context(), sessionKeyAppState, state)
}
