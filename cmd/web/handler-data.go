package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/tracker"
)

const (
	sessionKeyImportedLogs = "imported_logs"
	maxUploadSize          = 8 << 20
)

type dataTemplateData struct {
	// Imported is the number of sets added by the previous import, -1 when nothing was imported.
	Imported int
	ErrorKey string
}

func (app *application) dataGET(w http.ResponseWriter, r *http.Request) {
	imported := -1
	if app.sessionManager.Exists(r.Context(), sessionKeyImportedLogs) {
		imported = app.sessionManager.PopInt(r.Context(), sessionKeyImportedLogs)
	}
	app.render(w, r, http.StatusOK, "data", dataTemplateData{Imported: imported, ErrorKey: ""})
}

// exportGET downloads the plan and history as a JSON backup.
func (app *application) exportGET(w http.ResponseWriter, r *http.Request) {
	backup, err := app.tracker.Export(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	filename := fmt.Sprintf("fitfocus-backup-%s.json", backup.ExportedAt.Format(time.DateOnly))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err = writeJSON(w, http.StatusOK, backup); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "write backup", errors.SlogError(err))
	}
}

// importPOST merges an uploaded backup into the device's data.
func (app *application) importPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("backup")
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "read backup upload", errors.SlogError(err))
		app.render(w, r, http.StatusUnprocessableEntity, "data",
			dataTemplateData{Imported: -1, ErrorKey: "data.import.error"})
		return
	}
	defer func() { _ = file.Close() }()

	result, err := app.tracker.Import(ctx, file)
	switch {
	case err == nil:
	case errors.Is(err, tracker.ErrInvalidBackup):
		app.logger.LogAttrs(ctx, slog.LevelWarn, "rejected backup", errors.SlogError(err))
		app.render(w, r, http.StatusUnprocessableEntity, "data",
			dataTemplateData{Imported: -1, ErrorKey: "data.import.error"})
		return
	default:
		app.serverError(w, r, err)
		return
	}

	if result.PlanReplaced {
		app.putAppState(r, tracker.AppState{}.ForToday(app.now()))
	}
	app.sessionManager.Put(ctx, sessionKeyImportedLogs, result.LogsAdded)
	redirect(w, r, "/data")
}

// resetPOST deletes the plan, the history and the UI state of the device.
func (app *application) resetPOST(w http.ResponseWriter, r *http.Request) {
	if err := app.tracker.Reset(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Remove(r.Context(), sessionKeyAppState)
	redirect(w, r, "/")
}
