package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/fitfocus/internal/coach"
	"github.com/myrjola/fitfocus/internal/contexthelpers"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/tracker"
)

type muscleRow struct {
	tracker.MuscleVolume
	// Percent of the largest group, for the bar width.
	Percent int
}

type statsTemplateData struct {
	Summary  tracker.Summary
	Muscles  []muscleRow
	Timeline []tracker.DayVolume
	HasPlan  bool

	// TrainedToday is true once a set was logged on the current UTC day.
	TrainedToday bool
}

func (app *application) statsGET(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.tracker.Snapshot(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	volumes := tracker.MuscleGroupVolume(snapshot.Logs)
	rows := make([]muscleRow, 0, len(volumes))
	for _, v := range volumes {
		percent := 0
		if volumes[0].Volume > 0 {
			percent = int(v.Volume / volumes[0].Volume * 100) //nolint:mnd // percent.
		}
		rows = append(rows, muscleRow{MuscleVolume: v, Percent: percent})
	}

	app.render(w, r, http.StatusOK, "stats", statsTemplateData{
		Summary:      tracker.Summarize(snapshot.Logs),
		Muscles:      rows,
		Timeline:     tracker.DailyVolumeTimeline(snapshot.Logs),
		HasPlan:      snapshot.Plan != nil,
		TrainedToday: tracker.ActiveOn(snapshot.Logs, app.now()),
	})
}

type insightTemplateData struct {
	Markdown    string
	Unavailable bool
}

// insightGET renders the coach narrative. Fetch requests get the bare fragment for the statistics page.
func (app *application) insightGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := insightTemplateData{Markdown: "", Unavailable: false}
	text, err := app.tracker.Insight(ctx, contexthelpers.Language(ctx))
	switch {
	case err == nil:
		data.Markdown = text
	case errors.Is(err, coach.ErrRemoteService):
		app.logger.LogAttrs(ctx, slog.LevelWarn, "insight unavailable", errors.SlogError(err))
		data.Unavailable = true
	default:
		app.serverError(w, r, err)
		return
	}

	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		app.renderFragment(w, r, http.StatusOK, "insight", data)
		return
	}
	app.render(w, r, http.StatusOK, "insight", data)
}

type chartData struct {
	Summary  tracker.Summary        `json:"summary"`
	Muscles  []tracker.MuscleVolume `json:"muscles"`
	Timeline []tracker.DayVolume    `json:"timeline"`
}

// chartDataGET serves the aggregates for client side charts.
func (app *application) chartDataGET(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.tracker.Snapshot(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if err = writeJSON(w, http.StatusOK, chartData{
		Summary:  tracker.Summarize(snapshot.Logs),
		Muscles:  tracker.MuscleGroupVolume(snapshot.Logs),
		Timeline: tracker.DailyVolumeTimeline(snapshot.Logs),
	}); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "write chart data", errors.SlogError(err))
	}
}
