package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	var (
		shared = func(d time.Duration) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler {
				return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
					commonContext(language(timeout(d)(next))))))
			}
		}
		noSession = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(defaultTimeout)(next))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				shared(defaultTimeout)(app.deviceSession(next)))))
		}
		// slowSession is for routes waiting on the LLM.
		slowSession = func(next http.Handler) http.Handler {
			return app.extendWriteDeadline(slowTimeout)(app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				shared(slowTimeout)(app.deviceSession(next))))))
		}
	)

	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))
	mux.Handle("POST /plan", slowSession(http.HandlerFunc(app.planPOST)))

	mux.Handle("GET /workout", session(http.HandlerFunc(app.workoutGET)))
	mux.Handle("GET /workout/days/{index}", session(http.HandlerFunc(app.workoutDayGET)))
	mux.Handle("POST /workout/days/{index}/exercises/{exerciseID}/log", session(http.HandlerFunc(app.exerciseLogPOST)))
	mux.Handle("POST /workout/progress/clear", session(http.HandlerFunc(app.progressClearPOST)))

	mux.Handle("GET /stats", session(http.HandlerFunc(app.statsGET)))
	mux.Handle("GET /stats/insight", slowSession(http.HandlerFunc(app.insightGET)))
	mux.Handle("GET /stats/chart-data", session(http.HandlerFunc(app.chartDataGET)))

	mux.Handle("GET /data", session(http.HandlerFunc(app.dataGET)))
	mux.Handle("GET /export", session(http.HandlerFunc(app.exportGET)))
	mux.Handle("POST /import", session(http.HandlerFunc(app.importPOST)))
	mux.Handle("POST /reset", session(http.HandlerFunc(app.resetPOST)))

	mux.Handle("POST /language", noSession(http.HandlerFunc(app.setLanguagePOST)))
	mux.Handle("GET /api/healthy", noSession(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /metrics", noSession(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{ //nolint:exhaustruct // defaults.
		Registry: app.registry,
	})))

	fileServerHandler, err := app.fileServerHandler(noSession)
	if err != nil {
		return nil, fmt.Errorf("fileServerHandler: %w", err)
	}
	mux.Handle("/", fileServerHandler)

	return mux, nil
}
