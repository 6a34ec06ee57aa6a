package main

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/fitfocus/internal/contexthelpers"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/i18n"
	"github.com/myrjola/fitfocus/internal/logging"
)

const (
	sessionKeyDeviceID = "device_id"
	sessionKeyAppState = "app_state"
	languageCookieName = "language"
)

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		headerWritten:  false,
	}
}

func (mw *statusResponseWriter) WriteHeader(statusCode int) {
	mw.ResponseWriter.WriteHeader(statusCode)

	if !mw.headerWritten {
		mw.statusCode = statusCode
		mw.headerWritten = true
	}
}

func (mw *statusResponseWriter) Write(b []byte) (int, error) {
	mw.headerWritten = true
	written, err := mw.ResponseWriter.Write(b)
	if err != nil {
		return written, fmt.Errorf("write response: %w", err)
	}
	return written, nil
}

func (mw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cspNonce := rand.Text()
		csp := fmt.Sprintf(`default-src 'none';
script-src 'nonce-%s' 'strict-dynamic';
connect-src 'self';
img-src 'self' data:;
style-src 'nonce-%s' 'self';
frame-ancestors 'none';
form-action 'self';
font-src 'none';
object-src 'none';
manifest-src 'self';
base-uri 'none';`, cspNonce, cspNonce)

		w.Header().Set("Content-Security-Policy", csp)
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")

		r = contexthelpers.SetCSPNonce(r, cspNonce)

		next.ServeHTTP(w, r)
	})
}

func cacheForever(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// logAndTraceRequest attaches request attributes to the context logger and records request metrics.
func (app *application) logAndTraceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithAttrs(
			r.Context(),
			slog.String("trace_id", rand.Text()),
			slog.String("proto", r.Proto),
			slog.String("method", r.Method),
			slog.String("uri", r.URL.RequestURI()),
		)
		if trace.IsEnabled() {
			var task *trace.Task
			ctx, task = trace.NewTask(ctx, "HTTP "+r.Method+" "+r.URL.Path)
			defer task.End()
		}
		r = r.WithContext(ctx)

		start := time.Now()
		app.metrics.GaugeRequests.Inc()
		defer app.metrics.GaugeRequests.Dec()
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request")

		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		app.metrics.CounterRequests.WithLabelValues(r.Method, strconv.Itoa(sw.statusCode)).Inc()
		app.metrics.HistRequestDuration.Observe(duration.Seconds())

		level := slog.LevelInfo
		if sw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		app.logger.LogAttrs(ctx, level, "request completed",
			slog.Int("status_code", sw.statusCode), slog.Duration("duration", duration))
		if sw.statusCode == http.StatusServiceUnavailable && app.flightRecorder != nil {
			app.flightRecorder.Capture(ctx, "timeout")
		}
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if excp := recover(); excp != nil {
				if excp == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value.
					panic(excp)
				}
				app.metrics.CounterRequestPanics.Inc()
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.DecoratePanic(excp))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCurrentPath(r, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// crossOriginProtection rejects non-safe cross-origin requests based on Sec-Fetch-Site and Origin headers.
func (app *application) crossOriginProtection(next http.Handler) http.Handler {
	protection := http.NewCrossOriginProtection()
	return protection.Handler(next)
}

// language resolves the UI language from the language cookie with Accept-Language as fallback.
func language(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.Negotiate(r.Header.Get("Accept-Language"))
		if cookie, err := r.Cookie(languageCookieName); err == nil && i18n.IsSupported(i18n.Language(cookie.Value)) {
			lang = i18n.Language(cookie.Value)
		}
		r = contexthelpers.SetLanguage(r, lang)
		next.ServeHTTP(w, r)
	})
}

// deviceSession gives every browser a stable device id kept in its session. Must run inside LoadAndSave.
func (app *application) deviceSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := app.sessionManager.GetString(ctx, sessionKeyDeviceID)
		if id == "" {
			id = uuid.NewString()
			app.sessionManager.Put(ctx, sessionKeyDeviceID, id)
			app.logger.LogAttrs(ctx, slog.LevelInfo, "new device", slog.String("device_id", id))
		}
		r = contexthelpers.SetDeviceID(r, id)
		r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("device_id", id)))
		next.ServeHTTP(w, r)
	})
}

// timeout cancels the request context after d and responds with 503 when the handler has not finished.
func timeout(d time.Duration) func(http.Handler) http.Handler {
	handlerTimeout := d - 200*time.Millisecond //nolint:mnd // writing the response takes time.
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, handlerTimeout, timeoutBody)
	}
}

// extendWriteDeadline lifts the server wide write timeout for routes waiting on slow external services. It has to
// wrap the response writer handed out by the server, so it must be the outermost middleware.
func (app *application) extendWriteDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := http.NewResponseController(w)
			if err := rc.SetWriteDeadline(time.Now().Add(d)); err != nil {
				app.logger.LogAttrs(r.Context(), slog.LevelWarn, "extend write deadline", errors.SlogError(err))
			}
			next.ServeHTTP(w, r)
		})
	}
}

const timeoutBody = `<!doctype html>
<html lang="en">
<head><title>Timeout</title></head>
<body>
<h1>Timeout</h1>
<p>The request took too long. Reload the page to try again.</p>
</body>
</html>
`
