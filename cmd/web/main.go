package main

import (
	"context"
	"encoding/gob"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/fitfocus/internal/coach"
	"github.com/myrjola/fitfocus/internal/envstruct"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/flightrecorder"
	"github.com/myrjola/fitfocus/internal/logging"
	"github.com/myrjola/fitfocus/internal/metrics"
	"github.com/myrjola/fitfocus/internal/sqlite"
	"github.com/myrjola/fitfocus/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	templateFS     fs.FS
	tracker        *tracker.Service
	metrics        *metrics.Manager
	registry       *prometheus.Registry
	markdown       goldmark.Markdown
	now            func() time.Time
	// flightRecorder is nil unless FITFOCUS_TRACES_DIRECTORY is set.
	flightRecorder *flightrecorder.Recorder
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"FITFOCUS_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FITFOCUS_SQLITE_URL" envDefault:"./fitfocus.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"FITFOCUS_TEMPLATE_PATH" envDefault:""`
	// OpenAIAPIKey enables plan ingestion and insights. Both fail gracefully without it.
	OpenAIAPIKey string `env:"FITFOCUS_OPENAI_API_KEY" envDefault:""`
	// OpenAIBaseURL points the client at an OpenAI compatible endpoint.
	OpenAIBaseURL string `env:"FITFOCUS_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel   string `env:"FITFOCUS_OPENAI_MODEL" envDefault:"gpt-4o-2024-08-06"`
	// SessionLifetime is how long an idle browser keeps its device identity.
	SessionLifetime time.Duration `env:"FITFOCUS_SESSION_LIFETIME" envDefault:"8760h"`
	// TracesDirectory enables the flight recorder. Timed out requests dump the recent runtime trace there.
	TracesDirectory string `env:"FITFOCUS_TRACES_DIRECTORY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager("web", registry)

	if cfg.OpenAIAPIKey == "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "FITFOCUS_OPENAI_API_KEY not set, plan import and insights are disabled")
	}
	completer := coach.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger)
	llmCoach := coach.New(completer, cfg.OpenAIModel, m, logger)

	store := tracker.NewStore(tracker.NewSQLiteStorage(db), logger, m.CounterCorruptStorage.Inc)

	sessionManager, sessionStore := initializeSessionManager(db, cfg.SessionLifetime)
	defer sessionStore.StopCleanup()

	var recorder *flightrecorder.Recorder
	if cfg.TracesDirectory != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{Directory: cfg.TracesDirectory}, logger); err != nil { //nolint:exhaustruct // defaults.
			return errors.Wrap(err, "create flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(ctx)
	}

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		templateFS:     os.DirFS(htmlTemplatePath),
		tracker:        tracker.NewService(store, llmCoach, llmCoach, m, logger, time.Now),
		metrics:        m,
		registry:       registry,
		markdown:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:            time.Now,
		flightRecorder: recorder,
	}

	var handler http.Handler
	if handler, err = app.routes(); err != nil {
		return errors.Wrap(err, "setup routes")
	}
	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func initializeSessionManager(
	dbs *sqlite.Database,
	lifetime time.Duration,
) (*scs.SessionManager, *sqlite3store.SQLite3Store) {
	gob.Register(tracker.AppState{})
	store := sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, time.Hour)
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = lifetime
	sessionManager.IdleTimeout = 0
	sessionManager.Cookie.Name = "fitfocus_session"
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	return sessionManager, store
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(
		logging.NewOutput(os.Getenv("FITFOCUS_LOG_FILE")),
		&slog.HandlerOptions{
			AddSource:   false,
			Level:       slog.LevelDebug,
			ReplaceAttr: nil,
		}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
