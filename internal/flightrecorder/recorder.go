// Package flightrecorder keeps a rolling runtime trace in memory and dumps it to disk when a request misbehaves.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync"
	"time"

	"github.com/myrjola/fitfocus/internal/errors"
)

const (
	defaultMinAge   = 2 * time.Minute
	defaultMaxBytes = 32 << 20
	// defaultCooldown is the minimum time between two dumps.
	defaultCooldown = 15 * time.Minute
)

// Config configures a Recorder. Zero durations and sizes select the defaults.
type Config struct {
	Directory string
	MinAge    time.Duration
	MaxBytes  uint64
	Cooldown  time.Duration
}

// Recorder dumps the recent execution trace of the process to Directory.
type Recorder struct {
	logger    *slog.Logger
	recorder  *trace.FlightRecorder
	directory string
	cooldown  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	lastCapture time.Time
}

// New creates the trace directory when missing. Call Start to begin recording.
func New(cfg Config, logger *slog.Logger) (*Recorder, error) {
	if cfg.Directory == "" {
		return nil, errors.New("traces directory is required")
	}
	if err := os.MkdirAll(cfg.Directory, 0o750); err != nil { //nolint:mnd // rwxr-x---.
		return nil, errors.Wrap(err, "create traces directory", slog.String("directory", cfg.Directory))
	}
	if cfg.MinAge == 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &Recorder{
		logger:      logger,
		recorder:    trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: cfg.MinAge, MaxBytes: cfg.MaxBytes}),
		directory:   cfg.Directory,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
		mu:          sync.Mutex{},
		lastCapture: time.Time{},
	}, nil
}

func (r *Recorder) Start(ctx context.Context) error {
	if err := r.recorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("directory", r.directory), slog.Duration("cooldown", r.cooldown))
	return nil
}

func (r *Recorder) Stop(ctx context.Context) {
	r.recorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the buffered trace to <reason>-<timestamp>.trace. Captures within the cooldown of the previous one
// are skipped and reported as false.
func (r *Recorder) Capture(ctx context.Context, reason string) bool {
	r.mu.Lock()
	now := r.now()
	if !r.lastCapture.IsZero() && now.Sub(r.lastCapture) < r.cooldown {
		r.mu.Unlock()
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.String("reason", reason), slog.Time("last_capture", r.lastCapture))
		return false
	}
	r.lastCapture = now
	r.mu.Unlock()

	path := filepath.Join(r.directory, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	if err := r.writeTo(path); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "capture trace", errors.SlogError(err))
		return false
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace", slog.String("file", path), slog.String("reason", reason))
	return true
}

func (r *Recorder) writeTo(path string) (err error) {
	file, err := os.Create(path) //nolint:gosec // path is built from the configured directory.
	if err != nil {
		return errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	if _, err = r.recorder.WriteTo(file); err != nil {
		return errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return nil
}
