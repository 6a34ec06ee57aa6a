package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/fitfocus/internal/contexthelpers"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/i18n"
	"github.com/myrjola/fitfocus/internal/metrics"
)

var (
	ErrNoDevice         = errors.NewSentinel("no device in context")
	ErrNoPlan           = errors.NewSentinel("no workout plan")
	ErrExerciseNotFound = errors.NewSentinel("exercise not found in plan")
	ErrInvalidEntry     = errors.NewSentinel("invalid log entry")
	ErrInvalidBackup    = errors.NewSentinel("invalid backup")
)

// maxBackupSize limits imported backup files.
const maxBackupSize = 8 << 20

const backupVersion = 1

// PlanParser turns a free-text routine into a validated plan.
type PlanParser interface {
	ParsePlan(ctx context.Context, input string, lang i18n.Language) (WorkoutPlan, error)
}

// InsightGenerator turns the log history into a coaching narrative.
type InsightGenerator interface {
	Summarize(ctx context.Context, logs []LogEntry, lang i18n.Language) (string, error)
}

// Backup is the export file format.
type Backup struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Plan       *WorkoutPlan `json:"plan"`
	Logs       []LogEntry   `json:"logs"`
}

// ImportResult describes what an import changed.
type ImportResult struct {
	PlanReplaced bool
	LogsAdded    int
}

// Service implements the tracker use cases for the device found in the request context.
type Service struct {
	store    *Store
	parser   PlanParser
	insights InsightGenerator
	metrics  *metrics.Manager
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. now is the clock used to date new log entries.
func NewService(
	store *Store,
	parser PlanParser,
	insights InsightGenerator,
	m *metrics.Manager,
	logger *slog.Logger,
	now func() time.Time,
) *Service {
	return &Service{
		store:    store,
		parser:   parser,
		insights: insights,
		metrics:  m,
		logger:   logger,
		now:      now,
	}
}

func deviceID(ctx context.Context) (string, error) {
	id := contexthelpers.DeviceID(ctx)
	if id == "" {
		return "", ErrNoDevice
	}
	return id, nil
}

// Snapshot loads the device's plan and logs.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	id, err := deviceID(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot, err := s.store.Load(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snapshot, nil
}

// CreatePlan parses the routine description and stores the resulting plan, keeping the log history.
func (s *Service) CreatePlan(ctx context.Context, input string, lang i18n.Language) (WorkoutPlan, error) {
	id, err := deviceID(ctx)
	if err != nil {
		return WorkoutPlan{}, err
	}
	plan, err := s.parser.ParsePlan(ctx, input, lang)
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("parse plan: %w", err)
	}
	if err = s.store.SetPlan(ctx, id, plan); err != nil {
		return WorkoutPlan{}, fmt.Errorf("store plan: %w", err)
	}
	s.metrics.CounterPlansCreated.Inc()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created workout plan", slog.Int("exercises", exerciseCount(plan)))
	return plan, nil
}

func exerciseCount(plan WorkoutPlan) int {
	n := 0
	for _, d := range plan.Days {
		n += len(d.Exercises)
	}
	return n
}

// LoggedSet is the outcome of LogExercise.
type LoggedSet struct {
	Entry LogEntry
	// PersonalRecord is set when the entry beats every earlier entry of the exercise.
	PersonalRecord bool
}

// LogExercise records one completed set of an exercise of the plan's day at dayIndex.
func (s *Service) LogExercise(
	ctx context.Context,
	dayIndex int,
	exerciseID string,
	weight float64,
	reps int,
) (LoggedSet, error) {
	id, err := deviceID(ctx)
	if err != nil {
		return LoggedSet{}, err
	}
	if weight < 0 || reps < 1 {
		return LoggedSet{}, errors.Wrap(ErrInvalidEntry, "validate input",
			slog.Float64("weight", weight), slog.Int("reps", reps))
	}

	snapshot, err := s.store.Load(ctx, id)
	if err != nil {
		return LoggedSet{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot.Plan == nil {
		return LoggedSet{}, ErrNoPlan
	}
	day, ok := snapshot.Plan.Day(dayIndex)
	if !ok {
		return LoggedSet{}, errors.Wrap(ErrExerciseNotFound, "find day", slog.Int("day_index", dayIndex))
	}
	exercise, ok := day.Exercise(exerciseID)
	if !ok {
		return LoggedSet{}, errors.Wrap(ErrExerciseNotFound, "find exercise", slog.String("exercise_id", exerciseID))
	}

	entry := LogEntry{
		Date:          s.now().UTC(),
		ExerciseID:    exercise.ID,
		ExerciseName:  exercise.Name,
		MuscleGroup:   exercise.MuscleGroup,
		SetsCompleted: 1,
		RepsCompleted: reps,
		Weight:        weight,
	}
	isRecord, err := s.store.AppendSet(ctx, id, entry)
	if err != nil {
		return LoggedSet{}, fmt.Errorf("append log: %w", err)
	}
	s.metrics.CounterLogEntries.Inc()
	return LoggedSet{Entry: entry, PersonalRecord: isRecord}, nil
}

// Insight asks the coach for a narrative over the whole history.
func (s *Service) Insight(ctx context.Context, lang i18n.Language) (string, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	text, err := s.insights.Summarize(ctx, snapshot.Logs, lang)
	if err != nil {
		return "", fmt.Errorf("summarize logs: %w", err)
	}
	return text, nil
}

// Reset deletes the plan and the whole log history of the device.
func (s *Service) Reset(ctx context.Context) error {
	id, err := deviceID(ctx)
	if err != nil {
		return err
	}
	if err = s.store.Reset(ctx, id); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "reset device data")
	return nil
}

// Export returns everything stored for the device.
func (s *Service) Export(ctx context.Context) (Backup, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return Backup{}, err
	}
	return Backup{
		Version:    backupVersion,
		ExportedAt: s.now().UTC(),
		Plan:       snapshot.Plan,
		Logs:       snapshot.Logs,
	}, nil
}

// Import merges a backup produced by Export. A plan in the backup replaces the current one. Log entries already
// present are skipped so importing the same file twice is harmless.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	id, err := deviceID(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	var backup Backup
	dec := json.NewDecoder(io.LimitReader(r, maxBackupSize))
	if err = dec.Decode(&backup); err != nil {
		return ImportResult{}, fmt.Errorf("%w: decode: %w", ErrInvalidBackup, err)
	}
	if backup.Version != backupVersion {
		return ImportResult{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, backup.Version)
	}
	var problems []string
	if backup.Plan != nil {
		problems = append(problems, backup.Plan.Validate()...)
	}
	for i, l := range backup.Logs {
		for _, p := range l.Validate() {
			problems = append(problems, fmt.Sprintf("logs[%d]: %s", i, p))
		}
	}
	if len(problems) > 0 {
		return ImportResult{}, fmt.Errorf("%w: %s", ErrInvalidBackup, strings.Join(problems, "; "))
	}

	var result ImportResult
	if backup.Plan != nil {
		if err = s.store.SetPlan(ctx, id, *backup.Plan); err != nil {
			return ImportResult{}, fmt.Errorf("store plan: %w", err)
		}
		result.PlanReplaced = true
	}
	if result.LogsAdded, err = s.store.MergeLogs(ctx, id, backup.Logs); err != nil {
		return result, fmt.Errorf("merge logs: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "imported backup",
		slog.Bool("plan_replaced", result.PlanReplaced), slog.Int("logs_added", result.LogsAdded))
	return result, nil
}
