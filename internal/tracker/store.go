package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/myrjola/fitfocus/internal/errors"
)

// Storage keys, one JSON document each.
const (
	keyPlan = "plan"
	keyLogs = "logs"
)

var ErrCorruptStorage = errors.NewSentinel("corrupt stored value")

// Storage is a per-device string key-value store.
type Storage interface {
	// Get returns the values found for keys. Missing keys are absent from the map.
	Get(ctx context.Context, deviceID string, keys ...string) (map[string]string, error)
	// Put writes all values atomically.
	Put(ctx context.Context, deviceID string, values map[string]string) error
	// Update replaces the value of key with the result of fn atomically.
	Update(ctx context.Context, deviceID, key string, fn func(current string, found bool) (string, error)) error
	// Delete removes keys atomically.
	Delete(ctx context.Context, deviceID string, keys ...string) error
}

// Store persists a device's plan and log history as JSON documents.
//
// Every mutation is written through immediately. Undecodable documents are reported through the logger and
// treated as absent so that the application keeps working.
type Store struct {
	storage   Storage
	logger    *slog.Logger
	onCorrupt func()
}

// NewStore creates a Store. onCorrupt, if not nil, is called whenever a stored document is discarded.
func NewStore(storage Storage, logger *slog.Logger, onCorrupt func()) *Store {
	return &Store{storage: storage, logger: logger, onCorrupt: onCorrupt}
}

// Load returns the stored plan and logs. Missing documents yield a nil plan and empty logs.
func (s *Store) Load(ctx context.Context, deviceID string) (Snapshot, error) {
	values, err := s.storage.Get(ctx, deviceID, keyPlan, keyLogs)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get stored values: %w", err)
	}

	snapshot := Snapshot{Plan: nil, Logs: []LogEntry{}}
	if raw, ok := values[keyPlan]; ok {
		var plan *WorkoutPlan
		if plan, err = decodePlan(raw); err != nil {
			s.reportCorrupt(ctx, keyPlan, err)
		} else {
			snapshot.Plan = plan
		}
	}
	if raw, ok := values[keyLogs]; ok {
		var logs []LogEntry
		if logs, err = decodeLogs(raw); err != nil {
			s.reportCorrupt(ctx, keyLogs, err)
		} else {
			snapshot.Logs = logs
		}
	}
	return snapshot, nil
}

// Save persists plan and logs together. A nil plan is stored as JSON null and loads back as nil.
func (s *Store) Save(ctx context.Context, deviceID string, plan *WorkoutPlan, logs []LogEntry) error {
	if logs == nil {
		logs = []LogEntry{}
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	if err = s.storage.Put(ctx, deviceID, map[string]string{
		keyPlan: string(planJSON),
		keyLogs: string(logsJSON),
	}); err != nil {
		return fmt.Errorf("put plan and logs: %w", err)
	}
	return nil
}

// SetPlan replaces the stored plan and leaves the logs untouched.
func (s *Store) SetPlan(ctx context.Context, deviceID string, plan WorkoutPlan) error {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err = s.storage.Put(ctx, deviceID, map[string]string{keyPlan: string(planJSON)}); err != nil {
		return fmt.Errorf("put plan: %w", err)
	}
	return nil
}

// AppendLog adds entries to the end of the history. Existing entries are never modified.
func (s *Store) AppendLog(ctx context.Context, deviceID string, entries ...LogEntry) error {
	_, err := s.updateLogs(ctx, deviceID, func(logs []LogEntry) []LogEntry {
		return append(logs, entries...)
	})
	return err
}

// AppendSet adds entry to the history and reports whether it beats every earlier entry of its exercise. The check
// and the write happen in the same transaction, so two concurrent sets cannot both claim the same record.
func (s *Store) AppendSet(ctx context.Context, deviceID string, entry LogEntry) (bool, error) {
	var isRecord bool
	_, err := s.updateLogs(ctx, deviceID, func(logs []LogEntry) []LogEntry {
		isRecord = IsPersonalRecordCandidate(logs, entry.ExerciseID, entry.Weight)
		return append(logs, entry)
	})
	if err != nil {
		return false, err
	}
	return isRecord, nil
}

// MergeLogs appends the entries that are not already in the history and returns how many were added.
func (s *Store) MergeLogs(ctx context.Context, deviceID string, entries []LogEntry) (int, error) {
	return s.updateLogs(ctx, deviceID, func(logs []LogEntry) []LogEntry {
		seen := make(map[LogEntry]bool, len(logs))
		for _, l := range logs {
			seen[normalizeEntry(l)] = true
		}
		for _, e := range entries {
			if seen[normalizeEntry(e)] {
				continue
			}
			seen[normalizeEntry(e)] = true
			logs = append(logs, e)
		}
		return logs
	})
}

// normalizeEntry makes entries comparable regardless of the time zone their date was decoded in.
func normalizeEntry(e LogEntry) LogEntry {
	e.Date = e.Date.UTC()
	return e
}

func (s *Store) updateLogs(ctx context.Context, deviceID string, fn func([]LogEntry) []LogEntry) (int, error) {
	var added int
	err := s.storage.Update(ctx, deviceID, keyLogs, func(current string, found bool) (string, error) {
		logs := []LogEntry{}
		if found {
			decoded, err := decodeLogs(current)
			if err != nil {
				s.reportCorrupt(ctx, keyLogs, err)
			} else {
				logs = decoded
			}
		}
		before := len(logs)
		logs = fn(logs)
		added = len(logs) - before
		b, err := json.Marshal(logs)
		if err != nil {
			return "", fmt.Errorf("marshal logs: %w", err)
		}
		return string(b), nil
	})
	if err != nil {
		return 0, fmt.Errorf("update logs: %w", err)
	}
	return added, nil
}

// Reset removes the plan and all logs at once.
func (s *Store) Reset(ctx context.Context, deviceID string) error {
	if err := s.storage.Delete(ctx, deviceID, keyPlan, keyLogs); err != nil {
		return fmt.Errorf("delete plan and logs: %w", err)
	}
	return nil
}

func (s *Store) reportCorrupt(ctx context.Context, key string, err error) {
	s.logger.LogAttrs(ctx, slog.LevelWarn, "discarding corrupt stored value",
		errors.SlogError(errors.Wrap(err, "decode stored value", slog.String("key", key))))
	if s.onCorrupt != nil {
		s.onCorrupt()
	}
}

func decodePlan(raw string) (*WorkoutPlan, error) {
	var plan *WorkoutPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStorage, err)
	}
	if plan != nil {
		if problems := plan.Validate(); len(problems) > 0 {
			return nil, fmt.Errorf("%w: invalid plan: %v", ErrCorruptStorage, problems)
		}
	}
	return plan, nil
}

func decodeLogs(raw string) ([]LogEntry, error) {
	var logs []LogEntry
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStorage, err)
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	return logs, nil
}
