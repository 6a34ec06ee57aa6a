package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitfocus/internal/sqlite"
	"github.com/myrjola/fitfocus/internal/testhelpers"
	"github.com/myrjola/fitfocus/internal/tracker"
)

func newTestDatabase(t *testing.T) *sqlite.Database {
	t.Helper()
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T) (*tracker.Store, *sqlite.Database, *int) {
	t.Helper()
	db := newTestDatabase(t)
	corrupt := 0
	var mu sync.Mutex
	store := tracker.NewStore(tracker.NewSQLiteStorage(db), testhelpers.NewLogger(testhelpers.NewWriter(t)), func() {
		mu.Lock()
		defer mu.Unlock()
		corrupt++
	})
	return store, db, &corrupt
}

func testPlan() tracker.WorkoutPlan {
	weight := 40.0
	days := make([]tracker.WorkoutDay, tracker.PlanDays)
	groups := []tracker.MuscleGroup{
		tracker.MuscleGroupChest,
		tracker.MuscleGroupBack,
		tracker.MuscleGroupLegs,
		tracker.MuscleGroupShoulders,
		tracker.MuscleGroupArms,
	}
	for i := range days {
		days[i] = tracker.WorkoutDay{
			ID:    "d" + string(rune('1'+i)),
			Title: "Day " + string(rune('1'+i)),
			Exercises: []tracker.Exercise{
				{
					ID:          "e" + string(rune('1'+i)) + "a",
					Name:        "Main lift " + string(rune('1'+i)),
					MuscleGroup: groups[i],
					Sets:        4,
					Reps:        "8-10",
					Tips:        "Control the eccentric.",
					Weight:      &weight,
				},
				{
					ID:          "e" + string(rune('1'+i)) + "b",
					Name:        "Plank",
					MuscleGroup: tracker.MuscleGroupCore,
					Sets:        3,
					Reps:        "60",
					Tips:        "",
					Weight:      nil,
				},
			},
		}
	}
	return tracker.WorkoutPlan{Days: days}
}

func TestStore_emptyDevice(t *testing.T) {
	store, _, _ := newTestStore(t)
	snapshot, err := store.Load(t.Context(), "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snapshot.Plan != nil {
		t.Errorf("Plan = %v, want nil", snapshot.Plan)
	}
	if snapshot.Logs == nil || len(snapshot.Logs) != 0 {
		t.Errorf("Logs = %#v, want empty non-nil slice", snapshot.Logs)
	}
}

func TestStore_roundTrip(t *testing.T) {
	ctx := t.Context()
	store, _, _ := newTestStore(t)
	plan := testPlan()
	logs := []tracker.LogEntry{
		entry("2024-01-01T10:00:00.123Z", "e1a", tracker.MuscleGroupChest, 60, 8),
		entry("2024-01-02T10:00:00Z", "e2a", tracker.MuscleGroupBack, 70, 10),
	}

	if err := store.Save(ctx, "device-1", &plan, logs); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snapshot, err := store.Load(ctx, "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(&plan, snapshot.Plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(logs, snapshot.Logs); diff != "" {
		t.Errorf("logs mismatch (-want +got):\n%s", diff)
	}

	// Devices are isolated from each other.
	other, err := store.Load(ctx, "device-2")
	if err != nil {
		t.Fatalf("Load other device: %v", err)
	}
	if other.Plan != nil || len(other.Logs) != 0 {
		t.Errorf("other device sees data: %+v", other)
	}
}

func TestStore_saveNilPlan(t *testing.T) {
	ctx := t.Context()
	store, _, corrupt := newTestStore(t)
	if err := store.Save(ctx, "device-1", nil, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snapshot, err := store.Load(ctx, "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snapshot.Plan != nil || len(snapshot.Logs) != 0 {
		t.Errorf("snapshot = %+v, want empty", snapshot)
	}
	if *corrupt != 0 {
		t.Errorf("null plan reported as corrupt")
	}
}

func TestStore_appendLog(t *testing.T) {
	ctx := t.Context()
	store, _, _ := newTestStore(t)
	first := entry("2024-01-01T10:00:00Z", "e1a", tracker.MuscleGroupChest, 60, 8)
	second := entry("2024-01-01T10:05:00Z", "e1a", tracker.MuscleGroupChest, 62.5, 8)

	if err := store.AppendLog(ctx, "device-1", first); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	if err := store.AppendLog(ctx, "device-1", second); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	snapshot, err := store.Load(ctx, "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]tracker.LogEntry{first, second}, snapshot.Logs); diff != "" {
		t.Errorf("logs mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_appendLogConcurrent(t *testing.T) {
	ctx := t.Context()
	store, _, _ := newTestStore(t)
	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Go(func() {
			errs <- store.AppendLog(ctx, "device-1",
				entry("2024-01-01T10:00:00Z", "e1a", tracker.MuscleGroupChest, float64(i), 8))
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}
	snapshot, err := store.Load(ctx, "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot.Logs) != n {
		t.Errorf("got %d logs, want %d", len(snapshot.Logs), n)
	}
}

func TestStore_appendSetConcurrentRecord(t *testing.T) {
	ctx := t.Context()
	store, _, _ := newTestStore(t)
	if err := store.AppendLog(ctx, "device-1",
		entry("2024-01-01T10:00:00Z", "e1a", tracker.MuscleGroupChest, 60, 8)); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	// Every set has the same winning weight, so exactly one of them holds the record.
	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		records int
	)
	for range n {
		wg.Go(func() {
			isRecord, err := store.AppendSet(ctx, "device-1",
				entry("2024-01-02T10:00:00Z", "e1a", tracker.MuscleGroupChest, 70, 8))
			if err != nil {
				t.Errorf("AppendSet: %v", err)
				return
			}
			if isRecord {
				mu.Lock()
				records++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	if records != 1 {
		t.Errorf("%d concurrent sets reported a record, want 1", records)
	}
}

func TestStore_mergeLogs(t *testing.T) {
	ctx := t.Context()
	store, _, _ := newTestStore(t)
	a := entry("2024-01-01T10:00:00Z", "e1a", tracker.MuscleGroupChest, 60, 8)
	b := entry("2024-01-02T10:00:00Z", "e1a", tracker.MuscleGroupChest, 62.5, 8)
	if err := store.AppendLog(ctx, "device-1", a); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	added, err := store.MergeLogs(ctx, "device-1", []tracker.LogEntry{a, b, b})
	if err != nil {
		t.Fatalf("MergeLogs: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	snapshot, err := store.Load(ctx, "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]tracker.LogEntry{a, b}, snapshot.Logs); diff != "" {
		t.Errorf("logs mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_reset(t *testing.T) {
	ctx := t.Context()
	store, db, _ := newTestStore(t)
	plan := testPlan()
	if err := store.Save(ctx, "device-1", &plan, []tracker.LogEntry{
		entry("2024-01-01T10:00:00Z", "e1a", tracker.MuscleGroupChest, 60, 8),
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Reset(ctx, "device-1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	snapshot, err := store.Load(ctx, "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snapshot.Plan != nil || len(snapshot.Logs) != 0 {
		t.Errorf("snapshot after reset = %+v, want empty", snapshot)
	}

	var rows int
	if err = db.ReadOnly.QueryRowContext(ctx,
		"SELECT count(*) FROM device_storage WHERE device_id = 'device-1'").Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 0 {
		t.Errorf("%d rows left after reset", rows)
	}
}

func TestStore_corruptValues(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		wantPlan bool
		wantLogs int
	}{
		{name: "malformed plan", key: "plan", value: `{"days": [`, wantPlan: false, wantLogs: 1},
		{name: "plan with wrong day count", key: "plan", value: `{"days": []}`, wantPlan: false, wantLogs: 1},
		{name: "malformed logs", key: "logs", value: `not json`, wantPlan: true, wantLogs: 0},
		{name: "logs of wrong shape", key: "logs", value: `{"date": 1}`, wantPlan: true, wantLogs: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			store, db, corrupt := newTestStore(t)
			plan := testPlan()
			if err := store.Save(ctx, "device-1", &plan, []tracker.LogEntry{
				entry("2024-01-01T10:00:00Z", "e1a", tracker.MuscleGroupChest, 60, 8),
			}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if _, err := db.ReadWrite.ExecContext(ctx,
				"UPDATE device_storage SET value = ? WHERE device_id = 'device-1' AND key = ?",
				tt.value, tt.key); err != nil {
				t.Fatalf("corrupt value: %v", err)
			}

			snapshot, err := store.Load(ctx, "device-1")
			if err != nil {
				t.Fatalf("Load must degrade instead of failing: %v", err)
			}
			if got := snapshot.Plan != nil; got != tt.wantPlan {
				t.Errorf("has plan = %v, want %v", got, tt.wantPlan)
			}
			if len(snapshot.Logs) != tt.wantLogs {
				t.Errorf("len(logs) = %d, want %d", len(snapshot.Logs), tt.wantLogs)
			}
			if *corrupt != 1 {
				t.Errorf("corrupt reports = %d, want 1", *corrupt)
			}
		})
	}
}

func TestStore_appendAfterCorruptLogs(t *testing.T) {
	ctx := t.Context()
	store, db, _ := newTestStore(t)
	if _, err := db.ReadWrite.ExecContext(ctx,
		"INSERT INTO device_storage (device_id, key, value) VALUES ('device-1', 'logs', '[{')"); err != nil {
		t.Fatalf("insert corrupt logs: %v", err)
	}
	e := entry("2024-01-01T10:00:00Z", "e1a", tracker.MuscleGroupChest, 60, 8)
	if err := store.AppendLog(ctx, "device-1", e); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	snapshot, err := store.Load(ctx, "device-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]tracker.LogEntry{e}, snapshot.Logs); diff != "" {
		t.Errorf("logs mismatch (-want +got):\n%s", diff)
	}
}

type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string, ...string) (map[string]string, error) {
	return nil, f.err
}

func (f failingStorage) Put(context.Context, string, map[string]string) error { return f.err }

func (f failingStorage) Update(context.Context, string, string, func(string, bool) (string, error)) error {
	return f.err
}

func (f failingStorage) Delete(context.Context, string, ...string) error { return f.err }

func TestStore_storageFailure(t *testing.T) {
	ctx := t.Context()
	errDisk := errors.New("disk I/O error")
	store := tracker.NewStore(failingStorage{err: errDisk}, testhelpers.NewLogger(testhelpers.NewWriter(t)), nil)

	if _, err := store.Load(ctx, "d"); !errors.Is(err, errDisk) {
		t.Errorf("Load error = %v, want %v", err, errDisk)
	}
	if err := store.AppendLog(ctx, "d", tracker.LogEntry{}); !errors.Is(err, errDisk) {
		t.Errorf("AppendLog error = %v, want %v", err, errDisk)
	}
	if err := store.Reset(ctx, "d"); !errors.Is(err, errDisk) {
		t.Errorf("Reset error = %v, want %v", err, errDisk)
	}
	if err := store.SetPlan(ctx, "d", testPlan()); !errors.Is(err, errDisk) {
		t.Errorf("SetPlan error = %v, want %v", err, errDisk)
	}
}
