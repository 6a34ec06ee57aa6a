package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/myrjola/fitfocus/internal/e2etest"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/logging"
	"github.com/myrjola/fitfocus/internal/testhelpers"
	"github.com/myrjola/fitfocus/internal/tracker"
	"golang.org/x/sync/errgroup"
)

const (
	testTimeout             = 10 * time.Second
	setupTimeout            = 30 * time.Second
	scenarioTimeout         = 30 * time.Second
	maxConcurrentSetups     = 10
	maxConcurrentOperations = 20
	numDevices              = 10
	historyWeeks            = 26 // 6 months of training
	baseWeight              = 40.0
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
)

// Device is a browser with its own session and therefore its own storage namespace.
type Device struct {
	Client *e2etest.Client
	Index  int
}

// TestPages checks that a new device sees the setup page and empty statistics.
func TestPages(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	if _, err = e2etest.FindForm(doc, "/plan"); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}
	if _, err = client.GetDoc(ctx, "/stats"); err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	return nil
}

// generateBackup builds a plan and a weekly training history in the export format. Importing it seeds a device
// without calling the LLM.
func generateBackup(faker *gofakeit.Faker, now time.Time) tracker.Backup {
	groups := tracker.MuscleGroups()
	plan := tracker.WorkoutPlan{Days: make([]tracker.WorkoutDay, 0, tracker.PlanDays)}
	for d := range tracker.PlanDays {
		day := tracker.WorkoutDay{
			ID:        fmt.Sprintf("day-%d", d+1),
			Title:     fmt.Sprintf("%s day", groups[d]),
			Exercises: nil,
		}
		for e := range faker.Number(3, 6) { //nolint:mnd // exercises per day.
			weight := float64(faker.Number(20, 80)) //nolint:mnd // kg.
			day.Exercises = append(day.Exercises, tracker.Exercise{
				ID:          fmt.Sprintf("day-%d-ex-%d", d+1, e+1),
				Name:        faker.Verb() + " " + faker.Noun(),
				MuscleGroup: groups[d],
				Sets:        faker.Number(3, 5), //nolint:mnd // sets.
				Reps:        "8-12",
				Tips:        faker.Sentence(8), //nolint:mnd // words.
				Weight:      &weight,
			})
		}
		plan.Days = append(plan.Days, day)
	}

	var logs []tracker.LogEntry
	start := now.AddDate(0, 0, -historyWeeks*7)
	for week := range historyWeeks {
		for d, day := range plan.Days {
			date := start.AddDate(0, 0, week*7+d)
			for _, e := range day.Exercises {
				progression := float64(week) * 0.5 //nolint:mnd // kg per week.
				for range e.Sets {
					logs = append(logs, tracker.LogEntry{
						Date:          date,
						ExerciseID:    e.ID,
						ExerciseName:  e.Name,
						MuscleGroup:   e.MuscleGroup,
						SetsCompleted: 1,
						RepsCompleted: faker.Number(8, 12), //nolint:mnd // reps.
						Weight:        *e.Weight + progression,
					})
				}
			}
		}
	}
	return tracker.Backup{Version: 1, ExportedAt: now, Plan: &plan, Logs: logs}
}

// SetupDevices creates devices and seeds each with six months of history through the import endpoint.
func SetupDevices(ctx context.Context, baseURL string, logger *slog.Logger) ([]*Device, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Seeding devices", slog.Int("num_devices", numDevices))

	devices := make([]*Device, numDevices)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSetups)
	for i := range numDevices {
		g.Go(func() error {
			setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
			defer cancel()

			client, err := e2etest.NewClient(baseURL)
			if err != nil {
				return fmt.Errorf("device %d: new client: %w", i, err)
			}
			backup, err := json.Marshal(generateBackup(gofakeit.New(int64(i)), time.Now()))
			if err != nil {
				return fmt.Errorf("device %d: marshal backup: %w", i, err)
			}
			resp, err := client.UploadFile(setupCtx, "/import", "backup", "backup.json", backup)
			if err != nil {
				return fmt.Errorf("device %d: import: %w", i, err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return errors.New("import rejected", slog.Int("device", i), slog.Int("status", resp.StatusCode))
			}
			devices[i] = &Device{Client: client, Index: i}
			logger.LogAttrs(setupCtx, slog.LevelDebug, "Seeded device", slog.Int("device", i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("seed devices: %w", err)
	}
	return devices, nil
}

// WorkoutScenario opens a plan day, logs a set of its first exercise and reads the statistics.
func WorkoutScenario(ctx context.Context, device *Device, logger *slog.Logger) error {
	client := device.Client
	day := strconv.Itoa(device.Index % tracker.PlanDays)

	doc, err := client.GetDoc(ctx, "/workout/days/"+day)
	if err != nil {
		return fmt.Errorf("get workout day: %w", err)
	}
	form := doc.Find("form.log-form").First()
	action, ok := form.Attr("action")
	if !ok {
		return errors.New("log form not found", slog.String("day", day))
	}
	weight := form.Find("input[name=weight]").AttrOr("value", strconv.FormatFloat(baseWeight, 'f', -1, 64))
	resp, err := client.PostForm(ctx, action, url.Values{"weight": {weight}, "reps": {"10"}})
	if err != nil {
		return fmt.Errorf("log set: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("log set failed", slog.Int("status", resp.StatusCode))
	}

	if _, err = client.GetDoc(ctx, "/stats"); err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	if resp, err = client.Get(ctx, "/stats/chart-data"); err != nil {
		return fmt.Errorf("get chart data: %w", err)
	}
	_ = resp.Body.Close()

	logger.LogAttrs(ctx, slog.LevelDebug, "Workout scenario completed",
		slog.Int("device", device.Index), slog.String("action", action))
	return nil
}

// RunLoadTest runs the workout scenario on every device concurrently.
func RunLoadTest(ctx context.Context, devices []*Device, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_devices", len(devices)))

	var successCount, failureCount int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)
	for _, device := range devices {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := WorkoutScenario(scenarioCtx, device, logger); err != nil {
				atomic.AddInt64(&failureCount, 1)
				// Failures are counted, other scenarios keep running.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("device", device.Index), errors.SlogError(err))
				return nil
			}
			atomic.AddInt64(&successCount, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount) / float64(len(devices)) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount),
		slog.Int64("failed", failureCount),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	baseURL := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		baseURL = "http://" + hostname
	}
	client, err := e2etest.NewClient(baseURL)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestPages(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test passed")

	setupStart := time.Now()
	devices, err := SetupDevices(ctx, baseURL, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to seed devices", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Device setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)),
		slog.Int("devices", len(devices)),
		slog.Int("weeks_per_device", historyWeeks))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, devices, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("devices_tested", len(devices)))
}
