package coach_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitfocus/internal/coach"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/i18n"
	"github.com/myrjola/fitfocus/internal/metrics"
	"github.com/myrjola/fitfocus/internal/testhelpers"
	"github.com/myrjola/fitfocus/internal/tracker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCompleter struct {
	mu       sync.Mutex
	answer   string
	err      error
	requests []coach.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req coach.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.answer, f.err
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newCoach(t *testing.T, completer coach.Completer) (*coach.Coach, *metrics.Manager) {
	t.Helper()
	m := metrics.NewTestManager()
	return coach.New(completer, "", m, testhelpers.NewTestLogger(t)), m
}

func samplePlan() tracker.WorkoutPlan {
	groups := []tracker.MuscleGroup{
		tracker.MuscleGroupChest,
		tracker.MuscleGroupBack,
		tracker.MuscleGroupLegs,
		tracker.MuscleGroupShoulders,
		tracker.MuscleGroupArms,
	}
	weight := 60.0
	plan := tracker.WorkoutPlan{Days: make([]tracker.WorkoutDay, 0, tracker.PlanDays)}
	for i, g := range groups {
		plan.Days = append(plan.Days, tracker.WorkoutDay{
			ID:    fmt.Sprintf("d%d", i+1),
			Title: fmt.Sprintf("%s day", g),
			Exercises: []tracker.Exercise{
				{
					ID:          fmt.Sprintf("d%de1", i+1),
					Name:        "Compound " + string(g),
					MuscleGroup: g,
					Sets:        4,
					Reps:        "8-10",
					Tips:        "Brace before every rep.",
					Weight:      &weight,
				},
				{
					ID:          fmt.Sprintf("d%de2", i+1),
					Name:        "Plank",
					MuscleGroup: tracker.MuscleGroupCore,
					Sets:        3,
					Reps:        "45",
					Tips:        "Keep the hips level.",
					Weight:      nil,
				},
			},
		})
	}
	return plan
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestParsePlan(t *testing.T) {
	want := samplePlan()
	completer := &fakeCompleter{answer: mustJSON(t, want)}
	c, m := newCoach(t, completer)

	got, err := c.ParsePlan(t.Context(), "Monday: bench 4x8-10", i18n.Portuguese)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	req := completer.requests[0]
	if req.Schema == nil || req.SchemaName != "workout_plan" || req.Model != coach.DefaultModel {
		t.Errorf("unexpected request %+v", req)
	}
	for _, fragment := range []string{"Monday: bench 4x8-10", "exactly 5 workout days", "Brazilian Portuguese", `"8-10"`} {
		if !strings.Contains(req.Prompt, fragment) {
			t.Errorf("prompt does not contain %q", fragment)
		}
	}
	if got := testutil.ToFloat64(m.CounterRemoteCalls.WithLabelValues("plan", metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("success counter = %v, want 1", got)
	}
}

func TestParsePlan_emptyInput(t *testing.T) {
	completer := &fakeCompleter{}
	c, _ := newCoach(t, completer)
	for _, input := range []string{"", "   \n\t"} {
		if _, err := c.ParsePlan(t.Context(), input, i18n.English); !errors.Is(err, coach.ErrEmptyInput) {
			t.Errorf("ParsePlan(%q) error = %v, want ErrEmptyInput", input, err)
		}
	}
	if completer.calls() != 0 {
		t.Errorf("blank input reached the LLM")
	}
}

func TestParsePlan_invalidResponses(t *testing.T) {
	tests := []struct {
		name    string
		answer  func(t *testing.T) string
		problem string
	}{
		{
			name: "four days",
			answer: func(t *testing.T) string {
				p := samplePlan()
				p.Days = p.Days[:4]
				return mustJSON(t, p)
			},
			problem: "plan has 4 days",
		},
		{
			name: "unknown muscle group",
			answer: func(t *testing.T) string {
				p := samplePlan()
				p.Days[2].Exercises[0].MuscleGroup = "Glutes"
				return mustJSON(t, p)
			},
			problem: `unknown muscle group "Glutes"`,
		},
		{
			name: "bad reps",
			answer: func(t *testing.T) string {
				p := samplePlan()
				p.Days[0].Exercises[1].Reps = "AMRAP"
				return mustJSON(t, p)
			},
			problem: `reps "AMRAP"`,
		},
		{
			name: "unknown field",
			answer: func(*testing.T) string {
				return `{"days": [], "notes": "extra"}`
			},
			problem: "decode",
		},
		{
			name:    "not json",
			answer:  func(*testing.T) string { return "Sure! Here is your plan." },
			problem: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m := newCoach(t, &fakeCompleter{answer: tt.answer(t)})
			_, err := c.ParsePlan(t.Context(), "my routine", i18n.English)
			if !errors.Is(err, coach.ErrSchemaValidation) || !errors.Is(err, coach.ErrRemoteService) {
				t.Fatalf("error = %v, want ErrSchemaValidation and ErrRemoteService", err)
			}
			var validationErr *coach.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("error %v is not a *ValidationError", err)
			}
			if !strings.Contains(strings.Join(validationErr.Problems, "\n"), tt.problem) {
				t.Errorf("problems %v do not mention %q", validationErr.Problems, tt.problem)
			}
			if got := testutil.ToFloat64(m.CounterRemoteCalls.WithLabelValues("plan", metrics.OutcomeInvalid)); got != 1 {
				t.Errorf("invalid counter = %v, want 1", got)
			}
		})
	}
}

func TestParsePlan_remoteFailure(t *testing.T) {
	c, m := newCoach(t, &fakeCompleter{err: coach.ErrNotConfigured})
	_, err := c.ParsePlan(t.Context(), "my routine", i18n.English)
	if !errors.Is(err, coach.ErrRemoteService) {
		t.Fatalf("error = %v, want ErrRemoteService", err)
	}
	if errors.Is(err, coach.ErrSchemaValidation) {
		t.Errorf("transport failure must not look like a schema failure")
	}
	if got := testutil.ToFloat64(m.CounterRemoteCalls.WithLabelValues("plan", metrics.OutcomeFailure)); got != 1 {
		t.Errorf("failure counter = %v, want 1", got)
	}
}

func logHistory(n int) []tracker.LogEntry {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	logs := make([]tracker.LogEntry, 0, n)
	for i := range n {
		logs = append(logs, tracker.LogEntry{
			Date:          start.Add(time.Duration(i) * 24 * time.Hour),
			ExerciseID:    "bench",
			ExerciseName:  fmt.Sprintf("Bench %02d", i),
			MuscleGroup:   tracker.MuscleGroupChest,
			SetsCompleted: 1,
			RepsCompleted: 8,
			Weight:        60 + float64(i)/2,
		})
	}
	return logs
}

func TestSummarize_placeholder(t *testing.T) {
	completer := &fakeCompleter{answer: "insight"}
	c, m := newCoach(t, completer)

	for _, lang := range i18n.SupportedLanguages() {
		got, err := c.Summarize(t.Context(), logHistory(coach.MinInsightLogs-1), lang)
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if want := i18n.Translate(lang, "insight.placeholder"); got != want {
			t.Errorf("Summarize(%s) = %q, want placeholder %q", lang, got, want)
		}
	}
	if completer.calls() != 0 {
		t.Errorf("placeholder path called the LLM %d times", completer.calls())
	}
	if got := testutil.ToFloat64(m.CounterRemoteCalls.WithLabelValues("insight", metrics.OutcomePlaceholder)); got != 2 {
		t.Errorf("placeholder counter = %v, want 2", got)
	}

	if _, err := c.Summarize(t.Context(), logHistory(coach.MinInsightLogs), i18n.English); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if completer.calls() != 1 {
		t.Errorf("threshold history did not reach the LLM")
	}
}

func TestSummarize_sendsRecentLogsOldestFirst(t *testing.T) {
	completer := &fakeCompleter{answer: "## Progressive overload\nSolid."}
	c, _ := newCoach(t, completer)

	logs := logHistory(coach.MaxInsightLogs + 10)
	// Shuffle deterministically; the prompt must still be chronological.
	shuffled := append(append([]tracker.LogEntry{}, logs[30:]...), logs[:30]...)

	got, err := c.Summarize(t.Context(), shuffled, i18n.English)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "## Progressive overload\nSolid." {
		t.Errorf("Summarize() = %q", got)
	}

	prompt := completer.requests[0].Prompt
	if completer.requests[0].Schema != nil {
		t.Errorf("insight must be requested as free text")
	}
	if strings.Contains(prompt, "Bench 09 ") {
		t.Errorf("prompt contains an entry older than the most recent %d", coach.MaxInsightLogs)
	}
	first := strings.Index(prompt, "2024-03-11: Bench 10 - 65kg x 8 reps")
	last := strings.Index(prompt, "2024-04-29: Bench 59 - 89.5kg x 8 reps")
	if first < 0 || last < 0 || first > last {
		t.Errorf("prompt lines missing or out of order:\n%s", prompt)
	}
}

func TestSummarize_cachesIdenticalHistory(t *testing.T) {
	completer := &fakeCompleter{answer: "cached insight"}
	c, m := newCoach(t, completer)
	logs := logHistory(10)

	for range 3 {
		got, err := c.Summarize(t.Context(), logs, i18n.English)
		if err != nil || got != "cached insight" {
			t.Fatalf("Summarize() = %q, %v", got, err)
		}
	}
	if completer.calls() != 1 {
		t.Errorf("LLM called %d times, want 1", completer.calls())
	}
	if got := testutil.ToFloat64(m.CounterRemoteCalls.WithLabelValues("insight", metrics.OutcomeCached)); got != 2 {
		t.Errorf("cached counter = %v, want 2", got)
	}

	// A different language is a different prompt.
	if _, err := c.Summarize(t.Context(), logs, i18n.Portuguese); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if completer.calls() != 2 {
		t.Errorf("LLM called %d times, want 2", completer.calls())
	}
}

func TestSummarize_concurrent(t *testing.T) {
	completer := &fakeCompleter{answer: "same"}
	c, _ := newCoach(t, completer)
	logs := logHistory(12)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			got, err := c.Summarize(t.Context(), logs, i18n.English)
			if err != nil || got != "same" {
				t.Errorf("Summarize() = %q, %v", got, err)
			}
		})
	}
	wg.Wait()
	if calls := completer.calls(); calls < 1 || calls > 8 {
		t.Errorf("LLM called %d times", calls)
	}
}

// blockingCompleter answers once release is closed, or fails when the call's context ends first.
type blockingCompleter struct {
	release chan struct{}
	mu      sync.Mutex
	n       int
	ctxErr  error
}

func (b *blockingCompleter) Complete(ctx context.Context, _ coach.CompletionRequest) (string, error) {
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	select {
	case <-b.release:
		return "shared insight", nil
	case <-ctx.Done():
		b.mu.Lock()
		b.ctxErr = ctx.Err()
		b.mu.Unlock()
		return "", ctx.Err()
	}
}

func (b *blockingCompleter) state() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n, b.ctxErr
}

func TestSummarize_cancelledCallerDoesNotFailOthers(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		completer := &blockingCompleter{release: make(chan struct{})} //nolint:exhaustruct // zero counters.
		c, _ := newCoach(t, completer)
		logs := logHistory(10)

		firstCtx, cancelFirst := context.WithCancel(t.Context())
		firstErr := make(chan error, 1)
		go func() {
			_, err := c.Summarize(firstCtx, logs, i18n.English)
			firstErr <- err
		}()
		synctest.Wait()

		type result struct {
			text string
			err  error
		}
		second := make(chan result, 1)
		go func() {
			text, err := c.Summarize(t.Context(), logs, i18n.English)
			second <- result{text: text, err: err}
		}()
		synctest.Wait()

		cancelFirst()
		if err := <-firstErr; !errors.Is(err, context.Canceled) || !errors.Is(err, coach.ErrRemoteService) {
			t.Errorf("first caller error = %v, want context.Canceled and ErrRemoteService", err)
		}
		synctest.Wait()
		if _, ctxErr := completer.state(); ctxErr != nil {
			t.Fatalf("shared call ended with the first caller: %v", ctxErr)
		}

		close(completer.release)
		if got := <-second; got.err != nil || got.text != "shared insight" {
			t.Errorf("second caller = %q, %v", got.text, got.err)
		}
		if n, _ := completer.state(); n != 1 {
			t.Errorf("LLM called %d times, want 1", n)
		}
		if got, err := c.Summarize(t.Context(), logs, i18n.English); err != nil || got != "shared insight" {
			t.Errorf("Summarize() after the shared call = %q, %v", got, err)
		}
	})
}

func TestSummarize_abandonedCallIsBounded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		completer := &blockingCompleter{release: make(chan struct{})} //nolint:exhaustruct // zero counters.
		c, _ := newCoach(t, completer)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = c.Summarize(ctx, logHistory(10), i18n.English)
		}()
		synctest.Wait()
		cancel()
		<-done

		time.Sleep(time.Minute)
		synctest.Wait()
		if _, ctxErr := completer.state(); !errors.Is(ctxErr, context.DeadlineExceeded) {
			t.Errorf("abandoned call ended with %v, want deadline exceeded", ctxErr)
		}
	})
}

func TestSummarize_remoteFailureIsNotCached(t *testing.T) {
	completer := &fakeCompleter{err: &coach.RemoteError{Kind: coach.FailureServer, StatusCode: 503, Err: errors.New("down")}}
	c, _ := newCoach(t, completer)
	logs := logHistory(8)

	if _, err := c.Summarize(t.Context(), logs, i18n.English); !errors.Is(err, coach.ErrRemoteService) {
		t.Fatalf("error = %v, want ErrRemoteService", err)
	}

	completer.mu.Lock()
	completer.err = nil
	completer.answer = "recovered"
	completer.mu.Unlock()
	if got, err := c.Summarize(t.Context(), logs, i18n.English); err != nil || got != "recovered" {
		t.Errorf("Summarize() after recovery = %q, %v", got, err)
	}
}
