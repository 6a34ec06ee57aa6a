package coach

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/i18n"
	"github.com/myrjola/fitfocus/internal/metrics"
	"github.com/myrjola/fitfocus/internal/tracker"
)

const (
	// MinInsightLogs is the history size below which the placeholder is returned.
	MinInsightLogs = 6
	// MaxInsightLogs caps how many of the most recent entries are sent to the LLM.
	MaxInsightLogs = 50

	insightCacheTTL = 15 * time.Minute
	// insightCallTimeout bounds a shared insight call once its callers have stopped waiting.
	insightCallTimeout = 55 * time.Second
	insightAdapter  = "insight"
)

// Summarize returns coaching feedback on the log history as markdown.
func (c *Coach) Summarize(ctx context.Context, logs []tracker.LogEntry, lang i18n.Language) (string, error) {
	if len(logs) < MinInsightLogs {
		c.observe(insightAdapter, metrics.OutcomePlaceholder, time.Time{})
		return i18n.Translate(lang, "insight.placeholder"), nil
	}

	prompt := insightPrompt(recentLogs(logs), lang)
	sum := sha256.Sum256([]byte(c.model + "\x00" + prompt))
	key := sum[:]
	if cached, err := c.cache.Get(key); err == nil {
		c.observe(insightAdapter, metrics.OutcomeCached, time.Time{})
		return string(cached), nil
	}

	// The shared call must outlive any single caller, so it only inherits the context's values.
	ch := c.inflight.DoChan(string(key), func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), insightCallTimeout)
		defer cancel()
		start := time.Now()
		text, err := c.completer.Complete(callCtx, CompletionRequest{ //nolint:exhaustruct // free text answer.
			Prompt: prompt,
			Model:  c.model,
		})
		if err != nil {
			c.observe(insightAdapter, metrics.OutcomeFailure, start)
			return "", fmt.Errorf("complete insight: %w", err)
		}
		c.observe(insightAdapter, metrics.OutcomeSuccess, start)
		if err = c.cache.Set(key, []byte(text), int(insightCacheTTL/time.Second)); err != nil {
			c.logger.LogAttrs(callCtx, slog.LevelWarn, "cache insight", errors.SlogError(err))
		}
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("wait for insight: %w", errors.Join(ErrRemoteService, context.Cause(ctx)))
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err //nolint:wrapcheck // already wrapped inside the flight.
		}
		if res.Shared {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "shared in-flight insight")
		}
		text, _ := res.Val.(string)
		return text, nil
	}
}

// recentLogs returns the last MaxInsightLogs entries in chronological order.
func recentLogs(logs []tracker.LogEntry) []tracker.LogEntry {
	sorted := tracker.Chronological(logs)
	if len(sorted) > MaxInsightLogs {
		sorted = sorted[len(sorted)-MaxInsightLogs:]
	}
	return sorted
}

// formatLogLine renders an entry as "2024-01-31: Bench Press - 60kg x 8 reps".
func formatLogLine(e tracker.LogEntry) string {
	return fmt.Sprintf("%s: %s - %skg x %d reps",
		e.Day(), e.ExerciseName, strconv.FormatFloat(e.Weight, 'f', -1, 64), e.RepsCompleted)
}

func insightPrompt(logs []tracker.LogEntry, lang i18n.Language) string {
	var b strings.Builder
	for _, e := range logs {
		b.WriteString(formatLogLine(e))
		b.WriteByte('\n')
	}
	return fmt.Sprintf(`You are an experienced strength coach. Analyse the training log below, oldest entry first.

Cover these points in short markdown sections:
## Progressive overload
[Which exercises are progressing in weight or reps and which have stalled]

## Volume balance
[Strengths and weaknesses in how volume is split between muscle groups]

## Next steps
[Two or three concrete periodization suggestions for the coming weeks]

Be encouraging and specific. Keep the whole answer under 250 words. Answer in %s.

Training log:
%s`, languageName(lang), b.String())
}
