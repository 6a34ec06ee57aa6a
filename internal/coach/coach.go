// Package coach turns free-text routines into workout plans and log histories into coaching feedback using an LLM.
package coach

import (
	"log/slog"
	"time"

	"github.com/coocood/freecache"
	"github.com/myrjola/fitfocus/internal/i18n"
	"github.com/myrjola/fitfocus/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultModel supports structured outputs.
const DefaultModel = "gpt-4o-2024-08-06"

const insightCacheSize = 4 << 20

// Coach implements tracker.PlanParser and tracker.InsightGenerator.
type Coach struct {
	completer Completer
	model     string
	metrics   *metrics.Manager
	logger    *slog.Logger
	cache     *freecache.Cache
	inflight  singleflight.Group
}

// New creates a Coach. An empty model selects DefaultModel.
func New(completer Completer, model string, m *metrics.Manager, logger *slog.Logger) *Coach {
	if model == "" {
		model = DefaultModel
	}
	return &Coach{
		completer: completer,
		model:     model,
		metrics:   m,
		logger:    logger,
		cache:     freecache.NewCache(insightCacheSize),
		inflight:  singleflight.Group{},
	}
}

func (c *Coach) observe(adapter, outcome string, start time.Time) {
	c.metrics.CounterRemoteCalls.WithLabelValues(adapter, outcome).Inc()
	if !start.IsZero() {
		c.metrics.HistRemoteCallDuration.WithLabelValues(adapter).Observe(time.Since(start).Seconds())
	}
}

func languageName(lang i18n.Language) string {
	return i18n.Translate(lang, "language.prompt")
}
