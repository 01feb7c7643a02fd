package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hibiken/asynq"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/observability"
)

const defaultWarmConcurrency = 4

// OptionWarmer is the option cache a warm-up job fills.
type OptionWarmer interface {
	Warm(ctx context.Context, queries []listctl.OptionQuery, limit int) (int, error)
	Invalidate(ctx context.Context, resource string) error
}

// OptionsJob keeps the shared option cache populated.
type OptionsJob struct {
	Store   OptionWarmer
	Roots   []listctl.OptionQuery
	Logger  *slog.Logger
	Metrics *observability.JobMetrics
}

// NewOptionsJob wires dependencies for the option handlers. roots are the
// queries warmed when a payload names no resources.
func NewOptionsJob(store OptionWarmer, roots []listctl.OptionQuery, logger *slog.Logger, metrics *observability.JobMetrics) *OptionsJob {
	return &OptionsJob{Store: store, Roots: roots, Logger: logger, Metrics: metrics}
}

// HandleWarm processes TaskWarmOptions tasks.
func (j *OptionsJob) HandleWarm(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("options warm: handler not configured")
	}
	var payload WarmOptionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("options warm payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskWarmOptions)
	queries := j.queries(payload.Resources)
	limit := payload.Concurrency
	if limit <= 0 {
		limit = defaultWarmConcurrency
	}
	logger := j.logger().With(slog.Int("lists", len(queries)))
	logger.Info("starting option warm-up")

	warmed, err := j.Store.Warm(ctx, queries, limit)
	j.Metrics.AddWarmed(warmed)
	if err != nil {
		logger.Error("option warm-up failed", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("option warm-up finished", slog.Int("warmed", warmed))
	return tracker.End(nil)
}

// HandleInvalidate processes TaskInvalidateOptions tasks.
func (j *OptionsJob) HandleInvalidate(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("options invalidate: handler not configured")
	}
	var payload InvalidateOptionsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("options invalidate payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskInvalidateOptions)
	for _, resource := range payload.Resources {
		if err := j.Store.Invalidate(ctx, resource); err != nil {
			return tracker.End(err)
		}
		j.logger().Info("option cache invalidated", slog.String("resource", resource))
	}
	return tracker.End(nil)
}

// queries returns the default roots, or one unparented query per resource.
func (j *OptionsJob) queries(resources []string) []listctl.OptionQuery {
	if len(resources) == 0 {
		return j.Roots
	}
	out := make([]listctl.OptionQuery, 0, len(resources))
	for _, resource := range resources {
		q := listctl.OptionQuery{Resource: resource}
		if !slices.Contains(out, q) {
			out = append(out, q)
		}
	}
	return out
}

func (j *OptionsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", "options"))
	}
	return slog.Default().With(slog.String("job", "options"))
}
