// Package pipeline orchestrates the daily download aggregation run:
// resolve period, query analytics, apply counters, rebuild the popularity
// view.
package pipeline

import (
	"context"
	"time"

	"github.com/cipherhub/cipherhub/pkg/analytics"
	"github.com/cipherhub/cipherhub/pkg/counters"
	"github.com/cipherhub/cipherhub/pkg/observability"
	"github.com/cipherhub/cipherhub/pkg/popularity"
)

// RunSummary reports the outcome of one pipeline run
type RunSummary struct {
	Success        bool      `json:"success"`
	ItemsProcessed int       `json:"items_processed"`
	Timestamp      time.Time `json:"timestamp"`
}

// Pipeline wires the four aggregation stages. Stages execute strictly
// sequentially; the scheduler is responsible for keeping runs from
// overlapping, since counter application is not idempotent.
type Pipeline struct {
	resolver  *analytics.PeriodResolver
	engine    *analytics.QueryEngine
	applier   *counters.Applier
	builder   *popularity.Builder
	eventName string
	logger    *observability.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// New creates a pipeline. metrics may be nil when metrics are disabled.
func New(
	resolver *analytics.PeriodResolver,
	engine *analytics.QueryEngine,
	applier *counters.Applier,
	builder *popularity.Builder,
	eventName string,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		resolver:  resolver,
		engine:    engine,
		applier:   applier,
		builder:   builder,
		eventName: eventName,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Run executes the scheduled daily aggregation over yesterday's window
func (p *Pipeline) Run(ctx context.Context) (RunSummary, error) {
	return p.RunForPeriod(ctx, analytics.PeriodYesterday)
}

// RunForPeriod executes one aggregation pass over the given period.
//
// An analytics query failure degrades to an empty result: the run logs a
// warning, applies no increments, still rebuilds the view, and reports
// success. A counter or view persistence failure propagates and the run
// reports failure. Reprocessing a window that was already applied
// re-increments the counters; that cost is accepted for backfills.
func (p *Pipeline) RunForPeriod(ctx context.Context, period string) (RunSummary, error) {
	log := p.logger.WithField("period", period)
	log.Info("starting aggregation run")

	window := p.resolver.Resolve(period)

	counts, err := p.stageQuery(ctx, window)
	if err != nil {
		// best-effort aggregation: a failed query is indistinguishable
		// from a zero-download window in the run summary
		log.WithError(err).Warn("analytics query failed, proceeding with empty result")
		counts = nil
	}

	applied, err := p.stageApply(ctx, counts)
	if err != nil {
		log.WithError(err).Error("counter application failed")
		return p.finish(RunSummary{Success: false, ItemsProcessed: applied}), err
	}

	if err := p.stageRebuild(ctx); err != nil {
		log.WithError(err).Error("popularity view rebuild failed")
		return p.finish(RunSummary{Success: false, ItemsProcessed: applied}), err
	}

	log.WithField("items_processed", applied).Info("aggregation run completed")
	return p.finish(RunSummary{Success: true, ItemsProcessed: applied}), nil
}

func (p *Pipeline) stageQuery(ctx context.Context, window analytics.DateRange) ([]analytics.DownloadCount, error) {
	defer p.observeStage("query", p.now())
	return p.engine.DownloadCounts(ctx, p.eventName, window)
}

func (p *Pipeline) stageApply(ctx context.Context, counts []analytics.DownloadCount) (int, error) {
	defer p.observeStage("apply", p.now())

	if len(counts) == 0 {
		return 0, nil
	}

	res, err := p.applier.Apply(ctx, counts)
	if p.metrics != nil {
		p.metrics.PipelineItemsApplied.Add(float64(res.Applied))
		p.metrics.PipelineItemsSkipped.Add(float64(res.Skipped))
	}
	return res.Applied, err
}

func (p *Pipeline) stageRebuild(ctx context.Context) error {
	defer p.observeStage("rebuild", p.now())

	view, err := p.builder.Rebuild(ctx)
	if p.metrics != nil {
		if err != nil {
			p.metrics.ViewRebuildsTotal.WithLabelValues("error").Inc()
		} else {
			p.metrics.ViewRebuildsTotal.WithLabelValues("success").Inc()
			p.metrics.ViewSize.Set(float64(len(view.Ciphers)))
		}
	}
	return err
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.PipelineStageDuration.WithLabelValues(stage).Observe(p.now().Sub(start).Seconds())
	}
}

func (p *Pipeline) finish(summary RunSummary) RunSummary {
	summary.Timestamp = p.now().UTC()

	if p.metrics != nil {
		status := "success"
		if !summary.Success {
			status = "failure"
		}
		p.metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
		p.metrics.PipelineLastRunTime.Set(float64(summary.Timestamp.Unix()))
	}

	return summary
}
