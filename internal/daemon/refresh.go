package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/dashboard"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
	"git.home.luguber.info/inful/stagehand/internal/metrics"
	"git.home.luguber.info/inful/stagehand/internal/store"
)

// Stages recorded on run failure events.
const (
	stageStatus = "status"
	stageScore  = "score"
)

// refresh executes one full status pass: gather summary and candidates from
// the forge, rebuild the dashboard snapshot, and record the run in the event
// store. Runs are serialized; a tick that fires while the previous run is
// still talking to the forge waits its turn.
func (d *Daemon) refresh(ctx context.Context, trigger string) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	runID := d.newRunID()
	org := d.orgName()
	logger := d.logger.With(logfields.RunID(runID))
	startedAt := d.now()

	logger.Info("refresh started", slog.String("trigger", trigger), logfields.Org(org))

	if err := d.emitter.EmitRunStarted(ctx, runID, org, trigger); err != nil {
		logger.Error("recording run start", logfields.Error(err))
	}

	summary, candidates, stage, err := d.gather(ctx, logger)
	if err != nil {
		d.completeFailure(ctx, logger, runID, stage, err)
		return
	}

	generatedAt := d.now()
	report := catalog.BuildPriorityReport(candidates, generatedAt, d.service().Options().ReportLimit)
	d.setSnapshot(dashboard.NewSnapshot(org, summary, report, len(candidates), generatedAt))

	for _, rs := range summary.Details {
		if err := d.emitter.EmitRepoStatus(ctx, runID, rs); err != nil {
			logger.Error("recording repository status",
				logfields.Repository(rs.Name),
				logfields.Error(err))
		}
	}

	duration := d.now().Sub(startedAt)
	if err := d.emitter.EmitRunCompleted(ctx, runID, store.RunReportData{
		Total:        summary.Total,
		Onboarded:    summary.Onboarded,
		InProgress:   summary.InProgress,
		NotOnboarded: summary.NotOnboarded,
		Errors:       summary.Errors,
		Candidates:   len(candidates),
		DurationMS:   duration.Milliseconds(),
	}); err != nil {
		logger.Error("recording run completion", logfields.Error(err))
	}

	d.recorder.ObserveRefreshDuration(duration)
	d.recorder.IncRefreshResult(metrics.ResultSuccess)
	d.recorder.SetStatusCounts(summary.Onboarded, summary.InProgress, summary.NotOnboarded, summary.Errors)
	d.recorder.SetReportCandidates(len(candidates))
	d.recorder.SetLastRefreshTime(generatedAt)

	logger.Info("refresh completed",
		logfields.Count(summary.Total),
		slog.Int("onboarded", summary.Onboarded),
		slog.Int("candidates", len(candidates)),
		logfields.DurationMS(float64(duration.Milliseconds())),
	)
}

// gather pulls status and priority data with retries per the configured
// backoff policy. The returned stage names the phase that exhausted retries.
func (d *Daemon) gather(ctx context.Context, logger *slog.Logger) (catalog.Summary, []catalog.PriorityScore, string, error) {
	svc := d.service()
	policy := d.currentPolicy()

	var lastErr error
	stage := stageStatus
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt)
			logger.Warn("refresh attempt failed, backing off",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				logfields.Stage(stage),
				logfields.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return catalog.Summary{}, nil, stage, ctx.Err()
			}
		}

		summary, err := svc.StatusAll(ctx)
		if err != nil {
			stage, lastErr = stageStatus, err
			if ctx.Err() != nil {
				return catalog.Summary{}, nil, stage, err
			}
			continue
		}

		candidates, err := svc.ScoreAll(ctx)
		if err != nil {
			stage, lastErr = stageScore, err
			if ctx.Err() != nil {
				return catalog.Summary{}, nil, stage, err
			}
			continue
		}

		return summary, candidates, "", nil
	}
	return catalog.Summary{}, nil, stage, lastErr
}

// completeFailure records the failed run and its metrics. The failure event
// is written with a detached context so a shutdown-canceled run still lands
// in the store.
func (d *Daemon) completeFailure(ctx context.Context, logger *slog.Logger, runID, stage string, gatherErr error) {
	result := metrics.ResultFailed
	if errors.Is(gatherErr, context.Canceled) || errors.Is(gatherErr, context.DeadlineExceeded) {
		result = metrics.ResultCanceled
	}

	emitCtx := context.WithoutCancel(ctx)
	if err := d.emitter.EmitRunFailed(emitCtx, runID, stage, gatherErr.Error()); err != nil {
		logger.Error("recording run failure", logfields.Error(err))
	}

	d.recorder.IncRefreshResult(result)
	logger.Error("refresh failed", logfields.Stage(stage), logfields.Error(gatherErr))
}
