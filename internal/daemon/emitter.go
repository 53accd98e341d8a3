package daemon

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/events"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
	"git.home.luguber.info/inful/stagehand/internal/store"
)

// Emitter records run lifecycle events: persist to the store, update the
// projection, and forward to NATS when a publisher is configured. Store
// failures are returned; publish failures are only logged, an unreachable
// broker must not fail a refresh.
type Emitter struct {
	store      store.Store
	projection *store.RunHistoryProjection
	publisher  *events.Publisher
	logger     *slog.Logger
}

// NewEmitter creates an emitter. publisher may be nil.
func NewEmitter(s store.Store, projection *store.RunHistoryProjection, publisher *events.Publisher, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		store:      s,
		projection: projection,
		publisher:  publisher,
		logger:     logger,
	}
}

// EmitEvent is the canonical way to record a run lifecycle event.
func (e *Emitter) EmitEvent(ctx context.Context, event store.Event) error {
	if e.store != nil {
		if err := e.store.Append(ctx, event.RunID(), event.Type(), event.Payload(), event.Metadata()); err != nil {
			return fnderrors.StoreError("persisting run event").
				WithContext(logfields.KeyRunID, event.RunID()).
				Cause(err).
				Build()
		}
	}

	if e.projection != nil {
		e.projection.Apply(event)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishEvent(event); err != nil {
			e.logger.Warn("publishing run event failed",
				logfields.RunID(event.RunID()),
				logfields.Error(err))
		}
	}

	return nil
}

// EmitRunStarted records the beginning of a refresh run.
func (e *Emitter) EmitRunStarted(ctx context.Context, runID, org, trigger string) error {
	event, err := store.NewRunStarted(runID, org, trigger)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitRepoStatus records one repository's resolved status.
func (e *Emitter) EmitRepoStatus(ctx context.Context, runID string, rs catalog.RepoStatus) error {
	event, err := store.NewRepoStatusRecorded(runID, store.RepoStatusData{
		Repo:     rs.Name,
		Status:   string(rs.Status),
		PRNumber: rs.PRNumber,
		Error:    rs.Err,
	})
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitRunCompleted records a successful refresh with its summary counts.
func (e *Emitter) EmitRunCompleted(ctx context.Context, runID string, report store.RunReportData) error {
	event, err := store.NewRunCompleted(runID, report)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}

// EmitRunFailed records a refresh that gave up after retries.
func (e *Emitter) EmitRunFailed(ctx context.Context, runID, stage, errorMsg string) error {
	event, err := store.NewRunFailed(runID, stage, errorMsg)
	if err != nil {
		return err
	}
	return e.EmitEvent(ctx, event)
}
