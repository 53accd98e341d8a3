package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/store"
)

func TestEmitterPersistsAndProjects(t *testing.T) {
	eventStore, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eventStore.Close() })

	projection := store.NewRunHistoryProjection(eventStore, 10)
	emitter := NewEmitter(eventStore, projection, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, emitter.EmitRunStarted(ctx, "run-1", "acme", TriggerSchedule))
	require.NoError(t, emitter.EmitRepoStatus(ctx, "run-1", catalog.RepoStatus{
		Name:   "svc",
		Status: catalog.StatusOnboarded,
	}))
	require.NoError(t, emitter.EmitRunCompleted(ctx, "run-1", store.RunReportData{
		Total:     1,
		Onboarded: 1,
	}))

	events, err := eventStore.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, store.TypeRunStarted, events[0].Type())
	require.Equal(t, store.TypeRepoStatusRecorded, events[1].Type())
	require.Equal(t, store.TypeRunCompleted, events[2].Type())

	last := projection.GetLastCompletedRun()
	require.NotNil(t, last)
	require.Equal(t, "run-1", last.RunID)
	require.Equal(t, 1, last.Onboarded)
}

func TestEmitterRecordsFailureStage(t *testing.T) {
	eventStore, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eventStore.Close() })

	projection := store.NewRunHistoryProjection(eventStore, 10)
	emitter := NewEmitter(eventStore, projection, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, emitter.EmitRunStarted(ctx, "run-2", "acme", TriggerStartup))
	require.NoError(t, emitter.EmitRunFailed(ctx, "run-2", stageScore, "scoring blew up"))

	run, ok := projection.GetRun("run-2")
	require.True(t, ok)
	require.Equal(t, "failed", run.Status)
	require.Equal(t, stageScore, run.ErrorStage)
	require.Equal(t, "scoring blew up", run.ErrorMessage)
}
