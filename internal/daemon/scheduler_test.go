package daemon

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTask(t *testing.T) {
	sched, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Stop() })

	var runs atomic.Int32
	require.NoError(t, sched.ScheduleRefresh(20*time.Millisecond, func() { runs.Add(1) }))
	sched.Start()

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestScheduleRefreshReplacesExistingJob(t *testing.T) {
	sched, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Stop() })

	var first, second atomic.Int32
	require.NoError(t, sched.ScheduleRefresh(time.Hour, func() { first.Add(1) }))
	require.NoError(t, sched.ScheduleRefresh(20*time.Millisecond, func() { second.Add(1) }))
	sched.Start()

	require.Eventually(t, func() bool {
		return second.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)
	require.Zero(t, first.Load())
}
