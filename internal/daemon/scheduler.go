package daemon

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// Scheduler wraps gocron for the periodic refresh job.
type Scheduler struct {
	scheduler  gocron.Scheduler
	mu         sync.Mutex
	refreshJob gocron.Job
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fnderrors.DaemonError("creating scheduler").
			Cause(err).
			Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// ScheduleRefresh installs the periodic refresh task. A previously installed
// job is replaced, so reloads can change the interval.
func (s *Scheduler) ScheduleRefresh(interval time.Duration, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshJob != nil {
		if err := s.scheduler.RemoveJob(s.refreshJob.ID()); err != nil {
			return fnderrors.DaemonError("removing previous refresh job").
				Cause(err).
				Build()
		}
		s.refreshJob = nil
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName("status-refresh"),
	)
	if err != nil {
		return fnderrors.DaemonError("creating refresh job").
			WithContext("interval", interval.String()).
			Cause(err).
			Build()
	}

	s.refreshJob = job
	return nil
}
