package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	runStatusRunning   = "running"
	runStatusCompleted = "completed"
	runStatusFailed    = "failed"
)

// RunSummaryView is a read model summarizing one refresh run.
type RunSummaryView struct {
	RunID        string     `json:"run_id"`
	Org          string     `json:"org,omitempty"`
	Trigger      string     `json:"trigger,omitempty"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Duration     int64      `json:"duration_ms,omitempty"`
	Recorded     int        `json:"recorded"`
	Total        int        `json:"total"`
	Onboarded    int        `json:"onboarded"`
	InProgress   int        `json:"in_progress"`
	NotOnboarded int        `json:"not_onboarded"`
	Errors       int        `json:"errors"`
	Candidates   int        `json:"candidates"`
	ErrorStage   string     `json:"error_stage,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// RunHistoryProjection maintains an in-memory view of the refresh history,
// reconstructed from events in the store.
type RunHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	runs     map[string]*RunSummaryView
	history  []*RunSummaryView // newest first
	maxSize  int
	lastSync time.Time
}

// NewRunHistoryProjection creates a projection backed by the given store.
func NewRunHistoryProjection(s Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   s,
		runs:    make(map[string]*RunSummaryView),
		history: make([]*RunSummaryView, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store,
// typically at daemon startup.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummaryView)
	p.history = make([]*RunSummaryView, 0, p.maxSize)

	for _, event := range events {
		p.applyLocked(event)
	}

	p.sortHistoryLocked()
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event as it is emitted.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(event)
}

func (p *RunHistoryProjection) applyLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}

	summary, exists := p.runs[runID]
	if !exists {
		summary = &RunSummaryView{
			RunID:     runID,
			Status:    runStatusRunning,
			StartedAt: event.Timestamp(),
		}
		p.runs[runID] = summary
	}

	switch event.Type() {
	case TypeRunStarted:
		summary.StartedAt = event.Timestamp()
		summary.Status = runStatusRunning
		var payload struct {
			Org     string `json:"org"`
			Trigger string `json:"trigger"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Org = payload.Org
			summary.Trigger = payload.Trigger
		}

	case TypeRepoStatusRecorded:
		summary.Recorded++

	case TypeRunCompleted:
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Status = runStatusCompleted
		var report RunReportData
		if err := json.Unmarshal(event.Payload(), &report); err == nil {
			summary.Total = report.Total
			summary.Onboarded = report.Onboarded
			summary.InProgress = report.InProgress
			summary.NotOnboarded = report.NotOnboarded
			summary.Errors = report.Errors
			summary.Candidates = report.Candidates
			summary.Duration = report.DurationMS
		}
		if summary.Duration == 0 {
			summary.Duration = now.Sub(summary.StartedAt).Milliseconds()
		}
		p.addToHistoryLocked(summary)

	case TypeRunFailed:
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt).Milliseconds()
		summary.Status = runStatusFailed
		var payload struct {
			Stage string `json:"stage"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *RunHistoryProjection) addToHistoryLocked(summary *RunSummaryView) {
	for _, h := range p.history {
		if h.RunID == summary.RunID {
			return
		}
	}

	p.history = append([]*RunSummaryView{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()
}

// pruneRunsLocked drops finished runs that fell out of the bounded history.
// Runs still marked running are kept.
func (p *RunHistoryProjection) pruneRunsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}

	for id, summary := range p.runs {
		if summary.Status == runStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

func (p *RunHistoryProjection) sortHistoryLocked() {
	// Insertion sort, history is small.
	for i := 1; i < len(p.history); i++ {
		for j := i; j > 0 && p.history[j].StartedAt.After(p.history[j-1].StartedAt); j-- {
			p.history[j], p.history[j-1] = p.history[j-1], p.history[j]
		}
	}
}

// GetHistory returns the run history, newest first.
func (p *RunHistoryProjection) GetHistory() []*RunSummaryView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*RunSummaryView, len(p.history))
	copy(result, p.history)
	return result
}

// GetRun returns the summary for a specific run.
func (p *RunHistoryProjection) GetRun(runID string) (*RunSummaryView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.runs[runID]
	if !exists {
		return nil, false
	}
	cp := *summary
	return &cp, true
}

// GetActiveRun returns a currently running refresh if any.
func (p *RunHistoryProjection) GetActiveRun() *RunSummaryView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, summary := range p.runs {
		if summary.Status == runStatusRunning {
			cp := *summary
			return &cp
		}
	}
	return nil
}

// GetLastCompletedRun returns the most recently finished run, successful or
// not.
func (p *RunHistoryProjection) GetLastCompletedRun() *RunSummaryView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return nil
	}
	cp := *p.history[0]
	return &cp
}

// LastSyncTime returns when the projection was last rebuilt.
func (p *RunHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
