package store

import (
	"encoding/json"
	"time"

	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// Event type names stored in the run history.
const (
	TypeRunStarted         = "RunStarted"
	TypeRepoStatusRecorded = "RepoStatusRecorded"
	TypeRunCompleted       = "RunCompleted"
	TypeRunFailed          = "RunFailed"
)

// RunStarted is emitted when a refresh run begins.
type RunStarted struct {
	BaseEvent
	Org     string `json:"org"`
	Trigger string `json:"trigger"`
}

// NewRunStarted creates a RunStarted event. Trigger names what kicked the
// run off ("schedule", "startup", "reload").
func NewRunStarted(runID, org, trigger string) (*RunStarted, error) {
	payload, err := json.Marshal(map[string]any{
		"org":     org,
		"trigger": trigger,
	})
	if err != nil {
		return nil, fnderrors.StoreError("marshaling RunStarted payload").
			WithContext("run_id", runID).
			Cause(err).
			Build()
	}

	return &RunStarted{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeRunStarted,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Org:     org,
		Trigger: trigger,
	}, nil
}

// RepoStatusData is the per-repository payload of a status event.
type RepoStatusData struct {
	Repo     string `json:"repo"`
	Status   string `json:"status"`
	PRNumber int    `json:"pr_number,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RepoStatusRecorded is emitted once per repository during a refresh.
type RepoStatusRecorded struct {
	BaseEvent
	Data RepoStatusData `json:"data"`
}

// NewRepoStatusRecorded creates a RepoStatusRecorded event.
func NewRepoStatusRecorded(runID string, data RepoStatusData) (*RepoStatusRecorded, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fnderrors.StoreError("marshaling RepoStatusRecorded payload").
			WithContext("run_id", runID).
			WithContext("repo", data.Repo).
			Cause(err).
			Build()
	}

	return &RepoStatusRecorded{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeRepoStatusRecorded,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Data: data,
	}, nil
}

// RunReportData carries the aggregate counts of a completed refresh run.
type RunReportData struct {
	Total        int   `json:"total"`
	Onboarded    int   `json:"onboarded"`
	InProgress   int   `json:"in_progress"`
	NotOnboarded int   `json:"not_onboarded"`
	Errors       int   `json:"errors"`
	Candidates   int   `json:"candidates"`
	DurationMS   int64 `json:"duration_ms"`
}

// RunCompleted is emitted when a refresh run finishes successfully.
type RunCompleted struct {
	BaseEvent
	Report RunReportData `json:"report"`
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, report RunReportData) (*RunCompleted, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fnderrors.StoreError("marshaling RunCompleted payload").
			WithContext("run_id", runID).
			Cause(err).
			Build()
	}

	return &RunCompleted{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeRunCompleted,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Report: report,
	}, nil
}

// RunFailed is emitted when a refresh run gives up after retries.
type RunFailed struct {
	BaseEvent
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// NewRunFailed creates a RunFailed event.
func NewRunFailed(runID, stage, errorMsg string) (*RunFailed, error) {
	payload, err := json.Marshal(map[string]any{
		"stage": stage,
		"error": errorMsg,
	})
	if err != nil {
		return nil, fnderrors.StoreError("marshaling RunFailed payload").
			WithContext("run_id", runID).
			WithContext("stage", stage).
			Cause(err).
			Build()
	}

	return &RunFailed{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeRunFailed,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Stage: stage,
		Error: errorMsg,
	}, nil
}
