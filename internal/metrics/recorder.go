package metrics

import "time"

// ResultLabel enumerates refresh run result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for refresh and onboarding metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObserveRefreshDuration(d time.Duration)
	IncRefreshResult(result ResultLabel)
	SetStatusCounts(onboarded, inProgress, notOnboarded, errored int)
	IncOnboardingOutcome(outcome string) // outcome: processed|skipped|failed
	SetReportCandidates(n int)
	SetLastRefreshTime(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRefreshDuration(time.Duration) {}
func (NoopRecorder) IncRefreshResult(ResultLabel)         {}
func (NoopRecorder) SetStatusCounts(int, int, int, int)   {}
func (NoopRecorder) IncOnboardingOutcome(string)          {}
func (NoopRecorder) SetReportCandidates(int)              {}
func (NoopRecorder) SetLastRefreshTime(time.Time)         {}
