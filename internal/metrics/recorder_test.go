package metrics

import (
	"testing"
	"time"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = (*testRecorder)(nil)
)

type testRecorder struct {
	refreshDurations int
	refreshResults   map[ResultLabel]int
	statusCounts     [4]int
	outcomes         map[string]int
	candidates       int
	lastRefresh      time.Time
}

func newTestRecorder() *testRecorder {
	return &testRecorder{refreshResults: map[ResultLabel]int{}, outcomes: map[string]int{}}
}

func (t *testRecorder) ObserveRefreshDuration(_ time.Duration) { t.refreshDurations++ }
func (t *testRecorder) IncRefreshResult(result ResultLabel)    { t.refreshResults[result]++ }
func (t *testRecorder) SetStatusCounts(onboarded, inProgress, notOnboarded, errored int) {
	t.statusCounts = [4]int{onboarded, inProgress, notOnboarded, errored}
}
func (t *testRecorder) IncOnboardingOutcome(outcome string) { t.outcomes[outcome]++ }
func (t *testRecorder) SetReportCandidates(n int)           { t.candidates = n }
func (t *testRecorder) SetLastRefreshTime(ts time.Time)     { t.lastRefresh = ts }

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveRefreshDuration(time.Second)
	pr.IncRefreshResult(ResultSuccess)
	pr.SetStatusCounts(1, 2, 3, 0)
	pr.IncOnboardingOutcome("processed")
	pr.SetReportCandidates(5)
	pr.SetLastRefreshTime(time.Now())
}

func TestTestRecorderCaptures(t *testing.T) {
	rec := newTestRecorder()

	var r Recorder = rec
	r.ObserveRefreshDuration(250 * time.Millisecond)
	r.IncRefreshResult(ResultSuccess)
	r.IncRefreshResult(ResultSuccess)
	r.IncRefreshResult(ResultFailed)
	r.SetStatusCounts(4, 1, 7, 2)
	r.IncOnboardingOutcome("skipped")
	r.SetReportCandidates(3)

	if rec.refreshDurations != 1 {
		t.Errorf("expected 1 duration observation, got %d", rec.refreshDurations)
	}
	if rec.refreshResults[ResultSuccess] != 2 || rec.refreshResults[ResultFailed] != 1 {
		t.Errorf("unexpected result counts: %v", rec.refreshResults)
	}
	if rec.statusCounts != [4]int{4, 1, 7, 2} {
		t.Errorf("unexpected status counts: %v", rec.statusCounts)
	}
	if rec.outcomes["skipped"] != 1 {
		t.Errorf("unexpected outcomes: %v", rec.outcomes)
	}
	if rec.candidates != 3 {
		t.Errorf("expected 3 candidates, got %d", rec.candidates)
	}
}
