package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	refreshDuration    prom.Histogram
	refreshResults     *prom.CounterVec
	repositories       *prom.GaugeVec
	onboardingOutcomes *prom.CounterVec
	reportCandidates   prom.Gauge
	lastRefresh        prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.refreshDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "stagehand",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of full organization refresh runs",
			Buckets:   prom.DefBuckets,
		})
		pr.refreshResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stagehand",
			Name:      "refresh_results_total",
			Help:      "Refresh run results by outcome",
		}, []string{"result"})
		pr.repositories = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "stagehand",
			Name:      "repositories",
			Help:      "Repository counts by onboarding status from the last refresh",
		}, []string{"status"})
		pr.onboardingOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stagehand",
			Name:      "onboarding_outcomes_total",
			Help:      "Onboarding attempts by per-repository outcome",
		}, []string{"outcome"})
		pr.reportCandidates = prom.NewGauge(prom.GaugeOpts{
			Namespace: "stagehand",
			Name:      "report_candidates",
			Help:      "Repositories above the score threshold in the last priority report",
		})
		pr.lastRefresh = prom.NewGauge(prom.GaugeOpts{
			Namespace: "stagehand",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last completed refresh",
		})
		reg.MustRegister(pr.refreshDuration, pr.refreshResults, pr.repositories, pr.onboardingOutcomes, pr.reportCandidates, pr.lastRefresh)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRefreshDuration(d time.Duration) {
	if p == nil || p.refreshDuration == nil {
		return
	}
	p.refreshDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRefreshResult(result ResultLabel) {
	if p == nil || p.refreshResults == nil {
		return
	}
	p.refreshResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetStatusCounts(onboarded, inProgress, notOnboarded, errored int) {
	if p == nil || p.repositories == nil {
		return
	}
	p.repositories.WithLabelValues("onboarded").Set(float64(onboarded))
	p.repositories.WithLabelValues("in_progress").Set(float64(inProgress))
	p.repositories.WithLabelValues("not_onboarded").Set(float64(notOnboarded))
	p.repositories.WithLabelValues("error").Set(float64(errored))
}

func (p *PrometheusRecorder) IncOnboardingOutcome(outcome string) {
	if p == nil || p.onboardingOutcomes == nil {
		return
	}
	p.onboardingOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetReportCandidates(n int) {
	if p == nil || p.reportCandidates == nil {
		return
	}
	p.reportCandidates.Set(float64(n))
}

func (p *PrometheusRecorder) SetLastRefreshTime(t time.Time) {
	if p == nil || p.lastRefresh == nil {
		return
	}
	p.lastRefresh.Set(float64(t.Unix()))
}
