package catalog

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/foundation"
)

// Status is the onboarding state of a repository.
type Status string

const (
	StatusOnboarded    Status = "onboarded"
	StatusInProgress   Status = "in_progress"
	StatusNotOnboarded Status = "not_onboarded"
	StatusError        Status = "error"
)

// BranchMarker is the token that identifies onboarding branches in open
// pull requests.
const BranchMarker = "backstage-integration"

var statusNormalizer = foundation.NewNormalizer(map[string]Status{
	"onboarded":     StatusOnboarded,
	"in_progress":   StatusInProgress,
	"in progress":   StatusInProgress,
	"not_onboarded": StatusNotOnboarded,
	"not onboarded": StatusNotOnboarded,
	"error":         StatusError,
}, StatusNotOnboarded)

// ParseStatus maps a stored or user-supplied status string onto a Status,
// defaulting to not_onboarded for unrecognized input.
func ParseStatus(raw string) Status {
	return statusNormalizer.Normalize(raw)
}

// RepoStatus is the resolved status of a single repository. PRNumber is set
// for in-progress repositories, Err for failed lookups.
type RepoStatus struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	PRNumber int    `json:"pr_number,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Line renders the detail line for the status report.
func (r RepoStatus) Line() string {
	switch r.Status {
	case StatusOnboarded:
		return fmt.Sprintf("✅ %s: Onboarded", r.Name)
	case StatusInProgress:
		return fmt.Sprintf("🔄 %s: In Progress (PR #%d)", r.Name, r.PRNumber)
	case StatusError:
		return fmt.Sprintf("⚠️ %s: Error - %s", r.Name, r.Err)
	default:
		return fmt.Sprintf("❌ %s: Not Onboarded", r.Name)
	}
}

// Summary aggregates per-repository statuses. Error rows count toward Total
// but none of the three positive buckets.
type Summary struct {
	Total        int          `json:"total"`
	Onboarded    int          `json:"onboarded"`
	InProgress   int          `json:"in_progress"`
	NotOnboarded int          `json:"not_onboarded"`
	Errors       int          `json:"errors"`
	Details      []RepoStatus `json:"details"`
}

// Summarize tallies statuses in the order given; Details keeps that order.
func Summarize(statuses []RepoStatus) Summary {
	s := Summary{Details: statuses}
	for _, st := range statuses {
		s.Total++
		switch st.Status {
		case StatusOnboarded:
			s.Onboarded++
		case StatusInProgress:
			s.InProgress++
		case StatusNotOnboarded:
			s.NotOnboarded++
		case StatusError:
			s.Errors++
		}
	}
	return s
}

// BuildStatusReport renders the markdown status report.
func BuildStatusReport(summary Summary, generatedAt time.Time) string {
	lines := []string{
		fmt.Sprintf("## Status Summary (%s)", generatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		fmt.Sprintf("- Total Repositories: %d", summary.Total),
		fmt.Sprintf("- ✅ Onboarded: %d", summary.Onboarded),
		fmt.Sprintf("- 🔄 In Progress: %d", summary.InProgress),
		fmt.Sprintf("- ❌ Not Onboarded: %d", summary.NotOnboarded),
		"",
		"## Repository Details:",
	}
	for _, st := range summary.Details {
		lines = append(lines, st.Line())
	}
	return strings.Join(lines, "\n")
}
