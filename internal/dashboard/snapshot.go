package dashboard

import (
	"html/template"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/foundation"
	"git.home.luguber.info/inful/stagehand/internal/store"
)

// Snapshot is the dashboard view produced by one daemon refresh. The report
// is rendered here, at refresh time, so request handlers never compute
// anything.
type Snapshot struct {
	Org            string          `json:"org"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Summary        catalog.Summary `json:"summary"`
	Report         string          `json:"report"`
	Candidates     int             `json:"candidates"`
	ReportHTML     template.HTML   `json:"-"`
	ReportSections []string        `json:"report_sections,omitempty"`
}

// NewSnapshot renders the markdown report once and captures its section
// headings. A render failure falls back to the escaped source.
func NewSnapshot(org string, summary catalog.Summary, report string, candidates int, generatedAt time.Time) Snapshot {
	snap := Snapshot{
		Org:         org,
		GeneratedAt: generatedAt,
		Summary:     summary,
		Report:      report,
		Candidates:  candidates,
	}
	rendered, err := RenderMarkdown(report)
	if err != nil {
		snap.ReportHTML = template.HTML("<pre>" + template.HTMLEscapeString(report) + "</pre>") //nolint:gosec // escaped above
		return snap
	}
	snap.ReportHTML = rendered
	snap.ReportSections = ExtractHeadings(string(rendered))
	return snap
}

// Provider hands the dashboard its data. The daemon implements it; tests use
// a fake.
type Provider interface {
	Snapshot() foundation.Option[Snapshot]
	History() []*store.RunSummaryView
	ActiveRun() *store.RunSummaryView
}
