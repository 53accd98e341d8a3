package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// PriorityScore is the integration-priority analysis of one repository.
// Reasons are appended in rule evaluation order and feed the report verbatim.
type PriorityScore struct {
	Name        string
	Score       int
	Reasons     []string
	URL         string
	Description string
	LastPush    time.Time
	Stars       int
	Forks       int
}

// DefaultScoreThreshold is the minimum score (exclusive) for a repository to
// appear in the priority report.
const DefaultScoreThreshold = 30

// DefaultReportLimit caps how many candidates the priority report lists.
const DefaultReportLimit = 10

// docMarkers flag developer-facing content when any of them appears as a
// substring of a root entry name, case-insensitively.
var docMarkers = []string{"README.md", "API.md", "docs", "api", "swagger.yml", "openapi.yml"}

// apiKeywords flag API/SDK affinity in descriptions and topics.
var apiKeywords = []string{"api", "sdk", "library", "client", "developer", "toolkit"}

const (
	recentPushWindow  = 30 * 24 * time.Hour
	establishedAge    = 180 * 24 * time.Hour
	starPoints        = 2
	starCap           = 50
	forkPoints        = 5
	forkCap           = 50
	topicPoints       = 5
	topicCap          = 20
	docPoints         = 30
	keywordPoints     = 20
	metadataPoints    = 10
	recentPushPoints  = 30
	establishedPoints = 20
)

// Scorer computes integration-priority scores. Every rule is independent:
// a failed root-listing probe skips only the documentation rule, never the
// metadata rules, and never fails the repository.
type Scorer struct {
	client forge.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewScorer creates a Scorer probing repository contents through client.
func NewScorer(client forge.Client, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{client: client, logger: logger, now: time.Now}
}

// Score applies the additive point model to one repository.
func (s *Scorer) Score(ctx context.Context, repo forge.Repository) PriorityScore {
	result := PriorityScore{
		Name:        repo.Name,
		URL:         repo.HTMLURL,
		Description: repo.Description,
		LastPush:    repo.PushedAt,
		Stars:       repo.Stars,
		Forks:       repo.Forks,
	}
	now := s.now()

	if !repo.PushedAt.IsZero() && now.Sub(repo.PushedAt) <= recentPushWindow {
		result.add(recentPushPoints, "Recently active")
	}
	if !repo.CreatedAt.IsZero() && now.Sub(repo.CreatedAt) >= establishedAge {
		result.add(establishedPoints, "Established project")
	}

	if repo.Stars > 0 {
		result.add(capped(repo.Stars*starPoints, starCap), fmt.Sprintf("Has %d stars", repo.Stars))
	}
	if repo.Forks > 0 {
		result.add(capped(repo.Forks*forkPoints, forkCap), fmt.Sprintf("Has %d forks", repo.Forks))
	}

	if s.hasDocIndicator(ctx, repo) {
		result.add(docPoints, "Has developer documentation")
	}

	if containsKeyword(repo.Description) {
		result.add(keywordPoints, "API/SDK-related description")
	}
	if anyTopicHasKeyword(repo.Topics) {
		result.add(keywordPoints, "API/SDK-related topics")
	}

	if repo.Description != "" {
		result.add(metadataPoints, "Has description")
	}
	if repo.Homepage != "" {
		result.add(metadataPoints, "Has homepage URL")
	}
	if len(repo.Topics) > 0 {
		result.add(capped(len(repo.Topics)*topicPoints, topicCap), fmt.Sprintf("Has %d topics", len(repo.Topics)))
	}

	return result
}

func (p *PriorityScore) add(points int, reason string) {
	p.Score += points
	p.Reasons = append(p.Reasons, reason)
}

func capped(points, limit int) int {
	if points > limit {
		return limit
	}
	return points
}

func (s *Scorer) hasDocIndicator(ctx context.Context, repo forge.Repository) bool {
	entries, err := s.client.ListEntries(ctx, repo.Name, "")
	if err != nil {
		s.logger.Debug("documentation probe skipped",
			logfields.Repository(repo.Name),
			logfields.Error(err))
		return false
	}
	for _, entry := range entries {
		name := strings.ToLower(entry.Name)
		for _, marker := range docMarkers {
			if strings.Contains(name, strings.ToLower(marker)) {
				return true
			}
		}
	}
	return false
}

func containsKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range apiKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func anyTopicHasKeyword(topics []string) bool {
	for _, topic := range topics {
		if containsKeyword(topic) {
			return true
		}
	}
	return false
}

// SortCandidates orders scores by descending value. The sort is stable so
// ties keep the repository enumeration order.
func SortCandidates(scores []PriorityScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
}

// BuildPriorityReport renders the markdown priority report for the given
// candidates. Callers filter by threshold and sort before rendering; limit
// caps how many entries appear.
func BuildPriorityReport(candidates []PriorityScore, generatedAt time.Time, limit int) string {
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	lines := []string{
		"# Backstage Integration Priority Report",
		"\nGenerated on: " + generatedAt.UTC().Format("2006-01-02 15:04 UTC"),
		"\n## Top Candidates for Backstage Integration\n",
	}

	for i, c := range candidates {
		var reasons strings.Builder
		for _, reason := range c.Reasons {
			reasons.WriteString("\n- " + reason)
		}
		lines = append(lines,
			fmt.Sprintf("### %d. %s (Score: %d)", i+1, c.Name, c.Score),
			"- URL: "+c.URL,
			"- Description: "+c.Description,
			"- Last Updated: "+c.LastPush.Format("2006-01-02T15:04:05"),
			fmt.Sprintf("- Stars: %d, Forks: %d", c.Stars, c.Forks),
			"\nRecommendation reasons:",
			reasons.String(),
			"\n",
		)
	}

	return strings.Join(lines, "\n")
}
