package onboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/forgetest"
)

func newTestOrchestrator(fake *forgetest.Fake, opts Options) *Orchestrator {
	svc := catalog.NewService(fake, nil, catalog.Options{})
	orch := NewOrchestrator(fake, fake, svc, nil, opts)
	orch.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return orch
}

func TestRunOnboardsBareRepository(t *testing.T) {
	fake := forgetest.New("acme").AddRepo(forge.Repository{
		Name:          "svc",
		FullName:      "acme/svc",
		DefaultBranch: "main",
	})
	orch := newTestOrchestrator(fake, Options{})

	summary, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 0, summary.Skipped)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, "Full Organization", summary.Mode())

	require.Len(t, fake.CreatedBranches, 1)
	require.Equal(t, forgetest.BranchRecord{
		Repo:   "svc",
		Branch: "backstage-integration-1700000000",
		From:   "main",
	}, fake.CreatedBranches[0])

	// Descriptor, both placeholder readmes, then the workflow.
	require.Len(t, fake.CreatedFiles, 4)
	require.Equal(t, "catalog-info.yaml", fake.CreatedFiles[0].Path)
	require.Equal(t, "Add Backstage catalog entities", fake.CreatedFiles[0].Message)
	require.Equal(t, ".github/README.md", fake.CreatedFiles[1].Path)
	require.Equal(t, "GitHub configuration files", fake.CreatedFiles[1].Content)
	require.Equal(t, ".github/workflows/README.md", fake.CreatedFiles[2].Path)
	require.Equal(t, "GitHub Actions workflow files", fake.CreatedFiles[2].Content)
	require.Equal(t, ".github/workflows/publish-backstage.yml", fake.CreatedFiles[3].Path)
	require.Equal(t, "Add Backstage publish workflow", fake.CreatedFiles[3].Message)
	require.Contains(t, fake.CreatedFiles[3].Content, "name: Publish to Backstage")
	require.Contains(t, fake.CreatedFiles[3].Content, "workflow_dispatch:")
	require.Contains(t, fake.CreatedFiles[3].Content, "AUTOMATION_TOKEN: ${{ secrets.AUTOMATION_TOKEN }}")

	for _, record := range fake.CreatedFiles {
		require.Equal(t, "backstage-integration-1700000000", record.Branch)
	}

	var entity struct {
		Kind     string `yaml:"kind"`
		Metadata struct {
			Name string `yaml:"name"`
		} `yaml:"metadata"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(fake.CreatedFiles[0].Content), &entity))
	require.Equal(t, "Component", entity.Kind)
	require.Equal(t, "svc", entity.Metadata.Name)

	require.Len(t, fake.CreatedPRs, 1)
	require.Equal(t, "Add Backstage Integration", fake.CreatedPRs[0].Title)
	require.Equal(t, "backstage-integration-1700000000", fake.CreatedPRs[0].Branch)
	require.Equal(t, "main", fake.CreatedPRs[0].Base)

	require.Len(t, fake.CreatedIssues, 1)
	issue := fake.CreatedIssues[0]
	require.Equal(t, "Review and Merge Backstage Integration", issue.Title)
	require.Equal(t, []string{"backstage-integration"}, issue.Labels)
	require.Equal(t, issueBody(1), issue.Body)
	require.Contains(t, issue.Body, "Review the changes in PR #1")
	require.Contains(t, issue.Body, "/force-merge")

	require.Equal(t, OutcomeProcessed, summary.Results[0].Outcome)
	require.Equal(t, 1, summary.Results[0].PRNumber)
	require.Equal(t, 1, summary.Results[0].IssueNumber)
}

func TestRunSkipsOnboardedAndExcluded(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "done", DefaultBranch: "main"}).
		AddRepo(forge.Repository{Name: "sandbox", DefaultBranch: "main"}).
		AddRepo(forge.Repository{Name: "fresh", DefaultBranch: "main"}).
		AddFile("done", "catalog-info.yaml", "kind: Component")
	orch := newTestOrchestrator(fake, Options{Exclude: []string{"sandbox"}})

	summary, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, 0, summary.Failed)

	require.Equal(t, "done", summary.Results[0].Repo)
	require.Equal(t, OutcomeSkipped, summary.Results[0].Outcome)
	require.Equal(t, "already onboarded", summary.Results[0].Reason)

	require.Equal(t, "sandbox", summary.Results[1].Repo)
	require.Equal(t, OutcomeSkipped, summary.Results[1].Outcome)
	require.Equal(t, "excluded by configuration", summary.Results[1].Reason)

	require.Equal(t, "fresh", summary.Results[2].Repo)
	require.Equal(t, OutcomeProcessed, summary.Results[2].Outcome)

	require.Len(t, fake.CreatedPRs, 1)
}

func TestRunIsolatesRepositoryFailures(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "bad", DefaultBranch: "main"}).
		AddRepo(forge.Repository{Name: "good", DefaultBranch: "main"}).
		FailWith("CreateBranch:bad", errors.New("ref already exists"))
	orch := newTestOrchestrator(fake, Options{})

	summary, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, summary.Failed)

	require.Equal(t, OutcomeFailed, summary.Results[0].Outcome)
	require.ErrorContains(t, summary.Results[0].Err, "ref already exists")
	require.Equal(t, OutcomeProcessed, summary.Results[1].Outcome)
}

func TestRunFailsWhenListingFails(t *testing.T) {
	fake := forgetest.New("acme").FailWith("ListRepositories", errors.New("api down"))
	orch := newTestOrchestrator(fake, Options{})

	_, err := orch.Run(context.Background())
	require.Error(t, err)
}

func TestRunCanary(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "svc", DefaultBranch: "main"}).
		AddRepo(forge.Repository{Name: "other", DefaultBranch: "main"})
	orch := newTestOrchestrator(fake, Options{})

	summary, err := orch.RunCanary(context.Background(), "svc")
	require.NoError(t, err)
	require.Equal(t, "svc", summary.CanaryRepo)
	require.Equal(t, "Canary Test", summary.Mode())
	require.Equal(t, 1, summary.Processed)
	require.Len(t, summary.Results, 1)

	// Only the canary was touched.
	require.Len(t, fake.CreatedPRs, 1)
	require.Equal(t, "svc", fake.CreatedBranches[0].Repo)
}

func TestRunCanaryUnknownRepository(t *testing.T) {
	fake := forgetest.New("acme")
	orch := newTestOrchestrator(fake, Options{})

	_, err := orch.RunCanary(context.Background(), "ghost")
	require.Error(t, err)
	require.Contains(t, err.Error(), "canary repository not found")
}

func TestExistingWorkflowDirSkipsPlaceholders(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "svc", DefaultBranch: "main"}).
		AddFile("svc", ".github/workflows/ci.yml", "name: CI")
	orch := newTestOrchestrator(fake, Options{})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	paths := make([]string, 0, len(fake.CreatedFiles))
	for _, record := range fake.CreatedFiles {
		paths = append(paths, record.Path)
	}
	require.Equal(t, []string{"catalog-info.yaml", ".github/workflows/publish-backstage.yml"}, paths)
}

func TestExistingGithubDirSeedsOnlyWorkflowsReadme(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "svc", DefaultBranch: "main"}).
		AddFile("svc", ".github/CODEOWNERS", "* @acme/platform")
	orch := newTestOrchestrator(fake, Options{})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	paths := make([]string, 0, len(fake.CreatedFiles))
	for _, record := range fake.CreatedFiles {
		paths = append(paths, record.Path)
	}
	require.Equal(t, []string{
		"catalog-info.yaml",
		".github/workflows/README.md",
		".github/workflows/publish-backstage.yml",
	}, paths)
}

func TestDescriptorProbeFailureFailsRepository(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "svc", DefaultBranch: "main"}).
		FailWith("FileExists:svc:catalog-info.yaml", errors.New("boom"))
	orch := newTestOrchestrator(fake, Options{})

	summary, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Empty(t, fake.CreatedBranches)
}

func TestCustomBranchPrefixAndLabels(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "svc", DefaultBranch: "main"})
	orch := newTestOrchestrator(fake, Options{
		BranchPrefix: "catalog-onboarding",
		IssueLabels:  []string{"platform", "automation"},
	})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "catalog-onboarding-1700000000", fake.CreatedBranches[0].Branch)
	require.Equal(t, []string{"platform", "automation"}, fake.CreatedIssues[0].Labels)
}

func TestBuildRunSummaryFullOrganization(t *testing.T) {
	summary := &RunSummary{
		Org:         "acme",
		GeneratedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Processed:   3,
		Skipped:     2,
		Failed:      1,
	}

	report := BuildRunSummary(summary)
	require.Equal(t, "## Automation Summary (2024-03-01 12:30 UTC)\n"+
		"### Mode: Full Organization\n"+
		"- Organization: acme\n"+
		"- Processed: 3 repositories\n"+
		"- Skipped: 2 repositories (already onboarded)\n"+
		"- Failed: 1 repositories", report)
}

func TestBuildRunSummaryCanary(t *testing.T) {
	summary := &RunSummary{
		Org:         "acme",
		CanaryRepo:  "svc",
		GeneratedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Processed:   1,
	}

	report := BuildRunSummary(summary)
	require.Contains(t, report, "### Mode: Canary Test")
	require.Contains(t, report, "- Repository: svc")
	require.NotContains(t, report, "- Organization:")
}

func TestAPISpecsLandInDescriptor(t *testing.T) {
	fake := forgetest.New("acme").
		AddRepo(forge.Repository{Name: "svc", DefaultBranch: "main"}).
		AddFile("svc", "docs/openapi.yaml", "openapi: 3.0.0")
	orch := newTestOrchestrator(fake, Options{})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	descriptor := fake.CreatedFiles[0].Content
	require.Contains(t, descriptor, "kind: API")
	require.Contains(t, descriptor, "name: svc-api")
	require.Contains(t, descriptor, "openapi: 3.0.0")
}
