// Package onboard drives the pull-request flow that brings repositories into
// the Backstage catalog: branch, descriptor commit, publish workflow, pull
// request and review issue.
package onboard

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/forge"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// Outcome classifies what happened to one repository during a run.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// RepoResult is the per-repository outcome of an onboarding run.
type RepoResult struct {
	Repo        string
	Outcome     Outcome
	Reason      string
	Branch      string
	PRNumber    int
	PRURL       string
	IssueNumber int
	Err         error
}

// RunSummary aggregates one onboarding run.
type RunSummary struct {
	Org         string
	CanaryRepo  string
	GeneratedAt time.Time
	Processed   int
	Skipped     int
	Failed      int
	Results     []RepoResult
}

// Mode names the run mode for the summary artifact.
func (s RunSummary) Mode() string {
	if s.CanaryRepo != "" {
		return "Canary Test"
	}
	return "Full Organization"
}

// Onboarded describes the artifacts created for one repository.
type Onboarded struct {
	Branch      string
	PR          forge.PullRequest
	IssueNumber int
}

// Options tunes the onboarding run.
type Options struct {
	BranchPrefix string
	IssueLabels  []string
	Workers      int
	Exclude      []string
}

func (o Options) withDefaults() Options {
	if o.BranchPrefix == "" {
		o.BranchPrefix = "backstage-integration"
	}
	if o.IssueLabels == nil {
		o.IssueLabels = []string{"backstage-integration"}
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}
	return o
}

// Orchestrator runs onboarding across an organization.
type Orchestrator struct {
	client  forge.Client
	mutator forge.Mutator
	catalog *catalog.Service
	logger  *slog.Logger
	opts    Options
	now     func() time.Time
}

// NewOrchestrator wires an orchestrator over a read client, a write client
// and the catalog service used to build descriptors.
func NewOrchestrator(client forge.Client, mutator forge.Mutator, svc *catalog.Service, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:  client,
		mutator: mutator,
		catalog: svc,
		logger:  logger,
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

// Run onboards every repository of the organization that is not already
// onboarded or excluded. Per-repository failures are recorded, never fatal.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	repos, err := o.client.ListRepositories(ctx)
	if err != nil {
		return nil, fnderrors.ForgeError("listing repositories").
			WithContext(logfields.KeyOrg, o.client.Org()).
			Cause(err).
			Build()
	}

	results := runOrdered(ctx, repos, o.opts.Workers, o.processRepo)
	return o.summarize("", results), nil
}

// RunCanary onboards a single repository, the dry-run mode for rolling the
// automation out against one known target first.
func (o *Orchestrator) RunCanary(ctx context.Context, name string) (*RunSummary, error) {
	repo, err := o.client.GetRepository(ctx, name)
	if err != nil {
		if forge.IsNotFound(err) {
			return nil, fnderrors.NotFoundError("canary repository not found").
				WithContext(logfields.KeyRepo, name).
				Cause(err).
				Build()
		}
		return nil, err
	}

	o.logger.Info("running in canary mode", logfields.Repository(name))
	results := []RepoResult{o.processRepo(ctx, repo)}
	return o.summarize(name, results), nil
}

func (o *Orchestrator) summarize(canary string, results []RepoResult) *RunSummary {
	summary := &RunSummary{
		Org:         o.client.Org(),
		CanaryRepo:  canary,
		GeneratedAt: o.now(),
		Results:     results,
	}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeProcessed:
			summary.Processed++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
		}
	}
	return summary
}

func (o *Orchestrator) processRepo(ctx context.Context, repo forge.Repository) RepoResult {
	if err := ctx.Err(); err != nil {
		return RepoResult{Repo: repo.Name, Outcome: OutcomeFailed, Err: err}
	}
	if slices.Contains(o.opts.Exclude, repo.Name) {
		o.logger.Info("skipping excluded repository", logfields.Repository(repo.Name))
		return RepoResult{Repo: repo.Name, Outcome: OutcomeSkipped, Reason: "excluded by configuration"}
	}

	exists, err := o.client.FileExists(ctx, repo.Name, catalog.DescriptorPath)
	if err != nil {
		o.logger.Error("probing for existing descriptor failed",
			logfields.Repository(repo.Name), logfields.Error(err))
		return RepoResult{Repo: repo.Name, Outcome: OutcomeFailed, Err: err}
	}
	if exists {
		o.logger.Info("skipping repository, already onboarded", logfields.Repository(repo.Name))
		return RepoResult{Repo: repo.Name, Outcome: OutcomeSkipped, Reason: "already onboarded"}
	}

	onboarded, err := o.OnboardRepository(ctx, repo)
	if err != nil {
		o.logger.Error("onboarding failed",
			logfields.Repository(repo.Name), logfields.Error(err))
		return RepoResult{Repo: repo.Name, Outcome: OutcomeFailed, Err: err}
	}

	o.logger.Info("created onboarding pull request",
		logfields.Repository(repo.Name),
		logfields.Branch(onboarded.Branch),
		logfields.PRNumber(onboarded.PR.Number),
		logfields.IssueNumber(onboarded.IssueNumber))

	return RepoResult{
		Repo:        repo.Name,
		Outcome:     OutcomeProcessed,
		Branch:      onboarded.Branch,
		PRNumber:    onboarded.PR.Number,
		PRURL:       onboarded.PR.URL,
		IssueNumber: onboarded.IssueNumber,
	}
}

// OnboardRepository creates the onboarding branch with the descriptor and
// publish workflow, then opens the pull request and its review issue.
func (o *Orchestrator) OnboardRepository(ctx context.Context, repo forge.Repository) (*Onboarded, error) {
	classification := o.catalog.Classifier().Classify(ctx, repo)
	resolved := classification.Resolved(o.catalog.Options().DefaultOwner)
	specs := o.catalog.Detector().DetectSpecs(ctx, repo)

	document, err := catalog.Render(catalog.BuildDescriptors(o.client.Org(), repo, resolved, specs))
	if err != nil {
		return nil, err
	}

	base := repo.BaseBranch()
	branch := fmt.Sprintf("%s-%d", o.opts.BranchPrefix, o.now().Unix())

	if err := o.mutator.CreateBranch(ctx, repo.Name, branch, base); err != nil {
		return nil, fnderrors.ForgeError("creating onboarding branch").
			WithContext(logfields.KeyRepo, repo.Name).
			WithContext(logfields.KeyBranch, branch).
			Cause(err).
			Build()
	}

	if err := o.mutator.CreateFile(ctx, repo.Name, catalog.DescriptorPath,
		DescriptorCommitMessage, document, branch); err != nil {
		return nil, fnderrors.ForgeError("committing catalog descriptor").
			WithContext(logfields.KeyRepo, repo.Name).
			WithContext(logfields.KeyBranch, branch).
			Cause(err).
			Build()
	}

	if err := o.ensureWorkflowHome(ctx, repo.Name, branch); err != nil {
		return nil, err
	}

	if err := o.mutator.CreateFile(ctx, repo.Name, WorkflowPath,
		WorkflowCommitMessage, workflowContent, branch); err != nil {
		return nil, fnderrors.ForgeError("committing publish workflow").
			WithContext(logfields.KeyRepo, repo.Name).
			WithContext(logfields.KeyBranch, branch).
			Cause(err).
			Build()
	}

	pr, err := o.mutator.CreatePullRequest(ctx, repo.Name, PullRequestTitle, pullRequestBody, branch, base)
	if err != nil {
		return nil, fnderrors.ForgeError("opening onboarding pull request").
			WithContext(logfields.KeyRepo, repo.Name).
			WithContext(logfields.KeyBranch, branch).
			Cause(err).
			Build()
	}

	issueNumber, err := o.mutator.CreateIssue(ctx, repo.Name, IssueTitle, issueBody(pr.Number), o.opts.IssueLabels)
	if err != nil {
		return nil, fnderrors.ForgeError("opening review issue").
			WithContext(logfields.KeyRepo, repo.Name).
			WithContext(logfields.KeyPRNumber, pr.Number).
			Cause(err).
			Build()
	}

	return &Onboarded{Branch: branch, PR: pr, IssueNumber: issueNumber}, nil
}

// ensureWorkflowHome seeds .github/workflows with placeholder readmes when
// the directories do not exist yet. Probe failures count as missing, the
// worst case is a redundant placeholder commit.
func (o *Orchestrator) ensureWorkflowHome(ctx context.Context, repoName, branch string) error {
	workflowsExist, err := o.client.FileExists(ctx, repoName, ".github/workflows")
	if err != nil {
		o.logger.Debug("workflow directory probe failed, assuming missing",
			logfields.Repository(repoName), logfields.Error(err))
	}
	if workflowsExist {
		return nil
	}

	githubExists, err := o.client.FileExists(ctx, repoName, ".github")
	if err != nil {
		o.logger.Debug("config directory probe failed, assuming missing",
			logfields.Repository(repoName), logfields.Error(err))
	}
	if !githubExists {
		if err := o.mutator.CreateFile(ctx, repoName, githubReadmePath,
			githubReadmeMessage, githubReadmeContent, branch); err != nil {
			return fnderrors.ForgeError("seeding .github directory").
				WithContext(logfields.KeyRepo, repoName).
				Cause(err).
				Build()
		}
	}

	if err := o.mutator.CreateFile(ctx, repoName, workflowsReadmePath,
		workflowsReadmeMessage, workflowsReadmeContent, branch); err != nil {
		return fnderrors.ForgeError("seeding workflows directory").
			WithContext(logfields.KeyRepo, repoName).
			Cause(err).
			Build()
	}
	return nil
}

// BuildRunSummary renders the run summary markdown artifact.
func BuildRunSummary(summary *RunSummary) string {
	lines := []string{
		fmt.Sprintf("## Automation Summary (%s)", summary.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")),
		"### Mode: " + summary.Mode(),
	}
	if summary.CanaryRepo != "" {
		lines = append(lines, fmt.Sprintf("- Repository: %s", summary.CanaryRepo))
	} else {
		lines = append(lines, fmt.Sprintf("- Organization: %s", summary.Org))
	}
	lines = append(lines,
		fmt.Sprintf("- Processed: %d repositories", summary.Processed),
		fmt.Sprintf("- Skipped: %d repositories (already onboarded)", summary.Skipped),
		fmt.Sprintf("- Failed: %d repositories", summary.Failed),
	)
	return strings.Join(lines, "\n")
}
