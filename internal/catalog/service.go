package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// Options tunes the catalog service. Zero values fall back to the
// documented defaults.
type Options struct {
	// Workers bounds concurrent per-repository probes.
	Workers int
	// ScoreThreshold is the exclusive minimum score for report candidates.
	ScoreThreshold int
	// ReportLimit caps the number of report entries.
	ReportLimit int
	// BranchMarker identifies onboarding branches in open pull requests.
	BranchMarker string
	// DefaultOwner replaces an unknown owner classification.
	DefaultOwner string
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.ScoreThreshold == 0 {
		o.ScoreThreshold = DefaultScoreThreshold
	}
	if o.ReportLimit <= 0 {
		o.ReportLimit = DefaultReportLimit
	}
	if o.BranchMarker == "" {
		o.BranchMarker = BranchMarker
	}
	if o.DefaultOwner == "" {
		o.DefaultOwner = DefaultOwner
	}
	return o
}

// Service runs classification, scoring and status aggregation across an
// organization. Per-repository work fans out over a bounded worker group;
// one repository's failure never cancels its siblings, and all result
// ordering follows the forge enumeration order.
type Service struct {
	client     forge.Client
	logger     *slog.Logger
	opts       Options
	classifier *Classifier
	detector   *Detector
	scorer     *Scorer
}

// NewService creates a Service reading from client.
func NewService(client forge.Client, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:     client,
		logger:     logger,
		opts:       opts.withDefaults(),
		classifier: NewClassifier(client),
		detector:   NewDetector(client, logger),
		scorer:     NewScorer(client, logger),
	}
}

// Options returns the effective options after defaulting.
func (s *Service) Options() Options { return s.opts }

// Classifier exposes the service's classifier for preview rendering.
func (s *Service) Classifier() *Classifier { return s.classifier }

// Detector exposes the service's spec detector.
func (s *Service) Detector() *Detector { return s.detector }

// StatusAll resolves the onboarding status of every repository in the
// organization. Only repository enumeration can fail; individual lookup
// failures become error-status rows.
func (s *Service) StatusAll(ctx context.Context) (Summary, error) {
	repos, err := s.client.ListRepositories(ctx)
	if err != nil {
		return Summary{}, errors.ForgeError("listing repositories").
			WithContext(logfields.KeyOrg, s.client.Org()).
			Cause(err).
			Build()
	}

	statuses := make([]RepoStatus, len(repos))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, repo := range repos {
		g.Go(func() error {
			statuses[i] = s.statusFor(gCtx, repo)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	return Summarize(statuses), nil
}

func (s *Service) statusFor(ctx context.Context, repo forge.Repository) RepoStatus {
	exists, err := s.client.FileExists(ctx, repo.Name, DescriptorPath)
	if err != nil {
		return RepoStatus{Name: repo.Name, Status: StatusError, Err: err.Error()}
	}
	if exists {
		return RepoStatus{Name: repo.Name, Status: StatusOnboarded}
	}

	prs, err := s.client.ListOpenPullRequests(ctx, repo.Name)
	if err != nil {
		return RepoStatus{Name: repo.Name, Status: StatusError, Err: err.Error()}
	}
	for _, pr := range prs {
		if strings.Contains(pr.Branch, s.opts.BranchMarker) {
			return RepoStatus{Name: repo.Name, Status: StatusInProgress, PRNumber: pr.Number}
		}
	}

	return RepoStatus{Name: repo.Name, Status: StatusNotOnboarded}
}

// ScoreAll computes priority scores for every repository not yet carrying a
// catalog descriptor, filtered by the score threshold and stably sorted by
// descending score. Repositories whose probes fail are skipped with a log
// line, never failing the run.
func (s *Service) ScoreAll(ctx context.Context) ([]PriorityScore, error) {
	repos, err := s.client.ListRepositories(ctx)
	if err != nil {
		return nil, errors.ForgeError("listing repositories").
			WithContext(logfields.KeyOrg, s.client.Org()).
			Cause(err).
			Build()
	}

	results := make([]*PriorityScore, len(repos))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, repo := range repos {
		g.Go(func() error {
			exists, err := s.client.FileExists(gCtx, repo.Name, DescriptorPath)
			if err != nil {
				s.logger.Warn("skipping repository in priority analysis",
					logfields.Repository(repo.Name),
					logfields.Error(err))
				return nil
			}
			if exists {
				return nil
			}
			score := s.scorer.Score(gCtx, repo)
			results[i] = &score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var candidates []PriorityScore
	for _, r := range results {
		if r != nil && r.Score > s.opts.ScoreThreshold {
			candidates = append(candidates, *r)
		}
	}
	SortCandidates(candidates)
	return candidates, nil
}

// PriorityReport renders the markdown priority report for the organization.
func (s *Service) PriorityReport(ctx context.Context) (string, error) {
	candidates, err := s.ScoreAll(ctx)
	if err != nil {
		return "", err
	}
	return BuildPriorityReport(candidates, time.Now(), s.opts.ReportLimit), nil
}

// StatusReport renders the markdown status report for the organization.
func (s *Service) StatusReport(ctx context.Context) (string, error) {
	summary, err := s.StatusAll(ctx)
	if err != nil {
		return "", err
	}
	return BuildStatusReport(summary, time.Now()), nil
}

// Preview is the dry-run view of one repository: its classification, the
// detected specs, and the descriptor document that onboarding would commit.
type Preview struct {
	Repo           forge.Repository
	Classification Classification
	Resolved       ResolvedClassification
	Specs          []SpecRef
	Document       string
}

// PreviewRepository computes the full onboarding preview without writing
// anything.
func (s *Service) PreviewRepository(ctx context.Context, name string) (Preview, error) {
	repo, err := s.client.GetRepository(ctx, name)
	if err != nil {
		if forge.IsNotFound(err) {
			return Preview{}, errors.NotFoundError("repository not found").
				WithContext(logfields.KeyRepo, name).
				Cause(err).
				Build()
		}
		return Preview{}, errors.ForgeError("reading repository").
			WithContext(logfields.KeyRepo, name).
			Cause(err).
			Build()
	}

	classification := s.classifier.Classify(ctx, repo)
	resolved := classification.Resolved(s.opts.DefaultOwner)
	specs := s.detector.DetectSpecs(ctx, repo)

	doc, err := Render(BuildDescriptors(s.client.Org(), repo, resolved, specs))
	if err != nil {
		return Preview{}, err
	}

	return Preview{
		Repo:           repo,
		Classification: classification,
		Resolved:       resolved,
		Specs:          specs,
		Document:       doc,
	}, nil
}
