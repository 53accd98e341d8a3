package onboard

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// restoredProtection is reapplied to the base branch after a force merge.
// The settings are fixed rather than copied from what was lifted.
var restoredProtection = forge.Protection{
	Strict:                  true,
	Contexts:                []string{},
	EnforceAdmins:           true,
	DismissStaleReviews:     true,
	RequireCodeOwnerReviews: true,
}

// Merger force-merges onboarding pull requests past branch protection.
type Merger struct {
	client  forge.Client
	mutator forge.Mutator
	logger  *slog.Logger
}

// NewMerger wires a merger over a read client and a write client.
func NewMerger(client forge.Client, mutator forge.Mutator, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{client: client, mutator: mutator, logger: logger}
}

// ForceMerge squash-merges the pull request, lifting branch protection from
// the base branch for the duration when present. Protection is restored even
// when the merge itself fails.
func (m *Merger) ForceMerge(ctx context.Context, repo string, prNumber int) (bool, error) {
	pr, err := m.client.GetPullRequest(ctx, repo, prNumber)
	if err != nil {
		if forge.IsNotFound(err) {
			return false, fnderrors.NotFoundError("pull request not found").
				WithContext(logfields.KeyRepo, repo).
				WithContext(logfields.KeyPRNumber, prNumber).
				Cause(err).
				Build()
		}
		return false, err
	}
	branch := pr.Base

	protection, err := m.mutator.BranchProtection(ctx, repo, branch)
	if err != nil {
		// An unreadable protection state is treated as unprotected; the
		// merge below surfaces any real permission problem.
		m.logger.Warn("reading branch protection failed",
			logfields.Repository(repo), logfields.Branch(branch), logfields.Error(err))
		protection = nil
	}

	if protection != nil {
		if err := m.mutator.RemoveBranchProtection(ctx, repo, branch); err != nil {
			return false, fnderrors.ForgeError("lifting branch protection").
				WithContext(logfields.KeyRepo, repo).
				WithContext(logfields.KeyBranch, branch).
				Cause(err).
				Build()
		}
		m.logger.Info("lifted branch protection for merge",
			logfields.Repository(repo), logfields.Branch(branch))
	}

	merged, mergeErr := m.mutator.MergePullRequest(ctx, repo, prNumber, "squash",
		fmt.Sprintf("Force merge PR #%d [skip ci]", prNumber),
		"Force merged via Backstage automation")

	if protection != nil {
		if err := m.mutator.SetBranchProtection(ctx, repo, branch, &restoredProtection); err != nil {
			m.logger.Error("restoring branch protection failed, branch left unprotected",
				logfields.Repository(repo), logfields.Branch(branch), logfields.Error(err))
			if mergeErr == nil {
				return merged, fnderrors.ForgeError("restoring branch protection").
					WithContext(logfields.KeyRepo, repo).
					WithContext(logfields.KeyBranch, branch).
					Cause(err).
					Build()
			}
		} else {
			m.logger.Info("restored branch protection",
				logfields.Repository(repo), logfields.Branch(branch))
		}
	}

	if mergeErr != nil {
		return false, fnderrors.ForgeError("merging pull request").
			WithContext(logfields.KeyRepo, repo).
			WithContext(logfields.KeyPRNumber, prNumber).
			Cause(mergeErr).
			Build()
	}
	return merged, nil
}
