package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/onboard"
)

// OnboardCmd implements the 'onboard' command.
type OnboardCmd struct {
	Repo string `short:"r" help:"Only onboard the named repository (canary mode)"`
	Out  string `short:"o" help:"Write the run summary to a file instead of stdout"`
}

func (o *OnboardCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	client, svc, err := newService(cfg, g.Logger)
	if err != nil {
		return err
	}
	mutator, err := forge.NewMutator(cfg.Forge)
	if err != nil {
		return err
	}

	orch := onboard.NewOrchestrator(client, mutator, svc, g.Logger, onboard.Options{
		BranchPrefix: cfg.Onboarding.BranchPrefix,
		IssueLabels:  cfg.Onboarding.IssueLabels,
		Workers:      cfg.Onboarding.Workers,
		Exclude:      cfg.Catalog.Exclude,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var summary *onboard.RunSummary
	if o.Repo != "" {
		summary, err = orch.RunCanary(ctx, o.Repo)
	} else {
		summary, err = orch.Run(ctx)
	}
	if err != nil {
		return err
	}

	if err := writeArtifact(o.Out, onboard.BuildRunSummary(summary)); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fnderrors.CatalogError(
			fmt.Sprintf("%d of %d repositories failed to onboard", summary.Failed, len(summary.Results))).
			Build()
	}
	return nil
}
