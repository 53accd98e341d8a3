package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/onboard"
)

// MergeCmd implements the 'merge' command: squash-merge an onboarding pull
// request, lifting branch protection for the duration.
type MergeCmd struct {
	Repo string `arg:"" help:"Repository name"`
	PR   int    `arg:"" name:"pr" help:"Pull request number"`
}

func (m *MergeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	client, err := forge.NewClient(cfg.Forge, g.Logger)
	if err != nil {
		return err
	}
	mutator, err := forge.NewMutator(cfg.Forge)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	merged, err := onboard.NewMerger(client, mutator, g.Logger).ForceMerge(ctx, m.Repo, m.PR)
	if err != nil {
		return err
	}
	if merged {
		fmt.Printf("Merged %s#%d\n", m.Repo, m.PR)
	} else {
		fmt.Printf("Pull request %s#%d was not merged.\n", m.Repo, m.PR)
	}
	return nil
}
