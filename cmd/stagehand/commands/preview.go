package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
)

// PreviewCmd implements the 'preview' command: a dry run of the descriptor
// builder for a single repository.
type PreviewCmd struct {
	Repo string `arg:"" help:"Repository name"`
}

func (p *PreviewCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	_, svc, err := newService(cfg, g.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	preview, err := svc.PreviewRepository(ctx, p.Repo)
	if err != nil {
		return err
	}
	fmt.Print(preview.Document)
	return nil
}
