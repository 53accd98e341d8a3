package commands

import (
	"context"
	"os/signal"
	"syscall"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Out string `short:"o" help:"Write the report to a file instead of stdout"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
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

	report, err := svc.StatusReport(ctx)
	if err != nil {
		return err
	}
	return writeArtifact(s.Out, report)
}
