package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/daemon"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// stopTimeout bounds graceful shutdown of the daemon components.
const stopTimeout = 30 * time.Second

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	NoWatch bool `help:"Disable config file hot reload"`
}

func (dc *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}

	configPath := root.Config
	if dc.NoWatch {
		configPath = ""
	}

	d, err := daemon.New(cfg, configPath, g.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errChan := make(chan error, 1)
	go func() { errChan <- d.Start(ctx) }()

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		g.Logger.Info("shutdown signal received")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		g.Logger.Error("daemon shutdown failed", logfields.Error(err))
		return err
	}
	return nil
}
