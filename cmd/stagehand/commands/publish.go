package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/stagehand/internal/backstage"
)

// PublishCmd implements the 'publish' command: send a local descriptor file
// to the Backstage catalog.
type PublishCmd struct {
	File  string `arg:"" help:"Descriptor file to publish" type:"existingfile"`
	Token string `help:"Backstage API token" env:"BACKSTAGE_TOKEN"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if p.Token != "" {
		cfg.Backstage.Token = p.Token
	}
	if cfg.Backstage.TokenType == "" {
		cfg.Backstage.TokenType = os.Getenv("BACKSTAGE_TOKEN_TYPE")
	}

	client, err := backstage.NewClient(cfg.Backstage, g.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.PublishFile(ctx, p.File); err != nil {
		return err
	}
	fmt.Printf("Published %s to %s\n", p.File, cfg.Backstage.BaseURL())
	return nil
}
