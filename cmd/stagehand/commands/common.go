// Package commands defines the stagehand CLI surface. Each command is a
// kong struct with a Run method; shared construction helpers live here.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/config"
	"git.home.luguber.info/inful/stagehand/internal/credstore"
	"git.home.luguber.info/inful/stagehand/internal/forge"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// Global carries cross-command state bound into every Run method.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command tree.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"stagehand.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init        InitCmd        `cmd:"" help:"Write an example configuration file"`
	Orgs        OrgsCmd        `cmd:"" help:"Manage stored organization credentials"`
	Status      StatusCmd      `cmd:"" help:"Report onboarding status for every repository"`
	Report      ReportCmd      `cmd:"" help:"Build the priority report of onboarding candidates"`
	Preview     PreviewCmd     `cmd:"" help:"Render the catalog descriptors for one repository"`
	Onboard     OnboardCmd     `cmd:"" help:"Open onboarding pull requests across the organization"`
	Merge       MergeCmd       `cmd:"" help:"Force-merge an onboarding pull request"`
	Publish     PublishCmd     `cmd:"" help:"Publish a descriptor file to the Backstage catalog"`
	AppManifest AppManifestCmd `cmd:"" name:"app-manifest" help:"Print the GitHub App manifest JSON"`
	Daemon      DaemonCmd      `cmd:"" help:"Run the continuous refresh daemon with dashboard"`
}

// AfterApply runs after flag parsing; sets up logging once for all commands.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads and validates the configuration, then fills the forge
// token from the credential store when the file carries none.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Forge.Type == config.ForgeGitHub && cfg.Forge.Token == "" {
		if err := fillTokenFromStore(cfg); err != nil {
			// Missing credentials surface later as auth failures; a broken
			// store should not block offline commands.
			slog.Debug("credential store lookup failed", logfields.Error(err))
		}
	}
	return cfg, nil
}

// fillTokenFromStore resolves stored credentials for the configured org.
func fillTokenFromStore(cfg *config.Config) error {
	store, err := credstore.New(cfg.Credstore, slog.Default())
	if err != nil {
		return err
	}
	opt, err := store.Load(cfg.Forge.Org)
	if err != nil {
		return err
	}
	if opt.IsNone() {
		return nil
	}
	creds := opt.Unwrap()
	cfg.Forge.Token = creds.Token
	if creds.APIURL != "" {
		cfg.Forge.APIURL = creds.APIURL
	}
	return nil
}

// credstoreConfig returns credential store settings without requiring a
// config file; orgs commands run before init.
func credstoreConfig(path string) config.CredstoreConfig {
	cfg, err := config.Load(path)
	if err != nil {
		return config.CredstoreConfig{Dir: config.DefaultCredstoreDir}
	}
	return cfg.Credstore
}

// newService builds the forge read client and the catalog service.
func newService(cfg *config.Config, logger *slog.Logger) (forge.Client, *catalog.Service, error) {
	client, err := forge.NewClient(cfg.Forge, logger)
	if err != nil {
		return nil, nil, err
	}
	svc := catalog.NewService(client, logger, catalog.Options{
		Workers:        cfg.Onboarding.Workers,
		ScoreThreshold: cfg.Catalog.ScoreThreshold,
		ReportLimit:    cfg.Catalog.ReportLimit,
		BranchMarker:   cfg.Onboarding.BranchPrefix,
		DefaultOwner:   cfg.Catalog.DefaultOwner,
	})
	return client, svc, nil
}

// writeArtifact writes a report to the given path, or stdout when empty.
func writeArtifact(path, content string) error {
	if path == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fnderrors.InternalError("writing report file").
			WithContext(logfields.KeyPath, path).
			Cause(err).
			Build()
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}
