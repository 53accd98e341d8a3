package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagehand/internal/config"
	"git.home.luguber.info/inful/stagehand/internal/credstore"
)

func parseCLI(t *testing.T, args ...string) (*kong.Context, *CLI) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"})
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return ctx, cli
}

func TestCLIGrammar(t *testing.T) {
	ctx, cli := parseCLI(t, "status", "--out", "status_report.md")
	require.Equal(t, "status", ctx.Command())
	require.Equal(t, "status_report.md", cli.Status.Out)

	ctx, cli = parseCLI(t, "onboard", "--repo", "canary-svc")
	require.Equal(t, "onboard", ctx.Command())
	require.Equal(t, "canary-svc", cli.Onboard.Repo)

	ctx, _ = parseCLI(t, "orgs", "list")
	require.Equal(t, "orgs list", ctx.Command())

	ctx, cli = parseCLI(t, "merge", "svc", "12")
	require.Equal(t, "merge <repo> <pr>", ctx.Command())
	require.Equal(t, "svc", cli.Merge.Repo)
	require.Equal(t, 12, cli.Merge.PR)

	ctx, cli = parseCLI(t, "preview", "legacy-api")
	require.Equal(t, "preview <repo>", ctx.Command())
	require.Equal(t, "legacy-api", cli.Preview.Repo)

	ctx, _ = parseCLI(t, "app-manifest", "--name", "stagehand-dev")
	require.Equal(t, "app-manifest", ctx.Command())

	ctx, cli = parseCLI(t, "-c", "custom.yaml", "daemon", "--no-watch")
	require.Equal(t, "daemon", ctx.Command())
	require.Equal(t, "custom.yaml", cli.Config)
	require.True(t, cli.Daemon.NoWatch)
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.yaml")
	cli := &CLI{Config: path}

	require.NoError(t, (&InitCmd{}).Run(&Global{}, cli))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "forge:")

	require.Error(t, (&InitCmd{}).Run(&Global{}, cli))
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, cli))
}

func TestWriteArtifactToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, writeArtifact(path, "# Report\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "# Report\n", string(data))
}

func TestCredstoreConfigFallsBackToDefault(t *testing.T) {
	cfg := credstoreConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Equal(t, config.DefaultCredstoreDir, cfg.Dir)
}

func TestLoadConfigFillsTokenFromStore(t *testing.T) {
	t.Setenv(credstore.EnvKey, "0123456789abcdef0123456789abcdef")

	dir := t.TempDir()
	credDir := filepath.Join(dir, "creds")
	store, err := credstore.New(config.CredstoreConfig{Dir: credDir}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(credstore.OrgCredentials{Org: "acme", Token: "tok-123"}))

	path := filepath.Join(dir, "stagehand.yaml")
	content := "forge:\n  type: github\n  org: acme\ncredstore:\n  dir: " + credDir + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "tok-123", cfg.Forge.Token)
}
