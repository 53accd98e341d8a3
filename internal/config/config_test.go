package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stagehand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
forge:
  type: github
  org: acme
  token: tok
backstage:
  url: https://backstage.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ForgeGitHub, cfg.Forge.Type)
	require.Equal(t, "https://api.github.com", cfg.Forge.APIURL)
	require.Equal(t, "Bearer", cfg.Backstage.TokenType)
	require.Equal(t, "default-team", cfg.Catalog.DefaultOwner)
	require.Equal(t, 30, cfg.Catalog.ScoreThreshold)
	require.Equal(t, 10, cfg.Catalog.ReportLimit)
	require.Equal(t, "backstage-integration", cfg.Onboarding.BranchPrefix)
	require.Equal(t, []string{"backstage-integration"}, cfg.Onboarding.IssueLabels)
	require.Equal(t, 8, cfg.Onboarding.Workers)
	require.Equal(t, 30*time.Minute, cfg.Daemon.Interval)
	require.Equal(t, ":8080", cfg.Daemon.Listen)
	require.Equal(t, "stagehand.db", cfg.Daemon.StorePath)
	require.Equal(t, "stagehand", cfg.Daemon.NATS.SubjectPrefix)
	require.Equal(t, "secure_configs", cfg.Credstore.Dir)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("STAGEHAND_TEST_TOKEN", "expanded-token")
	path := writeConfig(t, `
forge:
  type: github
  org: acme
  token: ${STAGEHAND_TEST_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "expanded-token", cfg.Forge.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestLoadRejectsUnknownForge(t *testing.T) {
	path := writeConfig(t, `
forge:
  type: bitbucket
  org: acme
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsLocalWithoutPath(t *testing.T) {
	path := writeConfig(t, `
forge:
  type: local
  org: acme
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingOrg(t *testing.T) {
	path := writeConfig(t, `
forge:
  type: github
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadBackstageURL(t *testing.T) {
	path := writeConfig(t, `
forge:
  type: github
  org: acme
backstage:
  url: "not a url"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNATSWithoutURL(t *testing.T) {
	path := writeConfig(t, `
forge:
  type: github
  org: acme
daemon:
  nats:
    enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestInitWritesExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.yaml")

	require.NoError(t, Init(path, false))

	// The generated example must load cleanly with a token env var set.
	t.Setenv("GITHUB_TOKEN", "tok")
	t.Setenv("BACKSTAGE_TOKEN", "btok")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "my-org", cfg.Forge.Org)

	// Refuses to overwrite without force.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}

func TestNormalizeForgeType(t *testing.T) {
	require.Equal(t, ForgeGitHub, NormalizeForgeType(" GitHub "))
	require.Equal(t, ForgeLocal, NormalizeForgeType("LOCAL"))
	require.Equal(t, ForgeType(""), NormalizeForgeType("bitbucket"))
}

func TestCatalogExcluded(t *testing.T) {
	c := CatalogConfig{Exclude: []string{"sandbox", "archive-old"}}
	require.True(t, c.Excluded("sandbox"))
	require.False(t, c.Excluded("api-service"))
}
