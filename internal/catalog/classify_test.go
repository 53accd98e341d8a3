package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/forgetest"
	"git.home.luguber.info/inful/stagehand/internal/foundation"
)

func classifierAt(fake *forgetest.Fake, now time.Time) *Classifier {
	c := NewClassifier(fake)
	c.now = func() time.Time { return now }
	return c
}

func TestClassifyComponentTypePrecedence(t *testing.T) {
	now := time.Now()
	fake := forgetest.New("acme")
	// Both a service marker and a website marker: the service rule wins.
	fake.AddFile("mixed", "Dockerfile", "FROM scratch")
	fake.AddFile("mixed", "package.json", "{}")

	c := classifierAt(fake, now)
	got := c.Classify(context.Background(), forge.Repository{Name: "mixed", CreatedAt: now.AddDate(-1, 0, 0)})

	require.True(t, got.Type.IsKnown())
	v, _ := got.Type.Value()
	require.Equal(t, TypeService, v)
}

func TestClassifyComponentTypeRules(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		files  []string
		expect ComponentType
	}{
		{"kubernetes dir means service", []string{"kubernetes/deploy.yaml"}, TypeService},
		{"package.json means website", []string{"package.json"}, TypeWebsite},
		{"nested index means website", []string{"public/index.html"}, TypeWebsite},
		{"go.mod means library", []string{"go.mod"}, TypeLibrary},
		{"no markers default to service", []string{"main.rs"}, TypeService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := forgetest.New("acme")
			for _, f := range tt.files {
				fake.AddFile("repo", f, "x")
			}
			c := classifierAt(fake, now)
			got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})
			require.True(t, got.Type.IsKnown())
			v, _ := got.Type.Value()
			require.Equal(t, tt.expect, v)
		})
	}
}

func TestClassifyComponentTypeProbeFailureIsUnknown(t *testing.T) {
	now := time.Now()
	fake := forgetest.New("acme")
	fake.FailWith("FileExists:repo", errors.New("boom"))

	c := classifierAt(fake, now)
	got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})

	require.False(t, got.Type.IsKnown())
	require.Contains(t, got.Type.Reason(), "boom")
	// The fail-open default only applies at resolution time.
	require.Equal(t, TypeService, got.Resolved("").Type)
}

func TestClassifyLifecycleArchivedWinsOverProtection(t *testing.T) {
	now := time.Now()
	fake := forgetest.New("acme")
	fake.Protections["old/main"] = &forge.Protection{EnforceAdmins: true}

	c := classifierAt(fake, now)
	got := c.Classify(context.Background(), forge.Repository{
		Name:      "old",
		Archived:  true,
		CreatedAt: now.AddDate(-2, 0, 0),
	})

	v, _ := got.Lifecycle.Value()
	require.Equal(t, LifecycleDeprecated, v)
}

func TestClassifyLifecycleChain(t *testing.T) {
	now := time.Now()

	t.Run("protected branch means production", func(t *testing.T) {
		fake := forgetest.New("acme")
		fake.Protections["api/main"] = &forge.Protection{Strict: true}
		c := classifierAt(fake, now)
		got := c.Classify(context.Background(), forge.Repository{Name: "api", CreatedAt: now.AddDate(-1, 0, 0)})
		v, _ := got.Lifecycle.Value()
		require.Equal(t, LifecycleProduction, v)
	})

	t.Run("young repository is experimental", func(t *testing.T) {
		fake := forgetest.New("acme")
		fake.Commits["fresh"] = 5
		c := classifierAt(fake, now)
		got := c.Classify(context.Background(), forge.Repository{Name: "fresh", CreatedAt: now.AddDate(0, 0, -10)})
		v, _ := got.Lifecycle.Value()
		require.Equal(t, LifecycleExperimental, v)
	})

	t.Run("active mature repository is production", func(t *testing.T) {
		fake := forgetest.New("acme")
		fake.Commits["busy"] = 250
		c := classifierAt(fake, now)
		got := c.Classify(context.Background(), forge.Repository{
			Name:      "busy",
			CreatedAt: now.AddDate(-1, 0, 0),
			PushedAt:  now.AddDate(0, 0, -3),
		})
		v, _ := got.Lifecycle.Value()
		require.Equal(t, LifecycleProduction, v)
	})

	t.Run("quiet mature repository is development", func(t *testing.T) {
		fake := forgetest.New("acme")
		fake.Commits["quiet"] = 12
		c := classifierAt(fake, now)
		got := c.Classify(context.Background(), forge.Repository{
			Name:      "quiet",
			CreatedAt: now.AddDate(-1, 0, 0),
			PushedAt:  now.AddDate(0, -6, 0),
		})
		v, _ := got.Lifecycle.Value()
		require.Equal(t, LifecycleDevelopment, v)
	})
}

func TestClassifyLifecycleProbeFailureIsUnknown(t *testing.T) {
	now := time.Now()
	fake := forgetest.New("acme")
	fake.FailWith("BranchProtected:repo", errors.New("api down"))

	c := classifierAt(fake, now)
	got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})

	require.False(t, got.Lifecycle.IsKnown())
	require.Equal(t, LifecycleProduction, got.Resolved("").Lifecycle)
}

func TestClassifyOwnerFromCodeowners(t *testing.T) {
	now := time.Now()
	fake := forgetest.New("acme")
	fake.AddFile("repo", ".github/CODEOWNERS", "* @acme/platform-team\ndocs/ @acme/docs-team\n")

	c := classifierAt(fake, now)
	got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})

	v, _ := got.Owner.Value()
	require.Equal(t, "acme/platform-team", v)
}

func TestClassifyOwnerFallsThroughCodeownersLocations(t *testing.T) {
	now := time.Now()
	fake := forgetest.New("acme")
	// First location exists but has no team reference; the later one does.
	fake.AddFile("repo", ".github/CODEOWNERS", "# no owners here\n")
	fake.AddFile("repo", "docs/CODEOWNERS", "* @acme/docs-team\n")

	c := classifierAt(fake, now)
	got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})

	v, _ := got.Owner.Value()
	require.Equal(t, "acme/docs-team", v)
}

func TestClassifyOwnerFromTopContributor(t *testing.T) {
	now := time.Now()

	t.Run("contributor with a team", func(t *testing.T) {
		fake := forgetest.New("acme")
		fake.Contributors["repo"] = "alice"
		fake.Teams["alice"] = []string{"platform", "oncall"}
		c := classifierAt(fake, now)
		got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})
		v, _ := got.Owner.Value()
		require.Equal(t, "platform", v)
	})

	t.Run("teamless contributor", func(t *testing.T) {
		fake := forgetest.New("acme")
		fake.Contributors["repo"] = "bob"
		c := classifierAt(fake, now)
		got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})
		v, _ := got.Owner.Value()
		require.Equal(t, "user:bob", v)
	})

	t.Run("no contributors at all", func(t *testing.T) {
		fake := forgetest.New("acme")
		c := classifierAt(fake, now)
		got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})
		require.True(t, got.Owner.IsKnown())
		require.Equal(t, DefaultOwner, got.Owner.Value())
	})
}

func TestClassifyOwnerProbeFailureIsUnknown(t *testing.T) {
	now := time.Now()
	fake := forgetest.New("acme")
	fake.FailWith("TopContributor:repo", errors.New("rate limited"))

	c := classifierAt(fake, now)
	got := c.Classify(context.Background(), forge.Repository{Name: "repo", CreatedAt: now.AddDate(-1, 0, 0)})

	require.False(t, got.Owner.IsKnown())
	require.Equal(t, DefaultOwner, got.Resolved("").Owner)
	require.Equal(t, "custom-team", got.Resolved("custom-team").Owner)
}

func TestClassificationNotes(t *testing.T) {
	c := Classification{
		Type:      foundation.Known(TypeWebsite),
		Lifecycle: foundation.Unknown[Lifecycle]("probe failed"),
		Owner:     foundation.Known("acme/web"),
	}
	notes := c.Notes()
	require.Len(t, notes, 1)
	require.Contains(t, notes[0], "lifecycle defaulted to production")
	require.Contains(t, notes[0], "probe failed")
}
