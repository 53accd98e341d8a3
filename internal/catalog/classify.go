// Package catalog implements repository classification, API spec detection,
// descriptor generation, priority scoring and onboarding-status aggregation.
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/foundation"
)

// ComponentType is the Backstage component type of a repository.
type ComponentType string

const (
	TypeService ComponentType = "service"
	TypeWebsite ComponentType = "website"
	TypeLibrary ComponentType = "library"
)

// Lifecycle is the Backstage lifecycle stage of a repository.
type Lifecycle string

const (
	LifecycleExperimental Lifecycle = "experimental"
	LifecycleDevelopment  Lifecycle = "development"
	LifecycleProduction   Lifecycle = "production"
	LifecycleDeprecated   Lifecycle = "deprecated"
)

// DefaultOwner is the owner applied when no team or contributor is found.
const DefaultOwner = "default-team"

// Classification is the outcome of the three classification axes. Each axis
// is a Detected so probe failures stay inspectable instead of collapsing
// into the legacy fail-open defaults; Resolved applies those defaults at the
// presentation boundary.
type Classification struct {
	Type      foundation.Detected[ComponentType]
	Lifecycle foundation.Detected[Lifecycle]
	Owner     foundation.Detected[string]
}

// ResolvedClassification is a Classification with fallbacks applied.
type ResolvedClassification struct {
	Type      ComponentType
	Lifecycle Lifecycle
	Owner     string
}

// Resolved applies the legacy fail-open defaults: service, production and
// defaultOwner (empty means "default-team"). Intermediate layers should keep
// passing Classification around and only resolve when rendering.
func (c Classification) Resolved(defaultOwner string) ResolvedClassification {
	if defaultOwner == "" {
		defaultOwner = DefaultOwner
	}
	return ResolvedClassification{
		Type:      c.Type.UnwrapOr(TypeService),
		Lifecycle: c.Lifecycle.UnwrapOr(LifecycleProduction),
		Owner:     c.Owner.UnwrapOr(defaultOwner),
	}
}

// Notes returns one line per axis that could not be classified, for preview
// and report surfaces. Empty when every axis is known.
func (c Classification) Notes() []string {
	var notes []string
	if !c.Type.IsKnown() {
		notes = append(notes, fmt.Sprintf("type defaulted to %s: %s", TypeService, c.Type.Reason()))
	}
	if !c.Lifecycle.IsKnown() {
		notes = append(notes, fmt.Sprintf("lifecycle defaulted to %s: %s", LifecycleProduction, c.Lifecycle.Reason()))
	}
	if !c.Owner.IsKnown() {
		notes = append(notes, fmt.Sprintf("owner defaulted: %s", c.Owner.Reason()))
	}
	return notes
}

// Marker files checked in order. Only presence matters, never content, and
// the first matching rule set wins.
var (
	serviceMarkers = []string{"Dockerfile", "docker-compose.yml", "k8s", "kubernetes"}
	websiteMarkers = []string{"package.json", "index.html", "public/index.html", "src/index.js"}
	libraryMarkers = []string{"setup.py", "composer.json", "go.mod"}
)

// codeownersPaths are probed in order; the first file that exists wins.
var codeownersPaths = []string{".github/CODEOWNERS", "CODEOWNERS", "docs/CODEOWNERS"}

var teamPattern = regexp.MustCompile(`@[\w-]+/[\w-]+`)

// maturityAge is the repository age below which a repository is experimental.
const maturityAge = 90 * 24 * time.Hour

// activeCommitCount is the commit count above which an actively pushed
// repository counts as production.
const activeCommitCount = 100

// Classifier derives ComponentClassifications from repository metadata and
// file probes against a forge.
type Classifier struct {
	client forge.Client
	now    func() time.Time
}

// NewClassifier creates a Classifier reading probes from client.
func NewClassifier(client forge.Client) *Classifier {
	return &Classifier{client: client, now: time.Now}
}

// Classify derives component type, lifecycle stage and owner for repo.
// It never fails; axes whose probes failed come back Unknown with the
// probe error as the reason.
func (c *Classifier) Classify(ctx context.Context, repo forge.Repository) Classification {
	return Classification{
		Type:      c.componentType(ctx, repo),
		Lifecycle: c.lifecycle(ctx, repo),
		Owner:     c.owner(ctx, repo),
	}
}

// componentType checks the marker sets in fixed precedence order:
// service > website > library, defaulting to service when nothing matches.
func (c *Classifier) componentType(ctx context.Context, repo forge.Repository) foundation.Detected[ComponentType] {
	rules := []struct {
		markers []string
		result  ComponentType
	}{
		{serviceMarkers, TypeService},
		{websiteMarkers, TypeWebsite},
		{libraryMarkers, TypeLibrary},
	}

	for _, rule := range rules {
		for _, marker := range rule.markers {
			exists, err := c.client.FileExists(ctx, repo.Name, marker)
			if err != nil {
				return foundation.Unknown[ComponentType](fmt.Sprintf("probing %s: %v", marker, err))
			}
			if exists {
				return foundation.Known(rule.result)
			}
		}
	}

	// No marker matched; service is the documented default, not a failure.
	return foundation.Known(TypeService)
}

// lifecycle resolves the stage: archived beats everything, then branch
// protection, then age, then commit activity.
func (c *Classifier) lifecycle(ctx context.Context, repo forge.Repository) foundation.Detected[Lifecycle] {
	if repo.Archived {
		return foundation.Known(LifecycleDeprecated)
	}

	protected, err := c.client.BranchProtected(ctx, repo.Name, repo.BaseBranch())
	if err != nil {
		return foundation.Unknown[Lifecycle](fmt.Sprintf("probing branch protection: %v", err))
	}
	if protected {
		return foundation.Known(LifecycleProduction)
	}

	if c.now().Sub(repo.CreatedAt) < maturityAge {
		return foundation.Known(LifecycleExperimental)
	}

	commits, err := c.client.CommitCount(ctx, repo.Name)
	if err != nil {
		return foundation.Unknown[Lifecycle](fmt.Sprintf("probing commit count: %v", err))
	}
	if commits > activeCommitCount && !repo.PushedAt.IsZero() {
		return foundation.Known(LifecycleProduction)
	}

	return foundation.Known(LifecycleDevelopment)
}

// owner resolves the owning team: the first CODEOWNERS location yielding a
// team reference wins, then the top contributor's team (or user:<login> when
// teamless), then the literal default-team fallback.
func (c *Classifier) owner(ctx context.Context, repo forge.Repository) foundation.Detected[string] {
	for _, path := range codeownersPaths {
		content, err := c.client.GetFileContent(ctx, repo.Name, path)
		if err != nil {
			if forge.IsNotFound(err) {
				continue
			}
			return foundation.Unknown[string](fmt.Sprintf("reading %s: %v", path, err))
		}
		if team := teamPattern.FindString(content); team != "" {
			return foundation.Known(team[1:]) // strip the leading @
		}
	}

	login, err := c.client.TopContributor(ctx, repo.Name)
	if err != nil {
		if forge.IsNotFound(err) {
			return foundation.Known(DefaultOwner)
		}
		return foundation.Unknown[string](fmt.Sprintf("probing contributors: %v", err))
	}

	teams, err := c.client.TeamsForUser(ctx, login)
	if err != nil {
		return foundation.Unknown[string](fmt.Sprintf("resolving teams for %s: %v", login, err))
	}
	if len(teams) > 0 {
		return foundation.Known(teams[0])
	}
	return foundation.Known("user:" + login)
}
