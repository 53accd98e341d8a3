package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

const (
	// DescriptorPath is where the rendered catalog document lives in a
	// repository. Its presence marks the repository as onboarded.
	DescriptorPath = "catalog-info.yaml"

	apiVersion = "backstage.io/v1alpha1"

	kindComponent = "Component"
	kindAPI       = "API"

	annotationProjectSlug    = "github.com/project-slug"
	annotationVisibility     = "github.com/project-visibility"
	annotationSourceLocation = "backstage.io/source-location"

	defaultSystem = "default-system"
)

// Entity is a single catalog descriptor document.
type Entity struct {
	APIVersion string     `yaml:"apiVersion"`
	Kind       string     `yaml:"kind"`
	Metadata   Metadata   `yaml:"metadata"`
	Spec       EntitySpec `yaml:"spec"`
}

// Metadata is the descriptor metadata block.
type Metadata struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Annotations map[string]string `yaml:"annotations"`
	Tags        []string          `yaml:"tags,omitempty"`
}

// EntitySpec is the descriptor spec block. System is set on Components,
// Definition on APIs.
type EntitySpec struct {
	Type       string `yaml:"type"`
	Lifecycle  string `yaml:"lifecycle"`
	Owner      string `yaml:"owner"`
	System     string `yaml:"system,omitempty"`
	Definition string `yaml:"definition,omitempty"`
}

// BuildDescriptors produces the Component entity for a repository followed by
// one API entity per detected spec. Pure; all inputs are already resolved.
//
// API entities deliberately do not inherit the component's classification:
// their lifecycle and owner stay fixed, matching the catalog convention the
// rest of the tooling expects.
func BuildDescriptors(org string, repo forge.Repository, rc ResolvedClassification, specs []SpecRef) []Entity {
	name := EntityName(repo.Name)

	var tags []string
	if repo.Language != "" {
		tags = append(tags, strings.ToLower(repo.Language))
	}
	tags = append(tags, repo.Topics...)

	system := defaultSystem
	if len(repo.Topics) > 0 {
		system = repo.Topics[0]
	}

	description := repo.Description
	if description == "" {
		description = fmt.Sprintf("Auto-generated component for %s", repo.Name)
	}

	visibility := "public"
	if repo.Private {
		visibility = "private"
	}

	entities := []Entity{{
		APIVersion: apiVersion,
		Kind:       kindComponent,
		Metadata: Metadata{
			Name:        name,
			Description: description,
			Annotations: map[string]string{
				annotationProjectSlug: fmt.Sprintf("%s/%s", org, repo.Name),
				annotationVisibility:  visibility,
			},
			Tags: tags,
		},
		Spec: EntitySpec{
			Type:      string(rc.Type),
			Lifecycle: string(rc.Lifecycle),
			Owner:     rc.Owner,
			System:    system,
		},
	}}

	for _, spec := range specs {
		entities = append(entities, Entity{
			APIVersion: apiVersion,
			Kind:       kindAPI,
			Metadata: Metadata{
				Name:        name + "-api",
				Description: fmt.Sprintf("API for %s", repo.Name),
				Annotations: map[string]string{
					annotationProjectSlug:    fmt.Sprintf("%s/%s", org, repo.Name),
					annotationSourceLocation: sourceLocation(org, repo, spec.Path),
				},
			},
			Spec: EntitySpec{
				Type:       string(spec.Protocol),
				Lifecycle:  string(LifecycleProduction),
				Owner:      DefaultOwner,
				Definition: spec.Content,
			},
		})
	}

	return entities
}

// sourceLocation points Backstage at the spec file inside the repository.
// The repository's own web URL wins so enterprise hosts resolve correctly.
func sourceLocation(org string, repo forge.Repository, path string) string {
	base := repo.HTMLURL
	if base == "" {
		base = fmt.Sprintf("https://github.com/%s/%s", org, repo.Name)
	}
	return fmt.Sprintf("url:%s/blob/%s/%s", base, repo.BaseBranch(), path)
}

// Render serializes entities into a single multi-document YAML stream.
func Render(entities []Entity) (string, error) {
	docs := make([]string, 0, len(entities))
	for _, entity := range entities {
		out, err := yaml.Marshal(entity)
		if err != nil {
			return "", errors.CatalogError("marshaling catalog entity").
				WithContext("entity", entity.Metadata.Name).
				Cause(err).
				Build()
		}
		docs = append(docs, string(out))
	}
	return strings.Join(docs, "---\n"), nil
}

var entityNameStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// EntityName maps an arbitrary repository name onto the catalog's entity
// name alphabet: diacritics folded, anything outside [a-zA-Z0-9._-] replaced
// with a dash, runs collapsed, at most 63 characters.
func EntityName(name string) string {
	folded, _, err := transform.String(entityNameStripper, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastDash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			lastDash = true
		}
	}

	out := strings.Trim(b.String(), "-._")
	if len(out) > 63 {
		out = strings.Trim(out[:63], "-._")
	}
	if out == "" {
		return "component"
	}
	return out
}
