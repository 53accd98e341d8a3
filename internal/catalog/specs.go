package catalog

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// Protocol identifies the API style of a detected specification file.
type Protocol string

const (
	ProtocolOpenAPI  Protocol = "openapi"
	ProtocolAsyncAPI Protocol = "asyncapi"
	ProtocolGraphQL  Protocol = "graphql"
)

// SpecRef is an API specification file found in a repository.
type SpecRef struct {
	Path     string
	Protocol Protocol
	Content  string
}

// specSuffixes are the recognized spec file names, matched case-insensitively
// as suffixes so prefixed variants like payments-openapi.yaml still count.
var specSuffixes = []string{
	"openapi.yaml", "openapi.yml", "openapi.json",
	"swagger.yaml", "swagger.yml", "swagger.json",
	"asyncapi.yaml", "asyncapi.yml", "asyncapi.json",
	"graphql.schema", "schema.graphql",
}

// specDirs are the root-level directories scanned one level deep.
var specDirs = map[string]struct{}{
	"docs":  {},
	"api":   {},
	"specs": {},
}

// Detector finds API specification files in repositories.
type Detector struct {
	client forge.Client
	logger *slog.Logger
}

// NewDetector creates a Detector reading from client.
func NewDetector(client forge.Client, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{client: client, logger: logger}
}

// DetectSpecs scans the repository root, plus any root-level docs, api or
// specs directory, for API specification files. Detection is best effort:
// any listing or read failure yields an empty result so a flaky probe never
// blocks onboarding.
func (d *Detector) DetectSpecs(ctx context.Context, repo forge.Repository) []SpecRef {
	root, err := d.client.ListEntries(ctx, repo.Name, "")
	if err != nil {
		d.logger.Warn("spec detection aborted",
			logfields.Repository(repo.Name),
			logfields.Error(err))
		return nil
	}

	var specs []SpecRef
	for _, entry := range root {
		switch entry.Type {
		case forge.EntryDir:
			if _, ok := specDirs[strings.ToLower(entry.Name)]; !ok {
				continue
			}
			sub, err := d.client.ListEntries(ctx, repo.Name, entry.Path)
			if err != nil {
				d.logger.Warn("spec detection aborted",
					logfields.Repository(repo.Name),
					logfields.Path(entry.Path),
					logfields.Error(err))
				return nil
			}
			for _, file := range sub {
				if file.Type != forge.EntryFile || !isSpecName(file.Name) {
					continue
				}
				ref, err := d.load(ctx, repo, file)
				if err != nil {
					return nil
				}
				specs = append(specs, ref)
			}
		case forge.EntryFile:
			if !isSpecName(entry.Name) {
				continue
			}
			ref, err := d.load(ctx, repo, entry)
			if err != nil {
				return nil
			}
			specs = append(specs, ref)
		}
	}

	return specs
}

func (d *Detector) load(ctx context.Context, repo forge.Repository, entry forge.Entry) (SpecRef, error) {
	content, err := d.client.GetFileContent(ctx, repo.Name, entry.Path)
	if err != nil {
		d.logger.Warn("spec detection aborted",
			logfields.Repository(repo.Name),
			logfields.Path(entry.Path),
			logfields.Error(err))
		return SpecRef{}, err
	}
	return SpecRef{
		Path:     entry.Path,
		Protocol: protocolFor(entry.Name),
		Content:  content,
	}, nil
}

func isSpecName(name string) bool {
	n := strings.ToLower(name)
	for _, suffix := range specSuffixes {
		if strings.HasSuffix(n, suffix) {
			return true
		}
	}
	return false
}

// protocolFor maps a spec file name to its protocol by substring, keeping
// openapi as the fallback for unrecognized names.
func protocolFor(name string) Protocol {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "openapi"), strings.Contains(n, "swagger"):
		return ProtocolOpenAPI
	case strings.Contains(n, "asyncapi"):
		return ProtocolAsyncAPI
	case strings.Contains(n, "graphql"):
		return ProtocolGraphQL
	default:
		return ProtocolOpenAPI
	}
}
