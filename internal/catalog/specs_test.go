package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/forgetest"
)

func TestDetectSpecsRootAndDirectories(t *testing.T) {
	fake := forgetest.New("acme")
	fake.AddFile("repo", "openapi.yaml", "openapi: 3.0.0")
	fake.AddFile("repo", "docs/asyncapi.json", `{"asyncapi":"2.0"}`)
	fake.AddFile("repo", "api/schema.graphql", "type Query { ok: Boolean }")
	fake.AddFile("repo", "specs/payments-swagger.yml", "swagger: '2.0'")
	// One level only: nested spec files are not picked up.
	fake.AddFile("repo", "docs/internal/openapi.yaml", "openapi: 3.1.0")
	// Unrelated directories are not scanned.
	fake.AddFile("repo", "vendor/openapi.yaml", "openapi: 3.0.0")

	d := NewDetector(fake, nil)
	specs := d.DetectSpecs(context.Background(), forge.Repository{Name: "repo"})

	paths := make(map[string]Protocol, len(specs))
	for _, s := range specs {
		paths[s.Path] = s.Protocol
	}
	require.Len(t, specs, 4)
	require.Equal(t, ProtocolOpenAPI, paths["openapi.yaml"])
	require.Equal(t, ProtocolAsyncAPI, paths["docs/asyncapi.json"])
	require.Equal(t, ProtocolGraphQL, paths["api/schema.graphql"])
	require.Equal(t, ProtocolOpenAPI, paths["specs/payments-swagger.yml"])
}

func TestDetectSpecsLoadsContent(t *testing.T) {
	fake := forgetest.New("acme")
	fake.AddFile("repo", "swagger.json", `{"swagger":"2.0"}`)

	d := NewDetector(fake, nil)
	specs := d.DetectSpecs(context.Background(), forge.Repository{Name: "repo"})

	require.Len(t, specs, 1)
	require.Equal(t, `{"swagger":"2.0"}`, specs[0].Content)
}

func TestDetectSpecsEmptyOnProbeFailure(t *testing.T) {
	fake := forgetest.New("acme")
	fake.AddFile("repo", "openapi.yaml", "openapi: 3.0.0")
	fake.FailWith("ListEntries:repo", errors.New("listing failed"))

	d := NewDetector(fake, nil)
	require.Empty(t, d.DetectSpecs(context.Background(), forge.Repository{Name: "repo"}))
}

func TestDetectSpecsEmptyOnContentFailure(t *testing.T) {
	fake := forgetest.New("acme")
	fake.AddFile("repo", "openapi.yaml", "openapi: 3.0.0")
	fake.FailWith("GetFileContent:repo:openapi.yaml", errors.New("read failed"))

	d := NewDetector(fake, nil)
	require.Empty(t, d.DetectSpecs(context.Background(), forge.Repository{Name: "repo"}))
}

func TestDetectSpecsNoSpecFiles(t *testing.T) {
	fake := forgetest.New("acme")
	fake.AddFile("repo", "README.md", "# hi")
	fake.AddFile("repo", "docs/guide.md", "guide")

	d := NewDetector(fake, nil)
	require.Empty(t, d.DetectSpecs(context.Background(), forge.Repository{Name: "repo"}))
}

func TestProtocolFor(t *testing.T) {
	require.Equal(t, ProtocolOpenAPI, protocolFor("OpenAPI.yaml"))
	require.Equal(t, ProtocolOpenAPI, protocolFor("swagger.json"))
	require.Equal(t, ProtocolAsyncAPI, protocolFor("asyncapi.yml"))
	require.Equal(t, ProtocolGraphQL, protocolFor("schema.graphql"))
	require.Equal(t, ProtocolOpenAPI, protocolFor("something-else.yaml"))
}
