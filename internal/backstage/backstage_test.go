package backstage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagehand/internal/config"
)

const validDescriptor = `apiVersion: backstage.io/v1alpha1
kind: Component
metadata:
  name: payments
spec:
  type: service
  lifecycle: production
  owner: platform
---
apiVersion: backstage.io/v1alpha1
kind: API
metadata:
  name: payments-api
spec:
  type: openapi
`

func newTestClient(t *testing.T, cfg config.BackstageConfig, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.URL = server.URL
	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(config.BackstageConfig{}, nil)
	require.Error(t, err)
}

func TestPublishPostsYAML(t *testing.T) {
	var (
		gotPath        string
		gotContentType string
		gotAuth        string
		gotBody        string
	)
	client := newTestClient(t, config.BackstageConfig{Token: "bs-token"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")
			gotAuth = r.Header.Get("Authorization")
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			gotBody = string(body)
			w.WriteHeader(http.StatusCreated)
		}))

	err := client.Publish(context.Background(), validDescriptor)
	require.NoError(t, err)
	require.Equal(t, "/api/catalog/locations", gotPath)
	require.Equal(t, "application/yaml", gotContentType)
	require.Equal(t, "Bearer bs-token", gotAuth)
	require.Equal(t, validDescriptor, gotBody)
}

func TestPublishOmitsAuthWithoutToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, config.BackstageConfig{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))

	require.NoError(t, client.Publish(context.Background(), validDescriptor))
	require.Empty(t, gotAuth)
}

func TestPublishUsesConfiguredTokenType(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, config.BackstageConfig{Token: "abc", TokenType: "Basic"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusAccepted)
		}))

	require.NoError(t, client.Publish(context.Background(), validDescriptor))
	require.Equal(t, "Basic abc", gotAuth)
}

func TestPublishReportsRejection(t *testing.T) {
	client := newTestClient(t, config.BackstageConfig{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"location already exists"}`, http.StatusConflict)
		}))

	err := client.Publish(context.Background(), validDescriptor)
	require.Error(t, err)
	require.Contains(t, err.Error(), "409")
}

func TestPublishRejectsInvalidYAMLBeforeSending(t *testing.T) {
	hit := false
	client := newTestClient(t, config.BackstageConfig{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = true
		}))

	err := client.Publish(context.Background(), "kind: [unclosed")
	require.Error(t, err)
	require.False(t, hit)
}

func TestPublishFile(t *testing.T) {
	var gotBody string
	client := newTestClient(t, config.BackstageConfig{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			gotBody = string(body)
			w.WriteHeader(http.StatusCreated)
		}))

	path := filepath.Join(t.TempDir(), "catalog-info.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDescriptor), 0o600))

	require.NoError(t, client.PublishFile(context.Background(), path))
	require.Equal(t, validDescriptor, gotBody)

	require.Error(t, client.PublishFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")))
}
