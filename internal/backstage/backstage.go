// Package backstage publishes catalog descriptors to a Backstage instance
// through its catalog locations API.
package backstage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/stagehand/internal/config"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

const locationsPath = "/api/catalog/locations"

// Client posts descriptor documents to the Backstage catalog API.
type Client struct {
	baseURL    string
	token      string
	tokenType  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a publisher for the configured Backstage instance.
func NewClient(cfg config.BackstageConfig, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fnderrors.ConfigError("backstage URL is not configured").
			UserAction().
			Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	tokenType := cfg.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &Client{
		baseURL:    cfg.BaseURL(),
		token:      cfg.Token,
		tokenType:  tokenType,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// Publish validates the descriptor document and posts it to the catalog.
// The document may contain multiple YAML documents separated by ---.
func (c *Client) Publish(ctx context.Context, doc string) error {
	if err := validateYAML(doc); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+locationsPath, strings.NewReader(doc))
	if err != nil {
		return fnderrors.PublishError("building catalog request").Cause(err).Build()
	}
	req.Header.Set("Content-Type", "application/yaml")
	req.Header.Set("User-Agent", "Stagehand/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", c.tokenType+" "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fnderrors.NetworkError("posting to backstage catalog").
			WithContext(logfields.KeyURL, c.baseURL+locationsPath).
			Cause(err).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fnderrors.PublishError(fmt.Sprintf("backstage rejected the descriptor: %s", resp.Status)).
			WithContext(logfields.KeyStatus, resp.StatusCode).
			WithContext("body", strings.TrimSpace(string(body))).
			Build()
	}

	c.logger.Info("published descriptor to backstage",
		logfields.URL(c.baseURL+locationsPath),
		logfields.Status(resp.StatusCode))
	return nil
}

// PublishFile reads a descriptor from disk and publishes it.
func (c *Client) PublishFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fnderrors.PublishError("reading descriptor file").
			WithContext(logfields.KeyPath, path).
			Cause(err).
			Build()
	}
	return c.Publish(ctx, string(data))
}

// validateYAML parses every document in the stream so malformed descriptors
// never reach the catalog.
func validateYAML(doc string) error {
	dec := yaml.NewDecoder(strings.NewReader(doc))
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fnderrors.ValidationError("descriptor is not valid yaml").
				Cause(err).
				Build()
		}
	}
}
