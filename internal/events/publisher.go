// Package events publishes run lifecycle notifications to NATS JetStream so
// external consumers (chat bots, audit pipelines) can follow refresh runs
// without polling the dashboard.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/stagehand/internal/config"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
	"git.home.luguber.info/inful/stagehand/internal/store"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Envelope is the JSON message published per run event. Payload carries the
// event-specific body unmodified from the store.
type Envelope struct {
	RunID     string          `json:"run_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Publisher manages the NATS connection and forwards run events.
type Publisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
	logger *slog.Logger
}

// NewPublisher connects to NATS and ensures the run-event stream exists.
func NewPublisher(cfg config.NATSConfig, logger *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fnderrors.ConfigError("nats publishing is disabled").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL, nats.Timeout(connectTimeout))
	if err != nil {
		return nil, fnderrors.NetworkError("connecting to nats").
			WithContext(logfields.KeyURL, cfg.URL).
			Cause(err).
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fnderrors.DaemonError("creating jetstream context").
			Cause(err).
			Build()
	}

	p := &Publisher{
		conn:   conn,
		js:     js,
		prefix: cfg.SubjectPrefix,
		logger: logger,
	}

	if err := p.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("nats publisher initialized",
		logfields.URL(cfg.URL),
		slog.String("subject_prefix", cfg.SubjectPrefix))

	return p, nil
}

// ensureStream creates or updates the stream capturing all run subjects.
func (p *Publisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	name := strings.ToUpper(strings.ReplaceAll(p.prefix, ".", "_")) + "_RUNS"
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        name,
		Description: "Stagehand refresh run events",
		Subjects:    []string{p.prefix + ".runs.>"},
		MaxAge:      30 * 24 * time.Hour,
	})
	if err != nil {
		return fnderrors.DaemonError("ensuring run event stream").
			WithContext("stream", name).
			Cause(err).
			Build()
	}
	return nil
}

// PublishEvent forwards a store event to its run subject.
func (p *Publisher) PublishEvent(event store.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	envelope := Envelope{
		RunID:     event.RunID(),
		Type:      event.Type(),
		Timestamp: event.Timestamp(),
		Payload:   json.RawMessage(event.Payload()),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fnderrors.DaemonError("marshaling run event").
			WithContext(logfields.KeyRunID, event.RunID()).
			Cause(err).
			Build()
	}

	subject := SubjectFor(p.prefix, event.Type())
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fnderrors.DaemonError("publishing run event").
			WithContext("subject", subject).
			WithContext(logfields.KeyRunID, event.RunID()).
			Cause(err).
			Build()
	}

	p.logger.Debug("published run event",
		slog.String("subject", subject),
		logfields.RunID(event.RunID()))

	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// SubjectFor maps a store event type onto its NATS subject.
func SubjectFor(prefix, eventType string) string {
	var leaf string
	switch eventType {
	case store.TypeRunStarted:
		leaf = "started"
	case store.TypeRepoStatusRecorded:
		leaf = "repo_status"
	case store.TypeRunCompleted:
		leaf = "completed"
	case store.TypeRunFailed:
		leaf = "failed"
	default:
		leaf = strings.ToLower(eventType)
	}
	return fmt.Sprintf("%s.runs.%s", prefix, leaf)
}
