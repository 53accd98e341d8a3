// Package daemon runs the continuous onboarding loop: periodic status
// refreshes over the configured forge, a persistent run history backed by the
// event store, optional NATS publishing, and the HTTP dashboard that serves
// the latest snapshot. The daemon owns component lifecycles; commands only
// construct it and wait.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/stagehand/internal/catalog"
	"git.home.luguber.info/inful/stagehand/internal/config"
	"git.home.luguber.info/inful/stagehand/internal/dashboard"
	"git.home.luguber.info/inful/stagehand/internal/events"
	"git.home.luguber.info/inful/stagehand/internal/forge"
	"git.home.luguber.info/inful/stagehand/internal/foundation"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
	"git.home.luguber.info/inful/stagehand/internal/metrics"
	"git.home.luguber.info/inful/stagehand/internal/retry"
	"git.home.luguber.info/inful/stagehand/internal/store"
)

// Status describes the daemon lifecycle state.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Refresh triggers recorded on run events.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerReload   = "reload"
)

// runHistorySize bounds the in-memory run history served by the dashboard.
const runHistorySize = 50

// Daemon coordinates the scheduler, the forge-backed catalog service, the
// run-event store and the dashboard server.
type Daemon struct {
	// mu guards cfg, client, svc and policy across config reloads.
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	client     forge.Client
	svc        *catalog.Service
	policy     retry.Policy

	logger    *slog.Logger
	status    atomic.Value
	startTime time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
	cancelRun context.CancelFunc
	runCtx    context.Context

	eventStore store.Store
	projection *store.RunHistoryProjection
	emitter    *Emitter
	publisher  *events.Publisher
	recorder   metrics.Recorder
	dashboard  *dashboard.Server
	scheduler  *Scheduler
	watcher    *ConfigWatcher

	// refreshMu serializes refresh runs; a slow forge must not stack them.
	refreshMu sync.Mutex
	snapMu    sync.RWMutex
	snapshot  *dashboard.Snapshot

	// Overridable in tests for deterministic runs.
	newRunID func() string
	now      func() time.Time
}

// New wires a daemon from configuration. configPath enables hot reload via
// the config watcher; pass "" to disable watching.
func New(cfg *config.Config, configPath string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := forge.NewClient(cfg.Forge, logger)
	if err != nil {
		return nil, err
	}

	eventStore, err := store.NewSQLiteStore(cfg.Daemon.StorePath)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:        cfg,
		configPath: configPath,
		client:     client,
		svc:        catalog.NewService(client, logger, serviceOptions(cfg)),
		policy:     retryPolicy(cfg),
		logger:     logger,
		stopChan:   make(chan struct{}),
		eventStore: eventStore,
		projection: store.NewRunHistoryProjection(eventStore, runHistorySize),
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	d.status.Store(StatusStopped)

	var publisher *events.Publisher
	if cfg.Daemon.NATS.Enabled {
		publisher, err = events.NewPublisher(cfg.Daemon.NATS, logger)
		if err != nil {
			_ = eventStore.Close()
			return nil, err
		}
	}
	d.publisher = publisher
	d.emitter = NewEmitter(eventStore, d.projection, publisher, logger)

	registry := metrics.NewRegistry()
	d.recorder = metrics.NewPrometheusRecorder(registry)
	d.dashboard = dashboard.NewServer(cfg.Daemon.Listen, d, metrics.HTTPHandler(registry), logger)

	scheduler, err := NewScheduler()
	if err != nil {
		d.closeComponents(context.Background())
		return nil, err
	}
	d.scheduler = scheduler

	if configPath != "" {
		watcher, err := NewConfigWatcher(configPath, d, logger)
		if err != nil {
			d.closeComponents(context.Background())
			return nil, err
		}
		d.watcher = watcher
	}

	return d, nil
}

// GetStatus returns the current lifecycle state.
func (d *Daemon) GetStatus() Status {
	if s, ok := d.status.Load().(Status); ok {
		return s
	}
	return StatusStopped
}

// Start brings all components up and blocks until the context is canceled or
// Stop is called. The first refresh runs immediately so the dashboard has
// data before the first scheduled tick.
func (d *Daemon) Start(ctx context.Context) error {
	if current := d.GetStatus(); current != StatusStopped {
		return fnderrors.NewError(fnderrors.CategoryDaemon, "daemon is not stopped").
			WithContext(logfields.KeyStatus, string(current)).
			Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = d.now()

	if err := d.projection.Rebuild(ctx); err != nil {
		// A corrupt history is not fatal; the daemon rebuilds it as runs complete.
		d.logger.Warn("rebuilding run history failed", logfields.Error(err))
	}

	if err := d.dashboard.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.runCtx = runCtx
	d.cancelRun = cancel

	if err := d.scheduler.ScheduleRefresh(d.interval(), d.scheduledRefresh); err != nil {
		d.status.Store(StatusError)
		_ = d.dashboard.Stop(context.Background())
		cancel()
		return err
	}
	d.scheduler.Start()

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			// Hot reload is a convenience; the daemon runs fine without it.
			d.logger.Warn("config watcher failed to start", logfields.Error(err))
			d.watcher = nil
		}
	}

	d.status.Store(StatusRunning)
	d.logger.Info("daemon started",
		logfields.Org(d.orgName()),
		slog.Duration("interval", d.interval()),
		slog.String("listen", d.listenAddr()),
	)

	go d.refresh(runCtx, TriggerStartup)

	// Block until shutdown; Stop owns the state transitions from here.
	select {
	case <-ctx.Done():
	case <-d.stopChan:
	}
	return nil
}

// Stop shuts components down in reverse start order and closes the store.
// Safe to call more than once.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.GetStatus() == StatusStopped {
		return nil
	}
	d.status.Store(StatusStopping)
	d.stopOnce.Do(func() { close(d.stopChan) })
	if d.cancelRun != nil {
		d.cancelRun()
	}

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Warn("stopping config watcher", logfields.Error(err))
		}
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			d.logger.Warn("stopping scheduler", logfields.Error(err))
		}
	}
	d.closeComponents(ctx)

	d.status.Store(StatusStopped)
	d.logger.Info("daemon stopped", slog.Duration("uptime", d.now().Sub(d.startTime)))
	return nil
}

// closeComponents tears down the dashboard, publisher and store. Used by both
// Stop and the New error paths.
func (d *Daemon) closeComponents(ctx context.Context) {
	if d.dashboard != nil {
		if err := d.dashboard.Stop(ctx); err != nil {
			d.logger.Warn("stopping dashboard server", logfields.Error(err))
		}
	}
	if d.publisher != nil {
		_ = d.publisher.Close()
	}
	if d.eventStore != nil {
		if err := d.eventStore.Close(); err != nil {
			d.logger.Warn("closing event store", logfields.Error(err))
		}
	}
}

// scheduledRefresh is the closure handed to the scheduler. It survives config
// reloads because it reads runCtx at call time.
func (d *Daemon) scheduledRefresh() {
	d.refresh(d.runCtx, TriggerSchedule)
}

// Snapshot implements dashboard.Provider.
func (d *Daemon) Snapshot() foundation.Option[dashboard.Snapshot] {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	if d.snapshot == nil {
		return foundation.None[dashboard.Snapshot]()
	}
	return foundation.Some(*d.snapshot)
}

// History implements dashboard.Provider.
func (d *Daemon) History() []*store.RunSummaryView {
	return d.projection.GetHistory()
}

// ActiveRun implements dashboard.Provider.
func (d *Daemon) ActiveRun() *store.RunSummaryView {
	return d.projection.GetActiveRun()
}

func (d *Daemon) setSnapshot(snap dashboard.Snapshot) {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	d.snapshot = &snap
}

// service returns the current catalog service under the config lock.
func (d *Daemon) service() *catalog.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.svc
}

func (d *Daemon) orgName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.Forge.Org
}

func (d *Daemon) interval() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.Daemon.Interval
}

func (d *Daemon) listenAddr() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.Daemon.Listen
}

func (d *Daemon) currentPolicy() retry.Policy {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.policy
}

// ReloadConfig swaps in a validated configuration. The forge client and
// catalog service are rebuilt when their settings changed; the refresh job is
// rescheduled on interval changes. Listen address, store path and NATS
// changes require a restart and are only logged.
func (d *Daemon) ReloadConfig(newCfg *config.Config) error {
	d.mu.Lock()
	old := d.cfg

	client := d.client
	if old.Forge != newCfg.Forge {
		newClient, err := forge.NewClient(newCfg.Forge, d.logger)
		if err != nil {
			d.mu.Unlock()
			return fnderrors.WrapError(err, fnderrors.CategoryDaemon, "rebuilding forge client for new config").Build()
		}
		client = newClient
	}
	d.client = client
	d.svc = catalog.NewService(client, d.logger, serviceOptions(newCfg))
	d.policy = retryPolicy(newCfg)

	intervalChanged := old.Daemon.Interval != newCfg.Daemon.Interval
	if old.Daemon.Listen != newCfg.Daemon.Listen {
		d.logger.Warn("dashboard listen address changed, restart required to apply",
			slog.String("listen", newCfg.Daemon.Listen))
	}
	if old.Daemon.StorePath != newCfg.Daemon.StorePath {
		d.logger.Warn("store path changed, restart required to apply",
			slog.String("store_path", newCfg.Daemon.StorePath))
	}
	if old.Daemon.NATS != newCfg.Daemon.NATS {
		d.logger.Warn("nats settings changed, restart required to apply")
	}
	d.cfg = newCfg
	d.mu.Unlock()

	if intervalChanged {
		if err := d.scheduler.ScheduleRefresh(newCfg.Daemon.Interval, d.scheduledRefresh); err != nil {
			return err
		}
		d.logger.Info("refresh interval updated", slog.Duration("interval", newCfg.Daemon.Interval))
	}

	d.logger.Info("configuration reloaded")
	if d.runCtx != nil {
		go d.refresh(d.runCtx, TriggerReload)
	}
	return nil
}

// serviceOptions maps configuration onto catalog service options. The status
// branch marker follows the onboarding branch prefix so in-progress detection
// matches the branches the orchestrator creates.
func serviceOptions(cfg *config.Config) catalog.Options {
	return catalog.Options{
		Workers:        cfg.Onboarding.Workers,
		ScoreThreshold: cfg.Catalog.ScoreThreshold,
		ReportLimit:    cfg.Catalog.ReportLimit,
		BranchMarker:   cfg.Onboarding.BranchPrefix,
		DefaultOwner:   cfg.Catalog.DefaultOwner,
	}
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.NewPolicy(
		config.NormalizeRetryBackoff(cfg.Daemon.Retry.Backoff),
		cfg.Daemon.Retry.Initial,
		cfg.Daemon.Retry.Max,
		cfg.Daemon.Retry.MaxRetries,
	)
}

var _ dashboard.Provider = (*Daemon)(nil)
