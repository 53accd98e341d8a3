package daemon

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/stagehand/internal/config"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// configApplier receives a freshly loaded configuration. Implemented by
// Daemon; narrowed to an interface so the watcher is testable on its own.
type configApplier interface {
	ReloadConfig(newCfg *config.Config) error
}

// ConfigWatcher reloads the daemon configuration when the config file
// changes on disk. Editors replace files in different ways, so the watcher
// observes the parent directory and debounces bursts of events.
type ConfigWatcher struct {
	configPath string
	applier    configApplier
	logger     *slog.Logger
	watcher    *fsnotify.Watcher

	stopChan     chan struct{}
	stopOnce     sync.Once
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// NewConfigWatcher creates a watcher for the given config file.
func NewConfigWatcher(configPath string, applier configApplier, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fnderrors.DaemonError("creating config file watcher").
			Cause(err).
			Build()
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, fnderrors.DaemonError("resolving config path").
			WithContext(logfields.KeyPath, configPath).
			Cause(err).
			Build()
	}

	return &ConfigWatcher{
		configPath:   absPath,
		applier:      applier,
		logger:       logger,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}, nil
}

// Start begins watching. Goroutines run until Stop.
func (cw *ConfigWatcher) Start() error {
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fnderrors.DaemonError("watching config directory").
			WithContext(logfields.KeyPath, configDir).
			Cause(err).
			Build()
	}

	cw.logger.Info("config watcher started", logfields.Path(cw.configPath))

	go cw.watchLoop()
	go cw.reloadLoop()
	return nil
}

// Stop terminates the watch goroutines and closes the filesystem watcher.
func (cw *ConfigWatcher) Stop() error {
	cw.stopOnce.Do(func() { close(cw.stopChan) })
	if err := cw.watcher.Close(); err != nil {
		return fnderrors.DaemonError("closing config file watcher").
			Cause(err).
			Build()
	}
	return nil
}

// watchLoop filters directory events down to the config file itself.
func (cw *ConfigWatcher) watchLoop() {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				cw.logger.Debug("config file changed", logfields.Path(event.Name))
				cw.triggerReload()
			case event.Op.Has(fsnotify.Remove):
				cw.logger.Warn("config file removed", logfields.Path(event.Name))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("config watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop debounces change notifications before applying a reload.
func (cw *ConfigWatcher) reloadLoop() {
	var reloadTimer *time.Timer

	for {
		select {
		case <-cw.stopChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.reloadChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(); err != nil {
					cw.logger.Error("config reload failed", logfields.Error(err))
				}
			})
		}
	}
}

// triggerReload is non-blocking; a pending reload absorbs further triggers.
func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

// performReload loads the file and hands the validated result to the daemon.
// Load rejects invalid files, so a broken edit leaves the running config
// untouched.
func (cw *ConfigWatcher) performReload() error {
	cw.logger.Info("reloading configuration", logfields.Path(cw.configPath))

	newCfg, err := config.Load(cw.configPath)
	if err != nil {
		return err
	}
	return cw.applier.ReloadConfig(newCfg)
}
