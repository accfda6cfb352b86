package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Listener receives the configuration after a reload together with the
// changes that were applied. Restart-only changes are never passed on.
type Listener func(cfg *Config, applied Changes)

// Holder owns the running configuration and reloads it from disk on
// request, on file writes and on SIGHUP.
//
// After a reload, Get returns the new file's reloadable settings combined
// with the startup values of every restart-only setting.
type Holder struct {
	path   string
	logger zerolog.Logger

	mu        sync.RWMutex
	config    *Config
	listeners []Listener
	pending   Changes

	reloadMu sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	cfg, err := Load(abs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &Holder{
		path:   abs,
		logger: logger.With().Str("component", "config").Logger(),
		config: cfg,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the running configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Path returns the absolute path of the config file.
func (h *Holder) Path() string { return h.path }

// Pending returns the restart-only changes seen since startup, relative to
// the startup configuration.
func (h *Holder) Pending() Changes {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append(Changes(nil), h.pending...)
}

// OnChange registers fn to run after every reload that applied something.
func (h *Holder) OnChange(fn Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload reads the file again. An invalid file leaves the running
// configuration untouched. It returns every difference found, including
// restart-only ones, which are logged and kept at their running values.
func (h *Holder) Reload() (Changes, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping running config")
		return nil, fmt.Errorf("reload config: %w", err)
	}

	running := h.Get()
	changes := Diff(running, next)
	pinRestartOnly(next, running)
	applied, pending := changes.Applied(), changes.Pending()

	h.mu.Lock()
	h.config = next
	h.pending = mergePending(h.pending, pending)
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()

	for _, c := range applied {
		h.logger.Info().Str("field", c.Field).Interface("old", c.Old).Interface("new", c.New).Msg("setting changed")
	}
	if len(pending) > 0 {
		h.logger.Warn().Strs("fields", pending.Fields()).Msg("settings need a restart, keeping running values")
	}
	if len(applied) == 0 {
		h.logger.Debug().Msg("config reloaded, nothing to apply")
		return changes, nil
	}

	for _, fn := range listeners {
		fn(next, applied)
	}
	return changes, nil
}

// mergePending replaces earlier entries for the same field.
func mergePending(prev, next Changes) Changes {
	if len(next) == 0 {
		return prev
	}
	out := append(Changes(nil), next...)
	for _, c := range prev {
		if !next.Has(c.Field) {
			out = append(out, c)
		}
	}
	return out
}

// Watch reloads on writes to the config file and on SIGHUP until Stop.
// The directory is watched so editors that save by rename still trigger.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go h.loop(watcher, sigCh)
	h.logger.Info().Str("path", h.path).Msg("watching config file and SIGHUP")
	return nil
}

func (h *Holder) loop(watcher *fsnotify.Watcher, sigCh chan os.Signal) {
	defer watcher.Close()
	defer signal.Stop(sigCh)

	for {
		var trigger string
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != h.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			trigger = "file"
		case <-sigCh:
			trigger = "SIGHUP"
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")
			continue
		case <-h.stopCh:
			return
		}

		h.logger.Debug().Str("trigger", trigger).Msg("reloading config")
		if _, err := h.Reload(); err != nil {
			h.logger.Error().Err(err).Str("trigger", trigger).Msg("config reload failed")
		}
	}
}

// Stop ends Watch. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}
