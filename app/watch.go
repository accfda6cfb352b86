package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/worldgate/core/events"
)

// DocumentWatcher reparses documents when they change on disk.
type DocumentWatcher struct {
	parser   *ParseService
	bus      *events.Bus
	logger   zerolog.Logger
	debounce time.Duration
}

// NewDocumentWatcher creates a watcher. bus may be nil.
func NewDocumentWatcher(parser *ParseService, bus *events.Bus, logger zerolog.Logger, debounce time.Duration) *DocumentWatcher {
	return &DocumentWatcher{
		parser:   parser,
		bus:      bus,
		logger:   logger.With().Str("component", "watch").Logger(),
		debounce: debounce,
	}
}

// Run parses every path once, then again after each change, until ctx
// ends. onResult, when not nil, receives every outcome; the same outcomes
// are published on the bus. Bursts of writes closer together than the
// debounce interval cause a single reparse.
func (w *DocumentWatcher) Run(ctx context.Context, paths []string, onResult func(Result, error)) error {
	if onResult == nil {
		onResult = func(Result, error) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Directories are watched so editors that save by rename still trigger.
	tracked := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		tracked[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	for _, p := range paths {
		onResult(w.parser.ParseFile(ctx, p))
	}
	w.logger.Info().Int("documents", len(paths)).Msg("watching documents for changes")

	deb := newDebouncer(ctx, w.debounce)
	defer deb.stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			p, ok := tracked[event.Name]
			if !ok || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			deb.touch(p)

		case f := <-deb.due:
			if !deb.settle(f) {
				continue
			}
			w.logger.Debug().Str("file", f.path).Msg("document changed")
			if w.bus != nil {
				w.bus.Publish(ctx, events.Event{Name: events.DocumentChanged, Source: f.path})
			}
			onResult(w.parser.ParseFile(ctx, f.path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("document watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

// firing is one timer expiry for path. gen identifies the touch that armed it.
type firing struct {
	path string
	gen  uint64
}

// debouncer coalesces touches per path. A timer that already fired cannot be
// recalled, so each touch arms a new generation and settle drops firings
// from older ones. Only the owning goroutine calls touch and settle.
type debouncer struct {
	ctx    context.Context
	delay  time.Duration
	due    chan firing
	timers map[string]*time.Timer
	gens   map[string]uint64
}

func newDebouncer(ctx context.Context, delay time.Duration) *debouncer {
	return &debouncer{
		ctx:    ctx,
		delay:  delay,
		due:    make(chan firing),
		timers: make(map[string]*time.Timer),
		gens:   make(map[string]uint64),
	}
}

func (d *debouncer) touch(path string) {
	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.gens[path]++
	f := firing{path: path, gen: d.gens[path]}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		select {
		case d.due <- f:
		case <-d.ctx.Done():
		}
	})
}

// settle reports whether f is the latest firing for its path, and if so
// forgets the path's timer.
func (d *debouncer) settle(f firing) bool {
	if d.gens[f.path] != f.gen {
		return false
	}
	delete(d.timers, f.path)
	return true
}

func (d *debouncer) stop() {
	for _, t := range d.timers {
		t.Stop()
	}
}
