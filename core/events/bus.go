// Package events carries parse lifecycle notifications between the parse
// service and whoever watches it (the watch command, metrics, logs).
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Event names published by the parse service.
const (
	DocumentParsed  = "document.parsed"
	DocumentFailed  = "document.failed"
	DocumentChanged = "document.changed"
)

// Data keys carried by document.parsed and document.failed.
const (
	KeyWorld    = "world"    // string, parsed only
	KeyElements = "elements" // int
	KeyDuration = "duration" // time.Duration
	KeyBytes    = "bytes"    // int, document size; 0 when the file was never read
	KeyCode     = "code"     // string, failed only
	KeyError    = "error"    // string, failed only
)

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "document.parsed").
	Name string

	// Source is the document the event is about: a path or "request".
	Source string

	// RunID links the event to a ledger entry, when one was recorded.
	RunID string

	// Data contains the event payload.
	Data map[string]any
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "document.parsed" - exact match
//   - "document.*" - all document events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers, synchronously and in
// registration order: exact subscribers, then prefix wildcards, then "*".
// Handler errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	matched := b.match(event.Name)
	b.mu.RUnlock()

	b.logger.Debug().
		Str("event", event.Name).
		Str("source", event.Source).
		Str("run_id", event.RunID).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// HasSubscribers checks if any handlers would receive event.
func (b *Bus) HasSubscribers(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.match(event)) > 0
}

// match collects the handlers for name. Callers hold b.mu.
func (b *Bus) match(name string) []Handler {
	var matched []Handler
	matched = append(matched, b.handlers[name]...)
	if prefix, _, ok := strings.Cut(name, "."); ok {
		matched = append(matched, b.handlers[prefix+".*"]...)
	}
	if name != "*" {
		matched = append(matched, b.handlers["*"]...)
	}
	return matched
}
