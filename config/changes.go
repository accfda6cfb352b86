package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Change is one setting that differs between two configurations.
type Change struct {
	Field string
	Old   any
	New   any

	// Restart marks settings the running process cannot pick up.
	Restart bool
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %v -> %v", c.Field, c.Old, c.New)
}

// Changes is the ordered result of Diff.
type Changes []Change

// Has reports whether any changed field equals name or, when name ends in
// ".", starts with it.
func (cs Changes) Has(name string) bool {
	for _, c := range cs {
		if c.Field == name || (strings.HasSuffix(name, ".") && strings.HasPrefix(c.Field, name)) {
			return true
		}
	}
	return false
}

// Applied returns the changes that take effect without a restart.
func (cs Changes) Applied() Changes {
	return cs.filter(false)
}

// Pending returns the changes that wait for a restart.
func (cs Changes) Pending() Changes {
	return cs.filter(true)
}

// Fields returns the changed field names.
func (cs Changes) Fields() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Field
	}
	return names
}

func (cs Changes) filter(restart bool) Changes {
	var out Changes
	for _, c := range cs {
		if c.Restart == restart {
			out = append(out, c)
		}
	}
	return out
}

// setting describes one field of Config. pin copies the running value into
// the next configuration; it is set only for restart-only settings.
type setting struct {
	name string
	get  func(*Config) any
	pin  func(next, running *Config)
}

func (s setting) restart() bool { return s.pin != nil }

// settings lists every field in file order. The HTTP server, ledger,
// metrics registry, logger output and document watcher are built once at
// startup, so their settings are restart-only.
var settings = []setting{
	{"server.host", func(c *Config) any { return c.Server.Host }, func(n, r *Config) { n.Server.Host = r.Server.Host }},
	{"server.port", func(c *Config) any { return c.Server.Port }, func(n, r *Config) { n.Server.Port = r.Server.Port }},
	{"server.read_timeout", func(c *Config) any { return c.Server.ReadTimeout }, func(n, r *Config) { n.Server.ReadTimeout = r.Server.ReadTimeout }},
	{"server.write_timeout", func(c *Config) any { return c.Server.WriteTimeout }, func(n, r *Config) { n.Server.WriteTimeout = r.Server.WriteTimeout }},
	{"server.shutdown_timeout", func(c *Config) any { return c.Server.ShutdownTimeout }, func(n, r *Config) { n.Server.ShutdownTimeout = r.Server.ShutdownTimeout }},
	{"database.driver", func(c *Config) any { return c.Database.Driver }, func(n, r *Config) { n.Database.Driver = r.Database.Driver }},
	{"database.dsn", func(c *Config) any { return c.Database.DSN }, func(n, r *Config) { n.Database.DSN = r.Database.DSN }},
	{"logging.level", func(c *Config) any { return c.Logging.Level }, nil},
	{"logging.format", func(c *Config) any { return c.Logging.Format }, func(n, r *Config) { n.Logging.Format = r.Logging.Format }},
	{"metrics.enabled", func(c *Config) any { return c.Metrics.Enabled }, func(n, r *Config) { n.Metrics.Enabled = r.Metrics.Enabled }},
	{"metrics.path", func(c *Config) any { return c.Metrics.Path }, func(n, r *Config) { n.Metrics.Path = r.Metrics.Path }},
	{"parser.strict", func(c *Config) any { return c.Parser.Strict }, nil},
	{"parser.max_document_bytes", func(c *Config) any { return c.Parser.MaxDocumentBytes }, nil},
	{"parser.workers", func(c *Config) any { return c.Parser.Workers }, nil},
	{"watch.paths", func(c *Config) any { return c.Watch.Paths }, func(n, r *Config) { n.Watch.Paths = r.Watch.Paths }},
	{"watch.debounce", func(c *Config) any { return c.Watch.Debounce }, func(n, r *Config) { n.Watch.Debounce = r.Watch.Debounce }},
}

// Diff lists the settings that differ between running and next.
func Diff(running, next *Config) Changes {
	var cs Changes
	for _, s := range settings {
		old, cur := s.get(running), s.get(next)
		if reflect.DeepEqual(old, cur) {
			continue
		}
		cs = append(cs, Change{Field: s.name, Old: old, New: cur, Restart: s.restart()})
	}
	return cs
}

// pinRestartOnly copies every restart-only setting of running into next, so
// next describes what the process actually runs with.
func pinRestartOnly(next, running *Config) {
	for _, s := range settings {
		if s.restart() {
			s.pin(next, running)
		}
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return fieldNames(false)
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return fieldNames(true)
}

func fieldNames(restart bool) []string {
	var names []string
	for _, s := range settings {
		if s.restart() == restart {
			names = append(names, s.name)
		}
	}
	return names
}
