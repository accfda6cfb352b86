// Package metrics provides Prometheus metrics collection for worldgate.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/artpar/worldgate/core/events"
	"github.com/artpar/worldgate/domain/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "worldgate"

// Collector holds all Prometheus metrics for worldgate.
type Collector struct {
	// Parse metrics
	ParsesTotal    *prometheus.CounterVec
	ParseDuration  *prometheus.HistogramVec
	ParseElements   prometheus.Histogram
	DocumentBytes   prometheus.Histogram
	DocumentChanges prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads    prometheus.Counter
	ConfigLastReload prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		ParsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parses_total",
				Help:      "Total number of documents parsed",
			},
			[]string{"status", "code"},
		),
		ParseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "parse_duration_seconds",
				Help:      "Document parse duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"status"},
		),
		ParseElements: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "parse_elements",
				Help:      "Elements seen per parsed document",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		DocumentBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "document_bytes",
				Help:      "Size of submitted documents in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			},
		),
		DocumentChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_changes_total",
				Help:      "Watched document changes that triggered a reparse",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// RecordParse records one finished parse.
func (c *Collector) RecordParse(status run.Status, code string, elements int, d time.Duration) {
	c.ParsesTotal.WithLabelValues(string(status), code).Inc()
	c.ParseDuration.WithLabelValues(string(status)).Observe(d.Seconds())
	c.ParseElements.Observe(float64(elements))
}

// ObserveDocumentBytes records the size of a submitted document.
func (c *Collector) ObserveDocumentBytes(n int) {
	c.DocumentBytes.Observe(float64(n))
}

// Subscribe counts every document event published on bus.
func (c *Collector) Subscribe(bus *events.Bus) {
	bus.Subscribe("document.*", c.HandleEvent)
}

// HandleEvent records one document event. It never fails.
func (c *Collector) HandleEvent(ctx context.Context, e events.Event) error {
	switch e.Name {
	case events.DocumentChanged:
		c.DocumentChanges.Inc()
		return nil
	case events.DocumentParsed, events.DocumentFailed:
	default:
		return nil
	}

	status, code := run.StatusOK, ""
	if e.Name == events.DocumentFailed {
		status = run.StatusFailed
		code, _ = e.Data[events.KeyCode].(string)
	}
	elements, _ := e.Data[events.KeyElements].(int)
	d, _ := e.Data[events.KeyDuration].(time.Duration)
	c.RecordParse(status, code, elements, d)

	if n, _ := e.Data[events.KeyBytes].(int); n > 0 {
		c.ObserveDocumentBytes(n)
	}
	return nil
}

// Handler serves the metrics registered with this collector.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil || c.gatherer == prometheus.DefaultGatherer {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// StatusClass collapses an HTTP status to its class ("2xx", "4xx").
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
