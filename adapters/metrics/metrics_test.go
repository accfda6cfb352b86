package metrics_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/worldgate/adapters/metrics"
	"github.com/artpar/worldgate/core/events"
	"github.com/artpar/worldgate/domain/run"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.ParsesTotal == nil {
		t.Error("ParsesTotal is nil")
	}
	if m.ParseDuration == nil {
		t.Error("ParseDuration is nil")
	}
	if m.DocumentBytes == nil {
		t.Error("DocumentBytes is nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.ConfigReloads == nil {
		t.Error("ConfigReloads is nil")
	}
}

func TestRecordParse(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RecordParse(run.StatusOK, "", 12, 3*time.Millisecond)
	m.RecordParse(run.StatusFailed, "MALFORMED_LITERAL", 4, time.Millisecond)
	m.RecordParse(run.StatusFailed, "MALFORMED_LITERAL", 2, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
		if f.GetName() == "worldgate_parses_total" {
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric series, got %d", len(f.GetMetric()))
			}
		}
		if f.GetName() == "worldgate_parse_elements" {
			if got := f.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
				t.Errorf("parse_elements sample count = %d, want 3", got)
			}
		}
	}
	for _, name := range []string{"worldgate_parses_total", "worldgate_parse_duration_seconds", "worldgate_parse_elements"} {
		if !found[name] {
			t.Errorf("%s metric not found", name)
		}
	}
}

func TestObserveDocumentBytes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveDocumentBytes(1024)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "worldgate_document_bytes" {
			if got := f.GetMetric()[0].GetHistogram().GetSampleSum(); got != 1024 {
				t.Errorf("document_bytes sum = %v, want 1024", got)
			}
			return
		}
	}
	t.Error("worldgate_document_bytes metric not found")
}

func TestConfigReloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ConfigReloads.Inc()
	m.ConfigLastReload.SetToCurrentTime()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	foundReloads := false
	foundLastReload := false
	for _, f := range families {
		if f.GetName() == "worldgate_config_reloads_total" {
			foundReloads = true
		}
		if f.GetName() == "worldgate_config_last_reload_timestamp" {
			foundLastReload = true
		}
	}
	if !foundReloads {
		t.Error("worldgate_config_reloads_total metric not found")
	}
	if !foundLastReload {
		t.Error("worldgate_config_last_reload_timestamp metric not found")
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	m.DocumentChanges.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "worldgate_document_changes_total 1") {
		t.Errorf("body missing document changes counter:\n%s", rec.Body.String())
	}
}

func TestSubscribe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	bus := events.NewBus(zerolog.Nop())
	m.Subscribe(bus)

	ctx := context.Background()
	bus.Publish(ctx, events.Event{Name: events.DocumentParsed, Data: map[string]any{
		events.KeyElements: 5,
		events.KeyDuration: 2 * time.Millisecond,
		events.KeyBytes:    300,
	}})
	bus.Publish(ctx, events.Event{Name: events.DocumentFailed, Data: map[string]any{
		events.KeyCode:     "NOT_FOUND",
		events.KeyElements: 0,
		events.KeyBytes:    0,
	}})
	bus.Publish(ctx, events.Event{Name: events.DocumentChanged, Source: "a.xml"})

	families := gather(t, reg)

	parses := families["worldgate_parses_total"]
	if parses == nil || len(parses.GetMetric()) != 2 {
		t.Fatalf("parses_total = %v, want ok and failed series", parses)
	}
	for _, series := range parses.GetMetric() {
		labels := map[string]string{}
		for _, l := range series.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		if labels["status"] == "failed" && labels["code"] != "NOT_FOUND" {
			t.Errorf("failed series code = %q, want NOT_FOUND", labels["code"])
		}
	}

	// Unread files report zero bytes and are not observed.
	if got := families["worldgate_document_bytes"].GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("document_bytes samples = %d, want 1", got)
	}
	if got := families["worldgate_document_changes_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("document_changes_total = %v, want 1", got)
	}
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{304, "3xx"},
		{400, "4xx"},
		{422, "4xx"},
		{500, "5xx"},
	}
	for _, tt := range tests {
		if got := metrics.StatusClass(tt.code); got != tt.want {
			t.Errorf("StatusClass(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}
