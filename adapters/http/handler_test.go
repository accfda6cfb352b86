package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/worldgate/adapters/clock"
	httpadapter "github.com/artpar/worldgate/adapters/http"
	"github.com/artpar/worldgate/adapters/idgen"
	"github.com/artpar/worldgate/adapters/memory"
	"github.com/artpar/worldgate/adapters/metrics"
	"github.com/artpar/worldgate/app"
	"github.com/artpar/worldgate/core/events"
	"github.com/artpar/worldgate/core/registry"
)

const worldDoc = `<World Name="Earth">
  <Float Name="Gravity" Value="9.5"/>
  <Sector Name="North">
    <Entity ClassName="Entity" InstanceName="Hero">
      <Integer Name="Health" Value="100"/>
    </Entity>
  </Sector>
</World>`

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

func setupRouter(t *testing.T, opts app.ParseOptions, db httpadapter.HealthChecker) (http.Handler, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	classes := registry.Default()

	bus := events.NewBus(zerolog.Nop())
	m.Subscribe(bus)

	svc := app.NewParseService(app.ParseServiceDeps{
		Factory: classes,
		Runs:    memory.NewRunStore(),
		Events:  bus,
		Clock:   clock.Real{},
		IDs:     idgen.NewSequential("run_"),
		Logger:  zerolog.Nop(),
	}, opts)

	h := httpadapter.NewHandler(svc, classes, zerolog.Nop())
	router := httpadapter.NewRouter(h, httpadapter.NewHealthHandler(db), zerolog.Nop(), httpadapter.RouterConfig{
		Metrics: m,
		Version: "1.2.3",
	})
	return router, reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
}

func TestParseDocument(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{}, nil)

	rec := do(t, router, "POST", "/v1/documents/parse", worldDoc)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s", ct)
	}

	var resp httpadapter.ParseResponse
	decode(t, rec, &resp)

	if resp.RunID != "run_1" {
		t.Errorf("RunID = %s, want run_1", resp.RunID)
	}
	if resp.Elements != 5 {
		t.Errorf("Elements = %d, want 5", resp.Elements)
	}
	if resp.World.Role != "world" || resp.World.Name != "Earth" {
		t.Errorf("World = %s %s", resp.World.Role, resp.World.Name)
	}

	var gravity string
	for _, a := range resp.World.Attributes {
		if a.Name == "Gravity" && len(a.Values) == 1 {
			gravity = a.Values[0]
		}
	}
	if gravity != "9.5" {
		t.Errorf("Gravity = %q, want 9.5", gravity)
	}
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed literal", `<World Name="W"><Integer Name="X" Value="five"/></World>`, 422, "MALFORMED_LITERAL"},
		{"unexpected element", `<World Name="W"><Entity ClassName="Entity" InstanceName="E"/></World>`, 422, "UNEXPECTED_ELEMENT"},
		{"missing attribute", `<World/>`, 422, "MISSING_ATTRIBUTE"},
		{"broken xml", `<World Name="W"><Sector Name="S"></World>`, 400, "MALFORMED_DOCUMENT"},
		{"no world", `<Notes/>`, 404, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupRouter(t, app.ParseOptions{}, nil)

			rec := do(t, router, "POST", "/v1/documents/parse", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp httpadapter.ErrorResponse
			decode(t, rec, &resp)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if resp.Message == "" || resp.RunID == "" {
				t.Errorf("response = %+v, want message and run_id", resp)
			}
		})
	}
}

func TestParseDocument_TooLarge(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{MaxDocumentBytes: 32}, nil)

	rec := do(t, router, "POST", "/v1/documents/parse", worldDoc)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	var resp httpadapter.ErrorResponse
	decode(t, rec, &resp)
	if resp.Code != "TOO_LARGE" {
		t.Errorf("code = %s, want TOO_LARGE", resp.Code)
	}
}

func TestRuns(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{}, nil)

	do(t, router, "POST", "/v1/documents/parse", worldDoc)
	do(t, router, "POST", "/v1/documents/parse", `<World/>`)

	rec := do(t, router, "GET", "/v1/runs?limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list struct {
		Runs []httpadapter.RunResponse `json:"runs"`
	}
	decode(t, rec, &list)
	if len(list.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(list.Runs))
	}

	rec = do(t, router, "GET", "/v1/runs/run_1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET run_1 status = %d", rec.Code)
	}
	var one httpadapter.RunResponse
	decode(t, rec, &one)
	if one.Status != "ok" || one.WorldName != "Earth" || one.Source != "request" {
		t.Errorf("run_1 = %+v", one)
	}

	rec = do(t, router, "GET", "/v1/runs/summary", "")
	var summary httpadapter.SummaryResponse
	decode(t, rec, &summary)
	if summary.Total != 2 || summary.Failed != 1 || summary.ByCode["MISSING_ATTRIBUTE"] != 1 {
		t.Errorf("summary = %+v", summary)
	}

	rec = do(t, router, "GET", "/v1/runs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET missing run status = %d, want 404", rec.Code)
	}
}

func TestRuns_BadLimit(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{}, nil)

	for _, limit := range []string{"0", "-3", "many"} {
		rec := do(t, router, "GET", "/v1/runs?limit="+limit, "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("limit=%s status = %d, want 422", limit, rec.Code)
		}
	}
}

func TestClasses(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{}, nil)

	rec := do(t, router, "GET", "/v1/classes", "")
	var resp struct {
		Classes []struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"classes"`
	}
	decode(t, rec, &resp)

	if len(resp.Classes) != 4 {
		t.Fatalf("classes = %+v", resp.Classes)
	}
	if resp.Classes[0].Name != "Action" || resp.Classes[0].Role != "action" {
		t.Errorf("first class = %+v", resp.Classes[0])
	}
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{}, stubPinger{})
	if rec := do(t, router, "GET", "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}
	if rec := do(t, router, "GET", "/healthz/ready", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz/ready status = %d", rec.Code)
	}

	down, _ := setupRouter(t, app.ParseOptions{}, stubPinger{err: context.DeadlineExceeded})
	if rec := do(t, down, "GET", "/healthz/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy /healthz/ready status = %d, want 503", rec.Code)
	}
}

func TestVersion(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{}, nil)

	var resp httpadapter.VersionResponse
	decode(t, do(t, router, "GET", "/version", ""), &resp)
	if resp.Version != "1.2.3" || resp.Service != "worldgate" {
		t.Errorf("version = %+v", resp)
	}
}

func TestNotFound(t *testing.T) {
	router, _ := setupRouter(t, app.ParseOptions{}, nil)

	rec := do(t, router, "GET", "/v2/anything", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp httpadapter.ErrorResponse
	decode(t, rec, &resp)
	if resp.Code != "NOT_FOUND" {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, reg := setupRouter(t, app.ParseOptions{}, nil)

	do(t, router, "POST", "/v1/documents/parse", worldDoc)

	rec := do(t, router, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "worldgate_parses_total") {
		t.Error("/metrics should expose parse counters")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "worldgate_requests_total" {
			for _, m := range f.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "route" && l.GetValue() == "/v1/documents/parse" {
						return
					}
				}
			}
		}
	}
	t.Error("requests_total should label the parse route by pattern")
}

func TestTimeoutConfig(t *testing.T) {
	router := httpadapter.NewRouter(
		httpadapter.NewHandler(nil, registry.New(), zerolog.Nop()),
		httpadapter.NewHealthHandler(nil),
		zerolog.Nop(),
		httpadapter.RouterConfig{Timeout: time.Second},
	)
	if rec := do(t, router, "GET", "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}
	if rec := do(t, router, "GET", "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without collector status = %d, want 404", rec.Code)
	}
}
