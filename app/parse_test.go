package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/worldgate/adapters/clock"
	"github.com/artpar/worldgate/adapters/idgen"
	"github.com/artpar/worldgate/adapters/memory"
	"github.com/artpar/worldgate/adapters/metrics"
	"github.com/artpar/worldgate/app"
	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/events"
	"github.com/artpar/worldgate/core/registry"
	"github.com/artpar/worldgate/domain/run"
)

const validDoc = `<World Name="Earth">
  <Sector Name="North">
    <Entity ClassName="Entity" InstanceName="Hero">
      <Integer Name="Health" Value="100"/>
    </Entity>
  </Sector>
</World>`

const badDoc = `<World Name="Earth"><Sector Name="North"><Entity ClassName="Entity" InstanceName="Hero">
<Integer Name="Health" Value="lots"/></Entity></Sector></World>`

type fixture struct {
	svc     *app.ParseService
	runs    *memory.RunStore
	bus     *events.Bus
	metrics *metrics.Collector
	reg     *prometheus.Registry
	clock   *clock.Fake
}

func setupService(t *testing.T, opts app.ParseOptions) *fixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	f := &fixture{
		runs:    memory.NewRunStore(),
		bus:     events.NewBus(zerolog.Nop()),
		metrics: metrics.NewWithRegistry(reg),
		reg:     reg,
	}
	fake := clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	fake.SetStep(2 * time.Millisecond)
	f.clock = fake

	f.metrics.Subscribe(f.bus)

	f.svc = app.NewParseService(app.ParseServiceDeps{
		Factory: registry.Default(),
		Runs:    f.runs,
		Events:  f.bus,
		Clock:   fake,
		IDs:     idgen.NewSequential("run_"),
		Logger:  zerolog.Nop(),
	}, opts)
	return f
}

func TestParse_Success(t *testing.T) {
	f := setupService(t, app.ParseOptions{})

	res, err := f.svc.Parse(context.Background(), run.SourceRequest, []byte(validDoc))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.World == nil || res.World.Name() != "Earth" {
		t.Fatalf("World = %v", res.World)
	}

	r := res.Run
	if r.ID != "run_1" || r.Status != run.StatusOK || r.WorldName != "Earth" {
		t.Errorf("run = %+v", r)
	}
	if r.Elements != 4 {
		t.Errorf("Elements = %d, want 4", r.Elements)
	}
	if r.Duration != 2*time.Millisecond {
		t.Errorf("Duration = %v, want 2ms from the fake clock", r.Duration)
	}
	if r.Digest != run.Digest([]byte(validDoc)) {
		t.Error("Digest should cover the document bytes")
	}

	stored, err := f.runs.Get(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if stored.WorldName != "Earth" {
		t.Errorf("stored WorldName = %s", stored.WorldName)
	}
}

func TestParse_Failure(t *testing.T) {
	f := setupService(t, app.ParseOptions{})

	var got events.Event
	f.bus.Subscribe(events.DocumentFailed, func(ctx context.Context, e events.Event) error {
		got = e
		return nil
	})

	res, err := f.svc.Parse(context.Background(), "worlds/earth.xml", []byte(badDoc))
	if !errors.Is(err, errors.CodeMalformedLiteral) {
		t.Fatalf("Parse error = %v, want MALFORMED_LITERAL", err)
	}
	if !strings.Contains(err.Error(), "worlds/earth.xml:2:") {
		t.Errorf("error %q should carry the source position", err)
	}
	if res.World != nil {
		t.Error("failed parse should not return a world")
	}
	if res.Run.Status != run.StatusFailed || res.Run.ErrorCode != "MALFORMED_LITERAL" {
		t.Errorf("run = %+v", res.Run)
	}
	if got.Name != events.DocumentFailed || got.RunID != res.Run.ID || got.Data["code"] != "MALFORMED_LITERAL" {
		t.Errorf("event = %+v", got)
	}
	if f.runs.Len() != 1 {
		t.Errorf("ledger has %d runs, want 1", f.runs.Len())
	}
}

func TestParse_Events(t *testing.T) {
	f := setupService(t, app.ParseOptions{})

	var names []string
	f.bus.Subscribe("document.*", func(ctx context.Context, e events.Event) error {
		names = append(names, e.Name)
		return nil
	})

	f.svc.Parse(context.Background(), run.SourceRequest, []byte(validDoc))
	f.svc.Parse(context.Background(), run.SourceRequest, []byte(badDoc))

	if len(names) != 2 || names[0] != events.DocumentParsed || names[1] != events.DocumentFailed {
		t.Errorf("events = %v", names)
	}
}

func TestParse_Metrics(t *testing.T) {
	f := setupService(t, app.ParseOptions{})

	f.svc.Parse(context.Background(), run.SourceRequest, []byte(validDoc))
	f.svc.Parse(context.Background(), run.SourceRequest, []byte(badDoc))

	families, err := f.reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := 0
	for _, fam := range families {
		switch fam.GetName() {
		case "worldgate_parses_total":
			found++
			if len(fam.GetMetric()) != 2 {
				t.Errorf("parses_total series = %d, want 2", len(fam.GetMetric()))
			}
		case "worldgate_document_bytes":
			found++
			if got := fam.GetMetric()[0].GetHistogram().GetSampleSum(); got != float64(len(validDoc)+len(badDoc)) {
				t.Errorf("document_bytes sum = %v, want %d", got, len(validDoc)+len(badDoc))
			}
		}
	}
	if found != 2 {
		t.Error("parse metrics not recorded through the event bus")
	}
}

func TestParse_NoWorld(t *testing.T) {
	f := setupService(t, app.ParseOptions{})

	_, err := f.svc.Parse(context.Background(), run.SourceRequest, []byte(`<Notes/>`))
	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestConfigure(t *testing.T) {
	f := setupService(t, app.ParseOptions{})
	doc := []byte(`<World Name="W"><Comment/></World>`)

	if _, err := f.svc.Parse(context.Background(), run.SourceRequest, doc); err != nil {
		t.Fatalf("lenient parse error: %v", err)
	}

	f.svc.Configure(app.ParseOptions{Strict: true})
	if !f.svc.Options().Strict {
		t.Fatal("Options().Strict should be true after Configure")
	}
	if f.svc.Options().Workers != 1 {
		t.Errorf("Workers = %d, want floor of 1", f.svc.Options().Workers)
	}

	_, err := f.svc.Parse(context.Background(), run.SourceRequest, doc)
	if !errors.Is(err, errors.CodeUnexpectedElement) {
		t.Errorf("strict parse error = %v, want UNEXPECTED_ELEMENT", err)
	}
}

func TestParseFile(t *testing.T) {
	f := setupService(t, app.ParseOptions{MaxDocumentBytes: 64})
	dir := t.TempDir()

	small := writeDoc(t, dir, "small.xml", `<World Name="Tiny"/>`)
	res, err := f.svc.ParseFile(context.Background(), small)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if res.World.Name() != "Tiny" || res.Run.Source != small {
		t.Errorf("result = %+v", res.Run)
	}

	big := writeDoc(t, dir, "big.xml", validDoc)
	res, err = f.svc.ParseFile(context.Background(), big)
	if !errors.Is(err, errors.CodeTooLarge) {
		t.Errorf("oversized ParseFile error = %v, want TOO_LARGE", err)
	}
	if res.Run.ErrorCode != "TOO_LARGE" {
		t.Errorf("run ErrorCode = %s, want TOO_LARGE", res.Run.ErrorCode)
	}

	_, err = f.svc.ParseFile(context.Background(), filepath.Join(dir, "missing.xml"))
	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("missing ParseFile error = %v, want NOT_FOUND", err)
	}

	if f.runs.Len() != 3 {
		t.Errorf("ledger has %d runs, want 3", f.runs.Len())
	}
}

func TestValidate(t *testing.T) {
	f := setupService(t, app.ParseOptions{Workers: 3})
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 10; i++ {
		doc := validDoc
		if i%4 == 0 {
			doc = badDoc
		}
		paths = append(paths, writeDoc(t, dir, "w"+string(rune('a'+i))+".xml", doc))
	}

	results, errs, err := f.svc.Validate(context.Background(), paths)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	for i := range paths {
		wantFail := i%4 == 0
		if (errs[i] != nil) != wantFail {
			t.Errorf("paths[%d] error = %v, want failure %v", i, errs[i], wantFail)
		}
		if results[i].Run.Source != paths[i] {
			t.Errorf("results[%d] is for %s, want %s", i, results[i].Run.Source, paths[i])
		}
	}

	summary, err := f.svc.Summary(context.Background(), 100)
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if summary.Total != 10 || summary.Failed != 3 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestValidate_Canceled(t *testing.T) {
	f := setupService(t, app.ParseOptions{Workers: 1})
	path := writeDoc(t, t.TempDir(), "w.xml", validDoc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := f.svc.Validate(ctx, []string{path, path}); err == nil {
		t.Error("Validate should report a canceled context")
	}
}

func TestParse_Concurrent(t *testing.T) {
	f := setupService(t, app.ParseOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Parse(context.Background(), run.SourceRequest, []byte(validDoc))
			if err != nil {
				t.Errorf("Parse error: %v", err)
				return
			}
			if len(res.World.Sectors()) != 1 {
				t.Errorf("sectors = %d, want 1", len(res.World.Sectors()))
			}
		}()
	}
	wg.Wait()

	if f.runs.Len() != 16 {
		t.Errorf("ledger has %d runs, want 16", f.runs.Len())
	}
}

func TestRunQueries(t *testing.T) {
	f := setupService(t, app.ParseOptions{})
	ctx := context.Background()

	res, _ := f.svc.Parse(ctx, "a.xml", []byte(validDoc))
	f.svc.Parse(ctx, "b.xml", []byte(validDoc))

	got, err := f.svc.Run(ctx, res.Run.ID)
	if err != nil || got.Source != "a.xml" {
		t.Errorf("Run(%s) = %+v, %v", res.Run.ID, got, err)
	}

	history, _ := f.svc.History(ctx, "b.xml", 5)
	if len(history) != 1 {
		t.Errorf("History(b.xml) = %d runs, want 1", len(history))
	}

	runs, _ := f.svc.Runs(ctx, 5)
	if len(runs) != 2 {
		t.Errorf("Runs = %d, want 2", len(runs))
	}
}

func TestPrune(t *testing.T) {
	f := setupService(t, app.ParseOptions{})
	ctx := context.Background()

	f.svc.Parse(ctx, "a.xml", []byte(validDoc))
	f.svc.Parse(ctx, "b.xml", []byte(validDoc))
	f.clock.Advance(time.Hour)
	f.svc.Parse(ctx, "c.xml", []byte(validDoc))

	n, err := f.svc.Prune(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d runs, want 2", n)
	}
	runs, _ := f.svc.Runs(ctx, 10)
	if len(runs) != 1 || runs[0].Source != "c.xml" {
		t.Errorf("runs left = %+v", runs)
	}

	if _, err := f.svc.Prune(ctx, 0); !errors.Is(err, errors.CodeInvalidState) {
		t.Errorf("Prune(0) error = %v, want INVALID_STATE", err)
	}
}

func TestNoLedger(t *testing.T) {
	svc := app.NewParseService(app.ParseServiceDeps{
		Factory: registry.Default(),
		Clock:   clock.Real{},
		IDs:     idgen.UUID{Prefix: idgen.RunPrefix},
		Logger:  zerolog.Nop(),
	}, app.ParseOptions{})

	if _, err := svc.Parse(context.Background(), run.SourceRequest, []byte(validDoc)); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if runs, err := svc.Runs(context.Background(), 10); err != nil || len(runs) != 0 {
		t.Errorf("Runs() = %v, %v", runs, err)
	}
	if _, err := svc.Run(context.Background(), "x"); !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("Run() error = %v, want NOT_FOUND", err)
	}
	if n, err := svc.Prune(context.Background(), time.Hour); err != nil || n != 0 {
		t.Errorf("Prune() = %d, %v", n, err)
	}
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
