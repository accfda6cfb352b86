// Package app contains the ParseService, which turns documents into worlds
// and records every outcome.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/events"
	"github.com/artpar/worldgate/core/world"
	"github.com/artpar/worldgate/core/xmlparse"
	"github.com/artpar/worldgate/core/xmlparse/entity"
	"github.com/artpar/worldgate/domain/run"
	"github.com/artpar/worldgate/ports"
)

// ParseOptions tunes the parser. It can be swapped at runtime with Configure.
type ParseOptions struct {
	Strict           bool
	MaxDocumentBytes int64
	Workers          int
}

// ParseServiceDeps holds the collaborators of a ParseService. Runs and
// Events may be nil. Metrics and other observers subscribe to Events.
type ParseServiceDeps struct {
	Factory world.Factory
	Runs    ports.RunStore
	Events  *events.Bus
	Clock   ports.Clock
	IDs     ports.IDGenerator
	Logger  zerolog.Logger
}

// Result is the outcome of one parse.
type Result struct {
	Run   run.Run
	World *world.World
}

// ParseService parses documents. It is safe for concurrent use: every parse
// runs on its own clone of a prototype master.
type ParseService struct {
	deps   ParseServiceDeps
	logger zerolog.Logger

	mu    sync.RWMutex
	opts  ParseOptions
	proto *xmlparse.Master
}

// NewParseService creates a parse service.
func NewParseService(deps ParseServiceDeps, opts ParseOptions) *ParseService {
	s := &ParseService{
		deps:   deps,
		logger: deps.Logger.With().Str("component", "parse").Logger(),
	}
	s.Configure(opts)
	return s
}

// Configure replaces the parser options. Parses already running keep the
// options they started with.
func (s *ParseService) Configure(opts ParseOptions) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	proto := entity.NewMaster(s.deps.Factory, s.deps.Logger,
		xmlparse.WithStrict(opts.Strict),
		xmlparse.WithMaxBytes(opts.MaxDocumentBytes),
	)

	s.mu.Lock()
	s.opts = opts
	s.proto = proto
	s.mu.Unlock()
}

// Options returns the current parser options.
func (s *ParseService) Options() ParseOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Parse builds a world from doc. source names the document in errors and
// in the ledger; use run.SourceRequest for documents without a path.
// The returned Result carries the run even when err is non-nil.
func (s *ParseService) Parse(ctx context.Context, source string, doc []byte) (Result, error) {
	s.mu.RLock()
	m := s.proto.Clone()
	s.mu.RUnlock()

	start := s.deps.Clock.Now()
	var err error
	if source == run.SourceRequest {
		err = m.ParseBytes(ctx, doc)
	} else {
		err = m.ParseNamed(ctx, source, doc)
	}
	var w *world.World
	if err == nil {
		w, err = entity.Result(m)
	}
	elapsed := s.deps.Clock.Now().Sub(start)

	r := run.Run{
		ID:        s.deps.IDs.New(),
		Source:    source,
		Digest:    run.Digest(doc),
		Status:    run.StatusOK,
		Elements:  m.Elements(),
		Duration:  elapsed,
		CreatedAt: start,
	}
	if err != nil {
		r.Status = run.StatusFailed
		r.ErrorCode = string(errors.CodeOf(err))
		r.Error = err.Error()
	} else {
		r.WorldName = w.Name()
	}

	s.record(ctx, r, len(doc))
	return Result{Run: r, World: w}, err
}

// ParseFile reads path and parses it. Files over the size cap fail with
// TOO_LARGE without being read in full.
func (s *ParseService) ParseFile(ctx context.Context, path string) (Result, error) {
	doc, err := s.readFile(path)
	if err != nil {
		r := run.Run{
			ID:        s.deps.IDs.New(),
			Source:    path,
			Status:    run.StatusFailed,
			ErrorCode: string(errors.CodeOf(err)),
			Error:     err.Error(),
			CreatedAt: s.deps.Clock.Now(),
		}
		s.record(ctx, r, 0)
		return Result{Run: r}, err
	}
	return s.Parse(ctx, path, doc)
}

func (s *ParseService) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.CodeNotFound, err, "document %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	limit := s.Options().MaxDocumentBytes
	if limit <= 0 {
		return io.ReadAll(f)
	}
	doc, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(doc)) > limit {
		return nil, errors.New(errors.CodeTooLarge, "%s exceeds %d bytes", path, limit)
	}
	return doc, nil
}

// Validate parses every path concurrently, bounded by the Workers option,
// and returns results in input order. Individual failures are reported in
// the results, not as an error; the error is only set when ctx ends.
func (s *ParseService) Validate(ctx context.Context, paths []string) ([]Result, []error, error) {
	results := make([]Result, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Options().Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = s.ParseFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, errs, err
	}
	return results, errs, nil
}

// Runs returns the most recent ledger entries.
func (s *ParseService) Runs(ctx context.Context, limit int) ([]run.Run, error) {
	if s.deps.Runs == nil {
		return nil, nil
	}
	return s.deps.Runs.List(ctx, limit)
}

// Run returns one ledger entry.
func (s *ParseService) Run(ctx context.Context, id string) (run.Run, error) {
	if s.deps.Runs == nil {
		return run.Run{}, errors.New(errors.CodeNotFound, "run %s not found", id)
	}
	return s.deps.Runs.Get(ctx, id)
}

// History returns the most recent runs of one document.
func (s *ParseService) History(ctx context.Context, source string, limit int) ([]run.Run, error) {
	if s.deps.Runs == nil {
		return nil, nil
	}
	return s.deps.Runs.ListBySource(ctx, source, limit)
}

// Prune deletes ledger entries older than age and returns how many went.
func (s *ParseService) Prune(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, errors.New(errors.CodeInvalidState, "prune age must be positive, got %v", age)
	}
	if s.deps.Runs == nil {
		return 0, nil
	}
	cutoff := s.deps.Clock.Now().Add(-age)
	n, err := s.deps.Runs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	s.logger.Info().Int64("deleted", n).Time("before", cutoff).Msg("pruned run ledger")
	return n, nil
}

// Summary totals the most recent runs.
func (s *ParseService) Summary(ctx context.Context, limit int) (run.Summary, error) {
	runs, err := s.Runs(ctx, limit)
	if err != nil {
		return run.Summary{}, err
	}
	return run.Summarize(runs), nil
}

// record stores, publishes and logs r. Ledger failures are logged and never
// fail the parse.
func (s *ParseService) record(ctx context.Context, r run.Run, size int) {
	if s.deps.Runs != nil {
		if err := s.deps.Runs.Create(context.WithoutCancel(ctx), r); err != nil {
			s.logger.Error().Err(err).
				Str("run_id", r.ID).
				Msg("failed to record run")
		}
	}

	if s.deps.Events != nil {
		ev := events.Event{
			Name:   events.DocumentParsed,
			Source: r.Source,
			RunID:  r.ID,
			Data: map[string]any{
				events.KeyElements: r.Elements,
				events.KeyDuration: r.Duration,
				events.KeyBytes:    size,
			},
		}
		if r.OK() {
			ev.Data[events.KeyWorld] = r.WorldName
		} else {
			ev.Name = events.DocumentFailed
			ev.Data[events.KeyCode] = r.ErrorCode
			ev.Data[events.KeyError] = r.Error
		}
		s.deps.Events.Publish(ctx, ev)
	}

	if !r.OK() {
		s.logger.Warn().
			Str("run_id", r.ID).
			Str("source", r.Source).
			Str("code", r.ErrorCode).
			Str("error", r.Error).
			Msg("document rejected")
		return
	}
	s.logger.Info().
		Str("run_id", r.ID).
		Str("source", r.Source).
		Str("world", r.WorldName).
		Int("elements", r.Elements).
		Dur("duration", r.Duration).
		Msg("document parsed")
}
