// Package http serves the worldgate JSON API.
package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/worldgate/adapters/metrics"
	"github.com/artpar/worldgate/app"
	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/registry"
	"github.com/artpar/worldgate/core/world"
	"github.com/artpar/worldgate/domain/run"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 1000
)

// Parser is the part of the parse service the API needs.
type Parser interface {
	Parse(ctx context.Context, source string, doc []byte) (app.Result, error)
	Runs(ctx context.Context, limit int) ([]run.Run, error)
	Run(ctx context.Context, id string) (run.Run, error)
	Summary(ctx context.Context, limit int) (run.Summary, error)
	Options() app.ParseOptions
}

// ClassLister lists the registered entity and action classes.
type ClassLister interface {
	List() []registry.Class
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ParseResponse is the body of a successful parse.
type ParseResponse struct {
	RunID    string     `json:"run_id"`
	Elements int        `json:"elements"`
	Digest   string     `json:"digest"`
	World    world.Tree `json:"world"`
}

// RunResponse is the JSON form of a ledger entry.
type RunResponse struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Digest     string    `json:"digest"`
	Status     string    `json:"status"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	WorldName  string    `json:"world_name,omitempty"`
	Elements   int       `json:"elements"`
	DurationMS float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// SummaryResponse totals recent runs.
type SummaryResponse struct {
	Total         int            `json:"total"`
	Failed        int            `json:"failed"`
	Elements      int            `json:"elements"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	ByCode        map[string]int `json:"by_code"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// Handler serves the document and ledger endpoints.
type Handler struct {
	parser  Parser
	classes ClassLister
	logger  zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(parser Parser, classes ClassLister, logger zerolog.Logger) *Handler {
	return &Handler{
		parser:  parser,
		classes: classes,
		logger:  logger,
	}
}

// ParseDocument parses the request body as a world document.
func (h *Handler) ParseDocument(w http.ResponseWriter, r *http.Request) {
	body := io.Reader(r.Body)
	if limit := h.parser.Options().MaxDocumentBytes; limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}

	doc, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, errors.New(errors.CodeTooLarge, "document exceeds %d bytes", tooLarge.Limit), "")
			return
		}
		writeError(w, errors.Wrap(errors.CodeMalformedDocument, err, "read request body"), "")
		return
	}

	res, err := h.parser.Parse(r.Context(), run.SourceRequest, doc)
	if err != nil {
		writeError(w, err, res.Run.ID)
		return
	}

	writeJSON(w, http.StatusOK, ParseResponse{
		RunID:    res.Run.ID,
		Elements: res.Run.Elements,
		Digest:   res.Run.Digest,
		World:    world.Dump(res.World.Scope()),
	})
}

// ListRuns returns the most recent runs. ?limit= bounds the result.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, err, "")
		return
	}

	runs, err := h.parser.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, err, "")
		return
	}

	out := make([]RunResponse, 0, len(runs))
	for _, rn := range runs {
		out = append(out, toRunResponse(rn))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// GetRun returns one run.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rn, err := h.parser.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(rn))
}

// RunSummary totals the most recent runs.
func (h *Handler) RunSummary(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, err, "")
		return
	}

	s, err := h.parser.Summary(r.Context(), limit)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Total:         s.Total,
		Failed:        s.Failed,
		Elements:      s.Elements,
		AvgDurationMS: float64(s.AvgDuration.Microseconds()) / 1000,
		ByCode:        s.ByCode,
	})
}

// ListClasses returns the registered classes.
func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"classes": h.classes.List()})
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db HealthChecker
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks that the ledger is reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler returns a handler reporting version.
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{
			Version: version,
			Service: "worldgate",
		})
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics     *metrics.Collector // nil disables request metrics and /metrics
	MetricsPath string             // default /metrics
	Version     string
	Timeout     time.Duration // per-request timeout (default 60s)
}

// NewRouter builds the API router.
func NewRouter(h *Handler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
		r.Handle(cfg.MetricsPath, cfg.Metrics.Handler())
	}

	r.Get("/healthz", health.Liveness)
	r.Get("/healthz/ready", health.Readiness)
	r.Get("/version", VersionHandler(cfg.Version))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents/parse", h.ParseDocument)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/summary", h.RunSummary)
		r.Get("/runs/{id}", h.GetRun)
		r.Get("/classes", h.ListClasses)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.CodeNotFound, "no route for %s %s", r.Method, r.URL.Path), "")
	})

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/healthz") || r.URL.Path == metricsPath {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.RequestsTotal.WithLabelValues(r.Method, route, metrics.StatusClass(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// NewLoggingMiddleware creates middleware that logs HTTP requests.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/healthz") || r.URL.Path == metricsPath {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultRunLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(errors.CodeMalformedLiteral, "limit must be a positive integer, got %q", raw)
	}
	if n > maxRunLimit {
		n = maxRunLimit
	}
	return n, nil
}

func toRunResponse(r run.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Source:     r.Source,
		Digest:     r.Digest,
		Status:     string(r.Status),
		ErrorCode:  r.ErrorCode,
		Error:      r.Error,
		WorldName:  r.WorldName,
		Elements:   r.Elements,
		DurationMS: float64(r.Duration.Microseconds()) / 1000,
		CreatedAt:  r.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, err error, runID string) {
	code := errors.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), ErrorResponse{
		Code:    string(code),
		Message: err.Error(),
		RunID:   runID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
