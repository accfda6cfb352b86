// Package bootstrap wires configuration, storage, metrics and the parse
// service into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/artpar/worldgate/adapters/clock"
	apihttp "github.com/artpar/worldgate/adapters/http"
	"github.com/artpar/worldgate/adapters/idgen"
	"github.com/artpar/worldgate/adapters/memory"
	"github.com/artpar/worldgate/adapters/metrics"
	"github.com/artpar/worldgate/adapters/sqlite"
	"github.com/artpar/worldgate/app"
	"github.com/artpar/worldgate/config"
	"github.com/artpar/worldgate/core/events"
	"github.com/artpar/worldgate/core/registry"
	"github.com/artpar/worldgate/ports"
)

// Options controls how the application is assembled.
type Options struct {
	// ConfigPath is the YAML file to load. When empty or missing the
	// configuration comes from WORLDGATE_* variables alone.
	ConfigPath string

	// Version is reported by the HTTP API.
	Version string

	// LogOutput receives log lines (default os.Stderr).
	LogOutput io.Writer

	// Ephemeral keeps the run ledger in memory instead of SQLite.
	Ephemeral bool

	// Registry overrides the default class registry.
	Registry *registry.Registry
}

// App represents the running application.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Holder   *config.Holder // nil without a config file
	DB       *sqlite.DB     // nil when ephemeral
	Runs     ports.RunStore
	Metrics  *metrics.Collector
	Events   *events.Bus
	Registry *registry.Registry
	Parser   *app.ParseService

	HTTPServer *http.Server

	version string
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := SetupLogger(cfg.Logging, opts.LogOutput)

	a := &App{
		Logger:   logger,
		Config:   cfg,
		Registry: opts.Registry,
		version:  opts.Version,
	}
	if a.Registry == nil {
		a.Registry = registry.Default()
	}

	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			holder, err := config.NewHolder(opts.ConfigPath, logger)
			if err != nil {
				return nil, fmt.Errorf("config holder: %w", err)
			}
			a.Holder = holder
			a.Config = holder.Get()
		}
	}

	if opts.Ephemeral {
		a.Runs = memory.NewRunStore()
	} else {
		if err := a.initDatabase(); err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.Runs = sqlite.NewRunStore(a.DB)
	}

	a.Events = events.NewBus(logger)
	if a.Config.Metrics.Enabled {
		a.Metrics = metrics.New()
		a.Metrics.Subscribe(a.Events)
		logger.Info().Msg("prometheus metrics enabled")
	}

	a.Parser = app.NewParseService(app.ParseServiceDeps{
		Factory: a.Registry,
		Runs:    a.Runs,
		Events:  a.Events,
		Clock:   clock.Real{},
		IDs:     idgen.UUID{Prefix: idgen.RunPrefix},
		Logger:  logger,
	}, ParseOptions(a.Config.Parser))

	if a.Holder != nil {
		a.Holder.OnChange(a.applyConfig)
	}

	return a, nil
}

// ParseOptions converts the parser section to service options.
func ParseOptions(p config.ParserConfig) app.ParseOptions {
	return app.ParseOptions{
		Strict:           p.Strict,
		MaxDocumentBytes: p.MaxDocumentBytes,
		Workers:          p.Workers,
	}
}

func (a *App) initDatabase() error {
	db, err := sqlite.Open(a.Config.Database.DSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	a.Logger.Debug().Str("dsn", a.Config.Database.DSN).Msg("run ledger ready")
	return nil
}

// applyConfig pushes changed reloadable settings into running components.
// Config keeps the startup values.
func (a *App) applyConfig(cfg *config.Config, applied config.Changes) {
	if applied.Has("logging.level") {
		SetLevel(cfg.Logging.Level)
	}
	if applied.Has("parser.") {
		a.Parser.Configure(ParseOptions(cfg.Parser))
	}

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}
}

// Watcher returns a document watcher using the configured debounce.
func (a *App) Watcher() *app.DocumentWatcher {
	return app.NewDocumentWatcher(a.Parser, a.Events, a.Logger, a.Config.Watch.Debounce)
}

// Router builds the HTTP API.
func (a *App) Router() http.Handler {
	var db apihttp.HealthChecker
	if a.DB != nil {
		db = a.DB
	}
	h := apihttp.NewHandler(a.Parser, a.Registry, a.Logger)
	return apihttp.NewRouter(h, apihttp.NewHealthHandler(db), a.Logger, apihttp.RouterConfig{
		Metrics:     a.Metrics,
		MetricsPath: a.Config.Metrics.Path,
		Version:     a.version,
		Timeout:     a.Config.Server.WriteTimeout,
	})
}

// Serve runs the HTTP API until ctx ends or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	a.HTTPServer = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	if a.Holder != nil {
		if err := a.Holder.Watch(); err != nil {
			a.Logger.Warn().Err(err).Msg("config reload disabled")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http server shutdown error")
	}
	return nil
}

// Close releases the config watcher and the database.
func (a *App) Close() error {
	if a.Holder != nil {
		a.Holder.Stop()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	return nil
}
