package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/registry"
	"github.com/specialistvlad/clusterpass/internal/shapehint"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	cfg        *Config
	model      *config.Model
	backends   *registry.Backends
	hints      shapehint.Set
	formats    map[string]config.GraphFormat // by extension
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and backend
// table. Configuration errors are fatal startup errors and panic.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, formats []config.GraphFormat, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load all configuration into the format-agnostic model first.
	model, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	applyOverrides(model, cfg)
	logger.Debug("Configuration loaded and translated into unified model.", "backend", model.Pipeline.Backend, "enabled", model.Pipeline.Enabled)

	backends := registry.NewBackends()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(backends)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := backends.LoadBackends(ctx, model.Backends); err != nil {
		panic(fmt.Errorf("failed to load backends: %w", err))
	}
	if err := backends.Validate(ctx, model.Pipeline.Backend); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.", "backends", backends.Names())

	hints, err := shapehint.Parse(model.Pipeline.ShapeHints)
	if err != nil {
		panic(fmt.Errorf("invalid shape hints: %w", err))
	}

	byExt := make(map[string]config.GraphFormat, len(formats))
	for _, f := range formats {
		if _, exists := byExt[f.Extension()]; exists {
			panic(fmt.Sprintf("graph format for extension '%s' registered twice", f.Extension()))
		}
		byExt[f.Extension()] = f
	}
	if len(byExt) == 0 {
		panic("no graph formats registered")
	}
	if cfg.Format != "" && formatByName(byExt, cfg.Format) == nil {
		panic(fmt.Sprintf("output format '%s' is not registered", cfg.Format))
	}

	return &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		model:    model,
		backends: backends,
		hints:    hints,
		formats:  byExt,
	}
}

// applyOverrides lets command-line settings win over the HCL model.
func applyOverrides(model *config.Model, cfg *Config) {
	if cfg.Disable {
		model.Pipeline.Enabled = false
	}
	model.Pipeline.DisabledOps = append(model.Pipeline.DisabledOps, cfg.DisableOps...)
	if cfg.DumpDir != "" {
		model.Dump.Dir = cfg.DumpDir
	}
	if len(cfg.DumpPhases) > 0 {
		model.Dump.Phases = cfg.DumpPhases
	}
	if cfg.DumpSocketIO != "" {
		model.Dump.SocketIOURL = cfg.DumpSocketIO
	}
	if cfg.ArtifactDB != "" {
		model.Store = config.Store{Path: cfg.ArtifactDB}
	}
}

func formatByName(formats map[string]config.GraphFormat, name string) config.GraphFormat {
	for _, f := range formats {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// extensions returns the registered extensions in a stable order.
func (a *App) extensions() []string {
	exts := make([]string, 0, len(a.formats))
	for ext := range a.formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Model returns the effective pipeline configuration. This is primarily
// for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Backends returns the application's backend table. This is primarily for
// testing.
func (a *App) Backends() *registry.Backends {
	return a.backends
}
