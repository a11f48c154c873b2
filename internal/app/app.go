package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/depsgraph/internal/config"
	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/depsgraph"
	"github.com/vk/depsgraph/internal/metrics"
	"github.com/vk/depsgraph/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry

	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics

	httpServer *http.Server

	mu        sync.Mutex
	engine    *depsgraph.Engine
	instances []*depsgraph.Instance
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry and
// metrics registry. Without modules the core modules are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		ctx:          ctxlog.WithLogger(context.Background(), logger),
		outW:         outW,
		logger:       logger,
		config:       cfg,
		loader:       loader,
		promRegistry: prometheus.NewRegistry(),
	}
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = a.coreModules()
	}
	a.registry = registry.NewWithModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", a.registry.Kinds())

	a.metrics = metrics.New(a.promRegistry)
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Instances returns the graph instances of the last Run.
func (a *App) Instances() []*depsgraph.Instance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*depsgraph.Instance(nil), a.instances...)
}

// Gatherer exposes the app's metrics.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.promRegistry
}

// Engine returns the engine of the last Run.
func (a *App) Engine() *depsgraph.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine
}
