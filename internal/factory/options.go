package factory

import (
	"go.uber.org/zap"

	"github.com/DevelApp-ai/PluginJobRunner/internal/discovery"
	"github.com/DevelApp-ai/PluginJobRunner/internal/events"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

// DefaultRetention is the number of older versions kept per executor when
// WithRetention is not given.
const DefaultRetention = 2

// Option configures a Factory.
type Option func(*config)

type config struct {
	retain     int
	gate       *security.Gate
	logger     *zap.Logger
	catalog    *runtime.Catalog
	dispatcher *runtime.Dispatcher
	listeners  []events.Listener
	extra      []discovery.Source
}

func defaultConfig() config {
	return config{
		retain: DefaultRetention,
		logger: zap.NewNop(),
	}
}

// WithRetention sets how many versions older than the newest are kept per
// executor. Zero keeps only the newest.
func WithRetention(k int) Option {
	return func(c *config) { c.retain = k }
}

// WithGate replaces the default security gate.
func WithGate(g *security.Gate) Option {
	return func(c *config) { c.gate = g }
}

// WithLogger logs factory activity and every published event to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCatalog sets the compiled-in executors that builtin manifest entries
// resolve against.
func WithCatalog(cat *runtime.Catalog) Option {
	return func(c *config) { c.catalog = cat }
}

// WithDispatcher replaces the runtime dispatcher used by New. It takes
// precedence over WithCatalog.
func WithDispatcher(d *runtime.Dispatcher) Option {
	return func(c *config) { c.dispatcher = d }
}

// WithListener subscribes l before discovery starts, so it also sees the
// events published during construction.
func WithListener(l events.Listener) Option {
	return func(c *config) { c.listeners = append(c.listeners, l) }
}

// WithSources loads additional sources after the primary one.
func WithSources(srcs ...discovery.Source) Option {
	return func(c *config) { c.extra = append(c.extra, srcs...) }
}
