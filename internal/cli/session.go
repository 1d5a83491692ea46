package cli

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/DevelApp-ai/PluginJobRunner/internal/config"
	"github.com/DevelApp-ai/PluginJobRunner/internal/discovery"
	"github.com/DevelApp-ai/PluginJobRunner/internal/factory"
	"github.com/DevelApp-ai/PluginJobRunner/internal/plugins/sortarray"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

// catalog returns the executors compiled into this binary.
func catalog() *runtime.Catalog {
	c := runtime.NewCatalog()
	sortarray.Register(c)
	return c
}

func newGate(p config.PluginsConfig) *security.Gate {
	return security.NewGate(
		security.WithThreshold(p.Threshold()),
		security.WithDeniedCapabilities(p.DeniedCapabilities...),
		security.WithRequireChecksum(p.RequireChecksum),
	)
}

func newDispatcher(p config.PluginsConfig, c *runtime.Catalog) *runtime.Dispatcher {
	return runtime.NewDispatcher(c, runtime.NewPluginRuntime(runtime.NewPluginLogger(p.PluginDebug)))
}

// openFactory builds a factory from the loaded configuration. A missing
// default module directory is not an error; only builtins are loaded then.
// A missing configured location is.
func openFactory(ctx context.Context, opts ...factory.Option) (*factory.Factory, error) {
	p := cfg.Plugins
	c := catalog()

	base := []factory.Option{
		factory.WithRetention(p.Retention),
		factory.WithGate(newGate(p)),
		factory.WithLogger(logger),
		factory.WithDispatcher(newDispatcher(p, c)),
	}
	if p.Builtins {
		base = append(base, factory.WithSources(discovery.Builtins(c)))
	}
	opts = append(base, opts...)

	if defaultLocationMissing(p.Location) {
		logger.Info("module directory not found, loading builtins only", zap.String("location", p.Location))
		return factory.NewWithSource(ctx, discovery.NewStatic(), opts...)
	}
	return factory.New(ctx, p.Location, opts...)
}

// defaultLocationMissing reports whether location is the default module
// directory and it does not exist. Configured locations are left to the
// factory, which resolves file:// URIs and fails on missing directories.
func defaultLocationMissing(location string) bool {
	if modulesFlag != "" || location != config.Default().Plugins.Location {
		return false
	}
	_, err := os.Stat(location)
	return errors.Is(err, os.ErrNotExist)
}
