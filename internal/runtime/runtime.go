package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
)

// ErrUnknownRuntime is returned when a manifest names a runtime that has no loader.
var ErrUnknownRuntime = errors.New("unknown runtime")

// Target describes one declared executor to bind.
type Target struct {
	Identity    executor.Identity
	Description string
	Runtime     string
	// Entry is a catalog symbol for builtins, otherwise an absolute path.
	Entry string
	// Dir is the module directory the entry was declared in.
	Dir string
}

// Binding is a loaded module's reference to a single executor.
type Binding interface {
	// New constructs a fresh executor instance.
	New() (executor.Executor, error)
	// Close releases whatever the binding holds open. It is safe to call more than once.
	Close() error
}

// Loader binds targets of a single runtime kind.
type Loader interface {
	Bind(ctx context.Context, t Target) (Binding, error)
}

// Dispatcher routes targets to the loader registered for their runtime.
type Dispatcher struct {
	loaders map[string]Loader
}

// NewDispatcher returns a dispatcher with the builtin, exec and plugin
// runtimes wired in. A nil catalog disables builtins.
func NewDispatcher(catalog *Catalog, plugins *PluginRuntime) *Dispatcher {
	d := &Dispatcher{loaders: make(map[string]Loader, 3)}
	if catalog != nil {
		d.loaders[manifest.RuntimeBuiltin] = &BuiltinRuntime{Catalog: catalog}
	}
	d.loaders[manifest.RuntimeExec] = &ExecRuntime{}
	if plugins == nil {
		plugins = NewPluginRuntime(nil)
	}
	d.loaders[manifest.RuntimePlugin] = plugins
	return d
}

// Handle replaces the loader for a runtime name.
func (d *Dispatcher) Handle(runtime string, l Loader) {
	d.loaders[runtime] = l
}

// Bind dispatches t to the loader for t.Runtime.
func (d *Dispatcher) Bind(ctx context.Context, t Target) (Binding, error) {
	l, ok := d.loaders[t.Runtime]
	if !ok {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownRuntime, t.Runtime, t.Identity)
	}
	return l.Bind(ctx, t)
}

// ConstructorBinding adapts a plain constructor into a Binding with a no-op Close.
type ConstructorBinding executor.Constructor

func (b ConstructorBinding) New() (executor.Executor, error) { return b() }

func (ConstructorBinding) Close() error { return nil }
