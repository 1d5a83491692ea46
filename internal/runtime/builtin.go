package runtime

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

// Catalog maps entry symbols to constructors compiled into the binary.
type Catalog struct {
	mu    sync.RWMutex
	ctors map[string]executor.Constructor
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ctors: make(map[string]executor.Constructor)}
}

// Register adds or replaces the constructor for symbol.
func (c *Catalog) Register(symbol string, ctor executor.Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[symbol] = ctor
}

// Lookup returns the constructor registered for symbol.
func (c *Catalog) Lookup(symbol string) (executor.Constructor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctor, ok := c.ctors[symbol]
	return ctor, ok
}

// Symbols returns the registered symbols in sorted order.
func (c *Catalog) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.ctors))
	for s := range c.ctors {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// BuiltinRuntime binds targets whose entry is a catalog symbol.
type BuiltinRuntime struct {
	Catalog *Catalog
}

func (r *BuiltinRuntime) Bind(_ context.Context, t Target) (Binding, error) {
	ctor, ok := r.Catalog.Lookup(t.Entry)
	if !ok {
		return nil, fmt.Errorf("builtin %q is not compiled into this binary", t.Entry)
	}
	return ConstructorBinding(ctor), nil
}
