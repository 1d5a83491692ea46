package discovery

import (
	"context"
	"fmt"
	"iter"

	"github.com/DevelApp-ai/PluginJobRunner/internal/events"
	"github.com/DevelApp-ai/PluginJobRunner/internal/manifest"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
)

// BuiltinSource labels descriptors produced by Builtins.
const BuiltinSource = "builtin"

type builtinSource struct {
	catalog *runtime.Catalog
	symbols []string
}

// Builtins returns a source exposing compiled-in executors without a
// manifest. With no symbols, every catalog entry is exposed. Each
// constructor is called once to learn the executor's identity.
func Builtins(catalog *runtime.Catalog, symbols ...string) Source {
	return &builtinSource{catalog: catalog, symbols: symbols}
}

func (b *builtinSource) Discover(ctx context.Context, pub Publisher) (iter.Seq[*Descriptor], error) {
	pub = orDiscard(pub)
	symbols := b.symbols
	if len(symbols) == 0 {
		symbols = b.catalog.Symbols()
	}

	return once(func(yield func(*Descriptor) bool) {
		for _, sym := range symbols {
			if ctx.Err() != nil {
				return
			}
			d, err := b.describe(sym)
			if err != nil {
				pub.Publish(events.LoadFailure{Source: BuiltinSource + ":" + sym, Err: err})
				continue
			}
			if !yield(d) {
				return
			}
		}
	}), nil
}

func (b *builtinSource) describe(sym string) (d *Descriptor, err error) {
	ctor, ok := b.catalog.Lookup(sym)
	if !ok {
		return nil, fmt.Errorf("builtin %q is not compiled into this binary", sym)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("builtin %q panicked: %v", sym, r)
		}
	}()
	e, err := ctor()
	if err != nil {
		return nil, fmt.Errorf("builtin %q: %w", sym, err)
	}
	if e == nil {
		return nil, fmt.Errorf("builtin %q returned no executor", sym)
	}
	id := e.Identity()
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &Descriptor{
		Identity:    id,
		Description: e.Description(),
		Source:      BuiltinSource + ":" + sym,
		Runtime:     manifest.RuntimeBuiltin,
		Entry:       sym,
		Binding:     runtime.ConstructorBinding(ctor),
	}, nil
}
