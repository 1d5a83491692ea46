package discovery

import (
	"context"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/DevelApp-ai/PluginJobRunner/internal/events"
	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

// Descriptor is a discovered, bound executor that has not yet been accepted
// by the security gate.
type Descriptor struct {
	Identity     executor.Identity
	Description  string
	Source       string // manifest path, or a label for in-memory sources
	Runtime      string
	Entry        string
	Dir          string
	Capabilities []string
	Checksum     string
	Binding      runtime.Binding
}

// Subject returns the security view of d.
func (d *Descriptor) Subject() security.Subject {
	return security.Subject{
		Identity:     d.Identity,
		Source:       d.Source,
		Runtime:      d.Runtime,
		Entry:        d.Entry,
		Dir:          d.Dir,
		Capabilities: slices.Clone(d.Capabilities),
		Checksum:     d.Checksum,
	}
}

// Publisher receives per-module failures during discovery.
type Publisher interface {
	Publish(events.Event)
}

// Source produces descriptors. The returned sequence is lazy and can be
// ranged over once. The error is reserved for problems that make the whole
// source unusable; everything else is published and skipped.
type Source interface {
	Discover(ctx context.Context, pub Publisher) (iter.Seq[*Descriptor], error)
}

// discardPublisher drops events when the caller passes a nil Publisher.
type discardPublisher struct{}

func (discardPublisher) Publish(events.Event) {}

func orDiscard(pub Publisher) Publisher {
	if pub == nil {
		return discardPublisher{}
	}
	return pub
}

// once wraps seq so that only the first range over it produces values.
func once[T any](seq iter.Seq[T]) iter.Seq[T] {
	var used atomic.Bool
	return func(yield func(T) bool) {
		if used.Swap(true) {
			return
		}
		seq(yield)
	}
}

type staticSource struct {
	descs []*Descriptor
}

// NewStatic returns a source that yields descs in order.
func NewStatic(descs ...*Descriptor) Source {
	return &staticSource{descs: descs}
}

func (s *staticSource) Discover(ctx context.Context, _ Publisher) (iter.Seq[*Descriptor], error) {
	return once(func(yield func(*Descriptor) bool) {
		for _, d := range s.descs {
			if ctx.Err() != nil || !yield(d) {
				return
			}
		}
	}), nil
}

type chainSource struct {
	sources []Source
}

// Chain concatenates sources. Every source is opened before the first
// descriptor is yielded, so a fatal error in any of them fails the chain.
func Chain(sources ...Source) Source {
	return &chainSource{sources: sources}
}

func (c *chainSource) Discover(ctx context.Context, pub Publisher) (iter.Seq[*Descriptor], error) {
	seqs := make([]iter.Seq[*Descriptor], 0, len(c.sources))
	for _, src := range c.sources {
		seq, err := src.Discover(ctx, pub)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return once(func(yield func(*Descriptor) bool) {
		for _, seq := range seqs {
			for d := range seq {
				if !yield(d) {
					return
				}
			}
		}
	}), nil
}
