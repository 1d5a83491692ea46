package registry

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

// Entry is a registered executor version.
type Entry struct {
	Identity    executor.Identity
	Description string
	Source      string
	New         executor.Constructor
}

// Change describes the effect of a Register call.
type Change struct {
	// Replaced is the entry with the same version that was overwritten, if any.
	Replaced *Entry
	// Evicted lists entries dropped by retention, oldest first. It contains
	// the registered entry itself when that was older than every retained one.
	Evicted []*Entry
}

// Retained reports whether the registered entry is still in the registry.
func (c Change) Retained(e *Entry) bool {
	return !slices.Contains(c.Evicted, e)
}

// Registry is safe for concurrent use.
type Registry struct {
	retain int

	mu      sync.RWMutex
	entries map[executor.Key][]*Entry // newest first
}

// New returns a registry keeping retain older versions per address in
// addition to the newest. Negative values are treated as zero.
func New(retain int) *Registry {
	if retain < 0 {
		retain = 0
	}
	return &Registry{
		retain:  retain,
		entries: make(map[executor.Key][]*Entry),
	}
}

// Retain returns the number of older versions kept per address.
func (r *Registry) Retain() int { return r.retain }

// Register inserts e in version order.
func (r *Registry) Register(e *Entry) Change {
	key := e.Identity.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[key]
	var change Change

	i, found := slices.BinarySearchFunc(list, e.Identity.Version, func(have *Entry, v *semver.Version) int {
		// Descending: newer versions sort first.
		return v.Compare(have.Identity.Version)
	})
	if found {
		change.Replaced = list[i]
		list[i] = e
	} else {
		list = slices.Insert(list, i, e)
	}

	if limit := r.retain + 1; len(list) > limit {
		dropped := slices.Clone(list[limit:])
		slices.Reverse(dropped)
		change.Evicted = dropped
		clear(list[limit:])
		list = list[:limit]
	}

	r.entries[key] = list
	return change
}

// Resolve returns the newest retained version of namespace.name.
func (r *Registry) Resolve(namespace, name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.entries[executor.NewKey(namespace, name)]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// ResolveVersion returns the entry registered under exactly version.
func (r *Registry) ResolveVersion(namespace, name string, version *semver.Version) (*Entry, bool) {
	if version == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries[executor.NewKey(namespace, name)] {
		if e.Identity.Version.Equal(version) {
			return e, true
		}
	}
	return nil, false
}

// Versions returns the retained versions of namespace.name, newest first.
func (r *Registry) Versions(namespace, name string) []*semver.Version {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.entries[executor.NewKey(namespace, name)]
	out := make([]*semver.Version, len(list))
	for i, e := range list {
		out[i] = e.Identity.Version
	}
	return out
}

// Entries returns every retained entry ordered by address, then newest first.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]executor.Key, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b executor.Key) int {
		return cmp.Or(strings.Compare(a.Namespace, b.Namespace), strings.Compare(a.Name, b.Name))
	})

	var out []*Entry
	for _, k := range keys {
		out = append(out, r.entries[k]...)
	}
	return out
}

// Len returns the number of retained entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, list := range r.entries {
		n += len(list)
	}
	return n
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
}
