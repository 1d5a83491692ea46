package registry

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

func entry(ns, name, version string) *Entry {
	return &Entry{Identity: executor.MustIdentity(ns, name, version), Source: ns + "." + name + "@" + version}
}

func versions(r *Registry, ns, name string) []string {
	var out []string
	for _, v := range r.Versions(ns, name) {
		out = append(out, v.String())
	}
	return out
}

func TestRegister_OrdersNewestFirst(t *testing.T) {
	r := New(5)
	for _, v := range []string{"1.0.0", "3.0.0", "2.0.0", "2.5.0-beta.1"} {
		r.Register(entry("Sort", "Array", v))
	}
	assert.Equal(t, []string{"3.0.0", "2.5.0-beta.1", "2.0.0", "1.0.0"}, versions(r, "Sort", "Array"))

	e, ok := r.Resolve("sort", "ARRAY")
	require.True(t, ok)
	assert.Equal(t, "3.0.0", e.Identity.Version.String())
}

func TestRegister_Retention(t *testing.T) {
	r := New(2)
	for _, v := range []string{"1.0.0", "2.0.0", "3.0.0"} {
		change := r.Register(entry("A", "B", v))
		assert.Empty(t, change.Evicted)
	}

	change := r.Register(entry("A", "B", "4.0.0"))
	require.Len(t, change.Evicted, 1)
	assert.Equal(t, "1.0.0", change.Evicted[0].Identity.Version.String())
	assert.Equal(t, []string{"4.0.0", "3.0.0", "2.0.0"}, versions(r, "A", "B"))
}

func TestRegister_OlderThanRetainedIsEvictedImmediately(t *testing.T) {
	r := New(0)
	r.Register(entry("A", "B", "2.0.0"))

	older := entry("A", "B", "1.0.0")
	change := r.Register(older)
	assert.False(t, change.Retained(older))
	assert.Equal(t, []string{"2.0.0"}, versions(r, "A", "B"))
}

func TestRegister_SameVersionReplaces(t *testing.T) {
	r := New(1)
	first := entry("A", "B", "1.0.0")
	second := entry("A", "B", "1.0.0")
	second.Source = "second"

	r.Register(first)
	change := r.Register(second)
	assert.Same(t, first, change.Replaced)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Resolve("A", "B")
	require.True(t, ok)
	assert.Equal(t, "second", got.Source)
}

func TestNew_NegativeRetain(t *testing.T) {
	r := New(-3)
	assert.Equal(t, 0, r.Retain())
	r.Register(entry("A", "B", "1.0.0"))
	r.Register(entry("A", "B", "2.0.0"))
	assert.Equal(t, 1, r.Len())
}

func TestResolveVersion(t *testing.T) {
	r := New(3)
	r.Register(entry("A", "B", "1.0.0"))
	r.Register(entry("A", "B", "1.1.0"))

	e, ok := r.ResolveVersion("a", "b", semver.MustParse("1.0.0"))
	require.True(t, ok)
	assert.Equal(t, "1.0.0", e.Identity.Version.String())

	_, ok = r.ResolveVersion("A", "B", semver.MustParse("9.0.0"))
	assert.False(t, ok)
	_, ok = r.ResolveVersion("A", "B", nil)
	assert.False(t, ok)
	_, ok = r.Resolve("A", "Missing")
	assert.False(t, ok)
}

func TestEntriesAndClear(t *testing.T) {
	r := New(1)
	r.Register(entry("Zeta", "A", "1.0.0"))
	r.Register(entry("Alpha", "B", "1.0.0"))
	r.Register(entry("Alpha", "B", "2.0.0"))

	var names []string
	for _, e := range r.Entries() {
		names = append(names, e.Identity.String())
	}
	assert.Equal(t, []string{"Alpha.B@2.0.0", "Alpha.B@1.0.0", "Zeta.A@1.0.0"}, names)

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Entries())
}

func TestConcurrentAccess(t *testing.T) {
	r := New(3)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 50 {
				r.Register(entry("C", "D", fmt.Sprintf("%d.%d.0", i, j)))
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				r.Resolve("C", "D")
				r.Versions("C", "D")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, r.Len())
}

func TestRegistryProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		retain := rapid.IntRange(-1, 4).Draw(t, "retain")
		raw := rapid.SliceOfN(rapid.IntRange(0, 30), 1, 40).Draw(t, "versions")

		r := New(retain)
		distinct := map[string]*semver.Version{}
		for _, n := range raw {
			v := fmt.Sprintf("%d.%d.0", n/10, n%10)
			e := entry("Prop", "Exec", v)
			r.Register(e)
			distinct[v] = e.Identity.Version
		}

		got := r.Versions("Prop", "Exec")
		limit := max(retain, 0) + 1

		if len(got) > limit {
			t.Fatalf("retained %d versions, limit %d", len(got), limit)
		}
		for i := 1; i < len(got); i++ {
			if !got[i-1].GreaterThan(got[i]) {
				t.Fatalf("versions not strictly descending: %v", got)
			}
		}

		all := make([]*semver.Version, 0, len(distinct))
		for _, v := range distinct {
			all = append(all, v)
		}
		slices.SortFunc(all, func(a, b *semver.Version) int { return b.Compare(a) })
		want := all[:min(limit, len(all))]
		if len(got) != len(want) {
			t.Fatalf("retained %v, want %v", got, want)
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Fatalf("retained %v, want %v", got, want)
			}
		}

		newest, ok := r.Resolve("prop", "exec")
		if !ok || !newest.Identity.Version.Equal(all[0]) {
			t.Fatalf("Resolve returned %v, want %v", newest, all[0])
		}
	})
}
