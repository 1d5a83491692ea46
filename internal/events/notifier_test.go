package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

func TestNotifier_DeliversInSubscriptionOrder(t *testing.T) {
	n := NewNotifier(nil)
	var got []string
	for _, name := range []string{"a", "b", "c"} {
		_, err := n.Subscribe(func(Event) { got = append(got, name) })
		require.NoError(t, err)
	}

	n.Publish(LoadFailure{Source: "x"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := NewNotifier(nil)
	calls := 0
	unsubscribe, err := n.Subscribe(func(Event) { calls++ })
	require.NoError(t, err)

	n.Publish(LoadFailure{})
	unsubscribe()
	unsubscribe()
	n.Publish(LoadFailure{})
	assert.Equal(t, 1, calls)
}

func TestNotifier_PanickingListenerIsIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	n := NewNotifier(zap.New(core))

	_, _ = n.Subscribe(func(Event) { panic("listener bug") })
	delivered := false
	_, _ = n.Subscribe(func(Event) { delivered = true })

	n.Publish(InstantiationFailure{Identity: executor.MustIdentity("A", "B", "1.0.0"), Err: errors.New("x")})
	assert.True(t, delivered)
	assert.Equal(t, 1, logs.FilterMessage("event listener panicked").Len())
}

func TestNotifier_ChannelDropsWhenFull(t *testing.T) {
	n := NewNotifier(nil)
	ch, unsubscribe, err := n.Channel(1)
	require.NoError(t, err)

	n.Publish(LoadFailure{Source: "first"})
	n.Publish(LoadFailure{Source: "second"})

	ev := <-ch
	assert.Equal(t, "first", ev.(LoadFailure).Source)
	published, dropped := n.Stats()
	assert.Equal(t, uint64(2), published)
	assert.Equal(t, uint64(1), dropped)

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestNotifier_Close(t *testing.T) {
	n := NewNotifier(nil)
	ch, _, err := n.Channel(4)
	require.NoError(t, err)
	calls := 0
	_, _ = n.Subscribe(func(Event) { calls++ })

	n.Close()
	n.Close()
	n.Publish(LoadFailure{})

	assert.Zero(t, calls)
	_, open := <-ch
	assert.False(t, open)

	_, err = n.Subscribe(func(Event) {})
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = n.Channel(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLogListener(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := LogListener(zap.New(core))
	id := executor.MustIdentity("Sort", "Array", "1.0.0")

	l(LoadFailure{Source: "/m/module.yaml", Err: errors.New("bad yaml")})
	l(SecurityFailure{Identity: id, Rejected: true, Result: security.ValidationResult{RiskLevel: security.RiskCritical}})
	l(SecurityFailure{Identity: id, Result: security.ValidationResult{RiskLevel: security.RiskLow, Valid: true}})
	l(InstantiationFailure{Identity: id, Err: errors.New("boom")})
	l(DuplicateRegistration{Identity: id, Source: "b", ReplacedSource: "a"})

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, zap.InfoLevel, entries[2].Level)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
	assert.Equal(t, zap.WarnLevel, entries[4].Level)
	assert.Equal(t, "Sort.Array@1.0.0", entries[3].ContextMap()["executor"])
}

func TestEventStrings(t *testing.T) {
	id := executor.MustIdentity("Sort", "Array", "1.0.0")
	assert.Equal(t, "failed to load m.yaml: x", LoadFailure{Source: "m.yaml", Err: errors.New("x")}.String())
	assert.Contains(t, SecurityFailure{Identity: id, Rejected: true}.String(), "rejected")
	assert.Contains(t, InstantiationFailure{Identity: id, Err: errors.New("x")}.String(), "Sort.Array@1.0.0")
}
