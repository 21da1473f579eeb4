package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(func(Event) { order = append(order, "first") })
	bus.Subscribe(func(Event) { order = append(order, "second") })
	bus.Subscribe(func(Event) { order = append(order, "third") })

	bus.Publish(Event{Kind: KindRupture})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBusPublishIsSynchronous(t *testing.T) {
	bus := NewBus()
	seen := 0
	bus.Subscribe(func(Event) { seen++ })

	bus.Publish(Event{Kind: KindEntityDied})
	// The handler has already run by the time Publish returns.
	assert.Equal(t, 1, seen)
}

func TestBusHandlerMaySubscribe(t *testing.T) {
	bus := NewBus()
	lateCalls := 0
	bus.Subscribe(func(Event) {
		bus.Subscribe(func(Event) { lateCalls++ })
	})

	bus.Publish(Event{Kind: KindPolicyShift})
	assert.Equal(t, 0, lateCalls, "late handler must not see the event that registered it")

	bus.Publish(Event{Kind: KindPolicyShift})
	assert.Equal(t, 1, lateCalls)
}

func TestCollectorDrain(t *testing.T) {
	var c Collector
	bus := NewBus()
	bus.Subscribe(c.Handle)

	bus.Publish(Event{Tick: 1, Kind: KindEconomicCrisis, Payload: CrisisPayload{PoolRatio: 0.09}})
	bus.Publish(Event{Tick: 1, Kind: KindPolicyShift})
	require.Equal(t, 2, c.Len())

	got := c.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, KindEconomicCrisis, got[0].Kind)
	payload, ok := got[0].Payload.(CrisisPayload)
	require.True(t, ok)
	assert.InDelta(t, 0.09, payload.PoolRatio, 1e-9)

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Drain())
}
