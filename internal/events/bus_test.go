package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

func TestEventBus_SubscribeRoutesByType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	decisions := bus.Subscribe(models.EventTypeDecisionMade)
	alerts := bus.Subscribe(models.EventTypeBudgetAlert)

	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "fleet-1", "scale up"))

	select {
	case ev := <-decisions:
		assert.Equal(t, models.EventTypeDecisionMade, ev.Type)
		assert.Equal(t, "fleet-1", ev.FleetID)
	default:
		t.Fatal("expected event on decision channel")
	}

	select {
	case <-alerts:
		t.Fatal("budget channel must not receive decision events")
	default:
	}
}

func TestEventBus_SubscribeAllReceivesEverything(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypeScheduleFired, "fleet-1", "forced to zero"))
	bus.Publish(models.NewEvent(models.EventTypeBudgetAlert, "", "90% of budget used"))

	first := <-all
	second := <-all
	assert.Equal(t, models.EventTypeScheduleFired, first.Type)
	assert.Equal(t, models.EventTypeBudgetAlert, second.Type)
}

func TestEventBus_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeError)

	bus.Publish(models.NewEvent(models.EventTypeError, "fleet-1", "first"))
	// Buffer is full; this must return immediately.
	bus.Publish(models.NewEvent(models.EventTypeError, "fleet-1", "second"))

	ev := <-ch
	assert.Equal(t, "first", ev.Message)

	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.Subscribe(models.EventTypeAlert)

	bus.Close()
	bus.Close()

	_, open := <-ch
	require.False(t, open, "subscriber channels close with the bus")

	// Publishing after close must not panic.
	bus.Publish(models.NewEvent(models.EventTypeAlert, "", "late"))
}
