package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/channels/gochannel"
	"github.com/retrace-dev/retrace/pkg/eventbus"
	"github.com/retrace-dev/retrace/pkg/events"
)

func newBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	received := make(chan *events.StepCompleted, 1)

	err := bus.Handle(events.StepCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.StepCompleted)
		if ok {
			received <- completed
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Subscribe(ctx))

	event := events.StepCompleted{
		BaseEvent: events.BaseEvent{
			ID:     bus.GenerateID(),
			Type:   events.StepCompletedEvent,
			RunID:  "run-1",
			FlowID: "flow-1",
		},
		StepID: "click",
		Status: "success",
	}
	require.NoError(t, bus.Publish(ctx, string(events.StepCompletedEvent), event))

	select {
	case got := <-received:
		assert.Equal(t, "run-1", got.RunID)
		assert.Equal(t, "click", got.StepID)
		assert.Equal(t, "success", got.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestHandlersAreTypeScoped(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	received := make(chan any, 2)

	err := bus.Handle(events.RunCompletedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Subscribe(ctx))

	started := events.RunStarted{BaseEvent: events.BaseEvent{RunID: "run-1"}}
	require.NoError(t, bus.Publish(ctx, string(events.RunStartedEvent), started))

	completed := events.RunCompleted{BaseEvent: events.BaseEvent{RunID: "run-1"}}
	require.NoError(t, bus.Publish(ctx, string(events.RunCompletedEvent), completed))

	select {
	case event := <-received:
		_, ok := event.(*events.RunCompleted)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.Empty(t, received)
}

func TestDuplicateHandlerRejected(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	handler := func(context.Context, any) error { return nil }

	require.NoError(t, bus.Handle(events.RunStartedEvent, handler))
	assert.ErrorIs(t, bus.Handle(events.RunStartedEvent, handler), eventbus.ErrDuplicateHandler)
}

func TestGenerateIDIsUnique(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
