package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_InvokesHandlersInOrder(t *testing.T) {
	bus := NewInMemoryDispatcher()
	var calls []string
	bus.Subscribe(EventTicketSold, func(ctx context.Context, event Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(EventTicketSold, func(ctx context.Context, event Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := bus.Publish(context.Background(), Event{Type: EventTicketSold})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcher_ScopesHandlersByType(t *testing.T) {
	bus := NewInMemoryDispatcher()
	var got []EventType
	bus.Subscribe(EventAccountRegistered, func(ctx context.Context, event Event) error {
		got = append(got, event.Type)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventAccountRegistered}))
	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventTicketSold}))

	assert.Equal(t, []EventType{EventAccountRegistered}, got)
}

// One failing handler never blocks the others or the publisher.
func TestDispatcher_HandlerErrorsDoNotPropagate(t *testing.T) {
	bus := NewInMemoryDispatcher()
	var reached bool
	bus.Subscribe(EventOTPRequested, func(ctx context.Context, event Event) error {
		return errors.New("handler failed")
	})
	bus.Subscribe(EventOTPRequested, func(ctx context.Context, event Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(context.Background(), Event{Type: EventOTPRequested})
	assert.NoError(t, err)
	assert.True(t, reached)
}

func TestDispatcher_NoSubscribersIsNoOp(t *testing.T) {
	bus := NewInMemoryDispatcher()
	assert.NoError(t, bus.Publish(context.Background(), Event{Type: EventAccountDecided}))
}
