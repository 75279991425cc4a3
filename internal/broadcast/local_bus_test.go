package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestLocalBusFanOut(t *testing.T) {
	bus := NewLocalBus(4, nil, zerolog.Nop())
	ctx := context.Background()

	first, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, bus.Publish(ctx, ExamUnpublished(id)))

	for _, sub := range []*Subscription{first, second} {
		ev := receive(t, sub)
		assert.Equal(t, KindExamUnpublished, ev.Kind)
		assert.Equal(t, id, ev.ExamID)
	}
}

func TestLocalBusPreservesOrder(t *testing.T) {
	bus := NewLocalBus(8, nil, zerolog.Nop())
	ctx := context.Background()
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, bus.Publish(ctx, ExamDeleted(id)))
	}
	for _, id := range ids {
		assert.Equal(t, id, receive(t, sub).ExamID)
	}
}

func TestLocalBusClosesLaggingSubscriber(t *testing.T) {
	var dropped []Event
	bus := NewLocalBus(1, func(ev Event) { dropped = append(dropped, ev) }, zerolog.Nop())
	ctx := context.Background()

	slow, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	fast, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	first, second := uuid.New(), uuid.New()
	require.NoError(t, bus.Publish(ctx, ExamDeleted(first)))
	assert.Equal(t, first, receive(t, fast).ExamID)
	require.NoError(t, bus.Publish(ctx, ExamDeleted(second)))

	// The slow subscriber keeps what it buffered, then sees the close.
	assert.Equal(t, first, receive(t, slow).ExamID)
	_, ok := <-slow.Events()
	assert.False(t, ok)
	slow.Close()

	assert.Equal(t, second, receive(t, fast).ExamID)
	assert.Equal(t, 1, bus.Subscribers())
	require.Len(t, dropped, 1)
	assert.Equal(t, second, dropped[0].ExamID)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	bus := NewLocalBus(1, nil, zerolog.Nop())
	sub, err := bus.Subscribe(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, bus.Subscribers())

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, bus.Subscribers())
	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Publishing after a listener left must not panic or block.
	require.NoError(t, bus.Publish(context.Background(), ExamDeleted(uuid.New())))
}

func TestLocalBusClose(t *testing.T) {
	bus := NewLocalBus(1, nil, zerolog.Nop())
	sub, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	bus.Close()
	bus.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	sub.Close()

	assert.ErrorIs(t, bus.Publish(context.Background(), ExamDeleted(uuid.New())), ErrBusClosed)
	_, err = bus.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrBusClosed)
}
