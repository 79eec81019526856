package events

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPublishReachesSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus("", testLogger())
	sub := bus.Subscribe(ctx, "books")

	event := domain.NewEvent(domain.EventBookCreated,
		map[string]any{"id": "01ABC"}, "alice", time.Now().UTC())
	require.NoError(t, bus.Publish(ctx, "books", event))

	select {
	case env := <-sub:
		require.NotEmpty(t, env.EventID)
		require.Equal(t, domain.EventBookCreated, env.Event.Name)
		require.Equal(t, "01ABC", env.Event.Data["id"])
		require.Equal(t, "alice", env.Event.Data["event_user"])
	case <-time.After(time.Second):
		t.Fatal("expected event on subscriber channel")
	}
}

func TestPublishWithoutSubscribersIsFine(t *testing.T) {
	ctx := context.Background()
	bus := NewBus("", testLogger())

	event := domain.NewEvent(domain.EventBookDeleted, nil, "", time.Now().UTC())
	require.NoError(t, bus.Publish(ctx, "books", event))
}

func TestPublishIsScopedToChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus("", testLogger())
	other := bus.Subscribe(ctx, "other")

	event := domain.NewEvent(domain.EventBookCreated, nil, "", time.Now().UTC())
	require.NoError(t, bus.Publish(ctx, "books", event))

	select {
	case <-other:
		t.Fatal("subscriber on another channel must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus("", testLogger())
	_ = bus.Subscribe(ctx, "books") // never drained

	event := domain.NewEvent(domain.EventBookUpdated, nil, "", time.Now().UTC())
	for range subscriberBuffer + 10 {
		// Must not block once the buffer is full.
		require.NoError(t, bus.Publish(ctx, "books", event))
	}
}

func TestCancelledSubscriberIsRemoved(t *testing.T) {
	ctx := context.Background()
	subCtx, cancel := context.WithCancel(ctx)

	bus := NewBus("", testLogger())
	bus.Subscribe(subCtx, "books")
	cancel()

	// Removal happens on a goroutine; give it a moment.
	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["books"]) == 0
	}, time.Second, 10*time.Millisecond)
}
