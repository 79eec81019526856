package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
)

// Publisher is the mutation pipeline's view of the event channel. Delivery
// is best-effort: a publish error never rolls back or fails the mutation
// that triggered it.
type Publisher interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
}

// Envelope wraps a domain event for transport on the bus.
type Envelope struct {
	EventID string       `json:"event_id"`
	Channel string       `json:"-"`
	Event   domain.Event `json:"event"`
}

// Bus is an in-process publish/subscribe broker keyed by channel name. The
// broker URL from config is carried for parity with an external broker
// deployment; the current implementation fans out over channels in-process.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Envelope
	logger      *slog.Logger
	url         string
}

// subscriberBuffer bounds how far a slow subscriber may lag before its
// events get dropped.
const subscriberBuffer = 128

func NewBus(brokerURL string, logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Envelope),
		logger:      logger,
		url:         brokerURL,
	}
}

// Publish fans the event out to every current subscriber of the channel.
// Subscribers that cannot keep up lose the event; nobody listening means the
// event simply evaporates.
func (b *Bus) Publish(ctx context.Context, channel string, event domain.Event) error {
	env := Envelope{
		EventID: uuid.NewString(),
		Channel: channel,
		Event:   event,
	}

	b.mu.RLock()
	subs := append([]chan Envelope(nil), b.subscribers[channel]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- env:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"channel", channel,
				"event_id", env.EventID,
				"event", event.Name,
			)
		}
	}

	b.logger.Debug("event published",
		"channel", channel,
		"event_id", env.EventID,
		"event", event.Name,
		"subscribers", len(subs),
	)
	return nil
}

// Subscribe registers a listener on a channel. The subscription is
// deregistered when ctx is cancelled; the channel itself is never closed
// because a concurrent Publish may still hold a reference to it, so
// receivers must select on ctx.Done as well.
func (b *Bus) Subscribe(ctx context.Context, channel string) <-chan Envelope {
	ch := make(chan Envelope, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[channel] = append(b.subscribers[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, ch)
	}()

	return ch
}

func (b *Bus) removeSubscriber(channel string, target chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[channel]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[channel] = filtered
}
