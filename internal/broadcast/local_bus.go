package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var ErrBusClosed = errors.New("bus closed")

// LocalBus is an in-process Bus. Publish never blocks: a subscriber whose
// buffer is full is closed, so its owner reloads instead of missing the event.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
	onDrop DropFunc
	log    zerolog.Logger
}

// NewLocalBus creates a LocalBus whose subscriptions buffer up to buffer
// events. onDrop may be nil.
func NewLocalBus(buffer int, onDrop DropFunc, log zerolog.Logger) *LocalBus {
	return &LocalBus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		onDrop: onDrop,
		log:    log.With().Str("component", "local_bus").Logger(),
	}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	for sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			b.log.Warn().
				Str("kind", string(ev.Kind)).
				Str("exam_id", ev.ExamID.String()).
				Msg("Subscriber buffer full, closing lagging subscriber")
			delete(b.subs, sub)
			close(sub.events)
			if b.onDrop != nil {
				b.onDrop(ev)
			}
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	var sub *Subscription
	sub = newSubscription(b.buffer, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.events)
		}
	})
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Subscribers reports the number of open subscriptions.
func (b *LocalBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription and rejects further use.
func (b *LocalBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.events)
	}
}
