package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus carries events over a Redis Pub/Sub channel so student views
// served by any process see every publish.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	buffer  int
	onDrop  DropFunc
	log     zerolog.Logger

	mu     sync.Mutex
	subs   map[*Subscription]*redis.PubSub
	closed bool
}

// NewRedisBus creates a RedisBus on the given channel.
func NewRedisBus(rdb *redis.Client, channel string, buffer int, onDrop DropFunc, log zerolog.Logger) *RedisBus {
	return &RedisBus{
		rdb:     rdb,
		channel: channel,
		buffer:  buffer,
		onDrop:  onDrop,
		log:     log.With().Str("component", "redis_bus").Str("channel", channel).Logger(),
		subs:    make(map[*Subscription]*redis.PubSub),
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	if b.isClosed() {
		return ErrBusClosed
	}

	payload, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning,
// so no event published afterwards can be missed.
func (b *RedisBus) Subscribe(ctx context.Context) (*Subscription, error) {
	if b.isClosed() {
		return nil, ErrBusClosed
	}

	pubsub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	var sub *Subscription
	sub = newSubscription(b.buffer, func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		if err := pubsub.Close(); err != nil {
			b.log.Debug().Err(err).Msg("Close pubsub")
		}
	})

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, ErrBusClosed
	}
	b.subs[sub] = pubsub
	b.mu.Unlock()

	go b.pump(pubsub, sub)
	return sub, nil
}

// Subscribers reports the number of open subscriptions.
func (b *RedisBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription and rejects further use. Open feeds see
// their Events channel close.
func (b *RedisBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (b *RedisBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// pump decodes raw messages into the subscription until pubsub closes or
// the subscriber falls a full buffer behind.
func (b *RedisBus) pump(pubsub *redis.PubSub, sub *Subscription) {
	defer close(sub.events)

	for msg := range pubsub.Channel() {
		ev, err := Decode([]byte(msg.Payload))
		if err != nil {
			b.log.Warn().Err(err).Msg("Discarding malformed event")
			continue
		}

		select {
		case sub.events <- ev:
		default:
			b.log.Warn().
				Str("kind", string(ev.Kind)).
				Str("exam_id", ev.ExamID.String()).
				Msg("Subscriber buffer full, closing lagging subscriber")
			if b.onDrop != nil {
				b.onDrop(ev)
			}
			sub.Close()
			return
		}
	}
}
