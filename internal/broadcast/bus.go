// Package broadcast carries exam lifecycle events from the publication store
// to every open student view.
package broadcast

import (
	"context"
	"sync"
)

// Bus fans exam events out to any number of subscribers. A subscriber that
// falls a full buffer behind has its Events channel closed; it must reload
// its state rather than continue from a gap. Close ends every subscription.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context) (*Subscription, error)
	Close()
}

// DropFunc is called when an event could not be delivered to a lagging
// subscriber.
type DropFunc func(ev Event)

// Subscription is one listener's handle. The owner must Close it on
// teardown; Close is safe to call more than once.
type Subscription struct {
	events  chan Event
	once    sync.Once
	closeFn func()
}

func newSubscription(buffer int, closeFn func()) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	return &Subscription{events: make(chan Event, buffer), closeFn: closeFn}
}

// Events is closed once the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Close() {
	s.once.Do(s.closeFn)
}
