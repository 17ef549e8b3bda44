// Package eventbus is an in-memory, non-blocking fanout used for
// observability hooks. Slow subscribers drop events.
package eventbus

import (
	"sync"
	"time"
)

// Event types published by the dispatch loop, the reminder service and
// the notifier.
const (
	TypeTickDone          = "dispatch.tick"
	TypeReminderFired     = "reminder.fired"
	TypeReminderSuppress  = "reminder.suppressed"
	TypeReminderVanished  = "reminder.vanished"
	TypeReminderFailed    = "reminder.failed"
	TypeReminderCreated   = "reminder.created"
	TypeReminderRemoved   = "reminder.removed"
	TypeNotificationSent  = "notifier.sent"
	TypeNotificationError = "notifier.failed"
)

type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a bus that owns no goroutines.
func New() Bus {
	return &memBus{}
}

type subscriber struct {
	ch     chan Event
	closed bool
}

type memBus struct {
	mu   sync.Mutex
	subs []*subscriber
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Sends happen under the lock so unsubscribe never closes a channel
	// mid-send; every send is non-blocking.
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	sub := &subscriber{ch: make(chan Event, buffer)}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub.closed {
			return
		}
		sub.closed = true
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		close(sub.ch)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}

func (Nop) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}
