package identity

import (
	"sync"

	"github.com/rpggio/wellnest/internal/domain/auth"
)

const subscriberBuffer = 16

// Broadcaster fans session-change events out to subscribers. Each
// subscriber has its own goroutine, so delivery is asynchronous and ordered
// per subscriber.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	ch   chan auth.Event
	done chan struct{}
	once sync.Once
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]*subscriber{}}
}

// Subscribe registers fn and returns its unsubscribe func.
func (b *Broadcaster) Subscribe(fn func(auth.Event)) func() {
	sub := &subscriber{
		ch:   make(chan auth.Event, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		for {
			select {
			case ev := <-sub.ch:
				select {
				case <-sub.done:
					return
				default:
				}
				fn(ev)
			case <-sub.done:
				return
			}
		}
	}()

	return func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.done)
		})
	}
}

// Publish queues ev for every current subscriber.
func (b *Broadcaster) Publish(ev auth.Event) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		}
	}
}
