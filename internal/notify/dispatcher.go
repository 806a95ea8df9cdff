package notify

import (
	"strings"
	"sync"
)

// Dispatcher forwards events to subscribed observers. Delivery never blocks
// the publisher: a subscriber whose buffer is full misses the event.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// NewDispatcher creates a dispatcher with no subscribers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]*subscriber)}
}

// Publish delivers evt to every subscriber whose prefix matches evt.Kind.
// It returns the number of subscribers that received it.
func (d *Dispatcher) Publish(evt Event) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	delivered := 0
	for _, sub := range d.subs {
		if !strings.HasPrefix(evt.Kind, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- evt:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribe registers an observer for kinds starting with prefix. The
// returned func unsubscribes; it is safe to call more than once.
func (d *Dispatcher) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	if bufSize < 1 {
		bufSize = 1
	}
	ch := make(chan Event, bufSize)
	d.mu.Lock()
	id := d.next
	d.next++
	d.subs[id] = &subscriber{prefix: prefix, ch: ch}
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

// Subscribers returns the current subscriber count.
func (d *Dispatcher) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
