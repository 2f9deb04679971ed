// Package notify fans mutation records out to many observers.
//
// A Notifier is installed as the mutation handler through Handler. Observers
// subscribe to the whole record stream, to one property name, or to a set of
// record kinds, and receive records synchronously by default or from a
// background goroutine when the notifier is built WithAsync.
package notify

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/dshills/mutwatch/internal/mutation"
	"github.com/dshills/mutwatch/internal/object"
)

// Observer is called for each delivered record.
type Observer func(r mutation.Record)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// entry is one registered observer and its filter.
type entry struct {
	observer Observer
	match    func(r mutation.Record) bool
}

// Notifier manages mutation record subscriptions.
type Notifier struct {
	mu sync.RWMutex

	// Observers receiving every record
	globalObservers map[uint64]Observer

	// Observers keyed by property name
	propertyObservers map[object.Key]map[uint64]Observer

	// Observers with a custom filter
	filtered map[uint64]entry

	// Next subscription ID
	nextID uint64

	// Whether to deliver on a background goroutine
	async bool

	// Buffer for async delivery
	buffer chan mutation.Record

	// Done channel for shutdown
	done chan struct{}

	// Wait group for the async goroutine
	wg sync.WaitGroup

	// Async sends that passed the closed check
	sending sync.WaitGroup

	// Closed flag for idempotent Close
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous delivery with a buffer of the given size.
// A non-positive size keeps delivery synchronous.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan mutation.Record, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers:   make(map[uint64]Observer),
		propertyObservers: make(map[object.Key]map[uint64]Observer),
		filtered:          make(map[uint64]entry),
		done:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Handler returns a mutation handler that forwards every record to n.
func (n *Notifier) Handler() mutation.Handler {
	return n.Notify
}

// Subscribe registers an observer for all records.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeProperty registers an observer for records naming property.
// Prototype changes are delivered to observers of mutation.PrototypeProperty.
func (n *Notifier) SubscribeProperty(property object.Key, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.propertyObservers[property] == nil {
		n.propertyObservers[property] = make(map[uint64]Observer)
	}
	n.propertyObservers[property][id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeKind registers an observer for records of the given kinds.
func (n *Notifier) SubscribeKind(observer Observer, kinds ...mutation.Kind) *Subscription {
	return n.SubscribeFunc(func(r mutation.Record) bool {
		return lo.Contains(kinds, r.Kind)
	}, observer)
}

// SubscribeTarget registers an observer for records whose target is target.
// Passing a stand-in subscribes to its original.
func (n *Notifier) SubscribeTarget(target object.Object, observer Observer) *Subscription {
	if p, ok := target.(*object.Proxy); ok {
		target = p.Target()
	}
	return n.SubscribeFunc(func(r mutation.Record) bool {
		return object.SameValue(r.Target, target)
	}, observer)
}

// SubscribeFunc registers an observer for records accepted by match.
func (n *Notifier) SubscribeFunc(match func(r mutation.Record) bool, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.filtered[id] = entry{observer: observer, match: match}

	return &Subscription{id: id, notifier: n}
}

// Notify delivers r to all matching observers. After Close it does nothing.
func (n *Notifier) Notify(r mutation.Record) {
	n.enqueue(r)
}

// enqueue delivers r, or buffers it in async mode, and reports whether the
// notifier accepted it. An accepted record is always delivered before Close
// returns.
func (n *Notifier) enqueue(r mutation.Record) bool {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return false
	}
	if !n.async {
		n.mu.RUnlock()
		n.deliver(r)
		return true
	}
	n.sending.Add(1)
	n.mu.RUnlock()
	defer n.sending.Done()

	n.buffer <- r
	return true
}

// Close shuts down the notifier, draining buffered records first. It is safe
// to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	n.sending.Wait()
	close(n.done)
	n.wg.Wait()
}

// unsubscribe removes an observer by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)
	delete(n.filtered, id)

	for property, observers := range n.propertyObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.propertyObservers, property)
		}
	}
}

// deliver sends r to every matching observer in subscription order.
func (n *Notifier) deliver(r mutation.Record) {
	type match struct {
		id       uint64
		observer Observer
	}

	n.mu.RLock()
	var matches []match
	for id, obs := range n.globalObservers {
		matches = append(matches, match{id, obs})
	}
	for id, obs := range n.propertyObservers[r.Property] {
		matches = append(matches, match{id, obs})
	}
	for id, e := range n.filtered {
		if e.match(r) {
			matches = append(matches, match{id, e.observer})
		}
	}
	n.mu.RUnlock()

	slices.SortFunc(matches, func(a, b match) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})

	// Call observers outside the lock
	for _, m := range matches {
		m.observer(r)
	}
}

// processAsync handles asynchronous delivery.
func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case r := <-n.buffer:
			n.deliver(r)
		case <-n.done:
			// Drain remaining buffered records
			for {
				select {
				case r := <-n.buffer:
					n.deliver(r)
				default:
					return
				}
			}
		}
	}
}

// Batch collects records and delivers them as a group.
type Batch struct {
	notifier *Notifier
	records  []mutation.Record
	mu       sync.Mutex
}

// NewBatch creates a new batch for collecting records.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add adds a record to the batch.
func (b *Batch) Add(r mutation.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, r)
}

// Handler returns a mutation handler that adds records to the batch.
func (b *Batch) Handler() mutation.Handler {
	return b.Add
}

// Commit sends all batched records to observers and empties the batch.
func (b *Batch) Commit() {
	b.mu.Lock()
	records := b.records
	b.records = nil
	b.mu.Unlock()

	for _, r := range records {
		b.notifier.Notify(r)
	}
}

// Discard clears the batch without delivering.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = nil
}

// Len returns the number of pending records.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
