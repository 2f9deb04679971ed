package watcher

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounceDelay is used when a non-positive delay is given.
const DefaultDebounceDelay = 100 * time.Millisecond

// Debouncer is a Source that waits for a target to stay quiet for the delay
// before reporting it. Every raw event seen in that window is folded into the
// one Event it reports.
//
// Events that are ready while the consumer is busy are queued, one per
// target, rather than dropped.
type Debouncer struct {
	src   Source
	delay time.Duration

	events chan Event
	errs   chan error
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	coalesced atomic.Int64
}

// NewDebouncer wraps src. The Debouncer owns src and closes it on Close.
func NewDebouncer(src Source, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	d := &Debouncer{
		src:    src,
		delay:  delay,
		events: make(chan Event),
		errs:   make(chan error),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

// Add implements Source.
func (d *Debouncer) Add(path string) error { return d.src.Add(path) }

// Remove implements Source.
func (d *Debouncer) Remove(path string) error { return d.src.Remove(path) }

// Targets implements Source.
func (d *Debouncer) Targets() []string { return d.src.Targets() }

// Events implements Source.
func (d *Debouncer) Events() <-chan Event { return d.events }

// Errors implements Source.
func (d *Debouncer) Errors() <-chan error { return d.errs }

// Stats returns the wrapped source's counters plus the number of raw events
// folded into earlier ones.
func (d *Debouncer) Stats() Stats {
	s := d.src.Stats()
	s.Coalesced = d.coalesced.Load()
	return s
}

// Close discards anything not yet delivered and closes the wrapped source.
func (d *Debouncer) Close() error {
	var err error
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
		err = d.src.Close()
	})
	return err
}

// quiet is a target waiting out its delay.
type quiet struct {
	event    Event
	deadline time.Time
}

func (d *Debouncer) loop() {
	defer d.wg.Done()
	defer close(d.errs)
	defer close(d.events)

	waiting := make(map[string]*quiet)
	var ready []Event
	var errQueue []error

	timer := time.NewTimer(d.delay)
	timer.Stop()

	schedule := func() {
		var next time.Time
		for _, q := range waiting {
			if next.IsZero() || q.deadline.Before(next) {
				next = q.deadline
			}
		}
		if next.IsZero() {
			timer.Stop()
			return
		}
		timer.Reset(time.Until(next))
	}

	in, inErrs := d.src.Events(), d.src.Errors()
	for {
		// Nil channels disable the send cases while their queue is empty.
		var out chan Event
		var head Event
		if len(ready) > 0 {
			out, head = d.events, ready[0]
		}
		var errOut chan error
		var errHead error
		if len(errQueue) > 0 {
			errOut, errHead = d.errs, errQueue[0]
		}

		select {
		case <-d.done:
			timer.Stop()
			return

		case ev, ok := <-in:
			if !ok {
				return
			}
			if q, ok := waiting[ev.Path]; ok {
				q.event.merge(ev)
				d.coalesced.Add(int64(ev.Count))
			} else {
				waiting[ev.Path] = &quiet{event: ev}
			}
			waiting[ev.Path].deadline = time.Now().Add(d.delay)
			schedule()

		case err, ok := <-inErrs:
			if !ok {
				return
			}
			errQueue = append(errQueue, err)

		case <-timer.C:
			now := time.Now()
			for path, q := range waiting {
				if q.deadline.After(now) {
					continue
				}
				delete(waiting, path)
				ready = enqueue(ready, q.event, &d.coalesced)
			}
			schedule()

		case out <- head:
			ready = ready[1:]

		case errOut <- errHead:
			errQueue = errQueue[1:]
		}
	}
}

// enqueue adds ev to the ready queue, folding it into a queued event for the
// same target when there is one.
func enqueue(ready []Event, ev Event, coalesced *atomic.Int64) []Event {
	for i := range ready {
		if ready[i].Path == ev.Path {
			ready[i].merge(ev)
			coalesced.Add(int64(ev.Count))
			return ready
		}
	}
	return append(ready, ev)
}

var _ Source = (*Debouncer)(nil)
