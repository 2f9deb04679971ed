package watcher

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a Source fed by hand.
type fakeSource struct {
	mu      sync.Mutex
	targets map[string]bool
	events  chan Event
	errs    chan error
	closed  bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		targets: make(map[string]bool),
		events:  make(chan Event, 16),
		errs:    make(chan error, 16),
	}
}

func (f *fakeSource) Add(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[path] = true
	return nil
}

func (f *fakeSource) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.targets[path] {
		return ErrUnknownTarget
	}
	delete(f.targets, path)
	return nil
}

func (f *fakeSource) Targets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.targets))
}

func (f *fakeSource) Events() <-chan Event { return f.events }
func (f *fakeSource) Errors() <-chan error { return f.errs }

func (f *fakeSource) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{Targets: len(f.targets)}
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
		close(f.errs)
	}
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func raw(path string, c Change) Event {
	return Event{Path: path, Change: c, Present: c&Removed == 0, Count: 1, At: time.Now()}
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertQuiet(t *testing.T, ch <-chan Event, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(wait):
	}
}

func TestChange_String(t *testing.T) {
	assert.Equal(t, "written", Written.String())
	assert.Equal(t, "created|removed", (Created | Removed).String())
	assert.Equal(t, "none", Change(0).String())
}

func TestDebouncer_DefaultDelay(t *testing.T) {
	d := NewDebouncer(newFakeSource(), 0)
	defer d.Close()

	assert.Equal(t, DefaultDebounceDelay, d.delay)
}

func TestDebouncer_FoldsBurst(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 50*time.Millisecond)
	defer d.Close()

	src.events <- raw("/doc.json", Removed)
	src.events <- raw("/doc.json", Created)
	src.events <- raw("/doc.json", Written)

	ev := next(t, d.Events())
	assert.Equal(t, "/doc.json", ev.Path)
	assert.Equal(t, Created|Written|Removed, ev.Change)
	assert.True(t, ev.Present, "the last notification decides presence")
	assert.Equal(t, 3, ev.Count)
	assert.Equal(t, int64(2), d.Stats().Coalesced)

	assertQuiet(t, d.Events(), 150*time.Millisecond)
}

func TestDebouncer_RemovalLeavesAbsent(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 20*time.Millisecond)
	defer d.Close()

	src.events <- raw("/edit.lua", Written)
	src.events <- raw("/edit.lua", Removed)

	ev := next(t, d.Events())
	assert.False(t, ev.Present)
}

func TestDebouncer_DelayRestartsOnEachEvent(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 150*time.Millisecond)
	defer d.Close()

	start := time.Now()
	for i := range 4 {
		if i > 0 {
			time.Sleep(30 * time.Millisecond)
		}
		src.events <- raw("/edit.lua", Written)
	}

	ev := next(t, d.Events())
	assert.Equal(t, 4, ev.Count)
	assert.GreaterOrEqual(t, time.Since(start), 240*time.Millisecond)
}

func TestDebouncer_TargetsAreIndependent(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 20*time.Millisecond)
	defer d.Close()

	src.events <- raw("/a", Written)
	src.events <- raw("/b", Written)

	got := []string{next(t, d.Events()).Path, next(t, d.Events()).Path}
	assert.ElementsMatch(t, []string{"/a", "/b"}, got)
}

func TestDebouncer_QueuesWhileConsumerIsBusy(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 10*time.Millisecond)
	defer d.Close()

	src.events <- raw("/a", Written)
	time.Sleep(50 * time.Millisecond)
	src.events <- raw("/a", Written)
	src.events <- raw("/b", Created)
	time.Sleep(50 * time.Millisecond)

	first := next(t, d.Events())
	assert.Equal(t, "/a", first.Path)
	assert.Equal(t, 2, first.Count, "a second ready event for /a joins the queued one")
	assert.Equal(t, "/b", next(t, d.Events()).Path)
	assertQuiet(t, d.Events(), 50*time.Millisecond)
}

func TestDebouncer_ForwardsErrors(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 10*time.Millisecond)
	defer d.Close()

	boom := errors.New("boom")
	src.errs <- boom

	select {
	case err := <-d.Errors():
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
}

func TestDebouncer_DelegatesTargets(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, time.Hour)
	defer d.Close()

	require.NoError(t, d.Add("/b"))
	require.NoError(t, d.Add("/a"))
	assert.Equal(t, []string{"/a", "/b"}, d.Targets())
	assert.Equal(t, 2, d.Stats().Targets)

	require.NoError(t, d.Remove("/a"))
	assert.ErrorIs(t, d.Remove("/a"), ErrUnknownTarget)
}

func TestDebouncer_Close(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, time.Hour)

	src.events <- raw("/a", Written)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, ok := <-d.Events()
	assert.False(t, ok, "waiting events are discarded")
	assert.True(t, src.isClosed())
}

func TestDebouncer_SourceClosed(t *testing.T) {
	src := newFakeSource()
	d := NewDebouncer(src, 10*time.Millisecond)
	defer d.Close()

	require.NoError(t, src.Close())
	select {
	case _, ok := <-d.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events not closed after the source closed")
	}
}

func TestRun(t *testing.T) {
	src := newFakeSource()
	var events []Event
	var errs []error

	src.events <- raw("/a", Written)
	src.errs <- errors.New("boom")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, src,
			func(e Event) { events = append(events, e) },
			func(err error) { errs = append(errs, err) })
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Len(t, events, 1)
	assert.Len(t, errs, 1)
}

func TestRun_StopsWhenSourceCloses(t *testing.T) {
	src := newFakeSource()
	require.NoError(t, src.Close())

	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(context.Background(), src, func(Event) {}, nil)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
