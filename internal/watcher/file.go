package watcher

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// FileWatcher is a Source backed by fsnotify.
type FileWatcher struct {
	fsw    *fsnotify.Watcher
	logger zerolog.Logger

	mu      sync.Mutex
	targets map[string]struct{}
	dirs    map[string]int // targets per watched parent directory
	closed  bool

	events chan Event
	errs   chan error
	done   chan struct{}
	wg     sync.WaitGroup

	delivered atomic.Int64
	dropped   atomic.Int64
	failures  atomic.Int64
}

// NewFileWatcher starts a watcher with no targets.
func NewFileWatcher(opts ...Option) (*FileWatcher, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "starting file watcher")
	}

	w := &FileWatcher{
		fsw:     fsw,
		logger:  o.logger,
		targets: make(map[string]struct{}),
		dirs:    make(map[string]int),
		events:  make(chan Event, o.buffer),
		errs:    make(chan error, o.buffer),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add makes the regular file at path a target.
func (w *FileWatcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errors.Wrapf(err, "watching %s", path)
	}
	if !info.Mode().IsRegular() {
		return errors.Wrapf(ErrNotFile, "watching %s", path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, ok := w.targets[abs]; ok {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
	}
	w.dirs[dir]++
	w.targets[abs] = struct{}{}
	w.logger.Debug().Str("path", abs).Msg("watch target added")
	return nil
}

// Remove stops reporting path. The parent directory is released once no
// target needs it.
func (w *FileWatcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, ok := w.targets[abs]; !ok {
		return errors.Wrap(ErrUnknownTarget, path)
	}
	delete(w.targets, abs)

	dir := filepath.Dir(abs)
	if w.dirs[dir]--; w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	if err := w.fsw.Remove(dir); err != nil {
		w.logger.Debug().Err(err).Str("dir", dir).Msg("releasing directory watch")
	}
	return nil
}

// Targets implements Source.
func (w *FileWatcher) Targets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Sorted(maps.Keys(w.targets))
}

// Events implements Source.
func (w *FileWatcher) Events() <-chan Event { return w.events }

// Errors implements Source.
func (w *FileWatcher) Errors() <-chan error { return w.errs }

// Stats implements Source.
func (w *FileWatcher) Stats() Stats {
	w.mu.Lock()
	n := len(w.targets)
	w.mu.Unlock()
	return Stats{
		Targets:   n,
		Delivered: w.delivered.Load(),
		Dropped:   w.dropped.Load(),
		Errors:    w.failures.Load(),
	}
}

// Close stops the watcher and closes its channels. It is safe to call more
// than once.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)
	close(w.errs)
	return errors.Wrap(w.fsw.Close(), "closing file watcher")
}

func (w *FileWatcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case raw, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.translate(raw)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.failures.Add(1)
			select {
			case w.errs <- err:
			default:
				w.logger.Warn().Err(err).Msg("watch error dropped")
			}
		}
	}
}

// translate forwards raw when it names a target. Permission changes are not
// reported.
func (w *FileWatcher) translate(raw fsnotify.Event) {
	change := classify(raw.Op)
	if change == 0 {
		return
	}
	path := filepath.Clean(raw.Name)
	if !w.isTarget(path) {
		return
	}

	ev := Event{
		Path:    path,
		Change:  change,
		Present: change&Removed == 0,
		Count:   1,
		At:      time.Now(),
	}
	select {
	case w.events <- ev:
		w.delivered.Add(1)
	default:
		w.dropped.Add(1)
		w.logger.Warn().Str("path", path).Stringer("change", change).Msg("event buffer full, change dropped")
	}
}

func (w *FileWatcher) isTarget(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.targets[path]
	return ok
}

func classify(op fsnotify.Op) Change {
	var c Change
	if op.Has(fsnotify.Create) {
		c |= Created
	}
	if op.Has(fsnotify.Write) {
		c |= Written
	}
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		c |= Removed
	}
	return c
}

var _ Source = (*FileWatcher)(nil)
