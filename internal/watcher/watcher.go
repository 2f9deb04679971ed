// Package watcher reports changes to the files a run depends on.
//
// Targets are single regular files. Each is watched through its parent
// directory so that editors which save by writing a temporary file and
// renaming it over the target keep producing events. A Debouncer merges the
// bursts such saves produce into one Event per target.
package watcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned by operations on a closed watcher.
	ErrClosed = errors.New("watcher closed")

	// ErrNotFile is returned when a target is not a regular file.
	ErrNotFile = errors.New("not a regular file")

	// ErrUnknownTarget is returned when removing a path that is not a target.
	ErrUnknownTarget = errors.New("not a watch target")
)

// Change is the set of things that happened to a target.
type Change uint8

const (
	// Created means a file appeared at the target path.
	Created Change = 1 << iota

	// Written means the target's content was written.
	Written

	// Removed means the file left the target path, by deletion or rename.
	Removed
)

// String returns the change names joined by "|".
func (c Change) String() string {
	var names []string
	if c&Created != 0 {
		names = append(names, "created")
	}
	if c&Written != 0 {
		names = append(names, "written")
	}
	if c&Removed != 0 {
		names = append(names, "removed")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Event reports a change to one target.
type Event struct {
	// Path is the absolute path of the target.
	Path string

	Change Change

	// Present reports whether the file existed after the last raw
	// notification folded into this event.
	Present bool

	// Count is the number of raw notifications folded into this event.
	Count int

	At time.Time
}

// merge folds a later event for the same target into e.
func (e *Event) merge(later Event) {
	e.Change |= later.Change
	e.Present = later.Present
	e.Count += later.Count
	e.At = later.At
}

// Stats counts what a watcher has done since it started.
type Stats struct {
	Targets   int
	Delivered int64
	Dropped   int64
	Coalesced int64
	Errors    int64
}

// Source produces change events for a set of file targets.
type Source interface {
	// Add makes path a target. Adding an existing target is a no-op.
	Add(path string) error

	// Remove stops reporting path.
	Remove(path string) error

	// Targets lists the absolute target paths, sorted.
	Targets() []string

	// Events is closed when the source is closed.
	Events() <-chan Event

	// Errors is closed when the source is closed.
	Errors() <-chan error

	Stats() Stats
	Close() error
}

// Option configures a FileWatcher.
type Option func(*options)

type options struct {
	buffer int
	logger zerolog.Logger
}

func defaultOptions() options {
	return options{buffer: 64, logger: zerolog.Nop()}
}

// WithBuffer sets the size of the event and error channels.
func WithBuffer(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.buffer = size
		}
	}
}

// WithLogger sets the logger for dropped events and watch errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Run hands events and errors from src to the callbacks until ctx ends or
// src is closed. A nil onError drops errors.
func Run(ctx context.Context, src Source, onEvent func(Event), onError func(error)) {
	events, errs := src.Events(), src.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			onEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
