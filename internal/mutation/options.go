package mutation

import (
	"github.com/rs/zerolog"

	"github.com/dshills/mutwatch/internal/object"
)

// IgnoreFunc reports whether a value must be returned unwrapped.
type IgnoreFunc func(v object.Value) bool

// Handler receives mutation records synchronously, before the mutating
// operation is applied.
type Handler func(r Record)

// Options is the process-wide configuration. A nil field selects the default.
type Options struct {
	// Ignore excludes values from wrapping. Default: ignore nothing.
	Ignore IgnoreFunc

	// Handler receives every genuine mutation. Default: the engine's
	// Reporter, which logs at warn level.
	Handler Handler
}

// settings is the resolved, immutable form of Options held by an Engine.
type settings struct {
	ignore  IgnoreFunc
	handler Handler
}

func ignoreNothing(object.Value) bool {
	return false
}

// Option configures an Engine at construction.
type Option func(*engineConfig)

// engineConfig collects constructor options.
type engineConfig struct {
	options     Options
	logger      *zerolog.Logger
	passthrough bool
}

// WithIgnore sets the initial ignore predicate.
func WithIgnore(fn IgnoreFunc) Option {
	return func(c *engineConfig) {
		c.options.Ignore = fn
	}
}

// WithHandler sets the initial mutation handler.
func WithHandler(h Handler) Option {
	return func(c *engineConfig) {
		c.options.Handler = h
	}
}

// WithLogger sets the logger used by the default reporter and for handler
// panics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = &logger
	}
}

// WithPassthrough forces the engine to return every value unwrapped, as
// when weak references are unavailable.
func WithPassthrough(enabled bool) Option {
	return func(c *engineConfig) {
		c.passthrough = enabled
	}
}
