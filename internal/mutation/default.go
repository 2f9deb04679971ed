package mutation

import (
	"sync"

	"github.com/dshills/mutwatch/internal/object"
)

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide engine used by the package-level
// functions.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Wrap wraps v with the default engine.
func Wrap(v object.Value) object.Value {
	return Default().Wrap(v)
}

// Configure replaces the default engine's configuration.
func Configure(opts Options) {
	Default().Configure(opts)
}

// IsStandIn reports whether v is a stand-in of the default engine.
func IsStandIn(v object.Value) bool {
	return Default().IsStandIn(v)
}
