package identity

import (
	"runtime"
	"sync"
	"weak"

	"github.com/dshills/mutwatch/internal/object"
)

// Supported reports whether weak associations are available in this build.
// It is fixed at compile time.
func Supported() bool {
	return weakRefsAvailable
}

// Cache maps targets to stand-ins and records which values are stand-ins.
// It is safe for concurrent use.
type Cache struct {
	mu sync.Mutex

	// target identity -> stand-in
	byTarget map[weak.Pointer[object.Identity]]weak.Pointer[object.Proxy]

	// known stand-ins
	known map[weak.Pointer[object.Proxy]]struct{}
}

// cleanupArg identifies the entry to drop when a stand-in is reclaimed.
type cleanupArg struct {
	target  weak.Pointer[object.Identity]
	standIn weak.Pointer[object.Proxy]
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		byTarget: make(map[weak.Pointer[object.Identity]]weak.Pointer[object.Proxy]),
		known:    make(map[weak.Pointer[object.Proxy]]struct{}),
	}
}

// Lookup returns the live stand-in registered for target.
func (c *Cache) Lookup(target object.Object) (*object.Proxy, bool) {
	key := weak.Make(target.Identity())

	c.mu.Lock()
	defer c.mu.Unlock()

	wp, ok := c.byTarget[key]
	if !ok {
		return nil, false
	}
	p := wp.Value()
	if p == nil {
		// Reclaimed; the cleanup has not run yet.
		return nil, false
	}
	return p, true
}

// Register pairs target with standIn and returns the stand-in that is
// registered afterwards. When target already has a live stand-in, that one
// wins and standIn is discarded, so concurrent first wraps agree.
// Registering the same pair twice is harmless.
func (c *Cache) Register(target object.Object, standIn *object.Proxy) *object.Proxy {
	arg := cleanupArg{
		target:  weak.Make(target.Identity()),
		standIn: weak.Make(standIn),
	}

	c.mu.Lock()
	if wp, ok := c.byTarget[arg.target]; ok {
		if p := wp.Value(); p != nil {
			c.mu.Unlock()
			return p
		}
	}
	c.byTarget[arg.target] = arg.standIn
	c.known[arg.standIn] = struct{}{}
	c.mu.Unlock()

	runtime.AddCleanup(standIn, c.forget, arg)
	return standIn
}

// IsKnown reports whether v is a registered stand-in.
func (c *Cache) IsKnown(v object.Value) bool {
	p, ok := v.(*object.Proxy)
	if !ok || p == nil {
		return false
	}
	key := weak.Make(p)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok = c.known[key]
	return ok
}

// Len returns the number of target entries, including entries whose stand-in
// was reclaimed but not yet cleaned up.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byTarget)
}

// forget drops the entries of a reclaimed stand-in. A newer stand-in for the
// same target is left alone.
func (c *Cache) forget(arg cleanupArg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.byTarget[arg.target] == arg.standIn {
		delete(c.byTarget, arg.target)
	}
	delete(c.known, arg.standIn)
}
