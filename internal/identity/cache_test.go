package identity

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mutwatch/internal/object"
)

func TestSupported(t *testing.T) {
	assert.Equal(t, weakRefsAvailable, Supported())
}

func TestCache_RegisterLookup(t *testing.T) {
	c := New()
	target := object.NewRecord()

	_, ok := c.Lookup(target)
	assert.False(t, ok)

	p := object.NewProxy(target, object.Traps{})
	assert.Same(t, p, c.Register(target, p))

	got, ok := c.Lookup(target)
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.True(t, c.IsKnown(p))
	assert.False(t, c.IsKnown(target))
	assert.False(t, c.IsKnown(nil))
	assert.False(t, c.IsKnown(42))
}

func TestCache_RegisterIsIdempotent(t *testing.T) {
	c := New()
	target := object.NewRecord()
	p := object.NewProxy(target, object.Traps{})

	c.Register(target, p)
	c.Register(target, p)
	assert.Equal(t, 1, c.Len())

	other := object.NewProxy(target, object.Traps{})
	assert.Same(t, p, c.Register(target, other), "first live stand-in wins")
	assert.False(t, c.IsKnown(other))
}

func TestCache_ConcurrentFirstRegister(t *testing.T) {
	c := New()
	target := object.NewRecord()

	const workers = 16
	results := make([]*object.Proxy, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Register(target, object.NewProxy(target, object.Traps{}))
		}()
	}
	wg.Wait()

	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestCache_ReclaimsUnreachablePairs(t *testing.T) {
	c := New()
	func() {
		target := object.NewRecord()
		c.Register(target, object.NewProxy(target, object.Traps{}))
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return c.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCache_KeepsPairWhileStandInReachable(t *testing.T) {
	c := New()
	target := object.NewRecord()
	p := object.NewProxy(target, object.Traps{})
	c.Register(target, p)

	runtime.GC()
	runtime.GC()

	got, ok := c.Lookup(target)
	require.True(t, ok)
	assert.Same(t, p, got)
	runtime.KeepAlive(p)
}
