package notify

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mutwatch/internal/mutation"
	"github.com/dshills/mutwatch/internal/object"
)

func setRecord(property string) mutation.Record {
	return mutation.Record{Kind: mutation.KindSet, Target: object.NewRecord(), Property: property, Value: 1}
}

func TestNew_WithAsync(t *testing.T) {
	n := New(WithAsync(100))
	defer n.Close()
	assert.True(t, n.async)

	direct := New(WithAsync(0))
	defer direct.Close()
	assert.False(t, direct.async)
}

func TestNotifier_Subscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var received atomic.Int32
	sub := n.Subscribe(func(mutation.Record) {
		received.Add(1)
	})

	n.Notify(setRecord("a"))
	assert.Equal(t, int32(1), received.Load())

	sub.Unsubscribe()
	sub.Unsubscribe()
	n.Notify(setRecord("b"))
	assert.Equal(t, int32(1), received.Load(), "unsubscribed observer received a record")
}

func TestNotifier_SubscribeProperty(t *testing.T) {
	n := New()
	defer n.Close()

	var a, proto atomic.Int32
	n.SubscribeProperty("a", func(mutation.Record) { a.Add(1) })
	n.SubscribeProperty(mutation.PrototypeProperty, func(mutation.Record) { proto.Add(1) })

	n.Notify(setRecord("a"))
	n.Notify(setRecord("ab"))
	n.Notify(mutation.Record{Kind: mutation.KindSetPrototype, Target: object.NewRecord(), Property: mutation.PrototypeProperty})

	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), proto.Load())
}

func TestNotifier_SubscribeKind(t *testing.T) {
	n := New()
	defer n.Close()

	var got []mutation.Kind
	n.SubscribeKind(func(r mutation.Record) {
		got = append(got, r.Kind)
	}, mutation.KindDeleteProperty, mutation.KindSetPrototype)

	n.Notify(setRecord("a"))
	n.Notify(mutation.Record{Kind: mutation.KindDeleteProperty, Property: "a"})
	n.Notify(mutation.Record{Kind: mutation.KindDefineProperty, Property: "a"})
	n.Notify(mutation.Record{Kind: mutation.KindSetPrototype, Property: mutation.PrototypeProperty})

	assert.Equal(t, []mutation.Kind{mutation.KindDeleteProperty, mutation.KindSetPrototype}, got)
}

func TestNotifier_SubscribeTarget(t *testing.T) {
	engine := mutation.New(mutation.WithLogger(zerolog.Nop()))
	n := New()
	defer n.Close()
	engine.Configure(mutation.Options{Handler: n.Handler()})

	watched := object.NewRecord()
	other := object.NewRecord()
	standIn := engine.Wrap(watched).(object.Object)

	var hits atomic.Int32
	n.SubscribeTarget(standIn, func(r mutation.Record) {
		hits.Add(1)
		assert.Same(t, watched, r.Target)
	})

	object.Set(standIn, "x", 1)
	object.Set(engine.Wrap(other).(object.Object), "x", 1)

	assert.Equal(t, int32(1), hits.Load())
}

func TestNotifier_DeliveryOrder(t *testing.T) {
	n := New()
	defer n.Close()

	var order []int
	n.Subscribe(func(mutation.Record) { order = append(order, 0) })
	n.SubscribeProperty("a", func(mutation.Record) { order = append(order, 1) })
	n.SubscribeKind(func(mutation.Record) { order = append(order, 2) }, mutation.KindSet)
	n.Subscribe(func(mutation.Record) { order = append(order, 3) })

	n.Notify(setRecord("a"))
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestNotifier_Async(t *testing.T) {
	n := New(WithAsync(16))

	var mu sync.Mutex
	var got []object.Key
	n.Subscribe(func(r mutation.Record) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r.Property)
	})

	for _, p := range []string{"a", "b", "c"} {
		n.Notify(setRecord(p))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)

	n.Close()
	n.Close()
	assert.Equal(t, []object.Key{"a", "b", "c"}, got)
}

func TestNotifier_AsyncCloseKeepsAcceptedRecords(t *testing.T) {
	for range 20 {
		n := New(WithAsync(1))
		var delivered atomic.Int64
		n.Subscribe(func(mutation.Record) { delivered.Add(1) })

		var accepted atomic.Int64
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if n.enqueue(setRecord(string(rune('a' + i)))) {
					accepted.Add(1)
				}
			}()
		}
		n.Close()
		wg.Wait()

		assert.Equal(t, accepted.Load(), delivered.Load())
	}
}

func TestNotifier_NotifyAfterClose(t *testing.T) {
	n := New()
	var received atomic.Bool
	n.Subscribe(func(mutation.Record) { received.Store(true) })

	n.Close()
	n.Notify(setRecord("a"))
	assert.False(t, received.Load())
}

func TestNotifier_HandlerWithEngine(t *testing.T) {
	engine := mutation.New(mutation.WithLogger(zerolog.Nop()))
	n := New()
	defer n.Close()
	engine.Configure(mutation.Options{Handler: n.Handler()})

	var records []mutation.Record
	n.Subscribe(func(r mutation.Record) { records = append(records, r) })

	doc, err := object.ParseJSON([]byte(`{"a":1,"b":{"c":2}}`))
	require.NoError(t, err)
	s := engine.Wrap(doc).(object.Object)

	object.Set(s, "a", 2)
	b, _ := object.Get(s, "b")
	object.DeleteProperty(b.(object.Object), "c")

	require.Len(t, records, 2)
	assert.Equal(t, mutation.KindSet, records[0].Kind)
	assert.Equal(t, mutation.KindDeleteProperty, records[1].Kind)
}

func TestBatch(t *testing.T) {
	n := New()
	defer n.Close()

	var received atomic.Int32
	n.Subscribe(func(mutation.Record) { received.Add(1) })

	b := n.NewBatch()
	b.Add(setRecord("a"))
	b.Handler()(setRecord("b"))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, int32(0), received.Load())

	b.Commit()
	assert.Equal(t, int32(2), received.Load())
	assert.Equal(t, 0, b.Len())

	b.Add(setRecord("c"))
	b.Discard()
	b.Commit()
	assert.Equal(t, int32(2), received.Load())
}
