package mutwatch_test

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mutwatch"
)

func TestFacade(t *testing.T) {
	var mu sync.Mutex
	var records []mutwatch.Record
	mutwatch.Configure(mutwatch.Options{
		Handler: func(r mutwatch.Record) {
			mu.Lock()
			defer mu.Unlock()
			records = append(records, r)
		},
	})
	t.Cleanup(func() { mutwatch.Configure(mutwatch.Options{}) })

	doc, err := mutwatch.ParseJSON([]byte(`{"limits":{"max":3}}`))
	require.NoError(t, err)

	view, ok := mutwatch.Wrap(doc).(mutwatch.Object)
	require.True(t, ok)
	assert.True(t, mutwatch.IsStandIn(view))
	assert.Same(t, view, mutwatch.Wrap(doc))
	assert.Same(t, view, mutwatch.Wrap(view))

	limits, err := mutwatch.Get(view, "limits")
	require.NoError(t, err)
	assert.True(t, mutwatch.IsStandIn(limits))

	ok, err = mutwatch.Set(limits.(mutwatch.Object), "max", 4)
	require.NoError(t, err)
	assert.True(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, records, 1)
	assert.Equal(t, mutwatch.KindSet, records[0].Kind)
	assert.Equal(t, "max", records[0].Property)

	out, err := mutwatch.MarshalJSON(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"limits":{"max":4}}`, string(out))
}

func TestFacade_Engine(t *testing.T) {
	var got []mutwatch.Kind
	engine := mutwatch.NewEngine(
		mutwatch.WithLogger(zerolog.Nop()),
		mutwatch.WithHandler(func(r mutwatch.Record) { got = append(got, r.Kind) }),
	)

	rec := mutwatch.FromGo(map[string]any{"a": 1})
	view := engine.Wrap(rec).(mutwatch.Object)

	mutwatch.DeleteProperty(view, "a")
	mutwatch.SetPrototype(view, mutwatch.NewRecord())

	assert.Equal(t, []mutwatch.Kind{mutwatch.KindDeleteProperty, mutwatch.KindSetPrototype}, got)
	assert.False(t, mutwatch.IsStandIn(view), "engines do not share stand-ins")
}
