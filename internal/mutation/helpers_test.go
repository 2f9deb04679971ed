package mutation

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mutwatch/internal/object"
)

// recorder collects delivered records.
type recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *recorder) handle(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *recorder) all() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	base := []Option{WithLogger(zerolog.Nop()), WithHandler(rec.handle)}
	return New(append(base, opts...)...), rec
}

func parse(t *testing.T, src string) object.Object {
	t.Helper()
	v, err := object.ParseJSON([]byte(src))
	require.NoError(t, err)
	o, ok := object.AsObject(v)
	require.True(t, ok)
	return o
}

func wrapObject(t *testing.T, e *Engine, o object.Object) object.Object {
	t.Helper()
	w, ok := e.Wrap(o).(object.Object)
	require.True(t, ok)
	return w
}
