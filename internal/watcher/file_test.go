package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileWatcher(t *testing.T, opts ...Option) *FileWatcher {
	t.Helper()
	w, err := NewFileWatcher(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestFileWatcher_AddRemove(t *testing.T) {
	w := newFileWatcher(t)
	dir := t.TempDir()
	lua := writeTarget(t, dir, "edit.lua", "x = 1")
	doc := writeTarget(t, dir, "doc.json", "{}")

	require.NoError(t, w.Add(lua))
	require.NoError(t, w.Add(doc))
	require.NoError(t, w.Add(lua), "adding twice is a no-op")
	assert.Equal(t, []string{doc, lua}, w.Targets())
	assert.Equal(t, 2, w.Stats().Targets)
	assert.Equal(t, 1, w.dirs[dir], "targets share their directory watch")

	require.NoError(t, w.Remove(lua))
	assert.ErrorIs(t, w.Remove(lua), ErrUnknownTarget)
	assert.Equal(t, []string{doc}, w.Targets())
}

func TestFileWatcher_RejectsMissingAndDirectories(t *testing.T) {
	w := newFileWatcher(t)
	dir := t.TempDir()

	assert.ErrorIs(t, w.Add(filepath.Join(dir, "missing.lua")), os.ErrNotExist)
	assert.ErrorIs(t, w.Add(dir), ErrNotFile)
	assert.Empty(t, w.Targets())
}

func TestFileWatcher_ReportsOnlyTargets(t *testing.T) {
	w := newFileWatcher(t)
	dir := t.TempDir()
	lua := writeTarget(t, dir, "edit.lua", "x = 1")
	require.NoError(t, w.Add(lua))

	writeTarget(t, dir, "sibling.lua", "y = 1")
	writeTarget(t, dir, "edit.lua", "x = 2")

	ev := next(t, w.Events())
	assert.Equal(t, lua, ev.Path)
	assert.NotZero(t, ev.Change&(Created|Written))
	assert.True(t, ev.Present)
	assert.Equal(t, 1, ev.Count)
}

func TestFileWatcher_RenameOverTarget(t *testing.T) {
	w := newFileWatcher(t)
	dir := t.TempDir()
	doc := writeTarget(t, dir, "doc.json", `{"a":1}`)
	require.NoError(t, w.Add(doc))

	tmp := writeTarget(t, dir, "doc.json.tmp", `{"a":2}`)
	require.NoError(t, os.Rename(tmp, doc))

	ev := next(t, w.Events())
	assert.Equal(t, doc, ev.Path)
	assert.True(t, ev.Change&Created != 0)
}

func TestFileWatcher_Removal(t *testing.T) {
	w := newFileWatcher(t)
	dir := t.TempDir()
	lua := writeTarget(t, dir, "edit.lua", "x = 1")
	require.NoError(t, w.Add(lua))

	require.NoError(t, os.Remove(lua))

	ev := next(t, w.Events())
	assert.Equal(t, Removed, ev.Change)
	assert.False(t, ev.Present)
}

func TestFileWatcher_Close(t *testing.T) {
	w, err := NewFileWatcher()
	require.NoError(t, err)
	lua := writeTarget(t, t.TempDir(), "edit.lua", "x = 1")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Add(lua), ErrClosed)

	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestFileWatcher_Debounced(t *testing.T) {
	dir := t.TempDir()
	lua := writeTarget(t, dir, "edit.lua", "x = 1")

	d := NewDebouncer(newFileWatcher(t), 50*time.Millisecond)
	defer d.Close()
	require.NoError(t, d.Add(lua))

	for i := range 3 {
		writeTarget(t, dir, "edit.lua", string(rune('a'+i)))
	}

	ev := next(t, d.Events())
	assert.Equal(t, lua, ev.Path)
	assert.True(t, ev.Present)
	assertQuiet(t, d.Events(), 200*time.Millisecond)
	assert.Equal(t, 1, d.Stats().Targets)
	assert.Positive(t, d.Stats().Delivered)
}

func writeTarget(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
