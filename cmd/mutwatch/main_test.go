package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/mutwatch/internal/config"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mutwatch dev")
}

func TestRun_JSONReporter(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json", `{"name":"a","tags":["x"]}`)
	lua := writeFile(t, dir, "edit.lua", `
doc.name = "b"
push(doc.tags, "y")
remove(doc, "missing")
`)

	stdout, _, err := execute(t, "run", "--doc", doc, "--script", lua, "--reporter", "json", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "set", gjson.Get(lines[0], "kind").String())
	assert.Equal(t, "name", gjson.Get(lines[0], "property").String())
	assert.Equal(t, "b", gjson.Get(lines[0], "value").String())
	assert.Equal(t, "1", gjson.Get(lines[1], "property").String())
	assert.NotEmpty(t, gjson.Get(lines[0], "session").String())
	assert.Equal(t, gjson.Get(lines[0], "session").String(), gjson.Get(lines[1], "session").String())
}

func TestRun_LogReporterAndOut(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.yaml", "count: 1\n")
	lua := writeFile(t, dir, "edit.lua", `doc.count = doc.count + 1`)
	out := filepath.Join(dir, "out.json")

	stdout, stderr, err := execute(t, "run", "-d", doc, "-s", lua, "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "mutation detected")
	assert.Contains(t, stderr, "run complete")

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2}`, string(written))
}

func TestRun_Silent(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json", `{"a":1}`)
	lua := writeFile(t, dir, "edit.lua", `doc.a = 2`)

	stdout, stderr, err := execute(t, "run", "--doc", doc, "--script", lua, "--reporter", "silent")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.NotContains(t, stderr, "mutation detected")
}

func TestRun_FailOnMutation(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json", `{"a":1}`)
	clean := writeFile(t, dir, "clean.lua", `doc.a = 1`)
	dirty := writeFile(t, dir, "dirty.lua", `doc.a = 2`)

	_, _, err := execute(t, "run", "--doc", doc, "--script", clean, "--fail-on-mutation", "--reporter", "silent")
	assert.NoError(t, err)

	_, _, err = execute(t, "run", "--doc", doc, "--script", dirty, "--fail-on-mutation", "--reporter", "silent")
	assert.ErrorIs(t, err, errMutationsFound)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "mutwatch.toml", `
[report]
mode = "json"

[watch]
ignore_marker = "frozen"
`)
	doc := writeFile(t, dir, "doc.json", `{"a":{"frozen":true,"v":1},"b":{"v":1}}`)
	lua := writeFile(t, dir, "edit.lua", `
doc.a.v = 2
doc.b.v = 2
`)

	stdout, _, err := execute(t, "run", "--config", cfg, "--doc", doc, "--script", lua, "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1, "the marked object is not watched")
	assert.Equal(t, "v", gjson.Get(lines[0], "property").String())
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json", `{}`)
	bad := writeFile(t, dir, "bad.lua", `error("nope")`)

	_, _, err := execute(t, "run", "--doc", doc)
	assert.Error(t, err, "script is required")

	_, _, err = execute(t, "run", "--doc", filepath.Join(dir, "missing.json"), "--script", bad)
	assert.Error(t, err)

	_, _, err = execute(t, "run", "--doc", doc, "--script", bad, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, _, err = execute(t, "run", "--doc", doc, "--script", bad, "--reporter", "xml")
	assert.Error(t, err)

	_, _, err = execute(t, "version", "--log-level", "loud")
	assert.Error(t, err)
}

// lockedBuffer is a bytes.Buffer safe for a writer and a reader on different
// goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), s)
}

func TestWatch_RerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json", `{"a":1}`)
	lua := writeFile(t, dir, "edit.lua", `doc.a = 2`)

	var stdout, stderr lockedBuffer
	settings := config.Default()
	settings.Watch.Debounce = 100 * time.Millisecond
	a := &app{
		stdout:   &stdout,
		stderr:   &stderr,
		settings: settings,
		logger:   zerolog.New(&stderr),
		session:  "test",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.watch(ctx, runOptions{docPath: doc, scriptPath: lua})
	}()

	require.Eventually(t, func() bool {
		return stderr.count("watching for changes") == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, stderr.count("run complete"))

	writeFile(t, dir, "edit.lua", `doc.a = 3`)
	require.Eventually(t, func() bool {
		return stderr.count("run complete") == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, 2, stderr.count("run complete"))
	assert.Equal(t, 1, stderr.count("change detected"))
}

func TestWatch_MissingTarget(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json", `{}`)

	_, _, err := execute(t, "watch", "--doc", doc, "--script", filepath.Join(dir, "missing.lua"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
