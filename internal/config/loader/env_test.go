package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoaderFromMap(EnvPrefix, map[string]string{
		"MUTWATCH_LOG_LEVEL":      "debug",
		"MUTWATCH_REPORTER":       "json",
		"MUTWATCH_SCRIPT_TIMEOUT": "3s",
		"MUTWATCH_IGNORE_KINDS":   "callable, sequence",
		"OTHER_VAR":               "x",
	})

	out, err := l.Load()
	require.NoError(t, err)

	tests := []struct {
		path string
		want any
	}{
		{"log.level", "debug"},
		{"report.mode", "json"},
		{"script.timeout", 3 * time.Second},
		{"watch.ignore_kinds", []any{"callable", "sequence"}},
	}
	for _, tt := range tests {
		got, ok := GetByPath(out, tt.path)
		require.True(t, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, ok := GetByPath(out, "other.var")
	assert.False(t, ok)
}

func TestEnvLoader_LoadUnmapped(t *testing.T) {
	l := NewEnvLoaderFromMap(EnvPrefix, map[string]string{
		"MUTWATCH_SCRIPT_MAX_DEPTH": "12",
	})

	out, err := l.Load()
	require.NoError(t, err)

	v, ok := GetByPath(out, "script.max_depth")
	require.True(t, ok)
	assert.Equal(t, int64(12), v)
}

func TestEnvLoader_AddMapping(t *testing.T) {
	l := NewEnvLoaderFromMap(EnvPrefix, map[string]string{"MUTWATCH_QUIET": "yes"})
	l.AddMapping("MUTWATCH_QUIET", "report.quiet")

	out, err := l.Load()
	require.NoError(t, err)

	v, ok := GetByPath(out, "report.quiet")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestEnvLoader_ProcessEnvironment(t *testing.T) {
	t.Setenv("MUTWATCH_LOG_LEVEL", "warn")

	out, err := NewEnvLoader(EnvPrefix).Load()
	require.NoError(t, err)

	v, _ := GetByPath(out, "log.level")
	assert.Equal(t, "warn", v)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"off", false},
		{"1", true},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"250ms", 250 * time.Millisecond},
		{"a,b", []any{"a", "b"}},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), tt.in)
	}
}

func TestGetByPath(t *testing.T) {
	data := map[string]any{}
	setByPath(data, "a.b.c", 1)

	v, ok := GetByPath(data, "a.b.c")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = GetByPath(data, "a.x.c")
	assert.False(t, ok)
	_, ok = GetByPath(data, "a.b.c.d")
	assert.False(t, ok)
}
