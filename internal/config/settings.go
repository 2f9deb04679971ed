package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/dshills/mutwatch/internal/config/loader"
	"github.com/dshills/mutwatch/internal/logging"
	"github.com/dshills/mutwatch/internal/mutation"
	"github.com/dshills/mutwatch/internal/object"
)

// Report modes.
const (
	ReportLog    = "log"
	ReportJSON   = "json"
	ReportSilent = "silent"
)

// ReportModes lists the accepted report.mode values.
var ReportModes = []string{ReportLog, ReportJSON, ReportSilent}

// Settings is the resolved configuration of the mutwatch command.
type Settings struct {
	Log    LogSettings
	Watch  WatchSettings
	Report ReportSettings
	Script ScriptSettings
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level     string
	NoColor   bool
	Timestamp bool
}

// WatchSettings configures which values are wrapped and how file changes
// are debounced.
type WatchSettings struct {
	// IgnoreKinds names object kinds that are never wrapped.
	IgnoreKinds []string
	// IgnoreMarker, when set, excludes objects having this own property.
	IgnoreMarker string
	// Debounce is the quiet period before a changed script is re-run.
	Debounce time.Duration
}

// ReportSettings configures how mutation records are reported.
type ReportSettings struct {
	Mode string
}

// ScriptSettings configures script execution.
type ScriptSettings struct {
	// Timeout bounds a single script run. Zero means no limit.
	Timeout time.Duration
	// OperationLimit caps object operations per run. Zero means no limit.
	OperationLimit int64
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Log: LogSettings{
			Level:     "info",
			Timestamp: true,
		},
		Watch: WatchSettings{
			Debounce: 200 * time.Millisecond,
		},
		Report: ReportSettings{
			Mode: ReportLog,
		},
		Script: ScriptSettings{
			Timeout:        5 * time.Second,
			OperationLimit: 1_000_000,
		},
	}
}

// Load resolves settings from defaults, the TOML file at path (if any) and
// the process environment, then validates them. An empty path skips the
// file layer; a missing file is not an error.
func Load(fsys loader.FileSystem, path string) (Settings, error) {
	return LoadFrom(fsys, path, loader.NewEnvLoader(loader.EnvPrefix))
}

// LoadFrom is Load with an explicit environment source.
func LoadFrom(fsys loader.FileSystem, path string, env loader.Loader) (Settings, error) {
	var merged map[string]any

	if path != "" {
		fileData, err := loader.NewTOMLLoaderWithFS(fsys, path).Load()
		if err != nil {
			return Settings{}, errors.Wrap(err, "loading settings file")
		}
		merged = loader.DeepMerge(merged, fileData)
	}

	envData, err := env.Load()
	if err != nil {
		return Settings{}, errors.Wrap(err, "loading environment")
	}
	merged = loader.DeepMerge(merged, envData)

	s := Default()
	if err := s.Apply(merged); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Apply overlays the values of a nested settings map onto s. Unknown keys
// are ignored.
func (s *Settings) Apply(data map[string]any) error {
	fields := []struct {
		path  string
		apply func(v any) error
	}{
		{"log.level", stringField(&s.Log.Level)},
		{"log.no_color", boolField(&s.Log.NoColor)},
		{"log.timestamp", boolField(&s.Log.Timestamp)},
		{"watch.ignore_kinds", stringsField(&s.Watch.IgnoreKinds)},
		{"watch.ignore_marker", stringField(&s.Watch.IgnoreMarker)},
		{"watch.debounce", durationField(&s.Watch.Debounce)},
		{"report.mode", stringField(&s.Report.Mode)},
		{"script.timeout", durationField(&s.Script.Timeout)},
		{"script.operation_limit", intField(&s.Script.OperationLimit)},
	}

	for _, f := range fields {
		v, ok := loader.GetByPath(data, f.path)
		if !ok {
			continue
		}
		if err := f.apply(v); err != nil {
			return &FieldError{Path: f.path, Value: v, Err: err}
		}
	}
	return nil
}

// Validate checks every field.
func (s Settings) Validate() error {
	if _, ok := logging.ParseLevel(s.Log.Level); !ok {
		return &FieldError{Path: "log.level", Value: s.Log.Level, Err: ErrInvalidSettings}
	}
	if !lo.Contains(ReportModes, s.Report.Mode) {
		return &FieldError{
			Path:  "report.mode",
			Value: s.Report.Mode,
			Err:   errors.Wrapf(ErrInvalidSettings, "want one of %s", strings.Join(ReportModes, ", ")),
		}
	}
	for _, name := range s.Watch.IgnoreKinds {
		if _, ok := object.ParseKind(name); !ok {
			return &FieldError{Path: "watch.ignore_kinds", Value: name, Err: ErrInvalidSettings}
		}
	}
	if s.Watch.Debounce < 0 {
		return &FieldError{Path: "watch.debounce", Value: s.Watch.Debounce, Err: ErrInvalidSettings}
	}
	if s.Script.Timeout < 0 {
		return &FieldError{Path: "script.timeout", Value: s.Script.Timeout, Err: ErrInvalidSettings}
	}
	if s.Script.OperationLimit < 0 {
		return &FieldError{Path: "script.operation_limit", Value: s.Script.OperationLimit, Err: ErrInvalidSettings}
	}
	return nil
}

// IgnoreFunc builds the ignore predicate described by the watch settings.
// It returns nil, selecting the engine default, when nothing is ignored.
func (s Settings) IgnoreFunc() mutation.IgnoreFunc {
	kinds := lo.FilterMap(s.Watch.IgnoreKinds, func(name string, _ int) (object.Kind, bool) {
		return object.ParseKind(name)
	})
	marker := s.Watch.IgnoreMarker
	if len(kinds) == 0 && marker == "" {
		return nil
	}

	return func(v object.Value) bool {
		o, ok := object.AsObject(v)
		if !ok {
			return false
		}
		if lo.Contains(kinds, o.Kind()) {
			return true
		}
		if marker == "" {
			return false
		}
		_, has := o.GetOwnProperty(marker)
		return has
	}
}

// LoggerConfig returns the logging configuration for the runtime profile
// with these settings applied.
func (s Settings) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(s.Log.Level); ok {
		cfg.Level = lvl
	}
	cfg.NoColor = s.Log.NoColor
	cfg.Timestamp = s.Log.Timestamp
	return cfg
}

func stringField(dst *string) func(any) error {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return errors.Wrapf(ErrTypeMismatch, "want string, got %T", v)
		}
		*dst = s
		return nil
	}
}

func boolField(dst *bool) func(any) error {
	return func(v any) error {
		b, ok := v.(bool)
		if !ok {
			return errors.Wrapf(ErrTypeMismatch, "want bool, got %T", v)
		}
		*dst = b
		return nil
	}
}

// stringsField accepts a list of strings or a single string.
func stringsField(dst *[]string) func(any) error {
	return func(v any) error {
		switch list := v.(type) {
		case string:
			*dst = lo.Compact([]string{strings.TrimSpace(list)})
			return nil
		case []string:
			*dst = list
			return nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return errors.Wrapf(ErrTypeMismatch, "want string list item, got %T", item)
				}
				out = append(out, s)
			}
			*dst = out
			return nil
		default:
			return errors.Wrapf(ErrTypeMismatch, "want string list, got %T", v)
		}
	}
}

func intField(dst *int64) func(any) error {
	return func(v any) error {
		switch n := v.(type) {
		case int64:
			*dst = n
		case int:
			*dst = int64(n)
		default:
			return errors.Wrapf(ErrTypeMismatch, "want integer, got %T", v)
		}
		return nil
	}
}

// durationField accepts a time.Duration, a duration string, or an integer
// number of milliseconds.
func durationField(dst *time.Duration) func(any) error {
	return func(v any) error {
		switch d := v.(type) {
		case time.Duration:
			*dst = d
		case string:
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return errors.Wrap(ErrTypeMismatch, err.Error())
			}
			*dst = parsed
		case int64:
			*dst = time.Duration(d) * time.Millisecond
		default:
			return errors.Wrapf(ErrTypeMismatch, "want duration, got %T", v)
		}
		return nil
	}
}

// String returns a compact description for debug logging.
func (s Settings) String() string {
	return fmt.Sprintf("log=%s report=%s ignore_kinds=%v ignore_marker=%q debounce=%s timeout=%s operation_limit=%d",
		s.Log.Level, s.Report.Mode, s.Watch.IgnoreKinds, s.Watch.IgnoreMarker, s.Watch.Debounce, s.Script.Timeout, s.Script.OperationLimit)
}
