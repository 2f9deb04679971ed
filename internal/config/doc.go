// Package config holds the settings of the mutwatch command.
//
// Settings come from three layers, later layers overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML settings file (--config, usually mutwatch.toml)
//  3. MUTWATCH_* environment variables
//
// # Settings file
//
//	[log]
//	level = "warn"
//	no_color = false
//	timestamp = true
//
//	[watch]
//	ignore_kinds = ["callable"]   # never wrap these object kinds
//	ignore_marker = "__frozen"    # never wrap objects with this own key
//	debounce = "200ms"
//
//	[report]
//	mode = "log"                  # log | json | silent
//
//	[script]
//	timeout = "5s"
//	operation_limit = 1000000     # object operations per run, 0 = unlimited
//
// # Basic Usage
//
//	s, err := config.Load(loader.DefaultFS(), "mutwatch.toml")
//	if err != nil {
//	    return err
//	}
//	engine.Configure(mutation.Options{Ignore: s.IgnoreFunc()})
package config
