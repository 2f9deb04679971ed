package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dshills/mutwatch/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "watch --doc FILE --script FILE",
		Short: "Re-run a script whenever it or the document changes",
		Long: `watch runs the script once, then again each time the script or the
document file changes. Every run starts from the document as it is on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context(), opts)
		},
	}
	opts.register(cmd)
	return cmd
}

// watch runs until ctx ends. Failed runs are logged and do not stop it.
func (a *app) watch(ctx context.Context, opts runOptions) error {
	files, err := watcher.NewFileWatcher(watcher.WithLogger(a.logger))
	if err != nil {
		return err
	}
	w := watcher.NewDebouncer(files, a.settings.Watch.Debounce)
	defer w.Close()

	for _, path := range []string{opts.scriptPath, opts.docPath} {
		if err := w.Add(path); err != nil {
			return err
		}
	}

	rerun := func() {
		if _, err := a.execute(ctx, opts); err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("run failed")
		}
	}
	rerun()

	a.logger.Info().Strs("paths", w.Targets()).Msg("watching for changes")
	watcher.Run(ctx, w,
		func(ev watcher.Event) {
			logger := a.logger.With().Str("path", ev.Path).Stringer("change", ev.Change).Int("events", ev.Count).Logger()
			if !ev.Present {
				logger.Warn().Msg("watched file is gone, waiting for it to return")
				return
			}
			logger.Info().Msg("change detected")
			rerun()
		},
		func(err error) {
			a.logger.Warn().Err(err).Msg("watch error")
		},
	)

	stats := w.Stats()
	a.logger.Debug().
		Int64("delivered", stats.Delivered).
		Int64("coalesced", stats.Coalesced).
		Int64("dropped", stats.Dropped).
		Int64("errors", stats.Errors).
		Msg("watch stopped")
	return nil
}
