package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/dshills/mutwatch/internal/config"
	"github.com/dshills/mutwatch/internal/document"
	"github.com/dshills/mutwatch/internal/mutation"
	"github.com/dshills/mutwatch/internal/notify"
	"github.com/dshills/mutwatch/internal/script"
)

// errMutationsFound is returned when --fail-on-mutation is set and the
// script mutated the document.
var errMutationsFound = errors.New("mutations found")

// runOptions are the flags shared by run and watch.
type runOptions struct {
	docPath        string
	scriptPath     string
	outPath        string
	reporter       string
	failOnMutation bool
}

func (o *runOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.docPath, "doc", "d", "", "Document to watch (.json, .yaml, .yml or .toml)")
	flags.StringVarP(&o.scriptPath, "script", "s", "", "Lua script to run against the document")
	flags.StringVarP(&o.outPath, "out", "o", "", "Write the resulting document to this file")
	flags.StringVar(&o.reporter, "reporter", config.ReportLog, "How mutations are reported: log, json or silent")
	_ = cmd.MarkFlagRequired("doc")
	_ = cmd.MarkFlagRequired("script")
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run --doc FILE --script FILE",
		Short: "Run a script once and report its mutations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.execute(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if opts.failOnMutation && result.mutations > 0 {
				return errMutationsFound
			}
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.failOnMutation, "fail-on-mutation", false, "Exit with status 2 when any mutation is reported")
	return cmd
}

// runResult summarizes one execution.
type runResult struct {
	mutations int64
	elapsed   time.Duration
}

// execute loads the document, runs the script against its stand-in and
// reports every mutation through a notifier.
func (a *app) execute(ctx context.Context, opts runOptions) (runResult, error) {
	start := time.Now()
	logger := a.logger.With().Str("doc", opts.docPath).Str("script", opts.scriptPath).Logger()

	doc, format, err := document.Load(opts.docPath)
	if err != nil {
		return runResult{}, err
	}
	logger.Debug().Stringer("format", format).Msg("document loaded")

	notifier := notify.New()
	defer notifier.Close()

	var count atomic.Int64
	notifier.Subscribe(func(mutation.Record) { count.Add(1) })
	a.subscribeReporter(notifier, logger)

	engine := mutation.New(
		mutation.WithLogger(logger),
		mutation.WithHandler(notifier.Handler()),
		mutation.WithIgnore(a.settings.IgnoreFunc()),
	)

	runner := script.NewRunner(engine,
		script.WithLogger(logger),
		script.WithExecutionTimeout(a.settings.Script.Timeout),
		script.WithOperationLimit(a.settings.Script.OperationLimit),
	)
	defer runner.Close()

	if _, err := runner.Bind(ctx, "doc", doc); err != nil {
		return runResult{}, err
	}
	if err := runner.RunFile(ctx, opts.scriptPath); err != nil {
		return runResult{}, err
	}

	if opts.outPath != "" {
		if err := document.WriteFile(opts.outPath, doc); err != nil {
			return runResult{}, err
		}
		logger.Debug().Str("out", opts.outPath).Msg("document written")
	}

	result := runResult{mutations: count.Load(), elapsed: time.Since(start)}
	logger.Info().
		Int64("mutations", result.mutations).
		Dur("elapsed", result.elapsed).
		Msg("run complete")
	return result, nil
}

// subscribeReporter installs the observer matching the report mode.
func (a *app) subscribeReporter(n *notify.Notifier, logger zerolog.Logger) {
	switch a.settings.Report.Mode {
	case config.ReportJSON:
		w := &jsonLines{out: a.stdout, session: a.session, logger: logger}
		n.Subscribe(w.write)
	case config.ReportSilent:
	default:
		n.Subscribe(mutation.NewReporter(logger).Report)
	}
}

// jsonLines writes one JSON object per record.
type jsonLines struct {
	mu      sync.Mutex
	out     io.Writer
	session string
	logger  zerolog.Logger
}

func (j *jsonLines) write(r mutation.Record) {
	data, err := r.MarshalJSON()
	if err == nil {
		data, err = sjson.SetBytes(data, "session", j.session)
	}
	if err != nil {
		j.logger.Error().Err(err).Str("record", r.String()).Msg("encoding mutation")
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintf(j.out, "%s\n", data)
}
