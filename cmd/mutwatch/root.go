package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/mutwatch/internal/config"
	"github.com/dshills/mutwatch/internal/config/loader"
	"github.com/dshills/mutwatch/internal/logging"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	settings config.Settings
	logger   zerolog.Logger
	session  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "mutwatch",
		Short: "Report structural mutations a script makes to a document",
		Long: `mutwatch loads a JSON, YAML or TOML document, hands it to a Lua script
through a watching stand-in, and reports every property assignment,
definition, deletion and prototype change the script performs.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a TOML settings file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newVersionCmd(a))
	return root
}

// setup resolves settings and builds the session logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(loader.DefaultFS(), a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if _, ok := logging.ParseLevel(a.logLevel); !ok {
			return fmt.Errorf("invalid log level %q", a.logLevel)
		}
		settings.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("reporter") {
		settings.Report.Mode, _ = cmd.Flags().GetString("reporter")
		if err := settings.Validate(); err != nil {
			return err
		}
	}

	a.settings = settings
	a.session = uuid.NewString()

	logCfg := settings.LoggerConfig()
	logCfg.Output = a.stderr
	a.logger = logging.New(logCfg).With().Str("session", a.session).Logger()
	a.logger.Debug().Stringer("settings", settings).Msg("settings resolved")
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.stdout, "mutwatch %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Built: %s\n", date)
			return nil
		},
	}
}
