package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"github.com/pri-23-03/Gptrader/internal/backend"
	"github.com/pri-23-03/Gptrader/internal/config"
)

// Version is the release of the binary. Overridden at link time.
var Version = "0.1.0"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Gops       bool

	stderr io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gptrader CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gptrader",
		Short: "GPTrader local data plane",
		Long: `Local data plane for GPTrader: a partitioned NDJSON event bus with
consumer groups, a hybrid keyword+vector news index, and a deterministic
SMA crossover backtest over the bus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.stderr = cmd.ErrOrStderr()
			if opts.Gops {
				if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
					opts.logger().Warn("gops agent not started", "err", err)
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Gops {
				agent.Close()
			}
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file; GPTRADER_* variables override it")
	cmd.PersistentFlags().BoolVar(&opts.Gops, "gops", false, "start a gops diagnostics agent")

	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewShowSchemasCommand(opts))
	cmd.AddCommand(NewDiagCommand(opts))
	cmd.AddCommand(NewIngestSampleCommand(opts))
	cmd.AddCommand(NewBuildIndexCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewRunBacktestCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewConsumeCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are reported on stderr, or on stdout as a JSON error response when
// --format json is in effect.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if format, _ := cmd.PersistentFlags().GetString("format"); format == "json" {
		out := &OutputFormatter{Format: format, Writer: stdout}
		out.Error(ErrorCode(err), err.Error())
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return GetExitCode(err)
}

func (o *RootOptions) logger() *slog.Logger {
	w := o.stderr
	if w == nil {
		w = io.Discard
	}
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, nil
}

// openBackends loads the configuration and builds every backend from it.
// The caller closes the result.
func (o *RootOptions) openBackends() (*backend.Backends, config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	b, err := backend.New(cfg, backend.WithLogger(o.logger()))
	if err != nil {
		return nil, cfg, WrapExitError(ExitCommandError, "open backends", err)
	}
	return b, cfg, nil
}
