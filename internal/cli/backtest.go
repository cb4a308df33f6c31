package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pri-23-03/Gptrader/internal/backtest"
)

// BacktestOptions holds flags for the run-backtest command.
type BacktestOptions struct {
	*RootOptions
	RunID  string
	Symbol string
}

// BacktestResult is the output of the run-backtest command.
type BacktestResult struct {
	backtest.Summary
	Dir string `json:"dir"`
}

func (r BacktestResult) String() string {
	return fmt.Sprintf("Artifacts written to %s (%d bars, %d orders, final equity %v).",
		r.Dir, r.Bars, r.Orders, r.FinalEq)
}

// NewRunBacktestCommand creates the run-backtest command.
func NewRunBacktestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BacktestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run-backtest",
		Short: "Run the SMA5/20 crossover backtest and write artifacts",
		Long: `Replay every quote of one symbol from the bus through an SMA(5)/SMA(20)
crossover, sending orders to the configured executor, and write pnl.csv and
summary.json under artifacts/run-<run-id>.

Exit codes:
  0 - Artifacts written
  1 - No quotes for the symbol
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "demo", "run identifier")
	cmd.Flags().StringVar(&opts.Symbol, "symbol", "AAPL", "symbol to trade")

	return cmd
}

func runBacktest(opts *BacktestOptions, cmd *cobra.Command) error {
	if opts.RunID == "" {
		return NewExitError(ExitCommandError, "--run-id must not be empty")
	}
	b, cfg, err := opts.openBackends()
	if err != nil {
		return err
	}
	defer b.Close()

	rep, err := backtest.Run(cmd.Context(), b.Bus, backtest.Params{RunID: opts.RunID, Symbol: opts.Symbol},
		backtest.WithExecutor(b.Executor), backtest.WithLogger(opts.logger()))
	if err != nil {
		return err
	}
	if rep.Summary.Bars == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("No quotes found for %s. Run ingest-sample first.", opts.Symbol))
	}

	dir := cfg.ArtifactsDir(opts.RunID)
	if err := backtest.WriteArtifacts(dir, rep); err != nil {
		return err
	}
	return opts.output(cmd).Success(BacktestResult{Summary: rep.Summary, Dir: dir})
}
