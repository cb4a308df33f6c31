package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pri-23-03/Gptrader/internal/ingest"
)

// IngestOptions holds flags for the ingest-sample command.
type IngestOptions struct {
	*RootOptions
	Seed    uint64
	Bars    int
	Symbols []string
}

// IngestResult is the output of the ingest-sample command.
type IngestResult struct {
	ingest.Result
	Start string `json:"start"`
}

func (r IngestResult) String() string {
	return fmt.Sprintf("Sample ingestion complete: %d quotes, %d news (first bar %s).", r.Quotes, r.News, r.Start)
}

// NewIngestSampleCommand creates the ingest-sample command.
func NewIngestSampleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest-sample",
		Short: "Publish deterministic sample quotes and news",
		Long: `Publish synthetic quotes (one per bar per symbol) to quotes.v1 and five
canned headlines per symbol to news.v1. The bars end at the current minute.

Ingestion appends: running it twice leaves both copies on the bus.
Backtests keep one bar per timestamp.

Examples:
  gptrader ingest-sample
  gptrader ingest-sample --seed 7 --bars 500 --symbols AAPL,MSFT,NVDA`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, cmd, time.Now())
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 42, "deterministic seed")
	cmd.Flags().IntVar(&opts.Bars, "bars", 200, "number of bars to synthesize")
	cmd.Flags().StringSliceVar(&opts.Symbols, "symbols", []string{"AAPL", "MSFT"}, "symbols to synthesize")

	return cmd
}

func runIngest(opts *IngestOptions, cmd *cobra.Command, now time.Time) error {
	if opts.Bars < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--bars must be >= 0, got %d", opts.Bars))
	}
	b, _, err := opts.openBackends()
	if err != nil {
		return err
	}
	defer b.Close()

	sample := ingest.Sample{
		Seed:    opts.Seed,
		Bars:    opts.Bars,
		Symbols: opts.Symbols,
		Start:   now.UTC().Truncate(time.Minute).Add(-time.Duration(opts.Bars) * time.Minute),
	}
	res, err := ingest.Run(b.Bus, sample)
	if err != nil {
		return err
	}
	opts.logger().Debug("ingested", "quotes", res.Quotes, "news", res.News, "seed", opts.Seed)

	return opts.output(cmd).Success(IngestResult{Result: res, Start: sample.Start.Format(time.RFC3339)})
}
