package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/index"
	"github.com/pri-23-03/Gptrader/internal/schema"
)

// IndexGroup is the consumer group build-index reads news with.
const IndexGroup = "index-news"

// BuildIndexOptions holds flags for the build-index command.
type BuildIndexOptions struct {
	*RootOptions
	Rebuild bool
}

// BuildIndexResult is the output of the build-index command.
type BuildIndexResult struct {
	Added int    `json:"added"`
	Total int    `json:"total"`
	Dir   string `json:"dir"`
}

func (r BuildIndexResult) String() string {
	return fmt.Sprintf("News index built: %d added, %d total in %s.", r.Added, r.Total, r.Dir)
}

// NewBuildIndexCommand creates the build-index command.
func NewBuildIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildIndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Build the hybrid keyword+vector news index",
		Long: `Add the headlines published to news.v1 since the last build to the news
index, persist the index sidecars, then commit the consumed offsets.

Document IDs are <symbol>-<partition>-<offset>.

Exit codes:
  0 - Index written
  1 - No news on the bus and nothing indexed yet
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildIndex(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Rebuild, "rebuild", false, "discard the index and re-read all news")

	return cmd
}

func runBuildIndex(opts *BuildIndexOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	b, cfg, err := opts.openBackends()
	if err != nil {
		return err
	}
	defer b.Close()

	if opts.Rebuild {
		if err := b.Bus.Reset(IndexGroup, schema.TopicNews); err != nil {
			return err
		}
	} else if err := b.Index.Load(ctx); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	var (
		docs []index.Doc
		read []bus.Envelope
	)
	for env, err := range b.Bus.Subscribe(IndexGroup, schema.TopicNews) {
		if err != nil {
			return err
		}
		var n schema.NewsV1
		if err := env.Decode(&n); err != nil {
			return err
		}
		docs = append(docs, index.Doc{
			ID:   fmt.Sprintf("%s-%d-%d", n.Symbol, env.Partition, env.Offset),
			Text: n.Headline,
			Meta: map[string]any{"symbol": n.Symbol, "ts": n.TS},
		})
		read = append(read, env)
	}

	if len(docs) == 0 && b.Index.Len() == 0 {
		return NewExitError(ExitFailure, "No news found. Run ingest-sample first.")
	}

	b.Index.Upsert(docs)
	if err := b.Index.Persist(ctx); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	// Offsets move only once the documents are on disk.
	for _, env := range read {
		if err := b.Bus.Commit(IndexGroup, env); err != nil {
			return err
		}
	}

	return opts.output(cmd).Success(BuildIndexResult{Added: len(docs), Total: b.Index.Len(), Dir: cfg.IndexDir()})
}

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	K     int
	Alpha float64
}

// SearchResult is the output of the search command.
type SearchResult struct {
	Query string         `json:"query"`
	Hits  []index.Result `json:"hits"`
}

func (r SearchResult) String() string {
	if len(r.Hits) == 0 {
		return "No matches."
	}
	var b strings.Builder
	for i, h := range r.Hits {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%.4f  %-12s %s", h.Score, h.Doc.ID, h.Doc.Text)
	}
	return b.String()
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the news index",
		Long: `Rank indexed headlines by alpha*cosine + (1-alpha)*keyword overlap.

Examples:
  gptrader search apple guidance
  gptrader search -k 3 --alpha 0 microsoft`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVarP(&opts.K, "k", "k", index.DefaultK, "number of results")
	cmd.Flags().Float64Var(&opts.Alpha, "alpha", -1, "vector weight in [0,1] (default from config)")

	return cmd
}

func runSearch(opts *SearchOptions, cmd *cobra.Command, query string) error {
	b, cfg, err := opts.openBackends()
	if err != nil {
		return err
	}
	defer b.Close()

	alpha := opts.Alpha
	if alpha < 0 {
		alpha = cfg.Alpha
	}
	if alpha > 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--alpha must be within [0,1], got %v", alpha))
	}

	if err := b.Index.Load(cmd.Context()); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if b.Index.Len() == 0 {
		return NewExitError(ExitFailure, "News index is empty. Run build-index first.")
	}

	hits := b.Index.Search(query, opts.K, alpha)
	if hits == nil {
		hits = []index.Result{}
	}
	return opts.output(cmd).Success(SearchResult{Query: query, Hits: hits})
}
