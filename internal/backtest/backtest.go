// Package backtest replays quotes from the bus through an SMA crossover
// strategy and writes the equity curve and a summary.
package backtest

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/executor"
	"github.com/pri-23-03/Gptrader/internal/schema"
)

// Crossover windows.
const (
	FastWindow = 5
	SlowWindow = 20
)

// Source is the part of the bus a backtest reads from.
type Source interface {
	Subscribe(group, topic string, partitions ...int) iter.Seq2[bus.Envelope, error]
	Reset(group, topic string, partitions ...int) error
}

// Params selects what to replay.
type Params struct {
	RunID  string
	Symbol string
}

// Group is the consumer group a run reads with.
func (p Params) Group() string {
	return "backtest-" + p.RunID
}

// Point is one mark-to-market equity observation.
type Point struct {
	TS string
	Eq float64
}

// Summary is written to summary.json.
type Summary struct {
	RunID   string  `json:"run_id"`
	Symbol  string  `json:"symbol"`
	Orders  int     `json:"orders"`
	FinalEq float64 `json:"final_eq"`
	Bars    int     `json:"bars"`
}

// Report is the outcome of a run.
type Report struct {
	Summary Summary
	Curve   []Point
}

// Option configures Run.
type Option func(*runner)

type runner struct {
	exec   executor.Executor
	logger *slog.Logger
}

// WithExecutor sends an order through exec on every position change.
func WithExecutor(exec executor.Executor) Option {
	return func(r *runner) {
		r.exec = exec
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		r.logger = l
	}
}

// Run replays every quote of p.Symbol from the start of the log. The run's
// consumer group is reset first and never committed, so a run always sees
// the whole history.
//
// The position is long while SMA(5) > SMA(20) and flat otherwise. Equity is
// marked to market on every bar using the position decided on that bar.
func Run(ctx context.Context, src Source, p Params, opts ...Option) (Report, error) {
	r := runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(&r)
	}

	bars, err := loadBars(src, p)
	if err != nil {
		return Report{}, err
	}

	var (
		prices = make([]float64, 0, len(bars))
		pos    int
		eq     float64
		orders int
		curve  = make([]Point, 0, len(bars))
	)
	for i, bar := range bars {
		prices = append(prices, bar.Price)
		fast, okFast := sma(prices, FastWindow)
		slow, okSlow := sma(prices, SlowWindow)
		if okFast && okSlow {
			next := 0
			if fast > slow {
				next = 1
			}
			if next != pos {
				if err := r.place(ctx, p, bar, next); err != nil {
					return Report{}, err
				}
				pos = next
				orders++
			}
		}
		if i > 0 {
			eq += (prices[i] - prices[i-1]) * float64(pos)
		}
		curve = append(curve, Point{TS: bar.TS, Eq: eq})
	}

	r.logger.Info("backtest complete", "run", p.RunID, "symbol", p.Symbol, "bars", len(bars), "orders", orders)
	return Report{
		Summary: Summary{RunID: p.RunID, Symbol: p.Symbol, Orders: orders, FinalEq: eq, Bars: len(bars)},
		Curve:   curve,
	}, nil
}

func (r runner) place(ctx context.Context, p Params, bar schema.QuoteV1, next int) error {
	if r.exec == nil {
		return nil
	}
	side := schema.SideBuy
	if next == 0 {
		side = schema.SideSell
	}
	if _, err := r.exec.PlaceOrder(ctx, schema.NewMarketOrder(p.RunID, bar.TS, p.Symbol, side, 1)); err != nil {
		return fmt.Errorf("backtest: place order at %s: %w", bar.TS, err)
	}
	return nil
}

// loadBars reads the symbol's quotes in log order. A timestamp seen twice
// (the sample was ingested more than once) keeps its first position and its
// latest price.
func loadBars(src Source, p Params) ([]schema.QuoteV1, error) {
	group := p.Group()
	if err := src.Reset(group, schema.TopicQuotes); err != nil {
		return nil, fmt.Errorf("backtest: reset %s: %w", group, err)
	}

	var (
		bars []schema.QuoteV1
		seen = make(map[string]int)
	)
	for env, err := range src.Subscribe(group, schema.TopicQuotes) {
		if err != nil {
			return nil, fmt.Errorf("backtest: read quotes: %w", err)
		}
		var q schema.QuoteV1
		if err := env.Decode(&q); err != nil {
			return nil, fmt.Errorf("backtest: %w", err)
		}
		if q.Symbol != p.Symbol {
			continue
		}
		if i, ok := seen[q.TS]; ok {
			bars[i] = q
			continue
		}
		seen[q.TS] = len(bars)
		bars = append(bars, q)
	}
	return bars, nil
}

// sma is the mean of the last n values, or false when there are fewer.
func sma(vals []float64, n int) (float64, bool) {
	if len(vals) < n {
		return 0, false
	}
	var s float64
	for _, v := range vals[len(vals)-n:] {
		s += v
	}
	return s / float64(n), true
}
