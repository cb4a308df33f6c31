// Package ingest synthesizes deterministic sample quotes and headlines and
// publishes them to the bus.
package ingest

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/schema"
)

// Headlines are the canned news items, published once per symbol each.
var Headlines = []string{
	"Apple raises guidance after strong demand",
	"Microsoft beats earnings expectations",
	"Apple product surge delights consumers",
	"Microsoft faces downgrade concerns",
	"Neutral industry outlook persists",
}

// Sample describes a synthetic data set. The same Sample always produces the
// same events.
type Sample struct {
	Seed    uint64
	Bars    int
	Symbols []string
	// Start is the timestamp of the first bar; bars are one minute apart.
	Start time.Time
}

// DefaultSample is 200 bars of AAPL and MSFT ending at now.
func DefaultSample(now time.Time) Sample {
	return Sample{
		Seed:    42,
		Bars:    200,
		Symbols: []string{"AAPL", "MSFT"},
		Start:   now.UTC().Truncate(time.Minute).Add(-200 * time.Minute),
	}
}

// Publisher is the part of the bus ingest writes to.
type Publisher interface {
	PublishBatch(topic, key string, payloads []any) ([]bus.Envelope, error)
}

// Result counts what was published.
type Result struct {
	Quotes int `json:"quotes"`
	News   int `json:"news"`
}

func (s Sample) ts(i int) string {
	return s.Start.Add(time.Duration(i) * time.Minute).UTC().Format(time.RFC3339)
}

// Quotes returns the quotes of s, bar by bar and symbol by symbol within a
// bar. Each price is a drift of 0.01 per bar plus uniform noise in
// [-0.2, 0.2), rounded to cents.
func Quotes(s Sample) []schema.QuoteV1 {
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	out := make([]schema.QuoteV1, 0, s.Bars*len(s.Symbols))
	for i := 0; i < s.Bars; i++ {
		ts := s.ts(i)
		for _, sym := range s.Symbols {
			price := math.Round((100+0.01*float64(i)+rng.Float64()*0.4-0.2)*100) / 100
			vol := int64(1000 + 100*rng.Float64())
			out = append(out, schema.NewQuote(sym, ts, price, vol))
		}
	}
	return out
}

// News returns one headline per symbol for each of Headlines.
func News(s Sample) []schema.NewsV1 {
	out := make([]schema.NewsV1, 0, len(Headlines)*len(s.Symbols))
	for i, h := range Headlines {
		for _, sym := range s.Symbols {
			out = append(out, schema.NewNews(sym, s.ts(i), h))
		}
	}
	return out
}

// Run publishes the quotes and news of s. Events are batched per symbol, so
// each symbol's events keep their order within its partition. Publishing
// appends; running twice leaves two copies in the journal.
func Run(p Publisher, s Sample) (Result, error) {
	if s.Bars < 0 {
		return Result{}, fmt.Errorf("ingest: bars must be >= 0, got %d", s.Bars)
	}
	var res Result

	bySymbol := make(map[string][]any, len(s.Symbols))
	for _, q := range Quotes(s) {
		bySymbol[q.Key()] = append(bySymbol[q.Key()], q)
	}
	n, err := publishGrouped(p, schema.TopicQuotes, s.Symbols, bySymbol)
	if err != nil {
		return res, err
	}
	res.Quotes = n

	clear(bySymbol)
	for _, item := range News(s) {
		bySymbol[item.Key()] = append(bySymbol[item.Key()], item)
	}
	n, err = publishGrouped(p, schema.TopicNews, s.Symbols, bySymbol)
	if err != nil {
		return res, err
	}
	res.News = n
	return res, nil
}

func publishGrouped(p Publisher, topic string, symbols []string, bySymbol map[string][]any) (int, error) {
	var total int
	for _, sym := range symbols {
		batch := bySymbol[sym]
		if len(batch) == 0 {
			continue
		}
		envs, err := p.PublishBatch(topic, sym, batch)
		if err != nil {
			return total, fmt.Errorf("ingest %s %s: %w", topic, sym, err)
		}
		total += len(envs)
		delete(bySymbol, sym)
	}
	return total, nil
}
