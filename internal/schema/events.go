package schema

// Topics of the versioned event streams.
const (
	TopicQuotes = "quotes.v1"
	TopicNews   = "news.v1"
	TopicOrders = "orders.v1"
	TopicFills  = "fills.v1"
)

// DefaultKey is the partition key of an event that names neither a
// partition key nor a symbol.
const DefaultKey = "default"

// Event is a payload that knows its topic and partition key.
type Event interface {
	EventTopic() string
	Key() string
}

// QuoteV1 is one price observation.
type QuoteV1 struct {
	V            int     `json:"v"`
	Topic        string  `json:"topic"`
	Symbol       string  `json:"symbol"`
	TS           string  `json:"ts"`
	Price        float64 `json:"price"`
	Volume       int64   `json:"volume"`
	Source       string  `json:"source"`
	PartitionKey string  `json:"partition_key"`
}

// NewQuote fills in the version, topic and defaults. The symbol is the
// partition key.
func NewQuote(symbol, ts string, price float64, volume int64) QuoteV1 {
	return QuoteV1{
		V:            1,
		Topic:        TopicQuotes,
		Symbol:       symbol,
		TS:           ts,
		Price:        price,
		Volume:       volume,
		Source:       "synthetic",
		PartitionKey: symbol,
	}
}

func (q QuoteV1) EventTopic() string { return TopicQuotes }
func (q QuoteV1) Key() string        { return keyOf(q.PartitionKey, q.Symbol) }

// NewsV1 is one headline about a symbol.
type NewsV1 struct {
	V             int     `json:"v"`
	Topic         string  `json:"topic"`
	Symbol        string  `json:"symbol"`
	TS            string  `json:"ts"`
	Headline      string  `json:"headline"`
	URL           *string `json:"url"`
	SentimentHint *string `json:"sentiment_hint"`
	PartitionKey  string  `json:"partition_key"`
}

// NewNews fills in the version and topic. The symbol is the partition key.
func NewNews(symbol, ts, headline string) NewsV1 {
	return NewsV1{
		V:            1,
		Topic:        TopicNews,
		Symbol:       symbol,
		TS:           ts,
		Headline:     headline,
		PartitionKey: symbol,
	}
}

func (n NewsV1) EventTopic() string { return TopicNews }
func (n NewsV1) Key() string        { return keyOf(n.PartitionKey, n.Symbol) }

// OrderV1 is an order intent produced by a strategy run.
type OrderV1 struct {
	V          int      `json:"v"`
	Topic      string   `json:"topic"`
	RunID      string   `json:"run_id"`
	TS         string   `json:"ts"`
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Qty        float64  `json:"qty"`
	Type       string   `json:"type"`
	LimitPrice *float64 `json:"limit_price"`
	DryRun     bool     `json:"dry_run"`
}

// Order sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// NewMarketOrder returns a dry-run market order.
func NewMarketOrder(runID, ts, symbol, side string, qty float64) OrderV1 {
	return OrderV1{
		V:      1,
		Topic:  TopicOrders,
		RunID:  runID,
		TS:     ts,
		Symbol: symbol,
		Side:   side,
		Qty:    qty,
		Type:   "market",
		DryRun: true,
	}
}

func (o OrderV1) EventTopic() string { return TopicOrders }
func (o OrderV1) Key() string        { return keyOf("", o.Symbol) }

// FillV1 is an execution report for an order.
type FillV1 struct {
	V       int     `json:"v"`
	Topic   string  `json:"topic"`
	RunID   string  `json:"run_id"`
	TS      string  `json:"ts"`
	OrderID string  `json:"order_id"`
	Symbol  string  `json:"symbol"`
	Side    string  `json:"side"`
	Qty     float64 `json:"qty"`
	Price   float64 `json:"price"`
}

func (f FillV1) EventTopic() string { return TopicFills }
func (f FillV1) Key() string        { return keyOf("", f.Symbol) }

// Names lists the schema names in a stable order.
func Names() []string {
	return []string{"QuoteV1", "NewsV1", "OrderV1", "FillV1"}
}

// PartitionKey picks the key for a decoded payload: partition_key, else
// symbol, else DefaultKey.
func PartitionKey(payload map[string]any) string {
	pk, _ := payload["partition_key"].(string)
	sym, _ := payload["symbol"].(string)
	return keyOf(pk, sym)
}

func keyOf(partitionKey, symbol string) string {
	if partitionKey != "" {
		return partitionKey
	}
	if symbol != "" {
		return symbol
	}
	return DefaultKey
}
