// Package executor places orders. The only implementation is a dry-run
// executor that acknowledges every order without contacting a venue.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/schema"
)

// StatusSimulated marks an acknowledgement from the dry-run executor.
const StatusSimulated = "simulated"

// Ack is an order echoed back with the executor's ID and status.
type Ack struct {
	schema.OrderV1
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Executor places orders.
type Executor interface {
	PlaceOrder(ctx context.Context, order schema.OrderV1) (Ack, error)
}

// Publisher is the part of the bus the executor journals orders to.
type Publisher interface {
	Publish(topic, key string, payload any) (bus.Envelope, error)
}

// NoopExecutor acknowledges every order as simulated.
type NoopExecutor struct {
	ids     IDGenerator
	journal Publisher
	logger  *slog.Logger
}

// Option configures a NoopExecutor.
type Option func(*NoopExecutor)

// WithIDGenerator sets the acknowledgement ID source. Defaults to
// "noop-0", "noop-1", ...
func WithIDGenerator(g IDGenerator) Option {
	return func(e *NoopExecutor) {
		e.ids = g
	}
}

// WithJournal publishes every accepted order to the orders topic.
func WithJournal(p Publisher) Option {
	return func(e *NoopExecutor) {
		e.journal = p
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *NoopExecutor) {
		e.logger = l
	}
}

// NewNoop returns a dry-run executor.
func NewNoop(opts ...Option) *NoopExecutor {
	e := &NoopExecutor{
		ids:    NewSequenceGenerator("noop"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlaceOrder implements Executor.
func (e *NoopExecutor) PlaceOrder(ctx context.Context, order schema.OrderV1) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	if order.Side != schema.SideBuy && order.Side != schema.SideSell {
		return Ack{}, fmt.Errorf("executor: invalid side %q", order.Side)
	}
	if order.Qty <= 0 {
		return Ack{}, fmt.Errorf("executor: quantity must be > 0, got %v", order.Qty)
	}

	if e.journal != nil {
		if _, err := e.journal.Publish(schema.TopicOrders, order.Key(), order); err != nil {
			return Ack{}, fmt.Errorf("executor: journal order: %w", err)
		}
	}
	ack := Ack{OrderV1: order, ID: e.ids.Generate(), Status: StatusSimulated}
	e.logger.Debug("order simulated", "id", ack.ID, "symbol", order.Symbol, "side", order.Side, "qty", order.Qty)
	return ack, nil
}
