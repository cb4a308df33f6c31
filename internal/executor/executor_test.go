package executor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func TestNoopExecutor_EchoesOrder(t *testing.T) {
	e := NewNoop(quiet)
	order := schema.NewMarketOrder("demo", "t0", "AAPL", schema.SideBuy, 1)

	ack, err := e.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "noop-0", ack.ID)
	assert.Equal(t, StatusSimulated, ack.Status)
	assert.Equal(t, order, ack.OrderV1)

	ack, err = e.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "noop-1", ack.ID)
}

func TestAck_JSONIsFlat(t *testing.T) {
	ack := Ack{OrderV1: schema.NewMarketOrder("r", "t", "MSFT", schema.SideSell, 2), ID: "x", Status: StatusSimulated}
	b, err := json.Marshal(ack)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "MSFT", m["symbol"])
	assert.Equal(t, "x", m["id"])
	assert.Equal(t, "simulated", m["status"])
}

func TestNoopExecutor_RejectsBadOrders(t *testing.T) {
	e := NewNoop(quiet)

	_, err := e.PlaceOrder(context.Background(), schema.NewMarketOrder("r", "t", "A", "hold", 1))
	assert.Error(t, err)
	_, err = e.PlaceOrder(context.Background(), schema.NewMarketOrder("r", "t", "A", schema.SideBuy, 0))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.PlaceOrder(ctx, schema.NewMarketOrder("r", "t", "A", schema.SideBuy, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoopExecutor_JournalsOrders(t *testing.T) {
	b, err := bus.Open(t.TempDir(), 2)
	require.NoError(t, err)

	e := NewNoop(quiet, WithJournal(b), WithIDGenerator(NewFixedGenerator("o-1")))
	_, err = e.PlaceOrder(context.Background(), schema.NewMarketOrder("r", "t", "AAPL", schema.SideBuy, 3))
	require.NoError(t, err)

	var got []schema.OrderV1
	for env, err := range b.Subscribe("audit", schema.TopicOrders) {
		require.NoError(t, err)
		var o schema.OrderV1
		require.NoError(t, env.Decode(&o))
		got = append(got, o)
	}
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Qty)
}

func TestGenerators(t *testing.T) {
	fixed := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", fixed.Generate())
	assert.Equal(t, "b", fixed.Generate())
	assert.Panics(t, func() { fixed.Generate() })

	seq := NewSequenceGenerator("ord")
	assert.Equal(t, "ord-0", seq.Generate())
	assert.Equal(t, "ord-1", seq.Generate())

	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}
