package backend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pri-23-03/Gptrader/internal/config"
	"github.com/pri-23-03/Gptrader/internal/index"
	"github.com/pri-23-03/Gptrader/internal/schema"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	cfg := testConfig(t)
	b, err := New(cfg, quiet)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []Selection{
		{Role: RoleBus, Setting: "local", Impl: "bus.Bus(bus.FileJournal)"},
		{Role: RoleIndex, Setting: "local", Impl: "index.HybridIndex"},
		{Role: RoleExecutor, Setting: "stub", Impl: "executor.NoopExecutor"},
	}, b.Describe())

	env, err := b.Bus.Publish("t", "AAPL", map[string]string{"symbol": "AAPL"})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.BaseDir, "data", "journal", "t", "partition-0.ndjson"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), env.Offset)
}

func TestNew_SQLiteBus(t *testing.T) {
	cfg := testConfig(t)
	cfg.BusBackend = config.BusSQLite
	b, err := New(cfg, quiet)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "bus.Bus(store.Store)", b.Describe()[0].Impl)
	_, err = b.Bus.PublishBatch("t", "k", []any{1, 2})
	require.NoError(t, err)
	_, err = os.Stat(cfg.DatabasePath())
	assert.NoError(t, err)

	var n int
	for _, err := range b.Bus.Subscribe("g", "t") {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 2, n)
}

func TestNew_UnknownBackendsFailAtConstruction(t *testing.T) {
	tests := []struct {
		role   string
		mutate func(*config.Config)
	}{
		{RoleBus, func(c *config.Config) { c.BusBackend = "eventhubs" }},
		{RoleIndex, func(c *config.Config) { c.IndexBackend = "azure-search" }},
		{RoleExecutor, func(c *config.Config) { c.ExecBackend = "alpaca" }},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)

			_, err := New(cfg, quiet)
			var capErr *CapabilityError
			require.ErrorAs(t, err, &capErr)
			assert.Equal(t, tt.role, capErr.Role)
			assert.ErrorIs(t, err, ErrUnsupported)

			// nothing was created
			_, statErr := os.Stat(filepath.Join(cfg.BaseDir, "data"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestBackends_EndToEnd(t *testing.T) {
	ctx := context.Background()
	b, err := New(testConfig(t), quiet)
	require.NoError(t, err)
	defer b.Close()

	b.Index.Upsert([]index.Doc{
		{ID: "AAPL-0", Text: "Apple raises guidance after strong demand"},
		{ID: "MSFT-0", Text: "Microsoft beats earnings expectations"},
	})
	require.NoError(t, b.Index.Persist(ctx))
	require.NoError(t, b.Index.Load(ctx))
	hits := b.Index.Search("apple guidance", 1, index.DefaultAlpha)
	require.Len(t, hits, 1)
	assert.Equal(t, "AAPL-0", hits[0].Doc.ID)

	ack, err := b.Executor.PlaceOrder(ctx, schema.NewMarketOrder("demo", "t", "AAPL", schema.SideBuy, 1))
	require.NoError(t, err)
	id, err := uuid.Parse(ack.ID)
	require.NoError(t, err, ack.ID)
	assert.Equal(t, uuid.Version(7), id.Version())

	var orders int
	for _, err := range b.Bus.Subscribe("audit", schema.TopicOrders) {
		require.NoError(t, err)
		orders++
	}
	assert.Equal(t, 1, orders)
}
