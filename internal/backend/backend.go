// Package backend selects the concrete implementation of each role (event
// bus, index, executor) once, from configuration. Every implementation
// provides the full method set of its role; nothing is probed per call.
package backend

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/config"
	"github.com/pri-23-03/Gptrader/internal/embed"
	"github.com/pri-23-03/Gptrader/internal/executor"
	"github.com/pri-23-03/Gptrader/internal/index"
	"github.com/pri-23-03/Gptrader/internal/store"
)

// Role names.
const (
	RoleBus      = "bus"
	RoleIndex    = "index"
	RoleExecutor = "executor"
)

// EventBus is the publish/subscribe role.
type EventBus interface {
	Publish(topic, key string, payload any) (bus.Envelope, error)
	PublishBatch(topic, key string, payloads []any) ([]bus.Envelope, error)
	Subscribe(group, topic string, partitions ...int) iter.Seq2[bus.Envelope, error]
	Commit(group string, env bus.Envelope) error
	Reset(group, topic string, partitions ...int) error
	Close() error
}

// Index is the document search role.
type Index interface {
	Upsert(docs []index.Doc)
	Search(query string, k int, alpha float64) []index.Result
	Persist(ctx context.Context) error
	Load(ctx context.Context) error
	Len() int
}

var (
	_ EventBus          = (*bus.Bus)(nil)
	_ Index             = (*index.HybridIndex)(nil)
	_ executor.Executor = (*executor.NoopExecutor)(nil)
)

// ErrUnsupported is matched by every CapabilityError.
var ErrUnsupported = errors.New("backend: unsupported")

// CapabilityError reports a configured backend that does not exist for a
// role. It is returned from New, never from a later call.
type CapabilityError struct {
	Role string
	Name string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("backend: no %s backend named %q", e.Role, e.Name)
}

// Is lets errors.Is match ErrUnsupported.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrUnsupported
}

// Selection records which implementation a role resolved to.
type Selection struct {
	Role    string `json:"role"`
	Setting string `json:"setting"`
	Impl    string `json:"impl"`
}

// Backends holds one implementation per role.
type Backends struct {
	Bus      EventBus
	Index    Index
	Executor executor.Executor

	// Partitions is the bus partition count.
	Partitions int

	selected []Selection
}

// Option configures New.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to every backend.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New builds the backends named in cfg. Unknown names fail with a
// *CapabilityError before anything is opened.
func New(cfg config.Config, opts ...Option) (*Backends, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.BusBackend {
	case config.BusLocal, config.BusSQLite:
	default:
		return nil, &CapabilityError{Role: RoleBus, Name: cfg.BusBackend}
	}
	if cfg.IndexBackend != config.IndexLocal {
		return nil, &CapabilityError{Role: RoleIndex, Name: cfg.IndexBackend}
	}
	if cfg.ExecBackend != config.ExecStub {
		return nil, &CapabilityError{Role: RoleExecutor, Name: cfg.ExecBackend}
	}

	b := &Backends{Partitions: cfg.Partitions}

	var err error
	if b.Bus, err = openBus(cfg, o.logger); err != nil {
		return nil, err
	}
	b.selected = append(b.selected, Selection{Role: RoleBus, Setting: cfg.BusBackend, Impl: busImpl(cfg)})

	emb, err := embed.New(cfg.EmbedDim, embed.Hash(cfg.EmbedHash))
	if err != nil {
		b.Bus.Close()
		return nil, err
	}
	b.Index = index.New(cfg.IndexDir(), emb, index.WithLogger(o.logger))
	b.selected = append(b.selected, Selection{Role: RoleIndex, Setting: cfg.IndexBackend, Impl: "index.HybridIndex"})

	b.Executor = executor.NewNoop(
		executor.WithIDGenerator(executor.UUIDv7Generator{}),
		executor.WithJournal(b.Bus),
		executor.WithLogger(o.logger),
	)
	b.selected = append(b.selected, Selection{Role: RoleExecutor, Setting: cfg.ExecBackend, Impl: "executor.NoopExecutor"})

	return b, nil
}

func openBus(cfg config.Config, logger *slog.Logger) (EventBus, error) {
	if cfg.BusBackend == config.BusSQLite {
		path := cfg.DatabasePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		b, err := bus.New(st, st, cfg.Partitions, bus.WithLogger(logger))
		if err != nil {
			st.Close()
			return nil, err
		}
		return b, nil
	}
	return bus.Open(cfg.BaseDir, cfg.Partitions, bus.WithLogger(logger))
}

func busImpl(cfg config.Config) string {
	if cfg.BusBackend == config.BusSQLite {
		return "bus.Bus(store.Store)"
	}
	return "bus.Bus(bus.FileJournal)"
}

// Describe lists the selected implementations in role order.
func (b *Backends) Describe() []Selection {
	return append([]Selection(nil), b.selected...)
}

// Close releases the bus.
func (b *Backends) Close() error {
	if b.Bus == nil {
		return nil
	}
	return b.Bus.Close()
}
