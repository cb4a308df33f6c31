package bus

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
)

// Bus is the publish/subscribe API over a Journal and an OffsetStore.
//
// The partition count is fixed at construction and must match the count the
// journal was written with; changing it re-maps keys to different partitions.
type Bus struct {
	journal    Journal
	offsets    OffsetStore
	partitions int
	logger     *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// New builds a Bus from explicit backends.
func New(journal Journal, offsets OffsetStore, partitions int, opts ...Option) (*Bus, error) {
	if partitions <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPartitionCount, partitions)
	}
	b := &Bus{
		journal:    journal,
		offsets:    offsets,
		partitions: partitions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Open builds a file-backed Bus rooted at base.
func Open(base string, partitions int, opts ...Option) (*Bus, error) {
	journal, err := NewFileJournal(filepath.Join(base, "data", "journal"))
	if err != nil {
		return nil, err
	}
	offsets, err := NewFileOffsetStore(filepath.Join(base, ".runtime", "offsets"))
	if err != nil {
		return nil, err
	}
	return New(journal, offsets, partitions, opts...)
}

// Partitions returns the partition count.
func (b *Bus) Partitions() int {
	return b.partitions
}

// ChoosePartition maps a partition key to a partition of this bus.
func (b *Bus) ChoosePartition(key string) int {
	return ChoosePartition(key, b.partitions)
}

// Publish appends payload to the partition chosen by key and returns its
// envelope.
func (b *Bus) Publish(topic, key string, payload any) (Envelope, error) {
	envs, err := b.PublishBatch(topic, key, []any{payload})
	if err != nil {
		return Envelope{}, err
	}
	return envs[0], nil
}

// PublishBatch appends every payload, in order, to the partition chosen by
// key. The records receive contiguous offsets. An empty batch is a no-op.
func (b *Bus) PublishBatch(topic, key string, payloads []any) ([]Envelope, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	if err := validName("topic", topic); err != nil {
		return nil, err
	}
	records := make([]json.RawMessage, len(payloads))
	for i, p := range payloads {
		rec, err := marshalPayload(p)
		if err != nil {
			return nil, fmt.Errorf("publish %s: payload %d: %w", topic, i, err)
		}
		records[i] = rec
	}

	part := b.ChoosePartition(key)
	first, err := b.journal.Append(topic, part, records)
	if err != nil {
		return nil, fmt.Errorf("publish %s/%d: %w", topic, part, err)
	}

	envs := make([]Envelope, len(records))
	for i, rec := range records {
		envs[i] = Envelope{Topic: topic, Partition: part, Offset: first + int64(i), Payload: rec}
	}
	b.logger.Debug("published", "topic", topic, "partition", part, "offset", first, "count", len(records))
	return envs, nil
}

// Subscribe yields the records group has not committed yet, for the given
// partitions (all when none are given), in ascending partition order and
// offset order within a partition.
//
// Committed offsets are read when iteration begins; each partition is read up
// to its end as of the moment its scan starts. The sequence is finite and
// never advances the committed offset. A malformed record ends the sequence
// with an error. A partition past the last one yields nothing, like one that was
// never written.
func (b *Bus) Subscribe(group, topic string, partitions ...int) iter.Seq2[Envelope, error] {
	return func(yield func(Envelope, error) bool) {
		parts, err := b.resolve(group, topic, partitions)
		if err != nil {
			yield(Envelope{}, err)
			return
		}

		from := make([]int64, len(parts))
		for i, p := range parts {
			off, err := b.offsets.Load(group, topic, p)
			if err != nil {
				yield(Envelope{}, fmt.Errorf("subscribe %s/%s/%d: %w", group, topic, p, err))
				return
			}
			from[i] = off
		}

		for i, p := range parts {
			if p >= b.partitions {
				continue
			}
			for rec, err := range b.journal.Scan(topic, p, from[i]) {
				if err != nil {
					yield(Envelope{}, fmt.Errorf("subscribe %s/%s/%d: %w", group, topic, p, err))
					return
				}
				env := Envelope{Topic: topic, Partition: p, Offset: rec.Offset, Payload: rec.Payload}
				if !yield(env, nil) {
					return
				}
			}
		}
	}
}

// Commit records that group has processed env, so the next Subscribe for its
// partition starts at env.Offset+1. Committed offsets never move backwards:
// committing an envelope behind the stored cursor is ignored.
func (b *Bus) Commit(group string, env Envelope) error {
	if _, err := b.resolve(group, env.Topic, []int{env.Partition}); err != nil {
		return err
	}
	if env.Offset < 0 {
		return fmt.Errorf("bus: commit %s/%s/%d: negative offset %d", group, env.Topic, env.Partition, env.Offset)
	}
	next := env.Offset + 1
	cur, err := b.offsets.Load(group, env.Topic, env.Partition)
	if err != nil {
		return fmt.Errorf("commit %s/%s/%d: %w", group, env.Topic, env.Partition, err)
	}
	if cur > next {
		b.logger.Debug("commit behind cursor ignored", "group", group, "topic", env.Topic,
			"partition", env.Partition, "cursor", cur, "offset", next)
		return nil
	}
	if err := b.offsets.Store(group, env.Topic, env.Partition, next); err != nil {
		return fmt.Errorf("commit %s/%s/%d: %w", group, env.Topic, env.Partition, err)
	}
	b.logger.Debug("committed", "group", group, "topic", env.Topic, "partition", env.Partition, "offset", next)
	return nil
}

// Committed returns the next offset group will read from topic/partition.
func (b *Bus) Committed(group, topic string, partition int) (int64, error) {
	if _, err := b.resolve(group, topic, []int{partition}); err != nil {
		return 0, err
	}
	return b.offsets.Load(group, topic, partition)
}

// Reset forgets group's committed offsets for the given partitions (all when
// none are given), so the next Subscribe replays them from offset 0.
func (b *Bus) Reset(group, topic string, partitions ...int) error {
	parts, err := b.resolve(group, topic, partitions)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if err := b.offsets.Delete(group, topic, p); err != nil {
			return fmt.Errorf("reset %s/%s/%d: %w", group, topic, p, err)
		}
	}
	b.logger.Debug("reset", "group", group, "topic", topic, "partitions", parts)
	return nil
}

// Close releases the journal.
func (b *Bus) Close() error {
	return b.journal.Close()
}

// resolve validates names and returns the requested partitions sorted and
// de-duplicated, or every partition when none were requested. Partitions
// past the last one are kept: they hold no records but may hold offsets.
// Negative partitions are rejected.
func (b *Bus) resolve(group, topic string, partitions []int) ([]int, error) {
	if err := validName("group", group); err != nil {
		return nil, err
	}
	if err := validName("topic", topic); err != nil {
		return nil, err
	}
	if len(partitions) == 0 {
		all := make([]int, b.partitions)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	parts := slices.Clone(partitions)
	slices.Sort(parts)
	if parts[0] < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartition, parts[0])
	}
	return slices.Compact(parts), nil
}
