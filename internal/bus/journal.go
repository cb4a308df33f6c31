package bus

import (
	"encoding/json"
	"iter"
)

// Journal is the partitioned log role. Implementations assign offsets as the
// number of records already present in the partition and must make the
// count-then-append step atomic with respect to other appends.
type Journal interface {
	// Append writes records to the end of topic/partition and returns the
	// offset assigned to the first one. Appending no records is a no-op.
	Append(topic string, partition int, records []json.RawMessage) (int64, error)

	// Scan yields the records of topic/partition with offset >= from, up to
	// the end of the partition as it was when the scan began. A partition
	// that was never written yields nothing.
	Scan(topic string, partition int, from int64) iter.Seq2[Record, error]

	Close() error
}

// OffsetStore persists, per (group, topic, partition), the next offset to read.
type OffsetStore interface {
	// Load returns the stored offset, or 0 when there is none.
	Load(group, topic string, partition int) (int64, error)

	Store(group, topic string, partition int, offset int64) error

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(group, topic string, partition int) error
}
