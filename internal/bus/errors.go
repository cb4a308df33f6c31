package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPartition is returned for a negative partition index.
	ErrInvalidPartition = errors.New("bus: invalid partition")

	// ErrInvalidPartitionCount is returned when a bus is built with fewer
	// than one partition.
	ErrInvalidPartitionCount = errors.New("bus: partition count must be > 0")

	// ErrInvalidName is returned for topic or group names that cannot be
	// used as a single path segment.
	ErrInvalidName = errors.New("bus: invalid name")

	// ErrMalformedRecord marks a stored record that does not parse. The log
	// is self-produced, so this is never skipped.
	ErrMalformedRecord = errors.New("bus: malformed record")
)

// MalformedRecordError describes a stored record or offset entry that failed
// to parse.
type MalformedRecordError struct {
	// Path is the file (or table) the record was read from.
	Path string

	// Line is the zero-based line number, which equals the record offset for
	// journal files.
	Line int64

	Err error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("bus: malformed record at %s:%d: %v", e.Path, e.Line, e.Err)
}

// Is lets errors.Is match ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
