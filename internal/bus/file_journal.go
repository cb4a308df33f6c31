package bus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileJournal is the NDJSON file implementation of Journal.
type FileJournal struct {
	dir string

	// mu serializes count-then-append within the process and guards counts.
	mu     sync.Mutex
	counts map[partitionRef]partitionCount
}

type partitionRef struct {
	topic     string
	partition int
}

// partitionCount is the record count the journal last produced, valid while
// the file still has the recorded size.
type partitionCount struct {
	records int64
	size    int64
}

// NewFileJournal opens (creating if needed) a journal rooted at dir, normally
// <base>/data/journal.
func NewFileJournal(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &FileJournal{dir: dir, counts: make(map[partitionRef]partitionCount)}, nil
}

// Dir returns the journal root.
func (j *FileJournal) Dir() string {
	return j.dir
}

// Path returns the partition file of topic/partition.
func (j *FileJournal) Path(topic string, partition int) string {
	return filepath.Join(j.dir, topic, fmt.Sprintf("partition-%d.ndjson", partition))
}

// Append implements Journal.
func (j *FileJournal) Append(topic string, partition int, records []json.RawMessage) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := validName("topic", topic); err != nil {
		return 0, err
	}
	if partition < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPartition, partition)
	}

	var buf bytes.Buffer
	for i, rec := range records {
		if len(rec) == 0 || bytes.IndexByte(rec, '\n') >= 0 {
			return 0, fmt.Errorf("bus: record %d is not a single JSON line", i)
		}
		buf.Write(rec)
		buf.WriteByte('\n')
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	path := j.Path(topic, partition)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create topic dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open partition: %w", err)
	}
	defer f.Close()

	if err := lockFile(f, true); err != nil {
		return 0, fmt.Errorf("lock partition %s: %w", path, err)
	}
	defer func() { _ = unlockFile(f) }()

	ref := partitionRef{topic: topic, partition: partition}
	count, err := j.countLocked(ref, f)
	if err != nil {
		return 0, err
	}

	n, err := f.Write(buf.Bytes())
	if err != nil {
		// A short write leaves the file in an unknown state; force a rescan.
		delete(j.counts, ref)
		return 0, fmt.Errorf("append partition %s: %w", path, err)
	}
	j.counts[ref] = partitionCount{
		records: count.records + int64(len(records)),
		size:    count.size + int64(n),
	}
	return count.records, nil
}

// countLocked returns the current record count and size of the open
// partition file. Callers hold j.mu and the exclusive file lock.
func (j *FileJournal) countLocked(ref partitionRef, f *os.File) (partitionCount, error) {
	info, err := f.Stat()
	if err != nil {
		return partitionCount{}, fmt.Errorf("stat partition: %w", err)
	}
	size := info.Size()
	if cached, ok := j.counts[ref]; ok && cached.size == size {
		return cached, nil
	}
	records, err := countLines(io.NewSectionReader(f, 0, size))
	if err != nil {
		return partitionCount{}, fmt.Errorf("count partition %s: %w", f.Name(), err)
	}
	return partitionCount{records: records, size: size}, nil
}

// Scan implements Journal.
func (j *FileJournal) Scan(topic string, partition int, from int64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if err := validName("topic", topic); err != nil {
			yield(Record{}, err)
			return
		}
		path := j.Path(topic, partition)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(Record{}, fmt.Errorf("open partition: %w", err))
			return
		}
		defer f.Close()

		size, err := snapshotSize(f)
		if err != nil {
			yield(Record{}, fmt.Errorf("snapshot partition %s: %w", path, err))
			return
		}

		r := bufio.NewReaderSize(io.NewSectionReader(f, 0, size), 64<<10)
		var line int64
		for {
			b, readErr := r.ReadBytes('\n')
			if len(b) > 0 {
				if line >= from {
					payload := bytes.TrimSuffix(bytes.TrimSuffix(b, []byte("\n")), []byte("\r"))
					if !json.Valid(payload) {
						yield(Record{}, &MalformedRecordError{Path: path, Line: line, Err: errors.New("invalid JSON")})
						return
					}
					if !yield(Record{Offset: line, Payload: payload}, nil) {
						return
					}
				}
				line++
			}
			if readErr == io.EOF {
				return
			}
			if readErr != nil {
				yield(Record{}, fmt.Errorf("read partition %s: %w", path, readErr))
				return
			}
		}
	}
}

// Close implements Journal. The file journal holds no open handles between
// calls.
func (j *FileJournal) Close() error {
	return nil
}

// snapshotSize reads the file size under a shared lock, so it never lands in
// the middle of another writer's append.
func snapshotSize(f *os.File) (int64, error) {
	if err := lockFile(f, false); err != nil {
		return 0, err
	}
	defer func() { _ = unlockFile(f) }()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// countLines counts newline-terminated lines, plus a trailing line that has
// no terminator.
func countLines(r io.Reader) (int64, error) {
	buf := make([]byte, 64<<10)
	var (
		count int64
		last  byte = '\n'
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			count += int64(bytes.Count(buf[:n], []byte{'\n'}))
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		count++
	}
	return count, nil
}

// validName rejects names that would escape or collapse a path segment.
func validName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %s %q", ErrInvalidName, kind, name)
	}
	return nil
}
