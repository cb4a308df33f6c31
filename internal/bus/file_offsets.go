package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileOffsetStore keeps one small JSON file per (group, topic, partition).
type FileOffsetStore struct {
	dir string
}

type offsetFile struct {
	Offset *int64 `json:"offset"`
}

// NewFileOffsetStore opens (creating if needed) an offset store rooted at
// dir, normally <base>/.runtime/offsets.
func NewFileOffsetStore(dir string) (*FileOffsetStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create offsets dir: %w", err)
	}
	return &FileOffsetStore{dir: dir}, nil
}

// Path returns the offset file of group/topic/partition.
func (s *FileOffsetStore) Path(group, topic string, partition int) string {
	return filepath.Join(s.dir, group, fmt.Sprintf("%s-%d.json", topic, partition))
}

// Load implements OffsetStore. A file without an "offset" field reads as 0.
func (s *FileOffsetStore) Load(group, topic string, partition int) (int64, error) {
	path := s.Path(group, topic, partition)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read offset: %w", err)
	}
	var v offsetFile
	if err := json.Unmarshal(b, &v); err != nil {
		return 0, &MalformedRecordError{Path: path, Err: err}
	}
	if v.Offset == nil {
		return 0, nil
	}
	if *v.Offset < 0 {
		return 0, &MalformedRecordError{Path: path, Err: fmt.Errorf("negative offset %d", *v.Offset)}
	}
	return *v.Offset, nil
}

// Store implements OffsetStore. The file is replaced by rename, so readers
// see either the old or the new cursor.
func (s *FileOffsetStore) Store(group, topic string, partition int, offset int64) error {
	path := s.Path(group, topic, partition)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create group dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write offset: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, `{"offset": %d}`, offset); err != nil {
		tmp.Close()
		return fmt.Errorf("write offset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write offset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write offset: %w", err)
	}
	return nil
}

// Delete implements OffsetStore.
func (s *FileOffsetStore) Delete(group, topic string, partition int) error {
	err := os.Remove(s.Path(group, topic, partition))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete offset: %w", err)
	}
	return nil
}
