package bus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileOffsetStore_RoundTrip(t *testing.T) {
	s, err := NewFileOffsetStore(t.TempDir())
	require.NoError(t, err)

	off, err := s.Load("g", "t", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)

	require.NoError(t, s.Store("g", "t", 0, 42))
	off, err = s.Load("g", "t", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), off)

	require.NoError(t, s.Delete("g", "t", 0))
	require.NoError(t, s.Delete("g", "t", 0))
	off, err = s.Load("g", "t", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)
}

func TestFileOffsetStore_MissingFieldReadsAsZero(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileOffsetStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "g"), 0o755))
	require.NoError(t, os.WriteFile(s.Path("g", "t", 1), []byte(`{}`), 0o644))

	off, err := s.Load("g", "t", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)
}

func TestFileOffsetStore_MalformedIsFatal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileOffsetStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "g"), 0o755))
	require.NoError(t, os.WriteFile(s.Path("g", "t", 0), []byte(`offset=3`), 0o644))
	require.NoError(t, os.WriteFile(s.Path("g", "t", 1), []byte(`{"offset": -2}`), 0o644))

	_, err = s.Load("g", "t", 0)
	assert.ErrorIs(t, err, ErrMalformedRecord)
	_, err = s.Load("g", "t", 1)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestFileOffsetStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileOffsetStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Store("g", "t", 3, 7))

	entries, err := os.ReadDir(filepath.Join(dir, "g"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t-3.json", entries[0].Name())
}
