package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Partitions)
	assert.Equal(t, 128, cfg.EmbedDim)
	assert.Equal(t, 0.7, cfg.Alpha)
	assert.Equal(t, BusLocal, cfg.BusBackend)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptrader.yaml")
	content := `
base_dir: /var/lib/gptrader
partitions: 2
alpha: 0.5
bus_backend: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/gptrader", cfg.BaseDir)
	assert.Equal(t, 2, cfg.Partitions)
	assert.Equal(t, 0.5, cfg.Alpha)
	assert.Equal(t, BusSQLite, cfg.BusBackend)
	// untouched fields keep defaults
	assert.Equal(t, 128, cfg.EmbedDim)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptrader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("partitions: 2\n"), 0o644))

	t.Setenv("GPTRADER_PARTITIONS", "8")
	t.Setenv("GPTRADER_EMBED_HASH", "HIGHWAY")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Partitions)
	assert.Equal(t, HashHighway, cfg.EmbedHash)
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	t.Setenv("GPTRADER_ALPHA", "high")
	cfg := Default()
	err := ApplyEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPTRADER_ALPHA")
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero partitions", func(c *Config) { c.Partitions = 0 }, "partitions"},
		{"negative dim", func(c *Config) { c.EmbedDim = -1 }, "embed_dim"},
		{"alpha above one", func(c *Config) { c.Alpha = 1.5 }, "alpha"},
		{"unknown hash", func(c *Config) { c.EmbedHash = "md5" }, "embed_hash"},
		{"empty base", func(c *Config) { c.BaseDir = "" }, "base_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = "/srv"
	assert.Equal(t, filepath.Join("/srv", "data", "journal"), cfg.JournalDir())
	assert.Equal(t, filepath.Join("/srv", ".runtime", "offsets"), cfg.OffsetsDir())
	assert.Equal(t, filepath.Join("/srv", "data", "indices", "news"), cfg.IndexDir())
	assert.Equal(t, filepath.Join("/srv", "artifacts", "run-demo"), cfg.ArtifactsDir("demo"))
	assert.Equal(t, filepath.Join("/srv", ".runtime", "bus.db"), cfg.DatabasePath())

	cfg.SQLitePath = "/tmp/bus.db"
	assert.Equal(t, "/tmp/bus.db", cfg.DatabasePath())
}
