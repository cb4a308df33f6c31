package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in configuration.
const (
	BusLocal    = "local"
	BusSQLite   = "sqlite"
	IndexLocal  = "local"
	ExecStub    = "stub"
	HashSHA1    = "sha1"
	HashHighway = "highway"
)

// Config is the full set of construction parameters.
type Config struct {
	// BaseDir is the root under which data/ and .runtime/ live.
	BaseDir string `yaml:"base_dir"`

	// Partitions is the partition count used for every topic. Immutable for
	// the lifetime of the stored journal.
	Partitions int `yaml:"partitions"`

	EmbedDim  int     `yaml:"embed_dim"`
	EmbedHash string  `yaml:"embed_hash"`
	Alpha     float64 `yaml:"alpha"`

	BusBackend   string `yaml:"bus_backend"`
	IndexBackend string `yaml:"index_backend"`
	ExecBackend  string `yaml:"exec_backend"`

	// SQLitePath is the database file for the sqlite bus backend. Relative
	// paths resolve against BaseDir.
	SQLitePath string `yaml:"sqlite_path"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		BaseDir:      ".",
		Partitions:   4,
		EmbedDim:     128,
		EmbedHash:    HashSHA1,
		Alpha:        0.7,
		BusBackend:   BusLocal,
		IndexBackend: IndexLocal,
		ExecBackend:  ExecStub,
		SQLitePath:   filepath.Join(".runtime", "bus.db"),
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field in one error.
func (c Config) Validate() error {
	var errs []error
	if c.BaseDir == "" {
		errs = append(errs, errors.New("base_dir must not be empty"))
	}
	if c.Partitions <= 0 {
		errs = append(errs, fmt.Errorf("partitions must be > 0, got %d", c.Partitions))
	}
	if c.EmbedDim <= 0 {
		errs = append(errs, fmt.Errorf("embed_dim must be > 0, got %d", c.EmbedDim))
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		errs = append(errs, fmt.Errorf("alpha must be within [0,1], got %v", c.Alpha))
	}
	if c.EmbedHash != HashSHA1 && c.EmbedHash != HashHighway {
		errs = append(errs, fmt.Errorf("embed_hash must be %q or %q, got %q", HashSHA1, HashHighway, c.EmbedHash))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// JournalDir is <base>/data/journal.
func (c Config) JournalDir() string {
	return filepath.Join(c.BaseDir, "data", "journal")
}

// OffsetsDir is <base>/.runtime/offsets.
func (c Config) OffsetsDir() string {
	return filepath.Join(c.BaseDir, ".runtime", "offsets")
}

// IndexDir is where the news index sidecars are kept.
func (c Config) IndexDir() string {
	return filepath.Join(c.BaseDir, "data", "indices", "news")
}

// ArtifactsDir is the output directory of a backtest run.
func (c Config) ArtifactsDir(runID string) string {
	return filepath.Join(c.BaseDir, "artifacts", "run-"+runID)
}

// DatabasePath resolves SQLitePath against BaseDir.
func (c Config) DatabasePath() string {
	if filepath.IsAbs(c.SQLitePath) {
		return c.SQLitePath
	}
	return filepath.Join(c.BaseDir, c.SQLitePath)
}
