package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "GPTRADER_"

// ApplyEnv overlays GPTRADER_* environment variables onto cfg. Names are
// matched case-sensitively in upper case. Unparseable numbers are errors.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookup("BASE_DIR"); ok {
		cfg.BaseDir = v
	}
	if v, ok := lookup("PARTITIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("PARTITIONS", v, err)
		}
		cfg.Partitions = n
	}
	if v, ok := lookup("EMBED_DIM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("EMBED_DIM", v, err)
		}
		cfg.EmbedDim = n
	}
	if v, ok := lookup("EMBED_HASH"); ok {
		cfg.EmbedHash = strings.ToLower(v)
	}
	if v, ok := lookup("ALPHA"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("ALPHA", v, err)
		}
		cfg.Alpha = f
	}
	if v, ok := lookup("BUS_BACKEND"); ok {
		cfg.BusBackend = strings.ToLower(v)
	}
	if v, ok := lookup("INDEX_BACKEND"); ok {
		cfg.IndexBackend = strings.ToLower(v)
	}
	if v, ok := lookup("EXEC_BACKEND"); ok {
		cfg.ExecBackend = strings.ToLower(v)
	}
	if v, ok := lookup("SQLITE_PATH"); ok {
		cfg.SQLitePath = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envError(name, value string, err error) error {
	return fmt.Errorf("env %s%s=%q: %w", EnvPrefix, name, value, err)
}
