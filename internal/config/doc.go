// Package config holds the construction parameters for the gptrader data plane.
//
// A Config is an explicit value: it is loaded once (defaults, then an optional
// YAML file, then GPTRADER_* environment variables) and handed to each
// component constructor. Nothing in the module reads configuration from
// package-level state.
//
// Example:
//
//	cfg, err := config.Load("gptrader.yaml")
//	if err != nil {
//	    return err
//	}
//	b, err := bus.Open(cfg.BaseDir, cfg.Partitions)
package config
