package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// AggregateConfig holds configuration for aggregation.
type AggregateConfig struct {
	Config

	Input         string
	Window        string
	WindowSeconds uint64
	Out           string
	BatchSize     int
	StateFile     string
	RecomputeFrom uint64
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return AggregateConfig{}, err
	}

	v.SetDefault("batch-size", 1000)
	v.SetDefault("window", "5m")
	v.SetDefault("out", "./data/windows.jsonl")

	base, err := fromViper(v)
	if err != nil {
		return AggregateConfig{}, err
	}

	cfg := AggregateConfig{
		Config:    base,
		Input:     v.GetString("in"),
		Window:    v.GetString("window"),
		Out:       v.GetString("out"),
		BatchSize: v.GetInt("batch-size"),
		StateFile: v.GetString("state-file"),
	}
	if cfg.Input == "" {
		cfg.Input = base.Events
	}

	windowSeconds, err := parseWindow(cfg.Window)
	if err != nil {
		return AggregateConfig{}, err
	}
	cfg.WindowSeconds = windowSeconds

	if raw := v.GetString("recompute-from"); raw != "" {
		seq, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return AggregateConfig{}, fmt.Errorf("invalid recompute-from: %w", err)
		}
		cfg.RecomputeFrom = seq
	}

	return cfg, nil
}

func parseWindow(value string) (uint64, error) {
	if value == "" {
		return 0, fmt.Errorf("window is required")
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid window: %w", err)
	}
	if d < time.Second || d%time.Second != 0 {
		return 0, fmt.Errorf("window must be a whole number of seconds")
	}
	return uint64(d / time.Second), nil
}
