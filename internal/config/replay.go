package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Config

	FromSequence      uint64
	ToSequence        uint64
	BatchSize         uint64
	Failures          string
	Checkpoint        string
	CheckpointEnabled bool
	// CheckpointName selects the journal_state row when the store is postgres.
	CheckpointName string
	MaxRetries     int
	RetryBackoff   time.Duration
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ReplayConfig{}, err
	}

	v.SetDefault("batch-size", uint64(500))
	v.SetDefault("failures", "./data/failures.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("checkpoint-name", "replay")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)

	base, err := fromViper(v)
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		Config:            base,
		FromSequence:      v.GetUint64("from"),
		ToSequence:        v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Failures:          v.GetString("failures"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		CheckpointName:    v.GetString("checkpoint-name"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
	}
	if cfg.BatchSize == 0 {
		return ReplayConfig{}, fmt.Errorf("batch-size must be greater than zero")
	}
	if cfg.ToSequence != 0 && cfg.ToSequence < cfg.FromSequence {
		return ReplayConfig{}, fmt.Errorf("to must be >= from")
	}

	return cfg, nil
}
